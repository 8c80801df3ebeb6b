package descriptor

import (
	"encoding/binary"
	"time"

	"github.com/go-logr/logr"

	"github.com/sector9660/isofs/pkg/consts"
	"github.com/sector9660/isofs/pkg/directory"
	"github.com/sector9660/isofs/pkg/encoding"
	"github.com/sector9660/isofs/pkg/logging"
)

// JolietLevel identifies which Joliet UCS-2 escape sequence a Supplementary
// Volume Descriptor declared, or LevelNone if it isn't a Joliet SVD at all
// (e.g. a plain Enhanced Volume Descriptor).
type JolietLevel int

const (
	LevelNone JolietLevel = iota
	Level1
	Level2
	Level3
)

// ParseSupplementaryVolumeDescriptor decodes a type-2 Supplementary Volume
// Descriptor, which both Joliet and Enhanced (ISO 9660:1999) volumes use.
func ParseSupplementaryVolumeDescriptor(vd VolumeDescriptor, strict bool, logger logr.Logger) (*SupplementaryVolumeDescriptor, error) {
	logger.V(logging.TRACE).Info("parsing supplementary volume descriptor")
	svd := &SupplementaryVolumeDescriptor{}
	if err := svd.unmarshal(vd.Data(), vd.LBA(), strict, logger); err != nil {
		logger.Error(err, "failed to unmarshal supplementary volume descriptor")
		return nil, err
	}

	if svd.Type() != VolumeDescriptorSupplementary {
		logger.V(logging.TRACE).Info("unexpected supplementary volume descriptor type", "type", svd.Type())
	}
	logger.V(logging.TRACE).Info("supplementary volume descriptor", "jolietLevel", svd.JolietLevel)

	return svd, nil
}

// SupplementaryVolumeDescriptor represents a type-2 Supplementary Volume
// Descriptor.
type SupplementaryVolumeDescriptor struct {
	rawData                     [consts.ISO9660_SECTOR_SIZE]byte
	vdType                      VolumeDescriptorType
	standardIdentifier          string
	volumeDescriptorVersion     int8
	VolumeFlags                 byte
	SystemIdentifier            string
	VolumeIdentifier            string
	VolumeSpaceSize             uint32
	EscapeSequences              [32]byte
	VolumeSetSize               uint16
	VolumeSequenceNumber        uint16
	LogicalBlockSize            uint16
	PathTableSize               uint32
	LPathTableLocation          uint32
	LOptionalPathTableLocation  uint32
	MPathTableLocation          uint32
	MOptionalPathTableLocation  uint32
	RootDirectoryRecord         *directory.Record
	VolumeSetIdentifier         string
	PublisherIdentifier         string
	DataPreparerIdentifier      string
	ApplicationIdentifier       string
	CopyrightFileIdentifier     string
	AbstractFileIdentifier      string
	BibliographicFileIdentifier string
	VolumeCreationDate          time.Time
	VolumeModificationDate      time.Time
	VolumeExpirationDate        time.Time
	VolumeEffectiveDate         time.Time
	FileStructureVersion        byte
	ApplicationUse              [512]byte
	JolietLevel                 JolietLevel
}

func (svd *SupplementaryVolumeDescriptor) Type() VolumeDescriptorType              { return svd.vdType }
func (svd *SupplementaryVolumeDescriptor) Identifier() string                      { return svd.standardIdentifier }
func (svd *SupplementaryVolumeDescriptor) Version() int8                           { return svd.volumeDescriptorVersion }
func (svd *SupplementaryVolumeDescriptor) Data() [consts.ISO9660_SECTOR_SIZE]byte  { return svd.rawData }
func (svd *SupplementaryVolumeDescriptor) IsJoliet() bool                          { return svd.JolietLevel != LevelNone }

func (svd *SupplementaryVolumeDescriptor) unmarshal(data [consts.ISO9660_SECTOR_SIZE]byte, lba uint32, strict bool, logger logr.Logger) (err error) {
	svd.rawData = data
	copy(svd.EscapeSequences[:], data[88:120])

	switch string(svd.EscapeSequences[0:3]) {
	case consts.JOLIET_LEVEL_1_ESCAPE:
		svd.JolietLevel = Level1
	case consts.JOLIET_LEVEL_2_ESCAPE:
		svd.JolietLevel = Level2
	case consts.JOLIET_LEVEL_3_ESCAPE:
		svd.JolietLevel = Level3
	default:
		svd.JolietLevel = LevelNone
	}

	rootRecord := directory.NewRecord(logger)
	rootRecord.Joliet = svd.IsJoliet()
	if err = rootRecord.Unmarshal(data[156:190], strict, false); err != nil {
		return err
	}
	if n := len(rootRecord.SystemUse); n > 0 {
		rootRecord.SUSPArea.LBA = lba
		rootRecord.SUSPArea.Offset = 156 + (34 - n)
		rootRecord.SUSPArea.Length = n
	}
	svd.RootDirectoryRecord = rootRecord

	svd.vdType = VolumeDescriptorType(data[0])
	svd.standardIdentifier = string(data[1:6])
	svd.volumeDescriptorVersion = int8(data[6])
	svd.VolumeFlags = data[7]
	svd.SystemIdentifier = string(data[8:40])
	svd.VolumeIdentifier = string(data[40:72])

	if svd.VolumeSpaceSize, err = encoding.UnmarshalUint32LSBMSB(data[80:88], strict); err != nil {
		return err
	}
	if svd.VolumeSetSize, err = encoding.UnmarshalUint16LSBMSB(data[120:124], strict); err != nil {
		return err
	}
	if svd.VolumeSequenceNumber, err = encoding.UnmarshalUint16LSBMSB(data[124:128], strict); err != nil {
		return err
	}
	if svd.LogicalBlockSize, err = encoding.UnmarshalUint16LSBMSB(data[128:132], strict); err != nil {
		return err
	}
	if svd.PathTableSize, err = encoding.UnmarshalUint32LSBMSB(data[132:140], strict); err != nil {
		return err
	}

	svd.LPathTableLocation = binary.LittleEndian.Uint32(data[140:144])
	svd.LOptionalPathTableLocation = binary.LittleEndian.Uint32(data[144:148])
	svd.MPathTableLocation = binary.BigEndian.Uint32(data[148:152])
	svd.MOptionalPathTableLocation = binary.BigEndian.Uint32(data[152:156])

	svd.VolumeSetIdentifier = string(data[190:318])
	svd.PublisherIdentifier = string(data[318:446])
	svd.DataPreparerIdentifier = string(data[446:574])
	svd.ApplicationIdentifier = string(data[574:702])
	svd.CopyrightFileIdentifier = string(data[702:739])
	svd.AbstractFileIdentifier = string(data[739:776])
	svd.BibliographicFileIdentifier = string(data[776:813])

	if svd.VolumeCreationDate, err = encoding.DecodeVolumeTime(data[813:830]); err != nil {
		return err
	}
	if svd.VolumeModificationDate, err = encoding.DecodeVolumeTime(data[830:847]); err != nil {
		return err
	}
	if svd.VolumeExpirationDate, err = encoding.DecodeVolumeTime(data[847:864]); err != nil {
		return err
	}
	if svd.VolumeEffectiveDate, err = encoding.DecodeVolumeTime(data[864:881]); err != nil {
		return err
	}

	svd.FileStructureVersion = data[881]
	copy(svd.ApplicationUse[:], data[883:1395])

	return nil
}
