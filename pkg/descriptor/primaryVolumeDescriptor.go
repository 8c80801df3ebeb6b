package descriptor

import (
	"encoding/binary"
	"errors"
	"time"

	"github.com/go-logr/logr"

	"github.com/sector9660/isofs/pkg/consts"
	"github.com/sector9660/isofs/pkg/directory"
	"github.com/sector9660/isofs/pkg/encoding"
	"github.com/sector9660/isofs/pkg/logging"
)

// ParsePrimaryVolumeDescriptor decodes a type-1 Primary Volume Descriptor.
// strict controls both-endian field validation; the root directory record's
// own children are not read here — callers walk them lazily through
// pkg/directory.Entry.ReadDir.
func ParsePrimaryVolumeDescriptor(vd VolumeDescriptor, strict bool, logger logr.Logger) (*PrimaryVolumeDescriptor, error) {
	logger.V(logging.TRACE).Info("parsing primary volume descriptor")
	pvd := &PrimaryVolumeDescriptor{}
	if err := pvd.unmarshal(vd.Data(), vd.LBA(), strict, logger); err != nil {
		logger.Error(err, "failed to unmarshal primary volume descriptor")
		return nil, err
	}

	if pvd.Type() != VolumeDescriptorPrimary {
		logger.V(logging.TRACE).Info("unexpected primary volume descriptor type", "type", pvd.Type())
	}
	if pvd.Identifier() != consts.ISO9660_STD_IDENTIFIER {
		logger.V(logging.TRACE).Info("unexpected standard identifier", "identifier", pvd.Identifier())
	}

	return pvd, nil
}

// PrimaryVolumeDescriptor is the primary (non-Joliet, non-RR) description
// of a disc's file structure, present on every ISO 9660 volume.
type PrimaryVolumeDescriptor struct {
	rawData                     [consts.ISO9660_SECTOR_SIZE]byte
	vdType                      VolumeDescriptorType
	standardIdentifier          string
	volumeDescriptorVersion     int8
	SystemIdentifier            string
	VolumeIdentifier            string
	VolumeSpaceSize             uint32
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
}

func (pvd *PrimaryVolumeDescriptor) Type() VolumeDescriptorType                 { return pvd.vdType }
func (pvd *PrimaryVolumeDescriptor) Identifier() string                        { return pvd.standardIdentifier }
func (pvd *PrimaryVolumeDescriptor) Version() int8                             { return pvd.volumeDescriptorVersion }
func (pvd *PrimaryVolumeDescriptor) Data() [consts.ISO9660_SECTOR_SIZE]byte    { return pvd.rawData }

func (pvd *PrimaryVolumeDescriptor) unmarshal(data [consts.ISO9660_SECTOR_SIZE]byte, lba uint32, strict bool, logger logr.Logger) (err error) {
	pvd.rawData = data

	rootRecord := directory.NewRecord(logger)
	if err = rootRecord.Unmarshal(data[156:190], strict, false); err != nil {
		return err
	}
	// The root record's own System Use area, if any, lives inline in this
	// sector at the same offset it was decoded from.
	if n := len(rootRecord.SystemUse); n > 0 {
		rootRecord.SUSPArea.LBA = lba
		rootRecord.SUSPArea.Offset = 156 + (34 - n)
		rootRecord.SUSPArea.Length = n
	}
	pvd.RootDirectoryRecord = rootRecord

	pvd.vdType = VolumeDescriptorType(data[0])
	pvd.standardIdentifier = string(data[1:6])
	pvd.volumeDescriptorVersion = int8(data[6])
	pvd.SystemIdentifier = string(data[8:40])
	pvd.VolumeIdentifier = string(data[40:72])

	if pvd.VolumeSpaceSize, err = encoding.UnmarshalUint32LSBMSB(data[80:88], strict); err != nil {
		return err
	}
	if pvd.VolumeSetSize, err = encoding.UnmarshalUint16LSBMSB(data[120:124], strict); err != nil {
		return err
	}
	if pvd.VolumeSequenceNumber, err = encoding.UnmarshalUint16LSBMSB(data[124:128], strict); err != nil {
		return err
	}
	if pvd.LogicalBlockSize, err = encoding.UnmarshalUint16LSBMSB(data[128:132], strict); err != nil {
		return err
	}
	if pvd.PathTableSize, err = encoding.UnmarshalUint32LSBMSB(data[132:140], strict); err != nil {
		return err
	}

	// The L/M path table locations are each single-endian fields (one LE
	// pair, one BE pair), not both-endian fields like VolumeSpaceSize.
	pvd.LPathTableLocation = binary.LittleEndian.Uint32(data[140:144])
	pvd.LOptionalPathTableLocation = binary.LittleEndian.Uint32(data[144:148])
	pvd.MPathTableLocation = binary.BigEndian.Uint32(data[148:152])
	pvd.MOptionalPathTableLocation = binary.BigEndian.Uint32(data[152:156])

	pvd.VolumeSetIdentifier = string(data[190:318])
	pvd.PublisherIdentifier = string(data[318:446])
	pvd.DataPreparerIdentifier = string(data[446:574])
	pvd.ApplicationIdentifier = string(data[574:702])
	pvd.CopyrightFileIdentifier = string(data[702:739])
	pvd.AbstractFileIdentifier = string(data[739:776])
	pvd.BibliographicFileIdentifier = string(data[776:813])

	if pvd.VolumeCreationDate, err = encoding.DecodeVolumeTime(data[813:830]); err != nil {
		return err
	}
	if pvd.VolumeModificationDate, err = encoding.DecodeVolumeTime(data[830:847]); err != nil {
		return err
	}
	if pvd.VolumeExpirationDate, err = encoding.DecodeVolumeTime(data[847:864]); err != nil {
		return err
	}
	if pvd.VolumeEffectiveDate, err = encoding.DecodeVolumeTime(data[864:881]); err != nil {
		return err
	}

	pvd.FileStructureVersion = data[881]
	copy(pvd.ApplicationUse[:], data[883:1395])

	if pvd.RootDirectoryRecord == nil {
		return errors.New("descriptor: primary volume descriptor missing root directory record")
	}
	return nil
}
