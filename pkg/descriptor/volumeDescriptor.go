package descriptor

import (
	"errors"

	"github.com/go-logr/logr"

	"github.com/sector9660/isofs/pkg/consts"
	"github.com/sector9660/isofs/pkg/logging"
)

// VolumeDescriptorType represents the type of volume descriptor in the ISO 9660 standard.
type VolumeDescriptorType byte

const (
	// VolumeDescriptorBootRecord indicates a Boot Record (type 0).
	VolumeDescriptorBootRecord VolumeDescriptorType = 0x00

	// VolumeDescriptorPrimary indicates a Primary Volume Descriptor (type 1).
	VolumeDescriptorPrimary VolumeDescriptorType = 0x01

	// VolumeDescriptorSupplementary indicates a Supplementary Volume Descriptor (type 2).
	VolumeDescriptorSupplementary VolumeDescriptorType = 0x02

	// VolumeDescriptorPartition indicates a Partition Volume Descriptor (type 3).
	VolumeDescriptorPartition VolumeDescriptorType = 0x03

	// VolumeDescriptorSetTerminator indicates the Volume Descriptor Set Terminator (type 255).
	VolumeDescriptorSetTerminator VolumeDescriptorType = 0xFF
)

// ParseVolumeDescriptor decodes just the generic header of one volume
// descriptor sector so the caller can decide which concrete Parse* function
// to dispatch to next.
func ParseVolumeDescriptor(data []byte, lba uint32, logger logr.Logger) (VolumeDescriptor, error) {
	logger.V(logging.TRACE).Info("parsing volume descriptor header")
	vd := &volumeDescriptor{logger: logger, lba: lba}
	if err := vd.unmarshal(data); err != nil {
		logger.Error(err, "failed to unmarshal volume descriptor header")
		return nil, err
	}
	return vd, nil
}

// VolumeDescriptor is the generic header shared by every volume descriptor
// type, before type-specific interpretation.
type VolumeDescriptor interface {
	Type() VolumeDescriptorType
	Identifier() string
	Version() int8
	LBA() uint32
	Data() [consts.ISO9660_SECTOR_SIZE]byte
}

type volumeDescriptor struct {
	vdType     VolumeDescriptorType
	identifier string
	version    int8
	data       [consts.ISO9660_SECTOR_SIZE]byte
	lba        uint32
	logger     logr.Logger
}

func (vd *volumeDescriptor) Type() VolumeDescriptorType                 { return vd.vdType }
func (vd *volumeDescriptor) Identifier() string                        { return vd.identifier }
func (vd *volumeDescriptor) Version() int8                             { return vd.version }
func (vd *volumeDescriptor) LBA() uint32                                { return vd.lba }
func (vd *volumeDescriptor) Data() [consts.ISO9660_SECTOR_SIZE]byte { return vd.data }

func (vd *volumeDescriptor) unmarshal(data []byte) error {
	if len(data) < consts.ISO9660_SECTOR_SIZE {
		return errors.New("descriptor: volume descriptor sector shorter than 2048 bytes")
	}
	vd.vdType = VolumeDescriptorType(data[0])
	vd.identifier = string(data[1:6])
	vd.version = int8(data[6])
	copy(vd.data[:], data)
	return nil
}
