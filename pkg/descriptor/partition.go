package descriptor

import (
	"github.com/go-logr/logr"

	"github.com/sector9660/isofs/pkg/consts"
	"github.com/sector9660/isofs/pkg/encoding"
	"github.com/sector9660/isofs/pkg/logging"
)

// ParseVolumePartitionDescriptor decodes a type-3 Volume Partition Descriptor.
func ParseVolumePartitionDescriptor(vd VolumeDescriptor, strict bool, logger logr.Logger) (*VolumePartitionDescriptor, error) {
	logger.V(logging.TRACE).Info("parsing volume partition descriptor")
	pd := &VolumePartitionDescriptor{}
	if err := pd.unmarshal(vd.Data(), strict); err != nil {
		logger.Error(err, "failed to unmarshal volume partition descriptor")
		return nil, err
	}
	return pd, nil
}

// VolumePartitionDescriptor represents a type-3 Volume Partition Descriptor
// (ECMA-119 8.6), describing one partition of the volume beyond the
// standard file structure.
type VolumePartitionDescriptor struct {
	vdType                    VolumeDescriptorType
	standardIdentifier        string
	volumeDescriptorVersion   int8
	SystemIdentifier          string
	VolumePartitionIdentifier string
	VolumePartitionLocation   uint32
	VolumePartitionSize       uint32
}

func (pd *VolumePartitionDescriptor) Type() VolumeDescriptorType { return pd.vdType }
func (pd *VolumePartitionDescriptor) Identifier() string         { return pd.standardIdentifier }
func (pd *VolumePartitionDescriptor) Version() int8              { return pd.volumeDescriptorVersion }

func (pd *VolumePartitionDescriptor) unmarshal(data [consts.ISO9660_SECTOR_SIZE]byte, strict bool) error {
	pd.vdType = VolumeDescriptorType(data[0])
	pd.standardIdentifier = string(data[1:6])
	pd.volumeDescriptorVersion = int8(data[6])
	pd.SystemIdentifier = string(data[8:40])
	pd.VolumePartitionIdentifier = string(data[40:72])

	loc, err := encoding.UnmarshalUint32LSBMSB(data[72:80], strict)
	if err != nil {
		return err
	}
	pd.VolumePartitionLocation = loc

	size, err := encoding.UnmarshalUint32LSBMSB(data[80:88], strict)
	if err != nil {
		return err
	}
	pd.VolumePartitionSize = size

	return nil
}
