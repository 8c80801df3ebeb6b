package descriptor

import (
	"github.com/go-logr/logr"

	"github.com/sector9660/isofs/block"
	"github.com/sector9660/isofs/pkg/consts"
	"github.com/sector9660/isofs/pkg/isoerr"
	"github.com/sector9660/isofs/pkg/logging"
)

// VolumeDescriptorSet is every descriptor found in the Volume Descriptor
// Set (ECMA-119 8.4), starting at sector 16, the first sector after the
// System Area.
type VolumeDescriptorSet struct {
	Primary       *PrimaryVolumeDescriptor
	Supplementary []*SupplementaryVolumeDescriptor
	Boot          []*BootRecordVolumeDescriptor
	Partitions    []*VolumePartitionDescriptor
}

// maxVolumeDescriptors bounds the scan so a disc with a missing or
// corrupted terminator can't send Scan walking off the end of the image.
const maxVolumeDescriptors = 4096

// Scan reads sectors starting at ISO9660_SYSTEM_AREA_SECTORS until a Set
// Terminator (or an unreadable sector) and dispatches each one to its
// type-specific parser.
func Scan(src block.Source, strict bool, logger logr.Logger) (*VolumeDescriptorSet, error) {
	set := &VolumeDescriptorSet{}

	for i, lba := 0, uint32(consts.ISO9660_SYSTEM_AREA_SECTORS); i < maxVolumeDescriptors; i, lba = i+1, lba+1 {
		data, err := src.ReadSector(lba)
		if err != nil {
			return nil, err
		}

		vd, err := ParseVolumeDescriptor(data, lba, logger)
		if err != nil {
			return nil, err
		}

		switch vd.Type() {
		case VolumeDescriptorSetTerminator:
			logger.V(logging.TRACE).Info("reached volume descriptor set terminator", "lba", lba)
			if set.Primary == nil {
				return nil, isoerr.ErrMissingPvd
			}
			return set, nil

		case VolumeDescriptorPrimary:
			pvd, err := ParsePrimaryVolumeDescriptor(vd, strict, logger)
			if err != nil {
				return nil, err
			}
			if set.Primary == nil {
				set.Primary = pvd
			}

		case VolumeDescriptorSupplementary:
			svd, err := ParseSupplementaryVolumeDescriptor(vd, strict, logger)
			if err != nil {
				return nil, err
			}
			set.Supplementary = append(set.Supplementary, svd)

		case VolumeDescriptorBootRecord:
			brvd, err := ParseBootRecordVolumeDescriptor(vd, logger)
			if err != nil {
				return nil, err
			}
			set.Boot = append(set.Boot, brvd)

		case VolumeDescriptorPartition:
			pd, err := ParseVolumePartitionDescriptor(vd, strict, logger)
			if err != nil {
				return nil, err
			}
			set.Partitions = append(set.Partitions, pd)

		default:
			logger.V(logging.TRACE).Info("skipping unrecognized volume descriptor type", "type", vd.Type(), "lba", lba)
		}
	}

	return nil, isoerr.ErrMissingPvd
}
