package descriptor

import (
	"errors"
	"strings"

	"github.com/go-logr/logr"

	"github.com/sector9660/isofs/pkg/consts"
	"github.com/sector9660/isofs/pkg/logging"
)

// ParseBootRecordVolumeDescriptor decodes a type-0 Boot Record. Only the El
// Torito boot system is interpreted further, by pkg/eltorito; any other
// boot system's BootSystemUse payload is returned uninterpreted.
func ParseBootRecordVolumeDescriptor(vd VolumeDescriptor, logger logr.Logger) (*BootRecordVolumeDescriptor, error) {
	logger.V(logging.TRACE).Info("parsing boot record volume descriptor")
	brvd := &BootRecordVolumeDescriptor{}
	if err := brvd.Unmarshal(vd.Data()); err != nil {
		logger.Error(err, "failed to unmarshal boot record volume descriptor")
		return nil, err
	}

	if brvd.Type != VolumeDescriptorBootRecord {
		logger.V(logging.TRACE).Info("unexpected boot record volume descriptor type", "type", brvd.Type)
	}
	if brvd.StandardIdentifier != consts.ISO9660_STD_IDENTIFIER {
		logger.V(logging.TRACE).Info("unexpected standard identifier", "identifier", brvd.StandardIdentifier)
	}

	return brvd, nil
}

type BootRecordVolumeDescriptor struct {
	Type                    VolumeDescriptorType // Numeric value
	StandardIdentifier      string               // Always "CD001"
	VolumeDescriptorVersion int                  // Numeric value
	BootSystemIdentifier    string               // a-characters string
	BootIdentifier          string               // 32-byte Boot Identifier field
	BootSystemUse           [1976]byte           // Boot System Use
}

// Unmarshal parses the given byte slice and populates the BootRecordVolumeDescriptor struct.
func (brvd *BootRecordVolumeDescriptor) Unmarshal(data [consts.ISO9660_SECTOR_SIZE]byte) (err error) {
	if len(data) < consts.ISO9660_SECTOR_SIZE {
		return errors.New("invalid data length")
	}

	brvd.Type = VolumeDescriptorType(data[0])
	brvd.StandardIdentifier = string(data[1:6])
	brvd.VolumeDescriptorVersion = int(data[6])
	brvd.BootSystemIdentifier = strings.TrimSpace(string(data[7:39]))
	brvd.BootIdentifier = string(data[39:71])
	copy(brvd.BootSystemUse[:], data[71:2048])

	return nil
}
