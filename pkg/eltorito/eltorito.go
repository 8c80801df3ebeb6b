// Package eltorito locates an El Torito boot catalog on an ISO 9660 image.
// Interpreting the catalog's platform/emulation/partition-type entries and
// extracting boot images is out of scope here — a caller that wants the
// catalog gets it as a file, like any other extent on the disc.
package eltorito

import (
	"encoding/binary"
	"strings"

	"github.com/sector9660/isofs/pkg/consts"
)

// Locate returns the LBA of the El Torito boot catalog pointed at by a Boot
// Record's BootSystemUse payload, and whether bootSystemIdentifier actually
// names the El Torito boot system at all.
func Locate(bootSystemIdentifier string, bootSystemUse [1976]byte) (lba uint32, ok bool) {
	trimmed := strings.TrimRight(strings.TrimSpace(bootSystemIdentifier), "\x00")
	if strings.TrimSpace(trimmed) != consts.EL_TORITO_BOOT_SYSTEM_ID {
		return 0, false
	}
	return binary.LittleEndian.Uint32(bootSystemUse[0:4]), true
}
