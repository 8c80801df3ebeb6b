// Package systemarea reads the 32 KiB reserved system area that precedes
// every ISO 9660 volume descriptor set (ECMA-119 6.1.1, logical sectors
// 0-15). The standard places no constraint on its contents; platforms use
// it for things like a hybrid MBR/GPT boot image, so this package hands
// back the raw bytes rather than trying to interpret them.
package systemarea

import "github.com/sector9660/isofs/block"

// SystemArea is a 32 KiB byte array holding the system area of an ISO 9660
// image, logical sectors 0 through 15.
type SystemArea [32 * 1024]byte

// Read copies the system area out of src's first 16 logical blocks. The
// result is always 32 KiB: with a logical block size other than 2048, the
// bytes of those 16 blocks are truncated or zero-padded to fit SystemArea.
func Read(src block.Source) (*SystemArea, error) {
	var area SystemArea
	sectorSize := src.SectorSize()

	for lba := uint32(0); lba < 16; lba++ {
		data, err := src.ReadSector(lba)
		if err != nil {
			return nil, err
		}
		start := int(lba) * sectorSize
		if start >= len(area) {
			break
		}
		end := start + len(data)
		if end > len(area) {
			end = len(area)
		}
		copy(area[start:end], data)
	}

	return &area, nil
}
