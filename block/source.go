// Package block provides the sole I/O abstraction the rest of the decoder
// depends on: a sector-addressable byte source. Every other component reads
// through a Source instead of touching an *os.File or io.ReaderAt directly.
package block

import (
	"fmt"
	"io"

	"github.com/sector9660/isofs/pkg/consts"
)

// Source is a read-only, sector-addressable view over an optical disc
// image. Implementations must tolerate unaligned cross-sector ranges.
type Source interface {
	// ReadSector returns the full, exactly SectorSize bytes of logical
	// sector lba.
	ReadSector(lba uint32) ([]byte, error)
	// ReadRange returns length bytes starting at byte offset within
	// sector lba; offset+length may exceed one sector, in which case the
	// read continues into subsequent sectors.
	ReadRange(lba uint32, offset, length int) ([]byte, error)
	// SectorSize reports the logical block size this source was opened
	// with (normally consts.ISO9660_SECTOR_SIZE).
	SectorSize() int
}

// FileSource adapts any io.ReaderAt (an *os.File, a bytes.Reader, …) into a
// Source addressed in fixed-size logical sectors.
type FileSource struct {
	r          io.ReaderAt
	sectorSize int
}

// NewFileSource wraps r as a Source using sectorSize-byte logical sectors.
// sectorSize defaults to consts.ISO9660_SECTOR_SIZE when zero.
func NewFileSource(r io.ReaderAt, sectorSize int) *FileSource {
	if sectorSize <= 0 {
		sectorSize = consts.ISO9660_SECTOR_SIZE
	}
	return &FileSource{r: r, sectorSize: sectorSize}
}

func (s *FileSource) SectorSize() int {
	return s.sectorSize
}

func (s *FileSource) ReadSector(lba uint32) ([]byte, error) {
	return s.ReadRange(lba, 0, s.sectorSize)
}

func (s *FileSource) ReadRange(lba uint32, offset, length int) ([]byte, error) {
	if offset < 0 || length < 0 {
		return nil, fmt.Errorf("block: negative offset/length")
	}
	start := int64(lba)*int64(s.sectorSize) + int64(offset)
	buf := make([]byte, length)
	n, err := s.r.ReadAt(buf, start)
	if err != nil && !(err == io.EOF && n == length) {
		return nil, fmt.Errorf("block: read lba=%d offset=%d length=%d: %w", lba, offset, length, err)
	}
	return buf, nil
}

// Extent identifies a run of contiguous sectors, the unit a directory
// record's LocationOfExtent/DataLength pair describes.
type Extent struct {
	LBA    uint32
	Length uint32 // bytes
}
