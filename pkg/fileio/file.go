// Package fileio implements positional reads over a file's data extents,
// generalizing the single-extent, whole-file reads a plain ISO 9660 file
// normally needs into the multi-extent case a large file requires. File
// unit size and interleave gap are not applied: every extent is read as
// contiguous sectors.
package fileio

import (
	"fmt"
	"io"

	"github.com/sector9660/isofs/block"
)

// File is an io.ReaderAt over one or more contiguous extents, concatenated
// in the order given. A plain file has exactly one extent; a multi-extent
// file (ECMA-119 6.5.2) has several, assembled by namespace.Resolver from
// a run of sibling directory records.
type File struct {
	src     block.Source
	extents []block.Extent
	size    int64
}

// New builds a File over extents, read through src. extents must be in
// on-disk order; New panics if extents is empty, since a Directory Record
// always describes at least one.
func New(src block.Source, extents []block.Extent) *File {
	if len(extents) == 0 {
		panic("fileio: New called with no extents")
	}
	var size int64
	for _, e := range extents {
		size += int64(e.Length)
	}
	return &File{src: src, extents: extents, size: size}
}

// Size returns the file's total length across every extent.
func (f *File) Size() int64 { return f.size }

// ReadAt implements io.ReaderAt: off and len(p) may span extent and sector
// boundaries, and reading stops at io.EOF once off reaches Size.
func (f *File) ReadAt(p []byte, off int64) (n int, err error) {
	if off < 0 {
		return 0, fmt.Errorf("fileio: negative offset %d", off)
	}
	if off >= f.size {
		return 0, io.EOF
	}

	remaining := p
	pos := off
	var extentStart int64

	for _, extent := range f.extents {
		extentEnd := extentStart + int64(extent.Length)
		if pos >= extentEnd {
			extentStart = extentEnd
			continue
		}
		if len(remaining) == 0 {
			break
		}

		offsetInExtent := pos - extentStart
		available := extentEnd - pos
		toRead := int64(len(remaining))
		if toRead > available {
			toRead = available
		}

		sectorSize := int64(f.src.SectorSize())
		if sectorSize <= 0 {
			sectorSize = 2048
		}
		lba := extent.LBA + uint32(offsetInExtent/sectorSize)
		sectorOffset := int(offsetInExtent % sectorSize)

		chunk, readErr := f.src.ReadRange(lba, sectorOffset, int(toRead))
		if readErr != nil {
			return n, fmt.Errorf("fileio: reading extent lba=%d offset=%d length=%d: %w", lba, sectorOffset, toRead, readErr)
		}
		copy(remaining, chunk)

		n += len(chunk)
		pos += int64(len(chunk))
		remaining = remaining[len(chunk):]
		extentStart = extentEnd
	}

	if len(remaining) > 0 {
		if n == 0 {
			return 0, io.EOF
		}
		return n, io.ErrUnexpectedEOF
	}
	return n, nil
}
