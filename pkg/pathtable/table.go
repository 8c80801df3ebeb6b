// Package pathtable decodes an ISO 9660 Path Table (ECMA-119 9.4): a flat,
// depth-first listing of every directory's extent location and parent
// index, stored twice on disc in mirrored byte orders (the L table
// little-endian, the M table big-endian) so a reader can pick whichever
// matches its native order without ever touching a directory extent.
package pathtable

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/go-logr/logr"

	"github.com/sector9660/isofs/block"
	"github.com/sector9660/isofs/pkg/logging"
)

// NewRecord creates a new Record with the provided logger.
func NewRecord(logger logr.Logger) *Record {
	return &Record{logger: logger}
}

// Record is one entry of a Path Table: a directory's extent location, its
// parent's 1-based index into the same table, and its name.
type Record struct {
	DirectoryIdentifierLength     byte
	ExtendedAttributeRecordLength byte
	LocationOfExtent              uint32
	ParentDirectoryNumber         uint16
	DirectoryIdentifier           string
	Padding                       []byte
	logger                        logr.Logger
}

// Unmarshal parses one Record from data, decoding the multi-byte fields in
// order (little-endian for the L table, big-endian for the M table — the
// two tables are never mixed within one record).
func (r *Record) Unmarshal(data []byte, order binary.ByteOrder) error {
	if len(data) < 9 {
		return errors.New("pathtable: record shorter than the 9-byte minimum (8-byte header plus a 1-byte identifier)")
	}

	r.DirectoryIdentifierLength = data[0]
	r.ExtendedAttributeRecordLength = data[1]
	r.LocationOfExtent = order.Uint32(data[2:6])
	r.ParentDirectoryNumber = order.Uint16(data[6:8])

	dirIDEnd := 8 + int(r.DirectoryIdentifierLength)
	if dirIDEnd > len(data) {
		return fmt.Errorf("pathtable: directory identifier out of range: end=%d, data len=%d", dirIDEnd, len(data))
	}
	r.DirectoryIdentifier = string(data[8:dirIDEnd])

	r.Padding = nil
	if r.DirectoryIdentifierLength%2 != 0 {
		r.Padding = []byte{0}
	}

	r.logger.V(logging.TRACE).Info("path table record",
		"directoryIdentifierLength", r.DirectoryIdentifierLength,
		"extendedAttributeRecordLength", r.ExtendedAttributeRecordLength,
		"locationOfExtent", r.LocationOfExtent,
		"parentDirectoryNumber", r.ParentDirectoryNumber,
		"directoryIdentifier", r.DirectoryIdentifier,
	)

	return nil
}

// len reports this record's encoded length on disc, including the pad byte
// that keeps every record starting on an even offset.
func (r *Record) len() int {
	return 8 + int(r.DirectoryIdentifierLength) + len(r.Padding)
}

// Table is a fully-decoded Path Table: every Record in on-disc order, index
// 0 holding the root directory.
type Table struct {
	Records []*Record
}

// Read decodes size bytes of a Path Table starting at lba, using order to
// match which of the L/M tables lba points at.
func Read(src block.Source, lba uint32, size uint32, order binary.ByteOrder, logger logr.Logger) (*Table, error) {
	buf, err := src.ReadRange(lba, 0, int(size))
	if err != nil {
		return nil, fmt.Errorf("pathtable: reading extent at lba %d: %w", lba, err)
	}

	var records []*Record
	for pos := 0; pos < len(buf); {
		if pos+8 > len(buf) {
			break
		}
		rec := NewRecord(logger)
		if err := rec.Unmarshal(buf[pos:], order); err != nil {
			return nil, err
		}
		if rec.DirectoryIdentifierLength == 0 {
			break
		}
		records = append(records, rec)
		pos += rec.len()
	}

	return &Table{Records: records}, nil
}
