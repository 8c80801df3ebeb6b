package susp

import (
	"github.com/go-logr/logr"

	"github.com/sector9660/isofs/block"
	"github.com/sector9660/isofs/pkg/isoerr"
	"github.com/sector9660/isofs/pkg/options"
)

// Area identifies a byte range within a sector holding (a piece of) a
// directory record's System Use area.
type Area struct {
	LBA    uint32
	Offset int
	Length int
}

// areaKey is what cycle detection is keyed on: the full (lba, offset,
// length) triple, not just the sector, so a chain that legitimately
// revisits the same sector at a different offset is not mistaken for a
// cycle.
type areaKey struct {
	lba    uint32
	offset int
	length int
}

// Parse walks initial and any CE continuation areas it points to, bounded
// by opts.MaxSuspHops, and returns every SystemUseEntry encountered across
// the whole chain in order.
func Parse(src block.Source, initial Area, opts options.Options, logger logr.Logger) (*SystemUseEntries, error) {
	var all []*SystemUseEntry
	visited := make(map[areaKey]bool)
	area := initial
	var hops uint32

	for {
		key := areaKey{area.LBA, area.Offset, area.Length}
		if visited[key] {
			return nil, isoerr.ErrSuspCycle
		}
		visited[key] = true

		data, err := src.ReadRange(area.LBA, area.Offset, area.Length)
		if err != nil {
			return nil, err
		}

		entries, next, err := parseArea(data, opts.StrictBothEndian)
		if err != nil {
			return nil, err
		}
		all = append(all, entries...)

		if next == nil {
			break
		}
		hops++
		if hops > opts.MaxSuspHops {
			return nil, isoerr.ErrSuspChainTooLong
		}
		area = Area{LBA: next.lba, Offset: int(next.offset), Length: int(next.length)}
	}

	return NewSystemUseEntries(all, logger), nil
}

// parseArea decodes every SUSP entry in data until a terminator entry, a
// gap too small to hold another header, or the data runs out. It returns
// the last CE entry found, if any, for the caller to follow.
func parseArea(data []byte, strict bool) ([]*SystemUseEntry, *continuationEntry, error) {
	var entries []*SystemUseEntry
	var ce *continuationEntry

	pos := 0
	for pos+4 <= len(data) {
		tag := SystemUseEntryType(data[pos : pos+2])
		length := data[pos+2]
		version := data[pos+3]

		if length < 4 {
			return nil, nil, isoerr.ErrSuspTruncated
		}
		if pos+int(length) > len(data) {
			return nil, nil, isoerr.ErrSuspTruncated
		}

		entry := &SystemUseEntry{
			tag:     tag,
			length:  length,
			version: version,
			data:    data[pos+4 : pos+int(length)],
		}
		entries = append(entries, entry)

		if tag == TerminatorEntry {
			break
		}
		if tag == ContinuationArea {
			decoded, err := unmarshalContinuationEntry(entry, strict)
			if err != nil {
				return nil, nil, err
			}
			ce = decoded
		}

		pos += int(length)
	}

	return entries, ce, nil
}
