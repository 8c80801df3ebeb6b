package susp

import (
	"fmt"

	"github.com/sector9660/isofs/pkg/encoding"
)

// ExtensionRecord is the decoded payload of an ER entry, asserting that a
// particular extension (e.g. Rock Ridge) is active on this volume.
type ExtensionRecord struct {
	Version    int
	Identifier string
	Descriptor string
	Source     string
}

// continuationEntry is the decoded payload of a CE entry: the location of
// the next piece of this directory record's System Use area.
type continuationEntry struct {
	lba    uint32
	offset uint32
	length uint32
}

// unmarshalExtensionRecord decodes an ER entry's payload.
func unmarshalExtensionRecord(e *SystemUseEntry) (*ExtensionRecord, error) {
	if e.Type() != ExtensionReference {
		return nil, fmt.Errorf("susp: wrong entry type for ER, got %s", e.Type())
	}
	d := e.Data()
	if len(d) < 4 {
		return nil, fmt.Errorf("susp: ER payload too short: %d bytes", len(d))
	}

	identifierLength := int(d[0])
	descriptorLength := int(d[1])
	sourceLength := int(d[2])
	version := int(d[3])

	need := 4 + identifierLength + descriptorLength + sourceLength
	if len(d) < need {
		return nil, fmt.Errorf("susp: ER payload truncated: need %d bytes, have %d", need, len(d))
	}

	return &ExtensionRecord{
		Version:    version,
		Identifier: string(d[4 : 4+identifierLength]),
		Descriptor: string(d[4+identifierLength : 4+identifierLength+descriptorLength]),
		Source:     string(d[4+identifierLength+descriptorLength : need]),
	}, nil
}

// unmarshalContinuationEntry decodes a CE entry's payload.
func unmarshalContinuationEntry(e *SystemUseEntry, strict bool) (*continuationEntry, error) {
	d := e.Data()
	if len(d) != 24 {
		return nil, fmt.Errorf("susp: CE payload length %d, expected 24", len(d))
	}

	lba, err := encoding.UnmarshalUint32LSBMSB(d[0:8], strict)
	if err != nil {
		return nil, fmt.Errorf("susp: CE location: %w", err)
	}
	offset, err := encoding.UnmarshalUint32LSBMSB(d[8:16], strict)
	if err != nil {
		return nil, fmt.Errorf("susp: CE offset: %w", err)
	}
	length, err := encoding.UnmarshalUint32LSBMSB(d[16:24], strict)
	if err != nil {
		return nil, fmt.Errorf("susp: CE length: %w", err)
	}

	return &continuationEntry{lba: lba, offset: offset, length: length}, nil
}

// unmarshalSkipBytes decodes an SP entry's single skip-bytes field. SP must
// be the first entry in the root directory's "." record and asserts SUSP
// activation for the whole volume; its two check bytes must be 0xBE 0xEF.
func unmarshalSkipBytes(e *SystemUseEntry) (uint8, error) {
	d := e.Data()
	if len(d) != 3 {
		return 0, fmt.Errorf("susp: SP payload length %d, expected 3", len(d))
	}
	if d[0] != 0xBE || d[1] != 0xEF {
		return 0, fmt.Errorf("susp: SP check bytes %02x%02x, expected BEEF", d[0], d[1])
	}
	return d[2], nil
}

// SkipBytes reports the skip_bytes value declared by an SP entry among
// entries, if one is present. SP is only ever recorded on a volume's root
// directory record (SUSP §5.3); a caller that finds one there is expected
// to apply its skip_bytes to every other directory record's System Use
// Area on the same volume, before that area's first entry.
func SkipBytes(entries *SystemUseEntries) (uint8, bool) {
	for _, e := range entries.Entries() {
		if e.Type() != SharingProtocol {
			continue
		}
		skip, err := unmarshalSkipBytes(e)
		if err != nil {
			return 0, false
		}
		return skip, true
	}
	return 0, false
}
