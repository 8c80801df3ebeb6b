// Package rockridge interprets the Rock Ridge Interchange Protocol (RRIP)
// System Use entries layered on top of SUSP: POSIX metadata (PX, PN),
// long/alternate names (NM), symbolic link targets (SL), deep-directory
// relocation (CL, RE, PL), and timestamps (TF).
package rockridge

import (
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/sector9660/isofs/pkg/encoding"
)

// Identifiers a volume's ER entry may use to assert Rock Ridge activation,
// across the protocol's revisions.
const (
	IdentifierRRIP1991A = "RRIP_1991A"
	IdentifierIEEEP1282 = "IEEE_P1282"
	IdentifierIEEE1282  = "IEEE_1282"
	Version             = 1
)

// EntryType is a Rock Ridge System Use entry's two-character signature.
type EntryType string

const (
	PosixFilePerms EntryType = "PX" // POSIX file permissions / owner / group
	PosixDeviceNum EntryType = "PN" // device major/minor for block/char nodes
	SymbolicLink   EntryType = "SL" // symlink target
	AlternateName  EntryType = "NM" // long/alternate name
	ChildLink      EntryType = "CL" // directory relocation: redirect to real location
	ParentLink     EntryType = "PL" // links a relocated directory back to its parent
	RelocatedDir   EntryType = "RE" // marks a directory as relocated (hidden from apparent parent)
	TimeStamps     EntryType = "TF" // creation/modification/access/... timestamps
	SparseFile     EntryType = "SF" // sparse file size information
	OldSignature   EntryType = "RR" // pre-ER Rock Ridge activation signature
)

// NameEntry is one NM entry's decoded flags and the literal name bytes it
// carries; when Continue is set the name is completed by the following NM
// entry on the same record.
type NameEntry struct {
	Continue bool
	Current  bool
	Parent   bool
	Name     string
}

// UnmarshalNameEntry decodes an NM entry's payload (data begins after the
// 4-byte SUSP header: 1 flags byte followed by the name content).
func UnmarshalNameEntry(data []byte) (*NameEntry, error) {
	if len(data) < 1 {
		return nil, fmt.Errorf("rockridge: NM payload empty")
	}
	flags := data[0]
	return &NameEntry{
		Continue: flags&0x01 != 0,
		Current:  flags&0x02 != 0,
		Parent:   flags&0x04 != 0,
		Name:     string(data[1:]),
	}, nil
}

// PosixEntry is a PX entry's decoded POSIX metadata.
type PosixEntry struct {
	Mode     fs.FileMode
	Links    uint32
	UserID   uint32
	GroupID  uint32
	SerialNo uint32
}

// UnmarshalPosixEntry decodes a PX entry's payload: four (pre-1.12) or five
// (RRIP 1.12, adding the file serial number) both-endian 32-bit fields.
func UnmarshalPosixEntry(data []byte, strict bool) (*PosixEntry, error) {
	if len(data) < 32 {
		return nil, fmt.Errorf("rockridge: PX payload too short: %d bytes", len(data))
	}

	rawMode, err := encoding.UnmarshalUint32LSBMSB(data[0:8], strict)
	if err != nil {
		return nil, fmt.Errorf("rockridge: PX mode: %w", err)
	}
	links, err := encoding.UnmarshalUint32LSBMSB(data[8:16], strict)
	if err != nil {
		return nil, fmt.Errorf("rockridge: PX links: %w", err)
	}
	uid, err := encoding.UnmarshalUint32LSBMSB(data[16:24], strict)
	if err != nil {
		return nil, fmt.Errorf("rockridge: PX uid: %w", err)
	}
	gid, err := encoding.UnmarshalUint32LSBMSB(data[24:32], strict)
	if err != nil {
		return nil, fmt.Errorf("rockridge: PX gid: %w", err)
	}

	var serial uint32
	if len(data) >= 40 {
		serial, err = encoding.UnmarshalUint32LSBMSB(data[32:40], strict)
		if err != nil {
			return nil, fmt.Errorf("rockridge: PX serial number: %w", err)
		}
	}

	return &PosixEntry{
		Mode:     parseFileMode(rawMode),
		Links:    links,
		UserID:   uid,
		GroupID:  gid,
		SerialNo: serial,
	}, nil
}

// DeviceEntry is a PN entry's device major/minor for a device node.
type DeviceEntry struct {
	Major uint32
	Minor uint32
}

// UnmarshalDeviceEntry decodes a PN entry's payload: two both-endian
// 32-bit fields.
func UnmarshalDeviceEntry(data []byte, strict bool) (*DeviceEntry, error) {
	if len(data) < 16 {
		return nil, fmt.Errorf("rockridge: PN payload too short: %d bytes", len(data))
	}
	major, err := encoding.UnmarshalUint32LSBMSB(data[0:8], strict)
	if err != nil {
		return nil, fmt.Errorf("rockridge: PN major: %w", err)
	}
	minor, err := encoding.UnmarshalUint32LSBMSB(data[8:16], strict)
	if err != nil {
		return nil, fmt.Errorf("rockridge: PN minor: %w", err)
	}
	return &DeviceEntry{Major: major, Minor: minor}, nil
}

// ChildLinkEntry is a CL entry's redirect target: the LBA of the directory
// record that actually holds this (deeply nested) directory's children.
type ChildLinkEntry struct {
	LocationOfChild uint32
}

// UnmarshalChildLinkEntry decodes a CL entry's payload: one both-endian
// 32-bit LBA.
func UnmarshalChildLinkEntry(data []byte, strict bool) (*ChildLinkEntry, error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("rockridge: CL payload too short: %d bytes", len(data))
	}
	loc, err := encoding.UnmarshalUint32LSBMSB(data[0:8], strict)
	if err != nil {
		return nil, fmt.Errorf("rockridge: CL location: %w", err)
	}
	return &ChildLinkEntry{LocationOfChild: loc}, nil
}

// ParentLinkEntry is a PL entry's target: the LBA of a relocated
// directory's logical parent, the directory it would be nested under if
// RRIP's 8-level depth limit hadn't forced it elsewhere.
type ParentLinkEntry struct {
	LocationOfParent uint32
}

// UnmarshalParentLinkEntry decodes a PL entry's payload: one both-endian
// 32-bit LBA, the same layout as CL.
func UnmarshalParentLinkEntry(data []byte, strict bool) (*ParentLinkEntry, error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("rockridge: PL payload too short: %d bytes", len(data))
	}
	loc, err := encoding.UnmarshalUint32LSBMSB(data[0:8], strict)
	if err != nil {
		return nil, fmt.Errorf("rockridge: PL location: %w", err)
	}
	return &ParentLinkEntry{LocationOfParent: loc}, nil
}

// IsRelocated reports whether entries contains an RE marker, meaning this
// directory record is the relocation target named by some other record's
// CL and must not appear in its apparent parent's listing.
func IsRelocated(entries []EntryType) bool {
	for _, e := range entries {
		if e == RelocatedDir {
			return true
		}
	}
	return false
}

// Timestamps is the decoded set of a TF entry's optional timestamps; a nil
// field means that timestamp was not recorded.
type Timestamps struct {
	Creation        *fieldTime
	Modification    *fieldTime
	Access          *fieldTime
	AttributeChange *fieldTime
	Backup          *fieldTime
	Expiration      *fieldTime
	Effective       *fieldTime
}

type fieldTime = [7]byte // raw 7-byte ECMA-119 directory time; caller decodes via pkg/encoding

const (
	tfCreation = 1 << iota
	tfModification
	tfAccess
	tfAttributes
	tfBackup
	tfExpiration
	tfEffective
	tfLongForm
)

// UnmarshalTimestamps decodes a TF entry's payload: a flags byte followed
// by one 7-byte (or, if the long-form bit is set, 17-byte) timestamp per
// set flag bit, in flag-bit order.
func UnmarshalTimestamps(data []byte) (*Timestamps, error) {
	if len(data) < 1 {
		return nil, fmt.Errorf("rockridge: TF payload empty")
	}
	flags := data[0]
	long := flags&tfLongForm != 0
	width := 7
	if long {
		width = 17
	}

	ts := &Timestamps{}
	pos := 1
	order := []struct {
		bit  byte
		slot **fieldTime
	}{
		{tfCreation, &ts.Creation},
		{tfModification, &ts.Modification},
		{tfAccess, &ts.Access},
		{tfAttributes, &ts.AttributeChange},
		{tfBackup, &ts.Backup},
		{tfExpiration, &ts.Expiration},
		{tfEffective, &ts.Effective},
	}
	for _, o := range order {
		if flags&o.bit == 0 {
			continue
		}
		if pos+width > len(data) {
			return nil, fmt.Errorf("rockridge: TF payload truncated")
		}
		if long {
			// Long-form (17-byte volume-descriptor-style) timestamps are
			// rare in practice; each is converted to the 7-byte directory
			// form so every field is decodable with
			// pkg/encoding.DecodeDirectoryTime without a second code path,
			// sacrificing sub-second precision. An unspecified (all '0'
			// digits) long-form timestamp leaves its field nil.
			t, err := encoding.DecodeVolumeTime(data[pos : pos+width])
			if err != nil {
				return nil, fmt.Errorf("rockridge: TF long-form timestamp: %w", err)
			}
			if !t.IsZero() {
				short, err := encoding.EncodeDirectoryTime(t)
				if err != nil {
					return nil, fmt.Errorf("rockridge: TF long-form timestamp: %w", err)
				}
				var ft fieldTime
				copy(ft[:], short)
				*o.slot = &ft
			}
		} else {
			var ft fieldTime
			copy(ft[:], data[pos:pos+width])
			*o.slot = &ft
		}
		pos += width
	}

	return ts, nil
}

// parseFileMode converts a raw POSIX st_mode value into an fs.FileMode.
func parseFileMode(mode uint32) fs.FileMode {
	var fileMode fs.FileMode

	switch mode & 0xF000 {
	case 0xC000:
		fileMode |= fs.ModeSocket
	case 0xA000:
		fileMode |= fs.ModeSymlink
	case 0x8000:
		// regular file, no bit needed
	case 0x6000:
		fileMode |= fs.ModeDevice
	case 0x2000:
		fileMode |= fs.ModeCharDevice
	case 0x4000:
		fileMode |= fs.ModeDir
	case 0x1000:
		fileMode |= fs.ModeNamedPipe
	}

	if mode&0x0100 != 0 {
		fileMode |= 0400
	}
	if mode&0x0080 != 0 {
		fileMode |= 0200
	}
	if mode&0x0040 != 0 {
		fileMode |= 0100
	}
	if mode&0x0020 != 0 {
		fileMode |= 0040
	}
	if mode&0x0010 != 0 {
		fileMode |= 0020
	}
	if mode&0x0008 != 0 {
		fileMode |= 0010
	}
	if mode&0x0004 != 0 {
		fileMode |= 0004
	}
	if mode&0x0002 != 0 {
		fileMode |= 0002
	}
	if mode&0x0001 != 0 {
		fileMode |= 0001
	}

	if mode&0x0800 != 0 {
		fileMode |= os.ModeSetuid
	}
	if mode&0x0400 != 0 {
		fileMode |= os.ModeSetgid
	}
	if mode&0x0200 != 0 {
		fileMode |= os.ModeSticky
	}

	return fileMode
}

// componentFlag bits within one SL component record.
const (
	componentContinue = 0x01
	componentCurrent  = 0x02
	componentParent   = 0x04
	componentRoot     = 0x08
	componentVolRoot  = 0x10 // historical "volume root", treated as root
	componentHostname = 0x20 // networked mount, content kept literal
)

// SymlinkEntry is one SL entry's component list; Continue marks that the
// target is completed by the following SL entry on the same record.
type SymlinkEntry struct {
	Continue   bool
	Components []string
}

// UnmarshalSymlinkEntry decodes an SL entry's payload: a 1-byte flags
// field followed by a sequence of (component-flags, length, content)
// triples.
func UnmarshalSymlinkEntry(data []byte) (*SymlinkEntry, error) {
	if len(data) < 1 {
		return nil, fmt.Errorf("rockridge: SL payload empty")
	}
	entry := &SymlinkEntry{Continue: data[0]&0x01 != 0}

	pos := 1
	var pendingLiteral strings.Builder
	flushLiteral := func() {
		if pendingLiteral.Len() > 0 {
			entry.Components = append(entry.Components, pendingLiteral.String())
			pendingLiteral.Reset()
		}
	}

	for pos+2 <= len(data) {
		cflags := data[pos]
		clen := int(data[pos+1])
		pos += 2
		if pos+clen > len(data) {
			return nil, fmt.Errorf("rockridge: SL component truncated")
		}
		content := data[pos : pos+clen]
		pos += clen

		switch {
		case cflags&componentCurrent != 0:
			flushLiteral()
			entry.Components = append(entry.Components, ".")
		case cflags&componentParent != 0:
			flushLiteral()
			entry.Components = append(entry.Components, "..")
		case cflags&(componentRoot|componentVolRoot) != 0:
			flushLiteral()
			entry.Components = append(entry.Components, "/")
		case cflags&componentHostname != 0:
			flushLiteral()
			entry.Components = append(entry.Components, string(content))
		default:
			pendingLiteral.Write(content)
			if cflags&componentContinue == 0 {
				flushLiteral()
			}
		}
	}
	flushLiteral()

	return entry, nil
}
