package directory

import (
	"fmt"
	"io/fs"
	"path"
	"strings"
	"time"

	"github.com/go-logr/logr"

	"github.com/sector9660/isofs/block"
	"github.com/sector9660/isofs/pkg/encoding"
	"github.com/sector9660/isofs/pkg/isoerr"
	"github.com/sector9660/isofs/pkg/logging"
	"github.com/sector9660/isofs/pkg/options"
	"github.com/sector9660/isofs/pkg/rockridge"
	"github.com/sector9660/isofs/pkg/susp"
	"github.com/sector9660/isofs/pkg/validation"
	"github.com/sector9660/isofs/pkg/xattr"
)

// Ensure that Entry implements the fs.FileInfo interface.
var _ fs.FileInfo = Entry{}

// NewEntry wraps a decoded Record with the source and options needed to
// answer FileInfo questions and, for directories, list children on demand.
func NewEntry(record *Record, src block.Source, opts options.Options, logger logr.Logger, parentPath string) *Entry {
	return &Entry{record: record, src: src, opts: opts, logger: logger, parentPath: parentPath}
}

// Entry is an fs.FileInfo-compatible, lazily-resolved view of one Directory
// Record. Nothing beyond the record's own fixed fields and raw System Use
// bytes is decoded until a specific accessor (Name, SystemUseEntries,
// ReadDir, ...) is called.
type Entry struct {
	record     *Record
	src        block.Source
	opts       options.Options
	logger     logr.Logger
	parentPath string

	suspEntries *susp.SystemUseEntries
	suspErr     error
	suspDone    bool

	// suspSkipBytes is the SP entry's skip_bytes value (SUSP §5.3),
	// discovered once from the volume's root directory record and then
	// propagated to every other entry's System Use Area. It is never
	// applied to the root's own area: SetSuspSkipBytes is called on the
	// root only after its SystemUseEntries have already been parsed (and
	// cached) with the zero-value default, which is where SP itself was
	// found in the first place.
	suspSkipBytes uint8

	xattrRecord *xattr.Record
	xattrErr    error
	xattrDone   bool

	// extraExtents holds the additional extents of a multi-extent file,
	// beyond the one this Entry's own record describes. A file whose
	// FileFlags.MultiExtent bit is set continues in the next directory
	// record sharing its identifier; assembling that run across sibling
	// records is namespace.Resolver's job, done once per ReadDir and
	// attached here via SetExtraExtents.
	extraExtents []block.Extent
}

// SetExtraExtents records the extents of a multi-extent file beyond this
// Entry's own, in on-disk order.
func (e *Entry) SetExtraExtents(extents []block.Extent) {
	e.extraExtents = extents
}

// Extents returns every extent backing this entry's data, in on-disk
// order: its own record's extent first, then any recorded via
// SetExtraExtents.
func (e *Entry) Extents() []block.Extent {
	extents := make([]block.Extent, 0, 1+len(e.extraExtents))
	extents = append(extents, block.Extent{LBA: e.record.LocationOfExtent, Length: e.record.DataLength})
	extents = append(extents, e.extraExtents...)
	return extents
}

// Record returns the underlying decoded Directory Record.
func (e Entry) Record() *Record { return e.record }

// SetSuspSkipBytes records the volume's SP skip_bytes value (see the
// Entry.suspSkipBytes field doc), to be applied the next time
// SystemUseEntries parses this entry's own area and propagated to any
// children ReadDir creates afterward.
func (e *Entry) SetSuspSkipBytes(skip uint8) {
	e.suspSkipBytes = skip
}

// SystemUseEntries walks this record's SUSP area (following CE
// continuations) and returns every entry found, caching the result.
func (e *Entry) SystemUseEntries() (*susp.SystemUseEntries, error) {
	if e.suspDone {
		return e.suspEntries, e.suspErr
	}
	e.suspDone = true

	if len(e.record.SystemUse) == 0 {
		e.suspEntries = susp.NewSystemUseEntries(nil, e.logger)
		return e.suspEntries, nil
	}

	skip := int(e.suspSkipBytes)
	if skip > e.record.SUSPArea.Length {
		skip = e.record.SUSPArea.Length
	}
	area := susp.Area{
		LBA:    e.record.SUSPArea.LBA,
		Offset: e.record.SUSPArea.Offset + skip,
		Length: e.record.SUSPArea.Length - skip,
	}
	entries, err := susp.Parse(e.src, area, e.opts, e.logger)
	e.suspEntries, e.suspErr = entries, err
	return entries, err
}

// ExtendedAttributes decodes this record's Extended Attribute Record
// (ECMA-119 9.5.3), if ExtendedAttributeLength declares one. The record
// occupies the logical block(s) immediately preceding the entry's own
// extent; most discs never use it, in which case ExtendedAttributes
// returns (nil, nil).
func (e *Entry) ExtendedAttributes() (*xattr.Record, error) {
	if e.xattrDone {
		return e.xattrRecord, e.xattrErr
	}
	e.xattrDone = true

	if e.record.ExtendedAttributeLength == 0 {
		return nil, nil
	}

	lba := e.record.LocationOfExtent - uint32(e.record.ExtendedAttributeLength)
	data, err := e.src.ReadSector(lba)
	if err != nil {
		e.xattrErr = fmt.Errorf("directory: reading extended attribute record at lba %d: %w", lba, err)
		return nil, e.xattrErr
	}

	rec := xattr.NewRecord(e.logger)
	if err := rec.Unmarshal(data); err != nil {
		e.xattrErr = fmt.Errorf("directory: decoding extended attribute record at lba %d: %w", lba, err)
		return nil, e.xattrErr
	}

	e.xattrRecord = rec
	return rec, nil
}

// rockRidgeName reassembles a (possibly multi-piece) NM name, returning ""
// if no NM entries are present. The assembled bytes go through
// opts.NameDecoder when one is set; if it fails, the raw bytes are used.
func (e *Entry) rockRidgeName() string {
	entries, err := e.SystemUseEntries()
	if err != nil || entries == nil {
		return ""
	}
	var b strings.Builder
	for _, se := range entries.Entries() {
		if rockridge.EntryType(se.Type()) != rockridge.AlternateName {
			continue
		}
		nm, err := rockridge.UnmarshalNameEntry(se.Data())
		if err != nil {
			e.logger.V(logging.TRACE).Info("skipping malformed NM entry", "err", err)
			continue
		}
		if nm.Current {
			return "."
		}
		if nm.Parent {
			return ".."
		}
		b.WriteString(nm.Name)
		if !nm.Continue {
			break
		}
	}
	name := b.String()
	if e.opts.NameDecoder != nil && name != "" {
		decoded, err := e.opts.NameDecoder([]byte(name))
		if err != nil {
			e.logger.V(logging.TRACE).Info("NM name decoder failed; using the raw NM bytes", "err", err)
			return name
		}
		return decoded
	}
	return name
}

func (e *Entry) rockRidgePosix() *rockridge.PosixEntry {
	entries, err := e.SystemUseEntries()
	if err != nil || entries == nil {
		return nil
	}
	for _, se := range entries.Entries() {
		if rockridge.EntryType(se.Type()) != rockridge.PosixFilePerms {
			continue
		}
		px, err := rockridge.UnmarshalPosixEntry(se.Data(), e.opts.StrictBothEndian)
		if err != nil {
			e.logger.V(logging.TRACE).Info("skipping malformed PX entry", "err", err)
			return nil
		}
		return px
	}
	return nil
}

// ChildLink returns the CL-redirected location of this directory's real
// children, if this record carries one.
func (e *Entry) ChildLink() (uint32, bool) {
	entries, err := e.SystemUseEntries()
	if err != nil || entries == nil {
		return 0, false
	}
	for _, se := range entries.Entries() {
		if rockridge.EntryType(se.Type()) != rockridge.ChildLink {
			continue
		}
		cl, err := rockridge.UnmarshalChildLinkEntry(se.Data(), e.opts.StrictBothEndian)
		if err != nil {
			return 0, false
		}
		return cl.LocationOfChild, true
	}
	return 0, false
}

// ParentLink returns the PL-declared LBA of a relocated directory's
// logical parent, if this record carries one. Top-down traversal in this
// package never needs it — ChildLink and IsRelocated already restore the
// tree's apparent shape without walking ".." pointers — but a caller doing
// its own upward navigation from a relocated directory can use it
// directly.
func (e *Entry) ParentLink() (uint32, bool) {
	entries, err := e.SystemUseEntries()
	if err != nil || entries == nil {
		return 0, false
	}
	for _, se := range entries.Entries() {
		if rockridge.EntryType(se.Type()) != rockridge.ParentLink {
			continue
		}
		pl, err := rockridge.UnmarshalParentLinkEntry(se.Data(), e.opts.StrictBothEndian)
		if err != nil {
			return 0, false
		}
		return pl.LocationOfParent, true
	}
	return 0, false
}

// SparseInfo reports whether this entry carries a Rock Ridge SF (sparse
// file) entry. This decoder does not reconstruct sparse file contents; err
// wraps isoerr.ErrNotSupported when SF is present and is nil otherwise,
// never failing traversal on its own.
func (e *Entry) SparseInfo() error {
	entries, err := e.SystemUseEntries()
	if err != nil || entries == nil {
		return nil
	}
	for _, se := range entries.Entries() {
		if rockridge.EntryType(se.Type()) != rockridge.SparseFile {
			continue
		}
		e.logger.V(logging.TRACE).Info("rock ridge sparse file (SF) entry present; contents are not reconstructed")
		return fmt.Errorf("rockridge: sparse file entries: %w", isoerr.ErrNotSupported)
	}
	return nil
}

// IsRelocated reports whether this record carries an RE marker: it is the
// relocation target of some other directory's CL and must not appear in
// its apparent parent's listing.
func (e *Entry) IsRelocated() bool {
	entries, err := e.SystemUseEntries()
	if err != nil || entries == nil {
		return false
	}
	for _, se := range entries.Entries() {
		if rockridge.EntryType(se.Type()) == rockridge.RelocatedDir {
			return true
		}
	}
	return false
}

// SymlinkTarget reassembles a (possibly multi-piece) SL target; ok is false
// if this record has no SL entries.
func (e *Entry) SymlinkTarget() (target string, ok bool) {
	entries, err := e.SystemUseEntries()
	if err != nil || entries == nil {
		return "", false
	}
	var parts []string
	found := false
	for _, se := range entries.Entries() {
		if rockridge.EntryType(se.Type()) != rockridge.SymbolicLink {
			continue
		}
		found = true
		sl, err := rockridge.UnmarshalSymlinkEntry(se.Data())
		if err != nil {
			e.logger.V(logging.TRACE).Info("skipping malformed SL entry", "err", err)
			continue
		}
		parts = append(parts, sl.Components...)
		if !sl.Continue {
			break
		}
	}
	if !found {
		return "", false
	}
	if len(parts) == 0 {
		return "/", true
	}
	return path.Join(parts...), true
}

// Name returns the entry's name in whatever namespace opts.PreferNamespace
// resolves to: a Rock Ridge NM name if present and not excluded, else the
// record's own FileIdentifier (Joliet-decoded or d-characters), with any
// ";n" version suffix stripped when requested. The self and parent records
// (identifiers 0x00 and 0x01) are named "." and "..".
func (e Entry) Name() string {
	if e.record.IsSelf() {
		return "."
	}
	if e.record.IsParent() {
		return ".."
	}
	name := e.record.FileIdentifier
	if e.opts.PreferNamespace != options.NamespacePrimary {
		if rr := e.rockRidgeName(); rr != "" {
			name = rr
		}
	}

	if e.opts.StripVersionSuffix {
		if idx := strings.LastIndexByte(name, ';'); idx >= 0 {
			name = name[:idx]
		}
	}
	return name
}

// IsConformant reports whether this record's raw, namespace-level
// FileIdentifier (before any Rock Ridge NM override) only uses
// d-characters (plus '.' and ';' in a file identifier). Joliet
// names, which use a much wider UCS-2 repertoire by design, are never
// checked and always report true.
func (e Entry) IsConformant() bool {
	if e.record.Joliet {
		return true
	}
	if e.record.FileIdentifier == "\x00" || e.record.FileIdentifier == "\x01" {
		return validation.ValidISO9660DirIdentifier(e.record.FileIdentifier)
	}
	if e.record.FileFlags.Directory {
		return validation.ValidISO9660DirIdentifier(e.record.FileIdentifier)
	}
	return validation.ValidISO9660FileIdentifier(e.record.FileIdentifier)
}

// Size returns the entry's total data size in bytes, summed across every
// extent of a multi-extent file.
func (e Entry) Size() int64 {
	total := int64(e.record.DataLength)
	for _, ext := range e.extraExtents {
		total += int64(ext.Length)
	}
	return total
}

// Mode returns the entry's file mode, preferring Rock Ridge POSIX
// permissions when present.
func (e Entry) Mode() fs.FileMode {
	if px := e.rockRidgePosix(); px != nil {
		return px.Mode
	}
	var mode fs.FileMode
	if e.record.FileFlags.Directory {
		mode |= fs.ModeDir
	}
	return mode
}

// ModTime returns the record's recording date and time.
func (e Entry) ModTime() time.Time {
	t, err := encoding.DecodeDirectoryTime(e.record.RecordingDateAndTime[:])
	if err != nil {
		return time.Time{}
	}
	return t
}

// IsDir reports whether the entry is a directory, preferring Rock Ridge
// POSIX mode bits when present (a CL record on disk is flagged as a file;
// its real directory-ness lives behind the redirect).
func (e Entry) IsDir() bool {
	if px := e.rockRidgePosix(); px != nil {
		return px.Mode.IsDir()
	}
	return e.record.FileFlags.Directory
}

// Sys returns nil; no OS-specific data is available.
func (e Entry) Sys() any { return nil }

// FullPath returns this entry's path from the tree root.
func (e Entry) FullPath() string { return path.Join(e.parentPath, e.Name()) }

// IsSymlink reports whether this record carries a Rock Ridge SL entry.
func (e *Entry) IsSymlink() bool {
	_, ok := e.SymlinkTarget()
	return ok
}

// ReadDir reads one level of this directory's extent and returns its
// children (as Entry values over their own records), skipping the "."
// and ".." self/parent records. It does not recurse, and it does not
// follow CL/RE relocation — that stitching is namespace.Resolver's job.
func (e *Entry) ReadDir() ([]*Entry, error) {
	if !e.IsDir() {
		return nil, isoerr.ErrNotADirectory
	}

	sectorSize := e.src.SectorSize()
	if sectorSize <= 0 {
		sectorSize = 2048
	}

	var children []*Entry
	length := int64(e.record.DataLength)
	childPath := e.FullPath()

	for sectorOffset := int64(0); sectorOffset < length; sectorOffset += int64(sectorSize) {
		lba := e.record.LocationOfExtent + uint32(sectorOffset/int64(sectorSize))
		buf, err := e.src.ReadSector(lba)
		if err != nil {
			return nil, fmt.Errorf("directory: reading extent sector %d: %w", lba, err)
		}

		for pos := 0; pos < len(buf); {
			recLen := int(buf[pos])
			if recLen == 0 {
				break
			}
			if pos+recLen > len(buf) {
				return nil, isoerr.ErrRecordCrossesSector
			}

			rec := NewRecord(e.logger)
			rec.Joliet = e.record.Joliet
			if err := rec.Unmarshal(buf[pos:pos+recLen], e.opts.StrictBothEndian, e.opts.JolietSurrogatePolicy == options.FailOnInvalid); err != nil {
				return nil, fmt.Errorf("directory: parsing child record: %w", err)
			}
			if n := len(rec.SystemUse); n > 0 {
				rec.SUSPArea.LBA = lba
				rec.SUSPArea.Offset = pos + recLen - n
				rec.SUSPArea.Length = n
			}

			pos += recLen

			if rec.IsSelf() || rec.IsParent() {
				continue
			}

			child := NewEntry(rec, e.src, e.opts, e.logger, childPath)
			child.SetSuspSkipBytes(e.suspSkipBytes)
			children = append(children, child)
		}
	}

	return children, nil
}
