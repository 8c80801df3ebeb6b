package directory

import (
	"io/fs"
	"time"

	"github.com/sector9660/isofs/pkg/encoding"
	"github.com/sector9660/isofs/pkg/logging"
	"github.com/sector9660/isofs/pkg/rockridge"
)

// Kind classifies an entry the way a POSIX caller would expect, collapsing
// ECMA-119's directory flag and Rock Ridge's PX mode bits into one answer.
type Kind int

const (
	KindFile Kind = iota
	KindDir
	KindSymlink
)

func (k Kind) String() string {
	switch k {
	case KindDir:
		return "dir"
	case KindSymlink:
		return "symlink"
	default:
		return "file"
	}
}

// Timestamps is an entry's resolved set of dates: Modification always
// comes from the record's own ECMA-119 recording date when that date
// decodes cleanly, then every field a Rock Ridge TF entry declares
// overwrites its counterpart. A nil field means neither source supplied
// it.
type Timestamps struct {
	Creation        *time.Time
	Modification    *time.Time
	Access          *time.Time
	AttributeChange *time.Time
	Backup          *time.Time
	Expiration      *time.Time
	Effective       *time.Time
}

// Metadata is the resolved, namespace-preferring POSIX-style view of an
// entry spec.md's Node model describes: kind, size, mode, and — wherever
// Rock Ridge PX/PN entries are present — owner, link count, inode, and
// device numbers, alongside its timestamps.
type Metadata struct {
	Kind Kind
	Size int64
	Mode fs.FileMode

	HasPosix bool
	UID      uint32
	GID      uint32
	NLink    uint32
	Inode    uint32

	HasDevice   bool
	DeviceMajor uint32
	DeviceMinor uint32

	Timestamps Timestamps
}

// Metadata resolves the entry's full metadata snapshot in one call, so a
// caller doesn't have to chase PX/PN/TF accessors individually.
func (e *Entry) Metadata() Metadata {
	md := Metadata{
		Size:       e.Size(),
		Mode:       e.Mode(),
		Kind:       e.kind(),
		Timestamps: e.Timestamps(),
	}

	if px := e.rockRidgePosix(); px != nil {
		md.HasPosix = true
		md.UID = px.UserID
		md.GID = px.GroupID
		md.NLink = px.Links
		md.Inode = px.SerialNo
	}

	if dev := e.rockRidgeDevice(); dev != nil {
		md.HasDevice = true
		md.DeviceMajor = dev.Major
		md.DeviceMinor = dev.Minor
	}

	return md
}

func (e *Entry) kind() Kind {
	switch {
	case e.IsSymlink():
		return KindSymlink
	case e.IsDir():
		return KindDir
	default:
		return KindFile
	}
}

// Timestamps decodes this entry's Rock Ridge TF entry, if present, falling
// back to the record's own ECMA-119 recording date for Modification when
// TF is absent or leaves it unset.
func (e *Entry) Timestamps() Timestamps {
	var ts Timestamps
	if t, err := encoding.DecodeDirectoryTime(e.record.RecordingDateAndTime[:]); err == nil {
		ts.Modification = &t
	}

	entries, err := e.SystemUseEntries()
	if err != nil || entries == nil {
		return ts
	}

	for _, se := range entries.Entries() {
		if rockridge.EntryType(se.Type()) != rockridge.TimeStamps {
			continue
		}
		tf, err := rockridge.UnmarshalTimestamps(se.Data())
		if err != nil {
			e.logger.V(logging.TRACE).Info("skipping malformed TF entry", "err", err)
			continue
		}
		applyTimestamp(&ts.Creation, tf.Creation)
		applyTimestamp(&ts.Modification, tf.Modification)
		applyTimestamp(&ts.Access, tf.Access)
		applyTimestamp(&ts.AttributeChange, tf.AttributeChange)
		applyTimestamp(&ts.Backup, tf.Backup)
		applyTimestamp(&ts.Expiration, tf.Expiration)
		applyTimestamp(&ts.Effective, tf.Effective)
		break
	}

	return ts
}

func applyTimestamp(dst **time.Time, src *[7]byte) {
	if src == nil {
		return
	}
	t, err := encoding.DecodeDirectoryTime(src[:])
	if err != nil {
		return
	}
	*dst = &t
}

func (e *Entry) rockRidgeDevice() *rockridge.DeviceEntry {
	entries, err := e.SystemUseEntries()
	if err != nil || entries == nil {
		return nil
	}
	for _, se := range entries.Entries() {
		if rockridge.EntryType(se.Type()) != rockridge.PosixDeviceNum {
			continue
		}
		dev, err := rockridge.UnmarshalDeviceEntry(se.Data(), e.opts.StrictBothEndian)
		if err != nil {
			e.logger.V(logging.TRACE).Info("skipping malformed PN entry", "err", err)
			return nil
		}
		return dev
	}
	return nil
}
