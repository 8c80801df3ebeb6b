// Package isotest builds byte-exact synthetic disc images in memory, for
// exercising pkg/descriptor, pkg/namespace, pkg/susp, pkg/rockridge, and the
// root isofs package without shipping real ISO fixtures. Nothing here runs
// as part of a benchmark or CLI; it exists only to be imported by _test.go
// files elsewhere in the module.
package isotest

import (
	"bytes"
	"encoding/binary"
	"time"
	"unicode/utf16"

	"github.com/sector9660/isofs/block"
	"github.com/sector9660/isofs/pkg/consts"
	"github.com/sector9660/isofs/pkg/encoding"
)

// SectorSize is the logical block size every built image uses.
const SectorSize = consts.ISO9660_SECTOR_SIZE

// Image is a growable buffer of whole logical sectors, addressed by LBA.
// Sectors never explicitly written read back as zero, matching a freshly
// allocated disc image.
type Image struct {
	sectors map[uint32][]byte
}

// New returns an empty image.
func New() *Image {
	return &Image{sectors: map[uint32][]byte{}}
}

// PutSector writes data as sector lba, zero-padding or truncating to
// SectorSize.
func (img *Image) PutSector(lba uint32, data []byte) {
	buf := make([]byte, SectorSize)
	copy(buf, data)
	img.sectors[lba] = buf
}

// PutSectors concatenates records and writes them into sector lba (callers
// are responsible for keeping the total within SectorSize).
func (img *Image) PutSectors(lba uint32, records ...[]byte) {
	var out []byte
	for _, r := range records {
		out = append(out, r...)
	}
	img.PutSector(lba, out)
}

// Source returns a block.Source backed by the image's current contents. The
// returned source is a snapshot: further writes to img are not reflected in
// sources already obtained.
func (img *Image) Source() block.Source {
	highest := uint32(0)
	for lba := range img.sectors {
		if lba > highest {
			highest = lba
		}
	}
	buf := make([]byte, (int(highest)+1)*SectorSize)
	for lba, data := range img.sectors {
		copy(buf[int(lba)*SectorSize:], data)
	}
	return block.NewFileSource(bytes.NewReader(buf), SectorSize)
}

// both32 encodes v in ECMA-119's both-byte-order form: LE half then BE half.
func both32(v uint32) []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint32(buf[0:4], v)
	binary.BigEndian.PutUint32(buf[4:8], v)
	return buf
}

func both16(v uint16) []byte {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint16(buf[0:2], v)
	binary.BigEndian.PutUint16(buf[2:4], v)
	return buf
}

func padString(s string, n int) []byte {
	buf := bytes.Repeat([]byte(" "), n)
	copy(buf, s)
	return buf
}

// RootRecordBytes returns the fixed 34-byte self-referencing ("\x00") root
// directory record a Primary/Supplementary Volume Descriptor embeds inline
// at offset 156.
func RootRecordBytes(rootLBA, rootLength uint32) []byte {
	buf := make([]byte, 34)
	buf[0] = 34
	copy(buf[2:10], both32(rootLBA))
	copy(buf[10:18], both32(rootLength))
	buf[25] = 0x02 // directory
	copy(buf[28:32], both16(1))
	buf[32] = 1
	buf[33] = 0x00
	return buf
}

// PVDFields is the subset of Primary Volume Descriptor fields a test
// typically cares about; everything else is zero-filled or space-padded.
type PVDFields struct {
	SystemIdentifier      string
	VolumeIdentifier      string
	VolumeSpaceSize       uint32
	LogicalBlockSize      uint16
	PathTableSize         uint32
	LPathTableLocation    uint32
	MPathTableLocation    uint32
	RootLBA               uint32
	RootLength            uint32
	PublisherIdentifier   string
	ApplicationIdentifier string
}

// PutPrimaryVolumeDescriptor writes a type-1 Primary Volume Descriptor
// sector at lba, byte-for-byte in the layout pkg/descriptor expects.
func (img *Image) PutPrimaryVolumeDescriptor(lba uint32, f PVDFields) {
	data := make([]byte, SectorSize)
	data[0] = 0x01
	copy(data[1:6], consts.ISO9660_STD_IDENTIFIER)
	data[6] = consts.ISO9660_VOLUME_DESC_VERSION
	copy(data[8:40], padString(f.SystemIdentifier, 32))
	copy(data[40:72], padString(f.VolumeIdentifier, 32))
	copy(data[80:88], both32(f.VolumeSpaceSize))
	copy(data[120:124], both16(1))
	copy(data[124:128], both16(1))
	copy(data[128:132], both16(f.LogicalBlockSize))
	copy(data[132:140], both32(f.PathTableSize))
	binary.LittleEndian.PutUint32(data[140:144], f.LPathTableLocation)
	binary.BigEndian.PutUint32(data[148:152], f.MPathTableLocation)
	copy(data[156:190], RootRecordBytes(f.RootLBA, f.RootLength))
	copy(data[318:446], padString(f.PublisherIdentifier, 128))
	copy(data[574:702], padString(f.ApplicationIdentifier, 128))
	// Volume date-time fields hold sixteen ASCII '0' digits and a zero
	// offset: ECMA-119's "not specified" encoding, which
	// pkg/encoding.DecodeVolumeTime accepts without error.
	for off := 813; off < 881; off += 17 {
		copy(data[off:off+16], "0000000000000000")
	}
	data[881] = 1 // file structure version
	img.PutSector(lba, data)
}

// SVDFields mirrors PVDFields for a type-2 Supplementary Volume
// Descriptor; JolietEscape selects consts.JOLIET_LEVEL_{1,2,3}_ESCAPE (or
// "" for a non-Joliet enhanced volume descriptor).
type SVDFields struct {
	PVDFields
	JolietEscape string
}

// PutSupplementaryVolumeDescriptor writes a type-2 Supplementary Volume
// Descriptor sector at lba.
func (img *Image) PutSupplementaryVolumeDescriptor(lba uint32, f SVDFields) {
	data := make([]byte, SectorSize)
	data[0] = 0x02
	copy(data[1:6], consts.ISO9660_STD_IDENTIFIER)
	data[6] = consts.ISO9660_VOLUME_DESC_VERSION
	copy(data[8:40], padString(f.SystemIdentifier, 32))
	copy(data[40:72], JolietString(f.VolumeIdentifier, 32))
	copy(data[80:88], both32(f.VolumeSpaceSize))
	if f.JolietEscape != "" {
		copy(data[88:120], f.JolietEscape)
	}
	copy(data[120:124], both16(1))
	copy(data[124:128], both16(1))
	copy(data[128:132], both16(f.LogicalBlockSize))
	copy(data[132:140], both32(f.PathTableSize))
	binary.LittleEndian.PutUint32(data[140:144], f.LPathTableLocation)
	binary.BigEndian.PutUint32(data[148:152], f.MPathTableLocation)
	copy(data[156:190], RootRecordBytes(f.RootLBA, f.RootLength))
	for off := 813; off < 881; off += 17 {
		copy(data[off:off+16], "0000000000000000")
	}
	data[881] = 1
	img.PutSector(lba, data)
}

// PutSetTerminator writes a type-255 Volume Descriptor Set Terminator at
// lba, the sentinel that ends pkg/descriptor.Scan's walk.
func (img *Image) PutSetTerminator(lba uint32) {
	data := make([]byte, SectorSize)
	data[0] = 0xFF
	copy(data[1:6], consts.ISO9660_STD_IDENTIFIER)
	data[6] = consts.ISO9660_VOLUME_DESC_VERSION
	img.PutSector(lba, data)
}

// JolietString encodes s as UCS-2BE, the repertoire Joliet names and
// identifiers use, padded with UCS-2 spaces to n bytes.
func JolietString(s string, n int) []byte {
	runes := utf16.Encode([]rune(s))
	buf := make([]byte, n)
	for i := 0; i < n/2; i++ {
		if i < len(runes) {
			binary.BigEndian.PutUint16(buf[i*2:i*2+2], runes[i])
		} else {
			binary.BigEndian.PutUint16(buf[i*2:i*2+2], ' ')
		}
	}
	return buf
}

// DirRecordOptions configures DirRecord.
type DirRecordOptions struct {
	Name       string
	Joliet     bool // encode Name as UCS-2BE rather than d-characters
	LBA        uint32
	DataLength uint32
	IsDir      bool
	MoreExtents bool // sets the "not final" multi-extent flag bit
	SystemUse  []byte
}

// DirRecord builds one ECMA-119 9.1 Directory Record for a named child.
func DirRecord(o DirRecordOptions) []byte {
	var nameBytes []byte
	if o.Joliet {
		nameBytes = JolietString(o.Name, 2*len([]rune(o.Name)))
	} else {
		nameBytes = []byte(o.Name)
	}
	idLen := len(nameBytes)
	pad := 0
	if idLen%2 == 0 {
		pad = 1
	}
	headerLen := 33 + idLen + pad
	total := headerLen + len(o.SystemUse)

	buf := make([]byte, total)
	buf[0] = byte(total)
	copy(buf[2:10], both32(o.LBA))
	copy(buf[10:18], both32(o.DataLength))

	var flags byte
	if o.IsDir {
		flags |= 0x02
	}
	if o.MoreExtents {
		flags |= 0x80
	}
	buf[25] = flags

	copy(buf[28:32], both16(1))
	buf[32] = byte(idLen)
	copy(buf[33:33+idLen], nameBytes)
	copy(buf[headerLen:], o.SystemUse)
	return buf
}

// SpecialDirRecord builds the "." (selfRef true) or ".." (selfRef false)
// entry every directory extent starts with.
func SpecialDirRecord(selfRef bool, lba, dataLength uint32, systemUse []byte) []byte {
	id := byte(0x00)
	if !selfRef {
		id = 0x01
	}
	headerLen := 34
	total := headerLen + len(systemUse)
	buf := make([]byte, total)
	buf[0] = byte(total)
	copy(buf[2:10], both32(lba))
	copy(buf[10:18], both32(dataLength))
	buf[25] = 0x02
	copy(buf[28:32], both16(1))
	buf[32] = 1
	buf[33] = id
	copy(buf[34:], systemUse)
	return buf
}

// SUSPEntry wraps payload in a generic SUSP tag/length/version/payload
// header (SUSP-112 5.1).
func SUSPEntry(tag string, payload []byte) []byte {
	buf := make([]byte, 4+len(payload))
	copy(buf[0:2], tag)
	buf[2] = byte(4 + len(payload))
	buf[3] = 1
	copy(buf[4:], payload)
	return buf
}

// EREntry builds an ER (Extensions Reference) entry asserting identifier,
// the activation signature pkg/directory/pkg/namespace look for to decide a
// tree carries Rock Ridge.
func EREntry(identifier, descriptorText, source string) []byte {
	payload := make([]byte, 4, 4+len(identifier)+len(descriptorText)+len(source))
	payload[0] = byte(len(identifier))
	payload[1] = byte(len(descriptorText))
	payload[2] = byte(len(source))
	payload[3] = 1
	payload = append(payload, identifier...)
	payload = append(payload, descriptorText...)
	payload = append(payload, source...)
	return SUSPEntry("ER", payload)
}

// PXEntry builds a Rock Ridge PX (POSIX file permissions) entry.
func PXEntry(mode, links, uid, gid, serial uint32) []byte {
	payload := make([]byte, 0, 40)
	payload = append(payload, both32(mode)...)
	payload = append(payload, both32(links)...)
	payload = append(payload, both32(uid)...)
	payload = append(payload, both32(gid)...)
	payload = append(payload, both32(serial)...)
	return SUSPEntry("PX", payload)
}

// NMEntry builds a Rock Ridge NM (alternate name) entry; continuation
// marks that a following NM entry on the same record completes the name.
func NMEntry(name string, continuation bool) []byte {
	var flags byte
	if continuation {
		flags |= 0x01
	}
	payload := append([]byte{flags}, name...)
	return SUSPEntry("NM", payload)
}

// CLEntry builds a Rock Ridge CL (child link / directory relocation)
// entry, redirecting a stub record's children to childLBA.
func CLEntry(childLBA uint32) []byte {
	return SUSPEntry("CL", both32(childLBA))
}

// REEntry builds a Rock Ridge RE (relocated directory marker) entry,
// carried on a relocation target's own "." record.
func REEntry() []byte {
	return SUSPEntry("RE", nil)
}

// SLEntry builds a Rock Ridge SL (symbolic link) entry from a literal
// target path; "." and ".." components are encoded with their dedicated
// component flags rather than as literal bytes.
func SLEntry(target string, continuation bool) []byte {
	var flags byte
	if continuation {
		flags |= 0x01
	}
	payload := []byte{flags}
	for _, part := range splitPath(target) {
		switch part {
		case ".":
			payload = append(payload, 0x02, 0)
		case "..":
			payload = append(payload, 0x04, 0)
		default:
			payload = append(payload, 0x00, byte(len(part)))
			payload = append(payload, part...)
		}
	}
	return SUSPEntry("SL", payload)
}

// PNEntry builds a Rock Ridge PN (device major/minor) entry.
func PNEntry(major, minor uint32) []byte {
	payload := make([]byte, 0, 16)
	payload = append(payload, both32(major)...)
	payload = append(payload, both32(minor)...)
	return SUSPEntry("PN", payload)
}

// PLEntry builds a Rock Ridge PL (parent link) entry, pointing a
// relocated directory's "." record back at its logical parent's LBA.
func PLEntry(parentLBA uint32) []byte {
	return SUSPEntry("PL", both32(parentLBA))
}

// SPEntry builds a SUSP SP (Sharing Protocol) entry, asserting SUSP
// activation for the whole volume and declaring skipBytes as every other
// directory record's System Use Area offset (SUSP §5.3). Only ever
// carried on the volume root's own "." record.
func SPEntry(skipBytes uint8) []byte {
	return SUSPEntry("SP", []byte{0xBE, 0xEF, skipBytes})
}

// tfField encodes t as a 7-byte ECMA-119 directory time for use in a TF
// entry's payload; it panics if t cannot be encoded, which only happens
// for years outside ECMA-119's representable range.
func tfField(t time.Time) []byte {
	b, err := encoding.EncodeDirectoryTime(t)
	if err != nil {
		panic(err)
	}
	return b
}

// TFTimestamps names the optional fields a TFEntry payload can carry;
// a nil field is omitted from the encoded flags and payload.
type TFTimestamps struct {
	Creation        *time.Time
	Modification    *time.Time
	Access          *time.Time
	AttributeChange *time.Time
	Backup          *time.Time
	Expiration      *time.Time
	Effective       *time.Time
}

// TFEntry builds a Rock Ridge TF (timestamps) entry in short (7-byte
// per field) form from whichever fields of ts are non-nil, in RRIP's
// fixed flag-bit order.
func TFEntry(ts TFTimestamps) []byte {
	const (
		tfCreation = 1 << iota
		tfModification
		tfAccess
		tfAttributes
		tfBackup
		tfExpiration
		tfEffective
	)

	var flags byte
	payload := []byte{0}
	order := []struct {
		bit byte
		t   *time.Time
	}{
		{tfCreation, ts.Creation},
		{tfModification, ts.Modification},
		{tfAccess, ts.Access},
		{tfAttributes, ts.AttributeChange},
		{tfBackup, ts.Backup},
		{tfExpiration, ts.Expiration},
		{tfEffective, ts.Effective},
	}
	for _, o := range order {
		if o.t == nil {
			continue
		}
		flags |= o.bit
		payload = append(payload, tfField(*o.t)...)
	}
	payload[0] = flags
	return SUSPEntry("TF", payload)
}

func splitPath(p string) []string {
	var parts []string
	start := 0
	for i := 0; i <= len(p); i++ {
		if i == len(p) || p[i] == '/' {
			if i > start {
				parts = append(parts, p[start:i])
			}
			start = i + 1
		}
	}
	return parts
}
