package namespace

import (
	"encoding/binary"
	"fmt"
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sector9660/isofs/pkg/descriptor"
	"github.com/sector9660/isofs/pkg/directory"
	"github.com/sector9660/isofs/pkg/isoerr"
	"github.com/sector9660/isofs/pkg/options"
)

// memSource is a minimal in-memory block.Source fake for exercising
// Resolver without a real disc image.
type memSource struct {
	sectors    map[uint32][]byte
	sectorSize int
}

func newMemSource() *memSource {
	return &memSource{sectors: map[uint32][]byte{}, sectorSize: 2048}
}

func (m *memSource) put(lba uint32, data []byte) {
	buf := make([]byte, m.sectorSize)
	copy(buf, data)
	m.sectors[lba] = buf
}

func (m *memSource) SectorSize() int { return m.sectorSize }

func (m *memSource) ReadSector(lba uint32) ([]byte, error) {
	buf, ok := m.sectors[lba]
	if !ok {
		return nil, fmt.Errorf("memSource: no such sector %d", lba)
	}
	return buf, nil
}

func (m *memSource) ReadRange(lba uint32, offset, length int) ([]byte, error) {
	buf, err := m.ReadSector(lba)
	if err != nil {
		return nil, err
	}
	if offset < 0 || length < 0 || offset+length > len(buf) {
		return nil, fmt.Errorf("memSource: range out of bounds")
	}
	return buf[offset : offset+length], nil
}

// suspEntry builds one SUSP tag/length/version/payload entry.
func suspEntry(tag string, payload []byte) []byte {
	buf := make([]byte, 4+len(payload))
	copy(buf[0:2], tag)
	buf[2] = byte(4 + len(payload))
	buf[3] = 1
	copy(buf[4:], payload)
	return buf
}

func clPayload(lba uint32) []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint32(buf[0:4], lba)
	binary.BigEndian.PutUint32(buf[4:8], lba)
	return buf
}

// dirRecordBytes builds one 34+-byte Directory Record for name, whose
// extent starts at lba and whose System Use area (if any) is systemUse.
func dirRecordBytes(name string, lba, dataLength uint32, isDir bool, systemUse []byte) []byte {
	nameBytes := []byte(name)
	idLen := len(nameBytes)
	pad := 0
	if idLen%2 == 0 {
		pad = 1
	}
	headerLen := 33 + idLen + pad
	total := headerLen + len(systemUse)

	buf := make([]byte, total)
	buf[0] = byte(total)
	binary.LittleEndian.PutUint32(buf[2:6], lba)
	binary.BigEndian.PutUint32(buf[6:10], lba)
	binary.LittleEndian.PutUint32(buf[10:14], dataLength)
	binary.BigEndian.PutUint32(buf[14:18], dataLength)

	var flags byte
	if isDir {
		flags |= 0x02
	}
	buf[25] = flags

	binary.LittleEndian.PutUint16(buf[28:30], 1)
	binary.BigEndian.PutUint16(buf[30:32], 1)

	buf[32] = byte(idLen)
	copy(buf[33:33+idLen], nameBytes)
	copy(buf[headerLen:], systemUse)
	return buf
}

// multiExtentRecordBytes builds one piece of a file that spans several
// extents; final set to false marks bit 7 (more extents follow).
func multiExtentRecordBytes(name string, lba, dataLength uint32, final bool) []byte {
	nameBytes := []byte(name)
	idLen := len(nameBytes)
	pad := 0
	if idLen%2 == 0 {
		pad = 1
	}
	headerLen := 33 + idLen + pad
	buf := make([]byte, headerLen)
	buf[0] = byte(headerLen)
	binary.LittleEndian.PutUint32(buf[2:6], lba)
	binary.BigEndian.PutUint32(buf[6:10], lba)
	binary.LittleEndian.PutUint32(buf[10:14], dataLength)
	binary.BigEndian.PutUint32(buf[14:18], dataLength)
	if !final {
		buf[25] = 0x80
	}
	binary.LittleEndian.PutUint16(buf[28:30], 1)
	binary.BigEndian.PutUint16(buf[30:32], 1)
	buf[32] = byte(idLen)
	copy(buf[33:33+idLen], nameBytes)
	return buf
}

func specialRecordBytes(selfRef bool, lba, dataLength uint32, systemUse []byte) []byte {
	id := byte(0x00)
	if !selfRef {
		id = 0x01
	}
	headerLen := 34 // idLen=1, padded to even -> 33+1+0 = 34
	total := headerLen + len(systemUse)
	buf := make([]byte, total)
	buf[0] = byte(total)
	binary.LittleEndian.PutUint32(buf[2:6], lba)
	binary.BigEndian.PutUint32(buf[6:10], lba)
	binary.LittleEndian.PutUint32(buf[10:14], dataLength)
	binary.BigEndian.PutUint32(buf[14:18], dataLength)
	buf[25] = 0x02 // directory
	binary.LittleEndian.PutUint16(buf[28:30], 1)
	binary.BigEndian.PutUint16(buf[30:32], 1)
	buf[32] = 1
	buf[33] = id
	copy(buf[34:], systemUse)
	return buf
}

// buildSector concatenates directory records into one sector's worth of
// bytes; the caller pads to sectorSize via memSource.put.
func buildSector(records ...[]byte) []byte {
	var out []byte
	for _, r := range records {
		out = append(out, r...)
	}
	return out
}

func decodeRoot(t *testing.T, src *memSource, rootLBA uint32, logger logr.Logger, opts options.Options) *directory.Entry {
	t.Helper()
	buf, err := src.ReadSector(rootLBA)
	require.NoError(t, err)
	rec := directory.NewRecord(logger)
	recLen := int(buf[0])
	require.NoError(t, rec.Unmarshal(buf[:recLen], true, false))
	return directory.NewEntry(rec, src, opts, logger, "/")
}

func TestResolver_ReadDir_FollowsChildLink(t *testing.T) {
	src := newMemSource()
	logger := logr.Discard()
	opts := options.Apply(options.WithNamespace(options.NamespaceAuto))

	// lba=30: the relocated directory's own extent: "." (carries RE), "..",
	// and a regular "file1" child.
	selfRec := specialRecordBytes(true, 30, uint32(src.sectorSize), suspEntry("RE", nil))
	parentRec := specialRecordBytes(false, 20, uint32(src.sectorSize), nil)
	fileRec := dirRecordBytes("file1", 31, 100, false, nil)
	src.put(30, buildSector(selfRec, parentRec, fileRec))

	// lba=20: the root directory: "." "..", and "stub", a CL stub that
	// redirects to lba=30 for its real children.
	rootSelf := specialRecordBytes(true, 20, uint32(src.sectorSize), nil)
	rootParent := specialRecordBytes(false, 20, uint32(src.sectorSize), nil)
	stub := dirRecordBytes("stub", 21, 0, true, suspEntry("CL", clPayload(30)))
	src.put(20, buildSector(rootSelf, rootParent, stub))

	root := decodeRoot(t, src, 20, logger, opts)
	resolver := &Resolver{root: root, src: src, opts: opts, logger: logger}

	children, err := resolver.ReadDir(root, nil)
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, "stub", children[0].Record().FileIdentifier)

	grandchildren, err := resolver.ReadDir(children[0], nil)
	require.NoError(t, err)
	require.Len(t, grandchildren, 1)
	assert.Equal(t, "file1", grandchildren[0].Record().FileIdentifier)
}

func TestResolver_ReadDir_HidesRelocatedMarker(t *testing.T) {
	src := newMemSource()
	logger := logr.Discard()
	opts := options.Apply(options.WithNamespace(options.NamespaceAuto))

	rootSelf := specialRecordBytes(true, 20, uint32(src.sectorSize), nil)
	rootParent := specialRecordBytes(false, 20, uint32(src.sectorSize), nil)
	ghost := dirRecordBytes("ghost", 40, uint32(src.sectorSize), true, suspEntry("RE", nil))
	visible := dirRecordBytes("visible", 41, 50, false, nil)
	src.put(20, buildSector(rootSelf, rootParent, ghost, visible))

	root := decodeRoot(t, src, 20, logger, opts)
	resolver := &Resolver{root: root, src: src, opts: opts, logger: logger}

	children, err := resolver.ReadDir(root, nil)
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, "visible", children[0].Record().FileIdentifier)
}

func TestResolver_ReadDir_MergesMultiExtentFile(t *testing.T) {
	src := newMemSource()
	logger := logr.Discard()
	opts := options.Apply(options.WithNamespace(options.NamespaceAuto))

	rootSelf := specialRecordBytes(true, 20, uint32(src.sectorSize), nil)
	piece1 := multiExtentRecordBytes("BIGFILE.BIN", 60, 2048, false)
	piece2 := multiExtentRecordBytes("BIGFILE.BIN", 61, 2048, false)
	piece3 := multiExtentRecordBytes("BIGFILE.BIN", 62, 500, true)
	other := dirRecordBytes("other.txt", 70, 10, false, nil)
	src.put(20, buildSector(rootSelf, piece1, piece2, piece3, other))

	root := decodeRoot(t, src, 20, logger, opts)
	resolver := &Resolver{root: root, src: src, opts: opts, logger: logger}

	children, err := resolver.ReadDir(root, nil)
	require.NoError(t, err)
	require.Len(t, children, 2)

	big := children[0]
	assert.Equal(t, "BIGFILE.BIN", big.Record().FileIdentifier)
	assert.EqualValues(t, 2048+2048+500, big.Size())
	extents := big.Extents()
	require.Len(t, extents, 3)
	assert.EqualValues(t, 60, extents[0].LBA)
	assert.EqualValues(t, 61, extents[1].LBA)
	assert.EqualValues(t, 62, extents[2].LBA)

	assert.Equal(t, "other.txt", children[1].Record().FileIdentifier)
}

func TestResolver_ReadDir_DetectsRelocationCycle(t *testing.T) {
	src := newMemSource()
	logger := logr.Discard()
	opts := options.Apply(options.WithNamespace(options.NamespaceAuto))

	rootSelf := specialRecordBytes(true, 20, uint32(src.sectorSize), nil)
	stubSU := suspEntry("CL", clPayload(30))
	stub := dirRecordBytes("stub", 21, 0, true, stubSU)
	src.put(20, buildSector(rootSelf, stub))

	root := decodeRoot(t, src, 20, logger, opts)
	resolver := &Resolver{root: root, src: src, opts: opts, logger: logger}

	children, err := resolver.ReadDir(root, nil)
	require.NoError(t, err)
	require.Len(t, children, 1)

	_, err = resolver.ReadDir(children[0], map[uint32]bool{30: true})
	assert.ErrorIs(t, err, isoerr.ErrRelocationCycle)
}

func TestChooseRoot_PreferNamespace(t *testing.T) {
	src := newMemSource()
	logger := logr.Discard()

	rootSelf := specialRecordBytes(true, 20, uint32(src.sectorSize), nil)
	src.put(20, buildSector(rootSelf))

	primaryRootRec := directory.NewRecord(logger)
	require.NoError(t, primaryRootRec.Unmarshal(rootSelf[:rootSelf[0]], true, false))

	jolietSelf := specialRecordBytes(true, 50, uint32(src.sectorSize), nil)
	src.put(50, buildSector(jolietSelf))
	jolietRootRec := directory.NewRecord(logger)
	require.NoError(t, jolietRootRec.Unmarshal(jolietSelf[:jolietSelf[0]], true, false))

	set := &descriptor.VolumeDescriptorSet{
		Primary: &descriptor.PrimaryVolumeDescriptor{RootDirectoryRecord: primaryRootRec},
		Supplementary: []*descriptor.SupplementaryVolumeDescriptor{
			{RootDirectoryRecord: jolietRootRec, JolietLevel: descriptor.Level1},
		},
	}

	jolietOpts := options.Apply(options.WithNamespace(options.NamespaceJoliet))
	r, err := NewResolver(set, src, jolietOpts, logger)
	require.NoError(t, err)
	assert.EqualValues(t, 50, r.Root().Record().LocationOfExtent)

	primaryOpts := options.Apply(options.WithNamespace(options.NamespacePrimary))
	r, err = NewResolver(set, src, primaryOpts, logger)
	require.NoError(t, err)
	assert.EqualValues(t, 20, r.Root().Record().LocationOfExtent)

	autoOpts := options.Apply(options.WithNamespace(options.NamespaceAuto))
	r, err = NewResolver(set, src, autoOpts, logger)
	require.NoError(t, err)
	assert.EqualValues(t, 50, r.Root().Record().LocationOfExtent)
}
