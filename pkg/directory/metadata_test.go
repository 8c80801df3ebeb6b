package directory_test

import (
	"errors"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sector9660/isofs/internal/isotest"
	"github.com/sector9660/isofs/pkg/directory"
	"github.com/sector9660/isofs/pkg/isoerr"
	"github.com/sector9660/isofs/pkg/options"
	"github.com/sector9660/isofs/pkg/susp"
)

// newChildEntry decodes a single Directory Record built by isotest.DirRecord
// from sector lba, wiring its SUSPArea the way Entry.ReadDir would.
func newChildEntry(t *testing.T, img *isotest.Image, lba uint32, rec []byte) *directory.Entry {
	t.Helper()
	img.PutSectors(lba, rec)
	src := img.Source()

	decoded := directory.NewRecord(logr.Discard())
	require.NoError(t, decoded.Unmarshal(rec, true, false))
	if n := len(decoded.SystemUse); n > 0 {
		decoded.SUSPArea.LBA = lba
		decoded.SUSPArea.Offset = len(rec) - n
		decoded.SUSPArea.Length = n
	}
	return directory.NewEntry(decoded, src, options.Default(), logr.Discard(), "/")
}

func TestEntry_Timestamps_DecodesTFOverridingRecordingDate(t *testing.T) {
	img := isotest.New()

	created := time.Date(2019, time.March, 2, 10, 0, 0, 0, time.UTC)
	modified := time.Date(2021, time.July, 4, 18, 30, 15, 0, time.UTC)
	accessed := time.Date(2023, time.December, 25, 6, 45, 0, 0, time.UTC)

	tf := isotest.TFEntry(isotest.TFTimestamps{
		Creation:     &created,
		Modification: &modified,
		Access:       &accessed,
	})
	rec := isotest.DirRecord(isotest.DirRecordOptions{
		Name: "FILE.TXT;1", LBA: 40, DataLength: 10, SystemUse: tf,
	})
	entry := newChildEntry(t, img, 20, rec)

	ts := entry.Timestamps()
	require.NotNil(t, ts.Creation)
	require.NotNil(t, ts.Modification)
	require.NotNil(t, ts.Access)
	assert.True(t, created.Equal(*ts.Creation))
	assert.True(t, modified.Equal(*ts.Modification))
	assert.True(t, accessed.Equal(*ts.Access))
	assert.Nil(t, ts.AttributeChange)

	md := entry.Metadata()
	assert.True(t, created.Equal(*md.Timestamps.Creation))
	assert.True(t, modified.Equal(*md.Timestamps.Modification))
	assert.True(t, accessed.Equal(*md.Timestamps.Access))
}

func TestEntry_Timestamps_FallsBackToRecordingDateWithoutTF(t *testing.T) {
	img := isotest.New()
	rec := isotest.DirRecord(isotest.DirRecordOptions{Name: "FILE.TXT;1", LBA: 40, DataLength: 10})
	// Recording date 2020-05-15 12:34:56 UTC (an all-zero date is "not
	// specified" and would leave Modification nil).
	copy(rec[18:25], []byte{120, 5, 15, 12, 34, 56, 0})
	entry := newChildEntry(t, img, 20, rec)

	ts := entry.Timestamps()
	require.NotNil(t, ts.Modification)
	assert.True(t, time.Date(2020, 5, 15, 12, 34, 56, 0, time.UTC).Equal(*ts.Modification))
	assert.Nil(t, ts.Creation)
}

func TestEntry_Metadata_PosixFields(t *testing.T) {
	img := isotest.New()
	px := isotest.PXEntry(0o100644, 2, 501, 20, 77)
	rec := isotest.DirRecord(isotest.DirRecordOptions{Name: "FILE.TXT;1", LBA: 40, DataLength: 10, SystemUse: px})
	entry := newChildEntry(t, img, 20, rec)

	md := entry.Metadata()
	require.True(t, md.HasPosix)
	assert.EqualValues(t, 2, md.NLink)
	assert.EqualValues(t, 501, md.UID)
	assert.EqualValues(t, 20, md.GID)
	assert.EqualValues(t, 77, md.Inode)
	assert.False(t, md.HasDevice)
}

func TestEntry_Metadata_DeviceFields(t *testing.T) {
	img := isotest.New()
	px := isotest.PXEntry(0o020666, 1, 0, 0, 0)
	pn := isotest.PNEntry(5, 1)
	rec := isotest.DirRecord(isotest.DirRecordOptions{
		Name: "TTY;1", LBA: 40, DataLength: 0, SystemUse: append(append([]byte{}, px...), pn...),
	})
	entry := newChildEntry(t, img, 20, rec)

	md := entry.Metadata()
	require.True(t, md.HasDevice)
	assert.EqualValues(t, 5, md.DeviceMajor)
	assert.EqualValues(t, 1, md.DeviceMinor)
}

func TestEntry_SparseInfo(t *testing.T) {
	img := isotest.New()

	plain := isotest.DirRecord(isotest.DirRecordOptions{Name: "PLAIN.TXT;1", LBA: 40, DataLength: 10})
	plainEntry := newChildEntry(t, img, 20, plain)
	assert.NoError(t, plainEntry.SparseInfo())

	sf := isotest.SUSPEntry("SF", make([]byte, 21))
	sparse := isotest.DirRecord(isotest.DirRecordOptions{Name: "SPARSE.TXT;1", LBA: 41, DataLength: 10, SystemUse: sf})
	sparseEntry := newChildEntry(t, img, 21, sparse)

	err := sparseEntry.SparseInfo()
	require.Error(t, err)
	assert.True(t, errors.Is(err, isoerr.ErrNotSupported))
}

func TestEntry_ParentLink(t *testing.T) {
	img := isotest.New()
	pl := isotest.PLEntry(99)
	rec := isotest.DirRecord(isotest.DirRecordOptions{Name: "DIR1", LBA: 40, DataLength: isotest.SectorSize, IsDir: true, SystemUse: pl})
	entry := newChildEntry(t, img, 20, rec)

	lba, ok := entry.ParentLink()
	require.True(t, ok)
	assert.EqualValues(t, 99, lba)
}

func TestEntry_SystemUseEntries_AppliesSPSkipBytes(t *testing.T) {
	img := isotest.New()
	const skip = uint8(8)

	rootSelf := isotest.SpecialDirRecord(true, 20, isotest.SectorSize, isotest.SPEntry(skip))
	img.PutSectors(20, rootSelf)

	px := isotest.PXEntry(0o100644, 1, 0, 0, 0)
	garbage := make([]byte, skip)
	for i := range garbage {
		garbage[i] = 0xFF
	}
	childSystemUse := append(append([]byte{}, garbage...), px...)
	child := isotest.DirRecord(isotest.DirRecordOptions{Name: "FILE.TXT;1", LBA: 41, DataLength: 10, SystemUse: childSystemUse})
	img.PutSectors(21, child)

	src := img.Source()

	rootRec := directory.NewRecord(logr.Discard())
	rootData, err := src.ReadSector(20)
	require.NoError(t, err)
	require.NoError(t, rootRec.Unmarshal(rootData[:int(rootData[0])], true, false))
	rootRec.SUSPArea.LBA = 20
	rootRec.SUSPArea.Offset = int(rootData[0]) - len(rootRec.SystemUse)
	rootRec.SUSPArea.Length = len(rootRec.SystemUse)
	root := directory.NewEntry(rootRec, src, options.Default(), logr.Discard(), "/")

	entries, err := root.SystemUseEntries()
	require.NoError(t, err)
	gotSkip, ok := susp.SkipBytes(entries)
	require.True(t, ok)
	assert.Equal(t, skip, gotSkip)

	childRec := directory.NewRecord(logr.Discard())
	require.NoError(t, childRec.Unmarshal(child, true, false))
	childRec.SUSPArea.LBA = 21
	childRec.SUSPArea.Offset = len(child) - len(childRec.SystemUse)
	childRec.SUSPArea.Length = len(childRec.SystemUse)

	unskipped := directory.NewEntry(childRec, src, options.Default(), logr.Discard(), "/")
	_, err = unskipped.SystemUseEntries()
	assert.Error(t, err, "leading SP skip bytes must not parse as a SUSP entry on their own")

	skipped := directory.NewEntry(childRec, src, options.Default(), logr.Discard(), "/")
	skipped.SetSuspSkipBytes(gotSkip)
	got, err := skipped.SystemUseEntries()
	require.NoError(t, err)
	require.Equal(t, 1, got.Len())
	assert.EqualValues(t, "PX", got.Entries()[0].Type())
}
