package susp_test

import (
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sector9660/isofs/internal/isotest"
	"github.com/sector9660/isofs/pkg/options"
	"github.com/sector9660/isofs/pkg/susp"
)

func TestHasRockRidge_DetectsOldSignature(t *testing.T) {
	img := isotest.New()
	rr := isotest.SUSPEntry("RR", []byte{0x01})
	img.PutSector(10, rr)
	src := img.Source()

	entries, err := susp.Parse(src, susp.Area{LBA: 10, Offset: 0, Length: len(rr)}, options.Default(), logr.Discard())
	require.NoError(t, err)
	assert.True(t, entries.HasRockRidge())
}

func TestHasRockRidge_FalseWithoutAnySignature(t *testing.T) {
	img := isotest.New()
	cl := isotest.CLEntry(30)
	img.PutSector(10, cl)
	src := img.Source()

	entries, err := susp.Parse(src, susp.Area{LBA: 10, Offset: 0, Length: len(cl)}, options.Default(), logr.Discard())
	require.NoError(t, err)
	assert.False(t, entries.HasRockRidge())
}

func TestSkipBytes_ReadsSPEntry(t *testing.T) {
	img := isotest.New()
	sp := isotest.SPEntry(16)
	img.PutSector(10, sp)
	src := img.Source()

	entries, err := susp.Parse(src, susp.Area{LBA: 10, Offset: 0, Length: len(sp)}, options.Default(), logr.Discard())
	require.NoError(t, err)
	skip, ok := susp.SkipBytes(entries)
	require.True(t, ok)
	assert.EqualValues(t, 16, skip)
}

func TestSkipBytes_AbsentWithoutSP(t *testing.T) {
	img := isotest.New()
	px := isotest.PXEntry(0o100644, 1, 0, 0, 0)
	img.PutSector(10, px)
	src := img.Source()

	entries, err := susp.Parse(src, susp.Area{LBA: 10, Offset: 0, Length: len(px)}, options.Default(), logr.Discard())
	require.NoError(t, err)
	_, ok := susp.SkipBytes(entries)
	assert.False(t, ok)
}
