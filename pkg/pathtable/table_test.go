package pathtable

import (
	"encoding/binary"
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecord_Unmarshal_LittleEndian(t *testing.T) {
	logger := logr.Discard()
	rec := NewRecord(logger)
	data := []byte{
		5, 0, // DirectoryIdentifierLength, ExtendedAttributeRecordLength
		1, 0, 0, 0, // LocationOfExtent (LE)
		2, 0, // ParentDirectoryNumber (LE)
		'a', 'b', 'c', 'd', 'e',
	}

	err := rec.Unmarshal(data, binary.LittleEndian)
	require.NoError(t, err)
	assert.Equal(t, byte(5), rec.DirectoryIdentifierLength)
	assert.Equal(t, uint32(1), rec.LocationOfExtent)
	assert.Equal(t, uint16(2), rec.ParentDirectoryNumber)
	assert.Equal(t, "abcde", rec.DirectoryIdentifier)
	assert.Equal(t, []byte{0x00}, rec.Padding)
}

func TestRecord_Unmarshal_BigEndian(t *testing.T) {
	logger := logr.Discard()
	rec := NewRecord(logger)
	data := []byte{
		4, 0, // DirectoryIdentifierLength (even, no padding)
		0, 0, 0, 7, // LocationOfExtent (BE)
		0, 3, // ParentDirectoryNumber (BE)
		'r', 'o', 'o', 't',
	}

	err := rec.Unmarshal(data, binary.BigEndian)
	require.NoError(t, err)
	assert.Equal(t, uint32(7), rec.LocationOfExtent)
	assert.Equal(t, uint16(3), rec.ParentDirectoryNumber)
	assert.Equal(t, "root", rec.DirectoryIdentifier)
	assert.Nil(t, rec.Padding)
}

func TestRecord_Unmarshal_InvalidDataLength(t *testing.T) {
	rec := NewRecord(logr.Discard())
	err := rec.Unmarshal([]byte{1, 2, 3}, binary.LittleEndian)
	assert.Error(t, err)
}

func TestRecord_Unmarshal_DirectoryIdentifierOutOfRange(t *testing.T) {
	rec := NewRecord(logr.Discard())
	data := []byte{
		10, 0,
		1, 0, 0, 0,
		2, 0,
		'a', 'b', 'c', 'd', 'e',
	}
	err := rec.Unmarshal(data, binary.LittleEndian)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "directory identifier out of range")
}

type memSource struct {
	sectorSize int
	data       []byte
}

func (m *memSource) ReadSector(lba uint32) ([]byte, error) {
	return m.ReadRange(lba, 0, m.sectorSize)
}

func (m *memSource) ReadRange(lba uint32, offset int, length int) ([]byte, error) {
	start := int(lba)*m.sectorSize + offset
	return m.data[start : start+length], nil
}

func (m *memSource) SectorSize() int { return m.sectorSize }

func TestRead_DecodesConsecutiveRecords(t *testing.T) {
	root := []byte{
		1, 0, // DirectoryIdentifierLength = 1 (root identifier is a single 0x00 byte)
		0, 0, 0, 20, // LocationOfExtent
		0, 1, // ParentDirectoryNumber
		0x00,
		0, // pad
	}
	child := []byte{
		5, 0,
		0, 0, 0, 21,
		0, 1,
		'c', 'h', 'i', 'l', 'd',
		0, // pad
	}
	buf := append(append([]byte{}, root...), child...)
	src := &memSource{sectorSize: 2048, data: buf}

	table, err := Read(src, 0, uint32(len(buf)), binary.BigEndian, logr.Discard())
	require.NoError(t, err)
	require.Len(t, table.Records, 2)
	assert.Equal(t, uint32(20), table.Records[0].LocationOfExtent)
	assert.Equal(t, "child", table.Records[1].DirectoryIdentifier)
	assert.Equal(t, uint32(21), table.Records[1].LocationOfExtent)
}
