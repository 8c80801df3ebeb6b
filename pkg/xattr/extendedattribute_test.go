package xattr

import (
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedRecordBytes() []byte {
	data := make([]byte, 250)
	data[0], data[1] = 0x34, 0x12 // OwnerIdentifier = 0x1234 (LE half)
	data[4], data[5] = 0x78, 0x56 // GroupIdentifier = 0x5678 (LE half)
	data[8], data[9] = 0xed, 0x01 // Permissions
	data[78] = 1                 // RecordFormat
	data[79] = 2                 // RecordAttributes
	data[180] = 1                // ExtendedAttributeRecordVersion
	data[181] = 0                // LengthOfEscapeSequences
	// LengthOfApplicationUse = 0 at data[246:250]
	return data
}

func TestRecord_Unmarshal_FixedHeader(t *testing.T) {
	rec := NewRecord(logr.Discard())
	err := rec.Unmarshal(fixedRecordBytes())
	require.NoError(t, err)
	assert.Equal(t, uint16(0x1234), rec.OwnerIdentifier)
	assert.Equal(t, uint16(0x5678), rec.GroupIdentifier)
	assert.Equal(t, uint8(1), rec.RecordFormat)
	assert.Equal(t, uint8(2), rec.RecordAttributes)
	assert.Equal(t, uint8(1), rec.ExtendedAttributeRecordVersion)
	assert.Empty(t, rec.ApplicationUse)
	assert.Empty(t, rec.EscapeSequences)
}

func TestRecord_Unmarshal_ApplicationUseAndEscapeSequences(t *testing.T) {
	data := fixedRecordBytes()
	data[246], data[247], data[248], data[249] = 0, 0, 0, 4 // LengthOfApplicationUse = 4
	data[181] = 2                                           // LengthOfEscapeSequences = 2
	data = append(data, []byte{'a', 'b', 'c', 'd'}...)
	data = append(data, []byte{'%', '/'}...)

	rec := NewRecord(logr.Discard())
	err := rec.Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, []byte("abcd"), rec.ApplicationUse)
	assert.Equal(t, []byte("%/"), rec.EscapeSequences)
}

func TestRecord_Unmarshal_TooShort(t *testing.T) {
	rec := NewRecord(logr.Discard())
	err := rec.Unmarshal(make([]byte, 100))
	assert.Error(t, err)
}

func TestRecord_Unmarshal_ApplicationUseOutOfRange(t *testing.T) {
	data := fixedRecordBytes()
	data[246], data[247], data[248], data[249] = 0, 0, 1, 0 // declares 256 bytes app use, none present

	rec := NewRecord(logr.Discard())
	err := rec.Unmarshal(data)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "application use out of range")
}
