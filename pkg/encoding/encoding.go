// Package encoding implements the primitive ECMA-119 wire encodings: padded
// strings, both-byte-order integers, and the two date-time formats
// (7-byte directory record, 17-byte volume descriptor).
package encoding

import (
	"encoding/binary"
	"fmt"
	"io"
	"strings"
	"time"
)

// MarshalString encodes s as a byte array padded with spaces to padToLength,
// truncating if s is longer.
func MarshalString(s string, padToLength int) []byte {
	if len(s) > padToLength {
		s = s[:padToLength]
	}
	missingPadding := padToLength - len(s)
	s = s + strings.Repeat(" ", missingPadding)
	return []byte(s)
}

// UnmarshalInt32LSBMSB decodes a 32-bit integer recorded in both byte
// orders, as defined in ECMA-119 §7.3.3. When strict is true a mismatch
// between the two halves is an error; otherwise the little-endian half
// wins and the mismatch is not reported.
func UnmarshalInt32LSBMSB(data []byte, strict bool) (int32, error) {
	if len(data) < 8 {
		return 0, io.ErrUnexpectedEOF
	}

	lsb := int32(binary.LittleEndian.Uint32(data[0:4]))
	msb := int32(binary.BigEndian.Uint32(data[4:8]))

	if lsb != msb && strict {
		return 0, fmt.Errorf("little-endian and big-endian value mismatch: %d != %d", lsb, msb)
	}

	return lsb, nil
}

// UnmarshalUint32LSBMSB is UnmarshalInt32LSBMSB returning an unsigned value.
func UnmarshalUint32LSBMSB(data []byte, strict bool) (uint32, error) {
	n, err := UnmarshalInt32LSBMSB(data, strict)
	return uint32(n), err
}

// UnmarshalInt16LSBMSB decodes a 16-bit integer recorded in both byte
// orders, as defined in ECMA-119 §7.2.3.
func UnmarshalInt16LSBMSB(data []byte, strict bool) (int16, error) {
	if len(data) < 4 {
		return 0, io.ErrUnexpectedEOF
	}

	lsb := int16(binary.LittleEndian.Uint16(data[0:2]))
	msb := int16(binary.BigEndian.Uint16(data[2:4]))

	if lsb != msb && strict {
		return 0, fmt.Errorf("little-endian and big-endian value mismatch: %d != %d", lsb, msb)
	}

	return lsb, nil
}

// UnmarshalUint16LSBMSB is UnmarshalInt16LSBMSB returning an unsigned value.
func UnmarshalUint16LSBMSB(data []byte, strict bool) (uint16, error) {
	n, err := UnmarshalInt16LSBMSB(data, strict)
	return uint16(n), err
}

// WriteInt32LSBMSB writes a 32-bit integer in both byte orders.
func WriteInt32LSBMSB(dst []byte, value int32) {
	_ = dst[7]
	binary.LittleEndian.PutUint32(dst[0:4], uint32(value))
	binary.BigEndian.PutUint32(dst[4:8], uint32(value))
}

// WriteInt16LSBMSB writes a 16-bit integer in both byte orders.
func WriteInt16LSBMSB(dst []byte, value int16) {
	_ = dst[3]
	binary.LittleEndian.PutUint16(dst[0:2], uint16(value))
	binary.BigEndian.PutUint16(dst[2:4], uint16(value))
}

// DecodeDirectoryTime converts the 7-byte directory record date-time format
// (ECMA-119 §9.1.5) into a time.Time.
func DecodeDirectoryTime(data []byte) (time.Time, error) {
	if len(data) != 7 {
		return time.Time{}, fmt.Errorf("invalid data length: expected 7 bytes, got %d", len(data))
	}

	year := int(data[0]) + 1900
	month := time.Month(data[1])
	day := int(data[2])
	hour := int(data[3])
	minute := int(data[4])
	second := int(data[5])
	offset := int8(data[6])

	if month < 1 || month > 12 {
		return time.Time{}, fmt.Errorf("invalid month: %d", month)
	}
	if day < 1 || day > 31 {
		return time.Time{}, fmt.Errorf("invalid day: %d", day)
	}
	if hour < 0 || hour > 23 {
		return time.Time{}, fmt.Errorf("invalid hour: %d", hour)
	}
	if minute < 0 || minute > 59 {
		return time.Time{}, fmt.Errorf("invalid minute: %d", minute)
	}
	if second < 0 || second > 59 {
		return time.Time{}, fmt.Errorf("invalid second: %d", second)
	}
	if offset < -48 || offset > 52 {
		return time.Time{}, fmt.Errorf("invalid GMT offset: %d", offset)
	}

	offsetMinutes := int(offset) * 15
	location := time.FixedZone("ISO9660", offsetMinutes*60)
	return time.Date(year, month, day, hour, minute, second, 0, location), nil
}

// EncodeDirectoryTime is the inverse of DecodeDirectoryTime.
func EncodeDirectoryTime(t time.Time) ([]byte, error) {
	year := t.Year() - 1900
	if year < 0 || year > 255 {
		return nil, fmt.Errorf("year out of range: %d", t.Year())
	}

	_, offsetSeconds := t.Zone()
	offset := (offsetSeconds / 60) / 15
	if offset < -48 || offset > 52 {
		return nil, fmt.Errorf("GMT offset out of range: %d", offset)
	}

	return []byte{
		byte(year),
		byte(t.Month()),
		byte(t.Day()),
		byte(t.Hour()),
		byte(t.Minute()),
		byte(t.Second()),
		byte(offset),
	}, nil
}

// DecodeVolumeTime converts the 17-byte volume descriptor date-time format
// (ECMA-119 §8.4.26.1), a digit string "YYYYMMDDHHmmsscc" plus a 1-byte GMT
// offset, into a time.Time. A field whose sixteen digits are all '0' (the
// "not specified" encoding) returns the zero time with no error; its offset
// byte is not checked.
func DecodeVolumeTime(data []byte) (time.Time, error) {
	if len(data) != 17 {
		return time.Time{}, fmt.Errorf("invalid data length: expected 17 bytes, got %d", len(data))
	}

	digits := string(data[0:16])
	offset := int8(data[16])

	allZero := true
	for _, c := range digits {
		if c != '0' {
			allZero = false
			break
		}
	}
	if allZero {
		return time.Time{}, nil
	}

	var year, month, day, hour, minute, second, centisecond int
	if _, err := fmt.Sscanf(digits, "%4d%2d%2d%2d%2d%2d%2d",
		&year, &month, &day, &hour, &minute, &second, &centisecond); err != nil {
		return time.Time{}, fmt.Errorf("invalid volume date-time digits %q: %w", digits, err)
	}

	if offset < -48 || offset > 52 {
		return time.Time{}, fmt.Errorf("invalid GMT offset: %d", offset)
	}

	location := time.FixedZone("ISO9660", int(offset)*15*60)
	nanos := centisecond * 10 * int(time.Millisecond)
	return time.Date(year, time.Month(month), day, hour, minute, second, nanos, location), nil
}
