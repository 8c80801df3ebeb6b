package directory

import (
	"errors"
	"fmt"

	"github.com/go-logr/logr"

	"github.com/sector9660/isofs/pkg/encoding"
	"github.com/sector9660/isofs/pkg/isoerr"
)

// NewRecord allocates an empty record ready for Unmarshal.
func NewRecord(logger logr.Logger) *Record {
	return &Record{logger: logger}
}

// Record is one fixed-layout Directory Record (ECMA-119 9.1), decoded but
// namespace-agnostic: FileIdentifier carries whatever bytes this record's
// namespace uses (d-characters, UCS-2BE Joliet text, ...), decoded into a Go
// string by the caller that knows which namespace this tree belongs to. The
// System Use area is kept as raw bytes; SUSP/Rock Ridge interpretation
// happens lazily, only when an Entry actually asks for it.
type Record struct {
	LengthOfDirectoryRecord uint8
	ExtendedAttributeLength uint8
	LocationOfExtent        uint32
	DataLength              uint32
	RecordingDateAndTime    [7]byte
	FileFlags               FileFlags
	FileUnitSize            uint8
	InterleaveGapSize       uint8
	VolumeSequenceNumber    uint16
	FileIdentifierRaw       []byte
	FileIdentifier          string
	SystemUse               []byte

	// SUSPArea is where SystemUse physically lives on disk (this record's
	// own sector and offset), set by the caller that read this record off
	// an extent. It seeds CE continuation-chain walking for this record.
	SUSPArea struct {
		LBA    uint32
		Offset int
		Length int
	}

	// Joliet marks that FileIdentifierRaw should be decoded as UCS-2BE
	// rather than d-characters.
	Joliet bool

	logger logr.Logger
}

// Unmarshal decodes one Directory Record from data, which must start at the
// record's length byte and extend at least LengthOfDirectoryRecord bytes.
// strict controls whether a both-endian field mismatch between its
// little-endian and big-endian halves is treated as an error.
func (r *Record) Unmarshal(data []byte, strict bool, jolietFailOnInvalid bool) error {
	if len(data) < 34 {
		return errors.New("directory: record shorter than the 34-byte minimum (33-byte header plus a 1-byte identifier)")
	}

	r.LengthOfDirectoryRecord = data[0]
	r.ExtendedAttributeLength = data[1]

	loc, err := encoding.UnmarshalUint32LSBMSB(data[2:10], strict)
	if err != nil {
		return fmt.Errorf("directory: location of extent: %w", err)
	}
	r.LocationOfExtent = loc

	length, err := encoding.UnmarshalUint32LSBMSB(data[10:18], strict)
	if err != nil {
		return fmt.Errorf("directory: data length: %w", err)
	}
	r.DataLength = length

	copy(r.RecordingDateAndTime[:], data[18:25])
	r.FileFlags.Set(data[25])
	r.FileUnitSize = data[26]
	r.InterleaveGapSize = data[27]

	seq, err := encoding.UnmarshalUint16LSBMSB(data[28:32], strict)
	if err != nil {
		return fmt.Errorf("directory: volume sequence number: %w", err)
	}
	r.VolumeSequenceNumber = seq

	idLen := int(data[32])
	if 33+idLen > len(data) {
		return errors.New("directory: file identifier extends past the record")
	}
	r.FileIdentifierRaw = append([]byte(nil), data[33:33+idLen]...)

	if r.Joliet && idLen > 1 {
		name, err := decodeUCS2BE(r.FileIdentifierRaw, jolietFailOnInvalid)
		if err != nil {
			return fmt.Errorf("directory: joliet file identifier: %w", err)
		}
		r.FileIdentifier = name
	} else {
		r.FileIdentifier = string(r.FileIdentifierRaw)
	}

	systemUseStart := 33 + idLen
	if idLen%2 == 0 {
		systemUseStart++ // padding field
	}

	recordEnd := int(r.LengthOfDirectoryRecord)
	if recordEnd > len(data) {
		recordEnd = len(data)
	}
	if systemUseStart < recordEnd {
		r.SystemUse = append([]byte(nil), data[systemUseStart:recordEnd]...)
	}

	return nil
}

// IsSelf reports whether this record is the "." self-reference.
func (r *Record) IsSelf() bool {
	return len(r.FileIdentifierRaw) == 1 && r.FileIdentifierRaw[0] == 0x00
}

// IsParent reports whether this record is the ".." parent-reference.
func (r *Record) IsParent() bool {
	return len(r.FileIdentifierRaw) == 1 && r.FileIdentifierRaw[0] == 0x01
}

// decodeUCS2BE decodes a Joliet UCS-2BE byte string into a Go string,
// rejecting odd-length input rather than silently truncating it. Joliet's
// repertoire is UCS-2, not UTF-16: a byte pair in the D800-DFFF surrogate
// range is not half of a supplementary-plane character, it is an invalid
// code point on its own (UCS-2-no-pairing). failOnInvalid selects between
// erroring on such a code point and substituting U+FFFD for it.
func decodeUCS2BE(data []byte, failOnInvalid bool) (string, error) {
	if len(data)%2 != 0 {
		return "", errors.New("joliet name has an odd byte length")
	}
	runes := make([]rune, 0, len(data)/2)
	for i := 0; i < len(data); i += 2 {
		u := uint16(data[i])<<8 | uint16(data[i+1])
		if u >= 0xD800 && u <= 0xDFFF {
			if failOnInvalid {
				return "", fmt.Errorf("%w: invalid surrogate code unit 0x%04X in joliet name", isoerr.ErrMalformedField, u)
			}
			runes = append(runes, 0xFFFD)
			continue
		}
		runes = append(runes, rune(u))
	}
	return string(runes), nil
}
