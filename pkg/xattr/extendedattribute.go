// Package xattr decodes an ISO 9660 Extended Attribute Record (ECMA-119
// 9.5.3): an optional fixed-size header, stored immediately before a file
// or directory's own extent, carrying owner/group/permissions and escape
// sequences for the (rarely used) ISO Level 3 application-use area.
package xattr

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/go-logr/logr"

	"github.com/sector9660/isofs/pkg/logging"
)

// NewRecord creates a new Record with the provided logger.
func NewRecord(logger logr.Logger) *Record {
	return &Record{logger: logger}
}

// Record is a decoded Extended Attribute Record.
type Record struct {
	OwnerIdentifier                uint16
	GroupIdentifier                uint16
	Permissions                    uint16
	FileCreationDate               [17]byte
	FileModificationDate           [17]byte
	FileExpirationDate             [17]byte
	FileEffectiveDate              [17]byte
	RecordFormat                   uint8
	RecordAttributes               uint8
	RecordLength                   uint32
	SystemUseIdentifier            [32]byte
	SystemUse                      [64]byte
	ExtendedAttributeRecordVersion uint8
	LengthOfEscapeSequences        uint8
	LengthOfApplicationUse         uint32
	ApplicationUse                 []byte
	EscapeSequences                []byte
	logger                         logr.Logger
}

// Unmarshal parses data into the Record. data must hold at least the fixed
// 250-byte header; ApplicationUse and EscapeSequences extend past it
// according to their declared lengths.
func (r *Record) Unmarshal(data []byte) error {
	if len(data) < 250 {
		return errors.New("xattr: record shorter than the fixed 250-byte header")
	}

	r.OwnerIdentifier = binary.LittleEndian.Uint16(data[0:4])
	r.GroupIdentifier = binary.LittleEndian.Uint16(data[4:8])
	r.Permissions = binary.LittleEndian.Uint16(data[8:10])

	copy(r.FileCreationDate[:], data[10:27])
	copy(r.FileModificationDate[:], data[27:44])
	copy(r.FileExpirationDate[:], data[44:61])
	copy(r.FileEffectiveDate[:], data[61:78])

	r.RecordFormat = data[78]
	r.RecordAttributes = data[79]
	r.RecordLength = binary.LittleEndian.Uint32(data[80:84])

	copy(r.SystemUseIdentifier[:], data[84:116])
	copy(r.SystemUse[:], data[116:180])

	r.ExtendedAttributeRecordVersion = data[180]
	r.LengthOfEscapeSequences = data[181]

	// Both-byte-order 16-bit field (LE half at 246, BE half at 248); the
	// big-endian half is read.
	r.LengthOfApplicationUse = uint32(binary.BigEndian.Uint16(data[248:250]))

	appUseEnd := 250 + r.LengthOfApplicationUse
	if appUseEnd > uint32(len(data)) {
		return fmt.Errorf("xattr: application use out of range: end=%d, data len=%d", appUseEnd, len(data))
	}
	r.ApplicationUse = append([]byte(nil), data[250:appUseEnd]...)

	escSeqEnd := appUseEnd + uint32(r.LengthOfEscapeSequences)
	if escSeqEnd > uint32(len(data)) {
		return fmt.Errorf("xattr: escape sequences out of range: end=%d, data len=%d", escSeqEnd, len(data))
	}
	r.EscapeSequences = append([]byte(nil), data[appUseEnd:escSeqEnd]...)

	r.logger.V(logging.TRACE).Info("extended attribute record",
		"ownerIdentifier", r.OwnerIdentifier,
		"groupIdentifier", r.GroupIdentifier,
		"permissions", r.Permissions,
		"recordFormat", r.RecordFormat,
		"recordAttributes", r.RecordAttributes,
		"recordLength", r.RecordLength,
		"extendedAttributeRecordVersion", r.ExtendedAttributeRecordVersion,
		"lengthOfEscapeSequences", r.LengthOfEscapeSequences,
		"lengthOfApplicationUse", r.LengthOfApplicationUse,
	)

	return nil
}
