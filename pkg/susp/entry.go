// Package susp implements the System Use Sharing Protocol (SUSP, IEEE
// P1281/ECMA-167 appendix) that Rock Ridge is layered on top of: the
// generic tag/length/version framing of a directory record's System Use
// area, and the CE continuation mechanism that lets that area spill into
// other sectors.
package susp

// SystemUseEntryType is the two-character SUSP signature word.
type SystemUseEntryType string

const (
	ContinuationArea   SystemUseEntryType = "CE" // SUSP-112 5.1
	PaddingField       SystemUseEntryType = "PD" // SUSP-112 5.2
	SharingProtocol    SystemUseEntryType = "SP" // SUSP-112 5.3
	TerminatorEntry    SystemUseEntryType = "ST" // SUSP-112 5.4
	ExtensionReference SystemUseEntryType = "ER" // SUSP-112 5.5
	ExtensionSelector  SystemUseEntryType = "ES" // SUSP-112 5.6
)

// SystemUseEntry is one tag/length/version/payload record from a System
// Use area, decoded but not yet interpreted by a particular extension.
type SystemUseEntry struct {
	tag     SystemUseEntryType
	length  uint8
	version uint8
	data    []byte // payload following the 4-byte SUSP header
}

func (e *SystemUseEntry) Type() SystemUseEntryType { return e.tag }
func (e *SystemUseEntry) Length() uint8            { return e.length }
func (e *SystemUseEntry) Version() uint8           { return e.version }
func (e *SystemUseEntry) Data() []byte             { return e.data }
