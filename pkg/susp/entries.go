package susp

import (
	"github.com/go-logr/logr"

	"github.com/sector9660/isofs/pkg/logging"
	"github.com/sector9660/isofs/pkg/rockridge"
)

// NewSystemUseEntries wraps a flat, already-chain-walked entry list.
func NewSystemUseEntries(entries []*SystemUseEntry, logger logr.Logger) *SystemUseEntries {
	return &SystemUseEntries{entries: entries, logger: logger}
}

// SystemUseEntries is every SystemUseEntry found on one directory record,
// after CE continuations have been followed, with Rock Ridge-specific
// accessors layered on top.
type SystemUseEntries struct {
	entries []*SystemUseEntry
	logger  logr.Logger
}

func (e SystemUseEntries) Entries() []*SystemUseEntry { return e.entries }
func (e SystemUseEntries) Len() int                   { return len(e.entries) }

// ExtensionRecords returns every ER entry found, in order.
func (e SystemUseEntries) ExtensionRecords() ([]*ExtensionRecord, error) {
	var records []*ExtensionRecord
	for _, entry := range e.entries {
		if entry.Type() == ExtensionReference {
			er, err := unmarshalExtensionRecord(entry)
			if err != nil {
				return nil, err
			}
			records = append(records, er)
		}
	}
	return records, nil
}

// HasRockRidge reports whether these entries signal Rock Ridge: an ER entry
// asserting one of the known Rock Ridge extension identifiers, or else a
// PX, NM or TF field or a bare RR entry. ER is normally only recorded on the root
// directory's "." entry (SUSP §5.5), so a non-root directory record's own
// entries never carry it directly; callers should ask HasRockRidge on the
// root and propagate that answer down, falling back to this heuristic only
// when the caller has no root context available.
func (e SystemUseEntries) HasRockRidge() bool {
	records, err := e.ExtensionRecords()
	if err != nil {
		e.logger.Error(err, "failed to read extension records")
	}
	for _, record := range records {
		if (record.Identifier == rockridge.IdentifierRRIP1991A ||
			record.Identifier == rockridge.IdentifierIEEEP1282 ||
			record.Identifier == rockridge.IdentifierIEEE1282) &&
			record.Version == rockridge.Version {
			return true
		}
	}

	for _, entry := range e.entries {
		switch rockridge.EntryType(entry.Type()) {
		case rockridge.PosixFilePerms, rockridge.AlternateName, rockridge.TimeStamps:
			e.logger.V(logging.TRACE).Info("found rock ridge field without a matching ER on this record")
			return true
		case rockridge.OldSignature:
			// Pre-ER Rock Ridge discs (RRIP before SUSP settled on ER)
			// assert activation with a bare "RR" entry instead.
			e.logger.V(logging.TRACE).Info("found pre-ER rock ridge signature (RR)")
			return true
		}
	}

	return false
}
