package logging

import "github.com/go-logr/logr"

// Verbosity levels passed to logr.Logger.V. Per-record decode detail
// (volume descriptor classification, path table and extended attribute
// records, skipped malformed Rock Ridge entries) is logged at TRACE; SUSP
// continuation hops, CL/RE stitching and namespace selection are not
// logged.
const (
	INFO  = 0
	DEBUG = 1
	TRACE = 2
)

// Discard returns a logger that drops everything, the default for a caller
// that never supplies Options.Logger.
func Discard() logr.Logger {
	return logr.Discard()
}
