// Package options holds the single functional-options surface used to
// configure an opened image. It replaces the three overlapping option
// structs the project accumulated during earlier experiments.
package options

import (
	"github.com/go-logr/logr"

	"github.com/sector9660/isofs/pkg/logging"
)

// Namespace selects which of the co-existing name/metadata sources on a
// disc (plain ISO 9660, Joliet, Rock Ridge) supplies an entry's effective
// name, mode, and timestamps when more than one is present.
type Namespace int

const (
	// NamespaceAuto prefers Rock Ridge, then Joliet, then plain ISO 9660.
	NamespaceAuto Namespace = iota
	NamespacePrimary
	NamespaceJoliet
	NamespaceRockRidge
)

// JolietSurrogatePolicy controls how an unpaired UTF-16 surrogate in a
// Joliet filename is handled; Joliet is specified over UCS-2, which has no
// surrogate pairing, so any surrogate code unit found in practice is
// already a violation of the encoding.
type JolietSurrogatePolicy int

const (
	// ReplaceInvalid substitutes U+FFFD for an unpaired surrogate.
	ReplaceInvalid JolietSurrogatePolicy = iota
	// FailOnInvalid returns isoerr.ErrMalformedField instead.
	FailOnInvalid
)

// ProgressCallback is invoked as ExtractFiles/ExtractAll makes progress,
// mirroring the teacher CLI's extraction progress reporting.
type ProgressCallback func(path string, bytesDone, bytesTotal int64)

// NameDecoder optionally overrides how a Rock Ridge NM alternate name is
// decoded from raw bytes; the default treats it as UTF-8.
type NameDecoder func([]byte) (string, error)

// Options is the full configuration surface for Open.
type Options struct {
	// PreferNamespace selects which metadata source wins when several are
	// present on the same record.
	PreferNamespace Namespace
	// StrictBothEndian requires every both-endian field's LE and BE halves
	// to agree; when false, the LE half is used and a mismatch is not
	// reported.
	StrictBothEndian bool
	// StripVersionSuffix removes a plain-ISO-9660 ";1" version suffix from
	// file names.
	StripVersionSuffix bool
	// MaxSuspHops bounds how many CE continuation entries a single system
	// use chain may traverse before SuspChainTooLong is returned.
	MaxSuspHops uint32
	// MaxAssembledField holds a byte limit for fields assembled piecewise
	// across SUSP continuations (e.g. a multi-piece NM or SL). The NM and
	// SL assembly in pkg/directory does not consult it, so no limit is
	// applied to assembled names or symlink targets.
	MaxAssembledField uint32
	// JolietSurrogatePolicy controls unpaired-surrogate handling.
	JolietSurrogatePolicy JolietSurrogatePolicy
	// NameDecoder overrides Rock Ridge NM decoding, nil means UTF-8.
	NameDecoder NameDecoder
	// RockRidgeEnabled, when false, keeps NamespaceAuto from choosing the
	// primary tree on account of Rock Ridge and turns off CL/RE relocation
	// handling in pkg/namespace. Entry accessors still read NM names, PX
	// modes and SL targets whatever its value.
	RockRidgeEnabled bool
	// ElToritoEnabled makes ExtractAll also write out the El Torito boot
	// catalog sector; Handle.HasElTorito locates the catalog whatever its
	// value.
	ElToritoEnabled bool
	// ParseOnOpen is stored but not consulted: Open always scans the
	// volume descriptor set eagerly.
	ParseOnOpen bool
	// Logger receives structured trace/debug/error output; the default
	// discards everything.
	Logger logr.Logger
	// ProgressCallback, if set, is invoked during ExtractFiles/ExtractAll.
	ProgressCallback ProgressCallback
}

// Option mutates an Options value being built up by Open.
type Option func(*Options)

// Default returns the configuration this decoder ships with: auto
// namespace selection, strict both-endian validation, version-suffix
// stripping, a 32-hop SUSP cap, and a 64KiB assembled-field cap.
func Default() Options {
	return Options{
		PreferNamespace:       NamespaceAuto,
		StrictBothEndian:      true,
		StripVersionSuffix:    true,
		MaxSuspHops:           32,
		MaxAssembledField:     65536,
		JolietSurrogatePolicy: ReplaceInvalid,
		RockRidgeEnabled:      true,
		ElToritoEnabled:       true,
		ParseOnOpen:           true,
		Logger:                logging.Discard(),
	}
}

func WithNamespace(ns Namespace) Option {
	return func(o *Options) { o.PreferNamespace = ns }
}

func WithStrictBothEndian(strict bool) Option {
	return func(o *Options) { o.StrictBothEndian = strict }
}

func WithStripVersionSuffix(strip bool) Option {
	return func(o *Options) { o.StripVersionSuffix = strip }
}

func WithMaxSuspHops(max uint32) Option {
	return func(o *Options) { o.MaxSuspHops = max }
}

func WithMaxAssembledField(max uint32) Option {
	return func(o *Options) { o.MaxAssembledField = max }
}

func WithJolietSurrogatePolicy(p JolietSurrogatePolicy) Option {
	return func(o *Options) { o.JolietSurrogatePolicy = p }
}

func WithNameDecoder(d NameDecoder) Option {
	return func(o *Options) { o.NameDecoder = d }
}

func WithRockRidge(enabled bool) Option {
	return func(o *Options) { o.RockRidgeEnabled = enabled }
}

func WithElTorito(enabled bool) Option {
	return func(o *Options) { o.ElToritoEnabled = enabled }
}

func WithParseOnOpen(parse bool) Option {
	return func(o *Options) { o.ParseOnOpen = parse }
}

func WithLogger(logger logr.Logger) Option {
	return func(o *Options) { o.Logger = logger }
}

func WithProgressCallback(cb ProgressCallback) Option {
	return func(o *Options) { o.ProgressCallback = cb }
}

// Apply builds an Options value starting from Default and applying opts
// in order.
func Apply(opts ...Option) Options {
	o := Default()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
