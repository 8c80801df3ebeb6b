// Package isofs decodes read-only ISO 9660/ECMA-119 optical disc images,
// with Joliet and Rock Ridge extension support layered transparently on
// top. Open a disc with Open, then walk it through Handle's Stat/ReadDir/
// Open — the same directory tree regardless of which of a disc's
// co-existing namespaces actually supplied a name or permission bit.
package isofs

import (
	"encoding/binary"
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/sector9660/isofs/block"
	"github.com/sector9660/isofs/pkg/descriptor"
	"github.com/sector9660/isofs/pkg/directory"
	"github.com/sector9660/isofs/pkg/eltorito"
	"github.com/sector9660/isofs/pkg/fileio"
	"github.com/sector9660/isofs/pkg/isoerr"
	"github.com/sector9660/isofs/pkg/namespace"
	"github.com/sector9660/isofs/pkg/options"
	"github.com/sector9660/isofs/pkg/pathtable"
	"github.com/sector9660/isofs/pkg/systemarea"
)

// Option re-exports the functional-options surface used to configure Open.
type Option = options.Option

var (
	WithNamespace             = options.WithNamespace
	WithStrictBothEndian      = options.WithStrictBothEndian
	WithStripVersionSuffix    = options.WithStripVersionSuffix
	WithMaxSuspHops           = options.WithMaxSuspHops
	WithMaxAssembledField     = options.WithMaxAssembledField
	WithJolietSurrogatePolicy = options.WithJolietSurrogatePolicy
	WithNameDecoder           = options.WithNameDecoder
	WithRockRidge             = options.WithRockRidge
	WithElTorito              = options.WithElTorito
	WithParseOnOpen           = options.WithParseOnOpen
	WithLogger                = options.WithLogger
	WithProgressCallback      = options.WithProgressCallback
)

// Handle is an opened disc image: its volume descriptor set, the resolved
// namespace tree, and (if the underlying source is an *os.File opened by
// Open) the file to close when done.
type Handle struct {
	src      block.Source
	set      *descriptor.VolumeDescriptorSet
	resolver *namespace.Resolver
	opts     options.Options
	closer   *os.File
}

// Open opens the ISO image at location, scans its volume descriptor set,
// and resolves the namespace tree opts.PreferNamespace selects.
func Open(location string, opts ...Option) (*Handle, error) {
	f, err := os.Open(location)
	if err != nil {
		return nil, err
	}

	h, err := OpenSource(block.NewFileSource(f, 0), opts...)
	if err != nil {
		f.Close()
		return nil, err
	}
	h.closer = f
	return h, nil
}

// OpenSource opens an already-addressable block.Source, for callers that
// aren't reading from a plain local file (an embedded image, a network
// block device, an in-memory test fixture, ...).
func OpenSource(src block.Source, opts ...Option) (*Handle, error) {
	o := options.Apply(opts...)

	set, err := descriptor.Scan(src, o.StrictBothEndian, o.Logger)
	if err != nil {
		return nil, fmt.Errorf("isofs: scanning volume descriptors: %w", err)
	}

	resolver, err := namespace.NewResolver(set, src, o, o.Logger)
	if err != nil {
		return nil, fmt.Errorf("isofs: resolving namespace: %w", err)
	}

	return &Handle{src: src, set: set, resolver: resolver, opts: o}, nil
}

// Close releases the underlying file, if Open opened one. OpenSource
// callers own their own source's lifetime and Close is a no-op for them.
func (h *Handle) Close() error {
	if h.closer == nil {
		return nil
	}
	return h.closer.Close()
}

// VolumeDescriptorSet returns every volume descriptor Open's scan found.
func (h *Handle) VolumeDescriptorSet() *descriptor.VolumeDescriptorSet { return h.set }

// Root returns the chosen tree's root directory entry.
func (h *Handle) Root() *directory.Entry { return h.resolver.Root() }

// HasRockRidge reports whether the root directory's system use entries
// signal Rock Ridge (an ER entry naming Rock Ridge, or a PX, NM, TF or RR
// entry).
func (h *Handle) HasRockRidge() bool {
	entries, err := h.Root().SystemUseEntries()
	if err != nil || entries == nil {
		return false
	}
	return entries.HasRockRidge()
}

// HasElTorito reports whether the disc carries an El Torito boot catalog,
// and its LBA if so.
func (h *Handle) HasElTorito() (lba uint32, ok bool) {
	for _, brvd := range h.set.Boot {
		if lba, ok := eltorito.Locate(brvd.BootSystemIdentifier, brvd.BootSystemUse); ok {
			return lba, true
		}
	}
	return 0, false
}

// PathTable decodes and returns the disc's Type L Path Table (ECMA-119
// 9.4), a flat listing of every directory that needs no directory extents,
// as an alternative to walking the tree with Stat/ReadDir. It is parsed lazily on each call rather than cached:
// callers that need it repeatedly should cache the result themselves. A
// disc with a missing or corrupted path table returns an error here
// without affecting anything else Handle can do, since every other
// operation reaches directories through records instead.
func (h *Handle) PathTable() (*pathtable.Table, error) {
	pvd := h.set.Primary
	return pathtable.Read(h.src, pvd.LPathTableLocation, pvd.PathTableSize, binary.LittleEndian, h.opts.Logger)
}

// SystemArea returns the disc's 32 KiB reserved system area (ECMA-119
// 6.1.1, logical sectors 0-15), read fresh on each call. Most discs leave
// it zero-filled; a hybrid-boot image instead carries something like an
// MBR or GPT there, which SystemArea hands back uninterpreted for a caller
// that wants to inspect or reproduce it.
func (h *Handle) SystemArea() (*systemarea.SystemArea, error) {
	return systemarea.Read(h.src)
}

// ReadDir returns dir's logical children, with CL/RE relocation and
// multi-extent files already stitched together.
func (h *Handle) ReadDir(dir *directory.Entry) ([]*directory.Entry, error) {
	return h.resolver.ReadDir(dir, nil)
}

// Stat resolves a slash-separated path from the tree root to its Entry.
func (h *Handle) Stat(name string) (*directory.Entry, error) {
	name = strings.Trim(path.Clean("/"+name), "/")
	current := h.Root()
	if name == "" {
		return current, nil
	}

	for _, component := range strings.Split(name, "/") {
		if !current.IsDir() {
			return nil, isoerr.ErrNotADirectory
		}
		children, err := h.ReadDir(current)
		if err != nil {
			return nil, err
		}

		found := false
		for _, child := range children {
			if child.Name() == component {
				current = child
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("%w: %s", isoerr.ErrNotFound, name)
		}
	}
	return current, nil
}

// Open returns a File for reading name's contents. Symlinks are not
// followed: for a Rock Ridge symlink the File covers the symlink entry's
// own extent, and SymlinkTarget on the entry gives its target.
func (h *Handle) Open(name string) (*File, error) {
	entry, err := h.Stat(name)
	if err != nil {
		return nil, err
	}
	if entry.IsDir() {
		return nil, isoerr.ErrNotAFile
	}
	return newFile(h, entry), nil
}

// Walk calls fn for every entry in the tree rooted at root (or the whole
// tree, if root is nil), in breadth-first order, stopping at the first
// error fn returns.
func (h *Handle) Walk(root *directory.Entry, fn func(entry *directory.Entry) error) error {
	if root == nil {
		root = h.Root()
	}
	queue := []*directory.Entry{root}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		if err := fn(current); err != nil {
			return err
		}

		if current.IsDir() {
			children, err := h.ReadDir(current)
			if err != nil {
				return err
			}
			queue = append(queue, children...)
		}
	}
	return nil
}
