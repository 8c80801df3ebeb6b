// Package namespace picks which of a disc's co-existing directory trees
// (plain ISO 9660, Joliet, Rock Ridge atop ISO 9660) a caller sees, and
// stitches Rock Ridge's CL/RE deep-directory relocation back into a single
// logical tree so a caller never has to know a directory was physically
// moved to stay within the 8-level path depth limit.
package namespace

import (
	"fmt"

	"github.com/go-logr/logr"

	"github.com/sector9660/isofs/block"
	"github.com/sector9660/isofs/pkg/descriptor"
	"github.com/sector9660/isofs/pkg/directory"
	"github.com/sector9660/isofs/pkg/isoerr"
	"github.com/sector9660/isofs/pkg/options"
	"github.com/sector9660/isofs/pkg/susp"
)

// Resolver walks a chosen root directory tree, transparently following
// Rock Ridge CL redirects and hiding the RE-marked relocation targets they
// point at.
type Resolver struct {
	root          *directory.Entry
	src           block.Source
	opts          options.Options
	logger        logr.Logger
	suspSkipBytes uint8
}

// NewResolver picks a root directory record according to opts.PreferNamespace
// and returns a Resolver ready to walk it. set.Primary must be non-nil;
// Scan guarantees this.
func NewResolver(set *descriptor.VolumeDescriptorSet, src block.Source, opts options.Options, logger logr.Logger) (*Resolver, error) {
	if set.Primary == nil {
		return nil, isoerr.ErrMissingPvd
	}

	root, err := chooseRoot(set, src, opts, logger)
	if err != nil {
		return nil, err
	}

	// SP, if present, is recorded only on the primary root's own System Use
	// Area (SUSP §5.3) and is already cached with a zero skip by the
	// HasRockRidge check chooseRoot may have just run; setting it on root
	// now only affects the children ReadDir creates from here on.
	var skipBytes uint8
	if entries, err := root.SystemUseEntries(); err == nil && entries != nil {
		if skip, ok := susp.SkipBytes(entries); ok {
			skipBytes = skip
		}
	}
	root.SetSuspSkipBytes(skipBytes)

	return &Resolver{root: root, src: src, opts: opts, logger: logger, suspSkipBytes: skipBytes}, nil
}

// chooseRoot decides which volume descriptor's root directory record to
// walk. NamespacePrimary and NamespaceRockRidge both walk the PVD's tree
// (Rock Ridge is layered on top of the primary tree, never the Joliet
// tree); NamespaceJoliet walks the highest Joliet level SVD found, falling
// back to the PVD if none exists. NamespaceAuto prefers Rock Ridge when
// the PVD root asserts it, else the best Joliet SVD, else the PVD. The
// primary root entry is built from the "." record at the start of the root
// extent, which carries the root's System Use area (SP, ER, PX, ...); the
// descriptor's inline 34-byte copy is used only if that record cannot be
// read.
func chooseRoot(set *descriptor.VolumeDescriptorSet, src block.Source, opts options.Options, logger logr.Logger) (*directory.Entry, error) {
	primaryRec := set.Primary.RootDirectoryRecord
	loader := &Resolver{src: src, opts: opts, logger: logger}
	if self, err := loader.loadSelfRecord(primaryRec.LocationOfExtent); err == nil && self.IsSelf() {
		primaryRec = self
	}
	primaryRoot := directory.NewEntry(primaryRec, src, opts, logger, "/")
	best := bestJoliet(set)

	switch opts.PreferNamespace {
	case options.NamespacePrimary, options.NamespaceRockRidge:
		return primaryRoot, nil
	case options.NamespaceJoliet:
		if best != nil {
			return directory.NewEntry(best.RootDirectoryRecord, src, opts, logger, "/"), nil
		}
		return primaryRoot, nil
	default: // NamespaceAuto
		if opts.RockRidgeEnabled {
			entries, err := primaryRoot.SystemUseEntries()
			if err == nil && entries.HasRockRidge() {
				return primaryRoot, nil
			}
		}
		if best != nil {
			return directory.NewEntry(best.RootDirectoryRecord, src, opts, logger, "/"), nil
		}
		return primaryRoot, nil
	}
}

// bestJoliet returns the Joliet SVD with the highest declared level, or
// nil if none of the volume's SVDs are Joliet at all.
func bestJoliet(set *descriptor.VolumeDescriptorSet) *descriptor.SupplementaryVolumeDescriptor {
	var best *descriptor.SupplementaryVolumeDescriptor
	for _, svd := range set.Supplementary {
		if !svd.IsJoliet() {
			continue
		}
		if best == nil || svd.JolietLevel > best.JolietLevel {
			best = svd
		}
	}
	return best
}

// Root returns the chosen tree's root directory entry.
func (r *Resolver) Root() *directory.Entry { return r.root }

// ReadDir returns dir's logical children: when dir itself carries a Rock
// Ridge CL entry, the children of its relocation target are listed instead
// of dir's own (dir, the CL stub, keeps its name/mode/owner metadata), any
// child carrying an RE marker is skipped outright since it
// is only reachable through its logical parent's CL stub, and a run of
// sibling records sharing one identifier because the file spans multiple
// extents is collapsed into a single logical entry (see mergeMultiExtent).
// visited tracks relocation-target LBAs already entered on this path, to
// catch a CL chain that cycles back on itself.
func (r *Resolver) ReadDir(dir *directory.Entry, visited map[uint32]bool) ([]*directory.Entry, error) {
	target := dir

	if lba, ok := dir.ChildLink(); ok && r.opts.RockRidgeEnabled {
		if visited[lba] {
			return nil, fmt.Errorf("%w: child link at lba %d", isoerr.ErrRelocationCycle, lba)
		}
		real, err := r.loadSelfRecord(lba)
		if err != nil {
			return nil, fmt.Errorf("%w: child link at lba %d: %v", isoerr.ErrRelocationDangling, lba, err)
		}
		visited = withVisited(visited, lba)
		target = directory.NewEntry(real, r.src, r.opts, r.logger, dir.FullPath())
		target.SetSuspSkipBytes(r.suspSkipBytes)
	}

	raw, err := target.ReadDir()
	if err != nil {
		return nil, err
	}

	children := make([]*directory.Entry, 0, len(raw))
	for _, child := range raw {
		if r.opts.RockRidgeEnabled && child.IsRelocated() {
			continue
		}
		children = append(children, child)
	}
	return mergeMultiExtent(children), nil
}

// mergeMultiExtent collapses a run of consecutive sibling records sharing
// one file identifier, linked by FileFlags.MultiExtent (ECMA-119 6.5.2),
// into the first record's Entry carrying every extent in the run. Callers
// see one logical file instead of N directory entries with the same name.
func mergeMultiExtent(children []*directory.Entry) []*directory.Entry {
	merged := make([]*directory.Entry, 0, len(children))
	for i := 0; i < len(children); {
		entry := children[i]
		i++
		if !entry.Record().FileFlags.MultiExtent {
			merged = append(merged, entry)
			continue
		}

		var extents []block.Extent
		identifier := entry.Record().FileIdentifier
		for i < len(children) && children[i].Record().FileIdentifier == identifier {
			rec := children[i].Record()
			extents = append(extents, block.Extent{LBA: rec.LocationOfExtent, Length: rec.DataLength})
			i++
			if !rec.FileFlags.MultiExtent {
				break
			}
		}
		entry.SetExtraExtents(extents)
		merged = append(merged, entry)
	}
	return merged
}

func withVisited(visited map[uint32]bool, lba uint32) map[uint32]bool {
	next := make(map[uint32]bool, len(visited)+1)
	for k, v := range visited {
		next[k] = v
	}
	next[lba] = true
	return next
}

// loadSelfRecord decodes the "." self-record at the start of the directory
// extent at lba, which carries that directory's own fixed fields (extent
// location, data length) and System Use area — everything ReadDir needs to
// walk the relocated directory's real children.
func (r *Resolver) loadSelfRecord(lba uint32) (*directory.Record, error) {
	buf, err := r.src.ReadSector(lba)
	if err != nil {
		return nil, err
	}
	if len(buf) == 0 {
		return nil, fmt.Errorf("namespace: empty sector at lba %d", lba)
	}

	recLen := int(buf[0])
	if recLen == 0 || recLen > len(buf) {
		return nil, fmt.Errorf("namespace: malformed self record at lba %d", lba)
	}

	rec := directory.NewRecord(r.logger)
	if err := rec.Unmarshal(buf[:recLen], r.opts.StrictBothEndian, false); err != nil {
		return nil, err
	}
	if n := len(rec.SystemUse); n > 0 {
		rec.SUSPArea.LBA = lba
		rec.SUSPArea.Offset = recLen - n
		rec.SUSPArea.Length = n
	}
	return rec, nil
}
