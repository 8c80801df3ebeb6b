// Package testing holds fixture-comparison helpers for validating a
// decoded disc against a ground-truth listing captured from a reference
// tool (7-Zip, xorriso, ...) on a real-world ISO image. Nothing here runs
// as part of the unit test suite; it is driven manually against fixtures
// that are too large to check in.
package testing

import (
	"github.com/sector9660/isofs"
	"github.com/sector9660/isofs/pkg/directory"
)

// Counts walks the tree rooted at root (the whole image, if root is nil)
// and returns how many directory and non-directory entries (regular files,
// symlinks and other nodes alike) it contains. The root entry itself is
// not counted.
func Counts(h *isofs.Handle, root *directory.Entry) (dirs, files int, err error) {
	first := true
	err = h.Walk(root, func(entry *directory.Entry) error {
		if first {
			first = false
			return nil
		}
		if entry.IsDir() {
			dirs++
		} else if entry.Name() != "" && entry.Name() != "." && entry.Name() != ".." {
			files++
		}
		return nil
	})
	return dirs, files, err
}
