package isofs

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sector9660/isofs/pkg/directory"
	"github.com/sector9660/isofs/pkg/fileio"
)

// File is a regular file's entry, readable through its Handle's block
// source. A multi-extent file's extents are already concatenated by the
// time Handle.Open hands one back.
type File struct {
	handle *Handle
	entry  *directory.Entry
	reader *fileio.File
}

func newFile(h *Handle, entry *directory.Entry) *File {
	return &File{
		handle: h,
		entry:  entry,
		reader: fileio.New(h.src, entry.Extents()),
	}
}

// Entry returns the underlying directory entry.
func (f *File) Entry() *directory.Entry { return f.entry }

// Size returns the file's total length in bytes.
func (f *File) Size() int64 { return f.reader.Size() }

// ReadAt implements io.ReaderAt over the file's (possibly multi-extent)
// data.
func (f *File) ReadAt(p []byte, off int64) (int, error) { return f.reader.ReadAt(p, off) }

// Bytes reads the file's entire contents into memory.
func (f *File) Bytes() ([]byte, error) {
	buf := make([]byte, f.Size())
	if _, err := io.ReadFull(io.NewSectionReader(f.reader, 0, f.Size()), buf); err != nil {
		return nil, fmt.Errorf("isofs: reading %s: %w", f.entry.FullPath(), err)
	}
	return buf, nil
}

// MD5 computes the file's MD5 digest without holding its full contents in
// memory at once beyond what io.Copy buffers internally.
func (f *File) MD5() (string, error) {
	return f.digest(md5.New())
}

// SHA256 computes the file's SHA-256 digest.
func (f *File) SHA256() (string, error) {
	return f.digest(sha256.New())
}

func (f *File) digest(h hashWriter) (string, error) {
	if _, err := io.Copy(h, io.NewSectionReader(f.reader, 0, f.Size())); err != nil {
		return "", fmt.Errorf("isofs: hashing %s: %w", f.entry.FullPath(), err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

type hashWriter interface {
	io.Writer
	Sum(b []byte) []byte
}

// ExtractToDisk writes this file's contents to outputDir, joined with the
// entry's full path, preserving its permission bits when a Rock Ridge PX
// entry supplies them and its recording date as mtime when one is
// specified.
func (f *File) ExtractToDisk(outputDir string) error {
	outputPath := filepath.Join(outputDir, f.entry.FullPath())

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return fmt.Errorf("isofs: creating parent directories for %s: %w", outputPath, err)
	}

	outFile, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("isofs: creating %s: %w", outputPath, err)
	}
	defer outFile.Close()

	if _, err := io.Copy(outFile, io.NewSectionReader(f.reader, 0, f.Size())); err != nil {
		return fmt.Errorf("isofs: writing %s: %w", outputPath, err)
	}

	if f.entry.Metadata().HasPosix {
		mode := f.entry.Mode()
		if err := os.Chmod(outputPath, mode.Perm()); err != nil {
			return fmt.Errorf("isofs: setting permissions on %s: %w", outputPath, err)
		}
	}
	modTime := f.entry.ModTime()
	if !modTime.IsZero() {
		if err := os.Chtimes(outputPath, modTime, modTime); err != nil {
			return fmt.Errorf("isofs: setting timestamps on %s: %w", outputPath, err)
		}
	}

	return nil
}

// ExtractFiles walks the whole tree under root (the image root, if nil),
// recreating every directory and writing every regular file under
// outputDir. Symlinks are skipped: reproducing Rock Ridge symlink targets
// on a non-POSIX extraction target is out of scope.
func (h *Handle) ExtractFiles(outputDir string, root *directory.Entry) error {
	return h.Walk(root, func(entry *directory.Entry) error {
		fullPath := filepath.Join(outputDir, entry.FullPath())
		name := entry.Name()
		if name == "" || name == "." || name == ".." {
			return nil
		}

		if entry.IsDir() {
			return os.MkdirAll(fullPath, 0o755)
		}
		if entry.IsSymlink() {
			return nil
		}

		file := newFile(h, entry)
		if h.opts.ProgressCallback != nil {
			h.opts.ProgressCallback(entry.FullPath(), 0, file.Size())
		}
		if err := file.ExtractToDisk(outputDir); err != nil {
			return err
		}
		if h.opts.ProgressCallback != nil {
			h.opts.ProgressCallback(entry.FullPath(), file.Size(), file.Size())
		}
		return nil
	})
}

// ExtractAll extracts every file plus, if the disc carries an El Torito
// boot catalog and o.ElToritoEnabled is set, the raw catalog sector itself
// under bootDir — interpreting the catalog's entries is out of scope.
func (h *Handle) ExtractAll(outputDir, bootDir string) error {
	if err := h.ExtractFiles(outputDir, nil); err != nil {
		return err
	}

	if !h.opts.ElToritoEnabled {
		return nil
	}
	lba, ok := h.HasElTorito()
	if !ok {
		return nil
	}

	catalog, err := h.src.ReadSector(lba)
	if err != nil {
		return fmt.Errorf("isofs: reading el torito boot catalog at lba %d: %w", lba, err)
	}
	if err := os.MkdirAll(bootDir, 0o755); err != nil {
		return fmt.Errorf("isofs: creating %s: %w", bootDir, err)
	}
	catalogPath := filepath.Join(bootDir, "boot.catalog")
	return os.WriteFile(catalogPath, catalog, 0o644)
}
