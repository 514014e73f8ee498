// Package tarunpack safely extracts a tar archive onto a real filesystem,
// defending against path traversal and symlink-pivot attacks and letting
// callers filter, digest, and tune metadata handling as they go.
package tarunpack

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/elliotnunn/gotar/tar"
	"github.com/elliotnunn/gotar/tar/internal/pathsan"
)

// Options controls how Unpack recreates archive entries on disk.
type Options struct {
	// Root is the directory entries are extracted into. It is created if
	// missing.
	Root string

	// Include and Exclude are doublestar glob patterns (see
	// github.com/bmatcuk/doublestar) evaluated against each entry's
	// archive-relative path. An entry is extracted only if Include is
	// empty or matches, and Exclude does not match.
	Include []string
	Exclude []string

	// PreservePermissions applies the archived file mode; otherwise files
	// are created with the process umask's usual default.
	PreservePermissions bool

	// Mask holds bits cleared from every mode before it is applied, an
	// umask analogue that takes effect only when PreservePermissions is
	// set. Zero (the default) clears nothing.
	Mask fs.FileMode

	// PreserveOwnerships chown/lchowns extracted entries to the archived
	// uid/gid. Requires appropriate privilege; failures are handled per
	// StrictMetadata.
	PreserveOwnerships bool

	// PreserveMtime sets extracted files' modification time to the
	// archived ModTime rather than leaving it at creation time.
	PreserveMtime bool

	// UnpackXattrs restores extended attributes recorded under the
	// "SCHILY.xattr." PAX namespace. Failures are handled per
	// StrictMetadata.
	UnpackXattrs bool

	// Overwrite allows extraction to replace an existing file, symlink,
	// or empty directory at the destination path.
	Overwrite bool

	// SkipUnsupportedTypes silently drops char/block/fifo entries on
	// platforms (or adapters) that cannot recreate them, instead of
	// failing the whole extraction.
	SkipUnsupportedTypes bool

	// StrictMetadata turns ownership/xattr-restore failures into a fatal
	// error instead of a logged warning.
	StrictMetadata bool

	// Digest, if non-nil, is called with every regular file's
	// archive-relative name and content digest as it is extracted. See
	// ManifestDigester.
	Digest Digester

	// Logger receives non-fatal metadata-restore warnings. Skipped entries
	// are not logged; they are listed in Result.Skipped. Defaults to
	// slog.Default() when nil.
	Logger *slog.Logger
}

// Digester receives one callback per regular-file entry extracted.
type Digester interface {
	Record(name string, sum uint64)
}

// Result summarizes a completed extraction.
type Result struct {
	FilesWritten   int
	DirsWritten    int
	SymlinksMade   int
	SpecialsMade   int
	Skipped        []string
}

// Unpack reads every entry from tr and recreates it under opts.Root,
// stopping at the first error (other than a filtered-out entry, which is
// simply skipped).
func Unpack(tr *tar.Reader, opts Options) (*Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(opts.Root, 0o755); err != nil {
		return nil, fmt.Errorf("tarunpack: creating root: %w", err)
	}

	res := &Result{}
	var pendingDirs []pendingDir // deferred mtime fixups, applied after children are written

	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return res, err
		}

		rel, err := pathsan.Clean(hdr.Name)
		if err != nil {
			// A path with a ".." component (or one that stays absolute once
			// its leading slashes are stripped) is a traversal attempt, not
			// an ordinary error: skip the entry rather than aborting the
			// whole unpack, matching bsdtar.
			res.Skipped = append(res.Skipped, hdr.Name)
			continue
		}
		if rel == "." {
			continue
		}

		if !matches(rel, opts.Include, opts.Exclude) {
			res.Skipped = append(res.Skipped, hdr.Name)
			continue
		}

		dir, base, err := pathsan.ResolveWithinRoot(opts.Root, rel)
		if err != nil {
			// A symlink-pivot escape is likewise skipped rather than fatal.
			res.Skipped = append(res.Skipped, hdr.Name)
			continue
		}
		dest := filepath.Join(dir, base)

		if err := os.MkdirAll(dir, 0o755); err != nil {
			return res, err
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := writeDir(dest, hdr, opts); err != nil {
				return res, err
			}
			res.DirsWritten++
			pendingDirs = append(pendingDirs, pendingDir{dest, hdr.ModTime})

		case tar.TypeSymlink:
			if err := writeSymlink(dest, hdr, opts); err != nil {
				return res, err
			}
			res.SymlinksMade++

		case tar.TypeLink:
			if err := writeHardlink(dest, opts.Root, hdr, opts); err != nil {
				if errors.Is(err, pathsan.ErrEscapes) || errors.Is(err, pathsan.ErrTooManySymlinks) {
					res.Skipped = append(res.Skipped, hdr.Name)
					continue
				}
				return res, err
			}

		case tar.TypeChar, tar.TypeBlock, tar.TypeFifo:
			if err := writeSpecial(dest, hdr, opts, logger); err != nil {
				if opts.SkipUnsupportedTypes && errors.Is(err, errUnsupportedSpecial) {
					res.Skipped = append(res.Skipped, hdr.Name)
					continue
				}
				return res, err
			}
			res.SpecialsMade++

		case tar.TypeReg, tar.TypeRegA, tar.TypeCont, tar.TypeGNUSparse:
			n, err := writeRegular(dest, tr, hdr, opts)
			if err != nil {
				return res, err
			}
			if opts.Digest != nil {
				opts.Digest.Record(rel, n)
			}
			res.FilesWritten++

		default:
			return res, fmt.Errorf("tarunpack: %s: unknown file type %#x: %w", hdr.Name, hdr.Typeflag, tar.ErrUnsupportedType)
		}

		if err := applyMetadata(dest, hdr, opts, logger); err != nil {
			return res, err
		}
	}

	// Apply directory mtimes last, in reverse (deepest first), since
	// writing a child updates its parent's mtime.
	for i := len(pendingDirs) - 1; i >= 0; i-- {
		pd := pendingDirs[i]
		if opts.PreserveMtime && !pd.mtime.IsZero() {
			_ = os.Chtimes(pd.path, pd.mtime, pd.mtime)
		}
	}
	return res, nil
}

type pendingDir struct {
	path  string
	mtime time.Time
}

var errUnsupportedSpecial = errors.New("tarunpack: unsupported special file type on this platform")

func writeDir(dest string, hdr *tar.Header, opts Options) error {
	mode := fs.FileMode(0o755)
	if opts.PreservePermissions {
		mode = fs.FileMode(hdr.Mode).Perm() &^ opts.Mask
	}
	if err := os.Mkdir(dest, mode); err != nil {
		if os.IsExist(err) {
			if opts.Overwrite || isDir(dest) {
				return nil
			}
			return fmt.Errorf("tarunpack: %s: %w", dest, tar.ErrExists)
		}
		return err
	}
	return nil
}

func isDir(p string) bool {
	fi, err := os.Stat(p)
	return err == nil && fi.IsDir()
}

func writeSymlink(dest string, hdr *tar.Header, opts Options) error {
	if opts.Overwrite {
		os.Remove(dest)
	}
	if err := os.Symlink(hdr.Linkname, dest); err != nil {
		if os.IsExist(err) {
			return fmt.Errorf("tarunpack: %s: %w", dest, tar.ErrExists)
		}
		return err
	}
	return nil
}

func removeIfExists(dest string) { os.Remove(dest) }

func writeHardlink(dest, root string, hdr *tar.Header, opts Options) error {
	targetRel, err := pathsan.Clean(hdr.Linkname)
	if err != nil {
		return fmt.Errorf("tarunpack: link target %q: %w", hdr.Linkname, err)
	}
	targetDir, targetBase, err := pathsan.ResolveWithinRoot(root, targetRel)
	if err != nil {
		return err
	}
	if opts.Overwrite {
		os.Remove(dest)
	}
	if err := os.Link(filepath.Join(targetDir, targetBase), dest); err != nil {
		if os.IsExist(err) {
			return fmt.Errorf("tarunpack: %s: %w", dest, tar.ErrExists)
		}
		return err
	}
	return nil
}

func writeRegular(dest string, tr *tar.Reader, hdr *tar.Header, opts Options) (uint64, error) {
	mode := fs.FileMode(0o644)
	if opts.PreservePermissions {
		mode = fs.FileMode(hdr.Mode).Perm() &^ opts.Mask
	}
	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !opts.Overwrite {
		flags |= os.O_EXCL
	}
	f, err := os.OpenFile(dest, flags, mode)
	if err != nil {
		if os.IsExist(err) {
			return 0, fmt.Errorf("tarunpack: %s: %w", dest, tar.ErrExists)
		}
		return 0, err
	}
	defer f.Close()

	var dw digestWriter
	w := io.Writer(f)
	if opts.Digest != nil {
		dw.reset()
		w = io.MultiWriter(f, &dw)
	}
	if _, err := io.Copy(w, tr); err != nil {
		return 0, err
	}
	return dw.sum(), nil
}

func applyMetadata(dest string, hdr *tar.Header, opts Options, logger *slog.Logger) error {
	if opts.PreserveMtime && hdr.Typeflag != tar.TypeDir && !hdr.ModTime.IsZero() {
		if err := os.Chtimes(dest, hdr.ModTime, hdr.ModTime); err != nil {
			warnOrFail(opts, logger, "set mtime", dest, err)
		}
	}
	if opts.PreserveOwnerships {
		if err := lchown(dest, hdr.Uid, hdr.Gid); err != nil {
			if err := warnOrFail(opts, logger, "chown", dest, err); err != nil {
				return err
			}
		}
	}
	if opts.UnpackXattrs && len(hdr.Xattrs) > 0 {
		if err := setXattrs(dest, hdr.Xattrs); err != nil {
			if err := warnOrFail(opts, logger, "set xattrs", dest, err); err != nil {
				return err
			}
		}
	}
	return nil
}

func warnOrFail(opts Options, logger *slog.Logger, op, path string, err error) error {
	if opts.StrictMetadata {
		return fmt.Errorf("tarunpack: %s %s: %w", op, path, err)
	}
	logger.Warn("tarunpack: non-fatal metadata error", "op", op, "path", path, "error", err)
	return nil
}
