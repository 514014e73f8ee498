// Package tarfs bridges a real filesystem and the tar package: it supplies
// the metadata (ownership, device numbers, extended attributes) that
// fs.FileInfo alone cannot carry, and a set of Append* helpers that walk a
// filesystem and write its contents into a tar.Writer.
package tarfs

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/elliotnunn/gotar/tar"
)

// MetadataAdapter abstracts the filesystem operations AppendPath and its
// siblings need beyond what io/fs already provides: reading ownership,
// device numbers, and extended attributes. The default,
// OS-backed implementation is returned by NewOSAdapter; tests and
// non-Unix-like backends can supply their own.
type MetadataAdapter interface {
	// Lstat stats name without following a trailing symlink.
	Lstat(name string) (fs.FileInfo, error)

	// Readlink returns the target of the symlink at name.
	Readlink(name string) (string, error)

	// Metadata extracts the ownership/device/xattr fields FileInfoHeader
	// cannot get from fi alone. It returns (nil, nil) for platforms or
	// file types that carry none of this (e.g. Windows).
	Metadata(name string, fi fs.FileInfo) (*tar.FileMeta, error)
}

// AppendFile writes the single regular file, directory (as a header-only
// entry), symlink, device node, or FIFO at fsPath into tw under
// archiveName, using meta to fill in ownership and device-number metadata.
// It does not recurse into directories; use AppendDirAll for that.
//
// clampAt is the ceiling HeaderModeClampMtime applies; it is ignored for
// every other HeaderMode.
func AppendFile(tw *tar.Writer, meta MetadataAdapter, fsPath, archiveName string, headerMode tar.HeaderMode, clampAt time.Time) error {
	fi, err := meta.Lstat(fsPath)
	if err != nil {
		return err
	}
	return appendEntry(tw, meta, fsPath, archiveName, fi, headerMode, clampAt)
}

// AppendLink writes a hard-link entry: archiveName will, on extraction,
// refer back to linkToArchiveName rather than carrying its own body.
func AppendLink(tw *tar.Writer, archiveName, linkToArchiveName string) error {
	hdr := &tar.Header{
		Typeflag: tar.TypeLink,
		Name:     archiveName,
		Linkname: linkToArchiveName,
	}
	return tw.WriteHeader(hdr)
}

// AppendPath is the same as AppendFile: directories are written as a
// header-only entry with no body, and it does not recurse; use
// AppendDirAll for that.
func AppendPath(tw *tar.Writer, meta MetadataAdapter, fsPath, archiveName string, headerMode tar.HeaderMode, clampAt time.Time) error {
	return AppendFile(tw, meta, fsPath, archiveName, headerMode, clampAt)
}

// AppendDirAll walks the directory tree rooted at fsRoot and appends every
// file, directory, symlink, and special file it contains to tw, under
// archive paths rooted at archivePrefix. Entries are written in
// lexicographic path order for reproducibility.
//
// When followSymlinks is true, a symlink is archived as whatever file it
// resolves to (a regular file or a header-only directory entry) rather than
// as a symlink entry; filepath.WalkDir still does not descend through a
// symlinked directory's children.
//
// clampAt is the ceiling HeaderModeClampMtime applies; it is ignored for
// every other HeaderMode.
func AppendDirAll(tw *tar.Writer, meta MetadataAdapter, fsRoot, archivePrefix string, headerMode tar.HeaderMode, followSymlinks bool, clampAt time.Time) error {
	return filepath.WalkDir(fsRoot, func(fsPath string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(fsRoot, fsPath)
		if err != nil {
			return err
		}
		archiveName := archivePrefix
		if rel != "." {
			archiveName = path.Join(archivePrefix, filepath.ToSlash(rel))
		}
		if archiveName == "" {
			archiveName = "."
		}

		fi, err := d.Info()
		if err != nil {
			return err
		}
		if fi.Mode()&os.ModeSymlink != 0 {
			if followSymlinks {
				fi, err = os.Stat(fsPath)
				if err != nil {
					return err
				}
			} else {
				fi, err = meta.Lstat(fsPath)
				if err != nil {
					return err
				}
			}
		}
		return appendEntry(tw, meta, fsPath, archiveName, fi, headerMode, clampAt)
	})
}

func appendEntry(tw *tar.Writer, meta MetadataAdapter, fsPath, archiveName string, fi fs.FileInfo, headerMode tar.HeaderMode, clampAt time.Time) error {
	var link string
	if fi.Mode()&os.ModeSymlink != 0 {
		var err error
		link, err = meta.Readlink(fsPath)
		if err != nil {
			return err
		}
	}

	fm, err := meta.Metadata(fsPath, fi)
	if err != nil {
		return fmt.Errorf("tarfs: reading metadata for %s: %w", fsPath, err)
	}

	hdr, err := tar.FileInfoHeader(sysInfo{fi, fm}, link, headerMode, clampAt)
	if err != nil {
		return fmt.Errorf("tarfs: building header for %s: %w", fsPath, err)
	}
	hdr.Name = archiveName
	if hdr.Typeflag == tar.TypeDir && hdr.Name != "" && hdr.Name[len(hdr.Name)-1] != '/' {
		hdr.Name += "/"
	}

	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}
	if hdr.Typeflag != tar.TypeReg {
		return nil
	}

	f, err := os.Open(fsPath)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.CopyN(tw, f, hdr.Size)
	if err == io.EOF {
		err = nil
	}
	return err
}

// sysInfo overrides fi.Sys so tar.FileInfoHeader can discover fm.
type sysInfo struct {
	fs.FileInfo
	fm *tar.FileMeta
}

func (s sysInfo) Sys() any { return s.fm }
