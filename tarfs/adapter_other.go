//go:build !linux && !windows

package tarfs

import (
	"io/fs"
	"os"
	"syscall"
	"time"

	"github.com/elliotnunn/gotar/tar"
)

// NewOSAdapter returns the default MetadataAdapter for the running
// platform. On non-Linux Unix systems this carries ownership and
// timestamps but not extended attributes or device-node creation, since
// their syscalls are not uniform across BSD/Darwin.
func NewOSAdapter() MetadataAdapter { return osAdapter{} }

type osAdapter struct{}

func (osAdapter) Lstat(name string) (fs.FileInfo, error) { return os.Lstat(name) }
func (osAdapter) Readlink(name string) (string, error)   { return os.Readlink(name) }

func (osAdapter) Metadata(name string, fi fs.FileInfo) (*tar.FileMeta, error) {
	st, ok := fi.Sys().(*syscall.Stat_t)
	if !ok {
		return nil, nil
	}
	return &tar.FileMeta{
		Uid:        int(st.Uid),
		Gid:        int(st.Gid),
		AccessTime: time.Unix(st.Atimespec.Unix()),
		ChangeTime: time.Unix(st.Ctimespec.Unix()),
	}, nil
}

// Lchown sets ownership on name without following a trailing symlink.
func Lchown(name string, uid, gid int) error { return os.Lchown(name, uid, gid) }
