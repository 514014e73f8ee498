//go:build windows

package tarfs

import (
	"io/fs"
	"os"

	"github.com/elliotnunn/gotar/tar"
)

// NewOSAdapter returns the default MetadataAdapter for the running
// platform. Windows has no notion of the POSIX uid/gid/device-number/xattr
// model, so Metadata always returns (nil, nil); FileInfoHeader falls back
// to whatever fs.FileInfo itself carries.
func NewOSAdapter() MetadataAdapter { return osAdapter{} }

type osAdapter struct{}

func (osAdapter) Lstat(name string) (fs.FileInfo, error) { return os.Lstat(name) }
func (osAdapter) Readlink(name string) (string, error)   { return os.Readlink(name) }

func (osAdapter) Metadata(name string, fi fs.FileInfo) (*tar.FileMeta, error) {
	return nil, nil
}

// Lchown is a no-op on Windows.
func Lchown(name string, uid, gid int) error { return nil }
