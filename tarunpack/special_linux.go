//go:build linux

package tarunpack

import (
	"log/slog"

	"github.com/elliotnunn/gotar/tar"
	"github.com/elliotnunn/gotar/tarfs"
)

func writeSpecial(dest string, hdr *tar.Header, opts Options, logger *slog.Logger) error {
	if opts.Overwrite {
		removeIfExists(dest)
	}
	if err := tarfs.Mknod(dest, hdr); err != nil {
		return errUnsupportedSpecial
	}
	return nil
}

func lchown(name string, uid, gid int) error { return tarfs.Lchown(name, uid, gid) }
