//go:build !linux

package tarunpack

import (
	"log/slog"

	"github.com/elliotnunn/gotar/tar"
	"github.com/elliotnunn/gotar/tarfs"
)

// writeSpecial is a no-op everywhere device-node creation isn't wired
// (non-Linux): the entry is reported as unsupported so the caller can
// choose whether to skip it via Options.SkipUnsupportedTypes.
func writeSpecial(dest string, hdr *tar.Header, opts Options, logger *slog.Logger) error {
	return errUnsupportedSpecial
}

func lchown(name string, uid, gid int) error { return tarfs.Lchown(name, uid, gid) }
