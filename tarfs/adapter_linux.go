//go:build linux

package tarfs

import (
	"io/fs"
	"os"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"github.com/elliotnunn/gotar/tar"
)

// NewOSAdapter returns the default MetadataAdapter for the running
// platform, backed by the real filesystem and, on Linux, golang.org/x/sys/unix
// for device numbers and extended attributes.
func NewOSAdapter() MetadataAdapter { return osAdapter{} }

type osAdapter struct{}

func (osAdapter) Lstat(name string) (fs.FileInfo, error) { return os.Lstat(name) }
func (osAdapter) Readlink(name string) (string, error)   { return os.Readlink(name) }

func (osAdapter) Metadata(name string, fi fs.FileInfo) (*tar.FileMeta, error) {
	st, ok := fi.Sys().(*syscall.Stat_t)
	if !ok {
		return nil, nil
	}
	m := &tar.FileMeta{
		Uid:        int(st.Uid),
		Gid:        int(st.Gid),
		AccessTime: time.Unix(st.Atim.Sec, st.Atim.Nsec),
		ChangeTime: time.Unix(st.Ctim.Sec, st.Ctim.Nsec),
	}
	if fi.Mode()&os.ModeDevice != 0 {
		m.Devmajor = int64(unix.Major(uint64(st.Rdev)))
		m.Devminor = int64(unix.Minor(uint64(st.Rdev)))
	}
	if xattrs, err := readXattrs(name, fi.Mode()&os.ModeSymlink != 0); err == nil {
		m.Xattrs = xattrs
	}
	return m, nil
}

// readXattrs reads every extended attribute set on name, using the
// l-variant syscalls when the entry itself is a symlink so the link (not
// its target) is inspected.
func readXattrs(name string, isSymlink bool) (map[string]string, error) {
	listFn := unix.Listxattr
	getFn := unix.Getxattr
	if isSymlink {
		listFn = unix.Llistxattr
		getFn = unix.Lgetxattr
	}

	size, err := listFn(name, nil)
	if err != nil || size <= 0 {
		return nil, err
	}
	namesBuf := make([]byte, size)
	n, err := listFn(name, namesBuf)
	if err != nil {
		return nil, err
	}
	namesBuf = namesBuf[:n]

	out := make(map[string]string)
	for _, attr := range splitNUL(namesBuf) {
		if attr == "" {
			continue
		}
		vsz, err := getFn(name, attr, nil)
		if err != nil || vsz <= 0 {
			continue
		}
		val := make([]byte, vsz)
		vn, err := getFn(name, attr, val)
		if err != nil {
			continue
		}
		out[attr] = string(val[:vn])
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}

func splitNUL(b []byte) []string {
	var out []string
	start := 0
	for i, c := range b {
		if c == 0 {
			out = append(out, string(b[start:i]))
			start = i + 1
		}
	}
	return out
}

// Mknod creates a device node or FIFO at name per hdr, used by the unpack
// engine when recreating special files. It requires CAP_MKNOD for device
// nodes outside a container's allowed set.
func Mknod(name string, hdr *tar.Header) error {
	var mode uint32
	switch hdr.Typeflag {
	case tar.TypeChar:
		mode = unix.S_IFCHR
	case tar.TypeBlock:
		mode = unix.S_IFBLK
	case tar.TypeFifo:
		mode = unix.S_IFIFO
	default:
		return nil
	}
	dev := unix.Mkdev(uint32(hdr.Devmajor), uint32(hdr.Devminor))
	return unix.Mknod(name, mode|uint32(hdr.Mode&0o7777), int(dev))
}

// Lchown sets ownership on name without following a trailing symlink.
func Lchown(name string, uid, gid int) error { return os.Lchown(name, uid, gid) }
