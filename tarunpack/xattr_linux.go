//go:build linux

package tarunpack

import "golang.org/x/sys/unix"

func setXattrs(path string, xattrs map[string]string) error {
	for k, v := range xattrs {
		if err := unix.Lsetxattr(path, k, []byte(v), 0); err != nil {
			return err
		}
	}
	return nil
}
