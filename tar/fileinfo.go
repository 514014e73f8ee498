// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tar

import (
	"errors"
	"io/fs"
	"time"
)

// HeaderMode controls which fields FileInfoHeader copies out of an
// fs.FileInfo (and, where supported, its underlying Sys value).
type HeaderMode int

const (
	// HeaderModeComplete copies every field FileInfoHeader can discover:
	// full permission bits, ownership, and all three timestamps.
	HeaderModeComplete HeaderMode = iota

	// HeaderModeDeterministic zeroes every field that would make two
	// archives of identical file trees byte-for-byte different: ownership
	// is not copied and every timestamp is zeroed.
	HeaderModeDeterministic

	// HeaderModeClampMtime is like HeaderModeComplete, but AccessTime and
	// ChangeTime are omitted and ModTime is clamped at the given instant,
	// so archives cannot carry future timestamps.
	HeaderModeClampMtime
)

// FileInfoHeader creates a partially-populated Header from fi, following
// mode's policy. link is the target path for symlinks (fs.FileInfo does not
// carry it); it is ignored for every other file type.
func FileInfoHeader(fi fs.FileInfo, link string, mode HeaderMode, clampAt time.Time) (*Header, error) {
	if fi == nil {
		return nil, errors.New("tar: FileInfoHeader: fi is nil")
	}
	fm := fi.Mode()
	h := &Header{
		Name:    fi.Name(),
		ModTime: fi.ModTime(),
		Mode:    int64(fm.Perm()),
	}
	switch {
	case fm.IsRegular():
		h.Typeflag = TypeReg
		h.Size = fi.Size()
	case fi.IsDir():
		h.Typeflag = TypeDir
		h.Name += "/"
	case fm&fs.ModeSymlink != 0:
		h.Typeflag = TypeSymlink
		h.Linkname = link
	case fm&fs.ModeDevice != 0:
		if fm&fs.ModeCharDevice != 0 {
			h.Typeflag = TypeChar
		} else {
			h.Typeflag = TypeBlock
		}
	case fm&fs.ModeNamedPipe != 0:
		h.Typeflag = TypeFifo
	case fm&fs.ModeSocket != 0:
		return nil, errors.New("tar: sockets are not supported")
	default:
		return nil, ErrUnsupportedType
	}

	if fm&fs.ModeSetuid != 0 {
		h.Mode |= cISUID
	}
	if fm&fs.ModeSetgid != 0 {
		h.Mode |= cISGID
	}
	if fm&fs.ModeSticky != 0 {
		h.Mode |= cISVTX
	}

	if meta, ok := fi.Sys().(*FileMeta); ok && meta != nil {
		applyFileMeta(h, meta, mode)
	}

	switch mode {
	case HeaderModeDeterministic:
		h.Uid, h.Gid, h.Uname, h.Gname = 0, 0, "", ""
		h.ModTime, h.AccessTime, h.ChangeTime = time.Time{}, time.Time{}, time.Time{}
		h.Devmajor, h.Devminor = 0, 0
		if h.Typeflag == TypeDir || h.Mode&0o100 != 0 {
			h.Mode = 0o755
		} else {
			h.Mode = 0o644
		}
	case HeaderModeClampMtime:
		h.AccessTime, h.ChangeTime = time.Time{}, time.Time{}
		if !clampAt.IsZero() && h.ModTime.After(clampAt) {
			h.ModTime = clampAt
		}
	}
	return h, nil
}

// FileMeta is the additional per-file metadata FileInfoHeader will fold
// into a Header when it finds one behind fs.FileInfo.Sys(): ownership,
// access/change times, device numbers, and extended attributes. Adapters
// that walk a real filesystem return FileInfo values whose Sys method
// produces one of these.
type FileMeta struct {
	Uid, Gid           int
	Uname, Gname       string
	AccessTime         time.Time
	ChangeTime         time.Time
	Devmajor, Devminor int64
	Xattrs             map[string]string
}

func applyFileMeta(h *Header, m *FileMeta, mode HeaderMode) {
	h.Uid, h.Gid = m.Uid, m.Gid
	h.Uname, h.Gname = m.Uname, m.Gname
	h.Devmajor, h.Devminor = m.Devmajor, m.Devminor
	if len(m.Xattrs) > 0 {
		h.Xattrs = make(map[string]string, len(m.Xattrs))
		for k, v := range m.Xattrs {
			h.Xattrs[k] = v
		}
	}
	if mode == HeaderModeComplete {
		h.AccessTime, h.ChangeTime = m.AccessTime, m.ChangeTime
	}
}
