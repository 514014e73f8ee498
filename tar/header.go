// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tar

import (
	"io/fs"
	"math"
	"path"
	"strings"
	"time"
)

// Type flags for Header.Typeflag.
const (
	TypeReg  = '0'
	TypeRegA = '\x00' // Deprecated: use TypeReg.

	TypeLink    = '1' // Hard link
	TypeSymlink = '2' // Symbolic link
	TypeChar    = '3' // Character device node
	TypeBlock   = '4' // Block device node
	TypeDir     = '5' // Directory
	TypeFifo    = '6' // FIFO node
	TypeCont    = '7' // Reserved

	TypeXHeader       = 'x' // PAX extended header, scoped to the next entry
	TypeXGlobalHeader = 'g' // PAX global extended header

	TypeGNUSparse   = 'S' // GNU old-style sparse file
	TypeGNULongName = 'L' // GNU long-name meta-entry
	TypeGNULongLink = 'K' // GNU long-link meta-entry
)

// Keywords for PAX extended header records.
const (
	paxPath     = "path"
	paxLinkpath = "linkpath"
	paxSize     = "size"
	paxUid      = "uid"
	paxGid      = "gid"
	paxUname    = "uname"
	paxGname    = "gname"
	paxMtime    = "mtime"
	paxAtime    = "atime"
	paxCtime    = "ctime"
	paxCharset  = "charset"
	paxComment  = "comment"

	paxSchilyXattr = "SCHILY.xattr."

	paxGNUSparse          = "GNU.sparse."
	paxGNUSparseNumBlocks = "GNU.sparse.numblocks"
	paxGNUSparseOffset    = "GNU.sparse.offset"
	paxGNUSparseNumBytes  = "GNU.sparse.numbytes"
	paxGNUSparseMap       = "GNU.sparse.map"
	paxGNUSparseName      = "GNU.sparse.name"
	paxGNUSparseMajor     = "GNU.sparse.major"
	paxGNUSparseMinor     = "GNU.sparse.minor"
	paxGNUSparseSize      = "GNU.sparse.size"
	paxGNUSparseRealSize  = "GNU.sparse.realsize"
)

// Header represents a single logical entry in a tar archive: the merged
// result of a real header block plus any preceding GNU long-name/long-link
// or PAX extended-header meta-entries.
//
// For forward compatibility, callers that obtain a Header from Reader.Next,
// mutate it, and pass it back to Writer.WriteHeader should do so via a copy
// (Header.Clone) rather than mutating the one handed back by Next.
type Header struct {
	Typeflag byte

	Name     string
	Linkname string

	Size  int64
	Mode  int64
	Uid   int
	Gid   int
	Uname string
	Gname string

	ModTime    time.Time
	AccessTime time.Time
	ChangeTime time.Time

	Devmajor int64
	Devminor int64

	// Xattrs stores extended attributes under the "SCHILY.xattr." PAX
	// namespace. Deprecated: use PAXRecords directly.
	Xattrs map[string]string

	// PAXRecords holds every PAX extended-header record observed (or, on
	// write, to be written) for this entry, including ones with no
	// corresponding Header field.
	PAXRecords map[string]string

	// Format is the format this Header was decoded from, or (on write) is
	// pinned to. FormatUnknown lets Writer pick the narrowest format that
	// can encode the Header.
	Format Format
}

// Clone returns a deep-enough copy of h suitable for mutation: the map
// fields are copied so that mutating the clone never mutates h.
func (h *Header) Clone() *Header {
	h2 := new(Header)
	*h2 = *h
	if h.Xattrs != nil {
		h2.Xattrs = make(map[string]string, len(h.Xattrs))
		for k, v := range h.Xattrs {
			h2.Xattrs[k] = v
		}
	}
	if h.PAXRecords != nil {
		h2.PAXRecords = make(map[string]string, len(h.PAXRecords))
		for k, v := range h.PAXRecords {
			h2.PAXRecords[k] = v
		}
	}
	return h2
}

// sparseEntry represents a Length-sized fragment at Offset in the file.
type sparseEntry struct{ Offset, Length int64 }

func (s sparseEntry) endOffset() int64 { return s.Offset + s.Length }

// sparseDatas lists the fragments of a sparse file that *do* carry data;
// sparseHoles lists the fragments that are holes (implicit zeros). The two
// representations are dual: either can be derived from the other plus the
// total size, via invertSparseEntries.
type (
	sparseDatas []sparseEntry
	sparseHoles []sparseEntry
)

// validateSparseEntries reports whether sp is well-formed: entries sorted
// by non-decreasing, non-overlapping offset, none negative, none
// overflowing, and none extending past size.
func validateSparseEntries(sp []sparseEntry, size int64) bool {
	if size < 0 {
		return false
	}
	var pre sparseEntry
	for _, cur := range sp {
		switch {
		case cur.Offset < 0 || cur.Length < 0:
			return false
		case cur.Offset > math.MaxInt64-cur.Length:
			return false // overflow
		case cur.endOffset() > size:
			return false
		case pre.endOffset() > cur.Offset:
			return false
		}
		pre = cur
	}
	return true
}

// invertSparseEntries converts a sparse map from one form (datas/holes) to
// the other. The input must already be validated. The result is normalized:
// adjacent fragments coalesced, only the final fragment possibly empty, and
// the final fragment's end equal to size.
func invertSparseEntries(src []sparseEntry, size int64) []sparseEntry {
	dst := src[:0]
	var pre sparseEntry
	for _, cur := range src {
		if cur.Length == 0 {
			continue
		}
		pre.Length = cur.Offset - pre.Offset
		if pre.Length > 0 {
			dst = append(dst, pre)
		}
		pre.Offset = cur.endOffset()
	}
	pre.Length = size - pre.Offset
	return append(dst, pre)
}

// isHeaderOnlyType reports whether flag's entries never carry a data body,
// regardless of a nonzero Size field.
func isHeaderOnlyType(flag byte) bool {
	switch flag {
	case TypeLink, TypeSymlink, TypeChar, TypeBlock, TypeDir, TypeFifo:
		return true
	default:
		return false
	}
}

// isMetaType reports whether flag identifies a meta-entry merged away by
// Reader rather than surfaced as its own logical entry.
func isMetaType(flag byte) bool {
	switch flag {
	case TypeGNULongName, TypeGNULongLink, TypeXHeader, TypeXGlobalHeader:
		return true
	default:
		return false
	}
}

const (
	cISUID = 04000
	cISGID = 02000
	cISVTX = 01000

	cISDIR  = 040000
	cISFIFO = 010000
	cISREG  = 0100000
	cISLNK  = 0120000
	cISBLK  = 060000
	cISCHR  = 020000
	cISSOCK = 0140000
)

// FileInfo returns an fs.FileInfo for the Header.
func (h *Header) FileInfo() fs.FileInfo { return headerFileInfo{h} }

type headerFileInfo struct{ h *Header }

func (fi headerFileInfo) Size() int64        { return fi.h.Size }
func (fi headerFileInfo) IsDir() bool        { return fi.Mode().IsDir() }
func (fi headerFileInfo) ModTime() time.Time { return fi.h.ModTime }
func (fi headerFileInfo) Sys() any           { return fi.h }

func (fi headerFileInfo) Name() string {
	if fi.IsDir() {
		return path.Base(path.Clean(fi.h.Name))
	}
	return path.Base(fi.h.Name)
}

func (fi headerFileInfo) Mode() (mode fs.FileMode) {
	mode = fs.FileMode(fi.h.Mode).Perm()
	switch {
	case fi.h.Mode&cISUID != 0:
		mode |= fs.ModeSetuid
	}
	switch {
	case fi.h.Mode&cISGID != 0:
		mode |= fs.ModeSetgid
	}
	switch {
	case fi.h.Mode&cISVTX != 0:
		mode |= fs.ModeSticky
	}
	switch fi.h.Typeflag {
	case TypeSymlink:
		mode |= fs.ModeSymlink
	case TypeChar:
		mode |= fs.ModeDevice | fs.ModeCharDevice
	case TypeBlock:
		mode |= fs.ModeDevice
	case TypeDir:
		mode |= fs.ModeDir
	case TypeFifo:
		mode |= fs.ModeNamedPipe
	}
	return mode
}

func (fi headerFileInfo) String() string { return fs.FormatFileInfo(fi) }

// normalizeSlashes rewrites Windows-style separators to the archive's
// canonical forward slash.
func normalizeSlashes(s string) string {
	if !strings.ContainsRune(s, '\\') {
		return s
	}
	return strings.ReplaceAll(s, `\`, "/")
}
