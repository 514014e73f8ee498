// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tar

import (
	"strconv"
	"strings"
	"time"
)

// decodeHeader unpacks a raw 512-byte block into a Header. It does not
// merge any preceding PAX/GNU meta-entry overrides; that is Reader's job.
func decodeHeader(blk *Block) (*Header, error) {
	format := blk.GetFormat()
	if format == FormatUnknown {
		return nil, ErrHeaderChecksum
	}

	var p parser
	hdr := new(Header)

	v7 := blk.V7()
	hdr.Typeflag = v7.typeFlag()[0]
	hdr.Name = p.parseString(v7.name())
	hdr.Linkname = p.parseString(v7.linkName())
	hdr.Size = p.parseNumeric(v7.size())
	hdr.Mode = p.parseNumeric(v7.mode())
	hdr.Uid = int(p.parseNumeric(v7.uid()))
	hdr.Gid = int(p.parseNumeric(v7.gid()))
	hdr.ModTime = time.Unix(p.parseNumeric(v7.modTime()), 0)

	if format > formatV7 {
		ustar := blk.USTAR()
		hdr.Uname = p.parseString(ustar.userName())
		hdr.Gname = p.parseString(ustar.groupName())
		hdr.Devmajor = p.parseNumeric(ustar.devMajor())
		hdr.Devminor = p.parseNumeric(ustar.devMinor())

		var prefix string
		switch {
		case format.has(FormatUSTAR | FormatPAX):
			hdr.Format = format
			prefix = p.parseString(ustar.prefix())
		case format.has(formatSTAR):
			star := blk.STAR()
			prefix = p.parseString(star.prefix())
			hdr.AccessTime = time.Unix(p.parseNumeric(star.accessTime()), 0)
			hdr.ChangeTime = time.Unix(p.parseNumeric(star.changeTime()), 0)
		case format.has(FormatGNU):
			hdr.Format = format
			gnu := blk.GNU()
			if b := gnu.accessTime(); b[0] != 0 {
				hdr.AccessTime = time.Unix(p.parseNumeric(b), 0)
			}
			if b := gnu.changeTime(); b[0] != 0 {
				hdr.ChangeTime = time.Unix(p.parseNumeric(b), 0)
			}
		}
		if len(prefix) > 0 {
			hdr.Name = prefix + "/" + hdr.Name
		}
	}
	return hdr, p.err
}

// legacyRegularize promotes the deprecated TypeRegA flag to TypeReg/TypeDir
// the way every real-world reader does: trailing-slash names are legacy
// directories.
func legacyRegularize(hdr *Header) {
	if hdr.Typeflag == TypeRegA {
		if strings.HasSuffix(hdr.Name, "/") {
			hdr.Typeflag = TypeDir
		} else {
			hdr.Typeflag = TypeReg
		}
	}
}

// pickFormat returns hdr.Format when the caller pinned one; otherwise it
// returns FormatUSTAR if hdr fits USTAR's fixed-width fields verbatim, and
// FormatUnknown (a PAX extended header is required) if it does not. GNU is
// never selected automatically.
func pickFormat(hdr *Header) Format {
	if hdr.Format != FormatUnknown {
		return hdr.Format
	}
	if fitsUSTAR(hdr) {
		return FormatUSTAR
	}
	return FormatUnknown
}

func fitsUSTAR(hdr *Header) bool {
	if !isASCII(hdr.Name) || !isASCII(hdr.Linkname) || !isASCII(hdr.Uname) || !isASCII(hdr.Gname) {
		return false
	}
	if len(hdr.Linkname) > nameSize {
		return false
	}
	if !nameFitsUSTAR(hdr.Name) {
		return false
	}
	if len(hdr.Uname) > 32 || len(hdr.Gname) > 32 {
		return false
	}
	if !fitsOctalField(hdr.Size, 12) || !fitsOctalField(hdr.Mode, 8) ||
		!fitsOctalField(int64(hdr.Uid), 8) || !fitsOctalField(int64(hdr.Gid), 8) ||
		!fitsOctalField(hdr.Devmajor, 8) || !fitsOctalField(hdr.Devminor, 8) {
		return false
	}
	if hdr.ModTime.Unix() < 0 || !fitsOctalField(hdr.ModTime.Unix(), 12) {
		return false
	}
	if !hdr.AccessTime.IsZero() || !hdr.ChangeTime.IsZero() || hdr.ModTime.Nanosecond() != 0 {
		return false // sub-second/atime/ctime require PAX
	}
	return true
}

func fitsOctalField(v int64, width int) bool { return fitsInOctal(width, v) }

// nameFitsUSTAR reports whether name can be written into USTAR's fixed-width
// name/prefix fields verbatim, either directly or after prefix-splitting --
// the same criterion buildPAXRecords uses to decide whether a "path" PAX
// record is required.
func nameFitsUSTAR(name string) bool {
	if !isASCII(name) {
		return false
	}
	if len(name) <= nameSize {
		return true
	}
	_, _, ok := splitUSTARPath(name)
	return ok
}

// encodeV7Prefix writes the fields common to every format into blk.
func encodeV7Prefix(blk *Block, hdr *Header) error {
	v7 := blk.V7()
	v7.typeFlag()[0] = hdr.Typeflag
	if err := formatNumeric(v7.size(), hdr.Size); err != nil {
		return headerError{"Size"}
	}
	if err := formatNumeric(v7.mode(), hdr.Mode); err != nil {
		return headerError{"Mode"}
	}
	if err := formatNumeric(v7.uid(), int64(hdr.Uid)); err != nil {
		return headerError{"Uid"}
	}
	if err := formatNumeric(v7.gid(), int64(hdr.Gid)); err != nil {
		return headerError{"Gid"}
	}
	if err := formatNumeric(v7.modTime(), hdr.ModTime.Unix()); err != nil {
		return headerError{"ModTime"}
	}
	return nil
}

// encodeUSTARExtras writes the USTAR/GNU/PAX-shared uname/gname/devmajor/devminor.
func encodeUSTARExtras(blk *Block, hdr *Header) error {
	ustar := blk.USTAR()
	if len(hdr.Uname) > 32 {
		return headerError{"Uname too long"}
	}
	if len(hdr.Gname) > 32 {
		return headerError{"Gname too long"}
	}
	copy(ustar.userName(), hdr.Uname)
	copy(ustar.groupName(), hdr.Gname)
	if hdr.Devmajor != 0 || hdr.Devminor != 0 {
		if err := formatNumeric(ustar.devMajor(), hdr.Devmajor); err != nil {
			return headerError{"Devmajor"}
		}
		if err := formatNumeric(ustar.devMinor(), hdr.Devminor); err != nil {
			return headerError{"Devminor"}
		}
	}
	return nil
}

// setPath encodes p into blk's name (and, for USTAR, prefix) field. It
// returns errNameTooLong if p does not fit and needs a GNU long-name
// meta-entry or PAX "path" record instead.
func setPath(blk *Block, p string, format Format) error {
	p = normalizeSlashes(p)
	if err := validateArchivePath(p); err != nil {
		return err
	}
	switch {
	case format.has(FormatUSTAR) && !format.has(FormatGNU):
		if len(p) <= nameSize && isASCII(p) {
			copy(blk.V7().name(), p)
			return nil
		}
		if prefix, suffix, ok := splitUSTARPath(p); ok {
			copy(blk.V7().name(), suffix)
			copy(blk.USTAR().prefix(), prefix)
			return nil
		}
		return errNameTooLong
	default: // GNU or v7 or undetermined (PAX will stamp its own record too)
		if len(p) <= nameSize {
			copy(blk.V7().name(), p)
			return nil
		}
		return errNameTooLong
	}
}

// setLinkName is like setPath but for the linkname field (no prefix split;
// GNU/USTAR/v7 linkname is always a flat 100-byte field).
func setLinkName(blk *Block, p string) error {
	p = normalizeSlashes(p)
	if strings.IndexByte(p, 0) >= 0 {
		return ErrFieldTooLong
	}
	if len(p) > nameSize {
		return errNameTooLong
	}
	copy(blk.V7().linkName(), p)
	return nil
}

// validateArchivePath rejects absolute paths, "..", empty paths, and NUL
// bytes -- every path written into an archive must already be relative and
// clean.
func validateArchivePath(p string) error {
	if p == "" {
		return ErrInsecurePath
	}
	if strings.IndexByte(p, 0) >= 0 {
		return ErrInsecurePath
	}
	if strings.HasPrefix(p, "/") {
		return ErrInsecurePath
	}
	for _, part := range strings.Split(strings.TrimSuffix(p, "/"), "/") {
		if part == ".." {
			return ErrInsecurePath
		}
	}
	return nil
}

// splitUSTARPath splits name according to the USTAR prefix/suffix rule:
// peel components from the right until the remainder fits in the 100-byte
// name field and the peeled-off prefix fits in the 155-byte prefix field.
func splitUSTARPath(name string) (prefix, suffix string, ok bool) {
	length := len(name)
	if length <= nameSize || !isASCII(name) {
		return "", "", false
	} else if length > prefixSize+1 {
		length = prefixSize + 1
	} else if name[length-1] == '/' {
		length--
	}

	i := strings.LastIndex(name[:length], "/")
	nlen := len(name) - i - 1
	plen := i
	if i <= 0 || nlen > nameSize || nlen == 0 || plen > prefixSize {
		return "", "", false
	}
	return name[:i], name[i+1:], true
}

// truncateUTF8 truncates s to at most n bytes without splitting a rune.
func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !isUTF8Boundary(s, n) {
		n--
	}
	return s[:n]
}

func isUTF8Boundary(s string, n int) bool {
	return n == 0 || n == len(s) || (s[n]&0xC0) != 0x80
}

// uint64ToDecimal is a tiny helper used when emitting PAX-record lengths.
func uint64ToDecimal(v uint64) string { return strconv.FormatUint(v, 10) }
