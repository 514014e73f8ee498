// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tar

import "strings"

// Format represents the tar archive format.
//
// The original tar format was introduced in Unix V7. Since then, multiple
// competing formats have attempted to standardize or extend it: USTAR, PAX,
// and GNU, each with its own advantages and limitations.
type Format int

const (
	// Deliberately hide the meaning of constants from public API.
	_ Format = (1 << iota) / 4 // Sequence of 0, 0, 1, 2, 4, 8, etc...

	FormatUnknown

	// formatV7 is the original Unix V7 tar format, prior to standardization.
	formatV7

	// FormatUSTAR is the POSIX.1-1988 USTAR format.
	FormatUSTAR

	// FormatPAX is the POSIX.1-2001 PAX format.
	FormatPAX

	// FormatGNU is the GNU tar format.
	FormatGNU

	// formatSTAR is Schily's tar format, incompatible with USTAR.
	formatSTAR

	formatMax
)

func (f Format) has(f2 Format) bool   { return f&f2 != 0 }
func (f *Format) mayBe(f2 Format)     { *f |= f2 }
func (f *Format) mayOnlyBe(f2 Format) { *f &= f2 }
func (f *Format) mustNotBe(f2 Format) { *f &^= f2 }

var formatNames = map[Format]string{
	formatV7: "V7", FormatUSTAR: "USTAR", FormatPAX: "PAX", FormatGNU: "GNU", formatSTAR: "STAR",
}

func (f Format) String() string {
	var ss []string
	for f2 := Format(1); f2 < formatMax; f2 <<= 1 {
		if f.has(f2) {
			ss = append(ss, formatNames[f2])
		}
	}
	switch len(ss) {
	case 0:
		return "<unknown>"
	case 1:
		return ss[0]
	default:
		return "(" + strings.Join(ss, " | ") + ")"
	}
}

// Magics used to identify various formats.
const (
	magicGNU, versionGNU     = "ustar ", " \x00"
	magicUSTAR, versionUSTAR = "ustar\x00", "00"
	trailerSTAR              = "tar\x00"
)

// Size constants from the various tar specifications.
const (
	blockSize  = 512 // size of each block in a tar stream
	nameSize   = 100 // max length of the name field in USTAR/GNU/v7 format
	prefixSize = 155 // max length of the prefix field in USTAR format

	maxSpecialFileSize = 1 << 20 // sanity bound on GNU long-name/PAX bodies
)

// blockPadding computes the number of bytes needed to pad offset up to the
// nearest block edge where 0 <= n < blockSize.
func blockPadding(offset int64) (n int64) {
	return -offset & (blockSize - 1)
}

var zeroBlock Block

// Block is the raw 512-byte on-wire representation of a tar header. The
// three format-specific layouts (v7, USTAR, GNU, plus Schily's STAR) are
// overlaid views onto the same bytes, distinguished by field offset rather
// than by struct-casting, so that layout never depends on the compiler's
// notion of struct alignment.
type Block [blockSize]byte

func (b *Block) V7() *HeaderV7       { return (*HeaderV7)(b) }
func (b *Block) GNU() *HeaderGNU     { return (*HeaderGNU)(b) }
func (b *Block) STAR() *HeaderSTAR   { return (*HeaderSTAR)(b) }
func (b *Block) USTAR() *HeaderUSTAR { return (*HeaderUSTAR)(b) }
func (b *Block) Sparse() SparseArray { return SparseArray(b.GNU().sparseRegion()) }

func (b *Block) Reset() { *b = Block{} }

func (b *Block) IsZero() bool { return *b == zeroBlock }

// GetFormat checks that the block is a valid header based on the checksum
// and identifies which format it is likely to be, judging by magic/version.
// It does not perform exhaustive validation of every field the way a strict
// reader might.
func (b *Block) GetFormat() Format {
	// Verify checksum.
	unsigned, signed := b.computeChecksum()
	given := b.V7().parseChecksum()
	if unsigned != given && signed != given {
		return FormatUnknown
	}

	// Guess the magic values.
	magic := string(b.USTAR().magic())
	version := string(b.USTAR().version())
	switch {
	case magic == magicUSTAR:
		if version == versionUSTAR {
			return FormatUSTAR | FormatPAX
		}
		return formatV7
	case magic == magicGNU:
		if version == versionGNU {
			return FormatGNU
		}
		return formatV7
	default:
		if string(b.STAR().trailer()) == trailerSTAR {
			return formatSTAR
		}
		return formatV7
	}
}

// SetFormat stamps a zeroed Block with the magic/version bytes for format.
func (b *Block) SetFormat(format Format) {
	switch {
	case format.has(FormatGNU):
		copy(b.GNU().magic(), magicGNU)
		copy(b.GNU().version(), versionGNU)
	case format.has(FormatUSTAR | FormatPAX):
		copy(b.USTAR().magic(), magicUSTAR)
		copy(b.USTAR().version(), versionUSTAR)
	}
}

// computeChecksum computes both the unsigned and signed checksum of the
// block, treating the eight checksum bytes as ASCII spaces, matching the
// POSIX-mandated algorithm.
func (b *Block) computeChecksum() (unsigned, signed int64) {
	for i, c := range b {
		if 148 <= i && i < 156 {
			c = ' ' // Treat the checksum field itself as all spaces.
		}
		unsigned += int64(c)
		signed += int64(int8(c))
	}
	return unsigned, signed
}

// SetChecksum computes and stores the block's checksum as six octal digits
// followed by a NUL and a space.
func (b *Block) SetChecksum() {
	unsigned, _ := b.computeChecksum()
	formatOctal(b.V7().chksum()[:7], uint64(unsigned), false)
	b.V7().chksum()[7] = ' '
}

// HeaderV7 is the original Unix V7 layout, shared as a common prefix by
// every later format.
type HeaderV7 Block

func (h *HeaderV7) name() []byte     { return h[0:][:100] }
func (h *HeaderV7) mode() []byte     { return h[100:][:8] }
func (h *HeaderV7) uid() []byte      { return h[108:][:8] }
func (h *HeaderV7) gid() []byte      { return h[116:][:8] }
func (h *HeaderV7) size() []byte     { return h[124:][:12] }
func (h *HeaderV7) modTime() []byte  { return h[136:][:12] }
func (h *HeaderV7) chksum() []byte   { return h[148:][:8] }
func (h *HeaderV7) typeFlag() []byte { return h[156:][:1] }
func (h *HeaderV7) linkName() []byte { return h[157:][:100] }

func (h *HeaderV7) parseChecksum() int64 {
	var p parser
	return p.parseOctal(h.chksum())
}

// HeaderUSTAR is the POSIX.1-1988 layout.
type HeaderUSTAR Block

func (h *HeaderUSTAR) v7() *HeaderV7      { return (*HeaderV7)(h) }
func (h *HeaderUSTAR) magic() []byte      { return h[257:][:6] }
func (h *HeaderUSTAR) version() []byte    { return h[263:][:2] }
func (h *HeaderUSTAR) userName() []byte   { return h[265:][:32] }
func (h *HeaderUSTAR) groupName() []byte  { return h[297:][:32] }
func (h *HeaderUSTAR) devMajor() []byte   { return h[329:][:8] }
func (h *HeaderUSTAR) devMinor() []byte   { return h[337:][:8] }
func (h *HeaderUSTAR) prefix() []byte     { return h[345:][:155] }

// HeaderGNU is the GNU tar layout.
type HeaderGNU Block

func (h *HeaderGNU) v7() *HeaderV7           { return (*HeaderV7)(h) }
func (h *HeaderGNU) magic() []byte           { return h[257:][:6] }
func (h *HeaderGNU) version() []byte         { return h[263:][:2] }
func (h *HeaderGNU) userName() []byte        { return h[265:][:32] }
func (h *HeaderGNU) groupName() []byte       { return h[297:][:32] }
func (h *HeaderGNU) devMajor() []byte        { return h[329:][:8] }
func (h *HeaderGNU) devMinor() []byte        { return h[337:][:8] }
func (h *HeaderGNU) accessTime() []byte      { return h[345:][:12] }
func (h *HeaderGNU) changeTime() []byte      { return h[357:][:12] }
func (h *HeaderGNU) sparseRegion() []byte    { return h[386:][:24*4+1] }
func (h *HeaderGNU) isExtended() []byte      { return h[482:][:1] }
func (h *HeaderGNU) realSize() []byte        { return h[483:][:12] }

// HeaderSTAR is Schily's STAR layout, which reuses the GNU typeflag 'S' for
// its own, incompatible sparse-header scheme.
type HeaderSTAR Block

func (h *HeaderSTAR) v7() *HeaderV7      { return (*HeaderV7)(h) }
func (h *HeaderSTAR) magic() []byte      { return h[257:][:6] }
func (h *HeaderSTAR) version() []byte    { return h[263:][:2] }
func (h *HeaderSTAR) userName() []byte   { return h[265:][:32] }
func (h *HeaderSTAR) groupName() []byte  { return h[297:][:32] }
func (h *HeaderSTAR) devMajor() []byte   { return h[329:][:8] }
func (h *HeaderSTAR) devMinor() []byte   { return h[337:][:8] }
func (h *HeaderSTAR) prefix() []byte     { return h[345:][:131] }
func (h *HeaderSTAR) accessTime() []byte { return h[476:][:12] }
func (h *HeaderSTAR) changeTime() []byte { return h[488:][:12] }
func (h *HeaderSTAR) trailer() []byte    { return h[508:][:4] }

// SparseArray is the 4 inline sparse descriptors embedded in a GNU header
// (plus the isExtended flag byte that chains to extension blocks).
type SparseArray []byte

func (s SparseArray) Entry(i int) SparseDescriptor { return SparseDescriptor(s[i*24:]) }
func (s SparseArray) MaxEntries() int              { return (len(s) - 1) / 24 }
func (s SparseArray) IsExtended() bool             { return s[24*s.MaxEntries()] != 0 }

// SparseExtension is a 512-byte continuation block of 21 further sparse
// descriptors, chained via its own trailing isExtended byte.
type SparseExtension Block

func (b *Block) SparseExtension() SparseArray { return SparseArray(b[:21*24+1]) }

// SparseDescriptor is one 24-byte (offset, numbytes) pair.
type SparseDescriptor []byte

func (s SparseDescriptor) Offset() []byte   { return s[0:][:12] }
func (s SparseDescriptor) NumBytes() []byte { return s[12:][:12] }
