// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tar

import (
	"bytes"
	"io"
	"strconv"
	"strings"
)

// getSparseHoles reads whichever sparse-map encoding hdr's typeflag/PAX
// records indicate, validates it, and converts it to hole form. more is the
// as-yet-unconsumed tail of the header's own data region (used by the old
// GNU format, which may chain extension blocks there).
func getSparseHoles(hdr *Header, blk *Block, more io.Reader) (sparseHoles, error) {
	var spd []sparseEntry
	var err error
	if hdr.Typeflag == TypeGNUSparse {
		spd, err = readOldGNUSparseMap(hdr, blk, more)
	} else {
		spd, err = readGNUSparsePAXHeaders(hdr, more)
	}
	if err != nil {
		return nil, err
	}
	if spd == nil {
		return nil, nil // not a sparse file
	}
	if isHeaderOnlyType(hdr.Typeflag) || !validateSparseEntries(spd, hdr.Size) {
		return nil, ErrHeader
	}
	return invertSparseEntries(spd, hdr.Size), nil
}

// readGNUSparsePAXHeaders checks hdr's PAX records for a GNU sparse map
// (formats 0.0/0.1/1.0) and, if found, reads and returns it.
func readGNUSparsePAXHeaders(hdr *Header, more io.Reader) (sparseDatas, error) {
	var is1x0 bool
	major, minor := hdr.PAXRecords[paxGNUSparseMajor], hdr.PAXRecords[paxGNUSparseMinor]
	switch {
	case major == "0" && (minor == "0" || minor == "1"):
		is1x0 = false
	case major == "1" && minor == "0":
		is1x0 = true
	case major != "" || minor != "":
		return nil, nil // unrecognized version
	case hdr.PAXRecords[paxGNUSparseMap] != "":
		is1x0 = false // 0.0/0.1 carried no explicit version record
	default:
		return nil, nil // not a PAX GNU sparse file
	}

	if name := hdr.PAXRecords[paxGNUSparseName]; name != "" {
		hdr.Name = name
	}
	size := hdr.PAXRecords[paxGNUSparseSize]
	if size == "" {
		size = hdr.PAXRecords[paxGNUSparseRealSize]
	}
	if size != "" {
		n, err := strconv.ParseInt(size, 10, 64)
		if err != nil {
			return nil, ErrHeader
		}
		hdr.Size = n
	}

	if is1x0 {
		return readGNUSparseMap1x0(more)
	}
	return readGNUSparseMap0x1(hdr.PAXRecords)
}

// readOldGNUSparseMap reads the sparse map stored inline in a GNU
// old-format header (TypeGNUSparse), chaining through 512-byte extension
// blocks read from more when isExtended is set.
func readOldGNUSparseMap(hdr *Header, blk *Block, more io.Reader) (sparseDatas, error) {
	if blk.GetFormat() != FormatGNU {
		return nil, ErrHeader
	}

	var p parser
	hdr.Size = p.parseNumeric(blk.GNU().realSize())
	if p.err != nil {
		return nil, p.err
	}

	s := blk.Sparse()
	spd := make(sparseDatas, 0, s.MaxEntries())
	for {
		for i := 0; i < s.MaxEntries(); i++ {
			if s.Entry(i).Offset()[0] == 0x00 {
				break
			}
			offset := p.parseNumeric(s.Entry(i).Offset())
			length := p.parseNumeric(s.Entry(i).NumBytes())
			if p.err != nil {
				return nil, p.err
			}
			spd = append(spd, sparseEntry{Offset: offset, Length: length})
		}

		if s.IsExtended() {
			var ext Block
			if _, err := io.ReadFull(more, ext[:]); err != nil {
				return nil, err
			}
			s = ext.SparseExtension()
			continue
		}
		return spd, nil
	}
}

// readGNUSparseMap1x0 reads the PAX GNU-sparse 1.0 map: a newline-delimited
// decimal entry count followed by that many (offset, length) pairs, all
// read from the entry body itself (it precedes the real file data).
func readGNUSparseMap1x0(r io.Reader) (sparseDatas, error) {
	var (
		cntNewline int64
		buf        bytes.Buffer
		blk        Block
	)

	feedTokens := func(n int64) error {
		for cntNewline < n {
			if _, err := io.ReadFull(r, blk[:]); err != nil {
				return err
			}
			buf.Write(blk[:])
			for _, c := range blk {
				if c == '\n' {
					cntNewline++
				}
			}
		}
		return nil
	}
	nextToken := func() string {
		cntNewline--
		tok, _ := buf.ReadString('\n')
		return strings.TrimRight(tok, "\n")
	}

	if err := feedTokens(1); err != nil {
		return nil, err
	}
	numEntries, err := strconv.ParseInt(nextToken(), 10, 0)
	if err != nil || numEntries < 0 || int(2*numEntries) < int(numEntries) {
		return nil, ErrHeader
	}

	if err := feedTokens(2 * numEntries); err != nil {
		return nil, err
	}
	spd := make(sparseDatas, 0, numEntries)
	for i := int64(0); i < numEntries; i++ {
		offset, err1 := strconv.ParseInt(nextToken(), 10, 64)
		length, err2 := strconv.ParseInt(nextToken(), 10, 64)
		if err1 != nil || err2 != nil {
			return nil, ErrHeader
		}
		spd = append(spd, sparseEntry{Offset: offset, Length: length})
	}
	return spd, nil
}

// readGNUSparseMap0x1 reads the PAX GNU-sparse 0.1 map out of the header's
// own PAX records (a single comma-separated "offset,length,offset,length…"
// string), rather than out of the entry body.
func readGNUSparseMap0x1(paxHdrs map[string]string) (sparseDatas, error) {
	numEntries, err := strconv.ParseInt(paxHdrs[paxGNUSparseNumBlocks], 10, 0)
	if err != nil || numEntries < 0 || int(2*numEntries) < int(numEntries) {
		return nil, ErrHeader
	}

	sparseMap := strings.Split(paxHdrs[paxGNUSparseMap], ",")
	if len(sparseMap) == 1 && sparseMap[0] == "" {
		sparseMap = sparseMap[:0]
	}
	if int64(len(sparseMap)) != 2*numEntries {
		return nil, ErrHeader
	}

	spd := make(sparseDatas, 0, numEntries)
	for len(sparseMap) >= 2 {
		offset, err1 := strconv.ParseInt(sparseMap[0], 10, 64)
		length, err2 := strconv.ParseInt(sparseMap[1], 10, 64)
		if err1 != nil || err2 != nil {
			return nil, ErrHeader
		}
		spd = append(spd, sparseEntry{Offset: offset, Length: length})
		sparseMap = sparseMap[2:]
	}
	return spd, nil
}

// sparseFileReader composes a sparse entry's logical byte stream: holes
// read back as zeros, data fragments read through to the archive stream in
// order. It owns no buffering of its own beyond the current fragment index.
type sparseFileReader struct {
	sp    sparseHoles
	pos   int64     // logical position
	total int64     // logical size
	src   io.Reader // underlying archive stream, advanced as data fragments are consumed
}

func newSparseFileReader(src io.Reader, sp sparseHoles, total int64) *sparseFileReader {
	return &sparseFileReader{sp: sp, total: total, src: src}
}

func (sr *sparseFileReader) Read(p []byte) (n int, err error) {
	if sr.pos >= sr.total {
		return 0, io.EOF
	}
	if len(sr.sp) > 0 && sr.pos == sr.sp[0].Offset {
		return sr.readHole(p)
	}

	// Determine how many bytes to read before hitting the next hole (or EOF).
	max := sr.total - sr.pos
	if len(sr.sp) > 0 {
		if until := sr.sp[0].Offset - sr.pos; until < max {
			max = until
		}
	}
	if int64(len(p)) > max {
		p = p[:max]
	}
	n, err = sr.src.Read(p)
	sr.pos += int64(n)
	if err == io.EOF && sr.pos < sr.total {
		err = io.ErrUnexpectedEOF
	}
	return n, err
}

func (sr *sparseFileReader) readHole(p []byte) (int, error) {
	hole := sr.sp[0]
	n := int64(len(p))
	if left := hole.endOffset() - sr.pos; left < n {
		n = left
	}
	clear(p[:n])
	sr.pos += n
	if sr.pos >= hole.endOffset() {
		sr.sp = sr.sp[1:]
	}
	return int(n), nil
}

// WriteTo lets io.Copy avoid unnecessary buffering when the caller doesn't
// care about the individual Read chunking.
func (sr *sparseFileReader) WriteTo(w io.Writer) (int64, error) {
	return io.Copy(w, io.Reader(readerFunc(sr.Read)))
}

type readerFunc func(p []byte) (int, error)

func (f readerFunc) Read(p []byte) (int, error) { return f(p) }
