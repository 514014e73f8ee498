// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tar

import (
	"bytes"
	"errors"
	"io"
)

// Reader provides sequential, forward-only access to the logical entries of
// a tar archive. Reader.Next advances to the next entry (automatically
// discarding any unread remainder of the current one); Reader.Read then
// streams that entry's body.
//
// A Reader built with NewReader never seeks its underlying io.Reader, and no
// Reader buffers more than a handful of header blocks at a time, so it works
// equally well over a pipe, a network connection, or a *os.File. A Reader
// built with NewReaderWithSeek seeks past unread entry bodies instead of
// reading them.
type Reader struct {
	// IgnoreZeros, when set, treats a run of all-zero blocks found where a
	// header is expected as padding to be skipped rather than as the
	// archive terminator, continuing until a real header or true io.EOF is
	// found. Some writers (notably certain versions of GNU tar writing to
	// fixed-size tape blocks) pad archives this way.
	IgnoreZeros bool

	r    io.Reader
	pad  int64      // amount of padding after current file entry, to discard
	curr fileReader // reader for current file entry
	blk  Block      // buffer to use as temporary local storage
	err  error

	cr         *countingReader // non-nil once wrapped by NewReader/NewReaderWithSeek
	dataOffset int64           // tr.cr's count at the start of the current entry's body
	dataValid  bool

	// rawBytes, when non-nil via AllowRawIteration, accumulates the raw
	// bytes (headers and data, including meta-entries normally consumed
	// internally) of whatever the most recent Next call produced.
	rawBytes *bytes.Buffer
}

// fileReader is the interface satisfied by the two body-reading strategies:
// a plain regionReader for non-sparse entries, and sparseFileReader for
// sparse ones.
type fileReader interface {
	io.Reader
	physicalRemaining() int64
}

// NewReader creates a new Reader reading from r.
func NewReader(r io.Reader) *Reader {
	cr := &countingReader{r: r}
	return &Reader{r: cr, curr: &regionReader{r: cr}, cr: cr}
}

// NewReaderWithSeek is like NewReader, but additionally accepts an
// io.Seeker over the same stream so that Reader can skip unread entry
// bodies with Seek rather than by reading and discarding them, and so that
// DataOffset/EntryDataAt can locate the current entry's body within a
// separately opened io.ReaderAt over the same archive. r and s must refer
// to the same underlying data.
func NewReaderWithSeek(r io.Reader, s io.Seeker) *Reader {
	cr := &countingReader{r: r, seek: s}
	return &Reader{r: cr, curr: &regionReader{r: cr}, cr: cr}
}

// DataOffset returns the absolute byte offset, within the stream passed to
// NewReader/NewReaderWithSeek, of the current entry's data region -- the
// same offset EntryDataAt expects. The second result is false before the
// first successful Next call.
func (tr *Reader) DataOffset() (int64, bool) {
	if !tr.dataValid {
		return 0, false
	}
	return tr.dataOffset, true
}

// countingReader wraps an io.Reader (optionally with an io.Seeker over the
// same stream) and tracks the total number of bytes consumed, so Reader can
// report DataOffset without every caller having to track archive position
// by hand.
type countingReader struct {
	r    io.Reader
	seek io.Seeker
	n    int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

func (c *countingReader) Seek(offset int64, whence int) (int64, error) {
	if c.seek == nil {
		return 0, errNotSeekable
	}
	abs, err := c.seek.Seek(offset, whence)
	if err == nil {
		c.n = abs
	}
	return abs, err
}

var errNotSeekable = errors.New("tar: underlying reader is not seekable")

// seekableReader pairs a Reader with a Seeker so that type-asserting the
// combined value as io.Seeker succeeds.
type seekableReader struct {
	io.Reader
	io.Seeker
}

// EntriesWithSeek is an iterator over the archive's entries (Go 1.23
// range-over-func form), using the seek-optimized discard path wherever the
// Reader was constructed with NewReaderWithSeek. Iteration stops, without
// an error being surfaced to the loop body, at io.EOF; yield's bool return
// stops iteration early same as a normal range-over-func break.
func (tr *Reader) EntriesWithSeek(yield func(*Header, error) bool) {
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return
		}
		if !yield(hdr, err) || err != nil {
			return
		}
	}
}

// AllowRawIteration switches tr into a mode where every Next call also
// records the exact raw bytes (header blocks plus body, including any GNU
// long-name/PAX meta-entries that would otherwise be merged away silently)
// that made up the entry just produced. RawBytes returns them.
//
// This exists for archive-inspection and repair tools that need to see the
// wire bytes Reader would otherwise hide.
func (tr *Reader) AllowRawIteration(enable bool) {
	if enable {
		tr.rawBytes = new(bytes.Buffer)
	} else {
		tr.rawBytes = nil
	}
}

// RawBytes returns the raw archive bytes that produced the entry most
// recently returned by Next. It is only populated when AllowRawIteration(true)
// has been called.
func (tr *Reader) RawBytes() []byte {
	if tr.rawBytes == nil {
		return nil
	}
	return tr.rawBytes.Bytes()
}

// Next advances to the next entry in the tar archive. The Header.Size
// determines how many bytes can be read for the next file. Any remaining
// data from the previous entry is automatically discarded.
//
// io.EOF is returned at the end of the input. A sufficiently sparse archive
// (no entries at all) is reported as io.EOF immediately.
func (tr *Reader) Next() (*Header, error) {
	if tr.err != nil {
		return nil, tr.err
	}
	hdr, err := tr.next()
	tr.err = err
	return hdr, err
}

func (tr *Reader) next() (*Header, error) {
	var paxHdrs map[string]string
	var gnuLongName, gnuLongLink string

	if err := tr.discardRemaining(); err != nil {
		return nil, err
	}
	if tr.rawBytes != nil {
		tr.rawBytes.Reset()
	}

	for {
		hasPendingMeta := paxHdrs != nil || gnuLongName != "" || gnuLongLink != ""

		blk, err := tr.readBlock()
		if err != nil {
			if err == io.EOF && hasPendingMeta {
				// A PAX/GNU meta-entry describes the header that follows
				// it; running out of archive before that header arrives is
				// a truncated, not merely finished, stream.
				return nil, ErrHeader
			}
			return nil, err
		}
		if blk.IsZero() {
			if tr.IgnoreZeros {
				continue // skip the padding block and keep looking for a header
			}
			if hasPendingMeta {
				return nil, ErrHeader
			}
			// A zero block may be the start of the archive's terminator
			// (two consecutive zero blocks), or simple end-of-file.
			blk2, err := tr.readBlock()
			if err == io.EOF {
				return nil, io.EOF
			}
			if err != nil {
				return nil, err
			}
			if blk2.IsZero() {
				return nil, io.EOF
			}
			return nil, ErrHeader
		}

		hdr, rawHdr, err := tr.readHeader(blk)
		if err != nil {
			return nil, err
		}

		switch hdr.Typeflag {
		case TypeXHeader, TypeXGlobalHeader:
			if hdr.Typeflag == TypeXHeader && paxHdrs != nil {
				return nil, ErrHeader // two consecutive PAX extended headers
			}
			raw, err := tr.readMetaBody(hdr)
			if err != nil {
				return nil, err
			}
			paxHdrs, err = parsePAX(raw)
			if err != nil {
				return nil, err
			}
			if hdr.Typeflag == TypeXGlobalHeader {
				paxHdrs = nil // global headers affect the whole archive; not modeled per-entry
			}
			continue

		case TypeGNULongName, TypeGNULongLink:
			if (hdr.Typeflag == TypeGNULongName && gnuLongName != "") ||
				(hdr.Typeflag == TypeGNULongLink && gnuLongLink != "") {
				return nil, ErrHeader // two consecutive meta-entries of the same kind
			}
			raw, err := tr.readMetaBody(hdr)
			if err != nil {
				return nil, err
			}
			name := string(bytes.TrimRight(raw, "\x00"))
			if hdr.Typeflag == TypeGNULongName {
				gnuLongName = name
			} else {
				gnuLongLink = name
			}
			continue
		}

		legacyRegularize(hdr)
		if gnuLongName != "" {
			hdr.Name = gnuLongName
		}
		if gnuLongLink != "" {
			hdr.Linkname = gnuLongLink
		}
		if paxHdrs != nil {
			if err := mergePAX(hdr, paxHdrs); err != nil {
				return nil, err
			}
		}
		if !validPath(hdr.Name) {
			return nil, ErrInsecurePath
		}

		tr.pad = blockPadding(hdr.Size)
		if err := tr.setUpFileReader(hdr, rawHdr); err != nil {
			return nil, err
		}
		if tr.cr != nil {
			tr.dataOffset = tr.cr.n
			tr.dataValid = true
		}
		return hdr, nil
	}
}

// validPath reports only whether p is a well-formed string: non-empty and
// free of embedded NUL bytes. It deliberately does not reject ".." or
// leading "/" -- those are surfaced to the caller as ordinary (if
// suspicious) names, and it is tarunpack's job to skip them rather than
// the reader's job to refuse them, so that a hostile or malformed archive
// can still be listed or have its other entries extracted.
func validPath(p string) bool {
	if p == "" || bytes.IndexByte([]byte(p), 0) >= 0 {
		return false
	}
	return true
}

// readBlock reads one 512-byte block, recording it for RawBytes if enabled.
func (tr *Reader) readBlock() (*Block, error) {
	if _, err := io.ReadFull(tr.r, tr.blk[:]); err != nil {
		if err == io.ErrUnexpectedEOF {
			err = ErrHeader
		}
		return nil, err
	}
	if tr.rawBytes != nil {
		tr.rawBytes.Write(tr.blk[:])
	}
	return &tr.blk, nil
}

// readHeader decodes blk (a copy, since tr.blk is reused on the next
// readBlock call) into a Header, also returning the raw block bytes for
// sparse-map decoding that needs to re-examine it.
func (tr *Reader) readHeader(blk *Block) (*Header, Block, error) {
	var cp Block
	cp = *blk
	hdr, err := decodeHeader(&cp)
	if err != nil {
		return nil, cp, err
	}
	return hdr, cp, nil
}

// readMetaBody reads and discards-pads the data region of a meta-entry
// (GNU long name/link, or PAX extended header), bounding it defensively.
func (tr *Reader) readMetaBody(hdr *Header) ([]byte, error) {
	if hdr.Size < 0 || hdr.Size > maxSpecialFileSize {
		return nil, ErrHeader
	}
	buf := make([]byte, hdr.Size)
	if _, err := io.ReadFull(tr.r, buf); err != nil {
		if err == io.ErrUnexpectedEOF {
			err = ErrHeader
		}
		return nil, err
	}
	if tr.rawBytes != nil {
		tr.rawBytes.Write(buf)
	}
	if err := tr.discardPadding(hdr.Size); err != nil {
		return nil, err
	}
	return buf, nil
}

func (tr *Reader) discardPadding(size int64) error {
	_, err := io.CopyN(discardRaw{tr}, tr.r, blockPadding(size))
	if err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	return err
}

// discardRaw is an io.Writer adapter so padding bytes get folded into
// RawBytes accounting via io.CopyN without a separate buffer.
type discardRaw struct{ tr *Reader }

func (d discardRaw) Write(p []byte) (int, error) {
	if d.tr.rawBytes != nil {
		d.tr.rawBytes.Write(p)
	}
	return len(p), nil
}

// setUpFileReader prepares tr.curr to stream hdr's body, handling the GNU
// old-sparse typeflag and PAX GNU-sparse records by constructing a
// sparseFileReader in front of the raw bytes instead of a flat regionReader.
func (tr *Reader) setUpFileReader(hdr *Header, rawHdr Block) error {
	holes, err := getSparseHoles(hdr, &rawHdr, tr.r)
	if err != nil {
		return err
	}
	if holes == nil {
		tr.curr = &regionReader{r: tr.r, remaining: hdr.Size, rawBytes: tr.rawBytes}
		return nil
	}
	physicalSize := hdr.Size
	for _, h := range holes {
		physicalSize -= h.Length
	}
	rr := &regionReader{r: tr.r, remaining: physicalSize, rawBytes: tr.rawBytes}
	tr.curr = &sparseAdapter{sfr: newSparseFileReader(rr, holes, hdr.Size), rr: rr}
	return nil
}

// sparseAdapter satisfies fileReader by delegating reads to a
// sparseFileReader while tracking the underlying regionReader's remaining
// physical bytes for discardRemaining's benefit.
type sparseAdapter struct {
	sfr *sparseFileReader
	rr  *regionReader
}

func (s *sparseAdapter) Read(p []byte) (int, error)   { return s.sfr.Read(p) }
func (s *sparseAdapter) physicalRemaining() int64     { return s.rr.physicalRemaining() }

// regionReader reads exactly `remaining` bytes from r and no further,
// reporting io.EOF once exhausted. It is the non-sparse fileReader.
type regionReader struct {
	r         io.Reader
	remaining int64
	rawBytes  *bytes.Buffer
}

func (rr *regionReader) Read(p []byte) (int, error) {
	if rr.remaining <= 0 {
		return 0, io.EOF
	}
	if int64(len(p)) > rr.remaining {
		p = p[:rr.remaining]
	}
	n, err := rr.r.Read(p)
	rr.remaining -= int64(n)
	if rr.rawBytes != nil {
		rr.rawBytes.Write(p[:n])
	}
	if err == io.EOF && rr.remaining > 0 {
		err = io.ErrUnexpectedEOF
	}
	return n, err
}

func (rr *regionReader) physicalRemaining() int64 { return rr.remaining }

// Read reads from the current entry's body. It returns (0, io.EOF) once the
// entry's full Size has been consumed; call Next to advance.
func (tr *Reader) Read(p []byte) (int, error) {
	if tr.err != nil {
		return 0, tr.err
	}
	n, err := tr.curr.Read(p)
	if err != nil && err != io.EOF {
		tr.err = err
	}
	return n, err
}

// discardRemaining skips whatever is left of the previous entry's body plus
// its block padding, in preparation for reading the next header. When the
// underlying stream supports seeking and raw-byte accounting is not in use,
// it seeks past the gap instead of reading and discarding it -- the
// "seek-optimized" path described for EntriesWithSeek.
func (tr *Reader) discardRemaining() error {
	if tr.curr == nil {
		return nil
	}
	n := tr.curr.physicalRemaining() + tr.pad
	tr.pad = 0
	if n <= 0 {
		return nil
	}
	if seeker, ok := tr.r.(io.Seeker); ok && tr.rawBytes == nil {
		if _, err := seeker.Seek(n, io.SeekCurrent); err == nil {
			return nil
		}
		// Fall through to the read-based path if Seek failed.
	}
	if _, err := io.CopyN(discardRaw{tr}, tr.r, n); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return err
	}
	return nil
}
