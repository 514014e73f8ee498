// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tar

import (
	"io"
)

// Writer provides sequential writing of a tar archive. Writer.WriteHeader
// begins a new file with the provided Header, and then Writer.Write writes
// that file's data, up to the size declared in the Header.
type Writer struct {
	w          io.Writer
	pad        int64 // amount of padding to write after current entry
	curr       *regionWriter
	hdr        Header // header for current entry
	closed     bool
	usedBinary bool // whether GNU binary numeric extensions were used

	blk Block
}

// NewWriter creates a new Writer writing to w.
func NewWriter(w io.Writer) *Writer { return &Writer{w: w} }

// Flush finishes writing the current file's block padding. The current
// file must be fully written before Flush is called.
func (tw *Writer) Flush() error {
	if tw.err() != nil {
		return tw.curr.err
	}
	if tw.curr != nil && tw.curr.remaining > 0 {
		return ErrWriteTooLong
	}
	if _, err := tw.w.Write(zeroBlock[:tw.pad]); err != nil {
		return err
	}
	tw.pad = 0
	return nil
}

func (tw *Writer) err() error {
	if tw.curr != nil {
		return tw.curr.err
	}
	return nil
}

// WriteHeader writes hdr and prepares to accept the file's contents.
// Calling after a prior file has not been fully written returns an error.
// The Header.Size determines how many bytes can be written for the next
// file; if the value is unknown, set it before calling WriteHeader (Writer
// does not support streaming an entry of unknown length).
func (tw *Writer) WriteHeader(hdr *Header) error {
	if tw.closed {
		return ErrWriteAfterClose
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	tw.hdr = *hdr.Clone()

	return tw.writeRawHeader(&tw.hdr, tw.hdr.Typeflag)
}

// writeRawHeader selects the narrowest sufficient format, emits whatever
// GNU long-name/long-link meta-entries or PAX extended header the chosen
// encoding requires, then the real header block itself.
func (tw *Writer) writeRawHeader(hdr *Header, typeflag byte) error {
	format := pickFormat(hdr)
	usingPAX := format == FormatUnknown
	if usingPAX {
		if err := tw.writePAXHeader(hdr); err != nil {
			return err
		}
		format = FormatUSTAR
	}

	var blk Block
	blk.Reset()

	if err := tw.setPathFields(&blk, hdr, format, usingPAX); err != nil {
		return err
	}
	if err := encodeV7Prefix(&blk, hdr); err != nil {
		return err
	}
	blk.V7().typeFlag()[0] = typeflag
	if err := encodeUSTARExtras(&blk, hdr); err != nil {
		return err
	}
	blk.SetFormat(format)
	blk.SetChecksum()

	if _, err := tw.w.Write(blk[:]); err != nil {
		return err
	}

	tw.curr = &regionWriter{w: tw.w, remaining: hdr.Size}
	tw.pad = blockPadding(hdr.Size)
	return nil
}

// setPathFields writes hdr.Name and hdr.Linkname into blk, falling back to
// a GNU "././@LongLink" meta-entry pair when a name overflows the fixed
// USTAR/GNU fields. When usingPAX is true the full name already travels in
// the PAX "path"/"linkpath" record just written, so an overflow here is
// resolved by silent truncation rather than a redundant GNU meta-entry.
func (tw *Writer) setPathFields(blk *Block, hdr *Header, format Format, usingPAX bool) error {
	if err := setPath(blk, hdr.Name, format); err == errNameTooLong {
		if !usingPAX {
			if err := tw.writeGNULongMeta(TypeGNULongName, hdr.Name); err != nil {
				return err
			}
		}
		if err := setPath(blk, truncateUTF8(hdr.Name, nameSize), formatV7); err != nil {
			return err
		}
	} else if err != nil {
		return err
	}

	if err := setLinkName(blk, hdr.Linkname); err == errNameTooLong {
		if !usingPAX {
			if err := tw.writeGNULongMeta(TypeGNULongLink, hdr.Linkname); err != nil {
				return err
			}
		}
		if err := setLinkName(blk, truncateUTF8(hdr.Linkname, nameSize)); err != nil {
			return err
		}
	} else if err != nil {
		return err
	}
	return nil
}

// writeGNULongMeta emits a "././@LongLink" GNU long-name/long-link
// meta-entry carrying name in full, ahead of the real header block.
func (tw *Writer) writeGNULongMeta(typeflag byte, name string) error {
	data := name + "\x00"
	var blk Block
	blk.Reset()
	blk.SetFormat(FormatGNU)
	copy(blk.V7().name(), "././@LongLink")
	blk.V7().typeFlag()[0] = typeflag
	formatOctal(blk.V7().mode(), 0o644, false)
	formatOctal(blk.V7().uid(), 0, false)
	formatOctal(blk.V7().gid(), 0, false)
	formatOctal(blk.V7().modTime(), 0, false)
	if err := formatNumeric(blk.V7().size(), int64(len(data))); err != nil {
		return err
	}
	blk.SetChecksum()
	if _, err := tw.w.Write(blk[:]); err != nil {
		return err
	}
	if _, err := io.WriteString(tw.w, data); err != nil {
		return err
	}
	_, err := tw.w.Write(zeroBlock[:blockPadding(int64(len(data)))])
	return err
}

// writePAXHeader emits a PAX extended header entry carrying every record
// buildPAXRecords determines is needed to encode hdr losslessly.
func (tw *Writer) writePAXHeader(hdr *Header) error {
	records := buildPAXRecords(hdr)
	if len(records) == 0 {
		return nil
	}
	body := encodePAXRecords(records)

	paxHdr := &Header{
		Typeflag: TypeXHeader,
		Name:     truncateUTF8(hdr.Name, nameSize) + ".paxheader",
		Size:     int64(len(body)),
		ModTime:  hdr.ModTime,
		Format:   FormatUSTAR,
	}

	var blk Block
	blk.Reset()
	blk.SetFormat(FormatUSTAR)
	if err := setPath(&blk, paxHdr.Name, FormatUSTAR); err != nil {
		// Fall back to a short synthetic name; the real Name travels via
		// the very "path" PAX record we're about to write.
		_ = setPath(&blk, "PaxHeader", FormatUSTAR)
	}
	if err := encodeV7Prefix(&blk, paxHdr); err != nil {
		return err
	}
	blk.V7().typeFlag()[0] = TypeXHeader
	blk.SetChecksum()

	if _, err := tw.w.Write(blk[:]); err != nil {
		return err
	}
	if _, err := tw.w.Write(body); err != nil {
		return err
	}
	_, err := tw.w.Write(zeroBlock[:blockPadding(int64(len(body)))])
	return err
}

// Write writes to the current entry in the tar archive. It returns
// ErrWriteTooLong if more than Header.Size bytes are written after
// WriteHeader.
func (tw *Writer) Write(b []byte) (int, error) {
	if tw.closed {
		return 0, ErrWriteAfterClose
	}
	if tw.curr == nil {
		return 0, ErrWriteAfterClose
	}
	return tw.curr.Write(b)
}

// Close closes the tar archive, flushing any unwritten data and writing the
// two 512-byte zero blocks that mark the end of the archive. It does not
// close the underlying io.Writer.
func (tw *Writer) Close() error {
	if tw.closed {
		return nil
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	tw.closed = true
	_, err := tw.w.Write(make([]byte, 2*blockSize))
	return err
}

// regionWriter enforces that no more than `remaining` bytes are written for
// the current entry's body.
type regionWriter struct {
	w         io.Writer
	remaining int64
	err       error
}

func (rw *regionWriter) Write(b []byte) (int, error) {
	if rw.err != nil {
		return 0, rw.err
	}
	overwrite := false
	if int64(len(b)) > rw.remaining {
		b = b[:rw.remaining]
		overwrite = true
	}
	n, err := rw.w.Write(b)
	rw.remaining -= int64(n)
	if err == nil && overwrite {
		err = ErrWriteTooLong
	}
	rw.err = err
	return n, err
}
