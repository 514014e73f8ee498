package tar

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

func buildEntry(t *testing.T, name string, body string) []byte {
	t.Helper()
	var buf bytes.Buffer
	tw := NewWriter(&buf)
	hdr := &Header{Name: name, Size: int64(len(body)), Mode: 0o644, Typeflag: TypeReg}
	if err := tw.WriteHeader(hdr); err != nil {
		t.Fatalf("WriteHeader: %v", err)
	}
	if _, err := tw.Write([]byte(body)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	return buf.Bytes()
}

func TestReaderRejectsBadChecksum(t *testing.T) {
	raw := buildEntry(t, "a.txt", "hi")
	raw[148] ^= 0xff // corrupt a byte inside the checksum field

	tr := NewReader(bytes.NewReader(raw))
	if _, err := tr.Next(); err != ErrHeaderChecksum {
		t.Errorf("Next(): got %v, want ErrHeaderChecksum", err)
	}
}

func TestReaderDoubleZeroTerminator(t *testing.T) {
	raw := buildEntry(t, "a.txt", "hi")
	// buildEntry already appends the two trailing zero blocks via Close.
	r := bytes.NewReader(raw)
	tr := NewReader(r)
	if _, err := tr.Next(); err != nil {
		t.Fatalf("Next() first entry: %v", err)
	}
	if _, err := tr.Next(); err != io.EOF {
		t.Errorf("Next() at terminator: got %v, want io.EOF", err)
	}
}

func TestReaderIgnoreZerosSkipsPadding(t *testing.T) {
	raw := buildEntry(t, "a.txt", "hi")
	second := buildEntry(t, "b.txt", "bye")

	var buf bytes.Buffer
	buf.Write(raw[:len(raw)-2*blockSize]) // entry "a.txt", no terminator yet
	buf.Write(make([]byte, 4*blockSize))  // padding a naive reader would mistake for EOF
	buf.Write(second)

	tr := NewReader(&buf)
	tr.IgnoreZeros = true

	hdr, err := tr.Next()
	if err != nil || hdr.Name != "a.txt" {
		t.Fatalf("Next() #1: hdr=%v err=%v", hdr, err)
	}
	io.ReadAll(tr)

	hdr, err = tr.Next()
	if err != nil || hdr.Name != "b.txt" {
		t.Fatalf("Next() #2: hdr=%v err=%v", hdr, err)
	}
}

func TestReaderWithoutIgnoreZerosStopsAtFirstGap(t *testing.T) {
	raw := buildEntry(t, "a.txt", "hi")

	var buf bytes.Buffer
	buf.Write(raw[:len(raw)-2*blockSize])
	buf.Write(make([]byte, 4*blockSize))
	buf.Write(buildEntry(t, "b.txt", "bye"))

	tr := NewReader(&buf)
	if _, err := tr.Next(); err != nil {
		t.Fatalf("Next() #1: %v", err)
	}
	io.ReadAll(tr)
	if _, err := tr.Next(); err != io.EOF {
		t.Errorf("Next() #2: got %v, want io.EOF (archive terminator reached before b.txt)", err)
	}
}

func TestReaderRawIteration(t *testing.T) {
	raw := buildEntry(t, "a.txt", "hi")
	tr := NewReader(bytes.NewReader(raw))
	tr.AllowRawIteration(true)

	if _, err := tr.Next(); err != nil {
		t.Fatalf("Next: %v", err)
	}
	io.ReadAll(tr)
	got := tr.RawBytes()
	if len(got) < blockSize {
		t.Fatalf("RawBytes() too short: %d bytes", len(got))
	}
	if !bytes.Equal(got[:blockSize], raw[:blockSize]) {
		t.Errorf("RawBytes() header block mismatch")
	}
}

func TestReaderDataOffset(t *testing.T) {
	raw := buildEntry(t, "a.txt", "hello")
	tr := NewReader(bytes.NewReader(raw))
	if _, err := tr.Next(); err != nil {
		t.Fatalf("Next: %v", err)
	}
	off, ok := tr.DataOffset()
	if !ok {
		t.Fatal("DataOffset: ok=false")
	}
	// buildEntry leaves ModTime zero, which USTAR cannot encode, so a PAX
	// header block and its one-block body precede the entry's own header.
	if off != 3*blockSize {
		t.Errorf("DataOffset() = %d, want %d", off, 3*blockSize)
	}
	if string(raw[off:off+5]) != "hello" {
		t.Errorf("data at offset: got %q, want %q", raw[off:off+5], "hello")
	}
}

func TestEntryDataAt(t *testing.T) {
	raw := buildEntry(t, "a.txt", "hello")
	br := bytes.NewReader(raw)
	tr := NewReaderWithSeek(br, br)
	if _, err := tr.Next(); err != nil {
		t.Fatalf("Next: %v", err)
	}
	off, _ := tr.DataOffset()

	ra := EntryDataAt(bytes.NewReader(raw), off, 5)
	buf := make([]byte, 5)
	if _, err := ra.ReadAt(buf, 0); err != nil && !errors.Is(err, io.EOF) {
		t.Fatalf("ReadAt: %v", err)
	}
	if string(buf) != "hello" {
		t.Errorf("EntryDataAt content: got %q, want %q", buf, "hello")
	}
}
