package tar

import (
	"bytes"
	"io"
	"strings"
	"testing"
)

func TestInvertSparseEntriesDatasToHoles(t *testing.T) {
	datas := []sparseEntry{{Offset: 0, Length: 2}, {Offset: 5, Length: 3}}
	const size = 10
	if !validateSparseEntries(datas, size) {
		t.Fatal("validateSparseEntries rejected a well-formed map")
	}
	holes := invertSparseEntries(append([]sparseEntry(nil), datas...), size)
	want := []sparseEntry{{Offset: 2, Length: 3}, {Offset: 8, Length: 2}}
	if len(holes) != len(want) {
		t.Fatalf("got %d holes, want %d: %v", len(holes), len(want), holes)
	}
	for i := range want {
		if holes[i] != want[i] {
			t.Errorf("hole #%d: got %+v, want %+v", i, holes[i], want[i])
		}
	}
}

func TestValidateSparseEntriesRejectsOverlap(t *testing.T) {
	bad := []sparseEntry{{Offset: 0, Length: 5}, {Offset: 3, Length: 5}}
	if validateSparseEntries(bad, 10) {
		t.Error("expected overlap to be rejected")
	}
}

func TestValidateSparseEntriesRejectsPastSize(t *testing.T) {
	bad := []sparseEntry{{Offset: 8, Length: 5}}
	if validateSparseEntries(bad, 10) {
		t.Error("expected fragment extending past size to be rejected")
	}
}

func TestSparseFileReaderZeroFillsHoles(t *testing.T) {
	// Logical layout: 2 bytes data, 3 bytes hole, 3 bytes data, total 8.
	holes := sparseHoles{{Offset: 2, Length: 3}}
	src := strings.NewReader("AB" + "xyz") // only the data fragments are physically present
	sfr := newSparseFileReader(src, holes, 8)

	got, err := io.ReadAll(sfr)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	want := "AB\x00\x00\x00xyz"
	if string(got) != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestReadGNUSparseMap1x0(t *testing.T) {
	// "<numEntries>\n<off>\n<len>\n<off>\n<len>\n..." padded to a 512 block.
	raw := "1\n0\n4\n"
	var buf bytes.Buffer
	buf.WriteString(raw)
	buf.Write(make([]byte, blockSize-len(raw)))

	spd, err := readGNUSparseMap1x0(&buf)
	if err != nil {
		t.Fatalf("readGNUSparseMap1x0: %v", err)
	}
	if len(spd) != 1 || spd[0].Offset != 0 || spd[0].Length != 4 {
		t.Errorf("got %+v", spd)
	}
}

func TestReadGNUSparseMap0x1(t *testing.T) {
	hdrs := map[string]string{
		"GNU.sparse.numblocks": "2",
		"GNU.sparse.map":       "0,4,10,6",
	}
	spd, err := readGNUSparseMap0x1(hdrs)
	if err != nil {
		t.Fatalf("readGNUSparseMap0x1: %v", err)
	}
	want := sparseDatas{{Offset: 0, Length: 4}, {Offset: 10, Length: 6}}
	if len(spd) != len(want) || spd[0] != want[0] || spd[1] != want[1] {
		t.Errorf("got %+v, want %+v", spd, want)
	}
}
