package tar

import (
	"strings"
	"testing"
	"time"
)

func TestFormatPAXRecordLengthIncludesItself(t *testing.T) {
	rec := formatPAXRecord("path", "short")
	if !strings.HasPrefix(rec, "14 path=short\n") {
		t.Errorf("got %q, want prefix %q", rec, "14 path=short\n")
	}

	// A record whose naive length estimate needs a carry to an extra digit.
	rec2 := formatPAXRecord("k", strings.Repeat("v", 95))
	k, v, rest, err := parsePAXRecord(rec2)
	if err != nil {
		t.Fatalf("parsePAXRecord: %v", err)
	}
	if rest != "" {
		t.Errorf("leftover after parse: %q", rest)
	}
	if k != "k" || v != strings.Repeat("v", 95) {
		t.Errorf("round trip mismatch: k=%q len(v)=%d", k, len(v))
	}
}

func TestParsePAXRoundTrip(t *testing.T) {
	records := map[string]string{
		"path":  "a/very/long/path.txt",
		"mtime": "1700000000.250000000",
		"uid":   "1000",
	}
	body := encodePAXRecords(records)
	got, err := parsePAX(body)
	if err != nil {
		t.Fatalf("parsePAX: %v", err)
	}
	for k, v := range records {
		if got[k] != v {
			t.Errorf("record %q: got %q, want %q", k, got[k], v)
		}
	}
}

func TestMergePAXAppliesTypedFields(t *testing.T) {
	hdr := &Header{Name: "orig", Size: 1}
	err := mergePAX(hdr, map[string]string{
		"path": "overridden",
		"size": "42",
		"uid":  "7",
	})
	if err != nil {
		t.Fatalf("mergePAX: %v", err)
	}
	if hdr.Name != "overridden" || hdr.Size != 42 || hdr.Uid != 7 {
		t.Errorf("got Name=%q Size=%d Uid=%d", hdr.Name, hdr.Size, hdr.Uid)
	}
}

func TestBuildPAXRecordsOnlyWhenNeeded(t *testing.T) {
	hdr := &Header{Name: "short.txt", Size: 5, ModTime: time.Unix(0, 0)}
	records := buildPAXRecords(hdr)
	if len(records) != 0 {
		t.Errorf("expected no PAX records for a plain ASCII header, got %v", records)
	}

	hdr2 := &Header{Name: "unicode-é.txt", Size: 5, ModTime: time.Unix(0, 0)}
	records2 := buildPAXRecords(hdr2)
	if records2["path"] != hdr2.Name {
		t.Errorf("expected path PAX record for non-ASCII name, got %v", records2)
	}
}
