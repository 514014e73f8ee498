package tarfs

import (
	"bytes"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/elliotnunn/gotar/tar"
)

// fakeAdapter is a minimal MetadataAdapter that never reports any
// ownership/device/xattr metadata, so these tests run identically on every
// platform rather than depending on a build-tagged NewOSAdapter.
type fakeAdapter struct{}

func (fakeAdapter) Lstat(name string) (fs.FileInfo, error) { return os.Lstat(name) }
func (fakeAdapter) Readlink(name string) (string, error)   { return os.Readlink(name) }
func (fakeAdapter) Metadata(name string, fi fs.FileInfo) (*tar.FileMeta, error) {
	return nil, nil
}

func TestAppendFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hello.txt")
	if err := os.WriteFile(path, []byte("hello world"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	if err := AppendFile(tw, fakeAdapter{}, path, "hello.txt", tar.HeaderModeComplete, time.Time{}); err != nil {
		t.Fatalf("AppendFile: %v", err)
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	tr := tar.NewReader(&buf)
	hdr, err := tr.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if hdr.Name != "hello.txt" || hdr.Size != 11 {
		t.Errorf("got Name=%q Size=%d", hdr.Name, hdr.Size)
	}
	got := make([]byte, 11)
	if _, err := tr.Read(got); err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != "hello world" {
		t.Errorf("got %q", got)
	}
}

func TestAppendDirAllWalksTree(t *testing.T) {
	root := t.TempDir()
	if err := os.Mkdir(filepath.Join(root, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "sub", "a.txt"), []byte("A"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "top.txt"), []byte("T"), 0o644); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	if err := AppendDirAll(tw, fakeAdapter{}, root, "", tar.HeaderModeDeterministic, false, time.Time{}); err != nil {
		t.Fatalf("AppendDirAll: %v", err)
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	tr := tar.NewReader(&buf)
	var names []string
	for {
		hdr, err := tr.Next()
		if err != nil {
			break
		}
		names = append(names, hdr.Name)
	}
	want := map[string]bool{"./": true, "sub/": true, "sub/a.txt": true, "top.txt": true}
	if len(names) != len(want) {
		t.Fatalf("got entries %v", names)
	}
	for _, n := range names {
		if !want[n] {
			t.Errorf("unexpected entry %q", n)
		}
	}
}

func TestAppendDirAllFollowSymlinksArchivesTarget(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "real.txt"), []byte("hi"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(filepath.Join(root, "real.txt"), filepath.Join(root, "link.txt")); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	if err := AppendDirAll(tw, fakeAdapter{}, root, "", tar.HeaderModeDeterministic, true, time.Time{}); err != nil {
		t.Fatalf("AppendDirAll: %v", err)
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	tr := tar.NewReader(&buf)
	for {
		hdr, err := tr.Next()
		if err != nil {
			break
		}
		if hdr.Name == "link.txt" && hdr.Typeflag != tar.TypeReg {
			t.Errorf("link.txt: got Typeflag=%q, want TypeReg since symlinks are followed", hdr.Typeflag)
		}
	}
}

func TestAppendFileClampMtime(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "future.txt")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	ceiling := time.Now().Add(-time.Hour)
	future := time.Now().Add(24 * time.Hour)
	if err := os.Chtimes(path, future, future); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	if err := AppendFile(tw, fakeAdapter{}, path, "future.txt", tar.HeaderModeClampMtime, ceiling); err != nil {
		t.Fatalf("AppendFile: %v", err)
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	tr := tar.NewReader(&buf)
	hdr, err := tr.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if hdr.ModTime.After(ceiling) {
		t.Errorf("got ModTime=%v, want it clamped to %v", hdr.ModTime, ceiling)
	}
}

func TestAppendLinkWritesHardlinkHeader(t *testing.T) {
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	if err := AppendLink(tw, "copy.txt", "original.txt"); err != nil {
		t.Fatalf("AppendLink: %v", err)
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	tr := tar.NewReader(&buf)
	hdr, err := tr.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if hdr.Typeflag != tar.TypeLink || hdr.Name != "copy.txt" || hdr.Linkname != "original.txt" {
		t.Errorf("got %+v", hdr)
	}
}
