// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tar

import (
	"errors"
	"io/fs"
	"testing"
	"time"
)

type fakeFileInfo struct {
	name string
	mode fs.FileMode
}

func (f fakeFileInfo) Name() string       { return f.name }
func (f fakeFileInfo) Size() int64        { return 0 }
func (f fakeFileInfo) Mode() fs.FileMode  { return f.mode }
func (f fakeFileInfo) ModTime() time.Time { return time.Time{} }
func (f fakeFileInfo) IsDir() bool        { return f.mode.IsDir() }
func (f fakeFileInfo) Sys() any           { return nil }

func TestFileInfoHeaderRejectsSocket(t *testing.T) {
	_, err := FileInfoHeader(fakeFileInfo{"s", fs.ModeSocket}, "", HeaderModeComplete, time.Time{})
	if err == nil {
		t.Fatal("want error for socket, got nil")
	}
}

func TestFileInfoHeaderRejectsUnsupportedType(t *testing.T) {
	_, err := FileInfoHeader(fakeFileInfo{"irregular", fs.ModeIrregular}, "", HeaderModeComplete, time.Time{})
	if !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("got err=%v, want ErrUnsupportedType", err)
	}
}
