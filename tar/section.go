package tar

import (
	"io"

	"github.com/elliotnunn/gotar/internal/sectionreader"
)

// EntryDataAt returns a bounded io.ReaderAt over a single entry's data
// region within archive, given the offset and size recorded by a prior
// Reader.DataOffset call (size is typically the Header's physical data
// length: hdr.Size for a non-sparse entry).
//
// Unlike a bare io.SectionReader, EntryDataAt collapses a chain of nested
// sections down to one indirection, which matters when the archive being
// read is itself an entry inside another archive (or other bounded
// container) opened the same way.
func EntryDataAt(archive io.ReaderAt, offset, size int64) io.ReaderAt {
	return sectionreader.Section(archive, offset, size)
}
