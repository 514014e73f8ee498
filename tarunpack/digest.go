package tarunpack

import (
	"sync"

	"github.com/cespare/xxhash/v2"
)

// digestWriter is an io.Writer that feeds everything written to it into a
// running xxhash, so a regular file's content digest can be computed in
// the same pass that writes it to disk.
type digestWriter struct {
	h xxhash.Digest
}

func (d *digestWriter) reset()   { d.h.Reset() }
func (d *digestWriter) sum() uint64 { return d.h.Sum64() }

func (d *digestWriter) Write(p []byte) (int, error) { return d.h.Write(p) }

// ManifestDigester is a Digester that accumulates a name->xxhash64 manifest
// in memory, for callers that want a post-extraction integrity report
// rather than per-file callbacks.
type ManifestDigester struct {
	mu       sync.Mutex
	Manifest map[string]uint64
}

// NewManifestDigester returns a ready-to-use ManifestDigester.
func NewManifestDigester() *ManifestDigester {
	return &ManifestDigester{Manifest: make(map[string]uint64)}
}

func (m *ManifestDigester) Record(name string, sum uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Manifest[name] = sum
}
