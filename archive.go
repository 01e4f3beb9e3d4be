package docsync

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// VersionArchive is a bounded memory of recently committed versions per
// document, so the resolver can tell "remote is an ancestor we already
// committed" apart from genuine divergence.
type VersionArchive struct {
	cache *lru.Cache[string, string]
}

func NewVersionArchive(size int) *VersionArchive {
	if size < 1 {
		size = 1
	}
	cache, _ := lru.New[string, string](size)
	return &VersionArchive{cache: cache}
}

func archiveKey(docID string, version uint64) string {
	return fmt.Sprintf("%s@%d", docID, version)
}

func (va *VersionArchive) Record(docID string, v DocumentVersion) {
	va.cache.Add(archiveKey(docID, v.Version), v.Checksum)
}

func (va *VersionArchive) Checksum(docID string, version uint64) (string, bool) {
	return va.cache.Get(archiveKey(docID, version))
}
