/*
Package docsync is the offline synchronization core of a PDF document
editor: it decides how a document edited while disconnected is reconciled
with a remote copy. The byte-level diffing lives in delta/, structured
patches in patch/; this package owns the version model, conflict
detection and field-level merging.

Everything here is a pure function of immutable input snapshots. Nothing
blocks, retries or touches storage; persistence and transport are the
caller's business.
*/
package docsync

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/cespare/xxhash"
)

// ChangeType classifies an edit in a document's change log.
type ChangeType string

const (
	ChangeAnnotation ChangeType = "annotation"
	ChangeForm       ChangeType = "form"
	ChangeMetadata   ChangeType = "metadata"
	ChangeText       ChangeType = "text"
	ChangeData       ChangeType = "data"
)

type ChangeAction string

const (
	ActionAdd    ChangeAction = "add"
	ActionUpdate ChangeAction = "update"
	ActionDelete ChangeAction = "delete"
)

// EditHistoryEntry is the atomic unit of change. Ordering by Timestamp
// defines happens-before for merge purposes; IDs are unique within one
// document's history and merges deduplicate by them.
type EditHistoryEntry struct {
	ID        string          `json:"id"`
	Timestamp time.Time       `json:"timestamp"`
	Type      ChangeType      `json:"type"`
	Action    ChangeAction    `json:"action"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// DocumentVersion is one committed state of a document's change log,
// immutable once created. Version only ever grows; it is never reused.
type DocumentVersion struct {
	Version    uint64             `json:"version"`
	ModifiedAt time.Time          `json:"modified_at"`
	Checksum   string             `json:"checksum"`
	Changes    []EditHistoryEntry `json:"changes,omitempty"`
}

// Annotation is the editor's annotation snapshot as the sync core sees
// it: addressable by ID, last-writer decided by UpdatedAt.
type Annotation struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Page      int             `json:"page"`
	Contents  string          `json:"contents,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// ContentChecksum hashes whole-document content for DocumentVersion.
// Compared only for equality, so any stable digest serves.
func ContentChecksum(data []byte) string {
	return strconv.FormatUint(xxhash.Sum64(data), 16)
}

// jsonValue is the canonical byte form used for opaque value comparison.
func jsonValue(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return b
}
