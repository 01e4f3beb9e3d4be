/*
Package patch expresses higher-level document changes — annotations, form
field values, metadata and wrapped binary deltas — as versioned,
checksummed patches that can be validated, applied, merged and optimized
before transport.

Patches obey the same version-continuity rule as delta chunks: a sequence
is only valid when each patch's FromVersion equals the previous one's
ToVersion.
*/
package patch

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/danielsimonjr/docsync/delta"
	"github.com/danielsimonjr/docsync/protocol"
)

type Target string

const (
	TargetAnnotation Target = "annotation"
	TargetForm       Target = "form"
	TargetMetadata   Target = "metadata"
	TargetData       Target = "data"
)

type Kind string

const (
	KindAdd    Kind = "add"
	KindUpdate Kind = "update"
	KindDelete Kind = "delete"
	KindBinary Kind = "binary"
)

type Type string

const (
	TypeBinary     Type = "binary"
	TypeAnnotation Type = "annotation"
	TypeForm       Type = "form"
	TypeMetadata   Type = "metadata"
	TypeMixed      Type = "mixed"
)

// Operation is one structured change. Annotation operations address by
// ID, form/metadata operations by Path; binary operations wrap a delta.
// Within a single patch, later operations for the same ID/Path win.
type Operation struct {
	Kind   Kind            `json:"type"`
	Target Target          `json:"target"`
	ID     string          `json:"id,omitempty"`
	Path   string          `json:"path,omitempty"`
	Value  json.RawMessage `json:"value,omitempty"`
	Delta  []delta.Op      `json:"delta,omitempty"`
}

// Patch is the structured analogue of a delta sync chunk.
type Patch struct {
	ID          string      `json:"id"`
	DocumentID  string      `json:"document_id"`
	FromVersion uint64      `json:"from_version"`
	ToVersion   uint64      `json:"to_version"`
	Type        Type        `json:"type"`
	Ops         []Operation `json:"operations"`
	CreatedAt   time.Time   `json:"created_at"`
	Size        int         `json:"size"`
	Checksum    uint32      `json:"checksum"`
}

var (
	ErrChecksumMismatch = errors.New("docsync: invalid patch checksum")
	ErrDiscontinuity    = errors.New("docsync: patch version discontinuity")
	ErrNoPatches        = errors.New("docsync: no patches to merge")
	ErrBadOperation     = errors.New("docsync: malformed patch operation")
)

// appendOperation serializes one operation as a TLV 'P' record with
// positional fields: kind, target, id, path, value, delta.
func appendOperation(into []byte, op *Operation) []byte {
	bm, into := protocol.OpenHeader(into, 'P')
	into = protocol.Append(into, 'k', []byte(op.Kind))
	into = protocol.Append(into, 'g', []byte(op.Target))
	into = protocol.Append(into, 'i', []byte(op.ID))
	into = protocol.Append(into, 'h', []byte(op.Path))
	into = protocol.Append(into, 'v', op.Value)
	into = protocol.Append(into, 'd', delta.Serialize(op.Delta))
	protocol.CloseHeader(into, bm)
	return into
}

func serializeOps(ops []Operation) (blob []byte) {
	for i := range ops {
		blob = appendOperation(blob, &ops[i])
	}
	return
}

// newPatch is the shared creation step: serialize the operation list,
// checksum it, stamp identity and size.
func newPatch(docID string, t Type, ops []Operation, from, to uint64) Patch {
	blob := serializeOps(ops)
	return Patch{
		ID:          uuid.Must(uuid.NewV7()).String(),
		DocumentID:  docID,
		FromVersion: from,
		ToVersion:   to,
		Type:        t,
		Ops:         ops,
		CreatedAt:   time.Now().UTC(),
		Size:        len(blob),
		Checksum:    protocol.Checksum32(blob),
	}
}

// Validate recomputes the checksum over the serialized operations. Run
// it on every patch received from a remote source before applying or
// merging.
func Validate(p Patch) error {
	if protocol.Checksum32(serializeOps(p.Ops)) != p.Checksum {
		return ErrChecksumMismatch
	}
	return nil
}
