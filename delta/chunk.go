package delta

import (
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/danielsimonjr/docsync/protocol"
	"github.com/danielsimonjr/docsync/utils"
)

var ChunkApplyFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "docsync",
	Subsystem: "delta",
	Name:      "chunk_apply_failures",
}, []string{"reason"})

var ChunksApplied = prometheus.NewCounter(prometheus.CounterOpts{
	Namespace: "docsync",
	Subsystem: "delta",
	Name:      "chunks_applied",
})

var (
	ErrChecksumMismatch = errors.New("docsync: invalid checksum")
	ErrVersionMismatch  = errors.New("docsync: version mismatch")
)

// Chunk is a transport-sized slice of a delta. A sequence of chunks is
// valid only when each FromVersion equals the previous ToVersion; the
// checksum covers the TLV-serialized operation list.
type Chunk struct {
	ID             string
	DocumentID     string
	FromVersion    uint64
	ToVersion      uint64
	Ops            []Op
	Checksum       uint32
	CompressedSize int
	OriginalSize   int
}

// NewChunk stamps id, checksum and sizes for one packed operation run.
func NewChunk(docID string, from, to uint64, ops []Op, originalSize int) Chunk {
	blob := Serialize(ops)
	return Chunk{
		ID:             uuid.Must(uuid.NewV7()).String(),
		DocumentID:     docID,
		FromVersion:    from,
		ToVersion:      to,
		Ops:            ops,
		Checksum:       protocol.Checksum32(blob),
		CompressedSize: len(blob),
		OriginalSize:   originalSize,
	}
}

// Split packs a delta into chunks bounded by MaxChunkSize serialized
// bytes. Intermediate chunks step the version by one; the final chunk
// carries the caller-supplied target version.
//
// Calculate emits all offsets against the old buffer, but ApplyChunks
// applies each chunk to the buffer the previous chunk produced, so every
// later chunk's offsets are rebased here by the cumulative length change
// of the ops packed into earlier chunks. Input ops must be non-overlapping
// and offset-ascending, which is what Calculate produces.
func Split(docID string, ops []Op, from, to uint64, originalSize int, opts *Options) (chunks []Chunk) {
	o := defaulted(opts)
	var cur []Op
	curSize := 0
	shift := 0   // length change from ops in already flushed chunks
	pending := 0 // length change accumulated by the current chunk
	flush := func() {
		chunks = append(chunks, NewChunk(docID, 0, 0, cur, originalSize))
		cur, curSize = nil, 0
		shift += pending
		pending = 0
	}
	for i := range ops {
		opSize := len(AppendOp(nil, &ops[i]))
		if curSize+opSize > o.MaxChunkSize && len(cur) > 0 {
			flush()
		}
		op := ops[i]
		op.Offset = uint64(int(op.Offset) + shift)
		cur = append(cur, op)
		curSize += opSize
		if op.Type != OpMove {
			pending += len(op.Data) - op.Length
		}
	}
	if len(cur) > 0 || len(chunks) == 0 {
		flush()
	}
	for i := range chunks {
		chunks[i].FromVersion = from + uint64(i)
		chunks[i].ToVersion = from + uint64(i) + 1
	}
	chunks[len(chunks)-1].ToVersion = to
	return
}

// Result reports a chunk application run. On failure NewData/NewVersion
// hold the state reached before the failing chunk; chunks applied before
// it are not rolled back.
type Result struct {
	Success    bool
	NewData    []byte
	NewVersion uint64
}

// ApplyChunks verifies and applies a chunk sequence to data at the given
// running version. For every chunk the checksum is recomputed and
// compared first, then version continuity is checked, then the delta is
// applied and the running version advances.
func ApplyChunks(data []byte, version uint64, chunks []Chunk, log utils.Logger) (Result, error) {
	if log == nil {
		log = utils.NewNopLogger()
	}
	sorted := make([]Chunk, len(chunks))
	copy(sorted, chunks)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].FromVersion < sorted[j].FromVersion
	})
	cur, v := data, version
	for i := range sorted {
		ch := &sorted[i]
		if protocol.Checksum32(Serialize(ch.Ops)) != ch.Checksum {
			ChunkApplyFailures.WithLabelValues("checksum").Inc()
			log.Warn("chunk checksum mismatch", "chunk", ch.ID, "doc", ch.DocumentID)
			return Result{NewData: cur, NewVersion: v},
				fmt.Errorf("%w: chunk %s", ErrChecksumMismatch, ch.ID)
		}
		if ch.FromVersion != v {
			ChunkApplyFailures.WithLabelValues("version").Inc()
			log.Warn("chunk version mismatch", "chunk", ch.ID, "expected", v, "actual", ch.FromVersion)
			return Result{NewData: cur, NewVersion: v},
				fmt.Errorf("%w: chunk %s expects version %d, have %d", ErrVersionMismatch, ch.ID, ch.FromVersion, v)
		}
		next, err := Apply(cur, ch.Ops)
		if err != nil {
			ChunkApplyFailures.WithLabelValues("operation").Inc()
			return Result{NewData: cur, NewVersion: v}, err
		}
		cur, v = next, ch.ToVersion
		ChunksApplied.Inc()
	}
	return Result{Success: true, NewData: cur, NewVersion: v}, nil
}
