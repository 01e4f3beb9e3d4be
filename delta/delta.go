package delta

import (
	"fmt"
	"sort"
	"time"
)

type Options struct {
	// SyncWindow bounds the resynchronization lookahead, bytes per buffer.
	SyncWindow int
	// MinMatchRun is how many consecutive bytes must match to accept a
	// resynchronization point.
	MinMatchRun int
	// MaxChunkSize bounds the serialized operation bytes per sync chunk.
	MaxChunkSize int
	// MaxDeltaRatio is the serialized-delta/full-payload ratio below which
	// delta transmission is recommended over a full transfer.
	MaxDeltaRatio float64
}

func (o *Options) SetDefaults() {
	if o.SyncWindow == 0 {
		o.SyncWindow = 1024
	}
	if o.MinMatchRun == 0 {
		o.MinMatchRun = 8
	}
	if o.MaxChunkSize == 0 {
		o.MaxChunkSize = 1 << 20
	}
	if o.MaxDeltaRatio == 0 {
		o.MaxDeltaRatio = 0.5
	}
}

func defaulted(opts *Options) Options {
	var o Options
	if opts != nil {
		o = *opts
	}
	o.SetDefaults()
	return o
}

// Calculate diffs two buffers with a greedy forward scan. On mismatch it
// searches a bounded window for the first pair of positions where
// MinMatchRun bytes line up again and emits the skipped spans as a single
// insert/delete/replace. No resync point within the window folds the
// remainder of both buffers into one replace.
func Calculate(oldData, newData []byte, opts *Options) (ops []Op) {
	o := defaulted(opts)
	now := time.Now().UTC()
	i, j := 0, 0
	for i < len(oldData) && j < len(newData) {
		if oldData[i] == newData[j] {
			i++
			j++
			continue
		}
		di, dj, ok := resync(oldData[i:], newData[j:], o.SyncWindow, o.MinMatchRun)
		if !ok {
			ops = appendSpan(ops, uint64(i), oldData[i:], newData[j:], now)
			return ops
		}
		ops = appendSpan(ops, uint64(i), oldData[i:i+di], newData[j:j+dj], now)
		i += di
		j += dj
	}
	if i < len(oldData) {
		ops = append(ops, Op{Type: OpDelete, Offset: uint64(i), Length: len(oldData) - i, Timestamp: now})
	}
	if j < len(newData) {
		data := append([]byte(nil), newData[j:]...)
		ops = append(ops, Op{Type: OpInsert, Offset: uint64(i), Data: data, Timestamp: now})
	}
	return ops
}

// appendSpan emits the one operation covering a mismatched span pair.
func appendSpan(ops []Op, offset uint64, oldSpan, newSpan []byte, now time.Time) []Op {
	switch {
	case len(oldSpan) == 0 && len(newSpan) == 0:
		return ops
	case len(oldSpan) == 0:
		return append(ops, Op{Type: OpInsert, Offset: offset,
			Data: append([]byte(nil), newSpan...), Timestamp: now})
	case len(newSpan) == 0:
		return append(ops, Op{Type: OpDelete, Offset: offset, Length: len(oldSpan), Timestamp: now})
	default:
		return append(ops, Op{Type: OpReplace, Offset: offset, Length: len(oldSpan),
			Data: append([]byte(nil), newSpan...), Timestamp: now})
	}
}

// resync scans diagonals of the (window x window) search space in order of
// increasing total skip, so the cheapest resynchronization point wins.
func resync(a, b []byte, window, run int) (di, dj int, ok bool) {
	matches := func(x, y int) bool {
		if x+run > len(a) || y+run > len(b) {
			return false
		}
		for k := 0; k < run; k++ {
			if a[x+k] != b[y+k] {
				return false
			}
		}
		return true
	}
	for total := 1; total <= 2*window; total++ {
		lo := total - window
		if lo < 0 {
			lo = 0
		}
		hi := total
		if hi > window {
			hi = window
		}
		for x := lo; x <= hi; x++ {
			y := total - x
			if matches(x, y) {
				return x, y, true
			}
		}
	}
	return 0, 0, false
}

// Apply replays a delta onto a buffer. Operations are applied in
// descending offset order; OpMove is accepted but not executed on
// binary content.
func Apply(data []byte, ops []Op) ([]byte, error) {
	sorted := make([]Op, len(ops))
	copy(sorted, ops)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Offset > sorted[j].Offset
	})
	buf := append([]byte(nil), data...)
	for i := range sorted {
		op := &sorted[i]
		off := int(op.Offset)
		switch op.Type {
		case OpInsert:
			if off > len(buf) {
				return nil, fmt.Errorf("%w: insert at %d past end %d", ErrBadOperation, off, len(buf))
			}
			buf = splice(buf, off, 0, op.Data)
		case OpDelete:
			if off+op.Length > len(buf) {
				return nil, fmt.Errorf("%w: delete [%d:%d] past end %d", ErrBadOperation, off, off+op.Length, len(buf))
			}
			buf = splice(buf, off, op.Length, nil)
		case OpReplace:
			if off+op.Length > len(buf) {
				return nil, fmt.Errorf("%w: replace [%d:%d] past end %d", ErrBadOperation, off, off+op.Length, len(buf))
			}
			buf = splice(buf, off, op.Length, op.Data)
		case OpMove:
			// declared but not executed for binary content
		default:
			return nil, fmt.Errorf("%w: unknown type %q", ErrBadOperation, op.Type)
		}
	}
	return buf, nil
}

// splice removes cut bytes at off and inserts ins there.
func splice(buf []byte, off, cut int, ins []byte) []byte {
	out := make([]byte, 0, len(buf)-cut+len(ins))
	out = append(out, buf[:off]...)
	out = append(out, ins...)
	out = append(out, buf[off+cut:]...)
	return out
}
