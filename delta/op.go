/*
Package delta computes and applies byte-level patches between two versions
of a document's raw content. A delta is an ordered list of operations, each
rooted at an offset in the old buffer; deltas are packed into size-bounded
sync chunks for transport, with a rolling checksum over the serialized
operation list.

The diff is a greedy forward scan with bounded-window resynchronization,
not a minimal edit script. The only contract is the round trip:
Apply(A, Calculate(A, B)) == B.
*/
package delta

import (
	"errors"
	"time"

	"github.com/danielsimonjr/docsync/protocol"
)

type OpType byte

const (
	OpInsert  OpType = 'I'
	OpDelete  OpType = 'D'
	OpReplace OpType = 'R'
	// OpMove is declared for wire compatibility but is never emitted by
	// Calculate and is a no-op in Apply.
	OpMove OpType = 'M'
)

// Op is one edit to a binary buffer. Offsets always address the old
// buffer; Apply processes operations in descending offset order so
// earlier splices never shift the offsets of pending ones.
type Op struct {
	Type      OpType
	Path      string
	Offset    uint64
	Length    int
	Data      []byte
	Timestamp time.Time
}

var ErrBadOperation = errors.New("docsync: malformed delta operation")

// AppendOp serializes one operation as a TLV 'O' record.
// Field records are positional: type, path, offset, length, timestamp, data.
func AppendOp(into []byte, op *Op) []byte {
	bm, into := protocol.OpenHeader(into, 'O')
	into = protocol.Append(into, 't', []byte{byte(op.Type)})
	into = protocol.Append(into, 'p', []byte(op.Path))
	into = protocol.Append(into, 'f', protocol.ZipUint64(op.Offset))
	into = protocol.Append(into, 'l', protocol.ZipUint64(uint64(op.Length)))
	into = protocol.Append(into, 's', protocol.ZipInt64(op.Timestamp.UnixMilli()))
	into = protocol.Append(into, 'd', op.Data)
	protocol.CloseHeader(into, bm)
	return into
}

// Serialize encodes an operation list; chunk checksums are computed
// over these bytes.
func Serialize(ops []Op) (blob []byte) {
	for i := range ops {
		blob = AppendOp(blob, &ops[i])
	}
	return
}

// ParseOps decodes a serialized operation list.
func ParseOps(blob []byte) (ops []Op, err error) {
	for len(blob) > 0 {
		var body []byte
		body, blob, err = protocol.TakeWary('O', blob)
		if err != nil {
			return nil, err
		}
		var op Op
		if op, err = parseOp(body); err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	return
}

func parseOp(body []byte) (op Op, err error) {
	var t, path, off, length, ts, data []byte
	rest := body
	for _, field := range []struct {
		lit byte
		dst *[]byte
	}{{'T', &t}, {'P', &path}, {'F', &off}, {'L', &length}, {'S', &ts}, {'D', &data}} {
		*field.dst, rest, err = protocol.TakeWary(field.lit, rest)
		if err != nil {
			return
		}
	}
	if len(rest) != 0 || len(t) != 1 {
		return op, ErrBadOperation
	}
	op.Type = OpType(t[0])
	op.Path = string(path)
	op.Offset = protocol.UnzipUint64(off)
	op.Length = int(protocol.UnzipUint64(length))
	op.Timestamp = time.UnixMilli(protocol.UnzipInt64(ts)).UTC()
	op.Data = append([]byte(nil), data...)
	return
}
