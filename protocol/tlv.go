// TLV format is based on ToyTLV (MIT licence) written by Victor Grishchenko in 2024
// Original project: https://github.com/learn-decentralized-systems/toytlv

/*
Package protocol implements the compact TLV (Type-Length-Value) encoding used
to serialize delta operations, sync chunks and structured patches. Integrity
checksums are computed over these serialized bytes, so encoding must be
deterministic: same operations in, same bytes out.

Three header formats are selected automatically by body size:

 1. Tiny (1 byte): [('0' + body_length)] for bodies of 0-9 bytes,
    lowercase record types only; the type byte is lost.
 2. Short (2 bytes): [lowercase_type, body_length] for bodies up to 255 bytes.
 3. Long (5 bytes): [uppercase_type, 4-byte little-endian length] up to 2GB.

Record types are uppercase letters A-Z. Passing a lowercase type to the
encoding functions permits the tiny format for small bodies; an uppercase
type forces an explicit header.
*/
package protocol

import (
	"encoding/binary"
	"errors"
)

const CaseBit uint8 = 'a' - 'A'

var (
	ErrIncomplete = errors.New("incomplete TLV data")
	ErrBadRecord  = errors.New("bad TLV record format")
)

// ProbeHeader reads a record header without consuming it.
// lit is 'A'-'Z', '0' for the tiny format, '-' for garbage, 0 for
// an incomplete header.
func ProbeHeader(data []byte) (lit byte, hdrlen, bodylen int) {
	if len(data) == 0 {
		return 0, 0, 0
	}
	b := data[0]
	switch {
	case b >= '0' && b <= '9': // tiny
		return '0', 1, int(b - '0')
	case b >= 'a' && b <= 'z': // short
		if len(data) < 2 {
			return 0, 0, 0
		}
		return b - CaseBit, 2, int(data[1])
	case b >= 'A' && b <= 'Z': // long
		if len(data) < 5 {
			return 0, 0, 0
		}
		bl := binary.LittleEndian.Uint32(data[1:5])
		if bl > 0x7fffffff {
			return '-', 0, 0
		}
		return b, 5, int(bl)
	}
	return '-', 0, 0
}

// AppendHeader appends a record header, picking the smallest format
// the body length and type case allow.
func AppendHeader(into []byte, lit byte, bodylen int) []byte {
	biglit := lit &^ CaseBit
	if biglit < 'A' || biglit > 'Z' {
		panic("TLV record type is A..Z")
	}
	if bodylen < 10 && (lit&CaseBit) != 0 {
		return append(into, byte('0'+bodylen))
	}
	if bodylen > 0xff {
		if bodylen > 0x7fffffff {
			panic("oversized TLV record")
		}
		into = append(into, biglit)
		return binary.LittleEndian.AppendUint32(into, uint32(bodylen))
	}
	return append(into, lit|CaseBit, byte(bodylen))
}

// Append appends a complete TLV record to the buffer.
func Append(into []byte, lit byte, body ...[]byte) []byte {
	total := 0
	for _, b := range body {
		total += len(b)
	}
	into = AppendHeader(into, lit, total)
	for _, b := range body {
		into = append(into, b...)
	}
	return into
}

// Record creates a complete TLV record.
func Record(lit byte, body ...[]byte) []byte {
	total := 0
	for _, b := range body {
		total += len(b)
	}
	ret := make([]byte, 0, total+5)
	return Append(ret, lit, body...)
}

// Take extracts a record of the given type from trusted data.
// Returns nil body on a type mismatch, (nil, data) if incomplete.
func Take(lit byte, data []byte) (body, rest []byte) {
	flit, hdrlen, bodylen := ProbeHeader(data)
	if flit == 0 || hdrlen+bodylen > len(data) {
		return nil, data
	}
	if flit != lit && flit != '0' {
		return nil, nil
	}
	return data[hdrlen : hdrlen+bodylen], data[hdrlen+bodylen:]
}

// TakeWary extracts a record of the given type from untrusted data,
// reporting malformed input as an error.
func TakeWary(lit byte, data []byte) (body, rest []byte, err error) {
	flit, hdrlen, bodylen := ProbeHeader(data)
	if flit == 0 || hdrlen+bodylen > len(data) {
		return nil, data, ErrIncomplete
	}
	if flit != lit && flit != '0' {
		return nil, nil, ErrBadRecord
	}
	return data[hdrlen : hdrlen+bodylen], data[hdrlen+bodylen:], nil
}

// TakeAnyWary extracts whatever record comes next from untrusted data.
func TakeAnyWary(data []byte) (lit byte, body, rest []byte, err error) {
	if len(data) == 0 {
		return 0, nil, nil, ErrIncomplete
	}
	lit = data[0] &^ CaseBit
	body, rest, err = TakeWary(lit, data)
	return
}

// Concat concatenates byte slices with a single allocation.
func Concat(msg ...[]byte) []byte {
	total := 0
	for _, b := range msg {
		total += len(b)
	}
	ret := make([]byte, 0, total)
	for _, b := range msg {
		ret = append(ret, b...)
	}
	return ret
}

// OpenHeader starts a long-format record whose body length is not yet
// known; pair with CloseHeader once the body has been appended.
func OpenHeader(buf []byte, lit byte) (bookmark int, res []byte) {
	lit &= ^CaseBit
	if lit < 'A' || lit > 'Z' {
		panic("TLV record type is A..Z")
	}
	res = append(buf, lit, 0, 0, 0, 0)
	return len(res), res
}

// CloseHeader writes the actual body length into a record started
// with OpenHeader.
func CloseHeader(buf []byte, bookmark int) {
	if bookmark < 5 || len(buf) < bookmark {
		panic("no TLV header to close")
	}
	binary.LittleEndian.PutUint32(buf[bookmark-4:bookmark], uint32(len(buf)-bookmark))
}
