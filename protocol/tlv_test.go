package protocol

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordFormats(t *testing.T) {
	tiny := Record('a', []byte("123"))
	assert.Equal(t, []byte("3123"), tiny)

	short := Record('a', bytes.Repeat([]byte("x"), 100))
	assert.Equal(t, byte('a'), short[0])
	assert.Equal(t, byte(100), short[1])

	long := Record('A', bytes.Repeat([]byte("y"), 300))
	assert.Equal(t, byte('A'), long[0])
	assert.Len(t, long, 300+5)
}

func TestTakeRoundTrip(t *testing.T) {
	buf := Concat(
		Record('k', []byte("one")),
		Record('v', bytes.Repeat([]byte("2"), 200)),
		Record('V', bytes.Repeat([]byte("3"), 999)),
	)
	body, rest := Take('K', buf)
	assert.Equal(t, []byte("one"), body)
	body, rest = Take('V', rest)
	assert.Len(t, body, 200)
	body, rest, err := TakeWary('V', rest)
	require.NoError(t, err)
	assert.Len(t, body, 999)
	assert.Empty(t, rest)
}

func TestTakeWaryErrors(t *testing.T) {
	_, _, err := TakeWary('A', nil)
	assert.ErrorIs(t, err, ErrIncomplete)

	_, _, err = TakeWary('A', Record('b', []byte("mismatched type")))
	assert.ErrorIs(t, err, ErrBadRecord)

	long := Record('A', bytes.Repeat([]byte("z"), 300))
	_, _, err = TakeWary('A', long[:10])
	assert.ErrorIs(t, err, ErrIncomplete)
}

func TestTakeAnyWary(t *testing.T) {
	lit, body, rest, err := TakeAnyWary(Record('q', []byte("payload...")))
	require.NoError(t, err)
	assert.Equal(t, byte('Q'), lit)
	assert.Equal(t, []byte("payload..."), body)
	assert.Empty(t, rest)
}

func TestOpenCloseHeader(t *testing.T) {
	bm, buf := OpenHeader(nil, 'X')
	buf = append(buf, []byte("streamed body")...)
	CloseHeader(buf, bm)

	body, rest, err := TakeWary('X', buf)
	require.NoError(t, err)
	assert.Equal(t, []byte("streamed body"), body)
	assert.Empty(t, rest)
}

func TestZipUint64(t *testing.T) {
	for _, v := range []uint64{0, 1, 255, 256, 1 << 20, 1<<63 + 7} {
		assert.Equal(t, v, UnzipUint64(ZipUint64(v)))
	}
	assert.Empty(t, ZipUint64(0))
}

func TestZipInt64(t *testing.T) {
	for _, v := range []int64{0, 1, -1, 1000, -1000, 1 << 40, -(1 << 40)} {
		assert.Equal(t, v, UnzipInt64(ZipInt64(v)))
	}
}

func TestChecksum32(t *testing.T) {
	blob := []byte("the operations of a chunk, serialized")
	sum := Checksum32(blob)
	assert.Equal(t, sum, Checksum32(blob))

	// any single flipped byte must change the sum
	for i := range blob {
		mutated := append([]byte(nil), blob...)
		mutated[i] ^= 0x01
		assert.NotEqual(t, sum, Checksum32(mutated), "flip at %d", i)
	}
	assert.Zero(t, Checksum32(nil))
}
