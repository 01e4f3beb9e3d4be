package delta

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitVersionChain(t *testing.T) {
	oldData := bytes.Repeat([]byte("0123456789abcdef"), 16)
	newData := append([]byte{}, oldData...)
	for i := 0; i < len(newData); i += 50 {
		newData[i] = '!'
	}
	ops := Calculate(oldData, newData, nil)
	require.Greater(t, len(ops), 1)

	// tiny chunk budget forces one op per chunk
	opts := Options{MaxChunkSize: 1}
	chunks := Split("doc-1", ops, 3, 9, len(newData), &opts)
	require.Len(t, chunks, len(ops))
	for i, ch := range chunks {
		assert.Equal(t, "doc-1", ch.DocumentID)
		assert.NotEmpty(t, ch.ID)
		assert.Equal(t, uint64(3+i), ch.FromVersion)
		if i < len(chunks)-1 {
			assert.Equal(t, ch.FromVersion+1, ch.ToVersion)
		}
	}
	assert.Equal(t, uint64(9), chunks[len(chunks)-1].ToVersion)
}

func TestSplitSingleChunk(t *testing.T) {
	ops := Calculate([]byte("aaaaaaaaaa"), []byte("bbbbbbbbbb"), nil)
	chunks := Split("doc-1", ops, 1, 2, 10, nil)
	require.Len(t, chunks, 1)
	assert.Equal(t, uint64(1), chunks[0].FromVersion)
	assert.Equal(t, uint64(2), chunks[0].ToVersion)
	assert.Equal(t, len(Serialize(ops)), chunks[0].CompressedSize)
	assert.Equal(t, 10, chunks[0].OriginalSize)
}

func TestApplyChunksRoundTrip(t *testing.T) {
	oldData := bytes.Repeat([]byte("lorem ipsum dolor sit amet "), 40)
	newData := append([]byte{}, oldData...)
	newData = append(newData[:100], append([]byte("EDITED SECTION HERE"), newData[140:]...)...)
	newData[3] = '#'

	ops := Calculate(oldData, newData, nil)
	opts := Options{MaxChunkSize: 64}
	chunks := Split("doc-1", ops, 5, 6, len(newData), &opts)

	res, err := ApplyChunks(oldData, 5, chunks, nil)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, newData, res.NewData)
	assert.Equal(t, chunks[len(chunks)-1].ToVersion, res.NewVersion)
}

func TestApplyChunksSortsByVersion(t *testing.T) {
	oldData := bytes.Repeat([]byte("0123456789abcdef"), 8)
	newData := append([]byte{}, oldData...)
	newData[10], newData[60], newData[110] = '!', '!', '!'
	opts := Options{MaxChunkSize: 1}
	chunks := Split("doc-1", Calculate(oldData, newData, nil), 1, 4, len(newData), &opts)
	require.Greater(t, len(chunks), 1)

	// reversed input must still apply in fromVersion order
	reversed := make([]Chunk, 0, len(chunks))
	for i := len(chunks) - 1; i >= 0; i-- {
		reversed = append(reversed, chunks[i])
	}
	res, err := ApplyChunks(oldData, 1, reversed, nil)
	require.NoError(t, err)
	assert.Equal(t, newData, res.NewData)
}

func TestApplyChunksChecksumMismatch(t *testing.T) {
	oldData := []byte("aaaaaaaaaaaaaaaaaaaa")
	chunks := Split("doc-1", Calculate(oldData, []byte("cccccccccc"), nil), 1, 2, 10, nil)
	require.NotEmpty(t, chunks[0].Ops[0].Data)
	chunks[0].Ops[0].Data[0] ^= 0xff

	res, err := ApplyChunks(oldData, 1, chunks, nil)
	assert.ErrorIs(t, err, ErrChecksumMismatch)
	assert.False(t, res.Success)
	assert.Equal(t, uint64(1), res.NewVersion)
}

func TestApplyChunksVersionGap(t *testing.T) {
	oldData := []byte("aaaaaaaaaaaaaaaaaaaa")
	chunks := Split("doc-1", Calculate(oldData, []byte("dddddddddd"), nil), 1, 2, 10, nil)
	chunks[0].FromVersion = 7 // document sits at version 1

	_, err := ApplyChunks(oldData, 1, chunks, nil)
	assert.ErrorIs(t, err, ErrVersionMismatch)
}

func TestApplyChunksKeepsPartialState(t *testing.T) {
	oldData := bytes.Repeat([]byte("0123456789abcdef"), 16)
	newData := append([]byte{}, oldData...)
	newData[5], newData[105], newData[205] = '#', '#', '#'
	ops := Calculate(oldData, newData, nil)
	opts := Options{MaxChunkSize: 1}
	chunks := Split("doc-1", ops, 1, 4, len(newData), &opts)
	require.Greater(t, len(chunks), 1)
	last := len(chunks) - 1
	chunks[last].Checksum++ // corrupt the final chunk only

	res, err := ApplyChunks(oldData, 1, chunks, nil)
	require.ErrorIs(t, err, ErrChecksumMismatch)
	// chunks before the failure are applied and not rolled back
	assert.Equal(t, chunks[last].FromVersion, res.NewVersion)
}

func TestApplyChunksRebasesLengthChangingOps(t *testing.T) {
	oldData := concat("AAAAAAAAAAAA", "hello", "BBBBBBBBBBBB", "world", "CCCCCCCCCCCC")
	newData := concat("AAAAAAAAAAAA", "hi-there", "BBBBBBBBBBBB", "earth", "CCCCCCCCCCCC")
	ops := Calculate(oldData, newData, nil)
	require.Greater(t, len(ops), 1)

	// one op per chunk: a growing edit lands in a non-final chunk
	opts := Options{MaxChunkSize: 1}
	chunks := Split("doc-1", ops, 1, 2, len(newData), &opts)
	require.Len(t, chunks, len(ops))

	res, err := ApplyChunks(oldData, 1, chunks, nil)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, newData, res.NewData)

	whole, err := Apply(oldData, ops)
	require.NoError(t, err)
	assert.Equal(t, whole, res.NewData)
}

func TestApplyChunksRoundTripAnyChunkSize(t *testing.T) {
	oldData := concat("AAAAAAAAAAAA", "hello", "BBBBBBBBBBBB", "world", "CCCCCCCCCCCC", "dropme", "DDDDDDDDDDDD")
	newData := concat("AAAAAAAAAAAA", "hi-there", "BBBBBBBBBBBB", "earth", "CCCCCCCCCCCC", "DDDDDDDDDDDD")
	ops := Calculate(oldData, newData, nil)
	require.Greater(t, len(ops), 2)

	for _, size := range []int{1, 32, 64, 256, 1 << 20} {
		opts := Options{MaxChunkSize: size}
		chunks := Split("doc-1", ops, 1, 9, len(newData), &opts)
		res, err := ApplyChunks(oldData, 1, chunks, nil)
		require.NoError(t, err, "chunk size %d", size)
		assert.Equal(t, newData, res.NewData, "chunk size %d", size)
		assert.Equal(t, uint64(9), res.NewVersion, "chunk size %d", size)
	}
}

func concat(parts ...string) (out []byte) {
	for _, p := range parts {
		out = append(out, p...)
	}
	return
}

func TestApplyChunksEmpty(t *testing.T) {
	res, err := ApplyChunks([]byte("data"), 3, nil, nil)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, uint64(3), res.NewVersion)
	assert.Equal(t, []byte("data"), res.NewData)
}
