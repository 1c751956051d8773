package compress

import (
	"bytes"
	"io"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func roundTrip(t *testing.T, data []byte, kind Kind, blockSize int) int64 {
	t.Helper()
	var buf bytes.Buffer
	w, err := NewBlockWriter(&buf, kind, blockSize)
	require.NoError(t, err)

	n, err := w.Write(data)
	require.NoError(t, err)
	assert.Equal(t, len(data), n)
	require.NoError(t, w.Close())
	assert.Equal(t, int64(buf.Len()), w.BytesWritten())

	r, err := NewBlockReader(bytes.NewReader(buf.Bytes()), kind)
	require.NoError(t, err)
	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, data, got)
	return w.BytesWritten()
}

func TestBlockStream_RoundTrip(t *testing.T) {
	sparse := make([]byte, 1<<20)
	for i := 0; i < len(sparse); i += 4099 {
		sparse[i] = byte(i)
	}
	noise := make([]byte, 100_000)
	rng := rand.New(rand.NewPCG(1, 2))
	for i := range noise {
		noise[i] = byte(rng.Uint32())
	}

	for _, kind := range []Kind{None, LZ4, Zstd} {
		t.Run(kind.String(), func(t *testing.T) {
			written := roundTrip(t, sparse, kind, 64*1024)
			if kind == None {
				assert.Equal(t, int64(len(sparse)+16*blockHeaderSize), written)
			} else {
				assert.Less(t, written, int64(len(sparse)/4))
			}

			// Incompressible data falls back to raw blocks.
			written = roundTrip(t, noise, kind, 0)
			assert.Equal(t, int64(len(noise)+blockHeaderSize), written)

			roundTrip(t, []byte{}, kind, 0)
		})
	}
}

func TestBlockReader_Corrupt(t *testing.T) {
	data := bytes.Repeat([]byte("abcdefgh"), 4096)
	var buf bytes.Buffer
	w, err := NewBlockWriter(&buf, Zstd, 0)
	require.NoError(t, err)
	_, err = w.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	t.Run("truncated", func(t *testing.T) {
		r, err := NewBlockReader(bytes.NewReader(buf.Bytes()[:buf.Len()-3]), Zstd)
		require.NoError(t, err)
		_, err = io.ReadAll(r)
		assert.ErrorIs(t, err, ErrCorrupt)
	})

	t.Run("wrong kind", func(t *testing.T) {
		r, err := NewBlockReader(bytes.NewReader(buf.Bytes()), None)
		require.NoError(t, err)
		_, err = io.ReadAll(r)
		assert.ErrorIs(t, err, ErrCorrupt)
	})

	t.Run("bad sizes", func(t *testing.T) {
		bad := append([]byte(nil), buf.Bytes()...)
		bad[3] = 0xFF // uncompressed size far above MaxBlockSize
		r, err := NewBlockReader(bytes.NewReader(bad), Zstd)
		require.NoError(t, err)
		_, err = io.ReadAll(r)
		assert.ErrorIs(t, err, ErrCorrupt)
	})
}

func TestKind(t *testing.T) {
	assert.True(t, Zstd.Valid())
	assert.False(t, Kind(3).Valid())
	assert.Equal(t, "kind(3)", Kind(3).String())

	_, err := NewBlockWriter(io.Discard, Kind(3), 0)
	assert.ErrorIs(t, err, ErrUnknownKind)
	_, err = NewBlockReader(bytes.NewReader(nil), Kind(3))
	assert.ErrorIs(t, err, ErrUnknownKind)
}
