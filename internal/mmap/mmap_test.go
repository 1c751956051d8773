package mmap

import (
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMmap_OpenReadClose(t *testing.T) {
	content := []byte("Hello, Mmap!")
	path := filepath.Join(t.TempDir(), "read.bin")
	require.NoError(t, os.WriteFile(path, content, 0o644))

	m, err := Open(path, ReadOnly)
	require.NoError(t, err)
	defer m.Close()

	assert.Equal(t, len(content), m.Size())
	assert.Equal(t, content, m.Bytes())
	assert.False(t, m.Writable())
	assert.False(t, m.Anonymous())
	assert.Equal(t, path, m.Path())

	buf := make([]byte, 5)
	n, err := m.ReadAt(buf, 7)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, "Mmap!", string(buf))

	buf2 := make([]byte, 10)
	n, err = m.ReadAt(buf2, 100)
	assert.Equal(t, 0, n)
	assert.Equal(t, io.EOF, err)

	n, err = m.ReadAt(buf2, 7)
	assert.Equal(t, 5, n)
	assert.Equal(t, io.EOF, err)

	_, err = m.ReadAt(buf, -1)
	assert.Equal(t, ErrInvalidOffset, err)
}

func TestMmap_EmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.bin")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	m, err := Open(path, ReadOnly)
	require.NoError(t, err)
	defer m.Close()

	assert.Equal(t, 0, m.Size())
	assert.Nil(t, m.Bytes())
}

func TestMmap_CreateWriteFlushReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rw.bin")

	m, err := Create(path, 4096, true)
	require.NoError(t, err)
	assert.True(t, m.Writable())

	data := m.Bytes()
	require.Len(t, data, 4096)
	for _, b := range data {
		require.Zero(t, b)
	}
	copy(data[100:], "sketch")
	require.NoError(t, m.Flush())
	require.NoError(t, m.Close())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "sketch", string(raw[100:106]))

	_, err = Create(path, 4096, true)
	assert.ErrorIs(t, err, os.ErrExist)

	m2, err := Create(path, 1024, false)
	require.NoError(t, err)
	assert.Zero(t, m2.Bytes()[100])
	require.NoError(t, m2.Close())
}

func TestMmap_CreateFailureKeepsExistingFile(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, "existing.bin")
	require.NoError(t, os.WriteFile(existing, []byte("keep"), 0o644))

	if strconv.IntSize < 64 {
		t.Skip("needs a 64-bit address space")
	}
	// No platform maps a region this large.
	huge := math.MaxInt >> 1

	_, err := Create(existing, huge, false)
	require.Error(t, err)
	assert.FileExists(t, existing)

	fresh := filepath.Join(dir, "fresh.bin")
	_, err = Create(fresh, huge, false)
	require.Error(t, err)
	assert.NoFileExists(t, fresh)

	m, err := Create(existing, 64, false)
	require.NoError(t, err)
	assert.False(t, m.Created())
	require.NoError(t, m.Close())

	m, err = Create(fresh, 64, false)
	require.NoError(t, err)
	assert.True(t, m.Created())
	require.NoError(t, m.Close())
}

func TestMmap_PrivateWritesStayInMemory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cow.bin")
	require.NoError(t, os.WriteFile(path, []byte("original"), 0o644))

	m, err := Open(path, Private)
	require.NoError(t, err)
	copy(m.Bytes(), "modified")
	assert.Equal(t, "modified", string(m.Bytes()))
	require.NoError(t, m.Flush())
	require.NoError(t, m.Close())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "original", string(raw))
}

func TestMmap_Anon(t *testing.T) {
	m, err := MapAnon(8192)
	require.NoError(t, err)
	assert.True(t, m.Anonymous())
	assert.True(t, m.Writable())
	assert.Equal(t, "", m.Path())

	m.Bytes()[8191] = 0xFF
	assert.NoError(t, m.Flush())
	require.NoError(t, m.Close())
	assert.NoError(t, m.Close())

	_, err = MapAnon(0)
	assert.ErrorIs(t, err, ErrInvalidSize)
}

func TestMmap_Region_And_Advise(t *testing.T) {
	m, err := MapAnon(1024)
	require.NoError(t, err)

	require.NoError(t, m.Advise(AccessRandom))

	r, err := m.Region(100, 200)
	require.NoError(t, err)
	assert.Len(t, r.Bytes(), 200)
	assert.Equal(t, 100, r.Offset())
	assert.Equal(t, 200, r.Size())

	r.Bytes()[0] = 7
	assert.Equal(t, byte(7), m.Bytes()[100])
	require.NoError(t, r.Advise(AccessSequential))

	_, err = m.Region(-1, 0)
	assert.ErrorIs(t, err, ErrOutOfBounds)
	_, err = m.Region(1000, 100)
	assert.ErrorIs(t, err, ErrOutOfBounds)

	require.NoError(t, m.Close())

	assert.Nil(t, r.Bytes())
	assert.Error(t, r.Advise(AccessDefault))
	assert.Nil(t, m.Bytes())
	assert.ErrorIs(t, m.Advise(AccessRandom), ErrClosed)
	assert.ErrorIs(t, m.Flush(), ErrClosed)
	_, err = m.Region(0, 1)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestMode_String(t *testing.T) {
	assert.Equal(t, "read-only", ReadOnly.String())
	assert.Equal(t, "read-write", ReadWrite.String())
	assert.Equal(t, "private", Private.String())
	assert.Equal(t, "unknown", Mode(42).String())
}
