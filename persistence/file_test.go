package persistence

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/hupe1980/cmsketch/internal/fs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeBytes(b []byte) func(io.Writer) error {
	return func(w io.Writer) error {
		_, err := w.Write(b)
		return err
	}
}

func TestSaveToFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.cms")

	require.NoError(t, SaveToFile(nil, path, writeBytes([]byte("first"))))
	require.NoError(t, SaveToFile(nil, path, writeBytes([]byte("second"))))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(got))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not survive")
}

func TestSaveToFile_FailureKeepsTarget(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.cms")
	require.NoError(t, os.WriteFile(path, []byte("original"), 0o644))

	ffs := fs.NewFaultyFS(nil)
	ffs.AddRule(".tmp-", fs.Fault{FailAfterBytes: 2})

	err := SaveToFile(ffs, path, writeBytes(bytes.Repeat([]byte("x"), 64)))
	require.ErrorIs(t, err, fs.ErrInjected)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "original", string(got))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestSaveToFile_WriteFuncError(t *testing.T) {
	dir := t.TempDir()
	boom := errors.New("boom")
	err := SaveToFile(nil, filepath.Join(dir, "a.cms"), func(io.Writer) error { return boom })
	assert.ErrorIs(t, err, boom)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.cms")

	require.NoError(t, WriteFile(nil, path, true, writeBytes([]byte("abc"))))
	assert.Error(t, WriteFile(nil, path, true, writeBytes([]byte("def"))), "exclusive write over an existing file")
	require.NoError(t, WriteFile(nil, path, false, writeBytes([]byte("de"))))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "de", string(got))
}

func TestWriteFile_ExclusiveFailureRemovesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.cms")
	ffs := fs.NewFaultyFS(nil)
	ffs.AddRule("a.cms", fs.Fault{FailAfterBytes: -1, FailOnSync: true})

	err := WriteFile(ffs, path, true, writeBytes([]byte("abc")))
	require.ErrorIs(t, err, fs.ErrInjected)
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.cms")
	require.NoError(t, os.WriteFile(path, []byte("0123456789"), 0o644))

	dst := make([]byte, 4)
	require.NoError(t, LoadFromFile(nil, path, dst))
	assert.Equal(t, "0123", string(dst))

	assert.ErrorIs(t, LoadFromFile(nil, path, make([]byte, 11)), io.ErrUnexpectedEOF)

	ffs := fs.NewFaultyFS(nil)
	ffs.AddRule("a.cms", fs.Fault{FailAfterBytes: -1, FailOnRead: true})
	assert.ErrorIs(t, LoadFromFile(ffs, path, dst), fs.ErrInjected)
}
