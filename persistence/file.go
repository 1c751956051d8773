package persistence

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/hupe1980/cmsketch/internal/fs"
)

const writeBufferSize = 256 * 1024

// SaveToFile atomically replaces filename with the bytes writeFunc produces.
//
// The data goes to a temp file in the same directory, is synced and renamed
// over filename. On failure filename is untouched and the temp file removed.
func SaveToFile(fsys fs.FileSystem, filename string, writeFunc func(io.Writer) error) error {
	if fsys == nil {
		fsys = fs.Default
	}
	dir := filepath.Dir(filename)
	base := filepath.Base(filename)

	// Write to a temp file in the same directory to ensure rename is atomic.
	tmp, err := fsys.CreateTemp(dir, base+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		if tmpName != "" {
			_ = tmp.Close()
			_ = fsys.Remove(tmpName)
		}
	}()

	if err := writeSynced(tmp, writeFunc); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := fsys.Rename(tmpName, filename); err != nil {
		return err
	}
	tmpName = ""

	// Best-effort: fsync the directory so the rename is durable on POSIX.
	_ = fsys.SyncDir(dir)
	return nil
}

// WriteFile writes filename in place. With exclusive set filename must not
// exist yet. A failed write leaves a partial file behind that is removed
// when this call created it.
func WriteFile(fsys fs.FileSystem, filename string, exclusive bool, writeFunc func(io.Writer) error) error {
	if fsys == nil {
		fsys = fs.Default
	}
	flag := os.O_WRONLY | os.O_CREATE
	if exclusive {
		flag |= os.O_EXCL
	} else {
		flag |= os.O_TRUNC
	}

	f, err := fsys.OpenFile(filename, flag, 0o644)
	if err != nil {
		return err
	}
	err = writeSynced(f, writeFunc)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil && exclusive {
		err = errors.Join(err, fsys.Remove(filename))
	}
	return err
}

// LoadFromFile reads exactly size bytes of filename into dst.
func LoadFromFile(fsys fs.FileSystem, filename string, dst []byte) error {
	if fsys == nil {
		fsys = fs.Default
	}
	f, err := fsys.OpenFile(filename, os.O_RDONLY, 0)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := io.ReadFull(bufio.NewReaderSize(f, writeBufferSize), dst); err != nil {
		return fmt.Errorf("read %s: %w", filename, err)
	}
	return nil
}

func writeSynced(f fs.File, writeFunc func(io.Writer) error) error {
	buf := bufio.NewWriterSize(f, writeBufferSize)
	if err := writeFunc(buf); err != nil {
		return err
	}
	if err := buf.Flush(); err != nil {
		return err
	}
	return f.Sync()
}
