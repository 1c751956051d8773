package mmap

import (
	"errors"
	"io"
	"os"
	"sync/atomic"
)

// Mapping owns a mapped region and is responsible for unmapping it.
type Mapping struct {
	data []byte
	size int
	path string
	mode Mode
	anon bool
	// created is set when Create made the file rather than truncating one.
	created bool
	closed  atomic.Bool
	// unmap is the platform-specific function to unmap the memory.
	unmap func([]byte) error
}

// Open maps the whole file at path in the given mode.
func Open(path string, mode Mode) (*Mapping, error) {
	flag := os.O_RDWR
	if mode == ReadOnly {
		flag = os.O_RDONLY
	}
	f, err := os.OpenFile(path, flag, 0)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}

	size := fi.Size()
	if size == 0 {
		return &Mapping{path: path, mode: mode}, nil
	}
	if size < 0 || int64(int(size)) != size {
		return nil, ErrInvalidSize
	}

	data, unmapFunc, err := osMap(f, int(size), mode)
	if err != nil {
		return nil, err
	}

	return &Mapping{
		data:  data,
		size:  int(size),
		path:  path,
		mode:  mode,
		unmap: unmapFunc,
	}, nil
}

// Create creates a zero-filled file of size bytes at path and maps it
// read-write. With exclusive set the file must not exist yet; otherwise an
// existing file is truncated. On failure a file created by this call is
// removed again. A file that existed before is left in place.
func Create(path string, size int, exclusive bool) (*Mapping, error) {
	if size <= 0 {
		return nil, ErrInvalidSize
	}

	created := true
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o644)
	if !exclusive && errors.Is(err, os.ErrExist) {
		created = false
		f, err = os.OpenFile(path, os.O_RDWR|os.O_TRUNC, 0o644)
	}
	if err != nil {
		return nil, err
	}

	data, unmapFunc, err := func() ([]byte, func([]byte) error, error) {
		defer f.Close()
		if err := f.Truncate(int64(size)); err != nil {
			return nil, nil, err
		}
		return osMap(f, size, ReadWrite)
	}()
	if err != nil {
		if created {
			return nil, errors.Join(err, os.Remove(path))
		}
		return nil, err
	}

	return &Mapping{
		data:    data,
		size:    size,
		path:    path,
		mode:    ReadWrite,
		created: created,
		unmap:   unmapFunc,
	}, nil
}

// MapAnon returns size bytes of zeroed read-write memory outside the Go heap.
func MapAnon(size int) (*Mapping, error) {
	if size <= 0 {
		return nil, ErrInvalidSize
	}
	data, unmapFunc, err := osMapAnon(size)
	if err != nil {
		return nil, err
	}
	return &Mapping{
		data:  data,
		size:  size,
		mode:  ReadWrite,
		anon:  true,
		unmap: unmapFunc,
	}, nil
}

// Close unmaps the memory. It is idempotent.
func (m *Mapping) Close() error {
	if m.closed.Swap(true) {
		return nil // Already closed
	}
	data := m.data
	m.data = nil
	if m.unmap != nil && data != nil {
		return m.unmap(data)
	}
	return nil
}

// Bytes returns the underlying byte slice.
// Warning: The slice is valid only until Close() is called.
// Accessing the slice after Close() results in undefined behavior (likely a crash).
func (m *Mapping) Bytes() []byte {
	if m.closed.Load() {
		return nil
	}
	return m.data
}

// Size returns the size of the mapping in bytes.
func (m *Mapping) Size() int {
	return m.size
}

// Path returns the mapped file, or "" for anonymous memory.
func (m *Mapping) Path() string {
	return m.path
}

// Mode returns the mode the mapping was created with.
func (m *Mapping) Mode() Mode {
	return m.mode
}

// Anonymous reports whether the mapping is not backed by a file.
func (m *Mapping) Anonymous() bool {
	return m.anon
}

// Created reports whether Create made the backing file, as opposed to
// truncating one that already existed.
func (m *Mapping) Created() bool {
	return m.created
}

// Writable reports whether writes to Bytes() are permitted.
func (m *Mapping) Writable() bool {
	return m.mode != ReadOnly
}

// Flush writes dirty pages of a shared file mapping back to the file and
// waits for completion. It is a no-op for anonymous, private and read-only
// mappings.
func (m *Mapping) Flush() error {
	if m.closed.Load() {
		return ErrClosed
	}
	if m.anon || m.mode != ReadWrite || m.data == nil {
		return nil
	}
	return osFlush(m.data)
}

// Advise provides hints to the kernel about how the memory will be accessed.
func (m *Mapping) Advise(pattern AccessPattern) error {
	if m.closed.Load() {
		return ErrClosed
	}
	if m.data == nil {
		return nil
	}
	return osAdvise(m.data, pattern)
}

// ReadAt implements io.ReaderAt.
func (m *Mapping) ReadAt(p []byte, off int64) (n int, err error) {
	if m.closed.Load() {
		return 0, ErrClosed
	}
	if off < 0 {
		return 0, ErrInvalidOffset
	}
	if off >= int64(len(m.data)) {
		return 0, io.EOF
	}
	n = copy(p, m.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}
