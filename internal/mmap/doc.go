// Package mmap provides the memory regions a sketch lives in.
//
// # Overview
//
// A [Mapping] is either a file mapped into memory or an anonymous block of
// off-heap memory. File mappings come in three modes:
//
//   - [ReadOnly]: shared, read-only view of the file
//   - [ReadWrite]: shared view; writes reach the file (see [Mapping.Flush])
//   - [Private]: copy-on-write view; writes stay in memory
//
// # Usage
//
//	m, err := mmap.Create("counts.cms", size, true)
//	if err != nil { ... }
//	defer m.Close()
//
//	data := m.Bytes()      // zero-copy access to the file contents
//	hdr, _ := m.Region(0, 128)
//	_ = m.Flush()          // msync(2) dirty pages to disk
//
// # Platform Support
//
//   - Unix: mmap(2), msync(2) and madvise(2) via golang.org/x/sys/unix
//   - Windows: CreateFileMapping/MapViewOfFile and VirtualAlloc via
//     golang.org/x/sys/windows (Advise is a no-op)
//
// # Thread Safety
//
// Close is idempotent and guarded by an atomic flag. Callers must ensure no
// goroutine touches Bytes() after Close() returns.
package mmap
