// Package fs is the filesystem seam used to save and load sketch files.
//
// The package defines two key interfaces:
//
//   - [File]: an open file with read/write/sync capabilities
//   - [FileSystem]: open, temp-file creation, rename, remove and directory sync
//
// # Implementations
//
//   - [LocalFS]: production implementation using the os package
//   - [FaultyFS]: test utility that injects write, read, sync, close and
//     rename failures for files matching a name pattern
//
// # Usage
//
// Production code uses fs.Default:
//
//	f, err := fs.Default.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
//
// Tests wrap it to simulate a disk filling up half way through a save:
//
//	ffs := fs.NewFaultyFS(nil)
//	ffs.AddRule(".cms", fs.Fault{FailAfterBytes: 4096})
//
// Memory-mapped regions bypass this package: mapping needs a real file
// descriptor, see internal/mmap.
package fs
