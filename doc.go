// Package cmsketch provides an embeddable, file-backed count-min sketch.
//
// A sketch estimates how often each key of a stream was seen using a fixed
// table of Depth rows by Width cells, no matter how many distinct keys the
// stream holds. Estimates never fall below the true count; collisions can
// only push them up.
//
// # Quick Start
//
// In memory:
//
//	s, _ := cmsketch.Create(1<<20, 1<<16-1)
//	defer s.Close()
//	s.IncString("GET /index.html")
//	n := s.GetString("GET /index.html")
//
// Backed by a file the kernel pages in and out:
//
//	s, _ := cmsketch.Create(1<<20, cmsketch.DefaultMaxValue, cmsketch.WithPath("hits.cms"))
//	s.Close()
//	s, _ = cmsketch.Open("hits.cms", cmsketch.WithFlags(cmsketch.FlagReadOnly))
//
// # Cell Modes
//
// A max value of at most 65535 stores literal counts in just enough bits
// (ModeExact). Larger max values switch to 20-bit approximate codes
// (ModeApprox) that are exact below 65536 and keep a relative error under
// 2^-15 above it. Approximate increments round at random so that estimates
// stay unbiased; the random stream is seeded from the sketch seed and its
// position is stored in the file header.
//
// # Updates
//
// Add uses conservative update: only cells below the new estimate are
// raised. Set overwrites cells and may lower counts of colliding keys.
// Point operations never fail, allocate or perform I/O.
//
// # Combining Sketches
//
// Sketches created with the same width and seed can be merged (Merge) and
// compared (InnerProduct, Cosine). Shrink folds a sketch into a narrower
// one without replaying keys.
//
// # Archives
//
// Export and Import move compressed sketches through any blobstore.BlobStore:
// a local directory, memory, MinIO or Amazon S3.
//
// # Errors
//
// Failures are reported as ErrInvalidArgument, ErrIO or ErrFormat (plus
// ErrClosed and ErrReadOnly for misuse of a handle). Use errors.Is to test
// for them.
package cmsketch
