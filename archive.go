package cmsketch

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/hupe1980/cmsketch/blobstore"
	"github.com/hupe1980/cmsketch/internal/compress"
	"github.com/hupe1980/cmsketch/internal/hash"
	"github.com/hupe1980/cmsketch/persistence"
	"github.com/hupe1980/cmsketch/resource"
)

const (
	// ArchiveMagic identifies sketch archives (ASCII: "CMSA").
	ArchiveMagic = 0x41534D43
	// ArchiveVersion is the current archive format version.
	ArchiveVersion = 1
	// ArchiveHeaderSize is the size of the archive header in bytes.
	ArchiveHeaderSize = 32
)

// archiveHeader precedes the block stream of an archive.
//
//	[0:4]   magic
//	[4:6]   version
//	[6]     compression
//	[8:16]  region size
//	[16:20] CRC32C of the region
//	[28:32] CRC32C of bytes [0:28]
type archiveHeader struct {
	compression Compression
	size        uint64
	checksum    uint32
}

func (h archiveHeader) encode() [ArchiveHeaderSize]byte {
	var b [ArchiveHeaderSize]byte
	le := binary.LittleEndian
	le.PutUint32(b[0:], ArchiveMagic)
	le.PutUint16(b[4:], ArchiveVersion)
	b[6] = byte(h.compression)
	le.PutUint64(b[8:], h.size)
	le.PutUint32(b[16:], h.checksum)
	le.PutUint32(b[28:], hash.CRC32C(b[:28]))
	return b
}

func decodeArchiveHeader(b []byte) (archiveHeader, error) {
	le := binary.LittleEndian
	switch {
	case le.Uint32(b[0:]) != ArchiveMagic:
		return archiveHeader{}, &persistence.HeaderError{Field: "archive magic", Reason: fmt.Sprintf("0x%08x", le.Uint32(b[0:]))}
	case le.Uint16(b[4:]) != ArchiveVersion:
		return archiveHeader{}, &persistence.HeaderError{Field: "archive version", Reason: fmt.Sprintf("unsupported version %d", le.Uint16(b[4:]))}
	case le.Uint32(b[28:]) != hash.CRC32C(b[:28]):
		return archiveHeader{}, &persistence.HeaderError{Field: "archive checksum", Reason: "header corrupted"}
	}
	h := archiveHeader{
		compression: Compression(b[6]),
		size:        le.Uint64(b[8:]),
		checksum:    le.Uint32(b[16:]),
	}
	if !h.compression.Valid() {
		return archiveHeader{}, &persistence.HeaderError{Field: "archive compression", Reason: h.compression.String()}
	}
	return h, nil
}

// Export writes s as a compressed archive named name to store. The
// compression defaults to zstd, see WithCompression. Writes are throttled by
// the resource controller. A failed export leaves no blob behind.
func (s *Sketch) Export(ctx context.Context, store blobstore.BlobStore, name string, optFns ...Option) (err error) {
	if s.mapping == nil {
		return ErrClosed
	}
	o := applyOptions(s.opts.inherit(), optFns...)
	kind := o.compressionKind()
	start := time.Now()
	var written int64
	defer func() {
		o.metricsCollector.RecordExport(written, time.Since(start), err)
		o.logger.LogExport(ctx, name, kind, int64(s.header.FileSize), written, err)
	}()
	if !kind.Valid() {
		return invalidArgument("compression %s", kind)
	}

	// The checksum covers the region exactly as WriteTo streams it.
	cw := persistence.NewChecksumWriter(io.Discard)
	if _, err := s.WriteTo(cw); err != nil {
		return translateError("export", err)
	}
	hdr := archiveHeader{compression: kind, size: s.header.FileSize, checksum: cw.Sum()}.encode()

	w, err := store.Create(ctx, name)
	if err != nil {
		return translateError("export "+name, err)
	}
	written, err = writeArchive(ctx, w, hdr[:], s, kind, o.resources)
	if err != nil {
		return translateError("export "+name, errors.Join(err, w.Abort()))
	}
	return translateError("export "+name, w.Close())
}

func writeArchive(ctx context.Context, w blobstore.WritableBlob, hdr []byte, s *Sketch, kind Compression, rc *resource.Controller) (int64, error) {
	lw := resource.NewRateLimitedWriter(ctx, w, rc)
	if _, err := lw.Write(hdr); err != nil {
		return 0, err
	}
	bw, err := compress.NewBlockWriter(lw, kind, compress.DefaultBlockSize)
	if err != nil {
		return 0, err
	}
	if _, err := s.WriteTo(bw); err != nil {
		return 0, err
	}
	if err := bw.Close(); err != nil {
		return 0, err
	}
	if err := w.Sync(); err != nil {
		return 0, err
	}
	return int64(len(hdr)) + bw.BytesWritten(), nil
}

// Import reads the archive name from store into a new sketch. The sketch
// lives in memory unless WithPath is given. Ambient options are taken from
// optFns, as for Create.
//
// Truncated or corrupted archives fail with ErrFormat; a missing blob fails
// with an error matching both ErrIO and blobstore.ErrNotFound.
func Import(ctx context.Context, store blobstore.BlobStore, name string, optFns ...Option) (s *Sketch, err error) {
	o := applyOptions(options{}, optFns...)
	start := time.Now()
	var size int64
	defer func() {
		o.metricsCollector.RecordImport(size, time.Since(start), err)
		o.logger.LogImport(ctx, name, size, err)
	}()
	if o.flags.Has(FlagReadOnly) || o.flags.Has(FlagPrivate) {
		return nil, invalidArgument("cannot import a sketch with flags %s", o.flags)
	}

	blob, err := store.Open(ctx, name)
	if err != nil {
		return nil, translateError("import "+name, err)
	}
	defer blob.Close()

	rc, err := blobstore.NewReader(ctx, blob)
	if err != nil {
		return nil, translateError("import "+name, err)
	}
	defer rc.Close()
	r := resource.NewRateLimitedReader(ctx, rc, o.resources)

	var buf [ArchiveHeaderSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return nil, fmt.Errorf("%w: import %s: archive header: %w", ErrFormat, name, err)
	}
	ah, err := decodeArchiveHeader(buf[:])
	if err != nil {
		return nil, translateError("import "+name, err)
	}
	br, err := compress.NewBlockReader(r, ah.compression)
	if err != nil {
		return nil, translateError("import "+name, err)
	}
	cr := persistence.NewChecksumReader(br)

	// The sketch header is checked before any table memory is committed.
	var hbuf [HeaderSize]byte
	if _, err := io.ReadFull(cr, hbuf[:]); err != nil {
		return nil, fmt.Errorf("%w: import %s: sketch header: %w", ErrFormat, name, err)
	}
	h, err := persistence.DecodeHeader(hbuf[:])
	if err == nil {
		err = h.Validate(ah.size)
	}
	if err != nil {
		return nil, translateError("import "+name, err)
	}

	m, reserved, err := allocate(h.FileSize, o)
	if err != nil {
		return nil, err
	}
	fail := func(err error) (*Sketch, error) {
		release(m, reserved, o)
		if m.Created() {
			_ = o.fs.Remove(m.Path())
		}
		return nil, translateError("import "+name, err)
	}

	data := m.Bytes()
	copy(data, hbuf[:])
	if _, err := io.ReadFull(cr, data[HeaderSize:]); err != nil {
		return fail(fmt.Errorf("%w: table: %w", ErrFormat, err))
	}
	if err := cr.Verify(ah.checksum); err != nil {
		return fail(err)
	}
	var extra [1]byte
	if n, _ := io.ReadFull(cr, extra[:]); n != 0 {
		return fail(fmt.Errorf("%w: trailing data", ErrFormat))
	}

	s, err = attach(m, o.flags, reserved, o)
	if err != nil {
		return fail(err)
	}
	size = int64(h.FileSize)
	return s, nil
}
