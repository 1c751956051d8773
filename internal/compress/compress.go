package compress

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Kind defines the compression algorithm used.
type Kind uint8

const (
	// None stores blocks raw.
	None Kind = 0
	// LZ4 indicates LZ4 block compression (fast).
	LZ4 Kind = 1
	// Zstd indicates ZSTD block compression (better ratio).
	Zstd Kind = 2
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case None:
		return "none"
	case LZ4:
		return "lz4"
	case Zstd:
		return "zstd"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Valid reports whether k is a known algorithm.
func (k Kind) Valid() bool { return k <= Zstd }

const (
	blockHeaderSize = 8

	// DefaultBlockSize is the uncompressed size of a full block.
	DefaultBlockSize = 256 * 1024

	// MaxBlockSize bounds the size a reader accepts for one block.
	MaxBlockSize = 64 << 20
)

var (
	// ErrCorrupt is returned for block streams that cannot be decoded.
	ErrCorrupt = errors.New("compress: corrupt block")
	// ErrUnknownKind is returned for an unsupported Kind.
	ErrUnknownKind = errors.New("compress: unknown kind")
)

// ZSTD encoder/decoder pools for efficiency
var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() (*zstd.Encoder, error) {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder), nil
	}
	return zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
}

func putZstdEncoder(enc *zstd.Encoder) {
	zstdEncoderPool.Put(enc)
}

func getZstdDecoder() (*zstd.Decoder, error) {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder), nil
	}
	return zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
}

func putZstdDecoder(dec *zstd.Decoder) {
	zstdDecoderPool.Put(dec)
}

// compressBlock returns data compressed with kind, or nil when compression
// does not pay off.
func compressBlock(data []byte, kind Kind) ([]byte, error) {
	var compressed []byte
	switch kind {
	case None:
		return nil, nil
	case LZ4:
		buf := make([]byte, lz4.CompressBlockBound(len(data)))
		n, err := lz4.CompressBlock(data, buf, nil)
		if err != nil {
			return nil, err
		}
		compressed = buf[:n]
	case Zstd:
		enc, err := getZstdEncoder()
		if err != nil {
			return nil, err
		}
		compressed = enc.EncodeAll(data, nil)
		putZstdEncoder(enc)
	default:
		return nil, ErrUnknownKind
	}

	// If compression doesn't help (ratio > 0.9), store uncompressed
	if len(compressed) == 0 || float64(len(compressed)) > float64(len(data))*0.9 {
		return nil, nil
	}
	return compressed, nil
}

// decompressBlock decodes src into dst, which has the uncompressed size.
func decompressBlock(src, dst []byte, kind Kind) error {
	switch kind {
	case LZ4:
		n, err := lz4.UncompressBlock(src, dst)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrCorrupt, err)
		}
		if n != len(dst) {
			return fmt.Errorf("%w: decompressed size mismatch", ErrCorrupt)
		}
	case Zstd:
		dec, err := getZstdDecoder()
		if err != nil {
			return err
		}
		defer putZstdDecoder(dec)

		decoded, err := dec.DecodeAll(src, dst[:0])
		if err != nil {
			return fmt.Errorf("%w: %w", ErrCorrupt, err)
		}
		if len(decoded) != len(dst) {
			return fmt.Errorf("%w: decompressed size mismatch", ErrCorrupt)
		}
	case None:
		return fmt.Errorf("%w: compressed block in raw stream", ErrCorrupt)
	default:
		return ErrUnknownKind
	}
	return nil
}

// BlockWriter writes compressed blocks to an underlying writer.
type BlockWriter struct {
	w         io.Writer
	kind      Kind
	blockSize int
	buffer    *bytes.Buffer
	header    [blockHeaderSize]byte
	written   int64
}

// NewBlockWriter creates a new compressed block writer. A blockSize <= 0
// selects DefaultBlockSize.
func NewBlockWriter(w io.Writer, kind Kind, blockSize int) (*BlockWriter, error) {
	if !kind.Valid() {
		return nil, ErrUnknownKind
	}
	if blockSize <= 0 || blockSize > MaxBlockSize {
		blockSize = DefaultBlockSize
	}
	return &BlockWriter{
		w:         w,
		kind:      kind,
		blockSize: blockSize,
		buffer:    bytes.NewBuffer(make([]byte, 0, blockSize)),
	}, nil
}

// Write writes data to the buffer, flushing blocks as needed.
func (c *BlockWriter) Write(p []byte) (int, error) {
	total := 0
	for len(p) > 0 {
		space := c.blockSize - c.buffer.Len()
		if space <= 0 {
			if err := c.Flush(); err != nil {
				return total, err
			}
			space = c.blockSize
		}

		toWrite := min(len(p), space)
		n, _ := c.buffer.Write(p[:toWrite])
		total += n
		p = p[n:]
	}
	return total, nil
}

// Flush compresses and writes the current block.
func (c *BlockWriter) Flush() error {
	if c.buffer.Len() == 0 {
		return nil
	}
	data := c.buffer.Bytes()

	compressed, err := compressBlock(data, c.kind)
	if err != nil {
		return err
	}

	payload := data
	binary.LittleEndian.PutUint32(c.header[0:], uint32(len(data)))
	binary.LittleEndian.PutUint32(c.header[4:], uint32(len(compressed))) // 0 = uncompressed
	if compressed != nil {
		payload = compressed
	}

	if _, err := c.w.Write(c.header[:]); err != nil {
		return err
	}
	n, err := c.w.Write(payload)
	c.written += int64(blockHeaderSize + n)
	if err != nil {
		return err
	}
	c.buffer.Reset()
	return nil
}

// Close flushes the last block. It does not close the underlying writer.
func (c *BlockWriter) Close() error {
	return c.Flush()
}

// BytesWritten returns the total compressed bytes written.
func (c *BlockWriter) BytesWritten() int64 {
	return c.written
}

// BlockReader reads the stream a BlockWriter produced.
type BlockReader struct {
	r       io.Reader
	kind    Kind
	header  [blockHeaderSize]byte
	scratch []byte
	block   []byte
	pending []byte
}

// NewBlockReader creates a reader for compressed blocks.
func NewBlockReader(r io.Reader, kind Kind) (*BlockReader, error) {
	if !kind.Valid() {
		return nil, ErrUnknownKind
	}
	return &BlockReader{r: r, kind: kind}, nil
}

// Read implements io.Reader.
func (c *BlockReader) Read(p []byte) (int, error) {
	for len(c.pending) == 0 {
		if err := c.next(); err != nil {
			return 0, err
		}
	}
	n := copy(p, c.pending)
	c.pending = c.pending[n:]
	return n, nil
}

// next reads and decompresses the next block.
func (c *BlockReader) next() error {
	if _, err := io.ReadFull(c.r, c.header[:]); err != nil {
		if err == io.ErrUnexpectedEOF {
			return fmt.Errorf("%w: truncated block header", ErrCorrupt)
		}
		return err // io.EOF at a block boundary ends the stream
	}

	uncompressedSize := binary.LittleEndian.Uint32(c.header[0:])
	compressedSize := binary.LittleEndian.Uint32(c.header[4:])
	if uncompressedSize == 0 || uncompressedSize > MaxBlockSize || compressedSize > uncompressedSize {
		return fmt.Errorf("%w: block sizes %d/%d", ErrCorrupt, uncompressedSize, compressedSize)
	}

	c.block = grow(c.block, int(uncompressedSize))
	if compressedSize == 0 {
		if _, err := io.ReadFull(c.r, c.block); err != nil {
			return fmt.Errorf("%w: %w", ErrCorrupt, err)
		}
	} else {
		c.scratch = grow(c.scratch, int(compressedSize))
		if _, err := io.ReadFull(c.r, c.scratch); err != nil {
			return fmt.Errorf("%w: %w", ErrCorrupt, err)
		}
		if err := decompressBlock(c.scratch, c.block, c.kind); err != nil {
			return err
		}
	}
	c.pending = c.block
	return nil
}

func grow(b []byte, n int) []byte {
	if cap(b) < n {
		return make([]byte, n)
	}
	return b[:n]
}
