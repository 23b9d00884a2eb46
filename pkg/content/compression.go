// Package content implements the ContentPack: clusters of compressed
// blobs addressed by a packed (cluster_index, blob_index) content id.
package content

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/ulikunitz/xz/lzma"
)

// CompressionType is the 1-byte cluster compression algorithm tag (spec.md
// §4.3 / original_source cluster.rs CompressionType).
type CompressionType uint8

const (
	CompressionNone CompressionType = 0
	CompressionLZ4  CompressionType = 1
	CompressionLZMA CompressionType = 2
	CompressionZstd CompressionType = 3
)

func (c CompressionType) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionLZMA:
		return "lzma"
	case CompressionZstd:
		return "zstd"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(c))
	}
}

// Codec compresses and decompresses one cluster's concatenated blob data.
type Codec interface {
	Compress(data []byte) ([]byte, error)
	Decompress(data []byte) ([]byte, error)
}

// CodecFor returns the Codec for a cluster compression tag.
func CodecFor(c CompressionType) (Codec, error) {
	switch c {
	case CompressionNone:
		return noneCodec{}, nil
	case CompressionLZ4:
		return lz4Codec{}, nil
	case CompressionLZMA:
		return lzmaCodec{}, nil
	case CompressionZstd:
		return zstdCodec{}, nil
	default:
		return nil, fmt.Errorf("content: unknown compression type %d", c)
	}
}

type noneCodec struct{}

func (noneCodec) Compress(data []byte) ([]byte, error)   { return data, nil }
func (noneCodec) Decompress(data []byte) ([]byte, error) { return data, nil }

// lz4Codec wraps pierrec/lz4's block API. A pooled Compressor avoids
// reallocating match-finder state on every cluster.
type lz4Codec struct{}

var lz4CompressorPool = sync.Pool{New: func() any { return &lz4.Compressor{} }}

func (lz4Codec) Compress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}
	dst := make([]byte, lz4.CompressBlockBound(len(data)))
	c := lz4CompressorPool.Get().(*lz4.Compressor)
	defer lz4CompressorPool.Put(c)
	n, err := c.CompressBlock(data, dst)
	if err != nil {
		return nil, fmt.Errorf("content: lz4 compress: %w", err)
	}
	if n == 0 {
		// incompressible block: lz4 signals this by writing nothing
		return data, nil
	}
	return dst[:n], nil
}

func (lz4Codec) Decompress(data []byte) ([]byte, error) {
	// The uncompressed size isn't embedded in a raw LZ4 block, so the
	// caller (Cluster) must supply a correctly sized destination via
	// DecompressInto for LZ4.
	return nil, fmt.Errorf("content: lz4 requires DecompressInto with a known output size")
}

// DecompressInto decompresses an LZ4 block into a buffer of the expected
// decompressed size.
func (lz4Codec) DecompressInto(data []byte, size int) ([]byte, error) {
	dst := make([]byte, size)
	n, err := lz4.UncompressBlock(data, dst)
	if err != nil {
		return nil, fmt.Errorf("content: lz4 decompress: %w", err)
	}
	return dst[:n], nil
}

// lzmaCodec wraps ulikunitz/xz/lzma's stream reader/writer.
type lzmaCodec struct{}

func (lzmaCodec) Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := lzma.NewWriter(&buf)
	if err != nil {
		return nil, fmt.Errorf("content: lzma writer: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("content: lzma compress: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("content: lzma compress: %w", err)
	}
	return buf.Bytes(), nil
}

func (lzmaCodec) Decompress(data []byte) ([]byte, error) {
	r, err := lzma.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("content: lzma reader: %w", err)
	}
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("content: lzma decompress: %w", err)
	}
	return out, nil
}

// zstdCodec wraps klauspost/compress/zstd with pooled encoder/decoder,
// mirroring the pure-Go build path used when cgo is unavailable.
type zstdCodec struct{}

var zstdEncoderPool = sync.Pool{
	New: func() any {
		e, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			panic(fmt.Sprintf("content: zstd encoder: %v", err))
		}
		return e
	},
}

var zstdDecoderPool = sync.Pool{
	New: func() any {
		d, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
		if err != nil {
			panic(fmt.Sprintf("content: zstd decoder: %v", err))
		}
		return d
	},
}

func (zstdCodec) Compress(data []byte) ([]byte, error) {
	e := zstdEncoderPool.Get().(*zstd.Encoder)
	defer zstdEncoderPool.Put(e)
	return e.EncodeAll(data, nil), nil
}

func (zstdCodec) Decompress(data []byte) ([]byte, error) {
	d := zstdDecoderPool.Get().(*zstd.Decoder)
	defer zstdDecoderPool.Put(d)
	out, err := d.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("content: zstd decompress: %w", err)
	}
	return out, nil
}
