package content

import (
	"fmt"
	"sync"

	"github.com/jbkfmt/jubako/pkg/bases"
	"github.com/jbkfmt/jubako/pkg/jbkerr"
)

// MaxBlobsPerCluster is the hard capacity limit from spec.md: blob_count is
// a 2-byte field, but Jubako additionally caps it at 4096 so blob index
// fits comfortably in the 12 bits reserved for it in a content id.
const MaxBlobsPerCluster = 4096

// ClusterWriter accumulates raw blobs for one cluster and compresses them
// together on Finalize, since most compressors do better over the whole
// batch than blob-by-blob.
type ClusterWriter struct {
	blobs [][]byte
}

// NewClusterWriter returns an empty cluster writer.
func NewClusterWriter() *ClusterWriter {
	return &ClusterWriter{}
}

// AddBlob appends a raw blob and returns its index within the cluster.
func (w *ClusterWriter) AddBlob(b []byte) (int, error) {
	if len(w.blobs) >= MaxBlobsPerCluster {
		return 0, fmt.Errorf("content: cluster already holds %d blobs: %w", MaxBlobsPerCluster, jbkerr.ErrCapacity)
	}
	w.blobs = append(w.blobs, b)
	return len(w.blobs) - 1, nil
}

// Count reports the number of blobs added so far.
func (w *ClusterWriter) Count() int {
	return len(w.blobs)
}

// Finalize compresses the concatenated blob data with the requested
// algorithm and emits the on-disk cluster: compression(1) + offset_size(1)
// + blob_count(2) + cluster_size(8) + data_size(offset_size) + (blob_count-1)
// cumulative offsets + compressed data.
func (w *ClusterWriter) Finalize(compression CompressionType) ([]byte, error) {
	if len(w.blobs) == 0 {
		return nil, fmt.Errorf("content: cannot finalize an empty cluster")
	}
	var raw []byte
	cumulative := make([]uint64, len(w.blobs))
	for i, b := range w.blobs {
		cumulative[i] = uint64(len(raw))
		raw = append(raw, b...)
	}
	dataSize := uint64(len(raw))

	codec, err := CodecFor(compression)
	if err != nil {
		return nil, err
	}
	compressed, err := codec.Compress(raw)
	if err != nil {
		return nil, err
	}

	offsetSize := bases.NeededBytes(dataSize)
	if offsetSize == 0 {
		offsetSize = 1
	}

	header := make([]byte, 1+1+2+8)
	header[0] = byte(compression)
	header[1] = byte(offsetSize)
	bases.WriteUint(header[2:4], uint64(len(w.blobs)), 2)
	clusterSize := uint64(len(header) + offsetSize + (len(w.blobs)-1)*offsetSize + len(compressed))
	bases.WriteUint(header[4:12], clusterSize, 8)

	out := make([]byte, 0, int(clusterSize))
	out = append(out, header...)
	dataSizeBuf := make([]byte, offsetSize)
	bases.WriteUint(dataSizeBuf, dataSize, offsetSize)
	out = append(out, dataSizeBuf...)
	for i := 1; i < len(w.blobs); i++ {
		buf := make([]byte, offsetSize)
		bases.WriteUint(buf, cumulative[i], offsetSize)
		out = append(out, buf...)
	}
	out = append(out, compressed...)
	return out, nil
}

// ClusterReader parses a cluster header and lazily decompresses its data
// on first blob access.
type ClusterReader struct {
	compression CompressionType
	offsetSize  int
	blobCount   int
	dataSize    uint64
	offsets     []byte
	compressed  []byte

	once    sync.Once
	decoded []byte
	decErr  error
}

// NewClusterReader parses the fixed 12-byte header, the data_size and
// blob-boundary offset table, leaving the compressed payload untouched
// until a blob is actually requested.
func NewClusterReader(buf []byte) (*ClusterReader, error) {
	if len(buf) < 12 {
		return nil, fmt.Errorf("content: cluster header truncated: %w", jbkerr.ErrFormat)
	}
	compression := CompressionType(buf[0])
	offsetSize := int(buf[1])
	blobCount := int(bases.ReadUintBytes(buf[2:4], 2))
	clusterSize := bases.ReadUintBytes(buf[4:12], 8)
	if offsetSize < 1 || offsetSize > 8 {
		return nil, fmt.Errorf("content: invalid cluster offset size %d: %w", offsetSize, jbkerr.ErrFormat)
	}
	if uint64(len(buf)) < clusterSize {
		return nil, fmt.Errorf("content: cluster declares %d bytes, only %d present: %w", clusterSize, len(buf), jbkerr.ErrFormat)
	}
	rest := buf[12:clusterSize]
	if len(rest) < offsetSize {
		return nil, fmt.Errorf("content: cluster missing data_size field: %w", jbkerr.ErrFormat)
	}
	dataSize := bases.ReadUintBytes(rest[:offsetSize], offsetSize)
	rest = rest[offsetSize:]

	offsetsLen := 0
	if blobCount > 1 {
		offsetsLen = (blobCount - 1) * offsetSize
	}
	if len(rest) < offsetsLen {
		return nil, fmt.Errorf("content: cluster missing blob offset table: %w", jbkerr.ErrFormat)
	}
	offsets := rest[:offsetsLen]
	compressed := rest[offsetsLen:]

	return &ClusterReader{
		compression: compression,
		offsetSize:  offsetSize,
		blobCount:   blobCount,
		dataSize:    dataSize,
		offsets:     offsets,
		compressed:  compressed,
	}, nil
}

// Count reports the number of blobs in the cluster.
func (r *ClusterReader) Count() int {
	return r.blobCount
}

func (r *ClusterReader) decompress() ([]byte, error) {
	r.once.Do(func() {
		switch r.compression {
		case CompressionLZ4:
			if uint64(len(r.compressed)) == r.dataSize {
				// lz4Codec.Compress falls back to a raw passthrough when it
				// judges a block incompressible; there is nothing to decode.
				r.decoded = r.compressed
				return
			}
			r.decoded, r.decErr = lz4Codec{}.DecompressInto(r.compressed, int(r.dataSize))
		default:
			codec, err := CodecFor(r.compression)
			if err != nil {
				r.decErr = err
				return
			}
			r.decoded, r.decErr = codec.Decompress(r.compressed)
		}
		if r.decErr == nil && uint64(len(r.decoded)) != r.dataSize {
			r.decErr = fmt.Errorf("content: cluster decompressed to %d bytes, expected %d: %w", len(r.decoded), r.dataSize, jbkerr.ErrIntegrity)
		}
	})
	return r.decoded, r.decErr
}

func (r *ClusterReader) boundary(i int) uint64 {
	if i == 0 {
		return 0
	}
	if i == r.blobCount {
		return r.dataSize
	}
	off := (i - 1) * r.offsetSize
	return bases.ReadUintBytes(r.offsets[off:off+r.offsetSize], r.offsetSize)
}

// Blob decompresses the cluster (once, cached) and returns blob i.
func (r *ClusterReader) Blob(i int) ([]byte, error) {
	if i < 0 || i >= r.blobCount {
		return nil, fmt.Errorf("content: blob index %d out of bounds of %d", i, r.blobCount)
	}
	data, err := r.decompress()
	if err != nil {
		return nil, err
	}
	return data[r.boundary(i):r.boundary(i + 1)], nil
}
