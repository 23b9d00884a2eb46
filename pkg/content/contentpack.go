package content

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/jbkfmt/jubako/pkg/bases"
	"github.com/jbkfmt/jubako/pkg/jbkerr"
	"github.com/jbkfmt/jubako/pkg/jbkpack"
)

// MaxClustersPerPack is the 2^20 cluster-index capacity limit (spec.md
// §3 Invariants): a content id packs cluster_index into 20 bits.
const MaxClustersPerPack = 1 << 20

const (
	clusterIndexBits = 20
	blobIndexBits    = 12
)

// packContentID combines a cluster index and blob index into one 32-bit
// content id: cluster_index occupies the high 20 bits, blob_index the low
// 12, so ids sort by cluster first (clusters are usually read in order).
func packContentID(clusterIndex, blobIndex int) (uint32, error) {
	if clusterIndex < 0 || clusterIndex >= MaxClustersPerPack {
		return 0, fmt.Errorf("content: cluster index %d exceeds %d-cluster capacity: %w", clusterIndex, MaxClustersPerPack, jbkerr.ErrCapacity)
	}
	if blobIndex < 0 || blobIndex >= MaxBlobsPerCluster {
		return 0, fmt.Errorf("content: blob index %d exceeds %d-blob cluster capacity: %w", blobIndex, MaxBlobsPerCluster, jbkerr.ErrCapacity)
	}
	return uint32(clusterIndex)<<blobIndexBits | uint32(blobIndex), nil
}

func unpackContentID(id uint32) (clusterIndex, blobIndex int) {
	return int(id >> blobIndexBits), int(id & (1<<blobIndexBits - 1))
}

// Writer assembles a ContentPack by batching added blobs into clusters,
// closing the current cluster once it reaches MaxBlobsPerCluster and
// opening a fresh one transparently.
type Writer struct {
	UUID        uuid.UUID
	Compression CompressionType

	finishedClusters [][]byte // finalized cluster bytes, in order
	current          *ClusterWriter
	entryInfos       []uint32
}

// NewWriter returns an empty content pack writer using the given default
// cluster compression.
func NewWriter(id uuid.UUID, compression CompressionType) *Writer {
	return &Writer{UUID: id, Compression: compression, current: NewClusterWriter()}
}

// AddContent appends one blob, transparently rolling to a new cluster when
// the current one is full, and returns the content id that resolves it.
func (w *Writer) AddContent(data []byte) (uint32, error) {
	if w.current.Count() >= MaxBlobsPerCluster {
		if err := w.closeCluster(); err != nil {
			return 0, err
		}
	}
	blobIndex, err := w.current.AddBlob(data)
	if err != nil {
		return 0, err
	}
	id, err := packContentID(len(w.finishedClusters), blobIndex)
	if err != nil {
		return 0, err
	}
	w.entryInfos = append(w.entryInfos, id)
	return id, nil
}

func (w *Writer) closeCluster() error {
	if w.current.Count() == 0 {
		return nil
	}
	enc, err := w.current.Finalize(w.Compression)
	if err != nil {
		return err
	}
	w.finishedClusters = append(w.finishedClusters, enc)
	w.current = NewClusterWriter()
	return nil
}

// Count reports the number of contents added so far.
func (w *Writer) Count() int {
	return len(w.entryInfos)
}

// Finalize closes any open cluster and serializes the complete pack:
// header, concatenated clusters, cluster_ptrs/entry_infos tail, check-info.
func (w *Writer) Finalize() ([]byte, error) {
	if err := w.closeCluster(); err != nil {
		return nil, err
	}

	var body []byte
	clusterPtrs := make([]ptrEntry, 0, len(w.finishedClusters))
	for _, c := range w.finishedClusters {
		clusterPtrs = append(clusterPtrs, ptrEntry{Offset: uint64(jbkpack.HeaderSize + len(body)), Size: uint64(len(c))})
		body = append(body, c...)
	}

	tailOffset := uint64(jbkpack.HeaderSize + len(body))
	tail := encodeContentTail(clusterPtrs, w.entryInfos)
	body = append(body, tail...)

	header := &jbkpack.Header{Magic: jbkpack.KindContent, UUID: w.UUID}
	bases.WriteUint(header.FreeData[0:8], tailOffset, 8)
	header.Size = bases.Size(jbkpack.HeaderSize + len(body))
	header.CheckInfoPos = bases.Offset(jbkpack.HeaderSize + len(body))

	out := header.Encode()
	out = append(out, body...)
	out = append(out, jbkpack.ComputeCheckInfo(out)...)
	return out, nil
}

type ptrEntry struct {
	Offset uint64
	Size   uint64
}

func encodeContentTail(clusterPtrs []ptrEntry, entryInfos []uint32) []byte {
	var buf []byte
	put32 := func(v uint32) {
		b := make([]byte, 4)
		bases.WriteUint(b, uint64(v), 4)
		buf = append(buf, b...)
	}
	put64 := func(v uint64) {
		b := make([]byte, 8)
		bases.WriteUint(b, v, 8)
		buf = append(buf, b...)
	}

	put32(uint32(len(clusterPtrs)))
	for _, p := range clusterPtrs {
		put64(p.Offset)
		put64(p.Size)
	}
	put32(uint32(len(entryInfos)))
	for _, id := range entryInfos {
		put32(id)
	}
	return buf
}

// Pack is the read side of a ContentPack.
type Pack struct {
	Header  *jbkpack.Header
	UUID    uuid.UUID
	clients []*ClusterReader
	entries []uint32
}

// OpenPack parses a complete ContentPack, verifying its check-info digest.
func OpenPack(raw []byte) (*Pack, error) {
	header, err := jbkpack.DecodeHeader(raw)
	if err != nil {
		return nil, err
	}
	if header.Magic != jbkpack.KindContent {
		return nil, fmt.Errorf("content: expected content pack magic, got %q", header.Magic)
	}
	if err := jbkpack.VerifyCheckInfo(raw, header.CheckInfoPos); err != nil {
		return nil, err
	}

	tailOffset := bases.ReadUintBytes(header.FreeData[0:8], 8)
	p := bases.NewParser(raw[:header.CheckInfoPos], bases.Offset(0))
	if err := p.SeekTo(int(tailOffset)); err != nil {
		return nil, fmt.Errorf("content: tail offset %d invalid: %w", tailOffset, err)
	}

	clusterCount, err := p.ReadU32()
	if err != nil {
		return nil, err
	}
	clusterPtrs := make([]ptrEntry, clusterCount)
	for i := range clusterPtrs {
		off, err := p.ReadU64()
		if err != nil {
			return nil, err
		}
		size, err := p.ReadU64()
		if err != nil {
			return nil, err
		}
		clusterPtrs[i] = ptrEntry{Offset: off, Size: size}
	}

	entryCount, err := p.ReadU32()
	if err != nil {
		return nil, err
	}
	entries := make([]uint32, entryCount)
	for i := range entries {
		v, err := p.ReadU32()
		if err != nil {
			return nil, err
		}
		entries[i] = v
	}

	clusters := make([]*ClusterReader, clusterCount)
	for i, ptr := range clusterPtrs {
		cr, err := NewClusterReader(raw[ptr.Offset : ptr.Offset+ptr.Size])
		if err != nil {
			return nil, fmt.Errorf("content: cluster %d: %w", i, err)
		}
		clusters[i] = cr
	}

	return &Pack{Header: header, UUID: header.UUID, clients: clusters, entries: entries}, nil
}

// Count reports the number of contents in the pack.
func (pk *Pack) Count() int {
	return len(pk.entries)
}

// Get resolves a content id to its decompressed blob.
func (pk *Pack) Get(contentID uint32) ([]byte, error) {
	if int(contentID) >= len(pk.entries) {
		return nil, fmt.Errorf("content: content id %d out of bounds of %d: %w", contentID, len(pk.entries), jbkerr.ErrFormat)
	}
	clusterIndex, blobIndex := unpackContentID(pk.entries[contentID])
	if clusterIndex >= len(pk.clients) {
		return nil, fmt.Errorf("content: content id %d points at cluster %d, pack has %d: %w", contentID, clusterIndex, len(pk.clients), jbkerr.ErrIntegrity)
	}
	return pk.clients[clusterIndex].Blob(blobIndex)
}
