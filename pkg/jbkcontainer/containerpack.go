package jbkcontainer

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/jbkfmt/jubako/pkg/bases"
	"github.com/jbkfmt/jubako/pkg/jbkpack"
)

// Entry is one embedded pack's location within a ContainerPack: its
// identity and the byte range it occupies in the container file.
type Entry struct {
	UUID   uuid.UUID
	Offset bases.Offset
	Size   bases.Size
}

// Writer assembles a ContainerPack by embedding whole, already-finalized
// packs one after another. The manifest pack should be added last, by
// convention, matching how the Rust original lets an archaeologist find it
// by scanning backward from end-of-file when no container wraps it at all.
type Writer struct {
	UUID    uuid.UUID
	entries []Entry
	body    []byte
}

// NewWriter returns an empty container pack writer.
func NewWriter(id uuid.UUID) *Writer {
	return &Writer{UUID: id}
}

// Embed appends a fully-finalized pack's bytes (as produced by
// manifest.Writer.Finalize, directory.Creator.Finalize or
// content.Writer.Finalize) and records its location.
func (w *Writer) Embed(id uuid.UUID, packBytes []byte) {
	w.entries = append(w.entries, Entry{UUID: id, Offset: bases.Offset(jbkpack.HeaderSize + len(w.body)), Size: bases.Size(len(packBytes))})
	w.body = append(w.body, packBytes...)
}

// Finalize serializes the complete ContainerPack: header, the embedded
// packs back to back, an entry_count(4) + entries table (uuid16+offset8+
// size8 each), then check-info. The entry table's own offset is recorded
// in the header free-data so OpenPack can find it without scanning.
func (w *Writer) Finalize() ([]byte, error) {
	if len(w.entries) == 0 {
		return nil, fmt.Errorf("jbkcontainer: container pack has no embedded packs")
	}

	tailOffset := uint64(jbkpack.HeaderSize + len(w.body))

	var tail []byte
	countBuf := make([]byte, 4)
	bases.WriteUint(countBuf, uint64(len(w.entries)), 4)
	tail = append(tail, countBuf...)
	for _, e := range w.entries {
		tail = append(tail, e.UUID[:]...)
		buf := make([]byte, 16)
		bases.WriteUint(buf[0:8], uint64(e.Offset), 8)
		bases.WriteUint(buf[8:16], uint64(e.Size), 8)
		tail = append(tail, buf...)
	}

	body := append(append([]byte{}, w.body...), tail...)

	header := &jbkpack.Header{Magic: jbkpack.KindContainer, UUID: w.UUID}
	bases.WriteUint(header.FreeData[0:8], tailOffset, 8)
	header.Size = bases.Size(jbkpack.HeaderSize + len(body))
	header.CheckInfoPos = bases.Offset(jbkpack.HeaderSize + len(body))

	out := header.Encode()
	out = append(out, body...)
	out = append(out, jbkpack.ComputeCheckInfo(out)...)
	return out, nil
}

// Pack is the read side of a ContainerPack: the embedded-pack entry table,
// plus the raw bytes so embedded packs can be sliced out on demand.
type Pack struct {
	Header  *jbkpack.Header
	Entries []Entry
	raw     []byte
}

// OpenPack parses a complete ContainerPack, verifying its check-info
// digest.
func OpenPack(raw []byte) (*Pack, error) {
	header, err := jbkpack.DecodeHeader(raw)
	if err != nil {
		return nil, err
	}
	if header.Magic != jbkpack.KindContainer {
		return nil, fmt.Errorf("jbkcontainer: expected container pack magic, got %q", header.Magic)
	}
	if err := jbkpack.VerifyCheckInfo(raw, header.CheckInfoPos); err != nil {
		return nil, err
	}

	tailOffset := bases.ReadUintBytes(header.FreeData[0:8], 8)
	p := bases.NewParser(raw[:header.CheckInfoPos], bases.Offset(0))
	if err := p.SeekTo(int(tailOffset)); err != nil {
		return nil, fmt.Errorf("jbkcontainer: tail offset %d invalid: %w", tailOffset, err)
	}

	count, err := p.ReadU32()
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, count)
	for i := range entries {
		u, err := p.ReadUUID()
		if err != nil {
			return nil, err
		}
		off, err := p.ReadU64()
		if err != nil {
			return nil, err
		}
		size, err := p.ReadU64()
		if err != nil {
			return nil, err
		}
		entries[i] = Entry{UUID: uuid.UUID(u), Offset: bases.Offset(off), Size: bases.Size(size)}
	}

	return &Pack{Header: header, Entries: entries, raw: raw}, nil
}

// Slice returns the raw bytes of the pack embedded at entry i.
func (pk *Pack) Slice(i int) ([]byte, error) {
	if i < 0 || i >= len(pk.Entries) {
		return nil, fmt.Errorf("jbkcontainer: entry index %d out of bounds of %d", i, len(pk.Entries))
	}
	e := pk.Entries[i]
	return pk.raw[e.Offset : uint64(e.Offset)+uint64(e.Size)], nil
}

// Find returns the raw bytes of the embedded pack with the given uuid.
func (pk *Pack) Find(id uuid.UUID) ([]byte, bool, error) {
	for i, e := range pk.Entries {
		if e.UUID == id {
			b, err := pk.Slice(i)
			return b, true, err
		}
	}
	return nil, false, nil
}
