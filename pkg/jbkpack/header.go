// Package jbkpack implements the common pack framing shared by all four
// pack kinds: the 64-byte pack header and the trailing check-info block.
package jbkpack

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/jbkfmt/jubako/pkg/bases"
	"github.com/jbkfmt/jubako/pkg/jbkerr"
)

// Kind identifies a pack's 4-byte ASCII magic.
type Kind [4]byte

// The four pack kinds, per spec.md §6.
var (
	KindManifest  = Kind{'j', 'b', 'k', 'm'}
	KindDirectory = Kind{'j', 'b', 'k', 'd'}
	KindContent   = Kind{'j', 'b', 'k', 'c'}
	KindContainer = Kind{'j', 'b', 'k', 'C'}
)

func (k Kind) String() string {
	return string(k[:])
}

// HeaderSize is the fixed size of every pack header.
const HeaderSize = 64

// fixedHeaderSize is the portion of the header before the free-data tail:
// magic(4) + vendor_id(4) + major(1) + minor(1) + uuid(16) + reserved(6) +
// size(8) + check_info_pos(8).
const fixedHeaderSize = 4 + 4 + 1 + 1 + 16 + 6 + 8 + 8

// FreeDataSize is the remaining header bytes available to each pack kind.
const FreeDataSize = HeaderSize - fixedHeaderSize

// Header is the common 64-byte prefix of every pack.
type Header struct {
	Magic        Kind
	VendorID     uint32
	MajorVersion uint8
	MinorVersion uint8
	UUID         uuid.UUID
	Size         bases.Size
	CheckInfoPos bases.Offset
	FreeData     [FreeDataSize]byte
}

// Encode writes the header as HeaderSize bytes.
func (h *Header) Encode() []byte {
	buf := make([]byte, HeaderSize)
	copy(buf[0:4], h.Magic[:])
	bases.WriteUint(buf[4:8], uint64(h.VendorID), 4)
	buf[8] = h.MajorVersion
	buf[9] = h.MinorVersion
	copy(buf[10:26], h.UUID[:])
	bases.WriteUint(buf[32:40], uint64(h.Size), 8)
	bases.WriteUint(buf[40:48], uint64(h.CheckInfoPos), 8)
	copy(buf[48:64], h.FreeData[:])
	return buf
}

// DecodeHeader parses a HeaderSize-byte buffer, checking that the magic
// matches one of the known kinds.
func DecodeHeader(buf []byte) (*Header, error) {
	if len(buf) < HeaderSize {
		return nil, fmt.Errorf("jbkpack: header needs %d bytes, got %d: %w", HeaderSize, len(buf), jbkerr.ErrFormat)
	}
	h := &Header{}
	copy(h.Magic[:], buf[0:4])
	if !h.Magic.Known() {
		return nil, fmt.Errorf("jbkpack: unknown pack magic %q: %w", h.Magic, jbkerr.ErrFormat)
	}
	h.VendorID = uint32(bases.ReadUintBytes(buf[4:8], 4))
	h.MajorVersion = buf[8]
	h.MinorVersion = buf[9]
	copy(h.UUID[:], buf[10:26])
	h.Size = bases.Size(bases.ReadUintBytes(buf[32:40], 8))
	h.CheckInfoPos = bases.Offset(bases.ReadUintBytes(buf[40:48], 8))
	copy(h.FreeData[:], buf[48:64])
	return h, nil
}

// Known reports whether k is one of the four defined pack kinds.
func (k Kind) Known() bool {
	switch k {
	case KindManifest, KindDirectory, KindContent, KindContainer:
		return true
	default:
		return false
	}
}
