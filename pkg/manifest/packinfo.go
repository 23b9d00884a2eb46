// Package manifest implements the ManifestPack: the fixed entry point of a
// Jubako container, listing every other pack's uuid, kind and location.
package manifest

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/jbkfmt/jubako/pkg/bases"
	"github.com/jbkfmt/jubako/pkg/jbkerr"
	"github.com/jbkfmt/jubako/pkg/jbkpack"
)

// MaxPathLen is the largest UTF-8 byte length a PackLocation path may have
// (spec.md §4.1).
const MaxPathLen = 217

// LocationKind tags whether a PackInfo's location is a byte offset within
// the same file (an embedded pack) or a path to a sibling file.
type LocationKind uint8

const (
	LocationOffset LocationKind = 0
	LocationPath   LocationKind = 1
)

// PackLocation is where to find a pack relative to the manifest: either an
// offset into the container file that embeds it, or a path to a standalone
// sibling pack file.
type PackLocation struct {
	Kind   LocationKind
	Offset bases.Offset
	Path   string
}

// PackInfo is one ManifestPack record: a pack's identity, declared
// dimensions (recorded at creation time so a reader can sanity-check the
// pack it eventually opens), and how to locate it.
type PackInfo struct {
	UUID                 uuid.UUID
	PackID               uint8 // 0 = directory pack, 1..N = content packs
	PackKind             jbkpack.Kind
	FreeData             [jbkpack.FreeDataSize]byte
	DeclaredSize         bases.Size
	DeclaredCheckInfoPos bases.Offset
	Location             PackLocation
}

// IsDirectoryPack reports whether this record describes the single
// directory pack (pack id 0).
func (pi *PackInfo) IsDirectoryPack() bool {
	return pi.PackID == 0
}

// recordSize is uuid(16) + pack_id(1) + pack_kind(4) + free_data + declared
// size(8) + declared_check_info_pos(8) + location_kind(1) + location
// (1-byte length + up to MaxPathLen bytes, or an 8-byte offset, whichever
// the kind needs — the field always reserves the path-sized maximum so
// every PackInfo record has identical width).
const recordSize = 16 + 1 + 4 + jbkpack.FreeDataSize + 8 + 8 + 1 + 1 + MaxPathLen

// RecordSize is the fixed on-disk width of one PackInfo record.
func RecordSize() int { return recordSize }

// Encode serializes one fixed-width PackInfo record.
func (pi *PackInfo) Encode() ([]byte, error) {
	buf := make([]byte, recordSize)
	off := 0
	copy(buf[off:off+16], pi.UUID[:])
	off += 16
	buf[off] = pi.PackID
	off++
	copy(buf[off:off+4], pi.PackKind[:])
	off += 4
	copy(buf[off:off+jbkpack.FreeDataSize], pi.FreeData[:])
	off += jbkpack.FreeDataSize
	bases.WriteUint(buf[off:off+8], uint64(pi.DeclaredSize), 8)
	off += 8
	bases.WriteUint(buf[off:off+8], uint64(pi.DeclaredCheckInfoPos), 8)
	off += 8
	buf[off] = byte(pi.Location.Kind)
	off++

	switch pi.Location.Kind {
	case LocationOffset:
		bases.WriteUint(buf[off:off+8], uint64(pi.Location.Offset), 8)
	case LocationPath:
		if len(pi.Location.Path) > MaxPathLen {
			return nil, fmt.Errorf("manifest: pack location path %q exceeds %d bytes: %w", pi.Location.Path, MaxPathLen, jbkerr.ErrEncoding)
		}
		buf[off] = byte(len(pi.Location.Path))
		copy(buf[off+1:off+1+len(pi.Location.Path)], pi.Location.Path)
	default:
		return nil, fmt.Errorf("manifest: unknown pack location kind %d", pi.Location.Kind)
	}
	return buf, nil
}

// DecodePackInfo parses one fixed-width PackInfo record.
func DecodePackInfo(buf []byte) (*PackInfo, error) {
	if len(buf) < recordSize {
		return nil, fmt.Errorf("manifest: pack info record truncated: %w", jbkerr.ErrFormat)
	}
	pi := &PackInfo{}
	off := 0
	copy(pi.UUID[:], buf[off:off+16])
	off += 16
	pi.PackID = buf[off]
	off++
	copy(pi.PackKind[:], buf[off:off+4])
	off += 4
	copy(pi.FreeData[:], buf[off:off+jbkpack.FreeDataSize])
	off += jbkpack.FreeDataSize
	pi.DeclaredSize = bases.Size(bases.ReadUintBytes(buf[off:off+8], 8))
	off += 8
	pi.DeclaredCheckInfoPos = bases.Offset(bases.ReadUintBytes(buf[off:off+8], 8))
	off += 8

	kind := LocationKind(buf[off])
	off++
	switch kind {
	case LocationOffset:
		pi.Location = PackLocation{Kind: LocationOffset, Offset: bases.Offset(bases.ReadUintBytes(buf[off:off+8], 8))}
	case LocationPath:
		n := int(buf[off])
		if n > MaxPathLen {
			return nil, fmt.Errorf("manifest: pack location path length %d exceeds %d: %w", n, MaxPathLen, jbkerr.ErrFormat)
		}
		pi.Location = PackLocation{Kind: LocationPath, Path: string(buf[off+1 : off+1+n])}
	default:
		return nil, fmt.Errorf("manifest: unknown pack location kind %d: %w", kind, jbkerr.ErrFormat)
	}
	return pi, nil
}
