package manifest

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/jbkfmt/jubako/pkg/bases"
	"github.com/jbkfmt/jubako/pkg/jbkerr"
	"github.com/jbkfmt/jubako/pkg/jbkpack"
)

// Writer accumulates PackInfo records during creation, in pack-id order.
type Writer struct {
	UUID  uuid.UUID
	packs []*PackInfo
}

// NewWriter returns an empty manifest pack writer.
func NewWriter(id uuid.UUID) *Writer {
	return &Writer{UUID: id}
}

// AddPack appends one PackInfo. The caller is responsible for assigning
// PackID in creation order (0 for the directory pack, then 1..N for
// content packs).
func (w *Writer) AddPack(pi *PackInfo) {
	w.packs = append(w.packs, pi)
}

// Finalize serializes the complete ManifestPack: header, pack_count(4),
// then every PackInfo record, then check-info. The pack count is
// additionally duplicated as a trailing field (pack_count_check)
// immediately before check-info; OpenPack compares the two after verifying
// the BLAKE3 digest.
func (w *Writer) Finalize() ([]byte, error) {
	var body []byte
	countBuf := make([]byte, 4)
	bases.WriteUint(countBuf, uint64(len(w.packs)), 4)
	body = append(body, countBuf...)

	for i, pi := range w.packs {
		enc, err := pi.Encode()
		if err != nil {
			return nil, fmt.Errorf("manifest: pack %d: %w", i, err)
		}
		body = append(body, enc...)
	}
	body = append(body, countBuf...) // pack_count_check

	header := &jbkpack.Header{Magic: jbkpack.KindManifest, UUID: w.UUID}
	header.Size = bases.Size(jbkpack.HeaderSize + len(body))
	header.CheckInfoPos = bases.Offset(jbkpack.HeaderSize + len(body))

	out := header.Encode()
	out = append(out, body...)
	out = append(out, jbkpack.ComputeCheckInfo(out)...)
	return out, nil
}

// Pack is the read side of a ManifestPack.
type Pack struct {
	Header *jbkpack.Header
	Packs  []*PackInfo
}

// OpenPack parses a complete ManifestPack, verifying its check-info digest
// and the duplicated pack-count field.
func OpenPack(raw []byte) (*Pack, error) {
	header, err := jbkpack.DecodeHeader(raw)
	if err != nil {
		return nil, err
	}
	if header.Magic != jbkpack.KindManifest {
		return nil, fmt.Errorf("manifest: expected manifest pack magic, got %q", header.Magic)
	}
	if err := jbkpack.VerifyCheckInfo(raw, header.CheckInfoPos); err != nil {
		return nil, err
	}

	p := bases.NewParser(raw[jbkpack.HeaderSize:header.CheckInfoPos], bases.Offset(jbkpack.HeaderSize))
	count, err := p.ReadU32()
	if err != nil {
		return nil, err
	}
	packs := make([]*PackInfo, count)
	recBuf := make([]byte, recordSize)
	for i := range packs {
		b, err := p.ReadBytes(recordSize)
		if err != nil {
			return nil, err
		}
		copy(recBuf, b)
		pi, err := DecodePackInfo(recBuf)
		if err != nil {
			return nil, fmt.Errorf("manifest: pack %d: %w", i, err)
		}
		packs[i] = pi
	}
	checkCount, err := p.ReadU32()
	if err != nil {
		return nil, err
	}
	if checkCount != count {
		return nil, fmt.Errorf("manifest: pack_count_check mismatch: header says %d, trailer says %d: %w", count, checkCount, jbkerr.ErrIntegrity)
	}
	return &Pack{Header: header, Packs: packs}, nil
}

// DirectoryPackInfo returns the record for pack id 0.
func (pk *Pack) DirectoryPackInfo() (*PackInfo, error) {
	for _, pi := range pk.Packs {
		if pi.IsDirectoryPack() {
			return pi, nil
		}
	}
	return nil, fmt.Errorf("manifest: no directory pack (id 0) recorded: %w", jbkerr.ErrFormat)
}

// ContentPackInfos returns every record with pack id >= 1, in the order the
// manifest lists them.
func (pk *Pack) ContentPackInfos() []*PackInfo {
	var out []*PackInfo
	for _, pi := range pk.Packs {
		if !pi.IsDirectoryPack() {
			out = append(out, pi)
		}
	}
	return out
}

// SetPackLocation rewrites the location of the pack identified by uuid, in
// place, within a previously-serialized ManifestPack buffer. This backs
// the "locate --set" operation: a container can be relocated (its packs
// moved to different sibling paths, or embedded/extracted) without
// rebuilding the manifest's other PackInfo records; the manifest's
// check-info is recomputed over the edited buffer.
func SetPackLocation(raw []byte, id uuid.UUID, loc PackLocation) error {
	header, err := jbkpack.DecodeHeader(raw)
	if err != nil {
		return err
	}
	if header.Magic != jbkpack.KindManifest {
		return fmt.Errorf("manifest: expected manifest pack magic, got %q", header.Magic)
	}

	p := bases.NewParser(raw[jbkpack.HeaderSize:header.CheckInfoPos], bases.Offset(jbkpack.HeaderSize))
	count, err := p.ReadU32()
	if err != nil {
		return err
	}
	for i := uint32(0); i < count; i++ {
		recStart := jbkpack.HeaderSize + 4 + int(i)*recordSize
		rec := raw[recStart : recStart+recordSize]
		pi, err := DecodePackInfo(rec)
		if err != nil {
			return fmt.Errorf("manifest: pack %d: %w", i, err)
		}
		if pi.UUID != id {
			continue
		}
		pi.Location = loc
		enc, err := pi.Encode()
		if err != nil {
			return err
		}
		copy(rec, enc)

		digest := jbkpack.ComputeCheckInfo(raw[:header.CheckInfoPos])
		copy(raw[header.CheckInfoPos:], digest)
		return nil
	}
	return fmt.Errorf("manifest: no pack with uuid %s: %w", id, jbkerr.ErrMissingPack)
}
