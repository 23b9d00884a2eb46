package jbkpack

import "fmt"

// ContentAddress locates a blob: which content pack (by 8-bit pack id) and
// which content id (a 24-bit value) within it. It always occupies exactly
// 4 bytes on disk.
type ContentAddress struct {
	PackID    uint8
	ContentID uint32 // must fit in 24 bits
}

// MaxContentID is the largest representable 24-bit content id.
const MaxContentID = 1<<24 - 1

// Encode writes the 4-byte on-disk form: pack_id, then content_id
// little-endian in the remaining 3 bytes.
func (a ContentAddress) Encode() ([4]byte, error) {
	var out [4]byte
	if a.ContentID > MaxContentID {
		return out, fmt.Errorf("jbkpack: content id %d exceeds 24 bits", a.ContentID)
	}
	out[0] = a.PackID
	out[1] = byte(a.ContentID)
	out[2] = byte(a.ContentID >> 8)
	out[3] = byte(a.ContentID >> 16)
	return out, nil
}

// DecodeContentAddress parses a 4-byte content address.
func DecodeContentAddress(buf []byte) (ContentAddress, error) {
	if len(buf) < 4 {
		return ContentAddress{}, fmt.Errorf("jbkpack: content address needs 4 bytes, got %d", len(buf))
	}
	return ContentAddress{
		PackID:    buf[0],
		ContentID: uint32(buf[1]) | uint32(buf[2])<<8 | uint32(buf[3])<<16,
	}, nil
}
