package jbkpack

import (
	"testing"

	"github.com/jbkfmt/jubako/pkg/bases"
	"github.com/stretchr/testify/require"
)

func TestCheckInfoRoundTrip(t *testing.T) {
	body := []byte("some pack body bytes, header+entries+tail")
	info := ComputeCheckInfo(body)
	require.Len(t, info, CheckInfoSize)
	require.Equal(t, byte(AlgoBlake3), info[0])

	full := append(append([]byte{}, body...), info...)
	require.NoError(t, VerifyCheckInfo(full, bases.Offset(len(body))))
}

func TestCheckInfoDetectsCorruption(t *testing.T) {
	body := []byte("pack body")
	info := ComputeCheckInfo(body)
	full := append(append([]byte{}, body...), info...)
	full[0] ^= 0xFF // corrupt the body after hashing

	require.Error(t, VerifyCheckInfo(full, bases.Offset(len(body))))
}

func TestHeaderRoundTrip(t *testing.T) {
	h := &Header{
		Magic:        KindContent,
		VendorID:     0x4A424B31,
		MajorVersion: 1,
		MinorVersion: 0,
		Size:         bases.Size(1234),
		CheckInfoPos: bases.Offset(1000),
	}
	buf := h.Encode()
	require.Len(t, buf, HeaderSize)

	got, err := DecodeHeader(buf)
	require.NoError(t, err)
	require.Equal(t, h.Magic, got.Magic)
	require.Equal(t, h.VendorID, got.VendorID)
	require.Equal(t, h.Size, got.Size)
	require.Equal(t, h.CheckInfoPos, got.CheckInfoPos)
}
