package bases

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNeededBytesRoundTrip(t *testing.T) {
	cases := []uint64{0, 1, 255, 256, 65535, 65536, 1 << 32, math.MaxUint64}
	for _, v := range cases {
		w := NeededBytes(v)
		require.GreaterOrEqual(t, w, 1)
		if w < 8 {
			require.Less(t, v, uint64(1)<<(8*w), "width %d too small for %d", w, v)
		}
		if w > 1 {
			require.GreaterOrEqual(t, v, uint64(1)<<(8*(w-1)), "width %d too large for %d", w, v)
		}

		buf := make([]byte, w)
		WriteUint(buf, v, w)
		require.Equal(t, v, ReadUintBytes(buf, w))
	}
}

func TestReadIntBytesSignExtends(t *testing.T) {
	buf := []byte{0xFF}
	require.Equal(t, int64(-1), ReadIntBytes(buf, 1))

	buf2 := []byte{0x00, 0x80}
	require.Equal(t, int64(-32768), ReadIntBytes(buf2, 2))

	buf3 := []byte{0x7F}
	require.Equal(t, int64(127), ReadIntBytes(buf3, 1))
}
