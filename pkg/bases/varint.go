package bases

// NeededBytes returns the minimal width w >= 1 such that 256^w > v >= 256^(w-1),
// i.e. the number of little-endian bytes needed to represent v.
func NeededBytes(v uint64) int {
	w := 1
	for v >= 1<<8 {
		v >>= 8
		w++
	}
	return w
}

// WriteUint writes the low width bytes of v, little-endian, into out.
func WriteUint(out []byte, v uint64, width int) {
	for i := 0; i < width; i++ {
		out[i] = byte(v)
		v >>= 8
	}
}

// ReadUintBytes decodes a little-endian width-byte (1..8) unsigned integer.
func ReadUintBytes(buf []byte, width int) uint64 {
	return readUintLE(buf[:width])
}

// WriteInt writes the low width bytes of v, little-endian, into out.
func WriteInt(out []byte, v int64, width int) {
	WriteUint(out, uint64(v), width)
}

// ReadIntBytes decodes a little-endian width-byte (1..8) sign-extended integer.
func ReadIntBytes(buf []byte, width int) int64 {
	return signExtend(readUintLE(buf[:width]), width)
}
