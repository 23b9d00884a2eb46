package jbkpack

import (
	"fmt"

	"github.com/jbkfmt/jubako/pkg/bases"
	"github.com/jbkfmt/jubako/pkg/jbkerr"
	"github.com/zeebo/blake3"
)

// AlgoBlake3 is the only hash algorithm id currently defined for the
// check-info block.
const AlgoBlake3 = 1

// DigestSize is the length of a BLAKE3 digest.
const DigestSize = 32

// CheckInfoSize is algo(1) + digest(32).
const CheckInfoSize = 1 + DigestSize

// ComputeCheckInfo hashes data with BLAKE3 and returns the CheckInfoSize-
// byte check-info block (algo byte followed by the digest).
func ComputeCheckInfo(data []byte) []byte {
	sum := blake3.Sum256(data)
	out := make([]byte, CheckInfoSize)
	out[0] = AlgoBlake3
	copy(out[1:], sum[:])
	return out
}

// VerifyCheckInfo recomputes the BLAKE3 digest over packBytes[0:checkInfoPos)
// and compares it against the check-info block stored at checkInfoPos.
func VerifyCheckInfo(packBytes []byte, checkInfoPos bases.Offset) error {
	pos := int(checkInfoPos)
	if pos < 0 || pos+CheckInfoSize > len(packBytes) {
		return fmt.Errorf("jbkpack: check-info at %d truncated in %d-byte pack: %w", pos, len(packBytes), jbkerr.ErrIntegrity)
	}
	algo := packBytes[pos]
	if algo != AlgoBlake3 {
		return fmt.Errorf("jbkpack: unsupported check-info algorithm %d: %w", algo, jbkerr.ErrIntegrity)
	}
	want := packBytes[pos+1 : pos+CheckInfoSize]
	got := blake3.Sum256(packBytes[:pos])
	for i := range want {
		if want[i] != got[i] {
			return fmt.Errorf("jbkpack: BLAKE3 digest mismatch: %w", jbkerr.ErrIntegrity)
		}
	}
	return nil
}
