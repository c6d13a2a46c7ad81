// Package limb converts between big integers and the fixed-width limb
// representation used for RSA key material at API boundaries.
//
// A value is carried as 18 limbs of 120 bits each, least significant limb
// first. The layout holds a 2048-bit modulus and the 2049-bit reduction
// parameter derived from it, with headroom in the top limb.
package limb

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
)

const (
	// Count is the number of limbs in the boundary representation.
	Count = 18

	// Bits is the width of a single limb.
	Bits = 120
)

// limbBound is the exclusive upper bound of a single limb.
var limbBound = new(big.Int).Lsh(big.NewInt(1), Bits)

// Join assembles limbs into a single non-negative integer. Exactly Count
// limbs are required, each in [0, 2^Bits).
func Join(limbs []*big.Int) (*big.Int, error) {
	if len(limbs) != Count {
		return nil, fmt.Errorf("limb: want %d limbs, got %d", Count, len(limbs))
	}
	out := new(big.Int)
	for i := Count - 1; i >= 0; i-- {
		l := limbs[i]
		if l == nil {
			return nil, fmt.Errorf("limb: limb %d is nil", i)
		}
		if l.Sign() < 0 || l.Cmp(limbBound) >= 0 {
			return nil, fmt.Errorf("limb: limb %d out of range", i)
		}
		out.Lsh(out, Bits)
		out.Add(out, l)
	}
	return out, nil
}

// Split breaks a non-negative integer into Count limbs, least significant
// first. Values of more than Count*Bits bits do not fit.
func Split(v *big.Int) ([]*big.Int, error) {
	if v == nil || v.Sign() < 0 {
		return nil, errors.New("limb: value must be non-negative")
	}
	if v.BitLen() > Count*Bits {
		return nil, fmt.Errorf("limb: %d-bit value exceeds %d-limb capacity", v.BitLen(), Count)
	}
	mask := new(big.Int).Sub(limbBound, big.NewInt(1))
	rest := new(big.Int).Set(v)
	out := make([]*big.Int, Count)
	for i := 0; i < Count; i++ {
		out[i] = new(big.Int).And(rest, mask)
		rest.Rsh(rest, Bits)
	}
	return out, nil
}

// FromBytes splits a big-endian byte string into limbs.
func FromBytes(b []byte) ([]*big.Int, error) {
	return Split(new(big.Int).SetBytes(b))
}

// ParseHex parses 0x-prefixed lowercase or uppercase hexadecimal limb
// strings, least significant first. Range checking is left to Join.
func ParseHex(ss []string) ([]*big.Int, error) {
	if len(ss) != Count {
		return nil, fmt.Errorf("limb: want %d limb strings, got %d", Count, len(ss))
	}
	out := make([]*big.Int, len(ss))
	for i, s := range ss {
		if !strings.HasPrefix(s, "0x") {
			return nil, fmt.Errorf("limb: limb %d: missing 0x prefix", i)
		}
		v, ok := new(big.Int).SetString(s[2:], 16)
		if !ok {
			return nil, fmt.Errorf("limb: limb %d: invalid hex", i)
		}
		if v.Sign() < 0 {
			return nil, fmt.Errorf("limb: limb %d: negative", i)
		}
		out[i] = v
	}
	return out, nil
}

// FormatHex renders limbs as 0x-prefixed lowercase hex, least significant
// first. Limbs must be non-nil.
func FormatHex(limbs []*big.Int) []string {
	out := make([]string, len(limbs))
	for i, l := range limbs {
		out[i] = "0x" + l.Text(16)
	}
	return out
}
