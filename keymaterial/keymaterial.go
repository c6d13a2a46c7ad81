package keymaterial

import (
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"math/big"

	"xdao.co/vcjwt/fingerprint"
	"xdao.co/vcjwt/limb"
)

const (
	modulusBits    = 2048
	publicExponent = 65537
	signatureSize  = modulusBits / 8
)

// Key is a verification key in the form the verifier consumes: the RSA
// modulus together with the reduction parameter floor(2^4096 / N).
type Key struct {
	N    *big.Int
	Redc *big.Int
}

// New builds a Key from a 2048-bit modulus, deriving the reduction
// parameter.
func New(n *big.Int) (*Key, error) {
	if n == nil || n.BitLen() != modulusBits {
		return nil, fmt.Errorf("keymaterial: modulus must be %d bits", modulusBits)
	}
	redc := new(big.Int).Lsh(big.NewInt(1), 2*modulusBits)
	redc.Quo(redc, n)
	return &Key{N: new(big.Int).Set(n), Redc: redc}, nil
}

// FromPublicKey builds a Key from an RSA public key. Only 2048-bit keys
// with exponent 65537 are accepted.
func FromPublicKey(pub *rsa.PublicKey) (*Key, error) {
	if pub == nil {
		return nil, fmt.Errorf("keymaterial: nil public key")
	}
	if pub.E != publicExponent {
		return nil, fmt.Errorf("keymaterial: public exponent must be %d, got %d", publicExponent, pub.E)
	}
	return New(pub.N)
}

// ModulusLimbs returns the modulus as 18 little-endian limbs of 120 bits.
func (k *Key) ModulusLimbs() []*big.Int {
	ls, err := limb.Split(k.N)
	if err != nil {
		// Split only fails for out-of-range values; Key invariants keep the
		// modulus in range.
		return nil
	}
	return ls
}

// RedcLimbs returns the reduction parameter as 18 little-endian limbs.
func (k *Key) RedcLimbs() []*big.Int {
	ls, err := limb.Split(k.Redc)
	if err != nil {
		return nil
	}
	return ls
}

// fileJSON is the on-disk limb file layout. Limbs are 0x-prefixed hex,
// least significant first.
type fileJSON struct {
	ModulusLimbs []string `json:"modulus_limbs"`
	RedcLimbs    []string `json:"redc_limbs"`
}

// Encode renders the key as its canonical limb file: indented JSON with a
// trailing newline. Encoding is deterministic.
func (k *Key) Encode() []byte {
	f := fileJSON{
		ModulusLimbs: limb.FormatHex(k.ModulusLimbs()),
		RedcLimbs:    limb.FormatHex(k.RedcLimbs()),
	}
	b, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		// Marshal of a struct of strings cannot fail.
		return nil
	}
	return append(b, '\n')
}

// Fingerprint returns the fingerprint of the canonical limb file bytes.
// Keys with the same modulus always share a fingerprint.
func (k *Key) Fingerprint() string {
	return fingerprint.New(k.Encode())
}

// Decode parses a limb file and validates it: limbs must join to a 2048-bit
// modulus, and the stored reduction parameter must match the derived one.
func Decode(b []byte) (*Key, error) {
	var f fileJSON
	if err := json.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("keymaterial: decode limb file: %w", err)
	}
	modLimbs, err := limb.ParseHex(f.ModulusLimbs)
	if err != nil {
		return nil, fmt.Errorf("keymaterial: modulus limbs: %w", err)
	}
	n, err := limb.Join(modLimbs)
	if err != nil {
		return nil, fmt.Errorf("keymaterial: modulus limbs: %w", err)
	}
	k, err := New(n)
	if err != nil {
		return nil, err
	}
	redcLimbs, err := limb.ParseHex(f.RedcLimbs)
	if err != nil {
		return nil, fmt.Errorf("keymaterial: redc limbs: %w", err)
	}
	redc, err := limb.Join(redcLimbs)
	if err != nil {
		return nil, fmt.Errorf("keymaterial: redc limbs: %w", err)
	}
	if redc.Cmp(k.Redc) != 0 {
		return nil, fmt.Errorf("keymaterial: stored reduction parameter does not match modulus")
	}
	return k, nil
}

// SignatureLimbs splits a raw 256-byte RSA signature into the limb form the
// verifier consumes.
func SignatureLimbs(sig []byte) ([]*big.Int, error) {
	if len(sig) != signatureSize {
		return nil, fmt.Errorf("keymaterial: signature must be %d bytes, got %d", signatureSize, len(sig))
	}
	return limb.FromBytes(sig)
}
