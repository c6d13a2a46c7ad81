package vcjwt

import (
	"crypto/sha256"
	"math/big"

	"xdao.co/vcjwt/limb"
	"xdao.co/vcjwt/sha2state"
)

// Verifier holds one signing input together with the key material needed to
// check it. Construction validates everything except the signature itself;
// Verify performs the RSA check and unlocks claim validation.
//
// A Verifier copies its input data and is immutable after construction.
type Verifier struct {
	data   []byte
	offset int
	limits Limits

	partial bool
	state   sha2state.Checkpoint

	n   *big.Int
	sig *big.Int
}

// New builds a Verifier over the full JWS signing input,
// base64url(header) "." base64url(payload).
//
// offset is the index where the payload segment starts, in [0, len(data)].
// Key material arrives as 18 little-endian limbs of 120 bits each: the
// modulus, the reduction parameter floor(2^4096 / modulus), and the
// signature. The reduction parameter is validated against the modulus;
// modular arithmetic itself uses math/big.
func New(data []byte, offset int, modulusLimbs, redcLimbs, signatureLimbs []*big.Int) (*Verifier, error) {
	return NewWithLimits(data, offset, modulusLimbs, redcLimbs, signatureLimbs, Limits{})
}

// NewWithLimits is New with explicit limits.
func NewWithLimits(data []byte, offset int, modulusLimbs, redcLimbs, signatureLimbs []*big.Int, limits Limits) (*Verifier, error) {
	return newVerifier(data, offset, modulusLimbs, redcLimbs, signatureLimbs, limits)
}

// NewWithPartialHash builds a Verifier over a suffix of the signing input,
// resuming SHA-256 from a block-aligned checkpoint.
//
// state holds the eight 32-bit compression registers, H0 first, after
// hashing the first fullLength-len(suffix) bytes of the signing input; that
// count must be a multiple of 64. fullLength is the length of the complete
// signing input. offset addresses the payload window inside suffix.
func NewWithPartialHash(suffix []byte, state [8]uint32, fullLength uint64, offset int, modulusLimbs, redcLimbs, signatureLimbs []*big.Int) (*Verifier, error) {
	return NewWithPartialHashLimits(suffix, state, fullLength, offset, modulusLimbs, redcLimbs, signatureLimbs, Limits{})
}

// NewWithPartialHashLimits is NewWithPartialHash with explicit limits.
func NewWithPartialHashLimits(suffix []byte, state [8]uint32, fullLength uint64, offset int, modulusLimbs, redcLimbs, signatureLimbs []*big.Int, limits Limits) (*Verifier, error) {
	v, err := newVerifier(suffix, offset, modulusLimbs, redcLimbs, signatureLimbs, limits)
	if err != nil {
		return nil, err
	}
	if fullLength < uint64(len(suffix)) {
		return nil, newError(KindRange, "VCJWT-HASH-001", "full length shorter than suffix")
	}
	consumed := fullLength - uint64(len(suffix))
	if consumed%sha2state.BlockSize != 0 {
		return nil, newError(KindRange, "VCJWT-HASH-002", "resumed byte count is not block aligned")
	}
	v.partial = true
	v.state = sha2state.Checkpoint{H: state, Consumed: consumed}
	return v, nil
}

func newVerifier(data []byte, offset int, modulusLimbs, redcLimbs, signatureLimbs []*big.Int, limits Limits) (*Verifier, error) {
	limits = limits.withDefaults()
	if err := limits.validate(); err != nil {
		return nil, err
	}
	if len(data) > limits.MaxDataLength {
		return nil, newError(KindCapacity, "VCJWT-CAP-001", "data length exceeds configured maximum")
	}
	if offset < 0 || offset > len(data) {
		return nil, newError(KindRange, "VCJWT-RANGE-004", "payload offset out of bounds")
	}

	n, err := limb.Join(modulusLimbs)
	if err != nil {
		return nil, wrapError(KindKeyMaterial, "VCJWT-KEY-001", "invalid modulus limbs", err)
	}
	if n.BitLen() != modulusBits {
		return nil, newError(KindKeyMaterial, "VCJWT-KEY-004", "modulus is not 2048 bits")
	}
	redc, err := limb.Join(redcLimbs)
	if err != nil {
		return nil, wrapError(KindKeyMaterial, "VCJWT-KEY-002", "invalid reduction parameter limbs", err)
	}
	want := new(big.Int).Lsh(big.NewInt(1), 2*modulusBits)
	want.Quo(want, n)
	if redc.Cmp(want) != 0 {
		return nil, newError(KindKeyMaterial, "VCJWT-KEY-005", "reduction parameter inconsistent with modulus")
	}
	sig, err := limb.Join(signatureLimbs)
	if err != nil {
		return nil, wrapError(KindKeyMaterial, "VCJWT-KEY-003", "invalid signature limbs", err)
	}

	return &Verifier{
		data:   append([]byte(nil), data...),
		offset: offset,
		limits: limits,
		n:      n,
		sig:    sig,
	}, nil
}

// messageDigest computes the SHA-256 digest of the full signing input.
func (v *Verifier) messageDigest() ([]byte, error) {
	if !v.partial {
		sum := sha256.Sum256(v.data)
		return sum[:], nil
	}
	h, err := sha2state.Resume(v.state)
	if err != nil {
		// Alignment was checked at construction.
		return nil, wrapError(KindInternal, "VCJWT-INT-002", "resume hash state", err)
	}
	h.Write(v.data)
	return h.Sum(nil), nil
}

// Verify checks the RSA-2048 PKCS#1 v1.5 signature over the signing input.
// On success it returns a Verified handle through which claims can be
// validated. All failures are terminal; there is no partial success.
func (v *Verifier) Verify() (*Verified, error) {
	digest, err := v.messageDigest()
	if err != nil {
		return nil, err
	}
	if err := verifyRSAPKCS1v15(v.n, v.sig, digest); err != nil {
		return nil, err
	}
	return &Verified{v: v}, nil
}

// Verified is the proof that a Verifier's signature check succeeded. Claim
// validation is only reachable through it.
type Verified struct {
	v *Verifier
}

// ValidateKeyValue checks that the claim `"key":"value"` occurs in the
// decoded payload window data[offset:offset+payloadRange]. payloadRange
// must be a non-negative multiple of 4 that fits inside the data after
// offset. The first occurrence of the pair decides; a match not followed
// by a closing quote is malformed.
func (t *Verified) ValidateKeyValue(key, value []byte, payloadRange int) error {
	return matchClaim(t.v, claimQuery{key: key, value: value, length: payloadRange})
}
