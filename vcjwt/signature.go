package vcjwt

import (
	"bytes"
	encoding_asn1 "encoding/asn1"
	"math/big"

	"golang.org/x/crypto/cryptobyte"
	"golang.org/x/crypto/cryptobyte/asn1"
)

const (
	modulusBits  = 2048
	modulusBytes = modulusBits / 8
)

// PublicExponent is the fixed RSA public exponent. Key material with any
// other exponent is outside this package's contract.
const PublicExponent = 65537

var sha256OID = encoding_asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 2, 1}

// digestInfo returns the DER DigestInfo structure over a SHA-256 digest
// (RFC 8017, section 9.2).
func digestInfo(digest []byte) ([]byte, error) {
	var b cryptobyte.Builder
	b.AddASN1(asn1.SEQUENCE, func(b *cryptobyte.Builder) {
		b.AddASN1(asn1.SEQUENCE, func(b *cryptobyte.Builder) {
			b.AddASN1ObjectIdentifier(sha256OID)
			b.AddASN1NULL()
		})
		b.AddASN1OctetString(digest)
	})
	return b.Bytes()
}

// encodedMessage builds the expected PKCS#1 v1.5 encoded message for digest:
// 0x00 0x01, 0xFF padding, 0x00, DigestInfo.
func encodedMessage(digest []byte) ([]byte, error) {
	di, err := digestInfo(digest)
	if err != nil {
		return nil, err
	}
	em := make([]byte, modulusBytes)
	em[1] = 0x01
	for i := 2; i < modulusBytes-len(di)-1; i++ {
		em[i] = 0xff
	}
	copy(em[modulusBytes-len(di):], di)
	return em, nil
}

// verifyRSAPKCS1v15 checks the signature s over digest under modulus n.
func verifyRSAPKCS1v15(n, s *big.Int, digest []byte) error {
	if s.Cmp(n) >= 0 {
		return newError(KindSignature, "VCJWT-SIG-402", "signature value out of range for modulus")
	}
	em := new(big.Int).Exp(s, big.NewInt(PublicExponent), n).FillBytes(make([]byte, modulusBytes))
	want, err := encodedMessage(digest)
	if err != nil {
		return wrapError(KindInternal, "VCJWT-INT-003", "build encoded message", err)
	}
	if !bytes.Equal(em, want) {
		return newError(KindSignature, "VCJWT-SIG-401", "signature does not match message digest")
	}
	return nil
}
