package identity

import (
	"crypto/ed25519"
	"encoding/base64"
	"fmt"

	"github.com/cloudflare/circl/sign/dilithium/mode3"
)

// VerifierKeyFromPublicKey encodes an Ed25519 public key into the verifier-key string.
func VerifierKeyFromPublicKey(pub ed25519.PublicKey) (string, error) {
	if l := len(pub); l != ed25519.PublicKeySize {
		return "", fmt.Errorf("ed25519 public key must be %d bytes, got %d", ed25519.PublicKeySize, l)
	}
	return "ed25519:" + base64.StdEncoding.EncodeToString(pub), nil
}

// DilithiumVerifierKey encodes a Dilithium3 public key into the verifier-key string.
func DilithiumVerifierKey(pub *mode3.PublicKey) (string, error) {
	if pub == nil {
		return "", fmt.Errorf("missing public key")
	}
	var buf [mode3.PublicKeySize]byte
	pub.Pack(&buf)
	return "dilithium3:" + base64.StdEncoding.EncodeToString(buf[:]), nil
}

// ParseDilithiumVerifierKey decodes a "dilithium3:" verifier-key string.
func ParseDilithiumVerifierKey(s string) (*mode3.PublicKey, error) {
	const prefix = "dilithium3:"
	if len(s) < len(prefix) || s[:len(prefix)] != prefix {
		return nil, fmt.Errorf("unsupported verifier key %q", s)
	}
	b, err := base64.StdEncoding.DecodeString(s[len(prefix):])
	if err != nil {
		return nil, fmt.Errorf("invalid verifier key encoding: %w", err)
	}
	if len(b) != mode3.PublicKeySize {
		return nil, fmt.Errorf("dilithium3 public key must be %d bytes, got %d", mode3.PublicKeySize, len(b))
	}
	var buf [mode3.PublicKeySize]byte
	copy(buf[:], b)
	var pk mode3.PublicKey
	pk.Unpack(&buf)
	return &pk, nil
}
