package keymaterial

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
)

// ParsePEM reads an RSA public key from a PEM block. Both PKIX ("PUBLIC
// KEY") and PKCS#1 ("RSA PUBLIC KEY") encodings are accepted.
func ParsePEM(b []byte) (*Key, error) {
	block, _ := pem.Decode(b)
	if block == nil {
		return nil, fmt.Errorf("keymaterial: no PEM block found")
	}
	switch block.Type {
	case "PUBLIC KEY":
		pub, err := x509.ParsePKIXPublicKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("keymaterial: parse PKIX public key: %w", err)
		}
		rpub, ok := pub.(*rsa.PublicKey)
		if !ok {
			return nil, fmt.Errorf("keymaterial: not an RSA public key")
		}
		return FromPublicKey(rpub)
	case "RSA PUBLIC KEY":
		rpub, err := x509.ParsePKCS1PublicKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("keymaterial: parse PKCS#1 public key: %w", err)
		}
		return FromPublicKey(rpub)
	}
	return nil, fmt.Errorf("keymaterial: unsupported PEM type %q", block.Type)
}
