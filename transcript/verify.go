package transcript

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"xdao.co/vcjwt/identity"
)

// VerifySignature verifies the VCT CRYPTO signature, if present.
//
// Returns (true, nil) if the document is signed and the signature verifies.
// Returns (false, nil) if the document is not signed (empty CRYPTO section).
// Returns (false, err) for malformed, non-canonical, or invalid signatures.
//
// Verification requires canonical VCT bytes; non-canonical inputs are rejected.
func VerifySignature(vctBytes []byte) (bool, error) {
	canon, err := CanonicalizeVCT(vctBytes)
	if err != nil {
		return false, fmt.Errorf("canonical VCT required: %w", err)
	}

	cryptoLines, err := sectionLines(canon, "CRYPTO")
	if err != nil {
		return false, err
	}
	if len(cryptoLines) == 0 {
		return false, nil
	}

	sigAlg, hasAlg, err := singleFieldFromSection(canon, "CRYPTO", "Signature-Alg")
	if err != nil {
		return false, err
	}
	hashAlg, hasHash, err := singleFieldFromSection(canon, "CRYPTO", "Hash-Alg")
	if err != nil {
		return false, err
	}
	verifierKey, hasKey, err := singleFieldFromSection(canon, "CRYPTO", "Verifier-Key")
	if err != nil {
		return false, err
	}
	sigB64, hasSig, err := singleFieldFromSection(canon, "CRYPTO", "Signature")
	if err != nil {
		return false, err
	}

	// Partially populated CRYPTO is invalid.
	if !(hasKey && hasAlg && hasHash && hasSig) {
		return false, errors.New("CRYPTO: incomplete signature fields")
	}
	if hashAlg != "sha256" {
		return false, fmt.Errorf("CRYPTO: unsupported Hash-Alg %q", hashAlg)
	}

	scope, err := transcriptSignatureScope(canon)
	if err != nil {
		return false, err
	}

	switch sigAlg {
	case "ed25519":
		pub, err := parseEd25519VerifierKey(verifierKey)
		if err != nil {
			return false, err
		}
		sig, err := base64.StdEncoding.DecodeString(sigB64)
		if err != nil {
			return false, fmt.Errorf("CRYPTO: invalid Signature encoding: %w", err)
		}
		if len(sig) != ed25519.SignatureSize {
			return false, errors.New("CRYPTO: invalid Signature length")
		}
		digest := sha256.Sum256(scope)
		if !ed25519.Verify(pub, digest[:], sig) {
			return false, errors.New("CRYPTO: signature did not verify")
		}
		return true, nil
	case "dilithium3":
		pub, err := identity.ParseDilithiumVerifierKey(verifierKey)
		if err != nil {
			return false, fmt.Errorf("CRYPTO: %w", err)
		}
		ok, err := identity.VerifyDilithium3(scope, hashAlg, pub, sigB64)
		if err != nil {
			return false, fmt.Errorf("CRYPTO: %w", err)
		}
		if !ok {
			return false, errors.New("CRYPTO: signature did not verify")
		}
		return true, nil
	default:
		return false, fmt.Errorf("CRYPTO: unsupported Signature-Alg %q", sigAlg)
	}
}

func parseEd25519VerifierKey(s string) (ed25519.PublicKey, error) {
	const prefix = "ed25519:"
	if !strings.HasPrefix(s, prefix) {
		return nil, fmt.Errorf("CRYPTO: unsupported Verifier-Key %q", s)
	}
	b64 := strings.TrimPrefix(s, prefix)
	b, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, fmt.Errorf("CRYPTO: invalid Verifier-Key encoding: %w", err)
	}
	if len(b) != ed25519.PublicKeySize {
		return nil, errors.New("CRYPTO: invalid Verifier-Key length")
	}
	return ed25519.PublicKey(b), nil
}
