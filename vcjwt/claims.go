package vcjwt

import (
	"bytes"
	"encoding/base64"
)

func isBase64URLByte(c byte) bool {
	switch {
	case c >= 'A' && c <= 'Z':
		return true
	case c >= 'a' && c <= 'z':
		return true
	case c >= '0' && c <= '9':
		return true
	case c == '-' || c == '_':
		return true
	}
	return false
}

// decodeWindow decodes a base64url window whose length is a multiple of 4.
// Padding characters and any byte outside the base64url alphabet are
// rejected; the stdlib decoder alone would skip newlines.
func decodeWindow(window []byte) ([]byte, error) {
	for i := 0; i < len(window); i++ {
		if !isBase64URLByte(window[i]) {
			return nil, newError(KindDecode, "VCJWT-DEC-001", "payload window is not base64url")
		}
	}
	out := make([]byte, len(window)/4*3)
	if _, err := base64.RawURLEncoding.Decode(out, window); err != nil {
		return nil, wrapError(KindDecode, "VCJWT-DEC-001", "payload window is not base64url", err)
	}
	return out, nil
}

// matchClaim runs the precondition rules, decodes the payload window and
// searches it for `"key":"value` followed by a closing quote. The first
// occurrence decides.
func matchClaim(v *Verifier, q claimQuery) error {
	if err := applyClaimRules(v, q, claimRulesV1()); err != nil {
		return err
	}
	window := v.data[v.offset : v.offset+q.length]
	decoded, err := decodeWindow(window)
	if err != nil {
		return err
	}

	needle := make([]byte, 0, len(q.key)+len(q.value)+5)
	needle = append(needle, '"')
	needle = append(needle, q.key...)
	needle = append(needle, '"', ':', '"')
	needle = append(needle, q.value...)

	idx := bytes.Index(decoded, needle)
	if idx < 0 {
		return newError(KindClaimNotFound, "VCJWT-CLAIM-001", "claim pair not found in payload window")
	}
	end := idx + len(needle)
	if end >= len(decoded) || decoded[end] != '"' {
		return newError(KindClaimMalformed, "VCJWT-CLAIM-002", "claim value is not quote-terminated")
	}
	return nil
}
