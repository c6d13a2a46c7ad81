// Package vcjwt verifies RS256 JSON Web Tokens against key material supplied
// in the fixed-width limb representation, and checks claims directly inside
// the base64url payload without parsing JSON.
//
// A Verifier is constructed over the full signing input (direct mode) or over
// a suffix of it plus a block-aligned SHA-256 checkpoint (partial-hash mode).
// Verify checks the RSA-2048 PKCS#1 v1.5 signature and returns a Verified
// handle; claim validation is only reachable through that handle, so a claim
// can never be trusted before the signature is.
//
// Claim validation is a substring search: the needle `"key":"value` must
// occur in the decoded payload window and be followed by a closing quote.
// The first occurrence decides; callers that need structural JSON guarantees
// must parse the payload themselves.
//
// Stability:
//   - Error Kinds and RuleIDs are stable identifiers (see errors.go).
//   - The limb layout (18 limbs of 120 bits, least significant first) and
//     the checkpoint register layout (H0 first, big-endian words) are part
//     of the public contract.
//   - Error messages are not stable; match on Kind/RuleID instead.
package vcjwt
