// Package keymaterial prepares RSA verification keys for the limb-oriented
// verifier API.
//
// API stability:
//
// Stable (SemVer-protected):
//   - Key construction, the limb file codec, and fingerprinting. These are
//     pure and deterministic: the same modulus always produces the same
//     limbs, file bytes and fingerprint.
//
// Experimental:
//   - Filesystem-backed named key storage (Store and related functions).
//     These are local-first utilities and are not part of the long-term
//     protocol contract.
package keymaterial
