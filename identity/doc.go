// Package identity provides the verifier's own signing keys for transcript
// attestation.
//
// API stability:
//
// Stable (SemVer-protected):
//   - Pure, deterministic primitives for verifier-key formatting, role-seed
//     derivation, and signing.
//
// Experimental:
//   - Filesystem-backed seed storage and convenience helpers (KeyStore and
//     related functions). These are local-first utilities and are not part of
//     the long-term protocol contract.
package identity
