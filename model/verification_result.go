package model

import "github.com/ipfs/go-cid"

// VerificationResult is a compact, Go-friendly view of checker output.
//
// It is intended for integrations that want the transcript evidence (VCT) plus
// the high-signal outcomes without consuming the full VerifierResponse DTO.
//
// Notes:
// - VCT is the canonical transcript bytes.
// - VCTCID is the CID bound to VCT.
// - Claims carry the per-requirement evidence in evaluation order.
//
// This type is public-facing but is not the JSON boundary DTO (see VerifierResponse).
type VerificationResult struct {
	VCT         []byte
	VCTCID      cid.Cid
	State       string
	SignatureOK bool
	Claims      []ClaimResult
}
