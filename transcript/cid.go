package transcript

import (
	"bytes"
	"errors"
	"fmt"

	"xdao.co/vcjwt/evaluate"
	"xdao.co/vcjwt/fingerprint"
)

// CID returns an IPFS-compatible CIDv1 (raw + sha2-256) for VCT bytes.
//
// Transcript evidence must be canonical before CID derivation. If input is not
// canonical, this function fails.
func CID(vctBytes []byte) (string, error) {
	canon, err := CanonicalizeVCT(vctBytes)
	if err != nil {
		return "", fmt.Errorf("canonical VCT required: %w", err)
	}
	return fingerprint.New(canon), nil
}

// RenderWithCID renders a transcript and returns its CID.
func RenderWithCID(rep *evaluate.Report, tokenCID, keyCID, policyCID string, opts RenderOptions) ([]byte, string, error) {
	b := Render(rep, tokenCID, keyCID, policyCID, opts)
	cid, err := CID(b)
	if err != nil {
		return nil, "", err
	}
	return b, cid, nil
}

// RenderSigned renders a transcript with a required signature.
//
// Unlike Render, which emits an unsigned document when no signing key is
// configured, this fails explicitly if signing cannot be performed.
func RenderSigned(rep *evaluate.Report, tokenCID, keyCID, policyCID string, opts RenderOptions) ([]byte, error) {
	if opts.VerifierKey == "" {
		return nil, errors.New("signed render requires VerifierKey")
	}
	if len(opts.PrivateKey) == 0 && opts.DilithiumKey == nil {
		return nil, errors.New("signed render requires a signing key")
	}
	b := Render(rep, tokenCID, keyCID, policyCID, opts)
	// Claim values are strconv.Quote-escaped, so a leftover placeholder line
	// can only come from the CRYPTO section.
	if bytes.Contains(b, []byte("\nSignature: 0\n")) {
		return nil, errors.New("transcript signing failed")
	}
	return b, nil
}

// RenderSignedWithCID renders a signed transcript and returns its CID.
func RenderSignedWithCID(rep *evaluate.Report, tokenCID, keyCID, policyCID string, opts RenderOptions) ([]byte, string, error) {
	b, err := RenderSigned(rep, tokenCID, keyCID, policyCID, opts)
	if err != nil {
		return nil, "", err
	}
	cid, err := CID(b)
	if err != nil {
		return nil, "", err
	}
	return b, cid, nil
}
