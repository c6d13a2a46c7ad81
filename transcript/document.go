package transcript

import (
	"xdao.co/vcjwt/evaluate"
	"xdao.co/vcjwt/fingerprint"
)

// Document is a first-class VCT evidence object.
//
// Bytes are canonical VCT bytes. CID is derived from Bytes.
//
// A transcript is intentionally treated as a document (not ephemeral output)
// so it can be archived, inspected, and re-verified.
//
// Note: this is a lightweight wrapper; it does not add any trust semantics.
type Document struct {
	Bytes []byte
	CID   string
}

// NewDocumentFromBytes canonicalizes VCT bytes and computes the VCT CID.
func NewDocumentFromBytes(vctBytes []byte) (*Document, error) {
	canon, err := CanonicalizeVCT(vctBytes)
	if err != nil {
		return nil, err
	}
	return &Document{Bytes: canon, CID: fingerprint.New(canon)}, nil
}

// RenderDocument renders VCT bytes from a check report and returns a
// canonical Document (bytes + CID).
func RenderDocument(rep *evaluate.Report, tokenCID, keyCID, policyCID string, opts RenderOptions) (*Document, error) {
	b := Render(rep, tokenCID, keyCID, policyCID, opts)
	return NewDocumentFromBytes(b)
}
