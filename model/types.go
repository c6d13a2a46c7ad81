package model

// BlobRef refers to canonical bytes directly or by CID.
// Exactly one of CID or Bytes MUST be set.
//
// JSON note: Bytes are encoded as base64 by encoding/json.
type BlobRef struct {
	CID   string `json:"cid,omitempty"`
	Bytes []byte `json:"bytes,omitempty"`
}

type ComplianceMode string

const (
	CompliancePermissive ComplianceMode = "permissive"
	ComplianceStrict     ComplianceMode = "strict"
)

// PartialHash resumes SHA-256 from a captured midstate instead of hashing the
// token from the start. Registers are the eight working words; FullLength is
// the total signed length in bytes, including the prefix already consumed.
type PartialHash struct {
	Registers  [8]uint32 `json:"registers"`
	FullLength uint64    `json:"fullLength"`
}

type VerifierRequest struct {
	Token         BlobRef        `json:"token"`
	PayloadOffset int            `json:"payloadOffset"`
	Key           BlobRef        `json:"key"`
	Signature     []byte         `json:"signature"`
	Policy        *BlobRef       `json:"policy,omitempty"`
	PartialHash   *PartialHash   `json:"partialHash,omitempty"`
	Compliance    ComplianceMode `json:"compliance"`
}

type ClaimResult struct {
	Key     string `json:"key"`
	Value   string `json:"value"`
	Range   int    `json:"range"`
	OK      bool   `json:"ok"`
	Skipped bool   `json:"skipped"`
	RuleID  string `json:"ruleID,omitempty"`
	Kind    string `json:"kind,omitempty"`
}

type Report struct {
	TokenFingerprint string        `json:"tokenFingerprint"`
	KeyFingerprint   string        `json:"keyFingerprint"`
	HashMode         string        `json:"hashMode"`
	State            string        `json:"state"`
	SignatureOK      bool          `json:"signatureOK"`
	SignatureRuleID  string        `json:"signatureRuleID,omitempty"`
	Claims           []ClaimResult `json:"claims"`
}

type VCTDocument struct {
	Bytes []byte `json:"bytes"`
	CID   string `json:"cid"`
}

type VerifierResponse struct {
	Report    Report      `json:"report"`
	TokenCID  string      `json:"tokenCID"`
	KeyCID    string      `json:"keyCID"`
	PolicyCID string      `json:"policyCID,omitempty"`
	VCT       VCTDocument `json:"vct"`
}
