package evaluate

type State string

const (
	StateVerified State = "Verified"
	StateRejected State = "Rejected"
)

// HashMode records how the message digest over the signing input was produced.
type HashMode string

const (
	HashDirect  HashMode = "direct"
	HashPartial HashMode = "partial"
)

// Report is the deterministic outcome of one verification run.
//
// State is the overall outcome: Verified means the signature checked out and
// every required claim was found; any failure yields Rejected. The per-input
// and per-claim fields below carry the evidence behind that call.
type Report struct {
	// TokenFingerprint identifies the token bytes the checker received.
	// In partial mode that is the unhashed suffix only.
	TokenFingerprint string
	KeyFingerprint   string
	HashMode         HashMode

	State State

	SignatureOK     bool
	SignatureRuleID string

	Claims []ClaimEvidence
}

// ClaimEvidence materializes the evaluation of a single required claim.
//
// This is representation-only evidence. It does not change verification
// semantics. It exists so a future reader can answer "why rejected?" without
// re-running the check.
//
// Skipped claims were never evaluated: claim checks require a verified
// signature, so a signature failure skips every claim.
type ClaimEvidence struct {
	Key   string
	Value string
	Range int

	OK      bool
	Skipped bool
	RuleID  string
	Kind    string
}

// FailedClaims returns the evidence entries for claims that were evaluated
// and did not hold.
func (r *Report) FailedClaims() []ClaimEvidence {
	var out []ClaimEvidence
	for _, c := range r.Claims {
		if !c.OK && !c.Skipped {
			out = append(out, c)
		}
	}
	return out
}
