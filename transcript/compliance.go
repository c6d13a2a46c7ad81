package transcript

import (
	"errors"

	"xdao.co/vcjwt/compliance"
	"xdao.co/vcjwt/evaluate"
)

// RenderWithCompliance renders a transcript under a compliance mode.
//
// Permissive mode is Render with no additional constraints. Strict mode
// refuses to render evidence that is not reproducible or not fully evaluated:
// - Verifier-ID must be set explicitly
// - Verified-At must be absent (wall-clock stamps break byte determinism)
// - no claim may be skipped
func RenderWithCompliance(rep *evaluate.Report, tokenCID, keyCID, policyCID string, opts RenderOptions, mode compliance.ComplianceMode) ([]byte, error) {
	if mode == compliance.Strict {
		if opts.VerifierID == "" {
			return nil, errors.New("strict mode: Verifier-ID is required")
		}
		if !opts.VerifiedAt.IsZero() {
			return nil, errors.New("strict mode: Verified-At is not allowed")
		}
		for _, c := range rep.Claims {
			if c.Skipped {
				return nil, errors.New("strict mode: transcript would record skipped claims")
			}
		}
	}
	return Render(rep, tokenCID, keyCID, policyCID, opts), nil
}
