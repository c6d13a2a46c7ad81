package evaluate

import (
	"fmt"

	"xdao.co/vcjwt/compliance"
)

// Options controls checker compliance behavior and window limits.
//
// Default behavior is Permissive with the verifier's default limits when
// Options{} is used.
type Options struct {
	Mode compliance.ComplianceMode

	// MaxDataLength and MaxValueLength bound the verifier. Zero selects the
	// verifier defaults.
	MaxDataLength  int
	MaxValueLength int
}

func (o Options) withDefaults() Options {
	if o.Mode == 0 {
		// compliance.Permissive is the zero value.
		return o
	}
	return o
}

func enforceStrictReport(rep *Report) error {
	if !rep.SignatureOK {
		return fmt.Errorf("strict mode: signature rejected (%s)", rep.SignatureRuleID)
	}
	for _, c := range rep.Claims {
		if !c.OK {
			return fmt.Errorf("strict mode: claim %q not satisfied (%s)", c.Key, c.RuleID)
		}
	}
	if rep.State != StateVerified {
		return fmt.Errorf("strict mode: expected StateVerified, got %s", rep.State)
	}
	return nil
}
