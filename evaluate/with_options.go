package evaluate

import (
	"xdao.co/vcjwt/claimpolicy"
	"xdao.co/vcjwt/compliance"
	"xdao.co/vcjwt/vcjwt"
)

// CheckWithOptions runs Check and then applies the requested compliance mode.
//
// This is intentionally layered on top of the base checker so we can keep its
// behavior stable while giving callers an explicit knob.
func CheckWithOptions(in Input, policy *claimpolicy.Policy, opts Options) (*Report, error) {
	opts = opts.withDefaults()
	limits := vcjwt.Limits{
		MaxDataLength:  opts.MaxDataLength,
		MaxValueLength: opts.MaxValueLength,
	}
	rep, err := checkWithPolicy(in, policy, limits)
	if err != nil {
		return nil, err
	}
	if opts.Mode == compliance.Strict {
		if err := enforceStrictReport(rep); err != nil {
			return nil, err
		}
	}
	return rep, nil
}
