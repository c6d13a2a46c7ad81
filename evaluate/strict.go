package evaluate

import (
	"xdao.co/vcjwt/claimpolicy"
	"xdao.co/vcjwt/compliance"
)

// CheckStrict runs Check and enforces strict compliance semantics.
//
// Strict compliance mode is intentionally rejecting:
// - Any signature failure
// - Any required claim that is missing or malformed
//
// This is a convenience entry point for callers that want "no ambiguity" behavior
// while still keeping the base checker behavior available.
func CheckStrict(in Input, policy *claimpolicy.Policy) (*Report, error) {
	return CheckWithOptions(in, policy, Options{Mode: compliance.Strict})
}
