// Package compliance defines the shared evaluation modes.
package compliance

// ComplianceMode selects how aggressively verification surfaces failures.
//
// Both modes evaluate every claim. Permissive mode reports all outcomes in
// the result; strict mode additionally converts any failure into an error
// and hardens document parsing and transcript rendering.
type ComplianceMode int

const (
	Permissive ComplianceMode = iota
	Strict
)
