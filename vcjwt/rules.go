package vcjwt

// claimQuery carries one ValidateKeyValue request through the rule table.
type claimQuery struct {
	key    []byte
	value  []byte
	length int // payload range in bytes
}

// claimRule is an explicit, named precondition on a claim query.
//
// id must be stable across versions.
// apply must be deterministic and side-effect free.
type claimRule struct {
	id    string
	apply func(v *Verifier, q claimQuery) error
}

func applyClaimRules(v *Verifier, q claimQuery, rules []claimRule) error {
	for _, r := range rules {
		if r.apply == nil {
			return newError(KindInternal, "VCJWT-INT-001", "nil claim rule apply")
		}
		if err := r.apply(v, q); err != nil {
			// Rules return structured errors; preserve them.
			return err
		}
	}
	return nil
}

// claimRulesV1 returns the precondition rules, in evaluation order.
//
// Determinism note: rule order is the evaluation order; keep it stable.
func claimRulesV1() []claimRule {
	return []claimRule{
		{
			id: "VCJWT-RANGE-001",
			apply: func(_ *Verifier, q claimQuery) error {
				if q.length%4 != 0 {
					return newError(KindRange, "VCJWT-RANGE-001", "payload range must be a multiple of 4")
				}
				return nil
			},
		},
		{
			id: "VCJWT-RANGE-002",
			apply: func(v *Verifier, q claimQuery) error {
				if q.length < 0 || q.length > len(v.data)-v.offset {
					return newError(KindRange, "VCJWT-RANGE-002", "payload range exceeds data after offset")
				}
				return nil
			},
		},
		{
			id: "VCJWT-RANGE-003",
			apply: func(v *Verifier, q claimQuery) error {
				if len(q.value) > v.limits.MaxValueLength {
					return newError(KindRange, "VCJWT-RANGE-003", "claim value exceeds maximum length")
				}
				return nil
			},
		},
	}
}
