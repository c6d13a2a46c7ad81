// Package evaluate checks tokens against claim policies and reports the evidence.
package evaluate

import (
	"errors"
	"math/big"

	"xdao.co/vcjwt/claimpolicy"
	"xdao.co/vcjwt/fingerprint"
	"xdao.co/vcjwt/keymaterial"
	"xdao.co/vcjwt/vcjwt"
)

// PartialState resumes hashing from an externally computed digest state.
// Registers and FullLength mirror the verifier's partial-hash inputs.
type PartialState struct {
	Registers  [8]uint32
	FullLength uint64
}

// Input carries one token check: the token bytes, the payload offset, the
// key material, and the signature limbs.
//
// When Partial is set, Data holds only the unhashed suffix of the token and
// Offset is relative to that suffix. Nil selects direct hashing.
type Input struct {
	Data   []byte
	Offset int

	Key            *keymaterial.Key
	SignatureLimbs []*big.Int

	Partial *PartialState
}

// Check verifies the input and evaluates every claim the policy requires.
//
// A nil policy checks the signature only. Construction and internal failures
// return an error; signature and claim failures are materialized in the
// report instead.
func Check(in Input, policy *claimpolicy.Policy) (*Report, error) {
	return CheckWithOptions(in, policy, Options{})
}

func checkWithPolicy(in Input, policy *claimpolicy.Policy, limits vcjwt.Limits) (*Report, error) {
	if in.Key == nil {
		return nil, errors.New("evaluate: missing key material")
	}

	mod := in.Key.ModulusLimbs()
	redc := in.Key.RedcLimbs()

	var (
		v    *vcjwt.Verifier
		err  error
		mode = HashDirect
	)
	if in.Partial != nil {
		mode = HashPartial
		v, err = vcjwt.NewWithPartialHashLimits(in.Data, in.Partial.Registers, in.Partial.FullLength, in.Offset, mod, redc, in.SignatureLimbs, limits)
	} else {
		v, err = vcjwt.NewWithLimits(in.Data, in.Offset, mod, redc, in.SignatureLimbs, limits)
	}
	if err != nil {
		return nil, err
	}

	rep := &Report{
		TokenFingerprint: fingerprint.New(in.Data),
		KeyFingerprint:   in.Key.Fingerprint(),
		HashMode:         mode,
	}

	verified, err := v.Verify()
	if err != nil {
		if !vcjwt.IsKind(err, vcjwt.KindSignature) {
			return nil, err
		}
		rep.State = StateRejected
		rep.SignatureRuleID = vcjwt.RuleID(err)
		rep.Claims = skippedClaims(policy)
		return rep, nil
	}
	rep.SignatureOK = true
	rep.State = StateVerified

	if policy == nil {
		return rep, nil
	}
	for _, c := range policy.Claims {
		ev := ClaimEvidence{Key: c.Key, Value: c.Value, Range: c.Range}
		if ev.Range == 0 {
			ev.Range = defaultRange(len(in.Data), in.Offset)
		}
		if err := verified.ValidateKeyValue([]byte(c.Key), []byte(c.Value), ev.Range); err != nil {
			annotateClaimError(&ev, err)
			rep.State = StateRejected
		} else {
			ev.OK = true
		}
		rep.Claims = append(rep.Claims, ev)
	}
	return rep, nil
}

// defaultRange is the whole remaining window rounded down to a multiple of
// four, matching the claim policy's zero-range convention.
func defaultRange(dataLen, offset int) int {
	avail := dataLen - offset
	if avail < 0 {
		return 0
	}
	return avail - avail%4
}

func skippedClaims(policy *claimpolicy.Policy) []ClaimEvidence {
	if policy == nil {
		return nil
	}
	out := make([]ClaimEvidence, 0, len(policy.Claims))
	for _, c := range policy.Claims {
		out = append(out, ClaimEvidence{Key: c.Key, Value: c.Value, Range: c.Range, Skipped: true})
	}
	return out
}

func annotateClaimError(ev *ClaimEvidence, err error) {
	ev.RuleID = vcjwt.RuleID(err)
	var verr *vcjwt.Error
	if errors.As(err, &verr) {
		ev.Kind = string(verr.Kind)
	}
}
