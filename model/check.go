package model

import (
	"errors"

	"github.com/ipfs/go-cid"

	"xdao.co/vcjwt/compliance"
	"xdao.co/vcjwt/evaluate"
	"xdao.co/vcjwt/keymaterial"
	"xdao.co/vcjwt/storage"
	"xdao.co/vcjwt/transcript"
	"xdao.co/vcjwt/vcjwt"
)

type CheckOptions struct {
	Archive  storage.Store
	Archives []storage.Store

	VCTOptions transcript.RenderOptions
}

// CheckResult runs the checker (hydrating by CID via the archive when needed)
// and returns a compact, Go-friendly view of the outcome.
func CheckResult(req VerifierRequest, opts CheckOptions) (*VerificationResult, error) {
	out, vctBytes, _, vctCID, err := checkAndRender(req, opts)
	if err != nil {
		return nil, err
	}

	rep := fromReport(out.Report)
	return &VerificationResult{
		VCT:         vctBytes,
		VCTCID:      vctCID,
		State:       rep.State,
		SignatureOK: rep.SignatureOK,
		Claims:      append([]ClaimResult(nil), rep.Claims...),
	}, nil
}

// CheckAndRenderVCT runs the checker (hydrating by CID via the archive when
// needed) and renders canonical VCT bytes bound to the inputs.
func CheckAndRenderVCT(req VerifierRequest, opts CheckOptions) (*VerifierResponse, error) {
	out, vctBytes, vctCIDStr, _, err := checkAndRender(req, opts)
	if err != nil {
		return nil, err
	}

	resp := &VerifierResponse{
		Report:    fromReport(out.Report),
		TokenCID:  out.TokenCID,
		KeyCID:    out.KeyCID,
		PolicyCID: out.PolicyCID,
		VCT: VCTDocument{
			Bytes: vctBytes,
			CID:   vctCIDStr,
		},
	}
	return resp, nil
}

func checkAndRender(req VerifierRequest, opts CheckOptions) (*evaluate.CheckOutputArchive, []byte, string, cid.Cid, error) {
	tokenRef, err := toBlobRef(req.Token)
	if err != nil {
		return nil, nil, "", cid.Undef, NewError(ErrInvalidRequest, "invalid token: "+err.Error())
	}
	keyRef, err := toBlobRef(req.Key)
	if err != nil {
		return nil, nil, "", cid.Undef, NewError(ErrInvalidRequest, "invalid key: "+err.Error())
	}

	var policyRef evaluate.BlobRef
	if req.Policy != nil {
		policyRef, err = toBlobRef(*req.Policy)
		if err != nil {
			return nil, nil, "", cid.Undef, NewError(ErrInvalidRequest, "invalid policy: "+err.Error())
		}
	}

	mode, err := toCompliance(req.Compliance)
	if err != nil {
		return nil, nil, "", cid.Undef, err
	}

	limbs, err := keymaterial.SignatureLimbs(req.Signature)
	if err != nil {
		return nil, nil, "", cid.Undef, NewError(ErrInvalidRequest, "invalid signature: "+err.Error())
	}

	var partial *evaluate.PartialState
	if req.PartialHash != nil {
		partial = &evaluate.PartialState{
			Registers:  req.PartialHash.Registers,
			FullLength: req.PartialHash.FullLength,
		}
	}

	out, err := evaluate.CheckWithArchive(evaluate.CheckRequestArchive{
		Token:          tokenRef,
		Offset:         req.PayloadOffset,
		Key:            keyRef,
		SignatureLimbs: limbs,
		Policy:         policyRef,
		Partial:        partial,
		Compliance:     mode,
		Archive:        opts.Archive,
		Archives:       opts.Archives,
	})
	if err != nil {
		return nil, nil, "", cid.Undef, mapErr(err)
	}

	vctBytes, vctCIDStr, err := transcript.RenderWithCID(out.Report, out.TokenCID, out.KeyCID, out.PolicyCID, opts.VCTOptions)
	if err != nil {
		return nil, nil, "", cid.Undef, mapErr(err)
	}

	vctCID, err := cid.Decode(vctCIDStr)
	if err != nil {
		return nil, nil, "", cid.Undef, NewError(ErrInvalidCID, "invalid vct cid")
	}

	return out, vctBytes, vctCIDStr, vctCID, nil
}

func toBlobRef(b BlobRef) (evaluate.BlobRef, error) {
	if len(b.Bytes) > 0 && b.CID != "" {
		return evaluate.BlobRef{}, errors.New("blob ref has both bytes and cid")
	}
	if len(b.Bytes) > 0 {
		return evaluate.BlobRef{Bytes: b.Bytes}, nil
	}
	if b.CID != "" {
		id, err := cid.Decode(b.CID)
		if err != nil {
			return evaluate.BlobRef{}, errors.New("invalid cid")
		}
		return evaluate.BlobRef{CID: id}, nil
	}
	return evaluate.BlobRef{}, errors.New("blob ref missing bytes/cid")
}

func toCompliance(m ComplianceMode) (compliance.ComplianceMode, error) {
	switch m {
	case CompliancePermissive:
		return compliance.Permissive, nil
	case ComplianceStrict:
		return compliance.Strict, nil
	case "":
		return 0, NewError(ErrInvalidRequest, "missing compliance mode")
	default:
		return 0, NewError(ErrInvalidRequest, "invalid compliance mode")
	}
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	var ce *CodedError
	if errors.As(err, &ce) {
		return ce
	}
	if errors.Is(err, evaluate.ErrMissingArchive) {
		return NewError(ErrMissingArchive, err.Error())
	}
	if errors.Is(err, storage.ErrNotFound) {
		return NewError(ErrNotFound, err.Error())
	}
	if errors.Is(err, storage.ErrCIDMismatch) {
		return NewError(ErrCIDMismatch, err.Error())
	}
	if errors.Is(err, storage.ErrInvalidCID) {
		return NewError(ErrInvalidCID, err.Error())
	}
	var ve *vcjwt.Error
	if errors.As(err, &ve) {
		// Construction faults (bad offsets, ranges, key material) are caller
		// input problems, not checker failures.
		return NewError(ErrInvalidRequest, err.Error())
	}
	return NewError(ErrInternal, err.Error())
}

func fromReport(r *evaluate.Report) Report {
	out := Report{
		TokenFingerprint: r.TokenFingerprint,
		KeyFingerprint:   r.KeyFingerprint,
		HashMode:         string(r.HashMode),
		State:            string(r.State),
		SignatureOK:      r.SignatureOK,
		SignatureRuleID:  r.SignatureRuleID,
		Claims:           make([]ClaimResult, 0, len(r.Claims)),
	}
	for _, c := range r.Claims {
		out.Claims = append(out.Claims, ClaimResult{
			Key:     c.Key,
			Value:   c.Value,
			Range:   c.Range,
			OK:      c.OK,
			Skipped: c.Skipped,
			RuleID:  c.RuleID,
			Kind:    c.Kind,
		})
	}
	return out
}
