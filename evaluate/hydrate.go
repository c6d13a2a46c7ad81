package evaluate

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ipfs/go-cid"

	"xdao.co/vcjwt/claimpolicy"
	"xdao.co/vcjwt/compliance"
	"xdao.co/vcjwt/fingerprint"
	"xdao.co/vcjwt/keymaterial"
	"xdao.co/vcjwt/storage"
	"xdao.co/vcjwt/vcjwt"
)

var ErrMissingArchive = errors.New("evaluate: missing archive for CID hydration")

// BlobRef refers to bytes directly or by CID (hydrated via the archive).
// Exactly one of Bytes or CID MUST be set.
type BlobRef struct {
	Bytes []byte
	CID   cid.Cid
}

// CheckRequestArchive is a check request that supports CID hydration through an
// injected archive.
//
// Deterministic hydration order:
// - If Archives is provided, adapters are consulted in the provided slice order.
// - No randomization or map iteration is used.
// - If both Archive and Archives are set, the request is rejected.
//
// Compliance controls policy parsing only; the report always materializes the
// full evidence so rejections can still be archived.
type CheckRequestArchive struct {
	Token  BlobRef
	Offset int

	// Key refers to an encoded key material document.
	Key            BlobRef
	SignatureLimbs []*big.Int

	// Policy is optional; a zero BlobRef checks the signature only.
	Policy BlobRef

	Partial *PartialState

	Compliance compliance.ComplianceMode

	Archive  storage.Store
	Archives []storage.Store
}

// CheckOutputArchive bundles the report with the deterministic input identifiers
// used to bind a transcript document to its inputs.
type CheckOutputArchive struct {
	Report    *Report
	TokenCID  string
	KeyCID    string
	PolicyCID string
}

func CheckWithArchive(req CheckRequestArchive) (*CheckOutputArchive, error) {
	store, err := archiveFromRequest(req.Archive, req.Archives)
	if err != nil {
		return nil, err
	}

	tokenBytes, tokenCID, err := hydrateOne(req.Token, store)
	if err != nil {
		return nil, fmt.Errorf("evaluate: hydrate token: %w", err)
	}

	keyBytes, keyCID, err := hydrateOne(req.Key, store)
	if err != nil {
		return nil, fmt.Errorf("evaluate: hydrate key: %w", err)
	}
	key, err := keymaterial.Decode(keyBytes)
	if err != nil {
		return nil, err
	}

	var policy *claimpolicy.Policy
	var policyCID string
	if len(req.Policy.Bytes) > 0 || req.Policy.CID.Defined() {
		policyBytes, id, perr := hydrateOne(req.Policy, store)
		if perr != nil {
			return nil, fmt.Errorf("evaluate: hydrate policy: %w", perr)
		}
		policy, perr = claimpolicy.ParseWithMode(policyBytes, req.Compliance)
		if perr != nil {
			return nil, perr
		}
		policyCID = id.String()
	}

	rep, err := checkWithPolicy(Input{
		Data:           tokenBytes,
		Offset:         req.Offset,
		Key:            key,
		SignatureLimbs: req.SignatureLimbs,
		Partial:        req.Partial,
	}, policy, vcjwt.Limits{})
	if err != nil {
		return nil, err
	}

	return &CheckOutputArchive{
		Report:    rep,
		TokenCID:  tokenCID.String(),
		KeyCID:    keyCID.String(),
		PolicyCID: policyCID,
	}, nil
}

func archiveFromRequest(single storage.Store, adapters []storage.Store) (storage.Store, error) {
	if single != nil && len(adapters) > 0 {
		return nil, errors.New("evaluate: specify either Archive or Archives, not both")
	}
	if single != nil {
		return single, nil
	}
	if len(adapters) > 0 {
		return storage.MultiStore{Adapters: adapters}, nil
	}
	return nil, nil
}

func hydrateOne(ref BlobRef, store storage.Store) ([]byte, cid.Cid, error) {
	if len(ref.Bytes) > 0 && ref.CID.Defined() {
		return nil, cid.Undef, errors.New("ambiguous blob ref: both bytes and CID set")
	}
	if len(ref.Bytes) > 0 {
		computed, err := fingerprint.NewCID(ref.Bytes)
		if err != nil {
			return nil, cid.Undef, err
		}
		return ref.Bytes, computed, nil
	}
	if ref.CID.Defined() {
		if store == nil {
			return nil, cid.Undef, ErrMissingArchive
		}
		b, err := store.Get(ref.CID)
		if err != nil {
			return nil, cid.Undef, err
		}
		computed, err := fingerprint.NewCID(b)
		if err != nil {
			return nil, cid.Undef, err
		}
		if computed != ref.CID {
			return nil, cid.Undef, storage.ErrCIDMismatch
		}
		return b, ref.CID, nil
	}
	return nil, cid.Undef, errors.New("invalid blob ref: neither bytes nor CID set")
}
