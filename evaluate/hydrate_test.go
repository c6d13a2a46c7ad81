package evaluate

import (
	"bytes"
	"errors"
	"testing"

	"github.com/ipfs/go-cid"

	"xdao.co/vcjwt/fingerprint"
	"xdao.co/vcjwt/storage"
)

type memStore struct {
	m map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{m: make(map[string][]byte)}
}

func (s *memStore) Put(b []byte) (cid.Cid, error) {
	id, err := fingerprint.NewCID(b)
	if err != nil {
		return cid.Undef, err
	}
	k := id.String()
	if existing, ok := s.m[k]; ok {
		if !bytes.Equal(existing, b) {
			return cid.Undef, storage.ErrImmutable
		}
		return id, nil
	}
	s.m[k] = append([]byte(nil), b...)
	return id, nil
}

func (s *memStore) Get(id cid.Cid) ([]byte, error) {
	if !id.Defined() {
		return nil, storage.ErrInvalidCID
	}
	b, ok := s.m[id.String()]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return append([]byte(nil), b...), nil
}

func (s *memStore) Has(id cid.Cid) bool {
	if !id.Defined() {
		return false
	}
	_, ok := s.m[id.String()]
	return ok
}

const hydratePolicy = `-----BEGIN XDAO CLAIM POLICY-----
META
Version: 1

CLAIMS
Require:
Key: a
Value: 1
-----END XDAO CLAIM POLICY-----
`

func TestCheckWithArchive_HydratesAllInputs(t *testing.T) {
	signer := mustSignerKey(t, "signer_a.pem")
	tt := mustToken(t, signer, `{"a":"1"}`)

	store := newMemStore()
	tokenCID, err := store.Put(tt.data)
	if err != nil {
		t.Fatalf("Put token failed: %v", err)
	}
	keyCID, err := store.Put(tt.key.Encode())
	if err != nil {
		t.Fatalf("Put key failed: %v", err)
	}
	policyCID, err := store.Put([]byte(hydratePolicy))
	if err != nil {
		t.Fatalf("Put policy failed: %v", err)
	}

	got, err := CheckWithArchive(CheckRequestArchive{
		Token:          BlobRef{CID: tokenCID},
		Offset:         tt.offset,
		Key:            BlobRef{CID: keyCID},
		SignatureLimbs: tt.sig,
		Policy:         BlobRef{CID: policyCID},
		Archive:        store,
	})
	if err != nil {
		t.Fatalf("CheckWithArchive failed: %v", err)
	}

	if got.Report.State != StateVerified {
		t.Fatalf("State = %s, want %s", got.Report.State, StateVerified)
	}
	if got.TokenCID != tokenCID.String() || got.KeyCID != keyCID.String() || got.PolicyCID != policyCID.String() {
		t.Fatalf("input CIDs = (%s, %s, %s), want the stored CIDs", got.TokenCID, got.KeyCID, got.PolicyCID)
	}
	if got.Report.TokenFingerprint != tokenCID.String() {
		t.Fatalf("TokenFingerprint = %s, want %s", got.Report.TokenFingerprint, tokenCID)
	}
	if got.Report.KeyFingerprint != keyCID.String() {
		t.Fatalf("KeyFingerprint = %s, want %s", got.Report.KeyFingerprint, keyCID)
	}
}

func TestCheckWithArchive_InlineBytes(t *testing.T) {
	signer := mustSignerKey(t, "signer_a.pem")
	tt := mustToken(t, signer, `{"a":"1"}`)

	got, err := CheckWithArchive(CheckRequestArchive{
		Token:          BlobRef{Bytes: tt.data},
		Offset:         tt.offset,
		Key:            BlobRef{Bytes: tt.key.Encode()},
		SignatureLimbs: tt.sig,
		Policy:         BlobRef{Bytes: []byte(hydratePolicy)},
	})
	if err != nil {
		t.Fatalf("CheckWithArchive failed: %v", err)
	}
	if got.Report.State != StateVerified {
		t.Fatalf("State = %s, want %s", got.Report.State, StateVerified)
	}
	if got.TokenCID == "" || got.KeyCID == "" || got.PolicyCID == "" {
		t.Fatalf("input CIDs not computed: %+v", got)
	}
}

func TestCheckWithArchive_PolicyOptional(t *testing.T) {
	signer := mustSignerKey(t, "signer_a.pem")
	tt := mustToken(t, signer, `{"a":"1"}`)

	got, err := CheckWithArchive(CheckRequestArchive{
		Token:          BlobRef{Bytes: tt.data},
		Offset:         tt.offset,
		Key:            BlobRef{Bytes: tt.key.Encode()},
		SignatureLimbs: tt.sig,
	})
	if err != nil {
		t.Fatalf("CheckWithArchive failed: %v", err)
	}
	if got.PolicyCID != "" {
		t.Fatalf("PolicyCID = %q, want empty without a policy", got.PolicyCID)
	}
	if len(got.Report.Claims) != 0 {
		t.Fatalf("got %d claim evidence entries, want none", len(got.Report.Claims))
	}
}

func TestCheckWithArchive_MissingArchive(t *testing.T) {
	signer := mustSignerKey(t, "signer_a.pem")
	tt := mustToken(t, signer, `{"a":"1"}`)

	tokenCID, err := fingerprint.NewCID(tt.data)
	if err != nil {
		t.Fatalf("NewCID failed: %v", err)
	}
	_, err = CheckWithArchive(CheckRequestArchive{
		Token:          BlobRef{CID: tokenCID},
		Offset:         tt.offset,
		Key:            BlobRef{Bytes: tt.key.Encode()},
		SignatureLimbs: tt.sig,
	})
	if !errors.Is(err, ErrMissingArchive) {
		t.Fatalf("err = %v, want ErrMissingArchive", err)
	}
}

func TestCheckWithArchive_RejectsAmbiguousArchives(t *testing.T) {
	_, err := CheckWithArchive(CheckRequestArchive{
		Archive:  newMemStore(),
		Archives: []storage.Store{newMemStore()},
	})
	if err == nil {
		t.Fatal("request with both Archive and Archives accepted")
	}
}

func TestCheckWithArchive_NotFound(t *testing.T) {
	signer := mustSignerKey(t, "signer_a.pem")
	tt := mustToken(t, signer, `{"a":"1"}`)

	tokenCID, err := fingerprint.NewCID(tt.data)
	if err != nil {
		t.Fatalf("NewCID failed: %v", err)
	}
	_, err = CheckWithArchive(CheckRequestArchive{
		Token:          BlobRef{CID: tokenCID},
		Offset:         tt.offset,
		Key:            BlobRef{Bytes: tt.key.Encode()},
		SignatureLimbs: tt.sig,
		Archive:        newMemStore(),
	})
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestCheckWithArchive_OrderedFallback(t *testing.T) {
	signer := mustSignerKey(t, "signer_a.pem")
	tt := mustToken(t, signer, `{"a":"1"}`)

	second := newMemStore()
	tokenCID, err := second.Put(tt.data)
	if err != nil {
		t.Fatalf("Put token failed: %v", err)
	}

	got, err := CheckWithArchive(CheckRequestArchive{
		Token:          BlobRef{CID: tokenCID},
		Offset:         tt.offset,
		Key:            BlobRef{Bytes: tt.key.Encode()},
		SignatureLimbs: tt.sig,
		Archives:       []storage.Store{newMemStore(), second},
	})
	if err != nil {
		t.Fatalf("CheckWithArchive failed: %v", err)
	}
	if got.Report.State != StateVerified {
		t.Fatalf("State = %s, want %s", got.Report.State, StateVerified)
	}
}
