package storage

import (
	"testing"

	"github.com/ipfs/go-cid"

	"xdao.co/vcjwt/fingerprint"
)

type memStore struct {
	objects map[string][]byte
}

func newMemStore() *memStore { return &memStore{objects: map[string][]byte{}} }

func (m *memStore) Put(b []byte) (cid.Cid, error) {
	id, err := fingerprint.NewCID(b)
	if err != nil {
		return cid.Undef, err
	}
	m.objects[id.String()] = append([]byte(nil), b...)
	return id, nil
}

func (m *memStore) Get(id cid.Cid) ([]byte, error) {
	b, ok := m.objects[id.String()]
	if !ok {
		return nil, ErrNotFound
	}
	return b, nil
}

func (m *memStore) Has(id cid.Cid) bool {
	_, ok := m.objects[id.String()]
	return ok
}

// divergentStore returns a fixed CID regardless of input, simulating a
// backend that violates the CID contract.
type divergentStore struct {
	id cid.Cid
}

func (d divergentStore) Put([]byte) (cid.Cid, error) { return d.id, nil }
func (d divergentStore) Get(cid.Cid) ([]byte, error) { return nil, ErrNotFound }
func (d divergentStore) Has(cid.Cid) bool            { return false }

func TestReplicatingStore_PutAll(t *testing.T) {
	a := newMemStore()
	b := newMemStore()
	rs := ReplicatingStore{Backends: []NamedStore{{Name: "a", Store: a}, {Name: "b", Store: b}}}

	data := []byte("replicated")
	id, perBackend, err := rs.PutAll(data)
	if err != nil {
		t.Fatalf("PutAll failed: %v", err)
	}
	if len(perBackend) != 2 {
		t.Fatalf("expected 2 backend CIDs, got %d", len(perBackend))
	}
	for name, got := range perBackend {
		if got != id {
			t.Fatalf("backend %q returned %s want %s", name, got, id)
		}
	}
	if !a.Has(id) || !b.Has(id) {
		t.Fatalf("expected object in both backends")
	}
}

func TestReplicatingStore_PutAllRejectsDivergentBackend(t *testing.T) {
	wrong, err := fingerprint.NewCID([]byte("some other object"))
	if err != nil {
		t.Fatalf("NewCID failed: %v", err)
	}

	rs := ReplicatingStore{Backends: []NamedStore{
		{Name: "good", Store: newMemStore()},
		{Name: "bad", Store: divergentStore{id: wrong}},
	}}
	if _, _, err := rs.PutAll([]byte("replicated")); err != ErrCIDMismatch {
		t.Fatalf("expected ErrCIDMismatch, got %v", err)
	}
}

func TestReplicatingStore_GetFallsBack(t *testing.T) {
	a := newMemStore()
	b := newMemStore()
	data := []byte("only in b")
	id, err := b.Put(data)
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	rs := ReplicatingStore{Backends: []NamedStore{{Name: "a", Store: a}, {Name: "b", Store: b}}}
	got, err := rs.Get(id)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got) != string(data) {
		t.Fatalf("Get returned wrong bytes: got %q want %q", got, data)
	}
}
