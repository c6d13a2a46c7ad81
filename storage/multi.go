package storage

import (
	"errors"

	"github.com/ipfs/go-cid"
)

// MultiStore provides deterministic, ordered fallback across multiple archive backends.
//
// Retrieval order is the slice order in Adapters; callers MUST supply a fixed order.
// This avoids map-iteration nondeterminism and makes the retrieval strategy explicit.
//
// Put is defined to write only to the first adapter.
type MultiStore struct {
	Adapters []Store
}

func (m MultiStore) Put(bytes []byte) (cid.Cid, error) {
	if len(m.Adapters) == 0 {
		return cid.Undef, errors.New("storage: MultiStore has no adapters")
	}
	return m.Adapters[0].Put(bytes)
}

func (m MultiStore) Get(id cid.Cid) ([]byte, error) {
	for _, st := range m.Adapters {
		b, err := st.Get(id)
		if err == nil {
			return b, nil
		}
		if !IsNotFound(err) {
			return nil, err
		}
	}
	return nil, ErrNotFound
}

func (m MultiStore) Has(id cid.Cid) bool {
	for _, st := range m.Adapters {
		if st.Has(id) {
			return true
		}
	}
	return false
}
