package storage

import "github.com/ipfs/go-cid"

// ReadOnly wraps a store and rejects writes with ErrReadOnly.
//
// Archive daemons that serve published objects without accepting uploads
// expose a ReadOnly view of their backing store.
type ReadOnly struct {
	Store Store
}

var _ Store = ReadOnly{}

func (r ReadOnly) Put([]byte) (cid.Cid, error) {
	return cid.Undef, ErrReadOnly
}

func (r ReadOnly) Get(id cid.Cid) ([]byte, error) {
	return r.Store.Get(id)
}

func (r ReadOnly) Has(id cid.Cid) bool {
	return r.Store.Has(id)
}
