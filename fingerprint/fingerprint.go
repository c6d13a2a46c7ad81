// Package fingerprint computes content identifiers for tokens, key material
// and verification transcripts.
//
// A fingerprint is the string form of a CIDv1 using the "raw" multicodec and
// a sha2-256 multihash. Identical bytes always yield the identical
// fingerprint, which makes fingerprints usable as storage addresses and as
// stable references between transcripts.
package fingerprint

import (
	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

// New returns the fingerprint of data.
func New(data []byte) string {
	sum, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		// multihash.Sum only errors for invalid inputs; with SHA2_256 and -1
		// length, this should be unreachable.
		return ""
	}
	return cid.NewCidV1(cid.Raw, sum).String()
}

// NewCID returns the fingerprint of data as a parsed CID.
func NewCID(data []byte) (cid.Cid, error) {
	sum, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		return cid.Undef, err
	}
	return cid.NewCidV1(cid.Raw, sum), nil
}

// Matches reports whether fp is the fingerprint of data. Unparseable
// fingerprints never match.
func Matches(fp string, data []byte) bool {
	want, err := cid.Parse(fp)
	if err != nil {
		return false
	}
	got, err := NewCID(data)
	if err != nil {
		return false
	}
	return got.Equals(want)
}
