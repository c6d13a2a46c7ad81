// Package sha2state captures and resumes SHA-256 computations at block
// boundaries.
//
// A Checkpoint carries the eight 32-bit working registers of the SHA-256
// compression function, H0 at index 0, together with the number of message
// bytes already consumed. Only block-aligned checkpoints are representable:
// Consumed must be a multiple of the 64-byte block size, because the
// registers alone cannot describe a partially filled block.
package sha2state

import (
	"crypto/sha256"
	"encoding"
	"encoding/binary"
	"errors"
	"fmt"
	"hash"
)

// BlockSize is the SHA-256 block size in bytes.
const BlockSize = 64

// Marshaled stdlib digest layout: magic, registers, block buffer, length.
const (
	stateMagic = "sha\x03"
	stateSize  = len(stateMagic) + 8*4 + BlockSize + 8
)

// Checkpoint is a block-aligned snapshot of a SHA-256 computation.
type Checkpoint struct {
	H        [8]uint32
	Consumed uint64
}

// Initial returns the checkpoint of a fresh SHA-256 computation: the
// standard initialization vector with zero bytes consumed.
func Initial() Checkpoint {
	return Checkpoint{H: [8]uint32{
		0x6a09e667, 0xbb67ae85, 0x3c6ef372, 0xa54ff53a,
		0x510e527f, 0x9b05688c, 0x1f83d9ab, 0x5be0cd19,
	}}
}

// Resume returns a hash.Hash that continues the computation described by cp.
// Writing the remaining message bytes and calling Sum yields the digest of
// the full message.
func Resume(cp Checkpoint) (hash.Hash, error) {
	if cp.Consumed%BlockSize != 0 {
		return nil, fmt.Errorf("sha2state: consumed count %d is not block aligned", cp.Consumed)
	}
	blob := make([]byte, 0, stateSize)
	blob = append(blob, stateMagic...)
	for _, w := range cp.H {
		blob = binary.BigEndian.AppendUint32(blob, w)
	}
	blob = append(blob, make([]byte, BlockSize)...)
	blob = binary.BigEndian.AppendUint64(blob, cp.Consumed)

	h := sha256.New()
	u, ok := h.(encoding.BinaryUnmarshaler)
	if !ok {
		return nil, errors.New("sha2state: sha256 digest does not support state restore")
	}
	if err := u.UnmarshalBinary(blob); err != nil {
		return nil, fmt.Errorf("sha2state: restore state: %w", err)
	}
	return h, nil
}

// Capture snapshots h, which must be a SHA-256 computation positioned at a
// block boundary. The hash remains usable afterwards.
func Capture(h hash.Hash) (Checkpoint, error) {
	m, ok := h.(encoding.BinaryMarshaler)
	if !ok {
		return Checkpoint{}, errors.New("sha2state: hash does not expose its state")
	}
	blob, err := m.MarshalBinary()
	if err != nil {
		return Checkpoint{}, fmt.Errorf("sha2state: marshal state: %w", err)
	}
	if len(blob) != stateSize || string(blob[:len(stateMagic)]) != stateMagic {
		return Checkpoint{}, errors.New("sha2state: not a SHA-256 state")
	}
	var cp Checkpoint
	for i := range cp.H {
		cp.H[i] = binary.BigEndian.Uint32(blob[len(stateMagic)+4*i:])
	}
	cp.Consumed = binary.BigEndian.Uint64(blob[stateSize-8:])
	if cp.Consumed%BlockSize != 0 {
		return Checkpoint{}, fmt.Errorf("sha2state: %d consumed bytes is not a block boundary", cp.Consumed)
	}
	return cp, nil
}
