package vcjwt

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"xdao.co/vcjwt/limb"
)

type conformanceVector struct {
	Description    string   `json:"description"`
	Token          string   `json:"token"`
	PayloadOffset  int      `json:"payload_offset"`
	ModulusLimbs   []string `json:"modulus_limbs"`
	RedcLimbs      []string `json:"redc_limbs"`
	SignatureLimbs []string `json:"signature_limbs"`
	DigestHex      string   `json:"digest_hex"`
	Claims         []struct {
		Key    string `json:"key"`
		Value  string `json:"value"`
		Range  int    `json:"range"`
		RuleID string `json:"rule_id"`
	} `json:"claims"`
	Partial struct {
		Split      int       `json:"split"`
		State      [8]uint32 `json:"state"`
		FullLength uint64    `json:"full_length"`
	} `json:"partial"`
}

func loadVector(t *testing.T, name string) *conformanceVector {
	t.Helper()
	path := filepath.Join("..", "testdata", "conformance", "vcjwt", name)
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read vector: %v", err)
	}
	var v conformanceVector
	if err := json.Unmarshal(b, &v); err != nil {
		t.Fatalf("decode vector: %v", err)
	}
	return &v
}

// signingInput strips the signature segment from the compact token.
func (v *conformanceVector) signingInput(t *testing.T) []byte {
	t.Helper()
	i := strings.LastIndexByte(v.Token, '.')
	if i < 0 {
		t.Fatalf("vector token has no signature separator")
	}
	return []byte(v.Token[:i])
}

func mustVectorLimbs(t *testing.T, ss []string) []*big.Int {
	t.Helper()
	ls, err := limb.ParseHex(ss)
	if err != nil {
		t.Fatalf("ParseHex: %v", err)
	}
	return ls
}

func TestConformanceVectors_RS256_DirectAndClaims(t *testing.T) {
	vec := loadVector(t, "rs256_1.json")
	data := vec.signingInput(t)

	digest := sha256.Sum256(data)
	if hex.EncodeToString(digest[:]) != vec.DigestHex {
		t.Fatalf("digest mismatch against vector")
	}

	v, err := New(data, vec.PayloadOffset,
		mustVectorLimbs(t, vec.ModulusLimbs),
		mustVectorLimbs(t, vec.RedcLimbs),
		mustVectorLimbs(t, vec.SignatureLimbs))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	verified, err := v.Verify()
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}

	for _, c := range vec.Claims {
		err := verified.ValidateKeyValue([]byte(c.Key), []byte(c.Value), c.Range)
		if c.RuleID == "" {
			if err != nil {
				t.Fatalf("claim %s=%s: unexpected error: %v", c.Key, c.Value, err)
			}
			continue
		}
		if RuleID(err) != c.RuleID {
			t.Fatalf("claim %s=%s: want %s, got %v", c.Key, c.Value, c.RuleID, err)
		}
	}
}

func TestConformanceVectors_RS256_PartialHash(t *testing.T) {
	vec := loadVector(t, "rs256_1.json")
	data := vec.signingInput(t)
	split := vec.Partial.Split

	if vec.Partial.FullLength != uint64(len(data)) {
		t.Fatalf("vector full_length %d != data length %d", vec.Partial.FullLength, len(data))
	}
	v, err := NewWithPartialHash(data[split:], vec.Partial.State, vec.Partial.FullLength,
		vec.PayloadOffset-split,
		mustVectorLimbs(t, vec.ModulusLimbs),
		mustVectorLimbs(t, vec.RedcLimbs),
		mustVectorLimbs(t, vec.SignatureLimbs))
	if err != nil {
		t.Fatalf("NewWithPartialHash: %v", err)
	}
	verified, err := v.Verify()
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}

	// Claim outcomes are identical to direct mode: the window starts at
	// payload_offset-split and the available length is unchanged.
	for _, c := range vec.Claims {
		err := verified.ValidateKeyValue([]byte(c.Key), []byte(c.Value), c.Range)
		if c.RuleID == "" && err != nil {
			t.Fatalf("claim %s=%s: unexpected error: %v", c.Key, c.Value, err)
		}
		if c.RuleID != "" && RuleID(err) != c.RuleID {
			t.Fatalf("claim %s=%s: want %s, got %v", c.Key, c.Value, c.RuleID, err)
		}
	}
}

func TestConformanceVectors_RS256_TamperRejected(t *testing.T) {
	vec := loadVector(t, "rs256_1.json")
	data := vec.signingInput(t)
	data[0] ^= 0x01

	v, err := New(data, vec.PayloadOffset,
		mustVectorLimbs(t, vec.ModulusLimbs),
		mustVectorLimbs(t, vec.RedcLimbs),
		mustVectorLimbs(t, vec.SignatureLimbs))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := v.Verify(); RuleID(err) != "VCJWT-SIG-401" {
		t.Fatalf("want VCJWT-SIG-401, got %v", err)
	}
}
