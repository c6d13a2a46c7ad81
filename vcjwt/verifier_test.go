package vcjwt

import (
	"crypto"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"xdao.co/vcjwt/limb"
)

const testHeader = `{"alg":"RS256","typ":"JWT"}`

func mustSignerKey(t *testing.T, name string) *rsa.PrivateKey {
	t.Helper()
	b, err := os.ReadFile(filepath.Join("..", "testdata", "keys", name))
	if err != nil {
		t.Fatalf("read key %s: %v", name, err)
	}
	block, _ := pem.Decode(b)
	if block == nil {
		t.Fatalf("key %s: no PEM block", name)
	}
	switch block.Type {
	case "RSA PRIVATE KEY":
		k, err := x509.ParsePKCS1PrivateKey(block.Bytes)
		if err != nil {
			t.Fatalf("key %s: %v", name, err)
		}
		return k
	case "PRIVATE KEY":
		k, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			t.Fatalf("key %s: %v", name, err)
		}
		rk, ok := k.(*rsa.PrivateKey)
		if !ok {
			t.Fatalf("key %s: not an RSA key", name)
		}
		return rk
	}
	t.Fatalf("key %s: unsupported PEM type %q", name, block.Type)
	return nil
}

func redcFor(n *big.Int) *big.Int {
	r := new(big.Int).Lsh(big.NewInt(1), 2*modulusBits)
	return r.Quo(r, n)
}

func mustLimbs(t *testing.T, v *big.Int) []*big.Int {
	t.Helper()
	ls, err := limb.Split(v)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	return ls
}

// testToken is a signed JWS signing input plus its limb-form key material.
type testToken struct {
	data   []byte
	offset int
	mod    []*big.Int
	redc   []*big.Int
	sig    []*big.Int
}

func mustToken(t *testing.T, keyName, payload string) *testToken {
	t.Helper()
	key := mustSignerKey(t, keyName)
	enc := base64.RawURLEncoding
	h := enc.EncodeToString([]byte(testHeader))
	p := enc.EncodeToString([]byte(payload))
	data := []byte(h + "." + p)
	digest := sha256.Sum256(data)
	sig, err := rsa.SignPKCS1v15(nil, key, crypto.SHA256, digest[:])
	if err != nil {
		t.Fatalf("SignPKCS1v15: %v", err)
	}
	return &testToken{
		data:   data,
		offset: len(h) + 1,
		mod:    mustLimbs(t, key.N),
		redc:   mustLimbs(t, redcFor(key.N)),
		sig:    mustLimbs(t, new(big.Int).SetBytes(sig)),
	}
}

func (tt *testToken) mustVerifier(t *testing.T) *Verifier {
	t.Helper()
	v, err := New(tt.data, tt.offset, tt.mod, tt.redc, tt.sig)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return v
}

func (tt *testToken) mustVerified(t *testing.T) *Verified {
	t.Helper()
	got, err := tt.mustVerifier(t).Verify()
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	return got
}

func TestVerify_Direct(t *testing.T) {
	tt := mustToken(t, "signer_a.pem", `{"sub":"alice"}`)
	if tt.mustVerified(t) == nil {
		t.Fatal("Verify returned nil handle")
	}
}

func TestVerify_RepeatedCallsAgree(t *testing.T) {
	tt := mustToken(t, "signer_a.pem", `{"sub":"alice"}`)
	v := tt.mustVerifier(t)
	if _, err := v.Verify(); err != nil {
		t.Fatalf("first Verify: %v", err)
	}
	if _, err := v.Verify(); err != nil {
		t.Fatalf("second Verify: %v", err)
	}
}

func TestVerify_RejectsTamperedData(t *testing.T) {
	tt := mustToken(t, "signer_a.pem", `{"sub":"alice"}`)
	tampered := append([]byte(nil), tt.data...)
	tampered[len(tampered)-1] ^= 0x01
	v, err := New(tampered, tt.offset, tt.mod, tt.redc, tt.sig)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := v.Verify(); !IsKind(err, KindSignature) {
		t.Fatalf("want KindSignature, got %v", err)
	}
}

func TestVerify_RejectsTamperedSignature(t *testing.T) {
	tt := mustToken(t, "signer_a.pem", `{"sub":"alice"}`)
	s, err := limb.Join(tt.sig)
	if err != nil {
		t.Fatalf("join signature limbs: %v", err)
	}
	flipped := new(big.Int).Xor(s, big.NewInt(1))
	v, err := New(tt.data, tt.offset, tt.mod, tt.redc, mustLimbs(t, flipped))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := v.Verify(); !IsKind(err, KindSignature) {
		t.Fatalf("want KindSignature, got %v", err)
	}
}

func TestVerify_RejectsWrongKey(t *testing.T) {
	tt := mustToken(t, "signer_a.pem", `{"sub":"alice"}`)
	other := mustSignerKey(t, "signer_b.pem")
	v, err := New(tt.data, tt.offset, mustLimbs(t, other.N), mustLimbs(t, redcFor(other.N)), tt.sig)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = v.Verify()
	if !IsKind(err, KindSignature) {
		t.Fatalf("want KindSignature, got %v", err)
	}
	if RuleID(err) != "VCJWT-SIG-401" {
		t.Fatalf("want VCJWT-SIG-401, got %s", RuleID(err))
	}
}

func TestNew_CopiesCallerData(t *testing.T) {
	tt := mustToken(t, "signer_a.pem", `{"sub":"alice"}`)
	data := append([]byte(nil), tt.data...)
	v, err := New(data, tt.offset, tt.mod, tt.redc, tt.sig)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for i := range data {
		data[i] = 0
	}
	if _, err := v.Verify(); err != nil {
		t.Fatalf("Verify after caller mutation: %v", err)
	}
}

func TestNewWithLimits_CapacityBound(t *testing.T) {
	tt := mustToken(t, "signer_a.pem", `{"sub":"alice"}`)
	_, err := NewWithLimits(tt.data, tt.offset, tt.mod, tt.redc, tt.sig,
		Limits{MaxDataLength: len(tt.data) - 1})
	if !IsKind(err, KindCapacity) {
		t.Fatalf("want KindCapacity, got %v", err)
	}
	v, err := NewWithLimits(tt.data, tt.offset, tt.mod, tt.redc, tt.sig,
		Limits{MaxDataLength: len(tt.data)})
	if err != nil {
		t.Fatalf("New at exact capacity: %v", err)
	}
	if _, err := v.Verify(); err != nil {
		t.Fatalf("Verify: %v", err)
	}
}

func TestNew_OffsetBounds(t *testing.T) {
	tt := mustToken(t, "signer_a.pem", `{"sub":"alice"}`)
	for _, offset := range []int{-1, len(tt.data) + 1} {
		_, err := New(tt.data, offset, tt.mod, tt.redc, tt.sig)
		if !IsKind(err, KindRange) {
			t.Fatalf("offset %d: want KindRange, got %v", offset, err)
		}
	}
	// Both ends of the valid interval construct fine.
	for _, offset := range []int{0, len(tt.data)} {
		if _, err := New(tt.data, offset, tt.mod, tt.redc, tt.sig); err != nil {
			t.Fatalf("offset %d: %v", offset, err)
		}
	}
}
