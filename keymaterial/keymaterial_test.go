package keymaterial

import (
	"bytes"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"xdao.co/vcjwt/limb"
)

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

func mustKey(t *testing.T) *Key {
	t.Helper()
	k, err := FromPublicKey(&mustSignerKey(t, "signer_a.pem").PublicKey)
	if err != nil {
		t.Fatalf("FromPublicKey: %v", err)
	}
	return k
}

func TestFromPublicKey_LimbsJoinBack(t *testing.T) {
	priv := mustSignerKey(t, "signer_a.pem")
	k, err := FromPublicKey(&priv.PublicKey)
	if err != nil {
		t.Fatalf("FromPublicKey: %v", err)
	}

	n, err := limb.Join(k.ModulusLimbs())
	if err != nil {
		t.Fatalf("Join modulus limbs: %v", err)
	}
	if n.Cmp(priv.N) != 0 {
		t.Fatal("modulus limbs do not join back to N")
	}

	wantRedc := new(big.Int).Lsh(big.NewInt(1), 4096)
	wantRedc.Quo(wantRedc, priv.N)
	redc, err := limb.Join(k.RedcLimbs())
	if err != nil {
		t.Fatalf("Join redc limbs: %v", err)
	}
	if redc.Cmp(wantRedc) != 0 {
		t.Fatal("redc limbs do not join back to floor(2^4096/N)")
	}
}

func TestFromPublicKey_RejectsWrongExponent(t *testing.T) {
	priv := mustSignerKey(t, "signer_a.pem")
	bad := &rsa.PublicKey{N: priv.N, E: 3}
	if _, err := FromPublicKey(bad); err == nil {
		t.Fatal("accepted exponent 3")
	}
}

func TestNew_RejectsWrongModulusSize(t *testing.T) {
	if _, err := New(new(big.Int).Lsh(big.NewInt(1), 1000)); err == nil {
		t.Fatal("accepted 1001-bit modulus")
	}
	if _, err := New(nil); err == nil {
		t.Fatal("accepted nil modulus")
	}
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	k := mustKey(t)
	b := k.Encode()
	if len(b) == 0 || b[len(b)-1] != '\n' {
		t.Fatal("Encode must end with a newline")
	}
	if !bytes.Equal(b, k.Encode()) {
		t.Fatal("Encode is not deterministic")
	}
	back, err := Decode(b)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if back.N.Cmp(k.N) != 0 || back.Redc.Cmp(k.Redc) != 0 {
		t.Fatal("decoded key differs")
	}
}

func TestDecode_RejectsInconsistentRedc(t *testing.T) {
	k := mustKey(t)
	other, err := FromPublicKey(&mustSignerKey(t, "signer_b.pem").PublicKey)
	if err != nil {
		t.Fatalf("FromPublicKey: %v", err)
	}
	forged := &Key{N: k.N, Redc: other.Redc}
	if _, err := Decode(forged.Encode()); err == nil {
		t.Fatal("accepted limb file with mismatched reduction parameter")
	}
}

func TestFingerprint_StablePerModulus(t *testing.T) {
	k := mustKey(t)
	fp := k.Fingerprint()
	if fp == "" {
		t.Fatal("empty fingerprint")
	}
	if fp != mustKey(t).Fingerprint() {
		t.Fatal("fingerprint differs for same modulus")
	}
	other, err := FromPublicKey(&mustSignerKey(t, "signer_b.pem").PublicKey)
	if err != nil {
		t.Fatalf("FromPublicKey: %v", err)
	}
	if other.Fingerprint() == fp {
		t.Fatal("different moduli share a fingerprint")
	}
}

func TestSignatureLimbs(t *testing.T) {
	sig := make([]byte, 256)
	for i := range sig {
		sig[i] = byte(i)
	}
	ls, err := SignatureLimbs(sig)
	if err != nil {
		t.Fatalf("SignatureLimbs: %v", err)
	}
	got, err := limb.Join(ls)
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	if got.Cmp(new(big.Int).SetBytes(sig)) != 0 {
		t.Fatal("signature limbs do not join back")
	}
	if _, err := SignatureLimbs(sig[:255]); err == nil {
		t.Fatal("accepted short signature")
	}
}
