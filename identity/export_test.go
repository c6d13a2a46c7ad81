package identity

import (
	"io"
	"strings"
	"testing"
)

func TestDilithiumVerifierKey_RoundTrip(t *testing.T) {
	pk, sk, err := GenerateDilithium3Keypair(io.Reader(&deterministicReader{b: 0x30}))
	if err != nil {
		t.Fatalf("GenerateDilithium3Keypair: %v", err)
	}

	vk, err := DilithiumVerifierKey(pk)
	if err != nil {
		t.Fatalf("DilithiumVerifierKey: %v", err)
	}
	if !strings.HasPrefix(vk, "dilithium3:") {
		t.Fatalf("expected dilithium3 prefix, got %q", vk)
	}

	parsed, err := ParseDilithiumVerifierKey(vk)
	if err != nil {
		t.Fatalf("ParseDilithiumVerifierKey: %v", err)
	}

	sigB64, err := SignDilithium3([]byte("roundtrip"), "sha256", sk)
	if err != nil {
		t.Fatalf("SignDilithium3: %v", err)
	}
	ok, err := VerifyDilithium3([]byte("roundtrip"), "sha256", parsed, sigB64)
	if err != nil {
		t.Fatalf("VerifyDilithium3: %v", err)
	}
	if !ok {
		t.Fatalf("expected re-parsed key to verify")
	}
}

func TestParseDilithiumVerifierKey_RejectsWrongPrefix(t *testing.T) {
	if _, err := ParseDilithiumVerifierKey("ed25519:AAAA"); err == nil {
		t.Fatalf("expected error for wrong prefix")
	}
}
