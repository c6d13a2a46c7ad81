package transcript

import (
	"testing"

	"xdao.co/vcjwt/fingerprint"
)

func TestCID_MatchesFingerprint(t *testing.T) {
	b := Render(verifiedReport(), "bafy-token-1", "bafy-key-1", "bafy-policy-1", RenderOptions{})
	got, err := CID(b)
	if err != nil {
		t.Fatalf("CID failed: %v", err)
	}
	want := fingerprint.New(b)
	if got != want {
		t.Fatalf("CID mismatch: got %q want %q", got, want)
	}
}

func TestRenderWithCID_Stable(t *testing.T) {
	b1, cid1, err := RenderWithCID(verifiedReport(), "bafy-token-1", "bafy-key-1", "bafy-policy-1", RenderOptions{})
	if err != nil {
		t.Fatalf("RenderWithCID failed: %v", err)
	}
	b2, cid2, err := RenderWithCID(verifiedReport(), "bafy-token-1", "bafy-key-1", "bafy-policy-1", RenderOptions{})
	if err != nil {
		t.Fatalf("RenderWithCID failed: %v", err)
	}
	if string(b1) != string(b2) {
		t.Fatalf("expected identical VCT bytes")
	}
	if cid1 != cid2 {
		t.Fatalf("expected identical CIDs")
	}
}

func TestRenderSignedWithCID_Verifies(t *testing.T) {
	pub, priv := mustKeypair(t, 0x55)
	vk := verifierKeyString(pub)

	b, cid1, err := RenderSignedWithCID(verifiedReport(), "bafy-token-1", "bafy-key-1", "bafy-policy-1", RenderOptions{
		VerifierKey: vk,
		PrivateKey:  priv,
	})
	if err != nil {
		t.Fatalf("RenderSignedWithCID failed: %v", err)
	}
	ok, err := VerifySignature(b)
	if err != nil {
		t.Fatalf("VerifySignature failed: %v", err)
	}
	if !ok {
		t.Fatalf("expected signed VCT")
	}

	_, cid2, err := RenderSignedWithCID(verifiedReport(), "bafy-token-1", "bafy-key-1", "bafy-policy-1", RenderOptions{
		VerifierKey: vk,
		PrivateKey:  priv,
	})
	if err != nil {
		t.Fatalf("RenderSignedWithCID failed: %v", err)
	}
	if cid1 != cid2 {
		t.Fatalf("expected stable CID for signed VCT")
	}
}

func TestRenderSigned_RequiresSigningKey(t *testing.T) {
	if _, err := RenderSigned(verifiedReport(), "bafy-token-1", "bafy-key-1", "", RenderOptions{}); err == nil {
		t.Fatalf("expected error without VerifierKey")
	}
	pub, _ := mustKeypair(t, 0x21)
	if _, err := RenderSigned(verifiedReport(), "bafy-token-1", "bafy-key-1", "", RenderOptions{VerifierKey: verifierKeyString(pub)}); err == nil {
		t.Fatalf("expected error without private key")
	}
}
