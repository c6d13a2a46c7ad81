package vcjwt

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"xdao.co/vcjwt/limb"
)

// RFC 8017 section 9.2, note 1: DigestInfo for SHA-256 is a fixed 19-byte
// prefix followed by the digest.
const sha256DigestInfoPrefix = "3031300d060960864801650304020105000420"

func TestDigestInfo_MatchesFixedPrefix(t *testing.T) {
	digest := sha256.Sum256([]byte("input"))
	di, err := digestInfo(digest[:])
	if err != nil {
		t.Fatalf("digestInfo: %v", err)
	}
	want := sha256DigestInfoPrefix + hex.EncodeToString(digest[:])
	if got := hex.EncodeToString(di); got != want {
		t.Fatalf("DigestInfo mismatch:\n got %s\nwant %s", got, want)
	}
}

func TestEncodedMessage_Layout(t *testing.T) {
	digest := sha256.Sum256([]byte("input"))
	em, err := encodedMessage(digest[:])
	if err != nil {
		t.Fatalf("encodedMessage: %v", err)
	}
	if len(em) != modulusBytes {
		t.Fatalf("length = %d, want %d", len(em), modulusBytes)
	}
	if em[0] != 0x00 || em[1] != 0x01 {
		t.Fatalf("bad leading bytes % x", em[:2])
	}
	// 256 - 3 - 51 = 202 padding bytes.
	for i := 2; i < 204; i++ {
		if em[i] != 0xff {
			t.Fatalf("padding byte %d = %#x, want 0xff", i, em[i])
		}
	}
	if em[204] != 0x00 {
		t.Fatalf("separator byte = %#x, want 0x00", em[204])
	}
	if !bytes.Equal(em[len(em)-32:], digest[:]) {
		t.Fatalf("digest tail mismatch")
	}
}

func TestVerifyRSAPKCS1v15_AgainstStdlibSignature(t *testing.T) {
	tt := mustToken(t, "signer_a.pem", `{"sub":"alice"}`)
	key := mustSignerKey(t, "signer_a.pem")
	digest := sha256.Sum256(tt.data)

	s, err := limb.Join(tt.sig)
	if err != nil {
		t.Fatalf("join signature limbs: %v", err)
	}
	if err := verifyRSAPKCS1v15(key.N, s, digest[:]); err != nil {
		t.Fatalf("verifyRSAPKCS1v15 rejected a stdlib signature: %v", err)
	}

	wrong := sha256.Sum256([]byte("other message"))
	if err := verifyRSAPKCS1v15(key.N, s, wrong[:]); RuleID(err) != "VCJWT-SIG-401" {
		t.Fatalf("want VCJWT-SIG-401, got %v", err)
	}
}
