package sha2state

import (
	"bytes"
	"crypto/sha256"
	"testing"
)

func mustCapture(t *testing.T, written []byte) Checkpoint {
	t.Helper()
	h := sha256.New()
	h.Write(written)
	cp, err := Capture(h)
	if err != nil {
		t.Fatalf("Capture after %d bytes: %v", len(written), err)
	}
	return cp
}

func TestInitialMatchesFreshHash(t *testing.T) {
	msg := []byte("resumable hashing starts from the standard IV")
	h, err := Resume(Initial())
	if err != nil {
		t.Fatalf("Resume(Initial): %v", err)
	}
	h.Write(msg)
	want := sha256.Sum256(msg)
	if !bytes.Equal(h.Sum(nil), want[:]) {
		t.Fatal("digest via Resume(Initial) differs from direct digest")
	}
}

func TestCaptureResumeRoundTrip(t *testing.T) {
	msg := make([]byte, 300)
	for i := range msg {
		msg[i] = byte(i * 7)
	}
	want := sha256.Sum256(msg)

	for _, cut := range []int{0, 64, 128, 256} {
		cp := mustCapture(t, msg[:cut])
		if cp.Consumed != uint64(cut) {
			t.Fatalf("cut %d: Consumed = %d", cut, cp.Consumed)
		}
		h, err := Resume(cp)
		if err != nil {
			t.Fatalf("cut %d: Resume: %v", cut, err)
		}
		h.Write(msg[cut:])
		if !bytes.Equal(h.Sum(nil), want[:]) {
			t.Fatalf("cut %d: resumed digest differs from direct digest", cut)
		}
	}
}

func TestCaptureAtZeroEqualsInitial(t *testing.T) {
	cp := mustCapture(t, nil)
	if cp != Initial() {
		t.Fatalf("fresh capture %+v differs from Initial %+v", cp, Initial())
	}
}

func TestCaptureRejectsPartialBlock(t *testing.T) {
	h := sha256.New()
	h.Write(make([]byte, 65))
	if _, err := Capture(h); err == nil {
		t.Fatal("Capture accepted a partially filled block")
	}
}

func TestResumeRejectsMisalignedCheckpoint(t *testing.T) {
	cp := Initial()
	cp.Consumed = 63
	if _, err := Resume(cp); err == nil {
		t.Fatal("Resume accepted a misaligned checkpoint")
	}
}

func TestCaptureKeepsHashUsable(t *testing.T) {
	msg := make([]byte, 192)
	for i := range msg {
		msg[i] = byte(i)
	}
	h := sha256.New()
	h.Write(msg[:64])
	if _, err := Capture(h); err != nil {
		t.Fatalf("Capture: %v", err)
	}
	h.Write(msg[64:])
	want := sha256.Sum256(msg)
	if !bytes.Equal(h.Sum(nil), want[:]) {
		t.Fatal("hash state disturbed by Capture")
	}
}
