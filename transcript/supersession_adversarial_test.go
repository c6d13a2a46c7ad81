package transcript

import (
	"strings"
	"testing"
)

func TestValidateSupersession_RejectsNonCanonicalInputs(t *testing.T) {
	oldBytes := Render(rejectedReport(), "bafy-token-1", "bafy-key-1", "bafy-policy-1", RenderOptions{VerifierID: "xdao-verifier-reference"})
	oldCID, err := CID(oldBytes)
	if err != nil {
		t.Fatalf("CID(old): %v", err)
	}

	newBytes := Render(verifiedReport(), "bafy-token-1", "bafy-key-1", "bafy-policy-1", RenderOptions{VerifierID: "xdao-verifier-reference", SupersedesVCTCID: oldCID})

	// Introduce CRLF, which is non-canonical.
	newCRLF := []byte(strings.ReplaceAll(string(newBytes), "\n", "\r\n"))
	if err := ValidateSupersession(newCRLF, oldBytes); err == nil {
		t.Fatalf("expected non-canonical new VCT rejection")
	}

	oldCRLF := []byte(strings.ReplaceAll(string(oldBytes), "\n", "\r\n"))
	if err := ValidateSupersession(newBytes, oldCRLF); err == nil {
		t.Fatalf("expected non-canonical old VCT rejection")
	}
}
