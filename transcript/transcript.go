// Package transcript implements the Verification Transcript (VCT) evidence format.
package transcript

import (
	"crypto/ed25519"
	"errors"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cloudflare/circl/sign/dilithium/mode3"

	"xdao.co/vcjwt/evaluate"
	"xdao.co/vcjwt/fingerprint"
	"xdao.co/vcjwt/identity"
)

const (
	Preamble  = "-----BEGIN XDAO VERIFICATION TRANSCRIPT-----"
	Postamble = "-----END XDAO VERIFICATION TRANSCRIPT-----"
)

// PolicyCID returns a deterministic local identifier for a claim policy document.
// This is an IPFS-compatible CIDv1 (raw + sha2-256) derived from canonical bytes.
func PolicyCID(policyBytes []byte) string {
	return fingerprint.New(policyBytes)
}

type RenderOptions struct {
	VerifierID string
	VerifiedAt time.Time // informational only; zero means omit

	// Optional transcript supersession.
	// If set, the transcript asserts it supersedes a prior transcript identified by CID.
	SupersedesVCTCID string

	// Optional transcript signing. If a private key is set, the output will
	// include a CRYPTO section populated and Signature computed over the
	// transcript bytes excluding the Signature: line.
	VerifierKey string
	PrivateKey  ed25519.PrivateKey

	// DilithiumKey selects post-quantum signing instead of ed25519.
	// VerifierKey must then carry the matching "dilithium3:" key string.
	DilithiumKey *mode3.PrivateKey
}

// Render produces a canonical transcript binding a check report to its inputs.
// Sections are always present and ordering is deterministic.
func Render(rep *evaluate.Report, tokenCID, keyCID, policyCID string, opts RenderOptions) []byte {
	verifierID := opts.VerifierID
	if verifierID == "" {
		verifierID = "xdao-vcjwt-reference"
	}

	var sb strings.Builder
	sb.WriteString(Preamble)
	sb.WriteString("\n")

	// META
	sb.WriteString("META\n")
	metaLines := []string{
		"Spec: xdao-vct-1",
		"Verifier-ID: " + verifierID,
		"Version: 1",
	}
	if !opts.VerifiedAt.IsZero() {
		metaLines = append(metaLines, "Verified-At: "+opts.VerifiedAt.UTC().Format(time.RFC3339))
	}
	if opts.SupersedesVCTCID != "" {
		metaLines = append(metaLines, "Supersedes-VCT-CID: "+opts.SupersedesVCTCID)
	}
	sort.Strings(metaLines)
	for _, l := range metaLines {
		sb.WriteString(l)
		sb.WriteString("\n")
	}
	sb.WriteString("\n")

	// INPUTS
	sb.WriteString("INPUTS\n")
	sb.WriteString("Token-CID: ")
	sb.WriteString(tokenCID)
	sb.WriteString("\n")
	sb.WriteString("Key-CID: ")
	sb.WriteString(keyCID)
	sb.WriteString("\n")
	if policyCID != "" {
		sb.WriteString("Policy-CID: ")
		sb.WriteString(policyCID)
		sb.WriteString("\n")
	}
	mode := rep.HashMode
	if mode == "" {
		mode = evaluate.HashDirect
	}
	sb.WriteString("Hash-Mode: ")
	sb.WriteString(string(mode))
	sb.WriteString("\n")
	sb.WriteString("\n")

	// RESULT
	sb.WriteString("RESULT\n")
	resultLines := []string{
		"Signature-Check: " + signatureCheckValue(rep),
		"State: " + string(rep.State),
	}
	sort.Strings(resultLines)
	for _, l := range resultLines {
		sb.WriteString(l)
		sb.WriteString("\n")
	}
	sb.WriteString("\n")

	// CLAIMS (evaluation order is the canonical order)
	sb.WriteString("CLAIMS\n")
	for i, c := range rep.Claims {
		sb.WriteString("Claim-")
		sb.WriteString(claimNumber(i + 1))
		sb.WriteString(": key=")
		sb.WriteString(strconv.Quote(c.Key))
		sb.WriteString(" value=")
		sb.WriteString(strconv.Quote(c.Value))
		sb.WriteString(" range=")
		sb.WriteString(strconv.Itoa(c.Range))
		sb.WriteString(" result=")
		sb.WriteString(claimResultValue(c))
		sb.WriteString("\n")
	}
	sb.WriteString("\n")

	// CRYPTO (empty unless a verifier key is supplied)
	sb.WriteString("CRYPTO\n")
	cryptoLines := []string{}
	if opts.VerifierKey != "" {
		sigAlg := "ed25519"
		if opts.DilithiumKey != nil {
			sigAlg = "dilithium3"
		}
		cryptoLines = append(cryptoLines,
			"Hash-Alg: sha256",
			"Signature-Alg: "+sigAlg,
			"Signature: 0",
			"Verifier-Key: "+opts.VerifierKey,
		)
	}
	sort.Strings(cryptoLines)
	for _, l := range cryptoLines {
		sb.WriteString(l)
		sb.WriteString("\n")
	}
	sb.WriteString("\n")

	sb.WriteString(Postamble)
	sb.WriteString("\n")
	out := []byte(sb.String())

	if opts.VerifierKey != "" && (len(opts.PrivateKey) > 0 || opts.DilithiumKey != nil) {
		sig, err := signTranscript(out, opts)
		if err == nil {
			out = []byte(strings.Replace(string(out), "\nSignature: 0\n", "\nSignature: "+sig+"\n", 1))
		}
	}

	return out
}

func claimNumber(n int) string {
	s := strconv.Itoa(n)
	for len(s) < 3 {
		s = "0" + s
	}
	return s
}

func signatureCheckValue(rep *evaluate.Report) string {
	if rep.SignatureOK {
		return "ok"
	}
	if rep.SignatureRuleID != "" {
		return rep.SignatureRuleID
	}
	return "failed"
}

func claimResultValue(c evaluate.ClaimEvidence) string {
	switch {
	case c.OK:
		return "ok"
	case c.Skipped:
		return "skipped"
	case c.RuleID != "":
		return c.RuleID
	default:
		return "failed"
	}
}

func signTranscript(vctBytes []byte, opts RenderOptions) (string, error) {
	scope, err := transcriptSignatureScope(vctBytes)
	if err != nil {
		return "", err
	}
	if opts.DilithiumKey != nil {
		return identity.SignDilithium3(scope, "sha256", opts.DilithiumKey)
	}
	return identity.SignEd25519SHA256(scope, opts.PrivateKey), nil
}

func transcriptSignatureScope(vctBytes []byte) ([]byte, error) {
	lines := strings.Split(string(vctBytes), "\n")
	var out []string
	removed := false
	for _, l := range lines {
		if strings.HasPrefix(l, "Signature: ") {
			if removed {
				return nil, errors.New("multiple Signature lines")
			}
			removed = true
			continue
		}
		out = append(out, l)
	}
	if !removed {
		return nil, errors.New("missing Signature line")
	}
	return []byte(strings.Join(out, "\n")), nil
}
