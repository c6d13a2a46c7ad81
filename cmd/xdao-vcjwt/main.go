package main

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"xdao.co/vcjwt/claimpolicy"
	"xdao.co/vcjwt/compliance"
	"xdao.co/vcjwt/evaluate"
	"xdao.co/vcjwt/fingerprint"
	"xdao.co/vcjwt/identity"
	"xdao.co/vcjwt/keymaterial"
	"xdao.co/vcjwt/sha2state"
	"xdao.co/vcjwt/transcript"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		printUsage(errOut)
		return 2
	}

	switch args[0] {
	case "check":
		return cmdCheck(args[1:], out, errOut)
	case "inspect":
		return cmdInspect(args[1:], out, errOut)
	case "vct":
		return cmdVCT(args[1:], out, errOut)
	case "doc-cid":
		return cmdDocCID(args[1:], out, errOut)
	case "ipfs":
		return cmdIPFS(args[1:], out, errOut)
	case "identity":
		return cmdIdentity(args[1:], out, errOut)
	case "key":
		return cmdKey(args[1:], out, errOut)
	case "help", "-h", "--help":
		printUsage(out)
		return 0
	default:
		fmt.Fprintf(errOut, "unknown command: %s\n\n", args[0])
		printUsage(errOut)
		return 2
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "xdao-vcjwt: minimum VCJWT/claim-policy/VCT CLI")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  xdao-vcjwt check --token <token.jwt> (--key <pem-or-limb-file> | --key-name <name>) [--sig-file <path>] [--policy <policy.txt> | --claim Key=Value ...] [--partial-split <n>] [--supersedes-vct <CID>] [--mode permissive|strict] [--signer <name> [--signer-role <role>] | --signer-seed-hex <64hex> | --signer-key-file <path>]")
	fmt.Fprintln(w, "  xdao-vcjwt inspect --token <token.jwt> [--range <n>]")
	fmt.Fprintln(w, "  xdao-vcjwt vct cid <file>")
	fmt.Fprintln(w, "  xdao-vcjwt vct validate-supersession --new <file> --old <file>")
	fmt.Fprintln(w, "  xdao-vcjwt vct verify-signature <file>")
	fmt.Fprintln(w, "  xdao-vcjwt doc-cid <file>")
	fmt.Fprintln(w, "  xdao-vcjwt ipfs put [--pin] [--init] <file>")
	fmt.Fprintln(w, "  xdao-vcjwt identity init --name <name> [--seed-hex <64hex>] [--force]")
	fmt.Fprintln(w, "  xdao-vcjwt identity derive --from <name> --role <role> [--force]")
	fmt.Fprintln(w, "  xdao-vcjwt identity list")
	fmt.Fprintln(w, "  xdao-vcjwt identity export --name <name> [--role <role>]")
	fmt.Fprintln(w, "  xdao-vcjwt key import (--pem <file> | --limbs <file>) --name <name> [--force]")
	fmt.Fprintln(w, "  xdao-vcjwt key convert --pem <file>")
	fmt.Fprintln(w, "  xdao-vcjwt key list")
	fmt.Fprintln(w, "  xdao-vcjwt key show --name <name>")
	fmt.Fprintln(w, "  xdao-vcjwt key fingerprint --name <name>")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Notes:")
	fmt.Fprintln(w, "  - check reads a compact JWS (header.payload.signature); --sig-file supplies a detached signature instead")
	fmt.Fprintln(w, "  - --seed-hex must be 32 bytes (64 hex chars) ed25519 seed")
	fmt.Fprintln(w, "  - KMS-lite stores signer seeds under ~/.xdao/vcjwt-ids/<name> (0600 seed files)")
	fmt.Fprintln(w, "  - key import stores canonical limb documents under ~/.xdao/vcjwt-keys")
	fmt.Fprintln(w, "  - ipfs put stores raw bytes in your local IPFS repo and prints the CID")
	fmt.Fprintln(w, "  - IPFS smoke test:")
	fmt.Fprintln(w, "      CID=$(xdao-vcjwt ipfs put --init <file>)")
	fmt.Fprintln(w, "      xdao-vcjwt doc-cid <file>  # should match CID")
	fmt.Fprintln(w, "      ipfs block get $CID > /tmp/out && cmp <file> /tmp/out")
	fmt.Fprintln(w, "  - --partial-split resumes SHA-256 from a midstate; the split must be a multiple of 64 and precede the payload")
	fmt.Fprintln(w, "  - check writes canonical VCT bytes to stdout and VCT-CID to stderr; exit 0 means State Verified")
	fmt.Fprintln(w, "  - inspect decodes the payload window a claim check would search and writes the bytes to stdout")
}

func cmdCheck(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var tokenPath string
	var keyPath string
	var keyName string
	var sigPath string
	var policyPath string
	var claimsKV stringList
	var partialSplit int
	var verifierID string
	var verifiedAt string
	var supersedesVCT string
	var mode string
	var signerSeedHex string
	var signerName string
	var signerRole string
	var signerKeyFile string
	var printVerifierKey bool

	fs.StringVar(&tokenPath, "token", "", "Token file (compact JWS, or signing input when --sig-file is set)")
	fs.StringVar(&keyPath, "key", "", "RSA public key file (PEM or canonical limb document)")
	fs.StringVar(&keyName, "key-name", "", "Use a stored key by name (from 'xdao-vcjwt key import')")
	fs.StringVar(&sigPath, "sig-file", "", "Detached signature file (256 raw bytes or base64url text)")
	fs.StringVar(&policyPath, "policy", "", "Claim policy file")
	fs.Var(&claimsKV, "claim", "Require claim key/value as Key=Value (repeatable; alternative to --policy)")
	fs.IntVar(&partialSplit, "partial-split", 0, "Hash the first n token bytes up front and verify from the midstate (0 = direct hashing)")
	fs.StringVar(&verifierID, "verifier-id", "xdao-vcjwt-reference", "Verifier-ID recorded in VCT")
	fs.StringVar(&verifiedAt, "verified-at", "", "Optional RFC3339 timestamp for VCT META Verified-At (omit for deterministic output)")
	fs.StringVar(&supersedesVCT, "supersedes-vct", "", "Optional CID of a prior VCT this VCT supersedes (emits META Supersedes-VCT-CID)")
	fs.StringVar(&mode, "mode", "permissive", "Compliance mode: permissive or strict")
	fs.StringVar(&signerSeedHex, "signer-seed-hex", "", "Sign the VCT with an ed25519 seed given as 64 hex chars")
	fs.StringVar(&signerName, "signer", "", "Sign the VCT with a stored identity (from 'xdao-vcjwt identity init')")
	fs.StringVar(&signerRole, "signer-role", "", "When using --signer, optionally use a derived role key")
	fs.StringVar(&signerKeyFile, "signer-key-file", "", "Sign the VCT with a seed file created by 'xdao-vcjwt identity init/derive'")
	fs.BoolVar(&printVerifierKey, "print-verifier-key", true, "Print Verifier-Key to stderr when signing")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if tokenPath == "" {
		fmt.Fprintln(errOut, "missing --token")
		return 2
	}
	if keyPath == "" && keyName == "" {
		fmt.Fprintln(errOut, "missing key material: use --key or --key-name")
		return 2
	}
	if keyPath != "" && keyName != "" {
		fmt.Fprintln(errOut, "conflicting key flags: --key cannot be combined with --key-name")
		return 2
	}
	if policyPath != "" && len(claimsKV) > 0 {
		fmt.Fprintln(errOut, "conflicting claim flags: --policy cannot be combined with --claim")
		return 2
	}
	if signerSeedHex != "" && (signerName != "" || signerKeyFile != "") {
		fmt.Fprintln(errOut, "conflicting signer flags: --signer-seed-hex cannot be combined with --signer or --signer-key-file")
		return 2
	}
	if signerName != "" && signerKeyFile != "" {
		fmt.Fprintln(errOut, "conflicting signer flags: --signer cannot be combined with --signer-key-file")
		return 2
	}
	if signerRole != "" && signerName == "" {
		fmt.Fprintln(errOut, "--signer-role requires --signer")
		return 2
	}

	var cmode compliance.ComplianceMode
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", "permissive":
		cmode = compliance.Permissive
	case "strict":
		cmode = compliance.Strict
	default:
		fmt.Fprintln(errOut, "invalid --mode (expected permissive or strict)")
		return 2
	}

	var verifiedAtTime time.Time
	if verifiedAt != "" {
		t, perr := time.Parse(time.RFC3339, verifiedAt)
		if perr != nil {
			fmt.Fprintf(errOut, "invalid --verified-at (expected RFC3339): %v\n", perr)
			return 2
		}
		verifiedAtTime = t
	}

	tokenBytes, err := os.ReadFile(tokenPath)
	if err != nil {
		fmt.Fprintf(errOut, "read token: %v\n", err)
		return 1
	}
	token := bytes.TrimSpace(tokenBytes)

	var signingInput []byte
	var sig []byte
	if sigPath != "" {
		signingInput = token
		raw, rerr := os.ReadFile(sigPath)
		if rerr != nil {
			fmt.Fprintf(errOut, "read --sig-file: %v\n", rerr)
			return 1
		}
		sig, rerr = parseDetachedSignature(raw)
		if rerr != nil {
			fmt.Fprintf(errOut, "invalid --sig-file: %v\n", rerr)
			return 1
		}
	} else {
		i := bytes.LastIndexByte(token, '.')
		if i < 0 {
			fmt.Fprintln(errOut, "invalid token: expected header.payload.signature (or use --sig-file)")
			return 1
		}
		signingInput = token[:i]
		sig, err = base64.RawURLEncoding.DecodeString(string(token[i+1:]))
		if err != nil {
			fmt.Fprintf(errOut, "decode signature segment: %v\n", err)
			return 1
		}
	}

	dot := bytes.IndexByte(signingInput, '.')
	if dot < 0 || bytes.IndexByte(signingInput[dot+1:], '.') >= 0 {
		fmt.Fprintln(errOut, "invalid token: expected base64url(header).base64url(payload)")
		return 1
	}
	offset := dot + 1

	sigLimbs, err := keymaterial.SignatureLimbs(sig)
	if err != nil {
		fmt.Fprintf(errOut, "invalid signature: %v\n", err)
		return 1
	}

	var key *keymaterial.Key
	if keyName != "" {
		st, serr := keymaterial.OpenStore("")
		if serr != nil {
			fmt.Fprintf(errOut, "keys: %v\n", serr)
			return 1
		}
		key, err = st.Load(keyName)
		if err != nil {
			fmt.Fprintf(errOut, "load key %q: %v\n", keyName, err)
			return 1
		}
	} else {
		key, err = loadKeyMaterial(keyPath)
		if err != nil {
			fmt.Fprintf(errOut, "invalid --key: %v\n", err)
			return 1
		}
	}

	in := evaluate.Input{
		Data:           signingInput,
		Offset:         offset,
		Key:            key,
		SignatureLimbs: sigLimbs,
	}
	if partialSplit > 0 {
		if partialSplit%sha2state.BlockSize != 0 {
			fmt.Fprintf(errOut, "invalid --partial-split: must be a multiple of %d\n", sha2state.BlockSize)
			return 2
		}
		if partialSplit > offset {
			fmt.Fprintln(errOut, "invalid --partial-split: the payload must start inside the unhashed suffix")
			return 2
		}
		h := sha256.New()
		h.Write(signingInput[:partialSplit])
		cp, cerr := sha2state.Capture(h)
		if cerr != nil {
			fmt.Fprintf(errOut, "capture hash state: %v\n", cerr)
			return 1
		}
		in.Partial = &evaluate.PartialState{Registers: cp.H, FullLength: uint64(len(signingInput))}
		in.Data = signingInput[partialSplit:]
		in.Offset = offset - partialSplit
	}

	var pol *claimpolicy.Policy
	var policyCID string
	if policyPath != "" {
		pb, rerr := os.ReadFile(policyPath)
		if rerr != nil {
			fmt.Fprintf(errOut, "read policy: %v\n", rerr)
			return 1
		}
		pol, err = claimpolicy.ParseWithMode(pb, cmode)
		if err != nil {
			fmt.Fprintf(errOut, "invalid policy: %v\n", err)
			return 1
		}
		policyCID = transcript.PolicyCID(pb)
	} else if len(claimsKV) > 0 {
		claims, cerr := parseClaimFlags(claimsKV)
		if cerr != nil {
			fmt.Fprintf(errOut, "invalid --claim: %v\n", cerr)
			return 2
		}
		pol = &claimpolicy.Policy{Claims: claims}
	}

	ropts := transcript.RenderOptions{
		VerifierID:       verifierID,
		VerifiedAt:       verifiedAtTime,
		SupersedesVCTCID: supersedesVCT,
	}
	signing := signerSeedHex != "" || signerName != "" || signerKeyFile != ""
	if signing {
		ks, kerr := identity.CreateKeyStore("")
		if kerr != nil {
			fmt.Fprintf(errOut, "identity: %v\n", kerr)
			return 1
		}
		seed, kerr := ks.LoadSeed(signerSeedHex, signerName, signerRole, signerKeyFile)
		if kerr != nil {
			fmt.Fprintf(errOut, "invalid signer: %v\n", kerr)
			return 2
		}
		ropts.PrivateKey = ed25519.NewKeyFromSeed(seed)
		ropts.VerifierKey = identity.VerifierKeyFromSeed(seed)
		if printVerifierKey {
			fmt.Fprintf(errOut, "Verifier-Key: %s\n", ropts.VerifierKey)
		}
	}

	rep, err := evaluate.CheckWithOptions(in, pol, evaluate.Options{Mode: cmode})
	if err != nil {
		fmt.Fprintf(errOut, "check: %v\n", err)
		return 1
	}

	tokenCID := fingerprint.New(signingInput)
	keyCID := key.Fingerprint()

	vctBytes, err := transcript.RenderWithCompliance(rep, tokenCID, keyCID, policyCID, ropts, cmode)
	if err != nil {
		fmt.Fprintf(errOut, "vct: %v\n", err)
		return 1
	}
	if signing {
		ok, verr := transcript.VerifySignature(vctBytes)
		if verr != nil {
			fmt.Fprintf(errOut, "verify final: %v\n", verr)
			return 1
		}
		if !ok {
			fmt.Fprintln(errOut, "verify final: transcript is unsigned")
			return 1
		}
	}
	vctCID, err := transcript.CID(vctBytes)
	if err != nil {
		fmt.Fprintf(errOut, "cid: %v\n", err)
		return 1
	}
	fmt.Fprintf(errOut, "VCT-CID: %s\n", vctCID)
	_, _ = out.Write(vctBytes)
	if rep.State == evaluate.StateRejected {
		return 1
	}
	return 0
}

// cmdInspect decodes the payload window a claim check would search. The token
// may be a compact JWS or a bare signing input; the signature segment, if
// present, is ignored.
func cmdInspect(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("inspect", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var tokenPath string
	var window int

	fs.StringVar(&tokenPath, "token", "", "Token file (compact JWS or signing input)")
	fs.IntVar(&window, "range", 0, "Window length in base64url characters (0 = whole payload rounded down to a multiple of 4)")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if tokenPath == "" {
		fmt.Fprintln(errOut, "missing --token")
		return 2
	}

	tokenBytes, err := os.ReadFile(tokenPath)
	if err != nil {
		fmt.Fprintf(errOut, "read token: %v\n", err)
		return 1
	}
	token := bytes.TrimSpace(tokenBytes)

	signingInput := token
	if i := bytes.LastIndexByte(token, '.'); i >= 0 && bytes.IndexByte(token[:i], '.') >= 0 {
		signingInput = token[:i]
	}
	dot := bytes.IndexByte(signingInput, '.')
	if dot < 0 || bytes.IndexByte(signingInput[dot+1:], '.') >= 0 {
		fmt.Fprintln(errOut, "invalid token: expected base64url(header).base64url(payload)")
		return 1
	}
	payload := signingInput[dot+1:]

	if window == 0 {
		window = len(payload) - len(payload)%4
	}
	if window < 0 || window%4 != 0 || window > len(payload) {
		fmt.Fprintf(errOut, "invalid --range: must be a multiple of 4 and at most %d\n", len(payload))
		return 2
	}

	decoded, err := base64.RawURLEncoding.DecodeString(string(payload[:window]))
	if err != nil {
		fmt.Fprintf(errOut, "decode payload window: %v\n", err)
		return 1
	}
	_, _ = out.Write(decoded)
	return 0
}

// loadKeyMaterial reads key material from a PEM public key or a canonical
// limb document, selected by content.
func loadKeyMaterial(path string) (*keymaterial.Key, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if bytes.Contains(b, []byte("-----BEGIN")) {
		return keymaterial.ParsePEM(b)
	}
	return keymaterial.Decode(b)
}

// parseDetachedSignature accepts either the raw 256 signature bytes or their
// base64url text form.
func parseDetachedSignature(b []byte) ([]byte, error) {
	if len(b) == 256 {
		return b, nil
	}
	s := strings.TrimSpace(string(b))
	sig, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("expected 256 raw bytes or base64url text: %v", err)
	}
	return sig, nil
}

func parseClaimFlags(items []string) ([]claimpolicy.Claim, error) {
	claims := make([]claimpolicy.Claim, 0, len(items))
	seen := make(map[string]bool)
	for _, it := range items {
		k, v, ok := strings.Cut(it, "=")
		if !ok {
			return nil, fmt.Errorf("expected Key=Value, got %q", it)
		}
		k = strings.TrimSpace(k)
		if k == "" {
			return nil, errors.New("empty key")
		}
		if seen[k] {
			return nil, fmt.Errorf("duplicate claim key %q", k)
		}
		seen[k] = true
		claims = append(claims, claimpolicy.Claim{Key: k, Value: v})
	}
	return claims, nil
}

type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }
func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

func cmdVCT(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(errOut, "usage: xdao-vcjwt vct <subcommand> ...")
		fmt.Fprintln(errOut, "subcommands: cid, validate-supersession, verify-signature")
		return 2
	}
	switch args[0] {
	case "cid":
		fs := flag.NewFlagSet("vct cid", flag.ContinueOnError)
		fs.SetOutput(errOut)
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}
		if fs.NArg() != 1 {
			fmt.Fprintln(errOut, "usage: xdao-vcjwt vct cid <file>")
			return 2
		}
		b, err := os.ReadFile(fs.Arg(0))
		if err != nil {
			fmt.Fprintf(errOut, "read vct: %v\n", err)
			return 1
		}
		cid, err := transcript.CID(b)
		if err != nil {
			fmt.Fprintf(errOut, "invalid vct: %v\n", err)
			return 1
		}
		_, _ = fmt.Fprintln(out, cid)
		return 0
	case "validate-supersession":
		fs := flag.NewFlagSet("vct validate-supersession", flag.ContinueOnError)
		fs.SetOutput(errOut)
		var newPath string
		var oldPath string
		fs.StringVar(&newPath, "new", "", "New VCT file")
		fs.StringVar(&oldPath, "old", "", "Old VCT file")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}
		if newPath == "" || oldPath == "" {
			fmt.Fprintln(errOut, "usage: xdao-vcjwt vct validate-supersession --new <file> --old <file>")
			return 2
		}
		newBytes, err := os.ReadFile(newPath)
		if err != nil {
			fmt.Fprintf(errOut, "read --new: %v\n", err)
			return 1
		}
		oldBytes, err := os.ReadFile(oldPath)
		if err != nil {
			fmt.Fprintf(errOut, "read --old: %v\n", err)
			return 1
		}
		if err := transcript.ValidateSupersession(newBytes, oldBytes); err != nil {
			fmt.Fprintf(errOut, "invalid: %v\n", err)
			return 1
		}
		_, _ = fmt.Fprintln(out, "OK")
		return 0
	case "verify-signature":
		fs := flag.NewFlagSet("vct verify-signature", flag.ContinueOnError)
		fs.SetOutput(errOut)
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}
		if fs.NArg() != 1 {
			fmt.Fprintln(errOut, "usage: xdao-vcjwt vct verify-signature <file>")
			return 2
		}
		b, err := os.ReadFile(fs.Arg(0))
		if err != nil {
			fmt.Fprintf(errOut, "read vct: %v\n", err)
			return 1
		}
		ok, err := transcript.VerifySignature(b)
		if err != nil {
			fmt.Fprintf(errOut, "invalid vct: %v\n", err)
			return 1
		}
		if !ok {
			fmt.Fprintln(errOut, "transcript is unsigned")
			return 1
		}
		_, _ = fmt.Fprintln(out, "OK")
		return 0
	default:
		fmt.Fprintf(errOut, "unknown vct subcommand: %s\n", args[0])
		return 2
	}
}

func cmdIPFS(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(errOut, "usage: xdao-vcjwt ipfs <subcommand> ...")
		fmt.Fprintln(errOut, "subcommands: put")
		return 2
	}
	switch args[0] {
	case "put":
		return cmdIPFSPut(args[1:], out, errOut)
	default:
		fmt.Fprintf(errOut, "unknown ipfs subcommand: %s\n", args[0])
		return 2
	}
}

func cmdIPFSPut(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("ipfs put", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var pin bool
	var initRepo bool
	var allowMismatch bool
	fs.BoolVar(&pin, "pin", true, "Pin the block in the local IPFS repo")
	fs.BoolVar(&initRepo, "init", false, "Initialize ~/.ipfs if missing (runs 'ipfs init')")
	fs.BoolVar(&allowMismatch, "allow-mismatch", false, "Print CID even if it does not match doc-cid")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: xdao-vcjwt ipfs put [--pin] [--init] <file>")
		return 2
	}
	path := fs.Arg(0)

	if _, err := exec.LookPath("ipfs"); err != nil {
		fmt.Fprintln(errOut, "ipfs not found on PATH (install Kubo 'ipfs' CLI)")
		return 1
	}

	b, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(errOut, "read %s: %v\n", filepath.Base(path), err)
		return 1
	}
	expectedCID := fingerprint.New(b)
	if expectedCID == "" {
		fmt.Fprintln(errOut, "failed to compute CID")
		return 1
	}

	home, err := os.UserHomeDir()
	if err != nil {
		fmt.Fprintf(errOut, "home dir: %v\n", err)
		return 1
	}
	repoDir := filepath.Join(home, ".ipfs")
	if _, statErr := os.Stat(repoDir); statErr != nil {
		if !errors.Is(statErr, os.ErrNotExist) {
			fmt.Fprintf(errOut, "stat ~/.ipfs: %v\n", statErr)
			return 1
		}
		if !initRepo {
			fmt.Fprintln(errOut, "IPFS repo not found at ~/.ipfs")
			fmt.Fprintln(errOut, "Run: ipfs init")
			fmt.Fprintln(errOut, "Or:  xdao-vcjwt ipfs put --init <file>")
			return 2
		}
		cmd := exec.Command("ipfs", "init")
		cmd.Stdout = errOut
		cmd.Stderr = errOut
		if runErr := cmd.Run(); runErr != nil {
			fmt.Fprintf(errOut, "ipfs init: %v\n", runErr)
			return 1
		}
	}

	// Store the raw bytes as a raw block so the returned CID matches doc-cid.
	// Different Kubo versions use different flag names; try a couple.
	base := []string{"block", "put"}
	if pin {
		base = append(base, "--pin")
	}
	variants := [][]string{
		append(append([]string{}, base...), "--cid-codec=raw", "--mhtype=sha2-256", path),
		append(append([]string{}, base...), "--format=raw", "--mhtype=sha2-256", path),
		append(append([]string{}, base...), "--cid-version=1", "--format=raw", "--mhtype=sha2-256", path),
	}

	var lastErr error
	var stdout, stderr string
	var actualCID string
	for _, argv := range variants {
		cmd := exec.Command("ipfs", argv...)
		var outBuf, errBuf bytes.Buffer
		cmd.Stdout = &outBuf
		cmd.Stderr = &errBuf
		runErr := cmd.Run()
		stdout = strings.TrimSpace(outBuf.String())
		stderr = strings.TrimSpace(errBuf.String())
		if runErr != nil {
			lastErr = fmt.Errorf("ipfs %s: %v", strings.Join(argv, " "), runErr)
			continue
		}
		// Output is usually the CID; if extra text appears, take first token.
		fields := strings.Fields(stdout)
		if len(fields) == 0 {
			lastErr = fmt.Errorf("ipfs %s: empty output", strings.Join(argv, " "))
			continue
		}
		actualCID = fields[0]
		lastErr = nil
		break
	}
	if lastErr != nil {
		if stderr != "" {
			fmt.Fprintf(errOut, "%v\n%s\n", lastErr, stderr)
			return 1
		}
		fmt.Fprintf(errOut, "%v\n", lastErr)
		return 1
	}

	if actualCID != expectedCID {
		fmt.Fprintf(errOut, "warning: ipfs returned CID does not match doc-cid\n")
		fmt.Fprintf(errOut, "  doc-cid: %s\n", expectedCID)
		fmt.Fprintf(errOut, "  ipfs:    %s\n", actualCID)
		if !allowMismatch {
			fmt.Fprintln(errOut, "refusing to continue without --allow-mismatch")
			return 1
		}
	}

	_, _ = fmt.Fprintln(out, actualCID)
	return 0
}

func cmdIdentity(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		printIdentityUsage(errOut)
		return 2
	}
	switch args[0] {
	case "init":
		return cmdIdentityInit(args[1:], out, errOut)
	case "derive":
		return cmdIdentityDerive(args[1:], out, errOut)
	case "list":
		return cmdIdentityList(args[1:], out, errOut)
	case "export":
		return cmdIdentityExport(args[1:], out, errOut)
	case "help", "-h", "--help":
		printIdentityUsage(out)
		return 0
	default:
		fmt.Fprintf(errOut, "unknown identity subcommand: %s\n\n", args[0])
		printIdentityUsage(errOut)
		return 2
	}
}

func printIdentityUsage(w io.Writer) {
	fmt.Fprintln(w, "xdao-vcjwt identity: minimal local signer management (KMS-lite)")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  xdao-vcjwt identity init --name <name> [--seed-hex <64hex>] [--force]")
	fmt.Fprintln(w, "  xdao-vcjwt identity derive --from <name> --role <role> [--force]")
	fmt.Fprintln(w, "  xdao-vcjwt identity list")
	fmt.Fprintln(w, "  xdao-vcjwt identity export --name <name> [--role <role>]")
}

func cmdIdentityInit(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("identity init", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var name string
	var seedHex string
	var force bool

	fs.StringVar(&name, "name", "", "Identity name (directory under ~/.xdao/vcjwt-ids)")
	fs.StringVar(&seedHex, "seed-hex", "", "Optional ed25519 seed as 64 hex chars (for reproducible demos)")
	fs.BoolVar(&force, "force", false, "Overwrite existing seed files")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if name == "" {
		fmt.Fprintln(errOut, "missing --name")
		return 2
	}
	if err := identity.CheckKeyName(name); err != nil {
		fmt.Fprintf(errOut, "invalid --name: %v\n", err)
		return 2
	}
	ks, err := identity.CreateKeyStore("")
	if err != nil {
		fmt.Fprintf(errOut, "identity: %v\n", err)
		return 1
	}

	var seed []byte
	if seedHex != "" {
		var derr error
		seed, derr = identity.ParseSeedHex(seedHex)
		if derr != nil {
			fmt.Fprintf(errOut, "invalid --seed-hex: %v\n", derr)
			return 2
		}
	} else {
		seed = make([]byte, ed25519.SeedSize)
		if _, err := rand.Read(seed); err != nil {
			fmt.Fprintf(errOut, "rand: %v\n", err)
			return 1
		}
	}

	verifierKey, rootPath, err := ks.InitializeRootKey(name, seed, force)
	if err != nil {
		fmt.Fprintf(errOut, "write seed: %v\n", err)
		return 1
	}
	fmt.Fprintf(out, "Created root identity: %s\n", verifierKey)
	fmt.Fprintf(out, "Stored at: %s\n", rootPath)
	return 0
}

func cmdIdentityDerive(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("identity derive", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var from string
	var role string
	var force bool

	fs.StringVar(&from, "from", "", "Root identity name")
	fs.StringVar(&role, "role", "", "Role identifier (e.g. auditor, release)")
	fs.BoolVar(&force, "force", false, "Overwrite existing seed files")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if from == "" {
		fmt.Fprintln(errOut, "missing --from")
		return 2
	}
	if role == "" {
		fmt.Fprintln(errOut, "missing --role")
		return 2
	}
	if err := identity.CheckKeyName(from); err != nil {
		fmt.Fprintf(errOut, "invalid --from: %v\n", err)
		return 2
	}
	if err := identity.CheckRole(role); err != nil {
		fmt.Fprintf(errOut, "invalid --role: %v\n", err)
		return 2
	}
	ks, err := identity.CreateKeyStore("")
	if err != nil {
		fmt.Fprintf(errOut, "identity: %v\n", err)
		return 1
	}
	verifierKey, rolePath, err := ks.DeriveKeyFromRole(from, role, force)
	if err != nil {
		fmt.Fprintf(errOut, "derive role key: %v\n", err)
		return 1
	}
	fmt.Fprintf(out, "Created role identity: %s\n", verifierKey)
	fmt.Fprintf(out, "Stored at: %s\n", rolePath)
	return 0
}

func cmdIdentityList(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("identity list", flag.ContinueOnError)
	fs.SetOutput(errOut)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	ks, err := identity.CreateKeyStore("")
	if err != nil {
		fmt.Fprintf(errOut, "identity: %v\n", err)
		return 1
	}
	entries, err := ks.ListKeys()
	if err != nil {
		fmt.Fprintf(errOut, "list identities: %v\n", err)
		return 1
	}
	for _, e := range entries {
		fmt.Fprintf(out, "%s\n", e.Identifier)
		for _, r := range e.Roles {
			fmt.Fprintf(out, "  - %s\n", r)
		}
	}
	return 0
}

func cmdIdentityExport(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("identity export", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var name string
	var role string

	fs.StringVar(&name, "name", "", "Identity name")
	fs.StringVar(&role, "role", "", "Optional role (if set, exports the derived role key)")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if name == "" {
		fmt.Fprintln(errOut, "missing --name")
		return 2
	}
	if err := identity.CheckKeyName(name); err != nil {
		fmt.Fprintf(errOut, "invalid --name: %v\n", err)
		return 2
	}
	if role != "" {
		if err := identity.CheckRole(role); err != nil {
			fmt.Fprintf(errOut, "invalid --role: %v\n", err)
			return 2
		}
	}
	ks, err := identity.CreateKeyStore("")
	if err != nil {
		fmt.Fprintf(errOut, "identity: %v\n", err)
		return 1
	}
	verifierKey, err := ks.ExportKey(name, role)
	if err != nil {
		fmt.Fprintf(errOut, "export identity: %v\n", err)
		return 1
	}
	_, _ = fmt.Fprintln(out, verifierKey)
	return 0
}

func cmdKey(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		printKeyUsage(errOut)
		return 2
	}
	switch args[0] {
	case "import":
		return cmdKeyImport(args[1:], out, errOut)
	case "convert":
		return cmdKeyConvert(args[1:], out, errOut)
	case "list":
		return cmdKeyList(args[1:], out, errOut)
	case "show":
		return cmdKeyShow(args[1:], out, errOut)
	case "fingerprint":
		return cmdKeyFingerprint(args[1:], out, errOut)
	case "help", "-h", "--help":
		printKeyUsage(out)
		return 0
	default:
		fmt.Fprintf(errOut, "unknown key subcommand: %s\n\n", args[0])
		printKeyUsage(errOut)
		return 2
	}
}

func printKeyUsage(w io.Writer) {
	fmt.Fprintln(w, "xdao-vcjwt key: local RSA key material management")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  xdao-vcjwt key import (--pem <file> | --limbs <file>) --name <name> [--force]")
	fmt.Fprintln(w, "  xdao-vcjwt key convert --pem <file>")
	fmt.Fprintln(w, "  xdao-vcjwt key list")
	fmt.Fprintln(w, "  xdao-vcjwt key show --name <name>")
	fmt.Fprintln(w, "  xdao-vcjwt key fingerprint --name <name>")
}

func cmdKeyImport(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("key import", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var pemPath string
	var limbPath string
	var name string
	var force bool

	fs.StringVar(&pemPath, "pem", "", "RSA public key PEM file (PKIX or PKCS#1)")
	fs.StringVar(&limbPath, "limbs", "", "Canonical limb document file")
	fs.StringVar(&name, "name", "", "Key name (file under ~/.xdao/vcjwt-keys)")
	fs.BoolVar(&force, "force", false, "Overwrite an existing key file")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if name == "" {
		fmt.Fprintln(errOut, "missing --name")
		return 2
	}
	if (pemPath == "") == (limbPath == "") {
		fmt.Fprintln(errOut, "exactly one of --pem or --limbs is required")
		return 2
	}
	if err := keymaterial.CheckKeyName(name); err != nil {
		fmt.Fprintf(errOut, "invalid --name: %v\n", err)
		return 2
	}

	path := pemPath
	if limbPath != "" {
		path = limbPath
	}
	b, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(errOut, "read %s: %v\n", filepath.Base(path), err)
		return 1
	}
	var key *keymaterial.Key
	if pemPath != "" {
		key, err = keymaterial.ParsePEM(b)
	} else {
		key, err = keymaterial.Decode(b)
	}
	if err != nil {
		fmt.Fprintf(errOut, "invalid key: %v\n", err)
		return 1
	}

	st, err := keymaterial.OpenStore("")
	if err != nil {
		fmt.Fprintf(errOut, "keys: %v\n", err)
		return 1
	}
	stored, err := st.Save(name, key, force)
	if err != nil {
		fmt.Fprintf(errOut, "write key: %v\n", err)
		return 1
	}
	fmt.Fprintf(out, "Imported key: %s\n", key.Fingerprint())
	fmt.Fprintf(out, "Stored at: %s\n", stored)
	return 0
}

// cmdKeyConvert writes the canonical limb document for a PEM public key to
// stdout without touching the key store.
func cmdKeyConvert(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("key convert", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var pemPath string
	fs.StringVar(&pemPath, "pem", "", "RSA public key PEM file (PKIX or PKCS#1)")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if pemPath == "" {
		fmt.Fprintln(errOut, "missing --pem")
		return 2
	}
	b, err := os.ReadFile(pemPath)
	if err != nil {
		fmt.Fprintf(errOut, "read %s: %v\n", filepath.Base(pemPath), err)
		return 1
	}
	key, err := keymaterial.ParsePEM(b)
	if err != nil {
		fmt.Fprintf(errOut, "invalid key: %v\n", err)
		return 1
	}
	_, _ = out.Write(key.Encode())
	return 0
}

func cmdKeyList(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("key list", flag.ContinueOnError)
	fs.SetOutput(errOut)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	st, err := keymaterial.OpenStore("")
	if err != nil {
		fmt.Fprintf(errOut, "keys: %v\n", err)
		return 1
	}
	names, err := st.List()
	if err != nil {
		fmt.Fprintf(errOut, "list keys: %v\n", err)
		return 1
	}
	for _, n := range names {
		fmt.Fprintf(out, "%s\n", n)
	}
	return 0
}

func cmdKeyShow(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("key show", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var name string
	fs.StringVar(&name, "name", "", "Key name")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if name == "" {
		fmt.Fprintln(errOut, "missing --name")
		return 2
	}
	st, err := keymaterial.OpenStore("")
	if err != nil {
		fmt.Fprintf(errOut, "keys: %v\n", err)
		return 1
	}
	key, err := st.Load(name)
	if err != nil {
		fmt.Fprintf(errOut, "load key %q: %v\n", name, err)
		return 1
	}
	_, _ = out.Write(key.Encode())
	return 0
}

func cmdKeyFingerprint(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("key fingerprint", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var name string
	fs.StringVar(&name, "name", "", "Key name")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if name == "" {
		fmt.Fprintln(errOut, "missing --name")
		return 2
	}
	st, err := keymaterial.OpenStore("")
	if err != nil {
		fmt.Fprintf(errOut, "keys: %v\n", err)
		return 1
	}
	key, err := st.Load(name)
	if err != nil {
		fmt.Fprintf(errOut, "load key %q: %v\n", name, err)
		return 1
	}
	_, _ = fmt.Fprintln(out, key.Fingerprint())
	return 0
}

func cmdDocCID(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("doc-cid", flag.ContinueOnError)
	fs.SetOutput(errOut)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: xdao-vcjwt doc-cid <file>")
		return 2
	}
	path := fs.Arg(0)
	b, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(errOut, "read %s: %v\n", filepath.Base(path), err)
		return 1
	}
	_, _ = fmt.Fprintln(out, fingerprint.New(b))
	return 0
}
