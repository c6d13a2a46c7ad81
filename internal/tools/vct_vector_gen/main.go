package main

import (
	"bytes"
	"encoding/base64"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"xdao.co/vcjwt/claimpolicy"
	"xdao.co/vcjwt/evaluate"
	"xdao.co/vcjwt/fingerprint"
	"xdao.co/vcjwt/keymaterial"
	"xdao.co/vcjwt/transcript"
)

func main() {
	var (
		tokenPath  = flag.String("token", "", "path to a compact JWS token")
		keyPath    = flag.String("key", "", "path to key material (public key PEM or canonical limb document)")
		policyPath = flag.String("policy", "", "path to a claim policy (optional)")
		outDir     = flag.String("out", "", "output directory")
	)
	flag.Parse()

	if *tokenPath == "" || *keyPath == "" || *outDir == "" {
		fmt.Fprintln(os.Stderr, "usage: vct_vector_gen -token <token.jwt> -key <key.pem|key.json> -out <dir> [-policy <policy.txt>]")
		os.Exit(2)
	}

	tokenBytes, err := os.ReadFile(*tokenPath)
	if err != nil {
		fatalf("read token: %v", err)
	}
	token := bytes.TrimSpace(tokenBytes)
	i := bytes.LastIndexByte(token, '.')
	if i < 0 {
		fatalf("token has no signature separator")
	}
	signingInput := token[:i]
	sig, err := base64.RawURLEncoding.DecodeString(string(token[i+1:]))
	if err != nil {
		fatalf("decode signature segment: %v", err)
	}
	dot := bytes.IndexByte(signingInput, '.')
	if dot < 0 {
		fatalf("token has no payload separator")
	}

	key, err := loadKeyMaterial(*keyPath)
	if err != nil {
		fatalf("load key: %v", err)
	}
	sigLimbs, err := keymaterial.SignatureLimbs(sig)
	if err != nil {
		fatalf("signature limbs: %v", err)
	}

	var pol *claimpolicy.Policy
	var policyCID string
	var policyBytes []byte
	if *policyPath != "" {
		policyBytes, err = os.ReadFile(*policyPath)
		if err != nil {
			fatalf("read policy: %v", err)
		}
		pol, err = claimpolicy.Parse(policyBytes)
		if err != nil {
			fatalf("claimpolicy.Parse: %v", err)
		}
		policyCID = transcript.PolicyCID(policyBytes)
	}

	rep, err := evaluate.Check(evaluate.Input{
		Data:           signingInput,
		Offset:         dot + 1,
		Key:            key,
		SignatureLimbs: sigLimbs,
	}, pol)
	if err != nil {
		fatalf("evaluate.Check: %v", err)
	}

	tokenCID := fingerprint.New(signingInput)
	keyCID := key.Fingerprint()
	vctBytes, vctCID, err := transcript.RenderWithCID(rep, tokenCID, keyCID, policyCID, transcript.RenderOptions{VerifierID: "xdao-vcjwt-reference"})
	if err != nil {
		fatalf("transcript.RenderWithCID: %v", err)
	}

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		fatalf("mkdir out: %v", err)
	}
	vctPath := filepath.Join(*outDir, "transcript_1.vct")
	cidPath := filepath.Join(*outDir, "transcript_1.cid")
	if err := os.WriteFile(vctPath, vctBytes, 0o644); err != nil {
		fatalf("write vct: %v", err)
	}
	if err := os.WriteFile(cidPath, []byte(strings.TrimSpace(vctCID)+"\n"), 0o644); err != nil {
		fatalf("write cid: %v", err)
	}
}

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

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
