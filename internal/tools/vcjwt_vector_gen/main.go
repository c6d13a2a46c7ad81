package main

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"encoding/pem"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"xdao.co/vcjwt/keymaterial"
	"xdao.co/vcjwt/limb"
	"xdao.co/vcjwt/sha2state"
	"xdao.co/vcjwt/vcjwt"
)

type multiStringFlag []string

func (m *multiStringFlag) String() string {
	return strings.Join(*m, ",")
}

func (m *multiStringFlag) Set(v string) error {
	*m = append(*m, v)
	return nil
}

type vectorClaim struct {
	Key    string `json:"key"`
	Value  string `json:"value"`
	Range  int    `json:"range"`
	RuleID string `json:"rule_id"`
}

type vectorPartial struct {
	Split      int       `json:"split"`
	State      [8]uint32 `json:"state"`
	FullLength uint64    `json:"full_length"`
}

type vector struct {
	Description    string        `json:"description"`
	Token          string        `json:"token"`
	PayloadOffset  int           `json:"payload_offset"`
	ModulusLimbs   []string      `json:"modulus_limbs"`
	RedcLimbs      []string      `json:"redc_limbs"`
	SignatureLimbs []string      `json:"signature_limbs"`
	DigestHex      string        `json:"digest_hex"`
	Claims         []vectorClaim `json:"claims"`
	Partial        vectorPartial `json:"partial"`
}

func main() {
	var (
		claimCases multiStringFlag
		keyPath    = flag.String("key", "", "path to an RSA-2048 private key PEM (PKCS#8 or PKCS#1)")
		header     = flag.String("header", `{"alg":"RS256","typ":"JWT","kid":"vcjwt-test-1"}`, "JOSE header JSON")
		payload    = flag.String("payload", `{"sub":"alice","iss":"xdao-issuer","scope":"verify"}`, "payload JSON")
		desc       = flag.String("desc", "", "vector description (default mentions -key)")
		split      = flag.Int("split", 64, "partial-hash split in bytes (multiple of 64, at most the payload offset)")
		outPath    = flag.String("out", "", "output file path")
	)
	flag.Var(&claimCases, "claim", "claim case 'Key=Value' or 'Key=Value@Range' (repeatable; outcome is recorded, not asserted)")
	flag.Parse()

	if *keyPath == "" || *outPath == "" {
		fmt.Fprintln(os.Stderr, "usage: vcjwt_vector_gen -key <signer.pem> -out <vector.json> [-header <json>] [-payload <json>] [-split <n>] [-claim Key=Value[@Range] ...]")
		os.Exit(2)
	}

	priv, err := loadRSAPrivateKey(*keyPath)
	if err != nil {
		fatalf("load -key: %v", err)
	}

	headerB64 := base64.RawURLEncoding.EncodeToString([]byte(*header))
	payloadB64 := base64.RawURLEncoding.EncodeToString([]byte(*payload))
	signingInput := []byte(headerB64 + "." + payloadB64)
	offset := len(headerB64) + 1

	digest := sha256.Sum256(signingInput)
	sig, err := rsa.SignPKCS1v15(rand.Reader, priv, crypto.SHA256, digest[:])
	if err != nil {
		fatalf("sign: %v", err)
	}

	km, err := keymaterial.FromPublicKey(&priv.PublicKey)
	if err != nil {
		fatalf("key material: %v", err)
	}
	sigLimbs, err := keymaterial.SignatureLimbs(sig)
	if err != nil {
		fatalf("signature limbs: %v", err)
	}

	// The vector must verify before it is written.
	v, err := vcjwt.New(signingInput, offset, km.ModulusLimbs(), km.RedcLimbs(), sigLimbs)
	if err != nil {
		fatalf("vcjwt.New: %v", err)
	}
	verified, err := v.Verify()
	if err != nil {
		fatalf("vcjwt.Verify: %v", err)
	}

	// Claim outcomes are observed, not asserted: each case records the rule ID
	// the checker actually returns, so the vector is consistent by
	// construction.
	claims := make([]vectorClaim, 0, len(claimCases))
	for _, c := range claimCases {
		key, value, rng, perr := parseClaimCase(c)
		if perr != nil {
			fatalf("invalid -claim %q: %v", c, perr)
		}
		cerr := verified.ValidateKeyValue([]byte(key), []byte(value), rng)
		claims = append(claims, vectorClaim{
			Key:    key,
			Value:  value,
			Range:  rng,
			RuleID: vcjwt.RuleID(cerr),
		})
	}

	if *split <= 0 || *split%sha2state.BlockSize != 0 {
		fatalf("invalid -split %d: must be a positive multiple of %d", *split, sha2state.BlockSize)
	}
	if *split > offset {
		fatalf("invalid -split %d: the payload (offset %d) must lie in the unhashed suffix", *split, offset)
	}
	h := sha256.New()
	h.Write(signingInput[:*split])
	cp, err := sha2state.Capture(h)
	if err != nil {
		fatalf("capture hash state: %v", err)
	}

	pv, err := vcjwt.NewWithPartialHash(signingInput[*split:], cp.H, uint64(len(signingInput)),
		offset-*split, km.ModulusLimbs(), km.RedcLimbs(), sigLimbs)
	if err != nil {
		fatalf("vcjwt.NewWithPartialHash: %v", err)
	}
	if _, err := pv.Verify(); err != nil {
		fatalf("partial verify: %v", err)
	}

	description := *desc
	if description == "" {
		description = "RS256 token signed by " + *keyPath
	}

	vec := vector{
		Description:    description,
		Token:          string(signingInput) + "." + base64.RawURLEncoding.EncodeToString(sig),
		PayloadOffset:  offset,
		ModulusLimbs:   limb.FormatHex(km.ModulusLimbs()),
		RedcLimbs:      limb.FormatHex(km.RedcLimbs()),
		SignatureLimbs: limb.FormatHex(sigLimbs),
		DigestHex:      hex.EncodeToString(digest[:]),
		Claims:         claims,
		Partial: vectorPartial{
			Split:      *split,
			State:      cp.H,
			FullLength: uint64(len(signingInput)),
		},
	}

	b, err := json.MarshalIndent(vec, "", "  ")
	if err != nil {
		fatalf("marshal: %v", err)
	}
	b = append(b, '\n')
	if err := os.WriteFile(*outPath, b, 0o644); err != nil {
		fatalf("write: %v", err)
	}
}

func loadRSAPrivateKey(path string) (*rsa.PrivateKey, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	block, _ := pem.Decode(b)
	if block == nil {
		return nil, fmt.Errorf("no PEM block found")
	}
	switch block.Type {
	case "PRIVATE KEY":
		k, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, err
		}
		rk, ok := k.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("not an RSA private key")
		}
		return rk, nil
	case "RSA PRIVATE KEY":
		return x509.ParsePKCS1PrivateKey(block.Bytes)
	}
	return nil, fmt.Errorf("unsupported PEM type %q", block.Type)
}

// parseClaimCase splits 'Key=Value' with an optional '@Range' suffix. The
// suffix is only recognized when everything after the final '@' is digits, so
// values containing '@' still parse.
func parseClaimCase(s string) (key, value string, rng int, err error) {
	sep := strings.IndexByte(s, '=')
	if sep <= 0 {
		return "", "", 0, fmt.Errorf("expected Key=Value")
	}
	key = s[:sep]
	value = s[sep+1:]
	if at := strings.LastIndexByte(value, '@'); at >= 0 {
		if n, perr := strconv.Atoi(value[at+1:]); perr == nil {
			value = value[:at]
			rng = n
		}
	}
	return key, value, rng, nil
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
