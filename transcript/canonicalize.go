package transcript

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// CanonicalizeVCT is the mandatory canonicalization choke point for transcripts.
//
// Transcript evidence MUST be canonical before CID derivation, signing, or
// supersession validation. This function enforces byte-level canonical rules by
// rejecting any non-canonical input.
func CanonicalizeVCT(input []byte) ([]byte, error) {
	if !utf8.Valid(input) {
		return nil, errors.New("VCT must be valid UTF-8")
	}
	if bytes.HasPrefix(input, []byte{0xEF, 0xBB, 0xBF}) {
		return nil, errors.New("BOM not allowed")
	}
	if bytes.Contains(input, []byte("\r")) {
		return nil, errors.New("CR line endings not allowed")
	}
	if len(input) == 0 {
		return nil, errors.New("empty VCT")
	}
	// Canonical transcripts emitted by Render always end with a newline.
	if input[len(input)-1] != '\n' {
		return nil, errors.New("missing trailing newline")
	}
	for _, line := range bytes.Split(input, []byte("\n")) {
		if len(line) > 0 && (line[len(line)-1] == ' ' || line[len(line)-1] == '\t') {
			return nil, errors.New("trailing whitespace forbidden")
		}
	}

	if err := validateCanonicalVCT(string(input)); err != nil {
		return nil, err
	}

	// Return a copy to prevent caller mutation.
	return append([]byte(nil), input...), nil
}

var vctSectionOrder = []string{"META", "INPUTS", "RESULT", "CLAIMS", "CRYPTO"}

func validateCanonicalVCT(doc string) error {
	lines := strings.Split(doc, "\n")
	// Canonical transcripts have a trailing newline, so last line is always empty.
	if len(lines) < 3 {
		return errors.New("VCT too short")
	}
	if lines[0] != Preamble {
		return errors.New("missing VCT preamble")
	}
	if lines[len(lines)-1] != "" {
		return errors.New("missing trailing newline")
	}
	if lines[len(lines)-2] != Postamble {
		return errors.New("missing VCT postamble")
	}

	i := 1
	for _, sec := range vctSectionOrder {
		if i >= len(lines)-2 {
			return fmt.Errorf("missing section %q", sec)
		}
		if lines[i] != sec {
			return fmt.Errorf("sections missing or out of order (expected %q got %q)", sec, lines[i])
		}
		i++
		start := i
		for i < len(lines)-2 && lines[i] != "" {
			i++
		}
		if i >= len(lines)-2 {
			return fmt.Errorf("missing blank line after section %q", sec)
		}
		body := lines[start:i]
		if err := validateSection(sec, body); err != nil {
			return err
		}
		// Consume the required section terminator blank line.
		i++
	}

	if i != len(lines)-2 {
		return errors.New("unexpected content before postamble")
	}
	return nil
}

func validateSection(section string, body []string) error {
	switch section {
	case "META":
		return validateMeta(body)
	case "INPUTS":
		return validateInputs(body)
	case "RESULT":
		return validateResult(body)
	case "CLAIMS":
		return validateClaims(body)
	case "CRYPTO":
		return validateCrypto(body)
	default:
		return fmt.Errorf("unknown section %q", section)
	}
}

func validateSortedStrict(lines []string) error {
	seen := make(map[string]bool)
	for i := 0; i < len(lines); i++ {
		l := lines[i]
		if l == "" {
			return errors.New("empty line inside section")
		}
		if seen[l] {
			return errors.New("duplicate line")
		}
		seen[l] = true
		if i > 0 && !(lines[i-1] < lines[i]) {
			return errors.New("lines not sorted lexicographically")
		}
	}
	return nil
}

func validateKVLine(line string) (string, string, error) {
	if !strings.Contains(line, ": ") {
		return "", "", errors.New("invalid key-value formatting")
	}
	k, v, _ := strings.Cut(line, ": ")
	if k == "" {
		return "", "", errors.New("empty key")
	}
	if v == "" {
		return "", "", errors.New("empty value")
	}
	return k, v, nil
}

func validateMeta(body []string) error {
	if err := validateSortedStrict(body); err != nil {
		return fmt.Errorf("META: %w", err)
	}
	need := map[string]bool{"Spec": false, "Verifier-ID": false, "Version": false}
	for _, l := range body {
		k, _, err := validateKVLine(l)
		if err != nil {
			return fmt.Errorf("META: %w", err)
		}
		if _, ok := need[k]; ok {
			need[k] = true
		}
	}
	for k, ok := range need {
		if !ok {
			return fmt.Errorf("META: missing %s", k)
		}
	}
	return nil
}

func validateInputs(body []string) error {
	if len(body) < 3 {
		return errors.New("INPUTS: missing required lines")
	}
	i := 0
	if !strings.HasPrefix(body[i], "Token-CID: ") {
		return errors.New("INPUTS: first line must be Token-CID")
	}
	if _, v, err := validateKVLine(body[i]); err != nil || v == "" {
		return errors.New("INPUTS: invalid Token-CID")
	}
	i++
	if !strings.HasPrefix(body[i], "Key-CID: ") {
		return errors.New("INPUTS: second line must be Key-CID")
	}
	if _, v, err := validateKVLine(body[i]); err != nil || v == "" {
		return errors.New("INPUTS: invalid Key-CID")
	}
	i++
	if i < len(body) && strings.HasPrefix(body[i], "Policy-CID: ") {
		if _, v, err := validateKVLine(body[i]); err != nil || v == "" {
			return errors.New("INPUTS: invalid Policy-CID")
		}
		i++
	}
	if i >= len(body) || !strings.HasPrefix(body[i], "Hash-Mode: ") {
		return errors.New("INPUTS: missing Hash-Mode")
	}
	mode := strings.TrimPrefix(body[i], "Hash-Mode: ")
	if mode != "direct" && mode != "partial" {
		return fmt.Errorf("INPUTS: invalid Hash-Mode %q", mode)
	}
	i++
	if i != len(body) {
		return errors.New("INPUTS: unexpected line")
	}
	return nil
}

func validateResult(body []string) error {
	if err := validateSortedStrict(body); err != nil {
		return fmt.Errorf("RESULT: %w", err)
	}
	need := map[string]bool{"Signature-Check": false, "State": false}
	var state string
	for _, l := range body {
		k, v, err := validateKVLine(l)
		if err != nil {
			return fmt.Errorf("RESULT: %w", err)
		}
		if _, ok := need[k]; ok {
			need[k] = true
		}
		if k == "State" {
			state = v
		}
	}
	for k, ok := range need {
		if !ok {
			return fmt.Errorf("RESULT: missing %s", k)
		}
	}
	if state != "Verified" && state != "Rejected" {
		return fmt.Errorf("RESULT: invalid State %q", state)
	}
	return nil
}

func validateClaims(body []string) error {
	for i, line := range body {
		if err := validateClaimLine(line, i+1); err != nil {
			return fmt.Errorf("CLAIMS: %w", err)
		}
	}
	return nil
}

func validateClaimLine(line string, n int) error {
	want := "Claim-" + claimNumber(n) + ": "
	if !strings.HasPrefix(line, want) {
		return fmt.Errorf("expected Claim-%s record", claimNumber(n))
	}
	rest := strings.TrimPrefix(line, want)

	rest, _, err := consumeQuoted(rest, "key=")
	if err != nil {
		return err
	}
	rest, _, err = consumeQuoted(rest, " value=")
	if err != nil {
		return err
	}
	if !strings.HasPrefix(rest, " range=") {
		return errors.New("expected range field")
	}
	rest = strings.TrimPrefix(rest, " range=")
	cut := strings.IndexByte(rest, ' ')
	if cut < 0 {
		return errors.New("expected result field")
	}
	if r, err := strconv.Atoi(rest[:cut]); err != nil || r < 0 {
		return errors.New("invalid range")
	}
	rest = rest[cut:]
	if !strings.HasPrefix(rest, " result=") {
		return errors.New("expected result field")
	}
	result := strings.TrimPrefix(rest, " result=")
	if result == "" || strings.ContainsAny(result, " \t") {
		return errors.New("invalid result")
	}
	return nil
}

func consumeQuoted(s, label string) (rest, val string, err error) {
	if !strings.HasPrefix(s, label) {
		return "", "", fmt.Errorf("expected %q field", strings.TrimSpace(strings.TrimSuffix(label, "=")))
	}
	s = strings.TrimPrefix(s, label)
	q, err := strconv.QuotedPrefix(s)
	if err != nil {
		return "", "", fmt.Errorf("invalid quoted value after %q", strings.TrimSuffix(label, "="))
	}
	v, err := strconv.Unquote(q)
	if err != nil {
		return "", "", err
	}
	return s[len(q):], v, nil
}

func validateCrypto(body []string) error {
	if len(body) == 0 {
		return nil
	}
	if err := validateSortedStrict(body); err != nil {
		return fmt.Errorf("CRYPTO: %w", err)
	}
	need := map[string]bool{"Hash-Alg": false, "Signature": false, "Signature-Alg": false, "Verifier-Key": false}
	for _, l := range body {
		k, _, err := validateKVLine(l)
		if err != nil {
			return fmt.Errorf("CRYPTO: %w", err)
		}
		if _, ok := need[k]; ok {
			need[k] = true
		}
	}
	for k, ok := range need {
		if !ok {
			return fmt.Errorf("CRYPTO: missing %s", k)
		}
	}
	return nil
}
