// Package claimpolicy implements parsing for the claim policy format: a
// line-oriented list of claim requirements checked against a verified token.
package claimpolicy

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"xdao.co/vcjwt/compliance"
)

const (
	Preamble  = "-----BEGIN XDAO CLAIM POLICY-----"
	Postamble = "-----END XDAO CLAIM POLICY-----"
)

type Policy struct {
	Meta   map[string]string
	Claims []Claim
}

// Claim is one required key/value pair. Range selects how many base64url
// characters of the payload window are searched; zero means the whole
// window rounded down to a multiple of four.
type Claim struct {
	Key   string
	Value string
	Range int
}

// Parse parses a claim policy permissively: unknown fields inside Require
// blocks are ignored.
func Parse(data []byte) (*Policy, error) {
	return ParseWithMode(data, compliance.Permissive)
}

// ParseWithMode parses a claim policy. In strict mode, unknown fields inside
// Require blocks are errors.
func ParseWithMode(data []byte, mode compliance.ComplianceMode) (*Policy, error) {
	if bytes.HasPrefix(data, []byte{0xEF, 0xBB, 0xBF}) {
		return nil, errors.New("BOM not allowed")
	}
	if bytes.Contains(data, []byte("\r")) {
		return nil, errors.New("CR line endings not allowed")
	}
	for _, line := range bytes.Split(data, []byte("\n")) {
		if len(line) > 0 && (line[len(line)-1] == ' ' || line[len(line)-1] == '\t') {
			return nil, errors.New("trailing whitespace forbidden")
		}
	}
	if !bytes.HasSuffix(bytes.TrimSpace(data), []byte(Postamble)) {
		return nil, errors.New("missing claim policy postamble")
	}

	lines := strings.Split(string(data), "\n")
	if lines[0] != Preamble {
		return nil, errors.New("missing claim policy preamble")
	}
	sections := map[string]bool{"META": true, "CLAIMS": true}
	meta := make(map[string]string)
	var claims []Claim
	currSection := ""

	for i := 1; i < len(lines); i++ {
		line := lines[i]
		if line == "" || line == Postamble {
			continue
		}
		if sections[line] {
			currSection = line
			continue
		}
		switch currSection {
		case "META":
			k, v, ok := strings.Cut(line, ": ")
			if !ok {
				return nil, fmt.Errorf("malformed META line %d", i+1)
			}
			meta[k] = v
		case "CLAIMS":
			if line != "Require:" {
				return nil, fmt.Errorf("expected Require block at line %d", i+1)
			}
			c := Claim{Range: 0}
			seenKey, seenValue := false, false
			for i++; i < len(lines); i++ {
				l := lines[i]
				if l == "" || l == "Require:" || l == Postamble {
					i--
					break
				}
				switch {
				case strings.HasPrefix(l, "Key: "):
					c.Key = strings.TrimPrefix(l, "Key: ")
					seenKey = true
				case strings.HasPrefix(l, "Value: "):
					c.Value = strings.TrimPrefix(l, "Value: ")
					seenValue = true
				case strings.HasPrefix(l, "Range: "):
					q, err := strconv.Atoi(strings.TrimPrefix(l, "Range: "))
					if err != nil || q < 0 {
						return nil, errors.New("invalid Range")
					}
					c.Range = q
				default:
					if mode == compliance.Strict {
						return nil, fmt.Errorf("unknown Require field at line %d", i+1)
					}
				}
			}
			if !seenKey || !seenValue {
				return nil, errors.New("Require block missing Key or Value")
			}
			if err := checkClaimText(c.Key); err != nil {
				return nil, fmt.Errorf("Key: %w", err)
			}
			if err := checkClaimText(c.Value); err != nil {
				return nil, fmt.Errorf("Value: %w", err)
			}
			claims = append(claims, c)
		default:
			return nil, fmt.Errorf("content outside sections at line %d", i+1)
		}
	}
	if len(claims) == 0 {
		return nil, errors.New("policy requires at least one claim")
	}
	return &Policy{Meta: meta, Claims: claims}, nil
}

// checkClaimText rejects characters that cannot occur literally in the raw
// payload needle.
func checkClaimText(s string) error {
	if s == "" {
		return errors.New("cannot be empty")
	}
	if strings.ContainsAny(s, "\"\\") {
		return errors.New("quotes and backslashes are not allowed")
	}
	return nil
}
