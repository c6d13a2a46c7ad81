package transcript

import (
	"errors"
	"fmt"
	"strings"
)

// SupersedesVCTCID returns the CID referenced by META: Supersedes-VCT-CID.
func SupersedesVCTCID(vctBytes []byte) (string, bool, error) {
	v, ok, err := singleFieldFromSection(vctBytes, "META", "Supersedes-VCT-CID")
	if err != nil {
		return "", false, err
	}
	if !ok {
		return "", false, nil
	}
	return v, true, nil
}

// ValidateSupersession enforces minimal VCT supersession semantics.
//
// A transcript B supersedes transcript A when:
// - B's META includes Supersedes-VCT-CID equal to CID(A)
// - B and A bind the same Token-CID
// - B and A bind the same Key-CID
// - B and A use the same Verifier-ID
//
// The claim policy may differ: a re-check under a revised policy supersedes
// the older transcript for the same token and key.
func ValidateSupersession(newVCT, oldVCT []byte) error {
	oldCID, err := CID(oldVCT)
	if err != nil {
		return fmt.Errorf("old VCT: %w", err)
	}
	newCID, err := CID(newVCT)
	if err != nil {
		return fmt.Errorf("new VCT: %w", err)
	}
	if newCID == oldCID {
		return errors.New("supersession invalid: new VCT bytes identical to old")
	}

	sup, ok, err := SupersedesVCTCID(newVCT)
	if err != nil {
		return err
	}
	if !ok {
		return errors.New("supersession invalid: new VCT does not declare Supersedes-VCT-CID")
	}
	if sup != oldCID {
		return fmt.Errorf("supersession invalid: Supersedes-VCT-CID=%q does not match old CID=%q", sup, oldCID)
	}

	oldToken, err := requiredFieldFromSection(oldVCT, "INPUTS", "Token-CID")
	if err != nil {
		return err
	}
	newToken, err := requiredFieldFromSection(newVCT, "INPUTS", "Token-CID")
	if err != nil {
		return err
	}
	if oldToken != newToken {
		return fmt.Errorf("supersession invalid: token mismatch old=%q new=%q", oldToken, newToken)
	}

	oldKey, err := requiredFieldFromSection(oldVCT, "INPUTS", "Key-CID")
	if err != nil {
		return err
	}
	newKey, err := requiredFieldFromSection(newVCT, "INPUTS", "Key-CID")
	if err != nil {
		return err
	}
	if oldKey != newKey {
		return fmt.Errorf("supersession invalid: key mismatch old=%q new=%q", oldKey, newKey)
	}

	oldVerifierID, err := requiredFieldFromSection(oldVCT, "META", "Verifier-ID")
	if err != nil {
		return err
	}
	newVerifierID, err := requiredFieldFromSection(newVCT, "META", "Verifier-ID")
	if err != nil {
		return err
	}
	if oldVerifierID != newVerifierID {
		return fmt.Errorf("supersession invalid: verifier-id mismatch old=%q new=%q", oldVerifierID, newVerifierID)
	}

	return nil
}

func sectionLines(vctBytes []byte, section string) ([]string, error) {
	lines := strings.Split(string(vctBytes), "\n")
	idx := -1
	for i, l := range lines {
		if l == section {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("missing section %q", section)
	}
	start := idx + 1
	var out []string
	for i := start; i < len(lines); i++ {
		l := lines[i]
		if l == "" {
			break
		}
		out = append(out, l)
	}
	return out, nil
}

func fieldValues(lines []string, key string) []string {
	prefix := key + ": "
	var out []string
	for _, l := range lines {
		if strings.HasPrefix(l, prefix) {
			out = append(out, strings.TrimPrefix(l, prefix))
		}
	}
	return out
}

func requiredFieldFromSection(vctBytes []byte, section, key string) (string, error) {
	v, ok, err := singleFieldFromSection(vctBytes, section, key)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("missing %s: %s", section, key)
	}
	return v, nil
}

func singleFieldFromSection(vctBytes []byte, section, key string) (string, bool, error) {
	lines, err := sectionLines(vctBytes, section)
	if err != nil {
		return "", false, err
	}
	vals := fieldValues(lines, key)
	if len(vals) == 0 {
		return "", false, nil
	}
	if len(vals) > 1 {
		return "", false, fmt.Errorf("multiple %s: %s", section, key)
	}
	if vals[0] == "" {
		return "", false, fmt.Errorf("empty %s: %s", section, key)
	}
	return vals[0], true, nil
}
