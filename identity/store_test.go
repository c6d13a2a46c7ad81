package identity

import (
	"crypto/ed25519"
	"strings"
	"testing"
)

func testSeed(b byte) []byte {
	seed := make([]byte, ed25519.SeedSize)
	for i := range seed {
		seed[i] = b
	}
	return seed
}

func TestKeyStore_InitDeriveExport(t *testing.T) {
	ks, err := CreateKeyStore(t.TempDir())
	if err != nil {
		t.Fatalf("CreateKeyStore: %v", err)
	}

	rootVK, _, err := ks.InitializeRootKey("ci", testSeed(0x01), false)
	if err != nil {
		t.Fatalf("InitializeRootKey: %v", err)
	}
	if !strings.HasPrefix(rootVK, "ed25519:") {
		t.Fatalf("unexpected verifier key %q", rootVK)
	}

	roleVK, _, err := ks.DeriveKeyFromRole("ci", "approver", false)
	if err != nil {
		t.Fatalf("DeriveKeyFromRole: %v", err)
	}
	if roleVK == rootVK {
		t.Fatalf("role key must differ from root key")
	}

	exported, err := ks.ExportKey("ci", "approver")
	if err != nil {
		t.Fatalf("ExportKey: %v", err)
	}
	if exported != roleVK {
		t.Fatalf("exported key mismatch: %q vs %q", exported, roleVK)
	}

	// Role derivation is deterministic, so the same verifier key comes back
	// when overwriting.
	again, _, err := ks.DeriveKeyFromRole("ci", "approver", true)
	if err != nil {
		t.Fatalf("DeriveKeyFromRole overwrite: %v", err)
	}
	if again != roleVK {
		t.Fatalf("expected deterministic role key")
	}
}

func TestKeyStore_RefusesOverwriteWithoutFlag(t *testing.T) {
	ks, err := CreateKeyStore(t.TempDir())
	if err != nil {
		t.Fatalf("CreateKeyStore: %v", err)
	}
	if _, _, err := ks.InitializeRootKey("ci", testSeed(0x02), false); err != nil {
		t.Fatalf("InitializeRootKey: %v", err)
	}
	if _, _, err := ks.InitializeRootKey("ci", testSeed(0x03), false); err == nil {
		t.Fatalf("expected error when overwriting existing root key")
	}
}

func TestKeyStore_ListKeys(t *testing.T) {
	ks, err := CreateKeyStore(t.TempDir())
	if err != nil {
		t.Fatalf("CreateKeyStore: %v", err)
	}
	if _, _, err := ks.InitializeRootKey("beta", testSeed(0x04), false); err != nil {
		t.Fatalf("InitializeRootKey: %v", err)
	}
	if _, _, err := ks.InitializeRootKey("alpha", testSeed(0x05), false); err != nil {
		t.Fatalf("InitializeRootKey: %v", err)
	}
	if _, _, err := ks.DeriveKeyFromRole("alpha", "approver", false); err != nil {
		t.Fatalf("DeriveKeyFromRole: %v", err)
	}

	entries, err := ks.ListKeys()
	if err != nil {
		t.Fatalf("ListKeys: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Identifier != "alpha" || entries[1].Identifier != "beta" {
		t.Fatalf("expected sorted identifiers, got %v", entries)
	}
	if len(entries[0].Roles) != 1 || entries[0].Roles[0] != "approver" {
		t.Fatalf("expected alpha to list role approver, got %v", entries[0].Roles)
	}
}

func TestCheckKeyNameAndRole(t *testing.T) {
	for _, ok := range []string{"ci", "release-bot", "Team_42"} {
		if err := CheckKeyName(ok); err != nil {
			t.Fatalf("CheckKeyName(%q): %v", ok, err)
		}
		if err := CheckRole(ok); err != nil {
			t.Fatalf("CheckRole(%q): %v", ok, err)
		}
	}
	for _, bad := range []string{"", "a b", "x/y", "dot.name"} {
		if err := CheckKeyName(bad); err == nil {
			t.Fatalf("CheckKeyName(%q): expected error", bad)
		}
		if err := CheckRole(bad); err == nil {
			t.Fatalf("CheckRole(%q): expected error", bad)
		}
	}
}

func TestParseSeedHex(t *testing.T) {
	hexSeed := strings.Repeat("ab", ed25519.SeedSize)
	seed, err := ParseSeedHex("0x" + hexSeed)
	if err != nil {
		t.Fatalf("ParseSeedHex: %v", err)
	}
	if len(seed) != ed25519.SeedSize {
		t.Fatalf("unexpected seed length %d", len(seed))
	}
	if _, err := ParseSeedHex("abcd"); err == nil {
		t.Fatalf("expected error for short seed")
	}
	if _, err := ParseSeedHex("zz" + hexSeed[2:]); err == nil {
		t.Fatalf("expected error for invalid hex")
	}
}
