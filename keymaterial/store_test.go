package keymaterial

import (
	"testing"
)

func TestStore_SaveLoadList(t *testing.T) {
	s, err := OpenStore(t.TempDir())
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	k := mustKey(t)

	path, err := s.Save("issuer-a", k, false)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if path == "" {
		t.Fatal("Save returned empty path")
	}

	back, err := s.Load("issuer-a")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if back.N.Cmp(k.N) != 0 {
		t.Fatal("loaded key differs")
	}

	names, err := s.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(names) != 1 || names[0] != "issuer-a" {
		t.Fatalf("List = %v, want [issuer-a]", names)
	}
}

func TestStore_SaveRefusesOverwrite(t *testing.T) {
	s, err := OpenStore(t.TempDir())
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	k := mustKey(t)
	if _, err := s.Save("dup", k, false); err != nil {
		t.Fatalf("first Save: %v", err)
	}
	if _, err := s.Save("dup", k, false); err == nil {
		t.Fatal("second Save without overwrite succeeded")
	}
	if _, err := s.Save("dup", k, true); err != nil {
		t.Fatalf("Save with overwrite: %v", err)
	}
}

func TestStore_ListEmptyDirectory(t *testing.T) {
	s, err := OpenStore(t.TempDir())
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	names, err := s.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(names) != 0 {
		t.Fatalf("List = %v, want empty", names)
	}
}

func TestCheckKeyName(t *testing.T) {
	for _, ok := range []string{"a", "issuer-1", "Key_Name"} {
		if err := CheckKeyName(ok); err != nil {
			t.Fatalf("CheckKeyName(%q): %v", ok, err)
		}
	}
	for _, bad := range []string{"", "a/b", "a b", "dot.json"} {
		if err := CheckKeyName(bad); err == nil {
			t.Fatalf("CheckKeyName(%q) accepted", bad)
		}
	}
}
