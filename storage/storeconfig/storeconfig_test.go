package storeconfig

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"xdao.co/vcjwt/storage/storeregistry"

	_ "xdao.co/vcjwt/storage/localfs"
)

func TestValidate(t *testing.T) {
	if err := (Config{}).Validate(); err == nil {
		t.Fatalf("expected error for empty backends")
	}

	dup := Config{Backends: []BackendConfig{
		{Name: "localfs", ID: "a"},
		{Name: "localfs", ID: "a"},
	}}
	if err := dup.Validate(); err == nil {
		t.Fatalf("expected error for duplicate backend id")
	}

	bad := Config{
		WritePolicy: "quorum",
		Backends:    []BackendConfig{{Name: "localfs"}},
	}
	if err := bad.Validate(); err == nil {
		t.Fatalf("expected error for invalid write_policy")
	}
}

func TestLoadFileAndOpen_LocalFS(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "archive.json")
	cfgJSON := `{"backends":[{"name":"localfs","config":{"localfs-dir":` + quoteJSON(filepath.Join(dir, "objects")) + `}}]}`
	if err := os.WriteFile(cfgPath, []byte(cfgJSON), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	cfg, err := LoadFile(cfgPath)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	st, closeFn, err := cfg.Open(storeregistry.UsageCLI, "")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer func() {
		if err := closeFn(); err != nil {
			t.Fatalf("close failed: %v", err)
		}
	}()

	data := []byte("archived object")
	id, err := st.Put(data)
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	got, err := st.Get(id)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got) != string(data) {
		t.Fatalf("Get returned wrong bytes: got %q want %q", got, data)
	}
}

func TestOpen_PreferredBackendWritesFirst(t *testing.T) {
	dirA := t.TempDir()
	dirB := t.TempDir()
	cfg := Config{Backends: []BackendConfig{
		{Name: "localfs", ID: "a", Config: map[string]string{"localfs-dir": dirA}},
		{Name: "localfs", ID: "b", Config: map[string]string{"localfs-dir": dirB}},
	}}

	st, closeFn, err := cfg.Open(storeregistry.UsageCLI, "b")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer closeFn()

	id, err := st.Put([]byte("preferred write"))
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	// WritePolicy "first" with b preferred: the object lands in b only.
	if entries, _ := os.ReadDir(dirA); len(entries) != 0 {
		t.Fatalf("unexpected objects in non-preferred backend: %d", len(entries))
	}
	if entries, _ := os.ReadDir(dirB); len(entries) == 0 {
		t.Fatalf("expected object %s in preferred backend", id)
	}
}

func TestOpen_UnknownPreferredBackend(t *testing.T) {
	cfg := Config{Backends: []BackendConfig{
		{Name: "localfs", Config: map[string]string{"localfs-dir": t.TempDir()}},
	}}
	if _, _, err := cfg.Open(storeregistry.UsageCLI, "ipfs"); err == nil {
		t.Fatalf("expected error for preferred backend missing from config")
	}
}

func quoteJSON(s string) string {
	b, err := json.Marshal(s)
	if err != nil {
		panic(err)
	}
	return string(b)
}
