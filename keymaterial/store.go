package keymaterial

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Store is a simple local-first directory of named verification keys.
//
// EXPERIMENTAL: this filesystem-backed storage surface is not part of the
// stable core API and may change in MINOR releases.
//
// Keys are stored as canonical limb files, one <name>.json per key. The
// files hold public material only; nothing in a Store is secret.
type Store struct {
	Directory string
}

// DefaultDirectory returns the per-user key directory.
func DefaultDirectory() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".xdao", "vcjwt-keys"), nil
}

// OpenStore opens a store rooted at directory, or at DefaultDirectory when
// directory is empty. The directory is created on first Save, not here.
func OpenStore(directory string) (*Store, error) {
	if directory == "" {
		var err error
		directory, err = DefaultDirectory()
		if err != nil {
			return nil, err
		}
	}
	return &Store{Directory: directory}, nil
}

// CheckKeyName validates a key name: non-empty, [a-zA-Z0-9_-] only.
func CheckKeyName(name string) error {
	if name == "" {
		return errors.New("key name cannot be empty")
	}
	for _, char := range name {
		if (char >= 'a' && char <= 'z') || (char >= 'A' && char <= 'Z') || (char >= '0' && char <= '9') || char == '-' || char == '_' {
			continue
		}
		return fmt.Errorf("invalid character %q in key name", char)
	}
	return nil
}

func (s *Store) pathFor(name string) string {
	return filepath.Join(s.Directory, name+".json")
}

// Save writes the key's canonical limb file under name. Existing files are
// preserved unless overwrite is set.
func (s *Store) Save(name string, k *Key, overwrite bool) (string, error) {
	if err := CheckKeyName(name); err != nil {
		return "", err
	}
	if k == nil {
		return "", errors.New("nil key")
	}
	if err := os.MkdirAll(s.Directory, 0o755); err != nil {
		return "", err
	}
	path := s.pathFor(name)
	flags := os.O_WRONLY | os.O_CREATE
	if overwrite {
		flags |= os.O_TRUNC
	} else {
		flags |= os.O_EXCL
	}
	file, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return "", err
	}
	defer file.Close()
	if _, err := file.Write(k.Encode()); err != nil {
		return "", err
	}
	return path, file.Close()
}

// Load reads and validates the named key.
func (s *Store) Load(name string) (*Key, error) {
	if err := CheckKeyName(name); err != nil {
		return nil, err
	}
	b, err := os.ReadFile(s.pathFor(name))
	if err != nil {
		return nil, err
	}
	return Decode(b)
}

// List returns the stored key names, sorted.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.Directory)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), ".json"))
	}
	sort.Strings(names)
	return names, nil
}
