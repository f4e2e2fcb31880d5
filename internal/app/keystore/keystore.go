package keystore

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"zk-identity/pkg/zkp"
)

const (
	ProvingKeyFile   = "proving.key"
	VerifyingKeyFile = "verifying.key"
)

// ErrKeyNotFound is returned when a key bundle is absent
var ErrKeyNotFound = errors.New("key not found")

// KeyLoader loads serialized key bundles
type KeyLoader interface {
	Load(kind zkp.KeyKind) ([]byte, error)
}

// FSKeyLoader reads key bundles from a directory
type FSKeyLoader struct {
	Dir string
}

func fileName(kind zkp.KeyKind) (string, error) {
	switch kind {
	case zkp.ProvingKeyKind:
		return ProvingKeyFile, nil
	case zkp.VerifyingKeyKind:
		return VerifyingKeyFile, nil
	}
	return "", fmt.Errorf("unknown key kind %d", uint8(kind))
}

// Load reads the bundle of the given kind
func (m FSKeyLoader) Load(kind zkp.KeyKind) ([]byte, error) {
	name, err := fileName(kind)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(m.Dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, filepath.Join(m.Dir, name))
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Store writes the bundle of the given kind, creating Dir if needed
func (m FSKeyLoader) Store(kind zkp.KeyKind, data []byte) error {
	name, err := fileName(kind)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(m.Dir, 0o755); err != nil {
		return fmt.Errorf("create key dir: %w", err)
	}
	return os.WriteFile(filepath.Join(m.Dir, name), data, 0o600)
}

// OpenLibrary initializes a library from the loader. A missing proving bundle
// yields a verifier-only library; a missing verifying bundle is an error.
func OpenLibrary(loader KeyLoader, opts ...zkp.Option) (*zkp.Library, error) {
	vk, err := loader.Load(zkp.VerifyingKeyKind)
	if err != nil {
		return nil, fmt.Errorf("load verifying key: %w", err)
	}
	pk, err := loader.Load(zkp.ProvingKeyKind)
	if errors.Is(err, ErrKeyNotFound) {
		return zkp.InitializeVerifier(vk, opts...)
	}
	if err != nil {
		return nil, fmt.Errorf("load proving key: %w", err)
	}
	return zkp.Initialize(pk, vk, opts...)
}
