package cryptox

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/castship/castship/internal/common"
)

// KeySize is the required master key length (AES-256).
const KeySize = 32

// KeySource tells where the master key came from.
type KeySource int

const (
	// KeySourceConfig: operator-supplied key from process configuration.
	KeySourceConfig KeySource = iota
	// KeySourceFile: key persisted on local disk, generated on first use.
	KeySourceFile
)

func (s KeySource) String() string {
	switch s {
	case KeySourceConfig:
		return "config"
	case KeySourceFile:
		return "file"
	default:
		return "unknown"
	}
}

// Keyring holds the resolved master key. Losing a file-persisted key without
// having exported it makes all previously encrypted secrets permanently
// unrecoverable. That is a deliberate operational trade-off: castship never
// stores the key anywhere but the operator config or the key file.
type Keyring struct {
	key    []byte
	source KeySource
}

// NewKeyring wraps an already-resolved key. Tests use this to inject keys.
func NewKeyring(key []byte, source KeySource) (*Keyring, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w: want %d bytes, got %d", common.ErrBadMasterKey, KeySize, len(key))
	}
	return &Keyring{key: key, source: source}, nil
}

func (k *Keyring) Key() []byte       { return k.key }
func (k *Keyring) Source() KeySource { return k.source }

// Open resolves the master key. Resolution order:
//
//  1. encodedKey from process configuration: base64, exactly 32 bytes decoded.
//  2. keyFile on disk: read if present, otherwise generate a fresh key and
//     persist it with owner-only permissions.
func Open(encodedKey, keyFile string) (*Keyring, error) {
	if encodedKey != "" {
		key, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encodedKey))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", common.ErrBadMasterKey, err)
		}
		return NewKeyring(key, KeySourceConfig)
	}

	if b, err := os.ReadFile(keyFile); err == nil {
		key, err := base64.StdEncoding.DecodeString(strings.TrimSpace(string(b)))
		if err != nil {
			return nil, fmt.Errorf("%w: key file %s: %v", common.ErrBadMasterKey, keyFile, err)
		}
		return NewKeyring(key, KeySourceFile)
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read key file: %w", err)
	}

	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, err
	}
	if dir := filepath.Dir(keyFile); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(keyFile, []byte(base64.StdEncoding.EncodeToString(key)+"\n"), 0o600); err != nil {
		return nil, fmt.Errorf("persist key file: %w", err)
	}
	return NewKeyring(key, KeySourceFile)
}

var (
	defaultOnce    sync.Once
	defaultKeyring *Keyring
	defaultErr     error
)

// Default resolves the process-wide keyring exactly once. Later calls return
// the first result regardless of arguments; components needing a different
// key (tests, tools) should call Open or NewKeyring directly.
func Default(encodedKey, keyFile string) (*Keyring, error) {
	defaultOnce.Do(func() {
		defaultKeyring, defaultErr = Open(encodedKey, keyFile)
	})
	return defaultKeyring, defaultErr
}
