package cryptox

import (
	"encoding/base64"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/castship/castship/internal/common"
)

func TestOpen_ConfigKey(t *testing.T) {
	key := make([]byte, KeySize)
	encoded := base64.StdEncoding.EncodeToString(key)

	k, err := Open(encoded, "")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if k.Source() != KeySourceConfig {
		t.Fatalf("want KeySourceConfig, got %v", k.Source())
	}
}

func TestOpen_ConfigKeyWrongLength(t *testing.T) {
	encoded := base64.StdEncoding.EncodeToString([]byte("short"))
	if _, err := Open(encoded, ""); !errors.Is(err, common.ErrBadMasterKey) {
		t.Fatalf("want ErrBadMasterKey, got %v", err)
	}
}

func TestOpen_GeneratesAndReloadsFileKey(t *testing.T) {
	keyFile := filepath.Join(t.TempDir(), "keys", "secret.key")

	k1, err := Open("", keyFile)
	if err != nil {
		t.Fatalf("first Open: %v", err)
	}
	if k1.Source() != KeySourceFile {
		t.Fatalf("want KeySourceFile, got %v", k1.Source())
	}

	if runtime.GOOS != "windows" {
		info, err := os.Stat(keyFile)
		if err != nil {
			t.Fatal(err)
		}
		if perm := info.Mode().Perm(); perm != 0o600 {
			t.Fatalf("key file permissions: want 0600, got %o", perm)
		}
	}

	k2, err := Open("", keyFile)
	if err != nil {
		t.Fatalf("second Open: %v", err)
	}
	if string(k1.Key()) != string(k2.Key()) {
		t.Fatal("reloaded key differs from generated key")
	}
}

func TestOpen_CorruptKeyFile(t *testing.T) {
	keyFile := filepath.Join(t.TempDir(), "secret.key")
	if err := os.WriteFile(keyFile, []byte("not base64 !!"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Open("", keyFile); !errors.Is(err, common.ErrBadMasterKey) {
		t.Fatalf("want ErrBadMasterKey, got %v", err)
	}
}
