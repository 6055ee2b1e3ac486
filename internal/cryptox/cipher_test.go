package cryptox

import (
	"errors"
	"strings"
	"testing"

	"github.com/castship/castship/internal/common"
)

func testCipher(t *testing.T) *Cipher {
	t.Helper()
	key := make([]byte, KeySize)
	for i := range key {
		key[i] = byte(i)
	}
	k, err := NewKeyring(key, KeySourceConfig)
	if err != nil {
		t.Fatalf("NewKeyring: %v", err)
	}
	return NewCipher(k)
}

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	c := testCipher(t)

	token, err := c.Encrypt("s3cr3t-password", "destinations")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if !strings.HasPrefix(token, "v1:") {
		t.Fatalf("token not versioned: %q", token)
	}

	got, err := c.Decrypt(token, "destinations")
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if got != "s3cr3t-password" {
		t.Fatalf("round trip mismatch: %q", got)
	}
}

func TestEncrypt_NonceVaries(t *testing.T) {
	c := testCipher(t)

	t1, err := c.Encrypt("same", "p")
	if err != nil {
		t.Fatal(err)
	}
	t2, err := c.Encrypt("same", "p")
	if err != nil {
		t.Fatal(err)
	}
	if t1 == t2 {
		t.Fatal("two encryptions of the same plaintext produced identical tokens")
	}
}

func TestDecrypt_CrossPurposeFails(t *testing.T) {
	c := testCipher(t)

	token, err := c.Encrypt("payload", "exports")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := c.Decrypt(token, "dns"); !errors.Is(err, common.ErrDecryptFailed) {
		t.Fatalf("want ErrDecryptFailed for foreign purpose, got %v", err)
	}
}

func TestDecrypt_WrongKeyFails(t *testing.T) {
	c1 := testCipher(t)

	other := make([]byte, KeySize)
	other[0] = 0xff
	k2, err := NewKeyring(other, KeySourceConfig)
	if err != nil {
		t.Fatal(err)
	}
	c2 := NewCipher(k2)

	token, err := c1.Encrypt("payload", "p")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c2.Decrypt(token, "p"); !errors.Is(err, common.ErrDecryptFailed) {
		t.Fatalf("want ErrDecryptFailed for wrong key, got %v", err)
	}
}

func TestDecrypt_TamperedCiphertextFails(t *testing.T) {
	c := testCipher(t)

	token, err := c.Encrypt("payload", "p")
	if err != nil {
		t.Fatal(err)
	}
	parts := strings.Split(token, ":")
	ct := []byte(parts[3])
	ct[0] ^= 'x'
	parts[3] = string(ct)

	_, err = c.Decrypt(strings.Join(parts, ":"), "p")
	if err == nil {
		t.Fatal("tampered token decrypted")
	}
}

func TestDecrypt_MalformedShapes(t *testing.T) {
	c := testCipher(t)

	for _, token := range []string{
		"",
		"v1",
		"v2:a:b:c",
		"v1:a:b",
		"v1:!!:b:c",
		"v1:AAAA:AAAA:AAAA", // nonce/tag lengths wrong
	} {
		if _, err := c.Decrypt(token, "p"); !errors.Is(err, common.ErrMalformedToken) {
			t.Fatalf("token %q: want ErrMalformedToken, got %v", token, err)
		}
	}
}

func TestIsEncoded(t *testing.T) {
	c := testCipher(t)

	token, err := c.Encrypt("x", "p")
	if err != nil {
		t.Fatal(err)
	}
	if !IsEncoded(token) {
		t.Fatal("valid token not recognized")
	}
	for _, v := range []string{"", "plaintext-password", "v1:a:b", "ftp://host/path"} {
		if IsEncoded(v) {
			t.Fatalf("%q wrongly recognized as encoded", v)
		}
	}
}
