// Package cryptox implements the symmetric cipher used to keep destination
// credentials encrypted at rest, and the master-key resolution around it.
//
// Tokens are self-describing: "v1:<nonce>:<tag>:<ciphertext>", each part
// base64url-encoded without padding. The purpose tag is bound into the token
// as AEAD associated data, so a token minted for one subsystem cannot be
// replayed into another's decrypt call.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/castship/castship/internal/common"
)

const (
	tokenVersion = "v1"
	nonceSize    = 12
	tagSize      = 16
)

var b64 = base64.RawURLEncoding

// Cipher encrypts and decrypts secret strings with AES-256-GCM using the
// master key held by a Keyring.
type Cipher struct {
	keys *Keyring
}

// NewCipher binds a Cipher to a resolved Keyring.
func NewCipher(k *Keyring) *Cipher {
	return &Cipher{keys: k}
}

func (c *Cipher) aead() (cipher.AEAD, error) {
	block, err := aes.NewCipher(c.keys.Key())
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// Encrypt seals plaintext under the master key with purpose as associated
// data and returns the versioned token.
func (c *Cipher) Encrypt(plaintext, purpose string) (string, error) {
	aead, err := c.aead()
	if err != nil {
		return "", err
	}

	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}

	sealed := aead.Seal(nil, nonce, []byte(plaintext), []byte(purpose))
	ct, tag := sealed[:len(sealed)-tagSize], sealed[len(sealed)-tagSize:]

	return strings.Join([]string{
		tokenVersion,
		b64.EncodeToString(nonce),
		b64.EncodeToString(tag),
		b64.EncodeToString(ct),
	}, ":"), nil
}

// Decrypt opens a token produced by Encrypt. Malformed tokens, a foreign
// purpose tag, or a wrong key all fail atomically: either the exact
// plaintext is returned or an error, never partial output.
func (c *Cipher) Decrypt(token, purpose string) (string, error) {
	nonce, tag, ct, err := splitToken(token)
	if err != nil {
		return "", err
	}

	aead, err := c.aead()
	if err != nil {
		return "", err
	}

	sealed := append(append([]byte{}, ct...), tag...)
	plaintext, err := aead.Open(nil, nonce, sealed, []byte(purpose))
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrDecryptFailed, err)
	}
	return string(plaintext), nil
}

// IsEncoded reports whether value looks like a token this package produced.
// It checks shape only; it does not prove the token decrypts.
func IsEncoded(value string) bool {
	_, _, _, err := splitToken(value)
	return err == nil
}

func splitToken(token string) (nonce, tag, ct []byte, err error) {
	parts := strings.Split(token, ":")
	if len(parts) != 4 || parts[0] != tokenVersion {
		return nil, nil, nil, fmt.Errorf("%w: bad shape", common.ErrMalformedToken)
	}
	if nonce, err = b64.DecodeString(parts[1]); err != nil || len(nonce) != nonceSize {
		return nil, nil, nil, fmt.Errorf("%w: bad nonce", common.ErrMalformedToken)
	}
	if tag, err = b64.DecodeString(parts[2]); err != nil || len(tag) != tagSize {
		return nil, nil, nil, fmt.Errorf("%w: bad auth tag", common.ErrMalformedToken)
	}
	if ct, err = b64.DecodeString(parts[3]); err != nil {
		return nil, nil, nil, fmt.Errorf("%w: bad ciphertext", common.ErrMalformedToken)
	}
	return nonce, tag, ct, nil
}
