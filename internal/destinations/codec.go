package destinations

import (
	"encoding/json"
	"fmt"

	"github.com/castship/castship/internal/cryptox"
)

// purposeTag scopes destination-config tokens: a token minted here fails to
// decrypt in any other subsystem, and vice versa.
const purposeTag = "destinations"

// Codec encrypts and decrypts the per-destination configuration blob.
type Codec struct {
	cipher *cryptox.Cipher
}

func NewCodec(c *cryptox.Cipher) *Codec {
	return &Codec{cipher: c}
}

// BuildEncoded builds a typed config for mode from the supplied fields,
// normalizes it, and returns the encrypted token. Fields outside the mode's
// set are dropped.
func (c *Codec) BuildEncoded(mode Mode, fields map[string]any) (string, error) {
	cfg, err := newConfig(mode)
	if err != nil {
		return "", err
	}
	if err := applyFields(cfg, fields); err != nil {
		return "", err
	}
	cfg.Normalize()
	return c.encode(cfg)
}

// DecodeFor decrypts a destination's blob into the typed config for mode.
func (c *Codec) DecodeFor(mode Mode, d *Destination) (ModeConfig, error) {
	cfg, err := newConfig(mode)
	if err != nil {
		return nil, err
	}
	plaintext, err := c.cipher.Decrypt(d.EncryptedConfig, purposeTag)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(plaintext), cfg); err != nil {
		return nil, fmt.Errorf("decode %s config: %w", mode, err)
	}
	cfg.Normalize()
	return cfg, nil
}

// MergeAndEncode overlays a partial update onto the existing blob and
// re-encrypts. The existing fields are first decoded into the typed config
// for the (possibly new) mode, so cross-mode leftovers are dropped; the
// partial fields then override whatever keys they name.
func (c *Codec) MergeAndEncode(mode Mode, existingToken string, partial map[string]any) (string, error) {
	cfg, err := newConfig(mode)
	if err != nil {
		return "", err
	}

	if existingToken != "" && cryptox.IsEncoded(existingToken) {
		plaintext, err := c.cipher.Decrypt(existingToken, purposeTag)
		if err != nil {
			return "", err
		}
		if err := json.Unmarshal([]byte(plaintext), cfg); err != nil {
			return "", fmt.Errorf("decode existing %s config: %w", mode, err)
		}
	}

	if err := applyFields(cfg, partial); err != nil {
		return "", err
	}
	cfg.Normalize()
	return c.encode(cfg)
}

// EncodeLegacy builds an encrypted blob from a row's plaintext legacy
// columns. Used once per record, when the store re-encrypts on first read.
func (c *Codec) EncodeLegacy(d *Destination) (string, error) {
	fields := map[string]any{
		"host":     d.LegacyHost,
		"port":     d.LegacyPort,
		"username": d.LegacyUsername,
		"password": d.LegacyPassword,
		"prefix":   d.LegacyPath,
	}
	return c.BuildEncoded(d.Mode, fields)
}

func (c *Codec) encode(cfg ModeConfig) (string, error) {
	blob, err := json.Marshal(cfg)
	if err != nil {
		return "", err
	}
	return c.cipher.Encrypt(string(blob), purposeTag)
}

// applyFields copies the overlapping keys of a loose field map into the
// typed config. Round-tripping through JSON keeps the typed struct as the
// single source of legal field names per mode.
func applyFields(cfg ModeConfig, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	raw, err := json.Marshal(fields)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, cfg); err != nil {
		return fmt.Errorf("apply %s fields: %w", cfg.Mode(), err)
	}
	return nil
}
