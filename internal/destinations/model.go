// Package destinations owns the per-destination configuration records:
// the protocol mode, the encrypted connection blob, and the typed
// decode/merge logic around it (the credential store).
package destinations

import (
	"fmt"
	"strings"
	"time"

	"github.com/castship/castship/internal/common"
)

// Mode is the protocol discriminator for a destination.
type Mode string

const (
	ModeS3     Mode = "s3"
	ModeFTP    Mode = "ftp"
	ModeSFTP   Mode = "sftp"
	ModeWebDAV Mode = "webdav"
	ModeIPFS   Mode = "ipfs"
	ModeSMB    Mode = "smb"
)

// Modes lists every supported mode, in display order.
var Modes = []Mode{ModeS3, ModeFTP, ModeSFTP, ModeWebDAV, ModeIPFS, ModeSMB}

// ParseMode validates a user-supplied mode string (case-insensitive).
func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Modes {
		if m == known {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: %q", common.ErrUnknownMode, s)
}

// Destination is one configured remote target for a podcast's published
// artifacts. The connection parameters live in EncryptedConfig; the shape of
// the decrypted blob is determined entirely by Mode.
//
// The Legacy* columns carry plaintext connection fields from the pre-blob
// schema. They are re-encrypted and redacted on first read; on migrated rows
// they are empty.
type Destination struct {
	ID            string
	PodcastID     string
	Mode          Mode
	PublicBaseURL string

	EncryptedConfig string

	LegacyHost     string
	LegacyPort     int
	LegacyUsername string
	LegacyPassword string
	LegacyPath     string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NeedsLegacyMigration reports whether this row still carries plaintext
// connection fields instead of an encrypted blob.
func (d *Destination) NeedsLegacyMigration() bool {
	return d.EncryptedConfig == "" && d.LegacyHost != ""
}
