package destinations

import (
	"fmt"
	"strings"

	"github.com/castship/castship/internal/common"
)

// ModeConfig is the decoded, typed connection configuration of one mode.
// One struct per mode: the JSON field set of each struct is the allow-list
// of what may live inside the encrypted blob for that mode. Decoding into
// the typed struct silently drops anything else, including fields left over
// from a previous mode.
type ModeConfig interface {
	// Mode returns the discriminator this config belongs to.
	Mode() Mode
	// Normalize applies the centralized field normalization rules in place.
	Normalize()
	// Validate reports missing/invalid fields before any network call.
	Validate() error
}

// NormalizePrefix trims the remote path prefix, strips trailing slashes,
// and appends exactly one trailing "/" when non-empty, so remote layout is
// identical regardless of how the operator typed the path.
func NormalizePrefix(p string) string {
	p = strings.TrimSpace(p)
	p = strings.TrimRight(p, "/")
	if p == "" {
		return ""
	}
	return p + "/"
}

// S3Config targets any S3-compatible object store (AWS, MinIO, ...).
type S3Config struct {
	Endpoint     string `json:"endpoint"`
	Region       string `json:"region"`
	Bucket       string `json:"bucket"`
	AccessKey    string `json:"access_key"`
	SecretKey    string `json:"secret_key"`
	Prefix       string `json:"prefix"`
	UsePathStyle bool   `json:"use_path_style"`
}

func (c *S3Config) Mode() Mode { return ModeS3 }

func (c *S3Config) Normalize() {
	c.Prefix = NormalizePrefix(c.Prefix)
}

func (c *S3Config) Validate() error {
	if c.Bucket == "" {
		return fmt.Errorf("%w: bucket is required", common.ErrIncompleteConfig)
	}
	if c.AccessKey == "" || c.SecretKey == "" {
		return fmt.Errorf("%w: access_key and secret_key are required", common.ErrIncompleteConfig)
	}
	return nil
}

type FTPConfig struct {
	Host        string `json:"host"`
	Port        int    `json:"port"`
	Username    string `json:"username"`
	Password    string `json:"password"`
	Prefix      string `json:"prefix"`
	ExplicitTLS bool   `json:"explicit_tls"`
}

func (c *FTPConfig) Mode() Mode { return ModeFTP }

func (c *FTPConfig) Normalize() {
	c.Prefix = NormalizePrefix(c.Prefix)
	if c.Port == 0 {
		c.Port = 21
	}
}

func (c *FTPConfig) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("%w: host is required", common.ErrIncompleteConfig)
	}
	if c.Username == "" {
		return fmt.Errorf("%w: username is required", common.ErrIncompleteConfig)
	}
	return nil
}

type SFTPConfig struct {
	Host       string `json:"host"`
	Port       int    `json:"port"`
	Username   string `json:"username"`
	Password   string `json:"password"`
	PrivateKey string `json:"private_key"`
	Prefix     string `json:"prefix"`
}

func (c *SFTPConfig) Mode() Mode { return ModeSFTP }

// Normalize enforces the auth exclusivity rule: when a private key is
// present the stored password is forced empty, even if both were supplied.
func (c *SFTPConfig) Normalize() {
	c.Prefix = NormalizePrefix(c.Prefix)
	if c.Port == 0 {
		c.Port = 22
	}
	if strings.TrimSpace(c.PrivateKey) != "" {
		c.Password = ""
	}
}

func (c *SFTPConfig) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("%w: host is required", common.ErrIncompleteConfig)
	}
	if c.Username == "" {
		return fmt.Errorf("%w: username is required", common.ErrIncompleteConfig)
	}
	if c.Password == "" && strings.TrimSpace(c.PrivateKey) == "" {
		return fmt.Errorf("%w: password or private_key is required", common.ErrIncompleteConfig)
	}
	return nil
}

type WebDAVConfig struct {
	URL      string `json:"url"`
	Username string `json:"username"`
	Password string `json:"password"`
	Prefix   string `json:"prefix"`
}

func (c *WebDAVConfig) Mode() Mode { return ModeWebDAV }

func (c *WebDAVConfig) Normalize() {
	c.URL = strings.TrimRight(strings.TrimSpace(c.URL), "/")
	c.Prefix = NormalizePrefix(c.Prefix)
}

func (c *WebDAVConfig) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("%w: url is required", common.ErrIncompleteConfig)
	}
	return nil
}

type IPFSConfig struct {
	// APIURL is the address of the IPFS node API (e.g. "localhost:5001").
	APIURL  string `json:"api_url"`
	Gateway string `json:"gateway"`
	Prefix  string `json:"prefix"`
}

func (c *IPFSConfig) Mode() Mode { return ModeIPFS }

func (c *IPFSConfig) Normalize() {
	c.Gateway = strings.TrimRight(strings.TrimSpace(c.Gateway), "/")
	c.Prefix = NormalizePrefix(c.Prefix)
	if c.Prefix == "" {
		c.Prefix = "castship/"
	}
}

func (c *IPFSConfig) Validate() error {
	if c.APIURL == "" {
		return fmt.Errorf("%w: api_url is required", common.ErrIncompleteConfig)
	}
	if c.Gateway == "" {
		return fmt.Errorf("%w: gateway is required", common.ErrIncompleteConfig)
	}
	return nil
}

type SMBConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
	Domain   string `json:"domain"`
	Share    string `json:"share"`
	Prefix   string `json:"prefix"`
}

func (c *SMBConfig) Mode() Mode { return ModeSMB }

func (c *SMBConfig) Normalize() {
	c.Prefix = NormalizePrefix(c.Prefix)
	if c.Port == 0 {
		c.Port = 445
	}
}

func (c *SMBConfig) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("%w: host is required", common.ErrIncompleteConfig)
	}
	if c.Share == "" {
		return fmt.Errorf("%w: share is required", common.ErrIncompleteConfig)
	}
	if c.Username == "" {
		return fmt.Errorf("%w: username is required", common.ErrIncompleteConfig)
	}
	return nil
}

// newConfig returns the zero-valued typed config for a mode.
func newConfig(mode Mode) (ModeConfig, error) {
	switch mode {
	case ModeS3:
		return &S3Config{}, nil
	case ModeFTP:
		return &FTPConfig{}, nil
	case ModeSFTP:
		return &SFTPConfig{}, nil
	case ModeWebDAV:
		return &WebDAVConfig{}, nil
	case ModeIPFS:
		return &IPFSConfig{}, nil
	case ModeSMB:
		return &SMBConfig{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", common.ErrUnknownMode, mode)
	}
}
