// Package webdavx deploys artifacts to a WebDAV server (Nextcloud, Apache
// mod_dav, rclone serve, ...).
package webdavx

import (
	"context"
	"fmt"
	"os"

	"github.com/studio-b12/gowebdav"

	"github.com/castship/castship/internal/deploy"
	"github.com/castship/castship/internal/destinations"
	"github.com/castship/castship/internal/logging"
)

// davClient is the slice of *gowebdav.Client the backend uses.
type davClient interface {
	Connect() error
	Read(path string) ([]byte, error)
	Write(path string, data []byte, mode os.FileMode) error
	MkdirAll(path string, mode os.FileMode) error
}

type Backend struct {
	cfg destinations.WebDAVConfig
	log logging.Logger
}

func New(cfg destinations.WebDAVConfig, log logging.Logger) *Backend {
	return &Backend{cfg: cfg, log: log}
}

// newClient is a seam for tests.
var newClient = func(cfg destinations.WebDAVConfig) davClient {
	return gowebdav.NewClient(cfg.URL, cfg.Username, cfg.Password)
}

func (b *Backend) TestAccess(ctx context.Context) error {
	if err := newClient(b.cfg).Connect(); err != nil {
		return fmt.Errorf("connect %s: %w", b.cfg.URL, err)
	}
	return nil
}

func (b *Backend) Deploy(ctx context.Context, in *deploy.Input) (*deploy.Result, error) {
	c := newClient(b.cfg)
	if err := c.Connect(); err != nil {
		return nil, fmt.Errorf("connect %s: %w", b.cfg.URL, err)
	}
	return deploy.Run(ctx, &davFS{client: c}, "/"+b.cfg.Prefix, in, b.log), nil
}

type davFS struct {
	client davClient
}

func (f *davFS) ReadBytes(ctx context.Context, p string) ([]byte, error) {
	return f.client.Read(p)
}

func (f *davFS) WriteBytes(ctx context.Context, p string, data []byte) error {
	return f.client.Write(p, data, 0o644)
}

// EnsureDir swallows MKCOL failures: servers answer 405 for collections
// that already exist, and a genuinely missing one fails the next PUT.
func (f *davFS) EnsureDir(ctx context.Context, p string) error {
	_ = f.client.MkdirAll(p, 0o755)
	return nil
}
