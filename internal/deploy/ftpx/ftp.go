// Package ftpx deploys artifacts over FTP, optionally with explicit TLS.
package ftpx

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/jlaffaye/ftp"

	"github.com/castship/castship/internal/deploy"
	"github.com/castship/castship/internal/destinations"
	"github.com/castship/castship/internal/logging"
)

const dialTimeout = 10 * time.Second

// conn is the slice of the FTP session the backend uses.
type conn interface {
	Retr(path string) (io.ReadCloser, error)
	Stor(path string, r io.Reader) error
	MakeDir(path string) error
	NoOp() error
	Quit() error
}

// serverConn adapts *ftp.ServerConn to the conn interface.
type serverConn struct {
	c *ftp.ServerConn
}

func (s *serverConn) Retr(p string) (io.ReadCloser, error) { return s.c.Retr(p) }
func (s *serverConn) Stor(p string, r io.Reader) error     { return s.c.Stor(p, r) }
func (s *serverConn) MakeDir(p string) error               { return s.c.MakeDir(p) }
func (s *serverConn) NoOp() error                          { return s.c.NoOp() }
func (s *serverConn) Quit() error                          { return s.c.Quit() }

type Backend struct {
	cfg destinations.FTPConfig
	log logging.Logger
}

func New(cfg destinations.FTPConfig, log logging.Logger) *Backend {
	return &Backend{cfg: cfg, log: log}
}

// connect is a seam for tests.
var connect = func(cfg destinations.FTPConfig) (conn, error) {
	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	opts := []ftp.DialOption{ftp.DialWithTimeout(dialTimeout)}
	if cfg.ExplicitTLS {
		opts = append(opts, ftp.DialWithExplicitTLS(&tls.Config{ServerName: cfg.Host}))
	}

	c, err := ftp.Dial(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	if err := c.Login(cfg.Username, cfg.Password); err != nil {
		c.Quit()
		return nil, fmt.Errorf("login: %w", err)
	}
	return &serverConn{c: c}, nil
}

func (b *Backend) TestAccess(ctx context.Context) error {
	c, err := connect(b.cfg)
	if err != nil {
		return err
	}
	defer c.Quit()
	return c.NoOp()
}

func (b *Backend) Deploy(ctx context.Context, in *deploy.Input) (*deploy.Result, error) {
	c, err := connect(b.cfg)
	if err != nil {
		return nil, err
	}
	defer c.Quit()

	fs := &ftpFS{conn: c}
	return deploy.Run(ctx, fs, "/"+b.cfg.Prefix, in, b.log), nil
}

type ftpFS struct {
	conn conn
}

func (f *ftpFS) ReadBytes(ctx context.Context, p string) ([]byte, error) {
	r, err := f.conn.Retr(p)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

func (f *ftpFS) WriteBytes(ctx context.Context, p string, data []byte) error {
	return f.conn.Stor(p, bytes.NewReader(data))
}

// EnsureDir issues MKD for every path segment. Servers answer 550 for
// directories that already exist, so individual failures are ignored and a
// genuinely missing directory surfaces on the following STOR.
func (f *ftpFS) EnsureDir(ctx context.Context, p string) error {
	for _, dir := range parents(p) {
		_ = f.conn.MakeDir(dir)
	}
	return nil
}

// parents expands "/a/b/c" into ["/a", "/a/b", "/a/b/c"].
func parents(p string) []string {
	p = path.Clean(p)
	if p == "/" || p == "." {
		return nil
	}
	segments := strings.Split(strings.TrimPrefix(p, "/"), "/")
	out := make([]string, 0, len(segments))
	cur := ""
	for _, seg := range segments {
		cur += "/" + seg
		out = append(out, cur)
	}
	return out
}
