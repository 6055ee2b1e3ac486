// Package smbx deploys artifacts to an SMB/CIFS share.
package smbx

import (
	"context"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hirochachacha/go-smb2"

	"github.com/castship/castship/internal/deploy"
	"github.com/castship/castship/internal/destinations"
	"github.com/castship/castship/internal/logging"
)

const dialTimeout = 10 * time.Second

// share is the slice of *smb2.Share the backend uses.
type share interface {
	ReadFile(name string) ([]byte, error)
	WriteFile(name string, data []byte, perm os.FileMode) error
	MkdirAll(path string, perm os.FileMode) error
	ReadDir(dirname string) ([]os.FileInfo, error)
}

// session owns the TCP connection, the SMB session and the mounted share,
// torn down in reverse order by Close.
type session struct {
	conn  net.Conn
	sess  *smb2.Session
	share *smb2.Share
}

func (s *session) Close() {
	s.share.Umount()
	s.sess.Logoff()
	s.conn.Close()
}

type Backend struct {
	cfg destinations.SMBConfig
	log logging.Logger
}

func New(cfg destinations.SMBConfig, log logging.Logger) *Backend {
	return &Backend{cfg: cfg, log: log}
}

// mount is a seam for tests.
var mount = func(cfg destinations.SMBConfig) (share, func(), error) {
	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	conn, err := net.DialTimeout("tcp", addr, dialTimeout)
	if err != nil {
		return nil, nil, fmt.Errorf("dial %s: %w", addr, err)
	}

	d := &smb2.Dialer{
		Initiator: &smb2.NTLMInitiator{
			User:     cfg.Username,
			Password: cfg.Password,
			Domain:   cfg.Domain,
		},
	}
	sess, err := d.Dial(conn)
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("smb session: %w", err)
	}

	sh, err := sess.Mount(cfg.Share)
	if err != nil {
		sess.Logoff()
		conn.Close()
		return nil, nil, fmt.Errorf("mount %s: %w", cfg.Share, err)
	}

	s := &session{conn: conn, sess: sess, share: sh}
	return sh, s.Close, nil
}

func (b *Backend) TestAccess(ctx context.Context) error {
	sh, closeFn, err := mount(b.cfg)
	if err != nil {
		return err
	}
	defer closeFn()
	_, err = sh.ReadDir(".")
	return err
}

func (b *Backend) Deploy(ctx context.Context, in *deploy.Input) (*deploy.Result, error) {
	sh, closeFn, err := mount(b.cfg)
	if err != nil {
		return nil, err
	}
	defer closeFn()

	return deploy.Run(ctx, &smbFS{share: sh}, b.cfg.Prefix, in, b.log), nil
}

// winPath converts a slash path relative to the share root into the
// backslash form the protocol expects.
func winPath(p string) string {
	return strings.ReplaceAll(strings.Trim(p, "/"), "/", `\`)
}

type smbFS struct {
	share share
}

func (f *smbFS) ReadBytes(ctx context.Context, p string) ([]byte, error) {
	return f.share.ReadFile(winPath(p))
}

func (f *smbFS) WriteBytes(ctx context.Context, p string, data []byte) error {
	return f.share.WriteFile(winPath(p), data, 0o644)
}

func (f *smbFS) EnsureDir(ctx context.Context, p string) error {
	return f.share.MkdirAll(winPath(p), 0o755)
}
