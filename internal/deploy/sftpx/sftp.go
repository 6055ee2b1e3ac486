// Package sftpx deploys artifacts over SFTP.
package sftpx

import (
	"context"
	"fmt"
	"io"
	"net"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"

	"github.com/castship/castship/internal/deploy"
	"github.com/castship/castship/internal/destinations"
	"github.com/castship/castship/internal/logging"
)

const dialTimeout = 10 * time.Second

// client is the slice of the SFTP session the backend uses.
type client interface {
	Getwd() (string, error)
	Open(path string) (io.ReadCloser, error)
	Create(path string) (io.WriteCloser, error)
	MkdirAll(path string) error
	Close() error
}

// sftpClient adapts *sftp.Client together with its ssh transport so one
// Close tears down both.
type sftpClient struct {
	ssh  *ssh.Client
	sftp *sftp.Client
}

func (c *sftpClient) Getwd() (string, error)               { return c.sftp.Getwd() }
func (c *sftpClient) Open(p string) (io.ReadCloser, error) { return c.sftp.Open(p) }
func (c *sftpClient) MkdirAll(p string) error              { return c.sftp.MkdirAll(p) }

func (c *sftpClient) Create(p string) (io.WriteCloser, error) {
	return c.sftp.Create(p)
}

func (c *sftpClient) Close() error {
	err := c.sftp.Close()
	if cerr := c.ssh.Close(); err == nil {
		err = cerr
	}
	return err
}

type Backend struct {
	cfg destinations.SFTPConfig
	log logging.Logger
}

func New(cfg destinations.SFTPConfig, log logging.Logger) *Backend {
	return &Backend{cfg: cfg, log: log}
}

// connect is a seam for tests.
var connect = func(cfg destinations.SFTPConfig) (client, error) {
	auth, err := authMethod(cfg)
	if err != nil {
		return nil, err
	}

	// TODO: pin host keys once destinations grow a known_hosts column.
	sshCfg := &ssh.ClientConfig{
		User:            cfg.Username,
		Auth:            []ssh.AuthMethod{auth},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         dialTimeout,
	}

	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	conn, err := ssh.Dial("tcp", addr, sshCfg)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}

	sc, err := sftp.NewClient(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("sftp session: %w", err)
	}
	return &sftpClient{ssh: conn, sftp: sc}, nil
}

func authMethod(cfg destinations.SFTPConfig) (ssh.AuthMethod, error) {
	if cfg.PrivateKey != "" {
		signer, err := ssh.ParsePrivateKey([]byte(cfg.PrivateKey))
		if err != nil {
			return nil, fmt.Errorf("parse private key: %w", err)
		}
		return ssh.PublicKeys(signer), nil
	}
	return ssh.Password(cfg.Password), nil
}

func (b *Backend) TestAccess(ctx context.Context) error {
	c, err := connect(b.cfg)
	if err != nil {
		return err
	}
	defer c.Close()
	_, err = c.Getwd()
	return err
}

func (b *Backend) Deploy(ctx context.Context, in *deploy.Input) (*deploy.Result, error) {
	c, err := connect(b.cfg)
	if err != nil {
		return nil, err
	}
	defer c.Close()

	root, err := resolveRoot(c, b.cfg.Prefix)
	if err != nil {
		return nil, err
	}
	return deploy.Run(ctx, &sftpFS{client: c}, root, in, b.log), nil
}

// resolveRoot anchors a relative prefix at the login directory; absolute
// prefixes are used as-is.
func resolveRoot(c client, prefix string) (string, error) {
	if strings.HasPrefix(prefix, "/") {
		return prefix, nil
	}
	wd, err := c.Getwd()
	if err != nil {
		return "", fmt.Errorf("working directory: %w", err)
	}
	return path.Join(wd, prefix), nil
}

type sftpFS struct {
	client client
}

func (f *sftpFS) ReadBytes(ctx context.Context, p string) ([]byte, error) {
	r, err := f.client.Open(p)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

func (f *sftpFS) WriteBytes(ctx context.Context, p string, data []byte) error {
	w, err := f.client.Create(p)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

func (f *sftpFS) EnsureDir(ctx context.Context, p string) error {
	return f.client.MkdirAll(p)
}
