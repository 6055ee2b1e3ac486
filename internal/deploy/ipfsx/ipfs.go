// Package ipfsx deploys artifacts into the MFS of an IPFS node and pins the
// resulting directory tree.
//
// Content addressing makes this backend unusual: the public base URL is the
// root directory CID, which only exists after the artifacts are uploaded.
// Deploy therefore runs in two passes: sync everything, resolve the root
// CID, re-render the feed against the CID gateway URL, sync the feed again,
// then pin the final root.
package ipfsx

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	shell "github.com/ipfs/go-ipfs-api"

	"github.com/castship/castship/internal/deploy"
	"github.com/castship/castship/internal/destinations"
	"github.com/castship/castship/internal/logging"
)

// node is the slice of the IPFS API the backend uses.
type node interface {
	FilesRead(ctx context.Context, path string, options ...shell.FilesOpt) (io.ReadCloser, error)
	FilesWrite(ctx context.Context, path string, data io.Reader, options ...shell.FilesOpt) error
	FilesMkdir(ctx context.Context, path string, options ...shell.FilesOpt) error
	FilesStat(ctx context.Context, path string, options ...shell.FilesOpt) (*shell.FilesStatObject, error)
	Pin(path string) error
}

type Backend struct {
	cfg destinations.IPFSConfig
	log logging.Logger
}

func New(cfg destinations.IPFSConfig, log logging.Logger) *Backend {
	return &Backend{cfg: cfg, log: log}
}

// newNode is a seam for tests.
var newNode = func(cfg destinations.IPFSConfig) node {
	return shell.NewShell(cfg.APIURL)
}

func (b *Backend) root() string {
	return "/" + strings.Trim(b.cfg.Prefix, "/")
}

func (b *Backend) TestAccess(ctx context.Context) error {
	n := newNode(b.cfg)
	if _, err := n.FilesStat(ctx, "/"); err != nil {
		return fmt.Errorf("node %s: %w", b.cfg.APIURL, err)
	}
	return nil
}

func (b *Backend) Deploy(ctx context.Context, in *deploy.Input) (*deploy.Result, error) {
	n := newNode(b.cfg)
	root := b.root()

	if err := n.FilesMkdir(ctx, root, shell.FilesMkdir.Parents(true)); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", root, err)
	}

	fs := &mfsFS{node: n}
	syncer := deploy.NewSyncer(fs, root, b.log)
	res := syncer.Sync(ctx, deploy.BuildArtifacts(in))

	stat, err := n.FilesStat(ctx, root)
	if err != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("resolve root cid: %v", err))
		return res, nil
	}
	res.PublicURL = gatewayURL(b.cfg.Gateway, stat.Hash)

	// Second pass: the feed inside the tree must reference the tree's own
	// CID. Rewriting the feed changes the root CID again, so resolve once
	// more before pinning. The rewrite is counted as part of the same
	// logical feed artifact, not as an extra upload.
	if in.RenderFeed != nil {
		if err := b.rewriteFeed(ctx, syncer, in, res); err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("feed rewrite: %v", err))
		} else if stat, err = n.FilesStat(ctx, root); err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("resolve final cid: %v", err))
			return res, nil
		} else {
			res.PublicURL = gatewayURL(b.cfg.Gateway, stat.Hash)
		}
	}

	if err := n.Pin(stat.Hash); err != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("pin %s: %v", stat.Hash, err))
	}
	return res, nil
}

func (b *Backend) rewriteFeed(ctx context.Context, syncer *deploy.Syncer, in *deploy.Input, res *deploy.Result) error {
	feed, err := in.RenderFeed(res.PublicURL)
	if err != nil {
		return err
	}

	pass := &deploy.Result{}
	syncer.SyncOne(ctx, deploy.FeedArtifact(feed), pass)
	if len(pass.Errors) > 0 {
		return fmt.Errorf("%s", pass.Errors[0])
	}
	return nil
}

func gatewayURL(gateway, cid string) string {
	return strings.TrimRight(gateway, "/") + "/ipfs/" + cid + "/"
}

type mfsFS struct {
	node node
}

func (f *mfsFS) ReadBytes(ctx context.Context, p string) ([]byte, error) {
	r, err := f.node.FilesRead(ctx, p)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

func (f *mfsFS) WriteBytes(ctx context.Context, p string, data []byte) error {
	return f.node.FilesWrite(ctx, p, bytes.NewReader(data),
		shell.FilesWrite.Create(true),
		shell.FilesWrite.Parents(true),
		shell.FilesWrite.Truncate(true),
	)
}

func (f *mfsFS) EnsureDir(ctx context.Context, p string) error {
	return f.node.FilesMkdir(ctx, p, shell.FilesMkdir.Parents(true))
}
