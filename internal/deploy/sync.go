package deploy

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"path"
	"strings"

	"github.com/castship/castship/internal/logging"
)

// SidecarSuffix is appended to every artifact path to form its hash sidecar.
const SidecarSuffix = ".md5"

// RemoteFS is the protocol surface each backend adapter supplies to the
// shared sync algorithm. Paths are slash-separated and already resolved
// relative to the adapter's absolute root.
type RemoteFS interface {
	// ReadBytes returns the content of a remote object. Any error is
	// treated by the syncer as "object absent".
	ReadBytes(ctx context.Context, path string) ([]byte, error)
	// WriteBytes creates or replaces a remote object.
	WriteBytes(ctx context.Context, path string, data []byte) error
	// EnsureDir creates a remote directory chain. Implementations for flat
	// keyspaces may no-op.
	EnsureDir(ctx context.Context, path string) error
}

// Syncer runs the content-addressed upload-or-skip decision over a RemoteFS.
// One Syncer serves one deploy invocation; it remembers which directories it
// already ensured to avoid redundant mkdir round trips.
type Syncer struct {
	fs   RemoteFS
	root string
	log  logging.Logger

	madeDirs map[string]struct{}
}

// NewSyncer binds a Syncer to a remote filesystem and a root prefix
// (normalized, possibly empty).
func NewSyncer(fs RemoteFS, root string, log logging.Logger) *Syncer {
	return &Syncer{fs: fs, root: root, log: log, madeDirs: make(map[string]struct{})}
}

// Sync processes the artifacts strictly in order, one at a time. A failure
// on one artifact is recorded and does not abort the rest.
func (s *Syncer) Sync(ctx context.Context, artifacts []Artifact) *Result {
	res := &Result{}
	for _, a := range artifacts {
		s.syncOne(ctx, a, res)
	}
	return res
}

// SyncOne pushes a single artifact through the same decision as Sync,
// accumulating into an existing result.
func (s *Syncer) SyncOne(ctx context.Context, a Artifact, res *Result) {
	s.syncOne(ctx, a, res)
}

func (s *Syncer) syncOne(ctx context.Context, a Artifact, res *Result) {
	data, err := a.Source()
	if err != nil {
		res.appendError(a.Label, err)
		return
	}

	full := path.Join(s.root, a.RemotePath)
	sum := md5.Sum(data)
	hash := hex.EncodeToString(sum[:])

	// A sidecar read failure of any kind means "absent": the worst case is
	// one redundant upload, never a missed one.
	if remote, err := s.fs.ReadBytes(ctx, full+SidecarSuffix); err == nil {
		if strings.TrimSpace(string(remote)) == hash {
			s.log.Debug(ctx, "artifact unchanged", "path", full)
			res.Skipped++
			return
		}
	}

	if dir := path.Dir(full); dir != "." && dir != "/" {
		if _, done := s.madeDirs[dir]; !done {
			if err := s.fs.EnsureDir(ctx, dir); err != nil {
				res.appendError(a.Label, err)
				return
			}
			s.madeDirs[dir] = struct{}{}
		}
	}

	if err := s.fs.WriteBytes(ctx, full, data); err != nil {
		res.appendError(a.Label, err)
		return
	}
	if err := s.fs.WriteBytes(ctx, full+SidecarSuffix, []byte(hash)); err != nil {
		res.appendError(a.Label, err)
		return
	}

	s.log.Debug(ctx, "artifact uploaded", "path", full, "bytes", len(data))
	res.Uploaded++
}

// Run is the whole-deploy shorthand used by most adapters: build the
// artifact set and sync it.
func Run(ctx context.Context, fs RemoteFS, root string, in *Input, log logging.Logger) *Result {
	return NewSyncer(fs, root, log).Sync(ctx, BuildArtifacts(in))
}
