package smbx

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/castship/castship/internal/deploy"
	"github.com/castship/castship/internal/destinations"
	"github.com/castship/castship/internal/logging"
)

type fakeShare struct {
	files  map[string][]byte
	mkdirs []string
}

func newFakeShare() *fakeShare {
	return &fakeShare{files: make(map[string][]byte)}
}

func (f *fakeShare) ReadFile(name string) ([]byte, error) {
	b, ok := f.files[name]
	if !ok {
		return nil, errors.New("file does not exist")
	}
	return b, nil
}

func (f *fakeShare) WriteFile(name string, data []byte, _ os.FileMode) error {
	f.files[name] = data
	return nil
}

func (f *fakeShare) MkdirAll(p string, _ os.FileMode) error {
	f.mkdirs = append(f.mkdirs, p)
	return nil
}

func (f *fakeShare) ReadDir(string) ([]os.FileInfo, error) { return nil, nil }

func withFakeShare(t *testing.T, sh share) *bool {
	t.Helper()
	closed := false
	orig := mount
	mount = func(destinations.SMBConfig) (share, func(), error) {
		return sh, func() { closed = true }, nil
	}
	t.Cleanup(func() { mount = orig })
	return &closed
}

func discardLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestWinPath(t *testing.T) {
	assert.Equal(t, `media\show\feed.xml`, winPath("media/show/feed.xml"))
	assert.Equal(t, `feed.xml`, winPath("/feed.xml"))
	assert.Equal(t, ``, winPath("/"))
}

func TestBackend_DeployUsesBackslashPaths(t *testing.T) {
	sh := newFakeShare()
	closed := withFakeShare(t, sh)

	b := New(destinations.SMBConfig{Host: "nas", Port: 445, Share: "media", Prefix: "casts/"}, discardLogger())
	res, err := b.Deploy(context.Background(), &deploy.Input{FeedBytes: []byte("feed")})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Uploaded)
	assert.Contains(t, sh.files, `casts\feed.xml`)
	assert.Contains(t, sh.files, `casts\feed.xml.md5`)
	assert.Equal(t, []string{`casts`}, sh.mkdirs)
	assert.True(t, *closed)
}

func TestBackend_TestAccessClosesSession(t *testing.T) {
	sh := newFakeShare()
	closed := withFakeShare(t, sh)

	b := New(destinations.SMBConfig{Host: "nas", Port: 445, Share: "media"}, discardLogger())
	require.NoError(t, b.TestAccess(context.Background()))
	assert.True(t, *closed)
}
