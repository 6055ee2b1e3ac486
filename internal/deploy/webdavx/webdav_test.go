package webdavx

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/castship/castship/internal/deploy"
	"github.com/castship/castship/internal/destinations"
	"github.com/castship/castship/internal/logging"
)

type fakeDav struct {
	files      map[string][]byte
	writes     int
	mkdirErr   error
	connectErr error
}

func newFakeDav() *fakeDav {
	return &fakeDav{files: make(map[string][]byte)}
}

func (f *fakeDav) Connect() error { return f.connectErr }

func (f *fakeDav) Read(p string) ([]byte, error) {
	b, ok := f.files[p]
	if !ok {
		return nil, errors.New("404 Not Found")
	}
	return b, nil
}

func (f *fakeDav) Write(p string, data []byte, _ os.FileMode) error {
	f.files[p] = data
	f.writes++
	return nil
}

func (f *fakeDav) MkdirAll(p string, _ os.FileMode) error { return f.mkdirErr }

func withFakeDav(t *testing.T, c davClient) {
	t.Helper()
	orig := newClient
	newClient = func(destinations.WebDAVConfig) davClient { return c }
	t.Cleanup(func() { newClient = orig })
}

func discardLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestBackend_TestAccess(t *testing.T) {
	c := newFakeDav()
	withFakeDav(t, c)

	b := New(destinations.WebDAVConfig{URL: "https://dav.example.com"}, discardLogger())
	require.NoError(t, b.TestAccess(context.Background()))

	c.connectErr = errors.New("401 Unauthorized")
	assert.Error(t, b.TestAccess(context.Background()))
}

func TestBackend_DeployAndRedeploy(t *testing.T) {
	c := newFakeDav()
	// Existing collections make MKCOL fail; deploy must not care.
	c.mkdirErr = errors.New("405 Method Not Allowed")
	withFakeDav(t, c)

	audio := filepath.Join(t.TempDir(), "ep1.mp3")
	require.NoError(t, os.WriteFile(audio, []byte("audio"), 0o600))

	in := &deploy.Input{
		FeedBytes: []byte("feed"),
		Items:     []deploy.Item{{ID: "ep1", AudioPath: audio}},
	}

	b := New(destinations.WebDAVConfig{URL: "https://dav.example.com", Prefix: "casts/"}, discardLogger())

	res, err := b.Deploy(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Uploaded)
	assert.Equal(t, 0, res.Skipped)
	assert.Equal(t, 4, c.writes)
	assert.Contains(t, c.files, "/casts/feed.xml")
	assert.Contains(t, c.files, "/casts/items/ep1.mp3")

	res, err = b.Deploy(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Uploaded)
	assert.Equal(t, 2, res.Skipped)
	assert.Equal(t, 4, c.writes)
}
