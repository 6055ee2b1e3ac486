package deploy

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/castship/castship/internal/logging"
)

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// fakeFS is an in-memory RemoteFS recording every call.
type fakeFS struct {
	objects   map[string][]byte
	dirs      []string
	writeLog  []string
	failRead  map[string]error
	failWrite map[string]error
}

func newFakeFS() *fakeFS {
	return &fakeFS{
		objects:   make(map[string][]byte),
		failRead:  make(map[string]error),
		failWrite: make(map[string]error),
	}
}

func (f *fakeFS) ReadBytes(_ context.Context, p string) ([]byte, error) {
	if err, ok := f.failRead[p]; ok {
		return nil, err
	}
	b, ok := f.objects[p]
	if !ok {
		return nil, errors.New("no such object")
	}
	return b, nil
}

func (f *fakeFS) WriteBytes(_ context.Context, p string, data []byte) error {
	if err, ok := f.failWrite[p]; ok {
		return err
	}
	f.objects[p] = append([]byte{}, data...)
	f.writeLog = append(f.writeLog, p)
	return nil
}

func (f *fakeFS) EnsureDir(_ context.Context, p string) error {
	f.dirs = append(f.dirs, p)
	return nil
}

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestSync_ScenarioFeedPlusOneItem(t *testing.T) {
	fs := newFakeFS()
	audio := writeTemp(t, "ep1.mp3", "audio-bytes")
	in := &Input{
		FeedBytes: []byte(strings.Repeat("x", 200)),
		Items:     []Item{{ID: "ep1", AudioPath: audio}},
	}

	res := Run(context.Background(), fs, "shows/demo/", in, testLogger())

	if res.Uploaded != 2 || res.Skipped != 0 || len(res.Errors) != 0 {
		t.Fatalf("first deploy: %+v", res)
	}
	for _, p := range []string{
		"shows/demo/feed.xml", "shows/demo/feed.xml.md5",
		"shows/demo/items/ep1.mp3", "shows/demo/items/ep1.mp3.md5",
	} {
		if _, ok := fs.objects[p]; !ok {
			t.Fatalf("missing remote object %s; have %v", p, fs.writeLog)
		}
	}
	if len(fs.writeLog) != 4 {
		t.Fatalf("want exactly 4 physical writes, got %d: %v", len(fs.writeLog), fs.writeLog)
	}

	// Idempotence: unchanged redeploy uploads nothing.
	res2 := Run(context.Background(), fs, "shows/demo/", in, testLogger())
	if res2.Uploaded != 0 || res2.Skipped != 2 {
		t.Fatalf("second deploy: %+v", res2)
	}
}

func TestSync_ChangeDetection(t *testing.T) {
	fs := newFakeFS()
	audio := writeTemp(t, "ep1.mp3", "v1")
	in := &Input{FeedBytes: []byte("feed"), Items: []Item{{ID: "ep1", AudioPath: audio}}}

	Run(context.Background(), fs, "", in, testLogger())

	// Mutate exactly one artifact between deploys.
	if err := os.WriteFile(audio, []byte("v2"), 0o600); err != nil {
		t.Fatal(err)
	}

	res := Run(context.Background(), fs, "", in, testLogger())
	if res.Uploaded != 1 || res.Skipped != 1 {
		t.Fatalf("want uploaded=1 skipped=1, got %+v", res)
	}
	if got := string(fs.objects["items/ep1.mp3"]); got != "v2" {
		t.Fatalf("remote audio not replaced: %q", got)
	}
}

func TestSync_PartialFailureIsolation(t *testing.T) {
	fs := newFakeFS()
	okAudio := writeTemp(t, "ep1.mp3", "bytes")
	in := &Input{
		FeedBytes: []byte("feed"),
		Items: []Item{
			{ID: "ep1", AudioPath: okAudio},
			{ID: "ep2", AudioPath: filepath.Join(t.TempDir(), "missing.mp3")},
			{ID: "ep3", AudioPath: writeTemp(t, "ep3.mp3", "more")},
		},
	}

	res := Run(context.Background(), fs, "", in, testLogger())

	if len(res.Errors) != 1 || !strings.Contains(res.Errors[0], "item ep2 audio") {
		t.Fatalf("want exactly one error for ep2, got %v", res.Errors)
	}
	if res.Uploaded != 3 {
		t.Fatalf("siblings must still deploy, got %+v", res)
	}
}

func TestSync_WriteFailureKeepsGoing(t *testing.T) {
	fs := newFakeFS()
	fs.failWrite["feed.xml"] = errors.New("disk full")
	in := &Input{
		FeedBytes: []byte("feed"),
		Items:     []Item{{ID: "ep1", AudioPath: writeTemp(t, "a.mp3", "a")}},
	}

	res := Run(context.Background(), fs, "", in, testLogger())

	if len(res.Errors) != 1 || !strings.HasPrefix(res.Errors[0], "feed:") {
		t.Fatalf("want one feed error, got %v", res.Errors)
	}
	if res.Uploaded != 1 {
		t.Fatalf("item must still upload, got %+v", res)
	}
}

func TestSync_SidecarReadErrorMeansAbsent(t *testing.T) {
	fs := newFakeFS()
	in := &Input{FeedBytes: []byte("feed")}

	Run(context.Background(), fs, "", in, testLogger())

	// A permission error on the sidecar must cause a redundant upload,
	// never a skip.
	fs.failRead["feed.xml.md5"] = errors.New("permission denied")
	res := Run(context.Background(), fs, "", in, testLogger())
	if res.Uploaded != 1 || res.Skipped != 0 {
		t.Fatalf("want redundant upload on sidecar read failure, got %+v", res)
	}
}

func TestSync_FixedOrderAndDirDedup(t *testing.T) {
	fs := newFakeFS()
	cover := writeTemp(t, "cover.jpg", "img")
	a1 := writeTemp(t, "a1.mp3", "a1")
	art1 := writeTemp(t, "art1.png", "p1")
	a2 := writeTemp(t, "a2.mp3", "a2")
	in := &Input{
		FeedBytes: []byte("feed"),
		CoverPath: cover,
		Items: []Item{
			{ID: "ep1", AudioPath: a1, ArtworkPath: art1},
			{ID: "ep2", AudioPath: a2},
		},
	}

	Run(context.Background(), fs, "pub/", in, testLogger())

	wantOrder := []string{
		"pub/feed.xml", "pub/cover.jpg",
		"pub/items/ep1.mp3", "pub/items/ep1.png", "pub/items/ep2.mp3",
	}
	var artifactWrites []string
	for _, w := range fs.writeLog {
		if !strings.HasSuffix(w, SidecarSuffix) {
			artifactWrites = append(artifactWrites, w)
		}
	}
	if strings.Join(artifactWrites, ",") != strings.Join(wantOrder, ",") {
		t.Fatalf("wrong order:\nwant %v\ngot  %v", wantOrder, artifactWrites)
	}

	// "pub" and "pub/items" each ensured once despite multiple artifacts.
	counts := map[string]int{}
	for _, d := range fs.dirs {
		counts[d]++
	}
	if counts["pub"] != 1 || counts["pub/items"] != 1 {
		t.Fatalf("redundant EnsureDir calls: %v", fs.dirs)
	}
}

func TestBuildArtifacts_EmptyPathsSkipped(t *testing.T) {
	in := &Input{
		FeedBytes: []byte("feed"),
		Items:     []Item{{ID: "ep1"}}, // item without audio or artwork
	}
	artifacts := BuildArtifacts(in)
	if len(artifacts) != 1 || artifacts[0].RemotePath != "feed.xml" {
		t.Fatalf("want only the feed artifact, got %+v", artifacts)
	}
}
