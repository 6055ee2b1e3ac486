package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/castship/castship/internal/deploy"
)

// baseURLPlaceholder marks the spot in a feed template where the
// destination's public base URL is substituted.
const baseURLPlaceholder = "{{base_url}}"

// Manifest describes one deploy invocation: the feed document and the local
// files behind each published episode.
type Manifest struct {
	FeedPath  string         `json:"feed_path"`
	CoverPath string         `json:"cover_path"`
	Items     []ManifestItem `json:"items"`
}

type ManifestItem struct {
	ID          string `json:"id"`
	AudioPath   string `json:"audio_path"`
	ArtworkPath string `json:"artwork_path"`
}

// LoadManifest reads a manifest file and turns it into a deploy input.
// baseURL fills the feed template's placeholder; when the template carries a
// placeholder, the input also gets a RenderFeed hook so content-addressed
// backends can re-render against their post-upload URL.
func LoadManifest(path, baseURL string) (*deploy.Input, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var m Manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	if m.FeedPath == "" {
		return nil, fmt.Errorf("manifest: feed_path is required")
	}

	template, err := os.ReadFile(m.FeedPath)
	if err != nil {
		return nil, fmt.Errorf("read feed: %w", err)
	}

	render := func(base string) ([]byte, error) {
		return []byte(strings.ReplaceAll(string(template), baseURLPlaceholder, base)), nil
	}

	in := &deploy.Input{CoverPath: m.CoverPath}
	for _, item := range m.Items {
		if item.ID == "" {
			return nil, fmt.Errorf("manifest: every item needs an id")
		}
		in.Items = append(in.Items, deploy.Item{
			ID:          item.ID,
			AudioPath:   item.AudioPath,
			ArtworkPath: item.ArtworkPath,
		})
	}

	if strings.Contains(string(template), baseURLPlaceholder) {
		in.FeedBytes, _ = render(baseURL)
		in.RenderFeed = render
	} else {
		in.FeedBytes = template
	}
	return in, nil
}
