// Package deploy contains the protocol-agnostic deployment machinery: the
// artifact set derived from caller input, and the content-addressed
// incremental sync shared by every backend adapter.
package deploy

import (
	"fmt"
	"os"
	"path"
)

// Item is one published episode as supplied by the caller. Paths must
// already be validated by the caller as residing under its media root.
type Item struct {
	ID          string
	AudioPath   string
	ArtworkPath string
}

// Input is the artifact source for one deploy invocation.
type Input struct {
	// FeedBytes is the fully rendered feed document. Always present.
	FeedBytes []byte
	// CoverPath optionally names the collection cover image on local disk.
	CoverPath string
	// Items are the published episodes, in the caller-supplied order.
	Items []Item
	// RenderFeed optionally re-renders the feed for a different public base
	// URL. Backends that only learn their public address after uploading
	// (IPFS) use it for the second feed pass.
	RenderFeed func(baseURL string) ([]byte, error)
}

// Artifact is one logical transferable item. Source is lazy so a read
// failure on one file surfaces as that artifact's error without blocking
// the rest of the set.
type Artifact struct {
	Label      string
	RemotePath string
	Source     func() ([]byte, error)
}

// BuildArtifacts derives the artifact list from caller input, in the fixed
// deploy order: feed, cover, then each item's audio followed by its artwork.
func BuildArtifacts(in *Input) []Artifact {
	artifacts := []Artifact{FeedArtifact(in.FeedBytes)}

	if in.CoverPath != "" {
		artifacts = append(artifacts, fileArtifact("cover", "cover"+path.Ext(in.CoverPath), in.CoverPath))
	}

	for _, item := range in.Items {
		if item.AudioPath != "" {
			artifacts = append(artifacts, fileArtifact(
				fmt.Sprintf("item %s audio", item.ID),
				"items/"+item.ID+path.Ext(item.AudioPath),
				item.AudioPath,
			))
		}
		if item.ArtworkPath != "" {
			artifacts = append(artifacts, fileArtifact(
				fmt.Sprintf("item %s artwork", item.ID),
				"items/"+item.ID+path.Ext(item.ArtworkPath),
				item.ArtworkPath,
			))
		}
	}

	return artifacts
}

// FeedArtifact wraps already-rendered feed bytes as the feed artifact.
// Backends that rewrite the feed after learning their public address push
// the second rendering through it.
func FeedArtifact(feed []byte) Artifact {
	return Artifact{
		Label:      "feed",
		RemotePath: "feed.xml",
		Source:     func() ([]byte, error) { return feed, nil },
	}
}

func fileArtifact(label, remotePath, localPath string) Artifact {
	return Artifact{
		Label:      label,
		RemotePath: remotePath,
		Source:     func() ([]byte, error) { return os.ReadFile(localPath) },
	}
}
