// Package post defines the post descriptor batch consumed and produced by the
// collage pipeline. Descriptors are produced upstream by the scraping layer;
// the pipeline never mutates their fields, it only appends a collage path.
package post

import (
	"encoding/json"
	"fmt"
	"os"
)

// Type identifies the media shape of a post.
type Type string

const (
	// TypeImage is a single-photo post.
	TypeImage Type = "Image"

	// TypeVideo is a single-video post.
	TypeVideo Type = "Video"

	// TypeSidecar is a multi-media carousel post.
	TypeSidecar Type = "Sidecar"
)

// Valid reports whether t is one of the known post types.
func (t Type) Valid() bool {
	switch t {
	case TypeImage, TypeVideo, TypeSidecar:
		return true
	}
	return false
}

// ImageRef is one image asset attached to a post. Video posts carry their
// display thumbnail here with IsThumbnail set.
type ImageRef struct {
	URL         string `json:"url"`
	IsThumbnail bool   `json:"is_thumbnail,omitempty"`
}

// VideoRef is one video asset attached to a post.
type VideoRef struct {
	URL       string `json:"url"`
	ViewCount int64  `json:"viewCount,omitempty"`
}

// Descriptor is one scraped post. Field names follow the scraper's output
// format so batches round-trip through JSON unchanged.
type Descriptor struct {
	ID            string     `json:"id"`
	ShortCode     string     `json:"shortCode,omitempty"`
	Type          Type       `json:"type"`
	Caption       string     `json:"caption"`
	Timestamp     string     `json:"timestamp,omitempty"`
	LikesCount    int64      `json:"likesCount"`
	CommentsCount int64      `json:"commentsCount"`
	VideoViews    int64      `json:"videoViewCount,omitempty"`
	URL           string     `json:"url,omitempty"`
	OwnerUsername string     `json:"ownerUsername,omitempty"`
	Images        []ImageRef `json:"images"`
	Videos        []VideoRef `json:"videos"`

	// CollagePath is appended by the pipeline. Empty means no collage was
	// produced for this post; that is a normal outcome, not an error.
	CollagePath string `json:"collage_path,omitempty"`
}

// Validate checks the fields the pipeline relies on. It is called once at the
// pipeline boundary so jobs never have to probe descriptors defensively.
func (d *Descriptor) Validate() error {
	if d.ID == "" {
		return fmt.Errorf("post descriptor missing id")
	}
	if !d.Type.Valid() {
		return fmt.Errorf("post %s: unknown type %q", d.ID, d.Type)
	}
	if d.LikesCount < 0 || d.CommentsCount < 0 || d.VideoViews < 0 {
		return fmt.Errorf("post %s: negative engagement count", d.ID)
	}
	for i, img := range d.Images {
		if img.URL == "" {
			return fmt.Errorf("post %s: images[%d] missing url", d.ID, i)
		}
	}
	for i, vid := range d.Videos {
		if vid.URL == "" {
			return fmt.Errorf("post %s: videos[%d] missing url", d.ID, i)
		}
	}
	return nil
}

// ValidateBatch validates every descriptor in order and returns the first
// failure with its index.
func ValidateBatch(posts []Descriptor) error {
	for i := range posts {
		if err := posts[i].Validate(); err != nil {
			return fmt.Errorf("batch[%d]: %w", i, err)
		}
	}
	return nil
}

// LoadBatch reads a batch of descriptors from a JSON file. The file may hold
// either a bare array or the scraper's wrapper object with a "posts" field.
func LoadBatch(path string) ([]Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read batch file: %w", err)
	}

	var posts []Descriptor
	if err := json.Unmarshal(data, &posts); err == nil {
		return posts, nil
	}

	var wrapper struct {
		Posts []Descriptor `json:"posts"`
	}
	if err := json.Unmarshal(data, &wrapper); err != nil {
		return nil, fmt.Errorf("failed to parse batch file %s: %w", path, err)
	}
	return wrapper.Posts, nil
}

// SaveBatch writes the augmented batch back out as pretty-printed JSON.
func SaveBatch(path string, posts []Descriptor) error {
	data, err := json.MarshalIndent(posts, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode batch: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write batch file: %w", err)
	}
	return nil
}
