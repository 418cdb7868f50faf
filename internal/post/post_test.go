package post

import (
	"os"
	"path/filepath"
	"testing"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		post    Descriptor
		wantErr bool
	}{
		{
			name: "valid image post",
			post: Descriptor{
				ID:     "p1",
				Type:   TypeImage,
				Images: []ImageRef{{URL: "https://example.com/a.jpg"}},
			},
		},
		{
			name: "valid video post",
			post: Descriptor{
				ID:     "p2",
				Type:   TypeVideo,
				Videos: []VideoRef{{URL: "https://example.com/v.mp4"}},
			},
		},
		{
			name: "sidecar with no media is still valid",
			post: Descriptor{ID: "p3", Type: TypeSidecar},
		},
		{
			name:    "missing id",
			post:    Descriptor{Type: TypeImage},
			wantErr: true,
		},
		{
			name:    "unknown type",
			post:    Descriptor{ID: "p4", Type: "Reel"},
			wantErr: true,
		},
		{
			name: "image without url",
			post: Descriptor{
				ID:     "p5",
				Type:   TypeImage,
				Images: []ImageRef{{URL: ""}},
			},
			wantErr: true,
		},
		{
			name: "negative likes",
			post: Descriptor{
				ID:         "p6",
				Type:       TypeImage,
				LikesCount: -1,
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.post.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadBatchArrayAndWrapper(t *testing.T) {
	dir := t.TempDir()

	arrayFile := filepath.Join(dir, "array.json")
	arrayJSON := `[{"id":"a","type":"Image","caption":"hi","likesCount":10,"commentsCount":2,"images":[{"url":"https://example.com/1.jpg"}],"videos":[]}]`
	if err := os.WriteFile(arrayFile, []byte(arrayJSON), 0o644); err != nil {
		t.Fatal(err)
	}

	posts, err := LoadBatch(arrayFile)
	if err != nil {
		t.Fatalf("LoadBatch(array) error: %v", err)
	}
	if len(posts) != 1 || posts[0].ID != "a" || posts[0].Type != TypeImage {
		t.Errorf("unexpected batch from array file: %+v", posts)
	}

	wrapperFile := filepath.Join(dir, "wrapper.json")
	wrapperJSON := `{"username":"someone","posts":[{"id":"b","type":"Video","caption":"","likesCount":0,"commentsCount":0,"images":[],"videos":[{"url":"https://example.com/v.mp4"}]}]}`
	if err := os.WriteFile(wrapperFile, []byte(wrapperJSON), 0o644); err != nil {
		t.Fatal(err)
	}

	posts, err = LoadBatch(wrapperFile)
	if err != nil {
		t.Fatalf("LoadBatch(wrapper) error: %v", err)
	}
	if len(posts) != 1 || posts[0].ID != "b" || posts[0].Type != TypeVideo {
		t.Errorf("unexpected batch from wrapper file: %+v", posts)
	}
}

func TestSaveBatchRoundTrip(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out.json")

	in := []Descriptor{
		{
			ID:          "a",
			Type:        TypeSidecar,
			Caption:     "three pics",
			LikesCount:  1234,
			Images:      []ImageRef{{URL: "https://example.com/1.jpg"}, {URL: "https://example.com/2.jpg", IsThumbnail: true}},
			CollagePath: "/tmp/collages/collage_0_sidecar.jpg",
		},
	}

	if err := SaveBatch(out, in); err != nil {
		t.Fatalf("SaveBatch error: %v", err)
	}
	got, err := LoadBatch(out)
	if err != nil {
		t.Fatalf("LoadBatch error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 post, got %d", len(got))
	}
	if got[0].CollagePath != in[0].CollagePath {
		t.Errorf("collage_path not preserved: %q", got[0].CollagePath)
	}
	if len(got[0].Images) != 2 || !got[0].Images[1].IsThumbnail {
		t.Errorf("images not preserved: %+v", got[0].Images)
	}
}
