package fetch

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// servePNG writes a small solid-color PNG to the response.
func servePNG(w http.ResponseWriter, width, height int) {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 10, B: 10, A: 255})
		}
	}
	w.Header().Set("Content-Type", "image/png")
	png.Encode(w, img)
}

func TestFetchImageSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		servePNG(w, 32, 24)
	}))
	defer server.Close()

	f := New()
	img := f.FetchImage(context.Background(), server.URL+"/photo.png")
	if img == nil {
		t.Fatal("FetchImage returned nil")
	}
	b := img.Bounds()
	if b.Dx() != 32 || b.Dy() != 24 {
		t.Errorf("unexpected dimensions %dx%d, want 32x24", b.Dx(), b.Dy())
	}
}

func TestFetchImageFailureReturnsPlaceholder(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "http error status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "gone", http.StatusNotFound)
			},
		},
		{
			name: "undecodable bytes",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("this is not an image"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			f := New()
			img := f.FetchImage(context.Background(), server.URL)
			b := img.Bounds()
			if b.Dx() != placeholderSize || b.Dy() != placeholderSize {
				t.Errorf("placeholder dimensions %dx%d, want %dx%d", b.Dx(), b.Dy(), placeholderSize, placeholderSize)
			}
			if got := img.At(10, 10); got != placeholderGray {
				t.Errorf("placeholder pixel = %v, want %v", got, placeholderGray)
			}
		})
	}
}

func TestFetchImageUnreachableHostReturnsPlaceholder(t *testing.T) {
	f := NewWithTimeouts(500*time.Millisecond, time.Second)
	img := f.FetchImage(context.Background(), "http://127.0.0.1:1/nope.jpg")
	b := img.Bounds()
	if b.Dx() != placeholderSize || b.Dy() != placeholderSize {
		t.Errorf("expected placeholder, got %dx%d", b.Dx(), b.Dy())
	}
}

func TestFetchVideoSuccess(t *testing.T) {
	payload := []byte("fake mp4 payload bytes")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload)
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "video.mp4")
	f := New()
	if err := f.FetchVideo(context.Background(), server.URL, dest); err != nil {
		t.Fatalf("FetchVideo error: %v", err)
	}

	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("reading downloaded video: %v", err)
	}
	if string(data) != string(payload) {
		t.Errorf("downloaded payload mismatch")
	}
}

func TestFetchVideoFailureLeavesNoFile(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "http error status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "nope", http.StatusForbidden)
			},
		},
		{
			name: "empty body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			dest := filepath.Join(t.TempDir(), "video.mp4")
			f := New()
			if err := f.FetchVideo(context.Background(), server.URL, dest); err == nil {
				t.Fatal("expected error, got nil")
			}
			if _, err := os.Stat(dest); !os.IsNotExist(err) {
				t.Errorf("partial file left behind at %s", dest)
			}
		})
	}
}

func TestPlaceholderIsDeterministic(t *testing.T) {
	a := Placeholder()
	b := Placeholder()
	if a.Bounds() != b.Bounds() {
		t.Fatalf("placeholder bounds differ: %v vs %v", a.Bounds(), b.Bounds())
	}
	if a.At(0, 0) != b.At(0, 0) || a.At(399, 399) != b.At(399, 399) {
		t.Error("placeholder pixels differ between calls")
	}
}
