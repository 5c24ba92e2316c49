package intake

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"
)

type fakeExtractor struct {
	text string
	err  error
	urls []string
}

func (f *fakeExtractor) ExtractText(ctx context.Context, imageURL string) (string, error) {
	f.urls = append(f.urls, imageURL)
	return f.text, f.err
}

type fakeBlobs struct {
	mu      sync.Mutex
	err     error
	paths   []string
	types   []string
	written []int64
}

func (f *fakeBlobs) Upload(ctx context.Context, path, contentType string, data []byte, onProgress func(written, total int64)) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.paths = append(f.paths, path)
	f.types = append(f.types, contentType)
	total := int64(len(data))
	for _, w := range []int64{total / 2, total} {
		f.written = append(f.written, w)
		if onProgress != nil {
			onProgress(w, total)
		}
	}
	return "https://storage.googleapis.com/shelves/" + path, nil
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 3))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}
	return buf.Bytes()
}
