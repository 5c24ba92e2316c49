package intake

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// ImageCapture produces one shelf photo.
type ImageCapture interface {
	Capture(ctx context.Context) ([]byte, error)
}

// FileCapture reads a photo already on disk.
type FileCapture struct {
	Path string
}

func (f FileCapture) Capture(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := strings.TrimSpace(f.Path)
	if path == "" {
		return nil, fmt.Errorf("capture: no file path")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("capture %s: %w", path, err)
	}
	return data, nil
}

type CaptureFunc func(ctx context.Context) ([]byte, error)

func (f CaptureFunc) Capture(ctx context.Context) ([]byte, error) { return f(ctx) }
