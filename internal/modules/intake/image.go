package intake

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"

	"github.com/yungbote/shelfscan-backend/internal/platform/apierr"
)

// ImageInfo describes a decoded capture header.
type ImageInfo struct {
	Format      string
	Ext         string
	ContentType string
	Width       int
	Height      int
}

var imageFormats = map[string]ImageInfo{
	"jpeg": {Format: "jpeg", Ext: "jpg", ContentType: "image/jpeg"},
	"png":  {Format: "png", Ext: "png", ContentType: "image/png"},
	"webp": {Format: "webp", Ext: "webp", ContentType: "image/webp"},
}

// SniffImage reads only the image header; the pixels are never decoded.
func SniffImage(data []byte) (ImageInfo, error) {
	if len(data) == 0 {
		return ImageInfo{}, apierr.InvalidArgument("image is empty")
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return ImageInfo{}, apierr.Wrap(apierr.CodeInvalidArgument, fmt.Errorf("unrecognized image: %w", err))
	}
	info, ok := imageFormats[format]
	if !ok {
		return ImageInfo{}, apierr.Errorf(apierr.CodeInvalidArgument, "unsupported image format %q", format)
	}
	info.Width, info.Height = cfg.Width, cfg.Height
	return info, nil
}
