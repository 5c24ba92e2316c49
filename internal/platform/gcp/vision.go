package gcp

import (
	"context"
	"fmt"
	"strings"

	vision "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"

	"github.com/yungbote/shelfscan-backend/internal/platform/logger"
)

// VisionOCR runs Cloud Vision text detection on images by URL.
type VisionOCR struct {
	log    *logger.Logger
	client *vision.ImageAnnotatorClient
}

func NewVisionOCR(ctx context.Context, log *logger.Logger) (*VisionOCR, error) {
	client, err := vision.NewImageAnnotatorClient(ctx, ClientOptionsFromEnv()...)
	if err != nil {
		return nil, fmt.Errorf("create vision client: %w", err)
	}
	return &VisionOCR{log: log.With("service", "VisionOCR"), client: client}, nil
}

func (v *VisionOCR) ExtractText(ctx context.Context, imageURL string) (string, error) {
	req := &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{{
			Image:    &visionpb.Image{Source: &visionpb.ImageSource{ImageUri: imageURL}},
			Features: []*visionpb.Feature{{Type: visionpb.Feature_TEXT_DETECTION}},
		}},
	}
	resp, err := v.client.BatchAnnotateImages(ctx, req)
	if err != nil {
		return "", fmt.Errorf("vision text detection: %w", err)
	}
	if len(resp.GetResponses()) == 0 {
		return "", nil
	}
	text, err := textFromResponse(resp.GetResponses()[0])
	if err != nil {
		return "", err
	}
	v.log.Debug("text detected", "chars", len(text))
	return text, nil
}

// textFromResponse prefers the first annotation, which holds the whole
// detected text block.
func textFromResponse(r *visionpb.AnnotateImageResponse) (string, error) {
	if r == nil {
		return "", nil
	}
	if st := r.GetError(); st != nil && st.GetCode() != 0 {
		return "", fmt.Errorf("vision: code %d: %s", st.GetCode(), st.GetMessage())
	}
	if anns := r.GetTextAnnotations(); len(anns) > 0 {
		return anns[0].GetDescription(), nil
	}
	return strings.TrimSpace(r.GetFullTextAnnotation().GetText()), nil
}

func (v *VisionOCR) Close() error {
	if v == nil || v.client == nil {
		return nil
	}
	return v.client.Close()
}
