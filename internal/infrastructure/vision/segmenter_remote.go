package vision

import (
	"context"
	"fmt"

	"cv-pipeline/internal/domain/entity"
	"cv-pipeline/internal/domain/port"
)

type rasterPayload struct {
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	ChannelOrder string `json:"channel_order"`
	Data         []byte `json:"data"`
}

type segmentRequest struct {
	Image  rasterPayload        `json:"image"`
	BBoxes []entity.BoundingBox `json:"bboxes"`
}

type maskPayload struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Data   []byte `json:"data"`
}

type segmentResponse struct {
	Masks []maskPayload `json:"masks"`
}

// RemoteSegmenter сегментатор с подсказками-рамками через сервер инференса.
type RemoteSegmenter struct {
	client *InferenceClient
	images port.ImageLoader
	model  string
}

// NewRemoteSegmenter создаёт сегментатор для загруженной модели model
func NewRemoteSegmenter(client *InferenceClient, images port.ImageLoader, model string) *RemoteSegmenter {
	return &RemoteSegmenter{
		client: client,
		images: images,
		model:  model,
	}
}

// Segment возвращает маски по рамкам детекций. Без рамок модель не вызывается.
func (s *RemoteSegmenter) Segment(ctx context.Context, imagePath string, detections []entity.Detection) ([]entity.Mask, error) {
	if len(detections) == 0 {
		return nil, nil
	}

	raster, err := s.images.Load(imagePath)
	if err != nil {
		return nil, fmt.Errorf("load image: %w", err)
	}

	// Сегментатор принимает только RGB.
	rgb, err := raster.ToRGB()
	if err != nil {
		return nil, err
	}
	if rgb.Order != entity.OrderRGB {
		return nil, fmt.Errorf("%w: %q after conversion", entity.ErrChannelOrder, rgb.Order)
	}

	req := segmentRequest{
		Image: rasterPayload{
			Width:        rgb.Width,
			Height:       rgb.Height,
			ChannelOrder: string(rgb.Order),
			Data:         rgb.Pix,
		},
		BBoxes: make([]entity.BoundingBox, 0, len(detections)),
	}
	for _, d := range detections {
		req.BBoxes = append(req.BBoxes, d.BBox)
	}

	var resp segmentResponse
	if err := s.client.post(ctx, "/v1/models/{model}/segment", map[string]string{"model": s.model}, req, &resp); err != nil {
		return nil, fmt.Errorf("%s segment: %w", s.model, err)
	}

	return pairMasks(resp.Masks, detections, rgb.Width, rgb.Height)
}

// pairMasks сопоставляет маски с детекциями по позиции.
func pairMasks(payloads []maskPayload, detections []entity.Detection, width, height int) ([]entity.Mask, error) {
	if len(payloads) > len(detections) {
		return nil, fmt.Errorf("%w: %d masks for %d boxes", entity.ErrTooManyMasks, len(payloads), len(detections))
	}

	masks := make([]entity.Mask, 0, len(payloads))
	for i, p := range payloads {
		if p.Width != width || p.Height != height {
			return nil, fmt.Errorf("mask %d is %dx%d, image is %dx%d", i, p.Width, p.Height, width, height)
		}
		if len(p.Data) != p.Width*p.Height {
			return nil, fmt.Errorf("mask %d has %d pixels, want %d", i, len(p.Data), p.Width*p.Height)
		}

		d := detections[i]
		masks = append(masks, entity.Mask{
			Width:      p.Width,
			Height:     p.Height,
			Pix:        p.Data,
			BBox:       d.BBox,
			Confidence: d.Confidence,
			ClassName:  d.ClassName,
		})
	}
	return masks, nil
}

var _ port.Segmenter = (*RemoteSegmenter)(nil)
