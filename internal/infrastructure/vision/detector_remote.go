package vision

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"

	"cv-pipeline/internal/domain/entity"
	"cv-pipeline/internal/domain/port"
)

type detectRequest struct {
	Filename string  `json:"filename"`
	Image    []byte  `json:"image"`
	Conf     float64 `json:"conf,omitempty"`
}

// detectResponse повторяет структуру результата детектора: xyxy, conf, cls
type detectResponse struct {
	Boxes   [][]float64       `json:"boxes"`
	Scores  []float64         `json:"scores"`
	Classes []float64         `json:"classes"`
	Names   map[string]string `json:"names,omitempty"`
}

// RemoteDetector детектор, работающий через сервер инференса.
type RemoteDetector struct {
	client *InferenceClient
	loader *RemoteModelLoader
	model  string
	conf   float64
}

// NewRemoteDetector создаёт детектор для загруженной модели model
func NewRemoteDetector(client *InferenceClient, loader *RemoteModelLoader, model string, conf float64) *RemoteDetector {
	return &RemoteDetector{
		client: client,
		loader: loader,
		model:  model,
		conf:   conf,
	}
}

func (d *RemoteDetector) Name() string {
	return d.model
}

// Detect отправляет изображение на сервер и нормализует ответ.
func (d *RemoteDetector) Detect(ctx context.Context, imagePath string) ([]entity.Detection, error) {
	data, err := os.ReadFile(imagePath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", entity.ErrImageNotFound, imagePath)
	}
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}

	var resp detectResponse
	req := detectRequest{Filename: imagePath, Image: data, Conf: d.conf}
	if err := d.client.post(ctx, "/v1/models/{model}/detect", map[string]string{"model": d.model}, req, &resp); err != nil {
		return nil, fmt.Errorf("%s detect: %w", d.model, err)
	}

	names, err := parseNames(resp.Names)
	if err != nil {
		return nil, fmt.Errorf("%s detect: %w", d.model, err)
	}
	if names == nil && d.loader != nil {
		names = d.loader.Labels(d.model)
	}

	return normalizeDetections(resp, names)
}

// normalizeDetections превращает параллельные массивы ответа в []Detection
func normalizeDetections(resp detectResponse, names map[int]string) ([]entity.Detection, error) {
	n := len(resp.Boxes)
	if len(resp.Scores) != n || len(resp.Classes) != n {
		return nil, fmt.Errorf("malformed detections: %d boxes, %d scores, %d classes", n, len(resp.Scores), len(resp.Classes))
	}

	detections := make([]entity.Detection, 0, n)
	for i := 0; i < n; i++ {
		box := resp.Boxes[i]
		if len(box) != 4 {
			return nil, fmt.Errorf("malformed box %d: %d coordinates", i, len(box))
		}
		classID := int(math.Round(resp.Classes[i]))
		if classID < 0 {
			return nil, fmt.Errorf("negative class id %d", classID)
		}
		score := resp.Scores[i]
		if !(score >= 0 && score <= 1) {
			return nil, fmt.Errorf("confidence %v of box %d out of [0, 1]", score, i)
		}

		// вырожденные рамки отбрасываются
		bbox := entity.NewBoundingBox(box[0], box[1], box[2], box[3])
		if !bbox.Valid() {
			continue
		}

		detections = append(detections, entity.Detection{
			BBox:       bbox,
			Confidence: score,
			ClassID:    classID,
			ClassName:  className(names, classID),
		})
	}
	return detections, nil
}

func className(names map[int]string, classID int) string {
	if name, ok := names[classID]; ok && name != "" {
		return name
	}
	return entity.FallbackClassName(classID)
}

var _ port.Detector = (*RemoteDetector)(nil)
