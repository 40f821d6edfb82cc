//go:build !gocv
// +build !gocv

package vision

import (
	"context"
	"errors"
	"fmt"

	"cv-pipeline/internal/domain/entity"
	"cv-pipeline/internal/domain/port"
)

var errNoGoCV = errors.New("gocv build tag is not enabled")

// OnnxDetector заглушка: без тега gocv ONNX-модели недоступны.
type OnnxDetector struct {
	Params YOLOParams

	model string
}

// NewOnnxDetector создаёт детектор-заглушку (без OpenCV).
func NewOnnxDetector(model string, params YOLOParams) *OnnxDetector {
	return &OnnxDetector{model: model, Params: params}
}

func (d *OnnxDetector) Name() string {
	return d.model
}

// Load возвращает ошибку, если сборка без тега gocv.
func (d *OnnxDetector) Load(_ context.Context, name, _ string) error {
	return fmt.Errorf("%w: %s: %v", entity.ErrModelUnavailable, name, errNoGoCV)
}

// Detect возвращает ошибку, если сборка без тега gocv.
func (d *OnnxDetector) Detect(context.Context, string) ([]entity.Detection, error) {
	return nil, errNoGoCV
}

// Close ничего не делает
func (d *OnnxDetector) Close() error {
	return nil
}

var (
	_ port.Detector    = (*OnnxDetector)(nil)
	_ port.ModelLoader = (*OnnxDetector)(nil)
)
