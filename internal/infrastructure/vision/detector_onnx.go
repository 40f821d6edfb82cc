//go:build gocv
// +build gocv

package vision

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"sync"

	"gocv.io/x/gocv"

	"cv-pipeline/internal/domain/entity"
	"cv-pipeline/internal/domain/port"
)

// OnnxDetector запускает экспортированную в ONNX модель YOLO через OpenCV DNN.
type OnnxDetector struct {
	Params YOLOParams

	model string
	mu    sync.Mutex
	net   gocv.Net
	names map[int]string
	ready bool
}

// NewOnnxDetector создаёт детектор; сеть загружается в Load.
func NewOnnxDetector(model string, params YOLOParams) *OnnxDetector {
	return &OnnxDetector{model: model, Params: params}
}

func (d *OnnxDetector) Name() string {
	return d.model
}

// Load читает веса ONNX и таблицу классов рядом с ними.
func (d *OnnxDetector) Load(ctx context.Context, name, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("%w: %s: weights %s: %v", entity.ErrModelUnavailable, name, path, err)
	}

	net := gocv.ReadNetFromONNX(path)
	if net.Empty() {
		return fmt.Errorf("%w: %s: failed to load network", entity.ErrModelUnavailable, name)
	}
	net.SetPreferableBackend(gocv.NetBackendDefault)
	net.SetPreferableTarget(gocv.NetTargetCPU)

	names, err := loadNamesFile(namesPath(path))
	if err != nil {
		net.Close()
		return fmt.Errorf("%w: %s: class names: %v", entity.ErrModelUnavailable, name, err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.ready {
		d.net.Close()
	}
	d.net = net
	d.names = names
	d.ready = true
	return nil
}

// Detect прогоняет изображение через сеть и применяет NMS.
func (d *OnnxDetector) Detect(ctx context.Context, imagePath string) ([]entity.Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.ready {
		return nil, errors.New("detection network not initialized")
	}
	if _, err := os.Stat(imagePath); errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", entity.ErrImageNotFound, imagePath)
	}

	mat := gocv.IMRead(imagePath, gocv.IMReadColor)
	if mat.Empty() {
		return nil, fmt.Errorf("failed to decode image %s", imagePath)
	}
	defer mat.Close()

	size := d.Params.InputSize
	// swapRB: сеть ждёт RGB, OpenCV читает BGR
	blob := gocv.BlobFromImage(mat, 1.0/255.0, image.Pt(size, size), gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	d.net.SetInput(blob, "")
	output := d.net.Forward("")
	defer output.Close()

	dims := output.Size()
	if len(dims) != 3 {
		return nil, fmt.Errorf("unexpected output shape %v", dims)
	}
	data, err := output.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("read output: %w", err)
	}

	scaleX := float64(mat.Cols()) / float64(size)
	scaleY := float64(mat.Rows()) / float64(size)
	cands, err := decodeYOLO(data, dims[1], dims[2], scaleX, scaleY, d.Params)
	if err != nil {
		return nil, err
	}

	return toDetections(nms(cands, d.Params.NMSThreshold), d.names), nil
}

// Close освобождает сеть
func (d *OnnxDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.ready {
		d.ready = false
		return d.net.Close()
	}
	return nil
}

var (
	_ port.Detector    = (*OnnxDetector)(nil)
	_ port.ModelLoader = (*OnnxDetector)(nil)
)
