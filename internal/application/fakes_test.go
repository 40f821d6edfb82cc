package app

import (
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"cv-pipeline/internal/domain/entity"
)

type fakeLoader struct {
	loaded []string
	fail   map[string]error
}

func (l *fakeLoader) Load(_ context.Context, name, _ string) error {
	if err := l.fail[name]; err != nil {
		return err
	}
	l.loaded = append(l.loaded, name)
	return nil
}

type fakeDetector struct {
	name    string
	results map[string][]entity.Detection
	errs    map[string]error
	calls   []string
}

func (d *fakeDetector) Name() string { return d.name }

func (d *fakeDetector) Detect(_ context.Context, imagePath string) ([]entity.Detection, error) {
	base := filepath.Base(imagePath)
	d.calls = append(d.calls, base)
	if err := d.errs[base]; err != nil {
		return nil, err
	}
	return d.results[base], nil
}

type fakeSegmenter struct {
	err   error
	calls int
}

func (s *fakeSegmenter) Segment(_ context.Context, _ string, detections []entity.Detection) ([]entity.Mask, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	masks := make([]entity.Mask, 0, len(detections))
	for _, d := range detections {
		pix := make([]uint8, 8*8)
		for y := int(d.BBox.Y1()); y < int(d.BBox.Y2()) && y < 8; y++ {
			for x := int(d.BBox.X1()); x < int(d.BBox.X2()) && x < 8; x++ {
				pix[y*8+x] = 1
			}
		}
		masks = append(masks, entity.Mask{Width: 8, Height: 8, Pix: pix, BBox: d.BBox, Confidence: d.Confidence, ClassName: d.ClassName})
	}
	return masks, nil
}

type fakeNotifier struct {
	mu     sync.Mutex
	runs   []*entity.RunManifest
	images []string
	err    error
}

func (n *fakeNotifier) NotifyRun(_ context.Context, m *entity.RunManifest) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.runs = append(n.runs, m)
	return n.err
}

func (n *fakeNotifier) NotifyImage(_ context.Context, path, _ string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.images = append(n.images, path)
	return n.err
}

// writeJPEG кладёт в каталог настоящий JPEG размером w×h
func writeJPEG(t *testing.T, dir, name string, w, h int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 10), G: uint8(y * 10), B: 128, A: 255})
		}
	}
	p := filepath.Join(dir, name)
	f, err := os.Create(p)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, jpeg.Encode(f, img, nil))
	return p
}

func det(cls string, conf float64, x1, y1, x2, y2 float64) entity.Detection {
	return entity.Detection{BBox: entity.NewBoundingBox(x1, y1, x2, y2), Confidence: conf, ClassName: cls}
}
