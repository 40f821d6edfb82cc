package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"cv-pipeline/internal/domain/entity"
	"cv-pipeline/internal/domain/port"
	"cv-pipeline/internal/infrastructure/storage"
)

func newTestPipeline(dets []*fakeDetector, seg *fakeSegmenter, store *storage.MemoryArtifactStore, n *fakeNotifier) *PipelineService {
	ds := make([]port.Detector, 0, len(dets))
	for _, d := range dets {
		ds = append(ds, d)
	}
	var notifier port.Notifier
	if n != nil {
		notifier = n
	}
	s := NewPipelineService(ds, seg, store, notifier, zap.NewNop())
	s.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	s.newID = func() string { return "run-1" }
	return s
}

func TestPipelineService_LoadModels(t *testing.T) {
	s := NewPipelineService(nil, nil, storage.NewMemoryArtifactStore(), nil, zap.NewNop())

	loader := &fakeLoader{}
	err := s.LoadModels(context.Background(), []ModelSpec{
		{Name: "yolo11m", Path: "yolo11m.onnx", Loader: loader},
		{Name: "sam2_b", Path: "sam2_b.pt", Loader: loader},
	})
	require.NoError(t, err)
	require.Equal(t, []string{"yolo11m", "sam2_b"}, loader.loaded)

	failing := &fakeLoader{fail: map[string]error{"best_pt": errors.New("no such file")}}
	err = s.LoadModels(context.Background(), []ModelSpec{
		{Name: "best_pt", Path: "best.pt", Loader: failing},
		{Name: "sam2_b", Path: "sam2_b.pt", Loader: failing},
	})
	require.ErrorIs(t, err, entity.ErrModelUnavailable)
	require.Empty(t, failing.loaded)
}

func TestListImages(t *testing.T) {
	dir := t.TempDir()
	writeJPEG(t, dir, "b.jpg", 4, 4)
	writeJPEG(t, dir, "a.jpg", 4, 4)
	writeJPEG(t, dir, "c.png", 4, 4)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "fake.jpg"), []byte("not an image"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.jpg"), 0o755))

	images, err := ListImages(dir, zap.NewNop())
	require.NoError(t, err)
	require.Equal(t, []string{filepath.Join(dir, "a.jpg"), filepath.Join(dir, "b.jpg")}, images)
}

func TestListImages_Empty(t *testing.T) {
	_, err := ListImages(t.TempDir(), zap.NewNop())
	require.ErrorIs(t, err, entity.ErrNoImages)

	_, err = ListImages(filepath.Join(t.TempDir(), "missing"), zap.NewNop())
	require.ErrorIs(t, err, entity.ErrNoImages)
}

func TestPipelineService_Run(t *testing.T) {
	dir := t.TempDir()
	writeJPEG(t, dir, "test1.jpg", 8, 8)
	writeJPEG(t, dir, "test2.jpg", 8, 8)

	a := &fakeDetector{name: "yolo11m", results: map[string][]entity.Detection{
		"test1.jpg": {det("person", 0.9, 1, 1, 4, 4), det("dog", 0.6, 4, 4, 8, 8)},
	}}
	b := &fakeDetector{name: "best_pt", results: map[string][]entity.Detection{
		"test1.jpg": {det("person", 0.8, 0, 0, 3, 3)},
		"test2.jpg": {det("cat", 0.7, 2, 2, 6, 6)},
	}}
	seg := &fakeSegmenter{}
	store := storage.NewMemoryArtifactStore()
	n := &fakeNotifier{}

	m, err := newTestPipeline([]*fakeDetector{a, b}, seg, store, n).Run(context.Background(), dir)
	require.NoError(t, err)

	require.Equal(t, "run-1", m.RunID)
	require.Equal(t, []string{"yolo11m", "best_pt"}, m.Variants)
	require.Equal(t, []string{"test1.jpg", "test2.jpg"}, m.Images)
	require.Len(t, m.Units, 4)
	require.Equal(t, entity.StatusOK, m.Units[0].Status)
	require.Equal(t, 2, m.Units[0].Masks)
	require.Equal(t, entity.StatusOK, m.Units[1].Status)
	require.Equal(t, entity.StatusNoDetections, m.Units[2].Status)
	require.Equal(t, entity.StatusOK, m.Units[3].Status)
	require.Equal(t, 4, m.TotalMasks())

	// пустые детекции не сохраняются и не сегментируются
	require.Equal(t, 3, seg.calls)
	require.False(t, store.Has("test2.jpg", "yolo11m"))
	require.True(t, store.Has("test2.jpg", "best_pt"))

	require.Same(t, m, store.Manifest())
	require.Len(t, n.runs, 1)
	require.Equal(t, "mem", m.OutputDir)
}

func TestPipelineService_DetectFailureIsolated(t *testing.T) {
	dir := t.TempDir()
	writeJPEG(t, dir, "x.jpg", 8, 8)

	a := &fakeDetector{name: "yolo11m", errs: map[string]error{"x.jpg": errors.New("boom")}}
	b := &fakeDetector{name: "best_pt", results: map[string][]entity.Detection{"x.jpg": {det("cat", 0.5, 0, 0, 2, 2)}}}
	seg := &fakeSegmenter{}
	store := storage.NewMemoryArtifactStore()

	m, err := newTestPipeline([]*fakeDetector{a, b}, seg, store, nil).Run(context.Background(), dir)
	require.NoError(t, err)
	require.Equal(t, entity.StatusDetectFailed, m.Units[0].Status)
	require.Equal(t, "boom", m.Units[0].Error)
	require.Equal(t, entity.StatusOK, m.Units[1].Status)
	require.Equal(t, 1, seg.calls)
	require.False(t, store.Has("x.jpg", "yolo11m"))
}

func TestPipelineService_SegmentFailureKeepsDetections(t *testing.T) {
	dir := t.TempDir()
	img := writeJPEG(t, dir, "x.jpg", 8, 8)

	a := &fakeDetector{name: "yolo11m", results: map[string][]entity.Detection{"x.jpg": {det("cat", 0.5, 0, 0, 2, 2)}}}
	seg := &fakeSegmenter{err: entity.ErrTooManyMasks}
	store := storage.NewMemoryArtifactStore()

	units := newTestPipeline([]*fakeDetector{a}, seg, store, nil).ProcessImage(context.Background(), img)
	require.Len(t, units, 1)
	require.Equal(t, entity.StatusSegmentFailed, units[0].Status)
	require.Equal(t, 1, units[0].Detections)
	require.Zero(t, units[0].Masks)
	require.Empty(t, units[0].MasksDir)

	dets, err := store.LoadDetections(store.DetectionsPath("x.jpg", "yolo11m"))
	require.NoError(t, err)
	require.Len(t, dets, 1)
}

func TestPipelineService_FileStore(t *testing.T) {
	in := t.TempDir()
	out := t.TempDir()
	writeJPEG(t, in, "test1.jpg", 8, 8)
	writeJPEG(t, in, "test2.jpg", 8, 8)

	a := &fakeDetector{name: "yolo11m", results: map[string][]entity.Detection{
		"test1.jpg": {det("person", 0.9, 1, 1, 4, 4), det("dog", 0.6, 4, 4, 8, 8)},
	}}
	store := storage.NewFileArtifactStore(out)
	s := NewPipelineService([]port.Detector{a}, &fakeSegmenter{}, store, nil, zap.NewNop())

	m, err := s.Run(context.Background(), in)
	require.NoError(t, err)
	require.Equal(t, out, m.OutputDir)

	require.FileExists(t, filepath.Join(out, "test1.jpg_yolo11m_detections.json"))
	require.FileExists(t, filepath.Join(out, "test1.jpg_yolo11m_masks", "mask_1_person.png"))
	require.FileExists(t, filepath.Join(out, "test1.jpg_yolo11m_masks", "mask_2_dog.png"))
	require.FileExists(t, filepath.Join(out, "run_manifest.json"))

	// test2.jpg без детекций: на диске для него ничего нет
	require.Equal(t, entity.StatusNoDetections, m.Units[1].Status)
	require.NoFileExists(t, filepath.Join(out, "test2.jpg_yolo11m_detections.json"))
	require.NoDirExists(t, filepath.Join(out, "test2.jpg_yolo11m_masks"))
}

func TestPipelineService_Cancelled(t *testing.T) {
	dir := t.TempDir()
	writeJPEG(t, dir, "x.jpg", 8, 8)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	a := &fakeDetector{name: "yolo11m"}
	store := storage.NewMemoryArtifactStore()
	m, err := newTestPipeline([]*fakeDetector{a}, &fakeSegmenter{}, store, nil).Run(ctx, dir)
	require.ErrorIs(t, err, context.Canceled)
	require.Empty(t, m.Units)
	require.Empty(t, a.calls)
	require.NotNil(t, store.Manifest())
}
