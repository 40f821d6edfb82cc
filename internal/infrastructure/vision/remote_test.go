package vision

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"cv-pipeline/internal/domain/entity"
)

type fakeLoader struct {
	raster entity.Raster
	err    error
	calls  int
}

func (f *fakeLoader) Load(path string) (entity.Raster, error) {
	f.calls++
	return f.raster, f.err
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func tempFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, data, 0o644))
	return p
}

func TestRemoteModelLoader_Load(t *testing.T) {
	var got loadRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/models/load", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeJSON(w, http.StatusOK, loadResponse{Name: got.Name, Names: map[string]string{"0": "person", "2": "car"}})
	}))
	defer srv.Close()

	weights := tempFile(t, "yolo11m.pt", []byte("weights"))
	loader := NewRemoteModelLoader(NewInferenceClient(srv.URL, 0))

	require.NoError(t, loader.Load(context.Background(), "yolo11m", weights))
	require.Equal(t, "yolo11m", got.Name)
	require.Equal(t, weights, got.Path)
	require.Equal(t, map[int]string{0: "person", 2: "car"}, loader.Labels("yolo11m"))
}

func TestRemoteModelLoader_MissingWeights(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer srv.Close()

	loader := NewRemoteModelLoader(NewInferenceClient(srv.URL, 0))
	err := loader.Load(context.Background(), "sam2_b", filepath.Join(t.TempDir(), "sam2_b.pt"))
	require.ErrorIs(t, err, entity.ErrModelUnavailable)
	require.Zero(t, atomic.LoadInt32(&calls))
}

func TestRemoteModelLoader_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusInternalServerError, apiError{Error: "cuda out of memory"})
	}))
	defer srv.Close()

	loader := NewRemoteModelLoader(NewInferenceClient(srv.URL, 0))
	err := loader.Load(context.Background(), "best_pt", tempFile(t, "best.pt", []byte("w")))
	require.ErrorIs(t, err, entity.ErrModelUnavailable)
	require.ErrorContains(t, err, "cuda out of memory")
}

func TestRemoteDetector_Detect(t *testing.T) {
	img := tempFile(t, "bus.jpg", []byte("jpeg-bytes"))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/models/yolo11m/detect", r.URL.Path)
		var req detectRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, []byte("jpeg-bytes"), req.Image)
		writeJSON(w, http.StatusOK, detectResponse{
			Boxes:   [][]float64{{10, 10, 50, 50}, {1.5, 2.5, 3.5, 4.5}},
			Scores:  []float64{0.9, 0.31},
			Classes: []float64{0, 7},
			Names:   map[string]string{"0": "person"},
		})
	}))
	defer srv.Close()

	det := NewRemoteDetector(NewInferenceClient(srv.URL, 0), nil, "yolo11m", 0.25)
	got, err := det.Detect(context.Background(), img)
	require.NoError(t, err)
	require.Equal(t, []entity.Detection{
		{BBox: entity.NewBoundingBox(10, 10, 50, 50), Confidence: 0.9, ClassID: 0, ClassName: "person"},
		{BBox: entity.NewBoundingBox(1.5, 2.5, 3.5, 4.5), Confidence: 0.31, ClassID: 7, ClassName: "class_7"},
	}, got)
	require.Equal(t, "yolo11m", det.Name())
}

func TestRemoteDetector_NamesFromLoader(t *testing.T) {
	img := tempFile(t, "a.jpg", []byte("x"))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/models/load" {
			writeJSON(w, http.StatusOK, loadResponse{Names: map[string]string{"1": "bottle"}})
			return
		}
		writeJSON(w, http.StatusOK, detectResponse{
			Boxes:   [][]float64{{0, 0, 5, 5}},
			Scores:  []float64{0.5},
			Classes: []float64{1},
		})
	}))
	defer srv.Close()

	client := NewInferenceClient(srv.URL, 0)
	loader := NewRemoteModelLoader(client)
	require.NoError(t, loader.Load(context.Background(), "best_pt", tempFile(t, "best.pt", []byte("w"))))

	got, err := NewRemoteDetector(client, loader, "best_pt", 0.25).Detect(context.Background(), img)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "bottle", got[0].ClassName)
}

func TestRemoteDetector_Empty(t *testing.T) {
	img := tempFile(t, "empty.jpg", []byte("x"))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, detectResponse{})
	}))
	defer srv.Close()

	got, err := NewRemoteDetector(NewInferenceClient(srv.URL, 0), nil, "yolo11m", 0.25).Detect(context.Background(), img)
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestRemoteDetector_MissingImage(t *testing.T) {
	det := NewRemoteDetector(NewInferenceClient("http://127.0.0.1:1", 0), nil, "yolo11m", 0.25)
	_, err := det.Detect(context.Background(), filepath.Join(t.TempDir(), "missing.jpg"))
	require.ErrorIs(t, err, entity.ErrImageNotFound)
}

func TestRemoteDetector_Malformed(t *testing.T) {
	img := tempFile(t, "a.jpg", []byte("x"))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, detectResponse{
			Boxes:   [][]float64{{0, 0, 5, 5}},
			Scores:  []float64{0.5, 0.4},
			Classes: []float64{1},
		})
	}))
	defer srv.Close()

	_, err := NewRemoteDetector(NewInferenceClient(srv.URL, 0), nil, "yolo11m", 0.25).Detect(context.Background(), img)
	require.ErrorContains(t, err, "malformed detections")
}

func TestRemoteDetector_DropsInvalidBoxes(t *testing.T) {
	img := tempFile(t, "a.jpg", []byte("x"))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, detectResponse{
			Boxes:   [][]float64{{50, 50, 10, 10}, {5, 5, 5, 9}, {1, 2, 3, 4}},
			Scores:  []float64{0.9, 0.8, 0.7},
			Classes: []float64{0, 0, 1},
		})
	}))
	defer srv.Close()

	dets, err := NewRemoteDetector(NewInferenceClient(srv.URL, 0), nil, "yolo11m", 0.25).Detect(context.Background(), img)
	require.NoError(t, err)
	require.Len(t, dets, 1)
	require.Equal(t, entity.NewBoundingBox(1, 2, 3, 4), dets[0].BBox)
	require.Equal(t, 0.7, dets[0].Confidence)
}

func TestRemoteDetector_ConfidenceOutOfRange(t *testing.T) {
	img := tempFile(t, "a.jpg", []byte("x"))
	for _, score := range []float64{1.7, -0.1} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, detectResponse{
				Boxes:   [][]float64{{0, 0, 5, 5}},
				Scores:  []float64{score},
				Classes: []float64{0},
			})
		}))

		_, err := NewRemoteDetector(NewInferenceClient(srv.URL, 0), nil, "yolo11m", 0.25).Detect(context.Background(), img)
		require.ErrorContains(t, err, "out of [0, 1]")
		srv.Close()
	}
}

func TestRemoteSegmenter_EmptyBoxesSkipsModel(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer srv.Close()

	loader := &fakeLoader{}
	seg := NewRemoteSegmenter(NewInferenceClient(srv.URL, 0), loader, "sam2_b")

	masks, err := seg.Segment(context.Background(), "whatever.jpg", nil)
	require.NoError(t, err)
	require.Empty(t, masks)
	require.Zero(t, atomic.LoadInt32(&calls))
	require.Zero(t, loader.calls)
}

func TestRemoteSegmenter_ConvertsBGRToRGB(t *testing.T) {
	var got segmentRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/models/sam2_b/segment", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeJSON(w, http.StatusOK, segmentResponse{Masks: []maskPayload{{Width: 2, Height: 1, Data: []byte{1, 0}}}})
	}))
	defer srv.Close()

	loader := &fakeLoader{raster: entity.Raster{Width: 2, Height: 1, Order: entity.OrderBGR, Pix: []byte{1, 2, 3, 4, 5, 6}}}
	seg := NewRemoteSegmenter(NewInferenceClient(srv.URL, 0), loader, "sam2_b")

	dets := []entity.Detection{{BBox: entity.NewBoundingBox(0, 0, 1, 1), Confidence: 0.8, ClassID: 2, ClassName: "car"}}
	masks, err := seg.Segment(context.Background(), "img.jpg", dets)
	require.NoError(t, err)

	require.Equal(t, "RGB", got.Image.ChannelOrder)
	require.Equal(t, []byte{3, 2, 1, 6, 5, 4}, got.Image.Data)
	require.Equal(t, []entity.BoundingBox{dets[0].BBox}, got.BBoxes)

	require.Len(t, masks, 1)
	require.Equal(t, "car", masks[0].ClassName)
	require.Equal(t, 0.8, masks[0].Confidence)
	require.Equal(t, dets[0].BBox, masks[0].BBox)
}

func TestRemoteSegmenter_TooManyMasks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m := maskPayload{Width: 1, Height: 1, Data: []byte{1}}
		writeJSON(w, http.StatusOK, segmentResponse{Masks: []maskPayload{m, m}})
	}))
	defer srv.Close()

	loader := &fakeLoader{raster: entity.Raster{Width: 1, Height: 1, Order: entity.OrderRGB, Pix: []byte{0, 0, 0}}}
	seg := NewRemoteSegmenter(NewInferenceClient(srv.URL, 0), loader, "sam2_b")

	_, err := seg.Segment(context.Background(), "img.jpg", []entity.Detection{{BBox: entity.NewBoundingBox(0, 0, 1, 1)}})
	require.ErrorIs(t, err, entity.ErrTooManyMasks)
}

func TestRemoteSegmenter_FewerMasksPairedPositionally(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, segmentResponse{Masks: []maskPayload{{Width: 1, Height: 1, Data: []byte{1}}}})
	}))
	defer srv.Close()

	loader := &fakeLoader{raster: entity.Raster{Width: 1, Height: 1, Order: entity.OrderRGB, Pix: []byte{0, 0, 0}}}
	seg := NewRemoteSegmenter(NewInferenceClient(srv.URL, 0), loader, "sam2_b")

	dets := []entity.Detection{{ClassName: "first"}, {ClassName: "second"}}
	masks, err := seg.Segment(context.Background(), "img.jpg", dets)
	require.NoError(t, err)
	require.Len(t, masks, 1)
	require.Equal(t, "first", masks[0].ClassName)
}

func TestRemoteSegmenter_UnknownChannelOrder(t *testing.T) {
	loader := &fakeLoader{raster: entity.Raster{Width: 1, Height: 1, Order: "GRAY", Pix: []byte{0, 0, 0}}}
	seg := NewRemoteSegmenter(NewInferenceClient("http://127.0.0.1:1", 0), loader, "sam2_b")

	_, err := seg.Segment(context.Background(), "img.jpg", []entity.Detection{{ClassName: "x"}})
	require.ErrorIs(t, err, entity.ErrChannelOrder)
}

func TestRemoteSegmenter_ServerFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadGateway, apiError{Error: "model crashed"})
	}))
	defer srv.Close()

	loader := &fakeLoader{raster: entity.Raster{Width: 1, Height: 1, Order: entity.OrderRGB, Pix: []byte{0, 0, 0}}}
	seg := NewRemoteSegmenter(NewInferenceClient(srv.URL, 0), loader, "sam2_b")

	_, err := seg.Segment(context.Background(), "img.jpg", []entity.Detection{{ClassName: "x"}})
	require.ErrorContains(t, err, "model crashed")
}
