package vision

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"cv-pipeline/internal/domain/entity"
)

// YOLOParams параметры постобработки выхода YOLO
type YOLOParams struct {
	// InputSize сторона квадратного входа сети
	InputSize int
	// ConfThreshold минимальная уверенность рамки
	ConfThreshold float64
	// NMSThreshold максимальный IoU двух оставляемых рамок одного класса
	NMSThreshold float64
}

// DefaultYOLOParams параметры для моделей, обученных на COCO
func DefaultYOLOParams() YOLOParams {
	return YOLOParams{
		InputSize:     640,
		ConfThreshold: 0.25,
		NMSThreshold:  0.45,
	}
}

type candidate struct {
	box     entity.BoundingBox
	score   float64
	classID int
}

// decodeYOLO разбирает выход формы [1, 4+C, N]: cx, cy, w, h и C оценок классов
// для каждого из N якорей. Координаты переводятся в пиксели исходного изображения.
func decodeYOLO(data []float32, rows, anchors int, scaleX, scaleY float64, p YOLOParams) ([]candidate, error) {
	if rows <= 4 {
		return nil, fmt.Errorf("unexpected output rows %d", rows)
	}
	if len(data) < rows*anchors {
		return nil, fmt.Errorf("output has %d values, want %d", len(data), rows*anchors)
	}

	at := func(r, a int) float64 { return float64(data[r*anchors+a]) }

	var out []candidate
	for a := 0; a < anchors; a++ {
		best, bestScore := -1, 0.0
		for c := 4; c < rows; c++ {
			if s := at(c, a); s > bestScore {
				best, bestScore = c-4, s
			}
		}
		if best < 0 || bestScore < p.ConfThreshold {
			continue
		}

		cx, cy, w, h := at(0, a), at(1, a), at(2, a), at(3, a)
		box := entity.NewBoundingBox(
			(cx-w/2)*scaleX,
			(cy-h/2)*scaleY,
			(cx+w/2)*scaleX,
			(cy+h/2)*scaleY,
		)
		if !box.Valid() {
			continue
		}
		out = append(out, candidate{box: box, score: bestScore, classID: best})
	}
	return out, nil
}

// nms оставляет рамки с наибольшей уверенностью, подавляя пересечения внутри класса.
func nms(cands []candidate, threshold float64) []candidate {
	sorted := append([]candidate(nil), cands...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].score > sorted[j].score })

	removed := make([]bool, len(sorted))
	var keep []candidate
	for i := range sorted {
		if removed[i] {
			continue
		}
		keep = append(keep, sorted[i])
		for j := i + 1; j < len(sorted); j++ {
			if removed[j] || sorted[j].classID != sorted[i].classID {
				continue
			}
			if iou(sorted[i].box, sorted[j].box) > threshold {
				removed[j] = true
			}
		}
	}
	return keep
}

func iou(a, b entity.BoundingBox) float64 {
	x1, y1 := max(a.X1(), b.X1()), max(a.Y1(), b.Y1())
	x2, y2 := min(a.X2(), b.X2()), min(a.Y2(), b.Y2())
	if x2 <= x1 || y2 <= y1 {
		return 0
	}
	inter := (x2 - x1) * (y2 - y1)
	union := a.Width()*a.Height() + b.Width()*b.Height() - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

// loadNamesFile читает имена классов, по одному на строку. Без файла таблицы нет.
func loadNamesFile(path string) (map[int]string, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	names := make(map[int]string)
	scanner := bufio.NewScanner(f)
	for id := 0; scanner.Scan(); id++ {
		if name := strings.TrimSpace(scanner.Text()); name != "" {
			names[id] = name
		}
	}
	return names, scanner.Err()
}

// toDetections переводит кандидатов в детекции с именами классов
func toDetections(cands []candidate, names map[int]string) []entity.Detection {
	detections := make([]entity.Detection, 0, len(cands))
	for _, c := range cands {
		detections = append(detections, entity.Detection{
			BBox:       c.box,
			Confidence: c.score,
			ClassID:    c.classID,
			ClassName:  className(names, c.classID),
		})
	}
	return detections
}

// namesPath путь к файлу имён рядом с весами: model.onnx → model.names
func namesPath(modelPath string) string {
	if i := strings.LastIndex(modelPath, "."); i > strings.LastIndex(modelPath, string(os.PathSeparator)) {
		return modelPath[:i] + ".names"
	}
	return modelPath + ".names"
}
