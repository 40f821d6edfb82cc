package entity

import "fmt"

// BoundingBox задаёт рамку объекта в пиксельных координатах [x1, y1, x2, y2].
type BoundingBox [4]float64

// NewBoundingBox создаёт рамку из координат углов.
func NewBoundingBox(x1, y1, x2, y2 float64) BoundingBox {
	return BoundingBox{x1, y1, x2, y2}
}

func (b BoundingBox) X1() float64 { return b[0] }
func (b BoundingBox) Y1() float64 { return b[1] }
func (b BoundingBox) X2() float64 { return b[2] }
func (b BoundingBox) Y2() float64 { return b[3] }

// Valid проверяет, что x1<x2 и y1<y2.
func (b BoundingBox) Valid() bool {
	return b[0] < b[2] && b[1] < b[3]
}

// Width возвращает ширину рамки
func (b BoundingBox) Width() float64 {
	return b[2] - b[0]
}

// Height возвращает высоту рамки
func (b BoundingBox) Height() float64 {
	return b[3] - b[1]
}

// Detection один объект, найденный детектором.
type Detection struct {
	BBox       BoundingBox `json:"bbox"`       // рамка [x1, y1, x2, y2]
	Confidence float64     `json:"confidence"` // уверенность 0..1
	ClassID    int         `json:"class_id"`   // индекс класса модели
	ClassName  string      `json:"class_name"` // имя класса
}

// FallbackClassName возвращает синтетическое имя класса, если таблицы имён нет.
func FallbackClassName(classID int) string {
	return fmt.Sprintf("class_%d", classID)
}

// Boxes возвращает рамки детекций в исходном порядке.
func Boxes(detections []Detection) []BoundingBox {
	boxes := make([]BoundingBox, 0, len(detections))
	for _, d := range detections {
		boxes = append(boxes, d.BBox)
	}
	return boxes
}
