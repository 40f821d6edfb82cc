package entity

// Mask маска сегментации для одной рамки.
// Pix хранит по байту на пиксель: 0 означает фон, остальные значения объект.
type Mask struct {
	Width      int
	Height     int
	Pix        []uint8
	BBox       BoundingBox
	Confidence float64
	ClassName  string
}

// At возвращает true, если пиксель (x, y) принадлежит объекту.
func (m Mask) At(x, y int) bool {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return false
	}
	return m.Pix[y*m.Width+x] != 0
}

// Area считает количество пикселей объекта.
func (m Mask) Area() int {
	area := 0
	for _, p := range m.Pix {
		if p != 0 {
			area++
		}
	}
	return area
}

// StoredMask маска, прочитанная из хранилища артефактов.
type StoredMask struct {
	Index    int // порядковый номер из имени файла (с 1)
	Filename string
	Width    int
	Height   int
	Pix      []uint8
}
