package entity

import "fmt"

// ChannelOrder порядок каналов в упакованном изображении
type ChannelOrder string

const (
	OrderBGR ChannelOrder = "BGR" // родной порядок OpenCV
	OrderRGB ChannelOrder = "RGB" // порядок, который ждёт сегментатор
)

// Raster декодированное изображение, по 3 байта на пиксель.
type Raster struct {
	Width  int
	Height int
	Order  ChannelOrder
	Pix    []byte
}

// ToRGB возвращает изображение в порядке RGB; BGR переставляется в новый буфер.
func (r Raster) ToRGB() (Raster, error) {
	if len(r.Pix) != r.Width*r.Height*3 {
		return Raster{}, fmt.Errorf("raster %dx%d has %d bytes, want %d", r.Width, r.Height, len(r.Pix), r.Width*r.Height*3)
	}

	switch r.Order {
	case OrderRGB:
		return r, nil
	case OrderBGR:
		pix := make([]byte, len(r.Pix))
		for i := 0; i < len(r.Pix); i += 3 {
			pix[i] = r.Pix[i+2]
			pix[i+1] = r.Pix[i+1]
			pix[i+2] = r.Pix[i]
		}
		return Raster{Width: r.Width, Height: r.Height, Order: OrderRGB, Pix: pix}, nil
	default:
		return Raster{}, fmt.Errorf("%w: %q", ErrChannelOrder, r.Order)
	}
}
