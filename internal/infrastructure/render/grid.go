package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"os"
	"path/filepath"

	"github.com/anthonynsimon/bild/imgio"
	"github.com/disintegration/imaging"

	"cv-pipeline/internal/domain/entity"
	"cv-pipeline/internal/domain/port"
)

const (
	// MaskAlpha прозрачность наложения масок
	MaskAlpha = 0.5

	titleHeight   = 28
	captionHeight = 20
	gap           = 6
)

// GridRenderer рисует сетку 2×2: оригинал, детекции, сегментация, всё вместе.
type GridRenderer struct {
	alpha float64
}

// NewGridRenderer создаёт рендерер с прозрачностью масок MaskAlpha
func NewGridRenderer() *GridRenderer {
	return &GridRenderer{alpha: MaskAlpha}
}

// Open декодирует изображение (JPEG/PNG) в RGB
func (r *GridRenderer) Open(path string) (image.Image, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return img, nil
}

// Compose собирает итоговую картинку с заголовком и подписями панелей.
func (r *GridRenderer) Compose(title string, original image.Image, detections []entity.Detection, masks []entity.StoredMask) (image.Image, error) {
	base := toRGBA(original)
	w, h := base.Bounds().Dx(), base.Bounds().Dy()
	if w == 0 || h == 0 {
		return nil, fmt.Errorf("empty image")
	}

	resized := make([]*image.Gray, 0, len(masks))
	for _, m := range masks {
		g, err := fitMask(m, w, h)
		if err != nil {
			return nil, err
		}
		resized = append(resized, g)
	}

	boxes := DrawDetections(base, detections)

	segCaption := "SAM2 Segmentation (No masks)"
	seg, combined := base, boxes
	if len(resized) > 0 {
		segCaption = fmt.Sprintf("SAM2 Segmentation (%d masks)", len(resized))
		seg = OverlayMasks(base, resized, r.alpha)
		combined = OverlayMasks(boxes, resized, r.alpha)
	}

	panels := []struct {
		img     image.Image
		caption string
	}{
		{base, "Original Image"},
		{boxes, fmt.Sprintf("YOLO Detections (%d objects)", len(detections))},
		{seg, segCaption},
		{combined, "Combined Result"},
	}

	cellW, cellH := w+gap, h+captionHeight+gap
	canvas := imaging.New(2*cellW+gap, titleHeight+2*cellH, background)
	for i, p := range panels {
		x := gap + (i%2)*cellW
		y := titleHeight + (i/2)*cellH
		canvas = imaging.Paste(canvas, p.img, image.Pt(x, y+captionHeight))
	}

	out := toRGBA(canvas)
	drawText(out, (out.Bounds().Dx()-textWidth(title))/2, (titleHeight-face.Height)/2, title, textColor)
	for i, p := range panels {
		x := gap + (i%2)*cellW
		y := titleHeight + (i/2)*cellH
		drawText(out, x+(w-textWidth(p.caption))/2, y+(captionHeight-face.Height)/2, p.caption, textColor)
	}
	return out, nil
}

// Save пишет PNG, создавая каталог при необходимости
func (r *GridRenderer) Save(img image.Image, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}
	if err := imgio.Save(path, img, imgio.PNGEncoder()); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

// DrawDetections рисует зелёные рамки с подписями "name: 0.900" на копии изображения.
func DrawDetections(src *image.RGBA, detections []entity.Detection) *image.RGBA {
	out := cloneRGBA(src)
	for _, d := range detections {
		x1, y1 := int(d.BBox.X1()), int(d.BBox.Y1())
		x2, y2 := int(d.BBox.X2()), int(d.BBox.Y2())
		drawRect(out, image.Rect(x1, y1, x2, y2), boxColor, boxThickness)
		drawLabel(out, x1, y1, fmt.Sprintf("%s: %.3f", d.ClassName, d.Confidence), boxColor, labelColor)
	}
	return out
}

// OverlayMasks смешивает пиксели масок с цветами палитры.
// Пиксели вне масок не меняются.
func OverlayMasks(src *image.RGBA, masks []*image.Gray, alpha float64) *image.RGBA {
	out := cloneRGBA(src)
	b := out.Bounds()
	for i, m := range masks {
		for y := 0; y < b.Dy(); y++ {
			for x := 0; x < b.Dx(); x++ {
				if m.GrayAt(x, y).Y == 0 {
					continue
				}
				px := out.RGBAAt(b.Min.X+x, b.Min.Y+y)
				out.SetRGBA(b.Min.X+x, b.Min.Y+y, blend(px, i, alpha))
			}
		}
	}
	return out
}

// fitMask приводит маску к размеру изображения (ближайший сосед)
func fitMask(m entity.StoredMask, w, h int) (*image.Gray, error) {
	if len(m.Pix) != m.Width*m.Height || m.Width <= 0 || m.Height <= 0 {
		return nil, fmt.Errorf("mask %s: %dx%d with %d bytes", m.Filename, m.Width, m.Height, len(m.Pix))
	}
	g := &image.Gray{Pix: m.Pix, Stride: m.Width, Rect: image.Rect(0, 0, m.Width, m.Height)}
	if m.Width == w && m.Height == h {
		return g, nil
	}

	scaled := imaging.Resize(g, w, h, imaging.NearestNeighbor)
	out := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			out.SetGray(x, y, color.Gray{Y: scaled.NRGBAAt(x, y).R})
		}
	}
	return out, nil
}

func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Bounds().Min == (image.Point{}) {
		return rgba
	}
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			out.Set(x, y, img.At(b.Min.X+x, b.Min.Y+y))
		}
	}
	return out
}

func cloneRGBA(src *image.RGBA) *image.RGBA {
	out := image.NewRGBA(src.Bounds())
	draw.Draw(out, out.Bounds(), src, src.Bounds().Min, draw.Src)
	return out
}

var _ port.Renderer = (*GridRenderer)(nil)
