package render

import (
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const boxThickness = 2

var face = basicfont.Face7x13

// drawRect рисует контур прямоугольника толщиной t
func drawRect(img *image.RGBA, r image.Rectangle, c color.RGBA, t int) {
	r = r.Intersect(img.Bounds())
	if r.Empty() {
		return
	}
	fill(img, image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+t), c)
	fill(img, image.Rect(r.Min.X, r.Max.Y-t, r.Max.X, r.Max.Y), c)
	fill(img, image.Rect(r.Min.X, r.Min.Y, r.Min.X+t, r.Max.Y), c)
	fill(img, image.Rect(r.Max.X-t, r.Min.Y, r.Max.X, r.Max.Y), c)
}

func fill(img *image.RGBA, r image.Rectangle, c color.RGBA) {
	draw.Draw(img, r.Intersect(img.Bounds()), &image.Uniform{C: c}, image.Point{}, draw.Src)
}

// textWidth ширина строки в пикселях
func textWidth(s string) int {
	return font.MeasureString(face, s).Ceil()
}

// drawText пишет строку, (x, y) задаёт левый верхний угол
func drawText(img *image.RGBA, x, y int, s string, c color.Color) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.P(x, y+face.Ascent),
	}
	d.DrawString(s)
}

// drawLabel подпись на залитой плашке над точкой (x, y)
func drawLabel(img *image.RGBA, x, y int, s string, bg, fg color.RGBA) {
	h := face.Height + 4
	top := y - h
	if top < img.Bounds().Min.Y {
		top = y
	}
	fill(img, image.Rect(x, top, x+textWidth(s)+4, top+h), bg)
	drawText(img, x+2, top+2, s, fg)
}
