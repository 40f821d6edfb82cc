package render

import (
	"image/color"

	"github.com/lucasb-eyer/go-colorful"
)

// maskPalette цвета масок, перебираются по кругу
var maskPalette = mustPalette("#ff0000", "#00ff00", "#0000ff", "#ffff00", "#ff00ff", "#00ffff")

var (
	boxColor   = color.RGBA{0, 255, 0, 255}
	labelColor = color.RGBA{255, 255, 255, 255}
	background = color.RGBA{255, 255, 255, 255}
	textColor  = color.RGBA{0, 0, 0, 255}
)

func mustPalette(hex ...string) []colorful.Color {
	out := make([]colorful.Color, 0, len(hex))
	for _, h := range hex {
		c, err := colorful.Hex(h)
		if err != nil {
			panic(err)
		}
		out = append(out, c)
	}
	return out
}

// MaskColor цвет i-й маски
func MaskColor(i int) color.RGBA {
	r, g, b := maskPalette[i%len(maskPalette)].RGB255()
	return color.RGBA{r, g, b, 255}
}

// blend смешивает пиксель с цветом маски с прозрачностью alpha
func blend(px color.RGBA, i int, alpha float64) color.RGBA {
	base, _ := colorful.MakeColor(color.RGBA{px.R, px.G, px.B, 255})
	r, g, b := base.BlendRgb(maskPalette[i%len(maskPalette)], alpha).Clamped().RGB255()
	return color.RGBA{r, g, b, 255}
}
