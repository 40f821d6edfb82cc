package system

import (
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"

	"cv-pipeline/internal/domain/port"
)

// Размеры синтетических данных
const (
	tensorChannels = 3
	tensorSide     = 224
	imageSide      = 640
)

// GonumBackend считает пробные тензоры на CPU средствами gonum.
type GonumBackend struct {
	rng *rand.Rand
}

// NewGonumBackend создаёт бэкенд с заданным зерном генератора
func NewGonumBackend(seed uint64) *GonumBackend {
	return &GonumBackend{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (b *GonumBackend) Device() string { return "cpu" }

// TensorTest: случайный тензор 1×3×224×224 из N(0,1), затем ReLU.
// Тензор хранится как матрица каналов 3×(224·224).
func (b *GonumBackend) TensorTest() error {
	data := make([]float64, tensorChannels*tensorSide*tensorSide)
	for i := range data {
		data[i] = b.rng.NormFloat64()
	}
	t := mat.NewDense(tensorChannels, tensorSide*tensorSide, data)

	var relu mat.Dense
	relu.Apply(func(_, _ int, v float64) float64 { return max(v, 0) }, t)

	if m := mat.Min(&relu); m < 0 {
		return fmt.Errorf("relu produced negative value %f", m)
	}
	r, c := relu.Dims()
	if r != tensorChannels || c != tensorSide*tensorSide {
		return fmt.Errorf("relu shape %dx%d, want %dx%d", r, c, tensorChannels, tensorSide*tensorSide)
	}
	return nil
}

// ImageTest: случайная картинка 640×640×3 (HWC, uint8) → float-тензор 1×3×640×640 (NCHW).
func (b *GonumBackend) ImageTest() ([]int, error) {
	hwc := make([]uint8, imageSide*imageSide*tensorChannels)
	for i := range hwc {
		hwc[i] = uint8(b.rng.IntN(255))
	}

	chw := ToCHW(hwc, imageSide, imageSide, tensorChannels)
	r, c := chw.Dims()
	if r != tensorChannels || c != imageSide*imageSide {
		return nil, fmt.Errorf("tensor shape %dx%d, want %dx%d", r, c, tensorChannels, imageSide*imageSide)
	}

	// выборочная проверка перестановки осей
	y, x := b.rng.IntN(imageSide), b.rng.IntN(imageSide)
	for ch := 0; ch < tensorChannels; ch++ {
		want := float64(hwc[(y*imageSide+x)*tensorChannels+ch])
		if got := chw.At(ch, y*imageSide+x); got != want {
			return nil, fmt.Errorf("pixel (%d,%d,%d) = %f, want %f", y, x, ch, got, want)
		}
	}
	return []int{1, tensorChannels, imageSide, imageSide}, nil
}

// ToCHW переставляет оси HWC → CHW, одна строка матрицы на канал.
func ToCHW(hwc []uint8, h, w, channels int) *mat.Dense {
	out := mat.NewDense(channels, h*w, nil)
	for i := 0; i < h*w; i++ {
		for ch := 0; ch < channels; ch++ {
			out.Set(ch, i, float64(hwc[i*channels+ch]))
		}
	}
	return out
}

var _ port.TensorBackend = (*GonumBackend)(nil)
