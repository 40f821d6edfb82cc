package port

import (
	"context"
	"time"
)

// CommandRunner запускает внешние программы (nvidia-smi)
type CommandRunner interface {
	// Run выполняет команду с таймаутом и возвращает stdout.
	Run(ctx context.Context, timeout time.Duration, name string, args ...string) (stdout string, stderr string, err error)
}

// TensorBackend выполняет пробные вычисления на синтетических данных
type TensorBackend interface {
	// Device имя устройства, на котором идут вычисления
	Device() string

	// TensorTest создаёт случайный тензор 1×3×224×224 и применяет ReLU
	TensorTest() error

	// ImageTest переводит случайное изображение 640×640×3 в тензор NCHW и возвращает его форму
	ImageTest() ([]int, error)
}
