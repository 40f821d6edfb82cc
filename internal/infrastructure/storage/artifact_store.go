package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"

	"cv-pipeline/internal/domain/entity"
	"cv-pipeline/internal/domain/port"
)

const (
	detectionsSuffix = "_detections.json"
	masksSuffix      = "_masks"
	manifestFile     = "run_manifest.json"
)

var maskNamePattern = regexp.MustCompile(`^mask_(\d+)_(.*)\.png$`)

// FileArtifactStore хранит артефакты на диске; связь детекций и масок
// держится только на именах файлов.
type FileArtifactStore struct {
	root string
}

// NewFileArtifactStore создаёт хранилище с корнем root
func NewFileArtifactStore(root string) *FileArtifactStore {
	return &FileArtifactStore{root: root}
}

// Root возвращает корневой каталог
func (s *FileArtifactStore) Root() string {
	return s.root
}

// DetectionsPath {root}/{image}_{variant}_detections.json
func (s *FileArtifactStore) DetectionsPath(imageName, variant string) string {
	return filepath.Join(s.root, imageName+"_"+variant+detectionsSuffix)
}

// MasksDir {root}/{image}_{variant}_masks
func (s *FileArtifactStore) MasksDir(imageName, variant string) string {
	return filepath.Join(s.root, imageName+"_"+variant+masksSuffix)
}

// MaskFilename mask_{index}_{class}.png, index с единицы
func MaskFilename(index int, className string) string {
	return fmt.Sprintf("mask_%d_%s.png", index, sanitizeClassName(className))
}

// Save пишет JSON всегда, а каталог масок только если маски есть.
func (s *FileArtifactStore) Save(imageName, variant string, detections []entity.Detection, masks []entity.Mask) (*port.SavedArtifacts, error) {
	// все маски проверяются до записи: при ошибке на диске ничего не появляется
	grays := make([]*image.Gray, 0, len(masks))
	for i, m := range masks {
		img, err := maskToGray(m)
		if err != nil {
			return nil, fmt.Errorf("mask %d: %w", i+1, err)
		}
		grays = append(grays, img)
	}

	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	if detections == nil {
		detections = []entity.Detection{}
	}
	data, err := json.MarshalIndent(detections, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode detections: %w", err)
	}

	saved := &port.SavedArtifacts{DetectionsFile: s.DetectionsPath(imageName, variant)}
	if err := os.WriteFile(saved.DetectionsFile, data, 0o644); err != nil {
		return nil, fmt.Errorf("write detections: %w", err)
	}

	if len(masks) == 0 {
		return saved, nil
	}

	saved.MasksDir = s.MasksDir(imageName, variant)
	if err := os.MkdirAll(saved.MasksDir, 0o755); err != nil {
		return nil, fmt.Errorf("create masks dir: %w", err)
	}

	for i, m := range masks {
		path := filepath.Join(saved.MasksDir, MaskFilename(i+1, m.ClassName))
		if err := imaging.Save(grays[i], path); err != nil {
			return nil, fmt.Errorf("write mask %d: %w", i+1, err)
		}
		saved.MaskFiles = append(saved.MaskFiles, path)
	}

	return saved, nil
}

// LoadDetections читает JSON с детекциями
func (s *FileArtifactStore) LoadDetections(path string) ([]entity.Detection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read detections: %w", err)
	}

	var detections []entity.Detection
	if err := json.Unmarshal(data, &detections); err != nil {
		return nil, fmt.Errorf("decode detections %s: %w", path, err)
	}
	return detections, nil
}

// LoadMasks читает все PNG из каталога масок в порядке номеров.
func (s *FileArtifactStore) LoadMasks(dir string) ([]entity.StoredMask, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return []entity.StoredMask{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read masks dir: %w", err)
	}

	masks := make([]entity.StoredMask, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".png") {
			continue
		}

		img, err := imaging.Open(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("open mask %s: %w", e.Name(), err)
		}

		gray := toGray(img)
		masks = append(masks, entity.StoredMask{
			Index:    maskIndex(e.Name()),
			Filename: e.Name(),
			Width:    gray.Rect.Dx(),
			Height:   gray.Rect.Dy(),
			Pix:      gray.Pix,
		})
	}

	sort.SliceStable(masks, func(i, j int) bool {
		a, b := masks[i], masks[j]
		if (a.Index == 0) != (b.Index == 0) {
			return a.Index != 0
		}
		if a.Index != b.Index {
			return a.Index < b.Index
		}
		return a.Filename < b.Filename
	})
	return masks, nil
}

// WriteManifest пишет run_manifest.json в корень хранилища
func (s *FileArtifactStore) WriteManifest(manifest *entity.RunManifest) (string, error) {
	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode manifest: %w", err)
	}

	path := filepath.Join(s.root, manifestFile)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write manifest: %w", err)
	}
	return path, nil
}

// maskToGray переводит маску в 8-битное одноканальное изображение 0/255
func maskToGray(m entity.Mask) (*image.Gray, error) {
	if m.Width <= 0 || m.Height <= 0 || len(m.Pix) != m.Width*m.Height {
		return nil, fmt.Errorf("invalid mask %dx%d with %d pixels", m.Width, m.Height, len(m.Pix))
	}

	img := image.NewGray(image.Rect(0, 0, m.Width, m.Height))
	for i, p := range m.Pix {
		if p != 0 {
			img.Pix[i] = 255
		}
	}
	return img, nil
}

func toGray(img image.Image) *image.Gray {
	b := img.Bounds()
	gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	if src, ok := img.(*image.Gray); ok {
		for y := 0; y < b.Dy(); y++ {
			off := src.PixOffset(b.Min.X, b.Min.Y+y)
			copy(gray.Pix[y*gray.Stride:y*gray.Stride+b.Dx()], src.Pix[off:off+b.Dx()])
		}
		return gray
	}

	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			c := color.GrayModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray)
			gray.Pix[y*gray.Stride+x] = c.Y
		}
	}
	return gray
}

func maskIndex(name string) int {
	m := maskNamePattern.FindStringSubmatch(name)
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return n
}

func sanitizeClassName(name string) string {
	return strings.NewReplacer("/", "_", "\\", "_").Replace(name)
}

// Проверка реализации интерфейса
var _ port.ArtifactStore = (*FileArtifactStore)(nil)
