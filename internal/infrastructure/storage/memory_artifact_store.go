package storage

import (
	"fmt"
	"os"
	"path"
	"sync"

	"cv-pipeline/internal/domain/entity"
	"cv-pipeline/internal/domain/port"
)

// MemoryArtifactStore in-memory хранилище артефактов (сухой прогон и тесты)
type MemoryArtifactStore struct {
	mu         sync.RWMutex
	detections map[string][]entity.Detection
	masks      map[string][]entity.Mask
	manifest   *entity.RunManifest
}

// NewMemoryArtifactStore создаёт новое in-memory хранилище
func NewMemoryArtifactStore() *MemoryArtifactStore {
	return &MemoryArtifactStore{
		detections: make(map[string][]entity.Detection),
		masks:      make(map[string][]entity.Mask),
	}
}

// Root корень виртуального каталога
func (s *MemoryArtifactStore) Root() string { return "mem" }

func (s *MemoryArtifactStore) DetectionsPath(imageName, variant string) string {
	return path.Join("mem", imageName+"_"+variant+detectionsSuffix)
}

func (s *MemoryArtifactStore) MasksDir(imageName, variant string) string {
	return path.Join("mem", imageName+"_"+variant+masksSuffix)
}

// Save сохраняет копии детекций и масок
func (s *MemoryArtifactStore) Save(imageName, variant string, detections []entity.Detection, masks []entity.Mask) (*port.SavedArtifacts, error) {
	saved := &port.SavedArtifacts{DetectionsFile: s.DetectionsPath(imageName, variant)}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.detections[saved.DetectionsFile] = append([]entity.Detection{}, detections...)
	if len(masks) == 0 {
		return saved, nil
	}

	saved.MasksDir = s.MasksDir(imageName, variant)
	s.masks[saved.MasksDir] = append([]entity.Mask{}, masks...)
	for i, m := range masks {
		saved.MaskFiles = append(saved.MaskFiles, path.Join(saved.MasksDir, MaskFilename(i+1, m.ClassName)))
	}
	return saved, nil
}

// LoadDetections возвращает сохранённые детекции
func (s *MemoryArtifactStore) LoadDetections(p string) ([]entity.Detection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.detections[p]
	if !ok {
		return nil, fmt.Errorf("detections %s: %w", p, os.ErrNotExist)
	}
	return append([]entity.Detection{}, d...), nil
}

// LoadMasks возвращает маски каталога, для отсутствующего каталога пустой срез
func (s *MemoryArtifactStore) LoadMasks(dir string) ([]entity.StoredMask, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	masks := s.masks[dir]
	out := make([]entity.StoredMask, 0, len(masks))
	for i, m := range masks {
		pix := make([]uint8, len(m.Pix))
		for j, p := range m.Pix {
			if p != 0 {
				pix[j] = 255
			}
		}
		out = append(out, entity.StoredMask{
			Index:    i + 1,
			Filename: MaskFilename(i+1, m.ClassName),
			Width:    m.Width,
			Height:   m.Height,
			Pix:      pix,
		})
	}
	return out, nil
}

// WriteManifest запоминает последний манифест
func (s *MemoryArtifactStore) WriteManifest(manifest *entity.RunManifest) (string, error) {
	s.mu.Lock()
	s.manifest = manifest
	s.mu.Unlock()
	return path.Join("mem", manifestFile), nil
}

// Manifest возвращает последний записанный манифест
func (s *MemoryArtifactStore) Manifest() *entity.RunManifest {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.manifest
}

// Has проверяет, были ли сохранены детекции для пары
func (s *MemoryArtifactStore) Has(imageName, variant string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.detections[s.DetectionsPath(imageName, variant)]
	return ok
}

// Проверка реализации интерфейса
var _ port.ArtifactStore = (*MemoryArtifactStore)(nil)
