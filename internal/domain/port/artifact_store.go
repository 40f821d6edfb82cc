package port

import (
	"cv-pipeline/internal/domain/entity"
)

// ArtifactStore интерфейс хранилища артефактов (JSON детекций и PNG масок)
type ArtifactStore interface {
	// Save сохраняет детекции и маски для пары (изображение, вариант)
	Save(imageName, variant string, detections []entity.Detection, masks []entity.Mask) (*SavedArtifacts, error)

	// LoadDetections читает JSON с детекциями
	LoadDetections(path string) ([]entity.Detection, error)

	// LoadMasks читает маски из каталога; для отсутствующего каталога пустой результат
	LoadMasks(dir string) ([]entity.StoredMask, error)

	// DetectionsPath и MasksDir раскрывают соглашение об именах файлов
	DetectionsPath(imageName, variant string) string
	MasksDir(imageName, variant string) string

	// WriteManifest сохраняет манифест прогона
	WriteManifest(manifest *entity.RunManifest) (string, error)
}

// SavedArtifacts пути к записанным файлам
type SavedArtifacts struct {
	DetectionsFile string
	MasksDir       string
	MaskFiles      []string
}
