package entity

import "time"

// UnitStatus итог обработки пары (изображение, вариант детектора)
type UnitStatus string

const (
	StatusOK            UnitStatus = "ok"             // детекции и маски сохранены
	StatusNoDetections  UnitStatus = "no_detections"  // детектор ничего не нашёл
	StatusDetectFailed  UnitStatus = "detect_failed"  // ошибка детектора
	StatusSegmentFailed UnitStatus = "segment_failed" // детекции сохранены, маски нет
	StatusSaveFailed    UnitStatus = "save_failed"    // ошибка записи артефактов
)

// UnitResult описывает результат одного прогона детектор → сегментатор → сохранение.
type UnitResult struct {
	Image          string     `json:"image"`
	Variant        string     `json:"variant"`
	Status         UnitStatus `json:"status"`
	Detections     int        `json:"detections"`
	Masks          int        `json:"masks"`
	DetectionsFile string     `json:"detections_file,omitempty"`
	MasksDir       string     `json:"masks_dir,omitempty"`
	Error          string     `json:"error,omitempty"`
}

// RunManifest явная запись о прогоне конвейера.
type RunManifest struct {
	RunID      string       `json:"run_id"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
	InputDir   string       `json:"input_dir"`
	OutputDir  string       `json:"output_dir"`
	Variants   []string     `json:"variants"`
	Images     []string     `json:"images"`
	Units      []UnitResult `json:"units"`
}

// NewRunManifest создаёт пустой манифест прогона
func NewRunManifest(runID, inputDir, outputDir string, variants []string, startedAt time.Time) *RunManifest {
	return &RunManifest{
		RunID:     runID,
		StartedAt: startedAt,
		InputDir:  inputDir,
		OutputDir: outputDir,
		Variants:  variants,
	}
}

// Record добавляет результат обработки
func (m *RunManifest) Record(u UnitResult) {
	m.Units = append(m.Units, u)
}

// Count считает результаты с указанным статусом.
func (m *RunManifest) Count(status UnitStatus) int {
	n := 0
	for _, u := range m.Units {
		if u.Status == status {
			n++
		}
	}
	return n
}

// TotalMasks возвращает общее число сохранённых масок
func (m *RunManifest) TotalMasks() int {
	n := 0
	for _, u := range m.Units {
		n += u.Masks
	}
	return n
}
