package entity

// Режимы вычислений
const (
	ModeGPU = "GPU"
	ModeCPU = "CPU"
)

// VirtualEnvironment сведения о виртуальном окружении
type VirtualEnvironment struct {
	IsVenv     bool   `json:"is_venv"`
	VenvPath   string `json:"venv_path,omitempty"`
	Executable string `json:"executable"`
	GoVersion  string `json:"go_version"`
}

// GPUInfo одна видеокарта из вывода nvidia-smi
type GPUInfo struct {
	Name          string `json:"name"`
	MemoryTotalMB int    `json:"memory_total"`
	MemoryUsedMB  int    `json:"memory_used"`
}

// NvidiaSMIReport результат опроса nvidia-smi
type NvidiaSMIReport struct {
	Available bool      `json:"available"`
	GPUs      []GPUInfo `json:"gpus,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// GPUCapabilities сводка по ускорителю
type GPUCapabilities struct {
	CUDAAvailable bool    `json:"cuda_available"`
	GPUCount      int     `json:"gpu_count"`
	GPUName       string  `json:"gpu_name,omitempty"`
	CUDAVersion   string  `json:"cuda_version,omitempty"`
	GPUMemoryGB   float64 `json:"gpu_memory,omitempty"`
	Mode          string  `json:"mode"`
	Error         string  `json:"error,omitempty"`
}

// MockDataTest результат проверки на синтетических данных
type MockDataTest struct {
	TensorTest bool     `json:"tensor_test"`
	ImageTest  bool     `json:"image_test"`
	Device     string   `json:"device"`
	ImageShape []int    `json:"image_shape,omitempty"`
	Errors     []string `json:"errors"`
}

// Passed true, если обе проверки прошли
func (m MockDataTest) Passed() bool {
	return m.TensorTest && m.ImageTest
}

// SystemInfo общие сведения о системе
type SystemInfo struct {
	Platform   string `json:"platform"`
	GoVersion  string `json:"go_version"`
	Executable string `json:"executable"`
	NumCPU     int    `json:"num_cpu"`
	Cwd        string `json:"cwd"`
}

// ProbeReport неизменяемый итог проверки окружения, собирается один раз.
type ProbeReport struct {
	VirtualEnvironment VirtualEnvironment `json:"virtual_environment"`
	GPUCapabilities    GPUCapabilities    `json:"gpu_capabilities"`
	NvidiaSMI          NvidiaSMIReport    `json:"nvidia_smi"`
	MockDataTest       MockDataTest       `json:"mock_data_test"`
	SystemInfo         SystemInfo         `json:"system_info"`
}

// ExitCode возвращает код завершения CLI проверки окружения
func (r ProbeReport) ExitCode() int {
	if r.MockDataTest.Passed() {
		return 0
	}
	return 1
}
