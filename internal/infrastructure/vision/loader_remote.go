package vision

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"sync"

	"cv-pipeline/internal/domain/entity"
	"cv-pipeline/internal/domain/port"
)

type loadRequest struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

type loadResponse struct {
	Name  string            `json:"name"`
	Task  string            `json:"task,omitempty"`
	Names map[string]string `json:"names,omitempty"`
}

// RemoteModelLoader загружает веса на сервер инференса и запоминает таблицы классов.
type RemoteModelLoader struct {
	client *InferenceClient

	mu     sync.RWMutex
	labels map[string]map[int]string
}

// NewRemoteModelLoader создаёт загрузчик поверх клиента
func NewRemoteModelLoader(client *InferenceClient) *RemoteModelLoader {
	return &RemoteModelLoader{
		client: client,
		labels: make(map[string]map[int]string),
	}
}

// Load проверяет файл весов и просит сервер загрузить модель
func (l *RemoteModelLoader) Load(ctx context.Context, name, path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("%w: %s: weights %s: %v", entity.ErrModelUnavailable, name, path, err)
	}

	var resp loadResponse
	if err := l.client.post(ctx, "/v1/models/load", nil, loadRequest{Name: name, Path: path}, &resp); err != nil {
		return fmt.Errorf("%w: %s: %v", entity.ErrModelUnavailable, name, err)
	}

	names, err := parseNames(resp.Names)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", entity.ErrModelUnavailable, name, err)
	}

	l.mu.Lock()
	l.labels[name] = names
	l.mu.Unlock()
	return nil
}

// Labels возвращает таблицу классов модели, nil если сервер её не прислал
func (l *RemoteModelLoader) Labels(name string) map[int]string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.labels[name]
}

// parseNames переводит JSON-ключи "0", "1", ... в индексы классов
func parseNames(raw map[string]string) (map[int]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	names := make(map[int]string, len(raw))
	for k, v := range raw {
		id, err := strconv.Atoi(k)
		if err != nil {
			return nil, fmt.Errorf("invalid class id %q", k)
		}
		names[id] = v
	}
	return names, nil
}

var _ port.ModelLoader = (*RemoteModelLoader)(nil)
