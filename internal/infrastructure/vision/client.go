package vision

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// InferenceClient HTTP-клиент сервера инференса, который держит модели в памяти.
type InferenceClient struct {
	http *resty.Client
}

// apiError тело ответа сервера с ошибкой
type apiError struct {
	Error string `json:"error"`
}

// NewInferenceClient создаёт клиент; timeout 0 отключает ограничение.
func NewInferenceClient(baseURL string, timeout time.Duration) *InferenceClient {
	c := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	return &InferenceClient{http: c}
}

// post отправляет JSON и разбирает ответ в out.
func (c *InferenceClient) post(ctx context.Context, path string, pathParams map[string]string, body, out interface{}) error {
	apiErr := &apiError{}
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParams(pathParams).
		SetBody(body).
		SetResult(out).
		SetError(apiErr).
		Post(path)
	if err != nil {
		return fmt.Errorf("request %s: %w", path, err)
	}
	if resp.IsError() {
		if apiErr.Error != "" {
			return fmt.Errorf("inference server %d: %s", resp.StatusCode(), apiErr.Error)
		}
		return fmt.Errorf("inference server %d: %s", resp.StatusCode(), resp.String())
	}
	return nil
}
