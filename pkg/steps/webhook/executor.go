// Package webhook provides the WEBHOOK step executor: a single JSON POST
// with a timeout. Any non-2xx response is a failure, and failures halt the
// owning execution. No retries at this layer.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/bloomcart/marketing-core/pkg/models"
	"github.com/bloomcart/marketing-core/pkg/template"
)

const defaultTimeoutSeconds = 10

var (
	// ErrURLMissing is returned when the configuration has no url.
	ErrURLMissing = errors.New("missing or invalid 'url' in configuration")
	// ErrNon2xxResponse is returned when the endpoint answers outside the 2xx range.
	ErrNon2xxResponse = errors.New("webhook returned non-2xx status")
)

// Schema describes the WEBHOOK configuration.
const Schema = `{
	"type": "object",
	"properties": {
		"url": {"type": "string", "minLength": 1},
		"payload": {"type": "object"},
		"headers": {"type": "object"},
		"timeout_seconds": {"type": "number", "minimum": 1}
	},
	"required": ["url"]
}`

// Executor issues the HTTP POST.
type Executor struct {
	URL     string
	Payload map[string]any
	Headers map[string]string
	Timeout time.Duration

	client *http.Client
}

// NewExecutor creates a WEBHOOK executor from configuration.
func NewExecutor(config map[string]any) (*Executor, error) {
	url, ok := config["url"].(string)
	if !ok || url == "" {
		return nil, ErrURLMissing
	}

	payload, _ := config["payload"].(map[string]any)

	headers := make(map[string]string)

	if headersConfig, exists := config["headers"]; exists {
		if headersMap, ok := headersConfig.(map[string]any); ok {
			for k, v := range headersMap {
				if strVal, ok := v.(string); ok {
					headers[k] = strVal
				}
			}
		}
	}

	timeout := defaultTimeoutSeconds * time.Second
	if seconds, ok := config["timeout_seconds"].(float64); ok && seconds > 0 {
		timeout = time.Duration(seconds) * time.Second
	}

	return &Executor{
		URL:     url,
		Payload: payload,
		Headers: headers,
		Timeout: timeout,
		client:  &http.Client{Timeout: timeout},
	}, nil
}

func (e *Executor) Validate(_ context.Context) error {
	if !strings.HasPrefix(e.URL, "http://") && !strings.HasPrefix(e.URL, "https://") {
		return fmt.Errorf("url must be http(s): %w", ErrURLMissing)
	}

	_, err := template.Parse(e.URL)
	if err != nil {
		return fmt.Errorf("invalid url template: %w", err)
	}

	for key, value := range e.Headers {
		_, err := template.Parse(value)
		if err != nil {
			return fmt.Errorf("invalid header %q template: %w", key, err)
		}
	}

	return nil
}

// ContinueOnError reports that a webhook failure fails the owning execution;
// later steps may depend on the call having happened.
func (e *Executor) ContinueOnError() bool { return false }

func (e *Executor) Execute(ctx context.Context, ectx models.ExecutionContext, logger *slog.Logger) (*models.StepResult, error) {
	logger = logger.With("module", "webhook_step", "url", e.URL)

	req, err := e.buildRequest(ctx, ectx)
	if err != nil {
		return nil, err
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("webhook request failed: %w", err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return nil, fmt.Errorf("failed to read webhook response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("status %d: %w", resp.StatusCode, ErrNon2xxResponse)
	}

	logger.InfoContext(ctx, "Webhook delivered", "status_code", resp.StatusCode, "response_length", len(bodyBytes))

	var body any

	err = json.Unmarshal(bodyBytes, &body)
	if err != nil {
		body = string(bodyBytes)
	}

	return &models.StepResult{
		Success: true,
		ContextPatch: map[string]any{
			"webhook_status": resp.StatusCode,
			"webhook_body":   body,
		},
	}, nil
}

func (e *Executor) buildRequest(ctx context.Context, ectx models.ExecutionContext) (*http.Request, error) {
	url, err := template.RenderWithContext(e.URL, ectx)
	if err != nil {
		return nil, fmt.Errorf("failed to render url template: %w", err)
	}

	payload, err := template.RenderMap(e.Payload, ectx)
	if err != nil {
		return nil, fmt.Errorf("failed to render payload: %w", err)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create webhook request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	for key, value := range e.Headers {
		rendered, err := template.RenderWithContext(value, ectx)
		if err != nil {
			return nil, fmt.Errorf("failed to render header %q: %w", key, err)
		}

		req.Header.Set(key, rendered)
	}

	return req, nil
}
