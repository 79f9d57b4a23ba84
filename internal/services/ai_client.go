package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/ideaforge/ideaforge-backend/internal/pkg/envutil"
	"github.com/ideaforge/ideaforge-backend/internal/pkg/httpx"
	"github.com/ideaforge/ideaforge-backend/internal/pkg/logger"
)

// GenerationRequest is the submit contract against the AI generation
// service. Context carries optional grounding (PRD text, prior code).
type GenerationRequest struct {
	TargetID uuid.UUID `json:"targetId"`
	Prompt   string    `json:"prompt"`
	Context  string    `json:"context,omitempty"`
}

type GenerationHandle struct {
	HandleID string `json:"handleId"`
	Status   string `json:"status"`
}

// GenerationUpdate is one poll result. URL and Code are set only once
// Status is ready.
type GenerationUpdate struct {
	Status string         `json:"status"`
	URL    *string        `json:"url,omitempty"`
	Code   datatypes.JSON `json:"code,omitempty"`
}

// AIClient talks to the external generation backend. Provider error
// bodies never cross this boundary — callers see coarse errors only.
type AIClient interface {
	Submit(ctx context.Context, req GenerationRequest) (*GenerationHandle, error)
	Poll(ctx context.Context, handleID string) (*GenerationUpdate, error)
}

// ErrAIRejected marks a request the provider refused outright.
var ErrAIRejected = errors.New("generation request rejected")

type aiHTTPError struct {
	StatusCode int
}

func (e *aiHTTPError) Error() string {
	return fmt.Sprintf("ai service http %d", e.StatusCode)
}

func (e *aiHTTPError) HTTPStatusCode() int { return e.StatusCode }

type aiClient struct {
	log        *logger.Logger
	baseURL    string
	apiKey     string
	httpClient *http.Client
	maxRetries int
}

func NewAIClient(log *logger.Logger) (AIClient, error) {
	apiKey := envutil.GetEnv("AI_SERVICE_API_KEY", "", nil)
	if apiKey == "" {
		return nil, fmt.Errorf("missing AI_SERVICE_API_KEY")
	}
	baseURL := strings.TrimRight(envutil.GetEnv("AI_SERVICE_BASE_URL", "", nil), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("missing AI_SERVICE_BASE_URL")
	}

	timeoutSec := envutil.GetEnvAsInt("AI_SERVICE_TIMEOUT_SECONDS", 30, log)
	maxRetries := envutil.GetEnvAsInt("AI_SERVICE_MAX_RETRIES", 3, log)

	return &aiClient{
		log:        log.With("service", "AIClient"),
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: time.Duration(timeoutSec) * time.Second},
		maxRetries: maxRetries,
	}, nil
}

func (c *aiClient) Submit(ctx context.Context, req GenerationRequest) (*GenerationHandle, error) {
	var handle GenerationHandle
	if err := c.do(ctx, http.MethodPost, "/v1/generations", req, &handle); err != nil {
		return nil, err
	}
	if handle.HandleID == "" {
		return nil, ErrAIRejected
	}
	return &handle, nil
}

func (c *aiClient) Poll(ctx context.Context, handleID string) (*GenerationUpdate, error) {
	var update GenerationUpdate
	path := "/v1/generations/" + handleID
	if err := c.do(ctx, http.MethodGet, path, nil, &update); err != nil {
		return nil, err
	}
	return &update, nil
}

func (c *aiClient) doOnce(ctx context.Context, method, path string, body any) (*http.Response, []byte, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &buf)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, err
	}

	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return resp, nil, readErr
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Provider bodies stay server-side: log, don't return.
		c.log.Warn("ai service error response", "path", path, "status", resp.StatusCode, "body", string(raw))
		return resp, nil, &aiHTTPError{StatusCode: resp.StatusCode}
	}
	return resp, raw, nil
}

func (c *aiClient) do(ctx context.Context, method, path string, body, out any) error {
	backoff := 1 * time.Second

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		resp, raw, err := c.doOnce(ctx, method, path, body)
		if err == nil {
			if out == nil {
				return nil
			}
			if uErr := json.Unmarshal(raw, out); uErr != nil {
				return fmt.Errorf("ai service decode: %w", uErr)
			}
			return nil
		}

		var httpErr *aiHTTPError
		if errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusUnprocessableEntity {
			return ErrAIRejected
		}
		if !httpx.IsRetryableError(err) {
			return err
		}
		if attempt == c.maxRetries {
			return err
		}

		sleepFor := httpx.RetryAfterDuration(resp, backoff, 10*time.Second)
		sleepFor = httpx.JitterSleep(sleepFor)
		c.log.Warn("ai service request retrying",
			"path", path,
			"attempt", attempt+1,
			"sleep", sleepFor.String(),
			"error", err.Error(),
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(sleepFor):
		}
		backoff *= 2
	}

	return fmt.Errorf("unreachable retry loop")
}
