package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"mcq-worker/internal/config"
	"mcq-worker/internal/domain"
	"mcq-worker/internal/logger"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
)

const maxErrorBody = 512

type progressBody struct {
	Progress int    `json:"progress"`
	Status   string `json:"status"`
	Message  string `json:"message,omitempty"`
}

// HTTPRegistry reports to the backend's internal job endpoints. Progress
// updates are single attempts; result submissions retry on network errors,
// 5xx and 429.
type HTTPRegistry struct {
	baseURL        string
	auth           Authenticator
	progressClient *http.Client
	resultClient   *retryablehttp.Client
}

func NewHTTPRegistry(cfg config.RegistryConfig, auth Authenticator, log *zap.Logger) *HTTPRegistry {
	resultClient := retryablehttp.NewClient()
	resultClient.RetryMax = cfg.RetryMax
	resultClient.RetryWaitMin = 500 * time.Millisecond
	resultClient.RetryWaitMax = 5 * time.Second
	resultClient.HTTPClient.Timeout = cfg.ResultTimeout
	resultClient.Logger = logger.NewLeveled(log)
	resultClient.ErrorHandler = retryablehttp.PassthroughErrorHandler

	return &HTTPRegistry{
		baseURL:        cfg.BaseURL,
		auth:           auth,
		progressClient: &http.Client{Timeout: cfg.ProgressTimeout},
		resultClient:   resultClient,
	}
}

func (r *HTTPRegistry) jobURL(jobID, action string) string {
	return fmt.Sprintf("%s/api/mcq/jobs/%s/%s", r.baseURL, url.PathEscape(jobID), action)
}

func (r *HTTPRegistry) ReportProgress(ctx context.Context, update domain.ProgressUpdate) error {
	body, err := json.Marshal(progressBody{
		Progress: update.Percent,
		Status:   update.Status,
		Message:  update.Message,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, r.jobURL(update.JobID, "progress"), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if err := r.auth.Authorize(req); err != nil {
		return err
	}

	resp, err := r.progressClient.Do(req)
	if err != nil {
		return fmt.Errorf("progress update failed: %w", err)
	}
	defer resp.Body.Close()
	return checkStatus(resp)
}

// ReportResult posts completed results to /complete and failed ones to /fail.
func (r *HTTPRegistry) ReportResult(ctx context.Context, result *domain.Result) error {
	action := "complete"
	if result.Status == domain.StatusFailed {
		action = "fail"
	}
	body, err := json.Marshal(result)
	if err != nil {
		return err
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, r.jobURL(result.JobID, action), body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if err := r.auth.Authorize(req.Request); err != nil {
		return err
	}

	resp, err := r.resultClient.Do(req)
	if err != nil {
		return fmt.Errorf("result submission failed: %w", err)
	}
	defer resp.Body.Close()
	return checkStatus(resp)
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return fmt.Errorf("registry returned status %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))
}
