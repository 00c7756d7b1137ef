package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"mcq-worker/internal/config"
	"mcq-worker/internal/logger"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
)

var (
	ErrEmptyDocument    = errors.New("document is empty")
	ErrDocumentTooLarge = errors.New("document exceeds size limit")
)

// HTTPSource downloads documents by URL. Connection errors, 5xx and 429
// responses are retried with exponential backoff up to RetryMax times.
type HTTPSource struct {
	client   *retryablehttp.Client
	maxBytes int64
}

func NewHTTPSource(cfg config.SourceConfig, log *zap.Logger) *HTTPSource {
	client := retryablehttp.NewClient()
	client.RetryMax = cfg.RetryMax
	client.RetryWaitMin = 500 * time.Millisecond
	client.RetryWaitMax = 5 * time.Second
	client.HTTPClient.Timeout = cfg.HTTPTimeout
	client.Logger = logger.NewLeveled(log)
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler

	return &HTTPSource{client: client, maxBytes: cfg.MaxBytes}
}

func (s *HTTPSource) Fetch(ctx context.Context, ref string) ([]byte, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid document url: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download failed: unexpected status %d", resp.StatusCode)
	}
	return readLimited(resp.Body, s.maxBytes)
}

func readLimited(r io.Reader, maxBytes int64) ([]byte, error) {
	if maxBytes > 0 {
		r = io.LimitReader(r, maxBytes+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return nil, ErrDocumentTooLarge
	}
	if len(data) == 0 {
		return nil, ErrEmptyDocument
	}
	return data, nil
}
