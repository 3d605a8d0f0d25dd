// Package commitclient calls the server's atomic record_poster_log RPC over
// HTTP. The endpoint runs one transaction: insert the log row, bump the claim
// counters and flip the claim status when the target count is reached.
package commitclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/plakatpatruljen/fieldops/pkg/core/model"
)

const defaultTimeout = 15 * time.Second

// Client is an HTTP client for the poster-log commit RPC
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
}

// New creates a client for the RPC endpoint at baseURL
func New(baseURL, apiKey string, logger *zap.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     logger,
	}
}

// RecordPosterLog invokes the atomic commit and decodes the server result
func (c *Client) RecordPosterLog(ctx context.Context, params model.RecordPosterLogParams) (model.CommitResult, error) {
	payload, err := json.Marshal(params)
	if err != nil {
		return model.CommitResult{}, fmt.Errorf("failed to encode rpc params: %w", err)
	}

	url := c.baseURL + "/rpc/record_poster_log"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return model.CommitResult{}, fmt.Errorf("failed to build rpc request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("apikey", c.apiKey)
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return model.CommitResult{}, fmt.Errorf("failed to call record_poster_log: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return model.CommitResult{}, fmt.Errorf("record_poster_log returned status %d: %s", resp.StatusCode, string(body))
	}

	var result model.CommitResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return model.CommitResult{}, fmt.Errorf("failed to decode rpc result: %w", err)
	}

	c.logger.Debug("Poster log recorded",
		zap.String("log_id", result.LogID),
		zap.Int("new_count", result.NewCount),
		zap.String("status", result.Status))
	return result, nil
}
