// Package backend talks to the face storage service over its JSON API.
package backend

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/saturnino-fabrica-de-software/momento/internal/domain"
	"github.com/saturnino-fabrica-de-software/momento/internal/embedding"
)

// Config holds the configuration for the backend client
type Config struct {
	BaseURL  string
	Username string
	Timeout  time.Duration
}

// Client is the HTTP client for the backend API. Every call is a single
// request; failures are returned to the caller and never retried.
type Client struct {
	httpClient *http.Client
	config     Config
}

// NewClient creates a new backend client scoped to one username
func NewClient(config Config) *Client {
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")

	return &Client{
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		config: config,
	}
}

// Username returns the user scope of the client
func (c *Client) Username() string {
	return c.config.Username
}

// Enroll stores a named face with its frame and embedding
func (c *Client) Enroll(ctx context.Context, name string, image []byte, vec embedding.Vector) error {
	req := EnrollRequest{
		Username:  c.config.Username,
		Image:     base64.StdEncoding.EncodeToString(image),
		Name:      name,
		Embedding: vec.Float64(),
	}

	var resp StatusResponse
	if err := c.doRequest(ctx, PathEnroll, req, &resp); err != nil {
		return err
	}

	_, err := statusResult(resp).Unwrap()
	return err
}

// Remove deletes a named face
func (c *Client) Remove(ctx context.Context, name string) error {
	req := RemoveRequest{
		Username: c.config.Username,
		Name:     name,
	}

	var resp StatusResponse
	if err := c.doRequest(ctx, PathRemove, req, &resp); err != nil {
		return err
	}

	_, err := statusResult(resp).Unwrap()
	return err
}

// ListNames returns the names enrolled for the user
func (c *Client) ListNames(ctx context.Context) ([]string, error) {
	req := ListRequest{Username: c.config.Username}

	var resp ListResponse
	if err := c.doRequest(ctx, PathSavedList, req, &resp); err != nil {
		return nil, err
	}

	return listResult(resp).Unwrap()
}

// FetchEmbedding returns the stored embedding for name as sent by the
// backend; callers normalize it before use
func (c *Client) FetchEmbedding(ctx context.Context, name string) ([]float64, error) {
	req := EmbeddingRequest{
		Username: c.config.Username,
		Name:     name,
	}

	var resp EmbeddingResponse
	if err := c.doRequest(ctx, PathEmbedding, req, &resp); err != nil {
		return nil, err
	}

	return embeddingResult(resp).Unwrap()
}

// doRequest posts body and decodes the JSON answer into result. Transport
// failures and 5xx map to ErrBackendUnavailable; an undecodable 4xx maps to
// ErrBackendRejected.
func (c *Client) doRequest(ctx context.Context, path string, body interface{}, result interface{}) error {
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	url := c.config.BaseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return domain.ErrBackendUnavailable.WithError(err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.ErrBackendUnavailable.WithError(fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return domain.ErrBackendUnavailable.WithError(
			fmt.Errorf("%s returned status %d: %s", path, resp.StatusCode, string(respBody)))
	}

	if err := json.Unmarshal(respBody, result); err != nil {
		if resp.StatusCode >= 400 {
			return domain.ErrBackendRejected.WithError(
				fmt.Errorf("%s returned status %d: %s", path, resp.StatusCode, string(respBody)))
		}
		return domain.ErrBackendUnavailable.WithError(fmt.Errorf("invalid response from %s: %w", path, err))
	}

	return nil
}
