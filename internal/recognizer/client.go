package recognizer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kaptinlin/jsonrepair"
	"golang.org/x/time/rate"

	"fscner/internal/config"
)

// ClientConfig describes a GLiNER inference server.
type ClientConfig struct {
	BaseURL   string
	Model     string
	Threshold float64
	APIToken  string
	Timeout   time.Duration
	// RateLimit is requests per second; zero disables throttling.
	RateLimit float64
}

// Client calls POST {BaseURL}/predict once per Predict. Failed calls are not
// retried.
type Client struct {
	cfg        ClientConfig
	httpClient *http.Client
	limiter    *rate.Limiter
}

type predictRequest struct {
	Text      string   `json:"text"`
	Labels    []string `json:"labels"`
	Threshold float64  `json:"threshold"`
	Model     string   `json:"model,omitempty"`
}

type predictResponse struct {
	Entities []Entity `json:"entities"`
}

func NewClient(cfg ClientConfig) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Minute
	}
	if cfg.Threshold <= 0 {
		cfg.Threshold = 0.5
	}
	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(limit, 1),
	}
}

func NewClientFromConfig(cfg config.Config) *Client {
	return NewClient(ClientConfig{
		BaseURL:   cfg.NERBaseURL,
		Model:     cfg.NERModel,
		Threshold: cfg.NERThreshold,
		APIToken:  cfg.NERAPIToken,
		Timeout:   time.Duration(cfg.NERTimeoutMs) * time.Millisecond,
		RateLimit: cfg.NERRateLimitRPS,
	})
}

// FromConfig returns the HTTP client, wrapped in a cache when store is set.
func FromConfig(cfg config.Config, store Store) Recognizer {
	client := NewClientFromConfig(cfg)
	if store == nil {
		return client
	}
	return NewCached(client, store, client.ModelID())
}

// ModelID identifies the model and threshold for cache keys.
func (c *Client) ModelID() string {
	return fmt.Sprintf("%s@%g", c.cfg.Model, c.cfg.Threshold)
}

func (c *Client) Predict(ctx context.Context, text string, labels []string) ([]Entity, error) {
	if strings.TrimSpace(c.cfg.BaseURL) == "" {
		return nil, fmt.Errorf("recognizer: missing NER_BASE_URL")
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("recognizer rate limit: %w", err)
	}

	blob, err := json.Marshal(predictRequest{
		Text:      text,
		Labels:    labels,
		Threshold: c.cfg.Threshold,
		Model:     c.cfg.Model,
	})
	if err != nil {
		return nil, err
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/predict"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(blob))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.cfg.APIToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("recognizer request: %w", err)
	}
	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("recognizer read body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("recognizer error: status=%d body=%s", resp.StatusCode, truncate(string(body), 300))
	}
	return decodeEntities(body)
}

// decodeEntities accepts {"entities": [...]} or a bare array, repairing
// malformed JSON before giving up.
func decodeEntities(body []byte) ([]Entity, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, ErrEmptyResponse
	}
	entities, err := parseEntities(trimmed)
	if err == nil {
		return entities, nil
	}

	repaired, repairErr := jsonrepair.JSONRepair(string(trimmed))
	if repairErr != nil {
		return nil, fmt.Errorf("decode recognizer response: %w (repair: %v)", err, repairErr)
	}
	entities, err = parseEntities(bytes.TrimSpace([]byte(repaired)))
	if err != nil {
		return nil, fmt.Errorf("decode repaired recognizer response: %w", err)
	}
	return entities, nil
}

func parseEntities(data []byte) ([]Entity, error) {
	if len(data) == 0 {
		return nil, ErrEmptyResponse
	}
	if data[0] == '[' {
		var out []Entity
		if err := json.Unmarshal(data, &out); err != nil {
			return nil, err
		}
		return out, nil
	}
	var resp predictResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, err
	}
	return resp.Entities, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
