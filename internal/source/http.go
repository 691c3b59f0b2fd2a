package source

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html/charset"

	"fscner/internal/config"
)

type HTTPOptions struct {
	URL       string
	UserAgent string
	Timeout   time.Duration
}

// HTTP fetches the live registry page. A single GET per call, no retries.
type HTTP struct {
	opts       HTTPOptions
	httpClient *http.Client
}

func NewHTTP(opts HTTPOptions) *HTTP {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	return &HTTP{
		opts:       opts,
		httpClient: &http.Client{Timeout: opts.Timeout},
	}
}

func HTTPOptionsFromConfig(cfg config.Config) HTTPOptions {
	return HTTPOptions{
		URL:       cfg.SourceURL,
		UserAgent: cfg.UserAgent,
		Timeout:   time.Duration(cfg.HTTPTimeoutMs) * time.Millisecond,
	}
}

// Fetch returns the page body decoded to UTF-8.
func (h *HTTP) Fetch(ctx context.Context) ([]byte, error) {
	if strings.TrimSpace(h.opts.URL) == "" {
		return nil, fmt.Errorf("source: missing URL")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.opts.URL, nil)
	if err != nil {
		return nil, err
	}
	setBrowserHeaders(req, h.opts.UserAgent)

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", h.opts.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 300))
		return nil, fmt.Errorf("fetch %s: status=%d body=%s", h.opts.URL, resp.StatusCode, string(body))
	}

	reader, err := charset.NewReader(resp.Body, resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", h.opts.URL, err)
	}
	return io.ReadAll(reader)
}

func (h *HTTP) Rows(ctx context.Context) ([]string, error) {
	body, err := h.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := parseHTMLRows(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", h.opts.URL, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s: %w", h.opts.URL, ErrNoRows)
	}
	return rows, nil
}

func setBrowserHeaders(req *http.Request, userAgent string) {
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "ru-RU,ru;q=0.9,en-US;q=0.8,en;q=0.7")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Pragma", "no-cache")
	req.Header.Set("Sec-Fetch-Dest", "document")
	req.Header.Set("Sec-Fetch-Mode", "navigate")
	req.Header.Set("Sec-Fetch-Site", "none")
	req.Header.Set("Sec-Fetch-User", "?1")
	req.Header.Set("Upgrade-Insecure-Requests", "1")
	// English page variant.
	req.AddCookie(&http.Cookie{Name: "pll_language", Value: "en"})
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}
}
