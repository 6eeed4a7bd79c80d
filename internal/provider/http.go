package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const defaultMaxBytes = 16 << 20

// DefaultUserAgent identifies the guide to remote sites.
const DefaultUserAgent = "tvguide/1.0 (+https://github.com/runnerr0/tvguide)"

// ErrInsecure is returned for plain http:// URLs unless AllowInsecure is set.
var ErrInsecure = errors.New("plain http is not allowed")

// HTTPConfig configures the network provider.
type HTTPConfig struct {
	// UserAgent sent with every request. Default: DefaultUserAgent.
	UserAgent string
	// Timeout per request, redirects included. Default: 30s.
	Timeout time.Duration
	// MaxRedirects followed before giving up. Default: 5.
	MaxRedirects int
	// AllowInsecure permits plain http:// URLs and redirects to them.
	AllowInsecure bool
	// MaxBytes caps the response body. Default: 16 MiB.
	MaxBytes int64
	// Transport overrides the default transport (tests).
	Transport http.RoundTripper
	Logger    *slog.Logger
}

func (c *HTTPConfig) defaults() {
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.MaxRedirects <= 0 {
		c.MaxRedirects = 5
	}
	if c.MaxBytes <= 0 {
		c.MaxBytes = defaultMaxBytes
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// HTTP fetches URLs over the network.
type HTTP struct {
	client *http.Client
	config HTTPConfig
	log    *slog.Logger
}

// NewHTTP creates an HTTP provider enforcing the redirect and transport
// security policy of cfg.
func NewHTTP(cfg HTTPConfig) *HTTP {
	cfg.defaults()
	return &HTTP{
		client: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: cfg.Transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= cfg.MaxRedirects {
					return fmt.Errorf("too many redirects (%d)", len(via))
				}
				prev := via[len(via)-1].URL
				if prev.Scheme == "https" && req.URL.Scheme != "https" && !cfg.AllowInsecure {
					return fmt.Errorf("redirect from %s to %s: %w", prev, req.URL, ErrInsecure)
				}
				return nil
			},
		},
		config: cfg,
		log:    cfg.Logger.With("component", "provider"),
	}
}

// Get implements Provider. Any non-2xx status returns *StatusError.
func (h *HTTP) Get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	if req.URL.Scheme != "https" && !h.config.AllowInsecure {
		return nil, fmt.Errorf("GET %s: %w", url, ErrInsecure)
	}
	req.Header.Set("User-Agent", h.config.UserAgent)

	start := time.Now()
	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer resp.Body.Close()

	h.log.Debug("fetched", "url", url, "status", resp.StatusCode, "elapsed", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096)) //nolint:errcheck
		return nil, &StatusError{Code: resp.StatusCode, Status: resp.Status, URL: url}
	}

	body, err := readLimited(resp.Body, h.config.MaxBytes)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return maybeGunzip(body, h.config.MaxBytes)
}
