// Package fetch retrieves the bytes of a validation source together with
// the transfer metadata (Content-Type) that header detection depends on.
package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"golang.org/x/time/rate"
)

// =============================================================================
// CONFIGURATION
// =============================================================================

// Config configures retrieval behavior.
type Config struct {
	// Timeout bounds each HTTP attempt including body transfer (default: 30s).
	Timeout time.Duration

	// MaxRedirects is the number of redirects followed (default: 5).
	MaxRedirects int

	// MaxFileSize caps the bytes read from any source. Zero disables the cap.
	MaxFileSize int64

	// MaxRetries for network failures and 5xx responses (default: 2).
	MaxRetries int

	// RetryBackoff is the base delay, doubled per attempt (default: 200ms).
	RetryBackoff time.Duration

	// RateLimit outbound requests per second (default: 10).
	RateLimit float64

	// RateBurst maximum burst size (default: 5).
	RateBurst int

	// AllowDowngrade permits following an https redirect to plain http.
	AllowDowngrade bool

	// UserAgent string (default: "csvlint/1.0").
	UserAgent string

	// Transport allows injecting a custom HTTP transport (for tests/stubs).
	Transport http.RoundTripper
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Timeout:      30 * time.Second,
		MaxRedirects: 5,
		MaxRetries:   2,
		RetryBackoff: 200 * time.Millisecond,
		RateLimit:    10,
		RateBurst:    5,
		UserAgent:    "csvlint/1.0",
	}
}

func (c *Config) applyDefaults() {
	d := DefaultConfig()
	if c.Timeout == 0 {
		c.Timeout = d.Timeout
	}
	if c.MaxRedirects == 0 {
		c.MaxRedirects = d.MaxRedirects
	}
	if c.RetryBackoff == 0 {
		c.RetryBackoff = d.RetryBackoff
	}
	if c.RateLimit == 0 {
		c.RateLimit = d.RateLimit
	}
	if c.RateBurst == 0 {
		c.RateBurst = d.RateBurst
	}
	if c.UserAgent == "" {
		c.UserAgent = d.UserAgent
	}
}

// =============================================================================
// FETCHER
// =============================================================================

// Resource is an opened source. The caller must close Body.
type Resource struct {
	Body io.ReadCloser

	// ContentType is the transfer Content-Type; empty when absent. Local
	// files never carry one.
	ContentType string

	// FinalURL is the URL after redirects, empty for non-URL sources.
	FinalURL string

	// Size in bytes, -1 when unknown.
	Size int64
}

// Option customizes a Fetcher.
type Option func(*Fetcher)

// WithObjectStore enables s3:// sources.
func WithObjectStore(store ObjectStore) Option {
	return func(f *Fetcher) { f.objects = store }
}

// WithLogger sets the logger used for retry and redirect events.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Fetcher) { f.logger = logger }
}

// Fetcher opens sources of every supported kind. It is safe for concurrent use.
type Fetcher struct {
	config      Config
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	objects     ObjectStore
	logger      *slog.Logger
}

// New creates a Fetcher with the given configuration.
func New(cfg Config, opts ...Option) *Fetcher {
	cfg.applyDefaults()

	f := &Fetcher{
		config:      cfg,
		rateLimiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst),
		logger:      slog.Default(),
	}
	f.httpClient = &http.Client{
		Timeout:       cfg.Timeout,
		Transport:     cfg.Transport,
		CheckRedirect: f.checkRedirect,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch opens src.
func (f *Fetcher) Fetch(ctx context.Context, src Source) (*Resource, error) {
	switch src.Kind() {
	case KindURL:
		return f.fetchURL(ctx, src.URL)
	case KindObject:
		return f.fetchObject(ctx, src.URL)
	case KindPath:
		return f.fetchPath(src.Path)
	default:
		return f.fetchBuffer(src)
	}
}

func (f *Fetcher) fetchBuffer(src Source) (*Resource, error) {
	size := int64(len(src.Data))
	if f.config.MaxFileSize > 0 && size > f.config.MaxFileSize {
		return nil, fmt.Errorf("%s: %d bytes: %w", src, size, ErrTooLarge)
	}
	return &Resource{
		Body:        io.NopCloser(bytes.NewReader(src.Data)),
		ContentType: src.ContentType,
		Size:        size,
	}, nil
}

func (f *Fetcher) fetchPath(path string) (*Resource, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("open %s: %w", path, ErrNotFound)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	size := int64(-1)
	if info, err := file.Stat(); err == nil {
		if info.IsDir() {
			file.Close()
			return nil, fmt.Errorf("open %s: is a directory: %w", path, ErrNotFound)
		}
		size = info.Size()
	}
	if f.config.MaxFileSize > 0 && size > f.config.MaxFileSize {
		file.Close()
		return nil, fmt.Errorf("open %s: %d bytes: %w", path, size, ErrTooLarge)
	}

	return &Resource{
		Body: f.limit(file),
		Size: size,
	}, nil
}

// =============================================================================
// HTTP
// =============================================================================

func (f *Fetcher) fetchURL(ctx context.Context, rawURL string) (*Resource, error) {
	if err := f.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= f.config.MaxRetries; attempt++ {
		res, err := f.getOnce(ctx, rawURL)
		if err == nil {
			return res, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if !isRetryable(err) || attempt == f.config.MaxRetries {
			break
		}

		backoff := time.Duration(1<<uint(attempt)) * f.config.RetryBackoff
		f.logger.Debug("retrying fetch",
			slog.String("url", rawURL),
			slog.Int("attempt", attempt+1),
			slog.Duration("backoff", backoff),
			slog.String("error", err.Error()),
		)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}

	return nil, lastErr
}

func (f *Fetcher) getOnce(ctx context.Context, rawURL string) (*Resource, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", f.config.UserAgent)
	req.Header.Set("Accept", "text/csv, text/plain;q=0.9, */*;q=0.5")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, ErrTooManyRedirects) || errors.Is(err, ErrInsecureRedirect) {
			return nil, fmt.Errorf("GET %s: %w", rawURL, err)
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("GET %s: %w: %w", rawURL, ErrUnreachable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, &StatusError{URL: rawURL, StatusCode: resp.StatusCode}
	}

	if f.config.MaxFileSize > 0 && resp.ContentLength > f.config.MaxFileSize {
		resp.Body.Close()
		return nil, fmt.Errorf("GET %s: %d bytes: %w", rawURL, resp.ContentLength, ErrTooLarge)
	}

	return &Resource{
		Body:        f.limit(resp.Body),
		ContentType: resp.Header.Get("Content-Type"),
		FinalURL:    resp.Request.URL.String(),
		Size:        resp.ContentLength,
	}, nil
}

// checkRedirect bounds the redirect chain and refuses https to http hops.
func (f *Fetcher) checkRedirect(req *http.Request, via []*http.Request) error {
	if len(via) > f.config.MaxRedirects {
		return fmt.Errorf("stopped after %d redirects: %w", f.config.MaxRedirects, ErrTooManyRedirects)
	}
	prev := via[len(via)-1]
	if !f.config.AllowDowngrade && prev.URL.Scheme == "https" && req.URL.Scheme == "http" {
		return fmt.Errorf("%s -> %s: %w", prev.URL, req.URL, ErrInsecureRedirect)
	}
	f.logger.Debug("following redirect",
		slog.String("from", prev.URL.String()),
		slog.String("to", req.URL.String()),
	)
	return nil
}

// =============================================================================
// SIZE LIMIT
// =============================================================================

func (f *Fetcher) limit(rc io.ReadCloser) io.ReadCloser {
	if f.config.MaxFileSize <= 0 {
		return rc
	}
	return &limitedBody{rc: rc, remaining: f.config.MaxFileSize}
}

// limitedBody fails with ErrTooLarge once more than the allowed bytes have
// been read, rather than silently truncating like io.LimitReader.
type limitedBody struct {
	rc        io.ReadCloser
	remaining int64
}

func (l *limitedBody) Read(p []byte) (int, error) {
	if l.remaining < 0 {
		return 0, ErrTooLarge
	}
	if int64(len(p)) > l.remaining+1 {
		p = p[:l.remaining+1]
	}
	n, err := l.rc.Read(p)
	l.remaining -= int64(n)
	if l.remaining < 0 {
		return n, ErrTooLarge
	}
	return n, err
}

func (l *limitedBody) Close() error {
	return l.rc.Close()
}
