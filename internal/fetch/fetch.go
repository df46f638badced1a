// Package fetch retrieves remote documents over HTTP with bounded retries.
package fetch

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

const (
	// DefaultTimeout bounds each individual fetch attempt.
	DefaultTimeout = 30 * time.Second
	// DefaultMaxRetries is the total number of attempts per Fetch call.
	DefaultMaxRetries = 3
	// DefaultMaxBodyBytes caps the size of a fetched response body.
	DefaultMaxBodyBytes = 10 << 20
	// defaultBackoffBase is the delay before the first retry; it doubles
	// after every failed attempt.
	defaultBackoffBase = time.Second

	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// Terminal fetch failures. Retrying cannot fix either condition, so both
// abort the attempt loop immediately.
var (
	ErrTimeout  = errors.New("fetch timed out")
	ErrTooLarge = errors.New("response exceeds size limit")
)

// Result contains the body and response details obtained from fetching a URL.
type Result struct {
	Body        []byte
	FinalURL    string
	ContentType string
	// Attempts is the number of HTTP attempts that were made.
	Attempts int
}

// Fetcher retrieves documents over HTTP.
type Fetcher struct {
	client       *http.Client
	timeout      time.Duration
	maxRetries   int
	maxBodyBytes int64
	backoffBase  time.Duration
}

// Option adjusts Fetcher construction.
type Option func(*Fetcher)

// WithMaxRetries overrides the total number of attempts.
func WithMaxRetries(n int) Option {
	return func(f *Fetcher) {
		if n > 0 {
			f.maxRetries = n
		}
	}
}

// WithMaxBodyBytes overrides the response size ceiling.
func WithMaxBodyBytes(n int64) Option {
	return func(f *Fetcher) {
		if n > 0 {
			f.maxBodyBytes = n
		}
	}
}

// WithBackoffBase overrides the initial retry delay. Intended for tests.
func WithBackoffBase(d time.Duration) Option {
	return func(f *Fetcher) {
		if d > 0 {
			f.backoffBase = d
		}
	}
}

// NewFetcher constructs a Fetcher with the given per-attempt timeout.
func NewFetcher(timeout time.Duration, opts ...Option) *Fetcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	f := &Fetcher{
		client:       &http.Client{},
		timeout:      timeout,
		maxRetries:   DefaultMaxRetries,
		maxBodyBytes: DefaultMaxBodyBytes,
		backoffBase:  defaultBackoffBase,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch downloads the target URL. Transient failures (connection errors,
// non-2xx statuses) are retried with exponential backoff. A per-attempt
// timeout or an oversized response ends the call immediately: both signal
// conditions a retry cannot fix.
func (f *Fetcher) Fetch(ctx context.Context, target string) (Result, error) {
	var lastErr error
	backoff := f.backoffBase

	for attempt := 1; attempt <= f.maxRetries; attempt++ {
		result, err := f.tryOnce(ctx, target)
		result.Attempts = attempt
		if err == nil {
			return result, nil
		}
		if errors.Is(err, ErrTimeout) || errors.Is(err, ErrTooLarge) {
			return result, err
		}
		lastErr = err

		if attempt == f.maxRetries {
			break
		}
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return result, fmt.Errorf("fetch cancelled: %w", ctx.Err())
		}
		backoff *= 2
	}

	return Result{Attempts: f.maxRetries}, fmt.Errorf("fetch failed after %d attempts: %w", f.maxRetries, lastErr)
}

func (f *Fetcher) tryOnce(ctx context.Context, target string) (Result, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, target, nil)
	if err != nil {
		return Result{}, fmt.Errorf("build request: %w", err)
	}
	setBrowserHeaders(req)

	resp, err := f.client.Do(req)
	if err != nil {
		if attemptCtx.Err() == context.DeadlineExceeded {
			return Result{}, fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return Result{}, fmt.Errorf("fetch url: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Result{}, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	if cl := resp.Header.Get("Content-Length"); cl != "" {
		if n, err := strconv.ParseInt(cl, 10, 64); err == nil && n > f.maxBodyBytes {
			return Result{}, fmt.Errorf("%w: content-length %d", ErrTooLarge, n)
		}
	}

	reader := io.Reader(resp.Body)
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return Result{}, fmt.Errorf("decode gzip body: %w", err)
		}
		defer gz.Close()
		reader = gz
	}

	body, err := io.ReadAll(io.LimitReader(reader, f.maxBodyBytes+1))
	if err != nil {
		if attemptCtx.Err() == context.DeadlineExceeded {
			return Result{}, fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return Result{}, fmt.Errorf("read response: %w", err)
	}
	if int64(len(body)) > f.maxBodyBytes {
		return Result{}, fmt.Errorf("%w: body exceeds %d bytes", ErrTooLarge, f.maxBodyBytes)
	}

	finalURL := target
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	return Result{
		Body:        body,
		FinalURL:    finalURL,
		ContentType: resp.Header.Get("Content-Type"),
	}, nil
}

// setBrowserHeaders applies the fixed negotiation header set. Some
// publishers refuse requests that do not look like a browser.
func setBrowserHeaders(req *http.Request) {
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	// Only gzip: the transport will not transparently decompress once
	// this header is set by hand, and the body decode above handles it.
	req.Header.Set("Accept-Encoding", "gzip")
	req.Header.Set("Connection", "keep-alive")
	req.Header.Set("Upgrade-Insecure-Requests", "1")
}
