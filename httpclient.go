package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

const userAgent = "termtune/1.0 (+https://github.com/termtune/termtune)"

// maxResponseBytes caps artwork and lyrics downloads
const maxResponseBytes = 16 << 20

// httpStatusError is returned for non-success HTTP responses
type httpStatusError struct {
	URL    string
	Status int
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("%s returned status: %d", e.URL, e.Status)
}

// newHTTPClient builds the shared client used for artwork and lyrics lookups
func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			TLSHandshakeTimeout:   timeout,
			ResponseHeaderTimeout: timeout,
			IdleConnTimeout:       90 * time.Second,
			MaxIdleConns:          16,
		},
	}
}

// httpGet performs a context-bound GET and returns the body.
// 404 responses are reported as ErrNotFound so callers can treat them as a miss.
func httpGet(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "*/*")

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.WithError(err).Debug("failed to close response body")
		}
	}()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%s: %w", url, ErrNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &httpStatusError{URL: url, Status: resp.StatusCode}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return data, nil
}

// ErrNotFound marks a lookup that completed but found nothing
var ErrNotFound = errors.New("not found")

// isRecoverable reports whether err is an expected lookup failure
// (missing resource, network trouble, bad HTTP status, cancellation).
func isRecoverable(err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var statusErr *httpStatusError
	if errors.As(err, &statusErr) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
