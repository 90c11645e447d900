// Package netcheck offers the connectivity probes callers use to gate
// server-mode features. The attendance core never depends on it.
package netcheck

import (
	"context"
	"errors"
	"net/http"
	"time"
)

// ErrUnreachable is returned by WaitReachable when every attempt failed.
var ErrUnreachable = errors.New("endpoint not reachable")

const probeTimeout = 3 * time.Second

// Reachable reports whether url answers an HTTP request at all. Any status
// code counts; only transport failure means unreachable.
func Reachable(ctx context.Context, url string) bool {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return true
}

// WaitReachable polls url every interval until it answers, maxAttempts is
// exhausted, or ctx is cancelled.
func WaitReachable(ctx context.Context, url string, interval time.Duration, maxAttempts int) error {
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if Reachable(ctx, url) {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
	return ErrUnreachable
}
