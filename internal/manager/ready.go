package manager

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

const readyPollInterval = 250 * time.Millisecond

// waitReady holds a freshly launched endpoint until it is considered
// usable: a fixed settling delay by default, or an HTTP probe when enabled.
func (r *InferenceRegistry) waitReady(ctx context.Context, port int) error {
	if r.probe {
		return r.probeHTTP(ctx, port)
	}
	if r.settle <= 0 {
		return nil
	}
	t := time.NewTimer(r.settle)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *InferenceRegistry) probeHTTP(ctx context.Context, port int) error {
	ctx, cancel := context.WithTimeout(ctx, r.readyTimeout)
	defer cancel()
	url := fmt.Sprintf("http://127.0.0.1:%d/", port)
	ticker := time.NewTicker(readyPollInterval)
	defer ticker.Stop()
	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return ErrExecution("readiness probe", err)
		}
		if resp, err := r.httpClient.Do(req); err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				return nil
			}
		}
		select {
		case <-ctx.Done():
			return ErrExecution(fmt.Sprintf("endpoint on port %d not ready after %s", port, r.readyTimeout), ctx.Err())
		case <-ticker.C:
		}
	}
}
