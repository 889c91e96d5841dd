package coordinator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/rawblock/surveillance-engine/internal/api"
)

// serviceClient posts JSON to workers and the aggregator with bounded
// retries. Network failures, 5xx, 408 and 429 are retried with exponential
// backoff; any other 4xx is permanent. A Retry-After hint from the server is
// honored before the next attempt.
type serviceClient struct {
	http           *http.Client
	apiKey         string
	attemptTimeout time.Duration
	maxRetries     int
	baseDelay      time.Duration
}

func newServiceClient(apiKey string, attemptTimeout time.Duration, maxRetries int, baseDelay time.Duration) *serviceClient {
	return &serviceClient{
		http:           &http.Client{},
		apiKey:         apiKey,
		attemptTimeout: attemptTimeout,
		maxRetries:     maxRetries,
		baseDelay:      baseDelay,
	}
}

// retryAfterBackOff substitutes a server-supplied Retry-After hint for the
// next computed interval, so the hint replaces the backoff sleep rather than
// stacking on top of it. The underlying policy still advances, keeping later
// intervals growing.
type retryAfterBackOff struct {
	backoff.BackOff
	hint time.Duration
}

func (b *retryAfterBackOff) NextBackOff() time.Duration {
	next := b.BackOff.NextBackOff()
	if next == backoff.Stop {
		return backoff.Stop
	}
	if b.hint > 0 {
		next = b.hint
		b.hint = 0
	}
	return next
}

// postJSON sends body to url and decodes the reply into out. target labels
// the retry metric and log lines.
func (sc *serviceClient) postJSON(ctx context.Context, target, url string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request for %s: %w", target, err)
	}

	policy := &retryAfterBackOff{}
	operation := func() error {
		attemptCtx, cancel := context.WithTimeout(ctx, sc.attemptTimeout)
		defer cancel()

		req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, url, bytes.NewReader(payload))
		if err != nil {
			return backoff.Permanent(fmt.Errorf("build request for %s: %w", target, err))
		}
		req.Header.Set("Content-Type", "application/json")
		if sc.apiKey != "" {
			req.Header.Set("X-API-Key", sc.apiKey)
		}

		resp, err := sc.http.Do(req)
		if err != nil {
			return fmt.Errorf("%s: %w", target, err)
		}
		defer resp.Body.Close()
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("%s: read response: %w", target, err)
		}

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			if err := json.Unmarshal(data, out); err != nil {
				return backoff.Permanent(fmt.Errorf("%s: decode response: %w", target, err))
			}
			return nil
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusRequestTimeout:
			if wait := parseRetryAfter(resp.Header.Get("Retry-After")); wait > 0 {
				log.Printf("[CLIENT] %s returned %d, honoring Retry-After %v", target, resp.StatusCode, wait)
				policy.hint = wait
			}
			return fmt.Errorf("%s: HTTP %d: %s", target, resp.StatusCode, truncate(data))
		case resp.StatusCode >= 500:
			return fmt.Errorf("%s: HTTP %d: %s", target, resp.StatusCode, truncate(data))
		default:
			return backoff.Permanent(fmt.Errorf("%s: HTTP %d: %s", target, resp.StatusCode, truncate(data)))
		}
	}

	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = sc.baseDelay
	expo.Multiplier = 2
	expo.MaxElapsedTime = 0

	// maxRetries counts attempts, WithMaxRetries counts retries after the first.
	policy.BackOff = backoff.WithContext(backoff.WithMaxRetries(expo, uint64(sc.maxRetries-1)), ctx)

	return backoff.RetryNotify(operation, policy, func(err error, next time.Duration) {
		api.WorkerRetries.WithLabelValues(target).Inc()
		log.Printf("[CLIENT] %s attempt failed, retrying in %v: %v", target, next, err)
	})
}

// parseRetryAfter accepts delay-seconds, a Go duration string, or an HTTP
// date. Zero means no usable hint.
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	if secs, err := strconv.Atoi(value); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if d, err := time.ParseDuration(value); err == nil && d > 0 {
		return d
	}
	if at, err := http.ParseTime(value); err == nil {
		if wait := time.Until(at); wait > 0 {
			return wait
		}
	}
	return 0
}

func truncate(data []byte) string {
	const max = 256
	if len(data) > max {
		return string(data[:max]) + "..."
	}
	return string(data)
}
