package repository

import (
	"context"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/xanzy/go-gitlab"

	"github.com/nsxbet/sql-scanner/pkg/logger"
)

const (
	maxAttempts = 3
	baseDelay   = 500 * time.Millisecond
	maxJitter   = 250 * time.Millisecond
)

// backoffDelay returns exponential backoff with jitter.
func backoffDelay(attempt int) time.Duration {
	delay := baseDelay << uint(attempt) // 0.5s, 1s, 2s
	jitter := time.Duration(rand.Int64N(int64(maxJitter)))
	return delay + jitter
}

// retryable reports whether a failed GitLab call may succeed when repeated.
// Responses that were received and are not 429 or 5xx are final.
func retryable(resp *gitlab.Response) bool {
	if resp == nil || resp.Response == nil {
		return true
	}
	code := resp.StatusCode
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

// withRetry runs call up to maxAttempts times.
func withRetry(ctx context.Context, log logger.Interface, delay func(int) time.Duration, op string, call func() (*gitlab.Response, error)) (*gitlab.Response, error) {
	var (
		resp *gitlab.Response
		err  error
	)
	for attempt := range maxAttempts {
		resp, err = call()
		if err == nil {
			if attempt > 0 {
				log.Info("GitLab call succeeded after retry", "op", op, "attempt", attempt+1)
			}
			return resp, nil
		}
		if !retryable(resp) || attempt == maxAttempts-1 {
			break
		}

		wait := delay(attempt)
		log.Warn("GitLab call failed, retrying", "op", op, "attempt", attempt+1, "error", err, "retry_in", wait)

		select {
		case <-ctx.Done():
			return resp, ctx.Err()
		case <-time.After(wait):
		}
	}
	return resp, err
}
