package backend

import (
	"context"

	"golang.org/x/time/rate"
)

type rateLimited struct {
	Client
	limiter *rate.Limiter
}

// RateLimited wraps c so that at most rps calls per second start, with the
// given burst. A non-positive rps returns c unchanged.
func RateLimited(c Client, rps float64, burst int) Client {
	if rps <= 0 {
		return c
	}
	if burst < 1 {
		burst = 1
	}
	return &rateLimited{Client: c, limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

func (r *rateLimited) Infer(ctx context.Context, prompt string, params Params) (string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return "", &BackendError{Backend: r.Name(), Model: params.Model, Err: err}
	}
	return r.Client.Infer(ctx, prompt, params)
}
