package llm

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Call performs one model request with the given model and credential.
type Call func(ctx context.Context, model, apiKey string) (string, error)

// RotationConfig configures a Rotation.
type RotationConfig struct {
	Models      []string
	APIKeys     []string
	MaxAttempts int
	Backoff     time.Duration
	CallTimeout time.Duration
}

// Rotation walks the model list, rotating credentials on rate limit and
// overload errors. The current credential index survives across calls so a
// key that hit its quota is not retried first on the next request.
//
// States per model: call -> success (done), transient error (rotate the
// credential, back off, call again until the attempt budget is spent, then
// next model), other error (next model). No models left -> ErrExhausted.
type Rotation struct {
	models      []string
	keys        []string
	maxAttempts int
	backoff     time.Duration
	callTimeout time.Duration
	sleep       func(ctx context.Context, d time.Duration) error

	mu     sync.Mutex
	keyIdx int
}

func NewRotation(cfg RotationConfig) *Rotation {
	maxAttempts := cfg.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Rotation{
		models:      cfg.Models,
		keys:        cfg.APIKeys,
		maxAttempts: maxAttempts,
		backoff:     cfg.Backoff,
		callTimeout: cfg.CallTimeout,
		sleep:       sleepContext,
	}
}

// Do runs call through the rotation and returns the first successful result.
func (r *Rotation) Do(ctx context.Context, task string, call Call) (string, error) {
	budget := r.maxAttempts
	if len(r.keys) > budget {
		budget = len(r.keys)
	}

	var lastErr error
	model, attempt := 0, 0
	for model < len(r.models) {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		name := r.models[model]
		key := r.currentKey()
		out, err := r.attempt(ctx, call, name, key)
		if err == nil {
			return out, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		lastErr = err

		if !IsTransient(err) {
			slog.Warn("Model call failed, trying next model", "task", task, "model", name, "err", err)
			model, attempt = model+1, 0
			continue
		}

		attempt++
		if attempt >= budget {
			slog.Warn("Retries exhausted for model", "task", task, "model", name, "attempts", attempt, "err", err)
			model, attempt = model+1, 0
			continue
		}

		r.rotateKey()
		wait := r.backoff * time.Duration(attempt)
		slog.Info("Quota or overload, switching key", "task", task, "model", name, "key", MaskKey(key), "wait", wait)
		if err := r.sleep(ctx, wait); err != nil {
			return "", err
		}
	}

	if lastErr == nil {
		return "", fmt.Errorf("%s: %w", task, ErrExhausted)
	}
	return "", fmt.Errorf("%s: %w: last error: %v", task, ErrExhausted, lastErr)
}

func (r *Rotation) attempt(ctx context.Context, call Call, model, key string) (string, error) {
	if r.callTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.callTimeout)
		defer cancel()
	}
	return call(ctx, model, key)
}

func (r *Rotation) currentKey() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.keys) == 0 {
		return ""
	}
	return r.keys[r.keyIdx%len(r.keys)]
}

func (r *Rotation) rotateKey() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.keys) > 0 {
		r.keyIdx = (r.keyIdx + 1) % len(r.keys)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
