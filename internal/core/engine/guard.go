// Package engine coordinates the safety layer around one automation
// action: admission control, duplicate suppression, retried execution,
// and outcome accounting.
package engine

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/botguard/botguard/internal/config"
	"github.com/botguard/botguard/internal/core"
	"github.com/botguard/botguard/internal/core/idempotency"
	"github.com/botguard/botguard/internal/core/metrics"
	"github.com/botguard/botguard/internal/core/ratelimit"
	"github.com/botguard/botguard/internal/core/retry"
)

// Disposition classifies how a guarded run ended.
type Disposition string

const (
	DispositionCompleted   Disposition = "completed"
	DispositionDuplicate   Disposition = "duplicate"
	DispositionRateLimited Disposition = "rate_limited"
	DispositionFailed      Disposition = "failed"
)

// Outcome reports the result of one guarded run. Rate-limit denial and
// duplicate suppression are outcomes, not errors; Err is set only for
// DispositionFailed.
type Outcome struct {
	RunID       string
	Disposition Disposition
	Key         string
	Wait        time.Duration
	Err         error
}

// Guard wires the safety components around caller-supplied operations.
// The guard itself never performs the side effect; it gates, tracks, and
// retries the operation handed to it.
type Guard struct {
	Limiter   *ratelimit.Limiter
	Store     *idempotency.Store
	Metrics   *metrics.Collector
	Limits    ratelimit.Limits
	Retry     retry.Options
	OnOutcome func(account, action string, outcome Outcome)
}

// NewGuard assembles a guard from resolved configuration. Automation
// callers construct one per process and share it across workers.
func NewGuard(cfg *config.Config, limits ratelimit.Limits, collector *metrics.Collector) *Guard {
	return &Guard{
		Limiter: ratelimit.New(cfg.Bypass),
		Store:   idempotency.NewStore(cfg.State.IdempotencyPath),
		Metrics: collector,
		Limits:  limits,
		Retry:   cfg.Retry.Options(),
	}
}

// NewHTTPClient returns a retrying HTTP client configured from cfg, for
// guarded operations that are plain HTTP requests.
func NewHTTPClient(cfg *config.Config, base *http.Client) *retry.HTTPClient {
	return &retry.HTTPClient{
		Client:        base,
		Options:       cfg.Retry.Options(),
		RetryStatuses: cfg.Retry.RetryStatuses,
	}
}

// Run executes op for the given account/action if the rate limiter admits
// it and the action's fingerprint has not already completed. The attempt
// is marked in-flight before op runs and resolved to success or failure
// after; the metrics collector records the action name with the outcome.
func (g *Guard) Run(ctx context.Context, account, action string, info core.ActionInfo, op func(ctx context.Context) error) Outcome {
	outcome := Outcome{RunID: uuid.NewString()}

	if ctx == nil {
		ctx = context.Background()
	}

	allowed, wait := g.Limiter.Check(account, action, g.Limits)
	if !allowed {
		outcome.Disposition = DispositionRateLimited
		outcome.Wait = wait
		g.finish(account, action, outcome)
		return outcome
	}

	key := idempotency.BuildKey(info)
	outcome.Key = key

	if !g.store().CanAttempt(key) {
		outcome.Disposition = DispositionDuplicate
		g.finish(account, action, outcome)
		return outcome
	}

	meta := map[string]any{
		"run_id":  outcome.RunID,
		"account": account,
		"action":  action,
	}

	if err := g.store().MarkAttempt(key, meta); err != nil {
		outcome.Disposition = DispositionFailed
		outcome.Err = fmt.Errorf("mark attempt: %w", err)
		g.record(action, false)
		g.finish(account, action, outcome)
		return outcome
	}

	_, err := retry.Do(ctx, func() (struct{}, error) {
		return struct{}{}, op(ctx)
	}, g.Retry)

	if err != nil {
		if markErr := g.store().MarkFailure(key, err.Error(), meta); markErr != nil {
			err = fmt.Errorf("%w (record failure: %v)", err, markErr)
		}
		g.record(action, false)
		outcome.Disposition = DispositionFailed
		outcome.Err = err
		g.finish(account, action, outcome)
		return outcome
	}

	g.Limiter.Record(account, action)
	if err := g.store().MarkSuccess(key, meta); err != nil {
		// The side effect happened; surface the bookkeeping failure but
		// keep the completed disposition.
		outcome.Err = fmt.Errorf("record success: %w", err)
	}
	g.record(action, true)
	outcome.Disposition = DispositionCompleted
	g.finish(account, action, outcome)
	return outcome
}

func (g *Guard) store() *idempotency.Store {
	if g == nil {
		return nil
	}
	return g.Store
}

func (g *Guard) record(name string, success bool) {
	if g != nil && g.Metrics != nil {
		g.Metrics.Record(name, success)
	}
}

func (g *Guard) finish(account, action string, outcome Outcome) {
	if g != nil && g.OnOutcome != nil {
		g.OnOutcome(account, action, outcome)
	}
}
