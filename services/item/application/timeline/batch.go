package timeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/ghuser/lostfound/pkg/logger"
	itemdomain "github.com/ghuser/lostfound/services/item/domain"
)

// BatchOptions bounds one fan-out of single-shot reads.
type BatchOptions struct {
	// Concurrency caps the reads in flight at once.
	Concurrency int
	// ReadsPerSecond throttles reads across all batches of the runner; 0 disables it.
	ReadsPerSecond float64
	// Timeout ends a batch with whatever resolved so far.
	Timeout time.Duration
}

// BatchRunner executes fan-out batches. One runner is shared by every
// timeline of a process so the read throttle applies globally.
type BatchRunner struct {
	concurrency int
	timeout     time.Duration
	limiter     *rate.Limiter
	log         logger.Logger
	inst        *instruments
}

// NewBatchRunner returns a runner with the given limits.
func NewBatchRunner(opts BatchOptions, log logger.Logger) *BatchRunner {
	r := &BatchRunner{
		concurrency: max(opts.Concurrency, 1),
		timeout:     opts.Timeout,
		log:         log,
		inst:        newInstruments(),
	}
	if r.timeout <= 0 {
		r.timeout = 10 * time.Second
	}
	if opts.ReadsPerSecond > 0 {
		r.limiter = rate.NewLimiter(rate.Limit(opts.ReadsPerSecond), max(int(opts.ReadsPerSecond), 1))
	}
	return r
}

// readFunc resolves one key. keep=false drops the key without counting it as a failure.
type readFunc[T any] func(ctx context.Context, key string) (value T, keep bool, err error)

// gather runs read for every key and returns the kept values in key order.
//
// Each read fills the slot of its key's index, so completion order never leaks
// into the result. Read errors are logged and the key is skipped. When the batch
// deadline passes, gather returns what resolved so far together with an error
// wrapping ErrBatchTimeout; reads still running are abandoned and their late
// results discarded.
func gather[T any](ctx context.Context, r *BatchRunner, op string, keys []string, read readFunc[T]) ([]T, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	start := time.Now()
	ctx, cancel := context.WithTimeoutCause(ctx, r.timeout, itemdomain.ErrBatchTimeout)
	defer cancel()

	var (
		mu     sync.Mutex
		closed bool
		slots  = make([]T, len(keys))
		filled = make([]bool, len(keys))
	)

	done := make(chan struct{})
	go func() {
		defer close(done)
		var g errgroup.Group
		g.SetLimit(r.concurrency)
		for i, key := range keys {
			if ctx.Err() != nil {
				break
			}
			g.Go(func() error {
				if r.limiter != nil {
					if err := r.limiter.Wait(ctx); err != nil {
						return nil
					}
				}
				v, keep, err := read(ctx, key)
				if err != nil {
					if ctx.Err() == nil {
						r.log.WarnContext(ctx, "timeline: read failed, skipping key",
							"op", op, "key", key, "error", err)
					}
					return nil
				}
				if !keep {
					return nil
				}
				mu.Lock()
				if !closed {
					slots[i] = v
					filled[i] = true
				}
				mu.Unlock()
				return nil // never fail the group; failures are per key
			})
		}
		_ = g.Wait()
	}()

	var batchErr error
	select {
	case <-done:
	case <-ctx.Done():
	}
	if ctx.Err() != nil {
		batchErr = context.Cause(ctx)
	}

	mu.Lock()
	closed = true
	out := make([]T, 0, len(keys))
	for i, ok := range filled {
		if ok {
			out = append(out, slots[i])
		}
	}
	mu.Unlock()

	r.inst.recordBatch(ctx, op, time.Since(start), errors.Is(batchErr, itemdomain.ErrBatchTimeout))

	if batchErr != nil {
		r.log.WarnContext(ctx, "timeline: batch ended early",
			"op", op, "keys", len(keys), "resolved", len(out), "error", batchErr)
		return out, fmt.Errorf("%s batch: %w", op, batchErr)
	}
	return out, nil
}
