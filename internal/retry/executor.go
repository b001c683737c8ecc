package retry

import (
	"context"
	"time"

	"github.com/vvka-141/pgdal/pkg/pgdal"
)

// Executor repeats an operation while its error is transient.
// It is used by the CLI around connection setup only; statement execution
// and bulk transfers are never retried.
type Executor struct {
	classifier pgdal.ErrorClassifier
	strategy   pgdal.BackoffStrategy
	onRetry    func(attempt int, err error, delay time.Duration)
}

// NewExecutor panics if classifier or strategy is nil.
func NewExecutor(classifier pgdal.ErrorClassifier, strategy pgdal.BackoffStrategy) *Executor {
	if classifier == nil {
		panic("classifier cannot be nil")
	}
	if strategy == nil {
		panic("strategy cannot be nil")
	}
	return &Executor{classifier: classifier, strategy: strategy}
}

// NewConnectExecutor builds the executor the CLI wraps around Connector calls.
// Each retry is reported to logger.
func NewConnectExecutor(retries int, logger pgdal.Logger) *Executor {
	strategy := NewExponentialBackoff(retries,
		WithInitialDelay(pgdal.DefaultRetryInitialDelay),
		WithMaxDelay(pgdal.DefaultRetryMaxDelay),
	)
	return NewExecutor(NewConnectErrorClassifier(), strategy).WithOnRetry(
		func(attempt int, err error, delay time.Duration) {
			logger.Verbose("connection attempt %d failed, retrying in %s: %v", attempt+1, delay.Round(time.Millisecond), err)
		})
}

// WithOnRetry returns a copy of e that calls callback before each wait.
func (e *Executor) WithOnRetry(callback func(attempt int, err error, delay time.Duration)) *Executor {
	clone := *e
	clone.onRetry = callback
	return &clone
}

// Execute runs operation once, then retries transient failures until the
// strategy's attempts are used up or ctx ends. It returns the last error.
func (e *Executor) Execute(ctx context.Context, operation func(ctx context.Context) error) error {
	err := operation(ctx)
	maxAttempts := e.strategy.MaxAttempts()

	for attempt := 0; err != nil && e.classifier.IsTransient(err); attempt++ {
		if maxAttempts >= 0 && attempt >= maxAttempts {
			break
		}

		delay := e.strategy.NextDelay(attempt)
		if e.onRetry != nil {
			e.onRetry(attempt, err, delay)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		err = operation(ctx)
	}
	return err
}
