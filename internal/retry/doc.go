// Package retry re-runs an operation with exponential backoff while its
// error is classified as transient.
//
// pgscrape uses it only for opening database pools; page fetches are never
// retried. The attempt budget comes from --connect-retries and defaults to
// zero, so a run makes exactly one connection attempt unless asked otherwise.
//
//	executor := retry.NewExecutor(
//	    retry.NewPostgreSQLErrorClassifier(),
//	    retry.NewExponentialBackoff(3, retry.WithInitialDelay(200*time.Millisecond)),
//	)
//	err := executor.Execute(ctx, func(ctx context.Context) error {
//	    return pool.Ping(ctx)
//	})
package retry
