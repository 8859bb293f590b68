// Package retry provides backoff strategies and a context-aware retry loop
// for transient failures, used for result page requests and for the
// crawler's empty-page sleep.
//
//	err := retry.Do(ctx, func(ctx context.Context) error {
//		_, err := client.FetchPage(ctx, req)
//		return err
//	}, retry.FromConfig(cfg.Retry, log))
//
// Only errors the imgcrawl error taxonomy marks retryable (network
// failures, 429 and 5xx statuses) are retried. Cancellation is never
// retried and interrupts any pending wait.
package retry
