package workers

import (
	"context"
	"log"
	"time"

	"bounty-board/services"
)

// PayoutRetrier is the slice of the engine the payout worker needs.
type PayoutRetrier interface {
	RetryPayouts(ctx context.Context) (services.PayoutReport, error)
}

// PollPayouts retries pending/failed reward transfers every interval until
// ctx is cancelled. Only meaningful under the commit-then-pay policy, where a
// bounty can be closed before its reward has settled.
func PollPayouts(ctx context.Context, engine PayoutRetrier, interval time.Duration) {
	log.Printf("Starting payout retry worker (every %s)...", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Payout retry worker stopped.")
			return
		case <-ticker.C:
			RunPayoutPass(ctx, engine)
		}
	}
}

// RunPayoutPass performs a single retry pass and logs its outcome.
func RunPayoutPass(ctx context.Context, engine PayoutRetrier) services.PayoutReport {
	report, err := engine.RetryPayouts(ctx)
	if err != nil {
		log.Printf("❌ [Payout] Error retrying payouts: %v", err)
		return report
	}
	if report.Attempted == 0 {
		return report
	}
	log.Printf("[Payout] Retried %d payout(s): %d paid, %d still failing", report.Attempted, report.Paid, report.Failed)
	return report
}
