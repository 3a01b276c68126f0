package jobs

import (
	"context"
	"log"
	"time"
)

// PendingReconciler settles payments whose confirmation never arrived.
type PendingReconciler interface {
	ReconcilePending(ctx context.Context, olderThan time.Duration) (int, error)
}

// ReconcilePayments returns the cron func that re-checks payments pending for
// longer than olderThan. A run is bounded by timeout.
func ReconcilePayments(r PendingReconciler, olderThan, timeout time.Duration) func() {
	return func() {
		log.Println("Running job: ReconcilePayments...")

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		settled, err := r.ReconcilePending(ctx, olderThan)
		if err != nil {
			log.Printf("Error reconciling pending payments: %v", err)
			return
		}
		if settled == 0 {
			log.Println("No pending payments settled.")
			return
		}
		log.Printf("Settled %d pending payment(s).", settled)
	}
}
