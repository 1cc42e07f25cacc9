// services/scheduler.go
package services

import (
	"log"
	"time"

	"leadstore/models"

	"github.com/go-co-op/gocron/v2"
)

// StartExpiryScheduler abandons checkout sessions the customer never
// finished: pending purchases older than 24h flip to failed. A webhook
// that still arrives later is a no-op against a failed row, matching
// the provider's own session expiry.
func (s *PaymentService) StartExpiryScheduler() {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	_, _ = sched.NewJob(
		gocron.DurationJob(1*time.Hour),
		gocron.NewTask(func() {
			cutoff := time.Now().UTC().Add(-24 * time.Hour)
			res := s.DB.Model(&models.CreditPurchase{}).
				Where("status = ? AND created_at < ?", models.PurchaseStatusPending, cutoff).
				Update("status", models.PurchaseStatusFailed)
			if res.Error != nil {
				log.Printf("[Scheduler] purchase expiry DB error: %v", res.Error)
				return
			}
			if res.RowsAffected > 0 {
				log.Printf("[Scheduler] expired %d stale pending purchase(s)", res.RowsAffected)
			}
		}),
	)
}

// StartBillingDigest logs a daily summary of pending commission totals
// per earned month, so the payout run never sneaks up on anyone.
func (s *BillingService) StartBillingDigest() {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	_, _ = sched.NewJob(
		gocron.DurationJob(24*time.Hour),
		gocron.NewTask(func() {
			bills, err := s.MonthlyBills()
			if err != nil {
				log.Printf("[Scheduler] billing digest DB error: %v", err)
				return
			}
			for _, b := range bills {
				log.Printf("[Billing] %s: $%.2f pending across %d commission(s), %d affiliate(s)",
					b.Month, b.TotalCommissions, b.TransactionCount, len(b.Affiliates))
			}
		}),
	)
}
