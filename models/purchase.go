package models

import "time"

type PurchaseStatus string

const (
	PurchaseStatusPending   PurchaseStatus = "pending"
	PurchaseStatusCompleted PurchaseStatus = "completed"
	PurchaseStatusFailed    PurchaseStatus = "failed"
)

// CreditPurchase records one payment event. PaymentRef is the external
// provider's payment id and is the idempotency key for completion
// handling: the unique index plus the conditional pending→completed
// flip guarantee credits are granted exactly once per reference.
type CreditPurchase struct {
	ID        string `gorm:"primaryKey;type:uuid" json:"id"`
	UserID    string `gorm:"type:uuid;not null;index" json:"user_id"`
	PackageID string `gorm:"type:varchar(32);not null" json:"package_id"`

	Amount  float64 `gorm:"type:decimal(10,2);not null" json:"amount"` // USD
	Credits int64   `gorm:"not null" json:"credits"`

	PaymentRef string         `gorm:"uniqueIndex;not null" json:"payment_ref"`
	Status     PurchaseStatus `gorm:"type:varchar(20);not null;index;default:'pending'" json:"status"`

	CreatedAt   time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}
