package models

import "time"

// AffiliateClick is append-only telemetry for referral link hits. The
// code is recorded as received; validity is not checked at click time.
type AffiliateClick struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	AffiliateCode string    `gorm:"type:varchar(32);index;not null" json:"affiliate_code"`
	ClientIP      string    `gorm:"type:varchar(64)" json:"client_ip"`
	UserAgent     string    `gorm:"type:varchar(1024)" json:"user_agent"`
	Referrer      string    `gorm:"type:varchar(1024)" json:"referrer"`
	CreatedAt     time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

type CommissionStatus string

const (
	CommissionStatusPending CommissionStatus = "pending"
	CommissionStatusPaid    CommissionStatus = "paid"
)

// CommissionRate is the flat rate applied to every referred purchase.
const CommissionRate = 0.15

// AffiliateCommission is owed to AffiliateUserID for a completed
// purchase by ReferredUserID. The unique index on PurchaseID caps
// commissions at one per purchase regardless of webhook replays.
// PaymentMonth ("YYYY-MM") stays null until the row is marked paid and
// reflects the month payment was processed in, not the month earned.
type AffiliateCommission struct {
	ID              string `gorm:"primaryKey;type:uuid" json:"id"`
	AffiliateUserID string `gorm:"type:uuid;not null;index" json:"affiliate_user_id"`
	ReferredUserID  string `gorm:"type:uuid;not null;index" json:"referred_user_id"`
	PurchaseID      string `gorm:"type:uuid;not null;uniqueIndex" json:"purchase_id"`

	SaleAmount       float64 `gorm:"type:decimal(10,2);not null" json:"sale_amount"`
	CommissionAmount float64 `gorm:"type:decimal(10,2);not null" json:"commission_amount"`
	Rate             float64 `gorm:"type:decimal(5,4);not null;default:0.15" json:"rate"`

	Status       CommissionStatus `gorm:"type:varchar(20);not null;index;default:'pending'" json:"status"`
	PaymentMonth *string          `gorm:"type:varchar(7);index" json:"payment_month,omitempty"`
	PaidAt       *time.Time       `json:"paid_at,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
