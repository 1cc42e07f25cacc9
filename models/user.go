package models

import (
	"time"

	"gorm.io/gorm"
)

// User is a storefront customer. Credits are the purchasable balance
// consumed by orders; the balance never goes negative (debits are
// conditional at the SQL level, see services.DebitCredits).
type User struct {
	ID           string `gorm:"primaryKey;type:uuid" json:"id"`
	Email        string `gorm:"uniqueIndex;not null" json:"email"`
	Username     string `gorm:"index;not null" json:"username"`
	PasswordHash string `gorm:"not null" json:"-"`

	Credits int64 `gorm:"not null;default:0" json:"credits"`

	// AffiliateCode is assigned on demand and never reused once published.
	AffiliateCode *string `gorm:"uniqueIndex" json:"affiliate_code,omitempty"`
	// ReferredBy is the referring user's ID, set once at registration.
	ReferredBy  *string `gorm:"index" json:"referred_by,omitempty"`
	PaypalEmail *string `json:"paypal_email,omitempty"`

	EmailVerified      bool    `gorm:"default:false" json:"email_verified"`
	VerificationToken  *string `gorm:"index" json:"-"`
	PasswordResetToken *string `gorm:"index" json:"-"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
