package models

import (
	"time"

	"gorm.io/gorm"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusCompleted  OrderStatus = "completed"
	OrderStatusFailed     OrderStatus = "failed"
)

type DeliveryType string

const (
	DeliveryTypeCSV         DeliveryType = "csv"
	DeliveryTypeGoogleSheet DeliveryType = "google_sheet"
)

// Order is a customer request to convert credits into a delivered lead
// export. CreditsUsed is debited from the user atomically with the
// insert. Terminal states: completed, failed.
type Order struct {
	ID     string `gorm:"primaryKey;type:uuid" json:"id"`
	UserID string `gorm:"type:uuid;not null;index" json:"user_id"`

	SourceURL      string `gorm:"type:varchar(2048);not null" json:"source_url"`
	CreditsUsed    int64  `gorm:"not null" json:"credits_used"`
	EstimatedLeads int64  `gorm:"not null" json:"estimated_leads"`
	DeliveryEmail  string `gorm:"not null" json:"delivery_email"`

	Status OrderStatus `gorm:"type:varchar(20);not null;index;default:'pending'" json:"status"`

	// Fulfillment artifact, set when the team closes the order.
	DeliveryType DeliveryType `gorm:"type:varchar(20)" json:"delivery_type,omitempty"`
	DeliveryURL  string       `gorm:"type:varchar(2048)" json:"delivery_url,omitempty"`
	Notes        string       `gorm:"type:text" json:"notes,omitempty"`

	CreatedAt   time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
