package models

import (
	"time"

	"gorm.io/gorm"
)

// PaymentIntent mirrors a gateway-tracked request to receive a specific
// amount. Status only moves forward; confirmation is recorded by the
// CreditTransaction, not here.
type PaymentIntent struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	IntentID    string         `gorm:"size:128;uniqueIndex;not null" json:"intent_id"` // gateway payid
	Reference   string         `gorm:"size:128;not null;index" json:"reference"`
	Amount      int64          `gorm:"not null" json:"amount"` // whole baht
	Status      string         `gorm:"size:20;not null;index" json:"status"`
	ClientIP    string         `gorm:"size:64" json:"-"`
	RawMessage  string         `gorm:"type:text" json:"-"` // raw gateway create_pay response
	ExpiresAt   time.Time      `json:"expires_at"`
	ConfirmedAt *time.Time     `json:"confirmed_at"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

func (PaymentIntent) TableName() string {
	return "payment_intents"
}

// Expired reports whether the intent is past its gateway deadline.
func (p *PaymentIntent) Expired(now time.Time) bool {
	return now.After(p.ExpiresAt)
}

// SecondsRemaining until expiry, floored at zero.
func (p *PaymentIntent) SecondsRemaining(now time.Time) int64 {
	s := int64(p.ExpiresAt.Sub(now).Seconds())
	if s < 0 {
		return 0
	}
	return s
}
