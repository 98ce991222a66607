package models

import (
	"time"
)

// CreditTransaction is the append-only record of a credited payment. The
// unique index on intent_id is the idempotency guarantee: whichever
// confirmation channel inserts first wins, every later attempt observes a
// duplicate-key error and reads this row instead.
type CreditTransaction struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	IntentID     string    `gorm:"size:128;uniqueIndex;not null" json:"intent_id"`
	Reference    string    `gorm:"size:128;not null;index" json:"reference"`
	CreditsAdded int64     `gorm:"not null" json:"credits_added"`
	Channel      string    `gorm:"size:16;not null" json:"channel"` // webhook | poll | manual
	Note         string    `gorm:"size:255" json:"note"`
	CommittedAt  time.Time `json:"committed_at"`
	CreatedAt    time.Time `json:"-"`
}

func (CreditTransaction) TableName() string {
	return "credit_transactions"
}

// CreditBalance is the derived per-reference balance, maintained in the same
// database transaction as the CreditTransaction insert.
type CreditBalance struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	Reference string    `gorm:"size:128;uniqueIndex;not null" json:"reference"`
	Balance   int64     `gorm:"not null;default:0" json:"balance"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (CreditBalance) TableName() string {
	return "credit_balances"
}
