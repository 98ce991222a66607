package models

import "time"

// AuditLog records security-relevant events: rejected webhook signatures and
// every user-asserted manual credit (the latter flagged for review).
type AuditLog struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Reference      string    `gorm:"size:128;index" json:"reference"`
	Action         string    `gorm:"size:64;not null;index" json:"action"`
	Resource       string    `gorm:"size:64" json:"resource"`
	ResourceID     string    `gorm:"size:128" json:"resource_id"`
	IP             string    `gorm:"size:64" json:"ip"`
	UserAgent      string    `gorm:"size:255" json:"user_agent"`
	Detail         string    `gorm:"type:text" json:"detail"`
	RequiresReview bool      `gorm:"default:false;index" json:"requires_review"`
	CreatedAt      time.Time `json:"created_at"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}
