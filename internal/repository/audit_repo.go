package repository

import (
	"satang/internal/models"

	"gorm.io/gorm"
)

type AuditLogRepository struct {
	db *gorm.DB
}

func NewAuditLogRepository(db *gorm.DB) *AuditLogRepository {
	return &AuditLogRepository{db: db}
}

func (r *AuditLogRepository) Create(l *models.AuditLog) error {
	return r.db.Create(l).Error
}

func (r *AuditLogRepository) ListPendingReview(limit int) ([]models.AuditLog, error) {
	var out []models.AuditLog
	err := r.db.Where("requires_review = ?", true).Order("created_at DESC").Limit(limit).Find(&out).Error
	return out, err
}
