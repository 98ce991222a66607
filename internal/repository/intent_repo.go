package repository

import (
	"time"

	"satang/internal/domain"
	"satang/internal/models"

	"gorm.io/gorm"
)

type IntentRepository struct {
	db *gorm.DB
}

func NewIntentRepository(db *gorm.DB) *IntentRepository {
	return &IntentRepository{db: db}
}

func (r *IntentRepository) Create(p *models.PaymentIntent) error {
	return r.db.Create(p).Error
}

func (r *IntentRepository) GetByIntentID(intentID string) (*models.PaymentIntent, error) {
	var p models.PaymentIntent
	if err := r.db.Where("intent_id = ?", intentID).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *IntentRepository) ListByReference(reference string, limit int) ([]models.PaymentIntent, error) {
	var out []models.PaymentIntent
	err := r.db.Where("reference = ?", reference).Order("created_at DESC").Limit(limit).Find(&out).Error
	return out, err
}

// SetStatus moves an intent forward. The WHERE clause on the current status
// keeps transitions monotonic under concurrent writers: a CONFIRMED intent
// never drops back to EXPIRED even if a late detail poll races a webhook.
func (r *IntentRepository) SetStatus(intentID, from, to string) error {
	return r.db.Model(&models.PaymentIntent{}).
		Where("intent_id = ? AND status = ?", intentID, from).
		Update("status", to).Error
}

// MarkConfirmed stamps the intent regardless of whether it was CREATED or
// PENDING, but never overwrites a terminal status other than EXPIRED (a
// gateway-proven payment may land after local expiry).
func (r *IntentRepository) MarkConfirmed(intentID string, at time.Time) error {
	return r.db.Model(&models.PaymentIntent{}).
		Where("intent_id = ? AND status IN ?", intentID, []string{
			domain.IntentStatusCreated, domain.IntentStatusPending, domain.IntentStatusExpired,
		}).
		Updates(map[string]interface{}{"status": domain.IntentStatusConfirmed, "confirmed_at": at}).Error
}
