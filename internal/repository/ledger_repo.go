package repository

import (
	"context"
	"errors"

	"satang/internal/models"

	"gorm.io/gorm"
)

// ErrWriteConflict indicates a commit lost a race that was not decided by
// the intent_id uniqueness rule. It signals "retry", not "failure".
var ErrWriteConflict = errors.New("ledger write conflict")

// LedgerRepository is the single source of truth for "has this payment been
// credited". Requires a *gorm.DB opened with TranslateError so duplicate-key
// violations surface as gorm.ErrDuplicatedKey.
type LedgerRepository struct {
	db *gorm.DB
}

func NewLedgerRepository(db *gorm.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// Commit inserts the CreditTransaction and increments the reference's
// balance in one database transaction. The unique index on intent_id makes
// this safe across processes: exactly one concurrent caller gets fresh=true,
// the rest get the winning row back with fresh=false and an untouched
// balance.
func (r *LedgerRepository) Commit(ctx context.Context, txn *models.CreditTransaction) (*models.CreditTransaction, bool, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(txn).Error; err != nil {
			return err
		}
		res := tx.Model(&models.CreditBalance{}).
			Where("reference = ?", txn.Reference).
			Update("balance", gorm.Expr("balance + ?", txn.CreditsAdded))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return tx.Create(&models.CreditBalance{Reference: txn.Reference, Balance: txn.CreditsAdded}).Error
		}
		return nil
	})
	if err == nil {
		return txn, true, nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		existing, gerr := r.GetByIntentID(ctx, txn.IntentID)
		if errors.Is(gerr, gorm.ErrRecordNotFound) {
			// The duplicate key came from the balance row, not the
			// transaction: two first-ever commits for the same reference
			// raced on creating credit_balances. Retryable.
			return nil, false, ErrWriteConflict
		}
		if gerr != nil {
			return nil, false, gerr
		}
		return existing, false, nil
	}
	return nil, false, err
}

func (r *LedgerRepository) GetByIntentID(ctx context.Context, intentID string) (*models.CreditTransaction, error) {
	var t models.CreditTransaction
	if err := r.db.WithContext(ctx).Where("intent_id = ?", intentID).First(&t).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *LedgerRepository) Balance(ctx context.Context, reference string) (int64, error) {
	var b models.CreditBalance
	err := r.db.WithContext(ctx).Where("reference = ?", reference).First(&b).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return b.Balance, nil
}

func (r *LedgerRepository) TransactionsByReference(ctx context.Context, reference string, limit int) ([]models.CreditTransaction, error) {
	var out []models.CreditTransaction
	err := r.db.WithContext(ctx).Where("reference = ?", reference).Order("committed_at DESC").Limit(limit).Find(&out).Error
	return out, err
}
