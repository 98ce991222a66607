package handler

import (
	"context"
	"sync"
	"time"

	"gorm.io/gorm"

	"satang/internal/gateway"
	"satang/internal/models"
)

type memIntentStore struct {
	mu      sync.Mutex
	intents map[string]*models.PaymentIntent
	nextID  uint
}

func newMemIntentStore() *memIntentStore {
	return &memIntentStore{intents: make(map[string]*models.PaymentIntent)}
}

func (m *memIntentStore) Create(p *models.PaymentIntent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	p.ID = m.nextID
	cp := *p
	m.intents[p.IntentID] = &cp
	return nil
}

func (m *memIntentStore) GetByIntentID(intentID string) (*models.PaymentIntent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.intents[intentID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memIntentStore) ListByReference(reference string, limit int) ([]models.PaymentIntent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.PaymentIntent
	for _, p := range m.intents {
		if p.Reference == reference {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *memIntentStore) SetStatus(intentID, from, to string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.intents[intentID]; ok && p.Status == from {
		p.Status = to
	}
	return nil
}

func (m *memIntentStore) MarkConfirmed(intentID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.intents[intentID]; ok {
		p.Status = "CONFIRMED"
		p.ConfirmedAt = &at
	}
	return nil
}

type memLedger struct {
	mu       sync.Mutex
	byIntent map[string]*models.CreditTransaction
	balances map[string]int64
	nextID   uint
}

func newMemLedger() *memLedger {
	return &memLedger{
		byIntent: make(map[string]*models.CreditTransaction),
		balances: make(map[string]int64),
	}
}

func (m *memLedger) Commit(ctx context.Context, txn *models.CreditTransaction) (*models.CreditTransaction, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.byIntent[txn.IntentID]; ok {
		cp := *existing
		return &cp, false, nil
	}
	m.nextID++
	txn.ID = m.nextID
	cp := *txn
	m.byIntent[txn.IntentID] = &cp
	m.balances[txn.Reference] += txn.CreditsAdded
	return txn, true, nil
}

func (m *memLedger) Balance(ctx context.Context, reference string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balances[reference], nil
}

func (m *memLedger) TransactionsByReference(ctx context.Context, reference string, limit int) ([]models.CreditTransaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.CreditTransaction
	for _, t := range m.byIntent {
		if t.Reference == reference {
			out = append(out, *t)
		}
	}
	return out, nil
}

type memAudit struct {
	mu   sync.Mutex
	logs []models.AuditLog
}

func (m *memAudit) Create(l *models.AuditLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs = append(m.logs, *l)
	return nil
}

type fakeGateway struct {
	createFn  func(amount int64, reference string) (*gateway.CreateResult, error)
	detailFn  func(intentID string) (*gateway.DetailResult, error)
	confirmFn func(intentID string) (*gateway.ConfirmResult, error)
}

func (f *fakeGateway) CreatePay(ctx context.Context, amount int64, reference string) (*gateway.CreateResult, error) {
	return f.createFn(amount, reference)
}

func (f *fakeGateway) DetailPay(ctx context.Context, intentID string) (*gateway.DetailResult, error) {
	return f.detailFn(intentID)
}

func (f *fakeGateway) Confirm(ctx context.Context, intentID string) (*gateway.ConfirmResult, error) {
	return f.confirmFn(intentID)
}
