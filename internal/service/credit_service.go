package service

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"satang/internal/domain"
	"satang/internal/gateway"
	"satang/internal/metrics"
	"satang/internal/models"
	"satang/internal/repository"
)

var (
	ErrIntentNotFound    = errors.New("intent not found")
	ErrIntentExpired     = errors.New("intent expired")
	ErrAmountMismatch    = errors.New("reported amount does not match intent")
	ErrReferenceMismatch = errors.New("reported reference does not match intent")
	ErrNotOwner          = errors.New("intent belongs to a different reference")
)

// LedgerStore is the durable idempotent commit surface. Implemented by
// repository.LedgerRepository; tests substitute an in-memory store.
type LedgerStore interface {
	Commit(ctx context.Context, txn *models.CreditTransaction) (*models.CreditTransaction, bool, error)
	Balance(ctx context.Context, reference string) (int64, error)
	TransactionsByReference(ctx context.Context, reference string, limit int) ([]models.CreditTransaction, error)
}

type IntentStore interface {
	Create(p *models.PaymentIntent) error
	GetByIntentID(intentID string) (*models.PaymentIntent, error)
	ListByReference(reference string, limit int) ([]models.PaymentIntent, error)
	SetStatus(intentID, from, to string) error
	MarkConfirmed(intentID string, at time.Time) error
}

type AuditSink interface {
	Create(l *models.AuditLog) error
}

// StatusNotifier pushes intent status transitions to connected clients so
// the UI can stop polling. May be nil.
type StatusNotifier interface {
	NotifyIntentStatus(reference, intentID, status string)
}

// InboundConfirmation is the normalised input to a ledger commit, regardless
// of which channel produced it. Transient: never persisted as truth itself.
type InboundConfirmation struct {
	IntentID       string
	Reference      string // as reported by the channel; "" when the channel carries none
	Amount         int64  // as reported; must match the intent
	Channel        string
	Note           string
	IP             string
	UserAgent      string
	RequiresReview bool
}

// CommitResult collapses ledger nuance for callers: Fresh distinguishes a
// new credit from an idempotent duplicate, both are success.
type CommitResult struct {
	Fresh       bool
	Transaction *models.CreditTransaction
	NewBalance  int64
}

type IntentDetails struct {
	AmountDue        int64
	QRImage          string
	SecondsRemaining int64
	Status           string
}

type CreditService struct {
	gw       gateway.Client
	poller   *gateway.Poller
	intents  IntentStore
	ledger   LedgerStore
	audit    AuditSink
	notifier StatusNotifier
	ttl      time.Duration
}

func NewCreditService(gw gateway.Client, poller *gateway.Poller, intents IntentStore, ledger LedgerStore, audit AuditSink, notifier StatusNotifier, intentTTL time.Duration) *CreditService {
	return &CreditService{
		gw:       gw,
		poller:   poller,
		intents:  intents,
		ledger:   ledger,
		audit:    audit,
		notifier: notifier,
		ttl:      intentTTL,
	}
}

// CreateIntent opens a payment intent with the gateway and persists it in
// state CREATED. The reference comes from the authenticated session, never
// from the request body.
func (s *CreditService) CreateIntent(ctx context.Context, reference string, amount int64, clientIP string) (*models.PaymentIntent, error) {
	res, err := s.gw.CreatePay(ctx, amount, reference)
	if err != nil {
		kind := "unreachable"
		if errors.Is(err, gateway.ErrRejected) {
			kind = "rejected"
		}
		metrics.GatewayErrorsTotal.WithLabelValues("create_pay", kind).Inc()
		return nil, err
	}
	intent := &models.PaymentIntent{
		IntentID:   res.IntentID,
		Reference:  reference,
		Amount:     amount,
		Status:     domain.IntentStatusCreated,
		ClientIP:   clientIP,
		RawMessage: res.Raw,
		ExpiresAt:  time.Now().Add(s.ttl),
	}
	if err := s.intents.Create(intent); err != nil {
		return nil, err
	}
	metrics.IntentsIssuedTotal.Inc()
	log.WithFields(log.Fields{"intent_id": intent.IntentID, "reference": reference, "amount": amount}).Info("[INTENT] issued")
	return intent, nil
}

// GetDetails serves the client's QR poll. Once the deadline passes the
// intent is marked EXPIRED and callers must stop polling.
func (s *CreditService) GetDetails(ctx context.Context, intentID string) (*IntentDetails, error) {
	intent, err := s.intents.GetByIntentID(intentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrIntentNotFound
		}
		return nil, err
	}
	if intent.Status == domain.IntentStatusExpired || intent.Status == domain.IntentStatusCancelled {
		return nil, ErrIntentExpired
	}
	now := time.Now()
	if intent.Status != domain.IntentStatusConfirmed && intent.Expired(now) {
		_ = s.intents.SetStatus(intentID, intent.Status, domain.IntentStatusExpired)
		s.notify(intent.Reference, intentID, domain.IntentStatusExpired)
		return nil, ErrIntentExpired
	}
	det, err := s.gw.DetailPay(ctx, intentID)
	if err != nil {
		kind := "unreachable"
		if errors.Is(err, gateway.ErrRejected) {
			kind = "rejected"
		}
		metrics.GatewayErrorsTotal.WithLabelValues("detail_pay", kind).Inc()
		return nil, err
	}
	if intent.Status == domain.IntentStatusCreated {
		_ = s.intents.SetStatus(intentID, domain.IntentStatusCreated, domain.IntentStatusPending)
	}
	return &IntentDetails{
		AmountDue:        det.AmountDue,
		QRImage:          det.QRImage,
		SecondsRemaining: intent.SecondsRemaining(now),
		Status:           intent.Status,
	}, nil
}

// Confirm funnels a confirmation from any channel into the idempotent
// ledger commit. Exactly one of concurrent callers for the same intent gets
// Fresh=true; every other observes the winning transaction.
func (s *CreditService) Confirm(ctx context.Context, conf InboundConfirmation) (*CommitResult, error) {
	intent, err := s.intents.GetByIntentID(conf.IntentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrIntentNotFound
		}
		return nil, err
	}
	if conf.Reference != "" && conf.Reference != intent.Reference {
		return nil, ErrReferenceMismatch
	}
	if conf.Amount != 0 && conf.Amount != intent.Amount {
		return nil, ErrAmountMismatch
	}
	// A gateway-proven confirmation (webhook, poll) is honoured even after
	// local expiry: money moved. A bare user assertion is not.
	if conf.Channel == domain.ChannelManual && conf.RequiresReview && intent.Expired(time.Now()) {
		return nil, ErrIntentExpired
	}
	if intent.Status == domain.IntentStatusCancelled {
		return nil, ErrIntentExpired
	}

	txn := &models.CreditTransaction{
		IntentID:     intent.IntentID,
		Reference:    intent.Reference,
		CreditsAdded: intent.Amount,
		Channel:      conf.Channel,
		Note:         conf.Note,
		CommittedAt:  time.Now(),
	}
	committed, fresh, err := s.ledger.Commit(ctx, txn)
	if errors.Is(err, repository.ErrWriteConflict) {
		committed, fresh, err = s.ledger.Commit(ctx, txn)
	}
	if err != nil {
		return nil, err
	}

	if fresh {
		metrics.ConfirmationsTotal.WithLabelValues(conf.Channel).Inc()
		_ = s.intents.MarkConfirmed(intent.IntentID, committed.CommittedAt)
		s.notify(intent.Reference, intent.IntentID, domain.IntentStatusConfirmed)
		s.auditCommit(intent, conf)
		log.WithFields(log.Fields{
			"intent_id": intent.IntentID,
			"reference": intent.Reference,
			"credits":   committed.CreditsAdded,
			"channel":   conf.Channel,
		}).Info("[LEDGER] credit committed")
	} else {
		metrics.DuplicateCommitsTotal.WithLabelValues(conf.Channel).Inc()
		log.WithFields(log.Fields{"intent_id": intent.IntentID, "channel": conf.Channel}).Info("[LEDGER] duplicate commit, no-op")
	}

	balance, err := s.ledger.Balance(ctx, intent.Reference)
	if err != nil {
		return nil, err
	}
	return &CommitResult{Fresh: fresh, Transaction: committed, NewBalance: balance}, nil
}

// PollConfirm drives the pull channel: ask the gateway whether the intent is
// paid, crediting through the same ledger on success. Confirmed=false is a
// normal answer while payment is outstanding, not an error.
func (s *CreditService) PollConfirm(ctx context.Context, intentID, callerReference string) (*CommitResult, bool, error) {
	intent, err := s.intents.GetByIntentID(intentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, ErrIntentNotFound
		}
		return nil, false, err
	}
	if intent.Reference != callerReference {
		return nil, false, ErrNotOwner
	}
	res, err := s.poller.Poll(ctx, intentID)
	if err != nil {
		kind := "unreachable"
		if errors.Is(err, gateway.ErrRejected) {
			kind = "rejected"
		}
		metrics.GatewayErrorsTotal.WithLabelValues("confirm", kind).Inc()
		return nil, false, err
	}
	if !res.Confirmed {
		return nil, false, nil
	}
	// Poll responses are gateway-authoritative but not signature-verified:
	// lower-trust input, same idempotent commit, never a separate path.
	commit, err := s.Confirm(ctx, InboundConfirmation{
		IntentID:  intentID,
		Reference: res.Reference,
		Amount:    res.Amount,
		Channel:   domain.ChannelPoll,
		Note:      "confirmed via gateway poll",
	})
	if err != nil {
		return nil, true, err
	}
	return commit, true, nil
}

// ManualConfirm first attempts a gateway confirm. Only when the gateway is
// inconclusive (still waiting or unreachable) and the user explicitly
// asserts payment does it commit on the assertion alone, audit-flagged for
// review. The intent_id ledger key still prevents any double credit.
func (s *CreditService) ManualConfirm(ctx context.Context, intentID, callerReference string, expectedAmount int64, userAsserted bool, ip, userAgent string) (*CommitResult, string, error) {
	intent, err := s.intents.GetByIntentID(intentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", ErrIntentNotFound
		}
		return nil, "", err
	}
	if intent.Reference != callerReference {
		return nil, "", ErrNotOwner
	}
	if expectedAmount != 0 && expectedAmount != intent.Amount {
		return nil, "", ErrAmountMismatch
	}

	res, pollErr := s.poller.Poll(ctx, intentID)
	if pollErr == nil && res.Confirmed {
		commit, err := s.Confirm(ctx, InboundConfirmation{
			IntentID:  intentID,
			Reference: res.Reference,
			Amount:    res.Amount,
			Channel:   domain.ChannelManual,
			Note:      "gateway confirmed during manual check",
			IP:        ip,
			UserAgent: userAgent,
		})
		return commit, "gateway", err
	}
	if pollErr != nil && errors.Is(pollErr, gateway.ErrRejected) {
		return nil, "", pollErr
	}
	if !userAsserted {
		return nil, "", nil
	}

	log.WithFields(log.Fields{"intent_id": intentID, "reference": callerReference, "ip": ip}).Warn("[MANUAL] crediting on user assertion without gateway proof")
	commit, err := s.Confirm(ctx, InboundConfirmation{
		IntentID:       intentID,
		Reference:      callerReference,
		Amount:         expectedAmount,
		Channel:        domain.ChannelManual,
		Note:           "user-asserted, no gateway proof",
		IP:             ip,
		UserAgent:      userAgent,
		RequiresReview: true,
	})
	return commit, "assertion", err
}

func (s *CreditService) Balance(ctx context.Context, reference string) (int64, error) {
	return s.ledger.Balance(ctx, reference)
}

func (s *CreditService) Transactions(ctx context.Context, reference string, limit int) ([]models.CreditTransaction, error) {
	return s.ledger.TransactionsByReference(ctx, reference, limit)
}

func (s *CreditService) Intents(reference string, limit int) ([]models.PaymentIntent, error) {
	return s.intents.ListByReference(reference, limit)
}

func (s *CreditService) notify(reference, intentID, status string) {
	if s.notifier != nil {
		s.notifier.NotifyIntentStatus(reference, intentID, status)
	}
}

func (s *CreditService) auditCommit(intent *models.PaymentIntent, conf InboundConfirmation) {
	if s.audit == nil {
		return
	}
	action := domain.AuditCreditCommitted
	if conf.RequiresReview {
		action = domain.AuditManualAsserted
	}
	_ = s.audit.Create(&models.AuditLog{
		Reference:      intent.Reference,
		Action:         action,
		Resource:       "credit_transaction",
		ResourceID:     intent.IntentID,
		IP:             conf.IP,
		UserAgent:      conf.UserAgent,
		Detail:         conf.Note,
		RequiresReview: conf.RequiresReview,
	})
}
