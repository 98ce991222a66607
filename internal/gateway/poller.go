package gateway

import (
	"context"
	"errors"
	"math/rand"
	"time"

	log "github.com/sirupsen/logrus"

	"satang/config"
)

// Poller wraps Client.Confirm with a bounded retry loop. Retries cover
// transient unreachability only; a clean "still waiting" answer ends the
// poll with Confirmed=false and the caller decides when to poll again.
// Liveness mechanism, not correctness: the ledger's idempotent commit makes
// any number of retries safe.
type Poller struct {
	client      Client
	maxAttempts int
	baseDelay   time.Duration
	maxJitter   time.Duration
}

func NewPoller(client Client, cfg *config.PollerConfig) *Poller {
	p := &Poller{
		client:      client,
		maxAttempts: cfg.MaxAttempts,
		baseDelay:   cfg.BaseDelay,
		maxJitter:   cfg.MaxJitter,
	}
	if p.maxAttempts < 1 {
		p.maxAttempts = 1
	}
	return p
}

func (p *Poller) Poll(ctx context.Context, intentID string) (*ConfirmResult, error) {
	var lastErr error
	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		res, err := p.client.Confirm(ctx, intentID)
		if err == nil {
			return res, nil
		}
		if !errors.Is(err, ErrUnreachable) {
			return nil, err
		}
		lastErr = err
		if attempt == p.maxAttempts {
			break
		}
		delay := p.baseDelay
		if p.maxJitter > 0 {
			delay += time.Duration(rand.Int63n(int64(p.maxJitter)))
		}
		log.WithFields(log.Fields{"intent_id": intentID, "attempt": attempt, "delay": delay}).Warn("[POLLER] gateway unreachable, backing off")
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
	return nil, lastErr
}
