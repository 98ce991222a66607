package gateway

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrUnreachable covers network failures, 5xx responses and unparseable
	// bodies. Transient: callers may retry with backoff.
	ErrUnreachable = errors.New("gateway unreachable")
	// ErrRejected is a definitive gateway-side refusal (bad amount, unknown
	// merchant). Permanent: retrying will not help.
	ErrRejected = errors.New("gateway rejected request")
)

// RejectedError carries the gateway's refusal message alongside ErrRejected.
type RejectedError struct {
	Msg string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("gateway rejected request: %s", e.Msg)
}

func (e *RejectedError) Unwrap() error { return ErrRejected }

// CreateResult is the outcome of create_pay.
type CreateResult struct {
	IntentID string
	Raw      string // raw response body, stored on the intent for audit
}

// DetailResult is the outcome of detail_pay.
type DetailResult struct {
	AmountDue int64
	QRImage   string
	TimeLeft  int64 // seconds, as reported by the gateway
}

// ConfirmResult is the outcome of confirm. Confirmed=false with a nil error
// means the gateway answered cleanly that payment is still outstanding.
type ConfirmResult struct {
	Confirmed bool
	Reference string
	Amount    int64
}

// Client is the outbound surface of the payment gateway: a GET API keyed by
// a merchant id and shared secret.
type Client interface {
	CreatePay(ctx context.Context, amount int64, reference string) (*CreateResult, error)
	DetailPay(ctx context.Context, intentID string) (*DetailResult, error)
	Confirm(ctx context.Context, intentID string) (*ConfirmResult, error)
}
