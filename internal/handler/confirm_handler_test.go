package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"satang/config"
	"satang/internal/domain"
	"satang/internal/gateway"
	"satang/internal/models"
	"satang/internal/service"
)

// sessionAs stands in for the JWT middleware: the reference is always
// resolved server-side, never read from the request body.
func sessionAs(reference string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("user_id", uint(1))
		c.Set("reference", reference)
		c.Next()
	}
}

type confirmFixture struct {
	engine  *gin.Engine
	intents *memIntentStore
	ledger  *memLedger
	audit   *memAudit
	gw      *fakeGateway
}

func newConfirmFixture(t *testing.T, reference string) *confirmFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	gw := &fakeGateway{
		confirmFn: func(intentID string) (*gateway.ConfirmResult, error) {
			return &gateway.ConfirmResult{Confirmed: false}, nil
		},
	}
	intents := newMemIntentStore()
	ledger := newMemLedger()
	audit := &memAudit{}
	poller := gateway.NewPoller(gw, &config.PollerConfig{MaxAttempts: 2, BaseDelay: time.Millisecond, MaxJitter: time.Millisecond})
	svc := service.NewCreditService(gw, poller, intents, ledger, audit, nil, 10*time.Minute)

	h := NewConfirmHandler(svc)
	engine := gin.New()
	authed := engine.Group("/", sessionAs(reference))
	authed.POST("/confirm/poll", h.Poll)
	authed.POST("/confirm/manual", h.Manual)
	return &confirmFixture{engine: engine, intents: intents, ledger: ledger, audit: audit, gw: gw}
}

func (f *confirmFixture) seedIntent(t *testing.T, intentID, reference string, amount int64, expiresIn time.Duration) {
	t.Helper()
	err := f.intents.Create(&models.PaymentIntent{
		IntentID:  intentID,
		Reference: reference,
		Amount:    amount,
		Status:    domain.IntentStatusPending,
		ExpiresAt: time.Now().Add(expiresIn),
	})
	if err != nil {
		t.Fatalf("seed intent: %v", err)
	}
}

func postJSON(t *testing.T, engine *gin.Engine, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestPollStillPending(t *testing.T) {
	f := newConfirmFixture(t, "user_a")
	f.seedIntent(t, "pay_1", "user_a", 100, 10*time.Minute)

	rec := postJSON(t, f.engine, "/confirm/poll", `{"intent_id":"pay_1"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d, want 200; body %s", rec.Code, rec.Body.String())
	}
	body := decodeJSON(t, rec)
	if body["confirmed"] != false {
		t.Fatalf("confirmed = %v, want false", body["confirmed"])
	}
}

func TestPollConfirmedCredits(t *testing.T) {
	f := newConfirmFixture(t, "user_a")
	f.seedIntent(t, "pay_1", "user_a", 100, 10*time.Minute)
	f.gw.confirmFn = func(intentID string) (*gateway.ConfirmResult, error) {
		return &gateway.ConfirmResult{Confirmed: true, Reference: "user_a", Amount: 100}, nil
	}

	rec := postJSON(t, f.engine, "/confirm/poll", `{"intent_id":"pay_1"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d, want 200; body %s", rec.Code, rec.Body.String())
	}
	body := decodeJSON(t, rec)
	if body["confirmed"] != true {
		t.Fatalf("confirmed = %v, want true", body["confirmed"])
	}
	if body["new_balance"].(float64) != 100 {
		t.Fatalf("new_balance = %v, want 100", body["new_balance"])
	}
}

func TestPollNotOwner(t *testing.T) {
	f := newConfirmFixture(t, "user_b")
	f.seedIntent(t, "pay_1", "user_a", 100, 10*time.Minute)

	rec := postJSON(t, f.engine, "/confirm/poll", `{"intent_id":"pay_1"}`)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("code = %d, want 403", rec.Code)
	}
}

func TestPollUnknownIntent(t *testing.T) {
	f := newConfirmFixture(t, "user_a")
	rec := postJSON(t, f.engine, "/confirm/poll", `{"intent_id":"nope"}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("code = %d, want 404", rec.Code)
	}
}

func TestPollGatewayDown(t *testing.T) {
	f := newConfirmFixture(t, "user_a")
	f.seedIntent(t, "pay_1", "user_a", 100, 10*time.Minute)
	f.gw.confirmFn = func(intentID string) (*gateway.ConfirmResult, error) {
		return nil, gateway.ErrUnreachable
	}

	rec := postJSON(t, f.engine, "/confirm/poll", `{"intent_id":"pay_1"}`)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("code = %d, want 502", rec.Code)
	}
}

func TestPollMissingIntentID(t *testing.T) {
	f := newConfirmFixture(t, "user_a")
	rec := postJSON(t, f.engine, "/confirm/poll", `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("code = %d, want 400", rec.Code)
	}
}

func TestManualGatewayConfirms(t *testing.T) {
	f := newConfirmFixture(t, "user_a")
	f.seedIntent(t, "pay_1", "user_a", 100, 10*time.Minute)
	f.gw.confirmFn = func(intentID string) (*gateway.ConfirmResult, error) {
		return &gateway.ConfirmResult{Confirmed: true, Reference: "user_a", Amount: 100}, nil
	}

	rec := postJSON(t, f.engine, "/confirm/manual", `{"intent_id":"pay_1","expected_amount":100,"user_asserted":true}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d, want 200; body %s", rec.Code, rec.Body.String())
	}
	body := decodeJSON(t, rec)
	if body["method"] != "gateway" {
		t.Fatalf("method = %v, want gateway", body["method"])
	}
	f.audit.mu.Lock()
	defer f.audit.mu.Unlock()
	if len(f.audit.logs) != 1 || f.audit.logs[0].RequiresReview {
		t.Fatalf("audit logs = %+v, want one unflagged entry", f.audit.logs)
	}
}

func TestManualInconclusiveNotAsserted(t *testing.T) {
	f := newConfirmFixture(t, "user_a")
	f.seedIntent(t, "pay_1", "user_a", 100, 10*time.Minute)

	rec := postJSON(t, f.engine, "/confirm/manual", `{"intent_id":"pay_1","expected_amount":100,"user_asserted":false}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d, want 200; body %s", rec.Code, rec.Body.String())
	}
	body := decodeJSON(t, rec)
	if body["accepted"] != false || body["confirmed"] != false {
		t.Fatalf("body = %v, want accepted=false confirmed=false", body)
	}
	if len(f.ledger.byIntent) != 0 {
		t.Fatalf("ledger has %d transactions, want 0", len(f.ledger.byIntent))
	}
}

func TestManualAssertionFlaggedForReview(t *testing.T) {
	f := newConfirmFixture(t, "user_a")
	f.seedIntent(t, "pay_1", "user_a", 100, 10*time.Minute)

	rec := postJSON(t, f.engine, "/confirm/manual", `{"intent_id":"pay_1","expected_amount":100,"user_asserted":true}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d, want 200; body %s", rec.Code, rec.Body.String())
	}
	body := decodeJSON(t, rec)
	if body["method"] != "assertion" {
		t.Fatalf("method = %v, want assertion", body["method"])
	}
	if body["new_balance"].(float64) != 100 {
		t.Fatalf("new_balance = %v, want 100", body["new_balance"])
	}
	f.audit.mu.Lock()
	defer f.audit.mu.Unlock()
	if len(f.audit.logs) != 1 || !f.audit.logs[0].RequiresReview {
		t.Fatalf("audit logs = %+v, want one review-flagged entry", f.audit.logs)
	}
}

func TestManualAssertionExpiredIntent(t *testing.T) {
	f := newConfirmFixture(t, "user_a")
	f.seedIntent(t, "pay_1", "user_a", 100, -time.Minute)

	rec := postJSON(t, f.engine, "/confirm/manual", `{"intent_id":"pay_1","expected_amount":100,"user_asserted":true}`)
	if rec.Code != http.StatusGone {
		t.Fatalf("code = %d, want 410; body %s", rec.Code, rec.Body.String())
	}
}

func TestManualAmountMismatch(t *testing.T) {
	f := newConfirmFixture(t, "user_a")
	f.seedIntent(t, "pay_1", "user_a", 100, 10*time.Minute)

	rec := postJSON(t, f.engine, "/confirm/manual", `{"intent_id":"pay_1","expected_amount":55,"user_asserted":true}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("code = %d, want 422; body %s", rec.Code, rec.Body.String())
	}
}

func TestManualDuplicateStillConfirmed(t *testing.T) {
	f := newConfirmFixture(t, "user_a")
	f.seedIntent(t, "pay_1", "user_a", 100, 10*time.Minute)

	body := `{"intent_id":"pay_1","expected_amount":100,"user_asserted":true}`
	for i := 0; i < 2; i++ {
		rec := postJSON(t, f.engine, "/confirm/manual", body)
		if rec.Code != http.StatusOK {
			t.Fatalf("attempt %d: code = %d; body %s", i, rec.Code, rec.Body.String())
		}
		got := decodeJSON(t, rec)
		if got["confirmed"] != true {
			t.Fatalf("attempt %d: confirmed = %v, want true", i, got["confirmed"])
		}
	}
	f.ledger.mu.Lock()
	bal := f.ledger.balances["user_a"]
	f.ledger.mu.Unlock()
	if bal != 100 {
		t.Fatalf("balance = %d, want 100", bal)
	}
}
