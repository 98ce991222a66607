package handler

import (
	"errors"
	"net/http"

	"satang/internal/gateway"
	"satang/internal/middleware"
	"satang/internal/service"

	log "github.com/sirupsen/logrus"

	"github.com/gin-gonic/gin"
)

type ConfirmHandler struct {
	svc *service.CreditService
}

func NewConfirmHandler(svc *service.CreditService) *ConfirmHandler {
	return &ConfirmHandler{svc: svc}
}

type PollConfirmRequest struct {
	IntentID string `json:"intent_id" binding:"required"`
}

type ManualConfirmRequest struct {
	IntentID       string `json:"intent_id" binding:"required"`
	ExpectedAmount int64  `json:"expected_amount" binding:"required,min=1"`
	UserAsserted   bool   `json:"user_asserted"`
}

// Poll is the pull channel: ask the gateway whether the intent is paid.
// "Still pending" is a 200 with confirmed=false; the client chooses when to
// ask again.
func (h *ConfirmHandler) Poll(c *gin.Context) {
	var req PollConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	reference := middleware.GetReference(c)
	res, confirmed, err := h.svc.PollConfirm(c.Request.Context(), req.IntentID, reference)
	if err != nil {
		h.writeConfirmErr(c, err, req.IntentID)
		return
	}
	if !confirmed {
		c.JSON(http.StatusOK, gin.H{"confirmed": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"confirmed":     true,
		"credits_added": res.Transaction.CreditsAdded,
		"new_balance":   res.NewBalance,
	})
}

// Manual is the user-asserted fallback, rate-limited per reference upstream.
// The response never distinguishes fresh from duplicate: both are
// "confirmed" to the client.
func (h *ConfirmHandler) Manual(c *gin.Context) {
	var req ManualConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	reference := middleware.GetReference(c)
	res, method, err := h.svc.ManualConfirm(
		c.Request.Context(), req.IntentID, reference, req.ExpectedAmount,
		req.UserAsserted, c.ClientIP(), c.Request.UserAgent(),
	)
	if err != nil {
		h.writeConfirmErr(c, err, req.IntentID)
		return
	}
	if res == nil {
		// Gateway inconclusive and the user did not assert payment.
		c.JSON(http.StatusOK, gin.H{"accepted": false, "confirmed": false, "method": "gateway"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"accepted":      true,
		"confirmed":     true,
		"credits_added": res.Transaction.CreditsAdded,
		"new_balance":   res.NewBalance,
		"method":        method,
	})
}

func (h *ConfirmHandler) writeConfirmErr(c *gin.Context, err error, intentID string) {
	switch {
	case errors.Is(err, service.ErrIntentNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "intent not found"})
	case errors.Is(err, service.ErrNotOwner):
		c.JSON(http.StatusForbidden, gin.H{"error": "not your intent"})
	case errors.Is(err, service.ErrIntentExpired):
		c.JSON(http.StatusGone, gin.H{"error": "intent expired"})
	case errors.Is(err, service.ErrAmountMismatch), errors.Is(err, service.ErrReferenceMismatch):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, gateway.ErrUnreachable):
		c.JSON(http.StatusBadGateway, gin.H{"error": "payment gateway unavailable, try again"})
	case errors.Is(err, gateway.ErrRejected):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "gateway rejected confirm"})
	default:
		log.WithError(err).WithField("intent_id", intentID).Error("[CONFIRM] failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "confirm failed"})
	}
}
