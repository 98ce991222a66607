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

type IntentHandler struct {
	svc *service.CreditService
}

func NewIntentHandler(svc *service.CreditService) *IntentHandler {
	return &IntentHandler{svc: svc}
}

type CreateIntentRequest struct {
	Amount int64 `json:"amount" binding:"required,min=1"` // whole baht, no fractional units
}

// Create opens a payment intent with the gateway. The credited reference is
// the authenticated session's, never a request field.
func (h *IntentHandler) Create(c *gin.Context) {
	var req CreateIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	reference := middleware.GetReference(c)
	intent, err := h.svc.CreateIntent(c.Request.Context(), reference, req.Amount, c.ClientIP())
	if err != nil {
		var rejected *gateway.RejectedError
		if errors.As(err, &rejected) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "gateway rejected payment", "detail": rejected.Msg})
			return
		}
		if errors.Is(err, gateway.ErrUnreachable) {
			c.JSON(http.StatusBadGateway, gin.H{"error": "payment gateway unavailable, try again"})
			return
		}
		log.WithError(err).Error("[INTENT] create failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "intent create failed"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"intent_id":  intent.IntentID,
		"amount":     intent.Amount,
		"status":     intent.Status,
		"expires_at": intent.ExpiresAt,
	})
}

// Details serves the client's QR/amount/expiry poll. Terminal answers
// (404, 410) mean the caller must stop polling.
func (h *IntentHandler) Details(c *gin.Context) {
	intentID := c.Param("intent_id")
	det, err := h.svc.GetDetails(c.Request.Context(), intentID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrIntentNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "intent not found"})
		case errors.Is(err, service.ErrIntentExpired):
			c.JSON(http.StatusGone, gin.H{"error": "intent expired"})
		case errors.Is(err, gateway.ErrUnreachable):
			c.JSON(http.StatusBadGateway, gin.H{"error": "payment gateway unavailable, try again"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "detail fetch failed"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"amount_due":        det.AmountDue,
		"qr_image":          det.QRImage,
		"seconds_remaining": det.SecondsRemaining,
	})
}

// List returns the caller's recent intents.
func (h *IntentHandler) List(c *gin.Context) {
	reference := middleware.GetReference(c)
	intents, err := h.svc.Intents(reference, 50)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"intents": intents})
}
