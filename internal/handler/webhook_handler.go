package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"satang/internal/domain"
	"satang/internal/gateway"
	"satang/internal/metrics"
	"satang/internal/models"
	"satang/internal/service"

	log "github.com/sirupsen/logrus"

	"github.com/gin-gonic/gin"
)

// webhookData is the JSON carried in the envelope's data field. Nothing here
// is trusted until the signature over the raw string checks out.
type webhookData struct {
	PayID  string `json:"payid"`
	Ref    string `json:"ref"`
	Amount int64  `json:"amount"`
	Time   string `json:"time"`
}

type WebhookHandler struct {
	svc    *service.CreditService
	audit  service.AuditSink
	secret string
}

func NewWebhookHandler(svc *service.CreditService, audit service.AuditSink, sharedSecret string) *WebhookHandler {
	return &WebhookHandler{svc: svc, audit: audit, secret: sharedSecret}
}

// Handle processes the gateway's pushed confirmation: a multipart POST with
// fields data (JSON string) and signature (hex digest). Response
// {"status":1} acknowledges receipt; anything else makes the gateway retry
// delivery, so duplicates are acknowledged too.
func (h *WebhookHandler) Handle(c *gin.Context) {
	rawData := c.PostForm("data")
	signature := c.PostForm("signature")
	if !gateway.VerifySignature(rawData, signature, h.secret) {
		metrics.InvalidSignaturesTotal.Inc()
		log.WithFields(log.Fields{"ip": c.ClientIP()}).Warn("[WEBHOOK] signature rejected")
		if h.audit != nil {
			_ = h.audit.Create(&models.AuditLog{
				Action:    domain.AuditSignatureRejected,
				Resource:  "webhook_envelope",
				IP:        c.ClientIP(),
				UserAgent: c.Request.UserAgent(),
			})
		}
		c.JSON(http.StatusUnauthorized, gin.H{"status": 0, "error": "invalid signature"})
		return
	}

	var payload webhookData
	if err := json.Unmarshal([]byte(rawData), &payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": 0, "error": "invalid json"})
		return
	}
	if payload.PayID == "" || payload.Ref == "" || payload.Amount <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"status": 0, "error": "missing payid, ref or amount"})
		return
	}

	res, err := h.svc.Confirm(c.Request.Context(), service.InboundConfirmation{
		IntentID:  payload.PayID,
		Reference: payload.Ref,
		Amount:    payload.Amount,
		Channel:   domain.ChannelWebhook,
		Note:      "gateway webhook",
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrIntentNotFound),
			errors.Is(err, service.ErrReferenceMismatch),
			errors.Is(err, service.ErrAmountMismatch):
			// Authentic but unusable payload. Terminal for this delivery.
			log.WithError(err).WithField("payid", payload.PayID).Warn("[WEBHOOK] confirmation discarded")
			c.JSON(http.StatusBadRequest, gin.H{"status": 0, "error": err.Error()})
		default:
			// Transient store failure: a non-ack makes the gateway redeliver.
			log.WithError(err).WithField("payid", payload.PayID).Error("[WEBHOOK] ledger commit failed")
			c.JSON(http.StatusInternalServerError, gin.H{"status": 0, "error": "commit failed"})
		}
		return
	}
	if !res.Fresh {
		log.WithField("payid", payload.PayID).Info("[WEBHOOK] duplicate delivery acknowledged")
	}
	c.JSON(http.StatusOK, gin.H{"status": 1})
}
