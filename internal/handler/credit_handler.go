package handler

import (
	"net/http"

	"satang/internal/middleware"
	"satang/internal/service"

	"github.com/gin-gonic/gin"
)

type CreditHandler struct {
	svc *service.CreditService
}

func NewCreditHandler(svc *service.CreditService) *CreditHandler {
	return &CreditHandler{svc: svc}
}

type BalanceRequest struct {
	Reference string `json:"reference"`
}

// Balance answers the balance-query endpoint. The reference in the body is
// accepted only when it matches the session's own; the field exists for
// wire compatibility with older clients that always sent it.
func (h *CreditHandler) Balance(c *gin.Context) {
	var req BalanceRequest
	_ = c.ShouldBindJSON(&req)
	reference := middleware.GetReference(c)
	if req.Reference != "" && req.Reference != reference {
		c.JSON(http.StatusForbidden, gin.H{"error": "reference mismatch"})
		return
	}
	balance, err := h.svc.Balance(c.Request.Context(), reference)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "balance lookup failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"balance": balance})
}

// Transactions lists the caller's committed credits, newest first.
func (h *CreditHandler) Transactions(c *gin.Context) {
	reference := middleware.GetReference(c)
	txns, err := h.svc.Transactions(c.Request.Context(), reference, 50)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "transactions lookup failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": txns})
}
