package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"satang/config"
	"satang/internal/gateway"

	log "github.com/sirupsen/logrus"

	"github.com/gin-gonic/gin"
)

// Relay is the internet-facing webhook forwarder. It re-derives the envelope
// signature, forwards verified envelopes to the origin webhook receiver and
// spools them locally when the origin is down. It never commits credit
// itself: the origin's ledger stays the only balance writer.
type Relay struct {
	originURL string
	secret    string
	client    *http.Client
	spool     *Spool
}

func New(cfg *config.RelayConfig, spool *Spool) *Relay {
	return &Relay{
		originURL: cfg.OriginURL,
		secret:    cfg.SharedSecret,
		client:    &http.Client{Timeout: cfg.ForwardTimeout},
		spool:     spool,
	}
}

// Handle accepts the same envelope shape as the origin webhook endpoint.
// Unverifiable envelopes are rejected here and never travel further.
func (r *Relay) Handle(c *gin.Context) {
	rawData := c.PostForm("data")
	signature := c.PostForm("signature")
	if !gateway.VerifySignature(rawData, signature, r.secret) {
		log.WithField("ip", c.ClientIP()).Warn("[RELAY] signature rejected at edge")
		c.JSON(http.StatusUnauthorized, gin.H{"status": 0, "error": "invalid signature"})
		return
	}

	acked, err := r.Forward(c.Request.Context(), rawData, signature)
	if err == nil && acked {
		c.JSON(http.StatusOK, gin.H{"status": 1})
		return
	}
	if err != nil {
		log.WithError(err).Warn("[RELAY] origin unreachable, spooling envelope")
	} else {
		log.Warn("[RELAY] origin did not acknowledge, spooling envelope")
	}
	if serr := r.spool.Put(Envelope{Data: rawData, Signature: signature}); serr != nil {
		log.WithError(serr).Error("[RELAY] spool write failed")
	}
	// Non-ack: the gateway will retry delivery, and the replayer retries the
	// spooled copy independently. The origin's ledger dedupes both.
	c.JSON(http.StatusBadGateway, gin.H{"status": 0, "error": "origin unavailable"})
}

// Forward posts the envelope to the origin webhook endpoint and reports
// whether the origin acknowledged it ({"status":1}).
func (r *Relay) Forward(ctx context.Context, rawData, signature string) (bool, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.WriteField("data", rawData); err != nil {
		return false, err
	}
	if err := w.WriteField("signature", signature); err != nil {
		return false, err
	}
	if err := w.Close(); err != nil {
		return false, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.originURL, &buf)
	if err != nil {
		return false, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	resp, err := r.client.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return false, err
	}
	var ack struct {
		Status int `json:"status"`
	}
	if err := json.Unmarshal(body, &ack); err != nil {
		return false, fmt.Errorf("origin sent unparseable ack: %w", err)
	}
	// 401/400 from the origin are terminal verdicts, not outages: treat them
	// as handled so the envelope is not spooled forever.
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusBadRequest {
		return true, nil
	}
	return ack.Status == 1, nil
}

// ReplayLoop periodically retries spooled envelopes until the origin
// acknowledges them. Runs until ctx is cancelled.
func (r *Relay) ReplayLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.ReplayOnce(ctx)
		}
	}
}

// ReplayOnce walks the spool and forwards each envelope, dropping the ones
// the origin acknowledges. Signatures are re-verified before forwarding in
// case the spool was tampered with on disk.
func (r *Relay) ReplayOnce(ctx context.Context) {
	entries, err := r.spool.List()
	if err != nil {
		log.WithError(err).Error("[RELAY] spool list failed")
		return
	}
	for _, e := range entries {
		if !gateway.VerifySignature(e.Envelope.Data, e.Envelope.Signature, r.secret) {
			log.WithField("spool_id", e.ID).Error("[RELAY] spooled envelope failed re-verification, dropping")
			_ = r.spool.Remove(e.ID)
			continue
		}
		acked, err := r.Forward(ctx, e.Envelope.Data, e.Envelope.Signature)
		if err != nil {
			log.WithError(err).WithField("spool_id", e.ID).Warn("[RELAY] replay forward failed")
			continue
		}
		if acked {
			log.WithField("spool_id", e.ID).Info("[RELAY] spooled envelope delivered")
			_ = r.spool.Remove(e.ID)
		}
	}
}
