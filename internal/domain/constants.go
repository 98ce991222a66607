package domain

// PaymentIntent statuses. Transitions are forward only: an intent never
// re-opens after CONFIRMED, EXPIRED or CANCELLED.
const (
	IntentStatusCreated   = "CREATED"
	IntentStatusPending   = "PENDING"
	IntentStatusConfirmed = "CONFIRMED"
	IntentStatusExpired   = "EXPIRED"
	IntentStatusCancelled = "CANCELLED"
)

// Confirmation channels funnelling into the credit ledger.
const (
	ChannelWebhook = "webhook"
	ChannelPoll    = "poll"
	ChannelManual  = "manual"
)

// Audit actions.
const (
	AuditCreditCommitted   = "credit_committed"
	AuditManualAsserted    = "manual_credit_asserted"
	AuditSignatureRejected = "webhook_signature_rejected"
)
