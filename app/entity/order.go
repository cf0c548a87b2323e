package entity

import "time"

const (
	OrderStatusCompleted         = "completed"
	OrderStatusPending           = "pending"
	OrderStatusManualFulfillment = "manual_fulfillment"
	OrderStatusError             = "error"
)

// Sentinel activation codes emitted by earlier storefront builds. They are
// never treated as a real activation code.
const (
	ActivationCodePending = "PROVISIONING_PENDING"
	ActivationCodeDelayed = "PROVISIONING_DELAYED"
)

// Order is the persisted record of one checkout session's provisioning
// outcome, keyed by the Stripe session id. It doubles as the ledger entry
// backing the account dashboard; the carrier remains the source of truth for
// the profile itself.
type Order struct {
	SessionID string
	Email     string
	Status    string

	PriceID      string
	LocationCode string
	PackageCode  string

	CarrierOrderNo *string
	ICCID          *string
	ActivationCode *string
	Message        *string

	AmountTotalCents int64
	Currency         string

	Metadata map[string]string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Terminal reports whether this order needs no further provisioning attempts
// for the current call. Pending and manual_fulfillment orders are re-entered
// by the poller and the background jobs.
func (o *Order) Terminal() bool {
	return o.Status == OrderStatusCompleted || o.Status == OrderStatusError
}
