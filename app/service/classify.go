package service

import (
	"fmt"

	"github.com/ihavelanded/ms-go-esim/app/carrier"
	"github.com/ihavelanded/ms-go-esim/app/entity"
)

// CarrierAttempt is the normalized input to the outcome classifier: what one
// provisioning attempt against the carrier actually produced.
type CarrierAttempt struct {
	NotConfigured bool
	TransportErr  error

	Code           string
	Message        string
	OrderNo        string
	ICCID          string
	ActivationCode string
}

// Outcome is the classifier's verdict for a single attempt.
type Outcome struct {
	Status         string
	OrderNo        string
	ICCID          string
	ActivationCode string
	Message        string
}

// ClassifyCarrierAttempt maps a carrier attempt onto the order status enum.
// Payment has already been confirmed by the time this runs, so nothing in
// here is allowed to look like a payment failure to the customer:
//
//  1. missing carrier credentials degrade to manual_fulfillment
//  2. transport failure or an exceeded deadline degrades to pending, because
//     the purchase may have landed carrier-side (at-least-once semantics)
//  3. success code with an activation code is completed
//  4. success code without one means the carrier is still allocating: pending
//  5. every other code is an error carrying the carrier's own diagnostics
func ClassifyCarrierAttempt(attempt CarrierAttempt) Outcome {
	if attempt.NotConfigured {
		return Outcome{
			Status:  entity.OrderStatusManualFulfillment,
			Message: "carrier credentials are missing, order queued for manual fulfillment",
		}
	}
	if attempt.TransportErr != nil {
		return Outcome{
			Status:  entity.OrderStatusPending,
			OrderNo: attempt.OrderNo,
			Message: fmt.Sprintf("carrier did not respond in time, provisioning may still complete: %v", attempt.TransportErr),
		}
	}

	if attempt.Code == carrier.CodeSuccess {
		if realActivationCode(attempt.ActivationCode) {
			return Outcome{
				Status:         entity.OrderStatusCompleted,
				OrderNo:        attempt.OrderNo,
				ICCID:          attempt.ICCID,
				ActivationCode: attempt.ActivationCode,
			}
		}
		return Outcome{
			Status:  entity.OrderStatusPending,
			OrderNo: attempt.OrderNo,
			Message: "carrier accepted the order and is still allocating the profile",
		}
	}

	message := attempt.Message
	if message == "" {
		message = "unknown provider error"
	}
	message = fmt.Sprintf("carrier rejected the order (code %s): %s", attempt.Code, message)
	if hint, ok := carrier.RejectionHint(attempt.Code); ok {
		message += "; " + hint
	}

	return Outcome{
		Status:  entity.OrderStatusError,
		OrderNo: attempt.OrderNo,
		Message: message,
	}
}

// realActivationCode filters out the sentinel placeholders older storefront
// builds wrote into the activation field.
func realActivationCode(code string) bool {
	switch code {
	case "", entity.ActivationCodePending, entity.ActivationCodeDelayed:
		return false
	default:
		return true
	}
}
