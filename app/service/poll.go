package service

import (
	"context"
	"errors"
	"time"

	"github.com/ihavelanded/ms-go-esim/app/entity"
)

// PollPolicy is the client-side retry contract: re-invoke the orchestration
// on a fixed interval until a terminal outcome or the attempt ceiling.
type PollPolicy struct {
	Interval    time.Duration
	MaxAttempts int
}

func (p PollPolicy) withDefaults() PollPolicy {
	if p.Interval <= 0 {
		p.Interval = 8 * time.Second
	}
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 20
	}
	return p
}

type provisionFunc func(ctx context.Context, sessionID string) (*entity.Order, error)

// Poller drives VerifyAndProvision until the order is completed or errored.
// Every attempt reuses the same session id as externalOrderNo, so repeated
// attempts never create a second carrier purchase.
type Poller struct {
	policy    PollPolicy
	provision provisionFunc
}

func NewPoller(policy PollPolicy, orders *OrderService) *Poller {
	return newPollerFunc(policy, orders.VerifyAndProvision)
}

func newPollerFunc(policy PollPolicy, provision provisionFunc) *Poller {
	return &Poller{policy: policy.withDefaults(), provision: provision}
}

// Run polls until a terminal outcome, the attempt ceiling, or context
// cancellation. Non-terminal outcomes (pending, manual_fulfillment) and
// transient verification failures each consume an attempt and are retried;
// an unpaid session is a hard stop.
func (p *Poller) Run(ctx context.Context, sessionID string) (*entity.Order, error) {
	var last *entity.Order

	for attempt := 1; attempt <= p.policy.MaxAttempts; attempt++ {
		order, err := p.provision(ctx, sessionID)
		switch {
		case errors.Is(err, ErrSessionRequired), errors.Is(err, ErrPaymentNotCompleted):
			return nil, err
		case err != nil:
			// Transient; the browser poller keeps going the same way.
		default:
			last = order
			if order.Terminal() {
				return order, nil
			}
		}

		if attempt == p.policy.MaxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return last, ctx.Err()
		case <-time.After(p.policy.Interval):
		}
	}

	return last, nil
}
