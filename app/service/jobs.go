package service

import (
	"context"
	"strings"
	"time"

	"github.com/ihavelanded/ms-go-esim/app/entity"
)

// RunReconcileBatch re-queries the carrier for orders that accepted a
// purchase but were still allocating when the customer last polled, and
// promotes them once the activation code has arrived.
func (s *OrderService) RunReconcileBatch(ctx context.Context) error {
	now := time.Now().UTC()
	before := now.Add(-s.cfg.ReconcileStaleAfter)
	items, err := s.orderRepo.ListStalePending(ctx, before, s.batchSize())
	if err != nil {
		return err
	}

	var firstErr error
	for _, order := range items {
		if order == nil || order.CarrierOrderNo == nil || strings.TrimSpace(*order.CarrierOrderNo) == "" {
			continue
		}

		result, err := s.carrier.Query(ctx, strings.TrimSpace(*order.CarrierOrderNo))
		if err != nil {
			firstErr = keepFirstErr(firstErr, err)
			continue
		}
		if !result.Success() {
			continue
		}
		profile := result.FirstProfile()
		if !realActivationCode(profile.ActivationCode) {
			continue
		}

		previous := *order
		order.Status = entity.OrderStatusCompleted
		order.ActivationCode = &profile.ActivationCode
		if iccid := strings.TrimSpace(profile.ICCID); iccid != "" {
			order.ICCID = &iccid
		}
		order.Message = nil
		order.UpdatedAt = now

		if err := s.orderRepo.Save(ctx, order); err != nil {
			firstErr = keepFirstErr(firstErr, err)
			continue
		}
		s.recordStatusChange(ctx, order, &previous, "order_reconciled", now)
	}

	return firstErr
}

// RunExpirePendingBatch hands long-stuck pending orders to an operator. The
// payment stays confirmed; there is deliberately no automatic refund path.
func (s *OrderService) RunExpirePendingBatch(ctx context.Context) error {
	now := time.Now().UTC()
	cutoff := now.Add(-s.cfg.PendingTimeout)
	items, err := s.orderRepo.ListExpiredPending(ctx, cutoff, s.batchSize())
	if err != nil {
		return err
	}

	var firstErr error
	for _, order := range items {
		if order == nil || order.Status != entity.OrderStatusPending {
			continue
		}

		previous := *order
		order.Status = entity.OrderStatusManualFulfillment
		message := "automated provisioning did not complete in time, handed to manual fulfillment"
		order.Message = &message
		order.UpdatedAt = now

		if err := s.orderRepo.Save(ctx, order); err != nil {
			firstErr = keepFirstErr(firstErr, err)
			continue
		}
		s.recordStatusChange(ctx, order, &previous, "order_expired", now)
	}

	return firstErr
}
