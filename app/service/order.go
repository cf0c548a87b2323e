package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ihavelanded/ms-go-esim/app/carrier"
	"github.com/ihavelanded/ms-go-esim/app/catalog"
	"github.com/ihavelanded/ms-go-esim/app/entity"
	"github.com/ihavelanded/ms-go-esim/app/factory"
	"github.com/ihavelanded/ms-go-esim/app/payment"
	"github.com/ihavelanded/ms-go-esim/config"
)

const defaultBatchSize = int32(100)

type paymentClient interface {
	VerifySession(ctx context.Context, sessionID string) (*payment.CheckoutSession, error)
	CreateCheckoutSession(ctx context.Context, input *payment.CheckoutInput) (*payment.CheckoutLink, error)
}

type carrierClient interface {
	Configured() bool
	Purchase(ctx context.Context, req *carrier.PurchaseRequest) (*carrier.OrderResult, error)
	Query(ctx context.Context, orderNo string) (*carrier.OrderResult, error)
	Usage(ctx context.Context, iccid string) (*carrier.UsageReport, error)
	ListPackages(ctx context.Context) ([]carrier.Package, error)
}

type orderRepository interface {
	Save(ctx context.Context, order *entity.Order) error
	FindBySessionID(ctx context.Context, sessionID string) (*entity.Order, error)
	FindByEmail(ctx context.Context, email string) ([]*entity.Order, error)
	ListStalePending(ctx context.Context, before time.Time, limit int32) ([]*entity.Order, error)
	ListExpiredPending(ctx context.Context, cutoff time.Time, limit int32) ([]*entity.Order, error)
}

type orderEventRepository interface {
	Create(ctx context.Context, event *entity.OrderEvent) error
}

type OrderService struct {
	payments  paymentClient
	carrier   carrierClient
	catalog   *catalog.Table
	orderRepo orderRepository
	eventRepo orderEventRepository
	cfg       config.ProvisioningConfig
	logger    logrus.FieldLogger
}

func NewOrderService(
	payments paymentClient,
	carrierClient carrierClient,
	table *catalog.Table,
	orderRepo orderRepository,
	eventRepo orderEventRepository,
	cfg config.ProvisioningConfig,
) *OrderService {
	return &OrderService{
		payments:  payments,
		carrier:   carrierClient,
		catalog:   table,
		orderRepo: orderRepo,
		eventRepo: eventRepo,
		cfg:       cfg,
		logger:    factory.NewModuleLogger("orders-service"),
	}
}

// VerifyAndProvision is the order provisioning orchestration: confirm the
// checkout session is paid, resolve the purchased SKU to a carrier package,
// place the purchase under its deadline, classify the result, and persist the
// outcome. The session id doubles as the carrier's externalOrderNo, so the
// browser poller and concurrent tabs can re-invoke this freely without
// a second carrier-side purchase.
func (s *OrderService) VerifyAndProvision(ctx context.Context, sessionID string) (*entity.Order, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, ErrSessionRequired
	}

	session, err := s.payments.VerifySession(ctx, sessionID)
	if err != nil {
		// Without a confirmed payment state no safe outcome exists.
		return nil, fmt.Errorf("%w: %v", ErrPaymentProviderUnavailable, err)
	}
	if !session.Paid() {
		return nil, ErrPaymentNotCompleted
	}

	existing, err := s.orderRepo.FindBySessionID(ctx, sessionID)
	if err != nil {
		s.logger.WithError(err).WithField("session_id", sessionID).Warn("Order lookup failed, provisioning anyway")
		existing = nil
	}
	if existing != nil && existing.Terminal() {
		return existing, nil
	}

	plan := s.catalog.Resolve(session.FirstPlanID())
	attempt := s.provision(ctx, sessionID, session, plan)
	outcome := ClassifyCarrierAttempt(attempt)

	now := time.Now().UTC()
	order := buildOrder(sessionID, session, plan, outcome, existing, now)

	if err := s.orderRepo.Save(ctx, order); err != nil {
		// The ledger is a projection, not the source of truth; a paying
		// customer still gets their outcome.
		s.logger.WithError(err).WithField("session_id", sessionID).Warn("Failed to persist order")
	} else {
		s.recordStatusChange(ctx, order, existing, "order_provisioned", now)
	}

	return order, nil
}

func (s *OrderService) provision(ctx context.Context, sessionID string, session *payment.CheckoutSession, plan catalog.PackagePlan) CarrierAttempt {
	if !s.carrier.Configured() {
		return CarrierAttempt{NotConfigured: true}
	}

	result, err := s.carrier.Purchase(ctx, &carrier.PurchaseRequest{
		LocationCode:    plan.LocationCode,
		PackageCode:     plan.PackageCode,
		Quantity:        1,
		ExternalOrderNo: sessionID,
		Email:           session.CustomerEmail,
	})
	if err != nil {
		if errors.Is(err, carrier.ErrNotConfigured) {
			return CarrierAttempt{NotConfigured: true}
		}
		return CarrierAttempt{TransportErr: err}
	}

	profile := result.FirstProfile()
	attempt := CarrierAttempt{
		Code:           result.Code,
		Message:        result.Message,
		OrderNo:        result.OrderNo,
		ICCID:          profile.ICCID,
		ActivationCode: profile.ActivationCode,
	}

	// Best-effort follow-up for a more complete record. Its failure never
	// downgrades an already-successful purchase.
	if result.Success() && attempt.OrderNo != "" && (attempt.ActivationCode == "" || attempt.ICCID == "") {
		if queried, err := s.carrier.Query(ctx, attempt.OrderNo); err == nil && queried.Success() {
			queriedProfile := queried.FirstProfile()
			if attempt.ActivationCode == "" {
				attempt.ActivationCode = queriedProfile.ActivationCode
			}
			if attempt.ICCID == "" {
				attempt.ICCID = queriedProfile.ICCID
			}
		}
	}

	return attempt
}

// CarrierWebhookEvent is an async fulfillment notification from the carrier.
type CarrierWebhookEvent struct {
	OrderNo         string
	ExternalOrderNo string
	ICCID           string
	ActivationCode  string
	Status          string
}

// HandleCarrierWebhook applies an async fulfillment event to the matching
// order. The carrier keys events by our externalOrderNo, which is the
// checkout session id.
func (s *OrderService) HandleCarrierWebhook(ctx context.Context, event *CarrierWebhookEvent) (*entity.Order, error) {
	sessionID := strings.TrimSpace(event.ExternalOrderNo)
	if sessionID == "" {
		return nil, ErrInvalidRequest
	}

	order, err := s.orderRepo.FindBySessionID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}

	now := time.Now().UTC()
	previous := *order

	if orderNo := strings.TrimSpace(event.OrderNo); orderNo != "" {
		order.CarrierOrderNo = &orderNo
	}
	if iccid := strings.TrimSpace(event.ICCID); iccid != "" {
		order.ICCID = &iccid
	}
	if realActivationCode(strings.TrimSpace(event.ActivationCode)) {
		activationCode := strings.TrimSpace(event.ActivationCode)
		order.ActivationCode = &activationCode
	}

	// A delivered profile completes the order; anything else leaves the
	// status to the poller and the jobs.
	if order.Status != entity.OrderStatusCompleted && order.ActivationCode != nil {
		order.Status = entity.OrderStatusCompleted
		order.Message = nil
	}
	order.UpdatedAt = now

	if err := s.orderRepo.Save(ctx, order); err != nil {
		return nil, err
	}
	s.recordStatusChange(ctx, order, &previous, "carrier_webhook", now)

	return order, nil
}

// CreateCheckoutSession creates the hosted checkout page for a cart.
func (s *OrderService) CreateCheckoutSession(ctx context.Context, input *payment.CheckoutInput) (*payment.CheckoutLink, error) {
	if len(input.PriceIDs) == 0 {
		return nil, ErrInvalidRequest
	}
	return s.payments.CreateCheckoutSession(ctx, input)
}

// GetUsage proxies live usage telemetry for an issued profile.
func (s *OrderService) GetUsage(ctx context.Context, iccid string) (*carrier.UsageReport, error) {
	iccid = strings.TrimSpace(iccid)
	if iccid == "" || iccid == "PENDING" {
		return nil, ErrInvalidRequest
	}
	return s.carrier.Usage(ctx, iccid)
}

// ListPackages proxies the carrier catalog.
func (s *OrderService) ListPackages(ctx context.Context) ([]carrier.Package, error) {
	return s.carrier.ListPackages(ctx)
}

// OrdersByEmail returns the ledger entries for one purchaser.
func (s *OrderService) OrdersByEmail(ctx context.Context, email string) ([]*entity.Order, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, ErrInvalidRequest
	}
	return s.orderRepo.FindByEmail(ctx, email)
}

func (s *OrderService) recordStatusChange(ctx context.Context, order *entity.Order, previous *entity.Order, eventType string, now time.Time) {
	var oldStatus *string
	if previous != nil && previous.Status != order.Status {
		status := previous.Status
		oldStatus = &status
	}
	_ = s.eventRepo.Create(ctx, &entity.OrderEvent{
		SessionID: order.SessionID,
		EventType: eventType,
		OldStatus: oldStatus,
		NewStatus: order.Status,
		CreatedAt: now,
	})
}

func (s *OrderService) batchSize() int32 {
	if s.cfg.JobBatchSize > 0 {
		return s.cfg.JobBatchSize
	}
	return defaultBatchSize
}

func buildOrder(
	sessionID string,
	session *payment.CheckoutSession,
	plan catalog.PackagePlan,
	outcome Outcome,
	existing *entity.Order,
	now time.Time,
) *entity.Order {
	order := &entity.Order{
		SessionID:        sessionID,
		Email:            session.CustomerEmail,
		Status:           outcome.Status,
		PriceID:          session.FirstPlanID(),
		LocationCode:     plan.LocationCode,
		PackageCode:      plan.PackageCode,
		AmountTotalCents: session.AmountTotal,
		Currency:         session.Currency,
		Metadata:         map[string]string{"plan_ids": strings.Join(session.PlanIDs, ",")},
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	order.CarrierOrderNo = normalizeOptionalString(outcome.OrderNo)
	order.ICCID = normalizeOptionalString(outcome.ICCID)
	order.ActivationCode = normalizeOptionalString(outcome.ActivationCode)
	order.Message = normalizeOptionalString(truncate(outcome.Message, 1024))

	if existing != nil {
		order.CreatedAt = existing.CreatedAt
		// An earlier attempt may already know the carrier order number.
		if order.CarrierOrderNo == nil {
			order.CarrierOrderNo = existing.CarrierOrderNo
		}
		if order.ICCID == nil {
			order.ICCID = existing.ICCID
		}
	}

	return order
}

func normalizeOptionalString(v string) *string {
	trimmed := strings.TrimSpace(v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func truncate(value string, max int) string {
	if len(value) <= max {
		return value
	}
	return value[:max]
}

func keepFirstErr(current error, candidate error) error {
	if current != nil {
		return current
	}
	return candidate
}
