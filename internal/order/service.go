package order

import (
	"context"
	"fmt"

	"storefront-be/internal/invoice"
	"storefront-be/internal/logger"
	"storefront-be/internal/middleware"
	"storefront-be/internal/payment"
	"storefront-be/internal/user"
	"storefront-be/internal/utils"

	"go.uber.org/zap"
)

// Notifier records an in-app notification and publishes it to the
// outbound queue. Implementations must never fail the caller.
type Notifier interface {
	Notify(ctx context.Context, userID uint, typ, message string, metadata map[string]any)
}

// CheckoutInput carries what the customer submits at checkout. Card
// processing happens at the external provider; only the masked tail of
// the number is kept.
type CheckoutInput struct {
	DeliveryAddress string
	CardNumber      string
	CardholderName  string
}

type Service interface {
	Checkout(ctx context.Context, in CheckoutInput) (*Order, error)
	ListOrders(ctx context.Context, status *Status, limit, page int32) ([]*Order, error)
	ListUserOrders(ctx context.Context, userID uint, limit, page int32) ([]*Order, error)
	GetOrder(ctx context.Context, orderID uint) (*Order, error)
	UpdateStatus(ctx context.Context, orderID uint, to Status, adminNote *string) (*Order, error)
	Cancel(ctx context.Context, orderID uint) (*Order, error)
}

type service struct {
	repo     Repository
	payments payment.Repository
	notifier Notifier
}

func NewService(repo Repository, payments payment.Repository, notifier Notifier) Service {
	return &service{repo: repo, payments: payments, notifier: notifier}
}

func (s *service) Checkout(ctx context.Context, in CheckoutInput) (*Order, error) {
	userID, ok := utils.GetUserIDFromContext(ctx)
	if !ok {
		return nil, ErrUnauthorized
	}
	if in.DeliveryAddress == "" {
		return nil, fmt.Errorf("delivery address is required")
	}
	if len(in.CardNumber) < 4 {
		return nil, ErrInvalidCard
	}

	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "Checkout"),
		zap.Uint("user_id", userID),
	)

	o, err := s.repo.CreateFromCart(ctx, userID, in.DeliveryAddress, invoice.GenerateNumber())
	if err != nil {
		middleware.RecordOrderOperation("checkout", false)
		return nil, err
	}
	middleware.RecordOrderOperation("checkout", true)

	if err := s.payments.Save(ctx, &payment.Payment{
		OrderID:        o.ID,
		Amount:         o.TotalAmount,
		CardLastFour:   in.CardNumber[len(in.CardNumber)-4:],
		CardholderName: in.CardholderName,
		Status:         payment.StatusPaid,
	}); err != nil {
		log.Error("failed to record payment", zap.Uint("order_id", o.ID), zap.Error(err))
	}

	log.Info("order created", zap.Uint("order_id", o.ID))

	s.notifier.Notify(ctx, userID, "order_created",
		fmt.Sprintf("Your order #%d has been placed and is now processing.", o.ID),
		map[string]any{"order_id": o.ID, "total_amount": o.TotalAmount},
	)

	return o, nil
}

func (s *service) ListOrders(ctx context.Context, status *Status, limit, page int32) ([]*Order, error) {
	filter := Filter{Status: status}

	role := user.Role(utils.GetUserRoleFromContext(ctx))
	if !role.IsManager() {
		userID, ok := utils.GetUserIDFromContext(ctx)
		if !ok {
			return nil, ErrUnauthorized
		}
		filter.UserID = &userID
	}

	limit = clampLimit(limit)
	return s.repo.FetchOrders(ctx, filter, limit, pageOffset(limit, page))
}

func (s *service) ListUserOrders(ctx context.Context, userID uint, limit, page int32) ([]*Order, error) {
	role := user.Role(utils.GetUserRoleFromContext(ctx))
	requester, _ := utils.GetUserIDFromContext(ctx)
	if !role.IsManager() && requester != userID {
		return nil, ErrUnauthorized
	}

	limit = clampLimit(limit)
	return s.repo.FetchOrders(ctx, Filter{UserID: &userID}, limit, pageOffset(limit, page))
}

func (s *service) GetOrder(ctx context.Context, orderID uint) (*Order, error) {
	o, err := s.repo.GetOrderDetail(ctx, orderID)
	if err != nil {
		return nil, err
	}

	role := user.Role(utils.GetUserRoleFromContext(ctx))
	requester, _ := utils.GetUserIDFromContext(ctx)
	if !role.IsManager() && o.UserID != requester {
		return nil, ErrUnauthorized
	}

	return o, nil
}

// UpdateStatus drives a manager transition. Refund decisions are owned by
// the refund workflow and are rejected here.
func (s *service) UpdateStatus(ctx context.Context, orderID uint, to Status, adminNote *string) (*Order, error) {
	role := user.Role(utils.GetUserRoleFromContext(ctx))
	if !role.IsManager() {
		return nil, ErrManagerOnly
	}

	if to == StatusRefundApproved || to == StatusRefundDenied || to == StatusRefunded {
		return nil, ErrInvalidStatus
	}

	current, err := s.repo.GetOrderDetail(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if !CanTransition(current.Status, to) {
		return nil, ErrStatusConflict
	}

	o, err := s.repo.TransitionStatus(ctx, orderID, current.Status, to, adminNote)
	if err != nil {
		middleware.RecordOrderOperation("update_status", false)
		return nil, err
	}
	middleware.RecordOrderOperation("update_status", true)
	if to.RestoresStock() {
		middleware.RecordStockRestore("status_update")
	}

	s.notifyStatusChange(ctx, o, current.Status)

	return o, nil
}

func (s *service) Cancel(ctx context.Context, orderID uint) (*Order, error) {
	userID, ok := utils.GetUserIDFromContext(ctx)
	if !ok {
		return nil, ErrUnauthorized
	}

	current, err := s.repo.GetOrderDetail(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if current.UserID != userID {
		return nil, ErrUnauthorized
	}
	if current.Status != StatusProcessing {
		return nil, ErrStatusConflict
	}

	o, err := s.repo.TransitionStatus(ctx, orderID, StatusProcessing, StatusCancelled, nil)
	if err != nil {
		middleware.RecordOrderOperation("cancel", false)
		return nil, err
	}
	middleware.RecordOrderOperation("cancel", true)
	middleware.RecordStockRestore("cancel")

	if err := s.payments.UpdateStatus(ctx, o.ID, payment.StatusRefunded); err != nil {
		logger.FromCtx(ctx).Error("failed to mark payment refunded",
			zap.Uint("order_id", o.ID), zap.Error(err))
	}

	s.notifyStatusChange(ctx, o, StatusProcessing)

	return o, nil
}

// notifyStatusChange emits the transition notification. Sent only when
// the status actually changed; failures are handled by the notifier.
func (s *service) notifyStatusChange(ctx context.Context, o *Order, previous Status) {
	if o.Status == previous {
		return
	}
	s.notifier.Notify(ctx, o.UserID, "order_status_changed",
		fmt.Sprintf("Your order #%d is now %s.", o.ID, o.Status),
		map[string]any{
			"order_id": o.ID,
			"from":     string(previous),
			"to":       string(o.Status),
		},
	)
}

// clampLimit bounds the page size before the offset is computed, so
// pagination stays consistent with what the repository will return.
func clampLimit(limit int32) int32 {
	if limit <= 0 {
		return 20
	}
	if limit > 100 {
		return 100
	}
	return limit
}

func pageOffset(limit, page int32) int32 {
	if page <= 1 {
		return 0
	}
	return (page - 1) * limit
}
