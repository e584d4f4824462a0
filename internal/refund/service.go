package refund

import (
	"context"
	"fmt"

	"storefront-be/internal/logger"
	"storefront-be/internal/middleware"
	"storefront-be/internal/order"
	"storefront-be/internal/payment"
	"storefront-be/internal/user"
	"storefront-be/internal/utils"

	"go.uber.org/zap"
)

type Service interface {
	RequestRefund(ctx context.Context, orderID uint, reason string) (*Request, error)
	Approve(ctx context.Context, requestID uint, adminNote *string) (*Request, error)
	Reject(ctx context.Context, requestID uint, adminNote *string) (*Request, error)
	ListByOrder(ctx context.Context, orderID uint) ([]*Request, error)
}

type service struct {
	repo     Repository
	orders   order.Repository
	payments payment.Repository
	notifier order.Notifier
}

func NewService(repo Repository, orders order.Repository, payments payment.Repository, notifier order.Notifier) Service {
	return &service{repo: repo, orders: orders, payments: payments, notifier: notifier}
}

func (s *service) RequestRefund(ctx context.Context, orderID uint, reason string) (*Request, error) {
	userID, ok := utils.GetUserIDFromContext(ctx)
	if !ok {
		return nil, ErrUnauthorized
	}
	if reason == "" {
		return nil, fmt.Errorf("refund reason is required")
	}

	req, err := s.repo.CreateRequest(ctx, orderID, userID, reason)
	if err != nil {
		middleware.RecordOrderOperation("refund_request", false)
		return nil, err
	}
	middleware.RecordOrderOperation("refund_request", true)

	s.notifier.Notify(ctx, userID, "refund_requested",
		fmt.Sprintf("Your refund request for order #%d was received.", orderID),
		map[string]any{"order_id": orderID, "refund_request_id": req.ID},
	)

	return req, nil
}

func (s *service) Approve(ctx context.Context, requestID uint, adminNote *string) (*Request, error) {
	if err := requireSalesManager(ctx); err != nil {
		return nil, err
	}

	req, err := s.repo.Approve(ctx, requestID, adminNote)
	if err != nil {
		middleware.RecordOrderOperation("refund_approve", false)
		return nil, err
	}
	middleware.RecordOrderOperation("refund_approve", true)
	middleware.RecordStockRestore("refund_approve")

	if err := s.payments.UpdateStatus(ctx, req.OrderID, payment.StatusRefunded); err != nil {
		logger.FromCtx(ctx).Error("failed to mark payment refunded",
			zap.Uint("order_id", req.OrderID), zap.Error(err))
	}

	s.notifier.Notify(ctx, req.UserID, "refund_approved",
		fmt.Sprintf("Your refund for order #%d was approved.", req.OrderID),
		map[string]any{"order_id": req.OrderID, "refund_request_id": req.ID},
	)

	return req, nil
}

func (s *service) Reject(ctx context.Context, requestID uint, adminNote *string) (*Request, error) {
	if err := requireSalesManager(ctx); err != nil {
		return nil, err
	}

	req, err := s.repo.Reject(ctx, requestID, adminNote)
	if err != nil {
		middleware.RecordOrderOperation("refund_reject", false)
		return nil, err
	}
	middleware.RecordOrderOperation("refund_reject", true)

	s.notifier.Notify(ctx, req.UserID, "refund_denied",
		fmt.Sprintf("Your refund for order #%d was denied.", req.OrderID),
		map[string]any{"order_id": req.OrderID, "refund_request_id": req.ID},
	)

	return req, nil
}

func (s *service) ListByOrder(ctx context.Context, orderID uint) ([]*Request, error) {
	o, err := s.orders.GetOrderDetail(ctx, orderID)
	if err != nil {
		return nil, err
	}

	role := user.Role(utils.GetUserRoleFromContext(ctx))
	requester, _ := utils.GetUserIDFromContext(ctx)
	if !role.IsManager() && o.UserID != requester {
		return nil, ErrUnauthorized
	}

	return s.repo.ListByOrder(ctx, orderID)
}

func requireSalesManager(ctx context.Context) error {
	if user.Role(utils.GetUserRoleFromContext(ctx)) != user.RoleSalesManager {
		return ErrSalesManagerOnly
	}
	return nil
}
