package refund

import "errors"

var (
	// -- Authentication/Authorization --
	ErrUnauthorized     = errors.New("not allowed to access this refund request")
	ErrSalesManagerOnly = errors.New("only a sales manager may decide refunds")

	// -- Resource State --
	ErrRequestNotFound    = errors.New("refund request not found")
	ErrRequestExists      = errors.New("refund request already exists for this order")
	ErrRequestResolved    = errors.New("refund request already resolved")
	ErrOrderNotRefundable = errors.New("order is not in a refundable status")
)
