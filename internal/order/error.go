package order

import "errors"

var (
	// -- Authentication/Authorization --
	ErrUnauthorized = errors.New("not allowed to access this order")
	ErrManagerOnly  = errors.New("only managers may change order status")

	// -- Validation & Input --
	ErrInvalidStatus = errors.New("invalid order status")
	ErrInvalidCard   = errors.New("card number is invalid")
	ErrCartEmpty     = errors.New("cart is empty")

	// -- Resource State --
	ErrOrderNotFound     = errors.New("order not found")
	ErrStatusConflict    = errors.New("order is not in the expected status")
	ErrInsufficientStock = errors.New("insufficient product stock")
)
