package cart

import (
	"context"
	"errors"

	"storefront-be/internal/utils"
)

var errNotAuthenticated = errors.New("user not authenticated")

type Service interface {
	GetCart(ctx context.Context) ([]*Item, error)
	Add(ctx context.Context, productID uint, quantity int) error
	Update(ctx context.Context, productID uint, quantity int) error
	Remove(ctx context.Context, productID uint) error
	Clear(ctx context.Context) error
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) GetCart(ctx context.Context) ([]*Item, error) {
	userID, ok := utils.GetUserIDFromContext(ctx)
	if !ok {
		return nil, errNotAuthenticated
	}
	return s.repo.GetCart(ctx, userID)
}

func (s *service) Add(ctx context.Context, productID uint, quantity int) error {
	userID, ok := utils.GetUserIDFromContext(ctx)
	if !ok {
		return errNotAuthenticated
	}
	if quantity <= 0 {
		return ErrInvalidQuantity
	}

	available, err := s.repo.ProductAvailable(ctx, productID)
	if err != nil {
		return err
	}
	if !available {
		return ErrProductUnavailable
	}

	return s.repo.Upsert(ctx, userID, productID, quantity)
}

func (s *service) Update(ctx context.Context, productID uint, quantity int) error {
	userID, ok := utils.GetUserIDFromContext(ctx)
	if !ok {
		return errNotAuthenticated
	}
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	return s.repo.UpdateQuantity(ctx, userID, productID, quantity)
}

func (s *service) Remove(ctx context.Context, productID uint) error {
	userID, ok := utils.GetUserIDFromContext(ctx)
	if !ok {
		return errNotAuthenticated
	}
	return s.repo.Remove(ctx, userID, productID)
}

func (s *service) Clear(ctx context.Context) error {
	userID, ok := utils.GetUserIDFromContext(ctx)
	if !ok {
		return errNotAuthenticated
	}
	return s.repo.Clear(ctx, userID)
}
