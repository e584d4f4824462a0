package product

import (
	"context"

	"storefront-be/internal/user"
	"storefront-be/internal/utils"
)

type Service interface {
	List(ctx context.Context, categoryID *uint, limit, offset int32) ([]*Product, error)
	Get(ctx context.Context, id uint) (*Product, error)
	Create(ctx context.Context, params CreateParams) (*Product, error)
	Update(ctx context.Context, id uint, params UpdateParams) (*Product, error)
	Delete(ctx context.Context, id uint) error
	SetStock(ctx context.Context, id uint, stock int) (*Product, error)
	ApprovePrice(ctx context.Context, id uint, price float64) (*Product, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) List(ctx context.Context, categoryID *uint, limit, offset int32) ([]*Product, error) {
	role := user.Role(utils.GetUserRoleFromContext(ctx))
	return s.repo.List(ctx, ListOptions{
		OnlyStorefront: !role.IsManager(),
		CategoryID:     categoryID,
		Limit:          limit,
		Offset:         offset,
	})
}

func (s *service) Get(ctx context.Context, id uint) (*Product, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	// Customers never see hidden or unpriced products.
	role := user.Role(utils.GetUserRoleFromContext(ctx))
	if !role.IsManager() && (!p.Visible || !p.PriceApproved) {
		return nil, ErrProductNotFound
	}

	return p, nil
}

func (s *service) Create(ctx context.Context, params CreateParams) (*Product, error) {
	if params.Price < 0 {
		return nil, ErrInvalidPrice
	}
	if params.Stock < 0 {
		return nil, ErrInvalidStock
	}
	return s.repo.Create(ctx, params)
}

func (s *service) Update(ctx context.Context, id uint, params UpdateParams) (*Product, error) {
	if params.Stock != nil && *params.Stock < 0 {
		return nil, ErrInvalidStock
	}
	return s.repo.Update(ctx, id, params)
}

func (s *service) Delete(ctx context.Context, id uint) error {
	return s.repo.Delete(ctx, id)
}

func (s *service) SetStock(ctx context.Context, id uint, stock int) (*Product, error) {
	if stock < 0 {
		return nil, ErrInvalidStock
	}
	return s.repo.SetStock(ctx, id, stock)
}

func (s *service) ApprovePrice(ctx context.Context, id uint, price float64) (*Product, error) {
	if price <= 0 {
		return nil, ErrInvalidPrice
	}
	return s.repo.ApprovePrice(ctx, id, price)
}
