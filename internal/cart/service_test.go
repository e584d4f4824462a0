package cart

import (
	"context"
	"testing"

	"storefront-be/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) GetCart(ctx context.Context, userID uint) ([]*Item, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*Item), args.Error(1)
}

func (m *MockRepository) Upsert(ctx context.Context, userID, productID uint, quantity int) error {
	args := m.Called(ctx, userID, productID, quantity)
	return args.Error(0)
}

func (m *MockRepository) UpdateQuantity(ctx context.Context, userID, productID uint, quantity int) error {
	args := m.Called(ctx, userID, productID, quantity)
	return args.Error(0)
}

func (m *MockRepository) Remove(ctx context.Context, userID, productID uint) error {
	args := m.Called(ctx, userID, productID)
	return args.Error(0)
}

func (m *MockRepository) Clear(ctx context.Context, userID uint) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *MockRepository) ProductAvailable(ctx context.Context, productID uint) (bool, error) {
	args := m.Called(ctx, productID)
	return args.Bool(0), args.Error(1)
}

func authedCtx(userID uint) context.Context {
	return utils.SetUserContext(context.Background(), userID, "user@example.com", "customer")
}

func TestService_Add(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo)

		repo.On("ProductAvailable", mock.Anything, uint(1)).Return(true, nil)
		repo.On("Upsert", mock.Anything, uint(7), uint(1), 2).Return(nil)

		require.NoError(t, svc.Add(authedCtx(7), 1, 2))
		repo.AssertExpectations(t)
	})

	t.Run("InvalidQuantity", func(t *testing.T) {
		svc := NewService(new(MockRepository))
		assert.ErrorIs(t, svc.Add(authedCtx(7), 1, 0), ErrInvalidQuantity)
		assert.ErrorIs(t, svc.Add(authedCtx(7), 1, -3), ErrInvalidQuantity)
	})

	t.Run("HiddenProductRejected", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo)

		repo.On("ProductAvailable", mock.Anything, uint(9)).Return(false, nil)

		assert.ErrorIs(t, svc.Add(authedCtx(7), 9, 1), ErrProductUnavailable)
	})

	t.Run("NotAuthenticated", func(t *testing.T) {
		svc := NewService(new(MockRepository))
		assert.Error(t, svc.Add(context.Background(), 1, 1))
	})
}

func TestService_Update(t *testing.T) {
	t.Run("MissingItem", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo)

		repo.On("UpdateQuantity", mock.Anything, uint(7), uint(1), 3).Return(ErrCartItemNotFound)

		assert.ErrorIs(t, svc.Update(authedCtx(7), 1, 3), ErrCartItemNotFound)
	})

	t.Run("InvalidQuantity", func(t *testing.T) {
		svc := NewService(new(MockRepository))
		assert.ErrorIs(t, svc.Update(authedCtx(7), 1, 0), ErrInvalidQuantity)
	})
}

func TestService_GetCart(t *testing.T) {
	repo := new(MockRepository)
	svc := NewService(repo)

	repo.On("GetCart", mock.Anything, uint(7)).
		Return([]*Item{{ProductID: 1, Quantity: 2, UnitPrice: 50.0, Subtotal: 100.0}}, nil)

	items, err := svc.GetCart(authedCtx(7))
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 100.0, items[0].Subtotal)
}
