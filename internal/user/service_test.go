package user

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Create(ctx context.Context, email, name, password, role string) (User, error) {
	args := m.Called(ctx, email, name, password, role)
	return args.Get(0).(User), args.Error(1)
}

func (m *MockRepository) FindByEmail(ctx context.Context, email string) (User, error) {
	args := m.Called(ctx, email)
	return args.Get(0).(User), args.Error(1)
}

func (m *MockRepository) FindByID(ctx context.Context, id uint) (User, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(User), args.Error(1)
}

func TestService_Register(t *testing.T) {
	t.Setenv("JWT_SECRET", "testsecret")
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo)

		repo.On("Create", mock.Anything, "test@example.com", "Test", mock.AnythingOfType("string"), "customer").
			Return(User{ID: 1, Email: "test@example.com", Role: RoleCustomer}, nil)

		token, u, err := svc.Register(ctx, "test@example.com", "Test", "password123")
		require.NoError(t, err)
		assert.NotEmpty(t, token)
		assert.Equal(t, RoleCustomer, u.Role)

		claims, err := ParseJWT(token)
		require.NoError(t, err)
		assert.Equal(t, uint(1), claims.UserID)
		assert.Equal(t, string(RoleCustomer), claims.Role)
	})

	t.Run("DuplicateEmail", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo)

		repo.On("Create", mock.Anything, "dup@example.com", "Dup", mock.AnythingOfType("string"), "customer").
			Return(User{}, errors.New(`pq: duplicate key value violates unique constraint "users_email_key"`))

		_, _, err := svc.Register(ctx, "dup@example.com", "Dup", "password123")
		assert.ErrorIs(t, err, ErrEmailExists)
	})
}

func TestService_Login(t *testing.T) {
	t.Setenv("JWT_SECRET", "testsecret")
	ctx := context.Background()

	hashed, err := HashPassword("password123")
	require.NoError(t, err)

	t.Run("Success", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo)

		repo.On("FindByEmail", mock.Anything, "test@example.com").
			Return(User{ID: 1, Email: "test@example.com", Password: hashed, Role: RoleCustomer}, nil)

		token, u, err := svc.Login(ctx, "test@example.com", "password123")
		require.NoError(t, err)
		assert.NotEmpty(t, token)
		assert.Equal(t, uint(1), u.ID)
	})

	t.Run("WrongPassword", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo)

		repo.On("FindByEmail", mock.Anything, "test@example.com").
			Return(User{ID: 1, Password: hashed}, nil)

		_, _, err := svc.Login(ctx, "test@example.com", "wrong")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("UnknownEmail", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo)

		repo.On("FindByEmail", mock.Anything, "ghost@example.com").
			Return(User{}, errors.New("sql: no rows in result set"))

		_, _, err := svc.Login(ctx, "ghost@example.com", "password123")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})
}

func TestRoleIsManager(t *testing.T) {
	assert.True(t, RoleProductManager.IsManager())
	assert.True(t, RoleSalesManager.IsManager())
	assert.False(t, RoleCustomer.IsManager())
}
