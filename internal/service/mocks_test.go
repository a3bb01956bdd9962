package service

import (
	"context"
	"time"

	"gearhire-backend/internal/domain"
	"gearhire-backend/internal/repository"

	"github.com/stretchr/testify/mock"
)

type MockUserRepo struct {
	mock.Mock
}

func (m *MockUserRepo) Create(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}
func (m *MockUserRepo) GetByID(ctx context.Context, id int32) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}
func (m *MockUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}
func (m *MockUserRepo) UpdateLastLogin(ctx context.Context, id int32, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

type MockCategoryRepo struct {
	mock.Mock
}

func (m *MockCategoryRepo) Create(ctx context.Context, c *domain.Category) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}
func (m *MockCategoryRepo) GetByID(ctx context.Context, id int32) (*domain.Category, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Category), args.Error(1)
}
func (m *MockCategoryRepo) List(ctx context.Context, activeOnly bool) ([]domain.Category, error) {
	args := m.Called(ctx, activeOnly)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Category), args.Error(1)
}

type MockProductRepo struct {
	mock.Mock
}

func (m *MockProductRepo) Create(ctx context.Context, p *domain.Product) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}
func (m *MockProductRepo) GetByID(ctx context.Context, id int32) (*domain.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}
func (m *MockProductRepo) List(ctx context.Context, f repository.ProductFilter) ([]domain.Product, int, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.Product), args.Int(1), args.Error(2)
}
func (m *MockProductRepo) ListReservations(ctx context.Context, productID int32, start, end time.Time) ([]domain.Reservation, error) {
	args := m.Called(ctx, productID, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Reservation), args.Error(1)
}

type MockOrderRepo struct {
	mock.Mock
}

func (m *MockOrderRepo) Create(ctx context.Context, o *domain.Order, selectUnits repository.UnitSelector) error {
	args := m.Called(ctx, o, selectUnits)
	return args.Error(0)
}
func (m *MockOrderRepo) GetByID(ctx context.Context, id int32) (*domain.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}
func (m *MockOrderRepo) ListByCustomer(ctx context.Context, customerID int32, page, limit int) ([]domain.Order, int, error) {
	args := m.Called(ctx, customerID, page, limit)
	return args.Get(0).([]domain.Order), args.Int(1), args.Error(2)
}
func (m *MockOrderRepo) List(ctx context.Context, status domain.OrderStatus, page, limit int) ([]domain.Order, int, error) {
	args := m.Called(ctx, status, page, limit)
	return args.Get(0).([]domain.Order), args.Int(1), args.Error(2)
}
func (m *MockOrderRepo) UpdateStatus(ctx context.Context, id int32, from, to domain.OrderStatus, staffID *int32, at time.Time) error {
	args := m.Called(ctx, id, from, to, staffID, at)
	return args.Error(0)
}
func (m *MockOrderRepo) UpdateLateFees(ctx context.Context, id int32, lateFeesCents int64, at time.Time) error {
	args := m.Called(ctx, id, lateFeesCents, at)
	return args.Error(0)
}
func (m *MockOrderRepo) ListByStatusEndingBefore(ctx context.Context, status domain.OrderStatus, t time.Time) ([]domain.Order, error) {
	args := m.Called(ctx, status, t)
	return args.Get(0).([]domain.Order), args.Error(1)
}
func (m *MockOrderRepo) ListByStatusEndingBetween(ctx context.Context, status domain.OrderStatus, from, to time.Time) ([]domain.Order, error) {
	args := m.Called(ctx, status, from, to)
	return args.Get(0).([]domain.Order), args.Error(1)
}
func (m *MockOrderRepo) ListByStatusCreatedBefore(ctx context.Context, status domain.OrderStatus, t time.Time) ([]domain.Order, error) {
	args := m.Called(ctx, status, t)
	return args.Get(0).([]domain.Order), args.Error(1)
}

type MockEmailService struct {
	mock.Mock
}

func (m *MockEmailService) SendOrderConfirmation(ctx context.Context, customer *domain.User, order *domain.Order) error {
	args := m.Called(ctx, customer, order)
	return args.Error(0)
}
func (m *MockEmailService) SendOrderStatusChange(ctx context.Context, customer *domain.User, order *domain.Order) error {
	args := m.Called(ctx, customer, order)
	return args.Error(0)
}
func (m *MockEmailService) SendReturnReminder(ctx context.Context, customer *domain.User, order *domain.Order) error {
	args := m.Called(ctx, customer, order)
	return args.Error(0)
}
