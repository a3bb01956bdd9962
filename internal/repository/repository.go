package repository

import (
	"context"
	"time"

	"gearhire-backend/internal/domain"
)

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id int32) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	UpdateLastLogin(ctx context.Context, id int32, at time.Time) error
}

type CategoryRepository interface {
	Create(ctx context.Context, category *domain.Category) error
	GetByID(ctx context.Context, id int32) (*domain.Category, error)
	List(ctx context.Context, activeOnly bool) ([]domain.Category, error)
}

// ProductFilter narrows and orders a product listing.
type ProductFilter struct {
	Page          int
	Limit         int
	CategoryID    int32
	Search        string
	SortBy        string // name, createdAt, price
	SortOrder     string // asc, desc
	MinPriceCents int64
	MaxPriceCents int64
	Condition     domain.Condition
	IncludeHidden bool
}

type ProductRepository interface {
	// Create inserts the product with its inventory units and pricing rules.
	Create(ctx context.Context, product *domain.Product) error
	// GetByID loads the product with its inventory units and pricing rules.
	GetByID(ctx context.Context, id int32) (*domain.Product, error)
	List(ctx context.Context, filter ProductFilter) ([]domain.Product, int, error)
	// ListReservations returns the active reservations on the product's units
	// that overlap [start, end).
	ListReservations(ctx context.Context, productID int32, start, end time.Time) ([]domain.Reservation, error)
}

// UnitSelector chooses inventory units for one order line. It is called
// inside the order transaction with the product rows locked.
type UnitSelector func(productID int32, units []domain.InventoryUnit, reservations []domain.Reservation, start, end time.Time, quantity int) ([]domain.InventoryUnit, error)

type OrderRepository interface {
	// Create persists the order, its items and one reservation per allocated
	// unit in a single transaction. A collision on the order number yields
	// domain.ErrDuplicateOrderNumber.
	Create(ctx context.Context, order *domain.Order, selectUnits UnitSelector) error
	GetByID(ctx context.Context, id int32) (*domain.Order, error)
	ListByCustomer(ctx context.Context, customerID int32, page, limit int) ([]domain.Order, int, error)
	List(ctx context.Context, status domain.OrderStatus, page, limit int) ([]domain.Order, int, error)
	// UpdateStatus moves the order from one status to another only if it is
	// still in from, applying the inventory side effects of the new status.
	UpdateStatus(ctx context.Context, id int32, from, to domain.OrderStatus, staffID *int32, at time.Time) error
	// UpdateLateFees stores the late fees charged so far. The order total is
	// not touched.
	UpdateLateFees(ctx context.Context, id int32, lateFeesCents int64, at time.Time) error
	// ListByStatusEndingBefore returns orders in status whose rental ends before t.
	ListByStatusEndingBefore(ctx context.Context, status domain.OrderStatus, t time.Time) ([]domain.Order, error)
	// ListByStatusEndingBetween returns orders in status whose rental ends in [from, to).
	ListByStatusEndingBetween(ctx context.Context, status domain.OrderStatus, from, to time.Time) ([]domain.Order, error)
	// ListByStatusCreatedBefore returns orders in status created before t.
	ListByStatusCreatedBefore(ctx context.Context, status domain.OrderStatus, t time.Time) ([]domain.Order, error)
}
