package service

import (
	"context"
	"time"

	"gearhire-backend/internal/domain"
	"gearhire-backend/internal/repository"
)

// RegisterInput carries the fields a new account is created from.
type RegisterInput struct {
	Email        string
	Password     string
	Name         string
	Phone        string
	CustomerType string
}

// AuthResult is returned by Register and Login.
type AuthResult struct {
	User      *domain.User `json:"user"`
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
}

type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*AuthResult, error)
	Login(ctx context.Context, email, password string) (*AuthResult, error)
	// Authenticate resolves a bearer token to an active user.
	Authenticate(ctx context.Context, token string) (*domain.User, error)
	GetUser(ctx context.Context, id int32) (*domain.User, error)
	// CreateUser provisions an account with an explicit role. Used by the admin CLI.
	CreateUser(ctx context.Context, in RegisterInput, role domain.Role) (*domain.User, error)
}

// Availability describes how many units of a product are free for an interval.
type Availability struct {
	ProductID      int32              `json:"productId"`
	Start          time.Time          `json:"start"`
	End            time.Time          `json:"end"`
	AvailableCount int                `json:"availableCount"`
	TotalCount     int                `json:"totalCount"`
	PricingType    domain.PricingType `json:"pricingType,omitempty"`
	UnitPriceCents int64              `json:"unitPriceCents,omitempty"`
}

type CatalogService interface {
	ListProducts(ctx context.Context, filter repository.ProductFilter) ([]domain.Product, int, error)
	GetProduct(ctx context.Context, id int32, includeHidden bool) (*domain.Product, error)
	CreateProduct(ctx context.Context, product *domain.Product) error
	ListCategories(ctx context.Context) ([]domain.Category, error)
	CreateCategory(ctx context.Context, category *domain.Category) error
	CheckAvailability(ctx context.Context, productID int32, start, end time.Time, customerType string) (*Availability, error)
}

// CartItem is one requested order line.
type CartItem struct {
	ProductID   int32              `json:"productId"`
	Quantity    int                `json:"quantity"`
	RentalStart time.Time          `json:"rentalStart"`
	RentalEnd   time.Time          `json:"rentalEnd"`
	PricingType domain.PricingType `json:"pricingType,omitempty"`
}

type PlaceOrderInput struct {
	Items               []CartItem            `json:"items"`
	BillingAddress      domain.Address        `json:"billingAddress"`
	DeliveryAddress     *domain.Address       `json:"deliveryAddress,omitempty"`
	DeliveryMethod      domain.DeliveryMethod `json:"deliveryMethod"`
	PaymentMethod       string                `json:"paymentMethod"`
	Notes               string                `json:"notes,omitempty"`
	DiscountAmountCents int64                 `json:"discountAmountCents,omitempty"`
}

type OrderService interface {
	PlaceOrder(ctx context.Context, caller *domain.User, in PlaceOrderInput) (*domain.Order, error)
	GetOrder(ctx context.Context, caller *domain.User, id int32) (*domain.Order, error)
	ListMyOrders(ctx context.Context, caller *domain.User, page, limit int) ([]domain.Order, int, error)
	ListOrders(ctx context.Context, status domain.OrderStatus, page, limit int) ([]domain.Order, int, error)
	UpdateStatus(ctx context.Context, caller *domain.User, id int32, to domain.OrderStatus) (*domain.Order, error)
	CancelOrder(ctx context.Context, caller *domain.User, id int32) (*domain.Order, error)

	// Background jobs. Each returns the number of orders it changed or notified.
	AssessLateFees(ctx context.Context, asOf time.Time) (int, error)
	SendReturnReminders(ctx context.Context, asOf time.Time) (int, error)
	ExpirePendingOrders(ctx context.Context, asOf time.Time) (int, error)
}

type EmailService interface {
	SendOrderConfirmation(ctx context.Context, customer *domain.User, order *domain.Order) error
	SendOrderStatusChange(ctx context.Context, customer *domain.User, order *domain.Order) error
	SendReturnReminder(ctx context.Context, customer *domain.User, order *domain.Order) error
}

// OrderSettings are the order-level charges and lifecycle windows.
type OrderSettings struct {
	TaxRateBps          int64
	DeliveryChargeCents int64
	Currency            string
	PendingExpiry       time.Duration
	ReminderLead        time.Duration
}
