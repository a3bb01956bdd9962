package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"gearhire-backend/internal/domain"
	"gearhire-backend/internal/inventory"
	"gearhire-backend/internal/logger"
	"gearhire-backend/internal/metrics"
	"gearhire-backend/internal/pricing"
	"gearhire-backend/internal/repository"
)

const maxOrderNumberAttempts = 5

var orderSequence atomic.Uint64

// NewOrderNumber returns ORD-<UTC yyyymmddhhmmss>-<6-digit sequence>-<4 hex>.
// The sequence is process-wide; the random suffix separates processes.
func NewOrderNumber(now time.Time) string {
	seq := orderSequence.Add(1) % 1_000_000
	var b [2]byte
	if _, err := rand.Read(b[:]); err != nil {
		b[0], b[1] = byte(now.UnixNano()), byte(now.UnixNano()>>8)
	}
	return fmt.Sprintf("ORD-%s-%06d-%s", now.UTC().Format("20060102150405"), seq, hex.EncodeToString(b[:]))
}

type orderService struct {
	orderRepo   repository.OrderRepository
	productRepo repository.ProductRepository
	userRepo    repository.UserRepository
	emailSvc    EmailService
	settings    OrderSettings

	now         func() time.Time
	orderNumber func(time.Time) string
	selectUnits repository.UnitSelector
}

func NewOrderService(
	orderRepo repository.OrderRepository,
	productRepo repository.ProductRepository,
	userRepo repository.UserRepository,
	emailSvc EmailService,
	settings OrderSettings,
) OrderService {
	return &orderService{
		orderRepo:   orderRepo,
		productRepo: productRepo,
		userRepo:    userRepo,
		emailSvc:    emailSvc,
		settings:    settings,
		now:         time.Now,
		orderNumber: NewOrderNumber,
		selectUnits: inventory.Allocate,
	}
}

func (s *orderService) PlaceOrder(ctx context.Context, caller *domain.User, in PlaceOrderInput) (*domain.Order, error) {
	logger.EnterMethod(ctx, "orderService.PlaceOrder", "customer_id", caller.ID, "items", len(in.Items))

	order, err := s.buildOrder(ctx, caller, in)
	if err != nil {
		logger.ExitMethodWithError(ctx, "orderService.PlaceOrder", err)
		return nil, err
	}

	for attempt := 1; ; attempt++ {
		order.OrderNumber = s.orderNumber(s.now())
		err = s.orderRepo.Create(ctx, order, s.selectUnits)
		if err == nil {
			break
		}
		if errors.Is(err, domain.ErrDuplicateOrderNumber) {
			if attempt < maxOrderNumberAttempts {
				logger.WarnContext(ctx, "Order number collision, retrying", "order_number", order.OrderNumber, "attempt", attempt)
				continue
			}
			return nil, &domain.ConflictError{Message: "could not allocate a unique order number"}
		}
		var short *domain.InsufficientInventoryError
		if errors.As(err, &short) {
			metrics.AllocationFailures.Inc()
		}
		logger.ExitMethodWithError(ctx, "orderService.PlaceOrder", err)
		return nil, err
	}

	metrics.OrdersCreated.Inc()
	logger.InfoContext(ctx, "Order placed", "order_id", order.ID, "order_number", order.OrderNumber, "total_cents", order.TotalAmountCents)

	if err := s.emailSvc.SendOrderConfirmation(ctx, caller, order); err != nil {
		logger.ErrorContext(ctx, "Failed to send order confirmation", "order_id", order.ID, "error", err)
	}
	return order, nil
}

// buildOrder validates the cart and prices every line. Nothing is persisted.
func (s *orderService) buildOrder(ctx context.Context, caller *domain.User, in PlaceOrderInput) (*domain.Order, error) {
	now := s.now().UTC()

	v := domain.NewValidationError("invalid order")
	if len(in.Items) == 0 {
		v.WithField("items", "at least one item is required")
	}
	method := in.DeliveryMethod
	if method == "" {
		method = domain.DeliveryPickup
	}
	if !method.Valid() {
		v.WithField("deliveryMethod", "must be pickup or delivery")
	}
	if method == domain.DeliveryDelivery && (in.DeliveryAddress == nil || in.DeliveryAddress.IsZero()) {
		v.WithField("deliveryAddress", "is required for delivery")
	}
	if in.DiscountAmountCents < 0 {
		v.WithField("discountAmountCents", "must not be negative")
	}
	for i, it := range in.Items {
		if it.Quantity < 1 {
			v.WithField(fmt.Sprintf("items[%d].quantity", i), "must be at least 1")
		}
		if !it.RentalEnd.After(it.RentalStart) {
			v.WithField(fmt.Sprintf("items[%d].rentalEnd", i), "must be after rentalStart")
		}
	}
	if v.HasFields() {
		return nil, v
	}
	if in.DiscountAmountCents > 0 && !caller.Role.IsStaff() {
		return nil, &domain.AuthorizationError{Message: "only staff may apply a discount"}
	}

	order := &domain.Order{
		CustomerID:          caller.ID,
		Status:              domain.OrderStatusPending,
		BillingAddress:      in.BillingAddress,
		DeliveryMethod:      method,
		PaymentMethod:       strings.TrimSpace(in.PaymentMethod),
		PaymentStatus:       domain.PaymentStatusPending,
		Notes:               strings.TrimSpace(in.Notes),
		DiscountAmountCents: in.DiscountAmountCents,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if method == domain.DeliveryDelivery {
		addr := *in.DeliveryAddress
		order.DeliveryAddress = &addr
		order.DeliveryChargeCents = s.settings.DeliveryChargeCents
	}

	products := make(map[int32]*domain.Product)
	for i, it := range in.Items {
		p, ok := products[it.ProductID]
		if !ok {
			var err error
			p, err = s.productRepo.GetByID(ctx, it.ProductID)
			if err != nil {
				return nil, err
			}
			products[it.ProductID] = p
		}
		if !p.IsActive {
			return nil, domain.NewValidationError("product is not available for rent").
				WithField(fmt.Sprintf("items[%d].productId", i), "product is not available for rent")
		}
		if err := p.ValidateRentalPeriod(it.RentalStart, it.RentalEnd, now); err != nil {
			return nil, err
		}

		quote, err := pricing.QuoteItem(p, it.PricingType, it.RentalStart, it.RentalEnd, it.Quantity, caller.CustomerType, now)
		if err != nil {
			return nil, err
		}

		order.Items = append(order.Items, domain.OrderItem{
			ProductID:       p.ID,
			ProductName:     p.Name,
			Quantity:        it.Quantity,
			UnitPriceCents:  quote.UnitPriceCents,
			TotalPriceCents: quote.TotalPriceCents,
			RentalStart:     it.RentalStart,
			RentalEnd:       it.RentalEnd,
			PricingType:     quote.PricingType,
			PricingRuleID:   quote.Rule.ID,
		})
		order.DepositAmountCents += pricing.Deposit(p, it.Quantity)
	}

	order.RecalculateTotals()
	taxable := order.SubtotalCents - order.DiscountAmountCents
	order.TaxAmountCents = pricing.Tax(taxable, s.settings.TaxRateBps)
	order.RecalculateTotals()
	return order, nil
}

func (s *orderService) GetOrder(ctx context.Context, caller *domain.User, id int32) (*domain.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.CustomerID != caller.ID && !caller.Role.IsStaff() {
		return nil, &domain.AuthorizationError{Message: "you do not have access to this order"}
	}
	return order, nil
}

func (s *orderService) ListMyOrders(ctx context.Context, caller *domain.User, page, limit int) ([]domain.Order, int, error) {
	page, limit = NormalizePage(page, limit)
	return s.orderRepo.ListByCustomer(ctx, caller.ID, page, limit)
}

func (s *orderService) ListOrders(ctx context.Context, status domain.OrderStatus, page, limit int) ([]domain.Order, int, error) {
	if status != "" && !status.Valid() {
		return nil, 0, domain.NewValidationError("invalid status filter").WithField("status", "unknown order status")
	}
	page, limit = NormalizePage(page, limit)
	return s.orderRepo.List(ctx, status, page, limit)
}

func (s *orderService) UpdateStatus(ctx context.Context, caller *domain.User, id int32, to domain.OrderStatus) (*domain.Order, error) {
	logger.EnterMethod(ctx, "orderService.UpdateStatus", "order_id", id, "to", to, "staff_id", caller.ID)
	if !caller.Role.IsStaff() {
		return nil, &domain.AuthorizationError{Message: "staff role required"}
	}
	if !to.Valid() {
		return nil, domain.NewValidationError("invalid status").WithField("status", "unknown order status")
	}

	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	staffID := caller.ID
	return s.transition(ctx, order, to, &staffID)
}

func (s *orderService) CancelOrder(ctx context.Context, caller *domain.User, id int32) (*domain.Order, error) {
	logger.EnterMethod(ctx, "orderService.CancelOrder", "order_id", id, "user_id", caller.ID)

	order, err := s.GetOrder(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if !caller.Role.IsStaff() && order.Status != domain.OrderStatusPending && order.Status != domain.OrderStatusConfirmed {
		if order.Status == domain.OrderStatusCancelled {
			return nil, &domain.InvalidTransitionError{From: order.Status, To: domain.OrderStatusCancelled}
		}
		return nil, &domain.AuthorizationError{Message: "orders can only be cancelled by the customer while pending or confirmed"}
	}

	var staffID *int32
	if caller.Role.IsStaff() {
		sid := caller.ID
		staffID = &sid
	}
	return s.transition(ctx, order, domain.OrderStatusCancelled, staffID)
}

// transition applies one FSM step and notifies the customer.
func (s *orderService) transition(ctx context.Context, order *domain.Order, to domain.OrderStatus, staffID *int32) (*domain.Order, error) {
	if !order.Status.CanTransitionTo(to) {
		return nil, &domain.InvalidTransitionError{From: order.Status, To: to}
	}
	at := s.now().UTC()
	if err := s.orderRepo.UpdateStatus(ctx, order.ID, order.Status, to, staffID, at); err != nil {
		return nil, err
	}
	metrics.StatusTransitions.WithLabelValues(string(to)).Inc()
	logger.InfoContext(ctx, "Order status changed", "order_id", order.ID, "from", order.Status, "to", to)

	order.Status = to
	order.UpdatedAt = at
	if staffID != nil {
		order.StaffID = staffID
	}
	s.notify(ctx, order, s.emailSvc.SendOrderStatusChange)
	return order, nil
}

func (s *orderService) notify(ctx context.Context, order *domain.Order, send func(context.Context, *domain.User, *domain.Order) error) {
	customer, err := s.userRepo.GetByID(ctx, order.CustomerID)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to load customer for notification", "order_id", order.ID, "error", err)
		return
	}
	if err := send(ctx, customer, order); err != nil {
		logger.ErrorContext(ctx, "Failed to send order email", "order_id", order.ID, "error", err)
	}
}

// AssessLateFees charges delivered orders that are past their rental end.
// Fees are recomputed from scratch so repeated runs are idempotent for the
// same asOf.
func (s *orderService) AssessLateFees(ctx context.Context, asOf time.Time) (int, error) {
	orders, err := s.orderRepo.ListByStatusEndingBefore(ctx, domain.OrderStatusDelivered, asOf)
	if err != nil {
		return 0, fmt.Errorf("failed to list overdue orders: %w", err)
	}

	products := make(map[int32]*domain.Product)
	updated := 0
	for i := range orders {
		o := &orders[i]
		var perDay int64
		for _, it := range o.Items {
			p, ok := products[it.ProductID]
			if !ok {
				p, err = s.productRepo.GetByID(ctx, it.ProductID)
				if err != nil {
					return updated, fmt.Errorf("failed to load product %d: %w", it.ProductID, err)
				}
				products[it.ProductID] = p
			}
			perDay += p.LateFeePerDayCents * int64(it.Quantity)
		}

		fees := pricing.OverdueDays(o.RentalEnd, asOf) * perDay
		if fees == o.LateFeesCents {
			continue
		}
		o.LateFeesCents = fees
		o.RecalculateTotals()
		if err := s.orderRepo.UpdateLateFees(ctx, o.ID, o.LateFeesCents, asOf); err != nil {
			return updated, fmt.Errorf("failed to update late fees for order %d: %w", o.ID, err)
		}
		logger.InfoContext(ctx, "Late fees assessed", "order_id", o.ID, "late_fees_cents", fees, "amount_due_cents", o.AmountDueCents)
		updated++
	}
	return updated, nil
}

// SendReturnReminders emails customers whose delivered rentals end within the
// reminder lead time.
func (s *orderService) SendReturnReminders(ctx context.Context, asOf time.Time) (int, error) {
	lead := s.settings.ReminderLead
	if lead <= 0 {
		lead = 24 * time.Hour
	}
	orders, err := s.orderRepo.ListByStatusEndingBetween(ctx, domain.OrderStatusDelivered, asOf, asOf.Add(lead))
	if err != nil {
		return 0, fmt.Errorf("failed to list orders due for return: %w", err)
	}

	sent := 0
	for i := range orders {
		o := &orders[i]
		customer, err := s.userRepo.GetByID(ctx, o.CustomerID)
		if err != nil {
			logger.ErrorContext(ctx, "Failed to load customer for reminder", "order_id", o.ID, "error", err)
			continue
		}
		if err := s.emailSvc.SendReturnReminder(ctx, customer, o); err != nil {
			logger.ErrorContext(ctx, "Failed to send return reminder", "order_id", o.ID, "error", err)
			continue
		}
		sent++
	}
	return sent, nil
}

// ExpirePendingOrders cancels orders left pending longer than the expiry
// window, releasing their reservations.
func (s *orderService) ExpirePendingOrders(ctx context.Context, asOf time.Time) (int, error) {
	if s.settings.PendingExpiry <= 0 {
		return 0, nil
	}
	orders, err := s.orderRepo.ListByStatusCreatedBefore(ctx, domain.OrderStatusPending, asOf.Add(-s.settings.PendingExpiry))
	if err != nil {
		return 0, fmt.Errorf("failed to list stale pending orders: %w", err)
	}

	expired := 0
	for i := range orders {
		o := &orders[i]
		err := s.orderRepo.UpdateStatus(ctx, o.ID, domain.OrderStatusPending, domain.OrderStatusCancelled, nil, asOf)
		if err != nil {
			var conflict *domain.ConflictError
			if errors.As(err, &conflict) {
				// Confirmed or cancelled since it was listed.
				continue
			}
			return expired, fmt.Errorf("failed to expire order %d: %w", o.ID, err)
		}
		metrics.StatusTransitions.WithLabelValues(string(domain.OrderStatusCancelled)).Inc()
		o.Status = domain.OrderStatusCancelled
		s.notify(ctx, o, s.emailSvc.SendOrderStatusChange)
		expired++
	}
	return expired, nil
}
