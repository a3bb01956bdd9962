package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"gearhire-backend/internal/domain"
	"gearhire-backend/internal/inventory"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var reservationRowColumns = []string{"id", "unit_id", "order_id", "order_item_id", "start_at", "end_at", "status"}

func newTestOrder(start, end time.Time) *domain.Order {
	o := &domain.Order{
		OrderNumber:    "ORD-20260501000000-000001-abcd",
		CustomerID:     9,
		Status:         domain.OrderStatusPending,
		DeliveryMethod: domain.DeliveryPickup,
		PaymentStatus:  domain.PaymentStatusPending,
		BillingAddress: domain.Address{Street: "1 Main", City: "Springfield"},
		Items: []domain.OrderItem{{
			ProductID:       10,
			Quantity:        1,
			UnitPriceCents:  30000,
			TotalPriceCents: 30000,
			RentalStart:     start,
			RentalEnd:       end,
			PricingType:     domain.PricingDaily,
			PricingRuleID:   1,
		}},
		CreatedAt: start.Add(-time.Hour),
		UpdatedAt: start.Add(-time.Hour),
	}
	o.RecalculateTotals()
	return o
}

func TestOrderRepository_Create(t *testing.T) {
	start := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	end := start.Add(48 * time.Hour)

	t.Run("Success", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		repo := NewOrderRepository(db)
		o := newTestOrder(start, end)

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT id FROM products WHERE id = ANY(.+) FOR UPDATE").
			WithArgs(sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(10))
		mock.ExpectQuery("INSERT INTO orders").
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
		mock.ExpectQuery("INSERT INTO order_items").
			WithArgs(int32(1), int32(10), 1, int64(30000), int64(30000), start, end, "daily", int32(1)).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(11))
		mock.ExpectQuery("SELECT (.+) FROM inventory_units WHERE product_id = \\$1").
			WithArgs(int32(10)).
			WillReturnRows(sqlmock.NewRows(unitRowColumns).
				AddRow(100, 10, "SN-B", "good", true, "", nil, nil).
				AddRow(101, 10, "SN-A", "excellent", true, "", nil, nil))
		mock.ExpectQuery("SELECT (.+) FROM reservations r JOIN inventory_units u").
			WithArgs(int32(10), start, end).
			WillReturnRows(sqlmock.NewRows(reservationRowColumns))
		mock.ExpectExec("INSERT INTO reservations").
			WithArgs(int32(101), int32(1), int32(11), start, end).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		require.NoError(t, repo.Create(context.Background(), o, inventory.Allocate))
		assert.Equal(t, int32(1), o.ID)
		assert.Equal(t, int32(11), o.Items[0].ID)
		assert.Equal(t, []int32{101}, o.Items[0].UnitIDs)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Duplicate order number", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		repo := NewOrderRepository(db)

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT id FROM products").
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(10))
		mock.ExpectQuery("INSERT INTO orders").
			WillReturnError(&pq.Error{Code: "23505", Constraint: "orders_order_number_key"})
		mock.ExpectRollback()

		err = repo.Create(context.Background(), newTestOrder(start, end), inventory.Allocate)
		assert.ErrorIs(t, err, domain.ErrDuplicateOrderNumber)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Lock failure surfaces", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		repo := NewOrderRepository(db)
		lockErr := errors.New("canceling statement due to lock timeout")

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT id FROM products").
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(10).RowError(0, lockErr))
		mock.ExpectRollback()

		err = repo.Create(context.Background(), newTestOrder(start, end), inventory.Allocate)
		assert.ErrorIs(t, err, lockErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Product deleted before lock", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		repo := NewOrderRepository(db)

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT id FROM products").
			WillReturnRows(sqlmock.NewRows([]string{"id"}))
		mock.ExpectRollback()

		err = repo.Create(context.Background(), newTestOrder(start, end), inventory.Allocate)
		var notFound *domain.NotFoundError
		require.ErrorAs(t, err, &notFound)
		assert.Equal(t, int32(10), notFound.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Last unit already booked", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		repo := NewOrderRepository(db)

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT id FROM products").
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(10))
		mock.ExpectQuery("INSERT INTO orders").
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(2))
		mock.ExpectQuery("INSERT INTO order_items").
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(12))
		mock.ExpectQuery("SELECT (.+) FROM inventory_units").
			WillReturnRows(sqlmock.NewRows(unitRowColumns).AddRow(100, 10, "SN-A", "good", true, "", nil, nil))
		mock.ExpectQuery("SELECT (.+) FROM reservations").
			WillReturnRows(sqlmock.NewRows(reservationRowColumns).
				AddRow(1, 100, 1, 11, start.Add(24*time.Hour), end.Add(24*time.Hour), "active"))
		mock.ExpectRollback()

		err = repo.Create(context.Background(), newTestOrder(start, end), inventory.Allocate)
		var short *domain.InsufficientInventoryError
		require.ErrorAs(t, err, &short)
		assert.Equal(t, 1, short.Requested)
		assert.Equal(t, 0, short.Available)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestOrderRepository_GetByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewOrderRepository(db)

	start := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	end := start.Add(48 * time.Hour)

	orderCols := []string{"id", "order_number", "customer_id", "staff_id", "status", "billing_address", "delivery_address",
		"delivery_method", "payment_method", "rental_start", "rental_end", "subtotal_cents", "tax_amount_cents",
		"discount_amount_cents", "delivery_charge_cents", "deposit_amount_cents", "late_fees_cents", "total_amount_cents",
		"payment_status", "notes", "created_at", "updated_at"}

	mock.ExpectQuery("SELECT (.+) FROM orders WHERE id = \\$1").
		WithArgs(int32(1)).
		WillReturnRows(sqlmock.NewRows(orderCols).
			AddRow(1, "ORD-1", 9, nil, "confirmed", `{"street":"1 Main","city":"Springfield"}`, `{"street":"2 Side"}`,
				"delivery", "card", start, end, 30000, 2400, 0, 2500, 0, 5000, 34900, "pending", "", start, start))
	mock.ExpectQuery("SELECT (.+) FROM order_items i JOIN products p").
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "order_id", "product_id", "name", "quantity", "unit_price_cents",
			"total_price_cents", "rental_start", "rental_end", "pricing_type", "pricing_rule_id"}).
			AddRow(11, 1, 10, "Excavator", 1, 30000, 30000, start, end, "daily", 1))
	mock.ExpectQuery("SELECT order_item_id, unit_id FROM reservations").
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"order_item_id", "unit_id"}).AddRow(11, 100))

	o, err := repo.GetByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusConfirmed, o.Status)
	assert.Nil(t, o.StaffID)
	assert.Equal(t, int64(34900), o.TotalAmountCents)
	assert.Equal(t, int64(39900), o.AmountDueCents)
	assert.Equal(t, "Springfield", o.BillingAddress.City)
	require.NotNil(t, o.DeliveryAddress)
	assert.Equal(t, "2 Side", o.DeliveryAddress.Street)
	require.Len(t, o.Items, 1)
	assert.Equal(t, "Excavator", o.Items[0].ProductName)
	assert.Equal(t, []int32{100}, o.Items[0].UnitIDs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_UpdateStatus(t *testing.T) {
	at := time.Now()
	staff := int32(3)

	t.Run("Shipped clears unit availability", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		repo := NewOrderRepository(db)

		mock.ExpectBegin()
		mock.ExpectExec("UPDATE orders SET status = \\$1").
			WithArgs("shipped", int64(3), at, int32(1), "processing").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("UPDATE inventory_units SET is_available = FALSE").
			WithArgs(int32(1)).
			WillReturnResult(sqlmock.NewResult(0, 2))
		mock.ExpectCommit()

		err = repo.UpdateStatus(context.Background(), 1, domain.OrderStatusProcessing, domain.OrderStatusShipped, &staff, at)
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Completed restores units and releases reservations", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		repo := NewOrderRepository(db)

		mock.ExpectBegin()
		mock.ExpectExec("UPDATE orders SET status").
			WithArgs("completed", nil, at, int32(1), "delivered").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("UPDATE inventory_units SET is_available = TRUE").
			WithArgs(int32(1)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("UPDATE reservations SET status = 'released'").
			WithArgs(int32(1), at).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err = repo.UpdateStatus(context.Background(), 1, domain.OrderStatusDelivered, domain.OrderStatusCompleted, nil, at)
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Cancel before shipping only releases reservations", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		repo := NewOrderRepository(db)

		mock.ExpectBegin()
		mock.ExpectExec("UPDATE orders SET status").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("UPDATE reservations SET status = 'released'").
			WithArgs(int32(1), at).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err = repo.UpdateStatus(context.Background(), 1, domain.OrderStatusPending, domain.OrderStatusCancelled, nil, at)
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Lost race", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		repo := NewOrderRepository(db)

		mock.ExpectBegin()
		mock.ExpectExec("UPDATE orders SET status").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery("SELECT status FROM orders WHERE id = \\$1").
			WithArgs(int32(1)).
			WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("cancelled"))
		mock.ExpectRollback()

		err = repo.UpdateStatus(context.Background(), 1, domain.OrderStatusPending, domain.OrderStatusConfirmed, &staff, at)
		var conflict *domain.ConflictError
		require.ErrorAs(t, err, &conflict)
		assert.Contains(t, conflict.Message, "cancelled")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestOrderRepository_UpdateLateFees(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewOrderRepository(db)
	at := time.Now()

	mock.ExpectExec("UPDATE orders SET late_fees_cents").
		WithArgs(int64(5000), at, int32(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateLateFees(context.Background(), 1, 5000, at))
	assert.NoError(t, mock.ExpectationsWereMet())
}
