package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"gearhire-backend/internal/domain"
	"gearhire-backend/internal/logger"
	"gearhire-backend/internal/repository"

	"github.com/lib/pq"
)

const orderColumns = `id, order_number, customer_id, staff_id, status, billing_address, delivery_address, delivery_method,
	payment_method, rental_start, rental_end, subtotal_cents, tax_amount_cents, discount_amount_cents, delivery_charge_cents,
	deposit_amount_cents, late_fees_cents, total_amount_cents, payment_status, notes, created_at, updated_at`

type orderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) repository.OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) Create(ctx context.Context, o *domain.Order, selectUnits repository.UnitSelector) error {
	billing, err := json.Marshal(o.BillingAddress)
	if err != nil {
		return fmt.Errorf("failed to encode billing address: %w", err)
	}
	var delivery sql.NullString
	if o.DeliveryAddress != nil {
		raw, err := json.Marshal(o.DeliveryAddress)
		if err != nil {
			return fmt.Errorf("failed to encode delivery address: %w", err)
		}
		delivery = sql.NullString{String: string(raw), Valid: true}
	}

	logger.DatabaseCall(ctx, "orders.create", "order_number", o.OrderNumber, "items", len(o.Items))
	err = WithTx(ctx, r.db, func(tx *sql.Tx) error {
		if err := lockProducts(ctx, tx, o.ProductIDs()); err != nil {
			return err
		}

		err := tx.QueryRowContext(ctx,
			`INSERT INTO orders (order_number, customer_id, staff_id, status, billing_address, delivery_address, delivery_method,
			     payment_method, rental_start, rental_end, subtotal_cents, tax_amount_cents, discount_amount_cents,
			     delivery_charge_cents, deposit_amount_cents, late_fees_cents, total_amount_cents, payment_status, notes,
			     created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21) RETURNING id`,
			o.OrderNumber, o.CustomerID, nullInt32(o.StaffID), o.Status, string(billing), delivery, o.DeliveryMethod,
			o.PaymentMethod, o.RentalStart, o.RentalEnd, o.SubtotalCents, o.TaxAmountCents, o.DiscountAmountCents,
			o.DeliveryChargeCents, o.DepositAmountCents, o.LateFeesCents, o.TotalAmountCents, o.PaymentStatus, o.Notes,
			o.CreatedAt, o.UpdatedAt,
		).Scan(&o.ID)
		if err != nil {
			return mapError(err, nil)
		}

		for i := range o.Items {
			it := &o.Items[i]
			it.OrderID = o.ID
			err := tx.QueryRowContext(ctx,
				`INSERT INTO order_items (order_id, product_id, quantity, unit_price_cents, total_price_cents,
				     rental_start, rental_end, pricing_type, pricing_rule_id)
				 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id`,
				it.OrderID, it.ProductID, it.Quantity, it.UnitPriceCents, it.TotalPriceCents,
				it.RentalStart, it.RentalEnd, it.PricingType, it.PricingRuleID,
			).Scan(&it.ID)
			if err != nil {
				return err
			}

			units, err := listUnits(ctx, tx, `product_id = $1`, it.ProductID)
			if err != nil {
				return err
			}
			booked, err := listReservations(ctx, tx, it.ProductID, it.RentalStart, it.RentalEnd)
			if err != nil {
				return err
			}
			chosen, err := selectUnits(it.ProductID, units, booked, it.RentalStart, it.RentalEnd, it.Quantity)
			if err != nil {
				return err
			}

			it.UnitIDs = make([]int32, 0, len(chosen))
			for _, u := range chosen {
				_, err := tx.ExecContext(ctx,
					`INSERT INTO reservations (unit_id, order_id, order_item_id, start_at, end_at, status)
					 VALUES ($1, $2, $3, $4, $5, 'active')`,
					u.ID, o.ID, it.ID, it.RentalStart, it.RentalEnd)
				if err != nil {
					return err
				}
				it.UnitIDs = append(it.UnitIDs, u.ID)
			}
		}
		return nil
	})
	logger.DatabaseResult(ctx, "orders.create", 1, err)
	return err
}

// lockProducts takes row locks on the products in id order so concurrent
// carts cannot deadlock.
func lockProducts(ctx context.Context, tx *sql.Tx, productIDs []int32) error {
	ids := make([]int64, len(productIDs))
	for i, id := range productIDs {
		ids[i] = int64(id)
	}
	rows, err := tx.QueryContext(ctx, `SELECT id FROM products WHERE id = ANY($1) ORDER BY id FOR UPDATE`, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("failed to lock products: %w", err)
	}
	defer rows.Close()

	locked := make(map[int32]bool, len(ids))
	for rows.Next() {
		var id int32
		if err := rows.Scan(&id); err != nil {
			return fmt.Errorf("failed to lock products: %w", err)
		}
		locked[id] = true
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to lock products: %w", err)
	}
	if err := rows.Close(); err != nil {
		return fmt.Errorf("failed to lock products: %w", err)
	}
	for _, id := range productIDs {
		if !locked[id] {
			return &domain.NotFoundError{Resource: "product", ID: id}
		}
	}
	return nil
}

func (r *orderRepository) GetByID(ctx context.Context, id int32) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	var o *domain.Order
	err := withRetry(ctx, "orders.get_by_id", func() error {
		var err error
		if o, err = scanOrder(r.db.QueryRowContext(ctx, query, id)); err != nil {
			return err
		}
		return loadItems(ctx, r.db, []*domain.Order{o})
	})
	if err != nil {
		return nil, mapError(err, &domain.NotFoundError{Resource: "order", ID: id})
	}
	return o, nil
}

func (r *orderRepository) ListByCustomer(ctx context.Context, customerID int32, page, limit int) ([]domain.Order, int, error) {
	return r.listPage(ctx, "orders.list_by_customer", `WHERE customer_id = $1`, []any{customerID}, page, limit)
}

func (r *orderRepository) List(ctx context.Context, status domain.OrderStatus, page, limit int) ([]domain.Order, int, error) {
	if status == "" {
		return r.listPage(ctx, "orders.list", ``, nil, page, limit)
	}
	return r.listPage(ctx, "orders.list", `WHERE status = $1`, []any{status}, page, limit)
}

func (r *orderRepository) listPage(ctx context.Context, op, where string, args []any, page, limit int) ([]domain.Order, int, error) {
	var total int
	var orders []domain.Order
	err := withRetry(ctx, op, func() error {
		if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders `+where, args...).Scan(&total); err != nil {
			return err
		}
		query := fmt.Sprintf(`SELECT %s FROM orders %s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
			orderColumns, where, len(args)+1, len(args)+2)
		var err error
		orders, err = r.queryOrders(ctx, query, append(append([]any{}, args...), limit, offset(page, limit))...)
		return err
	})
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (r *orderRepository) UpdateStatus(ctx context.Context, id int32, from, to domain.OrderStatus, staffID *int32, at time.Time) error {
	logger.DatabaseCall(ctx, "orders.update_status", "order_id", id, "from", from, "to", to)
	err := WithTx(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE orders SET status = $1, staff_id = COALESCE($2, staff_id), updated_at = $3 WHERE id = $4 AND status = $5`,
			to, nullInt32(staffID), at, id, from)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			var current domain.OrderStatus
			err := tx.QueryRowContext(ctx, `SELECT status FROM orders WHERE id = $1`, id).Scan(&current)
			if err != nil {
				return mapError(err, &domain.NotFoundError{Resource: "order", ID: id})
			}
			return &domain.ConflictError{Message: fmt.Sprintf("order status changed from %s to %s concurrently", from, current)}
		}

		const orderUnits = `SELECT unit_id FROM reservations WHERE order_id = $1 AND status = 'active'`
		switch {
		case to == domain.OrderStatusShipped:
			if _, err := tx.ExecContext(ctx, `UPDATE inventory_units SET is_available = FALSE WHERE id IN (`+orderUnits+`)`, id); err != nil {
				return err
			}
		case to.ReleasesInventory():
			if from == domain.OrderStatusShipped || from == domain.OrderStatusDelivered {
				if _, err := tx.ExecContext(ctx, `UPDATE inventory_units SET is_available = TRUE WHERE id IN (`+orderUnits+`)`, id); err != nil {
					return err
				}
			}
			if _, err := tx.ExecContext(ctx,
				`UPDATE reservations SET status = 'released', released_at = $2 WHERE order_id = $1 AND status = 'active'`, id, at); err != nil {
				return err
			}
		}
		return nil
	})
	logger.DatabaseResult(ctx, "orders.update_status", 1, err)
	return err
}

func (r *orderRepository) UpdateLateFees(ctx context.Context, id int32, lateFeesCents int64, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE orders SET late_fees_cents = $1, updated_at = $2 WHERE id = $3`,
		lateFeesCents, at, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &domain.NotFoundError{Resource: "order", ID: id}
	}
	return nil
}

func (r *orderRepository) ListByStatusEndingBefore(ctx context.Context, status domain.OrderStatus, t time.Time) ([]domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE status = $1 AND rental_end < $2 ORDER BY id`
	return r.queryOrdersRetry(ctx, "orders.list_ending_before", query, status, t)
}

func (r *orderRepository) ListByStatusEndingBetween(ctx context.Context, status domain.OrderStatus, from, to time.Time) ([]domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE status = $1 AND rental_end >= $2 AND rental_end < $3 ORDER BY id`
	return r.queryOrdersRetry(ctx, "orders.list_ending_between", query, status, from, to)
}

func (r *orderRepository) ListByStatusCreatedBefore(ctx context.Context, status domain.OrderStatus, t time.Time) ([]domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE status = $1 AND created_at < $2 ORDER BY id`
	return r.queryOrdersRetry(ctx, "orders.list_created_before", query, status, t)
}

func (r *orderRepository) queryOrdersRetry(ctx context.Context, op, query string, args ...any) ([]domain.Order, error) {
	var orders []domain.Order
	err := withRetry(ctx, op, func() error {
		var err error
		orders, err = r.queryOrders(ctx, query, args...)
		return err
	})
	return orders, err
}

func (r *orderRepository) queryOrders(ctx context.Context, query string, args ...any) ([]domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	ptrs := make([]*domain.Order, len(orders))
	for i := range orders {
		ptrs[i] = &orders[i]
	}
	if err := loadItems(ctx, r.db, ptrs); err != nil {
		return nil, err
	}
	return orders, nil
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	o := &domain.Order{}
	var staff sql.NullInt32
	var billing, delivery []byte
	err := row.Scan(&o.ID, &o.OrderNumber, &o.CustomerID, &staff, &o.Status, &billing, &delivery, &o.DeliveryMethod,
		&o.PaymentMethod, &o.RentalStart, &o.RentalEnd, &o.SubtotalCents, &o.TaxAmountCents, &o.DiscountAmountCents,
		&o.DeliveryChargeCents, &o.DepositAmountCents, &o.LateFeesCents, &o.TotalAmountCents, &o.PaymentStatus, &o.Notes,
		&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	o.AmountDueCents = o.TotalAmountCents + o.LateFeesCents
	if staff.Valid {
		id := staff.Int32
		o.StaffID = &id
	}
	if len(billing) > 0 {
		if err := json.Unmarshal(billing, &o.BillingAddress); err != nil {
			return nil, fmt.Errorf("failed to decode billing address of order %d: %w", o.ID, err)
		}
	}
	if len(delivery) > 0 {
		o.DeliveryAddress = &domain.Address{}
		if err := json.Unmarshal(delivery, o.DeliveryAddress); err != nil {
			return nil, fmt.Errorf("failed to decode delivery address of order %d: %w", o.ID, err)
		}
	}
	o.Items = []domain.OrderItem{}
	return o, nil
}

// loadItems attaches items, with product names and reserved unit ids, to orders.
func loadItems(ctx context.Context, q queryer, orders []*domain.Order) error {
	if len(orders) == 0 {
		return nil
	}
	byID := make(map[int32]*domain.Order, len(orders))
	ids := make([]int64, 0, len(orders))
	for _, o := range orders {
		byID[o.ID] = o
		ids = append(ids, int64(o.ID))
	}

	rows, err := q.QueryContext(ctx,
		`SELECT i.id, i.order_id, i.product_id, p.name, i.quantity, i.unit_price_cents, i.total_price_cents,
		     i.rental_start, i.rental_end, i.pricing_type, COALESCE(i.pricing_rule_id, 0)
		 FROM order_items i JOIN products p ON p.id = i.product_id
		 WHERE i.order_id = ANY($1) ORDER BY i.id`, pq.Array(ids))
	if err != nil {
		return err
	}
	defer rows.Close()

	type itemRef struct{ order, index int32 }
	refs := make(map[int32]itemRef)
	for rows.Next() {
		var it domain.OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.ProductName, &it.Quantity, &it.UnitPriceCents,
			&it.TotalPriceCents, &it.RentalStart, &it.RentalEnd, &it.PricingType, &it.PricingRuleID); err != nil {
			return err
		}
		o, ok := byID[it.OrderID]
		if !ok {
			continue
		}
		o.Items = append(o.Items, it)
		refs[it.ID] = itemRef{order: it.OrderID, index: int32(len(o.Items) - 1)}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	rows.Close()

	resRows, err := q.QueryContext(ctx,
		`SELECT order_item_id, unit_id FROM reservations WHERE order_id = ANY($1) ORDER BY order_item_id, unit_id`, pq.Array(ids))
	if err != nil {
		return err
	}
	defer resRows.Close()
	for resRows.Next() {
		var itemID, unitID int32
		if err := resRows.Scan(&itemID, &unitID); err != nil {
			return err
		}
		if ref, ok := refs[itemID]; ok {
			it := &byID[ref.order].Items[ref.index]
			it.UnitIDs = append(it.UnitIDs, unitID)
		}
	}
	return resRows.Err()
}

func nullInt32(v *int32) sql.NullInt32 {
	if v == nil {
		return sql.NullInt32{}
	}
	return sql.NullInt32{Int32: *v, Valid: true}
}
