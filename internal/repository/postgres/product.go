package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"gearhire-backend/internal/domain"
	"gearhire-backend/internal/logger"
	"gearhire-backend/internal/repository"

	"github.com/lib/pq"
)

const productColumns = `p.id, p.name, p.description, p.category_id, p.sku, p.condition, p.replacement_value_cents,
	p.requires_deposit, p.deposit_amount_cents, p.min_rental_hours, p.max_rental_hours, p.advance_booking_days,
	p.late_fee_per_day_cents, p.is_active, p.created_at, p.updated_at`

// dailyPrice is the lowest active daily rate, used for price filters and sorting.
const dailyPrice = `(SELECT MIN(pr.base_price_cents) FROM pricing_rules pr
	WHERE pr.product_id = p.id AND pr.is_active AND pr.pricing_type = 'daily')`

type productRepository struct {
	db *sql.DB
}

func NewProductRepository(db *sql.DB) repository.ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) Create(ctx context.Context, p *domain.Product) error {
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	logger.DatabaseCall(ctx, "products.create", "sku", p.SKU, "units", len(p.InventoryUnits), "rules", len(p.PricingRules))
	err := WithTx(ctx, r.db, func(tx *sql.Tx) error {
		query := `INSERT INTO products (name, description, category_id, sku, condition, replacement_value_cents,
		              requires_deposit, deposit_amount_cents, min_rental_hours, max_rental_hours, advance_booking_days,
		              late_fee_per_day_cents, is_active, created_at, updated_at)
		          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15) RETURNING id`
		err := tx.QueryRowContext(ctx, query,
			p.Name, p.Description, p.CategoryID, p.SKU, p.Condition, p.ReplacementValueCents,
			p.RequiresDeposit, p.DepositAmountCents, p.MinRentalPeriodHours, p.MaxRentalPeriodHours, p.AdvanceBookingDays,
			p.LateFeePerDayCents, p.IsActive, p.CreatedAt, p.UpdatedAt,
		).Scan(&p.ID)
		if err != nil {
			return mapError(err, nil)
		}

		for i := range p.InventoryUnits {
			u := &p.InventoryUnits[i]
			u.ProductID = p.ID
			err := tx.QueryRowContext(ctx,
				`INSERT INTO inventory_units (product_id, serial_number, condition, is_available, location, last_maintenance_at, next_maintenance_at)
				 VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
				u.ProductID, u.SerialNumber, u.Condition, u.IsAvailable, u.Location, nullTime(u.LastMaintenanceAt), nullTime(u.NextMaintenanceAt),
			).Scan(&u.ID)
			if err != nil {
				return mapError(err, nil)
			}
		}

		for i := range p.PricingRules {
			rule := &p.PricingRules[i]
			rule.ProductID = p.ID
			err := tx.QueryRowContext(ctx,
				`INSERT INTO pricing_rules (product_id, name, pricing_type, base_price_cents, min_quantity, max_quantity,
				     customer_type, valid_from, valid_to, is_active)
				 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING id`,
				rule.ProductID, rule.Name, rule.PricingType, rule.BasePriceCents, rule.MinQuantity, rule.MaxQuantity,
				rule.CustomerType, nullTime(rule.ValidFrom), nullTime(rule.ValidTo), rule.IsActive,
			).Scan(&rule.ID)
			if err != nil {
				return err
			}
		}
		return nil
	})
	logger.DatabaseResult(ctx, "products.create", 1, err)
	return err
}

func (r *productRepository) GetByID(ctx context.Context, id int32) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products p WHERE p.id = $1`
	var p *domain.Product
	err := withRetry(ctx, "products.get_by_id", func() error {
		var err error
		p, err = scanProduct(r.db.QueryRowContext(ctx, query, id))
		if err != nil {
			return err
		}
		return loadChildren(ctx, r.db, map[int32]*domain.Product{p.ID: p})
	})
	if err != nil {
		return nil, mapError(err, &domain.NotFoundError{Resource: "product", ID: id})
	}
	return p, nil
}

func (r *productRepository) List(ctx context.Context, f repository.ProductFilter) ([]domain.Product, int, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if !f.IncludeHidden {
		where = append(where, "p.is_active")
	}
	if f.CategoryID > 0 {
		where = append(where, "p.category_id = "+arg(f.CategoryID))
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		ph := arg("%" + s + "%")
		where = append(where, "(p.name ILIKE "+ph+" OR p.description ILIKE "+ph+" OR p.sku ILIKE "+ph+")")
	}
	if f.Condition != "" {
		where = append(where, "p.condition = "+arg(f.Condition))
	}
	if f.MinPriceCents > 0 {
		where = append(where, dailyPrice+" >= "+arg(f.MinPriceCents))
	}
	if f.MaxPriceCents > 0 {
		where = append(where, dailyPrice+" <= "+arg(f.MaxPriceCents))
	}

	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	var products []domain.Product
	err := withRetry(ctx, "products.list", func() error {
		if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products p`+clause, args...).Scan(&total); err != nil {
			return err
		}

		pageArgs := append(append([]any{}, args...), f.Limit, offset(f.Page, f.Limit))
		query := fmt.Sprintf(`SELECT %s FROM products p%s ORDER BY %s LIMIT $%d OFFSET $%d`,
			productColumns, clause, productOrder(f.SortBy, f.SortOrder), len(args)+1, len(args)+2)
		rows, err := r.db.QueryContext(ctx, query, pageArgs...)
		if err != nil {
			return err
		}
		defer rows.Close()

		products = products[:0]
		for rows.Next() {
			p, err := scanProduct(rows)
			if err != nil {
				return err
			}
			products = append(products, *p)
		}
		if err := rows.Err(); err != nil {
			return err
		}

		byID := make(map[int32]*domain.Product, len(products))
		for i := range products {
			byID[products[i].ID] = &products[i]
		}
		return loadChildren(ctx, r.db, byID)
	})
	if err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

func (r *productRepository) ListReservations(ctx context.Context, productID int32, start, end time.Time) ([]domain.Reservation, error) {
	var out []domain.Reservation
	err := withRetry(ctx, "reservations.list", func() error {
		var err error
		out, err = listReservations(ctx, r.db, productID, start, end)
		return err
	})
	return out, err
}

// productOrder builds a whitelisted ORDER BY clause.
func productOrder(sortBy, sortOrder string) string {
	dir := "DESC"
	if strings.EqualFold(sortOrder, "asc") {
		dir = "ASC"
	}
	switch sortBy {
	case "name":
		return "p.name " + dir + ", p.id"
	case "price":
		return dailyPrice + " " + dir + " NULLS LAST, p.id"
	default:
		return "p.created_at " + dir + ", p.id"
	}
}

func scanProduct(row rowScanner) (*domain.Product, error) {
	p := &domain.Product{}
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.CategoryID, &p.SKU, &p.Condition, &p.ReplacementValueCents,
		&p.RequiresDeposit, &p.DepositAmountCents, &p.MinRentalPeriodHours, &p.MaxRentalPeriodHours, &p.AdvanceBookingDays,
		&p.LateFeePerDayCents, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.InventoryUnits = []domain.InventoryUnit{}
	p.PricingRules = []domain.PricingRule{}
	return p, nil
}

// loadChildren fills inventory units and pricing rules for the given products.
func loadChildren(ctx context.Context, q queryer, products map[int32]*domain.Product) error {
	if len(products) == 0 {
		return nil
	}
	ids := make([]int64, 0, len(products))
	for id := range products {
		ids = append(ids, int64(id))
	}

	units, err := listUnits(ctx, q, `product_id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return err
	}
	for _, u := range units {
		if p, ok := products[u.ProductID]; ok {
			p.InventoryUnits = append(p.InventoryUnits, u)
		}
	}

	rows, err := q.QueryContext(ctx,
		`SELECT id, product_id, name, pricing_type, base_price_cents, min_quantity, max_quantity, customer_type, valid_from, valid_to, is_active
		 FROM pricing_rules WHERE product_id = ANY($1) ORDER BY id`, pq.Array(ids))
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var rule domain.PricingRule
		var from, to sql.NullTime
		if err := rows.Scan(&rule.ID, &rule.ProductID, &rule.Name, &rule.PricingType, &rule.BasePriceCents,
			&rule.MinQuantity, &rule.MaxQuantity, &rule.CustomerType, &from, &to, &rule.IsActive); err != nil {
			return err
		}
		rule.ValidFrom = timePtr(from)
		rule.ValidTo = timePtr(to)
		if p, ok := products[rule.ProductID]; ok {
			p.PricingRules = append(p.PricingRules, rule)
		}
	}
	return rows.Err()
}

func listUnits(ctx context.Context, q queryer, cond string, args ...any) ([]domain.InventoryUnit, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, product_id, serial_number, condition, is_available, location, last_maintenance_at, next_maintenance_at
		 FROM inventory_units WHERE `+cond+` ORDER BY id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var units []domain.InventoryUnit
	for rows.Next() {
		var u domain.InventoryUnit
		var last, next sql.NullTime
		if err := rows.Scan(&u.ID, &u.ProductID, &u.SerialNumber, &u.Condition, &u.IsAvailable, &u.Location, &last, &next); err != nil {
			return nil, err
		}
		u.LastMaintenanceAt = timePtr(last)
		u.NextMaintenanceAt = timePtr(next)
		units = append(units, u)
	}
	return units, rows.Err()
}

// listReservations returns active reservations on the product's units that
// overlap [start, end).
func listReservations(ctx context.Context, q queryer, productID int32, start, end time.Time) ([]domain.Reservation, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT r.id, r.unit_id, r.order_id, r.order_item_id, r.start_at, r.end_at, r.status
		 FROM reservations r JOIN inventory_units u ON u.id = r.unit_id
		 WHERE u.product_id = $1 AND r.status = 'active' AND r.start_at < $3 AND r.end_at > $2
		 ORDER BY r.unit_id, r.start_at`, productID, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Reservation
	for rows.Next() {
		var res domain.Reservation
		if err := rows.Scan(&res.ID, &res.UnitID, &res.OrderID, &res.OrderItemID, &res.Start, &res.End, &res.Status); err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
