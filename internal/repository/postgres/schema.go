package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"gearhire-backend/internal/logger"
)

// migrations are applied in order. Each statement is idempotent so Migrate
// can run on every deploy.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id             SERIAL PRIMARY KEY,
		email          TEXT NOT NULL,
		password_hash  TEXT NOT NULL,
		name           TEXT NOT NULL,
		phone          TEXT NOT NULL DEFAULT '',
		customer_type  TEXT NOT NULL DEFAULT '',
		role           TEXT NOT NULL DEFAULT 'customer' CHECK (role IN ('customer', 'staff', 'admin')),
		is_active      BOOLEAN NOT NULL DEFAULT TRUE,
		email_verified BOOLEAN NOT NULL DEFAULT FALSE,
		last_login_at  TIMESTAMPTZ,
		created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS users_email_key ON users (LOWER(email))`,

	`CREATE TABLE IF NOT EXISTS categories (
		id          SERIAL PRIMARY KEY,
		name        TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		parent_id   INTEGER REFERENCES categories(id),
		is_active   BOOLEAN NOT NULL DEFAULT TRUE,
		sort_order  INTEGER NOT NULL DEFAULT 0,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS categories_active_name_ix ON categories (LOWER(name)) WHERE is_active`,

	`CREATE TABLE IF NOT EXISTS products (
		id                      SERIAL PRIMARY KEY,
		name                    TEXT NOT NULL,
		description             TEXT NOT NULL DEFAULT '',
		category_id             INTEGER NOT NULL REFERENCES categories(id),
		sku                     TEXT NOT NULL,
		condition               TEXT NOT NULL CHECK (condition IN ('excellent', 'good', 'fair', 'poor')),
		replacement_value_cents BIGINT NOT NULL DEFAULT 0 CHECK (replacement_value_cents >= 0),
		requires_deposit        BOOLEAN NOT NULL DEFAULT FALSE,
		deposit_amount_cents    BIGINT NOT NULL DEFAULT 0 CHECK (deposit_amount_cents >= 0),
		min_rental_hours        INTEGER NOT NULL DEFAULT 1 CHECK (min_rental_hours >= 1),
		max_rental_hours        INTEGER NOT NULL CHECK (max_rental_hours >= min_rental_hours),
		advance_booking_days    INTEGER NOT NULL DEFAULT 0 CHECK (advance_booking_days >= 0),
		late_fee_per_day_cents  BIGINT NOT NULL DEFAULT 0 CHECK (late_fee_per_day_cents >= 0),
		is_active               BOOLEAN NOT NULL DEFAULT TRUE,
		created_at              TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at              TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT products_sku_key UNIQUE (sku)
	)`,
	`CREATE INDEX IF NOT EXISTS products_category_ix ON products (category_id)`,

	`CREATE TABLE IF NOT EXISTS inventory_units (
		id                  SERIAL PRIMARY KEY,
		product_id          INTEGER NOT NULL REFERENCES products(id) ON DELETE CASCADE,
		serial_number       TEXT NOT NULL,
		condition           TEXT NOT NULL CHECK (condition IN ('excellent', 'good', 'fair', 'poor')),
		is_available        BOOLEAN NOT NULL DEFAULT TRUE,
		location            TEXT NOT NULL DEFAULT '',
		last_maintenance_at TIMESTAMPTZ,
		next_maintenance_at TIMESTAMPTZ
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS inventory_units_serial_ix ON inventory_units (product_id, serial_number)`,

	`CREATE TABLE IF NOT EXISTS pricing_rules (
		id               SERIAL PRIMARY KEY,
		product_id       INTEGER NOT NULL REFERENCES products(id) ON DELETE CASCADE,
		name             TEXT NOT NULL DEFAULT '',
		pricing_type     TEXT NOT NULL CHECK (pricing_type IN ('hourly', 'daily', 'weekly', 'monthly', 'yearly')),
		base_price_cents BIGINT NOT NULL CHECK (base_price_cents >= 0),
		min_quantity     INTEGER NOT NULL DEFAULT 1,
		max_quantity     INTEGER NOT NULL DEFAULT 0,
		customer_type    TEXT NOT NULL DEFAULT '',
		valid_from       TIMESTAMPTZ,
		valid_to         TIMESTAMPTZ,
		is_active        BOOLEAN NOT NULL DEFAULT TRUE
	)`,
	`CREATE INDEX IF NOT EXISTS pricing_rules_product_ix ON pricing_rules (product_id)`,

	`CREATE TABLE IF NOT EXISTS orders (
		id                    SERIAL PRIMARY KEY,
		order_number          TEXT NOT NULL,
		customer_id           INTEGER NOT NULL REFERENCES users(id),
		staff_id              INTEGER REFERENCES users(id),
		status                TEXT NOT NULL CHECK (status IN ('pending', 'confirmed', 'processing', 'shipped', 'delivered', 'completed', 'cancelled')),
		billing_address       JSONB NOT NULL DEFAULT '{}',
		delivery_address      JSONB,
		delivery_method       TEXT NOT NULL CHECK (delivery_method IN ('pickup', 'delivery')),
		payment_method        TEXT NOT NULL DEFAULT '',
		rental_start          TIMESTAMPTZ NOT NULL,
		rental_end            TIMESTAMPTZ NOT NULL,
		subtotal_cents        BIGINT NOT NULL CHECK (subtotal_cents >= 0),
		tax_amount_cents      BIGINT NOT NULL DEFAULT 0 CHECK (tax_amount_cents >= 0),
		discount_amount_cents BIGINT NOT NULL DEFAULT 0 CHECK (discount_amount_cents >= 0),
		delivery_charge_cents BIGINT NOT NULL DEFAULT 0 CHECK (delivery_charge_cents >= 0),
		deposit_amount_cents  BIGINT NOT NULL DEFAULT 0 CHECK (deposit_amount_cents >= 0),
		late_fees_cents       BIGINT NOT NULL DEFAULT 0 CHECK (late_fees_cents >= 0),
		total_amount_cents    BIGINT NOT NULL CHECK (total_amount_cents >= 0),
		payment_status        TEXT NOT NULL DEFAULT 'pending',
		notes                 TEXT NOT NULL DEFAULT '',
		created_at            TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at            TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT orders_order_number_key UNIQUE (order_number)
	)`,
	`CREATE INDEX IF NOT EXISTS orders_customer_ix ON orders (customer_id, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS orders_status_ix ON orders (status, rental_end)`,

	`CREATE TABLE IF NOT EXISTS order_items (
		id               SERIAL PRIMARY KEY,
		order_id         INTEGER NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
		product_id       INTEGER NOT NULL REFERENCES products(id),
		quantity         INTEGER NOT NULL CHECK (quantity >= 1),
		unit_price_cents BIGINT NOT NULL CHECK (unit_price_cents >= 0),
		total_price_cents BIGINT NOT NULL CHECK (total_price_cents >= 0),
		rental_start     TIMESTAMPTZ NOT NULL,
		rental_end       TIMESTAMPTZ NOT NULL CHECK (rental_end > rental_start),
		pricing_type     TEXT NOT NULL,
		pricing_rule_id  INTEGER REFERENCES pricing_rules(id)
	)`,
	`CREATE INDEX IF NOT EXISTS order_items_order_ix ON order_items (order_id)`,

	`CREATE TABLE IF NOT EXISTS reservations (
		id            SERIAL PRIMARY KEY,
		unit_id       INTEGER NOT NULL REFERENCES inventory_units(id),
		order_id      INTEGER NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
		order_item_id INTEGER NOT NULL REFERENCES order_items(id) ON DELETE CASCADE,
		start_at      TIMESTAMPTZ NOT NULL,
		end_at        TIMESTAMPTZ NOT NULL CHECK (end_at > start_at),
		status        TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active', 'released')),
		released_at   TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS reservations_unit_ix ON reservations (unit_id, start_at) WHERE status = 'active'`,
	`CREATE INDEX IF NOT EXISTS reservations_order_ix ON reservations (order_id)`,
}

// Migrate creates or updates the schema.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range migrations {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	logger.InfoContext(ctx, "Database schema is up to date", "statements", len(migrations))
	return nil
}
