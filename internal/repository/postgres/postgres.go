package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"time"

	"gearhire-backend/internal/domain"
	"gearhire-backend/internal/logger"
	"gearhire-backend/internal/repository"

	"github.com/lib/pq"
)

const (
	readAttempts    = 3
	readBackoffBase = 50 * time.Millisecond
)

type Store struct {
	db *sql.DB
	repository.UserRepository
	repository.CategoryRepository
	repository.ProductRepository
	repository.OrderRepository
}

func NewStore(db *sql.DB) *Store {
	return &Store{
		db:                 db,
		UserRepository:     NewUserRepository(db),
		CategoryRepository: NewCategoryRepository(db),
		ProductRepository:  NewProductRepository(db),
		OrderRepository:    NewOrderRepository(db),
	}
}

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type TxFunc func(*sql.Tx) error

// WithTx runs fn in a transaction. It commits when fn returns nil and rolls
// back otherwise, returning fn's error unchanged so callers can match domain
// errors. A panic in fn rolls back and is re-raised.
func WithTx(ctx context.Context, db *sql.DB, fn TxFunc) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			logger.ErrorContext(ctx, "Failed to roll back transaction", "error", rbErr, "cause", err)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// withRetry retries read-only work on transient connection failures with
// exponential backoff. Writes must not go through here.
func withRetry(ctx context.Context, operation string, fn func() error) error {
	var err error
	for attempt := 0; attempt < readAttempts; attempt++ {
		if err = fn(); err == nil || !isTransient(err) {
			return err
		}
		logger.WarnContext(ctx, "Transient database error, retrying", "operation", operation, "attempt", attempt+1, "error", err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(readBackoffBase << attempt):
		}
	}
	return err
}

func isTransient(err error) bool {
	if errors.Is(err, driver.ErrBadConn) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		// Class 08: connection exception. 57P01..57P03: server shutting down.
		return pqErr.Code.Class() == "08" || pqErr.Code == "57P01" || pqErr.Code == "57P02" || pqErr.Code == "57P03"
	}
	return false
}

const uniqueViolation = "23505"

// constraintMessages maps unique constraints to client-facing conflict text.
var constraintMessages = map[string]string{
	"users_email_key":           "email is already registered",
	"products_sku_key":          "a product with this SKU already exists",
	"categories_active_name_ix": "a category with this name already exists",
	"inventory_units_serial_ix": "duplicate serial number for this product",
}

// mapError converts driver errors into domain errors. notFound describes the
// entity for sql.ErrNoRows.
func mapError(err error, notFound *domain.NotFoundError) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) && notFound != nil {
		return notFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		if pqErr.Constraint == "orders_order_number_key" {
			return domain.ErrDuplicateOrderNumber
		}
		if msg, ok := constraintMessages[pqErr.Constraint]; ok {
			return &domain.ConflictError{Message: msg}
		}
		return &domain.ConflictError{Message: "resource already exists"}
	}
	return err
}

func offset(page, limit int) int {
	if page < 1 {
		page = 1
	}
	return (page - 1) * limit
}
