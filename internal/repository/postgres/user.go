package postgres

import (
	"context"
	"database/sql"
	"time"

	"gearhire-backend/internal/domain"
	"gearhire-backend/internal/logger"
	"gearhire-backend/internal/repository"
)

const userColumns = `id, email, password_hash, name, phone, customer_type, role, is_active, email_verified, last_login_at, created_at, updated_at`

type userRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) repository.UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, u *domain.User) error {
	query := `INSERT INTO users (email, password_hash, name, phone, customer_type, role, is_active, email_verified, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING id`
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now
	if u.Role == "" {
		u.Role = domain.RoleCustomer
	}

	logger.DatabaseCall(ctx, "users.create", "email", u.Email)
	err := r.db.QueryRowContext(ctx, query,
		u.Email, u.PasswordHash, u.Name, u.Phone, u.CustomerType, u.Role, u.IsActive, u.EmailVerified, u.CreatedAt, u.UpdatedAt,
	).Scan(&u.ID)
	logger.DatabaseResult(ctx, "users.create", 1, err)
	return mapError(err, nil)
}

func (r *userRepository) GetByID(ctx context.Context, id int32) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	var u *domain.User
	err := withRetry(ctx, "users.get_by_id", func() error {
		var err error
		u, err = scanUser(r.db.QueryRowContext(ctx, query, id))
		return err
	})
	if err != nil {
		return nil, mapError(err, &domain.NotFoundError{Resource: "user", ID: id})
	}
	return u, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE LOWER(email) = LOWER($1)`
	var u *domain.User
	err := withRetry(ctx, "users.get_by_email", func() error {
		var err error
		u, err = scanUser(r.db.QueryRowContext(ctx, query, email))
		return err
	})
	if err != nil {
		return nil, mapError(err, &domain.NotFoundError{Resource: "user", ID: email})
	}
	return u, nil
}

func (r *userRepository) UpdateLastLogin(ctx context.Context, id int32, at time.Time) error {
	query := `UPDATE users SET last_login_at = $1, updated_at = $1 WHERE id = $2`
	res, err := r.db.ExecContext(ctx, query, at, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &domain.NotFoundError{Resource: "user", ID: id}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*domain.User, error) {
	u := &domain.User{}
	var lastLogin sql.NullTime
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.Phone, &u.CustomerType, &u.Role,
		&u.IsActive, &u.EmailVerified, &lastLogin, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if lastLogin.Valid {
		t := lastLogin.Time
		u.LastLoginAt = &t
	}
	return u, nil
}
