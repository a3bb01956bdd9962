package postgres

import (
	"context"
	"database/sql"
	"time"

	"gearhire-backend/internal/domain"
	"gearhire-backend/internal/repository"
)

type categoryRepository struct {
	db *sql.DB
}

func NewCategoryRepository(db *sql.DB) repository.CategoryRepository {
	return &categoryRepository{db: db}
}

func (r *categoryRepository) Create(ctx context.Context, c *domain.Category) error {
	query := `INSERT INTO categories (name, description, parent_id, is_active, sort_order, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
	c.CreatedAt = time.Now().UTC()
	var parent sql.NullInt32
	if c.ParentID != nil {
		parent = sql.NullInt32{Int32: *c.ParentID, Valid: true}
	}
	err := r.db.QueryRowContext(ctx, query, c.Name, c.Description, parent, c.IsActive, c.SortOrder, c.CreatedAt).Scan(&c.ID)
	return mapError(err, nil)
}

func (r *categoryRepository) GetByID(ctx context.Context, id int32) (*domain.Category, error) {
	query := `SELECT id, name, description, parent_id, is_active, sort_order, created_at FROM categories WHERE id = $1`
	var c *domain.Category
	err := withRetry(ctx, "categories.get_by_id", func() error {
		var err error
		c, err = scanCategory(r.db.QueryRowContext(ctx, query, id))
		return err
	})
	if err != nil {
		return nil, mapError(err, &domain.NotFoundError{Resource: "category", ID: id})
	}
	return c, nil
}

func (r *categoryRepository) List(ctx context.Context, activeOnly bool) ([]domain.Category, error) {
	query := `SELECT id, name, description, parent_id, is_active, sort_order, created_at FROM categories`
	if activeOnly {
		query += ` WHERE is_active`
	}
	query += ` ORDER BY sort_order, name`

	var categories []domain.Category
	err := withRetry(ctx, "categories.list", func() error {
		categories = categories[:0]
		rows, err := r.db.QueryContext(ctx, query)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			c, err := scanCategory(rows)
			if err != nil {
				return err
			}
			categories = append(categories, *c)
		}
		return rows.Err()
	})
	return categories, err
}

func scanCategory(row rowScanner) (*domain.Category, error) {
	c := &domain.Category{}
	var parent sql.NullInt32
	if err := row.Scan(&c.ID, &c.Name, &c.Description, &parent, &c.IsActive, &c.SortOrder, &c.CreatedAt); err != nil {
		return nil, err
	}
	if parent.Valid {
		id := parent.Int32
		c.ParentID = &id
	}
	return c, nil
}
