package service

import (
	"context"
	"time"

	"gearhire-backend/internal/domain"
	"gearhire-backend/internal/inventory"
	"gearhire-backend/internal/logger"
	"gearhire-backend/internal/pricing"
	"gearhire-backend/internal/repository"
)

const (
	DefaultPageSize = 12
	MaxPageSize     = 100
)

type catalogService struct {
	productRepo  repository.ProductRepository
	categoryRepo repository.CategoryRepository
	now          func() time.Time
}

func NewCatalogService(productRepo repository.ProductRepository, categoryRepo repository.CategoryRepository) CatalogService {
	return &catalogService{
		productRepo:  productRepo,
		categoryRepo: categoryRepo,
		now:          time.Now,
	}
}

// NormalizePage clamps page and limit to their allowed ranges.
func NormalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	return page, limit
}

func (s *catalogService) ListProducts(ctx context.Context, f repository.ProductFilter) ([]domain.Product, int, error) {
	f.Page, f.Limit = NormalizePage(f.Page, f.Limit)

	v := domain.NewValidationError("invalid product filter")
	switch f.SortBy {
	case "", "name", "createdAt", "price":
	default:
		v.WithField("sortBy", "must be one of name, createdAt, price")
	}
	switch f.SortOrder {
	case "", "asc", "desc":
	default:
		v.WithField("sortOrder", "must be asc or desc")
	}
	if f.Condition != "" && !f.Condition.Valid() {
		v.WithField("condition", "must be one of excellent, good, fair, poor")
	}
	if f.MinPriceCents < 0 || f.MaxPriceCents < 0 {
		v.WithField("price", "must not be negative")
	}
	if f.MaxPriceCents > 0 && f.MinPriceCents > f.MaxPriceCents {
		v.WithField("maxPrice", "must not be less than minPrice")
	}
	if v.HasFields() {
		return nil, 0, v
	}

	return s.productRepo.List(ctx, f)
}

func (s *catalogService) GetProduct(ctx context.Context, id int32, includeHidden bool) (*domain.Product, error) {
	p, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.IsActive && !includeHidden {
		return nil, &domain.NotFoundError{Resource: "product", ID: id}
	}
	return p, nil
}

func (s *catalogService) CreateProduct(ctx context.Context, p *domain.Product) error {
	logger.EnterMethod(ctx, "catalogService.CreateProduct", "sku", p.SKU)

	p.Normalize()
	if err := p.Validate(); err != nil {
		return err
	}
	if _, err := s.categoryRepo.GetByID(ctx, p.CategoryID); err != nil {
		if isNotFound(err) {
			return domain.NewValidationError("invalid product").WithField("categoryId", "category does not exist")
		}
		return err
	}

	if err := s.productRepo.Create(ctx, p); err != nil {
		logger.ExitMethodWithError(ctx, "catalogService.CreateProduct", err)
		return err
	}
	logger.InfoContext(ctx, "Product created", "product_id", p.ID, "sku", p.SKU, "units", p.TotalCount())
	return nil
}

func (s *catalogService) ListCategories(ctx context.Context) ([]domain.Category, error) {
	categories, err := s.categoryRepo.List(ctx, true)
	if err != nil {
		return nil, err
	}
	if categories == nil {
		categories = []domain.Category{}
	}
	return categories, nil
}

func (s *catalogService) CreateCategory(ctx context.Context, c *domain.Category) error {
	c.Normalize()
	if err := c.Validate(); err != nil {
		return err
	}
	if c.ParentID != nil {
		if _, err := s.categoryRepo.GetByID(ctx, *c.ParentID); err != nil {
			if isNotFound(err) {
				return domain.NewValidationError("invalid category").WithField("parentId", "parent category does not exist")
			}
			return err
		}
	}
	return s.categoryRepo.Create(ctx, c)
}

// CheckAvailability counts the units free for [start, end) and, when a
// pricing rule resolves, quotes one unit for the interval.
func (s *catalogService) CheckAvailability(ctx context.Context, productID int32, start, end time.Time, customerType string) (*Availability, error) {
	if !end.After(start) {
		return nil, domain.NewValidationError("invalid interval").WithField("end", "must be after start")
	}

	p, err := s.GetProduct(ctx, productID, false)
	if err != nil {
		return nil, err
	}
	reservations, err := s.productRepo.ListReservations(ctx, productID, start, end)
	if err != nil {
		return nil, err
	}

	a := &Availability{
		ProductID:      productID,
		Start:          start,
		End:            end,
		AvailableCount: inventory.CountAvailable(p.InventoryUnits, reservations, start, end),
		TotalCount:     p.TotalCount(),
	}
	if q, err := pricing.QuoteItem(p, "", start, end, 1, customerType, s.now()); err == nil {
		a.PricingType = q.PricingType
		a.UnitPriceCents = q.UnitPriceCents
	}
	return a, nil
}
