package postgres

import (
	"context"
	"testing"
	"time"

	"gearhire-backend/internal/domain"
	"gearhire-backend/internal/repository"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	productRowColumns = []string{"id", "name", "description", "category_id", "sku", "condition", "replacement_value_cents",
		"requires_deposit", "deposit_amount_cents", "min_rental_hours", "max_rental_hours", "advance_booking_days",
		"late_fee_per_day_cents", "is_active", "created_at", "updated_at"}
	unitRowColumns = []string{"id", "product_id", "serial_number", "condition", "is_available", "location", "last_maintenance_at", "next_maintenance_at"}
	ruleRowColumns = []string{"id", "product_id", "name", "pricing_type", "base_price_cents", "min_quantity", "max_quantity", "customer_type", "valid_from", "valid_to", "is_active"}
)

func TestProductRepository_GetByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewProductRepository(db)
	now := time.Now()

	mock.ExpectQuery("SELECT (.+) FROM products p WHERE p.id = \\$1").
		WithArgs(int32(10)).
		WillReturnRows(sqlmock.NewRows(productRowColumns).
			AddRow(10, "Excavator", "Mini excavator", 2, "EXC-1", "good", 5000000, true, 50000, 4, 720, 30, 2500, true, now, now))
	mock.ExpectQuery("SELECT (.+) FROM inventory_units WHERE product_id = ANY").
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(unitRowColumns).
			AddRow(100, 10, "SN-1", "excellent", true, "Yard A", nil, nil).
			AddRow(101, 10, "SN-2", "fair", false, "Yard B", now, now.Add(48*time.Hour)))
	mock.ExpectQuery("SELECT (.+) FROM pricing_rules WHERE product_id = ANY").
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(ruleRowColumns).
			AddRow(1, 10, "Daily", "daily", 15000, 1, 0, "", nil, nil, true))

	p, err := repo.GetByID(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, "EXC-1", p.SKU)
	assert.Equal(t, domain.ConditionGood, p.Condition)
	require.Len(t, p.InventoryUnits, 2)
	assert.Equal(t, 1, p.AvailableCount())
	assert.Equal(t, 2, p.TotalCount())
	require.NotNil(t, p.InventoryUnits[1].NextMaintenanceAt)
	require.Len(t, p.PricingRules, 1)
	assert.Equal(t, domain.PricingDaily, p.PricingRules[0].PricingType)
	assert.Equal(t, int64(15000), p.PricingRules[0].BasePriceCents)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_List(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewProductRepository(db)
	now := time.Now()

	filter := repository.ProductFilter{
		Page:          2,
		Limit:         5,
		CategoryID:    3,
		Search:        "drill",
		SortBy:        "price",
		SortOrder:     "asc",
		MaxPriceCents: 9000,
	}

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM products p WHERE p.is_active AND p.category_id = \\$1 AND \\(p.name ILIKE \\$2").
		WithArgs(int32(3), "%drill%", int64(9000)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(6))
	mock.ExpectQuery("SELECT (.+) FROM products p WHERE (.+) ORDER BY \\(SELECT MIN(.+) ASC NULLS LAST, p.id LIMIT \\$4 OFFSET \\$5").
		WithArgs(int32(3), "%drill%", int64(9000), 5, 5).
		WillReturnRows(sqlmock.NewRows(productRowColumns).
			AddRow(12, "Drill", "", 3, "DRL-1", "good", 10000, false, 0, 1, 168, 0, 0, true, now, now))
	mock.ExpectQuery("SELECT (.+) FROM inventory_units").
		WillReturnRows(sqlmock.NewRows(unitRowColumns))
	mock.ExpectQuery("SELECT (.+) FROM pricing_rules").
		WillReturnRows(sqlmock.NewRows(ruleRowColumns))

	products, total, err := repo.List(context.Background(), filter)
	require.NoError(t, err)
	assert.Equal(t, 6, total)
	require.Len(t, products, 1)
	assert.Equal(t, int32(12), products[0].ID)
	assert.NotNil(t, products[0].InventoryUnits)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductOrder(t *testing.T) {
	assert.Equal(t, "p.name ASC, p.id", productOrder("name", "ASC"))
	assert.Equal(t, "p.created_at DESC, p.id", productOrder("", ""))
	assert.Equal(t, "p.created_at DESC, p.id", productOrder("id; DROP TABLE products", "asc; --"))
}

func TestProductRepository_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewProductRepository(db)
	p := &domain.Product{
		Name:                 "Generator",
		SKU:                  "GEN-5",
		CategoryID:           1,
		Condition:            domain.ConditionGood,
		MinRentalPeriodHours: 4,
		MaxRentalPeriodHours: 720,
		IsActive:             true,
		InventoryUnits: []domain.InventoryUnit{
			{SerialNumber: "G-1", Condition: domain.ConditionExcellent, IsAvailable: true},
		},
		PricingRules: []domain.PricingRule{
			{Name: "Daily", PricingType: domain.PricingDaily, BasePriceCents: 9000, MinQuantity: 1, IsActive: true},
		},
	}

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO products").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(44))
	mock.ExpectQuery("INSERT INTO inventory_units").
		WithArgs(int32(44), "G-1", "excellent", true, "", nil, nil).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(400))
	mock.ExpectQuery("INSERT INTO pricing_rules").
		WithArgs(int32(44), "Daily", "daily", int64(9000), 1, 0, "", nil, nil, true).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	mock.ExpectCommit()

	require.NoError(t, repo.Create(context.Background(), p))
	assert.Equal(t, int32(44), p.ID)
	assert.Equal(t, int32(400), p.InventoryUnits[0].ID)
	assert.Equal(t, int32(44), p.InventoryUnits[0].ProductID)
	assert.Equal(t, int32(7), p.PricingRules[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_CreateDuplicateSKU(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewProductRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO products").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "products_sku_key"})
	mock.ExpectRollback()

	err = repo.Create(context.Background(), &domain.Product{Name: "Saw", SKU: "SAW-1", CategoryID: 1, Condition: domain.ConditionGood})
	var conflict *domain.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Contains(t, conflict.Message, "SKU")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_ListReservations(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewProductRepository(db)
	start := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(48 * time.Hour)

	mock.ExpectQuery("SELECT (.+) FROM reservations r JOIN inventory_units u").
		WithArgs(int32(10), start, end).
		WillReturnRows(sqlmock.NewRows([]string{"id", "unit_id", "order_id", "order_item_id", "start_at", "end_at", "status"}).
			AddRow(1, 100, 5, 9, start, end, "active"))

	res, err := repo.ListReservations(context.Background(), 10, start, end)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, domain.ReservationActive, res[0].Status)
	assert.Equal(t, int32(100), res[0].UnitID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
