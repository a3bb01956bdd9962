//go:build integration

package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"gearhire-backend/internal/domain"
	"gearhire-backend/internal/inventory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// prepareDB connects to TEST_DATABASE_URL and applies the schema.
func prepareDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	db, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	// Retry connection as DB might still be starting up
	for i := 0; i < 10; i++ {
		if err = db.Ping(); err == nil {
			break
		}
		time.Sleep(time.Second)
	}
	require.NoError(t, err)
	require.NoError(t, Migrate(context.Background(), db))
	return db
}

func TestOrderRepository_ConcurrentLastUnit_Integration(t *testing.T) {
	db := prepareDB(t)
	ctx := context.Background()
	suffix := time.Now().UnixNano()

	users := NewUserRepository(db)
	customers := make([]*domain.User, 2)
	for i := range customers {
		customers[i] = &domain.User{
			Email:        fmt.Sprintf("race-%d-%d@test.local", suffix, i),
			PasswordHash: "x",
			Name:         "Racer",
			Role:         domain.RoleCustomer,
			IsActive:     true,
		}
		require.NoError(t, users.Create(ctx, customers[i]))
	}

	category := &domain.Category{Name: fmt.Sprintf("Race %d", suffix), IsActive: true}
	require.NoError(t, NewCategoryRepository(db).Create(ctx, category))

	product := &domain.Product{
		Name:                 "Last Unit Lift",
		SKU:                  fmt.Sprintf("RACE-%d", suffix),
		CategoryID:           category.ID,
		Condition:            domain.ConditionGood,
		MinRentalPeriodHours: 24,
		MaxRentalPeriodHours: 720,
		IsActive:             true,
		InventoryUnits:       []domain.InventoryUnit{{SerialNumber: fmt.Sprintf("RACE-SN-%d", suffix), Condition: domain.ConditionGood, IsAvailable: true}},
		PricingRules:         []domain.PricingRule{{PricingType: domain.PricingDaily, BasePriceCents: 10000, MinQuantity: 1, IsActive: true}},
	}
	require.NoError(t, NewProductRepository(db).Create(ctx, product))

	orders := NewOrderRepository(db)
	start := time.Now().Add(72 * time.Hour).UTC().Truncate(time.Hour)
	end := start.Add(48 * time.Hour)

	var wg sync.WaitGroup
	results := make([]error, len(customers))
	ready := make(chan struct{})
	for i, c := range customers {
		wg.Add(1)
		go func(i int, c *domain.User) {
			defer wg.Done()
			now := time.Now().UTC()
			o := &domain.Order{
				OrderNumber:    fmt.Sprintf("ORD-RACE-%d-%d", suffix, i),
				CustomerID:     c.ID,
				Status:         domain.OrderStatusPending,
				DeliveryMethod: domain.DeliveryPickup,
				PaymentStatus:  domain.PaymentStatusPending,
				Items: []domain.OrderItem{{
					ProductID: product.ID, Quantity: 1, UnitPriceCents: 20000, TotalPriceCents: 20000,
					RentalStart: start, RentalEnd: end, PricingType: domain.PricingDaily, PricingRuleID: product.PricingRules[0].ID,
				}},
				CreatedAt: now,
				UpdatedAt: now,
			}
			o.RecalculateTotals()
			<-ready
			results[i] = orders.Create(ctx, o, inventory.Allocate)
		}(i, c)
	}
	close(ready)
	wg.Wait()

	succeeded := 0
	for _, err := range results {
		if err == nil {
			succeeded++
			continue
		}
		var short *domain.InsufficientInventoryError
		assert.ErrorAs(t, err, &short)
	}
	assert.Equal(t, 1, succeeded)

	booked, err := NewProductRepository(db).ListReservations(ctx, product.ID, start, end)
	require.NoError(t, err)
	assert.Len(t, booked, 1)
}
