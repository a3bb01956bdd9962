package service

import (
	"context"
	"testing"
	"time"

	"gearhire-backend/internal/domain"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	sent   []*mail.SGMailV3
	status int
	err    error
}

func (f *fakeSender) SendWithContext(_ context.Context, m *mail.SGMailV3) (*rest.Response, error) {
	f.sent = append(f.sent, m)
	if f.err != nil {
		return nil, f.err
	}
	return &rest.Response{StatusCode: f.status, Body: "{}"}, nil
}

func sampleOrder() *domain.Order {
	end := time.Date(2026, 6, 4, 9, 0, 0, 0, time.UTC)
	return &domain.Order{
		ID:          1,
		OrderNumber: "ORD-20260601100000-000001-abcd",
		Status:      domain.OrderStatusConfirmed,
		RentalEnd:   end,
		Items: []domain.OrderItem{{
			ProductID: 10, ProductName: "Excavator", Quantity: 1, PricingType: domain.PricingDaily,
			RentalStart: end.Add(-72 * time.Hour), RentalEnd: end, TotalPriceCents: 45000,
		}},
		SubtotalCents:      45000,
		TaxAmountCents:     3600,
		DepositAmountCents: 50000,
		TotalAmountCents:   48600,
	}
}

func TestEmailService_SendOrderConfirmation(t *testing.T) {
	ctx := context.Background()
	sender := &fakeSender{status: 202}
	svc := &emailService{client: sender, fromEmail: "orders@gearhire.test", fromName: "GearHire", currency: "USD"}
	customer := &domain.User{Name: "Cust", Email: "c@test.com"}

	require.NoError(t, svc.SendOrderConfirmation(ctx, customer, sampleOrder()))
	require.Len(t, sender.sent, 1)

	m := sender.sent[0]
	assert.Equal(t, "Order ORD-20260601100000-000001-abcd received", m.Subject)
	assert.Equal(t, "orders@gearhire.test", m.From.Address)
	require.Len(t, m.Personalizations, 1)
	assert.Equal(t, "c@test.com", m.Personalizations[0].To[0].Address)
	require.Len(t, m.Content, 1)
	assert.Contains(t, m.Content[0].Value, "1 x Excavator")
	assert.Contains(t, m.Content[0].Value, "Total: 486.00 USD")
	assert.Contains(t, m.Content[0].Value, "Refundable deposit: 500.00 USD")
}

func TestEmailService_ErrorStatus(t *testing.T) {
	svc := &emailService{client: &fakeSender{status: 401}, currency: "USD"}
	err := svc.SendReturnReminder(context.Background(), &domain.User{Email: "c@test.com"}, sampleOrder())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
}

func TestEmailService_DisabledDropsMessages(t *testing.T) {
	svc := NewEmailService("", "orders@gearhire.test", "GearHire", "USD")
	assert.NoError(t, svc.SendOrderStatusChange(context.Background(), &domain.User{Email: "c@test.com"}, sampleOrder()))
}

func TestEmailService_Money(t *testing.T) {
	svc := &emailService{currency: "EUR"}
	assert.Equal(t, "12.05 EUR", svc.money(1205))
	assert.Equal(t, "-0.50 EUR", svc.money(-50))
}
