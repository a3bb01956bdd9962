package service

import (
	"context"
	"fmt"
	"strings"

	"gearhire-backend/internal/domain"
	"gearhire-backend/internal/logger"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// mailSender is the part of the SendGrid client the email service uses.
type mailSender interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

type emailService struct {
	client    mailSender
	fromEmail string
	fromName  string
	currency  string
}

// NewEmailService sends through SendGrid. With an empty apiKey messages are
// logged and dropped.
func NewEmailService(apiKey, fromEmail, fromName, currency string) EmailService {
	s := &emailService{fromEmail: fromEmail, fromName: fromName, currency: currency}
	if apiKey != "" {
		s.client = sendgrid.NewSendClient(apiKey)
	}
	return s
}

func (s *emailService) SendOrderConfirmation(ctx context.Context, customer *domain.User, order *domain.Order) error {
	subject := fmt.Sprintf("Order %s received", order.OrderNumber)

	var b strings.Builder
	fmt.Fprintf(&b, "Hello %s,\n\nThank you for your order %s.\n\n", customer.Name, order.OrderNumber)
	for _, it := range order.Items {
		fmt.Fprintf(&b, "- %d x %s, %s to %s (%s): %s\n", it.Quantity, itemLabel(it),
			it.RentalStart.Format("2006-01-02 15:04"), it.RentalEnd.Format("2006-01-02 15:04"),
			it.PricingType, s.money(it.TotalPriceCents))
	}
	fmt.Fprintf(&b, "\nSubtotal: %s\n", s.money(order.SubtotalCents))
	if order.DiscountAmountCents > 0 {
		fmt.Fprintf(&b, "Discount: -%s\n", s.money(order.DiscountAmountCents))
	}
	fmt.Fprintf(&b, "Tax: %s\n", s.money(order.TaxAmountCents))
	if order.DeliveryChargeCents > 0 {
		fmt.Fprintf(&b, "Delivery: %s\n", s.money(order.DeliveryChargeCents))
	}
	fmt.Fprintf(&b, "Total: %s\n", s.money(order.TotalAmountCents))
	if order.DepositAmountCents > 0 {
		fmt.Fprintf(&b, "Refundable deposit: %s\n", s.money(order.DepositAmountCents))
	}
	b.WriteString("\nWe will let you know when your order is confirmed.\n\nThe GearHire Team")

	return s.send(ctx, customer, subject, b.String())
}

func (s *emailService) SendOrderStatusChange(ctx context.Context, customer *domain.User, order *domain.Order) error {
	subject := fmt.Sprintf("Order %s is now %s", order.OrderNumber, order.Status)
	body := fmt.Sprintf("Hello %s,\n\nThe status of your order %s has changed to: %s.\n\nThe GearHire Team",
		customer.Name, order.OrderNumber, order.Status)
	return s.send(ctx, customer, subject, body)
}

func (s *emailService) SendReturnReminder(ctx context.Context, customer *domain.User, order *domain.Order) error {
	subject := fmt.Sprintf("Return reminder for order %s", order.OrderNumber)
	body := fmt.Sprintf("Hello %s,\n\nYour rental for order %s ends on %s UTC. Please return the equipment on time; late returns are charged per day.\n\nThe GearHire Team",
		customer.Name, order.OrderNumber, order.RentalEnd.UTC().Format("2006-01-02 15:04"))
	return s.send(ctx, customer, subject, body)
}

func (s *emailService) send(ctx context.Context, to *domain.User, subject, plainText string) error {
	if s.client == nil {
		logger.InfoContext(ctx, "Email delivery disabled, dropping message", "to", to.Email, "subject", subject)
		return nil
	}

	from := mail.NewEmail(s.fromName, s.fromEmail)
	recipient := mail.NewEmail(to.Name, to.Email)
	message := mail.NewSingleEmailPlainText(from, subject, recipient, plainText)

	logger.ExternalServiceCall(ctx, "sendgrid", "send", "to", to.Email, "subject", subject)
	response, err := s.client.SendWithContext(ctx, message)
	if err == nil && response.StatusCode >= 400 {
		err = fmt.Errorf("sendgrid error: status %d, body: %s", response.StatusCode, response.Body)
	}
	logger.ExternalServiceResult(ctx, "sendgrid", "send", err)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

func (s *emailService) money(cents int64) string {
	sign := ""
	if cents < 0 {
		sign, cents = "-", -cents
	}
	return fmt.Sprintf("%s%d.%02d %s", sign, cents/100, cents%100, s.currency)
}

func itemLabel(it domain.OrderItem) string {
	if it.ProductName != "" {
		return it.ProductName
	}
	return fmt.Sprintf("product #%d", it.ProductID)
}
