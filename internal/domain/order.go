package domain

import "time"

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusConfirmed  OrderStatus = "confirmed"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCompleted  OrderStatus = "completed"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// orderTransitions is the order lifecycle. Completed and cancelled are terminal.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusConfirmed, OrderStatusCancelled},
	OrderStatusConfirmed:  {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusProcessing: {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:    {OrderStatusDelivered, OrderStatusCancelled},
	OrderStatusDelivered:  {OrderStatusCompleted, OrderStatusCancelled},
}

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusProcessing, OrderStatusShipped,
		OrderStatusDelivered, OrderStatusCompleted, OrderStatusCancelled:
		return true
	}
	return false
}

func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}

func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// ReleasesInventory reports whether entering this status frees the order's
// reserved units.
func (s OrderStatus) ReleasesInventory() bool {
	return s.IsTerminal()
}

type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "pending"
	PaymentStatusProcessing PaymentStatus = "processing"
	PaymentStatusCompleted  PaymentStatus = "completed"
	PaymentStatusFailed     PaymentStatus = "failed"
	PaymentStatusRefunded   PaymentStatus = "refunded"
)

type DeliveryMethod string

const (
	DeliveryPickup   DeliveryMethod = "pickup"
	DeliveryDelivery DeliveryMethod = "delivery"
)

func (m DeliveryMethod) Valid() bool {
	return m == DeliveryPickup || m == DeliveryDelivery
}

type Address struct {
	Street     string `json:"street"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

func (a Address) IsZero() bool {
	return a == Address{}
}

type OrderItem struct {
	ID              int32       `json:"id"`
	OrderID         int32       `json:"orderId"`
	ProductID       int32       `json:"productId"`
	ProductName     string      `json:"productName,omitempty"`
	Quantity        int         `json:"quantity"`
	UnitPriceCents  int64       `json:"unitPriceCents"`
	TotalPriceCents int64       `json:"totalPriceCents"`
	RentalStart     time.Time   `json:"rentalStart"`
	RentalEnd       time.Time   `json:"rentalEnd"`
	PricingType     PricingType `json:"pricingType"`
	PricingRuleID   int32       `json:"pricingRuleId"`
	UnitIDs         []int32     `json:"unitIds,omitempty"`
}

type Order struct {
	ID                  int32          `json:"id"`
	OrderNumber         string         `json:"orderNumber"`
	CustomerID          int32          `json:"customerId"`
	StaffID             *int32         `json:"staffId,omitempty"`
	Status              OrderStatus    `json:"status"`
	Items               []OrderItem    `json:"items"`
	BillingAddress      Address        `json:"billingAddress"`
	DeliveryAddress     *Address       `json:"deliveryAddress,omitempty"`
	DeliveryMethod      DeliveryMethod `json:"deliveryMethod"`
	PaymentMethod       string         `json:"paymentMethod"`
	RentalStart         time.Time      `json:"rentalStart"`
	RentalEnd           time.Time      `json:"rentalEnd"`
	SubtotalCents       int64          `json:"subtotalCents"`
	TaxAmountCents      int64          `json:"taxAmountCents"`
	DiscountAmountCents int64          `json:"discountAmountCents"`
	DeliveryChargeCents int64          `json:"deliveryChargeCents"`
	DepositAmountCents  int64          `json:"depositAmountCents"`
	LateFeesCents       int64          `json:"lateFeesCents"`
	TotalAmountCents    int64          `json:"totalAmountCents"`
	// AmountDueCents is TotalAmountCents plus late fees. Derived, not stored.
	AmountDueCents      int64          `json:"amountDueCents"`
	PaymentStatus       PaymentStatus  `json:"paymentStatus"`
	Notes               string         `json:"notes,omitempty"`
	CreatedAt           time.Time      `json:"createdAt"`
	UpdatedAt           time.Time      `json:"updatedAt"`
}

// RecalculateTotals derives subtotal, rental window and total from the items
// and charges already set on the order. The total is
// max(0, subtotal + tax + delivery - discount); late fees and the deposit are
// kept out of it and late fees only enter AmountDueCents.
func (o *Order) RecalculateTotals() {
	var subtotal int64
	for i, it := range o.Items {
		if i == 0 || it.RentalStart.Before(o.RentalStart) {
			o.RentalStart = it.RentalStart
		}
		if i == 0 || it.RentalEnd.After(o.RentalEnd) {
			o.RentalEnd = it.RentalEnd
		}
		subtotal += it.TotalPriceCents
	}
	o.SubtotalCents = subtotal

	total := o.SubtotalCents + o.TaxAmountCents + o.DeliveryChargeCents - o.DiscountAmountCents
	if total < 0 {
		total = 0
	}
	o.TotalAmountCents = total
	o.AmountDueCents = total + o.LateFeesCents
}

// ProductIDs returns the distinct product ids referenced by the items.
func (o *Order) ProductIDs() []int32 {
	seen := make(map[int32]bool, len(o.Items))
	ids := make([]int32, 0, len(o.Items))
	for _, it := range o.Items {
		if !seen[it.ProductID] {
			seen[it.ProductID] = true
			ids = append(ids, it.ProductID)
		}
	}
	return ids
}
