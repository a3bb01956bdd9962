package pricing

import (
	"fmt"
	"sort"
	"time"

	"gearhire-backend/internal/domain"
)

// Unit lengths per pricing type. Months are 30 days and years 365 days.
const (
	hourLength  = time.Hour
	dayLength   = 24 * time.Hour
	weekLength  = 7 * dayLength
	monthLength = 30 * dayLength
	yearLength  = 365 * dayLength
)

// Quote is the priced result for a single cart line.
type Quote struct {
	Rule            *domain.PricingRule
	PricingType     domain.PricingType
	Units           int64
	UnitPriceCents  int64
	Quantity        int
	TotalPriceCents int64
}

// UnitLength returns the billing unit for a pricing type.
func UnitLength(t domain.PricingType) time.Duration {
	switch t {
	case domain.PricingHourly:
		return hourLength
	case domain.PricingDaily:
		return dayLength
	case domain.PricingWeekly:
		return weekLength
	case domain.PricingMonthly:
		return monthLength
	case domain.PricingYearly:
		return yearLength
	default:
		return 0
	}
}

// Units returns how many billing units of type t cover [start, end).
// Partial units round up and at least one unit is always charged.
func Units(start, end time.Time, t domain.PricingType) int64 {
	unit := UnitLength(t)
	if unit <= 0 {
		return 0
	}
	d := end.Sub(start)
	if d <= 0 {
		return 1
	}
	n := int64(d / unit)
	if d%unit != 0 {
		n++
	}
	if n < 1 {
		n = 1
	}
	return n
}

// Resolve picks the pricing rule for a product, pricing type, customer type and
// date. Candidates are active rules of the requested type whose customer type is
// unset or equal to the caller's and whose validity window contains asOf.
//
// Ties are broken by specificity (a rule targeting the caller's customer type
// beats a generic one), then by lowest base price, then by lowest rule id.
func Resolve(product *domain.Product, t domain.PricingType, customerType string, asOf time.Time) (*domain.PricingRule, error) {
	var candidates []*domain.PricingRule
	for i := range product.PricingRules {
		r := &product.PricingRules[i]
		if !r.IsActive || r.PricingType != t {
			continue
		}
		if r.CustomerType != "" && r.CustomerType != customerType {
			continue
		}
		if !r.AppliesAt(asOf) {
			continue
		}
		candidates = append(candidates, r)
	}

	if len(candidates) == 0 {
		return nil, &domain.PricingUnavailableError{ProductID: product.ID, PricingType: t, CustomerType: customerType}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		aSpecific := a.CustomerType != "" && a.CustomerType == customerType
		bSpecific := b.CustomerType != "" && b.CustomerType == customerType
		if aSpecific != bSpecific {
			return aSpecific
		}
		if a.BasePriceCents != b.BasePriceCents {
			return a.BasePriceCents < b.BasePriceCents
		}
		return a.ID < b.ID
	})

	return candidates[0], nil
}

// SelectPricingType chooses the pricing type for an interval when the caller
// did not name one: the coarsest type whose unit fits at least once in the
// interval and that resolves to a rule. If no unit fits, the finest resolvable
// type is used and one unit is charged.
func SelectPricingType(product *domain.Product, start, end time.Time, customerType string, asOf time.Time) (domain.PricingType, *domain.PricingRule, error) {
	d := end.Sub(start)
	for i := len(domain.PricingTypes) - 1; i >= 0; i-- {
		t := domain.PricingTypes[i]
		if d < UnitLength(t) {
			continue
		}
		if rule, err := Resolve(product, t, customerType, asOf); err == nil {
			return t, rule, nil
		}
	}
	for _, t := range domain.PricingTypes {
		if rule, err := Resolve(product, t, customerType, asOf); err == nil {
			return t, rule, nil
		}
	}
	return "", nil, &domain.PricingUnavailableError{ProductID: product.ID, CustomerType: customerType}
}

// QuoteItem prices quantity units of product over [start, end). An empty
// requested type lets SelectPricingType decide.
func QuoteItem(product *domain.Product, requested domain.PricingType, start, end time.Time, quantity int, customerType string, asOf time.Time) (*Quote, error) {
	var (
		t    domain.PricingType
		rule *domain.PricingRule
		err  error
	)
	if requested == "" {
		t, rule, err = SelectPricingType(product, start, end, customerType, asOf)
	} else {
		if !requested.Valid() {
			return nil, domain.NewValidationError("invalid pricing type").WithField("pricingType", fmt.Sprintf("unknown pricing type %q", requested))
		}
		t = requested
		rule, err = Resolve(product, requested, customerType, asOf)
	}
	if err != nil {
		return nil, err
	}

	if !rule.AcceptsQuantity(quantity) {
		msg := fmt.Sprintf("quantity must be at least %d", rule.MinQuantity)
		if rule.MaxQuantity > 0 {
			msg = fmt.Sprintf("quantity must be between %d and %d", rule.MinQuantity, rule.MaxQuantity)
		}
		return nil, domain.NewValidationError("quantity outside pricing rule limits").WithField("quantity", msg)
	}

	units := Units(start, end, t)
	unitPrice := rule.BasePriceCents * units
	return &Quote{
		Rule:            rule,
		PricingType:     t,
		Units:           units,
		UnitPriceCents:  unitPrice,
		Quantity:        quantity,
		TotalPriceCents: unitPrice * int64(quantity),
	}, nil
}

// Tax applies a rate in basis points, rounding half up.
func Tax(taxableCents int64, rateBps int64) int64 {
	if taxableCents <= 0 || rateBps <= 0 {
		return 0
	}
	return (taxableCents*rateBps + 5000) / 10000
}

// Deposit is the refundable hold for quantity units of product.
func Deposit(product *domain.Product, quantity int) int64 {
	if !product.RequiresDeposit {
		return 0
	}
	return product.DepositAmountCents * int64(quantity)
}

// OverdueDays counts started days between the rental end and asOf.
func OverdueDays(rentalEnd, asOf time.Time) int64 {
	if !asOf.After(rentalEnd) {
		return 0
	}
	return Units(rentalEnd, asOf, domain.PricingDaily)
}
