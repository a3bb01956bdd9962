package domain

import (
	"strconv"
	"strings"
	"time"
)

type Condition string

const (
	ConditionExcellent Condition = "excellent"
	ConditionGood      Condition = "good"
	ConditionFair      Condition = "fair"
	ConditionPoor      Condition = "poor"
)

var conditionRank = map[Condition]int{
	ConditionExcellent: 0,
	ConditionGood:      1,
	ConditionFair:      2,
	ConditionPoor:      3,
}

func (c Condition) Valid() bool {
	_, ok := conditionRank[c]
	return ok
}

// Rank orders conditions from best (0) to worst. Unknown conditions sort last.
func (c Condition) Rank() int {
	if r, ok := conditionRank[c]; ok {
		return r
	}
	return len(conditionRank)
}

type PricingType string

const (
	PricingHourly  PricingType = "hourly"
	PricingDaily   PricingType = "daily"
	PricingWeekly  PricingType = "weekly"
	PricingMonthly PricingType = "monthly"
	PricingYearly  PricingType = "yearly"
)

// PricingTypes lists every pricing type from finest to coarsest granularity.
var PricingTypes = []PricingType{PricingHourly, PricingDaily, PricingWeekly, PricingMonthly, PricingYearly}

func (p PricingType) Valid() bool {
	for _, t := range PricingTypes {
		if t == p {
			return true
		}
	}
	return false
}

type PricingRule struct {
	ID             int32       `json:"id"`
	ProductID      int32       `json:"productId"`
	Name           string      `json:"name"`
	PricingType    PricingType `json:"pricingType"`
	BasePriceCents int64       `json:"basePriceCents"`
	MinQuantity    int         `json:"minQuantity"`
	MaxQuantity    int         `json:"maxQuantity"` // 0 means unbounded
	CustomerType   string      `json:"customerType,omitempty"`
	ValidFrom      *time.Time  `json:"validFrom,omitempty"`
	ValidTo        *time.Time  `json:"validTo,omitempty"`
	IsActive       bool        `json:"isActive"`
}

// AppliesAt reports whether asOf falls inside the rule's validity window.
func (r *PricingRule) AppliesAt(asOf time.Time) bool {
	if r.ValidFrom != nil && asOf.Before(*r.ValidFrom) {
		return false
	}
	if r.ValidTo != nil && asOf.After(*r.ValidTo) {
		return false
	}
	return true
}

// AcceptsQuantity checks quantity against the rule's bounds.
func (r *PricingRule) AcceptsQuantity(quantity int) bool {
	if r.MinQuantity > 0 && quantity < r.MinQuantity {
		return false
	}
	if r.MaxQuantity > 0 && quantity > r.MaxQuantity {
		return false
	}
	return true
}

type InventoryUnit struct {
	ID                int32      `json:"id"`
	ProductID         int32      `json:"productId"`
	SerialNumber      string     `json:"serialNumber"`
	Condition         Condition  `json:"condition"`
	IsAvailable       bool       `json:"isAvailable"`
	Location          string     `json:"location"`
	LastMaintenanceAt *time.Time `json:"lastMaintenanceAt,omitempty"`
	NextMaintenanceAt *time.Time `json:"nextMaintenanceAt,omitempty"`
}

type Product struct {
	ID                    int32           `json:"id"`
	Name                  string          `json:"name"`
	Description           string          `json:"description"`
	CategoryID            int32           `json:"categoryId"`
	SKU                   string          `json:"sku"`
	Condition             Condition       `json:"condition"`
	ReplacementValueCents int64           `json:"replacementValueCents"`
	RequiresDeposit       bool            `json:"requiresDeposit"`
	DepositAmountCents    int64           `json:"depositAmountCents"`
	MinRentalPeriodHours  int             `json:"minRentalPeriodHours"`
	MaxRentalPeriodHours  int             `json:"maxRentalPeriodHours"`
	AdvanceBookingDays    int             `json:"advanceBookingDays"`
	LateFeePerDayCents    int64           `json:"lateFeePerDayCents"`
	IsActive              bool            `json:"isActive"`
	InventoryUnits        []InventoryUnit `json:"inventoryUnits"`
	PricingRules          []PricingRule   `json:"pricingRules"`
	CreatedAt             time.Time       `json:"createdAt"`
	UpdatedAt             time.Time       `json:"updatedAt"`
}

// AvailableCount is the number of units currently on hand.
func (p *Product) AvailableCount() int {
	n := 0
	for _, u := range p.InventoryUnits {
		if u.IsAvailable {
			n++
		}
	}
	return n
}

func (p *Product) TotalCount() int {
	return len(p.InventoryUnits)
}

// Normalize trims text fields and upper-cases the SKU.
func (p *Product) Normalize() {
	p.Name = strings.TrimSpace(p.Name)
	p.Description = strings.TrimSpace(p.Description)
	p.SKU = strings.ToUpper(strings.TrimSpace(p.SKU))
	for i := range p.InventoryUnits {
		p.InventoryUnits[i].SerialNumber = strings.TrimSpace(p.InventoryUnits[i].SerialNumber)
	}
}

func (p *Product) Validate() error {
	v := NewValidationError("invalid product")
	if p.Name == "" {
		v.WithField("name", "is required")
	}
	if p.SKU == "" {
		v.WithField("sku", "is required")
	}
	if p.CategoryID <= 0 {
		v.WithField("categoryId", "is required")
	}
	if !p.Condition.Valid() {
		v.WithField("condition", "must be one of excellent, good, fair, poor")
	}
	if p.ReplacementValueCents < 0 {
		v.WithField("replacementValueCents", "must not be negative")
	}
	if p.DepositAmountCents < 0 {
		v.WithField("depositAmountCents", "must not be negative")
	}
	if p.MinRentalPeriodHours < 1 {
		v.WithField("minRentalPeriodHours", "must be at least 1")
	}
	if p.MaxRentalPeriodHours < p.MinRentalPeriodHours {
		v.WithField("maxRentalPeriodHours", "must not be less than minRentalPeriodHours")
	}
	if p.AdvanceBookingDays < 0 {
		v.WithField("advanceBookingDays", "must not be negative")
	}
	if p.LateFeePerDayCents < 0 {
		v.WithField("lateFeePerDayCents", "must not be negative")
	}

	serials := make(map[string]bool, len(p.InventoryUnits))
	for _, u := range p.InventoryUnits {
		if u.SerialNumber == "" {
			v.WithField("inventoryUnits", "serial number is required")
			continue
		}
		if serials[u.SerialNumber] {
			v.WithField("inventoryUnits", "duplicate serial number "+u.SerialNumber)
		}
		serials[u.SerialNumber] = true
		if !u.Condition.Valid() {
			v.WithField("inventoryUnits", "invalid condition for unit "+u.SerialNumber)
		}
	}

	for _, r := range p.PricingRules {
		if !r.PricingType.Valid() {
			v.WithField("pricingRules", "invalid pricing type "+string(r.PricingType))
		}
		if r.BasePriceCents < 0 {
			v.WithField("pricingRules", "base price must not be negative")
		}
		if r.MaxQuantity > 0 && r.MaxQuantity < r.MinQuantity {
			v.WithField("pricingRules", "maxQuantity must not be less than minQuantity")
		}
		if r.ValidFrom != nil && r.ValidTo != nil && r.ValidTo.Before(*r.ValidFrom) {
			v.WithField("pricingRules", "validTo must not be before validFrom")
		}
	}

	if v.HasFields() {
		return v
	}
	return nil
}

// ValidateRentalPeriod checks an interval against the product's booking
// constraints as seen at now.
func (p *Product) ValidateRentalPeriod(start, end, now time.Time) error {
	if !end.After(start) {
		return NewValidationError("rental end must be after rental start").WithField("rentalEnd", "must be after rentalStart")
	}
	if start.Before(now) {
		return NewValidationError("rental start is in the past").WithField("rentalStart", "must not be in the past")
	}
	hours := end.Sub(start).Hours()
	if p.MinRentalPeriodHours > 0 && hours < float64(p.MinRentalPeriodHours) {
		return NewValidationError("rental period too short").
			WithField("rentalEnd", "minimum rental period is "+strconv.Itoa(p.MinRentalPeriodHours)+" hours")
	}
	if p.MaxRentalPeriodHours > 0 && hours > float64(p.MaxRentalPeriodHours) {
		return NewValidationError("rental period too long").
			WithField("rentalEnd", "maximum rental period is "+strconv.Itoa(p.MaxRentalPeriodHours)+" hours")
	}
	if p.AdvanceBookingDays > 0 && start.After(now.AddDate(0, 0, p.AdvanceBookingDays)) {
		return NewValidationError("rental start too far ahead").
			WithField("rentalStart", "bookings open "+strconv.Itoa(p.AdvanceBookingDays)+" days in advance")
	}
	return nil
}
