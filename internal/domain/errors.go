package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// ErrDuplicateOrderNumber is returned by the order store when a generated
// order number collides with an existing one. Callers regenerate and retry.
var ErrDuplicateOrderNumber = errors.New("duplicate order number")

// ValidationError reports malformed input. Fields carries per-field messages.
type ValidationError struct {
	Message string
	Fields  map[string]string
}

func NewValidationError(message string) *ValidationError {
	return &ValidationError{Message: message}
}

// WithField records a message for a single input field and returns the error.
func (e *ValidationError) WithField(field, message string) *ValidationError {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	e.Fields[field] = message
	return e
}

// HasFields reports whether any field message was recorded.
func (e *ValidationError) HasFields() bool {
	return len(e.Fields) > 0
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return e.Message + " (" + strings.Join(parts, "; ") + ")"
}

type AuthenticationError struct {
	Message string
}

func (e *AuthenticationError) Error() string { return e.Message }

type AuthorizationError struct {
	Message string
}

func (e *AuthorizationError) Error() string { return e.Message }

// NotFoundError is returned when an entity does not exist or is not visible
// to the caller.
type NotFoundError struct {
	Resource string
	ID       any
}

func (e *NotFoundError) Error() string {
	if e.ID == nil {
		return fmt.Sprintf("%s not found", e.Resource)
	}
	return fmt.Sprintf("%s %v not found", e.Resource, e.ID)
}

type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

// PricingUnavailableError means no active pricing rule matches the requested
// pricing type, customer type and date. Orders are never priced at zero.
type PricingUnavailableError struct {
	ProductID    int32
	PricingType  PricingType
	CustomerType string
}

func (e *PricingUnavailableError) Error() string {
	msg := fmt.Sprintf("no pricing available for product %d", e.ProductID)
	if e.PricingType != "" {
		msg = fmt.Sprintf("no %s pricing available for product %d", e.PricingType, e.ProductID)
	}
	if e.CustomerType != "" {
		msg += fmt.Sprintf(" (customer type %q)", e.CustomerType)
	}
	return msg
}

type InsufficientInventoryError struct {
	ProductID int32
	Requested int
	Available int
}

func (e *InsufficientInventoryError) Error() string {
	return fmt.Sprintf("insufficient inventory for product %d: requested %d, available %d", e.ProductID, e.Requested, e.Available)
}

type InvalidTransitionError struct {
	From OrderStatus
	To   OrderStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot change order status from %s to %s", e.From, e.To)
}

type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return "too many attempts, please try again later"
}
