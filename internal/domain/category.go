package domain

import (
	"strings"
	"time"
)

type Category struct {
	ID          int32     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	ParentID    *int32    `json:"parentId,omitempty"`
	IsActive    bool      `json:"isActive"`
	SortOrder   int32     `json:"sortOrder"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (c *Category) Normalize() {
	c.Name = strings.TrimSpace(c.Name)
	c.Description = strings.TrimSpace(c.Description)
}

func (c *Category) Validate() error {
	v := NewValidationError("invalid category")
	if c.Name == "" {
		v.WithField("name", "is required")
	}
	if len(c.Name) > 100 {
		v.WithField("name", "must be at most 100 characters")
	}
	if c.ParentID != nil && c.ID != 0 && *c.ParentID == c.ID {
		v.WithField("parentId", "cannot reference itself")
	}
	if v.HasFields() {
		return v
	}
	return nil
}
