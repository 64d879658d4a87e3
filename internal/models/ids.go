// Package models defines the GORM models of the territory ledger.
package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// NewID returns a fresh random identifier for any ledger row.
func NewID() string {
	return uuid.NewString()
}

// BeforeCreate assigns an ID when the caller left it empty.
func (c *Congregation) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = NewID()
	}
	return nil
}

// BeforeCreate assigns an ID when the caller left it empty.
func (m *Manager) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = NewID()
	}
	return nil
}

// BeforeCreate assigns an ID when the caller left it empty.
func (t *Territory) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = NewID()
	}
	return nil
}

// BeforeCreate assigns an ID when the caller left it empty.
func (a *Assignment) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = NewID()
	}
	return nil
}
