// Package ledger is the source of truth for territory availability and
// manager workload. Every mutation runs in a single transaction whose
// conditional UPDATE is the correctness check; reads done before a
// transaction only feed menus.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/zulandar/territorio/internal/models"
	"gorm.io/gorm"
)

// Ledger wraps the database holding congregations, managers, territories
// and assignments.
type Ledger struct {
	db  *gorm.DB
	now func() time.Time
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock overrides the clock used for startedAt, finishedAt and
// lastWorkedAt.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// New returns a Ledger backed by db.
func New(db *gorm.DB, opts ...Option) *Ledger {
	l := &Ledger{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// DB returns the underlying connection.
func (l *Ledger) DB() *gorm.DB {
	return l.db
}

// CongregationByInstance finds the congregation bound to a WhatsApp instance.
func (l *Ledger) CongregationByInstance(ctx context.Context, instance string) (*models.Congregation, error) {
	if instance == "" {
		return nil, fmt.Errorf("ledger: instance is required")
	}
	var c models.Congregation
	err := l.db.WithContext(ctx).Where("whatsapp_instance_name = ?", instance).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCongregationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ledger: congregation by instance %s: %w", instance, err)
	}
	return &c, nil
}

// Congregation loads a congregation by ID.
func (l *Ledger) Congregation(ctx context.Context, id string) (*models.Congregation, error) {
	var c models.Congregation
	err := l.db.WithContext(ctx).Where("id = ?", id).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCongregationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ledger: get congregation %s: %w", id, err)
	}
	return &c, nil
}

// ActiveManagerByPhone finds an active manager of the congregation by phone.
// Inactive managers are reported as not found.
func (l *Ledger) ActiveManagerByPhone(ctx context.Context, congregationID, phone string) (*models.Manager, error) {
	var m models.Manager
	err := l.db.WithContext(ctx).
		Where("congregation_id = ? AND phone = ? AND active = ?", congregationID, phone, true).
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrManagerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ledger: manager by phone: %w", err)
	}
	return &m, nil
}

// ActiveAssignments returns the manager's active assignments with their
// territories, oldest first.
func (l *Ledger) ActiveAssignments(ctx context.Context, managerID string) ([]models.Assignment, error) {
	var out []models.Assignment
	err := l.db.WithContext(ctx).
		Preload("Territory").
		Where("manager_id = ? AND status = ?", managerID, models.AssignmentActive).
		Order("started_at ASC").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("ledger: active assignments of %s: %w", managerID, err)
	}
	return out, nil
}

// AvailableTerritories returns up to limit available territories of the
// given type. Never-worked territories come first, then the ones worked
// longest ago; number breaks ties.
func (l *Ledger) AvailableTerritories(ctx context.Context, congregationID string, typ models.TerritoryType, limit int) ([]models.Territory, error) {
	if limit <= 0 {
		return nil, nil
	}
	var out []models.Territory
	err := l.db.WithContext(ctx).
		Where("congregation_id = ? AND status = ? AND type = ?", congregationID, models.StatusAvailable, typ).
		Order("last_worked_at IS NOT NULL").
		Order("last_worked_at ASC").
		Order("number ASC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("ledger: available %s territories: %w", typ, err)
	}
	return out, nil
}

// Assignment loads one assignment of the congregation with its territory
// and manager.
func (l *Ledger) Assignment(ctx context.Context, congregationID, id string) (*models.Assignment, error) {
	var a models.Assignment
	err := l.db.WithContext(ctx).
		Preload("Territory").
		Preload("Manager").
		Where("id = ? AND congregation_id = ?", id, congregationID).
		First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAssignmentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ledger: get assignment %s: %w", id, err)
	}
	return &a, nil
}

// Territory loads one territory of the congregation.
func (l *Ledger) Territory(ctx context.Context, congregationID, id string) (*models.Territory, error) {
	var t models.Territory
	err := l.db.WithContext(ctx).Where("id = ? AND congregation_id = ?", id, congregationID).First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTerritoryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ledger: get territory %s: %w", id, err)
	}
	return &t, nil
}
