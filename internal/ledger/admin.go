package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/zulandar/territorio/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Assign is the admin-panel assignment. Unlike Claim it refuses a manager
// holding any active assignment. All checks run inside the transaction
// before anything is written.
func (l *Ledger) Assign(ctx context.Context, congregationID, territoryID, managerID string) (*models.Assignment, error) {
	if congregationID == "" {
		return nil, fmt.Errorf("ledger: congregationID is required")
	}

	var assignment models.Assignment
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var t models.Territory
		err := tx.Where("id = ? AND congregation_id = ?", territoryID, congregationID).First(&t).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTerritoryNotFound
		}
		if err != nil {
			return fmt.Errorf("ledger: assign: load territory: %w", err)
		}
		if t.Status == models.StatusWorking {
			return ErrTerritoryWorking
		}

		// The manager row lock serializes concurrent assigns to one manager.
		var m models.Manager
		err = tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND congregation_id = ?", managerID, congregationID).
			First(&m).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrManagerNotFound
		}
		if err != nil {
			return fmt.Errorf("ledger: assign: load manager: %w", err)
		}

		var active int64
		if err := tx.Model(&models.Assignment{}).
			Where("manager_id = ? AND status = ?", managerID, models.AssignmentActive).
			Count(&active).Error; err != nil {
			return fmt.Errorf("ledger: assign: count active: %w", err)
		}
		if active > 0 {
			return ErrManagerBusy
		}

		if err := takeTerritory(tx, congregationID, territoryID); err != nil {
			if errors.Is(err, ErrTerritoryTaken) {
				return ErrTerritoryWorking
			}
			return err
		}

		assignment = models.Assignment{
			CongregationID: congregationID,
			TerritoryID:    territoryID,
			ManagerID:      managerID,
			Status:         models.AssignmentActive,
			StartedAt:      l.now(),
		}
		if err := tx.Create(&assignment).Error; err != nil {
			return fmt.Errorf("ledger: assign: create assignment: %w", err)
		}
		t.Status = models.StatusWorking
		assignment.Territory = t
		assignment.Manager = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &assignment, nil
}

// Complete closes an active assignment as worked.
func (l *Ledger) Complete(ctx context.Context, congregationID, assignmentID string) (*models.Assignment, error) {
	return l.finish(ctx, congregationID, assignmentID, models.AssignmentCompleted, true)
}

// Revoke cancels an active assignment without touching lastWorkedAt.
// Terminal assignments are rejected so a territory already handed to
// someone else is never freed by a stale revoke.
func (l *Ledger) Revoke(ctx context.Context, congregationID, assignmentID string) (*models.Assignment, error) {
	return l.finish(ctx, congregationID, assignmentID, models.AssignmentCancelled, false)
}

// ListFilter selects which assignments List returns.
type ListFilter string

const (
	FilterActive  ListFilter = "active"
	FilterHistory ListFilter = "history"
)

// List limits.
const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// List returns the congregation's assignments, newest first, with territory
// and manager loaded. FilterActive keeps only active ones; FilterHistory
// returns all of them.
func (l *Ledger) List(ctx context.Context, congregationID string, filter ListFilter, limit int) ([]models.Assignment, error) {
	switch {
	case limit == 0:
		limit = DefaultListLimit
	case limit < 0 || limit > MaxListLimit:
		return nil, fmt.Errorf("ledger: limit must be between 1 and %d", MaxListLimit)
	}

	q := l.db.WithContext(ctx).
		Preload("Territory").
		Preload("Manager").
		Where("congregation_id = ?", congregationID)
	switch filter {
	case "", FilterActive:
		q = q.Where("status = ?", models.AssignmentActive)
	case FilterHistory:
	default:
		return nil, fmt.Errorf("ledger: unknown filter %q", filter)
	}

	var out []models.Assignment
	if err := q.Order("started_at DESC").Limit(limit).Find(&out).Error; err != nil {
		return nil, fmt.Errorf("ledger: list assignments: %w", err)
	}
	return out, nil
}
