package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/zulandar/territorio/internal/models"
	"gorm.io/gorm"
)

// Outcome is the reason a manager gives when returning a territory.
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeNotWorked Outcome = "not_worked"
)

// Claim assigns an available territory to a manager. The status flip is a
// conditional UPDATE inside the transaction, so of two concurrent claims on
// the same territory exactly one commits; the other gets ErrTerritoryTaken.
// The returned assignment has its Territory loaded.
func (l *Ledger) Claim(ctx context.Context, congregationID, territoryID, managerID string) (*models.Assignment, error) {
	if congregationID == "" {
		return nil, fmt.Errorf("ledger: congregationID is required")
	}
	if territoryID == "" {
		return nil, fmt.Errorf("ledger: territoryID is required")
	}
	if managerID == "" {
		return nil, fmt.Errorf("ledger: managerID is required")
	}

	var assignment models.Assignment
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := takeTerritory(tx, congregationID, territoryID); err != nil {
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
			return fmt.Errorf("ledger: claim: create assignment: %w", err)
		}
		if err := tx.Where("id = ?", territoryID).First(&assignment.Territory).Error; err != nil {
			return fmt.Errorf("ledger: claim: reload territory %s: %w", territoryID, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &assignment, nil
}

// takeTerritory flips an available territory to working. Zero affected rows
// means the territory is gone or no longer available.
func takeTerritory(tx *gorm.DB, congregationID, territoryID string) error {
	res := tx.Model(&models.Territory{}).
		Where("id = ? AND congregation_id = ? AND status = ?", territoryID, congregationID, models.StatusAvailable).
		Update("status", models.StatusWorking)
	if res.Error != nil {
		return fmt.Errorf("ledger: take territory %s: %w", territoryID, res.Error)
	}
	if res.RowsAffected == 1 {
		return nil
	}

	var count int64
	if err := tx.Model(&models.Territory{}).
		Where("id = ? AND congregation_id = ?", territoryID, congregationID).
		Count(&count).Error; err != nil {
		return fmt.Errorf("ledger: check territory %s: %w", territoryID, err)
	}
	if count == 0 {
		return ErrTerritoryNotFound
	}
	return ErrTerritoryTaken
}

// Return closes an active assignment with the manager's outcome and frees
// its territory. Only a completed return moves lastWorkedAt. Returning an
// assignment twice fails with ErrAssignmentNotActive and leaves the
// territory untouched.
func (l *Ledger) Return(ctx context.Context, congregationID, assignmentID string, outcome Outcome) (*models.Assignment, error) {
	status, touch, err := outcomeStatus(outcome)
	if err != nil {
		return nil, err
	}
	return l.finish(ctx, congregationID, assignmentID, status, touch)
}

func outcomeStatus(o Outcome) (models.AssignmentStatus, bool, error) {
	switch o {
	case OutcomeCompleted:
		return models.AssignmentCompleted, true, nil
	case OutcomeNotWorked:
		return models.AssignmentCancelled, false, nil
	}
	return "", false, fmt.Errorf("ledger: unknown outcome %q", o)
}

// finish moves an active assignment to a terminal status and frees its
// territory in one transaction.
func (l *Ledger) finish(ctx context.Context, congregationID, assignmentID string, status models.AssignmentStatus, touchLastWorked bool) (*models.Assignment, error) {
	if congregationID == "" {
		return nil, fmt.Errorf("ledger: congregationID is required")
	}
	if assignmentID == "" {
		return nil, fmt.Errorf("ledger: assignmentID is required")
	}

	var a models.Assignment
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Preload("Territory").
			Where("id = ? AND congregation_id = ?", assignmentID, congregationID).
			First(&a).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAssignmentNotFound
		}
		if err != nil {
			return fmt.Errorf("ledger: load assignment %s: %w", assignmentID, err)
		}

		now := l.now()
		res := tx.Model(&models.Assignment{}).
			Where("id = ? AND status = ?", assignmentID, models.AssignmentActive).
			Updates(map[string]interface{}{
				"status":      status,
				"finished_at": now,
			})
		if res.Error != nil {
			return fmt.Errorf("ledger: close assignment %s: %w", assignmentID, res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrAssignmentNotActive
		}

		updates := map[string]interface{}{"status": models.StatusAvailable}
		if touchLastWorked {
			updates["last_worked_at"] = now
		}
		if err := tx.Model(&models.Territory{}).Where("id = ?", a.TerritoryID).Updates(updates).Error; err != nil {
			return fmt.Errorf("ledger: free territory %s: %w", a.TerritoryID, err)
		}

		a.Status = status
		a.FinishedAt = &now
		a.Territory.Status = models.StatusAvailable
		if touchLastWorked {
			a.Territory.LastWorkedAt = &now
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &a, nil
}
