// Package territory provides territory administration for the admin panel.
package territory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/zulandar/territorio/internal/models"
	"gorm.io/gorm"
)

var validate = validator.New()

var (
	// ErrNotFound is returned when the territory does not exist in the
	// caller's congregation.
	ErrNotFound = errors.New("territory: not found")
	// ErrInvalid wraps every input validation failure.
	ErrInvalid = errors.New("territory: invalid input")
	// ErrWorking is returned when deleting or releasing a territory that
	// still has an active assignment.
	ErrWorking = errors.New("territory: territory is being worked")
)

// CreateOpts holds parameters for creating a territory.
type CreateOpts struct {
	Name         string
	Number       int
	Blocks       [][]string
	Type         models.TerritoryType `validate:"oneof=urban rural commercial"`
	ImageURL     string               `validate:"omitempty,http_url"`
	Obs          string
	LastWorkedAt *time.Time
}

// UpdateOpts holds a partial update. Nil fields are left unchanged.
type UpdateOpts struct {
	Name         *string
	Number       *int
	Blocks       *[][]string
	Type         *models.TerritoryType   `validate:"omitnil,oneof=urban rural commercial"`
	ImageURL     *string                 `validate:"omitempty,http_url"`
	Obs          *string
	Status       *models.TerritoryStatus `validate:"omitnil,oneof=available working"`
	LastWorkedAt *time.Time
}

// ListFilters holds optional filters for listing territories.
type ListFilters struct {
	Status  models.TerritoryStatus
	OrderBy string // "name" (default) or "last_worked_at"
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

// validateOpts runs the struct tags and reports the first failing field.
func validateOpts(opts interface{}) error {
	err := validate.Struct(opts)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return invalid("%s %v failed %s", strings.ToLower(fe.Field()), fe.Value(), fe.Tag())
	}
	return invalid("%v", err)
}

func hasActiveAssignment(tx *gorm.DB, territoryID string) (bool, error) {
	var n int64
	err := tx.Model(&models.Assignment{}).
		Where("territory_id = ? AND status = ?", territoryID, models.AssignmentActive).
		Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("territory: count active assignments of %s: %w", territoryID, err)
	}
	return n > 0, nil
}

// Create stores a new available territory in the congregation.
func Create(ctx context.Context, db *gorm.DB, congregationID string, opts CreateOpts) (*models.Territory, error) {
	if congregationID == "" {
		return nil, fmt.Errorf("territory: congregationID is required")
	}
	if strings.TrimSpace(opts.Name) == "" {
		return nil, invalid("name is required")
	}
	if err := validateOpts(opts); err != nil {
		return nil, err
	}
	blocks, err := EncodeBlocks(opts.Blocks)
	if err != nil {
		return nil, err
	}

	t := models.Territory{
		CongregationID: congregationID,
		Name:           strings.TrimSpace(opts.Name),
		Number:         opts.Number,
		Blocks:         blocks,
		Type:           opts.Type,
		ImageURL:       opts.ImageURL,
		Obs:            opts.Obs,
		Status:         models.StatusAvailable,
		LastWorkedAt:   opts.LastWorkedAt,
	}
	if err := db.WithContext(ctx).Create(&t).Error; err != nil {
		return nil, fmt.Errorf("territory: create: %w", err)
	}
	return &t, nil
}

// Get retrieves a territory of the congregation by ID.
func Get(ctx context.Context, db *gorm.DB, congregationID, id string) (*models.Territory, error) {
	var t models.Territory
	err := db.WithContext(ctx).Where("id = ? AND congregation_id = ?", id, congregationID).First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("territory: get %s: %w", id, err)
	}
	return &t, nil
}

// List returns the congregation's territories.
func List(ctx context.Context, db *gorm.DB, congregationID string, filters ListFilters) ([]models.Territory, error) {
	q := db.WithContext(ctx).Where("congregation_id = ?", congregationID)
	if filters.Status != "" {
		if !filters.Status.Valid() {
			return nil, invalid("unknown status %q", filters.Status)
		}
		q = q.Where("status = ?", filters.Status)
	}
	switch filters.OrderBy {
	case "", "name":
		q = q.Order("name ASC")
	case "last_worked_at":
		q = q.Order("last_worked_at DESC")
	default:
		return nil, invalid("unknown order %q", filters.OrderBy)
	}

	var out []models.Territory
	if err := q.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("territory: list: %w", err)
	}
	return out, nil
}

// Update applies a partial update and returns the stored territory. A
// territory with an active assignment cannot be set back to available.
func Update(ctx context.Context, db *gorm.DB, congregationID, id string, opts UpdateOpts) (*models.Territory, error) {
	if err := validateOpts(opts); err != nil {
		return nil, err
	}
	updates := map[string]interface{}{}
	if opts.Name != nil {
		name := strings.TrimSpace(*opts.Name)
		if name == "" {
			return nil, invalid("name must not be empty")
		}
		updates["name"] = name
	}
	if opts.Number != nil {
		updates["number"] = *opts.Number
	}
	if opts.Blocks != nil {
		blocks, err := EncodeBlocks(*opts.Blocks)
		if err != nil {
			return nil, err
		}
		updates["blocks"] = blocks
	}
	if opts.Type != nil {
		updates["type"] = *opts.Type
	}
	if opts.ImageURL != nil {
		updates["image_url"] = *opts.ImageURL
	}
	if opts.Obs != nil {
		updates["obs"] = *opts.Obs
	}
	if opts.Status != nil {
		updates["status"] = *opts.Status
	}
	if opts.LastWorkedAt != nil {
		updates["last_worked_at"] = *opts.LastWorkedAt
	}

	var t models.Territory
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("id = ? AND congregation_id = ?", id, congregationID).First(&t).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("territory: get %s: %w", id, err)
		}
		if len(updates) == 0 {
			return nil
		}
		if opts.Status != nil && *opts.Status == models.StatusAvailable {
			active, err := hasActiveAssignment(tx, t.ID)
			if err != nil {
				return err
			}
			if active {
				return ErrWorking
			}
		}
		if err := tx.Model(&models.Territory{}).Where("id = ?", t.ID).Updates(updates).Error; err != nil {
			return fmt.Errorf("territory: update %s: %w", id, err)
		}
		return tx.Where("id = ?", t.ID).First(&t).Error
	})
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Delete removes a territory and its assignment history. A territory that
// is being worked or still has an active assignment cannot be deleted.
func Delete(ctx context.Context, db *gorm.DB, congregationID, id string) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var t models.Territory
		err := tx.Where("id = ? AND congregation_id = ?", id, congregationID).First(&t).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("territory: delete %s: %w", id, err)
		}
		if t.Status == models.StatusWorking {
			return ErrWorking
		}
		active, err := hasActiveAssignment(tx, t.ID)
		if err != nil {
			return err
		}
		if active {
			return ErrWorking
		}
		if err := tx.Where("territory_id = ?", id).Delete(&models.Assignment{}).Error; err != nil {
			return fmt.Errorf("territory: delete assignments of %s: %w", id, err)
		}
		if err := tx.Delete(&t).Error; err != nil {
			return fmt.Errorf("territory: delete %s: %w", id, err)
		}
		return nil
	})
}

// EncodeBlocks serializes block lists for storage. Nil becomes "[]".
func EncodeBlocks(blocks [][]string) (string, error) {
	if blocks == nil {
		return "[]", nil
	}
	b, err := json.Marshal(blocks)
	if err != nil {
		return "", fmt.Errorf("territory: encode blocks: %w", err)
	}
	return string(b), nil
}

// DecodeBlocks parses stored block lists. Empty storage decodes as no blocks.
func DecodeBlocks(raw string) ([][]string, error) {
	if raw == "" || raw == "null" {
		return [][]string{}, nil
	}
	var out [][]string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("territory: decode blocks: %w", err)
	}
	return out, nil
}
