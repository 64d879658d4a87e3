// Package manager provides manager administration for the admin panel.
package manager

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ttacon/libphonenumber"
	"github.com/zulandar/territorio/internal/models"
	"gorm.io/gorm"
)

// DefaultRegion is the region used to parse phone numbers written without
// a country code.
const DefaultRegion = "BR"

var (
	ErrNotFound   = errors.New("manager: not found")
	ErrInvalid    = errors.New("manager: invalid input")
	ErrPhoneTaken = errors.New("manager: phone already registered in this congregation")
)

// CreateOpts holds parameters for registering a manager.
type CreateOpts struct {
	Name   string
	Phone  string
	Region string // defaults to DefaultRegion
}

// UpdateOpts holds a partial update. Nil fields are left unchanged.
type UpdateOpts struct {
	Name   *string
	Phone  *string
	Active *bool
	Region string
}

// NormalizePhone validates a phone number and returns it as digits with the
// country code, the form WhatsApp uses before the "@" of a JID.
func NormalizePhone(raw, region string) (string, error) {
	if region == "" {
		region = DefaultRegion
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: phone is required", ErrInvalid)
	}
	p, err := libphonenumber.Parse(raw, region)
	if err != nil {
		return "", fmt.Errorf("%w: phone %q: %v", ErrInvalid, raw, err)
	}
	if !libphonenumber.IsValidNumber(p) {
		return "", fmt.Errorf("%w: phone %q is not valid", ErrInvalid, raw)
	}
	return strings.TrimPrefix(libphonenumber.Format(p, libphonenumber.E164), "+"), nil
}

func validateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if len([]rune(name)) < 2 {
		return "", fmt.Errorf("%w: name must have at least 2 characters", ErrInvalid)
	}
	return name, nil
}

// Create registers an active manager in the congregation.
func Create(ctx context.Context, db *gorm.DB, congregationID string, opts CreateOpts) (*models.Manager, error) {
	if congregationID == "" {
		return nil, fmt.Errorf("manager: congregationID is required")
	}
	name, err := validateName(opts.Name)
	if err != nil {
		return nil, err
	}
	phone, err := NormalizePhone(opts.Phone, opts.Region)
	if err != nil {
		return nil, err
	}

	var m models.Manager
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensurePhoneFree(tx, congregationID, phone, ""); err != nil {
			return err
		}
		m = models.Manager{
			CongregationID: congregationID,
			Name:           name,
			Phone:          phone,
			Active:         true,
		}
		if err := tx.Create(&m).Error; err != nil {
			return fmt.Errorf("manager: create: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func ensurePhoneFree(tx *gorm.DB, congregationID, phone, exceptID string) error {
	q := tx.Model(&models.Manager{}).Where("congregation_id = ? AND phone = ?", congregationID, phone)
	if exceptID != "" {
		q = q.Where("id <> ?", exceptID)
	}
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return fmt.Errorf("manager: check phone: %w", err)
	}
	if count > 0 {
		return ErrPhoneTaken
	}
	return nil
}

// Get retrieves a manager with the full assignment history.
func Get(ctx context.Context, db *gorm.DB, congregationID, id string) (*models.Manager, error) {
	var m models.Manager
	err := db.WithContext(ctx).
		Preload("Assignments", func(q *gorm.DB) *gorm.DB { return q.Order("started_at DESC") }).
		Where("id = ? AND congregation_id = ?", id, congregationID).
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("manager: get %s: %w", id, err)
	}
	return &m, nil
}

// List returns the congregation's managers ordered by name.
func List(ctx context.Context, db *gorm.DB, congregationID string, onlyActive bool) ([]models.Manager, error) {
	q := db.WithContext(ctx).Where("congregation_id = ?", congregationID)
	if onlyActive {
		q = q.Where("active = ?", true)
	}
	var out []models.Manager
	if err := q.Order("name ASC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("manager: list: %w", err)
	}
	return out, nil
}

// Update applies a partial update and returns the stored manager.
func Update(ctx context.Context, db *gorm.DB, congregationID, id string, opts UpdateOpts) (*models.Manager, error) {
	updates := map[string]interface{}{}
	if opts.Name != nil {
		name, err := validateName(*opts.Name)
		if err != nil {
			return nil, err
		}
		updates["name"] = name
	}
	var phone string
	if opts.Phone != nil {
		p, err := NormalizePhone(*opts.Phone, opts.Region)
		if err != nil {
			return nil, err
		}
		phone = p
		updates["phone"] = p
	}
	if opts.Active != nil {
		updates["active"] = *opts.Active
	}

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var m models.Manager
		err := tx.Where("id = ? AND congregation_id = ?", id, congregationID).First(&m).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("manager: update %s: %w", id, err)
		}
		if len(updates) == 0 {
			return nil
		}
		if phone != "" {
			if err := ensurePhoneFree(tx, congregationID, phone, id); err != nil {
				return err
			}
		}
		if err := tx.Model(&models.Manager{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return fmt.Errorf("manager: update %s: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return Get(ctx, db, congregationID, id)
}

// SetActive enables or disables a manager. Disabled managers are ignored
// by the bot.
func SetActive(ctx context.Context, db *gorm.DB, congregationID, id string, active bool) error {
	res := db.WithContext(ctx).Model(&models.Manager{}).
		Where("id = ? AND congregation_id = ?", id, congregationID).
		Update("active", active)
	if res.Error != nil {
		return fmt.Errorf("manager: set active %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := db.WithContext(ctx).Model(&models.Manager{}).
			Where("id = ? AND congregation_id = ?", id, congregationID).
			Count(&count).Error; err != nil {
			return fmt.Errorf("manager: set active %s: %w", id, err)
		}
		if count == 0 {
			return ErrNotFound
		}
	}
	return nil
}
