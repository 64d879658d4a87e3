package db

import (
	"errors"
	"fmt"

	"github.com/zulandar/territorio/internal/models"
	"gorm.io/gorm"
)

// AllModels returns the list of all GORM models for migration.
func AllModels() []interface{} {
	return []interface{}{
		&models.Congregation{},
		&models.Manager{},
		&models.Territory{},
		&models.Assignment{},
	}
}

// AutoMigrate creates or updates all tables.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("db: auto-migrate: %w", err)
	}
	return nil
}

// CreateCongregation inserts a congregation with a unique number.
func CreateCongregation(db *gorm.DB, name string, number int) (*models.Congregation, error) {
	if name == "" {
		return nil, fmt.Errorf("db: congregation name is required")
	}
	if number <= 0 {
		return nil, fmt.Errorf("db: congregation number must be positive")
	}

	var existing models.Congregation
	err := db.Where("number = ?", number).First(&existing).Error
	if err == nil {
		return nil, fmt.Errorf("db: congregation number %d already exists", number)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("db: check congregation %d: %w", number, err)
	}

	c := models.Congregation{Name: name, Number: number}
	if err := db.Create(&c).Error; err != nil {
		return nil, fmt.Errorf("db: create congregation: %w", err)
	}
	return &c, nil
}

// WhatsappBinding is the Evolution instance a congregation's bot listens on.
type WhatsappBinding struct {
	InstanceName string
	APIKey       string
	GroupID      string
}

// BindWhatsapp stores the WhatsApp binding of the congregation with the
// given number. Empty fields leave the stored value unchanged.
func BindWhatsapp(db *gorm.DB, number int, b WhatsappBinding) (*models.Congregation, error) {
	var c models.Congregation
	if err := db.Where("number = ?", number).First(&c).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("db: congregation not found: %d", number)
		}
		return nil, fmt.Errorf("db: get congregation %d: %w", number, err)
	}

	updates := map[string]interface{}{}
	if b.InstanceName != "" {
		updates["whatsapp_instance_name"] = b.InstanceName
	}
	if b.APIKey != "" {
		updates["whatsapp_api_key"] = b.APIKey
	}
	if b.GroupID != "" {
		updates["whatsapp_group_id"] = b.GroupID
	}
	if len(updates) == 0 {
		return nil, fmt.Errorf("db: nothing to bind for congregation %d", number)
	}
	if err := db.Model(&c).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("db: bind whatsapp for %d: %w", number, err)
	}
	if err := db.First(&c, "id = ?", c.ID).Error; err != nil {
		return nil, fmt.Errorf("db: reload congregation %d: %w", number, err)
	}
	return &c, nil
}
