package models

import "time"

// Manager is a volunteer allowed to request and return territories via chat.
// Phone holds digits only (country code included), matching the part of a
// WhatsApp JID before the "@".
type Manager struct {
	ID             string `gorm:"primaryKey;size:36"`
	CongregationID string `gorm:"size:36;not null;uniqueIndex:idx_manager_phone"`
	Name           string `gorm:"size:128;not null"`
	Phone          string `gorm:"size:32;not null;uniqueIndex:idx_manager_phone"`
	Active         bool   `gorm:"default:true;index"`
	CreatedAt      time.Time

	Assignments []Assignment `gorm:"foreignKey:ManagerID"`
}
