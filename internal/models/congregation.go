package models

import "time"

// Congregation is the tenant boundary. It owns territories, managers and
// one WhatsApp binding (Evolution instance, API key and group address).
type Congregation struct {
	ID                   string `gorm:"primaryKey;size:36"`
	Name                 string `gorm:"size:128;not null"`
	Number               int    `gorm:"uniqueIndex;not null"`
	WhatsappInstanceName string `gorm:"size:128;index"`
	WhatsappAPIKey       string `gorm:"size:256"`
	WhatsappGroupID      string `gorm:"size:128"`
	CreatedAt            time.Time

	Managers    []Manager   `gorm:"foreignKey:CongregationID"`
	Territories []Territory `gorm:"foreignKey:CongregationID"`
}

// HasWhatsapp reports whether the congregation has a usable bot binding.
func (c *Congregation) HasWhatsapp() bool {
	return c.WhatsappInstanceName != "" && c.WhatsappAPIKey != ""
}
