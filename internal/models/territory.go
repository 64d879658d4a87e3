package models

import "time"

// TerritoryType classifies a territory for the bot's type menu.
type TerritoryType string

const (
	TypeUrban      TerritoryType = "urban"
	TypeRural      TerritoryType = "rural"
	TypeCommercial TerritoryType = "commercial"
)

// Valid reports whether t is one of the known territory types.
func (t TerritoryType) Valid() bool {
	switch t {
	case TypeUrban, TypeRural, TypeCommercial:
		return true
	}
	return false
}

// TerritoryStatus is the availability of a territory.
type TerritoryStatus string

const (
	StatusAvailable TerritoryStatus = "available"
	StatusWorking   TerritoryStatus = "working"
)

// Valid reports whether s is a known territory status.
func (s TerritoryStatus) Valid() bool {
	return s == StatusAvailable || s == StatusWorking
}

// Territory is a geographic unit assignable to one manager at a time.
type Territory struct {
	ID             string          `gorm:"primaryKey;size:36"`
	CongregationID string          `gorm:"size:36;not null;index"`
	Name           string          `gorm:"size:128;not null"`
	Number         int             `gorm:"not null"`
	Blocks         string          `gorm:"type:json"` // JSON array of block lists
	Type           TerritoryType   `gorm:"size:16;not null;index"`
	ImageURL       string          `gorm:"size:512"`
	Obs            string          `gorm:"type:text"`
	Status         TerritoryStatus `gorm:"size:16;not null;default:available;index"`
	LastWorkedAt   *time.Time
	CreatedAt      time.Time

	Assignments []Assignment `gorm:"foreignKey:TerritoryID"`
}
