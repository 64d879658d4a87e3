package models

import "time"

// AssignmentStatus is the lifecycle state of an assignment.
type AssignmentStatus string

const (
	AssignmentActive    AssignmentStatus = "active"
	AssignmentCompleted AssignmentStatus = "completed"
	AssignmentCancelled AssignmentStatus = "cancelled"
)

// Assignment records one manager being (or having been) responsible for one
// territory. A territory has at most one active assignment at a time.
type Assignment struct {
	ID             string           `gorm:"primaryKey;size:36"`
	CongregationID string           `gorm:"size:36;not null;index"`
	TerritoryID    string           `gorm:"size:36;not null;index"`
	ManagerID      string           `gorm:"size:36;not null;index"`
	Status         AssignmentStatus `gorm:"size:16;not null;default:active;index"`
	StartedAt      time.Time
	FinishedAt     *time.Time

	Territory Territory `gorm:"foreignKey:TerritoryID"`
	Manager   Manager   `gorm:"foreignKey:ManagerID"`
}
