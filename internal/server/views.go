package server

import (
	"time"

	"github.com/zulandar/territorio/internal/models"
	"github.com/zulandar/territorio/internal/territory"
)

type congregationView struct {
	ID                   string `json:"id"`
	Name                 string `json:"name"`
	Number               int    `json:"number"`
	WhatsappInstanceName string `json:"whatsappInstanceName"`
	WhatsappGroupID      string `json:"whatsappGroupId"`
	WhatsappBound        bool   `json:"whatsappBound"`
}

func newCongregationView(c *models.Congregation) congregationView {
	return congregationView{
		ID:                   c.ID,
		Name:                 c.Name,
		Number:               c.Number,
		WhatsappInstanceName: c.WhatsappInstanceName,
		WhatsappGroupID:      c.WhatsappGroupID,
		WhatsappBound:        c.HasWhatsapp(),
	}
}

type territoryView struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Number       int        `json:"number"`
	Blocks       [][]string `json:"blocks"`
	Type         string     `json:"type"`
	ImageURL     string     `json:"imageUrl,omitempty"`
	Obs          string     `json:"obs,omitempty"`
	Status       string     `json:"status"`
	LastWorkedAt *time.Time `json:"lastWorkedAt"`
}

func newTerritoryView(t *models.Territory) territoryView {
	// Unreadable blocks are shown as none.
	blocks, err := territory.DecodeBlocks(t.Blocks)
	if err != nil || blocks == nil {
		blocks = [][]string{}
	}
	return territoryView{
		ID:           t.ID,
		Name:         t.Name,
		Number:       t.Number,
		Blocks:       blocks,
		Type:         string(t.Type),
		ImageURL:     t.ImageURL,
		Obs:          t.Obs,
		Status:       string(t.Status),
		LastWorkedAt: t.LastWorkedAt,
	}
}

type managerView struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Phone       string           `json:"phone"`
	Active      bool             `json:"active"`
	Assignments []assignmentView `json:"assignments,omitempty"`
}

func newManagerView(m *models.Manager) managerView {
	v := managerView{ID: m.ID, Name: m.Name, Phone: m.Phone, Active: m.Active}
	for i := range m.Assignments {
		v.Assignments = append(v.Assignments, newAssignmentView(&m.Assignments[i]))
	}
	return v
}

type assignmentView struct {
	ID            string     `json:"id"`
	TerritoryID   string     `json:"territoryId"`
	TerritoryName string     `json:"territoryName,omitempty"`
	ManagerID     string     `json:"managerId"`
	ManagerName   string     `json:"managerName,omitempty"`
	Status        string     `json:"status"`
	StartedAt     time.Time  `json:"startedAt"`
	FinishedAt    *time.Time `json:"finishedAt"`
}

func newAssignmentView(a *models.Assignment) assignmentView {
	return assignmentView{
		ID:            a.ID,
		TerritoryID:   a.TerritoryID,
		TerritoryName: a.Territory.Name,
		ManagerID:     a.ManagerID,
		ManagerName:   a.Manager.Name,
		Status:        string(a.Status),
		StartedAt:     a.StartedAt,
		FinishedAt:    a.FinishedAt,
	}
}
