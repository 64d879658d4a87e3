package server

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/territorio/internal/ledger"
	"github.com/zulandar/territorio/internal/manager"
	"github.com/zulandar/territorio/internal/models"
	"github.com/zulandar/territorio/internal/territory"
)

func badRequest(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

// --- Congregation ---

func (h *handlers) getCongregation() gin.HandlerFunc {
	return func(c *gin.Context) {
		cong, err := h.ledger.Congregation(c.Request.Context(), congregationID(c))
		if err != nil {
			h.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, newCongregationView(cong))
	}
}

// --- Territories ---

type territoryRequest struct {
	Name         *string     `json:"name"`
	Number       *int        `json:"number"`
	Blocks       *[][]string `json:"blocks"`
	Type         *string     `json:"type"`
	ImageURL     *string     `json:"imageUrl"`
	Obs          *string     `json:"obs"`
	Status       *string     `json:"status"`
	LastWorkedAt *time.Time  `json:"lastWorkedAt"`
}

func (h *handlers) listTerritories() gin.HandlerFunc {
	return func(c *gin.Context) {
		filters := territory.ListFilters{
			Status:  models.TerritoryStatus(c.Query("status")),
			OrderBy: c.Query("orderBy"),
		}
		list, err := territory.List(c.Request.Context(), h.ledger.DB(), congregationID(c), filters)
		if err != nil {
			h.fail(c, err)
			return
		}
		out := make([]territoryView, len(list))
		for i := range list {
			out[i] = newTerritoryView(&list[i])
		}
		c.JSON(http.StatusOK, out)
	}
}

func (h *handlers) createTerritory() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req territoryRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			h.fail(c, badRequest("%v", err))
			return
		}
		opts := territory.CreateOpts{LastWorkedAt: req.LastWorkedAt}
		if req.Name != nil {
			opts.Name = *req.Name
		}
		if req.Number != nil {
			opts.Number = *req.Number
		}
		if req.Blocks != nil {
			opts.Blocks = *req.Blocks
		}
		if req.Type != nil {
			opts.Type = models.TerritoryType(*req.Type)
		}
		if req.ImageURL != nil {
			opts.ImageURL = *req.ImageURL
		}
		if req.Obs != nil {
			opts.Obs = *req.Obs
		}
		t, err := territory.Create(c.Request.Context(), h.ledger.DB(), congregationID(c), opts)
		if err != nil {
			h.fail(c, err)
			return
		}
		c.JSON(http.StatusCreated, newTerritoryView(t))
	}
}

func (h *handlers) getTerritory() gin.HandlerFunc {
	return func(c *gin.Context) {
		t, err := territory.Get(c.Request.Context(), h.ledger.DB(), congregationID(c), c.Param("id"))
		if err != nil {
			h.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, newTerritoryView(t))
	}
}

func (h *handlers) updateTerritory() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req territoryRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			h.fail(c, badRequest("%v", err))
			return
		}
		opts := territory.UpdateOpts{
			Name:         req.Name,
			Number:       req.Number,
			Blocks:       req.Blocks,
			ImageURL:     req.ImageURL,
			Obs:          req.Obs,
			LastWorkedAt: req.LastWorkedAt,
		}
		if req.Type != nil {
			typ := models.TerritoryType(*req.Type)
			opts.Type = &typ
		}
		if req.Status != nil {
			status := models.TerritoryStatus(*req.Status)
			opts.Status = &status
		}
		t, err := territory.Update(c.Request.Context(), h.ledger.DB(), congregationID(c), c.Param("id"), opts)
		if err != nil {
			h.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, newTerritoryView(t))
	}
}

func (h *handlers) deleteTerritory() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := territory.Delete(c.Request.Context(), h.ledger.DB(), congregationID(c), c.Param("id")); err != nil {
			h.fail(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// --- Managers ---

type managerRequest struct {
	Name  *string `json:"name"`
	Phone *string `json:"phone"`
}

func (h *handlers) listManagers() gin.HandlerFunc {
	return func(c *gin.Context) {
		onlyActive := c.Query("active") == "true"
		list, err := manager.List(c.Request.Context(), h.ledger.DB(), congregationID(c), onlyActive)
		if err != nil {
			h.fail(c, err)
			return
		}
		out := make([]managerView, len(list))
		for i := range list {
			out[i] = newManagerView(&list[i])
		}
		c.JSON(http.StatusOK, out)
	}
}

func (h *handlers) createManager() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req managerRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			h.fail(c, badRequest("%v", err))
			return
		}
		var opts manager.CreateOpts
		if req.Name != nil {
			opts.Name = *req.Name
		}
		if req.Phone != nil {
			opts.Phone = *req.Phone
		}
		m, err := manager.Create(c.Request.Context(), h.ledger.DB(), congregationID(c), opts)
		if err != nil {
			h.fail(c, err)
			return
		}
		c.JSON(http.StatusCreated, newManagerView(m))
	}
}

func (h *handlers) getManager() gin.HandlerFunc {
	return func(c *gin.Context) {
		m, err := manager.Get(c.Request.Context(), h.ledger.DB(), congregationID(c), c.Param("id"))
		if err != nil {
			h.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, newManagerView(m))
	}
}

func (h *handlers) updateManager() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req managerRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			h.fail(c, badRequest("%v", err))
			return
		}
		m, err := manager.Update(c.Request.Context(), h.ledger.DB(), congregationID(c), c.Param("id"),
			manager.UpdateOpts{Name: req.Name, Phone: req.Phone})
		if err != nil {
			h.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, newManagerView(m))
	}
}

func (h *handlers) setManagerActive() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Active *bool `json:"active"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			h.fail(c, badRequest("%v", err))
			return
		}
		if req.Active == nil {
			h.fail(c, badRequest("active is required"))
			return
		}
		ctx := c.Request.Context()
		if err := manager.SetActive(ctx, h.ledger.DB(), congregationID(c), c.Param("id"), *req.Active); err != nil {
			h.fail(c, err)
			return
		}
		m, err := manager.Get(ctx, h.ledger.DB(), congregationID(c), c.Param("id"))
		if err != nil {
			h.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, newManagerView(m))
	}
}

// --- Assignments ---

func (h *handlers) listAssignments() gin.HandlerFunc {
	return func(c *gin.Context) {
		filter := ledger.ListFilter(c.DefaultQuery("filter", string(ledger.FilterActive)))
		if filter != ledger.FilterActive && filter != ledger.FilterHistory {
			h.fail(c, badRequest("filter must be %s or %s", ledger.FilterActive, ledger.FilterHistory))
			return
		}
		limit := ledger.DefaultListLimit
		if raw := c.Query("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 || n > ledger.MaxListLimit {
				h.fail(c, badRequest("limit must be between 1 and %d", ledger.MaxListLimit))
				return
			}
			limit = n
		}
		list, err := h.ledger.List(c.Request.Context(), congregationID(c), filter, limit)
		if err != nil {
			h.fail(c, err)
			return
		}
		out := make([]assignmentView, len(list))
		for i := range list {
			out[i] = newAssignmentView(&list[i])
		}
		c.JSON(http.StatusOK, out)
	}
}

func (h *handlers) createAssignment() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			TerritoryID string `json:"territoryId"`
			ManagerID   string `json:"managerId"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			h.fail(c, badRequest("%v", err))
			return
		}
		if req.TerritoryID == "" || req.ManagerID == "" {
			h.fail(c, badRequest("territoryId and managerId are required"))
			return
		}
		a, err := h.ledger.Assign(c.Request.Context(), congregationID(c), req.TerritoryID, req.ManagerID)
		if err != nil {
			h.fail(c, err)
			return
		}
		h.log.WithField("assignment_id", a.ID).Info("territory assigned from admin panel")
		c.JSON(http.StatusCreated, newAssignmentView(a))
	}
}

func (h *handlers) completeAssignment() gin.HandlerFunc {
	return func(c *gin.Context) {
		a, err := h.ledger.Complete(c.Request.Context(), congregationID(c), c.Param("id"))
		if err != nil {
			h.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, newAssignmentView(a))
	}
}

func (h *handlers) revokeAssignment() gin.HandlerFunc {
	return func(c *gin.Context) {
		a, err := h.ledger.Revoke(c.Request.Context(), congregationID(c), c.Param("id"))
		if err != nil {
			h.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, newAssignmentView(a))
	}
}
