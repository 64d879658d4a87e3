package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/zulandar/territorio/internal/bot"
	"github.com/zulandar/territorio/internal/ledger"
)

type handlers struct {
	ledger *ledger.Ledger
	inbox  Submitter
	log    logrus.FieldLogger
}

// registerRoutes sets up all routes on the gin router.
func registerRoutes(router *gin.Engine, h *handlers, secret []byte) {
	router.GET("/", handleHealth())
	router.POST("/webhook/evolution", h.handleWebhook())

	api := router.Group("/api", requireAuth(secret))

	api.GET("/congregation", h.getCongregation())

	api.GET("/territories", h.listTerritories())
	api.POST("/territories", h.createTerritory())
	api.GET("/territories/:id", h.getTerritory())
	api.PATCH("/territories/:id", h.updateTerritory())
	api.DELETE("/territories/:id", h.deleteTerritory())

	api.GET("/managers", h.listManagers())
	api.POST("/managers", h.createManager())
	api.GET("/managers/:id", h.getManager())
	api.PATCH("/managers/:id", h.updateManager())
	api.POST("/managers/:id/active", h.setManagerActive())

	api.GET("/assignments", h.listAssignments())
	api.POST("/assignments", h.createAssignment())
	api.POST("/assignments/:id/complete", h.completeAssignment())
	api.POST("/assignments/:id/revoke", h.revokeAssignment())
}

func handleHealth() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": ServiceName})
	}
}

// handleWebhook queues message events for the bot and always acknowledges,
// so Evolution never retries a delivery.
func (h *handlers) handleWebhook() gin.HandlerFunc {
	return func(c *gin.Context) {
		var ev bot.Event
		if err := c.ShouldBindJSON(&ev); err != nil {
			h.log.WithError(err).Warn("malformed webhook payload")
			c.JSON(http.StatusOK, gin.H{"received": true})
			return
		}
		if ev.Type == bot.EventMessagesUpsert {
			h.inbox.Submit(ev)
		}
		c.JSON(http.StatusOK, gin.H{"received": true})
	}
}
