package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sitebooks/backoffice/utils"
)

func (h *Handler) registerOutboxRoutes(api *gin.RouterGroup) {
	api.POST("/outbox/requeue-dead", h.requeueDeadOutbox)
}

// requeueDeadOutbox makes the tenant's dead outbox rows eligible for publishing again.
func (h *Handler) requeueDeadOutbox(c *gin.Context) {
	dispatcher := h.dispatcher.Load()
	if dispatcher == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "outbox dispatcher is not running"})
		return
	}
	businessId, _ := utils.GetBusinessIdFromContext(c.Request.Context())
	count, err := dispatcher.RequeueDead(c.Request.Context(), businessId)
	if err != nil {
		h.respondError(c, "requeueDeadOutbox", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"business_id": businessId, "requeued": count})
}
