package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sitebooks/backoffice/models"
)

func (h *Handler) registerStockMovementRoutes(api *gin.RouterGroup) {
	for path, movementType := range map[string]models.MovementType{
		"outbounds": models.MovementTypeOutbound,
		"returns":   models.MovementTypeReturn,
	} {
		g := api.Group("/" + path)
		g.GET("", h.listStockMovements(movementType))
		g.POST("", h.createStockMovement(movementType))
		g.GET("/:id", h.getStockMovement(movementType))
		g.PUT("/:id", h.updateStockMovement(movementType))
		g.DELETE("/:id", h.removeStockMovement(movementType))
		g.POST("/:id/confirm", h.confirmStockMovement(movementType))
		g.POST("/:id/cancel", h.cancelStockMovement(movementType))
	}
	api.GET("/inventory-records", h.listInventoryRecords)
}

func (h *Handler) listStockMovements(movementType models.MovementType) gin.HandlerFunc {
	return func(c *gin.Context) {
		projectId, ok := optionalIntQuery(c, "project_id")
		if !ok {
			return
		}
		var status *models.MovementStatus
		if raw := c.Query("status"); raw != "" {
			s := models.MovementStatus(raw)
			status = &s
		}
		movements, err := models.GetStockMovements(c.Request.Context(), movementType, projectId, status)
		if err != nil {
			h.respondError(c, "listStockMovements", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": movements})
	}
}

func (h *Handler) createStockMovement(movementType models.MovementType) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewStockMovement
		if !bindJSON(c, &input) {
			return
		}
		var (
			movement *models.ProjectStockMovement
			err      error
		)
		if movementType == models.MovementTypeOutbound {
			movement, err = models.CreateProjectOutbound(c.Request.Context(), &input)
		} else {
			movement, err = models.CreateProjectReturn(c.Request.Context(), &input)
		}
		if err != nil {
			h.respondError(c, "createStockMovement", err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"data": movement})
	}
}

func (h *Handler) getStockMovement(movementType models.MovementType) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c)
		if !ok {
			return
		}
		movement, err := models.GetStockMovement(c.Request.Context(), movementType, id)
		if err != nil {
			h.respondError(c, "getStockMovement", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": movement})
	}
}

func (h *Handler) updateStockMovement(movementType models.MovementType) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c)
		if !ok {
			return
		}
		var input models.NewStockMovement
		if !bindJSON(c, &input) {
			return
		}
		movement, err := models.UpdateStockMovement(c.Request.Context(), movementType, id, &input)
		if err != nil {
			h.respondError(c, "updateStockMovement", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": movement})
	}
}

func (h *Handler) removeStockMovement(movementType models.MovementType) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c)
		if !ok {
			return
		}
		movement, err := models.RemoveStockMovement(c.Request.Context(), movementType, id)
		if err != nil {
			h.respondError(c, "removeStockMovement", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": movement})
	}
}

func (h *Handler) confirmStockMovement(movementType models.MovementType) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c)
		if !ok {
			return
		}
		var (
			movement *models.ProjectStockMovement
			err      error
		)
		if movementType == models.MovementTypeOutbound {
			movement, err = models.ConfirmOutbound(c.Request.Context(), id)
		} else {
			movement, err = models.ConfirmReturn(c.Request.Context(), id)
		}
		if err != nil {
			h.respondError(c, "confirmStockMovement", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": movement})
	}
}

func (h *Handler) cancelStockMovement(movementType models.MovementType) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c)
		if !ok {
			return
		}
		movement, err := models.CancelStockMovement(c.Request.Context(), movementType, id)
		if err != nil {
			h.respondError(c, "cancelStockMovement", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": movement})
	}
}

func (h *Handler) listInventoryRecords(c *gin.Context) {
	itemId, ok := optionalIntQuery(c, "inventory_item_id")
	if !ok {
		return
	}
	records, err := models.GetInventoryRecords(c.Request.Context(), itemId, "", 0)
	if err != nil {
		h.respondError(c, "listInventoryRecords", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": records})
}
