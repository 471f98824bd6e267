package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sitebooks/backoffice/models"
)

type rescheduleRequest struct {
	StartDate time.Time `json:"start_date" binding:"required"`
	Days      int       `json:"days"`
}

func (h *Handler) registerWorkProgressRoutes(api *gin.RouterGroup) {
	g := api.Group("/work-progress")
	g.GET("", h.listWorkProgress)
	g.POST("", h.createWorkProgress)
	g.GET("/:id", h.getWorkProgress)
	g.POST("/:id/entries", h.recordWorkProgress)
	g.PUT("/:id/schedule", h.rescheduleWorkProgress)
	g.DELETE("/:id", h.removeWorkProgress)
}

func (h *Handler) listWorkProgress(c *gin.Context) {
	projectId, ok := optionalIntQuery(c, "project_id")
	if !ok {
		return
	}
	workerId, ok := optionalIntQuery(c, "contractor_employee_id")
	if !ok {
		return
	}
	results, err := models.GetWorkProgresses(c.Request.Context(), projectId, workerId)
	if err != nil {
		h.respondError(c, "listWorkProgress", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": results})
}

func (h *Handler) createWorkProgress(c *gin.Context) {
	var input models.NewWorkProgress
	if !bindJSON(c, &input) {
		return
	}
	wp, err := models.CreateWorkProgress(c.Request.Context(), &input)
	if err != nil {
		h.respondError(c, "createWorkProgress", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": wp})
}

func (h *Handler) getWorkProgress(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	wp, err := models.GetWorkProgress(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, "getWorkProgress", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": wp})
}

func (h *Handler) recordWorkProgress(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var input models.NewWorkProgressEntry
	if !bindJSON(c, &input) {
		return
	}
	wp, err := models.RecordWorkProgress(c.Request.Context(), id, &input)
	if err != nil {
		h.respondError(c, "recordWorkProgress", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": wp})
}

func (h *Handler) rescheduleWorkProgress(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var req rescheduleRequest
	if !bindJSON(c, &req) {
		return
	}
	wp, err := models.RescheduleWorkProgress(c.Request.Context(), id, req.StartDate, req.Days)
	if err != nil {
		h.respondError(c, "rescheduleWorkProgress", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": wp})
}

func (h *Handler) removeWorkProgress(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	wp, err := models.RemoveWorkProgress(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, "removeWorkProgress", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": wp})
}
