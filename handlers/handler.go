package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"github.com/sitebooks/backoffice/config"
	"github.com/sitebooks/backoffice/middlewares"
	"github.com/sitebooks/backoffice/utils"
	"github.com/sitebooks/backoffice/workflow"
)

// Handler serves the REST surface. The dispatcher stays nil while outbox publishing is off.
type Handler struct {
	Logger     *logrus.Logger
	dispatcher atomic.Pointer[workflow.OutboxDispatcher]
}

func NewHandler(logger *logrus.Logger, dispatcher *workflow.OutboxDispatcher) *Handler {
	if logger == nil {
		logger = config.GetLogger()
	}
	h := &Handler{Logger: logger}
	h.SetDispatcher(dispatcher)
	return h
}

// SetDispatcher installs the dispatcher once it has been started, after routes are mounted.
func (h *Handler) SetDispatcher(d *workflow.OutboxDispatcher) {
	h.dispatcher.Store(d)
}

// RegisterRoutes mounts every tenant route under /api.
func (h *Handler) RegisterRoutes(r gin.IRouter) {
	api := r.Group("/api", middlewares.RequireTenant(), middlewares.LoaderMiddleware())

	h.registerDocumentRoutes(api)
	h.registerStockMovementRoutes(api)
	h.registerMasterDataRoutes(api)
	h.registerWorkProgressRoutes(api)
	h.registerReportRoutes(api)
	h.registerOutboxRoutes(api)
}

// respondError maps domain error kinds to HTTP status codes.
func (h *Handler) respondError(c *gin.Context, funcName string, err error) {
	switch utils.KindOf(err) {
	case utils.KindValidation:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case utils.KindNotFound:
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case utils.KindInvalidState:
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		correlationId, _ := utils.GetCorrelationIdFromContext(c.Request.Context())
		config.LogError(h.Logger, "handlers", funcName, c.FullPath(), correlationId, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

// bindJSON answers 400 with per-field validator tags when binding fails.
func bindJSON(c *gin.Context, dest any) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "fields": utils.ProcessValidationErrors(err)})
			return false
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return false
	}
	return true
}

func idParam(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

func optionalIntQuery(c *gin.Context, key string) (*int, bool) {
	raw := c.Query(key)
	if raw == "" {
		return nil, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + key})
		return nil, false
	}
	return &v, true
}

func optionalStringQuery(c *gin.Context, key string) *string {
	return utils.NilIfEmpty(c.Query(key))
}

func dateQuery(c *gin.Context, key string) (time.Time, bool) {
	raw := c.Query(key)
	if raw == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": key + " is required"})
		return time.Time{}, false
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + key + ", expected YYYY-MM-DD"})
		return time.Time{}, false
	}
	return t, true
}
