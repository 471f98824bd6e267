package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/sitebooks/backoffice/config"
	"github.com/sitebooks/backoffice/middlewares"
	"github.com/sitebooks/backoffice/models"
	"github.com/sitebooks/backoffice/utils"
	"github.com/sitebooks/backoffice/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

type testServer struct {
	router  *gin.Engine
	handler *Handler
	token   string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	t.Setenv("JWT_SECRET", "handler-secret")

	dsn := filepath.Join(t.TempDir(), "handlers.db") + "?_pragma=busy_timeout(5000)"
	conn, err := gorm.Open(sqlite.Open(dsn), config.GormConfig())
	require.NoError(t, err)
	require.NoError(t, config.RegisterPlugins(conn))
	require.NoError(t, models.AutoMigrate(conn))
	previous := config.GetDB()
	config.SetDB(conn)
	t.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			sqlDB.Close()
		}
		config.SetDB(previous)
	})

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	r := gin.New()
	r.Use(middlewares.AuthMiddleware())
	h := NewHandler(logger, nil)
	h.RegisterRoutes(r)

	token, err := utils.JwtGenerate(3, "site.manager", "biz-http", "owner", time.Hour)
	require.NoError(t, err)
	return &testServer{router: r, handler: h, token: token}
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.token)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decodeData[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var envelope struct {
		Data T `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope), w.Body.String())
	return envelope.Data
}

func TestRoutesRequireTenant(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/clients", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestQuoteToInvoiceOverHTTP(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/clients", gin.H{"name": "Alpha Builders"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	client := decodeData[models.Client](t, w)

	w = s.do(t, http.MethodPost, "/api/quotes", gin.H{
		"client_ids": []int{client.ID},
		"discount":   "10",
		"items": []gin.H{
			{"item_name": "Rebar", "quantity": "10", "price": "100", "po_number": "PO-A"},
			{"item_name": "Cement", "quantity": "8", "price": "100", "po_number": "PO-B"},
		},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	quote := decodeData[models.FinancialDocument](t, w)
	assert.True(t, decimal.RequireFromString("1620").Equal(quote.Total), quote.Total.String())

	w = s.do(t, http.MethodGet, fmt.Sprintf("/api/invoices/%d", quote.ID), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodPost, fmt.Sprintf("/api/quotes/%d/convert/supplier-quote", quote.ID), gin.H{"po_number": "PO-Z"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, fmt.Sprintf("/api/quotes/%d/convert/invoice", quote.ID), nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	invoice := decodeData[models.FinancialDocument](t, w)
	assert.Equal(t, models.DocumentKindInvoice, invoice.Kind)
	assert.Equal(t, models.PaymentStatusUnpaid, invoice.PaymentStatus)

	w = s.do(t, http.MethodPost, fmt.Sprintf("/api/quotes/%d/convert/invoice", quote.ID), nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(t, http.MethodPost, fmt.Sprintf("/api/invoices/%d/payments", invoice.ID), gin.H{"amount": "0"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, fmt.Sprintf("/api/invoices/%d/payments", invoice.ID), gin.H{"amount": "620"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, models.PaymentStatusPartially, decodeData[models.FinancialDocument](t, w).PaymentStatus)

	w = s.do(t, http.MethodGet, "/api/invoices?payment_status=partially", nil)
	require.Equal(t, http.StatusOK, w.Code)
	listed := decodeData[[]models.FinancialDocument](t, w)
	require.Len(t, listed, 1)
	require.Len(t, listed[0].Clients, 1)
	assert.Equal(t, "Alpha Builders", listed[0].Clients[0].Name)

	w = s.do(t, http.MethodGet, fmt.Sprintf("/api/quotes/%d/history", quote.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeData[[]models.History](t, w), 2)

	w = s.do(t, http.MethodGet, "/api/quotes/999", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = s.do(t, http.MethodGet, "/api/quotes/abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBindingErrorsListFields(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodPost, "/api/clients", gin.H{"email": "not-an-email"})
	require.Equal(t, http.StatusBadRequest, w.Code)

	var body struct {
		Fields map[string]string `json:"fields"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "required", body.Fields["Name"])
	assert.Equal(t, "email", body.Fields["Email"])
}

func TestStockMovementOverHTTP(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/projects", gin.H{"name": "Harbour Lofts"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	project := decodeData[models.Project](t, w)

	w = s.do(t, http.MethodPost, "/api/inventory-items", gin.H{"name": "Rebar", "unit": "pcs", "cost": "12.5", "quantity": "20"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	item := decodeData[models.InventoryItem](t, w)

	w = s.do(t, http.MethodPost, "/api/outbounds", gin.H{
		"project_id": project.ID,
		"items":      []gin.H{{"inventory_item_id": item.ID, "quantity": "50"}},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	movement := decodeData[models.ProjectStockMovement](t, w)

	w = s.do(t, http.MethodPost, fmt.Sprintf("/api/outbounds/%d/confirm", movement.ID), nil)
	assert.Equal(t, http.StatusConflict, w.Code, w.Body.String())

	w = s.do(t, http.MethodPut, fmt.Sprintf("/api/outbounds/%d", movement.ID), gin.H{
		"project_id": project.ID,
		"items":      []gin.H{{"inventory_item_id": item.ID, "quantity": "5"}},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(t, http.MethodPost, fmt.Sprintf("/api/outbounds/%d/confirm", movement.ID), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, models.MovementStatusConfirmed, decodeData[models.ProjectStockMovement](t, w).Status)

	w = s.do(t, http.MethodGet, fmt.Sprintf("/api/returns/%d", movement.ID), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodGet, fmt.Sprintf("/api/inventory-items/%d", item.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	got := decodeData[models.InventoryItem](t, w)
	assert.True(t, decimal.NewFromInt(15).Equal(got.Quantity), got.Quantity.String())

	w = s.do(t, http.MethodGet, fmt.Sprintf("/api/inventory-records?inventory_item_id=%d", item.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	records := decodeData[[]models.InventoryRecord](t, w)
	require.NotEmpty(t, records)
	assert.Equal(t, models.InventoryRecordTypeOut, records[len(records)-1].Type)
}

func TestProjectReportDownload(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodPost, "/api/projects", gin.H{"name": "Harbour Lofts"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	today := time.Now().UTC().Format(time.DateOnly)

	w = s.do(t, http.MethodGet, "/api/reports/projects?start_date="+today, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodGet, "/api/reports/projects?start_date="+today+"&end_date="+today+"&format=xlsx", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, excelContentType, w.Header().Get("Content-Type"))

	f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	name, err := f.GetCellValue("Project Report", "A2")
	require.NoError(t, err)
	assert.Equal(t, "Harbour Lofts", name)
}

func TestCalculatorPreview(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodPost, "/api/calculator", gin.H{
		"discount": "10",
		"items":    []gin.H{{"quantity": "3", "price": "19.99"}},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	totals := decodeData[models.Totals](t, w)
	assert.True(t, decimal.RequireFromString("59.97").Equal(totals.SubTotal), totals.SubTotal.String())

	w = s.do(t, http.MethodPost, "/api/calculator", gin.H{"items": []gin.H{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestOutboxRequeueWithoutDispatcher(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodPost, "/api/outbox/requeue-dead", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestOutboxRequeueDead(t *testing.T) {
	s := newTestServer(t)
	db := config.GetDB()
	for _, biz := range []string{"biz-http", "biz-other"} {
		require.NoError(t, db.Create(&models.OutboxMessage{
			BusinessId:      biz,
			EventType:       string(models.EventDocumentConverted),
			OccurredAt:      time.Now().UTC(),
			Payload:         []byte(`{}`),
			PublishStatus:   models.OutboxPublishStatusDead,
			PublishAttempts: 20,
		}).Error)
	}
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	s.handler.SetDispatcher(workflow.NewOutboxDispatcher(db, logger, nil))

	w := s.do(t, http.MethodPost, "/api/outbox/requeue-dead", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var body struct {
		Requeued int64 `json:"requeued"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, int64(1), body.Requeued)

	var other models.OutboxMessage
	require.NoError(t, db.Where("business_id = ?", "biz-other").First(&other).Error)
	assert.Equal(t, models.OutboxPublishStatusDead, other.PublishStatus)
}
