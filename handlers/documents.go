package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/sitebooks/backoffice/middlewares"
	"github.com/sitebooks/backoffice/models"
	"github.com/sitebooks/backoffice/utils"
)

var documentPaths = map[string]models.DocumentKind{
	"quotes":          models.DocumentKindQuote,
	"supplier-quotes": models.DocumentKindSupplierQuote,
	"invoices":        models.DocumentKindInvoice,
	"ship-quotes":     models.DocumentKindShipQuote,
}

type statusRequest struct {
	Status models.DocumentStatus `json:"status" binding:"required"`
}

type convertToSupplierQuoteRequest struct {
	PoNumber string `json:"po_number" binding:"required"`
}

type paymentRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

type creditRequest struct {
	Credit decimal.Decimal `json:"credit"`
}

// documentListItem is a list row with clients and project name filled in by the loaders.
type documentListItem struct {
	*models.FinancialDocument
	ProjectName string `json:"project_name,omitempty"`
}

func (h *Handler) registerDocumentRoutes(api *gin.RouterGroup) {
	for path, kind := range documentPaths {
		g := api.Group("/" + path)
		g.GET("", h.listDocuments(kind))
		g.POST("", h.createDocument(kind))
		g.GET("/:id", h.getDocument(kind))
		g.PUT("/:id", h.updateDocument(kind))
		g.PATCH("/:id/status", h.setDocumentStatus(kind))
		g.DELETE("/:id", h.removeDocument(kind))
		g.GET("/:id/history", h.documentHistory(kind))
	}

	api.POST("/quotes/:id/convert/supplier-quote", h.convertToSupplierQuote)
	api.POST("/quotes/:id/convert/invoice", h.convertToInvoice)
	api.POST("/invoices/:id/payments", h.recordInvoicePayment)
	api.PUT("/invoices/:id/credit", h.setInvoiceCredit)
	api.POST("/calculator", h.calculateTotals)
}

// loadDocumentOfKind reads a document and hides it when it belongs to another kind.
func loadDocumentOfKind(c *gin.Context, kind models.DocumentKind, id int) (*models.FinancialDocument, error) {
	doc, err := models.GetFinancialDocument(c.Request.Context(), id)
	if err != nil {
		return nil, err
	}
	if doc.Kind != kind {
		return nil, utils.NewNotFoundError(kind.ReferenceType(), id)
	}
	return doc, nil
}

func (h *Handler) listDocuments(kind models.DocumentKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		filter := models.DocumentFilter{Kind: kind, Number: c.Query("number")}
		var ok bool
		if filter.ProjectId, ok = optionalIntQuery(c, "project_id"); !ok {
			return
		}
		if filter.ClientId, ok = optionalIntQuery(c, "client_id"); !ok {
			return
		}
		if status := c.Query("status"); status != "" {
			s := models.DocumentStatus(status)
			filter.Status = &s
		}
		if paymentStatus := c.Query("payment_status"); paymentStatus != "" {
			ps := models.PaymentStatus(paymentStatus)
			filter.PaymentStatus = &ps
		}

		ctx := c.Request.Context()
		docs, err := models.GetFinancialDocuments(ctx, filter)
		if err != nil {
			h.respondError(c, "listDocuments", err)
			return
		}

		ids := make([]int, len(docs))
		for i, d := range docs {
			ids[i] = d.ID
		}
		clients, errs := middlewares.GetDocumentClientsMany(ctx, ids)
		for _, err := range errs {
			if err != nil {
				h.respondError(c, "listDocuments", err)
				return
			}
		}

		items := make([]documentListItem, len(docs))
		for i, d := range docs {
			d.Clients = clients[i]
			items[i] = documentListItem{FinancialDocument: d}
			if d.ProjectId != nil {
				project, err := middlewares.GetProject(ctx, *d.ProjectId)
				if err != nil {
					h.respondError(c, "listDocuments", err)
					return
				}
				if project != nil {
					items[i].ProjectName = project.Name
				}
			}
		}
		c.JSON(http.StatusOK, gin.H{"data": items})
	}
}

func (h *Handler) createDocument(kind models.DocumentKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewFinancialDocument
		if !bindJSON(c, &input) {
			return
		}
		doc, err := models.CreateFinancialDocument(c.Request.Context(), kind, &input)
		if err != nil {
			h.respondError(c, "createDocument", err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"data": doc})
	}
}

func (h *Handler) getDocument(kind models.DocumentKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c)
		if !ok {
			return
		}
		doc, err := loadDocumentOfKind(c, kind, id)
		if err != nil {
			h.respondError(c, "getDocument", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": doc})
	}
}

func (h *Handler) updateDocument(kind models.DocumentKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c)
		if !ok {
			return
		}
		var input models.NewFinancialDocument
		if !bindJSON(c, &input) {
			return
		}
		if _, err := loadDocumentOfKind(c, kind, id); err != nil {
			h.respondError(c, "updateDocument", err)
			return
		}
		doc, err := models.UpdateFinancialDocument(c.Request.Context(), id, &input)
		if err != nil {
			h.respondError(c, "updateDocument", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": doc})
	}
}

func (h *Handler) setDocumentStatus(kind models.DocumentKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c)
		if !ok {
			return
		}
		var req statusRequest
		if !bindJSON(c, &req) {
			return
		}
		if _, err := loadDocumentOfKind(c, kind, id); err != nil {
			h.respondError(c, "setDocumentStatus", err)
			return
		}
		doc, err := models.SetDocumentStatus(c.Request.Context(), id, req.Status)
		if err != nil {
			h.respondError(c, "setDocumentStatus", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": doc})
	}
}

func (h *Handler) removeDocument(kind models.DocumentKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c)
		if !ok {
			return
		}
		if _, err := loadDocumentOfKind(c, kind, id); err != nil {
			h.respondError(c, "removeDocument", err)
			return
		}
		doc, err := models.RemoveFinancialDocument(c.Request.Context(), id)
		if err != nil {
			h.respondError(c, "removeDocument", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": doc})
	}
}

func (h *Handler) documentHistory(kind models.DocumentKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c)
		if !ok {
			return
		}
		histories, err := models.GetHistories(c.Request.Context(), kind.ReferenceType(), id)
		if err != nil {
			h.respondError(c, "documentHistory", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": histories})
	}
}

func (h *Handler) convertToSupplierQuote(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var req convertToSupplierQuoteRequest
	if !bindJSON(c, &req) {
		return
	}
	doc, err := models.ConvertQuoteToSupplierQuote(c.Request.Context(), id, req.PoNumber)
	if err != nil {
		h.respondError(c, "convertToSupplierQuote", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": doc})
}

func (h *Handler) convertToInvoice(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	doc, err := models.ConvertQuoteToInvoice(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, "convertToInvoice", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": doc})
}

func (h *Handler) recordInvoicePayment(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var req paymentRequest
	if !bindJSON(c, &req) {
		return
	}
	doc, err := models.RecordInvoicePayment(c.Request.Context(), id, req.Amount)
	if err != nil {
		h.respondError(c, "recordInvoicePayment", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": doc})
}

func (h *Handler) setInvoiceCredit(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var req creditRequest
	if !bindJSON(c, &req) {
		return
	}
	doc, err := models.SetInvoiceCredit(c.Request.Context(), id, req.Credit)
	if err != nil {
		h.respondError(c, "setInvoiceCredit", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": doc})
}

type calculatorRequest struct {
	Discount decimal.Decimal `json:"discount"`
	Items    []struct {
		Quantity decimal.Decimal `json:"quantity"`
		Price    decimal.Decimal `json:"price"`
	} `json:"items"`
}

// calculateTotals previews document totals without saving anything.
func (h *Handler) calculateTotals(c *gin.Context) {
	var req calculatorRequest
	if !bindJSON(c, &req) {
		return
	}
	items := make([]models.DocumentItem, len(req.Items))
	for i, it := range req.Items {
		items[i] = models.DocumentItem{Quantity: it.Quantity, Price: decimal.NewNullDecimal(it.Price)}
	}
	totals, err := models.ComputeTotals(items, req.Discount)
	if err != nil {
		h.respondError(c, "calculateTotals", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": totals})
}
