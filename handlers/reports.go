package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sitebooks/backoffice/models/reports"
	"github.com/sitebooks/backoffice/utils"
	"github.com/xuri/excelize/v2"
)

const excelContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func (h *Handler) registerReportRoutes(api *gin.RouterGroup) {
	g := api.Group("/reports")
	g.GET("/projects", h.projectReport)
	g.GET("/member-invoices", h.memberInvoiceSummary)
	g.DELETE("/cache", h.invalidateReportCache)
}

func (h *Handler) projectReport(c *gin.Context) {
	start, ok := dateQuery(c, "start_date")
	if !ok {
		return
	}
	end, ok := dateQuery(c, "end_date")
	if !ok {
		return
	}
	report, err := reports.BuildProjectReport(c.Request.Context(), start, end)
	if err != nil {
		h.respondError(c, "projectReport", err)
		return
	}
	if c.Query("format") != "xlsx" {
		c.JSON(http.StatusOK, gin.H{"data": report})
		return
	}
	f, err := reports.ExportProjectReportExcel(report)
	if err != nil {
		h.respondError(c, "projectReport", err)
		return
	}
	h.writeExcel(c, f, fmt.Sprintf("project-report_%s_%s.xlsx", start.Format("20060102"), end.Format("20060102")))
}

func (h *Handler) memberInvoiceSummary(c *gin.Context) {
	var filter reports.MemberInvoiceFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}
	summary, err := reports.BuildMemberInvoiceSummary(c.Request.Context(), filter)
	if err != nil {
		h.respondError(c, "memberInvoiceSummary", err)
		return
	}
	if c.Query("format") != "xlsx" {
		c.JSON(http.StatusOK, gin.H{"data": summary})
		return
	}
	f, err := reports.ExportMemberInvoiceSummaryExcel(summary)
	if err != nil {
		h.respondError(c, "memberInvoiceSummary", err)
		return
	}
	h.writeExcel(c, f, "member-invoice-summary.xlsx")
}

func (h *Handler) writeExcel(c *gin.Context, f *excelize.File, filename string) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Header("Content-Type", excelContentType)
	c.Status(http.StatusOK)
	if err := reports.WriteExcel(c.Writer, f); err != nil {
		h.Logger.WithField("filename", filename).Error("write excel: " + err.Error())
	}
}

func (h *Handler) invalidateReportCache(c *gin.Context) {
	businessId, _ := utils.GetBusinessIdFromContext(c.Request.Context())
	if err := reports.InvalidateReportCache(c.Request.Context(), businessId); err != nil {
		h.respondError(c, "invalidateReportCache", err)
		return
	}
	c.Status(http.StatusNoContent)
}
