package reports

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sitebooks/backoffice/config"
	"github.com/sitebooks/backoffice/models"
	"github.com/sitebooks/backoffice/utils"
)

type MemberInvoiceFilter struct {
	StartDate     *time.Time            `form:"start_date" time_format:"2006-01-02"`
	EndDate       *time.Time            `form:"end_date" time_format:"2006-01-02"`
	ClientId      *int                  `form:"client_id"`
	ProjectId     *int                  `form:"project_id"`
	PaymentStatus *models.PaymentStatus `form:"payment_status"`
}

type MemberInvoiceSummaryRow struct {
	ClientId     int             `json:"client_id"`
	ClientName   string          `json:"client_name"`
	InvoiceCount int             `json:"invoice_count"`
	ProjectCount int             `json:"project_count"`
	Total        decimal.Decimal `json:"total"`
	Credit       decimal.Decimal `json:"credit"`
	Outstanding  decimal.Decimal `json:"outstanding"`
}

type MemberInvoiceSummary struct {
	Members          []*MemberInvoiceSummaryRow `json:"members"`
	InvoiceCount     int                        `json:"invoice_count"`
	Total            decimal.Decimal            `json:"total"`
	Credit           decimal.Decimal            `json:"credit"`
	Outstanding      decimal.Decimal            `json:"outstanding"`
	DistinctProjects int                        `json:"distinct_projects"`
}

// BuildMemberInvoiceSummary totals live, non-cancelled invoices per client.
// An invoice shared by several clients counts once for each of them and once overall.
func BuildMemberInvoiceSummary(ctx context.Context, filter MemberInvoiceFilter) (*MemberInvoiceSummary, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, utils.NewValidationError("business id is required")
	}
	start, end, windowed := filter.window()
	if windowed && end.Before(start) {
		return nil, utils.NewValidationError("end date must not be before start date")
	}
	started := time.Now()

	db := config.GetDB().WithContext(ctx)
	q := db.Where("business_id = ? AND kind = ? AND removed = ? AND status <> ?",
		businessId, models.DocumentKindInvoice, false, models.DocumentStatusCancelled)
	if filter.ProjectId != nil {
		q = q.Where("project_id = ?", *filter.ProjectId)
	}
	if filter.PaymentStatus != nil {
		q = q.Where("payment_status = ?", *filter.PaymentStatus)
	}
	var invoices []*models.FinancialDocument
	if err := q.Order("id").Find(&invoices).Error; err != nil {
		return nil, err
	}
	if windowed {
		kept := invoices[:0]
		for _, inv := range invoices {
			if touchedInWindow(inv.CreatedAt, inv.UpdatedAt, start, end) {
				kept = append(kept, inv)
			}
		}
		invoices = kept
	}

	ids := make([]int, 0, len(invoices))
	for _, inv := range invoices {
		ids = append(ids, inv.ID)
	}
	clientIdsByInvoice, err := models.GetDocumentClientIds(ctx, ids)
	if err != nil {
		return nil, err
	}
	var allClientIds []int
	for _, cids := range clientIdsByInvoice {
		allClientIds = append(allClientIds, cids...)
	}
	clients, err := models.GetClientsByIds(ctx, utils.UniqueSlice(allClientIds))
	if err != nil {
		return nil, err
	}
	names := make(map[int]string, len(clients))
	for _, c := range clients {
		names[c.ID] = c.Name
	}

	summary := &MemberInvoiceSummary{
		Members:     []*MemberInvoiceSummaryRow{},
		Total:       decimal.Zero,
		Credit:      decimal.Zero,
		Outstanding: decimal.Zero,
	}
	rows := make(map[int]*MemberInvoiceSummaryRow)
	projectsByClient := make(map[int]map[int]struct{})
	allProjects := make(map[int]struct{})
	for _, inv := range invoices {
		counted := false
		for _, cid := range clientIdsByInvoice[inv.ID] {
			if filter.ClientId != nil && *filter.ClientId != cid {
				continue
			}
			row, ok := rows[cid]
			if !ok {
				row = &MemberInvoiceSummaryRow{
					ClientId:    cid,
					ClientName:  names[cid],
					Total:       decimal.Zero,
					Credit:      decimal.Zero,
					Outstanding: decimal.Zero,
				}
				rows[cid] = row
				projectsByClient[cid] = make(map[int]struct{})
				summary.Members = append(summary.Members, row)
			}
			row.InvoiceCount++
			row.Total = row.Total.Add(inv.Total)
			row.Credit = row.Credit.Add(inv.Credit)
			row.Outstanding = row.Total.Sub(row.Credit)
			if inv.ProjectId != nil {
				projectsByClient[cid][*inv.ProjectId] = struct{}{}
			}
			counted = true
		}
		if !counted {
			continue
		}
		summary.InvoiceCount++
		summary.Total = summary.Total.Add(inv.Total)
		summary.Credit = summary.Credit.Add(inv.Credit)
		if inv.ProjectId != nil {
			allProjects[*inv.ProjectId] = struct{}{}
		}
	}
	for _, row := range summary.Members {
		row.ProjectCount = len(projectsByClient[row.ClientId])
	}
	sort.SliceStable(summary.Members, func(i, j int) bool {
		return summary.Members[i].ClientName < summary.Members[j].ClientName
	})
	summary.Outstanding = summary.Total.Sub(summary.Credit)
	summary.DistinctProjects = len(allProjects)

	logSlowReport(ctx, "member_invoice_summary", started, map[string]any{"invoices": summary.InvoiceCount})
	return summary, nil
}

// window returns the date window of the filter; an open side is unbounded.
func (f MemberInvoiceFilter) window() (time.Time, time.Time, bool) {
	if f.StartDate == nil && f.EndDate == nil {
		return time.Time{}, time.Time{}, false
	}
	start := time.Time{}
	end := time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)
	if f.StartDate != nil {
		start = *f.StartDate
	}
	if f.EndDate != nil {
		end = *f.EndDate
	}
	return start, end, true
}
