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

type ProjectReportRow struct {
	ProjectId         int                  `json:"project_id"`
	ProjectName       string               `json:"project_name"`
	Status            models.ProjectStatus `json:"status"`
	SalaryTotal       decimal.Decimal      `json:"salary_total"`
	SalaryRecordCount int                  `json:"salary_record_count"`
	EmployeeCount     int                  `json:"employee_count"`
	InvoicedTotal     decimal.Decimal      `json:"invoiced_total"`
	Net               decimal.Decimal      `json:"net"`
}

type ProjectReport struct {
	StartDate         time.Time           `json:"start_date"`
	EndDate           time.Time           `json:"end_date"`
	Projects          []*ProjectReportRow `json:"projects"`
	TotalSalary       decimal.Decimal     `json:"total_salary"`
	TotalInvoiced     decimal.Decimal     `json:"total_invoiced"`
	DistinctEmployees int                 `json:"distinct_employees"`
	Net               decimal.Decimal     `json:"net"`
}

// touchedInWindow is the report window test: created or updated inside the window.
func touchedInWindow(createdAt, updatedAt, start, end time.Time) bool {
	return utils.InWindow(createdAt, start, end) || utils.InWindow(updatedAt, start, end)
}

// BuildProjectReport sums salary and invoiced amounts per project touched in
// [start, end]. Salary records and invoices are windowed on their own timestamps.
func BuildProjectReport(ctx context.Context, start time.Time, end time.Time) (*ProjectReport, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, utils.NewValidationError("business id is required")
	}
	if end.Before(start) {
		return nil, utils.NewValidationError("end date must not be before start date")
	}

	started := time.Now()
	cacheKey := reportCacheKey("project", businessId, start.Format(time.RFC3339), end.Format(time.RFC3339))
	var cached ProjectReport
	if hit, err := cacheGet(ctx, cacheKey, &cached); err == nil && hit {
		return &cached, nil
	}

	db := config.GetDB().WithContext(ctx)
	var projects []*models.Project
	if err := db.Where("business_id = ? AND removed = ?", businessId, false).Order("id").Find(&projects).Error; err != nil {
		return nil, err
	}
	var salaryRecords []*models.SalaryRecord
	if err := db.Where("business_id = ? AND removed = ?", businessId, false).Order("id").Find(&salaryRecords).Error; err != nil {
		return nil, err
	}
	var invoices []*models.FinancialDocument
	if err := db.Where("business_id = ? AND kind = ? AND removed = ? AND status <> ? AND project_id IS NOT NULL",
		businessId, models.DocumentKindInvoice, false, models.DocumentStatusCancelled).
		Order("id").Find(&invoices).Error; err != nil {
		return nil, err
	}

	report := &ProjectReport{
		StartDate:     utils.StartOfDay(start),
		EndDate:       utils.EndOfDay(end),
		Projects:      []*ProjectReportRow{},
		TotalSalary:   decimal.Zero,
		TotalInvoiced: decimal.Zero,
	}
	rows := make(map[int]*ProjectReportRow)
	employeesByProject := make(map[int]map[int]struct{})
	for _, p := range projects {
		if !touchedInWindow(p.CreatedAt, p.UpdatedAt, start, end) {
			continue
		}
		row := &ProjectReportRow{
			ProjectId:     p.ID,
			ProjectName:   p.Name,
			Status:        p.Status,
			SalaryTotal:   decimal.Zero,
			InvoicedTotal: decimal.Zero,
		}
		rows[p.ID] = row
		employeesByProject[p.ID] = make(map[int]struct{})
		report.Projects = append(report.Projects, row)
	}

	allEmployees := make(map[int]struct{})
	for _, s := range salaryRecords {
		row, ok := rows[s.ProjectId]
		if !ok || !touchedInWindow(s.CreatedAt, s.UpdatedAt, start, end) {
			continue
		}
		row.SalaryTotal = row.SalaryTotal.Add(s.Amount)
		row.SalaryRecordCount++
		employeesByProject[s.ProjectId][s.ContractorEmployeeId] = struct{}{}
		allEmployees[s.ContractorEmployeeId] = struct{}{}
	}
	for _, inv := range invoices {
		row, ok := rows[*inv.ProjectId]
		if !ok || !touchedInWindow(inv.CreatedAt, inv.UpdatedAt, start, end) {
			continue
		}
		row.InvoicedTotal = row.InvoicedTotal.Add(inv.Total)
	}

	for _, row := range report.Projects {
		row.EmployeeCount = len(employeesByProject[row.ProjectId])
		row.Net = row.InvoicedTotal.Sub(row.SalaryTotal)
		report.TotalSalary = report.TotalSalary.Add(row.SalaryTotal)
		report.TotalInvoiced = report.TotalInvoiced.Add(row.InvoicedTotal)
	}
	sort.SliceStable(report.Projects, func(i, j int) bool {
		return report.Projects[i].ProjectName < report.Projects[j].ProjectName
	})
	report.DistinctEmployees = len(allEmployees)
	report.Net = report.TotalInvoiced.Sub(report.TotalSalary)

	cacheSet(ctx, businessId, cacheKey, report)
	logSlowReport(ctx, "project", started, map[string]any{"projects": len(report.Projects)})
	return report, nil
}
