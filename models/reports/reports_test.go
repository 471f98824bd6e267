package reports

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/glebarez/sqlite"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/sitebooks/backoffice/config"
	"github.com/sitebooks/backoffice/models"
	"github.com/sitebooks/backoffice/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

const testBusinessId = "biz-report"

func setupReportDB(t *testing.T) context.Context {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "reports.db") + "?_pragma=busy_timeout(5000)"
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
	ctx := utils.SetBusinessIdInContext(context.Background(), testBusinessId)
	return utils.SetUserNameInContext(ctx, "report.tester")
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func requireDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.Truef(t, dec(want).Equal(got), "want %s, got %s", want, got.String())
}

// stamp pins created_at and updated_at so rows land exactly where a test needs them.
func stamp(t *testing.T, ctx context.Context, model interface{}, id int, at time.Time) {
	t.Helper()
	err := config.GetDB().WithContext(ctx).Model(model).Where("id = ?", id).
		UpdateColumns(map[string]interface{}{"created_at": at, "updated_at": at}).Error
	require.NoError(t, err)
}

type reportFixture struct {
	inside  *models.Project
	outside *models.Project
	ann     *models.ContractorEmployee
	bo      *models.ContractorEmployee
}

var (
	windowDay   = time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	lastMoment  = time.Date(2024, 1, 10, 23, 59, 59, 998_000_000, time.UTC)
	nextMorning = time.Date(2024, 1, 11, 0, 0, 0, 1_000_000, time.UTC)
	midMorning  = time.Date(2024, 1, 10, 8, 0, 0, 0, time.UTC)
)

func seedProjectReport(t *testing.T, ctx context.Context) reportFixture {
	t.Helper()
	var fx reportFixture
	var err error
	fx.inside, err = models.CreateProject(ctx, &models.NewProject{Name: "Harbour Lofts"})
	require.NoError(t, err)
	fx.outside, err = models.CreateProject(ctx, &models.NewProject{Name: "Zenith Mall"})
	require.NoError(t, err)
	stamp(t, ctx, &models.Project{}, fx.inside.ID, lastMoment)
	stamp(t, ctx, &models.Project{}, fx.outside.ID, nextMorning)

	fx.ann, err = models.CreateContractorEmployee(ctx, &models.NewContractorEmployee{Name: "Ann", Type: models.ContractorEmployeeTypeEmployee})
	require.NoError(t, err)
	fx.bo, err = models.CreateContractorEmployee(ctx, &models.NewContractorEmployee{Name: "Bo", Type: models.ContractorEmployeeTypeContractor})
	require.NoError(t, err)

	salaries := []struct {
		worker int
		amount string
		at     time.Time
	}{
		{fx.ann.ID, "100", midMorning},
		{fx.ann.ID, "50", lastMoment},
		{fx.bo.ID, "70", midMorning},
		{fx.bo.ID, "999", nextMorning},
	}
	for _, s := range salaries {
		record, err := models.CreateSalaryRecord(ctx, &models.NewSalaryRecord{
			ProjectId:            fx.inside.ID,
			ContractorEmployeeId: s.worker,
			Amount:               dec(s.amount),
		})
		require.NoError(t, err)
		stamp(t, ctx, &models.SalaryRecord{}, record.ID, s.at)
	}

	invoice, err := models.CreateFinancialDocument(ctx, models.DocumentKindInvoice, &models.NewFinancialDocument{
		ProjectId: &fx.inside.ID,
		Items:     []models.NewDocumentItem{{ItemName: "Stage 1", Quantity: dec("1"), Price: dec("500")}},
	})
	require.NoError(t, err)
	stamp(t, ctx, &models.FinancialDocument{}, invoice.ID, midMorning)
	return fx
}

func TestProjectReportWindowBoundaries(t *testing.T) {
	ctx := setupReportDB(t)
	fx := seedProjectReport(t, ctx)

	report, err := BuildProjectReport(ctx, windowDay, windowDay)
	require.NoError(t, err)
	require.Len(t, report.Projects, 1)

	row := report.Projects[0]
	assert.Equal(t, fx.inside.ID, row.ProjectId)
	assert.Equal(t, 3, row.SalaryRecordCount)
	assert.Equal(t, 2, row.EmployeeCount)
	requireDecimal(t, "220", row.SalaryTotal)
	requireDecimal(t, "500", row.InvoicedTotal)
	requireDecimal(t, "280", row.Net)

	assert.Equal(t, 2, report.DistinctEmployees)
	requireDecimal(t, "220", report.TotalSalary)
	requireDecimal(t, "500", report.TotalInvoiced)
	requireDecimal(t, "280", report.Net)

	next, err := BuildProjectReport(ctx, windowDay.AddDate(0, 0, 1), windowDay.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.Len(t, next.Projects, 1)
	assert.Equal(t, fx.outside.ID, next.Projects[0].ProjectId)
	requireDecimal(t, "0", next.Projects[0].SalaryTotal)
}

func TestProjectReportRejectsInvertedWindow(t *testing.T) {
	ctx := setupReportDB(t)
	_, err := BuildProjectReport(ctx, windowDay, windowDay.AddDate(0, 0, -1))
	require.ErrorIs(t, err, utils.ErrValidation)

	_, err = BuildProjectReport(context.Background(), windowDay, windowDay)
	require.ErrorIs(t, err, utils.ErrValidation)
}

func TestProjectReportCache(t *testing.T) {
	ctx := setupReportDB(t)
	fx := seedProjectReport(t, ctx)

	mr := miniredis.RunT(t)
	config.SetRedisClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { config.SetRedisClient(nil) })
	t.Setenv("ENABLE_REPORT_CACHE", "true")

	first, err := BuildProjectReport(ctx, windowDay, windowDay)
	require.NoError(t, err)
	requireDecimal(t, "220", first.TotalSalary)

	record, err := models.CreateSalaryRecord(ctx, &models.NewSalaryRecord{
		ProjectId:            fx.inside.ID,
		ContractorEmployeeId: fx.bo.ID,
		Amount:               dec("30"),
	})
	require.NoError(t, err)
	stamp(t, ctx, &models.SalaryRecord{}, record.ID, midMorning)

	cached, err := BuildProjectReport(ctx, windowDay, windowDay)
	require.NoError(t, err)
	requireDecimal(t, "220", cached.TotalSalary)

	require.NoError(t, InvalidateReportCache(ctx, testBusinessId))
	fresh, err := BuildProjectReport(ctx, windowDay, windowDay)
	require.NoError(t, err)
	requireDecimal(t, "250", fresh.TotalSalary)
}

func TestMemberInvoiceSummary(t *testing.T) {
	ctx := setupReportDB(t)
	a, err := models.CreateClient(ctx, &models.NewClient{Name: "Alpha Homes"})
	require.NoError(t, err)
	b, err := models.CreateClient(ctx, &models.NewClient{Name: "Beta Estates"})
	require.NoError(t, err)
	p1, err := models.CreateProject(ctx, &models.NewProject{Name: "P1"})
	require.NoError(t, err)
	p2, err := models.CreateProject(ctx, &models.NewProject{Name: "P2"})
	require.NoError(t, err)

	newInvoice := func(total string, projectId int, clientIds ...int) *models.FinancialDocument {
		inv, err := models.CreateFinancialDocument(ctx, models.DocumentKindInvoice, &models.NewFinancialDocument{
			ProjectId: &projectId,
			ClientIds: clientIds,
			Items:     []models.NewDocumentItem{{ItemName: "Work", Quantity: dec("1"), Price: dec(total)}},
		})
		require.NoError(t, err)
		return inv
	}

	inv1 := newInvoice("300", p1.ID, a.ID)
	_, err = models.SetInvoiceCredit(ctx, inv1.ID, dec("100"))
	require.NoError(t, err)
	inv2 := newInvoice("200", p2.ID, a.ID, b.ID)
	_, err = models.SetInvoiceCredit(ctx, inv2.ID, dec("200"))
	require.NoError(t, err)
	cancelled := newInvoice("1000", p1.ID, b.ID)
	_, err = models.SetDocumentStatus(ctx, cancelled.ID, models.DocumentStatusCancelled)
	require.NoError(t, err)
	removed := newInvoice("1000", p1.ID, a.ID)
	_, err = models.RemoveFinancialDocument(ctx, removed.ID)
	require.NoError(t, err)

	summary, err := BuildMemberInvoiceSummary(ctx, MemberInvoiceFilter{})
	require.NoError(t, err)
	require.Len(t, summary.Members, 2)

	alpha := summary.Members[0]
	assert.Equal(t, "Alpha Homes", alpha.ClientName)
	assert.Equal(t, 2, alpha.InvoiceCount)
	assert.Equal(t, 2, alpha.ProjectCount)
	requireDecimal(t, "500", alpha.Total)
	requireDecimal(t, "300", alpha.Credit)
	requireDecimal(t, "200", alpha.Outstanding)

	beta := summary.Members[1]
	assert.Equal(t, 1, beta.InvoiceCount)
	assert.Equal(t, 1, beta.ProjectCount)
	requireDecimal(t, "0", beta.Outstanding)

	assert.Equal(t, 2, summary.InvoiceCount)
	assert.Equal(t, 2, summary.DistinctProjects)
	requireDecimal(t, "500", summary.Total)
	requireDecimal(t, "200", summary.Outstanding)

	onlyBeta, err := BuildMemberInvoiceSummary(ctx, MemberInvoiceFilter{ClientId: &b.ID})
	require.NoError(t, err)
	require.Len(t, onlyBeta.Members, 1)
	assert.Equal(t, 1, onlyBeta.InvoiceCount)
	requireDecimal(t, "200", onlyBeta.Total)

	paid := models.PaymentStatusPaid
	paidOnly, err := BuildMemberInvoiceSummary(ctx, MemberInvoiceFilter{PaymentStatus: &paid})
	require.NoError(t, err)
	assert.Equal(t, 1, paidOnly.InvoiceCount)

	stamp(t, ctx, &models.FinancialDocument{}, inv1.ID, nextMorning)
	stamp(t, ctx, &models.FinancialDocument{}, inv2.ID, lastMoment)
	windowed, err := BuildMemberInvoiceSummary(ctx, MemberInvoiceFilter{StartDate: &windowDay, EndDate: &windowDay})
	require.NoError(t, err)
	assert.Equal(t, 1, windowed.InvoiceCount)
	requireDecimal(t, "200", windowed.Total)
}

func TestExportProjectReportExcel(t *testing.T) {
	ctx := setupReportDB(t)
	seedProjectReport(t, ctx)
	report, err := BuildProjectReport(ctx, windowDay, windowDay)
	require.NoError(t, err)

	f, err := ExportProjectReportExcel(report)
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, WriteExcel(&buf, f))

	reopened, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer reopened.Close()

	header, err := reopened.GetCellValue(projectReportSheet, "A1")
	require.NoError(t, err)
	assert.Equal(t, "Project", header)
	name, err := reopened.GetCellValue(projectReportSheet, "A2")
	require.NoError(t, err)
	assert.Equal(t, "Harbour Lofts", name)
	salary, err := reopened.GetCellValue(projectReportSheet, "E2")
	require.NoError(t, err)
	assert.Equal(t, "220", salary)
	total, err := reopened.GetCellValue(projectReportSheet, "A3")
	require.NoError(t, err)
	assert.Equal(t, "Total", total)
}
