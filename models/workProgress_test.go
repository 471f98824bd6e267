package models

import (
	"context"
	"testing"
	"time"

	"github.com/sitebooks/backoffice/config"
	"github.com/sitebooks/backoffice/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustCreateWorker(t *testing.T, ctx context.Context, name string, rate string) *ContractorEmployee {
	t.Helper()
	w, err := CreateContractorEmployee(ctx, &NewContractorEmployee{
		Name:      name,
		Type:      ContractorEmployeeTypeContractor,
		DailyRate: dec(rate),
	})
	require.NoError(t, err)
	return w
}

func TestWorkProgressLifecycle(t *testing.T) {
	ctx := setupTestDB(t)
	project := mustCreateProject(t, ctx, "Riverside Tower")
	worker := mustCreateWorker(t, ctx, "Ko Aung", "35000")
	quote := mustCreateQuote(t, ctx, []NewDocumentItem{
		{ItemName: "Tiling", Description: "Ground floor", Quantity: dec("120"), Price: dec("15"), Unit: "m2"},
	}, "0")
	loaded, err := GetFinancialDocument(ctx, quote.ID)
	require.NoError(t, err)

	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	wp, err := CreateWorkProgress(ctx, &NewWorkProgress{
		ProjectId:            project.ID,
		ContractorEmployeeId: worker.ID,
		QuoteId:              quote.ID,
		QuoteItemId:          loaded.Items[0].ID,
		StartDate:            start,
		Days:                 10,
	})
	require.NoError(t, err)
	assert.Equal(t, "Tiling", wp.ItemName)
	requireDecimal(t, "1800", wp.Total)
	assert.Equal(t, 0, wp.Progress)
	assert.Equal(t, WorkProgressStatusNotStarted, wp.Status)
	assert.True(t, wp.ExpectedEndDate.Equal(time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)))

	wp, err = RecordWorkProgress(ctx, wp.ID, &NewWorkProgressEntry{Percentage: 40, Note: "half the lobby"})
	require.NoError(t, err)
	assert.Equal(t, 40, wp.Progress)
	assert.Equal(t, WorkProgressStatusInProgress, wp.Status)

	wp, err = RecordWorkProgress(ctx, wp.ID, &NewWorkProgressEntry{Percentage: 100})
	require.NoError(t, err)
	assert.Equal(t, WorkProgressStatusCompleted, wp.Status)
	require.Len(t, wp.History, 2)
	assert.Equal(t, 40, wp.History[0].Percentage)
	assert.Equal(t, "site.manager", wp.History[0].RecordedBy)
	assert.Equal(t, 100, wp.History[1].Percentage)

	_, err = RecordWorkProgress(ctx, wp.ID, &NewWorkProgressEntry{Percentage: 101})
	require.ErrorIs(t, err, utils.ErrValidation)

	wp, err = RescheduleWorkProgress(ctx, wp.ID, start.AddDate(0, 0, 5), 3)
	require.NoError(t, err)
	assert.True(t, wp.ExpectedEndDate.Equal(time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC)))

	list, err := GetWorkProgresses(ctx, &project.ID, nil)
	require.NoError(t, err)
	require.Len(t, list, 1)

	_, err = RemoveWorkProgress(ctx, wp.ID)
	require.NoError(t, err)
	_, err = GetWorkProgress(ctx, wp.ID)
	require.ErrorIs(t, err, utils.ErrNotFound)
}

func TestWorkProgressRequiresQuoteLine(t *testing.T) {
	ctx := setupTestDB(t)
	project := mustCreateProject(t, ctx, "Riverside Tower")
	worker := mustCreateWorker(t, ctx, "Ko Aung", "35000")
	quote := mustCreateQuote(t, ctx, []NewDocumentItem{{ItemName: "Tiling", Quantity: dec("1"), Price: dec("1")}}, "0")

	_, err := CreateWorkProgress(ctx, &NewWorkProgress{
		ProjectId:            project.ID,
		ContractorEmployeeId: worker.ID,
		QuoteId:              quote.ID,
		QuoteItemId:          9999,
	})
	require.ErrorIs(t, err, utils.ErrNotFound)

	_, err = CreateWorkProgress(ctx, &NewWorkProgress{
		ProjectId:            project.ID,
		ContractorEmployeeId: worker.ID,
		QuoteId:              quote.ID,
		Days:                 -1,
	})
	require.ErrorIs(t, err, utils.ErrValidation)
}

func TestSalaryRecordDefaultsToDailyRate(t *testing.T) {
	ctx := setupTestDB(t)
	project := mustCreateProject(t, ctx, "Riverside Tower")
	worker := mustCreateWorker(t, ctx, "Ko Aung", "35000")

	record, err := CreateSalaryRecord(ctx, &NewSalaryRecord{
		ProjectId:            project.ID,
		ContractorEmployeeId: worker.ID,
		Days:                 dec("2.5"),
	})
	require.NoError(t, err)
	requireDecimal(t, "87500", record.Amount)

	explicit, err := CreateSalaryRecord(ctx, &NewSalaryRecord{
		ProjectId:            project.ID,
		ContractorEmployeeId: worker.ID,
		Days:                 dec("1"),
		Amount:               dec("40000"),
	})
	require.NoError(t, err)
	requireDecimal(t, "40000", explicit.Amount)

	records, err := GetSalaryRecords(ctx, &project.ID, nil)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestAtomicIncrementIsPerBusinessAndKey(t *testing.T) {
	ctx := setupTestDB(t)
	db := config.GetDB().WithContext(ctx)

	for want := 1; want <= 3; want++ {
		got, err := AtomicIncrement(db, "biz-a", CounterQuoteNumber)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	got, err := AtomicIncrement(db, "biz-a", CounterInvoiceNumber)
	require.NoError(t, err)
	assert.Equal(t, 1, got)
	got, err = AtomicIncrement(db, "biz-b", CounterQuoteNumber)
	require.NoError(t, err)
	assert.Equal(t, 1, got)
}
