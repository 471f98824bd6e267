package models

import (
	"testing"

	"github.com/sitebooks/backoffice/config"
	"github.com/sitebooks/backoffice/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func poQuote(t *testing.T) []NewDocumentItem {
	t.Helper()
	return []NewDocumentItem{
		{ItemName: "Rebar", Quantity: dec("10"), Price: dec("12.5"), Unit: "pcs", PoNumber: "PO-A"},
		{ItemName: "Cement", Quantity: dec("20"), Price: dec("8"), Unit: "bag", PoNumber: "PO-B"},
		{ItemName: "Gravel", Quantity: dec("3"), Price: dec("40"), Unit: "m3", PoNumber: "PO-A"},
	}
}

func countDocuments(t *testing.T, db *gorm.DB, kind DocumentKind) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&FinancialDocument{}).Where("kind = ?", kind).Count(&n).Error)
	return n
}

func TestConvertQuoteToSupplierQuoteFiltersByPoNumber(t *testing.T) {
	ctx := setupTestDB(t)
	client := mustCreateClient(t, ctx, "Acme Builders")
	quote := mustCreateQuote(t, ctx, poQuote(t), "0", client.ID)

	sq, err := ConvertQuoteToSupplierQuote(ctx, quote.ID, "PO-A")
	require.NoError(t, err)
	assert.Equal(t, DocumentKindSupplierQuote, sq.Kind)
	assert.Equal(t, "SQ", sq.NumberPrefix)
	assert.Equal(t, DocumentStatusDraft, sq.Status)
	require.NotNil(t, sq.SourceQuoteId)
	assert.Equal(t, quote.ID, *sq.SourceQuoteId)

	loaded, err := GetFinancialDocument(ctx, sq.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Items, 2)
	assert.Equal(t, "Rebar", loaded.Items[0].ItemName)
	assert.Equal(t, "Gravel", loaded.Items[1].ItemName)
	for _, item := range loaded.Items {
		assert.Equal(t, "PO-A", item.PoNumber)
		assert.False(t, item.Price.Valid)
		assert.False(t, item.Total.Valid)
	}
	require.Len(t, loaded.Clients, 1)
	assert.Equal(t, client.ID, loaded.Clients[0].ID)

	source, err := GetFinancialDocument(ctx, quote.ID)
	require.NoError(t, err)
	require.NotNil(t, source.ConvertedSupplierQuoteId)
	assert.Equal(t, sq.ID, *source.ConvertedSupplierQuoteId)
	assert.Len(t, source.Items, 3)
}

func TestConvertQuoteToSupplierQuoteNoMatchingItems(t *testing.T) {
	ctx := setupTestDB(t)
	quote := mustCreateQuote(t, ctx, poQuote(t), "0")

	_, err := ConvertQuoteToSupplierQuote(ctx, quote.ID, "PO-Z")
	require.ErrorIs(t, err, utils.ErrNoMatchingItems)
	require.ErrorIs(t, err, utils.ErrValidation)

	_, err = ConvertQuoteToSupplierQuote(ctx, quote.ID, "  ")
	require.ErrorIs(t, err, utils.ErrValidation)

	db := config.GetDB().WithContext(ctx)
	assert.EqualValues(t, 0, countDocuments(t, db, DocumentKindSupplierQuote))
	source, err := GetFinancialDocument(ctx, quote.ID)
	require.NoError(t, err)
	assert.Nil(t, source.ConvertedSupplierQuoteId)
}

func TestConvertQuoteToSupplierQuoteOnlyOnce(t *testing.T) {
	ctx := setupTestDB(t)
	quote := mustCreateQuote(t, ctx, poQuote(t), "0")

	_, err := ConvertQuoteToSupplierQuote(ctx, quote.ID, "PO-A")
	require.NoError(t, err)

	_, err = ConvertQuoteToSupplierQuote(ctx, quote.ID, "PO-A")
	require.ErrorIs(t, err, utils.ErrInvalidState)

	_, err = ConvertQuoteToSupplierQuote(ctx, quote.ID, "PO-B")
	require.ErrorIs(t, err, utils.ErrInvalidState)

	db := config.GetDB().WithContext(ctx)
	assert.EqualValues(t, 1, countDocuments(t, db, DocumentKindSupplierQuote))
	var referencing int64
	require.NoError(t, db.Model(&FinancialDocument{}).
		Where("kind = ? AND source_quote_id = ?", DocumentKindSupplierQuote, quote.ID).Count(&referencing).Error)
	assert.EqualValues(t, 1, referencing)
}

func TestConvertEmptyQuoteToInvoiceIsRejected(t *testing.T) {
	ctx := setupTestDB(t)
	quote := mustCreateQuote(t, ctx, nil, "0")

	_, err := ConvertQuoteToInvoice(ctx, quote.ID)
	require.ErrorIs(t, err, utils.ErrEmptyItems)
	require.ErrorIs(t, err, utils.ErrValidation)

	db := config.GetDB().WithContext(ctx)
	assert.EqualValues(t, 0, countDocuments(t, db, DocumentKindInvoice))
	source, err := GetFinancialDocument(ctx, quote.ID)
	require.NoError(t, err)
	assert.Nil(t, source.ConvertedInvoiceId)
}

func TestConvertWithStaleQuoteLosesSlotClaim(t *testing.T) {
	ctx := setupTestDB(t)
	quote := mustCreateQuote(t, ctx, poQuote(t), "0")

	var stale *FinancialDocument
	err := WithTransaction(ctx, func(tx *gorm.DB) error {
		var err error
		stale, err = fetchDocumentTx(tx, testBusinessId, quote.ID, DocumentKindQuote)
		return err
	})
	require.NoError(t, err)

	_, err = ConvertQuoteToInvoice(ctx, quote.ID)
	require.NoError(t, err)

	// the stale copy still sees an empty slot, so only the conditional update can catch it
	require.Nil(t, stale.ConvertedInvoiceId)
	err = WithTransaction(ctx, func(tx *gorm.DB) error {
		_, err := convertToInvoiceTx(tx, stale)
		return err
	})
	require.ErrorIs(t, err, utils.ErrInvalidState)

	db := config.GetDB().WithContext(ctx)
	assert.EqualValues(t, 1, countDocuments(t, db, DocumentKindInvoice))

	var events int64
	require.NoError(t, db.Model(&OutboxMessage{}).Where("event_type = ?", EventDocumentConverted).Count(&events).Error)
	assert.EqualValues(t, 1, events)
}

func TestConvertQuoteToInvoiceCopiesPricedLines(t *testing.T) {
	ctx := setupTestDB(t)
	quote, err := CreateFinancialDocument(ctx, DocumentKindQuote, &NewFinancialDocument{
		NumberPrefix: "QC",
		Discount:     dec("10"),
		Items: []NewDocumentItem{
			{ItemName: "Formwork", Quantity: dec("2"), Price: dec("500")},
			{ItemName: "Crane hire", Quantity: dec("1"), Price: dec("800")},
		},
	})
	require.NoError(t, err)

	invoice, err := ConvertQuoteToInvoice(ctx, quote.ID)
	require.NoError(t, err)
	assert.Equal(t, DocumentKindInvoice, invoice.Kind)
	assert.Equal(t, "INVC", invoice.NumberPrefix)
	assert.Equal(t, PaymentStatusUnpaid, invoice.PaymentStatus)
	requireDecimal(t, "0", invoice.Credit)
	requireDecimal(t, "1800", invoice.SubTotal)
	requireDecimal(t, "1620", invoice.Total)

	loaded, err := GetFinancialDocument(ctx, invoice.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Items, 2)
	requireDecimal(t, "500", loaded.Items[0].Price.Decimal)
	requireDecimal(t, "1000", loaded.Items[0].Total.Decimal)
	requireDecimal(t, "800", loaded.Items[1].Total.Decimal)

	_, err = ConvertQuoteToInvoice(ctx, quote.ID)
	require.ErrorIs(t, err, utils.ErrInvalidState)

	histories, err := GetHistories(ctx, "quotes", quote.ID)
	require.NoError(t, err)
	require.Len(t, histories, 2)
	assert.Equal(t, HistoryActionConvert, histories[1].ActionType)
}

func TestConvertRejectsNonQuoteSource(t *testing.T) {
	ctx := setupTestDB(t)
	invoice, err := CreateFinancialDocument(ctx, DocumentKindInvoice, &NewFinancialDocument{
		Items: []NewDocumentItem{{ItemName: "Labor", Quantity: dec("1"), Price: dec("100")}},
	})
	require.NoError(t, err)

	_, err = ConvertQuoteToInvoice(ctx, invoice.ID)
	require.ErrorIs(t, err, utils.ErrNotFound)

	_, err = ConvertQuoteToSupplierQuote(ctx, 4040, "PO-A")
	require.ErrorIs(t, err, utils.ErrNotFound)
}

func TestBothConversionsFromOneQuote(t *testing.T) {
	ctx := setupTestDB(t)
	quote := mustCreateQuote(t, ctx, poQuote(t), "0")

	sq, err := ConvertQuoteToSupplierQuote(ctx, quote.ID, "PO-B")
	require.NoError(t, err)
	inv, err := ConvertQuoteToInvoice(ctx, quote.ID)
	require.NoError(t, err)

	source, err := GetFinancialDocument(ctx, quote.ID)
	require.NoError(t, err)
	require.NotNil(t, source.ConvertedSupplierQuoteId)
	require.NotNil(t, source.ConvertedInvoiceId)
	assert.Equal(t, sq.ID, *source.ConvertedSupplierQuoteId)
	assert.Equal(t, inv.ID, *source.ConvertedInvoiceId)

	loadedInvoice, err := GetFinancialDocument(ctx, inv.ID)
	require.NoError(t, err)
	assert.Len(t, loadedInvoice.Items, 3)
	requireDecimal(t, "405", loadedInvoice.Total)
}
