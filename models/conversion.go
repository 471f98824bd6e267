package models

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sitebooks/backoffice/utils"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

var tracer = otel.Tracer("github.com/sitebooks/backoffice/models")

type conversionEvent struct {
	SourceId     int          `json:"source_id"`
	TargetId     int          `json:"target_id"`
	TargetKind   DocumentKind `json:"target_kind"`
	TargetNumber string       `json:"target_number"`
	PoNumber     string       `json:"po_number,omitempty"`
}

// ConvertQuoteToSupplierQuote derives a supplier quote from the quote lines tagged
// with poNumber. Prices are dropped; the supplier quote is costed through its
// materials. A quote has one supplier quote slot, whatever the PO number.
func ConvertQuoteToSupplierQuote(ctx context.Context, quoteId int, poNumber string) (*FinancialDocument, error) {
	ctx, span := tracer.Start(ctx, "ConvertQuoteToSupplierQuote")
	defer span.End()
	span.SetAttributes(attribute.Int("quote.id", quoteId))

	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	poNumber = strings.TrimSpace(poNumber)
	if poNumber == "" {
		return nil, utils.NewValidationError("po number is required")
	}

	var result *FinancialDocument
	err = WithTransaction(ctx, func(tx *gorm.DB) error {
		quote, err := fetchDocumentTx(tx, businessId, quoteId, DocumentKindQuote)
		if err != nil {
			return err
		}
		result, err = convertToSupplierQuoteTx(tx, quote, poNumber)
		return err
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return result, nil
}

func convertToSupplierQuoteTx(tx *gorm.DB, quote *FinancialDocument, poNumber string) (*FinancialDocument, error) {
	if quote.ConvertedSupplierQuoteId != nil {
		return nil, utils.NewInvalidStateError("quote %d was already converted to supplier quote %d", quote.ID, *quote.ConvertedSupplierQuoteId)
	}

	var items []DocumentItem
	for _, item := range quote.Items {
		if item.PoNumber != poNumber {
			continue
		}
		items = append(items, DocumentItem{
			SortOrder:   len(items),
			ItemName:    item.ItemName,
			Description: item.Description,
			Quantity:    item.Quantity,
			Unit:        item.Unit,
			PoNumber:    item.PoNumber,
		})
	}
	if len(items) == 0 {
		return nil, utils.NewNoMatchingItemsError(poNumber)
	}

	sourceId := quote.ID
	supplierQuote := FinancialDocument{
		BusinessId:    quote.BusinessId,
		Kind:          DocumentKindSupplierQuote,
		NumberPrefix:  remapPrefix(quote.NumberPrefix, DocumentKindSupplierQuote),
		WorkType:      quote.WorkType,
		DocumentDate:  time.Now().UTC(),
		Currency:      quote.Currency,
		Status:        DocumentStatusDraft,
		ProjectId:     quote.ProjectId,
		SourceQuoteId: &sourceId,
		Notes:         quote.Notes,
		Items:         items,
		Clients:       quote.Clients,
	}
	if err := applyTotals(&supplierQuote); err != nil {
		return nil, err
	}
	if err := persistConversion(tx, quote, &supplierQuote, "converted_supplier_quote_id", poNumber); err != nil {
		return nil, err
	}
	return &supplierQuote, nil
}

// ConvertQuoteToInvoice derives an unpaid invoice carrying every quote line with its price.
func ConvertQuoteToInvoice(ctx context.Context, quoteId int) (*FinancialDocument, error) {
	ctx, span := tracer.Start(ctx, "ConvertQuoteToInvoice")
	defer span.End()
	span.SetAttributes(attribute.Int("quote.id", quoteId))

	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var result *FinancialDocument
	err = WithTransaction(ctx, func(tx *gorm.DB) error {
		quote, err := fetchDocumentTx(tx, businessId, quoteId, DocumentKindQuote)
		if err != nil {
			return err
		}
		result, err = convertToInvoiceTx(tx, quote)
		return err
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return result, nil
}

func convertToInvoiceTx(tx *gorm.DB, quote *FinancialDocument) (*FinancialDocument, error) {
	if quote.ConvertedInvoiceId != nil {
		return nil, utils.NewInvalidStateError("quote %d was already converted to invoice %d", quote.ID, *quote.ConvertedInvoiceId)
	}
	if len(quote.Items) == 0 {
		return nil, utils.NewEmptyItemsError()
	}

	items := make([]DocumentItem, 0, len(quote.Items))
	for _, item := range quote.Items {
		items = append(items, DocumentItem{
			SortOrder:   len(items),
			ItemName:    item.ItemName,
			Description: item.Description,
			Quantity:    item.Quantity,
			Unit:        item.Unit,
			Price:       item.Price,
			PoNumber:    item.PoNumber,
		})
	}

	sourceId := quote.ID
	invoice := FinancialDocument{
		BusinessId:    quote.BusinessId,
		Kind:          DocumentKindInvoice,
		NumberPrefix:  remapPrefix(quote.NumberPrefix, DocumentKindInvoice),
		WorkType:      quote.WorkType,
		DocumentDate:  time.Now().UTC(),
		Currency:      quote.Currency,
		Discount:      quote.Discount,
		Status:        DocumentStatusDraft,
		Credit:        decimal.Zero,
		ProjectId:     quote.ProjectId,
		SourceQuoteId: &sourceId,
		Notes:         quote.Notes,
		Items:         items,
		Clients:       quote.Clients,
	}
	if err := applyTotals(&invoice); err != nil {
		return nil, err
	}
	if err := persistConversion(tx, quote, &invoice, "converted_invoice_id", ""); err != nil {
		return nil, err
	}
	return &invoice, nil
}

// persistConversion numbers and inserts target, then claims the quote's slot column
// with a conditional update. Losing the claim fails the whole transaction.
func persistConversion(tx *gorm.DB, quote *FinancialDocument, target *FinancialDocument, slotColumn string, poNumber string) error {
	if err := assignNumber(tx, target, ""); err != nil {
		return err
	}
	if err := insertDocument(tx, target); err != nil {
		return err
	}

	rows, err := UpdateOne[FinancialDocument](tx, map[string]interface{}{slotColumn: target.ID},
		fmt.Sprintf("id = ? AND removed = ? AND %s IS NULL", slotColumn), quote.ID, false)
	if err != nil {
		return err
	}
	if rows == 0 {
		return utils.NewInvalidStateError("quote %d was already converted to %s", quote.ID, target.Kind)
	}

	targetRule := documentRules[target.Kind]
	description := fmt.Sprintf("Quote %s converted to %s %s.", quote.DisplayNumber(), target.Kind, target.DisplayNumber())
	if err := createHistory(tx, HistoryActionConvert, quote.ID, documentRules[DocumentKindQuote].ReferenceType,
		nil, map[string]interface{}{slotColumn: target.ID}, description); err != nil {
		return err
	}
	if err := createHistory(tx, HistoryActionCreate, target.ID, targetRule.ReferenceType, nil, target, description); err != nil {
		return err
	}
	return writeOutbox(tx, quote.BusinessId, EventDocumentConverted, targetRule.ReferenceType, target.ID, conversionEvent{
		SourceId:     quote.ID,
		TargetId:     target.ID,
		TargetKind:   target.Kind,
		TargetNumber: target.DisplayNumber(),
		PoNumber:     poNumber,
	})
}
