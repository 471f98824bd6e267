package models

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/sitebooks/backoffice/utils"
	"gorm.io/gorm"
)

type invoicePaymentEvent struct {
	InvoiceId     int             `json:"invoice_id"`
	Amount        decimal.Decimal `json:"amount"`
	Credit        decimal.Decimal `json:"credit"`
	Total         decimal.Decimal `json:"total"`
	PaymentStatus PaymentStatus   `json:"payment_status"`
}

// RecordInvoicePayment adds amount to the invoice's credit.
func RecordInvoicePayment(ctx context.Context, id int, amount decimal.Decimal) (*FinancialDocument, error) {
	if !amount.IsPositive() {
		return nil, utils.NewValidationError("payment amount must be greater than zero")
	}
	return changeInvoiceCredit(ctx, id, func(invoice *FinancialDocument) (decimal.Decimal, error) {
		if !invoice.Total.IsPositive() {
			return decimal.Zero, utils.NewInvalidStateError("invoice %s has nothing to pay (total %s)", invoice.DisplayNumber(), invoice.Total)
		}
		return invoice.Credit.Add(amount), nil
	})
}

// SetInvoiceCredit replaces the invoice's cumulative credit.
func SetInvoiceCredit(ctx context.Context, id int, credit decimal.Decimal) (*FinancialDocument, error) {
	if credit.IsNegative() {
		return nil, utils.NewValidationError("credit cannot be negative")
	}
	return changeInvoiceCredit(ctx, id, func(*FinancialDocument) (decimal.Decimal, error) {
		return credit, nil
	})
}

// checkInvoiceCredit keeps credit within [0, total]. An invoice with a zero or
// negative total only takes zero credit.
func checkInvoiceCredit(total decimal.Decimal, credit decimal.Decimal) error {
	if credit.IsNegative() {
		return utils.NewValidationError("credit cannot be negative")
	}
	if credit.IsPositive() && credit.GreaterThan(total) {
		return utils.NewValidationError("credit %s exceeds invoice total %s", credit, total)
	}
	return nil
}

func changeInvoiceCredit(ctx context.Context, id int, next func(*FinancialDocument) (decimal.Decimal, error)) (*FinancialDocument, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	var result *FinancialDocument
	err = WithTransaction(ctx, func(tx *gorm.DB) error {
		invoice, err := fetchDocumentTx(tx, businessId, id, DocumentKindInvoice)
		if err != nil {
			return err
		}
		if invoice.Status == DocumentStatusCancelled {
			return utils.NewInvalidStateError("invoice %s is cancelled", invoice.DisplayNumber())
		}
		oldCredit := invoice.Credit
		newCredit, err := next(invoice)
		if err != nil {
			return err
		}
		newCredit = utils.RoundMoney(newCredit)
		if err := checkInvoiceCredit(invoice.Total, newCredit); err != nil {
			return err
		}
		status := ComputePaymentStatus(invoice.Total, newCredit)

		rows, err := UpdateOne[FinancialDocument](tx, map[string]interface{}{
			"credit":         newCredit,
			"payment_status": status,
		}, "id = ? AND credit = ? AND removed = ?", id, oldCredit, false)
		if err != nil {
			return err
		}
		if rows == 0 {
			return utils.NewInvalidStateError("invoice %d was changed by another request", id)
		}
		invoice.Credit = newCredit
		invoice.PaymentStatus = status
		result = invoice

		if err := createHistory(tx, HistoryActionUpdate, id, documentRules[DocumentKindInvoice].ReferenceType,
			map[string]interface{}{"credit": oldCredit}, map[string]interface{}{"credit": newCredit, "payment_status": status},
			fmt.Sprintf("Invoice %s credit changed from %v to %v.", invoice.DisplayNumber(), oldCredit, newCredit)); err != nil {
			return err
		}
		return writeOutbox(tx, businessId, EventInvoicePayment, documentRules[DocumentKindInvoice].ReferenceType, id, invoicePaymentEvent{
			InvoiceId:     id,
			Amount:        newCredit.Sub(oldCredit),
			Credit:        newCredit,
			Total:         invoice.Total,
			PaymentStatus: status,
		})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
