package models

import (
	"fmt"
	"slices"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sitebooks/backoffice/config"
	"github.com/sitebooks/backoffice/utils"
)

// FinancialDocument is one table for quotes, supplier quotes, invoices and ship quotes.
// Kind selects the rule set (prefixes, statuses, payment tracking) that applies.
type FinancialDocument struct {
	ID                       int                `gorm:"primary_key" json:"id"`
	BusinessId               string             `gorm:"size:64;not null;index;uniqueIndex:idx_document_number,priority:1" json:"business_id"`
	Kind                     DocumentKind       `gorm:"size:20;not null;index;uniqueIndex:idx_document_number,priority:2" json:"kind"`
	NumberPrefix             string             `gorm:"size:10;not null;uniqueIndex:idx_document_number,priority:3" json:"number_prefix"`
	Year                     int                `gorm:"not null;uniqueIndex:idx_document_number,priority:4" json:"year"`
	Number                   string             `gorm:"size:30;not null;uniqueIndex:idx_document_number,priority:5" json:"number"`
	SequenceNo               int                `gorm:"not null;default:0" json:"sequence_no"`
	WorkType                 WorkType           `gorm:"size:20" json:"work_type"`
	DocumentDate             time.Time          `gorm:"not null" json:"document_date"`
	Currency                 string             `gorm:"size:3;not null" json:"currency"`
	Discount                 decimal.Decimal    `gorm:"type:decimal(20,4);not null;default:0" json:"discount"`
	SubTotal                 decimal.Decimal    `gorm:"type:decimal(20,4);not null;default:0" json:"sub_total"`
	DiscountTotal            decimal.Decimal    `gorm:"type:decimal(20,4);not null;default:0" json:"discount_total"`
	Total                    decimal.Decimal    `gorm:"type:decimal(20,4);not null;default:0" json:"total"`
	Status                   DocumentStatus     `gorm:"size:20;not null;index" json:"status"`
	PaymentStatus            PaymentStatus      `gorm:"size:20" json:"payment_status,omitempty"`
	Credit                   decimal.Decimal    `gorm:"type:decimal(20,4);not null;default:0" json:"credit"`
	PaymentDueDate           *time.Time         `json:"payment_due_date,omitempty"`
	SupplierName             string             `gorm:"size:255" json:"supplier_name,omitempty"`
	ProjectId                *int               `gorm:"index" json:"project_id"`
	SourceQuoteId            *int               `gorm:"index" json:"source_quote_id,omitempty"`
	ConvertedSupplierQuoteId *int               `json:"converted_supplier_quote_id,omitempty"`
	ConvertedInvoiceId       *int               `json:"converted_invoice_id,omitempty"`
	Notes                    string             `gorm:"type:text" json:"notes"`
	Removed                  bool               `gorm:"not null;default:false;index" json:"removed"`
	Items                    []DocumentItem     `gorm:"foreignKey:DocumentId" json:"items"`
	Materials                []DocumentMaterial `gorm:"foreignKey:DocumentId" json:"materials,omitempty"`
	Clients                  []*Client          `gorm:"many2many:document_clients" json:"clients"`
	CreatedAt                time.Time          `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt                time.Time          `gorm:"autoUpdateTime" json:"updated_at"`
}

// DocumentItem is a line of a document. Supplier quote lines carry no price or total.
type DocumentItem struct {
	ID          int                 `gorm:"primary_key" json:"id"`
	DocumentId  int                 `gorm:"index;not null" json:"document_id"`
	SortOrder   int                 `gorm:"not null;default:0" json:"sort_order"`
	ItemName    string              `gorm:"size:255;not null" json:"item_name"`
	Description string              `gorm:"type:text" json:"description"`
	Quantity    decimal.Decimal     `gorm:"type:decimal(20,4);not null;default:0" json:"quantity"`
	Unit        string              `gorm:"size:50" json:"unit"`
	Price       decimal.NullDecimal `gorm:"type:decimal(20,4)" json:"price"`
	Total       decimal.NullDecimal `gorm:"type:decimal(20,4)" json:"total"`
	PoNumber    string              `gorm:"size:100;index" json:"po_number,omitempty"`
}

// DocumentMaterial tracks what a supplier quote costs the subcontractor.
type DocumentMaterial struct {
	ID         int             `gorm:"primary_key" json:"id"`
	DocumentId int             `gorm:"index;not null" json:"document_id"`
	Name       string          `gorm:"size:255;not null" json:"name"`
	Unit       string          `gorm:"size:50" json:"unit"`
	Quantity   decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"quantity"`
	UnitCost   decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"unit_cost"`
	TotalCost  decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"total_cost"`
}

// DisplayNumber is the number printed on the document, e.g. INV-2024-0007.
func (d *FinancialDocument) DisplayNumber() string {
	return fmt.Sprintf("%s-%d-%s", d.NumberPrefix, d.Year, d.Number)
}

type documentRule struct {
	Prefixes      []string
	DefaultPrefix string
	Statuses      []DocumentStatus
	TracksPayment bool
	PricedItems   bool
	ReferenceType string
}

var quoteStatuses = []DocumentStatus{
	DocumentStatusDraft, DocumentStatusPending, DocumentStatusSent, DocumentStatusAccepted,
	DocumentStatusDeclined, DocumentStatusCancelled, DocumentStatusOnHold,
}

var documentRules = map[DocumentKind]documentRule{
	DocumentKindQuote: {
		Prefixes:      []string{"Q", "QC", "QL"},
		DefaultPrefix: "Q",
		Statuses:      quoteStatuses,
		PricedItems:   true,
		ReferenceType: "quotes",
	},
	DocumentKindSupplierQuote: {
		Prefixes:      []string{"SQ", "SQC", "SQL"},
		DefaultPrefix: "SQ",
		Statuses:      quoteStatuses,
		ReferenceType: "supplier_quotes",
	},
	DocumentKindInvoice: {
		Prefixes:      []string{"INV", "INVC", "INVL"},
		DefaultPrefix: "INV",
		Statuses: []DocumentStatus{
			DocumentStatusDraft, DocumentStatusPending, DocumentStatusSent,
			DocumentStatusCancelled, DocumentStatusOnHold,
		},
		TracksPayment: true,
		PricedItems:   true,
		ReferenceType: "invoices",
	},
	DocumentKindShipQuote: {
		Prefixes:      []string{"SHQ", "SHQC"},
		DefaultPrefix: "SHQ",
		Statuses:      quoteStatuses,
		PricedItems:   true,
		ReferenceType: "ship_quotes",
	},
}

// conversionPrefixes maps a quote prefix to the prefix of the derived document.
// Prefixes not listed fall back to the target kind's default.
var conversionPrefixes = map[DocumentKind]map[string]string{
	DocumentKindSupplierQuote: {"Q": "SQ", "QC": "SQC", "QL": "SQL"},
	DocumentKindInvoice:       {"Q": "INV", "QC": "INVC", "QL": "INVL"},
}

func ruleFor(kind DocumentKind) (documentRule, error) {
	rule, ok := documentRules[kind]
	if !ok {
		return documentRule{}, utils.NewValidationError("invalid document kind %q", kind)
	}
	return rule, nil
}

// ReferenceType is the history/outbox reference type of a document kind.
func (k DocumentKind) ReferenceType() string {
	return documentRules[k].ReferenceType
}

func remapPrefix(sourcePrefix string, target DocumentKind) string {
	if p, ok := conversionPrefixes[target][sourcePrefix]; ok {
		return p
	}
	return documentRules[target].DefaultPrefix
}

// strict-mode transitions; a kind still only accepts the statuses in its rule.
var documentTransitions = map[DocumentStatus][]DocumentStatus{
	DocumentStatusDraft:     {DocumentStatusPending, DocumentStatusSent, DocumentStatusCancelled, DocumentStatusOnHold},
	DocumentStatusPending:   {DocumentStatusDraft, DocumentStatusSent, DocumentStatusAccepted, DocumentStatusDeclined, DocumentStatusCancelled, DocumentStatusOnHold},
	DocumentStatusSent:      {DocumentStatusAccepted, DocumentStatusDeclined, DocumentStatusCancelled, DocumentStatusOnHold},
	DocumentStatusAccepted:  {DocumentStatusCancelled, DocumentStatusOnHold},
	DocumentStatusDeclined:  {DocumentStatusCancelled},
	DocumentStatusOnHold:    {DocumentStatusDraft, DocumentStatusPending, DocumentStatusSent, DocumentStatusCancelled},
	DocumentStatusCancelled: {},
}

func validateStatus(kind DocumentKind, status DocumentStatus) error {
	rule, err := ruleFor(kind)
	if err != nil {
		return err
	}
	if !slices.Contains(rule.Statuses, status) {
		return utils.NewValidationError("invalid %s status %q", kind, status)
	}
	return nil
}

// validateStatusChange accepts any status of the kind unless strict transitions are on.
func validateStatusChange(kind DocumentKind, from DocumentStatus, to DocumentStatus) error {
	if err := validateStatus(kind, to); err != nil {
		return err
	}
	if from == to || !config.StrictDocumentTransitions() {
		return nil
	}
	if !slices.Contains(documentTransitions[from], to) {
		return utils.NewInvalidStateError("cannot change %s status from %q to %q", kind, from, to)
	}
	return nil
}

// ComputePaymentStatus derives an invoice's payment status from its total and credit.
func ComputePaymentStatus(total decimal.Decimal, credit decimal.Decimal) PaymentStatus {
	if credit.Equal(total) {
		return PaymentStatusPaid
	}
	if credit.IsPositive() && credit.LessThan(total) {
		return PaymentStatusPartially
	}
	return PaymentStatusUnpaid
}
