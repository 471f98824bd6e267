package models

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sitebooks/backoffice/config"
	"github.com/sitebooks/backoffice/utils"
	"gorm.io/gorm"
)

type NewDocumentItem struct {
	ItemName    string          `json:"item_name" binding:"required"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	Unit        string          `json:"unit"`
	PoNumber    string          `json:"po_number"`
}

type NewDocumentMaterial struct {
	Name     string          `json:"name" binding:"required"`
	Unit     string          `json:"unit"`
	Quantity decimal.Decimal `json:"quantity"`
	UnitCost decimal.Decimal `json:"unit_cost"`
}

type NewFinancialDocument struct {
	NumberPrefix     string                `json:"number_prefix"`
	Number           string                `json:"number"`
	DocumentDate     time.Time             `json:"document_date"`
	WorkType         WorkType              `json:"work_type"`
	Currency         string                `json:"currency"`
	Discount         decimal.Decimal       `json:"discount"`
	Status           DocumentStatus        `json:"status"`
	ClientIds        []int                 `json:"client_ids"`
	ProjectId        *int                  `json:"project_id"`
	Notes            string                `json:"notes"`
	SupplierName     string                `json:"supplier_name"`
	Credit           decimal.Decimal       `json:"credit"`
	PaymentTermsDays *int                  `json:"payment_terms_days"`
	Items            []NewDocumentItem     `json:"items"`
	Materials        []NewDocumentMaterial `json:"materials"`
}

type DocumentFilter struct {
	Kind          DocumentKind
	Status        *DocumentStatus
	PaymentStatus *PaymentStatus
	ProjectId     *int
	ClientId      *int
	Number        string
}

var hundred = decimal.NewFromInt(100)

// validate input for both create & update. (id = 0 for create)
func (input *NewFinancialDocument) validate(ctx context.Context, businessId string, kind DocumentKind, id int) error {
	rule, err := ruleFor(kind)
	if err != nil {
		return err
	}
	if id == 0 {
		if input.NumberPrefix == "" {
			input.NumberPrefix = rule.DefaultPrefix
		}
		if !slices.Contains(rule.Prefixes, input.NumberPrefix) {
			return utils.NewValidationError("invalid %s number prefix %q", kind, input.NumberPrefix)
		}
		if input.Status == "" {
			input.Status = DocumentStatusDraft
		}
	}
	if input.Status != "" {
		if err := validateStatus(kind, input.Status); err != nil {
			return err
		}
	}
	if input.WorkType != "" && !input.WorkType.IsValid() {
		return utils.NewValidationError("invalid work type %q", input.WorkType)
	}
	if input.Discount.IsNegative() || input.Discount.GreaterThan(hundred) {
		return utils.NewValidationError("discount must be between 0 and 100")
	}
	input.Currency = strings.ToUpper(strings.TrimSpace(input.Currency))
	if input.Currency == "" {
		input.Currency = config.DefaultCurrency()
	}
	if len(input.Currency) != 3 {
		return utils.NewValidationError("invalid currency %q", input.Currency)
	}
	if input.DocumentDate.IsZero() {
		input.DocumentDate = time.Now().UTC()
	}
	if input.Credit.IsNegative() {
		return utils.NewValidationError("credit cannot be negative")
	}
	if input.PaymentTermsDays != nil && *input.PaymentTermsDays < 0 {
		return utils.NewValidationError("payment terms days cannot be negative")
	}
	for i, item := range input.Items {
		if strings.TrimSpace(item.ItemName) == "" {
			return utils.NewValidationError("item %d: item name is required", i+1)
		}
	}
	for i, m := range input.Materials {
		if strings.TrimSpace(m.Name) == "" {
			return utils.NewValidationError("material %d: name is required", i+1)
		}
	}
	if err := utils.ValidateResourcesId[Client](ctx, businessId, input.ClientIds); err != nil {
		return err
	}
	if input.ProjectId != nil && *input.ProjectId > 0 {
		if err := utils.ValidateResourceId[Project](ctx, businessId, *input.ProjectId); err != nil {
			return err
		}
	}
	return nil
}

func buildDocumentItems(rule documentRule, inputs []NewDocumentItem) []DocumentItem {
	items := make([]DocumentItem, 0, len(inputs))
	for i, in := range inputs {
		item := DocumentItem{
			SortOrder:   i,
			ItemName:    strings.TrimSpace(in.ItemName),
			Description: in.Description,
			Quantity:    in.Quantity,
			Unit:        in.Unit,
			PoNumber:    strings.TrimSpace(in.PoNumber),
		}
		if rule.PricedItems {
			item.Price = decimal.NewNullDecimal(in.Price)
		}
		items = append(items, item)
	}
	return items
}

func buildDocumentMaterials(inputs []NewDocumentMaterial) []DocumentMaterial {
	materials := make([]DocumentMaterial, 0, len(inputs))
	for _, in := range inputs {
		materials = append(materials, DocumentMaterial{
			Name:     strings.TrimSpace(in.Name),
			Unit:     in.Unit,
			Quantity: in.Quantity,
			UnitCost: in.UnitCost,
		})
	}
	return materials
}

// applyTotals recomputes every derived amount of doc from its lines, discount and credit.
func applyTotals(doc *FinancialDocument) error {
	rule, err := ruleFor(doc.Kind)
	if err != nil {
		return err
	}
	var totals *Totals
	if rule.PricedItems {
		totals = computeTotals(doc.Items, doc.Discount)
		doc.Items = totals.Items
	} else {
		for i := range doc.Items {
			doc.Items[i].Price = decimal.NullDecimal{}
			doc.Items[i].Total = decimal.NullDecimal{}
		}
		doc.Materials, totals = computeMaterialTotals(doc.Materials, doc.Discount)
	}
	doc.SubTotal = totals.SubTotal
	doc.DiscountTotal = totals.DiscountTotal
	doc.Total = totals.Total
	if rule.TracksPayment {
		doc.PaymentStatus = ComputePaymentStatus(doc.Total, doc.Credit)
	}
	return nil
}

func formatDocumentNumber(seq int) string {
	return fmt.Sprintf("%04d", seq)
}

// assignNumber takes the next counter value unless the caller chose a number.
func assignNumber(tx *gorm.DB, doc *FinancialDocument, number string) error {
	doc.Year = doc.DocumentDate.UTC().Year()
	number = strings.TrimSpace(number)
	if number == "" {
		seq, err := AtomicIncrement(tx, doc.BusinessId, counterKeyForKind(doc.Kind))
		if err != nil {
			return err
		}
		doc.SequenceNo = seq
		doc.Number = formatDocumentNumber(seq)
		return nil
	}
	existing, err := FindOne[FinancialDocument](tx,
		"business_id = ? AND kind = ? AND number_prefix = ? AND year = ? AND number = ?",
		doc.BusinessId, doc.Kind, doc.NumberPrefix, doc.Year, number)
	if err != nil {
		return err
	}
	if existing != nil {
		return utils.NewValidationError("duplicate number %s-%d-%s", doc.NumberPrefix, doc.Year, number)
	}
	doc.Number = number
	return nil
}

func insertDocument(tx *gorm.DB, doc *FinancialDocument) error {
	err := tx.Omit("Clients.*").Create(doc).Error
	if isDuplicateKeyErr(err) {
		return utils.NewValidationError("duplicate number %s", doc.DisplayNumber())
	}
	return err
}

func preloadDocument(tx *gorm.DB) *gorm.DB {
	return tx.
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("sort_order, id") }).
		Preload("Materials", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Preload("Clients")
}

// fetchDocumentTx loads a live document with its lines and clients.
// kind "" accepts any kind; a kind mismatch reads as not found.
func fetchDocumentTx(tx *gorm.DB, businessId string, id int, kind DocumentKind) (*FinancialDocument, error) {
	q := preloadDocument(tx).Where("business_id = ? AND removed = ?", businessId, false)
	if kind != "" {
		q = q.Where("kind = ?", kind)
	}
	doc, err := FindOne[FinancialDocument](q, "id = ?", id)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		name := "FinancialDocument"
		if kind != "" {
			name = string(kind)
		}
		return nil, utils.NewNotFoundError(name, id)
	}
	return doc, nil
}

func replaceDocumentClients(tx *gorm.DB, documentId int, clientIds []int) error {
	if err := tx.Where("financial_document_id = ?", documentId).Delete(&DocumentClient{}).Error; err != nil {
		return err
	}
	ids := utils.UniqueSlice(clientIds)
	if len(ids) == 0 {
		return nil
	}
	rows := make([]DocumentClient, 0, len(ids))
	for _, cid := range ids {
		rows = append(rows, DocumentClient{FinancialDocumentId: documentId, ClientId: cid})
	}
	return tx.Create(&rows).Error
}

// DocumentClient is the join row behind FinancialDocument.Clients.
type DocumentClient struct {
	FinancialDocumentId int `gorm:"primaryKey"`
	ClientId            int `gorm:"primaryKey"`
}

func CreateFinancialDocument(ctx context.Context, kind DocumentKind, input *NewFinancialDocument) (*FinancialDocument, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := input.validate(ctx, businessId, kind, 0); err != nil {
		return nil, err
	}
	rule := documentRules[kind]
	clients, err := GetClientsByIds(ctx, input.ClientIds)
	if err != nil {
		return nil, err
	}

	doc := FinancialDocument{
		BusinessId:   businessId,
		Kind:         kind,
		NumberPrefix: input.NumberPrefix,
		WorkType:     input.WorkType,
		DocumentDate: input.DocumentDate,
		Currency:     input.Currency,
		Discount:     input.Discount,
		Status:       input.Status,
		ProjectId:    input.ProjectId,
		Notes:        input.Notes,
		SupplierName: input.SupplierName,
		Items:        buildDocumentItems(rule, input.Items),
		Materials:    buildDocumentMaterials(input.Materials),
		Clients:      clients,
	}
	if rule.TracksPayment {
		doc.Credit = utils.RoundMoney(input.Credit)
		if input.PaymentTermsDays != nil {
			due := doc.DocumentDate.AddDate(0, 0, *input.PaymentTermsDays)
			doc.PaymentDueDate = &due
		}
	}
	if err := applyTotals(&doc); err != nil {
		return nil, err
	}
	if rule.TracksPayment {
		if err := checkInvoiceCredit(doc.Total, doc.Credit); err != nil {
			return nil, err
		}
	}

	err = WithTransaction(ctx, func(tx *gorm.DB) error {
		if err := assignNumber(tx, &doc, input.Number); err != nil {
			return err
		}
		if err := insertDocument(tx, &doc); err != nil {
			return err
		}
		return createHistory(tx, HistoryActionCreate, doc.ID, rule.ReferenceType, nil, &doc,
			fmt.Sprintf("%s %s created for %s %v.", kind, doc.DisplayNumber(), doc.Currency, doc.Total))
	})
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// UpdateFinancialDocument replaces lines, clients and terms of a live document.
// Number, prefix and kind never change; an invoice's credit is kept and its payment
// status recomputed against the new total.
func UpdateFinancialDocument(ctx context.Context, id int, input *NewFinancialDocument) (*FinancialDocument, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	db := config.GetDB().WithContext(ctx)
	existing, err := fetchDocumentTx(db, businessId, id, "")
	if err != nil {
		return nil, err
	}
	if len(input.Items) == 0 {
		return nil, utils.NewEmptyItemsError()
	}
	if err := input.validate(ctx, businessId, existing.Kind, id); err != nil {
		return nil, err
	}
	if input.Status != "" && input.Status != existing.Status {
		if err := validateStatusChange(existing.Kind, existing.Status, input.Status); err != nil {
			return nil, err
		}
	}
	rule := documentRules[existing.Kind]

	updated := *existing
	updated.WorkType = input.WorkType
	updated.DocumentDate = input.DocumentDate
	updated.Currency = input.Currency
	updated.Discount = input.Discount
	updated.ProjectId = input.ProjectId
	updated.Notes = input.Notes
	updated.SupplierName = input.SupplierName
	if input.Status != "" {
		updated.Status = input.Status
	}
	updated.Items = buildDocumentItems(rule, input.Items)
	updated.Materials = buildDocumentMaterials(input.Materials)
	if rule.TracksPayment && input.PaymentTermsDays != nil {
		due := updated.DocumentDate.AddDate(0, 0, *input.PaymentTermsDays)
		updated.PaymentDueDate = &due
	}
	if err := applyTotals(&updated); err != nil {
		return nil, err
	}
	if rule.TracksPayment && updated.Credit.IsPositive() && updated.Credit.GreaterThan(updated.Total) {
		return nil, utils.NewInvalidStateError("%s %s has credit %s above the new total %s",
			existing.Kind, existing.DisplayNumber(), updated.Credit, updated.Total)
	}

	var result *FinancialDocument
	err = WithTransaction(ctx, func(tx *gorm.DB) error {
		if err := tx.Where("document_id = ?", id).Delete(&DocumentItem{}).Error; err != nil {
			return err
		}
		if err := tx.Where("document_id = ?", id).Delete(&DocumentMaterial{}).Error; err != nil {
			return err
		}
		for i := range updated.Items {
			updated.Items[i].DocumentId = id
		}
		for i := range updated.Materials {
			updated.Materials[i].DocumentId = id
		}
		if len(updated.Items) > 0 {
			if err := tx.Create(&updated.Items).Error; err != nil {
				return err
			}
		}
		if len(updated.Materials) > 0 {
			if err := tx.Create(&updated.Materials).Error; err != nil {
				return err
			}
		}
		if err := replaceDocumentClients(tx, id, input.ClientIds); err != nil {
			return err
		}

		rows, err := UpdateOne[FinancialDocument](tx, map[string]interface{}{
			"work_type":        updated.WorkType,
			"document_date":    updated.DocumentDate,
			"currency":         updated.Currency,
			"discount":         updated.Discount,
			"sub_total":        updated.SubTotal,
			"discount_total":   updated.DiscountTotal,
			"total":            updated.Total,
			"status":           updated.Status,
			"payment_status":   updated.PaymentStatus,
			"payment_due_date": updated.PaymentDueDate,
			"project_id":       updated.ProjectId,
			"notes":            updated.Notes,
			"supplier_name":    updated.SupplierName,
		}, "id = ? AND removed = ? AND status = ? AND credit = ?", id, false, existing.Status, existing.Credit)
		if err != nil {
			return err
		}
		if rows == 0 {
			return utils.NewInvalidStateError("%s %d was changed by another request", existing.Kind, id)
		}

		result, err = fetchDocumentTx(tx, businessId, id, existing.Kind)
		if err != nil {
			return err
		}
		return createHistory(tx, HistoryActionUpdate, id, rule.ReferenceType, existing, result,
			fmt.Sprintf("%s %s updated.", existing.Kind, existing.DisplayNumber()))
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// SetDocumentStatus changes only the status. Invoices reject payment statuses here;
// those follow from credit.
func SetDocumentStatus(ctx context.Context, id int, status DocumentStatus) (*FinancialDocument, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	var result *FinancialDocument
	err = WithTransaction(ctx, func(tx *gorm.DB) error {
		doc, err := fetchDocumentTx(tx, businessId, id, "")
		if err != nil {
			return err
		}
		if err := validateStatusChange(doc.Kind, doc.Status, status); err != nil {
			return err
		}
		if doc.Status == status {
			result = doc
			return nil
		}
		rows, err := UpdateOne[FinancialDocument](tx, map[string]interface{}{"status": status},
			"id = ? AND status = ? AND removed = ?", id, doc.Status, false)
		if err != nil {
			return err
		}
		if rows == 0 {
			return utils.NewInvalidStateError("%s %d was changed by another request", doc.Kind, id)
		}
		before := doc.Status
		doc.Status = status
		result = doc
		return createHistory(tx, HistoryActionUpdate, id, documentRules[doc.Kind].ReferenceType,
			map[string]interface{}{"status": before}, map[string]interface{}{"status": status},
			fmt.Sprintf("%s %s status changed from %s to %s.", doc.Kind, doc.DisplayNumber(), before, status))
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// RemoveFinancialDocument flips the removed flag; the row and its lines stay.
func RemoveFinancialDocument(ctx context.Context, id int) (*FinancialDocument, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	var result *FinancialDocument
	err = WithTransaction(ctx, func(tx *gorm.DB) error {
		doc, err := fetchDocumentTx(tx, businessId, id, "")
		if err != nil {
			return err
		}
		rows, err := UpdateOne[FinancialDocument](tx, map[string]interface{}{"removed": true}, "id = ? AND removed = ?", id, false)
		if err != nil {
			return err
		}
		if rows == 0 {
			return utils.NewNotFoundError(string(doc.Kind), id)
		}
		doc.Removed = true
		result = doc
		return createHistory(tx, HistoryActionDelete, id, documentRules[doc.Kind].ReferenceType, doc, nil,
			fmt.Sprintf("%s %s removed.", doc.Kind, doc.DisplayNumber()))
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func GetFinancialDocument(ctx context.Context, id int) (*FinancialDocument, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return fetchDocumentTx(config.GetDB().WithContext(ctx), businessId, id, "")
}

// GetFinancialDocuments lists live documents, newest first. Lines and clients are not loaded.
func GetFinancialDocuments(ctx context.Context, filter DocumentFilter) ([]*FinancialDocument, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	dbCtx := config.GetDB().WithContext(ctx).Where("business_id = ? AND removed = ?", businessId, false)
	if filter.Kind != "" {
		dbCtx = dbCtx.Where("kind = ?", filter.Kind)
	}
	if filter.Status != nil {
		dbCtx = dbCtx.Where("status = ?", *filter.Status)
	}
	if filter.PaymentStatus != nil {
		dbCtx = dbCtx.Where("payment_status = ?", *filter.PaymentStatus)
	}
	if filter.ProjectId != nil {
		dbCtx = dbCtx.Where("project_id = ?", *filter.ProjectId)
	}
	if filter.ClientId != nil {
		dbCtx = dbCtx.Where("id IN (?)", config.GetDB().WithContext(ctx).Model(&DocumentClient{}).
			Select("financial_document_id").Where("client_id = ?", *filter.ClientId))
	}
	if filter.Number != "" {
		dbCtx = dbCtx.Where("number LIKE ?", "%"+filter.Number+"%")
	}
	var results []*FinancialDocument
	if err := dbCtx.Order("document_date DESC, id DESC").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// GetDocumentClientIds maps document ids to their client ids for batched listings.
func GetDocumentClientIds(ctx context.Context, documentIds []int) (map[int][]int, error) {
	result := make(map[int][]int)
	if len(documentIds) == 0 {
		return result, nil
	}
	var rows []DocumentClient
	err := config.GetDB().WithContext(ctx).Where("financial_document_id IN ?", documentIds).
		Order("financial_document_id, client_id").Find(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		result[r.FinancialDocumentId] = append(result[r.FinancialDocumentId], r.ClientId)
	}
	return result, nil
}
