package models

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sitebooks/backoffice/config"
	"gorm.io/gorm"
)

// InventoryRecord reference types.
const (
	InventoryReferenceOpening       = "opening"
	InventoryReferenceAdjustment    = "inventory_adjustment"
	InventoryReferenceStockMovement = "project_stock_movements"
)

// InventoryRecord is the append-only ledger of stock changes. Unit is the magnitude;
// Type carries the direction.
type InventoryRecord struct {
	ID              int                 `gorm:"primary_key" json:"id"`
	BusinessId      string              `gorm:"size:64;not null;index" json:"business_id"`
	InventoryItemId int                 `gorm:"index;not null" json:"inventory_item_id"`
	Unit            decimal.Decimal     `gorm:"type:decimal(20,4);not null" json:"unit"`
	Type            InventoryRecordType `gorm:"size:3;not null" json:"type"`
	Date            time.Time           `gorm:"not null;index" json:"date"`
	Owner           string              `gorm:"size:100" json:"owner"`
	ReferenceType   string              `gorm:"size:50;index:idx_inventory_record_ref,priority:1" json:"reference_type"`
	ReferenceId     int                 `gorm:"index:idx_inventory_record_ref,priority:2" json:"reference_id"`
	CreatedAt       time.Time           `gorm:"autoCreateTime" json:"created_at"`
}

// SignedUnit is Unit with the sign of its direction.
func (r InventoryRecord) SignedUnit() decimal.Decimal {
	if r.Type == InventoryRecordTypeOut {
		return r.Unit.Neg()
	}
	return r.Unit
}

// applyStockDelta moves an item's quantity by delta and appends the matching ledger row.
func applyStockDelta(tx *gorm.DB, businessId string, itemId int, delta decimal.Decimal, date time.Time, owner string, refType string, refId int) error {
	if delta.IsZero() {
		return nil
	}
	if err := AtomicAdjustQuantity(tx, itemId, delta, config.AllowNegativeStock()); err != nil {
		return err
	}
	recordType := InventoryRecordTypeIn
	if delta.IsNegative() {
		recordType = InventoryRecordTypeOut
	}
	return tx.Create(&InventoryRecord{
		BusinessId:      businessId,
		InventoryItemId: itemId,
		Unit:            delta.Abs(),
		Type:            recordType,
		Date:            date,
		Owner:           owner,
		ReferenceType:   refType,
		ReferenceId:     refId,
	}).Error
}

func GetInventoryRecords(ctx context.Context, inventoryItemId *int, referenceType string, referenceId int) ([]*InventoryRecord, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	dbCtx := config.GetDB().WithContext(ctx).Where("business_id = ?", businessId)
	if inventoryItemId != nil {
		dbCtx = dbCtx.Where("inventory_item_id = ?", *inventoryItemId)
	}
	if referenceType != "" {
		dbCtx = dbCtx.Where("reference_type = ? AND reference_id = ?", referenceType, referenceId)
	}
	var results []*InventoryRecord
	if err := dbCtx.Order("id").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// LedgerQuantities sums the signed ledger per item, for rebuilding InventoryItem.Quantity.
func LedgerQuantities(ctx context.Context, businessId string) (map[int]decimal.Decimal, error) {
	return LedgerQuantitiesTx(config.GetDB().WithContext(ctx), businessId)
}

func LedgerQuantitiesTx(tx *gorm.DB, businessId string) (map[int]decimal.Decimal, error) {
	var records []InventoryRecord
	err := tx.Where("business_id = ?", businessId).Order("id").Find(&records).Error
	if err != nil {
		return nil, err
	}
	result := make(map[int]decimal.Decimal)
	for _, r := range records {
		result[r.InventoryItemId] = result[r.InventoryItemId].Add(r.SignedUnit())
	}
	return result, nil
}
