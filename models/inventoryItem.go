package models

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sitebooks/backoffice/config"
	"github.com/sitebooks/backoffice/utils"
	"gorm.io/gorm"
)

type InventoryItem struct {
	ID         int             `gorm:"primary_key" json:"id"`
	BusinessId string          `gorm:"size:64;not null;index" json:"business_id"`
	Name       string          `gorm:"size:255;not null" json:"name"`
	Unit       string          `gorm:"size:50" json:"unit"`
	Cost       decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"cost"`
	Quantity   decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"quantity"`
	Removed    bool            `gorm:"not null;default:false;index" json:"removed"`
	CreatedAt  time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewInventoryItem struct {
	Name     string           `json:"name" binding:"required"`
	Unit     string           `json:"unit"`
	Cost     decimal.Decimal  `json:"cost"`
	Quantity *decimal.Decimal `json:"quantity"`
}

func (input *NewInventoryItem) validate(ctx context.Context, businessId string, id int) error {
	if strings.TrimSpace(input.Name) == "" {
		return utils.NewValidationError("inventory item name is required")
	}
	if input.Cost.IsNegative() {
		return utils.NewValidationError("cost cannot be negative")
	}
	if input.Quantity != nil && input.Quantity.IsNegative() {
		return utils.NewValidationError("quantity cannot be negative")
	}
	return utils.ValidateUnique[InventoryItem](ctx, businessId, "name", strings.TrimSpace(input.Name), id)
}

func CreateInventoryItem(ctx context.Context, input *NewInventoryItem) (*InventoryItem, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := input.validate(ctx, businessId, 0); err != nil {
		return nil, err
	}
	item := InventoryItem{
		BusinessId: businessId,
		Name:       strings.TrimSpace(input.Name),
		Unit:       input.Unit,
		Cost:       input.Cost,
	}
	opening := utils.DereferencePtr(input.Quantity, decimal.Zero)
	err = WithTransaction(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(&item).Error; err != nil {
			return err
		}
		return applyStockDelta(tx, businessId, item.ID, opening, time.Now().UTC(),
			utils.GetActorFromContext(ctx), InventoryReferenceOpening, item.ID)
	})
	if err != nil {
		return nil, err
	}
	item.Quantity = opening
	return &item, nil
}

// UpdateInventoryItem edits the item's details. Once the ledger has records for the
// item, its quantity only moves through confirmed stock movements.
func UpdateInventoryItem(ctx context.Context, id int, input *NewInventoryItem) (*InventoryItem, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := input.validate(ctx, businessId, id); err != nil {
		return nil, err
	}
	item, err := utils.FetchModel[InventoryItem](ctx, businessId, id)
	if err != nil {
		return nil, err
	}

	var delta decimal.Decimal
	if input.Quantity != nil && !input.Quantity.Equal(item.Quantity) {
		inUse, err := inventoryItemInUse(ctx, businessId, id)
		if err != nil {
			return nil, err
		}
		if inUse {
			return nil, utils.NewInvalidStateError("quantity of inventory item %d is managed by stock movements", id)
		}
		delta = input.Quantity.Sub(item.Quantity)
	}

	err = WithTransaction(ctx, func(tx *gorm.DB) error {
		err := tx.Model(item).Updates(map[string]interface{}{
			"Name": strings.TrimSpace(input.Name),
			"Unit": input.Unit,
			"Cost": input.Cost,
		}).Error
		if err != nil {
			return err
		}
		return applyStockDelta(tx, businessId, id, delta, time.Now().UTC(),
			utils.GetActorFromContext(ctx), InventoryReferenceAdjustment, id)
	})
	if err != nil {
		return nil, err
	}
	item.Name = strings.TrimSpace(input.Name)
	item.Unit = input.Unit
	item.Cost = input.Cost
	item.Quantity = item.Quantity.Add(delta)
	return item, nil
}

func RemoveInventoryItem(ctx context.Context, id int) (*InventoryItem, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	item, err := utils.FetchModel[InventoryItem](ctx, businessId, id)
	if err != nil {
		return nil, err
	}
	pending, err := utils.ResourceCountWhere[ProjectStockMovementItem](ctx, "",
		"inventory_item_id = ? AND movement_id IN (?)", id,
		config.GetDB().WithContext(ctx).Model(&ProjectStockMovement{}).Select("id").
			Where("business_id = ? AND status = ? AND removed = ?", businessId, MovementStatusPending, false))
	if err != nil {
		return nil, err
	}
	if pending > 0 {
		return nil, utils.NewInvalidStateError("inventory item %d is used by pending stock movements", id)
	}
	if err := config.GetDB().WithContext(ctx).Model(item).Update("Removed", true).Error; err != nil {
		return nil, err
	}
	return item, nil
}

func GetInventoryItem(ctx context.Context, id int) (*InventoryItem, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return utils.FetchModel[InventoryItem](ctx, businessId, id)
}

func GetInventoryItems(ctx context.Context, name *string) ([]*InventoryItem, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	dbCtx := config.GetDB().WithContext(ctx).Where("business_id = ? AND removed = ?", businessId, false)
	if name != nil && len(*name) > 0 {
		dbCtx = dbCtx.Where("name LIKE ?", "%"+*name+"%")
	}
	var results []*InventoryItem
	if err := dbCtx.Order("name").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// inventoryItemInUse reports whether a confirmed stock movement has touched the item.
func inventoryItemInUse(ctx context.Context, businessId string, id int) (bool, error) {
	var count int64
	err := config.GetDB().WithContext(ctx).Model(&InventoryRecord{}).
		Where("business_id = ? AND inventory_item_id = ? AND reference_type = ?", businessId, id, InventoryReferenceStockMovement).
		Count(&count).Error
	return count > 0, err
}
