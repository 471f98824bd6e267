package workflow

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/sitebooks/backoffice/config"
	"github.com/sitebooks/backoffice/models"
	"github.com/sitebooks/backoffice/utils"
	"gorm.io/gorm"
)

// QuantityDrift is an inventory item whose stored quantity disagrees with its ledger.
type QuantityDrift struct {
	InventoryItemId int             `json:"inventory_item_id"`
	Name            string          `json:"name"`
	Stored          decimal.Decimal `json:"stored"`
	Ledger          decimal.Decimal `json:"ledger"`
}

// RebuildInventoryQuantities compares every live item of a business with the sum of its
// inventory records. With apply set, drifted items are overwritten with the ledger value
// in one transaction while the business stock lock is held.
func RebuildInventoryQuantities(ctx context.Context, db *gorm.DB, logger *logrus.Logger, businessId string, apply bool) ([]QuantityDrift, error) {
	if db == nil {
		return nil, fmt.Errorf("rebuild inventory: db is nil")
	}
	if logger == nil {
		logger = config.GetLogger()
	}
	if businessId == "" {
		return nil, fmt.Errorf("rebuild inventory: business id is required")
	}

	var drifts []QuantityDrift
	err := utils.WithBusinessLock(ctx, businessId, "stockLock", "InventoryRebuild", func() error {
		return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			ledger, err := models.LedgerQuantitiesTx(tx, businessId)
			if err != nil {
				return err
			}
			var items []models.InventoryItem
			if err := tx.Where("business_id = ? AND removed = ?", businessId, false).Order("id").Find(&items).Error; err != nil {
				return err
			}

			for _, item := range items {
				want := ledger[item.ID]
				if item.Quantity.Equal(want) {
					continue
				}
				drifts = append(drifts, QuantityDrift{InventoryItemId: item.ID, Name: item.Name, Stored: item.Quantity, Ledger: want})
				logger.WithFields(logrus.Fields{
					"field":             "RebuildInventoryQuantities",
					"business_id":       businessId,
					"inventory_item_id": item.ID,
					"stored":            item.Quantity.String(),
					"ledger":            want.String(),
					"apply":             apply,
				}).Warn("inventory quantity drift")
				if !apply {
					continue
				}
				if err := tx.Model(&models.InventoryItem{}).
					Where("id = ? AND business_id = ?", item.ID, businessId).
					Update("quantity", want).Error; err != nil {
					return err
				}
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return drifts, nil
}
