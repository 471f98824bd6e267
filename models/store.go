package models

import (
	"context"
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"
	"github.com/sitebooks/backoffice/config"
	"github.com/sitebooks/backoffice/utils"
	"gorm.io/gorm"
)

// WithTransaction runs fn inside one DB transaction; any error rolls back every write made through tx.
func WithTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return config.GetDB().WithContext(ctx).Transaction(fn)
}

// FindOne returns nil without error when nothing matches.
func FindOne[T any](tx *gorm.DB, query string, args ...interface{}) (*T, error) {
	var result T
	err := tx.Where(query, args...).Take(&result).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &result, nil
}

func Find[T any](tx *gorm.DB, order string, limit int, query string, args ...interface{}) ([]*T, error) {
	q := tx.Where(query, args...)
	if order != "" {
		q = q.Order(order)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	var results []*T
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// UpdateOne applies patch to rows matching the filter and reports how many changed.
// Callers use the count as a compare-and-set result.
func UpdateOne[T any](tx *gorm.DB, patch map[string]interface{}, query string, args ...interface{}) (int64, error) {
	var model T
	res := tx.Model(&model).Where(query, args...).Updates(patch)
	return res.RowsAffected, res.Error
}

// AtomicAdjustQuantity adds delta to an inventory item's quantity in a single UPDATE.
// Unless negative stock is allowed, a decrement that would go below zero changes nothing
// and returns InvalidStateError.
func AtomicAdjustQuantity(tx *gorm.DB, itemId int, delta decimal.Decimal, allowNegative bool) error {
	q := tx.Model(&InventoryItem{}).Where("id = ? AND removed = ?", itemId, false)
	if delta.IsNegative() && !allowNegative {
		q = q.Where("quantity >= ?", delta.Neg())
	}
	res := q.Update("quantity", gorm.Expr("quantity + ?", delta))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		exists, err := FindOne[InventoryItem](tx, "id = ? AND removed = ?", itemId, false)
		if err != nil {
			return err
		}
		if exists == nil {
			return utils.NewNotFoundError("InventoryItem", itemId)
		}
		return utils.NewInvalidStateError("insufficient stock for inventory item %d", itemId)
	}
	return nil
}

func isDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
