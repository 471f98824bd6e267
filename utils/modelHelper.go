package utils

import (
	"context"
	"errors"

	"github.com/sitebooks/backoffice/config"
	"gorm.io/gorm"
)

/* DB fetching */

// fetch model from db
// (business_id is used in WHERE, soft-removed rows are excluded, may return NotFound)
func FetchModel[T any](ctx context.Context, businessId string, id int, associations ...string) (*T, error) {
	return FetchModelTx[T](config.GetDB().WithContext(ctx), businessId, id, associations...)
}

// FetchModelTx is FetchModel on an existing handle, usually a transaction.
func FetchModelTx[T any](tx *gorm.DB, businessId string, id int, associations ...string) (*T, error) {
	q := tx.Where("business_id = ? AND removed = ?", businessId, false)
	for _, field := range associations {
		q = q.Preload(field)
	}
	var result T
	err := q.First(&result, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewNotFoundError(GetTypeName[T](), id)
		}
		return nil, err
	}
	return &result, nil
}
