package utils

import (
	"context"
	"reflect"

	"github.com/sitebooks/backoffice/config"
)

// check if id exists and is not removed, using business_id in WHERE, return NotFound error
func ValidateResourceId[T any](ctx context.Context, businessId string, id interface{}) error {
	count, err := ResourceCountWhere[T](ctx, businessId, "id = ? AND removed = ?", id, false)
	if err != nil {
		return err
	}
	if count <= 0 {
		return NewNotFoundError(GetTypeName[T](), id)
	}
	return nil
}

// check if ALL ids exist and are not removed
func ValidateResourcesId[M any, ID comparable](ctx context.Context, businessId string, ids []ID) error {
	unqIds := UniqueSlice(ids)
	if len(unqIds) == 0 {
		return nil
	}
	count, err := ResourceCountWhere[M](ctx, businessId, "id IN ? AND removed = ?", unqIds, false)
	if err != nil {
		return err
	}
	if count != int64(len(unqIds)) {
		return NewNotFoundError(GetTypeName[M](), unqIds)
	}
	return nil
}

func ValidateUnique[T any](ctx context.Context, businessId string, column string, value interface{}, exceptId interface{}) error {
	var count int64
	var err error
	if reflect.ValueOf(exceptId).IsZero() {
		count, err = ResourceCountWhere[T](ctx, businessId, column+" = ? AND removed = ?", value, false)
	} else {
		count, err = ResourceCountWhere[T](ctx, businessId, column+" = ? AND removed = ? AND NOT id = ?", value, false, exceptId)
	}
	if err != nil {
		return err
	}
	if count > 0 {
		return NewValidationError("duplicate %s", column)
	}
	return nil
}

// count records, using WHERE business_id = ? AND $condition
// business_id can be blank for admin user
func ResourceCountWhere[T any](ctx context.Context, businessId string, condition string, value ...interface{}) (int64, error) {
	var model T
	q := config.GetDB().WithContext(ctx).Model(&model)
	if businessId != "" {
		q = q.Where("business_id = ?", businessId)
	}
	var count int64
	if err := q.Where(condition, value...).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
