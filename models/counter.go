package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	CounterQuoteNumber         = "last_quote_number"
	CounterSupplierQuoteNumber = "last_supplier_quote_number"
	CounterInvoiceNumber       = "last_invoice_number"
	CounterShipQuoteNumber     = "last_ship_quote_number"
)

// Counter holds the last number handed out for one document sequence of a business.
type Counter struct {
	ID         int       `gorm:"primary_key" json:"id"`
	BusinessId string    `gorm:"size:64;not null;uniqueIndex:idx_counter_key,priority:1" json:"business_id"`
	CounterKey string    `gorm:"size:64;not null;uniqueIndex:idx_counter_key,priority:2" json:"counter_key"`
	Value      int       `gorm:"not null;default:0" json:"value"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func counterKeyForKind(kind DocumentKind) string {
	switch kind {
	case DocumentKindSupplierQuote:
		return CounterSupplierQuoteNumber
	case DocumentKindInvoice:
		return CounterInvoiceNumber
	case DocumentKindShipQuote:
		return CounterShipQuoteNumber
	}
	return CounterQuoteNumber
}

// AtomicIncrement bumps the counter with UPDATE value = value + 1 and returns the new value.
// The row lock taken by the UPDATE holds until tx ends, so concurrent callers never
// read the same value. A missing counter is created at 1; losing that insert race
// falls back to the increment.
func AtomicIncrement(tx *gorm.DB, businessId string, key string) (int, error) {
	for attempt := 0; attempt < 2; attempt++ {
		res := tx.Model(&Counter{}).
			Where("business_id = ? AND counter_key = ?", businessId, key).
			Update("value", gorm.Expr("value + 1"))
		if res.Error != nil {
			return 0, res.Error
		}
		if res.RowsAffected > 0 {
			var counter Counter
			if err := tx.Where("business_id = ? AND counter_key = ?", businessId, key).Take(&counter).Error; err != nil {
				return 0, err
			}
			return counter.Value, nil
		}

		counter := Counter{BusinessId: businessId, CounterKey: key, Value: 1}
		err := tx.Create(&counter).Error
		if err == nil {
			return 1, nil
		}
		if !isDuplicateKeyErr(err) {
			return 0, err
		}
	}
	return 0, gorm.ErrDuplicatedKey
}
