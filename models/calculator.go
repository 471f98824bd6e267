package models

import (
	"github.com/shopspring/decimal"
	"github.com/sitebooks/backoffice/utils"
)

type Totals struct {
	Items         []DocumentItem  `json:"items"`
	SubTotal      decimal.Decimal `json:"sub_total"`
	DiscountTotal decimal.Decimal `json:"discount_total"`
	Total         decimal.Decimal `json:"total"`
}

// ComputeTotals fills each item's total (quantity × price, in cents) and sums the
// document in item order. Negative lines and totals are kept as they are.
func ComputeTotals(items []DocumentItem, discountPercent decimal.Decimal) (*Totals, error) {
	if len(items) == 0 {
		return nil, utils.NewEmptyItemsError()
	}
	return computeTotals(items, discountPercent), nil
}

// computeTotals is ComputeTotals without the empty check, for drafts created without lines.
func computeTotals(items []DocumentItem, discountPercent decimal.Decimal) *Totals {
	result := Totals{Items: make([]DocumentItem, len(items))}
	subTotal := decimal.Zero
	for i, item := range items {
		itemTotal := utils.MulMoney(item.Quantity, item.Price.Decimal)
		item.Price = decimal.NewNullDecimal(item.Price.Decimal)
		item.Total = decimal.NewNullDecimal(itemTotal)
		result.Items[i] = item
		subTotal = subTotal.Add(itemTotal)
	}
	result.SubTotal = subTotal
	result.DiscountTotal = utils.CalculateDiscountAmount(subTotal, discountPercent)
	result.Total = subTotal.Sub(result.DiscountTotal)
	return &result
}

// computeMaterialTotals prices a supplier quote from its materials.
func computeMaterialTotals(materials []DocumentMaterial, discountPercent decimal.Decimal) ([]DocumentMaterial, *Totals) {
	priced := make([]DocumentMaterial, len(materials))
	subTotal := decimal.Zero
	for i, m := range materials {
		m.TotalCost = utils.MulMoney(m.Quantity, m.UnitCost)
		priced[i] = m
		subTotal = subTotal.Add(m.TotalCost)
	}
	discountTotal := utils.CalculateDiscountAmount(subTotal, discountPercent)
	return priced, &Totals{
		SubTotal:      subTotal,
		DiscountTotal: discountTotal,
		Total:         subTotal.Sub(discountTotal),
	}
}
