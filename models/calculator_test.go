package models

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/sitebooks/backoffice/utils"
)

func pricedItem(qty, price string) DocumentItem {
	return DocumentItem{
		ItemName: "line",
		Quantity: decimal.RequireFromString(qty),
		Price:    decimal.NewNullDecimal(decimal.RequireFromString(price)),
	}
}

func TestComputeTotals(t *testing.T) {
	cases := []struct {
		name          string
		items         []DocumentItem
		discount      string
		subTotal      string
		discountTotal string
		total         string
	}{
		{
			name:          "quote with ten percent discount",
			items:         []DocumentItem{pricedItem("2", "500"), pricedItem("1", "800")},
			discount:      "10",
			subTotal:      "1800",
			discountTotal: "180",
			total:         "1620",
		},
		{
			name:          "credit line makes total negative",
			items:         []DocumentItem{pricedItem("1", "100"), pricedItem("1", "-250")},
			discount:      "0",
			subTotal:      "-150",
			discountTotal: "0",
			total:         "-150",
		},
		{
			name:          "negative line discounted",
			items:         []DocumentItem{pricedItem("3", "-100")},
			discount:      "10",
			subTotal:      "-300",
			discountTotal: "-30",
			total:         "-270",
		},
		{
			name:          "fractional quantities stay exact",
			items:         []DocumentItem{pricedItem("0.1", "0.2"), pricedItem("0.3", "0.1"), pricedItem("2.5", "19.99")},
			discount:      "0",
			subTotal:      "50.03",
			discountTotal: "0",
			total:         "50.03",
		},
		{
			name:          "cent rounding per line",
			items:         []DocumentItem{pricedItem("1.5", "3.333")},
			discount:      "15",
			subTotal:      "5",
			discountTotal: "0.75",
			total:         "4.25",
		},
	}

	for _, tc := range cases {
		got, err := ComputeTotals(tc.items, decimal.RequireFromString(tc.discount))
		if err != nil {
			t.Fatalf("%s: unexpected error %v", tc.name, err)
		}
		if !got.SubTotal.Equal(decimal.RequireFromString(tc.subTotal)) {
			t.Fatalf("%s: subTotal = %s, want %s", tc.name, got.SubTotal, tc.subTotal)
		}
		if !got.DiscountTotal.Equal(decimal.RequireFromString(tc.discountTotal)) {
			t.Fatalf("%s: discountTotal = %s, want %s", tc.name, got.DiscountTotal, tc.discountTotal)
		}
		if !got.Total.Equal(decimal.RequireFromString(tc.total)) {
			t.Fatalf("%s: total = %s, want %s", tc.name, got.Total, tc.total)
		}

		sum := decimal.Zero
		for i, item := range got.Items {
			want := utils.MulMoney(tc.items[i].Quantity, tc.items[i].Price.Decimal)
			if !item.Total.Valid || !item.Total.Decimal.Equal(want) {
				t.Fatalf("%s: item %d total = %v, want %s", tc.name, i, item.Total, want)
			}
			sum = sum.Add(item.Total.Decimal)
		}
		if !sum.Equal(got.SubTotal) {
			t.Fatalf("%s: subTotal %s is not the sum of item totals %s", tc.name, got.SubTotal, sum)
		}
		if !got.Total.Equal(got.SubTotal.Sub(got.DiscountTotal)) {
			t.Fatalf("%s: total is not subTotal - discountTotal", tc.name)
		}
	}
}

func TestComputeTotalsDoesNotMutateInput(t *testing.T) {
	items := []DocumentItem{pricedItem("2", "10")}
	if _, err := ComputeTotals(items, decimal.Zero); err != nil {
		t.Fatal(err)
	}
	if items[0].Total.Valid {
		t.Fatalf("input item was modified: %v", items[0].Total)
	}
}

func TestComputeTotalsRejectsEmptyItems(t *testing.T) {
	_, err := ComputeTotals(nil, decimal.NewFromInt(10))
	if !errors.Is(err, utils.ErrEmptyItems) {
		t.Fatalf("expected empty items error, got %v", err)
	}
	if !errors.Is(err, utils.ErrValidation) {
		t.Fatalf("empty items should be a validation error, got %v", err)
	}
}

func TestComputePaymentStatus(t *testing.T) {
	cases := []struct {
		total, credit string
		want          PaymentStatus
	}{
		{"1620", "0", PaymentStatusUnpaid},
		{"1620", "1620", PaymentStatusPaid},
		{"1620", "800", PaymentStatusPartially},
		{"1620.00", "1620", PaymentStatusPaid},
		{"0", "0", PaymentStatusPaid},
		{"-150", "0", PaymentStatusUnpaid},
		{"100", "-5", PaymentStatusUnpaid},
		{"100", "150", PaymentStatusUnpaid},
	}
	for _, tc := range cases {
		total := decimal.RequireFromString(tc.total)
		credit := decimal.RequireFromString(tc.credit)
		first := ComputePaymentStatus(total, credit)
		if first != tc.want {
			t.Fatalf("ComputePaymentStatus(%s, %s) = %s, want %s", tc.total, tc.credit, first, tc.want)
		}
		if again := ComputePaymentStatus(total, credit); again != first {
			t.Fatalf("ComputePaymentStatus is not deterministic for (%s, %s)", tc.total, tc.credit)
		}
	}
}

func TestValidateStatusChange(t *testing.T) {
	t.Setenv("STRICT_DOCUMENT_TRANSITIONS", "")
	if err := validateStatusChange(DocumentKindQuote, DocumentStatusCancelled, DocumentStatusAccepted); err != nil {
		t.Fatalf("free mode should accept any quote status: %v", err)
	}
	if err := validateStatusChange(DocumentKindInvoice, DocumentStatusDraft, DocumentStatusAccepted); !errors.Is(err, utils.ErrValidation) {
		t.Fatalf("invoice has no accepted status, got %v", err)
	}
	if err := validateStatusChange(DocumentKindQuote, DocumentStatusDraft, "archived"); !errors.Is(err, utils.ErrValidation) {
		t.Fatalf("unknown status should be a validation error, got %v", err)
	}

	t.Setenv("STRICT_DOCUMENT_TRANSITIONS", "true")
	if err := validateStatusChange(DocumentKindQuote, DocumentStatusDraft, DocumentStatusPending); err != nil {
		t.Fatalf("draft -> pending should be allowed: %v", err)
	}
	if err := validateStatusChange(DocumentKindQuote, DocumentStatusCancelled, DocumentStatusAccepted); !errors.Is(err, utils.ErrInvalidState) {
		t.Fatalf("cancelled -> accepted should be rejected, got %v", err)
	}
	if err := validateStatusChange(DocumentKindQuote, DocumentStatusSent, DocumentStatusSent); err != nil {
		t.Fatalf("unchanged status should be allowed: %v", err)
	}
}

func TestRemapPrefix(t *testing.T) {
	cases := []struct {
		source string
		target DocumentKind
		want   string
	}{
		{"Q", DocumentKindSupplierQuote, "SQ"},
		{"QC", DocumentKindSupplierQuote, "SQC"},
		{"QL", DocumentKindInvoice, "INVL"},
		{"LEGACY", DocumentKindInvoice, "INV"},
		{"", DocumentKindSupplierQuote, "SQ"},
	}
	for _, tc := range cases {
		if got := remapPrefix(tc.source, tc.target); got != tc.want {
			t.Fatalf("remapPrefix(%q, %s) = %q, want %q", tc.source, tc.target, got, tc.want)
		}
	}
}
