package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestLineTotal(t *testing.T) {
	item := OrderItem{
		ProductPrice: decimal.RequireFromString("49.99"),
		Quantity:     3,
	}
	if got := item.LineTotal(); !got.Equal(decimal.RequireFromString("149.97")) {
		t.Fatalf("LineTotal = %s, want 149.97", got)
	}
}

func TestValidateInvariantsOK(t *testing.T) {
	order := Order{
		ID:         "o-1",
		UserID:     "u-1",
		TotalPrice: decimal.RequireFromString("150.00"),
		Items: []OrderItem{
			{ID: "i-1", OrderID: "o-1", ProductID: "p-1", ProductPrice: decimal.NewFromInt(50), Quantity: 3, CreatedAt: time.Now()},
		},
		CreatedAt: time.Now(),
	}
	if errs := order.ValidateInvariants(); len(errs) != 0 {
		t.Fatalf("unexpected invariant violations: %v", errs)
	}
}

func TestValidateInvariantsViolations(t *testing.T) {
	order := Order{
		TotalPrice: decimal.RequireFromString("-5"),
		Items: []OrderItem{
			{ProductPrice: decimal.RequireFromString("-1"), Quantity: 0},
		},
	}
	errs := order.ValidateInvariants()

	want := []error{ErrUserRequired, ErrTotalNegative, ErrItemQtyInvalid, ErrItemPriceInvalid, ErrTotalMismatch}
	for _, wantErr := range want {
		found := false
		for _, err := range errs {
			if err == wantErr {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("expected violation %v, got %v", wantErr, errs)
		}
	}
}

func TestValidateInvariantsTotalMismatch(t *testing.T) {
	order := Order{
		UserID:     "u-1",
		TotalPrice: decimal.NewFromInt(100),
		Items: []OrderItem{
			{ProductPrice: decimal.NewFromInt(50), Quantity: 1},
		},
	}
	errs := order.ValidateInvariants()
	if len(errs) != 1 || errs[0] != ErrTotalMismatch {
		t.Fatalf("errs = %v, want only ErrTotalMismatch", errs)
	}
}
