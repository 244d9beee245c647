package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderItem представляет одну позицию заказа.
type OrderItem struct {
	// ID позиции нужен для однозначной идентификации и аудита.
	ID      string
	OrderID string
	// ProductID — ссылка на товар каталога.
	ProductID string
	// ProductPrice — замороженная цена за единицу на момент оформления.
	// Последующие изменения каталога на неё не влияют.
	ProductPrice decimal.Decimal
	// Quantity — количество единиц товара, строго положительное.
	Quantity int32
	// CreatedAt фиксирует момент добавления позиции в заказ.
	CreatedAt time.Time
}

// LineTotal возвращает стоимость позиции: цена * количество.
func (i OrderItem) LineTotal() decimal.Decimal {
	return i.ProductPrice.Mul(decimal.NewFromInt32(i.Quantity))
}

// Order агрегирует позиции одного оформленного заказа.
// Заказ создаётся целиком внутри одной транзакции и после этого не меняется.
type Order struct {
	ID     string
	UserID string
	// TotalPrice — точная сумма всех позиций (цена * количество).
	TotalPrice decimal.Decimal
	Items      []OrderItem
	CreatedAt  time.Time
}

// ValidateInvariants проверяет базовые инварианты заказа и возвращает список замечаний.
func (o *Order) ValidateInvariants() []error {
	var errs []error

	if o.UserID == "" {
		errs = append(errs, ErrUserRequired)
	}
	if len(o.Items) == 0 {
		errs = append(errs, ErrItemsRequired)
	}
	if o.TotalPrice.IsNegative() {
		errs = append(errs, ErrTotalNegative)
	}

	// Сверяем сумму заказа с суммой позиций: qty * price.
	calc := decimal.Zero
	for _, item := range o.Items {
		if item.Quantity <= 0 {
			errs = append(errs, ErrItemQtyInvalid)
		}
		if item.ProductPrice.IsNegative() {
			errs = append(errs, ErrItemPriceInvalid)
		}
		calc = calc.Add(item.LineTotal())
	}
	if !calc.Equal(o.TotalPrice) {
		errs = append(errs, ErrTotalMismatch)
	}

	return errs
}
