package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// Ошибка отсутствующего идентификатора пользователя.
	ErrUserRequired = errors.New("user_id is required")
	// Ошибка отсутствия хотя бы одного товара в заказе.
	ErrItemsRequired = errors.New("order must contain at least one item")
	// Ошибка отрицательной суммы заказа.
	ErrTotalNegative = errors.New("total_price must be non-negative")
	// Ошибка при некорректном количестве товара (<= 0).
	ErrItemQtyInvalid = errors.New("item quantity must be greater than zero")
	// Ошибка, если цена позиции отрицательная.
	ErrItemPriceInvalid = errors.New("item price must be non-negative")
	// Ошибка несоответствия суммы заказа и сумм позиций.
	ErrTotalMismatch = errors.New("order total does not match items sum")
	// ErrNoPriceAvailable возвращается, когда у товара нет ни одной цены,
	// действующей на запрошенный момент. Это дефект конфигурации каталога,
	// а не ошибка пользователя.
	ErrNoPriceAvailable = errors.New("no price available")
	// ErrProductNotFound возвращается, если товар не найден в каталоге.
	ErrProductNotFound = errors.New("product not found")
	// ErrOrderNotFound возвращается, если заказ не найден в репозитории.
	ErrOrderNotFound = errors.New("order not found")
	// ErrUserNotFound возвращается при неизвестном пользователе или токене.
	ErrUserNotFound = errors.New("user not found")
	// ErrUserExists сигнализирует о конфликте по username при создании.
	ErrUserExists = errors.New("user already exists")
)

// StockShortage описывает один недопоставленный товар в запросе на заказ.
type StockShortage struct {
	ProductID string
	Name      string
	Requested int32
	Available int32
}

func (s StockShortage) String() string {
	return fmt.Sprintf("insufficient stock level of %s (%s): requested %d, have %d",
		s.Name, s.ProductID, s.Requested, s.Available)
}

// OutOfStockOrderError — бизнес-ошибка оформления: хотя бы по одному товару
// запрошено больше, чем есть на складе. Несёт полный список нехваток, а не
// только первую встреченную, чтобы вызывающий слой мог показать всё сразу.
type OutOfStockOrderError struct {
	Shortages []StockShortage
}

func (e *OutOfStockOrderError) Error() string {
	parts := make([]string, 0, len(e.Shortages))
	for _, s := range e.Shortages {
		parts = append(parts, s.String())
	}
	return strings.Join(parts, "; ")
}

// IsOutOfStock проверяет, является ли ошибка нехваткой товара на складе.
func IsOutOfStock(err error) bool {
	var oos *OutOfStockOrderError
	return errors.As(err, &oos)
}
