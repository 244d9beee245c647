package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product описывает товар каталога.
type Product struct {
	ID string
	// Name — отображаемое имя товара.
	Name string
	// Enabled управляет видимостью товара в каталоге; заказы на выключенные
	// товары из истории остаются валидными.
	Enabled bool
	// QuantityInStock — остаток на складе. Никогда не уходит в минус:
	// это центральный инвариант всего сервиса.
	QuantityInStock int32
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ProductPrice — одна запись ценовой истории товара.
// Записи неизменяемы после создания; действующая цена на момент T — это
// запись с максимальным EffectiveFrom <= T.
type ProductPrice struct {
	// ID монотонно растёт в порядке создания записей; при одинаковом
	// EffectiveFrom выигрывает запись с большим ID.
	ID        int64
	ProductID string
	Price     decimal.Decimal
	// EffectiveFrom — момент, с которого цена начинает действовать.
	EffectiveFrom time.Time
}
