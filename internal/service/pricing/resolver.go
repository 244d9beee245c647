package pricing

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/shop/internal/domain"
)

// Resolver выбирает действующую цену товара на заданный момент времени.
// Используется координатором оформления для заморозки цены позиции и
// каталогом для отображения текущей цены.
type Resolver struct{}

// NewResolver создаёт резолвер цен.
func NewResolver() *Resolver {
	return &Resolver{}
}

// Effective возвращает цену, действующую на момент at: запись с максимальным
// EffectiveFrom <= at. Записи с одинаковым EffectiveFrom — аномалия данных;
// для стабильности выбирается запись с наибольшим ID (она создана позже).
// Если ни одна запись не подходит (истории нет или все цены в будущем),
// возвращается ErrNoPriceAvailable.
func (r *Resolver) Effective(entries []domain.ProductPrice, at time.Time) (decimal.Decimal, error) {
	var (
		best  domain.ProductPrice
		found bool
	)
	for _, entry := range entries {
		if entry.EffectiveFrom.After(at) {
			continue
		}
		if !found {
			best = entry
			found = true
			continue
		}
		switch {
		case entry.EffectiveFrom.After(best.EffectiveFrom):
			best = entry
		case entry.EffectiveFrom.Equal(best.EffectiveFrom) && entry.ID > best.ID:
			best = entry
		}
	}
	if !found {
		return decimal.Decimal{}, domain.ErrNoPriceAvailable
	}
	return best.Price, nil
}
