package memory

import (
	"context"
	"errors"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/shop/internal/domain"
)

// WithinCheckout выполняет fn под эксклюзивной блокировкой всего хранилища.
// Это in-memory эквивалент row-level блокировок: конкурирующие оформления
// полностью сериализуются, сток не может уйти в минус ни при каком порядке
// запусков. Изменения накапливаются в транзакции и применяются только при
// успешном завершении fn; любая ошибка отбрасывает их целиком.
func (s *Store) WithinCheckout(ctx context.Context, fn func(tx domain.CheckoutTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &checkoutTx{
		store:       s,
		stockDeltas: make(map[string]int32),
		totals:      make(map[string]decimal.Decimal),
	}
	if err := fn(tx); err != nil {
		return err
	}
	return tx.applyLocked()
}

// checkoutTx накапливает изменения одной транзакции оформления.
type checkoutTx struct {
	store       *Store
	stockDeltas map[string]int32
	orders      []domain.Order
	items       []domain.OrderItem
	totals      map[string]decimal.Decimal
}

// LockProducts возвращает найденные товары в порядке возрастания ID.
// Блокировка уже взята на всё хранилище, отдельных row-локов не требуется.
func (tx *checkoutTx) LockProducts(_ context.Context, ids []string) ([]domain.Product, error) {
	result := make([]domain.Product, 0, len(ids))
	for _, id := range ids {
		if product, ok := tx.store.products[id]; ok {
			result = append(result, product)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (tx *checkoutTx) PriceHistory(_ context.Context, productID string) ([]domain.ProductPrice, error) {
	return tx.store.priceHistoryLocked(productID), nil
}

func (tx *checkoutTx) InsertOrder(_ context.Context, order domain.Order) error {
	if _, exists := tx.store.orders[order.ID]; exists {
		return errors.New("order already exists")
	}
	// Сохраняются только колонки заказа: позиции приходят отдельными
	// InsertOrderItem, иначе applyLocked задублирует их.
	order.Items = nil
	tx.orders = append(tx.orders, order)
	return nil
}

func (tx *checkoutTx) InsertOrderItem(_ context.Context, item domain.OrderItem) error {
	tx.items = append(tx.items, item)
	return nil
}

func (tx *checkoutTx) UpdateOrderTotal(_ context.Context, orderID string, total decimal.Decimal) error {
	tx.totals[orderID] = total
	return nil
}

func (tx *checkoutTx) DeductStock(_ context.Context, productID string, qty int32) error {
	product, ok := tx.store.products[productID]
	if !ok {
		return domain.ErrProductNotFound
	}
	// Аналог CHECK (quantity_in_stock >= 0) в схеме: страхует от ухода в
	// минус, даже если валидация выше была обойдена.
	if product.QuantityInStock+tx.stockDeltas[productID]-qty < 0 {
		return errors.New("stock would become negative")
	}
	tx.stockDeltas[productID] -= qty
	return nil
}

// applyLocked применяет накопленные изменения; вызывающий держит блокировку.
func (tx *checkoutTx) applyLocked() error {
	for _, order := range tx.orders {
		if total, ok := tx.totals[order.ID]; ok {
			order.TotalPrice = total
		}
		for _, item := range tx.items {
			if item.OrderID == order.ID {
				order.Items = append(order.Items, item)
			}
		}
		tx.store.orders[order.ID] = order
	}
	for productID, delta := range tx.stockDeltas {
		product := tx.store.products[productID]
		product.QuantityInStock += delta
		tx.store.products[productID] = product
	}
	return nil
}

var _ domain.CheckoutStore = (*Store)(nil)
var _ domain.CheckoutTx = (*checkoutTx)(nil)
