package checkout

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/shop/internal/domain"
	"github.com/vladislavdragonenkov/shop/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/shop/internal/metrics"
	"github.com/vladislavdragonenkov/shop/internal/service/pricing"
)

// ItemRequest — одна запрошенная позиция будущего заказа.
type ItemRequest struct {
	ProductID string
	Quantity  int32
}

// Coordinator оформляет заказы: в одной транзакции блокирует товары,
// проверяет остатки, замораживает цены, создаёт заказ с позициями и
// списывает сток. Либо всё, либо ничего — частичных заказов не бывает.
type Coordinator struct {
	store         domain.CheckoutStore
	resolver      *pricing.Resolver
	logger        *log.Entry
	metrics       *metrics.CheckoutMetrics
	kafkaProducer *kafka.Producer // опциональный producer для событий заказов
}

// NewCoordinator создаёт рабочий экземпляр координатора.
func NewCoordinator(store domain.CheckoutStore, resolver *pricing.Resolver, logger *log.Entry) *Coordinator {
	if logger == nil {
		logger = log.New().WithField("component", "checkout")
	}
	return &Coordinator{
		store:    store,
		resolver: resolver,
		logger:   logger,
		metrics:  metrics.NewCheckoutMetrics(),
	}
}

// NewCoordinatorWithKafka создаёт координатор, публикующий события заказов в Kafka.
func NewCoordinatorWithKafka(
	store domain.CheckoutStore,
	resolver *pricing.Resolver,
	kafkaProducer *kafka.Producer,
	logger *log.Entry,
) *Coordinator {
	c := NewCoordinator(store, resolver, logger)
	c.kafkaProducer = kafkaProducer
	return c
}

// NewCoordinatorWithoutMetrics создаёт координатор без метрик (для тестов).
func NewCoordinatorWithoutMetrics(store domain.CheckoutStore, resolver *pricing.Resolver, logger *log.Entry) *Coordinator {
	if logger == nil {
		logger = log.New().WithField("component", "checkout")
	}
	return &Coordinator{
		store:    store,
		resolver: resolver,
		logger:   logger,
	}
}

// CreateOrder атомарно оформляет заказ пользователя.
//
// Возвращаемые ошибки:
//   - *domain.OutOfStockOrderError — хотя бы по одному товару не хватает
//     остатка; перечислены все нехватки, а не только первая;
//   - domain.ErrProductNotFound — запрошен неизвестный товар;
//   - domain.ErrNoPriceAvailable — у товара нет действующей цены
//     (дефект каталога);
//   - прочее — ошибка хранилища, транзакция откатана.
func (c *Coordinator) CreateOrder(ctx context.Context, userID string, requested []ItemRequest) (domain.Order, error) {
	if userID == "" {
		return domain.Order{}, domain.ErrUserRequired
	}
	if len(requested) == 0 {
		return domain.Order{}, domain.ErrItemsRequired
	}
	for _, item := range requested {
		if item.Quantity <= 0 {
			return domain.Order{}, domain.ErrItemQtyInvalid
		}
	}
	// Дубликаты product_id отфильтровывает HTTP-слой, но полагаться на это
	// нельзя: просочившийся дубликат списал бы сток дважды без повторной
	// блокировки. Сливаем дубликаты, суммируя количества.
	items := mergeDuplicates(requested)

	start := time.Now()
	if c.metrics != nil {
		c.metrics.CheckoutStarted()
	}
	defer func() {
		if c.metrics != nil {
			c.metrics.CheckoutFinished()
			c.metrics.RecordCheckoutDuration(time.Since(start))
		}
	}()

	var order domain.Order
	err := c.store.WithinCheckout(ctx, func(tx domain.CheckoutTx) error {
		if err := c.lockAndValidate(ctx, tx, items); err != nil {
			return err
		}

		now := time.Now().UTC()
		order = domain.Order{
			ID:         uuid.NewString(),
			UserID:     userID,
			TotalPrice: decimal.Zero,
			CreatedAt:  now,
		}
		if err := tx.InsertOrder(ctx, order); err != nil {
			return fmt.Errorf("insert order: %w", err)
		}

		total := decimal.Zero
		for _, item := range items {
			history, err := tx.PriceHistory(ctx, item.ProductID)
			if err != nil {
				return fmt.Errorf("load price history for %s: %w", item.ProductID, err)
			}
			price, err := c.resolver.Effective(history, now)
			if err != nil {
				// Товар без действующей цены — дефект конфигурации каталога.
				return fmt.Errorf("resolve price for %s: %w", item.ProductID, err)
			}

			orderItem := domain.OrderItem{
				ID:           uuid.NewString(),
				OrderID:      order.ID,
				ProductID:    item.ProductID,
				ProductPrice: price,
				Quantity:     item.Quantity,
				CreatedAt:    now,
			}
			if err := tx.InsertOrderItem(ctx, orderItem); err != nil {
				return fmt.Errorf("insert order item: %w", err)
			}
			order.Items = append(order.Items, orderItem)
			total = total.Add(orderItem.LineTotal())
		}

		if err := tx.UpdateOrderTotal(ctx, order.ID, total); err != nil {
			return fmt.Errorf("update order total: %w", err)
		}
		order.TotalPrice = total

		for _, item := range order.Items {
			if err := tx.DeductStock(ctx, item.ProductID, item.Quantity); err != nil {
				return fmt.Errorf("deduct stock for %s: %w", item.ProductID, err)
			}
		}

		return nil
	})
	if err != nil {
		c.recordFailure(userID, err)
		return domain.Order{}, err
	}

	if c.metrics != nil {
		c.metrics.RecordOrderCreated()
	}
	c.logger.WithFields(log.Fields{
		"order_id":    order.ID,
		"user_id":     userID,
		"items":       len(order.Items),
		"total_price": order.TotalPrice.StringFixed(2),
	}).Info("order created")

	c.publishOrderCreated(&order)
	return order, nil
}

// lockAndValidate блокирует товары и сверяет остатки со всеми запрошенными
// количествами. Нехватки собираются по всем позициям, чтобы пользователь
// увидел полный список, а не чинил заказ по одной позиции за попытку.
func (c *Coordinator) lockAndValidate(ctx context.Context, tx domain.CheckoutTx, items []ItemRequest) error {
	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}
	sort.Strings(ids)

	products, err := tx.LockProducts(ctx, ids)
	if err != nil {
		return fmt.Errorf("lock products: %w", err)
	}

	byID := make(map[string]domain.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	for _, item := range items {
		if _, ok := byID[item.ProductID]; !ok {
			return fmt.Errorf("product %s: %w", item.ProductID, domain.ErrProductNotFound)
		}
	}

	var shortages []domain.StockShortage
	for _, item := range items {
		product := byID[item.ProductID]
		if item.Quantity > product.QuantityInStock {
			shortages = append(shortages, domain.StockShortage{
				ProductID: product.ID,
				Name:      product.Name,
				Requested: item.Quantity,
				Available: product.QuantityInStock,
			})
		}
	}
	if len(shortages) > 0 {
		return &domain.OutOfStockOrderError{Shortages: shortages}
	}

	return nil
}

func (c *Coordinator) recordFailure(userID string, err error) {
	switch {
	case domain.IsOutOfStock(err):
		if c.metrics != nil {
			c.metrics.RecordOutOfStock()
		}
		c.logger.WithField("user_id", userID).WithError(err).Info("checkout rejected: out of stock")
		c.publishCheckoutRejected(userID, err)
	case errors.Is(err, domain.ErrProductNotFound):
		if c.metrics != nil {
			c.metrics.RecordProductNotFound()
		}
		c.logger.WithField("user_id", userID).WithError(err).Warn("checkout rejected: unknown product")
	case errors.Is(err, domain.ErrNoPriceAvailable):
		if c.metrics != nil {
			c.metrics.RecordPriceUnavailable()
		}
		c.logger.WithField("user_id", userID).WithError(err).Error("checkout aborted: catalog has no effective price")
	default:
		if c.metrics != nil {
			c.metrics.RecordCheckoutFailed()
		}
		c.logger.WithField("user_id", userID).WithError(err).Error("checkout aborted: storage failure")
	}
}

func (c *Coordinator) publishOrderCreated(order *domain.Order) {
	if c.kafkaProducer == nil {
		return // Kafka не настроен, пропускаем
	}
	event := kafka.NewOrderEvent(kafka.EventTypeOrderCreated, order.ID, order.UserID, map[string]interface{}{
		"total_price": order.TotalPrice.StringFixed(2),
		"items_count": len(order.Items),
	})
	if err := c.kafkaProducer.PublishOrderEvent(event); err != nil {
		// Событие best-effort: заказ уже зафиксирован, ошибку только логируем.
		c.logger.WithError(err).WithField("order_id", order.ID).Warn("failed to publish order.created event")
	}
}

func (c *Coordinator) publishCheckoutRejected(userID string, err error) {
	if c.kafkaProducer == nil {
		return
	}
	event := kafka.NewOrderEvent(kafka.EventTypeCheckoutRejected, "", userID, map[string]interface{}{
		"reason": err.Error(),
	})
	if pubErr := c.kafkaProducer.PublishOrderEvent(event); pubErr != nil {
		c.logger.WithError(pubErr).WithField("user_id", userID).Warn("failed to publish checkout.rejected event")
	}
}

// mergeDuplicates сливает повторяющиеся товары, суммируя количества,
// и сохраняет порядок первого вхождения.
func mergeDuplicates(requested []ItemRequest) []ItemRequest {
	seen := make(map[string]int, len(requested))
	merged := make([]ItemRequest, 0, len(requested))
	for _, item := range requested {
		if idx, ok := seen[item.ProductID]; ok {
			merged[idx].Quantity += item.Quantity
			continue
		}
		seen[item.ProductID] = len(merged)
		merged = append(merged, item)
	}
	return merged
}
