package memory

import (
	"context"
	"errors"
	"sort"

	"github.com/vladislavdragonenkov/shop/internal/domain"
)

// productRepository — in-memory реализация ProductRepository поверх Store.
type productRepository struct {
	store *Store
}

// NewProductRepository возвращает in-memory репозиторий каталога.
func NewProductRepository(store *Store) domain.ProductRepository {
	return &productRepository{store: store}
}

// Get возвращает товар или ErrProductNotFound, если его нет.
func (r *productRepository) Get(_ context.Context, id string) (domain.Product, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	product, ok := r.store.products[id]
	if !ok {
		return domain.Product{}, domain.ErrProductNotFound
	}
	return product, nil
}

// ListEnabled возвращает видимые товары, отсортированные по имени.
func (r *productRepository) ListEnabled(_ context.Context, offset, limit int) ([]domain.Product, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	result := make([]domain.Product, 0, len(r.store.products))
	for _, product := range r.store.products {
		if !product.Enabled {
			continue
		}
		result = append(result, product)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Name != result[j].Name {
			return result[i].Name < result[j].Name
		}
		return result[i].ID < result[j].ID
	})

	if offset >= len(result) {
		return []domain.Product{}, nil
	}
	result = result[offset:]
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// PriceHistory возвращает копию ценовой истории товара.
func (r *productRepository) PriceHistory(_ context.Context, productID string) ([]domain.ProductPrice, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	return r.store.priceHistoryLocked(productID), nil
}

// Create сохраняет новый товар, если ID ещё не занят.
func (r *productRepository) Create(_ context.Context, product domain.Product) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, exists := r.store.products[product.ID]; exists {
		return errors.New("product already exists")
	}
	if product.QuantityInStock < 0 {
		return errors.New("quantity_in_stock must be non-negative")
	}
	r.store.products[product.ID] = product
	return nil
}

// AddPrice добавляет запись ценовой истории, выдавая следующий ID.
func (r *productRepository) AddPrice(_ context.Context, price domain.ProductPrice) (domain.ProductPrice, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, exists := r.store.products[price.ProductID]; !exists {
		return domain.ProductPrice{}, domain.ErrProductNotFound
	}
	r.store.nextPriceID++
	price.ID = r.store.nextPriceID
	r.store.prices[price.ProductID] = append(r.store.prices[price.ProductID], price)
	return price, nil
}

// priceHistoryLocked копирует историю; вызывающий держит блокировку store.
func (s *Store) priceHistoryLocked(productID string) []domain.ProductPrice {
	entries := s.prices[productID]
	result := make([]domain.ProductPrice, len(entries))
	copy(result, entries)
	return result
}

var _ domain.ProductRepository = (*productRepository)(nil)
