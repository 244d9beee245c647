package memory

import (
	"sync"

	"github.com/vladislavdragonenkov/shop/internal/domain"
)

// Store — in-memory хранилище для локальной разработки и тестов.
// Один мьютекс защищает все коллекции; транзакции оформления сериализуются
// целиком, что эквивалентно row-level блокировкам по всем товарам сразу.
type Store struct {
	mu sync.RWMutex

	products map[string]domain.Product
	// prices хранит ценовую историю в порядке создания записей.
	prices      map[string][]domain.ProductPrice
	nextPriceID int64

	orders map[string]domain.Order

	users      map[string]domain.User
	byToken    map[string]string
	byUsername map[string]string
}

// NewStore создаёт пустое in-memory хранилище.
func NewStore() *Store {
	return &Store{
		products:   make(map[string]domain.Product),
		prices:     make(map[string][]domain.ProductPrice),
		orders:     make(map[string]domain.Order),
		users:      make(map[string]domain.User),
		byToken:    make(map[string]string),
		byUsername: make(map[string]string),
	}
}
