package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

// ProductRepository описывает требования к каталогу товаров.
type ProductRepository interface {
	// Get возвращает товар по идентификатору или ErrProductNotFound.
	Get(ctx context.Context, id string) (Product, error)
	// ListEnabled возвращает видимые товары, отсортированные по имени,
	// со смещением и лимитом для пагинации.
	ListEnabled(ctx context.Context, offset, limit int) ([]Product, error)
	// PriceHistory возвращает ценовую историю товара в порядке создания записей.
	PriceHistory(ctx context.Context, productID string) ([]ProductPrice, error)
	// Create сохраняет новый товар; используется сидированием и тестами,
	// управление каталогом живёт вне этого сервиса.
	Create(ctx context.Context, product Product) error
	// AddPrice добавляет запись ценовой истории и возвращает её с присвоенным ID.
	AddPrice(ctx context.Context, price ProductPrice) (ProductPrice, error)
}

// OrderRepository описывает требования к хранилищу заказов.
type OrderRepository interface {
	// Get возвращает заказ с позициями или ErrOrderNotFound, если его нет.
	Get(ctx context.Context, id string) (Order, error)
	// ListByUser возвращает заказы пользователя от новых к старым.
	ListByUser(ctx context.Context, userID string, offset, limit int) ([]Order, error)
}

// UserRepository хранит учётные записи и их токены.
type UserRepository interface {
	Create(ctx context.Context, user User) error
	GetByUsername(ctx context.Context, username string) (User, error)
	// GetByToken возвращает владельца токена или ErrUserNotFound.
	GetByToken(ctx context.Context, token string) (User, error)
}

// CheckoutTx — набор операций, доступных внутри одной транзакции оформления.
// Все изменения применяются атомарно при успешном выходе из WithinCheckout
// и полностью откатываются при любой ошибке.
type CheckoutTx interface {
	// LockProducts берёт эксклюзивные блокировки на товары и возвращает их
	// актуальное состояние. Блокировки берутся в порядке возрастания ID,
	// чтобы конкурирующие транзакции не взаимоблокировались.
	// Отсутствующие товары в результат не попадают.
	LockProducts(ctx context.Context, ids []string) ([]Product, error)
	// PriceHistory читает ценовую историю товара внутри транзакции.
	PriceHistory(ctx context.Context, productID string) ([]ProductPrice, error)
	// InsertOrder сохраняет новый заказ без позиций.
	InsertOrder(ctx context.Context, order Order) error
	// InsertOrderItem сохраняет позицию заказа с замороженной ценой.
	InsertOrderItem(ctx context.Context, item OrderItem) error
	// UpdateOrderTotal единожды проставляет итоговую сумму заказа.
	UpdateOrderTotal(ctx context.Context, orderID string, total decimal.Decimal) error
	// DeductStock уменьшает остаток товара; товар должен быть заблокирован
	// этой же транзакцией через LockProducts.
	DeductStock(ctx context.Context, productID string, qty int32) error
}

// CheckoutStore предоставляет транзакционную границу для координатора
// оформления. Ожидание блокировок ограничено по времени на стороне хранилища.
type CheckoutStore interface {
	WithinCheckout(ctx context.Context, fn func(tx CheckoutTx) error) error
}
