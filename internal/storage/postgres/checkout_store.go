package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/shop/internal/domain"
)

const (
	// checkoutTimeout ограничивает всю транзакцию оформления, включая
	// ожидание row-level блокировок под конкуренцией.
	checkoutTimeout = 10 * time.Second
	// lockWaitTimeout — верхняя граница ожидания FOR UPDATE; дальше Postgres
	// вернёт ошибку вместо бесконечного ожидания.
	lockWaitTimeout = "5s"
)

type checkoutStore struct {
	db *sql.DB
}

// NewCheckoutStore создаёт PostgreSQL-реализацию транзакционной границы
// оформления заказов.
func NewCheckoutStore(store *Store) domain.CheckoutStore {
	return &checkoutStore{db: store.DB()}
}

// WithinCheckout выполняет fn в одной транзакции БД. Любая ошибка fn или
// коммита откатывает все изменения; частичных заказов и частичных списаний
// стока не бывает.
func (s *checkoutStore) WithinCheckout(ctx context.Context, fn func(tx domain.CheckoutTx) error) error {
	ctx, cancel := context.WithTimeout(ctx, checkoutTimeout)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin checkout tx: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, fmt.Sprintf("SET LOCAL lock_timeout = '%s'", lockWaitTimeout)); err != nil {
		return fmt.Errorf("set lock timeout: %w", err)
	}

	if err = fn(&checkoutTx{tx: tx}); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit checkout: %w", err)
	}
	return nil
}

type checkoutTx struct {
	tx *sql.Tx
}

// LockProducts берёт row-level блокировки FOR UPDATE. ORDER BY id внутри
// запроса даёт детерминированный порядок захвата: транзакции с пересекающимися
// наборами товаров не взаимоблокируются.
func (t *checkoutTx) LockProducts(ctx context.Context, ids []string) ([]domain.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	params := make([]string, 0, len(ids))
	args := make([]any, 0, len(ids))
	for i, id := range ids {
		params = append(params, fmt.Sprintf("$%d", i+1))
		args = append(args, id)
	}

	rows, err := t.tx.QueryContext(ctx, `
		SELECT id, name, enabled, quantity_in_stock, created_at, updated_at
		FROM products
		WHERE id IN (`+strings.Join(params, ",")+`)
		ORDER BY id ASC
		FOR UPDATE
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("lock products: %w", err)
	}
	defer rows.Close()

	products := make([]domain.Product, 0, len(ids))
	for rows.Next() {
		var product domain.Product
		if err := rows.Scan(
			&product.ID, &product.Name, &product.Enabled,
			&product.QuantityInStock, &product.CreatedAt, &product.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan locked product: %w", err)
		}
		products = append(products, product)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate locked products: %w", err)
	}

	return products, nil
}

func (t *checkoutTx) PriceHistory(ctx context.Context, productID string) ([]domain.ProductPrice, error) {
	return queryPriceHistory(ctx, t.tx, productID)
}

func (t *checkoutTx) InsertOrder(ctx context.Context, order domain.Order) error {
	if _, err := t.tx.ExecContext(ctx, `
		INSERT INTO orders (id, user_id, total_price, created_at)
		VALUES ($1,$2,$3,$4)
	`, order.ID, order.UserID, order.TotalPrice, order.CreatedAt); err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (t *checkoutTx) InsertOrderItem(ctx context.Context, item domain.OrderItem) error {
	if _, err := t.tx.ExecContext(ctx, `
		INSERT INTO order_items (id, order_id, product_id, product_price, quantity, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, item.ID, item.OrderID, item.ProductID, item.ProductPrice, item.Quantity, item.CreatedAt); err != nil {
		return fmt.Errorf("insert order item: %w", err)
	}
	return nil
}

func (t *checkoutTx) UpdateOrderTotal(ctx context.Context, orderID string, total decimal.Decimal) error {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE orders SET total_price = $1 WHERE id = $2
	`, total, orderID)
	if err != nil {
		return fmt.Errorf("update order total: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrOrderNotFound
	}
	return nil
}

func (t *checkoutTx) DeductStock(ctx context.Context, productID string, qty int32) error {
	// CHECK (quantity_in_stock >= 0) в схеме — последняя линия обороны;
	// при корректной блокировке сюда с недостаточным стоком не попасть.
	res, err := t.tx.ExecContext(ctx, `
		UPDATE products
		SET quantity_in_stock = quantity_in_stock - $1,
		    updated_at = NOW()
		WHERE id = $2
	`, qty, productID)
	if err != nil {
		return fmt.Errorf("deduct stock: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}

var _ domain.CheckoutStore = (*checkoutStore)(nil)
var _ domain.CheckoutTx = (*checkoutTx)(nil)
