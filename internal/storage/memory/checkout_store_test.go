package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/shop/internal/domain"
)

func seedProduct(t *testing.T, store *Store, id string, stock int32) {
	t.Helper()
	repo := NewProductRepository(store)
	if err := repo.Create(context.Background(), domain.Product{ID: id, Name: id, Enabled: true, QuantityInStock: stock}); err != nil {
		t.Fatalf("seed product %s: %v", id, err)
	}
}

func TestWithinCheckoutRollsBackOnError(t *testing.T) {
	store := NewStore()
	seedProduct(t, store, "p-1", 10)
	ctx := context.Background()

	sentinel := errors.New("boom")
	err := store.WithinCheckout(ctx, func(tx domain.CheckoutTx) error {
		if err := tx.InsertOrder(ctx, domain.Order{ID: "o-1", UserID: "u-1"}); err != nil {
			return err
		}
		if err := tx.DeductStock(ctx, "p-1", 5); err != nil {
			return err
		}
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("err = %v, want sentinel", err)
	}

	product, _ := NewProductRepository(store).Get(ctx, "p-1")
	if product.QuantityInStock != 10 {
		t.Errorf("stock = %d, want 10 (rollback)", product.QuantityInStock)
	}
	if _, err := NewOrderRepository(store).Get(ctx, "o-1"); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Errorf("order should not be persisted, err = %v", err)
	}
}

func TestWithinCheckoutCommitsOnSuccess(t *testing.T) {
	store := NewStore()
	seedProduct(t, store, "p-1", 10)
	ctx := context.Background()

	err := store.WithinCheckout(ctx, func(tx domain.CheckoutTx) error {
		if err := tx.InsertOrder(ctx, domain.Order{ID: "o-1", UserID: "u-1"}); err != nil {
			return err
		}
		if err := tx.InsertOrderItem(ctx, domain.OrderItem{ID: "i-1", OrderID: "o-1", ProductID: "p-1", ProductPrice: decimal.NewFromInt(5), Quantity: 2}); err != nil {
			return err
		}
		if err := tx.UpdateOrderTotal(ctx, "o-1", decimal.NewFromInt(10)); err != nil {
			return err
		}
		return tx.DeductStock(ctx, "p-1", 2)
	})
	if err != nil {
		t.Fatalf("WithinCheckout: %v", err)
	}

	product, _ := NewProductRepository(store).Get(ctx, "p-1")
	if product.QuantityInStock != 8 {
		t.Errorf("stock = %d, want 8", product.QuantityInStock)
	}

	order, err := NewOrderRepository(store).Get(ctx, "o-1")
	if err != nil {
		t.Fatalf("Get order: %v", err)
	}
	if !order.TotalPrice.Equal(decimal.NewFromInt(10)) {
		t.Errorf("total = %s, want 10", order.TotalPrice)
	}
	if len(order.Items) != 1 {
		t.Errorf("items = %d, want 1", len(order.Items))
	}
}

func TestInsertOrderIgnoresAttachedItems(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	item := domain.OrderItem{ID: "i-1", OrderID: "o-1", ProductID: "p-1", ProductPrice: decimal.NewFromInt(5), Quantity: 2}
	err := store.WithinCheckout(ctx, func(tx domain.CheckoutTx) error {
		// Заказ с уже навешенными позициями: сохраниться должны только
		// позиции, прошедшие через InsertOrderItem.
		if err := tx.InsertOrder(ctx, domain.Order{ID: "o-1", UserID: "u-1", Items: []domain.OrderItem{item}}); err != nil {
			return err
		}
		return tx.InsertOrderItem(ctx, item)
	})
	if err != nil {
		t.Fatalf("WithinCheckout: %v", err)
	}

	order, err := NewOrderRepository(store).Get(ctx, "o-1")
	if err != nil {
		t.Fatalf("Get order: %v", err)
	}
	if len(order.Items) != 1 {
		t.Errorf("items = %d, want 1", len(order.Items))
	}
}

func TestDeductStockGuardsNegative(t *testing.T) {
	store := NewStore()
	seedProduct(t, store, "p-1", 3)
	ctx := context.Background()

	err := store.WithinCheckout(ctx, func(tx domain.CheckoutTx) error {
		if err := tx.DeductStock(ctx, "p-1", 2); err != nil {
			return err
		}
		// Второе списание в той же транзакции превышает остаток.
		return tx.DeductStock(ctx, "p-1", 2)
	})
	if err == nil {
		t.Fatal("expected negative stock guard to fire")
	}

	product, _ := NewProductRepository(store).Get(ctx, "p-1")
	if product.QuantityInStock != 3 {
		t.Errorf("stock = %d, want 3", product.QuantityInStock)
	}
}

func TestDeductStockUnknownProduct(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	err := store.WithinCheckout(ctx, func(tx domain.CheckoutTx) error {
		return tx.DeductStock(ctx, "ghost", 1)
	})
	if !errors.Is(err, domain.ErrProductNotFound) {
		t.Fatalf("err = %v, want ErrProductNotFound", err)
	}
}

func TestLockProductsSortsAndSkipsMissing(t *testing.T) {
	store := NewStore()
	seedProduct(t, store, "p-2", 1)
	seedProduct(t, store, "p-1", 1)
	ctx := context.Background()

	err := store.WithinCheckout(ctx, func(tx domain.CheckoutTx) error {
		products, err := tx.LockProducts(ctx, []string{"p-2", "ghost", "p-1"})
		if err != nil {
			return err
		}
		if len(products) != 2 {
			t.Errorf("products = %d, want 2", len(products))
		}
		if products[0].ID != "p-1" || products[1].ID != "p-2" {
			t.Errorf("order: %s, %s", products[0].ID, products[1].ID)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithinCheckout: %v", err)
	}
}

func TestWithinCheckoutHonorsCancelledContext(t *testing.T) {
	store := NewStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := store.WithinCheckout(ctx, func(domain.CheckoutTx) error {
		t.Fatal("fn should not run with cancelled context")
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
