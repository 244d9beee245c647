package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/shop/internal/domain"
)

func seedOrder(t *testing.T, store *Store, order domain.Order) {
	t.Helper()
	err := store.WithinCheckout(context.Background(), func(tx domain.CheckoutTx) error {
		if err := tx.InsertOrder(context.Background(), order); err != nil {
			return err
		}
		for _, item := range order.Items {
			if err := tx.InsertOrderItem(context.Background(), item); err != nil {
				return err
			}
		}
		return tx.UpdateOrderTotal(context.Background(), order.ID, order.TotalPrice)
	})
	if err != nil {
		t.Fatalf("seed order %s: %v", order.ID, err)
	}
}

func TestOrderGetNotFound(t *testing.T) {
	repo := NewOrderRepository(NewStore())

	_, err := repo.Get(context.Background(), "ghost")
	if !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("err = %v, want ErrOrderNotFound", err)
	}
}

func TestOrderGetWithItems(t *testing.T) {
	store := NewStore()
	repo := NewOrderRepository(store)

	seedOrder(t, store, domain.Order{
		ID:         "o-1",
		UserID:     "u-1",
		TotalPrice: decimal.NewFromInt(100),
		Items: []domain.OrderItem{
			{ID: "i-1", OrderID: "o-1", ProductID: "p-1", ProductPrice: decimal.NewFromInt(50), Quantity: 2},
		},
		CreatedAt: time.Now().UTC(),
	})

	order, err := repo.Get(context.Background(), "o-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(order.Items) != 1 {
		t.Fatalf("items = %d, want 1", len(order.Items))
	}
	if !order.TotalPrice.Equal(decimal.NewFromInt(100)) {
		t.Errorf("total = %s, want 100", order.TotalPrice)
	}
}

func TestListByUserNewestFirst(t *testing.T) {
	store := NewStore()
	repo := NewOrderRepository(store)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	for i, id := range []string{"o-1", "o-2", "o-3"} {
		seedOrder(t, store, domain.Order{
			ID:        id,
			UserID:    "u-1",
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		})
	}
	seedOrder(t, store, domain.Order{ID: "o-other", UserID: "u-2", CreatedAt: base})

	orders, err := repo.ListByUser(context.Background(), "u-1", 0, 10)
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(orders) != 3 {
		t.Fatalf("orders = %d, want 3", len(orders))
	}
	if orders[0].ID != "o-3" || orders[1].ID != "o-2" || orders[2].ID != "o-1" {
		t.Errorf("unexpected order: %s, %s, %s", orders[0].ID, orders[1].ID, orders[2].ID)
	}
}

func TestListByUserPagination(t *testing.T) {
	store := NewStore()
	repo := NewOrderRepository(store)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		seedOrder(t, store, domain.Order{
			ID:        string(rune('a' + i)),
			UserID:    "u-1",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
	}

	page, err := repo.ListByUser(context.Background(), "u-1", 2, 2)
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(page) != 2 {
		t.Fatalf("page = %d orders, want 2", len(page))
	}
	if page[0].ID != "c" || page[1].ID != "b" {
		t.Errorf("page = %s, %s", page[0].ID, page[1].ID)
	}

	empty, err := repo.ListByUser(context.Background(), "u-1", 10, 2)
	if err != nil {
		t.Fatalf("ListByUser beyond end: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("expected empty page, got %d", len(empty))
	}
}
