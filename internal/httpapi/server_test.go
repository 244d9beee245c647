package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/shop/internal/domain"
	"github.com/vladislavdragonenkov/shop/internal/service/checkout"
	"github.com/vladislavdragonenkov/shop/internal/service/pricing"
	"github.com/vladislavdragonenkov/shop/internal/storage/memory"
)

const testToken = "tok-alice"

type serverFixture struct {
	store    *memory.Store
	products domain.ProductRepository
	router   http.Handler
}

func newServerFixture(t *testing.T) *serverFixture {
	t.Helper()

	baseLogger := log.New()
	baseLogger.SetLevel(log.WarnLevel)
	logger := baseLogger.WithField("component", "httpapi-test")

	store := memory.NewStore()
	products := memory.NewProductRepository(store)
	orders := memory.NewOrderRepository(store)
	users := memory.NewUserRepository(store)

	err := users.Create(context.Background(), domain.User{ID: "u-alice", Username: "alice", Token: testToken})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	resolver := pricing.NewResolver()
	coordinator := checkout.NewCoordinatorWithoutMetrics(store, resolver, logger)
	server := NewServer(products, orders, users, coordinator, resolver, logger)

	return &serverFixture{
		store:    store,
		products: products,
		router:   server.Router(),
	}
}

func (f *serverFixture) addProduct(t *testing.T, id, name string, stock int32, price string) {
	t.Helper()
	ctx := context.Background()

	if err := f.products.Create(ctx, domain.Product{ID: id, Name: name, Enabled: true, QuantityInStock: stock}); err != nil {
		t.Fatalf("create product %s: %v", id, err)
	}
	if _, err := f.products.AddPrice(ctx, domain.ProductPrice{
		ProductID:     id,
		Price:         decimal.RequireFromString(price),
		EffectiveFrom: time.Now().UTC().Add(-time.Hour),
	}); err != nil {
		t.Fatalf("add price for %s: %v", id, err)
	}
}

func (f *serverFixture) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Token "+token)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, into any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(into); err != nil {
		t.Fatalf("decode response: %v (body: %s)", err, rec.Body.String())
	}
}

func TestHeartbeat(t *testing.T) {
	f := newServerFixture(t)

	rec := f.do(t, http.MethodGet, "/healthcheck/heartbeat/", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp map[string]string
	decodeJSON(t, rec, &resp)
	if resp["status"] != "ok" {
		t.Errorf("status = %q, want ok", resp["status"])
	}
}

func TestProductListShowsCurrentPrice(t *testing.T) {
	f := newServerFixture(t)
	f.addProduct(t, "p-1", "Teapot", 12, "50.00")

	// Старая цена не должна влиять на выдачу.
	if _, err := f.products.AddPrice(context.Background(), domain.ProductPrice{
		ProductID:     "p-1",
		Price:         decimal.NewFromInt(10),
		EffectiveFrom: time.Now().UTC().AddDate(-2, 0, 0),
	}); err != nil {
		t.Fatalf("add price: %v", err)
	}

	rec := f.do(t, http.MethodGet, "/products/list/", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp struct {
		Page    int `json:"page"`
		Results []struct {
			ID              string `json:"id"`
			Name            string `json:"name"`
			QuantityInStock int32  `json:"quantity_in_stock"`
			Price           string `json:"price"`
		} `json:"results"`
	}
	decodeJSON(t, rec, &resp)

	if len(resp.Results) != 1 {
		t.Fatalf("results = %d, want 1", len(resp.Results))
	}
	got := resp.Results[0]
	if got.Price != "50.00" {
		t.Errorf("price = %q, want 50.00", got.Price)
	}
	if got.QuantityInStock != 12 {
		t.Errorf("stock = %d, want 12", got.QuantityInStock)
	}
}

func TestProductListSkipsUnpriced(t *testing.T) {
	f := newServerFixture(t)
	f.addProduct(t, "p-1", "Teapot", 5, "10.00")
	// Товар без ценовой истории.
	if err := f.products.Create(context.Background(), domain.Product{ID: "p-2", Name: "Cup", Enabled: true, QuantityInStock: 3}); err != nil {
		t.Fatalf("create product: %v", err)
	}

	rec := f.do(t, http.MethodGet, "/products/list/", "", nil)
	var resp struct {
		Results []struct {
			ID string `json:"id"`
		} `json:"results"`
	}
	decodeJSON(t, rec, &resp)

	if len(resp.Results) != 1 || resp.Results[0].ID != "p-1" {
		t.Fatalf("results = %+v, want only p-1", resp.Results)
	}
}

func TestOrdersRequireAuth(t *testing.T) {
	f := newServerFixture(t)

	cases := []struct {
		name  string
		token string
	}{
		{"missing token", ""},
		{"unknown token", "bogus"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := f.do(t, http.MethodGet, "/orders/history/", tc.token, nil)
			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("status = %d, want 401", rec.Code)
			}
		})
	}
}

func TestAuthHeaderFormat(t *testing.T) {
	f := newServerFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/orders/history/", nil)
	req.Header.Set("Authorization", "Bearer "+testToken)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong scheme should be rejected, status = %d", rec.Code)
	}
}

func TestOrderCreateAndHistory(t *testing.T) {
	f := newServerFixture(t)
	f.addProduct(t, "p-1", "Teapot", 12, "50.00")

	rec := f.do(t, http.MethodPost, "/orders/create/", testToken, map[string]any{
		"items": []map[string]any{{"product_id": "p-1", "quantity": 3}},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201 (body: %s)", rec.Code, rec.Body.String())
	}

	var created struct {
		ID         string `json:"id"`
		TotalPrice string `json:"total_price"`
		Items      []struct {
			ProductID    string `json:"product_id"`
			ProductPrice string `json:"product_price"`
			Quantity     int32  `json:"quantity"`
		} `json:"items"`
	}
	decodeJSON(t, rec, &created)

	if created.TotalPrice != "150.00" {
		t.Errorf("total = %q, want 150.00", created.TotalPrice)
	}
	if len(created.Items) != 1 || created.Items[0].ProductPrice != "50.00" {
		t.Errorf("items = %+v", created.Items)
	}

	rec = f.do(t, http.MethodGet, "/orders/history/", testToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("history status = %d, want 200", rec.Code)
	}
	var history struct {
		Results []struct {
			ID string `json:"id"`
		} `json:"results"`
	}
	decodeJSON(t, rec, &history)
	if len(history.Results) != 1 || history.Results[0].ID != created.ID {
		t.Errorf("history = %+v, want order %s", history.Results, created.ID)
	}
}

func TestOrderHistoryIsolatedPerUser(t *testing.T) {
	f := newServerFixture(t)
	f.addProduct(t, "p-1", "Teapot", 12, "50.00")

	users := memory.NewUserRepository(f.store)
	if err := users.Create(context.Background(), domain.User{ID: "u-bob", Username: "bob", Token: "tok-bob"}); err != nil {
		t.Fatalf("create user: %v", err)
	}

	rec := f.do(t, http.MethodPost, "/orders/create/", testToken, map[string]any{
		"items": []map[string]any{{"product_id": "p-1", "quantity": 1}},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d", rec.Code)
	}

	rec = f.do(t, http.MethodGet, "/orders/history/", "tok-bob", nil)
	var history struct {
		Results []json.RawMessage `json:"results"`
	}
	decodeJSON(t, rec, &history)
	if len(history.Results) != 0 {
		t.Errorf("bob sees %d foreign orders", len(history.Results))
	}
}

func TestOrderCreateOutOfStock(t *testing.T) {
	f := newServerFixture(t)
	f.addProduct(t, "p-1", "Teapot", 2, "50.00")

	rec := f.do(t, http.MethodPost, "/orders/create/", testToken, map[string]any{
		"items": []map[string]any{{"product_id": "p-1", "quantity": 3}},
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}

	var resp struct {
		Error   string `json:"error"`
		Details []struct {
			ProductID string `json:"product_id"`
			Requested int32  `json:"requested"`
			Available int32  `json:"available"`
		} `json:"details"`
	}
	decodeJSON(t, rec, &resp)

	if resp.Error != "insufficient stock" {
		t.Errorf("error = %q", resp.Error)
	}
	if len(resp.Details) != 1 || resp.Details[0].Requested != 3 || resp.Details[0].Available != 2 {
		t.Errorf("details = %+v", resp.Details)
	}
}

func TestOrderCreateValidation(t *testing.T) {
	f := newServerFixture(t)
	f.addProduct(t, "p-1", "Teapot", 5, "10.00")

	cases := []struct {
		name string
		body any
	}{
		{"empty items", map[string]any{"items": []map[string]any{}}},
		{"zero quantity", map[string]any{"items": []map[string]any{{"product_id": "p-1", "quantity": 0}}}},
		{"negative quantity", map[string]any{"items": []map[string]any{{"product_id": "p-1", "quantity": -2}}}},
		{"missing product_id", map[string]any{"items": []map[string]any{{"quantity": 1}}}},
		{"duplicate product", map[string]any{"items": []map[string]any{
			{"product_id": "p-1", "quantity": 1},
			{"product_id": "p-1", "quantity": 2},
		}}},
		{"unknown product", map[string]any{"items": []map[string]any{{"product_id": "ghost", "quantity": 1}}}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, "/orders/create/", testToken, tc.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400 (body: %s)", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestOrderCreateMalformedBody(t *testing.T) {
	f := newServerFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/orders/create/", bytes.NewReader([]byte("{not json")))
	req.Header.Set("Authorization", "Token "+testToken)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestParsePagination(t *testing.T) {
	cases := []struct {
		query        string
		wantPage     int
		wantPageSize int
	}{
		{"", 1, defaultPageSize},
		{"?page=3&page_size=10", 3, 10},
		{"?page=0", 1, defaultPageSize},
		{"?page=abc", 1, defaultPageSize},
		{"?page_size=1000", 1, defaultPageSize},
		{"?page_size=-5", 1, defaultPageSize},
	}

	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/products/list/"+tc.query, nil)
		page, pageSize := parsePagination(req)
		if page != tc.wantPage || pageSize != tc.wantPageSize {
			t.Errorf("query %q: got %d/%d, want %d/%d", tc.query, page, pageSize, tc.wantPage, tc.wantPageSize)
		}
	}
}
