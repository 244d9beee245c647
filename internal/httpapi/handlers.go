package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/shop/internal/domain"
	"github.com/vladislavdragonenkov/shop/internal/redisx"
	"github.com/vladislavdragonenkov/shop/internal/service/checkout"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100

	idempotencyHeader = "Idempotency-Key"
)

type productView struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	QuantityInStock int32  `json:"quantity_in_stock"`
	Price           string `json:"price"`
}

type orderItemView struct {
	ProductID    string `json:"product_id"`
	ProductPrice string `json:"product_price"`
	Quantity     int32  `json:"quantity"`
}

type orderView struct {
	ID         string          `json:"id"`
	CreatedAt  time.Time       `json:"created_at"`
	TotalPrice string          `json:"total_price"`
	Items      []orderItemView `json:"items"`
}

type shortageView struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Requested int32  `json:"requested"`
	Available int32  `json:"available"`
}

func (s *Server) handleHeartbeat(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleProductList отдаёт видимые товары с текущей ценой.
// Товар без действующей цены — дефект каталога: он пропускается и логируется,
// а не роняет весь список.
func (s *Server) handleProductList(w http.ResponseWriter, r *http.Request) {
	page, pageSize := parsePagination(r)

	products, err := s.products.ListEnabled(r.Context(), (page-1)*pageSize, pageSize)
	if err != nil {
		s.logger.WithError(err).Error("product list failed")
		s.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	now := time.Now().UTC()
	views := make([]productView, 0, len(products))
	for _, product := range products {
		history, err := s.products.PriceHistory(r.Context(), product.ID)
		if err != nil {
			s.logger.WithError(err).WithField("product_id", product.ID).Error("price history load failed")
			s.writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		price, err := s.resolver.Effective(history, now)
		if err != nil {
			s.logger.WithField("product_id", product.ID).Warn("product has no effective price, skipping")
			continue
		}
		views = append(views, productView{
			ID:              product.ID,
			Name:            product.Name,
			QuantityInStock: product.QuantityInStock,
			Price:           price.StringFixed(2),
		})
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"page":    page,
		"results": views,
	})
}

// handleOrderHistory отдаёт заказы пользователя от новых к старым.
func (s *Server) handleOrderHistory(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())
	page, pageSize := parsePagination(r)

	orders, err := s.orders.ListByUser(r.Context(), user.ID, (page-1)*pageSize, pageSize)
	if err != nil {
		s.logger.WithError(err).WithField("user_id", user.ID).Error("order history failed")
		s.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	views := make([]orderView, 0, len(orders))
	for _, order := range orders {
		views = append(views, toOrderView(order))
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"page":    page,
		"results": views,
	})
}

type createOrderRequest struct {
	Items []struct {
		ProductID string `json:"product_id"`
		Quantity  int32  `json:"quantity"`
	} `json:"items"`
}

// handleOrderCreate валидирует запрос и передаёт его координатору оформления.
// Дубликаты товаров и неположительные количества отклоняются здесь, до
// транзакции; координатор дополнительно защищается от дубликатов сам.
func (s *Server) handleOrderCreate(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if len(req.Items) == 0 {
		s.writeError(w, http.StatusBadRequest, "order must contain at least one item")
		return
	}

	seen := make(map[string]struct{}, len(req.Items))
	items := make([]checkout.ItemRequest, 0, len(req.Items))
	for _, item := range req.Items {
		if item.ProductID == "" {
			s.writeError(w, http.StatusBadRequest, "product_id is required")
			return
		}
		if item.Quantity <= 0 {
			s.writeError(w, http.StatusBadRequest, "quantity must be greater than zero")
			return
		}
		if _, dup := seen[item.ProductID]; dup {
			s.writeError(w, http.StatusBadRequest, "duplicate product_id: "+item.ProductID)
			return
		}
		seen[item.ProductID] = struct{}{}
		items = append(items, checkout.ItemRequest{ProductID: item.ProductID, Quantity: item.Quantity})
	}

	idemKey := r.Header.Get(idempotencyHeader)
	if orderID, ok := s.lookupIdempotent(r, user.ID, idemKey); ok {
		if order, err := s.orders.Get(r.Context(), orderID); err == nil {
			s.writeJSON(w, http.StatusOK, toOrderView(order))
			return
		}
		// Заказ по сохранённому ключу не нашёлся — обрабатываем заново.
	}

	order, err := s.coordinator.CreateOrder(r.Context(), user.ID, items)
	if err != nil {
		s.respondCheckoutError(w, err)
		return
	}

	s.rememberIdempotent(r, user.ID, idemKey, order.ID)
	s.writeJSON(w, http.StatusCreated, toOrderView(order))
}

// respondCheckoutError переводит ошибки ядра в HTTP-ответы: нехватка стока и
// неизвестный товар — ошибки запроса, всё остальное — обезличенная 500-ка.
func (s *Server) respondCheckoutError(w http.ResponseWriter, err error) {
	var oos *domain.OutOfStockOrderError
	switch {
	case errors.As(err, &oos):
		details := make([]shortageView, 0, len(oos.Shortages))
		for _, shortage := range oos.Shortages {
			details = append(details, shortageView{
				ProductID: shortage.ProductID,
				Name:      shortage.Name,
				Requested: shortage.Requested,
				Available: shortage.Available,
			})
		}
		s.writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":   "insufficient stock",
			"details": details,
		})
	case errors.Is(err, domain.ErrProductNotFound):
		s.writeError(w, http.StatusBadRequest, "unknown product in order")
	case errors.Is(err, domain.ErrItemsRequired), errors.Is(err, domain.ErrItemQtyInvalid):
		s.writeError(w, http.StatusBadRequest, err.Error())
	default:
		// ErrNoPriceAvailable и ошибки хранилища уже залогированы координатором.
		s.writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (s *Server) lookupIdempotent(r *http.Request, userID, key string) (string, bool) {
	if s.redis == nil || key == "" {
		return "", false
	}
	orderID, err := s.redis.Get(r.Context(), redisx.IdemOrderCreateKey(userID, key)).Result()
	if err != nil || orderID == "" {
		return "", false
	}
	return orderID, true
}

func (s *Server) rememberIdempotent(r *http.Request, userID, key, orderID string) {
	if s.redis == nil || key == "" {
		return
	}
	err := s.redis.Set(r.Context(), redisx.IdemOrderCreateKey(userID, key), orderID, redisx.TTLIdempotency).Err()
	if err != nil {
		s.logger.WithError(err).WithFields(log.Fields{
			"user_id":  userID,
			"order_id": orderID,
		}).Warn("failed to store idempotency key")
	}
}

func toOrderView(order domain.Order) orderView {
	items := make([]orderItemView, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, orderItemView{
			ProductID:    item.ProductID,
			ProductPrice: item.ProductPrice.StringFixed(2),
			Quantity:     item.Quantity,
		})
	}
	return orderView{
		ID:         order.ID,
		CreatedAt:  order.CreatedAt,
		TotalPrice: order.TotalPrice.StringFixed(2),
		Items:      items,
	}
}

func parsePagination(r *http.Request) (page, pageSize int) {
	page = 1
	pageSize = defaultPageSize
	if v := r.URL.Query().Get("page"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			page = parsed
		}
	}
	if v := r.URL.Query().Get("page_size"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 && parsed <= maxPageSize {
			pageSize = parsed
		}
	}
	return page, pageSize
}
