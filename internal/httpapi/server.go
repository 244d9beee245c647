package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/shop/internal/domain"
	"github.com/vladislavdragonenkov/shop/internal/service/checkout"
	"github.com/vladislavdragonenkov/shop/internal/service/pricing"
)

// Server — тонкий HTTP-слой над ядром оформления заказов: аутентификация
// токеном, валидация запросов и сериализация ответов. Вся бизнес-логика
// живёт в координаторе и репозиториях.
type Server struct {
	products    domain.ProductRepository
	orders      domain.OrderRepository
	users       domain.UserRepository
	coordinator *checkout.Coordinator
	resolver    *pricing.Resolver
	redis       *redis.Client // опционально: идемпотентность оформления
	logger      *log.Entry
}

// NewServer конструирует HTTP-слой с зависимостями.
func NewServer(
	products domain.ProductRepository,
	orders domain.OrderRepository,
	users domain.UserRepository,
	coordinator *checkout.Coordinator,
	resolver *pricing.Resolver,
	logger *log.Entry,
) *Server {
	if logger == nil {
		logger = log.New().WithField("component", "httpapi")
	}
	return &Server{
		products:    products,
		orders:      orders,
		users:       users,
		coordinator: coordinator,
		resolver:    resolver,
		logger:      logger,
	}
}

// WithRedis включает идемпотентность POST /orders/create/ по заголовку
// Idempotency-Key.
func (s *Server) WithRedis(client *redis.Client) *Server {
	s.redis = client
	return s
}

// Router собирает маршруты сервиса.
func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	r.Use(middleware.Timeout(15 * time.Second))

	r.Get("/healthcheck/heartbeat/", s.handleHeartbeat)
	r.Get("/products/list/", s.handleProductList)

	r.Group(func(r chi.Router) {
		r.Use(s.tokenAuth)
		r.Get("/orders/history/", s.handleOrderHistory)
		r.Post("/orders/create/", s.handleOrderCreate)
	})

	return r
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.WithError(err).Warn("failed to encode response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
