package app

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/shop/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/shop/internal/health"
	"github.com/vladislavdragonenkov/shop/internal/storage/memory"
	"github.com/vladislavdragonenkov/shop/internal/storage/postgres"
)

// Dependencies содержит хранилище и репозитории приложения.
type Dependencies struct {
	Products domain.ProductRepository
	Orders   domain.OrderRepository
	Users    domain.UserRepository
	Checkout domain.CheckoutStore

	pg           *postgres.Store
	healthChecks map[string]healthcheck.CheckFunc
}

// NewDependencies выбирает бэкенд хранилища: PostgreSQL при наличии DSN,
// иначе in-memory (для разработки и тестов).
func NewDependencies(ctx context.Context, cfg Config, logger *log.Entry) (*Dependencies, error) {
	if logger == nil {
		logger = log.WithField("component", "app")
	}

	if cfg.PostgresDSN == "" {
		logger.Info("postgres DSN is empty, using in-memory storage")
		store := memory.NewStore()
		return &Dependencies{
			Products:     memory.NewProductRepository(store),
			Orders:       memory.NewOrderRepository(store),
			Users:        memory.NewUserRepository(store),
			Checkout:     store,
			healthChecks: map[string]healthcheck.CheckFunc{},
		}, nil
	}

	pg, err := postgres.Open(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}
	if err := pg.EnsureSchema(ctx); err != nil {
		_ = pg.Close()
		return nil, err
	}
	logger.Info("postgres storage initialized")

	deps := &Dependencies{
		Products:     postgres.NewProductRepository(pg),
		Orders:       postgres.NewOrderRepository(pg),
		Users:        postgres.NewUserRepository(pg),
		Checkout:     postgres.NewCheckoutStore(pg),
		pg:           pg,
		healthChecks: map[string]healthcheck.CheckFunc{},
	}
	deps.registerHealthCheck("postgres", pg.Ping)
	return deps, nil
}

func (d *Dependencies) registerHealthCheck(name string, fn healthcheck.CheckFunc) {
	d.healthChecks[name] = fn
}

// Close освобождает ресурсы хранилища.
func (d *Dependencies) Close(logger *log.Entry) {
	if d.pg == nil {
		return
	}
	if err := d.pg.Close(); err != nil {
		logger.WithError(err).Warn("failed to close postgres store")
	}
}
