package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CheckoutMetrics содержит метрики конвейера оформления заказов.
type CheckoutMetrics struct {
	// Счётчики результатов оформления
	ordersCreated    prometheus.Counter
	outOfStock       prometheus.Counter
	productNotFound  prometheus.Counter
	priceUnavailable prometheus.Counter
	checkoutFailed   prometheus.Counter

	// Гистограмма времени выполнения транзакции оформления
	checkoutDuration prometheus.Histogram

	// Gauge для оформлений в полёте
	activeCheckouts prometheus.Gauge
}

// NewCheckoutMetrics создаёт новый экземпляр метрик оформления.
func NewCheckoutMetrics() *CheckoutMetrics {
	return newCheckoutMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

func newCheckoutMetricsWithRegisterer(registerer prometheus.Registerer) *CheckoutMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &CheckoutMetrics{
		ordersCreated: registerCounter(registerer, prometheus.CounterOpts{
			Name: "shop_orders_created_total",
			Help: "Total number of orders created successfully",
		}),
		outOfStock: registerCounter(registerer, prometheus.CounterOpts{
			Name: "shop_checkout_out_of_stock_total",
			Help: "Total number of checkouts rejected due to insufficient stock",
		}),
		productNotFound: registerCounter(registerer, prometheus.CounterOpts{
			Name: "shop_checkout_product_not_found_total",
			Help: "Total number of checkouts referencing unknown products",
		}),
		priceUnavailable: registerCounter(registerer, prometheus.CounterOpts{
			Name: "shop_checkout_price_unavailable_total",
			Help: "Total number of checkouts aborted because no effective price exists",
		}),
		checkoutFailed: registerCounter(registerer, prometheus.CounterOpts{
			Name: "shop_checkout_failed_total",
			Help: "Total number of checkouts aborted by storage or internal errors",
		}),
		checkoutDuration: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "shop_checkout_duration_seconds",
			Help:    "Duration of checkout transactions in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		activeCheckouts: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "shop_active_checkouts",
			Help: "Number of checkout transactions currently in flight",
		}),
	}
}

func registerCounter(registerer prometheus.Registerer, opts prometheus.CounterOpts) prometheus.Counter {
	collector := prometheus.NewCounter(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Counter)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter %q: %v", opts.Name, err))
	}
	return collector
}

func registerGauge(registerer prometheus.Registerer, opts prometheus.GaugeOpts) prometheus.Gauge {
	collector := prometheus.NewGauge(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Gauge)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register gauge %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogram(registerer prometheus.Registerer, opts prometheus.HistogramOpts) prometheus.Histogram {
	collector := prometheus.NewHistogram(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Histogram)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram %q: %v", opts.Name, err))
	}
	return collector
}

// RecordOrderCreated увеличивает счётчик успешно созданных заказов.
func (m *CheckoutMetrics) RecordOrderCreated() {
	m.ordersCreated.Inc()
}

// RecordOutOfStock увеличивает счётчик отказов из-за нехватки товара.
func (m *CheckoutMetrics) RecordOutOfStock() {
	m.outOfStock.Inc()
}

// RecordProductNotFound увеличивает счётчик запросов с неизвестными товарами.
func (m *CheckoutMetrics) RecordProductNotFound() {
	m.productNotFound.Inc()
}

// RecordPriceUnavailable увеличивает счётчик отказов без действующей цены.
func (m *CheckoutMetrics) RecordPriceUnavailable() {
	m.priceUnavailable.Inc()
}

// RecordCheckoutFailed увеличивает счётчик внутренних ошибок оформления.
func (m *CheckoutMetrics) RecordCheckoutFailed() {
	m.checkoutFailed.Inc()
}

// RecordCheckoutDuration записывает время выполнения транзакции оформления.
func (m *CheckoutMetrics) RecordCheckoutDuration(duration time.Duration) {
	m.checkoutDuration.Observe(duration.Seconds())
}

// CheckoutStarted увеличивает количество оформлений в полёте.
func (m *CheckoutMetrics) CheckoutStarted() {
	m.activeCheckouts.Inc()
}

// CheckoutFinished уменьшает количество оформлений в полёте.
func (m *CheckoutMetrics) CheckoutFinished() {
	m.activeCheckouts.Dec()
}
