package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	return m.GetCounter().GetValue()
}

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	var m dto.Metric
	if err := g.Write(&m); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	return m.GetGauge().GetValue()
}

func TestCheckoutMetricsCounters(t *testing.T) {
	m := newCheckoutMetricsWithRegisterer(prometheus.NewRegistry())

	m.RecordOrderCreated()
	m.RecordOrderCreated()
	m.RecordOutOfStock()
	m.RecordProductNotFound()
	m.RecordPriceUnavailable()
	m.RecordCheckoutFailed()

	if got := counterValue(t, m.ordersCreated); got != 2 {
		t.Errorf("ordersCreated = %v, want 2", got)
	}
	if got := counterValue(t, m.outOfStock); got != 1 {
		t.Errorf("outOfStock = %v, want 1", got)
	}
	if got := counterValue(t, m.productNotFound); got != 1 {
		t.Errorf("productNotFound = %v, want 1", got)
	}
	if got := counterValue(t, m.priceUnavailable); got != 1 {
		t.Errorf("priceUnavailable = %v, want 1", got)
	}
	if got := counterValue(t, m.checkoutFailed); got != 1 {
		t.Errorf("checkoutFailed = %v, want 1", got)
	}
}

func TestActiveCheckoutsGauge(t *testing.T) {
	m := newCheckoutMetricsWithRegisterer(prometheus.NewRegistry())

	m.CheckoutStarted()
	m.CheckoutStarted()
	if got := gaugeValue(t, m.activeCheckouts); got != 2 {
		t.Errorf("activeCheckouts = %v, want 2", got)
	}

	m.CheckoutFinished()
	if got := gaugeValue(t, m.activeCheckouts); got != 1 {
		t.Errorf("activeCheckouts = %v, want 1", got)
	}
}

func TestRecordCheckoutDuration(t *testing.T) {
	m := newCheckoutMetricsWithRegisterer(prometheus.NewRegistry())
	m.RecordCheckoutDuration(150 * time.Millisecond)

	var metric dto.Metric
	if err := m.checkoutDuration.Write(&metric); err != nil {
		t.Fatalf("write histogram: %v", err)
	}
	if metric.GetHistogram().GetSampleCount() != 1 {
		t.Errorf("sample count = %d, want 1", metric.GetHistogram().GetSampleCount())
	}
}

func TestDoubleRegistrationReusesCollectors(t *testing.T) {
	registry := prometheus.NewRegistry()

	first := newCheckoutMetricsWithRegisterer(registry)
	second := newCheckoutMetricsWithRegisterer(registry)

	first.RecordOrderCreated()
	second.RecordOrderCreated()

	if got := counterValue(t, first.ordersCreated); got != 2 {
		t.Errorf("shared counter = %v, want 2", got)
	}
}
