// loadtest — генератор нагрузки на HTTP API магазина. Сценарий create
// оформляет заказы от имени одного пользователя, сценарий browse читает
// каталог. По завершении печатает сводку по латентности и кодам ответов.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

const (
	idempotencyHeader = "Idempotency-Key"
	defaultQty        = 1
)

type loadMode string

const (
	modeCreate loadMode = "create"
	modeBrowse loadMode = "browse"
)

type config struct {
	baseURL     string
	token       string
	productID   string
	quantity    int
	total       int
	duration    time.Duration
	concurrency int
	timeout     time.Duration
	mode        loadMode
	outputPath  string
}

type latencySummary struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
	Avg float64 `json:"avg"`
	P50 float64 `json:"p50"`
	P95 float64 `json:"p95"`
	P99 float64 `json:"p99"`
}

type report struct {
	StartedAt       time.Time        `json:"started_at"`
	DurationSeconds float64          `json:"duration_seconds"`
	TotalRequests   int64            `json:"total_requests"`
	SuccessRequests int64            `json:"success_requests"`
	FailedRequests  int64            `json:"failed_requests"`
	ErrorRate       float64          `json:"error_rate"`
	RPS             float64          `json:"rps"`
	StatusCodes     map[string]int64 `json:"status_codes"`
	LatencyMs       latencySummary   `json:"latency_ms"`
}

type collector struct {
	mu        sync.Mutex
	codes     map[string]int64
	latencies []float64
}

func newCollector() *collector {
	return &collector{codes: make(map[string]int64)}
}

func (c *collector) record(code string, latency time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.codes[code]++
	c.latencies = append(c.latencies, float64(latency.Milliseconds()))
}

func summarize(latencies []float64) latencySummary {
	if len(latencies) == 0 {
		return latencySummary{}
	}
	sorted := append([]float64(nil), latencies...)
	sort.Float64s(sorted)

	var sum float64
	for _, v := range sorted {
		sum += v
	}
	return latencySummary{
		Min: sorted[0],
		Max: sorted[len(sorted)-1],
		Avg: sum / float64(len(sorted)),
		P50: percentile(sorted, 50),
		P95: percentile(sorted, 95),
		P99: percentile(sorted, 99),
	}
}

// percentile ожидает отсортированный срез.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

type runner struct {
	cfg     config
	client  *http.Client
	stats   *collector
	success int64
	failed  int64
}

func (r *runner) shoot(ctx context.Context) {
	var err error
	switch r.cfg.mode {
	case modeBrowse:
		err = r.listProducts(ctx)
	default:
		err = r.createOrder(ctx)
	}
	if err != nil {
		atomic.AddInt64(&r.failed, 1)
		return
	}
	atomic.AddInt64(&r.success, 1)
}

func (r *runner) createOrder(ctx context.Context) error {
	payload, err := json.Marshal(map[string]any{
		"items": []map[string]any{
			{"product_id": r.cfg.productID, "quantity": r.cfg.quantity},
		},
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.cfg.baseURL+"/orders/create/", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Token "+r.cfg.token)
	req.Header.Set(idempotencyHeader, uuid.NewString())

	return r.do(req, http.StatusCreated)
}

func (r *runner) listProducts(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.cfg.baseURL+"/products/list/", nil)
	if err != nil {
		return err
	}
	return r.do(req, http.StatusOK)
}

func (r *runner) do(req *http.Request, wantStatus int) error {
	start := time.Now()
	resp, err := r.client.Do(req)
	latency := time.Since(start)
	if err != nil {
		r.stats.record("transport_error", latency)
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	r.stats.record(fmt.Sprintf("%d", resp.StatusCode), latency)
	if resp.StatusCode != wantStatus {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}

func run(ctx context.Context, cfg config) report {
	stats := newCollector()
	r := &runner{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.timeout},
		stats:  stats,
	}

	startedAt := time.Now()
	if cfg.duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.duration)
		defer cancel()
	}

	jobs := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < cfg.concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range jobs {
				r.shoot(ctx)
			}
		}()
	}

feed:
	for i := 0; cfg.total <= 0 || i < cfg.total; i++ {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- struct{}{}:
		}
	}
	close(jobs)
	wg.Wait()

	elapsed := time.Since(startedAt)
	success := atomic.LoadInt64(&r.success)
	failed := atomic.LoadInt64(&r.failed)
	total := success + failed

	rep := report{
		StartedAt:       startedAt,
		DurationSeconds: elapsed.Seconds(),
		TotalRequests:   total,
		SuccessRequests: success,
		FailedRequests:  failed,
		StatusCodes:     stats.codes,
		LatencyMs:       summarize(stats.latencies),
	}
	if total > 0 {
		rep.ErrorRate = float64(failed) / float64(total)
		rep.RPS = float64(total) / elapsed.Seconds()
	}
	return rep
}

func parseConfig() (config, error) {
	cfg := config{}
	var mode string

	flag.StringVar(&cfg.baseURL, "addr", "http://localhost:8000", "base URL of the shop API")
	flag.StringVar(&cfg.token, "token", "", "API token for Authorization header")
	flag.StringVar(&cfg.productID, "product", "", "product id for create mode")
	flag.IntVar(&cfg.quantity, "qty", defaultQty, "quantity per order")
	flag.IntVar(&cfg.total, "total", 100, "total requests (0=until duration expires)")
	flag.DurationVar(&cfg.duration, "duration", 0, "test duration (0=until total reached)")
	flag.IntVar(&cfg.concurrency, "concurrency", 4, "parallel workers")
	flag.DurationVar(&cfg.timeout, "timeout", 10*time.Second, "per-request timeout")
	flag.StringVar(&mode, "mode", string(modeCreate), "scenario: create|browse")
	flag.StringVar(&cfg.outputPath, "output", "", "write JSON report to file (default stdout)")
	flag.Parse()

	cfg.mode = loadMode(strings.ToLower(strings.TrimSpace(mode)))
	switch cfg.mode {
	case modeCreate, modeBrowse:
	default:
		return cfg, fmt.Errorf("unsupported mode: %s", mode)
	}
	cfg.baseURL = strings.TrimRight(cfg.baseURL, "/")
	if cfg.concurrency <= 0 {
		cfg.concurrency = 1
	}
	if cfg.total <= 0 && cfg.duration <= 0 {
		return cfg, fmt.Errorf("either -total or -duration must be set")
	}
	if cfg.mode == modeCreate {
		if cfg.token == "" {
			return cfg, fmt.Errorf("-token is required for create mode")
		}
		if cfg.productID == "" {
			return cfg, fmt.Errorf("-product is required for create mode")
		}
		if cfg.quantity <= 0 {
			return cfg, fmt.Errorf("-qty must be positive")
		}
	}
	return cfg, nil
}

func writeReport(rep report, outputPath string) error {
	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return err
	}
	if outputPath == "" {
		fmt.Println(string(data))
		return nil
	}
	return os.WriteFile(outputPath, append(data, '\n'), 0o644)
}

func main() {
	cfg, err := parseConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	rep := run(context.Background(), cfg)
	if err := writeReport(rep, cfg.outputPath); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if rep.FailedRequests > 0 {
		os.Exit(1)
	}
}
