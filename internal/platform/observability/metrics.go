package observability

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// TillMetrics records till activity as OpenTelemetry instruments. Instruments that fail to
// register are skipped rather than failing startup.
type TillMetrics struct {
	cartLines    metric.Int64Counter
	bills        metric.Int64Counter
	billAmount   metric.Float64Histogram
	adminLogins  metric.Int64Counter
	priceEdits   metric.Int64Counter
	authLatency  metric.Float64Histogram
	enabledLines bool
	enabledBills bool
	enabledAmt   bool
	enabledLogin bool
	enabledEdits bool
	enabledAuth  bool
}

// MetricsOption customises NewTillMetrics.
type MetricsOption func(*metricsConfig)

type metricsConfig struct {
	meter  metric.Meter
	logger *zap.Logger
}

// WithMeter overrides the meter taken from the global provider.
func WithMeter(m metric.Meter) MetricsOption {
	return func(cfg *metricsConfig) {
		cfg.meter = m
	}
}

// WithMetricsLogger reports instrument registration failures.
func WithMetricsLogger(logger *zap.Logger) MetricsOption {
	return func(cfg *metricsConfig) {
		cfg.logger = logger
	}
}

// NewTillMetrics registers the till instruments.
func NewTillMetrics(opts ...MetricsOption) *TillMetrics {
	cfg := metricsConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = zap.NewNop()
	}
	meter := cfg.meter
	if meter == nil {
		meter = otel.GetMeterProvider().Meter(instrumentationName)
	}

	m := &TillMetrics{}
	var err error

	m.cartLines, err = meter.Int64Counter("till.cart.lines_added",
		metric.WithDescription("Products added to carts, split by whether they merged into an existing line"))
	m.enabledLines = registered(cfg.logger, "till.cart.lines_added", err)

	m.bills, err = meter.Int64Counter("till.bills.generated",
		metric.WithDescription("Bills issued"))
	m.enabledBills = registered(cfg.logger, "till.bills.generated", err)

	m.billAmount, err = meter.Float64Histogram("till.bills.amount",
		metric.WithUnit("INR"),
		metric.WithDescription("Bill totals"))
	m.enabledAmt = registered(cfg.logger, "till.bills.amount", err)

	m.adminLogins, err = meter.Int64Counter("till.admin.logins",
		metric.WithDescription("Admin login attempts by outcome"))
	m.enabledLogin = registered(cfg.logger, "till.admin.logins", err)

	m.priceEdits, err = meter.Int64Counter("till.admin.price_edits",
		metric.WithDescription("Admin price edits by outcome"))
	m.enabledEdits = registered(cfg.logger, "till.admin.price_edits", err)

	m.authLatency, err = meter.Float64Histogram("till.auth.verify.latency",
		metric.WithUnit("ms"),
		metric.WithDescription("Latency in milliseconds for bearer token verification"))
	m.enabledAuth = registered(cfg.logger, "till.auth.verify.latency", err)

	return m
}

func registered(logger *zap.Logger, name string, err error) bool {
	if err != nil {
		logger.Warn("observability: unable to register metric", zap.String("metric", name), zap.Error(err))
		return false
	}
	return true
}

func (m *TillMetrics) CartLineAdded(ctx context.Context, productID int, merged bool) {
	if m == nil || !m.enabledLines {
		return
	}
	m.cartLines.Add(ctx, 1, metric.WithAttributes(
		attribute.Int("product_id", productID),
		attribute.Bool("merged", merged),
	))
}

func (m *TillMetrics) BillGenerated(ctx context.Context, total decimal.Decimal, lines int) {
	if m == nil {
		return
	}
	if m.enabledBills {
		m.bills.Add(ctx, 1, metric.WithAttributes(attribute.Int("lines", lines)))
	}
	if m.enabledAmt {
		amount, _ := total.Float64()
		m.billAmount.Record(ctx, amount)
	}
}

func (m *TillMetrics) AdminLogin(ctx context.Context, outcome string) {
	if m == nil || !m.enabledLogin {
		return
	}
	m.adminLogins.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func (m *TillMetrics) PriceEdit(ctx context.Context, outcome string) {
	if m == nil || !m.enabledEdits {
		return
	}
	m.priceEdits.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// RecordVerification satisfies the auth guard's metrics hook.
func (m *TillMetrics) RecordVerification(ctx context.Context, kind string, success bool, reason string, duration time.Duration) {
	if m == nil || !m.enabledAuth {
		return
	}
	m.authLatency.Record(ctx, float64(duration)/float64(time.Millisecond), metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.Bool("success", success),
		attribute.String("reason", reason),
	))
}
