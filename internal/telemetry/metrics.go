package telemetry

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/runtime"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// InitMeterProvider initializes the Prometheus exporter and MeterProvider and
// starts Go runtime metrics collection.
// It returns an http.Handler for the /metrics endpoint and a shutdown function.
func InitMeterProvider(serviceName, serviceVersion string) (http.Handler, func(context.Context) error, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return nil, nil, err
	}

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(serviceName),
		semconv.ServiceVersion(serviceVersion),
	)

	mp := metric.NewMeterProvider(
		metric.WithReader(exporter),
		metric.WithResource(res),
	)

	otel.SetMeterProvider(mp)

	if err := runtime.Start(runtime.WithMeterProvider(mp)); err != nil {
		_ = mp.Shutdown(context.Background())
		return nil, nil, err
	}

	return promhttp.Handler(), mp.Shutdown, nil
}

// Metrics holds the order lifecycle instruments. A nil *Metrics records nothing.
type Metrics struct {
	ordersCreated     otelmetric.Int64Counter
	idempotentReplays otelmetric.Int64Counter
	transitions       otelmetric.Int64Counter
	subscribers       otelmetric.Int64UpDownCounter
	droppedDeliveries otelmetric.Int64Counter
}

func NewMetrics(meter otelmetric.Meter) (*Metrics, error) {
	var (
		m   Metrics
		err error
	)

	if m.ordersCreated, err = meter.Int64Counter("orders.created",
		otelmetric.WithDescription("Orders durably created")); err != nil {
		return nil, err
	}
	if m.idempotentReplays, err = meter.Int64Counter("orders.idempotent_replays",
		otelmetric.WithDescription("Creation requests answered from an existing outcome")); err != nil {
		return nil, err
	}
	if m.transitions, err = meter.Int64Counter("orders.transitions",
		otelmetric.WithDescription("Applied order status transitions")); err != nil {
		return nil, err
	}
	if m.subscribers, err = meter.Int64UpDownCounter("broadcast.subscribers",
		otelmetric.WithDescription("Live lifecycle event subscribers")); err != nil {
		return nil, err
	}
	if m.droppedDeliveries, err = meter.Int64Counter("broadcast.dropped",
		otelmetric.WithDescription("Events dropped for subscribers with a full buffer")); err != nil {
		return nil, err
	}

	return &m, nil
}

func (m *Metrics) OrderCreated(ctx context.Context) {
	if m == nil {
		return
	}
	m.ordersCreated.Add(ctx, 1)
}

func (m *Metrics) IdempotentReplay(ctx context.Context) {
	if m == nil {
		return
	}
	m.idempotentReplays.Add(ctx, 1)
}

func (m *Metrics) Transition(ctx context.Context, status, source string) {
	if m == nil {
		return
	}
	m.transitions.Add(ctx, 1, otelmetric.WithAttributes(
		attribute.String("status", status),
		attribute.String("source", source),
	))
}

func (m *Metrics) SubscriberAdded(ctx context.Context, scope string) {
	if m == nil {
		return
	}
	m.subscribers.Add(ctx, 1, otelmetric.WithAttributes(attribute.String("scope", scope)))
}

func (m *Metrics) SubscriberRemoved(ctx context.Context, scope string) {
	if m == nil {
		return
	}
	m.subscribers.Add(ctx, -1, otelmetric.WithAttributes(attribute.String("scope", scope)))
}

func (m *Metrics) DeliveryDropped(ctx context.Context, scope string) {
	if m == nil {
		return
	}
	m.droppedDeliveries.Add(ctx, 1, otelmetric.WithAttributes(attribute.String("scope", scope)))
}
