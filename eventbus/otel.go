package eventbus

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// OTelMetrics implements Metrics on top of go.opentelemetry.io/otel/metric,
// mirroring goadesign-goa-ai's telemetry.ClueMetrics: a thin wrapper around
// a Meter that is only instantiated when the embedding application opts in,
// so the bus stays a no-op otherwise.
type OTelMetrics struct {
	published metric.Int64Counter
	delivered metric.Int64Counter
	errored   metric.Int64Counter
}

// NewOTelMetrics constructs a Metrics recorder from the global MeterProvider.
// Configure the provider (e.g. via an OTLP exporter) before installing this
// with Bus.SetMetrics.
func NewOTelMetrics() (*OTelMetrics, error) {
	meter := otel.Meter("github.com/streetrace-ai/streetrace-sub005/eventbus")
	published, err := meter.Int64Counter("eventbus.events_published")
	if err != nil {
		return nil, err
	}
	delivered, err := meter.Int64Counter("eventbus.events_delivered")
	if err != nil {
		return nil, err
	}
	errored, err := meter.Int64Counter("eventbus.subscriber_errors")
	if err != nil {
		return nil, err
	}
	return &OTelMetrics{published: published, delivered: delivered, errored: errored}, nil
}

func (m *OTelMetrics) EventPublished(kind Kind) {
	m.published.Add(context.Background(), 1, metric.WithAttributes(attribute.String("kind", string(kind))))
}

func (m *OTelMetrics) EventDelivered(kind Kind) {
	m.delivered.Add(context.Background(), 1, metric.WithAttributes(attribute.String("kind", string(kind))))
}

func (m *OTelMetrics) SubscriberError(kind Kind) {
	m.errored.Add(context.Background(), 1, metric.WithAttributes(attribute.String("kind", string(kind))))
}
