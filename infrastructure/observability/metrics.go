package observability

import (
	"context"
	"fmt"
	"sync"
	"time"

	"finengine/config"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

// MetricsProvider manages OpenTelemetry metrics for the engine. Every Record
// method is safe on a nil or disabled provider.
type MetricsProvider struct {
	config        *config.Config
	meterProvider *sdkmetric.MeterProvider
	meter         metric.Meter
	initialized   bool
	mu            sync.RWMutex

	workflowActionsCounter       metric.Int64Counter
	balanceMutationsCounter      metric.Int64Counter
	spinDrawsCounter             metric.Int64Counter
	natsMessagesPublishedCounter metric.Int64Counter
	httpRequestDurationHist      metric.Float64Histogram
}

// NewMetricsProvider creates a new metrics provider
func NewMetricsProvider(cfg *config.Config) *MetricsProvider {
	return &MetricsProvider{
		config: cfg,
	}
}

// Initialize sets up the exporter selected by OTelExporterType
func (mp *MetricsProvider) Initialize(ctx context.Context) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.initialized {
		return nil
	}

	if !mp.config.OTelEnabled {
		log.Info("OpenTelemetry metrics disabled")
		mp.initialized = true
		return nil
	}

	var (
		exporter sdkmetric.Exporter
		err      error
	)
	switch mp.config.OTelExporterType {
	case "console":
		exporter, err = stdoutmetric.New()
		if err != nil {
			return fmt.Errorf("failed to create console exporter: %w", err)
		}
		log.Info("Using console metric exporter")

	case "otlp":
		dialCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		exporter, err = otlpmetricgrpc.New(dialCtx,
			otlpmetricgrpc.WithEndpoint(mp.config.OTelOTLPEndpoint),
			otlpmetricgrpc.WithInsecure(),
		)
		if err != nil {
			return fmt.Errorf("failed to create OTLP exporter: %w", err)
		}
		log.WithField("endpoint", mp.config.OTelOTLPEndpoint).Info("Using OTLP metric exporter")

	case "none":
		log.Info("Metrics export disabled (exporter_type='none')")
		mp.initialized = true
		return nil

	default:
		return fmt.Errorf("unknown exporter type: %s", mp.config.OTelExporterType)
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewSchemaless(
			semconv.ServiceName(mp.config.OTelServiceName),
			attribute.String("environment", mp.config.Environment),
		),
	)
	if err != nil {
		return fmt.Errorf("failed to create resource: %w", err)
	}

	mp.meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(
			sdkmetric.NewPeriodicReader(
				exporter,
				sdkmetric.WithInterval(time.Duration(mp.config.OTelExportIntervalMillis)*time.Millisecond),
			),
		),
	)
	otel.SetMeterProvider(mp.meterProvider)
	mp.meter = mp.meterProvider.Meter("finengine")

	if err := mp.createInstruments(); err != nil {
		return fmt.Errorf("failed to create instruments: %w", err)
	}

	mp.initialized = true
	log.Info("Metrics provider initialized successfully")
	return nil
}

func (mp *MetricsProvider) createInstruments() error {
	var err error

	mp.workflowActionsCounter, err = mp.meter.Int64Counter(
		WorkflowActionsTotal,
		metric.WithDescription("Workflow actions by entity type, action and outcome"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create workflow actions counter: %w", err)
	}

	mp.balanceMutationsCounter, err = mp.meter.Int64Counter(
		BalanceMutationsTotal,
		metric.WithDescription("Balance mutations by direction, including idempotent replays"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create balance mutations counter: %w", err)
	}

	mp.spinDrawsCounter, err = mp.meter.Int64Counter(
		SpinDrawsTotal,
		metric.WithDescription("Prize wheel draws by prize type"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create spin draws counter: %w", err)
	}

	mp.natsMessagesPublishedCounter, err = mp.meter.Int64Counter(
		NATSMessagesPublishedTotal,
		metric.WithDescription("Total number of NATS messages published"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create NATS messages published counter: %w", err)
	}

	mp.httpRequestDurationHist, err = mp.meter.Float64Histogram(
		HTTPRequestDuration,
		metric.WithDescription("Duration of HTTP requests in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5),
	)
	if err != nil {
		return fmt.Errorf("failed to create HTTP request duration histogram: %w", err)
	}

	return nil
}

// Shutdown flushes and stops the exporter
func (mp *MetricsProvider) Shutdown(ctx context.Context) error {
	if mp == nil {
		return nil
	}
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.meterProvider != nil {
		return mp.meterProvider.Shutdown(ctx)
	}
	return nil
}

// RecordWorkflowAction counts one ApprovalWorkflow call
func (mp *MetricsProvider) RecordWorkflowAction(entityType, action, outcome string) {
	if !mp.isEnabled() {
		return
	}

	mp.workflowActionsCounter.Add(context.Background(), 1,
		metric.WithAttributes(
			attribute.String(LabelEntityType, entityType),
			attribute.String(LabelAction, action),
			attribute.String(LabelOutcome, outcome),
		),
	)
}

// RecordBalanceMutation counts one balance guard application
func (mp *MetricsProvider) RecordBalanceMutation(direction string, replayed bool) {
	if !mp.isEnabled() {
		return
	}

	mp.balanceMutationsCounter.Add(context.Background(), 1,
		metric.WithAttributes(
			attribute.String(LabelDirection, direction),
			attribute.Bool(LabelReplayed, replayed),
		),
	)
}

// RecordSpinDraw counts one draw
func (mp *MetricsProvider) RecordSpinDraw(prizeType string) {
	if !mp.isEnabled() {
		return
	}

	mp.spinDrawsCounter.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String(LabelPrizeType, prizeType)),
	)
}

// RecordNATSMessagePublished records a NATS message being published
func (mp *MetricsProvider) RecordNATSMessagePublished(eventType string) {
	if !mp.isEnabled() {
		return
	}

	mp.natsMessagesPublishedCounter.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String(LabelEventType, eventType)),
	)
}

// RecordHTTPRequest records the duration of one API request
func (mp *MetricsProvider) RecordHTTPRequest(route, method string, status int, duration time.Duration) {
	if !mp.isEnabled() {
		return
	}

	mp.httpRequestDurationHist.Record(context.Background(), duration.Seconds(),
		metric.WithAttributes(
			attribute.String(LabelRoute, route),
			attribute.String(LabelMethod, method),
			attribute.Int(LabelStatus, status),
		),
	)
}

// isEnabled reports whether instruments exist. It is false for a nil
// provider and for the "none" exporter.
func (mp *MetricsProvider) isEnabled() bool {
	if mp == nil {
		return false
	}
	mp.mu.RLock()
	defer mp.mu.RUnlock()
	return mp.initialized && mp.meter != nil
}
