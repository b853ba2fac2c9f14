package telemetry

import (
	"context"
	"log/slog"
	"os"

	"go.opentelemetry.io/contrib/detectors/aws/ecs"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/IliaW/autocomplete-crawler/config"
	"github.com/google/uuid"
)

var meter metric.Meter

type MetricsProvider struct {
	DispatchMetrics *DispatchMetrics
	CrawlMetrics    *CrawlMetrics
	Close           func()
}

type DispatchMetrics struct {
	DispatchCnt func(count int64)
	AttemptCnt  func(endpoint string)
	ErrorCnt    func(endpoint string, kind string)
}

type CrawlMetrics struct {
	ProcessedTermsCnt  func(count int64)
	DiscoveredTermsCnt func(count int64)
}

// NopDispatchMetrics is used when telemetry is not wired, e.g. in tests.
func NopDispatchMetrics() *DispatchMetrics {
	return &DispatchMetrics{
		DispatchCnt: func(int64) {},
		AttemptCnt:  func(string) {},
		ErrorCnt:    func(string, string) {},
	}
}

func NopCrawlMetrics() *CrawlMetrics {
	return &CrawlMetrics{
		ProcessedTermsCnt:  func(int64) {},
		DiscoveredTermsCnt: func(int64) {},
	}
}

func SetupMetrics(ctx context.Context, cfg *config.Config) *MetricsProvider {
	metricsProvider := new(MetricsProvider)
	var meterProvider *sdkmetric.MeterProvider

	if cfg.TelemetrySettings.Enabled {
		r, err := newResource(cfg)
		if err != nil {
			slog.Error("failed to get resource.", slog.String("err", err.Error()))
			os.Exit(1)
		}
		exporter, err := newMetricExporter(ctx, cfg.TelemetrySettings)
		if err != nil {
			slog.Error("failed to get metric exporter.", slog.String("err", err.Error()))
			os.Exit(1)
		}
		meterProvider = newMeterProvider(exporter, *r)
		otel.SetMeterProvider(meterProvider)
	}

	meter = otel.Meter(cfg.ServiceName)
	metricsProvider.Close = func() {
		if meterProvider != nil {
			err := meterProvider.Shutdown(ctx)
			if err != nil {
				slog.Error("failed to shutdown metrics provider.", slog.String("err", err.Error()))
			}
		}
	}

	// Set up dispatch metrics
	dispatchCounter, err := meter.Int64Counter("autocomplete-crawler.dispatch.calls",
		metric.WithDescription("The number of terms dispatched to the autocomplete endpoints"),
		metric.WithUnit("{calls}"))
	if err != nil {
		exitOnCounterErr("dispatch", err)
	}
	attemptCounter, err := meter.Int64Counter("autocomplete-crawler.dispatch.attempts",
		metric.WithDescription("The number of http requests routed to an endpoint"),
		metric.WithUnit("{requests}"))
	if err != nil {
		exitOnCounterErr("dispatch", err)
	}
	errorCounter, err := meter.Int64Counter("autocomplete-crawler.dispatch.errors",
		metric.WithDescription("The number of endpoint attempts that did not return a usable 200 response"),
		metric.WithUnit("{requests}"))
	if err != nil {
		exitOnCounterErr("dispatch", err)
	}
	metricsProvider.DispatchMetrics = &DispatchMetrics{
		DispatchCnt: func(count int64) {
			if cfg.TelemetrySettings.Enabled {
				dispatchCounter.Add(ctx, count)
			}
		},
		AttemptCnt: func(endpoint string) {
			if cfg.TelemetrySettings.Enabled {
				attemptCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("endpoint", endpoint)))
			}
		},
		ErrorCnt: func(endpoint string, kind string) {
			if cfg.TelemetrySettings.Enabled {
				errorCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("endpoint", endpoint),
					attribute.String("kind", kind)))
			}
		},
	}

	// Set up crawl metrics
	processedCounter, err := meter.Int64Counter("autocomplete-crawler.crawl.terms.processed",
		metric.WithDescription("The number of terms taken from the frontier"),
		metric.WithUnit("{terms}"))
	if err != nil {
		exitOnCounterErr("crawl", err)
	}
	discoveredCounter, err := meter.Int64Counter("autocomplete-crawler.crawl.terms.discovered",
		metric.WithDescription("The number of new terms added to the frontier"),
		metric.WithUnit("{terms}"))
	if err != nil {
		exitOnCounterErr("crawl", err)
	}
	metricsProvider.CrawlMetrics = &CrawlMetrics{
		ProcessedTermsCnt: func(count int64) {
			if cfg.TelemetrySettings.Enabled {
				processedCounter.Add(ctx, count)
			}
		},
		DiscoveredTermsCnt: func(count int64) {
			if cfg.TelemetrySettings.Enabled {
				discoveredCounter.Add(ctx, count)
			}
		},
	}

	return metricsProvider
}

func exitOnCounterErr(group string, err error) {
	slog.Error("failed to create telemetry counters for "+group+".", slog.String("err", err.Error()))
	os.Exit(1)
}

func newResource(cfg *config.Config) (*resource.Resource, error) {
	ecsResourceDetector := ecs.NewResourceDetector()
	ecsResource, err := ecsResourceDetector.Detect(context.Background())
	if err != nil {
		slog.Error("ecs detection failed", slog.String("err", err.Error()))
	}
	mergedResource, err := resource.Merge(ecsResource, resource.Default())
	if err != nil {
		slog.Error("failed to merge resources", slog.String("err", err.Error()))
	}
	keyValue, found := ecsResource.Set().Value("container.id")
	var serviceId string
	if found {
		serviceId = keyValue.AsString()
	} else {
		serviceId = uuid.New().String()
	}
	return resource.Merge(mergedResource,
		resource.NewWithAttributes(semconv.SchemaURL,
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.Version),
			semconv.DeploymentEnvironment(cfg.Env),
			semconv.ServiceInstanceID(serviceId),
		))
}

func newMetricExporter(ctx context.Context, cfg *config.TelemetryConfig) (sdkmetric.Exporter, error) {
	return otlpmetrichttp.New(ctx,
		otlpmetrichttp.WithEndpoint(cfg.CollectorUrl),
		otlpmetrichttp.WithInsecure())
}

func newMeterProvider(meterExporter sdkmetric.Exporter, resource resource.Resource) *sdkmetric.MeterProvider {
	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(meterExporter)),
		sdkmetric.WithResource(&resource),
	)
	return meterProvider
}
