package metrics

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"seodesk/internal/models"
)

var (
	ProviderRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "seodesk_provider_requests_total",
		Help: "External provider requests by provider, endpoint and outcome",
	}, []string{"provider", "endpoint", "outcome"})
	ProviderDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "seodesk_provider_request_duration_seconds",
		Help:    "External provider request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"provider", "endpoint"})
	CacheLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "seodesk_cache_lookups_total",
		Help: "Provider response cache lookups by result",
	}, []string{"result"})
	OutreachWebhooks = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "seodesk_outreach_webhooks_total",
		Help: "Outreach webhook deliveries and callbacks by direction and outcome",
	}, []string{"direction", "outcome"})
	JobRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "seodesk_job_runs_total",
		Help: "Scheduled job runs by job and outcome",
	}, []string{"job", "outcome"})
	AssistantToolCalls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "seodesk_assistant_tool_calls_total",
		Help: "Assistant tool invocations by tool and outcome",
	}, []string{"tool", "outcome"})
)

func init() {
	prometheus.MustRegister(ProviderRequests, ProviderDuration, CacheLookups, OutreachWebhooks, JobRuns, AssistantToolCalls)
}

// ObserveProviderRequest records one provider call.
func ObserveProviderRequest(provider, endpoint string, err error, start time.Time) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	ProviderRequests.WithLabelValues(provider, endpoint, outcome).Inc()
	ProviderDuration.WithLabelValues(provider, endpoint).Observe(time.Since(start).Seconds())
}

// Outcome maps an error to an "ok"/"error" label value.
func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

var usageCreditsDesc = prometheus.NewDesc(
	"seodesk_api_credits_total",
	"Provider credits consumed, read from the usage ledger",
	[]string{"api", "endpoint"},
	nil,
)

var usageCallsDesc = prometheus.NewDesc(
	"seodesk_api_calls_total",
	"Metered provider calls, read from the usage ledger",
	[]string{"api", "endpoint"},
	nil,
)

// UsageStore is the persistence the usage ledger needs.
type UsageStore interface {
	RecordUsage(ctx context.Context, userID *uuid.UUID, apiName, endpoint string, credits int, requestData any) error
	UsageTotals(ctx context.Context) ([]models.UsageTotal, error)
}

// UsageCollector is a custom Prometheus collector that reads usage totals
// from the database on each scrape.
type UsageCollector struct {
	store UsageStore
}

// NewUsageCollector creates a collector over store.
func NewUsageCollector(store UsageStore) *UsageCollector {
	return &UsageCollector{store: store}
}

// Describe sends the metric descriptors to the channel.
func (c *UsageCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- usageCreditsDesc
	ch <- usageCallsDesc
}

// Collect queries the usage ledger and emits credits and call counts.
func (c *UsageCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	totals, err := c.store.UsageTotals(ctx)
	if err != nil {
		slog.Error("failed to collect usage metrics", "error", err)
		return
	}
	for _, u := range totals {
		ch <- prometheus.MustNewConstMetric(usageCreditsDesc, prometheus.CounterValue, float64(u.Credits), u.APIName, u.Endpoint)
		ch <- prometheus.MustNewConstMetric(usageCallsDesc, prometheus.CounterValue, float64(u.Calls), u.APIName, u.Endpoint)
	}
}

// Recorder writes usage rows off the request path.
type Recorder struct {
	store UsageStore
	wg    sync.WaitGroup
}

var (
	recorder     *Recorder
	recorderOnce sync.Once
)

// Init registers the usage collector and initializes the recorder.
// Must be called once at startup.
func Init(store UsageStore) {
	recorderOnce.Do(func() {
		recorder = &Recorder{store: store}
		prometheus.MustRegister(NewUsageCollector(store))
	})
}

// RecordUsage asynchronously appends a usage row. Failures are logged only.
func RecordUsage(userID *uuid.UUID, apiName, endpoint string, credits int, requestData any) {
	if recorder == nil {
		return
	}
	recorder.wg.Add(1)
	go func() {
		defer recorder.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := recorder.store.RecordUsage(ctx, userID, apiName, endpoint, credits, requestData); err != nil {
			slog.Error("failed to record api usage", "api", apiName, "endpoint", endpoint, "error", err)
		}
	}()
}

// Flush waits for pending usage writes. Called on shutdown.
func Flush() {
	if recorder == nil {
		return
	}
	recorder.wg.Wait()
}
