package stats

import (
	"github.com/vjranagit/latency/pkg/types"
)

// Percentile reported as p95_latency
const reportPercentile = 95

// Decimal places applied to the reported averages and percentile
const reportPrecision = 2

// RecordSource provides the telemetry for a region. *telemetry.Store
// satisfies it.
type RecordSource interface {
	RecordsForRegion(region string) []types.TelemetryRecord
}

// Aggregator computes per-region latency reports over a fixed snapshot.
// It holds no per-request state and is safe for concurrent use.
type Aggregator struct {
	source RecordSource
	cache  *ResultCache
}

// Option configures an Aggregator
type Option func(*Aggregator)

// WithCache memoises per-region results. Only valid while the source
// never changes.
func WithCache(cache *ResultCache) Option {
	return func(a *Aggregator) {
		a.cache = cache
	}
}

// NewAggregator creates an aggregator reading from source
func NewAggregator(source RecordSource, opts ...Option) *Aggregator {
	a := &Aggregator{source: source}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Cache returns the result cache, or nil when caching is off
func (a *Aggregator) Cache() *ResultCache {
	return a.cache
}

// ComputeStats builds the report for regions in request order. A region
// listed twice yields a single entry; the later computation wins.
func (a *Aggregator) ComputeStats(regions []string, thresholdMs int) *types.LatencyReport {
	report := types.NewLatencyReport(len(regions))
	for _, region := range regions {
		report.Set(region, a.RegionStats(region, thresholdMs))
	}
	return report
}

// RegionStats computes the statistics for a single region
func (a *Aggregator) RegionStats(region string, thresholdMs int) types.RegionStats {
	if a.cache != nil {
		if stats, ok := a.cache.Get(region, thresholdMs); ok {
			return stats
		}
	}

	stats := Summarize(a.source.RecordsForRegion(region), thresholdMs)

	if a.cache != nil {
		a.cache.Put(region, thresholdMs, stats)
	}
	return stats
}

// Summarize reduces the records of one region to its reported statistics.
// No records yields the no-data marker.
func Summarize(records []types.TelemetryRecord, thresholdMs int) types.RegionStats {
	if len(records) == 0 {
		return types.NoDataStats()
	}

	latencies := make([]float64, len(records))
	uptimes := make([]float64, len(records))
	for i, rec := range records {
		latencies[i] = rec.LatencyMs
		uptimes[i] = rec.UptimePercent
	}

	return types.RegionStats{
		AvgLatency: Round(Mean(latencies), reportPrecision),
		P95Latency: Round(Percentile(latencies, reportPercentile), reportPrecision),
		AvgUptime:  Round(Mean(uptimes), reportPrecision),
		Breaches:   CountAbove(latencies, float64(thresholdMs)),
	}
}
