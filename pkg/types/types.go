package types

// TelemetryRecord represents a single latency/uptime observation for a region
type TelemetryRecord struct {
	Region        string  `json:"region"`
	LatencyMs     float64 `json:"latency_ms"`
	UptimePercent float64 `json:"uptime_percent"`
}

// LatencyRequest represents a statistics request for a set of regions
type LatencyRequest struct {
	Regions     []string `json:"regions"`
	ThresholdMs int      `json:"threshold_ms"`
}

// NoDataMessage is reported for regions without any telemetry
const NoDataMessage = "No data found for this region"

// RegionStats holds the statistics computed for one region, or the
// no-data marker when the region has no telemetry.
type RegionStats struct {
	Error      string
	AvgLatency float64
	P95Latency float64
	AvgUptime  float64
	Breaches   int
}

// NoDataStats returns the marker used for regions without telemetry
func NoDataStats() RegionStats {
	return RegionStats{Error: NoDataMessage}
}

// HasData reports whether the stats carry numeric fields
func (s RegionStats) HasData() bool {
	return s.Error == ""
}
