package types

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// regionStatsPayload is the wire form of RegionStats with data
type regionStatsPayload struct {
	AvgLatency float64 `json:"avg_latency"`
	P95Latency float64 `json:"p95_latency"`
	AvgUptime  float64 `json:"avg_uptime"`
	Breaches   int     `json:"breaches"`
}

type regionStatsError struct {
	Error string `json:"error"`
}

// MarshalJSON emits either the error marker alone or the four numeric fields
func (s RegionStats) MarshalJSON() ([]byte, error) {
	if !s.HasData() {
		return json.Marshal(regionStatsError{Error: s.Error})
	}
	return json.Marshal(regionStatsPayload{
		AvgLatency: s.AvgLatency,
		P95Latency: s.P95Latency,
		AvgUptime:  s.AvgUptime,
		Breaches:   s.Breaches,
	})
}

// UnmarshalJSON accepts both wire forms produced by MarshalJSON
func (s *RegionStats) UnmarshalJSON(data []byte) error {
	var raw struct {
		Error      *string  `json:"error"`
		AvgLatency *float64 `json:"avg_latency"`
		P95Latency *float64 `json:"p95_latency"`
		AvgUptime  *float64 `json:"avg_uptime"`
		Breaches   *int     `json:"breaches"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	if raw.Error != nil {
		*s = RegionStats{Error: *raw.Error}
		return nil
	}
	if raw.AvgLatency == nil || raw.P95Latency == nil || raw.AvgUptime == nil || raw.Breaches == nil {
		return fmt.Errorf("region stats: missing numeric fields")
	}

	*s = RegionStats{
		AvgLatency: *raw.AvgLatency,
		P95Latency: *raw.P95Latency,
		AvgUptime:  *raw.AvgUptime,
		Breaches:   *raw.Breaches,
	}
	return nil
}

// LatencyReport maps requested regions to their stats. Keys keep the order
// in which they were first set; setting an existing key replaces its value.
type LatencyReport struct {
	order []string
	stats map[string]RegionStats
}

// NewLatencyReport creates an empty report sized for n regions
func NewLatencyReport(n int) *LatencyReport {
	return &LatencyReport{
		order: make([]string, 0, n),
		stats: make(map[string]RegionStats, n),
	}
}

// Set stores stats for a region
func (r *LatencyReport) Set(region string, stats RegionStats) {
	if r.stats == nil {
		r.stats = make(map[string]RegionStats)
	}
	if _, exists := r.stats[region]; !exists {
		r.order = append(r.order, region)
	}
	r.stats[region] = stats
}

// Get returns the stats stored for a region
func (r *LatencyReport) Get(region string) (RegionStats, bool) {
	stats, ok := r.stats[region]
	return stats, ok
}

// Len returns the number of regions in the report
func (r *LatencyReport) Len() int {
	return len(r.order)
}

// Regions returns the region keys in report order
func (r *LatencyReport) Regions() []string {
	return append([]string(nil), r.order...)
}

// MarshalJSON writes the report as a JSON object in report order
func (r *LatencyReport) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	for i, region := range r.order {
		if i > 0 {
			buf.WriteByte(',')
		}

		key, err := json.Marshal(region)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')

		val, err := json.Marshal(r.stats[region])
		if err != nil {
			return nil, fmt.Errorf("failed to marshal stats for %q: %w", region, err)
		}
		buf.Write(val)
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object into the report, keeping key order
func (r *LatencyReport) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("latency report: expected object, got %v", tok)
	}

	*r = LatencyReport{stats: make(map[string]RegionStats)}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		region, ok := tok.(string)
		if !ok {
			return fmt.Errorf("latency report: expected key, got %v", tok)
		}

		var stats RegionStats
		if err := dec.Decode(&stats); err != nil {
			return fmt.Errorf("latency report: region %q: %w", region, err)
		}
		r.Set(region, stats)
	}

	_, err = dec.Token()
	return err
}
