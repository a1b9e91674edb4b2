package telemetry

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vjranagit/latency/pkg/types"
)

func sampleRecords() []types.TelemetryRecord {
	return []types.TelemetryRecord{
		{Region: "us-east", LatencyMs: 100, UptimePercent: 99.5},
		{Region: "apac", LatencyMs: 150.25, UptimePercent: 97.0},
		{Region: "us-east", LatencyMs: 200, UptimePercent: 99.0},
		{Region: "US-EAST", LatencyMs: 999, UptimePercent: 1},
		{Region: "us-east", LatencyMs: 300, UptimePercent: 98.0},
	}
}

func TestRecordsForRegionExactMatch(t *testing.T) {
	store := NewStore(sampleRecords())

	got := store.RecordsForRegion("us-east")
	assert.Equal(t, []types.TelemetryRecord{
		{Region: "us-east", LatencyMs: 100, UptimePercent: 99.5},
		{Region: "us-east", LatencyMs: 200, UptimePercent: 99.0},
		{Region: "us-east", LatencyMs: 300, UptimePercent: 98.0},
	}, got)

	assert.Len(t, store.RecordsForRegion("US-EAST"), 1)
	assert.Empty(t, store.RecordsForRegion("us"))
	assert.Empty(t, store.RecordsForRegion("us-east "))
	assert.Empty(t, store.RecordsForRegion("eu-west"))
}

func TestStoreIsImmutable(t *testing.T) {
	input := sampleRecords()
	store := NewStore(input)

	// Mutating the loader's slice must not leak into the snapshot
	input[0].LatencyMs = -1

	got := store.RecordsForRegion("us-east")
	assert.Equal(t, 100.0, got[0].LatencyMs)

	// Neither may mutating a returned selection
	got[0].LatencyMs = -2
	assert.Equal(t, 100.0, store.RecordsForRegion("us-east")[0].LatencyMs)

	all := store.Records()
	all[1].Region = "changed"
	assert.Len(t, store.RecordsForRegion("apac"), 1)
}

func TestStoreRegionsAndLen(t *testing.T) {
	store := NewStore(sampleRecords())

	assert.Equal(t, 5, store.Len())
	assert.Equal(t, []string{"US-EAST", "apac", "us-east"}, store.Regions())

	empty := NewStore(nil)
	assert.Equal(t, 0, empty.Len())
	assert.Empty(t, empty.Regions())
	assert.Nil(t, empty.RecordsForRegion("us-east"))
}
