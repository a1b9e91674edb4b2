package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vjranagit/latency/pkg/types"
)

func TestBadgerImportAndLoad(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	records := sampleRecords()
	require.NoError(t, ImportBadger(ctx, dir, records, 3))

	store, err := LoadBadger(ctx, dir)
	require.NoError(t, err)

	assert.Equal(t, len(records), store.Len())
	assert.Equal(t, []string{"US-EAST", "apac", "us-east"}, store.Regions())

	// Per-region order survives the round trip
	assert.Equal(t, NewStore(records).RecordsForRegion("us-east"), store.RecordsForRegion("us-east"))
	assert.Equal(t, NewStore(records).RecordsForRegion("apac"), store.RecordsForRegion("apac"))
}

func TestBadgerImportReplacesSnapshot(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	require.NoError(t, ImportBadger(ctx, dir, sampleRecords(), 2))
	require.NoError(t, ImportBadger(ctx, dir, []types.TelemetryRecord{
		{Region: "emea", LatencyMs: 42, UptimePercent: 100},
	}, 2))

	store, err := LoadBadger(ctx, dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"emea"}, store.Regions())
}

func TestLoadDispatchesToBadger(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	require.NoError(t, ImportBadger(ctx, dir, sampleRecords(), 1))

	byScheme, err := Load(ctx, BadgerScheme+dir)
	require.NoError(t, err)
	assert.Equal(t, 5, byScheme.Len())

	byDir, err := Load(ctx, dir)
	require.NoError(t, err)
	assert.Equal(t, 5, byDir.Len())
}

func TestLoadBadgerWithoutSnapshot(t *testing.T) {
	_, err := Load(context.Background(), t.TempDir())
	require.Error(t, err)

	var loadErr *DataLoadError
	require.True(t, errors.As(err, &loadErr))
	assert.Contains(t, err.Error(), "no badger snapshot")
}

func TestBadgerImportRejectsLevelBeforeWriting(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	require.NoError(t, ImportBadger(ctx, dir, sampleRecords(), 3))

	require.Error(t, ImportBadger(ctx, dir, nil, 9))

	store, err := LoadBadger(ctx, dir)
	require.NoError(t, err)
	assert.Equal(t, 5, store.Len())
}
