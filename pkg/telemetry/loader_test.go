package telemetry

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleJSON = `[
  {"region": "us-east", "service": "checkout", "latency_ms": 100, "uptime_percent": 99.5},
  {"region": "us-east", "service": "search", "latency_ms": 200, "uptime_percent": 99.0},
  {"region": "us-east", "service": "search", "latency_ms": 300, "uptime_percent": 98.0},
  {"region": "apac", "latency_ms": 123.45, "uptime_percent": 97.2}
]`

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func TestLoadJSON(t *testing.T) {
	path := writeFile(t, "telemetry.json", []byte(sampleJSON))

	store, err := Load(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, 4, store.Len())
	assert.Equal(t, []string{"apac", "us-east"}, store.Regions())
	assert.Equal(t, 123.45, store.RecordsForRegion("apac")[0].LatencyMs)
}

func TestLoadGzip(t *testing.T) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write([]byte(sampleJSON))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	path := writeFile(t, "telemetry.json.gz", buf.Bytes())

	store, err := Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 4, store.Len())
}

func TestLoadZstd(t *testing.T) {
	enc, err := zstd.NewWriter(nil)
	require.NoError(t, err)
	compressed := enc.EncodeAll([]byte(sampleJSON), nil)
	enc.Close()

	path := writeFile(t, "telemetry.json.zst", compressed)

	store, err := Load(context.Background(), path)
	require.NoError(t, err)
	assert.Len(t, store.RecordsForRegion("us-east"), 3)
}

func TestDecodeRecordsTrailingWhitespace(t *testing.T) {
	records, err := DecodeRecords(strings.NewReader(sampleJSON + "\n\t \n"))
	require.NoError(t, err)
	assert.Len(t, records, 4)
}

func TestLoadEmptyArray(t *testing.T) {
	path := writeFile(t, "empty.json", []byte(`[]`))

	store, err := Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 0, store.Len())
}

func TestLoadFailures(t *testing.T) {
	tests := []struct {
		name    string
		content string
		errText string
	}{
		{name: "not json", content: "region,latency\nus-east,100", errText: "invalid telemetry data"},
		{name: "object instead of array", content: `{"region": "us-east"}`, errText: "invalid telemetry data"},
		{name: "null", content: `null`, errText: "expected an array"},
		{name: "truncated", content: `[{"region": "us-east", "latency_ms": 1`, errText: "invalid telemetry data"},
		{name: "trailing content", content: `[] []`, errText: "trailing content"},
		{name: "stray closing bracket", content: `[] ]`, errText: "trailing content"},
		{name: "stray closing brace", content: `[{"region": "a", "latency_ms": 1, "uptime_percent": 2}]}`, errText: "trailing content"},
		{name: "missing region", content: `[{"latency_ms": 1, "uptime_percent": 2}]`, errText: "missing region"},
		{name: "missing latency", content: `[{"region": "a", "uptime_percent": 2}]`, errText: "missing latency_ms"},
		{name: "null uptime", content: `[{"region": "a", "latency_ms": 1, "uptime_percent": null}]`, errText: "missing uptime_percent"},
		{name: "string latency", content: `[{"region": "a", "latency_ms": "1", "uptime_percent": 2}]`, errText: "invalid telemetry data"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, "telemetry.json", []byte(tt.content))

			store, err := Load(context.Background(), path)
			require.Error(t, err)
			assert.Nil(t, store)

			var loadErr *DataLoadError
			require.True(t, errors.As(err, &loadErr))
			assert.Equal(t, path, loadErr.Source)
			assert.Contains(t, err.Error(), tt.errText)
		})
	}
}

func TestLoadMissingSource(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.json")

	_, err := Load(context.Background(), missing)
	require.Error(t, err)

	var loadErr *DataLoadError
	require.True(t, errors.As(err, &loadErr))
	assert.True(t, errors.Is(err, os.ErrNotExist))

	_, err = Load(context.Background(), "")
	require.True(t, errors.As(err, &loadErr))
}

func TestLoadCorruptCompressedFile(t *testing.T) {
	path := writeFile(t, "telemetry.json.gz", []byte("definitely not gzip"))

	_, err := Load(context.Background(), path)
	var loadErr *DataLoadError
	require.True(t, errors.As(err, &loadErr))
	assert.Contains(t, err.Error(), "gzip")
}

func TestLoadCancelledContext(t *testing.T) {
	path := writeFile(t, "telemetry.json", []byte(sampleJSON))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Load(ctx, path)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestDecodeRecordsIgnoresUnknownFields(t *testing.T) {
	records, err := DecodeRecords(strings.NewReader(sampleJSON))
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, "us-east", records[0].Region)
	assert.Equal(t, 99.5, records[0].UptimePercent)
}
