package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/vjranagit/latency/pkg/types"
)

// BadgerScheme prefixes sources that point at a badger snapshot directory
const BadgerScheme = "badger://"

// DataLoadError reports that the telemetry source could not be turned into
// a snapshot. It is fatal: the service must not serve without data.
type DataLoadError struct {
	Source string
	Err    error
}

func (e *DataLoadError) Error() string {
	return fmt.Sprintf("failed to load telemetry from %s: %v", e.Source, e.Err)
}

func (e *DataLoadError) Unwrap() error {
	return e.Err
}

// Load reads the telemetry source once and returns the snapshot.
//
// Supported sources are a JSON array of records (optionally .gz or .zst
// compressed) and a badger snapshot directory, given either as a plain
// directory path or with the badger:// prefix.
func Load(ctx context.Context, source string) (*Store, error) {
	if source == "" {
		return nil, &DataLoadError{Source: source, Err: errors.New("no source configured")}
	}

	if strings.HasPrefix(source, BadgerScheme) {
		return LoadBadger(ctx, strings.TrimPrefix(source, BadgerScheme))
	}

	info, err := os.Stat(source)
	if err != nil {
		return nil, &DataLoadError{Source: source, Err: err}
	}
	if info.IsDir() {
		return LoadBadger(ctx, source)
	}

	if err := ctx.Err(); err != nil {
		return nil, &DataLoadError{Source: source, Err: err}
	}

	records, err := readFile(source)
	if err != nil {
		return nil, &DataLoadError{Source: source, Err: err}
	}

	return NewStore(records), nil
}

// readFile opens a dataset file, unwrapping compression by extension
func readFile(path string) ([]types.TelemetryRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r io.Reader = f
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gz":
		zr, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("failed to open gzip stream: %w", err)
		}
		defer zr.Close()
		r = zr
	case ".zst":
		zr, err := zstd.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("failed to open zstd stream: %w", err)
		}
		defer zr.Close()
		r = zr
	}

	return DecodeRecords(r)
}

// rawRecord keeps required fields as pointers so absence can be detected
type rawRecord struct {
	Region        *string  `json:"region"`
	LatencyMs     *float64 `json:"latency_ms"`
	UptimePercent *float64 `json:"uptime_percent"`
}

// DecodeRecords parses a JSON array of telemetry records. Unknown fields are
// ignored; a record missing region, latency_ms or uptime_percent is an error.
func DecodeRecords(r io.Reader) ([]types.TelemetryRecord, error) {
	dec := json.NewDecoder(r)

	var raw []rawRecord
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("invalid telemetry data: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("invalid telemetry data: unexpected trailing content")
	}
	if raw == nil {
		return nil, errors.New("invalid telemetry data: expected an array of records")
	}

	records := make([]types.TelemetryRecord, len(raw))
	for i, rec := range raw {
		switch {
		case rec.Region == nil:
			return nil, fmt.Errorf("record %d: missing region", i)
		case rec.LatencyMs == nil:
			return nil, fmt.Errorf("record %d: missing latency_ms", i)
		case rec.UptimePercent == nil:
			return nil, fmt.Errorf("record %d: missing uptime_percent", i)
		}

		records[i] = types.TelemetryRecord{
			Region:        *rec.Region,
			LatencyMs:     *rec.LatencyMs,
			UptimePercent: *rec.UptimePercent,
		}
	}

	return records, nil
}
