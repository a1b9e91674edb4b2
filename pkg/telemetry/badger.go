package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dgraph-io/badger/v4"
	"github.com/vjranagit/latency/pkg/types"
)

// Keys are region/<name>; one block per region
const regionKeyPrefix = "region/"

// regionBlock is the value stored for each region key
type regionBlock struct {
	Count   int    `json:"count"`
	Latency []byte `json:"latency"`
	Uptime  []byte `json:"uptime"`
}

// ImportBadger writes records into a badger snapshot at dir, replacing any
// snapshot already there. Records keep their order within each region.
func ImportBadger(ctx context.Context, dir string, records []types.TelemetryRecord, compressionLevel int) error {
	compressor, err := NewCompressor(compressionLevel)
	if err != nil {
		return err
	}
	defer compressor.Close()

	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	db, err := openBadger(dir, false)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.DropAll(); err != nil {
		return fmt.Errorf("failed to clear previous snapshot: %w", err)
	}

	store := NewStore(records)

	wb := db.NewWriteBatch()
	defer wb.Cancel()

	for _, region := range store.Regions() {
		if err := ctx.Err(); err != nil {
			return err
		}

		payload, err := encodeBlock(compressor, store.RecordsForRegion(region))
		if err != nil {
			return fmt.Errorf("failed to encode region %q: %w", region, err)
		}

		if err := wb.Set([]byte(regionKeyPrefix+region), payload); err != nil {
			return fmt.Errorf("failed to write region %q: %w", region, err)
		}
	}

	if err := wb.Flush(); err != nil {
		return fmt.Errorf("failed to flush snapshot: %w", err)
	}

	return nil
}

// LoadBadger reads a snapshot written by ImportBadger
func LoadBadger(ctx context.Context, dir string) (*Store, error) {
	source := BadgerScheme + dir

	if _, err := os.Stat(filepath.Join(dir, badger.ManifestFilename)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			err = errors.New("no badger snapshot in directory")
		}
		return nil, &DataLoadError{Source: source, Err: err}
	}

	db, err := openBadger(dir, true)
	if err != nil {
		return nil, &DataLoadError{Source: source, Err: err}
	}
	defer db.Close()

	compressor, err := NewCompressor(2)
	if err != nil {
		return nil, &DataLoadError{Source: source, Err: err}
	}
	defer compressor.Close()

	var records []types.TelemetryRecord
	err = db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(regionKeyPrefix)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			item := it.Item()
			region := string(item.Key()[len(regionKeyPrefix):])

			err := item.Value(func(val []byte) error {
				decoded, err := decodeBlock(compressor, region, val)
				if err != nil {
					return err
				}
				records = append(records, decoded...)
				return nil
			})
			if err != nil {
				return fmt.Errorf("region %q: %w", region, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, &DataLoadError{Source: source, Err: err}
	}

	return NewStore(records), nil
}

func openBadger(dir string, readOnly bool) (*badger.DB, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil
	opts.ReadOnly = readOnly

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB: %w", err)
	}
	return db, nil
}

func encodeBlock(c *Compressor, records []types.TelemetryRecord) ([]byte, error) {
	latencies := make([]float64, len(records))
	uptimes := make([]float64, len(records))
	for i, rec := range records {
		latencies[i] = rec.LatencyMs
		uptimes[i] = rec.UptimePercent
	}

	compressedLatency, err := c.CompressValues(latencies)
	if err != nil {
		return nil, fmt.Errorf("failed to compress latencies: %w", err)
	}

	compressedUptime, err := c.CompressValues(uptimes)
	if err != nil {
		return nil, fmt.Errorf("failed to compress uptimes: %w", err)
	}

	return json.Marshal(&regionBlock{
		Count:   len(records),
		Latency: compressedLatency,
		Uptime:  compressedUptime,
	})
}

func decodeBlock(c *Compressor, region string, val []byte) ([]types.TelemetryRecord, error) {
	var block regionBlock
	if err := json.Unmarshal(val, &block); err != nil {
		return nil, fmt.Errorf("failed to unmarshal block: %w", err)
	}

	latencies, err := c.DecompressValues(block.Latency, block.Count)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress latencies: %w", err)
	}

	uptimes, err := c.DecompressValues(block.Uptime, block.Count)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress uptimes: %w", err)
	}

	if len(latencies) != block.Count || len(uptimes) != block.Count {
		return nil, fmt.Errorf("block holds %d latencies and %d uptimes, expected %d",
			len(latencies), len(uptimes), block.Count)
	}

	records := make([]types.TelemetryRecord, block.Count)
	for i := range records {
		records[i] = types.TelemetryRecord{
			Region:        region,
			LatencyMs:     latencies[i],
			UptimePercent: uptimes[i],
		}
	}
	return records, nil
}
