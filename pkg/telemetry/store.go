package telemetry

import (
	"sort"

	"github.com/vjranagit/latency/pkg/types"
)

// Store is an immutable snapshot of telemetry records. It is built once and
// only read afterwards, so any number of goroutines may query it without
// synchronization.
type Store struct {
	records []types.TelemetryRecord
	// Maps region name to positions in records, in load order
	byRegion map[string][]int
}

// NewStore builds a snapshot from records. The input slice is copied.
func NewStore(records []types.TelemetryRecord) *Store {
	s := &Store{
		records:  append([]types.TelemetryRecord(nil), records...),
		byRegion: make(map[string][]int),
	}

	for i, rec := range s.records {
		s.byRegion[rec.Region] = append(s.byRegion[rec.Region], i)
	}

	return s
}

// RecordsForRegion returns the records whose region equals region exactly.
// Matching is case-sensitive. The returned slice is a copy.
func (s *Store) RecordsForRegion(region string) []types.TelemetryRecord {
	positions := s.byRegion[region]
	if len(positions) == 0 {
		return nil
	}

	out := make([]types.TelemetryRecord, len(positions))
	for i, pos := range positions {
		out[i] = s.records[pos]
	}
	return out
}

// Records returns a copy of every record in load order
func (s *Store) Records() []types.TelemetryRecord {
	return append([]types.TelemetryRecord(nil), s.records...)
}

// Len returns the number of records in the snapshot
func (s *Store) Len() int {
	return len(s.records)
}

// Regions returns the distinct region names, sorted
func (s *Store) Regions() []string {
	regions := make([]string, 0, len(s.byRegion))
	for region := range s.byRegion {
		regions = append(regions, region)
	}
	sort.Strings(regions)
	return regions
}
