package api

import (
	"context"
	"fmt"
	"strings"
	"time"

	"tunecache/internal/jobs"
)

// RecordReader abstracts the record store interactions needed for API queries.
type RecordReader interface {
	Get(ctx context.Context, contentID string) (*jobs.Record, error)
	List(ctx context.Context, states ...jobs.State) ([]*jobs.Record, error)
	Stats(ctx context.Context) (jobs.Stats, error)
	CountStale(ctx context.Context, cutoff time.Time) (int, error)
}

// RecordService exposes read-only record operations returning API DTOs.
type RecordService struct {
	store RecordReader
}

// NewRecordService constructs a RecordService around the provided reader.
func NewRecordService(store RecordReader) *RecordService {
	if store == nil {
		return nil
	}
	return &RecordService{store: store}
}

// List returns records filtered by state.
func (s *RecordService) List(ctx context.Context, states ...jobs.State) ([]Record, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	records, err := s.store.List(ctx, states...)
	if err != nil {
		return nil, err
	}
	return FromRecords(records), nil
}

// Stats returns record counts keyed by state string.
func (s *RecordService) Stats(ctx context.Context) (map[string]int, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return nil, err
	}
	return FromStats(stats), nil
}

// Stale counts processing records silent since before now-staleAfter.
func (s *RecordService) Stale(ctx context.Context, staleAfter time.Duration) (int, error) {
	if s == nil || s.store == nil || staleAfter <= 0 {
		return 0, nil
	}
	return s.store.CountStale(ctx, time.Now().Add(-staleAfter))
}

// Describe fetches a single record. A missing record yields nil, nil.
func (s *RecordService) Describe(ctx context.Context, contentID string) (*Record, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	rec, err := s.store.Get(ctx, contentID)
	if err != nil || rec == nil {
		return nil, err
	}
	dto := FromRecord(rec)
	return &dto, nil
}

// ParseStates converts state filter values, rejecting unknown states.
func ParseStates(values []string) ([]jobs.State, error) {
	var states []jobs.State
	for _, raw := range values {
		for _, part := range strings.Split(raw, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			state, ok := jobs.ParseState(part)
			if !ok {
				return nil, fmt.Errorf("unknown state %q", strings.TrimSpace(part))
			}
			states = append(states, state)
		}
	}
	return states, nil
}
