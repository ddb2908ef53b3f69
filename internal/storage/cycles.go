package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hoanghai1803/threadscout/internal/models"
)

// RecordCycle stores a finished cycle report.
func (s *Store) RecordCycle(ctx context.Context, r models.CycleReport) error {
	dispatch, err := json.Marshal(r.Dispatch)
	if err != nil {
		return fmt.Errorf("encoding dispatch counts: %w", err)
	}
	if r.Dispatch == nil {
		dispatch = []byte("{}")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO cycle_runs
			(id, pipeline, started_at, finished_at, sources, sources_failed,
			 fetched, new_items, classified, accepted, dispatch)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Pipeline, formatTime(r.StartedAt), formatTime(r.FinishedAt),
		r.Sources, r.SourcesFailed, r.Fetched, r.New, r.Classified, r.Accepted,
		string(dispatch),
	)
	if err != nil {
		return fmt.Errorf("recording cycle: %w", err)
	}
	return nil
}

// RecentCycles returns the most recent cycle reports, newest first.
func (s *Store) RecentCycles(ctx context.Context, limit int) ([]models.CycleReport, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, pipeline, started_at, finished_at, sources, sources_failed,
				fetched, new_items, classified, accepted, dispatch
		 FROM cycle_runs
		 ORDER BY started_at DESC, rowid DESC
		 LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying recent cycles: %w", err)
	}
	defer rows.Close()

	var reports []models.CycleReport
	for rows.Next() {
		var (
			r          models.CycleReport
			startedAt  string
			finishedAt string
			dispatch   string
		)
		if err := rows.Scan(
			&r.ID, &r.Pipeline, &startedAt, &finishedAt, &r.Sources,
			&r.SourcesFailed, &r.Fetched, &r.New, &r.Classified, &r.Accepted,
			&dispatch,
		); err != nil {
			return nil, fmt.Errorf("scanning cycle row: %w", err)
		}
		r.StartedAt = parseTime(startedAt)
		r.FinishedAt = parseTime(finishedAt)
		if err := json.Unmarshal([]byte(dispatch), &r.Dispatch); err != nil {
			return nil, fmt.Errorf("decoding dispatch counts: %w", err)
		}
		reports = append(reports, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating cycles: %w", err)
	}
	return reports, nil
}
