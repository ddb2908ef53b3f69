package models

import "time"

// SinkCount tallies delivery attempts for one sink.
type SinkCount struct {
	Attempted int `json:"attempted"`
	Succeeded int `json:"succeeded"`
}

// DispatchReport maps sink name to its counts for one dispatch call.
type DispatchReport map[string]SinkCount

// CycleReport records one ingest, classify and dispatch pass of a pipeline.
type CycleReport struct {
	ID            string         `json:"id"`
	Pipeline      string         `json:"pipeline"`
	StartedAt     time.Time      `json:"started_at"`
	FinishedAt    time.Time      `json:"finished_at"`
	Sources       int            `json:"sources"`
	SourcesFailed int            `json:"sources_failed"`
	Fetched       int            `json:"fetched"`
	New           int            `json:"new"`
	Classified    int            `json:"classified"`
	Accepted      int            `json:"accepted"`
	Dispatch      DispatchReport `json:"dispatch"`
}

// Duration is how long the cycle took.
func (r CycleReport) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
