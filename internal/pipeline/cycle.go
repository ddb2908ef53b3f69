package pipeline

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/hoanghai1803/threadscout/internal/models"
)

// Recorder stores finished cycle reports. It is optional.
type Recorder interface {
	RecordCycle(ctx context.Context, r models.CycleReport) error
}

// Pipeline is one named configuration of sources, classifier and sinks.
type Pipeline struct {
	Name        string
	Sources     []string
	Coordinator *Coordinator
	Classifier  *Classifier
	Dispatcher  *Dispatcher
	Recorder    Recorder
	Logger      *slog.Logger
	Clock       Clock
}

// RunCycle performs one ingest, classify and dispatch pass. Failures inside
// the stages are logged and counted, never returned.
func (p *Pipeline) RunCycle(ctx context.Context) models.CycleReport {
	clock := p.Clock
	if clock == nil {
		clock = RealClock{}
	}
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	report := models.CycleReport{
		ID:        uuid.NewString(),
		Pipeline:  p.Name,
		StartedAt: clock.Now(),
		Sources:   len(p.Sources),
	}
	logger = logger.With("pipeline", p.Name, "cycle_id", report.ID)
	logger.Info("cycle started", "sources", len(p.Sources))

	ingested := p.Coordinator.Run(ctx, p.Sources)
	report.Fetched = ingested.Fetched
	report.SourcesFailed = len(ingested.Failed)
	report.New = len(ingested.Items)

	var accepted []models.Classified
	if len(ingested.Items) > 0 {
		classified := p.Classifier.ClassifyAll(ctx, ingested.Items)
		report.Classified = len(classified)
		for _, c := range classified {
			if c.Result.Accepted {
				accepted = append(accepted, c)
			}
		}
	}
	report.Accepted = len(accepted)
	report.Dispatch = p.Dispatcher.Dispatch(ctx, accepted)
	report.FinishedAt = clock.Now()

	attrs := []any{
		"fetched", report.Fetched,
		"new", report.New,
		"classified", report.Classified,
		"accepted", report.Accepted,
		"sources_failed", report.SourcesFailed,
		"duration", report.Duration(),
	}
	for name, count := range report.Dispatch {
		attrs = append(attrs, "dispatched_"+name, count.Succeeded)
	}
	logger.Info("cycle finished", attrs...)

	if p.Recorder != nil {
		if err := p.Recorder.RecordCycle(ctx, report); err != nil {
			logger.Warn("recording cycle failed", "error", err)
		}
	}
	return report
}
