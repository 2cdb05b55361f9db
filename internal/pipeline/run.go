// Package pipeline sequences the three batch stages: export work items,
// merge time logs, upload to the reporting dataset. Each stage reads its
// predecessor's file; no state is shared in memory across stages.
package pipeline

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/akhanalpacksize/ADO-Time-Sheet/internal/alert"
	"github.com/akhanalpacksize/ADO-Time-Sheet/internal/config"
	"github.com/akhanalpacksize/ADO-Time-Sheet/internal/domo"
	"github.com/akhanalpacksize/ADO-Time-Sheet/internal/export"
	"github.com/akhanalpacksize/ADO-Time-Sheet/internal/merge"
)

// Status is the overall outcome of a pipeline run.
type Status int

const (
	// StatusSuccess means every stage completed with nothing skipped.
	StatusSuccess Status = iota
	// StatusPartial means the run produced output but skipped teams or
	// items, or the upload failed and was alerted.
	StatusPartial
	// StatusFailed means a stage could not produce its output; later
	// stages were not attempted.
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusPartial:
		return "partial"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Exporter is the work-item export stage.
type Exporter interface {
	Run(ctx context.Context, outPath string) (*export.Result, error)
}

// Merger is the time-log merge stage.
type Merger interface {
	Run(ctx context.Context, inPath, outPath string) (*merge.Result, error)
}

// Uploader is the tabular dataset sink.
type Uploader interface {
	Upload(ctx context.Context, datasetID, filePath string, dateTimeColumns []string, name, description string) error
}

// Runner executes the full pipeline and reports an explicit run status
// instead of absorbing stage failures silently.
type Runner struct {
	exporter Exporter
	merger   Merger
	uploader Uploader
	alerts   alert.Sink
	cfg      *config.AppConfig
}

// NewRunner wires the three stages and the alert sink together.
func NewRunner(exporter Exporter, merger Merger, uploader Uploader, alerts alert.Sink, cfg *config.AppConfig) *Runner {
	return &Runner{exporter: exporter, merger: merger, uploader: uploader, alerts: alerts, cfg: cfg}
}

// Run executes export, merge and upload in sequence. A stage that cannot
// produce its output file fails the run and stops; skipped units and upload
// failures degrade the run to partial but never abort it.
func (r *Runner) Run(ctx context.Context) Status {
	status := StatusSuccess

	expRes, err := r.exporter.Run(ctx, r.cfg.WorkItemsFile)
	if err != nil {
		return r.fail("work item export failed", err)
	}
	if len(expRes.TeamsSkipped) > 0 || expRes.ItemsSkipped > 0 {
		log.Warn().
			Strs("teamsSkipped", expRes.TeamsSkipped).
			Int("itemsSkipped", expRes.ItemsSkipped).
			Msg("Export completed with skipped units")
		status = StatusPartial
	}

	mergeRes, err := r.merger.Run(ctx, r.cfg.WorkItemsFile, r.cfg.MergedFile)
	if err != nil {
		return r.fail("time log merge failed", err)
	}
	if mergeRes.Skipped > 0 {
		log.Warn().Int("recordsSkipped", mergeRes.Skipped).Msg("Merge skipped records without a work item identifier")
		status = StatusPartial
	}

	err = r.uploader.Upload(ctx, r.cfg.Domo.DatasetID, r.cfg.MergedFile,
		domo.DateTimeColumns, r.cfg.Domo.DatasetName, r.cfg.Domo.DatasetDescription)
	if err != nil {
		log.Error().Err(err).Msg("Dataset upload failed")
		r.alerts.Notify(err.Error(), time.Now())
		status = StatusPartial
	}

	log.Info().Stringer("status", status).Msg("Pipeline run finished")
	return status
}

func (r *Runner) fail(msg string, err error) Status {
	log.Error().Err(err).Msg(msg)
	r.alerts.Notify(msg+": "+err.Error(), time.Now())
	return StatusFailed
}
