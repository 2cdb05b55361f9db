package commands

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/akhanalpacksize/ADO-Time-Sheet/internal/ado"
	"github.com/akhanalpacksize/ADO-Time-Sheet/internal/alert"
	"github.com/akhanalpacksize/ADO-Time-Sheet/internal/config"
	"github.com/akhanalpacksize/ADO-Time-Sheet/internal/domo"
	"github.com/akhanalpacksize/ADO-Time-Sheet/internal/export"
	"github.com/akhanalpacksize/ADO-Time-Sheet/internal/logging"
	"github.com/akhanalpacksize/ADO-Time-Sheet/internal/merge"
	"github.com/akhanalpacksize/ADO-Time-Sheet/internal/pipeline"
	"github.com/akhanalpacksize/ADO-Time-Sheet/internal/timelog"
)

var (
	// Version, Commit, and BuildDate are set at build time via ldflags.
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"

	verbose  bool
	schedule string

	cfg *config.AppConfig
)

var rootCmd = &cobra.Command{
	Use:   "ado-timesheet",
	Short: "ado-timesheet exports Azure DevOps work items, merges time logs and uploads the result to Domo",
	Long: `A scheduled batch job that keeps the time-sheet reporting dataset current:
it exports work items per team, derives Doing/Done transition dates from
revision history, joins logged time from the time-log API and replaces the
Domo dataset with the merged rows.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("load configuration: %w", err)
		}
		logging.Init(verbose, cfg.LogDir)

		log.Info().
			Str("version", Version).
			Str("commit", Commit).
			Str("buildDate", BuildDate).
			Msg("ado-timesheet starting")
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		runner := newRunner(cfg)

		if schedule != "" {
			return runScheduled(cmd.Context(), runner)
		}

		if status := runner.Run(cmd.Context()); status == pipeline.StatusFailed {
			return fmt.Errorf("pipeline run failed, see logs")
		}
		return nil
	},
}

func newRunner(cfg *config.AppConfig) *pipeline.Runner {
	exporter := export.New(ado.NewClient(cfg.Azure), cfg.Teams)
	merger := merge.New(timelog.NewClient(cfg.Timelog), merge.Options{
		Year:    cfg.Year,
		Workers: cfg.MergeWorkers,
	})
	uploader := domo.NewClient(cfg.Domo)
	return pipeline.NewRunner(exporter, merger, uploader, alert.NewSink(cfg.Alert), cfg)
}

// runScheduled blocks and runs the pipeline on the given cron schedule.
// Individual run failures are logged and alerted but keep the scheduler
// alive for the next run.
func runScheduled(ctx context.Context, runner *pipeline.Runner) error {
	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		status := runner.Run(ctx)
		log.Info().Stringer("status", status).Str("schedule", schedule).Msg("Scheduled run finished")
	})
	if err != nil {
		return fmt.Errorf("invalid schedule %q: %w", schedule, err)
	}

	log.Info().Str("schedule", schedule).Msg("Running on schedule")
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	rootCmd.Flags().StringVar(&schedule, "schedule", "", "cron spec; when set, run the pipeline on this schedule instead of once")
}
