package commands

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/akhanalpacksize/ADO-Time-Sheet/internal/ado"
	"github.com/akhanalpacksize/ADO-Time-Sheet/internal/alert"
	"github.com/akhanalpacksize/ADO-Time-Sheet/internal/domo"
	"github.com/akhanalpacksize/ADO-Time-Sheet/internal/export"
	"github.com/akhanalpacksize/ADO-Time-Sheet/internal/merge"
	"github.com/akhanalpacksize/ADO-Time-Sheet/internal/timelog"
)

// Single-stage commands for reruns and debugging; the root command runs all
// three stages in sequence.

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export work items with transition dates to the work-items CSV",
	RunE: func(cmd *cobra.Command, args []string) error {
		exporter := export.New(ado.NewClient(cfg.Azure), cfg.Teams)
		res, err := exporter.Run(cmd.Context(), cfg.WorkItemsFile)
		if err != nil {
			return err
		}
		log.Info().Int("items", res.Items).Strs("teamsSkipped", res.TeamsSkipped).Msg("Export finished")
		return nil
	},
}

var mergeCmd = &cobra.Command{
	Use:   "merge",
	Short: "Merge the work-items CSV with time-log entries into the merged CSV",
	RunE: func(cmd *cobra.Command, args []string) error {
		merger := merge.New(timelog.NewClient(cfg.Timelog), merge.Options{
			Year:    cfg.Year,
			Workers: cfg.MergeWorkers,
		})
		res, err := merger.Run(cmd.Context(), cfg.WorkItemsFile, cfg.MergedFile)
		if err != nil {
			return err
		}
		log.Info().Int("items", res.Items).Int("rows", res.Rows).Msg("Merge finished")
		return nil
	},
}

var uploadCmd = &cobra.Command{
	Use:   "upload",
	Short: "Upload the merged CSV to the Domo dataset",
	RunE: func(cmd *cobra.Command, args []string) error {
		uploader := domo.NewClient(cfg.Domo)
		err := uploader.Upload(cmd.Context(), cfg.Domo.DatasetID, cfg.MergedFile,
			domo.DateTimeColumns, cfg.Domo.DatasetName, cfg.Domo.DatasetDescription)
		if err != nil {
			alert.NewSink(cfg.Alert).Notify(err.Error(), time.Now())
			return fmt.Errorf("upload: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd, mergeCmd, uploadCmd)
}
