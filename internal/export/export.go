// Package export implements the work-item export stage: per-team WIQL
// resolution, batched field fetches, transition-date derivation and the
// migration-noise filter, written out as the intermediate work-items CSV.
package export

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/akhanalpacksize/ADO-Time-Sheet/internal/ado"
	"github.com/akhanalpacksize/ADO-Time-Sheet/internal/config"
	"github.com/akhanalpacksize/ADO-Time-Sheet/internal/httpx"
)

// Header is the fixed column order of the work-items CSV.
var Header = []string{"ID", "Title", "AssignedTo", "State", "Type", "ProductType", "TargetDate", "DoingDate", "DoneDate", "Team"}

const (
	// migrationCutoverDate is the day items were bulk-closed during the
	// tracker migration; "Done" items stamped with exactly this date are noise.
	migrationCutoverDate = "2025-09-10"
	// reportingWindowStart excludes items finished before the reporting window.
	reportingWindowStart = "2025-01-01"
)

// Result summarizes one export run for the orchestrator.
type Result struct {
	Items        int
	TeamsSkipped []string
	ItemsSkipped int
}

// Exporter orchestrates the work-item export across all configured teams.
type Exporter struct {
	client ado.Client
	teams  []config.Team
}

// New creates an Exporter.
func New(client ado.Client, teams []config.Team) *Exporter {
	return &Exporter{client: client, teams: teams}
}

// Run exports all teams' work items to outPath. One team's probe or query
// failure skips that team and continues; failures past that point abort the
// run because a partially fetched team would silently understate the data.
func (e *Exporter) Run(ctx context.Context, outPath string) (*Result, error) {
	res := &Result{}
	var rows [][]string

	for _, team := range e.teams {
		teamRows, err := e.exportTeam(ctx, team, res)
		if err != nil {
			return nil, err
		}
		rows = append(rows, teamRows...)
	}

	if err := writeCSV(outPath, rows); err != nil {
		return nil, err
	}
	res.Items = len(rows)
	log.Info().Int("items", res.Items).Str("file", outPath).Msg("Work item export written")
	return res, nil
}

func (e *Exporter) exportTeam(ctx context.Context, team config.Team, res *Result) ([][]string, error) {
	if !team.WholeProject {
		if err := e.client.TeamSettings(ctx, team.Project, team.Name); err != nil {
			log.Warn().Err(err).Str("team", team.Name).Msg("Team settings probe failed, skipping team")
			res.TeamsSkipped = append(res.TeamsSkipped, team.Name)
			return nil, nil
		}
	}

	ids, err := e.client.QueryWorkItemIDs(ctx, wiqlScope(team), buildWIQL(team))
	if err != nil {
		evt := log.Error().Err(err).Str("team", team.Name)
		var se *httpx.StatusError
		if errors.As(err, &se) {
			evt = evt.Str("response", se.Body)
		}
		evt.Msg("WIQL query failed, skipping team")
		res.TeamsSkipped = append(res.TeamsSkipped, team.Name)
		return nil, nil
	}
	log.Info().Str("team", team.Name).Int("count", len(ids)).Msg("Found work items")

	items, err := e.client.FetchWorkItems(ctx, team.Project, ids)
	if err != nil {
		return nil, fmt.Errorf("team %s: %w", team.Name, err)
	}

	var rows [][]string
	for _, item := range items {
		revs, err := e.client.Revisions(ctx, team.Project, item.ID)
		if err != nil {
			log.Warn().Err(err).Int("workItemId", item.ID).Msg("Revision history fetch failed, skipping item")
			res.ItemsSkipped++
			continue
		}
		doing, done := ado.TransitionDates(revs)

		if !keep(item.State, done) {
			continue
		}

		rows = append(rows, []string{
			strconv.Itoa(item.ID),
			item.Title,
			item.AssignedTo,
			item.State,
			item.Type,
			item.ProductType,
			item.TargetDate,
			doing,
			done,
			team.Name,
		})
	}
	return rows, nil
}

// buildWIQL selects all work item IDs for a team: the whole project, or the
// subtree under the team's area path.
func buildWIQL(team config.Team) string {
	if team.WholeProject {
		return fmt.Sprintf("SELECT [System.Id] FROM WorkItems WHERE [System.TeamProject] = '%s'", team.Project)
	}
	return fmt.Sprintf(
		"SELECT [System.Id] FROM WorkItems WHERE [System.TeamProject] = '%s' AND [System.AreaPath] UNDER '%s\\%s'",
		team.Project, team.Project, team.AreaPath)
}

// wiqlScope returns the project scope for the WIQL call. Whole-project teams
// query at organization level, matching the tracker's routing for them.
func wiqlScope(team config.Team) string {
	if team.WholeProject {
		return ""
	}
	return team.Project
}

// keep applies the migration-noise filter. Items without a done date are
// always kept.
func keep(state, doneDate string) bool {
	if doneDate == "" {
		return true
	}
	if state == ado.StateDone && doneDate == migrationCutoverDate {
		return false
	}
	return doneDate >= reportingWindowStart
}

func writeCSV(path string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(Header); err != nil {
		return err
	}
	if err := w.WriteAll(rows); err != nil {
		return err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return f.Close()
}
