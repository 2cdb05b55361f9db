// Package merge joins the exported work-item rows with their time-log
// entries: one output row per log entry, or a single placeholder row for
// work items that logged no time.
package merge

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"slices"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/akhanalpacksize/ADO-Time-Sheet/internal/timelog"
)

// logColumns are the log-derived output columns, in declared order. Columns
// already present in the input header are reused in place, not duplicated.
var logColumns = []string{"month", "comment", "timeTypeDescription", "minutes", "date", "workItemId", "createdOn", "createdBy"}

// idColumns are checked in order to resolve a record's work-item identifier;
// the first non-empty value wins.
var idColumns = []string{"workItemId", "ID", "System.Id"}

// Fetcher supplies time-log entries per work item. Implementations are
// fail-open: a fetch problem yields zero entries, never an error.
type Fetcher interface {
	EntriesForWorkItem(ctx context.Context, workItemID string, year int) []timelog.Entry
}

// Options tunes one merge run.
type Options struct {
	// Year scopes the log fetch to entries created on/after Jan 1.
	Year int
	// Workers bounds the parallel log fetch. Values <= 1 fetch sequentially.
	// Parallelism affects only latency: output rows follow input work-item
	// order, then log order within each item, regardless of Workers.
	Workers int
}

// Result summarizes one merge run.
type Result struct {
	Items   int
	Rows    int
	Skipped int // records with no resolvable work-item identifier
}

// Merger performs the work-item / time-log join.
type Merger struct {
	fetch Fetcher
	opts  Options
}

// New creates a Merger.
func New(fetch Fetcher, opts Options) *Merger {
	if opts.Year == 0 {
		opts.Year = time.Now().Year()
	}
	return &Merger{fetch: fetch, opts: opts}
}

// Run reads the work-item CSV at inPath and writes the merged CSV to outPath.
func (m *Merger) Run(ctx context.Context, inPath, outPath string) (*Result, error) {
	header, records, err := readCSV(inPath)
	if err != nil {
		return nil, err
	}

	outHeader := slices.Clone(header)
	for _, col := range logColumns {
		if !slices.Contains(outHeader, col) {
			outHeader = append(outHeader, col)
		}
	}
	colIdx := make(map[string]int, len(outHeader))
	for i, col := range outHeader {
		colIdx[col] = i
	}

	res := &Result{}

	// Resolve each record's work-item identifier up front so the fetch plan
	// is fixed before any network call.
	ids := make([]string, len(records))
	for i, rec := range records {
		ids[i] = resolveID(header, rec)
		if ids[i] == "" {
			res.Skipped++
		}
	}

	logs := m.fetchAll(ctx, ids)

	f, err := os.Create(outPath)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", outPath, err)
	}
	defer f.Close()
	w := csv.NewWriter(f)
	if err := w.Write(outHeader); err != nil {
		return nil, err
	}

	for i, rec := range records {
		id := ids[i]
		if id == "" {
			continue
		}
		res.Items++
		for _, row := range mergedRows(rec, id, logs[i], outHeader, colIdx) {
			if err := w.Write(row); err != nil {
				return nil, err
			}
			res.Rows++
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	if err := f.Close(); err != nil {
		return nil, err
	}
	log.Info().Int("items", res.Items).Int("rows", res.Rows).Str("file", outPath).Msg("Merged time log written")
	return res, nil
}

// fetchAll retrieves log entries for every resolved ID, keyed by record
// index. With Workers > 1 the fetches overlap in a bounded pool and results
// are buffered here; row emission stays single-writer either way.
func (m *Merger) fetchAll(ctx context.Context, ids []string) [][]timelog.Entry {
	logs := make([][]timelog.Entry, len(ids))

	if m.opts.Workers <= 1 {
		for i, id := range ids {
			if id == "" {
				continue
			}
			logs[i] = m.fetch.EntriesForWorkItem(ctx, id, m.opts.Year)
		}
		return logs
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.opts.Workers)
	for i, id := range ids {
		if id == "" {
			continue
		}
		i, id := i, id
		g.Go(func() error {
			logs[i] = m.fetch.EntriesForWorkItem(gctx, id, m.opts.Year)
			return nil
		})
	}
	// Workers never return errors; Wait only drains the pool.
	_ = g.Wait()
	return logs
}

// mergedRows builds the output rows for one work-item record: N rows for N
// log entries, or one placeholder row with empty log fields when none exist.
// The work-item ID is asserted on every row; work-item columns such as
// ProductType are carried through untouched.
func mergedRows(rec []string, id string, entries []timelog.Entry, outHeader []string, colIdx map[string]int) [][]string {
	base := make([]string, len(outHeader))
	copy(base, rec)

	if len(entries) == 0 {
		row := slices.Clone(base)
		row[colIdx["workItemId"]] = id
		return [][]string{row}
	}

	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		row := slices.Clone(base)
		set := func(col, val string) { row[colIdx[col]] = val }
		set("month", MonthName(e.Date))
		set("comment", e.Comment)
		set("timeTypeDescription", e.TimeTypeDescription)
		set("minutes", e.Minutes.String())
		set("date", e.Date)
		set("workItemId", id)
		set("createdOn", e.CreatedOn)
		set("createdBy", e.CreatedBy)
		rows = append(rows, row)
	}
	return rows
}

// resolveID picks the record's work-item identifier from the first non-empty
// candidate column. Records with none are skipped by the caller.
func resolveID(header, rec []string) string {
	for _, col := range idColumns {
		idx := slices.Index(header, col)
		if idx >= 0 && idx < len(rec) && rec[idx] != "" {
			return rec[idx]
		}
	}
	return ""
}

// MonthName derives the English calendar month name from an ISO date string.
// Short or malformed dates yield an empty name.
func MonthName(date string) string {
	if len(date) < 7 {
		return ""
	}
	m, err := strconv.Atoi(date[5:7])
	if err != nil || m < 1 || m > 12 {
		return ""
	}
	return time.Month(m).String()
}

func readCSV(path string) (header []string, records [][]string, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	all, err := r.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(all) == 0 {
		return nil, nil, fmt.Errorf("%s: empty file, expected a header row", path)
	}
	return all[0], all[1:], nil
}
