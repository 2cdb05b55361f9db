// Package timelog is the client for the secondary time-log API. Its identity
// model is keyed by work-item ID as text; a work item unknown to the log
// system is reported as having zero entries, not as an error.
package timelog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/akhanalpacksize/ADO-Time-Sheet/internal/httpx"
)

// Config holds the connection settings for the time-log API.
type Config struct {
	RootURL     string
	FunctionKey string
	APIKey      string
	Timeout     time.Duration // bounds worst-case stalls, defaults to 10s
}

// Entry is one logged time record against a work item. Numeric fields use
// json.Number so values round-trip to CSV exactly as the API returned them.
type Entry struct {
	Comment             string      `json:"comment"`
	Week                json.Number `json:"week"`
	TimeTypeDescription string      `json:"timeTypeDescription"`
	Minutes             json.Number `json:"minutes"`
	Date                string      `json:"date"`
	UserName            string      `json:"userName"`
	CreatedOn           string      `json:"createdOn"`
	CreatedBy           string      `json:"createdBy"`
	UpdatedOn           string      `json:"updatedOn"`
	UpdatedBy           string      `json:"updatedBy"`
	DeletedOn           string      `json:"deletedOn"`
	DeletedBy           string      `json:"deletedBy"`
}

// Client fetches time-log entries per work item.
type Client struct {
	cfg  Config
	http *httpx.Client
}

// NewClient creates a time-log API client from the configuration.
func NewClient(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Client{cfg: cfg, http: httpx.New(cfg.Timeout)}
}

// EntriesForWorkItem returns all entries logged against the work item on or
// after January 1 of the given year, in the order the API returned them.
// Fail-open by contract: 404 means zero entries, and any other failure is
// logged and also yields zero entries so a logging outage cannot abort a
// merge run.
func (c *Client) EntriesForWorkItem(ctx context.Context, workItemID string, year int) []Entry {
	params := url.Values{}
	params.Set("createdOnFromDate", fmt.Sprintf("%d-01-01T00:00:00", year))
	params.Set("workitemId", workItemID)
	u := fmt.Sprintf("%s/%s/timelog/query?%s", c.cfg.RootURL, c.cfg.FunctionKey, params.Encode())

	header := make(http.Header)
	header.Set("x-functions-key", c.cfg.APIKey)

	var entries []Entry
	if err := c.http.DoJSON(ctx, http.MethodGet, u, header, nil, &entries); err != nil {
		if httpx.IsStatus(err, http.StatusNotFound) {
			return nil
		}
		log.Error().Err(err).Str("workItemId", workItemID).Msg("Failed to fetch time logs")
		return nil
	}
	return entries
}
