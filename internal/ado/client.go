// Package ado is the Azure DevOps work-item tracking client: WIQL queries,
// batched field fetches and per-item revision history.
package ado

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/akhanalpacksize/ADO-Time-Sheet/internal/httpx"
)

const (
	apiVersion = "7.0"

	// batchFetchLimit is the workitemsbatch endpoint's documented ceiling.
	batchFetchLimit = 200
)

// workItemFieldList is the fixed field set fetched for every work item.
var workItemFieldList = []string{
	"System.Id",
	"System.Title",
	"System.State",
	"System.AssignedTo",
	"System.WorkItemType",
	"Custom.ProductType",
	"Microsoft.VSTS.Scheduling.TargetDate",
}

// Config holds the connection settings for Azure DevOps.
type Config struct {
	BaseURL      string // defaults to https://dev.azure.com
	Organization string
	Token        string // personal access token
	Timeout      time.Duration
}

// WorkItem is the exported snapshot of one tracked unit of work.
type WorkItem struct {
	ID          int
	Title       string
	State       string
	AssignedTo  string
	Type        string
	ProductType string
	TargetDate  string
}

// Client is the interface for interacting with Azure DevOps.
type Client interface {
	// TeamSettings probes team settings; a nil error means the team exists.
	TeamSettings(ctx context.Context, project, team string) error
	// QueryWorkItemIDs executes a WIQL query. An empty project scopes the
	// query to the whole organization.
	QueryWorkItemIDs(ctx context.Context, project, query string) ([]int, error)
	// FetchWorkItems retrieves the fixed field set for the given IDs,
	// batching requests in groups of at most 200.
	FetchWorkItems(ctx context.Context, project string, ids []int) ([]WorkItem, error)
	// Revisions returns a work item's full revision history.
	Revisions(ctx context.Context, project string, id int) ([]Revision, error)
}

// NewClient creates an Azure DevOps REST client from the configuration.
func NewClient(cfg Config) Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://dev.azure.com"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &restClient{
		cfg:  cfg,
		http: httpx.New(cfg.Timeout),
		auth: "Basic " + base64.StdEncoding.EncodeToString([]byte(":"+cfg.Token)),
	}
}

type restClient struct {
	cfg  Config
	http *httpx.Client
	auth string
}

func (c *restClient) header() http.Header {
	h := make(http.Header)
	h.Set("Authorization", c.auth)
	return h
}

// scopeURL builds an _apis URL under the organization, optionally scoped to a
// project and team. Segments are path-escaped because project names may
// contain spaces.
func (c *restClient) scopeURL(project, team, resource string) string {
	u := fmt.Sprintf("%s/%s", c.cfg.BaseURL, url.PathEscape(c.cfg.Organization))
	if project != "" {
		u += "/" + url.PathEscape(project)
	}
	if team != "" {
		u += "/" + url.PathEscape(team)
	}
	return fmt.Sprintf("%s/_apis/%s?api-version=%s", u, resource, apiVersion)
}

func (c *restClient) TeamSettings(ctx context.Context, project, team string) error {
	u := c.scopeURL(project, team, "work/teamsettings")
	if err := c.http.DoJSON(ctx, http.MethodGet, u, c.header(), nil, nil); err != nil {
		return fmt.Errorf("team settings for %s/%s: %w", project, team, err)
	}
	return nil
}

func (c *restClient) QueryWorkItemIDs(ctx context.Context, project, query string) ([]int, error) {
	u := c.scopeURL(project, "", "wit/wiql")
	var resp wiqlResponse
	if err := c.http.DoJSON(ctx, http.MethodPost, u, c.header(), wiqlRequest{Query: query}, &resp); err != nil {
		return nil, fmt.Errorf("wiql query: %w", err)
	}
	ids := make([]int, 0, len(resp.WorkItems))
	for _, item := range resp.WorkItems {
		ids = append(ids, item.ID)
	}
	return ids, nil
}

func (c *restClient) FetchWorkItems(ctx context.Context, project string, ids []int) ([]WorkItem, error) {
	u := c.scopeURL(project, "", "wit/workitemsbatch")
	items := make([]WorkItem, 0, len(ids))
	for start := 0; start < len(ids); start += batchFetchLimit {
		end := min(start+batchFetchLimit, len(ids))
		payload := batchRequest{IDs: ids[start:end], Fields: workItemFieldList}
		var resp batchResponse
		if err := c.http.DoJSON(ctx, http.MethodPost, u, c.header(), payload, &resp); err != nil {
			return nil, fmt.Errorf("work item batch fetch: %w", err)
		}
		for _, dto := range resp.Value {
			items = append(items, mapWorkItem(dto))
		}
	}
	return items, nil
}

func (c *restClient) Revisions(ctx context.Context, project string, id int) ([]Revision, error) {
	u := c.scopeURL(project, "", fmt.Sprintf("wit/workItems/%d/revisions", id))
	var resp revisionsResponse
	if err := c.http.DoJSON(ctx, http.MethodGet, u, c.header(), nil, &resp); err != nil {
		return nil, fmt.Errorf("revisions for work item %d: %w", id, err)
	}
	return resp.Value, nil
}
