// Package domo pushes the merged CSV to a Domo dataset: token fetch, schema
// update from the file's header row, then a full-replace data import.
package domo

import (
	"bufio"
	"context"
	"encoding/base64"
	"encoding/csv"
	"fmt"
	"net/http"
	"os"
	"slices"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/akhanalpacksize/ADO-Time-Sheet/internal/httpx"
)

// Column types understood by the dataset API. Every exported column is
// string-typed except the declared date/time columns.
const (
	typeString   = "STRING"
	typeDateTime = "DATETIME"
)

// DateTimeColumns are the merged-file columns typed as DATETIME on upload.
var DateTimeColumns = []string{"date", "createdOn", "updatedOn", "deletedOn"}

// Config holds the Domo API credentials and dataset coordinates.
type Config struct {
	APIHost            string
	ClientID           string
	ClientSecret       string
	DatasetID          string
	DatasetName        string
	DatasetDescription string
	Timeout            time.Duration
}

// Client uploads files to Domo datasets.
type Client struct {
	cfg  Config
	http *httpx.Client
}

// NewClient creates a Domo API client from the configuration.
func NewClient(cfg Config) *Client {
	if cfg.APIHost == "" {
		cfg.APIHost = "https://api.domo.com"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 2 * time.Minute
	}
	return &Client{cfg: cfg, http: httpx.New(cfg.Timeout)}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
}

type column struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

type schema struct {
	Columns []column `json:"columns"`
}

type datasetUpdate struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Schema      schema `json:"schema"`
}

// authenticate exchanges the client credentials for an access token.
func (c *Client) authenticate(ctx context.Context) (string, error) {
	u := fmt.Sprintf("%s/oauth/token?grant_type=client_credentials&scope=data", c.cfg.APIHost)
	h := make(http.Header)
	h.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(c.cfg.ClientID+":"+c.cfg.ClientSecret)))

	var tok tokenResponse
	if err := c.http.DoJSON(ctx, http.MethodGet, u, h, nil, &tok); err != nil {
		return "", fmt.Errorf("domo authentication: %w", err)
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("domo authentication: empty access token")
	}
	return tok.AccessToken, nil
}

// Upload replaces the dataset's schema and content with the given file.
// The schema is inferred from the file's header row: columns named in
// dateTimeColumns become DATETIME, everything else STRING.
func (c *Client) Upload(ctx context.Context, datasetID, filePath string, dateTimeColumns []string, name, description string) error {
	header, err := readHeader(filePath)
	if err != nil {
		return err
	}

	token, err := c.authenticate(ctx)
	if err != nil {
		return err
	}
	auth := make(http.Header)
	auth.Set("Authorization", "Bearer "+token)

	columns := make([]column, len(header))
	for i, col := range header {
		columns[i] = column{Type: columnType(col, dateTimeColumns), Name: col}
	}
	update := datasetUpdate{Name: name, Description: description, Schema: schema{Columns: columns}}

	u := fmt.Sprintf("%s/v1/datasets/%s", c.cfg.APIHost, datasetID)
	if err := c.http.DoJSON(ctx, http.MethodPut, u, auth, update, nil); err != nil {
		return fmt.Errorf("dataset %s schema update: %w", datasetID, err)
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("read %s: %w", filePath, err)
	}
	importHeader := make(http.Header)
	importHeader.Set("Authorization", "Bearer "+token)
	importHeader.Set("Content-Type", "text/csv")
	if _, err := c.http.Do(ctx, http.MethodPut, u+"/data", importHeader, data); err != nil {
		return fmt.Errorf("dataset %s import: %w", datasetID, err)
	}

	log.Info().Str("dataset", datasetID).Str("file", filePath).Msg("Uploaded data to dataset")
	return nil
}

func columnType(name string, dateTimeColumns []string) string {
	if slices.Contains(dateTimeColumns, name) {
		return typeDateTime
	}
	return typeString
}

func readHeader(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	header, err := csv.NewReader(bufio.NewReader(f)).Read()
	if err != nil {
		return nil, fmt.Errorf("read header of %s: %w", path, err)
	}
	return header, nil
}
