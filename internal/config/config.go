package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/akhanalpacksize/ADO-Time-Sheet/internal/ado"
	"github.com/akhanalpacksize/ADO-Time-Sheet/internal/alert"
	"github.com/akhanalpacksize/ADO-Time-Sheet/internal/domo"
	"github.com/akhanalpacksize/ADO-Time-Sheet/internal/timelog"
)

// AppConfig holds the complete application configuration. Credentials are
// resolved once here and threaded through constructors; components never
// read process-wide state themselves.
type AppConfig struct {
	Azure   ado.Config
	Timelog timelog.Config
	Domo    domo.Config
	Alert   alert.Config

	Teams []Team

	DataPath      string
	LogDir        string
	WorkItemsFile string
	MergedFile    string

	// Year scopes the time-log fetch to entries created on/after Jan 1.
	Year int
	// MergeWorkers bounds the parallel time-log fetch; 1 runs sequentially.
	MergeWorkers int
}

// Load loads the configuration from .env files and environment variables.
func Load() (*AppConfig, error) {
	// Prefer a .env next to the binary (the scheduled-job deployment shape),
	// then fall back to the working directory for development runs.
	exePath, err := os.Executable()
	if err == nil {
		envPath := filepath.Join(filepath.Dir(exePath), ".env")
		if err := godotenv.Load(envPath); err == nil {
			log.Debug().Str("path", envPath).Msg("Loaded configuration from binary directory")
		}
	}
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found in working directory, relying on environment variables or binary-relative .env")
	}

	dataPath := getEnv("DATA_PATH", ".")

	teams, err := LoadTeams(getEnv("TEAMS_FILE", ""))
	if err != nil {
		return nil, err
	}

	cfg := &AppConfig{
		Azure: ado.Config{
			BaseURL:      getEnv("ADO_BASE_URL", "https://dev.azure.com"),
			Organization: getEnv("ADO_ORGANIZATION", "packsize"),
			Token:        getEnv("ADO_TOKEN", ""),
			Timeout:      time.Duration(getEnvInt("ADO_TIMEOUT_SECONDS", 30)) * time.Second,
		},
		Timelog: timelog.Config{
			RootURL:     getEnv("TIMELOG_ROOT_URL", "https://boznet-timelogapi.azurewebsites.net/api"),
			FunctionKey: getEnv("TIMELOG_FUNCTION_KEY", ""),
			APIKey:      getEnv("TIMELOG_API_KEY", ""),
			Timeout:     time.Duration(getEnvInt("TIMELOG_TIMEOUT_SECONDS", 10)) * time.Second,
		},
		Domo: domo.Config{
			APIHost:            getEnv("DOMO_API_HOST", "https://api.domo.com"),
			ClientID:           getEnv("DOMO_CLIENT_ID", ""),
			ClientSecret:       getEnv("DOMO_CLIENT_SECRET", ""),
			DatasetID:          getEnv("DOMO_DATASET_ID", ""),
			DatasetName:        getEnv("DOMO_DATASET_NAME", "ADO Time Sheet"),
			DatasetDescription: getEnv("DOMO_DATASET_DESCRIPTION", "Contains Time Sheet data from ADO"),
			Timeout:            time.Duration(getEnvInt("DOMO_TIMEOUT_SECONDS", 120)) * time.Second,
		},
		Alert: alert.Config{
			Host:     getEnv("SMTP_SERVER", ""),
			Port:     getEnvInt("SMTP_PORT", 587),
			Username: getEnv("SMTP_USERNAME", ""),
			Password: getEnv("SMTP_PASSWORD", ""),
			From:     getEnv("ALERT_SENDER", ""),
			To:       splitList(getEnv("ALERT_RECIPIENTS", "")),
			Project:  "ADO-Time-Sheet",
		},
		Teams:         teams,
		DataPath:      dataPath,
		LogDir:        getEnv("LOG_DIR", filepath.Join(dataPath, "logs")),
		WorkItemsFile: getEnv("WORK_ITEMS_FILE", filepath.Join(dataPath, "work_items.csv")),
		MergedFile:    getEnv("MERGED_FILE", filepath.Join(dataPath, "ado_time_log.csv")),
		Year:          getEnvInt("TIMELOG_YEAR", time.Now().Year()),
		MergeWorkers:  getEnvInt("MERGE_WORKERS", 10),
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func splitList(csv string) []string {
	var out []string
	for _, part := range strings.Split(csv, ",") {
		if item := strings.TrimSpace(part); item != "" {
			out = append(out, item)
		}
	}
	return out
}
