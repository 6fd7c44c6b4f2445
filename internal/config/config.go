package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port string

	// Binding
	DataSource   string
	DataBase     string
	TemplatePath string
	BindAttr     string

	// Auth
	APIKey string

	// Collector
	HTBAPIURL   string
	HTBBaseURL  string
	HTBUserID   string
	HTBAppToken string
	StorePath   string
	DatasetPath string

	// Snapshots
	ChromeURL       string
	SnapshotWorkers int
	MaxQueueSize    int
	SnapshotWidth   int
	SnapshotHeight  int

	// Job state
	JobTTL time.Duration
}

func Load() Config {
	cfg := Config{
		Port: envOr("PORT", "8090"),

		DataSource:   envOr("DATA_SOURCE", "./data/data.yml"),
		DataBase:     envOr("DATA_BASE", "."),
		TemplatePath: envOr("TEMPLATE_PATH", "assets/templates/badge-default.html"),
		BindAttr:     strings.ToLower(envOr("BIND_ATTR", "user")),

		APIKey: os.Getenv("BADGE_API_KEY"),

		HTBAPIURL:   envOr("HTB_API_URL", "https://labs.hackthebox.com/api/v4"),
		HTBBaseURL:  envOr("HTB_BASE_URL", "https://labs.hackthebox.com"),
		HTBUserID:   os.Getenv("HTB_USER_ID"),
		HTBAppToken: os.Getenv("HTB_APP_TOKEN"),
		StorePath:   envOr("STORE_PATH", "data/responses.db"),
		DatasetPath: envOr("DATASET_PATH", "data/data.yml"),

		ChromeURL:       os.Getenv("CHROME_URL"),
		SnapshotWorkers: envInt("SNAPSHOT_WORKERS", 2),
		MaxQueueSize:    envInt("MAX_QUEUE_SIZE", 20),
		SnapshotWidth:   envInt("SNAPSHOT_WIDTH", 875),
		SnapshotHeight:  envInt("SNAPSHOT_HEIGHT", 300),

		JobTTL: envDuration("JOB_TTL", 1*time.Hour),
	}

	if cfg.SnapshotWorkers <= 0 {
		cfg.SnapshotWorkers = 2
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 20
	}
	if cfg.SnapshotWidth <= 0 {
		cfg.SnapshotWidth = 875
	}
	if cfg.SnapshotHeight <= 0 {
		cfg.SnapshotHeight = 300
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = 1 * time.Hour
	}

	return cfg
}

// Validate checks the settings every command needs.
func (c Config) Validate() error {
	if c.DataSource == "" {
		return fmt.Errorf("DATA_SOURCE is required")
	}
	if c.TemplatePath == "" {
		return fmt.Errorf("TEMPLATE_PATH is required")
	}
	if c.BindAttr == "" || strings.ContainsAny(c.BindAttr, " \t\n\"'>/=") {
		return fmt.Errorf("BIND_ATTR %q is not a valid attribute name", c.BindAttr)
	}
	return nil
}

// ValidateServer additionally checks the settings of the HTTP service.
func (c Config) ValidateServer() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.APIKey == "" {
		return fmt.Errorf("BADGE_API_KEY is required")
	}
	return nil
}

// ValidateCollector checks the settings of the profile collector.
func (c Config) ValidateCollector() error {
	if c.HTBUserID == "" {
		return fmt.Errorf("HTB_USER_ID is required")
	}
	if _, err := strconv.Atoi(c.HTBUserID); err != nil {
		return fmt.Errorf("HTB_USER_ID must be numeric: %q", c.HTBUserID)
	}
	if c.StorePath == "" || c.DatasetPath == "" {
		return fmt.Errorf("STORE_PATH and DATASET_PATH are required")
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
