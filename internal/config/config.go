// Package config defines the JSON configuration model for a bggetl run.
//
// A config file is optional; Default supplies every value, the file overrides
// what it names, and the process environment overrides both (see env.go).
//
//	{
//	  "job": "bgg",
//	  "credentials": { "username": "alice" },
//	  "paths":   { "data_path": "/data" },
//	  "extract": { "batch_size": 20, "delay": "5s", "max_retries": 0, "top_k_only": 500 },
//	  "storage": { "kind": "postgres", "dsn": "postgres://..." },
//	  "metrics": { "backend": "prompush", "pushgateway_url": "http://pgw:9091" }
//	}
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config is the whole effective configuration of a run. Each section maps to
// one top-level JSON object.
type Config struct {
	// Job labels logs and metrics.
	Job         string      `json:"job"`
	API         API         `json:"api"`
	Credentials Credentials `json:"credentials"`
	Paths       Paths       `json:"paths"`
	Extract     Extract     `json:"extract"`
	Transform   Transform   `json:"transform"`
	Storage     Storage     `json:"storage"`
	Metrics     Metrics     `json:"metrics"`
	Log         Log         `json:"log"`
}

// API locates the catalog site.
type API struct {
	// SiteURL hosts the login endpoint and the data dump page.
	SiteURL string `json:"site_url"`
	// CatalogURL is the XML API root.
	CatalogURL string   `json:"catalog_url"`
	Timeout    Duration `json:"timeout"`
	UserAgent  string   `json:"user_agent"`
}

// Credentials log in to the site. The password is usually supplied through
// BGG_PASSWORD or BGG_PASSWORD_FILE rather than the file.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Paths holds filesystem locations.
type Paths struct {
	// DataPath is the root under which each run gets a YYYY/MM/DD directory.
	DataPath string `json:"data_path"`
}

// Extract controls catalog fetching.
//
// Behavior:
//   - BatchSize ids go into each request; the API accepts at most 20.
//   - Delay is the pause after every batch and must be positive.
//   - MaxRetries re-sends a batch after a transport error, 429 or 5xx. The
//     default 0 sends each batch once.
type Extract struct {
	BatchSize  int      `json:"batch_size"`
	Delay      Duration `json:"delay"`
	MaxRetries int      `json:"max_retries"`
	// TopKOnly limits extraction to the first K ranked ids; 0 means all.
	TopKOnly int `json:"top_k_only"`
}

// Transform controls payload parsing.
type Transform struct {
	Workers int `json:"workers"`
}

// Storage selects the database the csv tables are loaded into.
type Storage struct {
	// Kind is a registered backend: "postgres" or "sqlite".
	Kind      string `json:"kind"`
	DSN       string `json:"dsn"`
	BatchSize int    `json:"batch_size"`
}

// Metrics selects where step counters and timings are sent.
type Metrics struct {
	// Backend is "", "none", "prompush" or "datadog".
	Backend        string   `json:"backend"`
	PushgatewayURL string   `json:"pushgateway_url"`
	DatadogAddr    string   `json:"datadog_addr"`
	Namespace      string   `json:"namespace"`
	Tags           []string `json:"tags"`
}

// Log configures the zap logger: Mode is "dev" or "prod", Level a zap level
// name.
type Log struct {
	Mode  string `json:"mode"`
	Level string `json:"level"`
}

// Default returns a config that needs only credentials, a data path and a
// DSN to run.
func Default() Config {
	return Config{
		Job: "bggetl",
		API: API{
			SiteURL:    "https://boardgamegeek.com",
			CatalogURL: "https://boardgamegeek.com/xmlapi2",
			Timeout:    Duration{30 * time.Second},
			UserAgent:  "bggetl/1.0",
		},
		Extract:   Extract{BatchSize: 20, Delay: Duration{5 * time.Second}},
		Transform: Transform{Workers: 1},
		Storage:   Storage{Kind: "postgres", BatchSize: 5000},
		Log:       Log{Mode: "prod", Level: "info"},
	}
}

// Decode reads JSON over a copy of base. Unknown fields are rejected.
func Decode(data []byte, base Config) (Config, error) {
	cfg := base
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode: %w", err)
	}
	return cfg, nil
}

// Load builds the effective config: defaults, then the file at path (if
// non-empty), then the process environment.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: %w", err)
		}
		if cfg, err = Decode(data, cfg); err != nil {
			return Config{}, err
		}
	}
	return ApplyEnv(cfg, Env{Getenv: os.Getenv, ReadFile: os.ReadFile})
}

// Layout is the per-run directory tree.
type Layout struct {
	Root string
}

// Layout returns the run directory DataPath/YYYY/MM/DD for day.
func (c Config) Layout(day time.Time) Layout {
	return Layout{Root: filepath.Join(c.Paths.DataPath, day.Format("2006/01/02"))}
}

// Rankings holds the downloaded rankings dump.
func (l Layout) Rankings() string { return filepath.Join(l.Root, "rankings_dumps") }

// XML holds the numbered catalog batch files.
func (l Layout) XML() string { return filepath.Join(l.Root, "xml") }

// CSV holds the transformed tables.
func (l Layout) CSV() string { return filepath.Join(l.Root, "csv") }

// Duration is a time.Duration that decodes from a Go duration string
// ("5s", "1m30s") or a number of seconds.
type Duration struct {
	time.Duration
}

// MarshalJSON writes d as a Go duration string such as "5s".
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON accepts a duration string or a number of seconds.
func (d *Duration) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		v, err := time.ParseDuration(str)
		if err != nil {
			return fmt.Errorf("duration %q: %w", str, err)
		}
		d.Duration = v
		return nil
	}
	secs, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("duration %s: %w", s, err)
	}
	d.Duration = time.Duration(secs * float64(time.Second))
	return nil
}
