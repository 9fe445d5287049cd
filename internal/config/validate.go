package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// IssueSeverity says whether an Issue blocks a run.
type IssueSeverity string

const (
	SeverityError   IssueSeverity = "error"
	SeverityWarning IssueSeverity = "warning"
)

// Issue is one validation finding. Path is dotted, e.g. "extract.batch_size".
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether any issue is an error.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

// MaxCatalogBatch is the most ids the catalog API accepts in one request.
const MaxCatalogBatch = 20

// MinPoliteDelay is the pause the catalog operators ask for between requests.
const MinPoliteDelay = 5 * time.Second

var (
	knownStorageKinds  = map[string]bool{"postgres": true, "sqlite": true}
	knownMetricBackend = map[string]bool{"": true, "none": true, "prompush": true, "datadog": true}
	knownLogModes      = map[string]bool{"dev": true, "development": true, "prod": true, "production": true}
)

// ValidateConfig checks cfg without mutating it. Steps that a command does not
// run can ignore issues under unrelated paths; Scope filters them.
func ValidateConfig(cfg Config) []Issue {
	var issues []Issue
	add := func(sev IssueSeverity, path, format string, args ...any) {
		issues = append(issues, Issue{Severity: sev, Path: path, Message: fmt.Sprintf(format, args...)})
	}

	if strings.TrimSpace(cfg.Job) == "" {
		add(SeverityError, "job", "job must not be empty; it labels logs and metrics")
	}

	for _, u := range []struct{ path, raw string }{
		{"api.site_url", cfg.API.SiteURL},
		{"api.catalog_url", cfg.API.CatalogURL},
	} {
		if parsed, err := url.Parse(u.raw); err != nil || parsed.Scheme == "" || parsed.Host == "" {
			add(SeverityError, u.path, "%q is not an absolute URL", u.raw)
		}
	}
	if cfg.API.Timeout.Duration < 0 {
		add(SeverityError, "api.timeout", "timeout must not be negative")
	}

	if cfg.Credentials.Username == "" {
		add(SeverityError, "credentials.username", "username is required (set %s)", EnvUsername)
	}
	if cfg.Credentials.Password == "" {
		add(SeverityError, "credentials.password", "password is required (set %s or %s_FILE)", EnvPassword, EnvPassword)
	}

	if strings.TrimSpace(cfg.Paths.DataPath) == "" {
		add(SeverityError, "paths.data_path", "data path is required (set %s)", EnvDataPath)
	}

	switch b := cfg.Extract.BatchSize; {
	case b <= 0:
		add(SeverityError, "extract.batch_size", "batch size must be positive, got %d", b)
	case b > MaxCatalogBatch:
		add(SeverityWarning, "extract.batch_size", "the catalog API rejects more than %d ids per request", MaxCatalogBatch)
	}
	switch d := cfg.Extract.Delay.Duration; {
	case d <= 0:
		add(SeverityError, "extract.delay", "delay must be positive, got %s", d)
	case d < MinPoliteDelay:
		add(SeverityWarning, "extract.delay", "delays under %s risk HTTP 429 responses", MinPoliteDelay)
	}
	if cfg.Extract.MaxRetries < 0 {
		add(SeverityError, "extract.max_retries", "max_retries must not be negative")
	}
	if cfg.Extract.TopKOnly < 0 {
		add(SeverityError, "extract.top_k_only", "top_k_only must not be negative")
	}

	if cfg.Transform.Workers < 0 {
		add(SeverityError, "transform.workers", "workers must not be negative")
	}

	if !knownStorageKinds[cfg.Storage.Kind] {
		add(SeverityError, "storage.kind", "unsupported storage kind %q", cfg.Storage.Kind)
	}
	if strings.TrimSpace(cfg.Storage.DSN) == "" {
		add(SeverityError, "storage.dsn", "dsn is required (set %s)", EnvDSN)
	}
	if cfg.Storage.BatchSize < 0 {
		add(SeverityError, "storage.batch_size", "batch size must not be negative")
	}

	switch cfg.Metrics.Backend {
	case "prompush":
		if cfg.Metrics.PushgatewayURL == "" {
			add(SeverityError, "metrics.pushgateway_url", "prompush backend requires pushgateway_url")
		}
	case "datadog":
		if cfg.Metrics.DatadogAddr == "" {
			add(SeverityError, "metrics.datadog_addr", "datadog backend requires datadog_addr")
		}
	default:
		if !knownMetricBackend[cfg.Metrics.Backend] {
			add(SeverityError, "metrics.backend", "unknown metrics backend %q", cfg.Metrics.Backend)
		}
	}

	if !knownLogModes[strings.ToLower(cfg.Log.Mode)] {
		add(SeverityWarning, "log.mode", "unknown log mode %q; using the development encoder", cfg.Log.Mode)
	}

	return issues
}

// Scope keeps the issues whose path starts with one of the given sections,
// plus "job". Commands use it to ignore sections they never read.
func Scope(issues []Issue, sections ...string) []Issue {
	var out []Issue
	for _, iss := range issues {
		section, _, _ := strings.Cut(iss.Path, ".")
		if section == "job" {
			out = append(out, iss)
			continue
		}
		for _, s := range sections {
			if section == s {
				out = append(out, iss)
				break
			}
		}
	}
	return out
}
