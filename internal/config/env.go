package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strconv"
	"strings"

	"bggetl/internal/errs"
)

// Environment variables read by ApplyEnv. Secrets may instead name a file
// through <KEY>_FILE, which is how container secrets are mounted.
const (
	EnvUsername       = "BGG_USERNAME"
	EnvPassword       = "BGG_PASSWORD"
	EnvDSN            = "DB_DSN"
	EnvDBUser         = "DB_USER"
	EnvDBPassword     = "DB_PASSWORD"
	EnvDBHost         = "DB_HOST"
	EnvDBName         = "DB_NAME"
	EnvDataPath       = "DATA_PATH"
	EnvTopKOnly       = "TOP_K_ONLY"
	EnvStorageKind    = "STORAGE_KIND"
	EnvMetricsBackend = "METRICS_BACKEND"
)

// Env is the environment ApplyEnv reads; tests supply fakes.
type Env struct {
	Getenv   func(string) string
	ReadFile func(string) ([]byte, error)
}

// Secret returns the value of key, or the trimmed contents of the file named
// by key_FILE when key itself is unset. A missing file yields "".
func (e Env) Secret(key string) (string, error) {
	if v := e.Getenv(key); v != "" {
		return v, nil
	}
	path := e.Getenv(key + "_FILE")
	if path == "" || e.ReadFile == nil {
		return "", nil
	}
	b, err := e.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("config: read %s_FILE: %w", key, err)
	}
	return strings.TrimSpace(string(b)), nil
}

// ApplyEnv overlays environment values onto cfg. Only variables that are set
// override.
func ApplyEnv(cfg Config, env Env) (Config, error) {
	var err error
	set := func(dst *string, key string, secret bool) {
		if err != nil {
			return
		}
		v := env.Getenv(key)
		if secret {
			v, err = env.Secret(key)
		}
		if v != "" {
			*dst = v
		}
	}

	set(&cfg.Credentials.Username, EnvUsername, true)
	set(&cfg.Credentials.Password, EnvPassword, true)
	set(&cfg.Paths.DataPath, EnvDataPath, false)
	set(&cfg.Storage.Kind, EnvStorageKind, false)
	set(&cfg.Metrics.Backend, EnvMetricsBackend, false)
	set(&cfg.Storage.DSN, EnvDSN, true)
	if err != nil {
		return Config{}, err
	}

	if cfg.Storage.DSN == "" && env.Getenv(EnvDBHost) != "" {
		dsn, derr := composeDSN(env)
		if derr != nil {
			return Config{}, derr
		}
		cfg.Storage.DSN = dsn
	}

	if v := env.Getenv(EnvTopKOnly); v != "" {
		k, perr := strconv.Atoi(strings.TrimSpace(v))
		if perr != nil {
			return Config{}, &errs.ConfigurationError{Field: EnvTopKOnly, Message: fmt.Sprintf("%q is not an integer", v)}
		}
		cfg.Extract.TopKOnly = k
	}
	return cfg, nil
}

// composeDSN builds a postgres URL from DB_USER, DB_PASSWORD, DB_HOST and
// DB_NAME.
func composeDSN(env Env) (string, error) {
	user, err := env.Secret(EnvDBUser)
	if err != nil {
		return "", err
	}
	pass, err := env.Secret(EnvDBPassword)
	if err != nil {
		return "", err
	}
	u := url.URL{
		Scheme: "postgres",
		Host:   env.Getenv(EnvDBHost),
		Path:   "/" + env.Getenv(EnvDBName),
	}
	switch {
	case user != "" && pass != "":
		u.User = url.UserPassword(user, pass)
	case user != "":
		u.User = url.User(user)
	}
	return u.String(), nil
}
