package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDecodeOverridesDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Decode([]byte(`{
		"job": "nightly",
		"extract": {"batch_size": 10, "delay": "7s", "max_retries": 2, "top_k_only": 100},
		"transform": {"workers": 4},
		"storage": {"kind": "sqlite", "dsn": "bgg.db"}
	}`), Default())
	require.NoError(t, err)

	require.Equal(t, "nightly", cfg.Job)
	require.Equal(t, 10, cfg.Extract.BatchSize)
	require.Equal(t, 7*time.Second, cfg.Extract.Delay.Duration)
	require.Equal(t, 2, cfg.Extract.MaxRetries)
	require.Equal(t, 100, cfg.Extract.TopKOnly)
	require.Equal(t, 0, Default().Extract.MaxRetries)
	require.Equal(t, 4, cfg.Transform.Workers)
	require.Equal(t, "sqlite", cfg.Storage.Kind)
	// Untouched sections keep their defaults.
	require.Equal(t, "https://boardgamegeek.com/xmlapi2", cfg.API.CatalogURL)
	require.Equal(t, 5000, cfg.Storage.BatchSize)
}

func TestDecodeRejectsUnknownFields(t *testing.T) {
	t.Parallel()

	_, err := Decode([]byte(`{"extract": {"batchsize": 10}}`), Default())
	require.Error(t, err)
}

func TestDurationJSON(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want time.Duration
		err  bool
	}{
		{`"1m30s"`, 90 * time.Second, false},
		{`2.5`, 2500 * time.Millisecond, false},
		{`0`, 0, false},
		{`"soon"`, 0, true},
		{`true`, 0, true},
	}
	for _, tc := range cases {
		var d Duration
		err := json.Unmarshal([]byte(tc.in), &d)
		if tc.err {
			require.Error(t, err, tc.in)
			continue
		}
		require.NoError(t, err, tc.in)
		require.Equal(t, tc.want, d.Duration, tc.in)
	}

	b, err := json.Marshal(Duration{5 * time.Second})
	require.NoError(t, err)
	require.JSONEq(t, `"5s"`, string(b))
}

func TestLayout(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Paths.DataPath = "/data"
	l := cfg.Layout(time.Date(2026, 3, 7, 23, 0, 0, 0, time.UTC))

	require.Equal(t, filepath.FromSlash("/data/2026/03/07"), l.Root)
	require.Equal(t, filepath.FromSlash("/data/2026/03/07/rankings_dumps"), l.Rankings())
	require.Equal(t, filepath.FromSlash("/data/2026/03/07/xml"), l.XML())
	require.Equal(t, filepath.FromSlash("/data/2026/03/07/csv"), l.CSV())
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bggetl.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"paths": {"data_path": "/from-file"}}`), 0o600))

	t.Setenv(EnvDataPath, "/from-env")
	t.Setenv(EnvUsername, "alice")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "/from-env", cfg.Paths.DataPath)
	require.Equal(t, "alice", cfg.Credentials.Username)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
}
