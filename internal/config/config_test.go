package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse(args))
	return fs
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(parse(t))
	require.NoError(t, err)

	assert.Equal(t, "flashsync.db", cfg.ReplicaPath)
	assert.Equal(t, "", cfg.RemoteURL)
	assert.Equal(t, "sqlite", cfg.RecordDriver)
	assert.Equal(t, 10*time.Second, cfg.SyncInterval)
	assert.Equal(t, 1000, cfg.PageSize)
	assert.Equal(t, ":8080", cfg.Listen)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
}

func TestLoadPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flashsync.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
page-size: 200
log-level: debug
sync-interval: 30s
remote-url: http://localhost:9000
cors-origins:
  - https://a.example
`), 0o600))

	t.Setenv("FLASHSYNC_LOG_LEVEL", "warn")
	t.Setenv("FLASHSYNC_PAGE_SIZE", "250")

	cfg, err := Load(parse(t, "--config", path, "--page-size", "300"))
	require.NoError(t, err)

	assert.Equal(t, 300, cfg.PageSize, "flags beat env and file")
	assert.Equal(t, "warn", cfg.LogLevel, "env beats file")
	assert.Equal(t, 30*time.Second, cfg.SyncInterval, "file beats defaults")
	assert.Equal(t, "http://localhost:9000", cfg.RemoteURL)
	assert.Equal(t, []string{"https://a.example"}, cfg.CORSOrigins)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "driver", args: []string{"--record-driver", "mysql"}, want: "RecordDriver"},
		{name: "interval", args: []string{"--sync-interval", "100ms"}, want: "SyncInterval"},
		{name: "page size", args: []string{"--page-size", "5000"}, want: "PageSize"},
		{name: "log format", args: []string{"--log-format", "xml"}, want: "LogFormat"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(parse(t, tc.args...))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(parse(t, "--config", filepath.Join(t.TempDir(), "nope.yaml")))
	assert.Error(t, err)
}
