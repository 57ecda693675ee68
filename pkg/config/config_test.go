package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := `
server:
  address: 127.0.0.1
  port: 9090
  db_path: /tmp/chatkeys-db
security:
  api_keys:
    backend: [bk1]
    frontend: [fk1, fk2]
limits:
  max_key_bytes: 16KB
sweeper:
  enabled: true
  cron: "0 3 * * *"
  interval: 30m
  batch_size: 100
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:9090", cfg.Addr())
	require.Equal(t, "/tmp/chatkeys-db", cfg.Server.DBPath)
	require.Len(t, cfg.Security.APIKeys.Frontend, 2)
	require.Equal(t, int64(16000), cfg.Limits.MaxKeyBytes.Int64())
	require.True(t, cfg.Sweeper.Enabled)
	require.Equal(t, 30*time.Minute, cfg.Sweeper.Interval.Duration())
}

func TestAddrDefaults(t *testing.T) {
	var cfg Config
	require.Equal(t, "0.0.0.0:8080", cfg.Addr())
}

func TestSizeBytesForms(t *testing.T) {
	var s SizeBytes
	require.NoError(t, yaml.Unmarshal([]byte(`"4096"`), &s))
	require.Equal(t, int64(4096), s.Int64())

	require.NoError(t, yaml.Unmarshal([]byte(`"1MB"`), &s))
	require.Equal(t, int64(1000000), s.Int64())

	require.Error(t, yaml.Unmarshal([]byte(`"lots"`), &s))
}

func TestDurationForms(t *testing.T) {
	var d Duration
	require.NoError(t, yaml.Unmarshal([]byte(`"1500ms"`), &d))
	require.Equal(t, 1500*time.Millisecond, d.Duration())

	// bare numbers are seconds
	require.NoError(t, yaml.Unmarshal([]byte(`"2"`), &d))
	require.Equal(t, 2*time.Second, d.Duration())
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("CHATKEYS_ADDR", "10.0.0.1:7000")
	t.Setenv("CHATKEYS_DB_PATH", "/data/keys")
	t.Setenv("CHATKEYS_API_BACKEND_KEYS", "bk1, bk2")
	t.Setenv("CHATKEYS_API_FRONTEND_KEYS", "fk1")

	cfg := &Config{}
	backendKeys, signingKeys, envUsed := LoadEnvOverrides(cfg)
	require.True(t, envUsed)
	require.Equal(t, "10.0.0.1:7000", cfg.Addr())
	require.Equal(t, "/data/keys", cfg.Server.DBPath)
	require.Len(t, backendKeys, 2)
	// signing keys mirror backend keys
	require.Equal(t, backendKeys, signingKeys)
	require.Equal(t, []string{"fk1"}, cfg.Security.APIKeys.Frontend)
}

func TestRuntimeKeyAccessors(t *testing.T) {
	SetRuntime(&RuntimeConfig{
		BackendKeys: map[string]struct{}{"b": {}},
		SigningKeys: map[string]struct{}{"s": {}},
	})
	t.Cleanup(func() { SetRuntime(nil) })

	require.Contains(t, GetBackendKeys(), "b")
	require.Contains(t, GetSigningKeys(), "s")

	// returned maps are copies
	keys := GetSigningKeys()
	delete(keys, "s")
	require.Contains(t, GetSigningKeys(), "s")
}
