package util

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigFromFile(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
log_level: debug
mmap_threshold: 64MiB
parallel: true
workers: 3
top_n: 25
dedupe: true
db_driver: pgx
`), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.Parallel)
	assert.Equal(t, 3, cfg.Workers)
	assert.Equal(t, 25, cfg.TopN)
	assert.True(t, cfg.Dedupe)
	assert.Equal(t, "pgx", cfg.DBDriver)
	assert.Equal(t, 8080, cfg.WebPort)

	n, err := cfg.MmapThresholdBytes()
	require.NoError(t, err)
	assert.Equal(t, int64(64<<20), n)
}

func TestLoadConfigFromEnv(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	t.Setenv("TATTLETALE_TOP_N", "5")
	t.Setenv("TATTLETALE_MMAP_THRESHOLD", "0")

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("top_n: 20\n"), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.TopN)

	n, err := cfg.MmapThresholdBytes()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestMmapThresholdBytes(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{in: "", want: 0},
		{in: "0", want: 0},
		{in: "4096", want: 4096},
		{in: "16MiB", want: 16 << 20},
		{in: "1 GB", want: 1000 * 1000 * 1000},
		{in: "lots", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			cfg := &Config{MmapThreshold: tt.in}
			got, err := cfg.MmapThresholdBytes()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadConfigRejectsBadThreshold(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("mmap_threshold: huge\n"), 0o644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 10, cfg.TopN)
	assert.Equal(t, "sqlite3", cfg.DBDriver)
	assert.Positive(t, cfg.Workers)

	n, err := cfg.MmapThresholdBytes()
	require.NoError(t, err)
	assert.Equal(t, int64(16<<20), n)
}

func TestDatabaseDSNAndWebAddr(t *testing.T) {
	cfg := &Config{DataDir: "/var/lib/tattletale", WebHost: "127.0.0.1", WebPort: 9090}
	assert.Equal(t, filepath.Join("/var/lib/tattletale", "tattletale.db"), cfg.DatabaseDSN())
	assert.Equal(t, "127.0.0.1:9090", cfg.WebAddr())

	cfg.DBDSN = "postgres://audit@localhost/tattletale"
	assert.Equal(t, "postgres://audit@localhost/tattletale", cfg.DatabaseDSN())
}
