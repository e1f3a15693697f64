package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"HOST", "PORT", "SQLITE_DB_PATH", "TASCAM_HOST", "TASCAM_MAC",
		"TASCAM_PORT", "AUDIT_ENABLED", "AUDIT_RETENTION_DAYS",
		"POWER_ON_CRON", "POWER_OFF_CRON", "CONFIG_FILE",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("TASCAM_HOST", "192.168.1.50")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Host)
	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, "./data/tascam-hub.db", cfg.SQLiteDBPath)
	assert.Equal(t, "192.168.1.50", cfg.TascamHost)
	assert.Equal(t, 9030, cfg.TascamPort)
	assert.True(t, cfg.AuditEnabled)
	assert.Equal(t, 90, cfg.AuditRetentionDays)
	assert.Empty(t, cfg.PowerOnCron)
}

func TestLoad_RequiresPlayerHost(t *testing.T) {
	clearEnv(t)

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TASCAM_HOST")
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("TASCAM_HOST", "10.0.0.5")
	t.Setenv("TASCAM_MAC", "00:11:22:33:44:55")
	t.Setenv("TASCAM_PORT", "9031")
	t.Setenv("AUDIT_ENABLED", "false")
	t.Setenv("POWER_ON_CRON", "0 18 * * *")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "00:11:22:33:44:55", cfg.TascamMAC)
	assert.Equal(t, 9031, cfg.TascamPort)
	assert.False(t, cfg.AuditEnabled)
	assert.Equal(t, "0 18 * * *", cfg.PowerOnCron)
}

func TestLoad_PortRangeValidated(t *testing.T) {
	clearEnv(t)
	t.Setenv("TASCAM_HOST", "10.0.0.5")
	t.Setenv("TASCAM_PORT", "70000")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TASCAM_PORT")
}

func TestLoad_FileOverlay(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "hub.yaml")
	content := `
tascam_host: 172.16.0.9
tascam_mac: aa:bb:cc:dd:ee:ff
port: "9100"
audit_enabled: false
power_off_cron: "30 23 * * *"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	t.Setenv("CONFIG_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "172.16.0.9", cfg.TascamHost)
	assert.Equal(t, "aa:bb:cc:dd:ee:ff", cfg.TascamMAC)
	assert.Equal(t, "9100", cfg.Port)
	assert.False(t, cfg.AuditEnabled)
	assert.Equal(t, "30 23 * * *", cfg.PowerOffCron)
}

func TestLoad_EnvironmentBeatsFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "hub.yaml")
	require.NoError(t, os.WriteFile(path, []byte("tascam_host: 172.16.0.9\nport: \"9100\"\n"), 0o644))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("TASCAM_HOST", "10.9.9.9")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "10.9.9.9", cfg.TascamHost)
	assert.Equal(t, "9100", cfg.Port)
}

func TestLoad_BadFileRejected(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "hub.yaml")
	require.NoError(t, os.WriteFile(path, []byte(":\n  - not yaml"), 0o644))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("TASCAM_HOST", "10.0.0.5")

	_, err := Load()
	require.Error(t, err)
}
