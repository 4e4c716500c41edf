package cli

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vvka-141/pgdock/internal/config"
	"github.com/vvka-141/pgdock/pkg/pgdock"
)

// setFlags applies flag values for one test and restores defaults after.
func setFlags(t *testing.T, flags map[string]string) {
	t.Helper()
	// Cobra merges persistent flags into Flags() only during command
	// execution; resolveConfig reads cmd.Flags(), so replicate the merge
	// here since these tests call it without executing the command.
	rootCmd.Flags().AddFlagSet(rootCmd.PersistentFlags())
	for name, value := range flags {
		require.NoError(t, rootCmd.PersistentFlags().Set(name, value))
	}
	t.Cleanup(func() {
		for name := range flags {
			f := rootCmd.PersistentFlags().Lookup(name)
			require.NoError(t, rootCmd.PersistentFlags().Set(name, f.DefValue))
		}
	})
}

// clearPGEnv blanks the PG* variables so an ambient environment cannot
// leak into resolution tests.
func clearPGEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"PGHOST", "PGPORT", "PGUSER", "PGPASSWORD", "PGDATABASE", "PGSSLMODE"} {
		t.Setenv(key, "")
	}
}

func TestResolveConfigDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	clearPGEnv(t)

	cfg, err := resolveConfig(rootCmd)
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.Host)
	assert.Equal(t, uint16(5432), cfg.Port)
	assert.Equal(t, "postgres", cfg.User)
	assert.Equal(t, "postgres", cfg.Database)
	assert.Equal(t, pgdock.DefaultPoolSize, cfg.PoolSize)
}

func TestResolveConfigFlagsOverrideFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(dir+"/"+config.ConfigFileName, []byte("host: filehost\nport: 5433\npool_size: 7\n"), 0o644))
	t.Chdir(dir)
	clearPGEnv(t)

	setFlags(t, map[string]string{
		"host":              "flaghost",
		"statement-timeout": "45",
	})

	cfg, err := resolveConfig(rootCmd)
	require.NoError(t, err)

	assert.Equal(t, "flaghost", cfg.Host, "flag beats file")
	assert.Equal(t, uint16(5433), cfg.Port, "file value survives where no flag overrides")
	assert.Equal(t, 7, cfg.PoolSize)
	assert.Equal(t, 45*time.Second, cfg.StatementTimeout)
}

func TestResolveConfigURLKeepsPoolSettings(t *testing.T) {
	t.Chdir(t.TempDir())
	clearPGEnv(t)

	setFlags(t, map[string]string{
		"url":       "postgresql://u:p@urlhost:5434/urldb",
		"pool-size": "3",
	})

	cfg, err := resolveConfig(rootCmd)
	require.NoError(t, err)

	assert.Equal(t, "urlhost", cfg.Host)
	assert.Equal(t, uint16(5434), cfg.Port)
	assert.Equal(t, "urldb", cfg.Database)
	assert.Equal(t, 3, cfg.PoolSize, "pool size comes from the flag, not the URL")
}

func TestResolveConfigEnvBeatsFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(dir+"/"+config.ConfigFileName, []byte("host: filehost\n"), 0o644))
	t.Chdir(dir)
	clearPGEnv(t)
	t.Setenv("PGHOST", "envhost")

	cfg, err := resolveConfig(rootCmd)
	require.NoError(t, err)
	assert.Equal(t, "envhost", cfg.Host)
}

func TestResolveConfigRejectsBadPort(t *testing.T) {
	t.Chdir(t.TempDir())
	setFlags(t, map[string]string{"port": "70000"})

	_, err := resolveConfig(rootCmd)
	assert.ErrorIs(t, err, pgdock.ErrConfig)
}
