package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func resetViper() {
	viper.Reset()
}

func writeDefaultConfig(t *testing.T, dir string) {
	t.Helper()
	content := []byte(`
identity:
  admin_key_path: /etc/ng/admin.key
  peer_key_path: /etc/ng/peer.key
network:
  bind_address: 127.0.0.1
storage:
  backend: badger
  data_dir: /var/lib/ng
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "default.yaml"), content, 0o644))
}

func TestLoadAppliesSpecDefaultPorts(t *testing.T) {
	resetViper()
	dir := t.TempDir()
	writeDefaultConfig(t, dir)

	cwd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	defer os.Chdir(cwd)

	viper.AddConfigPath(".")
	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, 80, cfg.Network.PublicPort)
	require.Equal(t, 443, cfg.Network.TLSPort)
	require.Equal(t, 14400, cfg.Network.LocalDevPort)
	require.Equal(t, "127.0.0.1", cfg.Network.BindAddress)
	require.Equal(t, "badger", cfg.Storage.Backend)
	require.Equal(t, "/etc/ng/admin.key", cfg.Identity.AdminKeyPath)
}

func TestLoadFromEnvUsesNGEnvVar(t *testing.T) {
	resetViper()
	dir := t.TempDir()
	writeDefaultConfig(t, dir)

	cwd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	defer os.Chdir(cwd)

	viper.AddConfigPath(".")
	os.Setenv("NG_ENV", "")
	defer os.Unsetenv("NG_ENV")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1", cfg.Network.BindAddress)
}
