package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileGivesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "none.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3671, cfg.Sender.GatewayPort)
	assert.Equal(t, "tunnel", cfg.Sender.ConnectionType)
	assert.Equal(t, 115200, cfg.Reader.Baud)
	assert.Equal(t, "GBK", cfg.Reader.Encoding)
	assert.Equal(t, path, cfg.Path())
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	data := []byte("sender:\n  gateway_ip: 10.0.0.7\nreader:\n  baud: 9600\n")
	require.NoError(t, os.WriteFile(path, data, 0600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.7", cfg.Sender.GatewayIP)
	assert.Equal(t, 3671, cfg.Sender.GatewayPort)
	assert.Equal(t, 9600, cfg.Reader.Baud)
	assert.Equal(t, "nfc_data.csv", cfg.Reader.LogFile)
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	require.NoError(t, os.WriteFile(path, []byte("sender: [\n"), 0600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	cfg, err := Load(path)
	require.NoError(t, err)

	cfg.Sender.GroupAddress = "1/2/3"
	cfg.Reader.Port = "/dev/ttyUSB0"
	require.NoError(t, cfg.Save())

	again, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "1/2/3", again.Sender.GroupAddress)
	assert.Equal(t, "/dev/ttyUSB0", again.Reader.Port)
}
