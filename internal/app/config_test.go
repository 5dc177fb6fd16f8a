package app_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meshchat/internal/app"
)

func TestLoadConfig_Defaults(t *testing.T) {
	home := t.TempDir()
	cfg, err := app.LoadConfig(home, "")
	require.NoError(t, err)

	def := app.DefaultConfig()
	def.Home = home
	assert.Equal(t, def, *cfg)
	assert.Equal(t, time.Second, cfg.Reconcile.Interval)
	assert.Equal(t, "PopManBot", cfg.Bot.Name)
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	home := t.TempDir()
	yaml := "nickname: carol\n" +
		"location: u4pruy\n" +
		"reconcile:\n  interval: 250ms\n  concurrency: 2\n" +
		"bot:\n  name: FileBot\n" +
		"sim:\n  peers: [dave]\n"
	require.NoError(t, os.WriteFile(filepath.Join(home, app.ConfigFilename), []byte(yaml), 0o600))
	t.Setenv("MESHCHAT_BOT_NAME", "EnvBot")

	cfg, err := app.LoadConfig(home, "")
	require.NoError(t, err)
	assert.Equal(t, "carol", cfg.Nickname)
	assert.Equal(t, "u4pruy", cfg.Location)
	assert.Equal(t, 250*time.Millisecond, cfg.Reconcile.Interval)
	assert.Equal(t, 2, cfg.Reconcile.Concurrency)
	assert.Equal(t, "EnvBot", cfg.Bot.Name)
	assert.Equal(t, []string{"dave"}, cfg.Sim.Peers)
	assert.Equal(t, home, cfg.Home)
}

func TestLoadConfig_Invalid(t *testing.T) {
	for name, body := range map[string]string{
		"location":    "location: not-a-geohash\n",
		"interval":    "reconcile:\n  interval: 0s\n",
		"concurrency": "reconcile:\n  concurrency: 0\n",
		"log level":   "log:\n  level: loud\n",
	} {
		t.Run(name, func(t *testing.T) {
			file := filepath.Join(t.TempDir(), "custom.yaml")
			require.NoError(t, os.WriteFile(file, []byte(body), 0o600))
			_, err := app.LoadConfig(t.TempDir(), file)
			assert.Error(t, err)
		})
	}
}

func TestWriteConfig_RoundTrip(t *testing.T) {
	home := t.TempDir()
	cfg := app.DefaultConfig()
	cfg.Home = home
	cfg.Nickname = "erin"
	cfg.Figlet.Timeout = 3 * time.Second
	cfg.Metrics.Addr = "127.0.0.1:9464"

	path := filepath.Join(home, app.ConfigFilename)
	require.NoError(t, app.WriteConfig(path, cfg))

	got, err := app.LoadConfig(home, "")
	require.NoError(t, err)
	assert.Equal(t, cfg, *got)
}
