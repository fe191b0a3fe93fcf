package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const sampleYAML = `
telegram:
  token: ${TEST_BOT_TOKEN}
gpt:
  apikey: sk-test
  model: gpt-4o
storage:
  driver: memory
scheduler:
  summarytime: "21:30"
  timezone: UTC
bot:
  restartdelay: 3s
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFrom_FileAndDefaults(t *testing.T) {
	t.Setenv("TEST_BOT_TOKEN", "123:abc")

	cfg, err := LoadFrom(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	require.Equal(t, "123:abc", cfg.Telegram.Token)
	require.Equal(t, "sk-test", cfg.GPT.APIKey)
	require.Equal(t, "gpt-4o", cfg.GPT.Model)
	require.Equal(t, StorageMemory, cfg.Storage.Driver)
	require.Equal(t, 3*time.Second, cfg.Bot.RestartDelay)
	require.Equal(t, "8080", cfg.Server.Port)
	require.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	require.NoError(t, cfg.Validate())

	hour, minute, err := cfg.Scheduler.Clock()
	require.NoError(t, err)
	require.Equal(t, 21, hour)
	require.Equal(t, 30, minute)
}

func TestLoadFrom_EnvOverrides(t *testing.T) {
	t.Setenv("TEST_BOT_TOKEN", "123:abc")
	t.Setenv("GPT_API_KEY", "sk-env")
	t.Setenv("SUMMARY_TIME", "07:15")

	cfg, err := LoadFrom(writeConfig(t, sampleYAML))
	require.NoError(t, err)
	require.Equal(t, "sk-env", cfg.GPT.APIKey)
	require.Equal(t, "07:15", cfg.Scheduler.SummaryTime)
}

func TestLoadFrom_MissingFile(t *testing.T) {
	_, err := LoadFrom(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		c := &Config{}
		c.Telegram.Token = "t"
		c.GPT.APIKey = "k"
		c.Storage.Driver = StoragePostgres
		c.Scheduler.SummaryTime = "22:00"
		c.Scheduler.Timezone = "UTC"
		return c
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"no token", func(c *Config) { c.Telegram.Token = "" }, true},
		{"no gpt key", func(c *Config) { c.GPT.APIKey = "" }, true},
		{"bad driver", func(c *Config) { c.Storage.Driver = "mongo" }, true},
		{"bad time", func(c *Config) { c.Scheduler.SummaryTime = "25:99" }, true},
		{"bad zone", func(c *Config) { c.Scheduler.Timezone = "Mars/Olympus" }, true},
		{"stripe without price", func(c *Config) { c.Stripe.SecretKey = "sk" }, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := valid()
			tc.mutate(c)
			err := c.Validate()
			if tc.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}
