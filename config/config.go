// config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

type Telegram struct {
	Token string
	Debug bool
	// APIEndpoint overrides the Bot API URL format; empty means api.telegram.org.
	APIEndpoint string
}

type Database struct {
	Host         string
	Port         string
	User         string
	Password     string
	DBName       string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	ConnLifetime time.Duration
}

type Stripe struct {
	SecretKey  string
	WebhookKey string
	PriceID    string
	SuccessURL string
	CancelURL  string
}

type GPT struct {
	APIKey      string
	Model       string
	VisionModel string
	MaxTokens   int
}

type Scheduler struct {
	// SummaryTime is the local HH:MM at which the daily broadcast runs.
	SummaryTime string
	Timezone    string
	SendRate    float64
	SendBurst   int
}

type Config struct {
	Telegram Telegram
	DB       Database
	Storage  struct {
		Driver string
	}
	Stripe   Stripe
	GPT      GPT
	Donation struct {
		URL string
	}
	Scheduler Scheduler
	Server    struct {
		Port string
	}
	Bot struct {
		RestartDelay time.Duration
		Workers      int
	}
	Log struct {
		Level       string
		Development bool
	}
	ShutdownTimeout time.Duration
}

// explicit env names for keys whose automatic name would be awkward
var envAliases = map[string][]string{
	"gpt.apikey":            {"GPT_API_KEY", "OPENAI_API_KEY"},
	"telegram.apiendpoint":  {"TELEGRAM_API_ENDPOINT"},
	"gpt.visionmodel":       {"GPT_VISION_MODEL"},
	"gpt.maxtokens":         {"GPT_MAX_TOKENS"},
	"db.dbname":             {"DB_NAME"},
	"db.sslmode":            {"DB_SSL_MODE"},
	"stripe.secretkey":      {"STRIPE_SECRET_KEY"},
	"stripe.webhookkey":     {"STRIPE_WEBHOOK_KEY"},
	"stripe.priceid":        {"STRIPE_PRICE_ID"},
	"stripe.successurl":     {"STRIPE_SUCCESS_URL"},
	"stripe.cancelurl":      {"STRIPE_CANCEL_URL"},
	"scheduler.summarytime": {"SUMMARY_TIME"},
	"scheduler.timezone":    {"TZ_NAME", "SCHEDULER_TIMEZONE"},
	"server.port":           {"SERVER_PORT", "PORT"},
	"bot.restartdelay":      {"BOT_RESTART_DELAY"},
	"log.level":             {"LOG_LEVEL"},
	"storage.driver":        {"STORAGE_DRIVER"},
	"donation.url":          {"DONATION_URL"},
}

var defaults = map[string]interface{}{
	"telegram.token":        "",
	"telegram.debug":        false,
	"telegram.apiendpoint":  "",
	"db.host":               "localhost",
	"db.port":               "5432",
	"db.user":               "postgres",
	"db.password":           "postgres",
	"db.dbname":             "calorie_bot",
	"db.sslmode":            "disable",
	"db.maxopenconns":       20,
	"db.maxidleconns":       2,
	"db.connlifetime":       5 * time.Minute,
	"storage.driver":        StoragePostgres,
	"stripe.secretkey":      "",
	"stripe.webhookkey":     "",
	"stripe.priceid":        "",
	"stripe.successurl":     "",
	"stripe.cancelurl":      "",
	"gpt.apikey":            "",
	"gpt.model":             "gpt-4o-mini",
	"gpt.visionmodel":       "gpt-4o-mini",
	"gpt.maxtokens":         600,
	"donation.url":          "",
	"scheduler.summarytime": "22:00",
	"scheduler.timezone":    "Local",
	"scheduler.sendrate":    25.0,
	"scheduler.sendburst":   1,
	"server.port":           "8080",
	"bot.restartdelay":      10 * time.Second,
	"bot.workers":           8,
	"log.level":             "info",
	"log.development":       false,
	"shutdowntimeout":       10 * time.Second,
}

// Load reads config.yaml/config.json from the usual locations, then applies
// environment overrides. A missing config file is not an error.
func Load() (*Config, error) {
	return LoadFrom("")
}

// LoadFrom is Load with an explicit config file; an empty path searches the
// default locations.
func LoadFrom(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("$HOME/.calorie-bot")
	}

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, names := range envAliases {
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	// Process any ${ENV_VAR} syntax in the config values
	for _, key := range v.AllKeys() {
		value, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.HasPrefix(value, "${") && strings.HasSuffix(value, "}") {
			envVar := strings.TrimPrefix(strings.TrimSuffix(value, "}"), "${")
			if envValue := os.Getenv(envVar); envValue != "" {
				v.Set(key, envValue)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &cfg, nil
}

// Validate reports the first missing or malformed critical setting.
func (c *Config) Validate() error {
	if c.Telegram.Token == "" {
		return errors.New("telegram token is not configured")
	}
	if c.GPT.APIKey == "" {
		return errors.New("GPT API key is not configured")
	}
	switch c.Storage.Driver {
	case StoragePostgres, StorageMemory:
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if _, _, err := c.Scheduler.Clock(); err != nil {
		return err
	}
	if _, err := c.Scheduler.Location(); err != nil {
		return err
	}
	if c.Stripe.SecretKey != "" && c.Stripe.PriceID == "" {
		return errors.New("stripe price id is required when stripe is enabled")
	}
	return nil
}

// Clock parses SummaryTime into hour and minute.
func (s Scheduler) Clock() (int, int, error) {
	t, err := time.Parse("15:04", s.SummaryTime)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid summary time %q: %w", s.SummaryTime, err)
	}
	return t.Hour(), t.Minute(), nil
}

func (s Scheduler) Location() (*time.Location, error) {
	if s.Timezone == "" || s.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", s.Timezone, err)
	}
	return loc, nil
}
