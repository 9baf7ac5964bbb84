package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultTimezone = "UTC"

	ConfigPathEnv      = "SHORTS_PIPELINE_CONFIG"
	openAIAPIKeyEnv    = "OPENAI_API_KEY"
	openAIModelEnv     = "OPENAI_MODEL"
	openAIEndpointEnv  = "OPENAI_ENDPOINT"
	logLevelEnv        = "LOG_LEVEL"
	databaseDriverEnv  = "DATABASE_DRIVER"
	databaseDSNEnv     = "DATABASE_DSN"
	outputDirEnv       = "OUTPUT_DIR"
	dailyCountEnv      = "DAILY_SHORTS_COUNT"
	telegramTokenEnv   = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv  = "TELEGRAM_CHAT_ID"
	metricsTextfileEnv = "METRICS_TEXTFILE"
)

// Scanner names understood by the source registry.
const (
	ScannerGoogleNews = "google_news"
	ScannerNaverNews  = "naver_news"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging       LoggingConfig      `yaml:"logging"`
	LLM           LLMConfig          `yaml:"llm"`
	Pipeline      PipelineConfig     `yaml:"pipeline"`
	Sources       []SourceConfig     `yaml:"sources"`
	Storage       StorageConfig      `yaml:"storage"`
	Output        OutputConfig       `yaml:"output"`
	Notifications NotificationConfig `yaml:"notifications"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
	Metrics       MetricsConfig      `yaml:"metrics"`
}

// LoggingConfig selects the slog level and handler format ("text" or "json").
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// LLMConfig defines how to contact the chat completion API.
type LLMConfig struct {
	Endpoint       string `yaml:"endpoint"`
	Model          string `yaml:"model"`
	APIKey         string `yaml:"apiKey"`
	TimeoutSeconds int    `yaml:"timeoutSeconds"`
}

// PipelineConfig tunes selection and script generation.
type PipelineConfig struct {
	SelectionCount      int  `yaml:"selectionCount"`
	BatchTimeoutSeconds int  `yaml:"batchTimeoutSeconds"`
	ScriptConcurrency   int  `yaml:"scriptConcurrency"`
	SourceConcurrency   int  `yaml:"sourceConcurrency"`
	SkipProcessed       bool `yaml:"skipProcessed"`
}

// BatchTimeout converts BatchTimeoutSeconds; zero means no batch deadline.
func (p PipelineConfig) BatchTimeout() time.Duration {
	if p.BatchTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(p.BatchTimeoutSeconds) * time.Second
}

// SourceConfig describes one news source entry and the scanner strategy behind it.
type SourceConfig struct {
	Name    string            `yaml:"name"`
	Scanner string            `yaml:"scanner"`
	Query   string            `yaml:"query"`
	Limit   int               `yaml:"limit"`
	BaseURL string            `yaml:"baseUrl"`
	Options map[string]string `yaml:"options"`
}

// StorageConfig selects the history database. An empty driver disables history.
type StorageConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// OutputConfig points at the artifact directory.
type OutputConfig struct {
	Dir string `yaml:"dir"`
}

// NotificationConfig encapsulates outbound channels (Telegram, etc.).
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// Enabled reports whether both token and chat are set.
func (t TelegramConfig) Enabled() bool {
	return t.BotToken != "" && t.ChatID != ""
}

// SchedulerConfig defines how often the daemon runs the pipeline.
type SchedulerConfig struct {
	IntervalHours int            `yaml:"intervalHours"`
	Timezone      string         `yaml:"timezone"`
	location      *time.Location `yaml:"-"`
}

// Interval converts IntervalHours, defaulting to one day.
func (s SchedulerConfig) Interval() time.Duration {
	if s.IntervalHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(s.IntervalHours) * time.Hour
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, err := time.LoadLocation(defaultTimezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// MetricsConfig points at an optional node-exporter textfile.
type MetricsConfig struct {
	Textfile string `yaml:"textfile"`
}

// Load reads .env and YAML configuration (if present) and applies environment overrides.
// path falls back to the SHORTS_PIPELINE_CONFIG variable when empty.
func Load(path, envFile string) Config {
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("config: cannot load %s: %v", envFile, err)
	}

	cfg := defaultConfig()

	if path == "" {
		path = os.Getenv(ConfigPathEnv)
	}
	if path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()

	if len(cfg.Sources) == 0 {
		cfg.Sources = defaultConfig().Sources
	}

	return cfg
}

// Validate reports settings the pipeline cannot run without.
func (c Config) Validate() error {
	var problems []string
	if c.LLM.APIKey == "" {
		problems = append(problems, "llm.apiKey is empty (set "+openAIAPIKeyEnv+")")
	}
	if c.LLM.Model == "" {
		problems = append(problems, "llm.model is empty")
	}
	if c.Pipeline.SelectionCount <= 0 {
		problems = append(problems, "pipeline.selectionCount must be positive")
	}
	switch c.Storage.Driver {
	case "", "sqlite", "postgres":
	default:
		problems = append(problems, fmt.Sprintf("storage.driver %q is not supported", c.Storage.Driver))
	}
	for _, src := range c.Sources {
		if src.Limit <= 0 {
			problems = append(problems, fmt.Sprintf("source %s: limit must be positive", src.Name))
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(openAIAPIKeyEnv); v != "" {
		c.LLM.APIKey = v
	}
	if v := os.Getenv(openAIModelEnv); v != "" {
		c.LLM.Model = v
	}
	if v := os.Getenv(openAIEndpointEnv); v != "" {
		c.LLM.Endpoint = v
	}
	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv(databaseDriverEnv); v != "" {
		c.Storage.Driver = v
	}
	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Storage.DSN = v
	}
	if v := os.Getenv(outputDirEnv); v != "" {
		c.Output.Dir = v
	}
	if v := os.Getenv(dailyCountEnv); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Pipeline.SelectionCount = n
		} else {
			log.Printf("config: ignoring %s=%q: %v", dailyCountEnv, v, err)
		}
	}
	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}
	if v := os.Getenv(telegramChatIDEnv); v != "" {
		c.Notifications.Telegram.ChatID = v
	}
	if v := os.Getenv(metricsTextfileEnv); v != "" {
		c.Metrics.Textfile = v
	}
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	c.Scheduler.location = loc
}

func mergeConfig(base, override Config) Config {
	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}
	if override.Logging.Format != "" {
		base.Logging.Format = override.Logging.Format
	}

	if override.LLM.Endpoint != "" {
		base.LLM.Endpoint = override.LLM.Endpoint
	}
	if override.LLM.Model != "" {
		base.LLM.Model = override.LLM.Model
	}
	if override.LLM.APIKey != "" {
		base.LLM.APIKey = override.LLM.APIKey
	}
	if override.LLM.TimeoutSeconds > 0 {
		base.LLM.TimeoutSeconds = override.LLM.TimeoutSeconds
	}

	if override.Pipeline.SelectionCount > 0 {
		base.Pipeline.SelectionCount = override.Pipeline.SelectionCount
	}
	if override.Pipeline.BatchTimeoutSeconds > 0 {
		base.Pipeline.BatchTimeoutSeconds = override.Pipeline.BatchTimeoutSeconds
	}
	if override.Pipeline.ScriptConcurrency > 0 {
		base.Pipeline.ScriptConcurrency = override.Pipeline.ScriptConcurrency
	}
	if override.Pipeline.SourceConcurrency > 0 {
		base.Pipeline.SourceConcurrency = override.Pipeline.SourceConcurrency
	}
	if override.Pipeline.SkipProcessed {
		base.Pipeline.SkipProcessed = true
	}

	if len(override.Sources) > 0 {
		base.Sources = override.Sources
	}

	if override.Storage.Driver != "" {
		base.Storage = override.Storage
	}

	if override.Output.Dir != "" {
		base.Output.Dir = override.Output.Dir
	}

	if override.Notifications.Telegram.BotToken != "" {
		base.Notifications.Telegram.BotToken = override.Notifications.Telegram.BotToken
	}
	if override.Notifications.Telegram.ChatID != "" {
		base.Notifications.Telegram.ChatID = override.Notifications.Telegram.ChatID
	}

	if override.Scheduler.IntervalHours > 0 {
		base.Scheduler.IntervalHours = override.Scheduler.IntervalHours
	}
	if override.Scheduler.Timezone != "" {
		base.Scheduler.Timezone = override.Scheduler.Timezone
	}

	if override.Metrics.Textfile != "" {
		base.Metrics.Textfile = override.Metrics.Textfile
	}

	return base
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		Logging: LoggingConfig{Level: "info", Format: "text"},
		LLM: LLMConfig{
			Endpoint:       "https://api.openai.com/v1/chat/completions",
			Model:          "gpt-4o-mini",
			TimeoutSeconds: 60,
		},
		Pipeline: PipelineConfig{
			SelectionCount:    3,
			ScriptConcurrency: 1,
			SourceConcurrency: 2,
		},
		Sources: []SourceConfig{
			{
				Name:    "google-news",
				Scanner: ScannerGoogleNews,
				Limit:   10,
				Options: map[string]string{"language": "ko", "country": "KR"},
			},
			{
				Name:    "naver-it",
				Scanner: ScannerNaverNews,
				Limit:   10,
			},
		},
		Storage:   StorageConfig{Driver: "sqlite", DSN: "output/history.db"},
		Output:    OutputConfig{Dir: "output"},
		Scheduler: SchedulerConfig{IntervalHours: 24, Timezone: defaultTimezone, location: tz},
	}
}
