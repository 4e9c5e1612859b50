package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"delivery-shift-report/internal/delivery"
	"delivery-shift-report/internal/report"
	"delivery-shift-report/internal/segment"
	"delivery-shift-report/internal/window"
)

// Config is the merged result of config.yaml, environment overrides and
// defaults.
type Config struct {
	CustomerMatch string `yaml:"customer_match"`
	Customer      string `yaml:"customer"`
	Hub           string `yaml:"hub"`

	WindowPolicy      string `yaml:"window_policy"`
	WindowStart       string `yaml:"window_start"`
	WindowEnd         string `yaml:"window_end"`
	WindowAnchorMonth int    `yaml:"window_anchor_month"`

	Scheme            string    `yaml:"scheme"`
	SchemeBounds      []float64 `yaml:"scheme_bounds"`
	SchemeLabels      []string  `yaml:"scheme_labels"`
	NegativeDurations string    `yaml:"negative_durations"`
	IncludeEmptyDays  bool      `yaml:"include_empty_days"`
	Tables            []string  `yaml:"tables"`
	Timezone          string    `yaml:"timezone"`

	DatabaseURL string `yaml:"database_url"`
	DBDriver    string `yaml:"db_driver"`
	DBSchema    string `yaml:"db_schema"`
	SQLitePath  string `yaml:"sqlite_path"`

	InfluxURL    string `yaml:"influx_url"`
	InfluxToken  string `yaml:"influx_token"`
	InfluxOrg    string `yaml:"influx_org"`
	InfluxBucket string `yaml:"influx_bucket"`

	KafkaBrokers []string `yaml:"kafka_brokers"`
	KafkaTopic   string   `yaml:"kafka_topic"`

	SlackBotToken  string `yaml:"slack_bot_token"`
	SlackChannelID string `yaml:"slack_channel_id"`

	Schedule string `yaml:"schedule"`

	Location *time.Location `yaml:"-"` // computed from Timezone
}

// Load reads path (if it exists), applies env overrides and defaults, then
// validates. An empty path falls back to CONFIG_PATH, then config.yaml.
func Load(path string) (Config, error) {
	var cfg Config

	if path == "" {
		path = "config.yaml"
		if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
			path = envPath
		}
	}
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
		log.Printf("Loaded config from %s", path)
	}

	envOverride(&cfg.CustomerMatch, "DELIVERY_REPORT_CUSTOMER_MATCH")
	envOverride(&cfg.Customer, "DELIVERY_REPORT_CUSTOMER")
	envOverride(&cfg.Hub, "DELIVERY_REPORT_HUB")
	envOverride(&cfg.WindowPolicy, "DELIVERY_REPORT_WINDOW")
	envOverride(&cfg.WindowStart, "DELIVERY_REPORT_WINDOW_START")
	envOverride(&cfg.WindowEnd, "DELIVERY_REPORT_WINDOW_END")
	envOverride(&cfg.Scheme, "DELIVERY_REPORT_SCHEME")
	envOverride(&cfg.NegativeDurations, "DELIVERY_REPORT_NEGATIVE_DURATIONS")
	envOverride(&cfg.Timezone, "DELIVERY_REPORT_TIMEZONE")
	envOverride(&cfg.DBDriver, "DELIVERY_REPORT_DB_DRIVER")
	envOverride(&cfg.DBSchema, "DELIVERY_REPORT_DB_SCHEMA")
	envOverride(&cfg.SQLitePath, "DELIVERY_REPORT_SQLITE_PATH")
	envOverride(&cfg.InfluxURL, "INFLUXDB_URL")
	envOverride(&cfg.InfluxToken, "INFLUX_TOKEN")
	envOverride(&cfg.InfluxOrg, "INFLUXDB_ORG")
	envOverride(&cfg.InfluxBucket, "INFLUXDB_BUCKET")
	envOverride(&cfg.KafkaTopic, "KAFKA_TOPIC")
	envOverride(&cfg.SlackBotToken, "SLACK_BOT_TOKEN")
	envOverride(&cfg.SlackChannelID, "SLACK_CHANNEL_ID")
	envOverride(&cfg.Schedule, "DELIVERY_REPORT_SCHEDULE")
	if err := envOverrideInt(&cfg.WindowAnchorMonth, "DELIVERY_REPORT_WINDOW_ANCHOR_MONTH"); err != nil {
		return Config{}, err
	}
	if err := envOverrideBool(&cfg.IncludeEmptyDays, "DELIVERY_REPORT_INCLUDE_EMPTY_DAYS"); err != nil {
		return Config{}, err
	}
	envOverrideList(&cfg.Tables, "DELIVERY_REPORT_TABLES")
	envOverrideList(&cfg.SchemeLabels, "DELIVERY_REPORT_SCHEME_LABELS")
	envOverrideList(&cfg.KafkaBrokers, "KAFKA_BROKERS")
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = dbURLFromEnv()
	}

	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.CustomerMatch == "" {
		cfg.CustomerMatch = string(segment.Contains)
	}
	if cfg.Customer == "" {
		cfg.Customer = "WESTSIDE"
	}
	if cfg.Hub == "" {
		cfg.Hub = "WD27"
	}
	if cfg.WindowPolicy == "" {
		cfg.WindowPolicy = string(window.Rolling)
	}
	if cfg.WindowStart == "" {
		cfg.WindowStart = "09-20"
	}
	if cfg.WindowEnd == "" {
		cfg.WindowEnd = "10-10"
	}
	if cfg.WindowAnchorMonth == 0 {
		cfg.WindowAnchorMonth = int(time.October)
	}
	if cfg.Scheme == "" {
		cfg.Scheme = "coarse"
	}
	if cfg.NegativeDurations == "" {
		cfg.NegativeDurations = string(delivery.PassThrough)
	}
	if cfg.Timezone == "" {
		cfg.Timezone = "Local"
	}
	if cfg.DBDriver == "" {
		cfg.DBDriver = "pgx"
	}
	if cfg.DBSchema == "" {
		cfg.DBSchema = "delivery_shift_report"
	}
	if cfg.SQLitePath == "" {
		cfg.SQLitePath = "./delivery-report.db"
	}
	if cfg.KafkaTopic == "" {
		cfg.KafkaTopic = "delivery-daily-rows"
	}
}

// Validate checks every enumerated value and resolves Location.
func (c *Config) Validate() error {
	if _, err := segment.ParseMatchMode(c.CustomerMatch); err != nil {
		return err
	}
	if strings.TrimSpace(c.Hub) == "" {
		return fmt.Errorf("hub is required")
	}
	if err := c.WindowPolicyValue().Validate(); err != nil {
		return err
	}
	if _, err := delivery.SchemeByName(c.Scheme, c.SchemeBounds, c.SchemeLabels); err != nil {
		return err
	}
	if _, err := delivery.ParseNegativePolicy(c.NegativeDurations); err != nil {
		return err
	}
	if _, err := report.ParseKinds(c.Tables); err != nil {
		return err
	}
	switch c.DBDriver {
	case "pgx", "sqlite3":
	default:
		return fmt.Errorf("db_driver must be 'pgx' or 'sqlite3', got '%s'", c.DBDriver)
	}

	if strings.EqualFold(c.Timezone, "Local") {
		c.Location = time.Local
	} else {
		loc, err := time.LoadLocation(c.Timezone)
		if err != nil {
			return fmt.Errorf("invalid timezone '%s': %w", c.Timezone, err)
		}
		c.Location = loc
	}
	return nil
}

// WindowPolicyValue converts the window keys into a window.Policy.
func (c Config) WindowPolicyValue() window.Policy {
	return window.Policy{
		Kind:          window.Kind(strings.ToLower(strings.TrimSpace(c.WindowPolicy))),
		StartMonthDay: c.WindowStart,
		EndMonthDay:   c.WindowEnd,
		AnchorMonth:   time.Month(c.WindowAnchorMonth),
	}
}

// ReportOptions builds the report options for a run on today. Call only on
// a validated Config.
func (c Config) ReportOptions(today time.Time) (report.Options, error) {
	mode, err := segment.ParseMatchMode(c.CustomerMatch)
	if err != nil {
		return report.Options{}, err
	}
	scheme, err := delivery.SchemeByName(c.Scheme, c.SchemeBounds, c.SchemeLabels)
	if err != nil {
		return report.Options{}, err
	}
	negative, err := delivery.ParseNegativePolicy(c.NegativeDurations)
	if err != nil {
		return report.Options{}, err
	}
	kinds, err := report.ParseKinds(c.Tables)
	if err != nil {
		return report.Options{}, err
	}
	return report.Options{
		Customer:         segment.CustomerRule{Mode: mode, Value: c.Customer},
		Hub:              c.Hub,
		Window:           c.WindowPolicyValue(),
		Scheme:           scheme,
		Negative:         negative,
		IncludeEmptyDays: c.IncludeEmptyDays,
		Tables:           kinds,
		Today:            today,
	}, nil
}

// DSN is the connection string for DBDriver.
func (c Config) DSN() string {
	if c.DBDriver == "sqlite3" {
		return c.SQLitePath
	}
	return c.DatabaseURL
}

// InfluxConfigured reports whether daily points should be written to InfluxDB.
func (c Config) InfluxConfigured() bool {
	return c.InfluxURL != "" && c.InfluxBucket != ""
}

// KafkaConfigured reports whether rows should be published to Kafka.
func (c Config) KafkaConfigured() bool {
	return len(c.KafkaBrokers) > 0 && c.KafkaTopic != ""
}

// SlackConfigured reports whether a summary should be posted to Slack.
func (c Config) SlackConfigured() bool {
	return c.SlackBotToken != "" && c.SlackChannelID != ""
}

func dbURLFromEnv() string {
	if value := strings.TrimSpace(os.Getenv("DELIVERY_REPORT_DB_URL")); value != "" {
		return value
	}
	return strings.TrimSpace(os.Getenv("DATABASE_URL"))
}

func envOverride(field *string, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		*field = val
	}
}

func envOverrideInt(field *int, envKey string) error {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("invalid %s '%s': %w", envKey, val, err)
		}
		*field = parsed
	}
	return nil
}

func envOverrideBool(field *bool, envKey string) error {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("invalid %s '%s': %w", envKey, val, err)
		}
		*field = parsed
	}
	return nil
}

func envOverrideList(field *[]string, envKey string) {
	val := os.Getenv(envKey)
	if val == "" {
		return
	}
	*field = nil
	for _, item := range strings.Split(val, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			*field = append(*field, item)
		}
	}
}
