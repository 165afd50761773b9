package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Addr           string
	DatabaseURL    string
	LogLevel       string
	LogDevelopment bool

	CalendarURL      string
	InjectionsURL    string
	ModulesURL       string
	NotificationsURL string
	AnimalsURL       string
	AdapterTimeout   time.Duration
	AdapterRetries   int

	ActionTimeout   time.Duration
	BulkConcurrency int

	KafkaBrokers           []string
	KafkaNotificationTopic string

	ArchiveBucket string
	ArchivePrefix string

	AnimalCacheTTL time.Duration
}

const (
	EnvPrefix = "CLINICAL_HUB"

	defaultAddr            = ":8070"
	defaultLogLevel        = "info"
	defaultAdapterTimeout  = 5 * time.Second
	defaultAdapterRetries  = 2
	defaultBulkConcurrency = 4
	defaultKafkaTopic      = "clinical.notifications"
	defaultArchivePrefix   = "clinical-hub"
	defaultAnimalCacheTTL  = 10 * time.Minute
)

// SetDefaults registers defaults and binds CLINICAL_HUB_* environment
// variables. Flag "database-url" is read from CLINICAL_HUB_DATABASE_URL.
func SetDefaults(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("addr", defaultAddr)
	v.SetDefault("log-level", defaultLogLevel)
	v.SetDefault("log-development", false)
	v.SetDefault("adapter-timeout", defaultAdapterTimeout)
	v.SetDefault("adapter-retries", defaultAdapterRetries)
	v.SetDefault("action-timeout", time.Duration(0))
	v.SetDefault("bulk-concurrency", defaultBulkConcurrency)
	v.SetDefault("kafka-notification-topic", defaultKafkaTopic)
	v.SetDefault("archive-prefix", defaultArchivePrefix)
	v.SetDefault("animal-cache-ttl", defaultAnimalCacheTTL)
}

func Load(v *viper.Viper) (Config, error) {
	SetDefaults(v)
	cfg := Config{
		Addr:                   v.GetString("addr"),
		DatabaseURL:            firstNonEmpty(v.GetString("database-url"), os.Getenv("DATABASE_URL")),
		LogLevel:               v.GetString("log-level"),
		LogDevelopment:         v.GetBool("log-development"),
		CalendarURL:            v.GetString("calendar-url"),
		InjectionsURL:          v.GetString("injections-url"),
		ModulesURL:             v.GetString("modules-url"),
		NotificationsURL:       v.GetString("notifications-url"),
		AnimalsURL:             v.GetString("animals-url"),
		AdapterTimeout:         v.GetDuration("adapter-timeout"),
		AdapterRetries:         v.GetInt("adapter-retries"),
		ActionTimeout:          v.GetDuration("action-timeout"),
		BulkConcurrency:        v.GetInt("bulk-concurrency"),
		KafkaBrokers:           splitList(v.GetString("kafka-brokers")),
		KafkaNotificationTopic: v.GetString("kafka-notification-topic"),
		ArchiveBucket:          v.GetString("archive-bucket"),
		ArchivePrefix:          v.GetString("archive-prefix"),
		AnimalCacheTTL:         v.GetDuration("animal-cache-ttl"),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("addr required")
	}
	if c.BulkConcurrency < 1 {
		return fmt.Errorf("bulk-concurrency must be at least 1, got %d", c.BulkConcurrency)
	}
	if c.AdapterRetries < 0 {
		return fmt.Errorf("adapter-retries must not be negative")
	}
	if c.ActionTimeout < 0 || c.AdapterTimeout < 0 {
		return fmt.Errorf("timeouts must not be negative")
	}
	if len(c.KafkaBrokers) > 0 && c.KafkaNotificationTopic == "" {
		return fmt.Errorf("%s_KAFKA_NOTIFICATION_TOPIC required when kafka brokers are set", EnvPrefix)
	}
	return nil
}

// splitList accepts "a,b, c" and drops empty entries.
func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
