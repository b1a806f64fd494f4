package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Config is shared by every binary; each main only reads the fields it needs.
type Config struct {
	Port  string
	Store string

	PostgresURL    string
	MigrationsPath string

	KafkaBrokers []string
	KafkaTopic   string
	KafkaGroupID string

	AdminID       string
	AdminPassword string

	SimulatorEnabled   bool
	SimulatorInterval  time.Duration
	SimulatorBatchSize int

	CreateTimeout time.Duration

	MailRelayURL string

	TracingEnabled bool
	LogLevel       slog.Level
}

func Load() (Config, error) {
	cfg := Config{
		Port:               getEnv("PORT", "8081"),
		Store:              getEnv("STORE", StorePostgres),
		PostgresURL:        getEnv("POSTGRES_URL", ""),
		MigrationsPath:     getEnv("MIGRATIONS_PATH", "file://migrations"),
		KafkaBrokers:       splitCSV(getEnv("KAFKA_BROKERS", "")),
		KafkaTopic:         getEnv("KAFKA_TOPIC", "order.lifecycle"),
		KafkaGroupID:       getEnv("KAFKA_GROUP_ID", "order-notifier"),
		AdminID:            getEnv("ADMIN_ID", "admin"),
		AdminPassword:      getEnv("ADMIN_PASSWORD", "admin123"),
		SimulatorEnabled:   true,
		SimulatorInterval:  15 * time.Second,
		SimulatorBatchSize: 5,
		CreateTimeout:      10 * time.Second,
		MailRelayURL:       getEnv("MAIL_RELAY_URL", ""),
	}

	var err error
	if cfg.SimulatorEnabled, err = getEnvBool("SIMULATOR_ENABLED", cfg.SimulatorEnabled); err != nil {
		return Config{}, fmt.Errorf("invalid SIMULATOR_ENABLED: %w", err)
	}
	if cfg.TracingEnabled, err = getEnvBool("TRACING_ENABLED", false); err != nil {
		return Config{}, fmt.Errorf("invalid TRACING_ENABLED: %w", err)
	}

	if cfg.SimulatorInterval, err = getEnvDuration("SIMULATOR_INTERVAL", cfg.SimulatorInterval); err != nil {
		return Config{}, fmt.Errorf("invalid SIMULATOR_INTERVAL: %w", err)
	}
	if cfg.SimulatorInterval <= 0 {
		return Config{}, fmt.Errorf("SIMULATOR_INTERVAL must be > 0")
	}

	if cfg.SimulatorBatchSize, err = getEnvInt("SIMULATOR_BATCH_SIZE", cfg.SimulatorBatchSize); err != nil {
		return Config{}, fmt.Errorf("invalid SIMULATOR_BATCH_SIZE: %w", err)
	}
	if cfg.SimulatorBatchSize <= 0 {
		return Config{}, fmt.Errorf("SIMULATOR_BATCH_SIZE must be > 0")
	}

	if cfg.CreateTimeout, err = getEnvDuration("CREATE_TIMEOUT", cfg.CreateTimeout); err != nil {
		return Config{}, fmt.Errorf("invalid CREATE_TIMEOUT: %w", err)
	}
	if cfg.CreateTimeout <= 0 {
		return Config{}, fmt.Errorf("CREATE_TIMEOUT must be > 0")
	}

	if err := cfg.LogLevel.UnmarshalText([]byte(getEnv("LOG_LEVEL", "INFO"))); err != nil {
		return Config{}, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}

	switch cfg.Store {
	case StorePostgres:
		if cfg.PostgresURL == "" {
			return Config{}, fmt.Errorf("POSTGRES_URL is required when STORE=%s", StorePostgres)
		}
	case StoreMemory:
	default:
		return Config{}, fmt.Errorf("unknown STORE %q", cfg.Store)
	}

	if cfg.AdminID == "" || cfg.AdminPassword == "" {
		return Config{}, fmt.Errorf("ADMIN_ID and ADMIN_PASSWORD must not be empty")
	}

	return cfg, nil
}

// KafkaEnabled reports whether lifecycle events should be relayed to Kafka.
func (c Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0 && c.KafkaTopic != ""
}

func getEnv(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func getEnvInt(key string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}

func getEnvBool(key string, fallback bool) (bool, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	return strconv.ParseBool(v)
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	return time.ParseDuration(v)
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		s := strings.TrimSpace(p)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
