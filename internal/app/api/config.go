package api

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
	"go.temporal.io/sdk/client"

	"github.com/remesas/remittance-api/internal/domains/remittances/adapters/realtime"
	"github.com/remesas/remittance-api/internal/domains/remittances/application"
	"github.com/remesas/remittance-api/internal/domains/remittances/domain"
)

// Config carries environment-driven settings shared by every process of the service.
type Config struct {
	Port                  string        `mapstructure:"PORT"`
	Environment           string        `mapstructure:"ENVIRONMENT"`
	LogLevel              string        `mapstructure:"LOG_LEVEL"`
	PostgresDSN           string        `mapstructure:"POSTGRES_DSN"`
	TemporalAddress       string        `mapstructure:"TEMPORAL_ADDRESS"`
	TemporalNamespace     string        `mapstructure:"TEMPORAL_NAMESPACE"`
	TemporalDisabled      bool          `mapstructure:"TEMPORAL_DISABLED"`
	RabbitMQURL           string        `mapstructure:"RABBITMQ_URL"`
	RedisURL              string        `mapstructure:"REDIS_URL"`
	JWTSecret             string        `mapstructure:"JWT_SECRET"`
	JWTIssuer             string        `mapstructure:"JWT_ISSUER"`
	AlertsEnabled         bool          `mapstructure:"ALERTS_ENABLED"`
	AlertSchedule         string        `mapstructure:"ALERT_SCHEDULE"`
	AlertWarningDedup     time.Duration `mapstructure:"ALERT_WARNING_DEDUP"`
	AlertBreachDedup      time.Duration `mapstructure:"ALERT_BREACH_DEDUP"`
	AwaitingProofSLA      string        `mapstructure:"AWAITING_PROOF_SLA"`
	AwaitingValidationSLA string        `mapstructure:"AWAITING_VALIDATION_SLA"`
	RealtimeChannel       string        `mapstructure:"REALTIME_CHANNEL"`
	ProofBucket           string        `mapstructure:"PROOF_BUCKET"`
	GCSServiceAccountFile string        `mapstructure:"GCS_SERVICE_ACCOUNT_FILE"`
	OTLPEndpoint          string        `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTLPInsecure          bool          `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`
	TraceSampleRatio      float64       `mapstructure:"TRACE_SAMPLE_RATIO"`
}

var configKeys = []string{
	"PORT", "ENVIRONMENT", "LOG_LEVEL", "POSTGRES_DSN",
	"TEMPORAL_ADDRESS", "TEMPORAL_NAMESPACE", "TEMPORAL_DISABLED",
	"RABBITMQ_URL", "REDIS_URL", "JWT_SECRET", "JWT_ISSUER",
	"ALERTS_ENABLED", "ALERT_SCHEDULE", "ALERT_WARNING_DEDUP", "ALERT_BREACH_DEDUP",
	"AWAITING_PROOF_SLA", "AWAITING_VALIDATION_SLA",
	"REALTIME_CHANNEL", "PROOF_BUCKET", "GCS_SERVICE_ACCOUNT_FILE",
	"OTEL_EXPORTER_OTLP_ENDPOINT", "OTEL_EXPORTER_OTLP_INSECURE", "TRACE_SAMPLE_RATIO",
}

// LoadConfig reads environment variables, applies defaults, and validates basic constraints.
func LoadConfig() (Config, error) {
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("ENVIRONMENT", "local")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("TEMPORAL_ADDRESS", client.DefaultHostPort)
	viper.SetDefault("TEMPORAL_NAMESPACE", client.DefaultNamespace)
	viper.SetDefault("TEMPORAL_DISABLED", false)
	viper.SetDefault("ALERTS_ENABLED", true)
	viper.SetDefault("ALERT_SCHEDULE", application.DefaultAlertSchedule)
	viper.SetDefault("ALERT_WARNING_DEDUP", application.DefaultDedupWindows.Warning.String())
	viper.SetDefault("ALERT_BREACH_DEDUP", application.DefaultDedupWindows.Breach.String())
	viper.SetDefault("REALTIME_CHANNEL", realtime.DefaultChannel)
	viper.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", true)
	viper.SetDefault("TRACE_SAMPLE_RATIO", 1.0)
	viper.AutomaticEnv()
	for _, key := range configKeys {
		_ = viper.BindEnv(key)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.PostgresDSN = strings.TrimSpace(cfg.PostgresDSN)
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if _, err := cron.ParseStandard(c.AlertSchedule); err != nil {
		return fmt.Errorf("ALERT_SCHEDULE: %w", err)
	}
	if c.AlertWarningDedup <= 0 || c.AlertBreachDedup <= 0 {
		return errors.New("ALERT_WARNING_DEDUP and ALERT_BREACH_DEDUP must be positive durations")
	}
	if c.TraceSampleRatio < 0 || c.TraceSampleRatio > 1 {
		return fmt.Errorf("TRACE_SAMPLE_RATIO must be between 0 and 1, got %v", c.TraceSampleRatio)
	}
	if _, err := c.ProofSLA(); err != nil {
		return err
	}
	if _, err := c.ValidationSLA(); err != nil {
		return err
	}
	return nil
}

// DedupWindows returns the configured re-emission windows.
func (c Config) DedupWindows() application.DedupWindows {
	return application.DedupWindows{Warning: c.AlertWarningDedup, Breach: c.AlertBreachDedup}
}

// ProofSLA parses AWAITING_PROOF_SLA ("warning,breach", e.g. "12h,24h"). Empty disables it.
func (c Config) ProofSLA() (domain.SLA, error) {
	sla, err := parseSLA(c.AwaitingProofSLA)
	if err != nil {
		return domain.SLA{}, fmt.Errorf("AWAITING_PROOF_SLA: %w", err)
	}
	return sla, nil
}

// ValidationSLA parses AWAITING_VALIDATION_SLA with the same format as ProofSLA.
func (c Config) ValidationSLA() (domain.SLA, error) {
	sla, err := parseSLA(c.AwaitingValidationSLA)
	if err != nil {
		return domain.SLA{}, fmt.Errorf("AWAITING_VALIDATION_SLA: %w", err)
	}
	return sla, nil
}

func parseSLA(raw string) (domain.SLA, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return domain.SLA{}, nil
	}
	warningRaw, breachRaw, found := strings.Cut(raw, ",")
	if !found {
		return domain.SLA{}, errors.New("expected warning,breach durations")
	}
	warning, err := time.ParseDuration(strings.TrimSpace(warningRaw))
	if err != nil {
		return domain.SLA{}, err
	}
	breach, err := time.ParseDuration(strings.TrimSpace(breachRaw))
	if err != nil {
		return domain.SLA{}, err
	}
	if warning <= 0 || breach < warning {
		return domain.SLA{}, errors.New("durations must satisfy 0 < warning <= breach")
	}
	return domain.SLA{Warning: warning, Breach: breach}, nil
}
