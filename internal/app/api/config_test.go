package api

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetViper(t *testing.T) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
}

func TestLoadConfig_Defaults(t *testing.T) {
	resetViper(t)
	for _, key := range configKeys {
		t.Setenv(key, "")
	}

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "@every 5m", cfg.AlertSchedule)
	assert.True(t, cfg.AlertsEnabled)
	assert.Equal(t, 24*time.Hour, cfg.DedupWindows().Warning)
	assert.Equal(t, time.Hour, cfg.DedupWindows().Breach)
	assert.Equal(t, "remittance_events", cfg.RealtimeChannel)
	assert.Empty(t, cfg.OTLPEndpoint)
	assert.True(t, cfg.OTLPInsecure)
	assert.Equal(t, 1.0, cfg.TraceSampleRatio)

	sla, err := cfg.ProofSLA()
	require.NoError(t, err)
	assert.False(t, sla.Enabled())
}

func TestLoadConfig_ReadsEnvironment(t *testing.T) {
	resetViper(t)
	t.Setenv("PORT", "9090")
	t.Setenv("POSTGRES_DSN", " postgres://remesas@localhost/remesas ")
	t.Setenv("TEMPORAL_DISABLED", "true")
	t.Setenv("ALERT_SCHEDULE", "*/10 * * * *")
	t.Setenv("ALERT_WARNING_DEDUP", "12h")
	t.Setenv("AWAITING_VALIDATION_SLA", "2h, 6h")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "otel-collector:4318")
	t.Setenv("TRACE_SAMPLE_RATIO", "0.25")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "postgres://remesas@localhost/remesas", cfg.PostgresDSN)
	assert.True(t, cfg.TemporalDisabled)
	assert.Equal(t, 12*time.Hour, cfg.AlertWarningDedup)
	assert.Equal(t, "s3cret", cfg.JWTSecret)
	assert.Equal(t, "otel-collector:4318", cfg.OTLPEndpoint)
	assert.Equal(t, 0.25, cfg.TraceSampleRatio)

	sla, err := cfg.ValidationSLA()
	require.NoError(t, err)
	assert.Equal(t, 2*time.Hour, sla.Warning)
	assert.Equal(t, 6*time.Hour, sla.Breach)
}

func TestLoadConfig_RejectsInvalidValues(t *testing.T) {
	tests := map[string]string{
		"ALERT_SCHEDULE":     "every now and then",
		"AWAITING_PROOF_SLA": "24h",
		"TRACE_SAMPLE_RATIO": "1.5",
	}
	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			resetViper(t)
			t.Setenv(key, value)
			_, err := LoadConfig()
			require.Error(t, err)
			assert.Contains(t, err.Error(), key)
		})
	}

	t.Run("inverted sla", func(t *testing.T) {
		resetViper(t)
		t.Setenv("AWAITING_PROOF_SLA", "6h,2h")
		_, err := LoadConfig()
		require.Error(t, err)
	})
}
