package observability

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"":        slog.LevelInfo,
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"verbose": slog.LevelInfo,
	}
	for raw, want := range tests {
		assert.Equal(t, want, ParseLevel(raw), raw)
	}
}

func TestInstruments_NilSafe(t *testing.T) {
	var instruments *Instruments
	assert.NotNil(t, instruments.Tracer("test"))
	assert.NotNil(t, instruments.Meter("test"))
}

func TestNewSpanExporter_SelectsSink(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name     string
		settings Settings
		wantSink string
		wantNil  bool
	}{
		{"collector configured", Settings{Environment: "production", TraceEndpoint: "otel-collector:4318", TraceInsecure: true}, "otlp:otel-collector:4318", false},
		{"local without collector", Settings{Environment: "local"}, "stdout", false},
		{"deployed without collector", Settings{Environment: "staging"}, "none", true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			settings := tc.settings
			settings.Output = io.Discard
			exporter, sink, err := newSpanExporter(ctx, settings.withDefaults())
			require.NoError(t, err)
			assert.Equal(t, tc.wantSink, sink)
			assert.Equal(t, tc.wantNil, exporter == nil)
			if exporter != nil {
				require.NoError(t, exporter.Shutdown(ctx))
			}
		})
	}
}

func TestInit_WritesLogsToOutput(t *testing.T) {
	var buf bytes.Buffer
	instruments, shutdown, err := Init(context.Background(), Settings{ServiceName: "remittance-api-test", Environment: "staging", LogLevel: "debug", Output: &buf})
	require.NoError(t, err)
	defer func() { require.NoError(t, shutdown(context.Background())) }()

	instruments.Logger.Debug("order created")
	assert.Contains(t, buf.String(), `"msg":"order created"`)
	assert.Contains(t, buf.String(), `"service":"remittance-api-test"`)
	assert.Contains(t, buf.String(), `"sink":"none"`)
}
