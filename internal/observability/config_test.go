package observability

import (
	"testing"

	"github.com/smallbiznis/gridsign/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestLoadConfigClampsSamplingRatio(t *testing.T) {
	t.Setenv("OTEL_SAMPLING_RATIO", "4")
	t.Setenv("OTEL_EXPORTER_OTLP_TRACES_PROTOCOL", "HTTP")

	cfg := LoadConfig(config.Config{AppName: "", Environment: "production", OTLPEndpoint: "collector:4317"})

	assert.Equal(t, "gridsign", cfg.ServiceName)
	assert.Equal(t, 1.0, cfg.OtelSamplingRatio)
	assert.Equal(t, "http", cfg.OtelExporterProtocol)
	assert.Equal(t, "collector:4317", cfg.OtelExporterEndpoint)
	assert.False(t, cfg.Debug())
}

func TestDebugForDevelopment(t *testing.T) {
	assert.True(t, Config{Environment: "development"}.Debug())
	assert.True(t, Config{Environment: "production", LogLevel: "DEBUG"}.Debug())
}
