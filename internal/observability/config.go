package observability

import (
	"strings"

	"github.com/smallbiznis/storeline/internal/config"
)

type Config struct {
	ServiceName string
	Environment string
	Version     string

	LogLevel  string
	LogFormat string

	OtelEnabled          bool
	OtelExporterEndpoint string
	OtelExporterProtocol string
	OtelSamplingRatio    float64
}

// LoadConfig derives observability settings from the application config.
func LoadConfig(cfg config.Config) Config {
	serviceName := strings.TrimSpace(cfg.AppName)
	if serviceName == "" {
		serviceName = "storeline"
	}

	obs := cfg.Observability
	protocol := obs.OtelProtocol
	if protocol != "http" {
		protocol = "grpc"
	}

	return Config{
		ServiceName:          serviceName,
		Environment:          strings.TrimSpace(cfg.Environment),
		Version:              strings.TrimSpace(cfg.AppVersion),
		LogLevel:             obs.LogLevel,
		LogFormat:            obs.LogFormat,
		OtelEnabled:          obs.OtelEnabled,
		OtelExporterEndpoint: strings.TrimSpace(cfg.OTLPEndpoint),
		OtelExporterProtocol: protocol,
		OtelSamplingRatio:    obs.OtelSamplingRatio,
	}
}

// Debug reports whether request logs and gin run in verbose mode.
func (c Config) Debug() bool {
	if strings.EqualFold(strings.TrimSpace(c.LogLevel), "debug") {
		return true
	}
	switch strings.ToLower(strings.TrimSpace(c.Environment)) {
	case "dev", "development", "local", "test":
		return true
	}
	return false
}
