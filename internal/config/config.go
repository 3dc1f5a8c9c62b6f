package config

import (
	"fmt"
	"net"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/mkvroute/internal/ebml"
	"github.com/danmuck/mkvroute/internal/logging"
)

const DefaultPath = "cmd/mkvprobe/config.toml"

// ProbeConfig is the mkvprobe runtime configuration.
type ProbeConfig struct {
	LogLevel           string   `toml:"log_level"`
	MaxPayloadBytes    uint64   `toml:"max_payload_bytes"`
	SkipUnknownMasters bool     `toml:"skip_unknown_masters"`
	MetricsAddr        string   `toml:"metrics_addr"`
	CorsOrigins        []string `toml:"cors_origins"`
	ReportJSON         bool     `toml:"report_json"`
}

func DefaultProbeConfig() ProbeConfig {
	return ProbeConfig{
		LogLevel:           "info",
		MaxPayloadBytes:    ebml.DefaultLimits().MaxPayloadBytes,
		SkipUnknownMasters: true,
		CorsOrigins:        []string{},
	}
}

// Limits converts the payload cap into reader limits.
func (c ProbeConfig) Limits() ebml.Limits {
	return ebml.Limits{MaxPayloadBytes: c.MaxPayloadBytes}
}

// LoadProbeConfig overlays the keys present in path onto the defaults.
func LoadProbeConfig(path string) (ProbeConfig, error) {
	cfg := DefaultProbeConfig()

	var raw ProbeConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return ProbeConfig{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return ProbeConfig{}, fmt.Errorf("config parse failed (%s): unknown key %q", path, undecoded[0].String())
	}

	if meta.IsDefined("log_level") {
		cfg.LogLevel = strings.TrimSpace(raw.LogLevel)
	}
	if meta.IsDefined("max_payload_bytes") {
		cfg.MaxPayloadBytes = raw.MaxPayloadBytes
	}
	if meta.IsDefined("skip_unknown_masters") {
		cfg.SkipUnknownMasters = raw.SkipUnknownMasters
	}
	if meta.IsDefined("metrics_addr") {
		cfg.MetricsAddr = strings.TrimSpace(raw.MetricsAddr)
	}
	if meta.IsDefined("cors_origins") {
		cfg.CorsOrigins = normalizeOrigins(raw.CorsOrigins)
	}
	if meta.IsDefined("report_json") {
		cfg.ReportJSON = raw.ReportJSON
	}

	if err := ValidateProbeConfig(cfg); err != nil {
		return ProbeConfig{}, err
	}
	return cfg, nil
}

func ValidateProbeConfig(cfg ProbeConfig) error {
	if _, ok := logging.ParseLevel(cfg.LogLevel); !ok {
		return fmt.Errorf("probe config invalid log_level %q", cfg.LogLevel)
	}
	if cfg.MaxPayloadBytes == 0 {
		return fmt.Errorf("probe config max_payload_bytes must be positive")
	}
	if cfg.MetricsAddr != "" {
		if _, _, err := net.SplitHostPort(cfg.MetricsAddr); err != nil {
			return fmt.Errorf("probe config metrics_addr %q: %w", cfg.MetricsAddr, err)
		}
	}
	for i, origin := range cfg.CorsOrigins {
		if origin != "*" && !strings.HasPrefix(origin, "http://") && !strings.HasPrefix(origin, "https://") {
			return fmt.Errorf("cors_origins[%d] %q must be * or an http(s) origin", i, origin)
		}
	}
	return nil
}

func normalizeOrigins(in []string) []string {
	out := make([]string, 0, len(in))
	for _, origin := range in {
		v := strings.TrimRight(strings.TrimSpace(origin), "/")
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}
