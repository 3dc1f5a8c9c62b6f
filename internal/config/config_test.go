package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/danmuck/mkvroute/internal/ebml"
	"github.com/danmuck/mkvroute/internal/testutil/testlog"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadProbeConfigDefaultsAndOverrides(t *testing.T) {
	testlog.Start(t)
	path := writeConfig(t, `
log_level = "debug"
skip_unknown_masters = false
metrics_addr = "127.0.0.1:9102"
cors_origins = [" http://localhost:3000/ ", ""]
`)
	cfg, err := LoadProbeConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("unexpected log level: %q", cfg.LogLevel)
	}
	if cfg.SkipUnknownMasters {
		t.Fatalf("expected skip_unknown_masters override")
	}
	if cfg.MaxPayloadBytes != ebml.DefaultLimits().MaxPayloadBytes {
		t.Fatalf("undefined key must keep default, got %d", cfg.MaxPayloadBytes)
	}
	if cfg.MetricsAddr != "127.0.0.1:9102" {
		t.Fatalf("unexpected metrics addr: %q", cfg.MetricsAddr)
	}
	if len(cfg.CorsOrigins) != 1 || cfg.CorsOrigins[0] != "http://localhost:3000" {
		t.Fatalf("unexpected cors origins: %v", cfg.CorsOrigins)
	}
	if cfg.ReportJSON {
		t.Fatalf("report_json should default false")
	}
}

func TestLoadProbeConfigRejects(t *testing.T) {
	testlog.Start(t)
	cases := []struct {
		name    string
		content string
		want    string
	}{
		{name: "unknown key", content: `verbose = true`, want: "unknown key"},
		{name: "bad level", content: `log_level = "loud"`, want: "log_level"},
		{name: "zero payload", content: `max_payload_bytes = 0`, want: "max_payload_bytes"},
		{name: "bad addr", content: `metrics_addr = "9102"`, want: "metrics_addr"},
		{name: "bad origin", content: `cors_origins = ["localhost"]`, want: "cors_origins[0]"},
		{name: "syntax", content: `log_level = `, want: "config load failed"},
	}
	for _, tc := range cases {
		_, err := LoadProbeConfig(writeConfig(t, tc.content))
		if err == nil || !strings.Contains(err.Error(), tc.want) {
			t.Fatalf("%s: expected error containing %q, got %v", tc.name, tc.want, err)
		}
	}
}

func TestTemplateRoundTrips(t *testing.T) {
	testlog.Start(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := WriteTemplate(path, false); err != nil {
		t.Fatalf("write template: %v", err)
	}
	if err := WriteTemplate(path, false); err == nil {
		t.Fatalf("expected refusal to overwrite")
	}
	if err := WriteTemplate(path, true); err != nil {
		t.Fatalf("forced overwrite: %v", err)
	}

	cfg, err := LoadProbeConfig(path)
	if err != nil {
		t.Fatalf("load template: %v", err)
	}
	def := DefaultProbeConfig()
	if cfg.LogLevel != def.LogLevel || cfg.MaxPayloadBytes != def.MaxPayloadBytes || cfg.SkipUnknownMasters != def.SkipUnknownMasters {
		t.Fatalf("template does not reproduce defaults: %+v", cfg)
	}
	if cfg.Limits().MaxPayloadBytes != def.MaxPayloadBytes {
		t.Fatalf("limits conversion: %+v", cfg.Limits())
	}
}
