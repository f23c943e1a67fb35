package config

import (
	"testing"
	"time"
)

func TestLoad_EnvOnlyDefaults(t *testing.T) {
	cfg, err := Load("does-not-exist.yaml", true)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if cfg.Server.HTTPAddr != ":8080" {
		t.Fatalf("http_addr=%q", cfg.Server.HTTPAddr)
	}
	if cfg.Outbox.MaxRetries != 5 {
		t.Fatalf("max_retries=%d want 5", cfg.Outbox.MaxRetries)
	}
	if cfg.Outbox.DispatchInterval != 5*time.Second {
		t.Fatalf("dispatch_interval=%v", cfg.Outbox.DispatchInterval)
	}
	if cfg.Resolver.MinReports != 3 {
		t.Fatalf("min_reports=%d want 3", cfg.Resolver.MinReports)
	}
	if cfg.Resolver.MaxSpread != 0.01 {
		t.Fatalf("max_spread=%v want 0.01", cfg.Resolver.MaxSpread)
	}
}

func TestLoad_MissingFileErrors(t *testing.T) {
	if _, err := Load("does-not-exist.yaml", false); err == nil {
		t.Fatalf("expected read error for missing config file")
	}
}
