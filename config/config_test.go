package config

import (
	"os"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestLoad_Defaults(t *testing.T) {
	viper.Reset()
	_ = os.Unsetenv("PORT")
	_ = os.Unsetenv("ENABLE_REAL_CALLS")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("expected default port 8080, got %s", cfg.Server.Port)
	}
	if cfg.Routing.EnableRealCalls {
		t.Error("expected real calls disabled by default")
	}
	if cfg.Routing.BreakerCooldown != 30*time.Second {
		t.Errorf("expected 30s breaker cooldown, got %s", cfg.Routing.BreakerCooldown)
	}
	if cfg.Log.Format != "json" {
		t.Errorf("expected json log format, got %s", cfg.Log.Format)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	viper.Reset()
	_ = os.Setenv("PORT", "9090")
	_ = os.Setenv("ENABLE_REAL_CALLS", "true")
	defer func() {
		_ = os.Unsetenv("PORT")
		_ = os.Unsetenv("ENABLE_REAL_CALLS")
	}()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Server.Port != "9090" {
		t.Errorf("expected port 9090, got %s", cfg.Server.Port)
	}
	if !cfg.Routing.EnableRealCalls {
		t.Error("expected real calls enabled")
	}
}
