package config

import (
	"testing"
	"time"

	"github.com/uclfantasy/squad-optimizer/internal/platform/logging"
)

func TestLoad_AppEnvValidation(t *testing.T) {
	t.Setenv("APP_ENV", "invalid")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for invalid APP_ENV")
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Fatalf("unexpected HTTPAddr: %q", cfg.HTTPAddr)
	}
	if cfg.SolveTimeout != 30*time.Second {
		t.Fatalf("unexpected SolveTimeout: %s", cfg.SolveTimeout)
	}
	if cfg.DBEnabled {
		t.Fatalf("expected DBEnabled=false by default")
	}
	if cfg.FeedBaseURL == "" {
		t.Fatalf("expected a default feed base URL")
	}
	if cfg.LogLevel != logging.LevelInfo {
		t.Fatalf("unexpected LogLevel: %s", cfg.LogLevel)
	}
}

func TestLoad_DBRequiresURLWhenEnabled(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("DB_ENABLED", "true")
	t.Setenv("DB_URL", "")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error when DB_ENABLED=true without DB_URL")
	}
}

func TestLoad_UptraceRequiresDSNWhenEnabled(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("UPTRACE_ENABLED", "true")
	t.Setenv("UPTRACE_DSN", "")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error when UPTRACE_ENABLED=true without UPTRACE_DSN")
	}
}

func TestLoad_FeedCircuitParsing(t *testing.T) {
	t.Setenv("APP_ENV", EnvStage)
	t.Setenv("FEED_CIRCUIT_FAILURE_COUNT", "3")
	t.Setenv("FEED_CIRCUIT_OPEN_TIMEOUT", "45s")
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.FeedCircuitFailureCount != 3 {
		t.Fatalf("unexpected FeedCircuitFailureCount: %d", cfg.FeedCircuitFailureCount)
	}
	if cfg.FeedCircuitOpenTimeout != 45*time.Second {
		t.Fatalf("unexpected FeedCircuitOpenTimeout: %s", cfg.FeedCircuitOpenTimeout)
	}
	if cfg.LogLevel != logging.LevelWarn {
		t.Fatalf("unexpected LogLevel: %s", cfg.LogLevel)
	}
}

func TestLoad_RejectsBadSolverTimeout(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("SOLVER_TIMEOUT", "0s")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error for SOLVER_TIMEOUT=0s")
	}
}
