package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	// Clear env vars that could interfere with default values. Setting to
	// empty string is sufficient: the override checks use != "".
	for _, key := range []string{
		"PARLEY_PORT",
		"PARLEY_BIND",
		"PARLEY_DATA_DIR",
		"PARLEY_JWT_SECRET",
		"PARLEY_MODEL",
		"PARLEY_GENERATE_TIMEOUT",
		"PARLEY_ECHO_SELF",
		"PARLEY_SEND_BUFFER",
		"PARLEY_ALLOWED_ORIGINS",
		"OPENROUTER_API_KEY",
	} {
		t.Setenv(key, "")
	}

	cfg := Load()

	if cfg.Port != 8880 {
		t.Errorf("expected default port 8880, got %d", cfg.Port)
	}
	if cfg.BindAddress != "127.0.0.1" {
		t.Errorf("expected default bind address 127.0.0.1, got %s", cfg.BindAddress)
	}
	if cfg.GenerateTimeout != 2*time.Minute {
		t.Errorf("expected default generate timeout 2m, got %v", cfg.GenerateTimeout)
	}
	if !cfg.EchoSelf {
		t.Error("expected EchoSelf to default to true")
	}
	if cfg.SendBuffer != 64 {
		t.Errorf("expected default send buffer 64, got %d", cfg.SendBuffer)
	}
	if cfg.DataDir == "" {
		t.Error("expected DataDir to be non-empty")
	}
}

func TestLoadPortOverride(t *testing.T) {
	t.Setenv("PARLEY_PORT", "9090")

	cfg := Load()

	if cfg.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Port)
	}
}

func TestLoadInvalidPortFallsBackToDefault(t *testing.T) {
	t.Setenv("PARLEY_PORT", "not-a-number")

	cfg := Load()

	if cfg.Port != 8880 {
		t.Errorf("expected default port 8880 for invalid port, got %d", cfg.Port)
	}
}

func TestLoadGenerateTimeoutOverride(t *testing.T) {
	t.Setenv("PARLEY_GENERATE_TIMEOUT", "45s")

	cfg := Load()

	if cfg.GenerateTimeout != 45*time.Second {
		t.Errorf("expected generate timeout 45s, got %v", cfg.GenerateTimeout)
	}
}

func TestLoadInvalidGenerateTimeoutFallsBack(t *testing.T) {
	t.Setenv("PARLEY_GENERATE_TIMEOUT", "whenever")

	cfg := Load()

	if cfg.GenerateTimeout != 2*time.Minute {
		t.Errorf("expected default generate timeout 2m, got %v", cfg.GenerateTimeout)
	}
}

func TestLoadEchoSelfDisabled(t *testing.T) {
	t.Setenv("PARLEY_ECHO_SELF", "false")

	cfg := Load()

	if cfg.EchoSelf {
		t.Error("expected EchoSelf false")
	}
}

func TestLoadSendBufferOverride(t *testing.T) {
	t.Setenv("PARLEY_SEND_BUFFER", "128")

	cfg := Load()

	if cfg.SendBuffer != 128 {
		t.Errorf("expected send buffer 128, got %d", cfg.SendBuffer)
	}
}

func TestLoadSendBufferRejectsNonPositive(t *testing.T) {
	t.Setenv("PARLEY_SEND_BUFFER", "0")

	cfg := Load()

	if cfg.SendBuffer != 64 {
		t.Errorf("expected default send buffer 64, got %d", cfg.SendBuffer)
	}
}

func TestLoadAllowedOrigins(t *testing.T) {
	t.Setenv("PARLEY_ALLOWED_ORIGINS", "http://localhost:3000, https://chat.example.com")

	cfg := Load()

	if len(cfg.AllowedOrigins) != 2 {
		t.Fatalf("expected 2 allowed origins, got %d", len(cfg.AllowedOrigins))
	}
	if cfg.AllowedOrigins[1] != "https://chat.example.com" {
		t.Errorf("expected trimmed origin, got %q", cfg.AllowedOrigins[1])
	}
}

func TestLoadJWTSecretOverride(t *testing.T) {
	t.Setenv("PARLEY_JWT_SECRET", "my-secret-key")

	cfg := Load()

	if cfg.JWTSecret != "my-secret-key" {
		t.Errorf("expected JWT secret my-secret-key, got %s", cfg.JWTSecret)
	}
}

func TestLoadDataDirOverride(t *testing.T) {
	t.Setenv("PARLEY_DATA_DIR", "/tmp/parley-test-data")

	cfg := Load()

	if cfg.DataDir != "/tmp/parley-test-data" {
		t.Errorf("expected data dir /tmp/parley-test-data, got %s", cfg.DataDir)
	}
}
