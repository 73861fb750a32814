package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port        int
	BindAddress string
	DataDir     string
	JWTSecret   string

	// Generation client
	OpenRouterKey   string
	Model           string
	GenerateTimeout time.Duration

	// Hub delivery policy
	EchoSelf   bool // deliver a sender's own broadcasts back to it
	SendBuffer int  // per-connection outbound queue depth

	AllowedOrigins []string
}

func Load() *Config {
	cfg := &Config{
		Port:            8880,
		BindAddress:     "127.0.0.1",
		DataDir:         resolveDataDir(),
		JWTSecret:       getEnv("PARLEY_JWT_SECRET", ""),
		OpenRouterKey:   getEnv("OPENROUTER_API_KEY", ""),
		Model:           getEnv("PARLEY_MODEL", "openai/gpt-4o"),
		GenerateTimeout: 2 * time.Minute,
		EchoSelf:        true,
		SendBuffer:      64,
	}

	if p := getEnv("PARLEY_PORT", ""); p != "" {
		if port, err := strconv.Atoi(p); err == nil {
			cfg.Port = port
		}
	}
	if b := getEnv("PARLEY_BIND", ""); b != "" {
		cfg.BindAddress = b
	}
	if d := getEnv("PARLEY_DATA_DIR", ""); d != "" {
		cfg.DataDir = d
	}
	if t := getEnv("PARLEY_GENERATE_TIMEOUT", ""); t != "" {
		if dur, err := time.ParseDuration(t); err == nil && dur > 0 {
			cfg.GenerateTimeout = dur
		}
	}
	if e := getEnv("PARLEY_ECHO_SELF", ""); e != "" {
		cfg.EchoSelf = e == "true"
	}
	if s := getEnv("PARLEY_SEND_BUFFER", ""); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			cfg.SendBuffer = n
		}
	}
	if o := getEnv("PARLEY_ALLOWED_ORIGINS", ""); o != "" {
		for _, origin := range strings.Split(o, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, origin)
			}
		}
	}

	return cfg
}

func resolveDataDir() string {
	// Resolve data dir relative to the executable, not the CWD
	exe, err := os.Executable()
	if err != nil {
		return "./data"
	}
	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return "./data"
	}
	return filepath.Join(filepath.Dir(exe), "data")
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}
