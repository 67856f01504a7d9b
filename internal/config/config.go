package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port            int
	BackendURL      string
	ViewSecret      string
	GinMode         string
	TLSCertFile     string
	TLSKeyFile      string
	TokenExpiry     time.Duration
	NotificationTTL time.Duration
	AutoLoginDelay  time.Duration
	ActivityRefresh time.Duration
}

type Env interface {
	Getenv(key string) string
}

type osEnv struct{}

func (osEnv) Getenv(key string) string { return os.Getenv(key) }

// LoadConfig reads the process environment, layered over CONFIG_FILE when it
// is set.
func LoadConfig() (Config, error) {
	var env Env = osEnv{}
	if path := env.Getenv("CONFIG_FILE"); path != "" {
		file, err := LoadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("load %s: %w", path, err)
		}
		env = Layered(env, file)
	}
	return LoadConfigFromEnv(env)
}

func LoadConfigFromEnv(env Env) (Config, error) {
	cfg := Config{
		Port:            8080,
		BackendURL:      "http://127.0.0.1:5000",
		GinMode:         "release",
		TokenExpiry:     24 * time.Hour,
		NotificationTTL: 5 * time.Second,
		AutoLoginDelay:  3 * time.Second,
		ActivityRefresh: 60 * time.Second,
	}

	if raw := env.Getenv("PORT"); raw != "" {
		port, err := strconv.Atoi(raw)
		if err != nil || port <= 0 || port > 65535 {
			return Config{}, fmt.Errorf("invalid PORT")
		}
		cfg.Port = port
	}

	if raw := env.Getenv("BACKEND_URL"); raw != "" {
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return Config{}, fmt.Errorf("invalid BACKEND_URL")
		}
		cfg.BackendURL = raw
	}

	cfg.ViewSecret = env.Getenv("VIEW_SECRET")
	if cfg.ViewSecret == "" {
		return Config{}, fmt.Errorf("VIEW_SECRET is required")
	}

	if raw := env.Getenv("GIN_MODE"); raw != "" {
		cfg.GinMode = raw
	}

	cfg.TLSCertFile = env.Getenv("TLS_CERT_FILE")
	cfg.TLSKeyFile = env.Getenv("TLS_KEY_FILE")

	durations := []struct {
		key  string
		unit time.Duration
		dst  *time.Duration
	}{
		{"TOKEN_EXPIRY_SECONDS", time.Second, &cfg.TokenExpiry},
		{"NOTIFICATION_TTL_MS", time.Millisecond, &cfg.NotificationTTL},
		{"AUTO_LOGIN_DELAY_MS", time.Millisecond, &cfg.AutoLoginDelay},
		{"ACTIVITY_REFRESH_SECONDS", time.Second, &cfg.ActivityRefresh},
	}
	for _, d := range durations {
		raw := env.Getenv(d.key)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return Config{}, fmt.Errorf("invalid %s", d.key)
		}
		*d.dst = time.Duration(n) * d.unit
	}

	return cfg, nil
}
