package config

import (
	"os"
	"strconv"

	"gopkg.in/yaml.v2"
)

// File mirrors the environment variables for deployments that prefer a
// config file. Zero values are treated as unset.
type File struct {
	Port                   int    `yaml:"port"`
	BackendURL             string `yaml:"backend_url"`
	ViewSecret             string `yaml:"view_secret"`
	GinMode                string `yaml:"gin_mode"`
	TLSCertFile            string `yaml:"tls_cert_file"`
	TLSKeyFile             string `yaml:"tls_key_file"`
	TokenExpirySeconds     int    `yaml:"token_expiry_seconds"`
	NotificationTTLMS      int    `yaml:"notification_ttl_ms"`
	AutoLoginDelayMS       int    `yaml:"auto_login_delay_ms"`
	ActivityRefreshSeconds int    `yaml:"activity_refresh_seconds"`
}

func LoadFile(filename string) (File, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return File{}, err
	}
	return ParseFile(data)
}

func ParseFile(data []byte) (File, error) {
	var f File
	if err := yaml.UnmarshalStrict(data, &f); err != nil {
		return File{}, err
	}
	return f, nil
}

func (f File) values() map[string]string {
	out := map[string]string{}
	set := func(key, value string) {
		if value != "" {
			out[key] = value
		}
	}
	setInt := func(key string, value int) {
		if value != 0 {
			out[key] = strconv.Itoa(value)
		}
	}
	setInt("PORT", f.Port)
	set("BACKEND_URL", f.BackendURL)
	set("VIEW_SECRET", f.ViewSecret)
	set("GIN_MODE", f.GinMode)
	set("TLS_CERT_FILE", f.TLSCertFile)
	set("TLS_KEY_FILE", f.TLSKeyFile)
	setInt("TOKEN_EXPIRY_SECONDS", f.TokenExpirySeconds)
	setInt("NOTIFICATION_TTL_MS", f.NotificationTTLMS)
	setInt("AUTO_LOGIN_DELAY_MS", f.AutoLoginDelayMS)
	setInt("ACTIVITY_REFRESH_SECONDS", f.ActivityRefreshSeconds)
	return out
}

type layered struct {
	env  Env
	file map[string]string
}

func (l layered) Getenv(key string) string {
	if v := l.env.Getenv(key); v != "" {
		return v
	}
	return l.file[key]
}

// Layered returns an Env in which env values win over file values.
func Layered(env Env, file File) Env {
	return layered{env: env, file: file.values()}
}
