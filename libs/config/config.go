package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// v resolves keys from the environment first, then from an optional YAML file loaded via Load.
var v = newViper()

func newViper() *viper.Viper {
	vp := viper.New()
	vp.SetConfigType("yaml")
	vp.AutomaticEnv()
	return vp
}

// Load reads a YAML config file. An empty path is a no-op so services can run on env alone.
func Load(path string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	return nil
}

func String(key, fallback string) string {
	s := v.GetString(key)
	if s == "" {
		return fallback
	}
	return s
}

func RequiredString(key string) (string, error) {
	s := v.GetString(key)
	if s == "" {
		return "", fmt.Errorf("%s is required", key)
	}
	return s, nil
}

func Port(key, fallback string) (string, error) {
	s := String(key, fallback)
	p, err := strconv.Atoi(s)
	if err != nil || p < 1 || p > 65535 {
		return "", fmt.Errorf("%s must be a valid TCP port (got %q)", key, s)
	}
	return s, nil
}

func Int(key string, fallback int) (int, error) {
	s := strings.TrimSpace(v.GetString(key))
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer (got %q)", key, s)
	}
	return n, nil
}

func Bool(key string, fallback bool) bool {
	s := strings.TrimSpace(strings.ToLower(v.GetString(key)))
	switch s {
	case "":
		return fallback
	case "0", "false", "no", "off":
		return false
	default:
		return true
	}
}

// Duration accepts Go duration strings ("15m", "2h").
func Duration(key string, fallback time.Duration) (time.Duration, error) {
	s := strings.TrimSpace(v.GetString(key))
	if s == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration (got %q)", key, s)
	}
	return d, nil
}

// List splits a comma separated value, dropping empty entries.
func List(key, fallback string) []string {
	var out []string
	for _, part := range strings.Split(String(key, fallback), ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
