package config

import (
	"errors"
	"fmt"
	"net/netip"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable, e.g. OPS_HTTP_PORT.
const EnvPrefix = "OPS"

// Config captures the runtime configuration of the operations service.
type Config struct {
	HTTPPort             int
	SQLiteDSN            string
	Timezone             *time.Location
	HourHeight           float64
	AvailabilityCacheTTL time.Duration
	BookingRateLimit     float64
	BookingRateBurst     int
	TrustedProxies       []netip.Prefix
	EventPollInterval    time.Duration
	MetricsEnabled       bool
	OTLPEndpoint         string
	ServiceName          string
	LogLevel             string
	LogFormat            string
	BasePrices           map[string]int64
}

var defaults = map[string]any{
	"http_port":              8080,
	"sqlite_dsn":             "file:ops.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)",
	"timezone":               "Europe/London",
	"hour_height":            72.0,
	"availability_cache_ttl": "30s",
	"booking_rate_limit":     1.0,
	"booking_rate_burst":     5,
	"trusted_proxies":        "",
	"event_poll_interval":    "10s",
	"metrics_enabled":        true,
	"otlp_endpoint":          "",
	"service_name":           "cleaning-ops",
	"log_level":              "info",
	"log_format":             "json",
}

// Load reads configuration from, in increasing precedence: defaults, the
// optional YAML file at path, a .env file in the working directory and
// OPS_* environment variables.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("config: read .env: %w", err)
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (Config, error) {
	invalid := make([]string, 0, 4)
	env := func(key string) string { return EnvPrefix + "_" + strings.ToUpper(key) }

	cfg := Config{
		HTTPPort:         v.GetInt("http_port"),
		SQLiteDSN:        strings.TrimSpace(v.GetString("sqlite_dsn")),
		HourHeight:       v.GetFloat64("hour_height"),
		BookingRateLimit: v.GetFloat64("booking_rate_limit"),
		BookingRateBurst: v.GetInt("booking_rate_burst"),
		MetricsEnabled:   v.GetBool("metrics_enabled"),
		OTLPEndpoint:     strings.TrimSpace(v.GetString("otlp_endpoint")),
		ServiceName:      strings.TrimSpace(v.GetString("service_name")),
		LogLevel:         strings.ToLower(strings.TrimSpace(v.GetString("log_level"))),
		LogFormat:        strings.ToLower(strings.TrimSpace(v.GetString("log_format"))),
		BasePrices:       map[string]int64{},
	}

	if cfg.HTTPPort <= 0 || cfg.HTTPPort > 65535 {
		invalid = append(invalid, env("http_port"))
	}
	if cfg.SQLiteDSN == "" {
		invalid = append(invalid, env("sqlite_dsn"))
	}
	if cfg.HourHeight <= 0 {
		invalid = append(invalid, env("hour_height"))
	}
	if cfg.BookingRateLimit < 0 {
		invalid = append(invalid, env("booking_rate_limit"))
	}
	if cfg.BookingRateBurst < 0 {
		invalid = append(invalid, env("booking_rate_burst"))
	}

	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		invalid = append(invalid, env("log_level"))
	}
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		invalid = append(invalid, env("log_format"))
	}

	loc, err := time.LoadLocation(strings.TrimSpace(v.GetString("timezone")))
	if err != nil {
		invalid = append(invalid, env("timezone"))
	} else {
		cfg.Timezone = loc
	}

	if cfg.AvailabilityCacheTTL, err = parseDuration(v.GetString("availability_cache_ttl"), true); err != nil {
		invalid = append(invalid, env("availability_cache_ttl"))
	}
	if cfg.EventPollInterval, err = parseDuration(v.GetString("event_poll_interval"), false); err != nil {
		invalid = append(invalid, env("event_poll_interval"))
	}

	if cfg.TrustedProxies, err = parseProxies(v.GetStringSlice("trusted_proxies")); err != nil {
		invalid = append(invalid, env("trusted_proxies"))
	}

	for service, price := range v.GetStringMap("base_prices") {
		amount, ok := toInt64(price)
		if !ok || amount < 0 {
			invalid = append(invalid, "base_prices."+service)
			continue
		}
		cfg.BasePrices[service] = amount
	}

	if cfg.ServiceName == "" {
		cfg.ServiceName = "cleaning-ops"
	}

	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("invalid configuration values: %s", strings.Join(invalid, ", "))
	}
	return cfg, nil
}

func parseDuration(value string, allowZero bool) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return 0, err
	}
	if d < 0 || (!allowZero && d == 0) {
		return 0, fmt.Errorf("duration %s out of range", value)
	}
	return d, nil
}

// parseProxies accepts CIDR prefixes or bare addresses, comma separated or
// as a list.
func parseProxies(values []string) ([]netip.Prefix, error) {
	var out []netip.Prefix
	for _, value := range values {
		for _, item := range strings.Split(value, ",") {
			item = strings.TrimSpace(item)
			if item == "" {
				continue
			}
			if strings.Contains(item, "/") {
				prefix, err := netip.ParsePrefix(item)
				if err != nil {
					return nil, err
				}
				out = append(out, prefix.Masked())
				continue
			}
			addr, err := netip.ParseAddr(item)
			if err != nil {
				return nil, err
			}
			addr = addr.Unmap()
			out = append(out, netip.PrefixFrom(addr, addr.BitLen()))
		}
	}
	return out, nil
}

func toInt64(value any) (int64, bool) {
	switch v := value.(type) {
	case int:
		return int64(v), true
	case int64:
		return v, true
	case float64:
		if v != float64(int64(v)) {
			return 0, false
		}
		return int64(v), true
	}
	return 0, false
}
