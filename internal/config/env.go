package config

import (
	"os"
	"strconv"
	"strings"
)

// ApplyEnv overlays DASHMON_* environment variables on cfg. File values
// lose to the environment; unset variables leave cfg untouched.
func ApplyEnv(cfg *Config) {
	if v, ok := lookup("DASHMON_STREAM_URL"); ok {
		cfg.Stream.URL = v
	}
	if v, ok := lookup("DASHMON_RECONNECT_BASE"); ok {
		cfg.Stream.ReconnectBase = v
	}
	if v, ok := lookup("DASHMON_RECONNECT_MAX"); ok {
		cfg.Stream.ReconnectMax = v
	}
	if v, ok := lookupInt("DASHMON_BUFFER_CAPACITY"); ok {
		cfg.Buffer.Capacity = v
	}
	if v, ok := lookupInt("DASHMON_BREAKER_THRESHOLD"); ok {
		cfg.Breaker.Threshold = v
	}
	if v, ok := lookup("DASHMON_BREAKER_COOLDOWN"); ok {
		cfg.Breaker.Cooldown = v
	}
	if v, ok := lookup("DASHMON_ALLOWED_ORIGINS"); ok {
		cfg.Security.AllowedOrigins = splitList(v)
	}
	if v, ok := lookupBool("DASHMON_DEV_MODE"); ok {
		cfg.Security.DevMode = v
	}
	if v, ok := lookup("DASHMON_LOG_LEVEL"); ok {
		cfg.Logging.Level = v
	}
}

func lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func lookupInt(key string) (int, bool) {
	v, ok := lookup(key)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

func lookupBool(key string) (bool, bool) {
	v, ok := lookup(key)
	if !ok {
		return false, false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, false
	}
	return b, true
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
