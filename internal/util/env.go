package util

import (
	"os"
	"strconv"
	"sync"
)

// envCache stores previously fetched non-empty environment variable values so
// repeat lookups avoid the relatively expensive syscall interaction.
var envCache sync.Map // map[string]string

// EnvOrDefault returns the value of the environment variable identified by key
// or the provided fallback if the variable is unset or empty.
func EnvOrDefault(key, fallback string) string {
	if v, ok := envCache.Load(key); ok {
		return v.(string)
	}
	if v, ok := os.LookupEnv(key); ok && v != "" {
		envCache.Store(key, v)
		return v
	}
	return fallback
}

// EnvOrDefaultInt returns the integer value of the environment variable
// identified by key or the provided fallback if the variable is unset,
// empty, or cannot be parsed as an integer.
func EnvOrDefaultInt(key string, fallback int) int {
	v := EnvOrDefault(key, "")
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

// ClearEnvCache removes any cached value for key. Exposed for tests that
// manipulate environment variables between assertions.
func ClearEnvCache(key string) {
	envCache.Delete(key)
}
