// Package hostconfig provides a typed view over the framework's
// passthrough properties (§6's "unrecognised keys are preserved and
// passed through to modules"): anything not modeled as a named field on
// config.Config still reaches modules through a Properties value rather
// than a bare map[string]string.
package hostconfig

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Properties is a flat string-keyed property bag, keyed in the
// dot-separated style the framework.* configuration keys use
// (framework.event.thread.pool.size, not FRAMEWORK_EVENT_THREAD_POOL_SIZE).
type Properties map[string]string

// FromEnviron builds a Properties set from every process environment
// variable whose name starts with prefix, translating
// FRAMEWORK_FOO_BAR into framework.foo.bar so module code and the
// env-var-driven config.Config agree on one key naming convention.
func FromEnviron(prefix string) Properties {
	p := make(Properties)
	for _, kv := range os.Environ() {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(name, prefix) {
			continue
		}
		p[envNameToKey(name)] = value
	}
	return p
}

func envNameToKey(name string) string {
	return strings.ToLower(strings.ReplaceAll(name, "_", "."))
}

// GetString returns the raw value for key, or def if unset.
func (p Properties) GetString(key, def string) string {
	if v, ok := p[key]; ok {
		return v
	}
	return def
}

// GetInt parses key as an int, returning def if the key is unset or the
// value doesn't parse.
func (p Properties) GetInt(key string, def int) int {
	v, ok := p[key]
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// GetBool parses key as a bool, returning def if the key is unset or the
// value doesn't parse.
func (p Properties) GetBool(key string, def bool) bool {
	v, ok := p[key]
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// GetDuration parses key as a time.Duration, returning def if the key is
// unset or the value doesn't parse.
func (p Properties) GetDuration(key string, def time.Duration) time.Duration {
	v, ok := p[key]
	if !ok {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

// Has reports whether key is set.
func (p Properties) Has(key string) bool {
	_, ok := p[key]
	return ok
}
