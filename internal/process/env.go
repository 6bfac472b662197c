package process

import (
	"fmt"
	"sort"
	"strings"

	"github.com/joho/godotenv"
)

// Environment is the explicit environment handed to every spawned process.
// It replaces mutation of the orchestrator's own environment: a value is
// built once per run and threaded into the Runner.
//
// Environment values are immutable; With returns a modified copy.
type Environment struct {
	base      []string
	overrides map[string]string
}

// NewEnvironment creates an Environment from a base list in os.Environ
// format plus overrides that take precedence over it.
func NewEnvironment(base []string, overrides map[string]string) Environment {
	env := Environment{
		base:      append([]string(nil), base...),
		overrides: make(map[string]string, len(overrides)),
	}
	for k, v := range overrides {
		env.overrides[k] = v
	}
	return env
}

// With returns a copy of the environment with key set to value.
func (e Environment) With(key, value string) Environment {
	next := NewEnvironment(e.base, e.overrides)
	next.overrides[key] = value
	return next
}

// WithAll returns a copy with every entry of vars applied.
func (e Environment) WithAll(vars map[string]string) Environment {
	next := NewEnvironment(e.base, e.overrides)
	for k, v := range vars {
		next.overrides[k] = v
	}
	return next
}

// Lookup returns the effective value of key.
func (e Environment) Lookup(key string) (string, bool) {
	if v, ok := e.overrides[key]; ok {
		return v, true
	}
	for i := len(e.base) - 1; i >= 0; i-- {
		k, v, ok := strings.Cut(e.base[i], "=")
		if ok && k == key {
			return v, true
		}
	}
	return "", false
}

// Environ returns the environment in os.Environ format. Base entries
// shadowed by an override are dropped; overrides follow in key order so
// the result is deterministic.
func (e Environment) Environ() []string {
	result := make([]string, 0, len(e.base)+len(e.overrides))
	for _, kv := range e.base {
		k, _, _ := strings.Cut(kv, "=")
		if _, shadowed := e.overrides[k]; shadowed {
			continue
		}
		result = append(result, kv)
	}

	keys := make([]string, 0, len(e.overrides))
	for k := range e.overrides {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		result = append(result, k+"="+e.overrides[k])
	}
	return result
}

// ReadEnvFile loads KEY=VALUE pairs from a dotenv file.
func ReadEnvFile(path string) (map[string]string, error) {
	vars, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("read env file %q: %w", path, err)
	}
	return vars, nil
}
