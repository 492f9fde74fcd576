// Package env reads configuration values from environment variables.
package env

import (
	"os"
	"strconv"
	"strings"
)

var (
	TrueValues  = []string{"1", "yes", "true", "on"}  // TrueValues are the values [Bool] considers true.
	FalseValues = []string{"0", "no", "false", "off"} // FalseValues are the values [Bool] considers false.
)

func lookup(key string) (string, bool) {
	if val, ok := os.LookupEnv(key); ok {
		return val, true
	}
	// Fall back to a case-insensitive scan.
	for _, kv := range os.Environ() {
		k, v, found := strings.Cut(kv, "=")
		if found && strings.EqualFold(k, key) {
			return v, true
		}
	}
	return "", false
}

// Val returns the trimmed value of the variable key.
// If the variable isn't set, or is blank, then defaultVal is returned.
func Val(key string, defaultVal string) string {
	val, ok := lookup(key)
	if !ok {
		return defaultVal
	}
	val = strings.TrimSpace(val)
	if len(val) == 0 {
		return defaultVal
	}
	return val
}

// Int interprets the variable key as a base 10 integer.
// The defaultVal is returned if the variable isn't set or isn't a valid integer.
func Int(key string, defaultVal int) int {
	sval := Val(key, "")
	if len(sval) == 0 {
		return defaultVal
	}
	ival, err := strconv.Atoi(sval)
	if err != nil {
		return defaultVal
	}
	return ival
}

// Bool interprets the variable key using [TrueValues] and [FalseValues], compared case-insensitive.
// The defaultVal is returned if the variable isn't set or matches neither list.
func Bool(key string, defaultVal bool) bool {
	sval := Val(key, "")
	if len(sval) == 0 {
		return defaultVal
	}
	for _, v := range TrueValues {
		if strings.EqualFold(sval, v) {
			return true
		}
	}
	for _, v := range FalseValues {
		if strings.EqualFold(sval, v) {
			return false
		}
	}
	return defaultVal
}
