package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// getEnv returns the value of key, or defaultValue when unset or empty.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getInt returns key parsed as an int, or defaultValue when unset.
// Unparseable values are reported through errs.
func getInt(key string, defaultValue int, errs *[]string) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	intVal, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		*errs = append(*errs, key+" must be an integer")
		return defaultValue
	}
	return intVal
}

// getBool returns key parsed as a bool, or defaultValue when unset.
// Accepts: 1, t, T, TRUE, true, True, 0, f, F, FALSE, false, False
func getBool(key string, defaultValue bool, errs *[]string) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	boolVal, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		*errs = append(*errs, key+" must be a boolean")
		return defaultValue
	}
	return boolVal
}

// getDuration returns key parsed as a time.Duration ("300ms", "1.5s"), or
// defaultValue when unset.
func getDuration(key string, defaultValue time.Duration, errs *[]string) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	duration, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		*errs = append(*errs, key+" must be a duration such as 500ms or 2s")
		return defaultValue
	}
	return duration
}

// getList returns key split on commas with blanks dropped, or defaultValue
// when unset.
func getList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return append([]string(nil), defaultValue...)
	}
	return splitList(value)
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// IsLocal reports whether the environment is a developer machine.
func (c *Config) IsLocal() bool {
	env := strings.ToLower(c.Environment)
	return env == "local" || env == "development" || env == "dev"
}

// IsProduction reports whether the environment is production.
func (c *Config) IsProduction() bool {
	env := strings.ToLower(c.Environment)
	return env == "production" || env == "prod"
}

// IsTest reports whether the environment is a test run.
func (c *Config) IsTest() bool {
	env := strings.ToLower(c.Environment)
	return env == "test" || env == "testing"
}

// IsLambda detects whether the process runs inside AWS Lambda.
func IsLambda() bool {
	return os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != "" ||
		os.Getenv("LAMBDA_TASK_ROOT") != "" ||
		os.Getenv("AWS_EXECUTION_ENV") != ""
}
