package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("config validation failed for field %q: %s", e.Field, e.Message)
}

// Validator collects configuration problems so they can be reported together.
type Validator struct {
	errors []ValidationError
}

// NewValidator creates a new configuration validator
func NewValidator() *Validator {
	return &Validator{}
}

func (v *Validator) add(field, format string, args ...any) *Validator {
	v.errors = append(v.errors, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	return v
}

// RequireNonEmpty validates that a string field is not blank
func (v *Validator) RequireNonEmpty(field, value string) *Validator {
	if strings.TrimSpace(value) == "" {
		return v.add(field, "value cannot be empty")
	}
	return v
}

// RequirePositive validates that an integer field is greater than 0
func (v *Validator) RequirePositive(field string, value int) *Validator {
	if value <= 0 {
		return v.add(field, "value must be positive, got %d", value)
	}
	return v
}

// RequireNonNegative validates that an integer field is not below 0
func (v *Validator) RequireNonNegative(field string, value int) *Validator {
	if value < 0 {
		return v.add(field, "value cannot be negative, got %d", value)
	}
	return v
}

// RequireNonNegativeDuration validates that a duration is not below 0
func (v *Validator) RequireNonNegativeDuration(field string, value time.Duration) *Validator {
	if value < 0 {
		return v.add(field, "duration cannot be negative, got %s", value)
	}
	return v
}

// ValidateRange validates that an integer field is within a range [min, max]
func (v *Validator) ValidateRange(field string, value, min, max int) *Validator {
	if value < min || value > max {
		return v.add(field, "value must be between %d and %d, got %d", min, max, value)
	}
	return v
}

// ValidatePort validates that a port number is valid (1-65535)
func (v *Validator) ValidatePort(field string, port int) *Validator {
	return v.ValidateRange(field, port, 1, 65535)
}

// ValidateDBNumber validates that a database number is valid (0-15 for Redis)
func (v *Validator) ValidateDBNumber(field string, db int) *Validator {
	return v.ValidateRange(field, db, 0, 15)
}

// ValidateOneOf validates that a string value is one of the allowed options
func (v *Validator) ValidateOneOf(field string, value string, allowed ...string) *Validator {
	for _, a := range allowed {
		if a == value {
			return v
		}
	}
	return v.add(field, "value must be one of %v, got %q", allowed, value)
}

// HasErrors returns true if there are any validation errors
func (v *Validator) HasErrors() bool {
	return len(v.errors) > 0
}

// Error returns a combined error message or nil if no errors
func (v *Validator) Error() error {
	if !v.HasErrors() {
		return nil
	}

	var b strings.Builder
	b.WriteString("configuration validation failed:\n")
	for _, e := range v.errors {
		fmt.Fprintf(&b, "  - %s: %s\n", e.Field, e.Message)
	}
	return errors.New(b.String())
}

// Errors returns all validation errors
func (v *Validator) Errors() []ValidationError {
	return v.errors
}

// ValidatePGVectorConfig validates pgvector connection settings
func ValidatePGVectorConfig(host string, port int, user, dbName, sslMode string, dimension int, tableName string) error {
	v := NewValidator()

	v.RequireNonEmpty("host", host)
	v.ValidatePort("port", port)
	v.RequireNonEmpty("user", user)
	v.RequireNonEmpty("dbName", dbName)
	v.ValidateOneOf("sslMode", sslMode, "disable", "require", "verify-ca", "verify-full")
	v.ValidateRange("dimension", dimension, 1, 16000)
	v.RequireNonEmpty("tableName", tableName)

	return v.Error()
}

// ValidateRedisConfig validates Redis trace sink settings
func ValidateRedisConfig(addr string, db int, key string) error {
	v := NewValidator()

	v.RequireNonEmpty("addr", addr)
	v.ValidateDBNumber("db", db)
	v.RequireNonEmpty("key", key)

	return v.Error()
}

// ValidateMongoDBConfig validates MongoDB configuration
func ValidateMongoDBConfig(uri string, database string, collection string) error {
	v := NewValidator()

	v.RequireNonEmpty("uri", uri)
	v.RequireNonEmpty("database", database)
	v.RequireNonEmpty("collection", collection)

	return v.Error()
}

// ValidateLLMConfig validates oracle provider settings. Hosted providers need
// an API key; ollama runs locally without one.
func ValidateLLMConfig(provider, apiKey, model string, timeout time.Duration) error {
	v := NewValidator()

	v.ValidateOneOf("provider", provider, ProviderOllama, ProviderOpenAI, ProviderAnthropic, ProviderGemini)
	if provider != ProviderOllama {
		v.RequireNonEmpty("apiKey", apiKey)
	}
	v.RequireNonEmpty("model", model)
	v.RequireNonNegativeDuration("timeout", timeout)

	return v.Error()
}

// ValidateAgentConfig validates the agent loop knobs
func ValidateAgentConfig(maxRetries int, reflectionFallback string, maxConcurrency int) error {
	v := NewValidator()

	v.ValidateRange("maxRetries", maxRetries, 0, 10)
	v.ValidateOneOf("reflectionFallback", reflectionFallback, FallbackApprove, FallbackReject)
	v.RequirePositive("maxConcurrency", maxConcurrency)

	return v.Error()
}
