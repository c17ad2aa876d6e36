package config

import (
	"strings"
	"testing"
	"time"
)

func TestValidatorRequireNonEmpty(t *testing.T) {
	tests := []struct {
		name      string
		value     string
		wantError bool
	}{
		{
			name:      "non-empty value",
			value:     "valid",
			wantError: false,
		},
		{
			name:      "empty value",
			value:     "",
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewValidator()
			v.RequireNonEmpty("test_field", tt.value)
			hasError := v.HasErrors()
			if hasError != tt.wantError {
				t.Errorf("HasErrors() = %v, want %v", hasError, tt.wantError)
			}
		})
	}
}

func TestValidatorRequirePositive(t *testing.T) {
	tests := []struct {
		name      string
		value     int
		wantError bool
	}{
		{
			name:      "positive value",
			value:     10,
			wantError: false,
		},
		{
			name:      "zero value",
			value:     0,
			wantError: true,
		},
		{
			name:      "negative value",
			value:     -5,
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewValidator()
			v.RequirePositive("test_field", tt.value)
			hasError := v.HasErrors()
			if hasError != tt.wantError {
				t.Errorf("HasErrors() = %v, want %v", hasError, tt.wantError)
			}
		})
	}
}

func TestValidatorValidateRange(t *testing.T) {
	tests := []struct {
		name      string
		value     int
		min       int
		max       int
		wantError bool
	}{
		{
			name:      "value in range",
			value:     50,
			min:       0,
			max:       100,
			wantError: false,
		},
		{
			name:      "value below minimum",
			value:     -1,
			min:       0,
			max:       100,
			wantError: true,
		},
		{
			name:      "value above maximum",
			value:     101,
			min:       0,
			max:       100,
			wantError: true,
		},
		{
			name:      "value at minimum boundary",
			value:     0,
			min:       0,
			max:       100,
			wantError: false,
		},
		{
			name:      "value at maximum boundary",
			value:     100,
			min:       0,
			max:       100,
			wantError: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewValidator()
			v.ValidateRange("test_field", tt.value, tt.min, tt.max)
			hasError := v.HasErrors()
			if hasError != tt.wantError {
				t.Errorf("HasErrors() = %v, want %v", hasError, tt.wantError)
			}
		})
	}
}

func TestValidatorValidatePort(t *testing.T) {
	tests := []struct {
		name      string
		port      int
		wantError bool
	}{
		{
			name:      "valid port",
			port:      8080,
			wantError: false,
		},
		{
			name:      "minimum valid port",
			port:      1,
			wantError: false,
		},
		{
			name:      "maximum valid port",
			port:      65535,
			wantError: false,
		},
		{
			name:      "port too low",
			port:      0,
			wantError: true,
		},
		{
			name:      "port too high",
			port:      65536,
			wantError: true,
		},
		{
			name:      "negative port",
			port:      -1,
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewValidator()
			v.ValidatePort("port", tt.port)
			hasError := v.HasErrors()
			if hasError != tt.wantError {
				t.Errorf("HasErrors() = %v, want %v", hasError, tt.wantError)
			}
		})
	}
}

func TestValidatorValidateDBNumber(t *testing.T) {
	tests := []struct {
		name      string
		db        int
		wantError bool
	}{
		{
			name:      "valid db number",
			db:        5,
			wantError: false,
		},
		{
			name:      "minimum valid db",
			db:        0,
			wantError: false,
		},
		{
			name:      "maximum valid db",
			db:        15,
			wantError: false,
		},
		{
			name:      "db too low",
			db:        -1,
			wantError: true,
		},
		{
			name:      "db too high",
			db:        16,
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewValidator()
			v.ValidateDBNumber("db", tt.db)
			hasError := v.HasErrors()
			if hasError != tt.wantError {
				t.Errorf("HasErrors() = %v, want %v", hasError, tt.wantError)
			}
		})
	}
}

func TestValidatorValidateOneOf(t *testing.T) {
	tests := []struct {
		name      string
		value     string
		allowed   []string
		wantError bool
	}{
		{
			name:      "value is allowed",
			value:     "disable",
			allowed:   []string{"disable", "require", "verify-ca"},
			wantError: false,
		},
		{
			name:      "value not allowed",
			value:     "invalid",
			allowed:   []string{"disable", "require", "verify-ca"},
			wantError: true,
		},
		{
			name:      "empty allowed list",
			value:     "any",
			allowed:   []string{},
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewValidator()
			v.ValidateOneOf("field", tt.value, tt.allowed...)
			hasError := v.HasErrors()
			if hasError != tt.wantError {
				t.Errorf("HasErrors() = %v, want %v", hasError, tt.wantError)
			}
		})
	}
}

func TestValidatorMultipleErrors(t *testing.T) {
	v := NewValidator()
	v.RequireNonEmpty("field1", "")
	v.RequirePositive("field2", 0)
	v.ValidatePort("field3", 99999)

	if !v.HasErrors() {
		t.Errorf("HasErrors() = false, want true")
	}

	errs := v.Errors()
	if len(errs) != 3 {
		t.Errorf("Errors() count = %d, want 3", len(errs))
	}

	err := v.Error()
	if err == nil {
		t.Errorf("Error() = nil, want non-nil error")
	}
}


func TestValidateLLMConfig(t *testing.T) {
	tests := []struct {
		name      string
		provider  string
		apiKey    string
		model     string
		timeout   time.Duration
		wantError bool
	}{
		{name: "local ollama without key", provider: ProviderOllama, model: "mistral"},
		{name: "openai with key", provider: ProviderOpenAI, apiKey: "sk-test", model: "gpt-4o-mini", timeout: time.Minute},
		{name: "anthropic without key", provider: ProviderAnthropic, model: "claude", wantError: true},
		{name: "unknown provider", provider: "bard", apiKey: "k", model: "m", wantError: true},
		{name: "empty model", provider: ProviderOllama, wantError: true},
		{name: "negative timeout", provider: ProviderOllama, model: "mistral", timeout: -time.Second, wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateLLMConfig(tt.provider, tt.apiKey, tt.model, tt.timeout)
			if (err != nil) != tt.wantError {
				t.Errorf("ValidateLLMConfig() error = %v, wantError %v", err, tt.wantError)
			}
		})
	}
}

func TestValidateAgentConfig(t *testing.T) {
	if err := ValidateAgentConfig(2, FallbackApprove, 4); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := ValidateAgentConfig(0, FallbackReject, 1); err != nil {
		t.Fatalf("zero retries must be allowed: %v", err)
	}
	err := ValidateAgentConfig(-1, "maybe", 0)
	if err == nil {
		t.Fatal("expected error")
	}
	for _, field := range []string{"maxRetries", "reflectionFallback", "maxConcurrency"} {
		if !strings.Contains(err.Error(), field) {
			t.Errorf("expected %s in %v", field, err)
		}
	}
}

func TestValidateStoreConfigs(t *testing.T) {
	if err := ValidatePGVectorConfig("localhost", 5432, "postgres", "ewa_agent", "disable", 768, "ewa_chunks"); err != nil {
		t.Fatalf("unexpected pg error: %v", err)
	}
	if err := ValidatePGVectorConfig("", 0, "postgres", "ewa_agent", "sometimes", 0, ""); err == nil {
		t.Fatal("expected pg error")
	}
	if err := ValidateRedisConfig("localhost:6379", 0, "ewa-agent:runs"); err != nil {
		t.Fatalf("unexpected redis error: %v", err)
	}
	if err := ValidateRedisConfig("localhost:6379", 16, ""); err == nil {
		t.Fatal("expected redis error")
	}
	if err := ValidateMongoDBConfig("mongodb://localhost:27017", "ewa_agent", ""); err == nil {
		t.Fatal("expected mongo error")
	}
}
