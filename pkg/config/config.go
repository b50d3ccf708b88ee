// Package config provides configuration structures and loading logic for the
// proxy. Configuration is loaded once at startup and treated as read-only
// afterwards; every request resolves against the same snapshot.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const defaultTimeoutMS = 30000

// Config holds the global configuration for the proxy.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Jira      JiraConfig      `yaml:"jira"`
	Logging   LoggingConfig   `yaml:"logging"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Security  SecurityConfig  `yaml:"security"`
}

// ServerConfig holds configuration for the HTTP server.
type ServerConfig struct {
	ListenAddress string `yaml:"listen_address"`
}

// JiraConfig holds the upstream Jira connection settings. ServiceUsername
// and ServiceAPIToken are optional; configuring both switches every upstream
// call to service-account authentication with per-user impersonation.
type JiraConfig struct {
	BaseURL         string `yaml:"base_url"`
	ServiceUsername string `yaml:"service_username"`
	ServiceAPIToken string `yaml:"service_api_token"`
	TimeoutMS       int    `yaml:"timeout_ms"`
}

// Timeout returns the upstream request timeout as a duration.
func (c *JiraConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMS) * time.Millisecond
}

// ServiceAccountConfigured reports whether both halves of the service
// credential pair are present.
func (c *JiraConfig) ServiceAccountConfigured() bool {
	return c.ServiceUsername != "" && c.ServiceAPIToken != ""
}

// LoggingConfig holds configuration for logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// TelemetryConfig holds configuration for OpenTelemetry.
type TelemetryConfig struct {
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	Insecure     bool   `yaml:"insecure"`
}

// SecurityConfig holds CORS settings for the inbound surface.
type SecurityConfig struct {
	AllowOrigins []string `yaml:"allow_origins"`
}

// Load reads configuration from a file and applies environment variable
// overrides. A missing path is allowed; defaults plus environment then fully
// describe the process.
func Load(path string) (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			ListenAddress: ":8000",
		},
		Jira: JiraConfig{
			TimeoutMS: defaultTimeoutMS,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Security: SecurityConfig{
			AllowOrigins: []string{"*"},
		},
	}

	if path != "" {
		//nolint:gosec // Config file path is controlled by the operator
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if val := os.Getenv("PROXY_LISTEN_ADDR"); val != "" {
		cfg.Server.ListenAddress = val
	}

	// Jira variable names carried over from the original deployment contract.
	if val := os.Getenv("JIRA_BASE_URL"); val != "" {
		cfg.Jira.BaseURL = val
	}
	if val := os.Getenv("JIRA_SERVICE_USERNAME"); val != "" {
		cfg.Jira.ServiceUsername = val
	}
	if val := os.Getenv("JIRA_SERVICE_API_TOKEN"); val != "" {
		cfg.Jira.ServiceAPIToken = val
	}
	if val := os.Getenv("JIRA_TIMEOUT_MS"); val != "" {
		if ms, err := strconv.Atoi(val); err == nil && ms > 0 {
			cfg.Jira.TimeoutMS = ms
		}
	}

	if val := os.Getenv("PROXY_LOG_LEVEL"); val != "" {
		cfg.Logging.Level = val
	}
	if val := os.Getenv("PROXY_LOG_PRETTY"); val == "true" {
		cfg.Logging.Pretty = true
	}

	if val := os.Getenv("PROXY_OTLP_ENDPOINT"); val != "" {
		cfg.Telemetry.OTLPEndpoint = val
	}
	if val := os.Getenv("PROXY_OTLP_INSECURE"); val == "true" {
		cfg.Telemetry.Insecure = true
	}

	if val := os.Getenv("PROXY_ALLOW_ORIGINS"); val != "" {
		parts := strings.Split(val, ",")
		origins := make([]string, 0, len(parts))
		for _, part := range parts {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				origins = append(origins, trimmed)
			}
		}
		if len(origins) > 0 {
			cfg.Security.AllowOrigins = origins
		}
	}
}

// Validate performs validation of the entire configuration.
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server configuration: %w", err)
	}
	if err := c.Jira.Validate(); err != nil {
		return fmt.Errorf("jira configuration: %w", err)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging configuration: %w", err)
	}
	return nil
}

// Validate performs validation of server configuration.
func (c *ServerConfig) Validate() error {
	if strings.TrimSpace(c.ListenAddress) == "" {
		c.ListenAddress = ":8000"
	}
	return nil
}

// Validate performs validation of the upstream Jira configuration.
func (c *JiraConfig) Validate() error {
	base := strings.TrimSpace(c.BaseURL)
	if base == "" {
		return fmt.Errorf("base_url is required")
	}
	parsed, err := url.Parse(base)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("base_url %q is not an absolute URL", c.BaseURL)
	}
	c.BaseURL = strings.TrimRight(base, "/")

	// Service credentials select the authentication mode, so a half-configured
	// pair would make the mode ambiguous.
	hasUser := c.ServiceUsername != ""
	hasToken := c.ServiceAPIToken != ""
	if hasUser != hasToken {
		return fmt.Errorf("service_username and service_api_token must be configured together")
	}

	if c.TimeoutMS <= 0 {
		c.TimeoutMS = defaultTimeoutMS
	}
	return nil
}

// Validate performs validation of logging configuration.
func (c *LoggingConfig) Validate() error {
	if strings.TrimSpace(c.Level) == "" {
		c.Level = "info"
	}

	level := strings.TrimSpace(strings.ToLower(c.Level))
	switch level {
	case "debug", "info", "warn", "error":
		c.Level = level
		return nil
	default:
		return fmt.Errorf("invalid log level %q, supported levels: debug, info, warn, error", c.Level)
	}
}
