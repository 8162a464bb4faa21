package config

// Environment names accepted in [api] environment.
const (
	EnvironmentDevelopment = "development"
	EnvironmentProduction  = "production"
	EnvironmentTest        = "test"
)

// Default values for configuration options, the first layer of the
// override chain.
const (
	defaultBaseURL        = "http://127.0.0.1:8000"
	defaultTimeout        = "10s"
	defaultEnvironment    = EnvironmentDevelopment
	defaultSessionBackend = "sqlite"
	defaultRedisPrefix    = "bookcat:session:"
	defaultMaxFileSize    = "50MB"
	defaultPageSize       = 10
	defaultLogLevel       = "warn"
	defaultLogFormat      = "auto"
)

var defaultAllowedTypes = []string{".pdf", ".doc", ".docx", ".txt", ".md"}

// DefaultConfig returns a Config populated with all default values. It is
// the starting point for TOML decoding, so unset fields keep their defaults.
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:     defaultBaseURL,
			Timeout:     defaultTimeout,
			Environment: defaultEnvironment,
		},
		Session: SessionConfig{
			Backend:     defaultSessionBackend,
			RedisPrefix: defaultRedisPrefix,
		},
		Fallback: FallbackConfig{Enabled: true},
		Upload: UploadConfig{
			MaxFileSize:  defaultMaxFileSize,
			AllowedTypes: append([]string(nil), defaultAllowedTypes...),
		},
		UI: UIConfig{PageSize: defaultPageSize},
		Logging: LoggingConfig{
			LogLevel:  defaultLogLevel,
			LogFormat: defaultLogFormat,
		},
	}
}
