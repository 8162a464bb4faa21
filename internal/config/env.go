package config

import "os"

// Environment variable names for overrides.
const (
	EnvConfig         = "BOOKCAT_CONFIG"
	EnvBaseURL        = "BOOKCAT_API_BASE_URL"
	EnvTimeoutMillis  = "BOOKCAT_API_TIMEOUT"
	EnvEnvironment    = "BOOKCAT_ENVIRONMENT"
	EnvEnableMockData = "BOOKCAT_ENABLE_MOCK_DATA"
	EnvSessionBackend = "BOOKCAT_SESSION_BACKEND"
)

// EnvOverrides holds raw values read from the environment. Empty means unset.
// Values are parsed and validated by Resolve.
type EnvOverrides struct {
	ConfigPath     string // BOOKCAT_CONFIG: override config file path
	BaseURL        string // BOOKCAT_API_BASE_URL
	TimeoutMillis  string // BOOKCAT_API_TIMEOUT, in milliseconds
	Environment    string // BOOKCAT_ENVIRONMENT
	EnableMockData string // BOOKCAT_ENABLE_MOCK_DATA: true/false
	SessionBackend string // BOOKCAT_SESSION_BACKEND
}

// ReadEnvOverrides reads environment variables and returns any overrides found.
func ReadEnvOverrides() EnvOverrides {
	return EnvOverrides{
		ConfigPath:     os.Getenv(EnvConfig),
		BaseURL:        os.Getenv(EnvBaseURL),
		TimeoutMillis:  os.Getenv(EnvTimeoutMillis),
		Environment:    os.Getenv(EnvEnvironment),
		EnableMockData: os.Getenv(EnvEnableMockData),
		SessionBackend: os.Getenv(EnvSessionBackend),
	}
}
