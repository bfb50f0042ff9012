package models

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port           string `yaml:"port"`
	AllowedOrigins string `yaml:"allowed_origins"`
	Environment    string `yaml:"environment"`
	LogLevel       string `yaml:"log_level"`
}
