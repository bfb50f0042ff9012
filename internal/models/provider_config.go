package models

// Provider identifiers used for circuit breakers and error codes
const (
	ProviderSerpAPI  = "serpapi"
	ProviderGemini   = "gemini"
	ProviderOpenAI   = "openai"
	ProviderTelegram = "telegram"
)

// ProviderConfig holds connection settings for one downstream provider
type ProviderConfig struct {
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	Model      string `yaml:"model"`
	ImageModel string `yaml:"image_model"`
	TimeoutMs  int    `yaml:"timeout_ms"`
}

// Configured reports whether the provider has credentials
func (p ProviderConfig) Configured() bool {
	return p.APIKey != ""
}

// TelegramConfig holds the notifier settings
type TelegramConfig struct {
	BotToken string `yaml:"bot_token"`
	ChatID   string `yaml:"chat_id"`
	BaseURL  string `yaml:"base_url"`
}

// Configured reports whether the notifier can send
func (t TelegramConfig) Configured() bool {
	return t.BotToken != "" && t.ChatID != ""
}
