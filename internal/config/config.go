// Package config loads the kotoba server configuration.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/yuki/kotoba/internal/provider/llm"
	"github.com/yuki/kotoba/internal/speech"
)

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	LLM     LLMConfig     `mapstructure:"llm"`
	STT     STTConfig     `mapstructure:"stt"`
	Speech  SpeechConfig  `mapstructure:"speech"`
	Logging LoggingConfig `mapstructure:"logging"`
}

type ServerConfig struct {
	Port          string `mapstructure:"port"`
	AllowedOrigin string `mapstructure:"allowed_origin"`
	// StaticDir serves the UI from disk instead of the embedded copy.
	StaticDir string `mapstructure:"static_dir"`
	// RateLimit is requests per minute per client IP on /api; 0 disables it.
	RateLimit int `mapstructure:"rate_limit"`
}

type LLMConfig struct {
	Default   string       `mapstructure:"default"`
	Compat    CompatConfig `mapstructure:"compat"`
	OpenAI    KeyConfig    `mapstructure:"openai"`
	Anthropic KeyConfig    `mapstructure:"anthropic"`
	Gemini    KeyConfig    `mapstructure:"gemini"`
}

// KeyConfig is an API key and the model to use with it.
type KeyConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

// CompatConfig configures the OpenAI-compatible endpoint.
type CompatConfig struct {
	APIKey          string `mapstructure:"api_key"`
	URL             string `mapstructure:"url"`
	Model           string `mapstructure:"model"`
	ReasoningEffort string `mapstructure:"reasoning_effort"`
}

type STTConfig struct {
	Default         string `mapstructure:"default"`
	Language        string `mapstructure:"language"`
	GoogleProjectID string `mapstructure:"google_project_id"`
	GoogleLanguage  string `mapstructure:"google_language"`
}

type SpeechConfig struct {
	BaseURL          string         `mapstructure:"base_url"`
	GeneratePath     string         `mapstructure:"generate_path"`
	Locale           string         `mapstructure:"locale"`
	Voice            string         `mapstructure:"voice"`
	Style            string         `mapstructure:"style"`
	CSRFCookieName   string         `mapstructure:"csrf_cookie_name"`
	AudioThreshold   int            `mapstructure:"audio_threshold"`
	BootstrapTimeout time.Duration  `mapstructure:"bootstrap_timeout"`
	GenerateTimeout  time.Duration  `mapstructure:"generate_timeout"`
	Transport        string         `mapstructure:"transport"` // "http" or "tls"
	Proxy            string         `mapstructure:"proxy"`
	Fallback         FallbackConfig `mapstructure:"fallback"`
}

// FallbackConfig describes the local synthesizer binary.
type FallbackConfig struct {
	Binary      string   `mapstructure:"binary"`
	Args        []string `mapstructure:"args"`
	ContentType string   `mapstructure:"content_type"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, text
}

// envAliases binds config keys to the plain variable names used by
// deployments, in addition to KOTOBA_<SECTION>_<KEY>.
var envAliases = map[string]string{
	"server.port":           "PORT",
	"server.allowed_origin": "ALLOWED_ORIGIN",
	"llm.default":           "DEFAULT_LLM_PROVIDER",
	"llm.compat.api_key":    "API_KEY",
	"llm.compat.url":        "API_URL",
	"llm.openai.api_key":    "OPENAI_API_KEY",
	"llm.anthropic.api_key": "ANTHROPIC_API_KEY",
	"llm.gemini.api_key":    "GEMINI_API_KEY",
	"stt.default":           "DEFAULT_STT_PROVIDER",
	"stt.google_project_id": "GOOGLE_PROJECT_ID",
}

// Load reads the configuration from defaults, an optional YAML file and the
// environment, in increasing priority. If configFile is empty the file is
// looked up as kotoba.yaml in . and ./configs.
func Load(configFile string) (*Config, error) {
	v := viper.New()

	fb := speech.DefaultCommandConfig()
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.allowed_origin", "*")
	v.SetDefault("server.static_dir", "")
	v.SetDefault("server.rate_limit", 120)
	v.SetDefault("llm.default", "compat")
	v.SetDefault("llm.compat.url", llm.DefaultCompatURL)
	v.SetDefault("llm.compat.model", llm.DefaultCompatModel)
	v.SetDefault("llm.compat.reasoning_effort", "")
	v.SetDefault("llm.openai.model", llm.DefaultOpenAIModel)
	v.SetDefault("llm.anthropic.model", llm.DefaultAnthropicModel)
	v.SetDefault("llm.gemini.model", llm.DefaultGeminiModel)
	v.SetDefault("stt.default", "openai")
	v.SetDefault("stt.language", "ja")
	v.SetDefault("stt.google_language", "ja-JP")
	v.SetDefault("speech.base_url", speech.DefaultBaseURL)
	v.SetDefault("speech.generate_path", speech.DefaultGeneratePath)
	v.SetDefault("speech.locale", speech.DefaultLocale)
	v.SetDefault("speech.voice", speech.DefaultVoice)
	v.SetDefault("speech.style", speech.DefaultStyle)
	v.SetDefault("speech.csrf_cookie_name", speech.DefaultCSRFCookieName)
	v.SetDefault("speech.audio_threshold", speech.DefaultAudioThreshold)
	v.SetDefault("speech.bootstrap_timeout", speech.DefaultStageTimeout)
	v.SetDefault("speech.generate_timeout", speech.DefaultStageTimeout)
	v.SetDefault("speech.transport", "http")
	v.SetDefault("speech.proxy", "")
	v.SetDefault("speech.fallback.binary", fb.Binary)
	v.SetDefault("speech.fallback.args", fb.Args)
	v.SetDefault("speech.fallback.content_type", fb.ContentType)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("kotoba")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
	}

	v.SetEnvPrefix("KOTOBA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, alias := range envAliases {
		prefixed := "KOTOBA_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, alias); err != nil {
			return nil, fmt.Errorf("binding %s: %w", alias, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		slog.Info("no config file found, using defaults and environment variables")
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	cfg.LLM.Compat.APIKey = resolveEnvRef(cfg.LLM.Compat.APIKey)
	cfg.LLM.OpenAI.APIKey = resolveEnvRef(cfg.LLM.OpenAI.APIKey)
	cfg.LLM.Anthropic.APIKey = resolveEnvRef(cfg.LLM.Anthropic.APIKey)
	cfg.LLM.Gemini.APIKey = resolveEnvRef(cfg.LLM.Gemini.APIKey)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports the first setting the server cannot start with.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port must not be empty")
	}
	if c.Speech.BootstrapTimeout <= 0 || c.Speech.GenerateTimeout <= 0 {
		return fmt.Errorf("speech timeouts must be positive")
	}
	switch c.Speech.Transport {
	case "http", "tls":
	default:
		return fmt.Errorf("unknown speech transport %q (want http or tls)", c.Speech.Transport)
	}
	if c.Server.RateLimit < 0 {
		return fmt.Errorf("rate limit must not be negative")
	}
	return nil
}

// ParseOrigins splits a comma-separated origin list. An empty value or a
// "*" entry allows every origin and yields []string{"*"}.
func ParseOrigins(raw string) []string {
	var origins []string
	for _, o := range strings.Split(raw, ",") {
		o = strings.TrimSpace(o)
		if o == "*" {
			return []string{"*"}
		}
		if o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}

// Origins returns the allowed browser origins for both CORS and WebSocket.
func (s ServerConfig) Origins() []string {
	return ParseOrigins(s.AllowedOrigin)
}

// ClientConfig converts the speech section for speech.NewClient.
func (s SpeechConfig) ClientConfig() speech.Config {
	return speech.Config{
		BaseURL:          s.BaseURL,
		GeneratePath:     s.GeneratePath,
		Locale:           s.Locale,
		Voice:            s.Voice,
		Style:            s.Style,
		CSRFCookieName:   s.CSRFCookieName,
		AudioThreshold:   s.AudioThreshold,
		BootstrapTimeout: s.BootstrapTimeout,
		GenerateTimeout:  s.GenerateTimeout,
	}
}

// CompatProvider converts the compat section for llm.NewCompatProvider.
func (c CompatConfig) CompatProvider() llm.CompatConfig {
	return llm.CompatConfig{
		APIKey:          c.APIKey,
		URL:             c.URL,
		Model:           c.Model,
		ReasoningEffort: c.ReasoningEffort,
	}
}

// resolveEnvRef replaces "${VAR_NAME}" with the value of VAR_NAME.
func resolveEnvRef(val string) string {
	if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
		if envVal := os.Getenv(val[2 : len(val)-1]); envVal != "" {
			return envVal
		}
	}
	return val
}

// SetupLogging configures the global slog logger.
func SetupLogging(cfg LoggingConfig) {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if strings.ToLower(cfg.Format) == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
