// Package config загружает настройки сервиса из YAML, .env и переменных окружения
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/Vaflel/bell-ticker/domain"
)

// Config настройки процесса
type Config struct {
	Environment string        `yaml:"environment"`
	LogLevel    string        `yaml:"log_level"`
	HTTP        HTTPConfig    `yaml:"http"`
	School      SchoolConfig  `yaml:"school"`
	Weather     WeatherConfig `yaml:"weather"`
	Chat        ChatConfig    `yaml:"chat"`
}

type HTTPConfig struct {
	Addr            string   `yaml:"addr"`
	AllowedOrigins  []string `yaml:"allowed_origins"`
	ShutdownTimeout string   `yaml:"shutdown_timeout"`
	TickInterval    string   `yaml:"tick_interval"`
}

// SchoolConfig единственная локация школы и расписание по умолчанию
type SchoolConfig struct {
	Timezone        string `yaml:"timezone"`
	DefaultSchedule string `yaml:"default_schedule"`
	PreferencesFile string `yaml:"preferences_file"`
}

type WeatherConfig struct {
	APIKey   string  `yaml:"api_key"`
	BaseURL  string  `yaml:"base_url"`
	Lat      float64 `yaml:"lat"`
	Lon      float64 `yaml:"lon"`
	Units    string  `yaml:"units"`
	CacheTTL string  `yaml:"cache_ttl"`
	Timeout  string  `yaml:"timeout"`
}

// ChatConfig провайдер "groq" (OpenAI-совместимый API) или "gemini"
type ChatConfig struct {
	Provider     string  `yaml:"provider"`
	APIKey       string  `yaml:"api_key"`
	BaseURL      string  `yaml:"base_url"`
	Model        string  `yaml:"model"`
	SystemPrompt string  `yaml:"system_prompt"`
	Temperature  float64 `yaml:"temperature"`
	MaxTokens    int     `yaml:"max_tokens"`
	Timeout      string  `yaml:"timeout"`
	RatePerMin   int     `yaml:"rate_per_min"`
}

const DefaultSystemPrompt = "You are Enloe Assistant, a helpful AI assistant for Enloe High School students. " +
	"You provide concise, accurate information about school schedules, activities, and general academic questions. " +
	"Keep responses brief and focused on helping students."

// Default возвращает конфигурацию по умолчанию
func Default() Config {
	return Config{
		Environment: "production",
		LogLevel:    "info",
		HTTP: HTTPConfig{
			Addr:            ":8060",
			AllowedOrigins:  []string{"*"},
			ShutdownTimeout: "10s",
			TickInterval:    "1s",
		},
		School: SchoolConfig{
			DefaultSchedule: string(domain.ALunch),
			PreferencesFile: "preferences.yaml",
		},
		Weather: WeatherConfig{
			BaseURL:  "https://api.openweathermap.org/data/2.5/weather",
			Lat:      35.7796,
			Lon:      -78.6382,
			Units:    "imperial",
			CacheTTL: "30m",
			Timeout:  "10s",
		},
		Chat: ChatConfig{
			Provider:     "groq",
			BaseURL:      "https://api.groq.com/openai/v1",
			Model:        "llama3-8b-8192",
			SystemPrompt: DefaultSystemPrompt,
			Temperature:  0.7,
			MaxTokens:    1000,
			Timeout:      "30s",
			RatePerMin:   20,
		},
	}
}

// Load читает .env (если есть), YAML файл path (если есть) и переменные окружения.
// Отсутствующий файл не ошибка: используются значения по умолчанию.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return Config{}, fmt.Errorf("не удалось прочитать файл: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("не удалось распарсить YAML: %w", err)
			}
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	setString(&c.Environment, "BELL_ENV")
	setString(&c.LogLevel, "BELL_LOG_LEVEL")
	setString(&c.HTTP.Addr, "BELL_HTTP_ADDR")
	setString(&c.School.Timezone, "BELL_TIMEZONE")
	setString(&c.School.DefaultSchedule, "BELL_DEFAULT_SCHEDULE")
	setString(&c.School.PreferencesFile, "BELL_PREFERENCES_FILE")
	setString(&c.Weather.APIKey, "OPENWEATHERMAP_API_KEY")
	setString(&c.Chat.Provider, "BELL_CHAT_PROVIDER")
	setString(&c.Chat.Model, "BELL_CHAT_MODEL")

	switch strings.ToLower(c.Chat.Provider) {
	case "gemini":
		setString(&c.Chat.APIKey, "GEMINI_API_KEY")
	default:
		setString(&c.Chat.APIKey, "GROQ_API_KEY")
	}

	if v, ok := os.LookupEnv("BELL_CHAT_RATE_PER_MIN"); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			c.Chat.RatePerMin = n
		}
	}
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		*dst = strings.TrimSpace(v)
	}
}

// Validate проверяет согласованность настроек
func (c Config) Validate() error {
	if _, err := domain.ParseScheduleKind(c.School.DefaultSchedule); err != nil {
		return fmt.Errorf("school.default_schedule: %w", err)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	switch strings.ToLower(c.Chat.Provider) {
	case "groq", "gemini":
	default:
		return fmt.Errorf("chat.provider: неизвестный провайдер %q", c.Chat.Provider)
	}
	if c.Chat.RatePerMin < 0 {
		return errors.New("chat.rate_per_min: должно быть >= 0")
	}
	if c.Chat.MaxTokens <= 0 {
		return errors.New("chat.max_tokens: должно быть > 0")
	}

	durations := map[string]string{
		"http.shutdown_timeout": c.HTTP.ShutdownTimeout,
		"http.tick_interval":    c.HTTP.TickInterval,
		"weather.cache_ttl":     c.Weather.CacheTTL,
		"weather.timeout":       c.Weather.Timeout,
		"chat.timeout":          c.Chat.Timeout,
	}
	for path, raw := range durations {
		if _, err := ParseDurationField(path, raw); err != nil {
			return err
		}
	}
	return nil
}

// Location локация школы. Пустая строка означает локальное время хоста.
func (c Config) Location() (*time.Location, error) {
	tz := strings.TrimSpace(c.School.Timezone)
	if tz == "" || strings.EqualFold(tz, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("school.timezone: %w", err)
	}
	return loc, nil
}

// DefaultSchedule расписание по умолчанию, уже проверенное Validate
func (c Config) DefaultSchedule() domain.ScheduleKind {
	return domain.ScheduleKind(c.School.DefaultSchedule)
}

// IsDevelopment true для локальной разработки
func (c Config) IsDevelopment() bool {
	return strings.EqualFold(c.Environment, "development")
}
