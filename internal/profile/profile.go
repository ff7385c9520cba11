package profile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Profile is configuration to start the bot.
type Profile struct {
	// LLM configuration (OpenAI-compatible protocol)
	LLMProvider string // openai, deepseek, siliconflow, openrouter, ollama
	LLMAPIKey   string
	LLMBaseURL  string // optional, has default per provider
	LLMModel    string
	LLMTimeout  int // request timeout in seconds (default: 120)

	// Telegram configuration
	TelegramToken string
	AllowedUsers  []int64
	WebhookURL    string // empty means long polling
	WebhookSecret string // empty generates one per run

	// SecretBackend resolves secrets not given by flag or env: env or keyring.
	SecretBackend string

	// Page rendering
	Renderer        string // chrome or http
	SettleSeconds   int
	PageLoadTimeout int // seconds

	Mode    string
	Addr    string
	Port    int
	Data    string
	Driver  string
	DSN     string
	LogFile string
	Version string
}

// Provider default configurations for LLM.
// Used when SUMMY_LLM_BASE_URL is not explicitly set.
var llmProviderDefaults = map[string]struct {
	BaseURL string
	Model   string
}{
	"openai": {
		BaseURL: "https://api.openai.com/v1",
		Model:   "gpt-4-turbo-preview",
	},
	"deepseek": {
		BaseURL: "https://api.deepseek.com",
		Model:   "deepseek-chat",
	},
	"siliconflow": {
		BaseURL: "https://api.siliconflow.cn/v1",
		Model:   "Qwen/Qwen2.5-72B-Instruct",
	},
	"openrouter": {
		BaseURL: "https://openrouter.ai/api/v1",
		Model:   "openai/gpt-4-turbo",
	},
	"ollama": {
		BaseURL: "http://localhost:11434/v1",
		Model:   "llama3.1",
	},
}

const (
	RendererChrome = "chrome"
	RendererHTTP   = "http"

	SecretBackendEnv     = "env"
	SecretBackendKeyring = "keyring"
)

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsAuthorized reports whether userID may use the bot.
func (p *Profile) IsAuthorized(userID int64) bool {
	for _, id := range p.AllowedUsers {
		if id == userID {
			return true
		}
	}
	return false
}

// getEnvOrDefault returns environment variable value or default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvOrDefaultInt returns environment variable value as int or default value.
func getEnvOrDefaultInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// ParseAllowedUsers parses a comma separated list of numeric user IDs.
func ParseAllowedUsers(s string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid user id %q", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// FromEnv loads configuration from environment variables.
// Values already set on the profile are kept.
func (p *Profile) FromEnv() {
	if p.LLMProvider == "" {
		p.LLMProvider = "openai"
	}
	p.LLMProvider = getEnvOrDefault("SUMMY_LLM_PROVIDER", p.LLMProvider)
	p.LLMAPIKey = getEnvOrDefault("SUMMY_LLM_API_KEY", p.LLMAPIKey)
	p.LLMBaseURL = getEnvOrDefault("SUMMY_LLM_BASE_URL", p.LLMBaseURL)
	p.LLMModel = getEnvOrDefault("SUMMY_LLM_MODEL", p.LLMModel)
	p.LLMTimeout = getEnvOrDefaultInt("SUMMY_LLM_TIMEOUT_SECONDS", 120)

	if _, ok := llmProviderDefaults[p.LLMProvider]; !ok {
		slog.Warn("Unknown LLM provider, treating as generic OpenAI-compatible", "provider", p.LLMProvider)
	}
	if defaults, ok := llmProviderDefaults[p.LLMProvider]; ok {
		if p.LLMBaseURL == "" {
			p.LLMBaseURL = defaults.BaseURL
		}
		if p.LLMModel == "" {
			p.LLMModel = defaults.Model
		}
	}

	p.TelegramToken = getEnvOrDefault("SUMMY_TELEGRAM_TOKEN", p.TelegramToken)
	p.WebhookSecret = getEnvOrDefault("SUMMY_WEBHOOK_SECRET", p.WebhookSecret)
	if raw := os.Getenv("SUMMY_TELEGRAM_ALLOWED_USERS"); raw != "" {
		ids, err := ParseAllowedUsers(raw)
		if err != nil {
			slog.Warn("Ignoring malformed SUMMY_TELEGRAM_ALLOWED_USERS", "error", err)
		} else {
			p.AllowedUsers = ids
		}
	}

	if p.SecretBackend == "" {
		p.SecretBackend = SecretBackendEnv
	}
	p.SecretBackend = getEnvOrDefault("SUMMY_SECRET_BACKEND", p.SecretBackend)
	if p.Renderer == "" {
		p.Renderer = RendererChrome
	}
	p.Renderer = getEnvOrDefault("SUMMY_RENDERER", p.Renderer)
	p.SettleSeconds = getEnvOrDefaultInt("SUMMY_RENDER_SETTLE_SECONDS", 10)
	p.PageLoadTimeout = getEnvOrDefaultInt("SUMMY_PAGE_LOAD_TIMEOUT_SECONDS", 60)
	p.LogFile = getEnvOrDefault("SUMMY_LOG_FILE", p.LogFile)
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		relativeDir := filepath.Join(filepath.Dir(os.Args[0]), dataDir)
		absDir, err := filepath.Abs(relativeDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	// Trim trailing \ or / in case user supplies
	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

func (p *Profile) Validate() error {
	if p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "dev"
	}

	if p.Mode == "prod" && p.Data == "" {
		if runtime.GOOS == "windows" {
			p.Data = filepath.Join(os.Getenv("ProgramData"), "summy")
			if _, err := os.Stat(p.Data); os.IsNotExist(err) {
				if err := os.MkdirAll(p.Data, 0770); err != nil {
					slog.Error("failed to create data directory", slog.String("data", p.Data), slog.String("error", err.Error()))
					return err
				}
			}
		} else {
			p.Data = "/var/opt/summy"
		}
	}

	dataDir, err := checkDataDir(p.Data)
	if err != nil {
		slog.Error("failed to check data dir", slog.String("data", dataDir), slog.String("error", err.Error()))
		return err
	}
	p.Data = dataDir

	switch p.Driver {
	case "sqlite":
		if p.DSN == "" {
			p.DSN = filepath.Join(dataDir, fmt.Sprintf("summy_%s.db", p.Mode))
		}
	case "postgres":
		if p.DSN == "" {
			return errors.New("postgres driver requires --dsn")
		}
	default:
		return errors.Errorf("unsupported driver %q", p.Driver)
	}

	switch p.Renderer {
	case RendererChrome, RendererHTTP:
	default:
		return errors.Errorf("unsupported renderer %q", p.Renderer)
	}
	switch p.SecretBackend {
	case SecretBackendEnv, SecretBackendKeyring:
	default:
		return errors.Errorf("unsupported secret backend %q", p.SecretBackend)
	}
	if p.SettleSeconds < 0 {
		p.SettleSeconds = 0
	}
	if p.PageLoadTimeout <= 0 {
		p.PageLoadTimeout = 60
	}

	return nil
}
