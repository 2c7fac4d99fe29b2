package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"kaimenu/internal/menu"
	"kaimenu/internal/storage"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

type Config struct {
	Env  string
	Port string

	DatabaseURL string
	SQLitePath  string

	LLMProvider   string
	GeminiAPIKey  string
	GeminiModel   string
	OpenAIAPIKey  string
	OpenAIModel   string
	OpenAIBaseURL string

	CORSAllowedOrigins []string

	R2 storage.R2Config

	ConstraintsFile string
}

// Load reads the environment. Outside production a .env file is loaded first.
func Load() Config {
	if os.Getenv("APP_ENV") != "production" {
		_ = godotenv.Load()
	}

	return Config{
		Env:  getenv("APP_ENV", "development"),
		Port: getenv("PORT", "8000"),

		DatabaseURL: os.Getenv("DATABASE_URL"),
		SQLitePath:  getenv("SQLITE_PATH", "kai.db"),

		LLMProvider:   strings.ToLower(getenv("LLM_PROVIDER", ProviderGemini)),
		GeminiAPIKey:  os.Getenv("GEMINI_API_KEY"),
		GeminiModel:   os.Getenv("GEMINI_MODEL"),
		OpenAIAPIKey:  os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:   os.Getenv("OPENAI_MODEL"),
		OpenAIBaseURL: os.Getenv("OPENAI_BASE_URL"),

		CORSAllowedOrigins: splitList(getenv("CORS_ALLOWED_ORIGINS", "*")),

		R2: storage.R2Config{
			Endpoint:  os.Getenv("R2_ENDPOINT"),
			AccessKey: os.Getenv("R2_ACCESS_KEY"),
			SecretKey: os.Getenv("R2_SECRET_KEY"),
			Bucket:    os.Getenv("R2_BUCKET_NAME"),
		},

		ConstraintsFile: os.Getenv("MENU_CONSTRAINTS_FILE"),
	}
}

// Validate fails on the first missing variable the chosen setup needs.
// needLLM is false for commands that never call the collaborator.
func (c Config) Validate(needLLM bool) error {
	var required []string

	if needLLM {
		switch c.LLMProvider {
		case ProviderGemini:
			required = append(required, "GEMINI_API_KEY")
		case ProviderOpenAI:
			required = append(required, "OPENAI_API_KEY")
		default:
			return fmt.Errorf("unknown LLM_PROVIDER %q (want %s or %s)", c.LLMProvider, ProviderGemini, ProviderOpenAI)
		}
	}

	values := map[string]string{
		"GEMINI_API_KEY": c.GeminiAPIKey,
		"OPENAI_API_KEY": c.OpenAIAPIKey,
	}
	for _, k := range required {
		if values[k] == "" {
			return fmt.Errorf("missing env var: %s", k)
		}
	}

	if c.DatabaseURL == "" && c.SQLitePath == "" {
		return fmt.Errorf("missing env var: DATABASE_URL or SQLITE_PATH")
	}
	return nil
}

// UsePostgres is true when DATABASE_URL is set; SQLite otherwise.
func (c Config) UsePostgres() bool {
	return c.DatabaseURL != ""
}

// Constraints returns the defaults with the YAML overrides file applied.
func (c Config) Constraints() (menu.Constraints, error) {
	if c.ConstraintsFile == "" {
		return menu.DefaultConstraints(), nil
	}

	data, err := os.ReadFile(c.ConstraintsFile)
	if err != nil {
		return menu.Constraints{}, fmt.Errorf("read %s: %w", c.ConstraintsFile, err)
	}
	return ParseConstraints(data)
}

// ParseConstraints layers a YAML document over the default constraints.
func ParseConstraints(data []byte) (menu.Constraints, error) {
	var o menu.Overrides
	if err := yaml.Unmarshal(data, &o); err != nil {
		return menu.Constraints{}, fmt.Errorf("unmarshal constraints: %w", err)
	}
	return o.Apply(menu.DefaultConstraints())
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
