package internal

import (
	"errors"
	"log/slog"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/atlas/internal/catalog"
	"github.com/starford/atlas/internal/pipeline"
	"github.com/starford/atlas/internal/render"
)

// Log formats.
const (
	LogFormatJSON = "json"
	LogFormatText = "text"
)

// LLM providers.
const (
	ProviderGemini = "gemini"
	ProviderOllama = "ollama"
)

// Config represents the application configuration.
type Config struct {
	App      ApplicationConfig `yaml:"app"`
	Vault    VaultConfig       `yaml:"vault"`
	Output   OutputConfig      `yaml:"output"`
	Catalog  CatalogConfig     `yaml:"catalog"`
	LLM      LLMConfig         `yaml:"llm"`
	Pipeline PipelineConfig    `yaml:"pipeline"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	for _, v := range []validation.Validatable{&c.App, &c.Vault, &c.Output, &c.Catalog, &c.LLM, &c.Pipeline} {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel  slog.Level `yaml:"log_level"`
	LogFormat string     `yaml:"log_format"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	if c.LogFormat == "" {
		c.LogFormat = LogFormatJSON
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.LogFormat, validation.In(LogFormatJSON, LogFormatText)),
	)
}

// VaultConfig locates the Markdown vault and its Smart Connections data.
type VaultConfig struct {
	Path   string `yaml:"path"`
	EnvDir string `yaml:"env_dir"`
}

// Validate validates the vault configuration.
func (c *VaultConfig) Validate() error {
	if c.EnvDir == "" {
		c.EnvDir = catalog.DefaultEnvDir
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// OutputConfig holds where generated notes go and the template they use.
type OutputConfig struct {
	Dir      string `yaml:"dir"`
	Template string `yaml:"template"`
}

// Validate validates the output configuration.
func (c *OutputConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Dir, validation.Required),
		validation.Field(&c.Template, validation.Required),
	)
}

// CatalogConfig holds the SQLite cache location and the embedding model.
type CatalogConfig struct {
	SQLitePath string `yaml:"sqlite_path"`
	Model      string `yaml:"model"`
}

// Validate validates the catalog configuration.
func (c *CatalogConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.SQLitePath, validation.Required),
	)
}

// LLMConfig selects and configures the generative service.
//
// Provider controls which client is used:
//   - "gemini" (default): APIKey is required.
//   - "ollama": a local instance at BaseURL; no key.
type LLMConfig struct {
	Provider string        `yaml:"provider"`
	Model    string        `yaml:"model"`
	APIKey   string        `yaml:"api_key"`
	BaseURL  string        `yaml:"base_url"`
	Timeout  time.Duration `yaml:"timeout"`
}

var errPlaceholderKey = errors.New("must be replaced with a real API key")

// Validate validates the LLM configuration.
func (c *LLMConfig) Validate() error {
	if c.Provider == "" {
		c.Provider = ProviderGemini
	}
	c.Provider = strings.ToLower(c.Provider)
	return validation.ValidateStruct(c,
		validation.Field(&c.Provider, validation.In(ProviderGemini, ProviderOllama)),
		validation.Field(&c.APIKey, validation.When(c.Provider == ProviderGemini,
			validation.Required,
			validation.By(func(any) error {
				if strings.Contains(c.APIKey, "YOUR_API_KEY") {
					return errPlaceholderKey
				}
				return nil
			}),
		)),
		validation.Field(&c.Timeout, validation.Min(time.Duration(0))),
	)
}

// PipelineConfig tunes a single run.
type PipelineConfig struct {
	Connections      int    `yaml:"connections"`
	ReviewOffsetDays int    `yaml:"review_offset_days"`
	PromptGuard      string `yaml:"prompt_guard"`
}

// Validate validates the pipeline configuration.
func (c *PipelineConfig) Validate() error {
	if c.PromptGuard == "" {
		c.PromptGuard = string(pipeline.GuardWarn)
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Connections, validation.Required, validation.Min(1), validation.Max(50)),
		validation.Field(&c.ReviewOffsetDays, validation.Min(0)),
		validation.Field(&c.PromptGuard, validation.In(
			string(pipeline.GuardOff), string(pipeline.GuardWarn), string(pipeline.GuardExclude))),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel:  slog.LevelInfo,
			LogFormat: LogFormatJSON,
		},
		Vault: VaultConfig{
			Path:   "./vault",
			EnvDir: catalog.DefaultEnvDir,
		},
		Output: OutputConfig{
			Dir:      "./vault/MOCs",
			Template: "./config/moc_template.md",
		},
		Catalog: CatalogConfig{
			SQLitePath: "./atlas.db",
		},
		LLM: LLMConfig{
			Provider: ProviderGemini,
			Timeout:  120 * time.Second,
		},
		Pipeline: PipelineConfig{
			Connections:      pipeline.DefaultConnections,
			ReviewOffsetDays: render.DefaultReviewOffsetDays,
			PromptGuard:      string(pipeline.GuardWarn),
		},
	}
}
