package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	envPrefix = "AUTOLYSIS"
	dirName   = ".autolysis"
)

// Global configuration structure.
type Global struct {
	APIKey      string  `mapstructure:"api_key" yaml:"api_key,omitempty"`
	Provider    string  `mapstructure:"provider" yaml:"provider" validate:"oneof=aiproxy openai anthropic ollama"`
	Model       string  `mapstructure:"model" yaml:"model,omitempty"`
	BaseURL     string  `mapstructure:"base_url" yaml:"base_url,omitempty" validate:"omitempty,url"`
	MaxTokens   int     `mapstructure:"max_tokens" yaml:"max_tokens" validate:"gte=0"`
	Temperature float64 `mapstructure:"temperature" yaml:"temperature" validate:"gte=0,lte=2"`

	// HTTP/Retry configuration
	HTTPTimeoutSec   int `mapstructure:"http_timeout_sec" yaml:"http_timeout_sec" validate:"gte=1"`
	RetryMaxAttempts int `mapstructure:"retry_max_attempts" yaml:"retry_max_attempts" validate:"gte=1,lte=10"`
	RetryBaseDelayMs int `mapstructure:"retry_base_delay_ms" yaml:"retry_base_delay_ms" validate:"gte=0"`
	RetryMaxDelayMs  int `mapstructure:"retry_max_delay_ms" yaml:"retry_max_delay_ms" validate:"gte=0"`

	// Local runtimes (Ollama)
	OllamaHost string `mapstructure:"ollama_host" yaml:"ollama_host" validate:"omitempty,url"`

	// Analysis
	Clusters          int     `mapstructure:"clusters" yaml:"clusters" validate:"gte=1"`
	Contamination     float64 `mapstructure:"contamination" yaml:"contamination" validate:"gt=0,lte=0.5"`
	RandomSeed        int64   `mapstructure:"random_seed" yaml:"random_seed"`
	IForestTrees      int     `mapstructure:"iforest_trees" yaml:"iforest_trees" validate:"gte=1"`
	IForestMaxSamples int     `mapstructure:"iforest_max_samples" yaml:"iforest_max_samples" validate:"gte=1"`
	MADThreshold      float64 `mapstructure:"mad_threshold" yaml:"mad_threshold" validate:"gte=0"`

	// Report
	PromptLimit  int    `mapstructure:"prompt_limit" yaml:"prompt_limit" validate:"gte=0"`
	ReportName   string `mapstructure:"report_name" yaml:"report_name" validate:"required,excludesall=/\\"`
	HTMLReport   bool   `mapstructure:"html_report" yaml:"html_report"`
	ClusterChart bool   `mapstructure:"cluster_chart" yaml:"cluster_chart"`
}

// Keys lists every configuration key in file order.
func Keys() []string {
	return []string{
		"api_key", "provider", "model", "base_url", "max_tokens", "temperature",
		"http_timeout_sec", "retry_max_attempts", "retry_base_delay_ms", "retry_max_delay_ms",
		"ollama_host", "clusters", "contamination", "random_seed", "iforest_trees",
		"iforest_max_samples", "mad_threshold", "prompt_limit", "report_name",
		"html_report", "cluster_chart",
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("provider", "aiproxy")
	v.SetDefault("model", "")
	v.SetDefault("base_url", "")
	v.SetDefault("max_tokens", 1500)
	v.SetDefault("temperature", 0.7)
	// HTTP/retry defaults: one attempt, bounded by a 30s timeout
	v.SetDefault("http_timeout_sec", 30)
	v.SetDefault("retry_max_attempts", 1)
	v.SetDefault("retry_base_delay_ms", 500)
	v.SetDefault("retry_max_delay_ms", 4000)
	v.SetDefault("ollama_host", "http://127.0.0.1:11434")
	// Analysis defaults
	v.SetDefault("clusters", 3)
	v.SetDefault("contamination", 0.05)
	v.SetDefault("random_seed", 42)
	v.SetDefault("iforest_trees", 100)
	v.SetDefault("iforest_max_samples", 256)
	v.SetDefault("mad_threshold", 3.5)
	v.SetDefault("prompt_limit", 0)
	v.SetDefault("report_name", "narration.txt")
	v.SetDefault("html_report", false)
	v.SetDefault("cluster_chart", true)
}

// DefaultPath returns ~/.autolysis/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, dirName, "config.yaml"), nil
}

// LoadDotEnv loads KEY=VALUE pairs from the given files (default ".env")
// into the process environment without overriding variables already set.
// Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.autolysis/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return err
		}
		path = p
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: env > config file > defaults. Command flags are applied by the caller.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("api_key", envPrefix+"_API_KEY"); err != nil {
		return nil, fmt.Errorf("bind env: %w", err)
	}
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", cfgFile, err)
		}
	} else {
		path, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(filepath.Dir(path))
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		// optional read
		var notFound viper.ConfigFileNotFoundError
		if err := v.ReadInConfig(); err != nil && !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Set assigns a raw string value to one key, as YAML would decode it, and
// validates the result. c is left unchanged on error.
func Set(c *Global, key, value string) error {
	known := false
	for _, k := range Keys() {
		if k == key {
			known = true
			break
		}
	}
	if !known {
		return fmt.Errorf("unknown key: %s", key)
	}
	doc := &yaml.Node{Kind: yaml.MappingNode, Content: []*yaml.Node{
		{Kind: yaml.ScalarNode, Value: key},
		{Kind: yaml.ScalarNode, Value: value},
	}}
	next := *c
	if err := doc.Decode(&next); err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	if err := next.Validate(); err != nil {
		return err
	}
	*c = next
	return nil
}

// Validate checks value ranges and enums.
func (c *Global) Validate() error {
	err := validator.New(validator.WithRequiredStructEnabled()).Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate config: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s: failed %q (got %v)", fe.Field(), fe.Tag(), fe.Value()))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

// ResolveAPIKey returns the key for the configured provider. Without an
// explicit api_key each provider reads only its own variable, so a token meant
// for one endpoint is never sent to another.
func (c *Global) ResolveAPIKey() string {
	if c.APIKey != "" {
		return c.APIKey
	}
	switch c.Provider {
	case "aiproxy":
		return os.Getenv("AIPROXY_TOKEN")
	case "openai":
		return os.Getenv("OPENAI_API_KEY")
	case "anthropic":
		return os.Getenv("ANTHROPIC_API_KEY")
	}
	return ""
}

// Redacted returns a copy safe to print.
func (c *Global) Redacted() Global {
	out := *c
	if n := len(out.APIKey); n > 0 {
		if n > 8 {
			out.APIKey = out.APIKey[:4] + strings.Repeat("*", n-8) + out.APIKey[n-4:]
		} else {
			out.APIKey = strings.Repeat("*", n)
		}
	}
	return out
}
