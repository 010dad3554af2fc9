package model

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"go.yaml.in/yaml/v3"
)

// IMAPConfig holds the mail store connection settings.
type IMAPConfig struct {
	Host        string `mapstructure:"host" yaml:"host"`
	Port        int    `mapstructure:"port" yaml:"port"`
	Email       string `mapstructure:"email" yaml:"email"`
	TrashFolder string `mapstructure:"trash_folder" yaml:"trash_folder"`
}

// FetchConfig controls which messages a run considers.
type FetchConfig struct {
	Mailbox     string `mapstructure:"mailbox" yaml:"mailbox"`
	DaysBack    int    `mapstructure:"days_back" yaml:"days_back"`
	MaxMessages int    `mapstructure:"max_messages" yaml:"max_messages"`
	UnreadOnly  bool   `mapstructure:"unread_only" yaml:"unread_only"`
}

// AnthropicConfig holds settings for the classification model.
type AnthropicConfig struct {
	Model     string `mapstructure:"model" yaml:"model"`
	MaxTokens int    `mapstructure:"max_tokens" yaml:"max_tokens"`
}

// PromptsConfig holds the classifier prompt text.
type PromptsConfig struct {
	System      string `mapstructure:"system" yaml:"system"`
	Suggestions string `mapstructure:"suggestions" yaml:"suggestions"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	IMAP       IMAPConfig      `mapstructure:"imap" yaml:"imap"`
	Fetch      FetchConfig     `mapstructure:"fetch" yaml:"fetch"`
	Anthropic  AnthropicConfig `mapstructure:"anthropic" yaml:"anthropic"`
	Prompts    PromptsConfig   `mapstructure:"prompts" yaml:"prompts"`
	Categories []CategoryRule  `mapstructure:"categories" yaml:"categories"`
}

const (
	defaultSystemPrompt = "You are an email triage assistant. Classify each " +
		"email into exactly one of the available categories based on its " +
		"subject, sender, and content snippet."
	defaultSuggestionsPrompt = "Based on the emails in this batch, suggest " +
		"new triage categories that would be useful additions to the " +
		"existing rules."
)

// DefaultConfigPath returns the default configuration file location,
// ~/.config/mailtriage/config.yaml. The MAILTRIAGE_CONFIG_DIR environment
// variable overrides the directory.
func DefaultConfigPath() string {
	if dir := os.Getenv("MAILTRIAGE_CONFIG_DIR"); dir != "" {
		return filepath.Join(dir, "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "mailtriage", "config.yaml")
}

// DefaultConfig returns the built-in configuration, including the default
// rule table used when no user configuration exists.
func DefaultConfig() *AppConfig {
	return &AppConfig{
		IMAP: IMAPConfig{
			Host:        "imap.gmail.com",
			Port:        993,
			TrashFolder: "[Gmail]/Trash",
		},
		Fetch: FetchConfig{
			Mailbox:     "INBOX",
			DaysBack:    1,
			MaxMessages: 50,
			UnreadOnly:  true,
		},
		Anthropic: AnthropicConfig{
			Model:     "claude-sonnet-4-5",
			MaxTokens: 1024,
		},
		Prompts: PromptsConfig{
			System:      defaultSystemPrompt,
			Suggestions: defaultSuggestionsPrompt,
		},
		Categories: []CategoryRule{
			{
				Name:        "important",
				Description: "Personal mail, urgent requests, anything needing a reply",
				Action:      ActionFlag,
			},
			{
				Name:        "newsletter",
				Description: "Recurring newsletters and digests",
				Action:      ActionArchive,
			},
			{
				Name:        "promotional",
				Description: "Marketing, sales offers, product announcements",
				Action:      ActionTrash,
			},
			{
				Name:        "notification",
				Description: "Automated service notifications and receipts",
				Action:      ActionNone,
			},
		},
	}
}

// LoadConfig reads configuration from the given YAML file path using Viper,
// merging over the built-in defaults. A missing file yields the defaults.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetDefault("imap.host", "imap.gmail.com")
	v.SetDefault("imap.port", 993)
	v.SetDefault("imap.trash_folder", "[Gmail]/Trash")
	v.SetDefault("fetch.mailbox", "INBOX")
	v.SetDefault("fetch.days_back", 1)
	v.SetDefault("fetch.max_messages", 50)
	v.SetDefault("fetch.unread_only", true)
	v.SetDefault("anthropic.model", "claude-sonnet-4-5")
	v.SetDefault("anthropic.max_tokens", 1024)
	v.SetDefault("prompts.system", defaultSystemPrompt)
	v.SetDefault("prompts.suggestions", defaultSuggestionsPrompt)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(*os.PathError); ok {
			return DefaultConfig(), nil
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	// An explicit categories list replaces the defaults entirely.
	if !v.IsSet("categories") {
		cfg.Categories = DefaultConfig().Categories
	}

	seen := make(map[string]bool, len(cfg.Categories))
	for _, rule := range cfg.Categories {
		if seen[rule.Name] {
			return nil, fmt.Errorf(
				"config %s: duplicate category %q", path, rule.Name,
			)
		}
		seen[rule.Name] = true

		if rule.Action != "" && !rule.Action.Valid() {
			return nil, fmt.Errorf(
				"config %s: category %q has unknown action %q",
				path, rule.Name, rule.Action,
			)
		}
		if rule.Action == ActionMove && rule.TargetFolder == "" {
			return nil, fmt.Errorf(
				"config %s: category %q uses action move without target_folder",
				path, rule.Name,
			)
		}
	}

	return cfg, nil
}

// SaveConfig writes the configuration as YAML to path, creating the parent
// directory if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config %s: %w", path, err)
	}

	return nil
}
