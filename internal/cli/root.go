// Package cli implements the mailtriage command tree.
package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nhle/mail-triage/internal/classifier"
	"github.com/nhle/mail-triage/internal/credential"
	"github.com/nhle/mail-triage/internal/mail"
	"github.com/nhle/mail-triage/internal/model"
	"github.com/nhle/mail-triage/internal/processed"
)

var (
	// version is set via ldflags at build time.
	version = "dev"

	cfgFile string
	verbose bool
)

// modelAliases maps short names to full model IDs.
var modelAliases = map[string]string{
	"haiku":  "claude-haiku-4-5",
	"sonnet": "claude-sonnet-4-5",
	"opus":   "claude-opus-4-1",
}

// resolveModel expands a short model alias to a full model ID.
func resolveModel(name string) string {
	if full, ok := modelAliases[name]; ok {
		return full
	}
	return name
}

// NewRootCmd builds the mailtriage command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "mailtriage",
		Short:         "AI-assisted email triage",
		Long:          "Fetches recent mail over IMAP, classifies it with Claude, and files it according to your rules.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.config/mailtriage/config.yaml)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newConfigureCmd(),
		newFetchCmd(),
		newProcessCmd(),
		newRulesCmd(),
		newFoldersCmd(),
	)

	return root
}

func configPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	return model.DefaultConfigPath()
}

func loadConfig() (*model.AppConfig, error) {
	return model.LoadConfig(configPath())
}

func newLogger() *zap.Logger {
	if !verbose {
		return zap.NewNop()
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// openSession dials the configured IMAP server with the stored password.
func openSession(cfg *model.AppConfig, logger *zap.Logger) (*mail.Session, error) {
	password, err := credential.Get(credential.KeyIMAPPassword)
	if err != nil {
		return nil, fmt.Errorf("no IMAP password found (run: mailtriage configure): %w", err)
	}

	return mail.Dial(mail.Options{
		Host:        cfg.IMAP.Host,
		Port:        cfg.IMAP.Port,
		Username:    cfg.IMAP.Email,
		Password:    password,
		TrashFolder: cfg.IMAP.TrashFolder,
		Logger:      logger,
	})
}

// newClassifier builds a classifier for the configured (or overridden)
// model using the stored API key.
func newClassifier(cfg *model.AppConfig, modelOverride string, logger *zap.Logger) (*classifier.Classifier, error) {
	apiKey, err := credential.Get(credential.KeyAnthropicAPI)
	if err != nil {
		return nil, fmt.Errorf("no Anthropic API key found (run: mailtriage configure): %w", err)
	}

	modelName := cfg.Anthropic.Model
	if modelOverride != "" {
		modelName = resolveModel(modelOverride)
	}
	return classifier.New(apiKey, modelName, cfg.Anthropic.MaxTokens, logger), nil
}

// openHistory opens the processed-UID database next to the config file.
func openHistory() (*processed.Store, error) {
	return processed.NewStore(filepath.Join(filepath.Dir(configPath()), "processed.db"))
}
