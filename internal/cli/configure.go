package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/nhle/mail-triage/internal/credential"
	"github.com/nhle/mail-triage/internal/model"
)

func newConfigureCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "configure",
		Short: "Interactive setup: email, app password, API key",
		RunE:  runConfigure,
	}
}

func runConfigure(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	email := cfg.IMAP.Email
	var password, apiKey string

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Email address").
				Description("The mailbox to triage").
				Value(&email).
				Validate(func(s string) error {
					if !strings.Contains(s, "@") {
						return fmt.Errorf("not an email address")
					}
					return nil
				}),
			huh.NewInput().
				Title("IMAP app password").
				Description("Gmail requires an App Password, not your account password (myaccount.google.com/apppasswords)").
				EchoMode(huh.EchoModePassword).
				Value(&password),
			huh.NewInput().
				Title("Anthropic API key").
				EchoMode(huh.EchoModePassword).
				Value(&apiKey),
		),
	)
	if err := form.Run(); err != nil {
		return err
	}

	cfg.IMAP.Email = email
	if err := saveSecrets(password, apiKey); err != nil {
		return err
	}
	if err := saveConfig(cfg); err != nil {
		return err
	}
	fmt.Println(okStyle.Render("Config saved to " + configPath()))

	logger := newLogger()

	fmt.Print("Testing IMAP connection... ")
	session, err := openSession(cfg, logger)
	if err != nil {
		fmt.Println(failStyle.Render("FAILED: " + err.Error()))
	} else {
		defer session.Close()
		if err := session.Check(); err != nil {
			fmt.Println(failStyle.Render("FAILED: " + err.Error()))
		} else {
			fmt.Println(okStyle.Render("OK"))
		}
	}

	fmt.Print("Testing Anthropic API... ")
	oracle, err := newClassifier(cfg, "", logger)
	if err != nil {
		fmt.Println(failStyle.Render("FAILED: " + err.Error()))
		return nil
	}
	if err := oracle.Ping(context.Background()); err != nil {
		fmt.Println(failStyle.Render("FAILED: " + err.Error()))
		return nil
	}
	fmt.Println(okStyle.Render("OK"))

	fmt.Println(titleStyle.Render("\nSetup complete."))
	return nil
}

func saveSecrets(password, apiKey string) error {
	if password != "" {
		if err := credential.Set(credential.KeyIMAPPassword, password); err != nil {
			return err
		}
	}
	if apiKey != "" {
		if err := credential.Set(credential.KeyAnthropicAPI, apiKey); err != nil {
			return err
		}
	}
	return nil
}

func saveConfig(cfg *model.AppConfig) error {
	return model.SaveConfig(configPath(), cfg)
}
