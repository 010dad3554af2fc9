package cli

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/spf13/cobra"
)

func newRulesCmd() *cobra.Command {
	var edit bool

	cmd := &cobra.Command{
		Use:   "rules",
		Short: "View current triage rules or edit the config",
		RunE: func(_ *cobra.Command, _ []string) error {
			if edit {
				return editConfig()
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			if len(cfg.Categories) == 0 {
				fmt.Println(dimStyle.Render("No rules configured."))
				return nil
			}

			fmt.Println(titleStyle.Render("Triage rules"))
			rows := make([][]string, 0, len(cfg.Categories))
			for _, r := range cfg.Categories {
				age := ""
				if r.OlderThanMinutes != nil {
					age = fmt.Sprintf("%dm", *r.OlderThanMinutes)
				}
				rows = append(rows, []string{
					r.Name,
					truncate(r.Description, 50),
					styledAction(r.Action),
					r.TargetFolder,
					dimStyle.Render(age),
				})
			}
			printTable([]string{"Category", "Description", "Action", "Target", "Age gate"}, rows)

			fmt.Println()
			fmt.Println(dimStyle.Render("System prompt: " + truncate(cfg.Prompts.System, 100)))
			fmt.Println(dimStyle.Render("Config file:   " + configPath()))
			return nil
		},
	}

	cmd.Flags().BoolVar(&edit, "edit", false, "open the config in $EDITOR")
	return cmd
}

func editConfig() error {
	path := configPath()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := saveConfig(cfg); err != nil {
			return err
		}
		fmt.Println(dimStyle.Render("Created default config at " + path))
	}

	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = "vi"
	}
	ed := exec.Command(editor, path)
	ed.Stdin = os.Stdin
	ed.Stdout = os.Stdout
	ed.Stderr = os.Stderr
	return ed.Run()
}
