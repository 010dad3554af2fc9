package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newFoldersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "folders",
		Short: "List all mailbox folders",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			session, err := openSession(cfg, newLogger())
			if err != nil {
				return err
			}
			defer session.Close()

			folders := session.ListFolders()
			if len(folders) == 0 {
				fmt.Println(dimStyle.Render("No folders found."))
				return nil
			}

			fmt.Println(titleStyle.Render(fmt.Sprintf("Folders (%d)", len(folders))))
			for _, name := range folders {
				fmt.Println("  " + name)
			}
			return nil
		},
	}
}
