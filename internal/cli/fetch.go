package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

func newFetchCmd() *cobra.Command {
	var (
		days     int
		limit    int
		fetchAll bool
		mailbox  string
	)

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch and display recent messages (read-only)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			if days <= 0 {
				days = cfg.Fetch.DaysBack
			}
			if limit <= 0 {
				limit = cfg.Fetch.MaxMessages
			}
			if mailbox == "" {
				mailbox = cfg.Fetch.Mailbox
			}
			unreadOnly := cfg.Fetch.UnreadOnly && !fetchAll

			logger := newLogger()
			history, err := openHistory()
			if err != nil {
				return err
			}
			defer history.Close()

			excluded, err := history.UIDs(cmd.Context(), mailbox)
			if err != nil {
				return err
			}

			session, err := openSession(cfg, logger)
			if err != nil {
				return err
			}
			defer session.Close()

			messages, err := session.FetchRecent(
				cmd.Context(), mailbox, days, limit, unreadOnly, excluded,
			)
			if err != nil {
				return err
			}

			if len(messages) == 0 {
				fmt.Println(dimStyle.Render("No messages found."))
				return nil
			}

			fmt.Println(titleStyle.Render(fmt.Sprintf("Recent messages (%d)", len(messages))))
			rows := make([][]string, 0, len(messages))
			for _, m := range messages {
				date := ""
				if !m.Date.IsZero() {
					date = m.Date.Format("01/02 15:04")
				}
				rows = append(rows, []string{
					strconv.FormatUint(uint64(m.UID), 10),
					date,
					truncate(m.Sender, 25),
					truncate(m.Subject, 50),
					dimStyle.Render(strings.Join(m.Flags, " ")),
				})
			}
			printTable([]string{"UID", "Date", "From", "Subject", "Flags"}, rows)
			return nil
		},
	}

	cmd.Flags().IntVar(&days, "days", 0, "days back to fetch")
	cmd.Flags().IntVar(&limit, "limit", 0, "max messages to fetch")
	cmd.Flags().BoolVar(&fetchAll, "all", false, "include read messages")
	cmd.Flags().StringVar(&mailbox, "mailbox", "", "mailbox to fetch from")

	return cmd
}
