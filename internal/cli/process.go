package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/nhle/mail-triage/internal/model"
	"github.com/nhle/mail-triage/internal/triage"
)

func newProcessCmd() *cobra.Command {
	var (
		dryRun       bool
		yes          bool
		days         int
		limit        int
		fetchAll     bool
		mailbox      string
		compareModel string
	)

	cmd := &cobra.Command{
		Use:   "process",
		Short: "Fetch, classify, confirm, and execute actions",
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

			logger := newLogger()

			history, err := openHistory()
			if err != nil {
				return err
			}
			defer history.Close()

			session, err := openSession(cfg, logger)
			if err != nil {
				return err
			}
			defer session.Close()

			oracle, err := newClassifier(cfg, "", logger)
			if err != nil {
				return err
			}

			pipeline := &triage.Pipeline{
				Mailbox:      session,
				Oracle:       oracle,
				History:      history,
				Rules:        cfg.Categories,
				SystemPrompt: cfg.Prompts.System,
				Logger:       logger,
			}

			fmt.Println(titleStyle.Render("Fetching messages..."))
			plan, err := pipeline.Plan(cmd.Context(), triage.FetchOptions{
				Mailbox:     mailbox,
				DaysBack:    days,
				MaxMessages: limit,
				UnreadOnly:  cfg.Fetch.UnreadOnly && !fetchAll,
			})
			if err != nil {
				return err
			}

			if len(plan.Messages) == 0 {
				fmt.Println(dimStyle.Render("No messages to process."))
				return nil
			}
			if plan.SkippedFlagged > 0 {
				fmt.Printf("Found %d message(s), %d already flagged (skipping).\n",
					len(plan.Messages), plan.SkippedFlagged)
			} else {
				fmt.Printf("Found %d message(s).\n", len(plan.Messages))
			}
			if len(plan.Actions) == 0 {
				fmt.Println(dimStyle.Render("Nothing to classify."))
				return nil
			}

			fmt.Println(dimStyle.Render(fmt.Sprintf(
				"%s tokens: %d in / %d out (%d total)",
				oracle.Model(), plan.Usage.InputTokens,
				plan.Usage.OutputTokens, plan.Usage.Total(),
			)))

			if compareModel != "" {
				return runCompare(cmd, cfg, plan, compareModel)
			}

			printActions(plan)

			if dryRun {
				fmt.Println(dimStyle.Render("\nDry run — no actions executed."))
				printSuggestions(cmd, cfg, pipeline, plan)
				return nil
			}

			actionable := plan.Actionable()
			if len(actionable) == 0 {
				result, err := pipeline.Execute(cmd.Context(), plan)
				if err != nil {
					return err
				}
				if result.Recorded > 0 {
					fmt.Println(dimStyle.Render(fmt.Sprintf("Recorded %d UID(s).", result.Recorded)))
				}
				fmt.Println(dimStyle.Render("No actions to execute (all classified as 'none')."))
				return nil
			}

			if err := pipeline.VerifyTargets(plan); err != nil {
				return fmt.Errorf("%w — create the folders before running again", err)
			}

			if !yes {
				confirmed := false
				prompt := huh.NewConfirm().
					Title(fmt.Sprintf("Execute %d action(s)?", len(actionable))).
					Value(&confirmed)
				if err := prompt.Run(); err != nil {
					return err
				}
				if !confirmed {
					fmt.Println(dimStyle.Render("Aborted."))
					return nil
				}
			}

			fmt.Println(titleStyle.Render("\nExecuting actions..."))
			result, err := pipeline.Execute(cmd.Context(), plan)
			if err != nil {
				return err
			}

			for _, outcome := range result.Outcomes {
				label := subjectFor(plan, outcome.Action.EmailUID)
				if outcome.Err != nil {
					fmt.Printf("  %s UID %d: %v\n", failStyle.Render("✗"), outcome.Action.EmailUID, outcome.Err)
					continue
				}
				fmt.Printf("  %s %s: %s\n", okStyle.Render("✓"), outcome.Action.Action, truncate(label, 40))
			}

			fmt.Printf("\n%s %d succeeded, %d failed.\n",
				titleStyle.Render("Done:"), result.Succeeded, result.Failed)
			if result.Recorded > 0 {
				fmt.Println(dimStyle.Render(fmt.Sprintf("Recorded %d UID(s).", result.Recorded)))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "show proposals without executing")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip confirmation prompt")
	cmd.Flags().IntVar(&days, "days", 0, "days back to fetch")
	cmd.Flags().IntVar(&limit, "limit", 0, "max messages to process")
	cmd.Flags().BoolVar(&fetchAll, "all", false, "include read messages")
	cmd.Flags().StringVar(&mailbox, "mailbox", "", "process this mailbox instead of the configured one")
	cmd.Flags().StringVar(&compareModel, "compare", "", "compare with an alternate model (e.g. haiku, opus)")

	return cmd
}

func subjectFor(plan *triage.Plan, uid uint32) string {
	if msg, ok := plan.ByUID[uid]; ok {
		return msg.Subject
	}
	return fmt.Sprintf("UID %d", uid)
}

func printActions(plan *triage.Plan) {
	fmt.Println()
	fmt.Println(titleStyle.Render("Proposed actions"))
	rows := make([][]string, 0, len(plan.Actions))
	for _, a := range plan.Actions {
		rows = append(rows, []string{
			strconv.FormatUint(uint64(a.EmailUID), 10),
			truncate(subjectFor(plan, a.EmailUID), 40),
			a.Category,
			fmt.Sprintf("%.0f%%", a.Confidence*100),
			styledAction(a.Action),
			a.TargetFolder,
			truncate(a.Reasoning, 50),
		})
	}
	printTable(
		[]string{"UID", "Subject", "Category", "Conf", "Action", "Target", "Reasoning"},
		rows,
	)
}

// printSuggestions asks the classifier for new category ideas. Dry runs
// only; suggestions are never applied.
func printSuggestions(cmd *cobra.Command, cfg *model.AppConfig, pipeline *triage.Pipeline, plan *triage.Plan) {
	fmt.Println(titleStyle.Render("\nSuggesting new categories..."))
	suggestions, usage, err := pipeline.Oracle.SuggestCategories(
		cmd.Context(), plan.Messages, cfg.Categories, plan.Actions,
		cfg.Prompts.Suggestions,
	)
	if err != nil {
		fmt.Println(dimStyle.Render("Could not generate suggestions: " + err.Error()))
		return
	}
	fmt.Println(dimStyle.Render(fmt.Sprintf(
		"Suggestions tokens: %d in / %d out", usage.InputTokens, usage.OutputTokens,
	)))

	if len(suggestions) == 0 {
		fmt.Println(dimStyle.Render("No new categories suggested — current rules look good."))
		return
	}

	rows := make([][]string, 0, len(suggestions))
	for _, s := range suggestions {
		uids := make([]string, 0, len(s.ExampleUIDs))
		for _, uid := range s.ExampleUIDs {
			uids = append(uids, strconv.FormatUint(uint64(uid), 10))
			if len(uids) == 3 {
				break
			}
		}
		rows = append(rows, []string{
			s.Name,
			truncate(s.Description, 40),
			styledAction(s.SuggestedAction),
			truncate(s.Reasoning, 40),
			strings.Join(uids, ", "),
		})
	}
	printTable([]string{"Name", "Description", "Action", "Reasoning", "Examples"}, rows)
}

// runCompare classifies the same batch with an alternate model and shows
// where the two models agree. Compare mode never executes actions.
func runCompare(cmd *cobra.Command, cfg *model.AppConfig, plan *triage.Plan, alias string) error {
	logger := newLogger()
	alt, err := newClassifier(cfg, alias, logger)
	if err != nil {
		return err
	}

	fmt.Printf("\nClassifying with alternate model %s...\n", titleStyle.Render(alt.Model()))

	toClassify := make([]model.MessageSummary, 0, len(plan.Messages))
	for _, m := range plan.Messages {
		if !m.HasFlag("flagged") {
			toClassify = append(toClassify, m)
		}
	}

	altJudgments, usage, err := alt.Classify(
		cmd.Context(), toClassify, cfg.Categories, cfg.Prompts.System,
	)
	if err != nil {
		return fmt.Errorf("alternate model classification: %w", err)
	}
	fmt.Println(dimStyle.Render(fmt.Sprintf(
		"%s tokens: %d in / %d out (%d total)",
		alt.Model(), usage.InputTokens, usage.OutputTokens, usage.Total(),
	)))

	primary := make(map[uint32]model.ResolvedAction, len(plan.Actions))
	for _, a := range plan.Actions {
		primary[a.EmailUID] = a
	}
	altByUID := make(map[uint32]model.Judgment, len(altJudgments))
	for _, j := range altJudgments {
		altByUID[j.EmailUID] = j
	}

	matches, total := 0, 0
	rows := make([][]string, 0, len(toClassify))
	for _, m := range toClassify {
		pCat, aCat := "—", "—"
		pConf, aConf := "—", "—"
		if pa, ok := primary[m.UID]; ok {
			pCat = pa.Category
			pConf = fmt.Sprintf("%.0f%%", pa.Confidence*100)
		}
		if aj, ok := altByUID[m.UID]; ok {
			aCat = aj.Category
			aConf = fmt.Sprintf("%.0f%%", aj.Confidence*100)
		}
		total++
		mark := failStyle.Render("✗")
		if pCat == aCat {
			matches++
			mark = okStyle.Render("✓")
		}
		rows = append(rows, []string{
			strconv.FormatUint(uint64(m.UID), 10),
			truncate(m.Subject, 40),
			pCat, pConf, aCat, aConf, mark,
		})
	}

	fmt.Println()
	printTable(
		[]string{"UID", "Subject", "Primary", "Conf", "Alt", "Conf", "Match"},
		rows,
	)
	fmt.Printf("\n%s messages matched between the two models.\n",
		titleStyle.Render(fmt.Sprintf("%d/%d", matches, total)))
	fmt.Println(dimStyle.Render("Compare mode — no actions executed."))
	return nil
}
