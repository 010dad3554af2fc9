// Package triage orchestrates one run: fetch recent messages, classify
// them, resolve judgments into actions, and execute the actions against
// the mailbox. Everything is strictly sequential; per-message failures
// never abort the rest of a batch.
package triage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nhle/mail-triage/internal/classifier"
	"github.com/nhle/mail-triage/internal/model"
	"github.com/nhle/mail-triage/internal/processed"
	"github.com/nhle/mail-triage/internal/resolver"
)

// Mailbox is the session surface the pipeline needs.
type Mailbox interface {
	FetchRecent(
		ctx context.Context,
		mailbox string,
		daysBack, maxCount int,
		unreadOnly bool,
		excludedUIDs map[uint32]struct{},
	) ([]model.MessageSummary, error)
	SelectMailbox(mailbox string) error
	ExecuteAction(ctx context.Context, uid uint32, action model.ActionType, targetFolder string) error
	ListFolders() []string
}

// Oracle is the classification surface the pipeline needs.
type Oracle interface {
	Classify(
		ctx context.Context,
		messages []model.MessageSummary,
		rules []model.CategoryRule,
		systemPrompt string,
	) ([]model.Judgment, classifier.Usage, error)
	SuggestCategories(
		ctx context.Context,
		messages []model.MessageSummary,
		rules []model.CategoryRule,
		actions []model.ResolvedAction,
		suggestionsPrompt string,
	) ([]model.CategorySuggestion, classifier.Usage, error)
	Model() string
}

// History is the processed-UID bookkeeping surface the pipeline needs.
type History interface {
	UIDs(ctx context.Context, mailbox string) (map[uint32]struct{}, error)
	Add(ctx context.Context, mailbox string, uids []uint32, runID string) (int, error)
	RecordRun(ctx context.Context, run processed.Run) error
}

// FetchOptions selects the candidate messages for one run.
type FetchOptions struct {
	Mailbox     string
	DaysBack    int
	MaxMessages int
	UnreadOnly  bool
}

// Plan is the outcome of fetch + classify + resolve, before anything is
// executed.
type Plan struct {
	Mailbox        string
	Messages       []model.MessageSummary
	ByUID          map[uint32]model.MessageSummary
	SkippedFlagged int
	Actions        []model.ResolvedAction
	Usage          classifier.Usage
	StartedAt      time.Time
}

// Actionable returns the plan's actions that mutate the mailbox, in
// execution order (flags before destructive actions).
func (p *Plan) Actionable() []model.ResolvedAction {
	actions := resolver.Actionable(p.Actions)
	resolver.SortForExecution(actions)
	return actions
}

// ActionResult records the outcome of one attempted mutation.
type ActionResult struct {
	Action model.ResolvedAction
	Err    error
}

// Result summarizes an executed run.
type Result struct {
	RunID     string
	Succeeded int
	Failed    int
	Recorded  int
	Outcomes  []ActionResult
}

// Pipeline wires the session, classifier, and history store together for
// one mailbox.
type Pipeline struct {
	Mailbox Mailbox
	Oracle  Oracle
	History History

	Rules        []model.CategoryRule
	SystemPrompt string
	Logger       *zap.Logger
}

func (p *Pipeline) logger() *zap.Logger {
	if p.Logger == nil {
		return zap.NewNop()
	}
	return p.Logger
}

// Plan fetches recent messages (minus the already-processed exclusion
// set), skips messages that are already flagged, classifies the rest,
// and resolves judgments into an ordered action list.
func (p *Pipeline) Plan(ctx context.Context, opts FetchOptions) (*Plan, error) {
	startedAt := time.Now().UTC()

	excluded, err := p.History.UIDs(ctx, opts.Mailbox)
	if err != nil {
		return nil, err
	}

	messages, err := p.Mailbox.FetchRecent(
		ctx, opts.Mailbox, opts.DaysBack, opts.MaxMessages,
		opts.UnreadOnly, excluded,
	)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", opts.Mailbox, err)
	}

	plan := &Plan{
		Mailbox:   opts.Mailbox,
		Messages:  messages,
		ByUID:     model.MessagesByUID(messages),
		StartedAt: startedAt,
	}
	if len(messages) == 0 {
		return plan, nil
	}

	// Already-flagged messages were triaged by hand; classifying them
	// again wastes tokens.
	toClassify := make([]model.MessageSummary, 0, len(messages))
	for _, m := range messages {
		if m.HasFlag("flagged") {
			plan.SkippedFlagged++
			continue
		}
		toClassify = append(toClassify, m)
	}
	if len(toClassify) == 0 {
		return plan, nil
	}

	judgments, usage, err := p.Oracle.Classify(ctx, toClassify, p.Rules, p.SystemPrompt)
	if err != nil {
		return nil, fmt.Errorf("classifying batch: %w", err)
	}
	plan.Usage = usage

	actions := resolver.Resolve(judgments, p.Rules, plan.ByUID, time.Now().UTC())
	if dropped := len(judgments) - len(actions); dropped > 0 {
		p.logger().Debug("judgments dropped during resolution",
			zap.Int("dropped", dropped),
		)
	}
	plan.Actions = actions

	return plan, nil
}

// VerifyTargets checks that every folder the plan's destructive actions
// reference exists on the store. Running a move against a missing folder
// mid-batch would strand messages half-processed; failing the whole
// batch up front is safer.
func (p *Pipeline) VerifyTargets(plan *Plan) error {
	needed := make(map[string]bool)
	for _, a := range plan.Actionable() {
		if a.TargetFolder != "" {
			needed[a.TargetFolder] = true
		}
	}
	if len(needed) == 0 {
		return nil
	}

	existing := make(map[string]bool)
	for _, name := range p.Mailbox.ListFolders() {
		existing[name] = true
	}

	var missing []string
	for name := range needed {
		if !existing[name] {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("missing folders: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Execute selects the mailbox read-write and applies the plan's actions
// in order. Individual failures are recorded and do not stop the batch.
// Afterwards it extends the exclusion set with every UID that was either
// successfully mutated or resolved to none, and appends the run to the
// history.
func (p *Pipeline) Execute(ctx context.Context, plan *Plan) (*Result, error) {
	result := &Result{RunID: uuid.NewString()}

	actionable := plan.Actionable()
	if len(actionable) > 0 {
		if err := p.Mailbox.SelectMailbox(plan.Mailbox); err != nil {
			return nil, err
		}
	}

	processedNow := make([]uint32, 0, len(plan.Actions))
	for _, a := range plan.Actions {
		if a.Action == model.ActionNone {
			processedNow = append(processedNow, a.EmailUID)
		}
	}

	for _, a := range actionable {
		err := p.Mailbox.ExecuteAction(ctx, a.EmailUID, a.Action, a.TargetFolder)
		result.Outcomes = append(result.Outcomes, ActionResult{Action: a, Err: err})
		if err != nil {
			result.Failed++
			p.logger().Warn("action failed",
				zap.Uint32("uid", a.EmailUID),
				zap.String("action", string(a.Action)),
				zap.Error(err),
			)
			continue
		}
		result.Succeeded++
		processedNow = append(processedNow, a.EmailUID)

		if ctx.Err() != nil {
			// Stop issuing further operations; the current one finished.
			break
		}
	}

	recorded, err := p.History.Add(ctx, plan.Mailbox, processedNow, result.RunID)
	if err != nil {
		return result, fmt.Errorf("recording processed uids: %w", err)
	}
	result.Recorded = recorded

	run := processed.Run{
		ID:           result.RunID,
		Mailbox:      plan.Mailbox,
		Model:        p.Oracle.Model(),
		StartedAt:    plan.StartedAt,
		FinishedAt:   time.Now().UTC(),
		Fetched:      len(plan.Messages),
		Classified:   len(plan.Actions),
		Succeeded:    result.Succeeded,
		Failed:       result.Failed,
		InputTokens:  plan.Usage.InputTokens,
		OutputTokens: plan.Usage.OutputTokens,
	}
	if err := p.History.RecordRun(ctx, run); err != nil {
		return result, err
	}

	return result, nil
}
