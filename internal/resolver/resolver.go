// Package resolver turns raw classification judgments into executable
// mailbox actions according to the user's rule table. It performs no I/O
// and is deterministic given a fixed reference time.
package resolver

import (
	"sort"
	"time"

	"github.com/nhle/mail-triage/internal/model"
)

// Resolve maps each judgment to a ResolvedAction using the rule table.
//
// Judgments referencing a UID absent from messages (stale or mismatched
// classifier output) or a category with no matching rule (hallucinated
// category) are dropped silently. A rule's age gate downgrades the action
// to none when the message is younger than the threshold; messages with
// no known timestamp skip the gate, since absence of data must not block
// resolution.
func Resolve(
	judgments []model.Judgment,
	rules []model.CategoryRule,
	messages map[uint32]model.MessageSummary,
	now time.Time,
) []model.ResolvedAction {
	byName := model.RulesByName(rules)

	actions := make([]model.ResolvedAction, 0, len(judgments))
	for _, j := range judgments {
		msg, ok := messages[j.EmailUID]
		if !ok {
			continue
		}
		rule, ok := byName[j.Category]
		if !ok {
			continue
		}

		action := rule.Action
		target := rule.TargetFolder

		if rule.OlderThanMinutes != nil && !msg.Date.IsZero() {
			if ageMinutes(now, msg.Date) < float64(*rule.OlderThanMinutes) {
				action = model.ActionNone
				target = ""
			}
		}

		actions = append(actions, model.ResolvedAction{
			EmailUID:     j.EmailUID,
			Category:     j.Category,
			Confidence:   j.Confidence,
			Reasoning:    j.Reasoning,
			Action:       action,
			TargetFolder: target,
		})
	}

	return actions
}

// ageMinutes measures how old a message is at the reference time. A
// timestamp with no explicit zone was already normalized to UTC by the
// parser.
func ageMinutes(now, date time.Time) float64 {
	return now.Sub(date).Minutes()
}

// Actionable filters out none actions.
func Actionable(actions []model.ResolvedAction) []model.ResolvedAction {
	out := make([]model.ResolvedAction, 0, len(actions))
	for _, a := range actions {
		if a.Action != model.ActionNone {
			out = append(out, a)
		}
	}
	return out
}

// SortForExecution orders a batch so that non-destructive flag actions
// run before move/trash/archive. An expunge changes the valid UID set of
// the selected mailbox; flagging first reduces the chance a destructive
// action invalidates a UID still awaiting a flag. The sort is stable, so
// relative order within each group is preserved.
func SortForExecution(actions []model.ResolvedAction) {
	sort.SliceStable(actions, func(i, j int) bool {
		return rank(actions[i].Action) < rank(actions[j].Action)
	})
}

func rank(a model.ActionType) int {
	if a == model.ActionFlag {
		return 0
	}
	return 1
}
