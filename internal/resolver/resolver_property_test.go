package resolver

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/nhle/mail-triage/internal/model"
)

// For any rule without an age gate, resolution must not depend on the
// reference time.
func TestProperty_NoAgeGateIndependentOfNow(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	rules := []model.CategoryRule{
		{Name: "important", Action: model.ActionFlag},
		{Name: "spam", Action: model.ActionTrash},
	}

	properties.Property("resolution_independent_of_now", prop.ForAll(
		func(uid uint32, pickSpam bool, offsetHours int) bool {
			category := "important"
			if pickSpam {
				category = "spam"
			}
			messages := map[uint32]model.MessageSummary{
				uid: {UID: uid, Date: time.Unix(1700000000, 0).UTC()},
			}
			judgments := []model.Judgment{{EmailUID: uid, Category: category, Confidence: 0.5}}

			now1 := time.Unix(1800000000, 0).UTC()
			now2 := now1.Add(time.Duration(offsetHours) * time.Hour)

			a1 := Resolve(judgments, rules, messages, now1)
			a2 := Resolve(judgments, rules, messages, now2)
			return len(a1) == 1 && len(a2) == 1 &&
				a1[0].Action == a2[0].Action &&
				a1[0].TargetFolder == a2[0].TargetFolder
		},
		gen.UInt32(),
		gen.Bool(),
		gen.IntRange(-1000, 1000),
	))

	properties.TestingRun(t)
}

// With an age gate of M minutes, the resolved action is none exactly
// when the message is younger than M; ages of M or more keep the rule's
// action.
func TestProperty_AgeGateThreshold(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("none_iff_younger_than_gate", prop.ForAll(
		func(gateMinutes int, ageMinutes int) bool {
			gate := gateMinutes
			rules := []model.CategoryRule{{
				Name:             "stale",
				Action:           model.ActionArchive,
				OlderThanMinutes: &gate,
			}}

			now := time.Unix(1800000000, 0).UTC()
			messages := map[uint32]model.MessageSummary{
				1: {UID: 1, Date: now.Add(-time.Duration(ageMinutes) * time.Minute)},
			}
			judgments := []model.Judgment{{EmailUID: 1, Category: "stale", Confidence: 0.5}}

			actions := Resolve(judgments, rules, messages, now)
			if len(actions) != 1 {
				return false
			}
			if ageMinutes < gateMinutes {
				return actions[0].Action == model.ActionNone
			}
			return actions[0].Action == model.ActionArchive
		},
		gen.IntRange(0, 10000),
		gen.IntRange(0, 10000),
	))

	properties.TestingRun(t)
}

// Judgments naming a category absent from the rule table never produce
// an action.
func TestProperty_UnknownCategoryNeverResolves(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	rules := []model.CategoryRule{{Name: "known", Action: model.ActionFlag}}

	properties.Property("unknown_category_dropped", prop.ForAll(
		func(category string, uid uint32) bool {
			if category == "known" {
				return true
			}
			messages := map[uint32]model.MessageSummary{uid: {UID: uid}}
			judgments := []model.Judgment{{EmailUID: uid, Category: category, Confidence: 0.5}}
			return len(Resolve(judgments, rules, messages, time.Now().UTC())) == 0
		},
		gen.AlphaString(),
		gen.UInt32(),
	))

	properties.TestingRun(t)
}
