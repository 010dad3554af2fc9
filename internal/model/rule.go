package model

// ActionType identifies the mailbox mutation a rule maps a category to.
type ActionType string

// Supported actions.
const (
	ActionNone    ActionType = "none"
	ActionFlag    ActionType = "flag"
	ActionMove    ActionType = "move"
	ActionTrash   ActionType = "trash"
	ActionArchive ActionType = "archive"
)

// Valid reports whether a is one of the supported actions.
func (a ActionType) Valid() bool {
	switch a {
	case ActionNone, ActionFlag, ActionMove, ActionTrash, ActionArchive:
		return true
	}
	return false
}

// Destructive reports whether the action removes the message from the
// currently selected mailbox (and therefore triggers an expunge).
func (a ActionType) Destructive() bool {
	switch a {
	case ActionMove, ActionTrash, ActionArchive:
		return true
	}
	return false
}

// CategoryRule is one row of user triage policy. The name is matched
// against classifier output; the description is fed to the classifier as
// context. TargetFolder is only meaningful when Action is "move".
// OlderThanMinutes, when set, gates the action on message age.
type CategoryRule struct {
	Name             string     `mapstructure:"name" yaml:"name"`
	Description      string     `mapstructure:"description" yaml:"description"`
	Action           ActionType `mapstructure:"action" yaml:"action"`
	TargetFolder     string     `mapstructure:"target_folder" yaml:"target_folder,omitempty"`
	OlderThanMinutes *int       `mapstructure:"older_than_minutes" yaml:"older_than_minutes,omitempty"`
}

// RulesByName indexes a rule table by category name.
func RulesByName(rules []CategoryRule) map[string]CategoryRule {
	byName := make(map[string]CategoryRule, len(rules))
	for _, r := range rules {
		byName[r.Name] = r
	}
	return byName
}

// Judgment is the classifier's categorical output for one message, prior
// to rule resolution.
type Judgment struct {
	EmailUID   uint32  `json:"email_uid"`
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

// ResolvedAction is the concrete mutation (or no-op) derived from a
// judgment plus the rule table plus time context. Immutable once produced.
type ResolvedAction struct {
	EmailUID     uint32
	Category     string
	Confidence   float64
	Reasoning    string
	Action       ActionType
	TargetFolder string
}

// CategorySuggestion is a classifier-proposed new category. Suggestions
// are guidance for the user; they are never applied automatically.
type CategorySuggestion struct {
	Name            string     `json:"name"`
	Description     string     `json:"description"`
	SuggestedAction ActionType `json:"suggested_action"`
	ExampleUIDs     []uint32   `json:"example_uids"`
	Reasoning       string     `json:"reasoning"`
}
