package imports

import "fmt"

// Strategy decides what happens when an incoming row matches an existing
// record.
type Strategy string

const (
	// StrategySkip leaves matched records untouched.
	StrategySkip Strategy = "skip"
	// StrategyCreateNew always inserts, even when a match exists.
	StrategyCreateNew Strategy = "create_new"
	// StrategyUpdateExisting overwrites the matched record's mapped fields.
	StrategyUpdateExisting Strategy = "update_existing"
)

func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case StrategySkip, StrategyCreateNew, StrategyUpdateExisting:
		return Strategy(s), nil
	}
	return "", fmt.Errorf("unknown duplicate strategy %q", s)
}

// Action is the planned outcome for one row.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionSkip   Action = "skip"
)

// Apply resolves the action for a row given whether a duplicate was found.
// Unmatched rows always create regardless of strategy.
func (s Strategy) Apply(matched bool) Action {
	if !matched {
		return ActionCreate
	}
	switch s {
	case StrategyCreateNew:
		return ActionCreate
	case StrategyUpdateExisting:
		return ActionUpdate
	default:
		return ActionSkip
	}
}
