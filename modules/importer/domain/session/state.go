package session

import "fmt"

// State tracks an import session through its lifecycle. Failed is terminal:
// no event leaves it.
type State string

const (
	StateUploaded  State = "uploaded"
	StateMapped    State = "mapped"
	StateReviewed  State = "reviewed"
	StatePreviewed State = "previewed"
	StateCommitted State = "committed"
	StateFailed    State = "failed"
)

type Event string

const (
	EventMappingConfirmed Event = "mapping_confirmed"
	EventReviewCompleted  Event = "review_completed"
	EventPreviewReady     Event = "preview_ready"
	EventCommitFinished   Event = "commit_finished"
	EventFailed           Event = "failed"
)

var transitions = map[State]map[Event]State{
	StateUploaded: {
		EventMappingConfirmed: StateMapped,
		EventFailed:           StateFailed,
	},
	StateMapped: {
		EventReviewCompleted: StateReviewed,
		EventFailed:          StateFailed,
	},
	StateReviewed: {
		EventPreviewReady: StatePreviewed,
		EventFailed:       StateFailed,
	},
	StatePreviewed: {
		EventCommitFinished: StateCommitted,
		EventFailed:         StateFailed,
	},
}

// Next applies an event to a state. It is a pure function: invalid
// transitions return an error and leave the caller's state untouched.
func Next(current State, event Event) (State, error) {
	next, ok := transitions[current][event]
	if !ok {
		return current, fmt.Errorf("cannot apply %q in state %q", event, current)
	}
	return next, nil
}

func (s State) IsTerminal() bool {
	return s == StateCommitted || s == StateFailed
}
