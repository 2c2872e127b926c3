package batch

import "fmt"

// State is the lifecycle position of one macro-tile within a run.
type State int

const (
	StatePending State = iota
	StateDownloading
	StateProcessing
	StateComplete
	StateFailed
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "PENDING"
	case StateDownloading:
		return "DOWNLOADING"
	case StateProcessing:
		return "PROCESSING"
	case StateComplete:
		return "COMPLETE"
	case StateFailed:
		return "FAILED"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// IsTerminal reports whether no further transition is possible.
func (s State) IsTerminal() bool {
	return s == StateComplete || s == StateFailed
}

func isAllowedTransition(from, to State) bool {
	switch from {
	case StatePending:
		return to == StateDownloading
	case StateDownloading:
		return to == StateProcessing || to == StateFailed
	case StateProcessing:
		return to == StateComplete || to == StateFailed
	default:
		return false
	}
}

// transition moves macro-tile i from one state to another. The caller
// supplies the expected prior state so ordering bugs surface as errors.
func (o *Orchestrator) transition(i int, from, to State) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	cur := o.states[i]
	if cur != from {
		return fmt.Errorf("invalid transition for %s: expected %s, got %s", o.tiles[i].DirName(), from, cur)
	}
	if !isAllowedTransition(from, to) {
		return fmt.Errorf("disallowed transition for %s: %s -> %s", o.tiles[i].DirName(), from, to)
	}
	o.states[i] = to
	return nil
}

// fail moves macro-tile i to StateFailed from whatever active state it is in.
func (o *Orchestrator) fail(i int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.states[i].IsTerminal() {
		o.states[i] = StateFailed
	}
}
