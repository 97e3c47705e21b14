package syncer

import (
	"fmt"
)

// ProgressUpdate represents a progress event during a sync run.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase    Phase  // Operation phase
	Step     int    // Current step number within phase
	Total    int    // Total steps in this phase
	Message  string // Human-readable message for display
	Identity string // Track identity this update concerns, if any
	Err      error  // Non-fatal error associated with this step, if any
}

// Operation phase enumeration
type Phase int

const (
	PhaseResolve Phase = iota
	PhaseFetch
	PhaseMaterialize
	PhaseRemove
	PhasePrune
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhaseResolve:
		return "resolve"
	case PhaseFetch:
		return "fetch"
	case PhaseMaterialize:
		return "materialize"
	case PhaseRemove:
		return "remove"
	case PhasePrune:
		return "prune"
	case PhaseDone:
		return "done"
	default:
		return "unknown"
	}
}

func resolveUpdate(step, total int, name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PhaseResolve,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Fetching tracks from: %s", name),
	}
}

func fetchUpdate(step, total int, identity, label string, err error) ProgressUpdate {
	msg := fmt.Sprintf("Fetched %s", label)
	if err != nil {
		msg = fmt.Sprintf("Fetch failed: %s", label)
	}
	return ProgressUpdate{
		Phase:    PhaseFetch,
		Step:     step,
		Total:    total,
		Message:  msg,
		Identity: identity,
		Err:      err,
	}
}

func materializeUpdate(step, total int, identity, dest string, err error) ProgressUpdate {
	msg := fmt.Sprintf("Copied into %s", dest)
	if err != nil {
		msg = fmt.Sprintf("Copy into %s failed", dest)
	}
	return ProgressUpdate{
		Phase:    PhaseMaterialize,
		Step:     step,
		Total:    total,
		Message:  msg,
		Identity: identity,
		Err:      err,
	}
}

func removeUpdate(step, total int, identity, dest string) ProgressUpdate {
	return ProgressUpdate{
		Phase:    PhaseRemove,
		Step:     step,
		Total:    total,
		Message:  fmt.Sprintf("Removed from %s", dest),
		Identity: identity,
	}
}

func pruneUpdate(step, total int, identity string) ProgressUpdate {
	return ProgressUpdate{
		Phase:    PhasePrune,
		Step:     step,
		Total:    total,
		Message:  "Pruned from cache",
		Identity: identity,
	}
}

func doneUpdate() ProgressUpdate {
	return ProgressUpdate{Phase: PhaseDone, Message: "Sync complete"}
}
