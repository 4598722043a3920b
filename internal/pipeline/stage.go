package pipeline

// Stage enumerates the states of one session's processing run. The sequence
// is strictly linear; Failed is reachable from every non-terminal state.
type Stage int

const (
	StageSubmitted Stage = iota
	StageNormalizing
	StageMasking
	StageExtracting
	StageUnmasking
	StageValidating
	StageScoring
	StageCompleted
	StageFailed
)

var stageNames = map[Stage]string{
	StageSubmitted:   "Submitted",
	StageNormalizing: "Normalizing",
	StageMasking:     "Masking",
	StageExtracting:  "Extracting",
	StageUnmasking:   "Unmasking",
	StageValidating:  "Validating",
	StageScoring:     "Scoring",
	StageCompleted:   "Completed",
	StageFailed:      "Failed",
}

// String returns the stage name used in audit events and metrics.
func (s Stage) String() string {
	if name, ok := stageNames[s]; ok {
		return name
	}
	return "Unknown"
}

// Terminal reports whether s ends the run.
func (s Stage) Terminal() bool {
	return s == StageCompleted || s == StageFailed
}

// Next returns the successor on the happy path. Terminal stages return
// themselves.
func (s Stage) Next() Stage {
	if s.Terminal() || s > StageCompleted {
		return s
	}
	return s + 1
}

// CanTransition reports whether the state machine permits moving from one
// stage to another: the linear successor, or Failed from any non-terminal
// stage.
func CanTransition(from, to Stage) bool {
	if from.Terminal() {
		return false
	}
	if to == StageFailed {
		return true
	}
	return to == from.Next()
}
