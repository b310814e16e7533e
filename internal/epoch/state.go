// Package epoch implements the per-epoch role lifecycle and the
// command queue that drives epoch creation, advancement, and shutdown
// (spec.md 4.10's epoch/sortition controller).
package epoch

// State is an epoch's position in its lifecycle.
type State int

const (
	PreRun State = iota
	Running
	Handoff
	Off
)

func (s State) String() string {
	switch s {
	case PreRun:
		return "PRE_RUN"
	case Running:
		return "RUNNING"
	case Handoff:
		return "HANDOFF"
	case Off:
		return "OFF"
	default:
		return "UNKNOWN"
	}
}

// next returns the state reached by a NEXT command from s, and whether
// the transition actually changes anything (an epoch already OFF has no
// further next state).
func (s State) next() (State, bool) {
	switch s {
	case PreRun:
		return Running, true
	case Running:
		return Handoff, true
	case Handoff:
		return Off, true
	default:
		return Off, false
	}
}
