package playback

// State of a Controller.
type State int

const (
	Idle State = iota
	Speaking
	// Paused is a sub-state of Speaking: an utterance exists but is held.
	Paused
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Speaking:
		return "speaking"
	case Paused:
		return "paused"
	default:
		return "unknown"
	}
}

// Active reports whether an utterance exists (speaking or paused).
func (s State) Active() bool {
	return s != Idle
}
