package project

// State is the instance lifecycle state. Error is not terminal: it always
// falls back to Idle, ready for another build.
type State int

const (
	StateIdle State = iota
	StateBuilding
	StateWatching
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateBuilding:
		return "building"
	case StateWatching:
		return "watching"
	case StateError:
		return "error"
	}
	return "unknown"
}
