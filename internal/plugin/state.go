package plugin

// State tracks the hot-plug lifecycle of a plugin.
//
// Uninitialized → Initializing → Available ⇄ Unavailable → Stopped
//
// Stopped is terminal and entered only on shutdown. Only the outcomes
// of CheckAvailability and Sample move a plugin between states.
type State int

const (
	StateUninitialized State = iota
	StateInitializing
	StateAvailable
	StateUnavailable
	StateStopped
)

var stateNames = [...]string{
	"uninitialized",
	"initializing",
	"available",
	"unavailable",
	"stopped",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}
