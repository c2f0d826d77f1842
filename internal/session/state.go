package session

// State is the position of the loop in its read-dispatch cycle.
type State int32

const (
	StateIdle State = iota
	StateReadingInput
	StateDispatching
	StateChatting
	StateExecuting
	StateClearing
	StateClosed
)

var stateNames = [...]string{
	StateIdle:         "idle",
	StateReadingInput: "reading_input",
	StateDispatching:  "dispatching",
	StateChatting:     "chatting",
	StateExecuting:    "executing",
	StateClearing:     "clearing",
	StateClosed:       "closed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}
