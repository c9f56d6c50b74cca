package tts

// StateType is the playback state owned by the Controller.
type StateType int

const (
	// StateIdle indicates nothing is being spoken.
	StateIdle StateType = iota
	// StateSpeaking indicates the engine acknowledged it is speaking.
	StateSpeaking
	// StatePaused indicates the engine acknowledged a pause.
	StatePaused
)

// String returns the string representation of the state.
func (s StateType) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSpeaking:
		return "speaking"
	case StatePaused:
		return "paused"
	default:
		return "unknown"
	}
}

// IsActive returns true while an utterance is speaking or paused.
func (s StateType) IsActive() bool {
	return s == StateSpeaking || s == StatePaused
}

// CanPause returns true if a pause may be requested.
func (s StateType) CanPause() bool {
	return s == StateSpeaking
}

// CanResume returns true if a resume may be requested.
func (s StateType) CanResume() bool {
	return s == StatePaused
}

// StateMachine maps engine events to state transitions.
type StateMachine struct {
	current     StateType
	transitions map[StateType]map[EventKind]StateType
}

// NewStateMachine creates a state machine in StateIdle.
func NewStateMachine() *StateMachine {
	return &StateMachine{
		current: StateIdle,
		transitions: map[StateType]map[EventKind]StateType{
			StateIdle: {
				EventStarted: StateSpeaking,
			},
			StateSpeaking: {
				EventStarted:   StateSpeaking,
				EventPaused:    StatePaused,
				EventFinished:  StateIdle,
				EventCancelled: StateIdle,
			},
			StatePaused: {
				EventStarted:   StateSpeaking,
				EventContinued: StateSpeaking,
				EventFinished:  StateIdle,
				EventCancelled: StateIdle,
			},
		},
	}
}

// Fire applies ev and returns the resulting state. It returns false,
// leaving the state alone, when ev has no transition from the current
// state.
func (sm *StateMachine) Fire(ev EventKind) (StateType, bool) {
	to, ok := sm.transitions[sm.current][ev]
	if !ok {
		return sm.current, false
	}
	sm.current = to
	return to, true
}

// CanFire reports whether ev has a transition from the current state.
func (sm *StateMachine) CanFire(ev EventKind) bool {
	_, ok := sm.transitions[sm.current][ev]
	return ok
}

// Current returns the current state.
func (sm *StateMachine) Current() StateType {
	return sm.current
}
