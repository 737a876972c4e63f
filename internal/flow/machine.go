package flow

import "sync"

// State is the lifecycle of one submission.
type State int

const (
	StateIdle State = iota
	StatePending
	StateSuccess
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePending:
		return "pending"
	case StateSuccess:
		return "success"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Machine tracks idle -> pending -> success|error for one flow. Only one
// submission may be pending at a time; error and success both accept a new
// submission.
type Machine struct {
	name string

	mu      sync.Mutex
	state   State
	err     error
	message string
}

func newMachine(name string) *Machine {
	return &Machine{name: name}
}

// State returns the current state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Err returns the error of the last failed submission.
func (m *Machine) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

// Message returns the text shown for the last failure.
func (m *Machine) Message() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.message
}

func (m *Machine) begin() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == StatePending {
		return ErrPending
	}
	m.state = StatePending
	m.err = nil
	m.message = ""
	return nil
}

func (m *Machine) succeed() {
	m.set(StateSuccess, nil, "")
}

func (m *Machine) fail(err error, message string) {
	m.set(StateError, err, message)
}

func (m *Machine) reset() {
	m.set(StateIdle, nil, "")
}

func (m *Machine) set(state State, err error, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = state
	m.err = err
	m.message = message
}
