package locker

import "fmt"

// State is one of the Locker's lifecycle states.
type State string

const (
	StateStarting State = "starting"
	StateRunning  State = "running"
	StateStopping State = "stopping"
	StateStopped  State = "stopped"
)

// Status is a point-in-time observability snapshot, adapted from the
// teacher's Status type (status.go / GetStatus).
type Status struct {
	State           State
	BufferSize      int
	ResultQueueSize int
	InFlight        int
	HeldLocks       int
}

func (s Status) String() string {
	return fmt.Sprintf("Status(state=%s, buffer=%d, result_queue=%d, in_flight=%d, held_locks=%d)",
		s.State, s.BufferSize, s.ResultQueueSize, s.InFlight, s.HeldLocks)
}

// Status returns a snapshot of the Locker's current state.
func (l *Locker) Status() Status {
	l.mu.Lock()
	state := l.state
	inFlight := len(l.inFlight)
	l.mu.Unlock()

	return Status{
		State:           state,
		BufferSize:      l.buf.Size(),
		ResultQueueSize: l.results.Size(),
		InFlight:        inFlight,
		HeldLocks:       l.buf.Size() + l.results.Size() + inFlight,
	}
}
