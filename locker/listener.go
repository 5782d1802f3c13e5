package locker

import (
	"sync"

	"github.com/domonda/go-que"
)

// Listener receives local process-lifecycle notifications from a Locker.
// Adapted from the teacher's queuelistener.go/joblistener.go registries;
// unlike those, this registry is per-Locker instance rather than global,
// per the REDESIGN FLAGS' rejection of process-wide singletons.
type Listener interface {
	// OnJobLocked is called right after a handle is pushed into the
	// buffer.
	OnJobLocked(handle que.Handle)
	// OnJobReleased is called right after a handle's advisory lock is
	// released.
	OnJobReleased(handle que.Handle)
	// OnStateChange is called whenever the Locker transitions state.
	OnStateChange(from, to State)
}

type listenerRegistry struct {
	mu        sync.Mutex
	listeners []Listener
}

func (r *listenerRegistry) Add(l Listener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, l)
}

func (r *listenerRegistry) Remove(l Listener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, existing := range r.listeners {
		if existing == l {
			r.listeners = append(r.listeners[:i], r.listeners[i+1:]...)
			return
		}
	}
}

func (r *listenerRegistry) snapshot() []Listener {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Listener, len(r.listeners))
	copy(out, r.listeners)
	return out
}

func (r *listenerRegistry) notifyLocked(handle que.Handle) {
	for _, l := range r.snapshot() {
		l.OnJobLocked(handle)
	}
}

func (r *listenerRegistry) notifyReleased(handle que.Handle) {
	for _, l := range r.snapshot() {
		l.OnJobReleased(handle)
	}
}

func (r *listenerRegistry) notifyStateChange(from, to State) {
	for _, l := range r.snapshot() {
		l.OnStateChange(from, to)
	}
}

// AddListener registers l to receive this Locker's local events.
func (l *Locker) AddListener(listener Listener) {
	l.listeners.Add(listener)
}

// RemoveListener unregisters listener, if present.
func (l *Locker) RemoveListener(listener Listener) {
	l.listeners.Remove(listener)
}
