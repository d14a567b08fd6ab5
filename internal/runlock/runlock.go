// Package runlock admits at most one automation run at a time. A run that
// arrives while another is active is rejected, never queued.
package runlock

import "sync"

// Lock is a non-blocking process-wide gate. The zero value is unlocked.
type Lock struct {
	mu   sync.Mutex
	held bool
}

// TryAcquire takes the lock if it is free. The returned release is safe
// to call more than once; only the first call has an effect.
func (l *Lock) TryAcquire() (release func(), ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held {
		return nil, false
	}
	l.held = true

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			l.held = false
			l.mu.Unlock()
		})
	}, true
}

// Held reports whether a run is active.
func (l *Lock) Held() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.held
}
