package wifi

import "time"

// timedMutex is a mutex whose acquisition gives up after a deadline.
type timedMutex struct {
	ch chan struct{}
}

func newTimedMutex() *timedMutex {
	return &timedMutex{ch: make(chan struct{}, 1)}
}

// lock waits at most d for the mutex and reports whether it was acquired.
func (m *timedMutex) lock(d time.Duration) bool {
	select {
	case m.ch <- struct{}{}:
		return true
	default:
	}

	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case m.ch <- struct{}{}:
		return true
	case <-t.C:
		return false
	}
}

func (m *timedMutex) unlock() {
	select {
	case <-m.ch:
	default:
		panic("wifi: unlock of unlocked timedMutex")
	}
}
