package session

import "sync"

// fifoMutex is a lock granted strictly in request order. Unlock hands
// ownership straight to the oldest waiter, so a late caller can never
// overtake one that is already queued.
type fifoMutex struct {
	mu      sync.Mutex
	locked  bool
	waiters []chan struct{}
}

func (m *fifoMutex) Lock() {
	m.mu.Lock()
	if !m.locked {
		m.locked = true
		m.mu.Unlock()
		return
	}
	ch := make(chan struct{})
	m.waiters = append(m.waiters, ch)
	m.mu.Unlock()

	// Woken with ownership already transferred; locked stays true.
	<-ch
}

func (m *fifoMutex) Unlock() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.locked {
		panic("session: unlock of unlocked fifoMutex")
	}
	if len(m.waiters) == 0 {
		m.locked = false
		return
	}
	next := m.waiters[0]
	m.waiters[0] = nil
	m.waiters = m.waiters[1:]
	close(next)
}

// queued is the number of callers blocked in Lock.
func (m *fifoMutex) queued() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.waiters)
}
