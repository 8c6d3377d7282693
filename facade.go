package sessionkit

import "sync"

// StateView is the UI-facing projection of the session machine: a stable,
// re-renderable snapshot with no behavior of its own.
type StateView struct {
	// Loading is true only before Init has settled the machine.
	Loading bool
	// Authenticated is true while a session exists, including mid-refresh.
	Authenticated bool
	// SessionExpired distinguishes a forced logout (irrecoverable expiry)
	// from a user-initiated one, so shells can say "session expired" instead
	// of a generic goodbye. Reset by the next successful login.
	SessionExpired bool
	User           *UserProfile
}

func (m *Manager) viewLocked() StateView {
	view := StateView{
		Loading:        m.state == StateUnknown,
		Authenticated:  m.state == StateLoggedIn || m.state == StateRefreshing,
		SessionExpired: m.expired,
	}
	if m.current != nil {
		user := m.current.User
		view.User = &user
	}
	return view
}

// Snapshot returns the current projection for poll-style consumers.
func (m *Manager) Snapshot() StateView {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.viewLocked()
}

// Subscribe returns a stream that observes every state transition exactly
// once, in order, starting with the current state. Delivery is per-subscriber
// buffered and never dropped; a slow consumer grows its own queue without
// stalling the machine or other subscribers. cancel releases the stream and
// closes the channel once queued views drain.
func (m *Manager) Subscribe() (<-chan StateView, func()) {
	sub := newSubscriber()

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		sub.cancel()
		return sub.out, func() {}
	}
	m.subscribers = append(m.subscribers, sub)
	sub.push(m.viewLocked())
	m.mu.Unlock()

	cancel := func() {
		m.mu.Lock()
		for i, s := range m.subscribers {
			if s == sub {
				m.subscribers = append(m.subscribers[:i], m.subscribers[i+1:]...)
				break
			}
		}
		m.mu.Unlock()
		sub.cancel()
	}
	return sub.out, cancel
}

// publishLocked fans the current view out to every subscriber. Caller holds
// m.mu, which is what serializes transitions into a single global order.
func (m *Manager) publishLocked() {
	if len(m.subscribers) == 0 {
		return
	}
	view := m.viewLocked()
	for _, sub := range m.subscribers {
		sub.push(view)
	}
}

// subscriber decouples transition ordering from consumer pace: pushes append
// to an owned queue under the machine lock, a dedicated goroutine drains the
// queue into the outward channel.
type subscriber struct {
	mu     sync.Mutex
	cond   *sync.Cond
	queue  []StateView
	closed bool
	done   chan struct{}
	out    chan StateView
}

func newSubscriber() *subscriber {
	sub := &subscriber{
		done: make(chan struct{}),
		out:  make(chan StateView),
	}
	sub.cond = sync.NewCond(&sub.mu)
	go sub.loop()
	return sub
}

func (s *subscriber) push(view StateView) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.queue = append(s.queue, view)
	s.cond.Signal()
}

func (s *subscriber) cancel() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.done)
	s.cond.Signal()
	s.mu.Unlock()
}

func (s *subscriber) loop() {
	for {
		s.mu.Lock()
		for len(s.queue) == 0 && !s.closed {
			s.cond.Wait()
		}
		if len(s.queue) == 0 {
			s.mu.Unlock()
			close(s.out)
			return
		}
		view := s.queue[0]
		s.queue = s.queue[1:]
		s.mu.Unlock()

		select {
		case s.out <- view:
		case <-s.done:
			close(s.out)
			return
		}
	}
}
