package sessionkit

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/sessionkit/store"
)

// refreshCall is the shared handle for one in-flight renewal. Every caller
// that arrives while it is open waits on done and observes the same outcome.
type refreshCall struct {
	done chan struct{}
	sess *Session
	err  error
}

// Refresh renews the current session's access token. Concurrent callers
// coalesce onto a single network call: the background loop, [Transport]
// 401 recovery, and explicit invocations all share one outcome, so N
// simultaneous failures produce exactly one refresh request.
//
// ctx bounds only this caller's wait. The underlying call runs detached under
// the gateway timeout, so an impatient caller cannot poison the outcome for
// the rest.
func (m *Manager) Refresh(ctx context.Context) (*Session, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrManagerClosed
	}
	if m.current == nil {
		m.mu.Unlock()
		return nil, ErrNoSession
	}
	if c := m.inflight; c != nil {
		m.mu.Unlock()
		m.metrics.inc(MetricRefreshCoalesced)
		return m.await(ctx, c)
	}

	c := &refreshCall{done: make(chan struct{})}
	m.inflight = c
	base := m.current
	if m.state == StateLoggedIn {
		m.state = StateRefreshing
		m.publishLocked()
	}
	m.mu.Unlock()

	go m.runRefresh(c, base)
	return m.await(ctx, c)
}

func (m *Manager) await(ctx context.Context, c *refreshCall) (*Session, error) {
	select {
	case <-c.done:
		return c.sess.clone(), c.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (m *Manager) runRefresh(c *refreshCall, base *Session) {
	access, err := m.gw.refresh(context.Background(), base.RefreshToken)
	m.finishRefresh(c, base, access, err)
}

// finishRefresh applies one refresh outcome under the session lock, then
// performs store I/O and closes the call handle so waiters observe fully
// committed state.
func (m *Manager) finishRefresh(c *refreshCall, base *Session, access string, err error) {
	var (
		persist    *Session
		persistRec *store.Record
		forced     bool
	)

	m.mu.Lock()
	m.inflight = nil

	switch {
	case m.closed:
		c.err = ErrManagerClosed

	case err != nil:
		c.err = err
		m.metrics.inc(MetricRefreshFailure)
		if terminalRefreshFailure(err) && m.current != nil && m.current.RefreshToken == base.RefreshToken {
			forced = m.forceLogoutLocked()
		} else if m.state == StateRefreshing {
			// Transient fault: keep the session optimistically and let the
			// next scheduled check retry.
			m.state = StateLoggedIn
			m.publishLocked()
		}

	case m.current == nil || m.current.RefreshToken != base.RefreshToken:
		// A logout (or a newer login) won the race while the call was in
		// flight. The result would no longer describe a live session.
		c.err = ErrNoSession
		m.metrics.inc(MetricRefreshDiscarded)

	default:
		next := newSession(access, base.RefreshToken, base.User, m.clock())
		m.current = next
		m.state = StateLoggedIn
		m.publishLocked()
		m.metrics.inc(MetricRefreshSuccess)
		c.sess = next
		persist = next
		persistRec = next.record()
	}
	m.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.Gateway.Timeout)
	defer cancel()

	if persist != nil {
		m.persistIfCurrent(ctx, persist, persistRec)
		m.emitFor(persist, EventRefreshed, nil)
	}
	if forced {
		m.clearStore(ctx)
		m.metrics.inc(MetricForcedLogout)
		m.emitFor(base, EventSessionExpired, c.err)
	}
	if c.err != nil && !forced && !errors.Is(c.err, ErrNoSession) {
		m.emitFor(base, EventRefreshFailed, c.err)
	}

	close(c.done)
}

// terminalRefreshFailure reports whether a refresh failure condemns the
// session. Only an active rejection of the refresh token is terminal;
// network faults, server errors, and misconfiguration are retried at the
// next scheduled check with the session retained.
func terminalRefreshFailure(err error) bool {
	return errors.Is(err, ErrInvalidCredentials) || errors.Is(err, ErrSessionExpired)
}

// forceLogoutLocked flips the machine to LoggedOut after an irrecoverable
// session fault. Distinct from user-initiated logout: the expired flag
// surfaces through [StateView.SessionExpired].
func (m *Manager) forceLogoutLocked() bool {
	m.current = nil
	m.expired = true
	if m.state != StateLoggedOut {
		m.state = StateLoggedOut
		m.publishLocked()
	}
	return true
}

// ForceLoggedOut destroys the current session without a network call. The
// [Transport] invokes it when a retry after refresh still comes back
// unauthorized.
func (m *Manager) ForceLoggedOut(ctx context.Context) {
	m.mu.Lock()
	if m.closed || m.current == nil {
		m.mu.Unlock()
		return
	}
	sess := m.current
	forced := m.forceLogoutLocked()
	m.mu.Unlock()

	if forced && sess != nil {
		m.clearStore(ctx)
		m.metrics.inc(MetricForcedLogout)
		m.emitFor(sess, EventSessionExpired, ErrSessionExpired)
	}
}

func (m *Manager) renewLoop() {
	defer m.renewWG.Done()

	ticker := time.NewTicker(m.cfg.Renewal.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.renewDone:
			return
		case <-ticker.C:
			m.checkOnce()
		}
	}
}

// checkOnce re-classifies the current session and acts on the decision. One
// invocation per tick; refresh coalescing absorbs overlap with foreground
// callers.
func (m *Manager) checkOnce() {
	m.mu.Lock()
	sess := m.current
	state := m.state
	m.mu.Unlock()

	if state != StateLoggedIn || sess == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.Gateway.Timeout+time.Second)
	defer cancel()

	switch Classify(sess, m.clock(), m.cfg.Renewal) {
	case DecisionShouldRefresh:
		if _, err := m.Refresh(ctx); err != nil {
			m.logger.Debug().Err(err).Msg("scheduled refresh failed")
		}
	case DecisionExpired:
		m.ForceLoggedOut(ctx)
	}
}
