package sessionkit

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/MrEthical07/sessionkit/store"
)

var errAlreadyInitialized = errors.New("session manager already initialized")

// Manager is the session state machine. It owns the current [Session]
// exclusively: the [Transport], the facade, and background renewal all read
// through it, and nothing else writes the token store.
//
// Lifecycle: [Builder.Build] → [Manager.Init] → operations → [Manager.Close].
// All methods are safe for concurrent use after Init.
type Manager struct {
	cfg     Config
	store   store.Store
	gw      *gateway
	logger  zerolog.Logger
	clock   func() time.Time
	metrics *metricSet
	events  *eventDispatcher

	mu          sync.Mutex
	state       AuthState
	current     *Session
	expired     bool
	inflight    *refreshCall
	subscribers []*subscriber

	// storeMu serializes token store mutations so a session write committed
	// before a logout can never land after the logout's clear. Never
	// acquired while holding mu.
	storeMu sync.Mutex

	renewDone chan struct{}
	renewWG   sync.WaitGroup
	started   bool
	closed    bool
}

// Init reads the token store, classifies what it finds, and settles the
// machine into LoggedOut or LoggedIn before starting the background renewal
// loop. A stored session past the safety margin triggers one immediate
// refresh attempt; a dead one is cleared. The startup refresh follows the
// usual failure policy: only an active rejection of the refresh token forces
// LoggedOut, while a transient fault keeps the restored session and leaves
// retry to the renewal loop.
//
// Store read failures degrade to the logged-out state, never to an error:
// a broken keychain must not brick the client.
func (m *Manager) Init(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrManagerClosed
	}
	if m.state != StateUnknown {
		m.mu.Unlock()
		return errAlreadyInitialized
	}
	m.mu.Unlock()

	now := m.clock()
	sess := m.restore(ctx, now)

	switch Classify(sess, now, m.cfg.Renewal) {
	case DecisionNoSession:
		m.mu.Lock()
		m.state = StateLoggedOut
		m.publishLocked()
		m.mu.Unlock()

	case DecisionExpired:
		m.mu.Lock()
		m.state = StateLoggedOut
		m.expired = true
		m.publishLocked()
		m.mu.Unlock()
		m.clearStore(ctx)
		m.metrics.inc(MetricForcedLogout)
		m.emitFor(sess, EventSessionExpired, ErrSessionExpired)

	case DecisionValid:
		m.mu.Lock()
		m.current = sess
		m.state = StateLoggedIn
		m.publishLocked()
		m.mu.Unlock()

	case DecisionShouldRefresh:
		m.mu.Lock()
		m.current = sess
		m.state = StateLoggedIn
		m.publishLocked()
		m.mu.Unlock()
		// Terminal refresh failures force LoggedOut inside the refresh path;
		// transient ones leave the restored session in place optimistically.
		if _, err := m.Refresh(ctx); err != nil {
			m.logger.Debug().Err(err).Msg("startup refresh failed")
		}
	}

	m.mu.Lock()
	if !m.closed {
		m.started = true
		m.renewWG.Add(1)
		go m.renewLoop()
	}
	m.mu.Unlock()
	return nil
}

// restore loads and decodes the persisted session, treating every failure
// mode as "absent".
func (m *Manager) restore(ctx context.Context, now time.Time) *Session {
	rec, err := m.store.Read(ctx)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			m.metrics.inc(MetricStoreReadFailure)
			m.logger.Warn().Err(err).Msg("token store read failed; starting logged out")
			m.emitFor(nil, EventStoreDegraded, err)
		}
		return nil
	}

	sess, err := sessionFromRecord(rec, now)
	if err != nil {
		m.metrics.inc(MetricStoreReadFailure)
		m.logger.Warn().Err(err).Msg("stored session undecodable; discarding")
		m.clearStore(ctx)
		return nil
	}
	return sess
}

// Login authenticates against the backend and, on success, persists and
// adopts the new session. On failure the machine stays where it was and the
// gateway's failure is returned unmodified.
func (m *Manager) Login(ctx context.Context, creds Credentials) (*Session, error) {
	if err := m.operational(); err != nil {
		return nil, err
	}

	sess, err := m.gw.login(ctx, creds)
	if err != nil {
		m.metrics.inc(MetricLoginFailure)
		m.events.emit(Event{
			Timestamp: m.clock(),
			Type:      EventLoginFailed,
			Username:  creds.Username,
			Error:     err.Error(),
		})
		return nil, err
	}

	m.adopt(ctx, sess)
	m.metrics.inc(MetricLoginSuccess)
	m.emitFor(sess, EventLogin, nil)
	return sess.clone(), nil
}

// Register self-registers the first (admin) account. Once an admin exists
// the backend refuses with [ErrRegistrationDisabled].
func (m *Manager) Register(ctx context.Context, payload RegisterPayload) (*Session, error) {
	if err := m.operational(); err != nil {
		return nil, err
	}

	sess, err := m.gw.register(ctx, payload)
	if err != nil {
		m.metrics.inc(MetricRegisterFailure)
		return nil, err
	}

	m.adopt(ctx, sess)
	m.metrics.inc(MetricRegisterSuccess)
	m.emitFor(sess, EventRegistered, nil)
	return sess.clone(), nil
}

// Logout destroys the local session first: state flips to LoggedOut and the
// store is cleared before the best-effort remote revocation goes out, so a
// hung network never delays sign-out and a racing refresh finds nothing to
// update. Idempotent: logging out while logged out is a no-op that leaves
// the store empty.
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrManagerClosed
	}
	sess := m.current
	m.current = nil
	if m.state != StateLoggedOut {
		m.state = StateLoggedOut
		m.expired = false
		m.publishLocked()
	}
	m.mu.Unlock()

	m.clearStore(ctx)

	if sess != nil {
		if err := m.gw.logout(ctx, sess.AccessToken, sess.RefreshToken); err != nil {
			m.logger.Debug().Err(err).Msg("remote logout failed; session destroyed locally")
		}
		m.metrics.inc(MetricLogout)
		m.emitFor(sess, EventLogout, nil)
	}
	return nil
}

// ReloadUser re-fetches the current user profile and splices it into the
// session, for shells that suspect their snapshot is stale.
func (m *Manager) ReloadUser(ctx context.Context) (UserProfile, error) {
	sess := m.CurrentSession()
	if sess == nil {
		return UserProfile{}, ErrNoSession
	}

	user, err := m.gw.currentUser(ctx, sess.AccessToken)
	if err != nil {
		return UserProfile{}, err
	}

	var (
		cur *Session
		rec *store.Record
	)
	m.mu.Lock()
	if m.current != nil && m.current.AccessToken == sess.AccessToken {
		m.current.User = user
		cur = m.current
		rec = cur.record()
		m.publishLocked()
	}
	m.mu.Unlock()

	if rec != nil {
		m.persistIfCurrent(ctx, cur, rec)
	}
	return user, nil
}

// RegistrationEnabled reports whether the backend still accepts
// self-registration (true only before any admin account exists).
func (m *Manager) RegistrationEnabled(ctx context.Context) (bool, error) {
	return m.gw.registrationEnabled(ctx)
}

// CurrentSession returns a copy of the current session, or nil when logged
// out.
func (m *Manager) CurrentSession() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current.clone()
}

// State reports the machine's current state.
func (m *Manager) State() AuthState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// MetricsSnapshot returns a point-in-time copy of all counters.
func (m *Manager) MetricsSnapshot() MetricsSnapshot {
	return m.metrics.snapshot()
}

// EventsDropped reports lifecycle events dropped by a full dispatch buffer.
func (m *Manager) EventsDropped() uint64 {
	return m.events.droppedCount()
}

// Close stops the renewal loop, closes subscriptions, and drains the event
// dispatcher. The store is left as-is: Close is shutdown, not logout.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	started := m.started
	subs := m.subscribers
	m.subscribers = nil
	m.mu.Unlock()

	if started {
		close(m.renewDone)
		m.renewWG.Wait()
	}
	for _, sub := range subs {
		sub.cancel()
	}
	m.events.close()
	return nil
}

func (m *Manager) operational() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrManagerClosed
	}
	return nil
}

// adopt commits a freshly granted session: swap it in as current under the
// lock so observers see profile and tokens change together, then persist.
func (m *Manager) adopt(ctx context.Context, sess *Session) {
	m.mu.Lock()
	m.current = sess
	m.state = StateLoggedIn
	m.expired = false
	rec := sess.record()
	m.publishLocked()
	m.mu.Unlock()

	m.persistIfCurrent(ctx, sess, rec)
}

// persistIfCurrent writes rec to the token store only while sess is still the
// current session. The re-check and the write happen under storeMu, which
// [Manager.clearStore] also takes: a logout that lands after the state commit
// either waits out this write and then clears, or makes the write a no-op.
// Storage can therefore never resurrect a session the machine has dropped.
func (m *Manager) persistIfCurrent(ctx context.Context, sess *Session, rec *store.Record) {
	m.storeMu.Lock()
	defer m.storeMu.Unlock()

	m.mu.Lock()
	live := m.current == sess
	m.mu.Unlock()
	if !live {
		return
	}
	m.writeStore(ctx, rec)
}

// writeStore performs the raw store write. Caller holds storeMu.
func (m *Manager) writeStore(ctx context.Context, rec *store.Record) {
	if err := m.store.Write(ctx, rec); err != nil {
		m.metrics.inc(MetricStoreWriteFailure)
		m.logger.Warn().Err(err).Msg("token store write failed; session will not survive restart")
		m.emitFor(nil, EventStoreDegraded, err)
	}
}

func (m *Manager) clearStore(ctx context.Context) {
	m.storeMu.Lock()
	defer m.storeMu.Unlock()

	if err := m.store.Clear(ctx); err != nil {
		m.metrics.inc(MetricStoreWriteFailure)
		m.logger.Warn().Err(err).Msg("token store clear failed")
		m.emitFor(nil, EventStoreDegraded, err)
	}
}

func (m *Manager) emitFor(sess *Session, typ EventType, cause error) {
	event := Event{
		Timestamp: m.clock(),
		Type:      typ,
	}
	if sess != nil {
		event.UserID = sess.User.ID
		event.Username = sess.User.Username
	}
	if cause != nil {
		event.Error = cause.Error()
	}
	m.events.emit(event)
}
