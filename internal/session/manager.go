// Package session implements the session manager: the single owner of the
// authenticated state for the running client. It mediates every auth
// operation against the backend, applies the backend's auth events in
// delivery order, and signs the user out after a fixed idle period.
package session

import (
	"context"
	"sync"
	"time"

	"suitable-focus/internal/logging"
	"suitable-focus/internal/models"
	"suitable-focus/internal/supabase"
)

// State is the manager's position in the auth lifecycle.
type State int

const (
	// StateInitializing means the startup session restore has not finished
	// yet. Callers must not redirect or render authenticated UI while in
	// this state.
	StateInitializing State = iota
	StateUnauthenticated
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "invalid"
	}
}

// DefaultIdleTimeout is how long an authenticated session may sit idle
// before the manager signs it out.
const DefaultIdleTimeout = 30 * time.Minute

// AuthAPI is the backend surface the manager depends on. *supabase.Client
// satisfies it; tests substitute a mock.
type AuthAPI interface {
	GetSession(ctx context.Context) (*models.Session, error)
	SignInWithPassword(ctx context.Context, email, password string) (*models.Session, error)
	SignUp(ctx context.Context, email, password string, metadata map[string]any, redirectTo string) (*models.Session, error)
	SignOut(ctx context.Context) error
	ResetPasswordForEmail(ctx context.Context, email, redirectTo string) error
	UpdateUser(ctx context.Context, attrs supabase.UserAttributes) (*models.User, error)
	Resend(ctx context.Context, typ supabase.ResendType, email, redirectTo string) error
	ImportSession(ctx context.Context, cb *supabase.Callback) error
	Events() <-chan supabase.Event
}

// Manager owns the Session value for this process. Construct with New,
// release with Close. All exported methods are safe for concurrent use; the
// backend's events are applied strictly in delivery order by a single
// internal goroutine.
type Manager struct {
	api         AuthAPI
	log         logging.Logger
	scheme      string
	idleTimeout time.Duration
	listener    func(State)

	mu      sync.Mutex
	state   State
	session *models.Session
	busy    bool
	idleT   *time.Timer
	idleGen int
	closed  bool

	stop chan struct{}
	done chan struct{}
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger attaches a structured logger.
func WithLogger(l logging.Logger) Option {
	return func(m *Manager) { m.log = l }
}

// WithIdleTimeout overrides the 30-minute inactivity timeout.
func WithIdleTimeout(d time.Duration) Option {
	return func(m *Manager) { m.idleTimeout = d }
}

// WithScheme sets the deep-link scheme used in email redirect targets.
func WithScheme(scheme string) Option {
	return func(m *Manager) { m.scheme = scheme }
}

// WithStateListener registers a callback invoked after each state
// transition. The callback runs outside the manager's lock and must not
// block for long; transitions are reported in the order they happen.
func WithStateListener(fn func(State)) Option {
	return func(m *Manager) { m.listener = fn }
}

// New creates a Manager in StateInitializing, subscribed to the backend's
// event stream. Call Initialize to perform the startup session restore, and
// Close to release the subscription and the idle timer.
func New(api AuthAPI, opts ...Option) *Manager {
	m := &Manager{
		api:         api,
		log:         logging.Nop(),
		scheme:      "suitable",
		idleTimeout: DefaultIdleTimeout,
		state:       StateInitializing,
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}

	go m.run()
	return m
}

// Close stops the event loop and cancels the idle timer. It does not sign
// the user out; the backend session survives for the next launch.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	m.stopIdleTimerLocked()
	close(m.stop)
	m.mu.Unlock()

	<-m.done
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// CurrentUser returns the signed-in user, or nil. The user is non-nil
// exactly when State is StateAuthenticated.
func (m *Manager) CurrentUser() *models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return nil
	}
	return m.session.User
}

// CurrentSession returns a snapshot of the live session, or nil.
func (m *Manager) CurrentSession() *models.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return nil
	}
	out := *m.session
	return &out
}

// Initialize performs the startup session restore and moves the manager out
// of StateInitializing. A restore failure is reported but still lands the
// manager in StateUnauthenticated so the UI can proceed to the sign-in
// screen.
func (m *Manager) Initialize(ctx context.Context) error {
	restored, err := m.api.GetSession(ctx)
	if err != nil {
		m.log.Warn(ctx, "session restore failed", "error", err)
		m.transition(nil)
		return classify(err)
	}

	if restored.IsValid() {
		m.transition(restored)
	} else {
		m.transition(nil)
	}
	return nil
}

// SignIn authenticates with an email and password. On success the manager
// becomes StateAuthenticated and the idle timer is armed. A call made while
// another auth operation is in flight fails with ErrOperationInFlight.
func (m *Manager) SignIn(ctx context.Context, email, password string) error {
	if err := m.begin(); err != nil {
		return err
	}
	defer m.end()

	session, err := m.api.SignInWithPassword(ctx, email, password)
	if err != nil {
		return classify(err)
	}

	m.transition(session)
	return nil
}

// SignUp registers a new account with a display name. It does not sign the
// user in: most backend configurations require the confirmation email to be
// followed first. A backend configured for immediate sign-in emits a
// SIGNED_IN event instead, which the manager applies when it arrives.
func (m *Manager) SignUp(ctx context.Context, email, password, displayName string) error {
	if err := m.begin(); err != nil {
		return err
	}
	defer m.end()

	metadata := map[string]any{"name": displayName}
	if _, err := m.api.SignUp(ctx, email, password, metadata, m.redirect("callback")); err != nil {
		return classify(err)
	}
	return nil
}

// SignOut ends the session. Local state always clears, even when the
// backend call fails at the network layer: the intent is to stop presenting
// authenticated UI, and a failed revocation is logged rather than surfaced.
func (m *Manager) SignOut(ctx context.Context) error {
	if err := m.api.SignOut(ctx); err != nil {
		m.log.Warn(ctx, "backend sign-out failed, clearing local session anyway", "error", err)
	}

	m.transition(nil)
	return nil
}

// ResetPassword requests a password-recovery email. Session state does not
// change; the recovery link re-enters the app through the deep-link scheme.
func (m *Manager) ResetPassword(ctx context.Context, email string) error {
	if err := m.begin(); err != nil {
		return err
	}
	defer m.end()

	if err := m.api.ResetPasswordForEmail(ctx, email, m.redirect("reset-password")); err != nil {
		return classify(err)
	}
	return nil
}

// UpdatePassword sets a new password for the current session, which may be
// the short-lived recovery session produced by a reset link.
func (m *Manager) UpdatePassword(ctx context.Context, newPassword string) error {
	if err := m.begin(); err != nil {
		return err
	}
	defer m.end()

	if _, err := m.api.UpdateUser(ctx, supabase.UserAttributes{Password: newPassword}); err != nil {
		return classify(err)
	}
	return nil
}

// UpdateProfile changes profile fields (e.g. name, avatar_url) and refreshes
// the local user snapshot on success. Session identity does not change.
func (m *Manager) UpdateProfile(ctx context.Context, fields map[string]any) error {
	if err := m.begin(); err != nil {
		return err
	}
	defer m.end()

	user, err := m.api.UpdateUser(ctx, supabase.UserAttributes{Data: fields})
	if err != nil {
		return classify(err)
	}

	m.mu.Lock()
	if m.session != nil {
		m.session.User = user
	}
	m.mu.Unlock()
	return nil
}

// ResendVerificationEmail asks the backend to send the signup confirmation
// email again.
func (m *Manager) ResendVerificationEmail(ctx context.Context, email string) error {
	if err := m.begin(); err != nil {
		return err
	}
	defer m.end()

	if err := m.api.Resend(ctx, supabase.ResendSignup, email, m.redirect("callback")); err != nil {
		return classify(err)
	}
	return nil
}

// HandleDeepLink dispatches an email-flow re-entry URI (signup confirmation
// or password recovery) to the matching state transition.
func (m *Manager) HandleDeepLink(ctx context.Context, rawURL string) error {
	cb, err := supabase.ParseCallback(m.scheme, rawURL)
	if err != nil {
		return classify(err)
	}

	if err := m.api.ImportSession(ctx, cb); err != nil {
		return classify(err)
	}
	return nil
}

// Touch signals that the user became active again (e.g. the app returned to
// the foreground). While authenticated it revalidates the backend session
// (a dead one forces a local sign-out) and re-arms the idle timer.
func (m *Manager) Touch(ctx context.Context) {
	if m.State() != StateAuthenticated {
		return
	}

	current, err := m.api.GetSession(ctx)
	if err != nil {
		// Could not reach the backend; keep the session and let the idle
		// timer decide.
		m.log.Warn(ctx, "session revalidation failed", "error", err)
		return
	}

	if !current.IsValid() {
		if err := m.SignOut(ctx); err != nil {
			m.log.Warn(ctx, "sign-out after dead session failed", "error", err)
		}
		return
	}

	m.transition(current)
}

// run applies backend auth events strictly in delivery order until Close or
// until the backend's stream ends.
func (m *Manager) run() {
	defer close(m.done)

	events := m.api.Events()
	for {
		select {
		case <-m.stop:
			return
		case event, open := <-events:
			if !open {
				return
			}
			m.handleEvent(event)
		}
	}
}

func (m *Manager) handleEvent(event supabase.Event) {
	switch event.Type {
	case supabase.EventSignedIn, supabase.EventPasswordRecovery:
		if event.Session.IsValid() {
			m.transition(event.Session)
		}

	case supabase.EventTokenRefreshed:
		// Same identity, fresh tokens; the timer reset keeps an actively
		// refreshed session alive.
		if event.Session.IsValid() {
			m.transition(event.Session)
		}

	case supabase.EventUserUpdated:
		m.mu.Lock()
		if m.session != nil && event.Session != nil {
			m.session.User = event.Session.User
		}
		m.mu.Unlock()

	case supabase.EventSignedOut:
		m.transition(nil)
	}
}

// transition installs the new session value, adjusts the lifecycle state and
// the idle timer, and notifies the listener. A nil session means
// unauthenticated.
func (m *Manager) transition(session *models.Session) {
	m.mu.Lock()

	var newState State
	if session.IsValid() {
		session.LastActivityAt = time.Now()
		m.session = session
		newState = StateAuthenticated
		m.resetIdleTimerLocked()
	} else {
		m.session = nil
		newState = StateUnauthenticated
		m.stopIdleTimerLocked()
	}

	changed := m.state != newState
	m.state = newState
	listener := m.listener
	m.mu.Unlock()

	if changed && listener != nil {
		listener(newState)
	}
}

// resetIdleTimerLocked arms the single inactivity timer, replacing any
// previous one. The generation counter makes a replaced timer's late fire a
// no-op, so two timers can never race for the same session. Caller must
// hold m.mu.
func (m *Manager) resetIdleTimerLocked() {
	m.stopIdleTimerLocked()

	m.idleGen++
	gen := m.idleGen
	m.idleT = time.AfterFunc(m.idleTimeout, func() {
		m.mu.Lock()
		expired := !m.closed && gen == m.idleGen && m.state == StateAuthenticated
		m.mu.Unlock()
		if !expired {
			return
		}

		ctx := context.Background()
		m.log.Info(ctx, "session idle timeout reached, signing out")
		if err := m.SignOut(ctx); err != nil {
			m.log.Warn(ctx, "idle sign-out failed", "error", err)
		}
	})
}

func (m *Manager) stopIdleTimerLocked() {
	if m.idleT != nil {
		m.idleT.Stop()
		m.idleT = nil
	}
	m.idleGen++
}

// begin claims the single in-flight slot for a mutating auth operation.
func (m *Manager) begin() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.busy {
		return ErrOperationInFlight
	}
	m.busy = true
	return nil
}

func (m *Manager) end() {
	m.mu.Lock()
	m.busy = false
	m.mu.Unlock()
}

func (m *Manager) redirect(path string) string {
	return m.scheme + "://auth/" + path
}
