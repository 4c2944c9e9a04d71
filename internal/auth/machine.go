// Package auth is the authentication state machine of the sign-in core.
//
// A Machine owns the single State of the process. Every change goes through
// reduce, and each new snapshot is pushed to subscribers. Login consults the
// lockout policy before touching any store; registration and login persist
// the session and hand the credential pair to the vault; logout always
// succeeds locally.
package auth

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/gophsignin/internal/common"
	"github.com/dmitrijs2005/gophsignin/internal/cryptox"
	"github.com/dmitrijs2005/gophsignin/internal/lockout"
	"github.com/dmitrijs2005/gophsignin/internal/logging"
	"github.com/dmitrijs2005/gophsignin/internal/models"
	"github.com/dmitrijs2005/gophsignin/internal/session"
	"github.com/dmitrijs2005/gophsignin/internal/timex"
	"github.com/dmitrijs2005/gophsignin/internal/validation"
	"github.com/dmitrijs2005/gophsignin/internal/vault"
	"github.com/google/uuid"
)

// PasswordHasher turns passwords into stored hashes and checks them back.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, encoded string) (bool, error)
}

// Options wires a Machine. Sessions is required; the rest have defaults.
type Options struct {
	Sessions session.Store
	Vault    vault.CredentialStore
	Hasher   PasswordHasher
	Clock    timex.Clock
	Logger   logging.Logger
	Policy   lockout.Policy
	Prompt   *vault.Prompt
}

type Machine struct {
	sessions session.Store
	vault    vault.CredentialStore
	hasher   PasswordHasher
	clock    timex.Clock
	log      logging.Logger
	policy   lockout.Policy
	prompt   vault.Prompt

	mu     sync.Mutex
	state  State
	unlock *lockout.Timer
	subs   map[int]func(State)
	nextID int

	// busy serializes Login, Register and saved-credential attempts.
	busy atomic.Bool
}

func New(opts Options) *Machine {
	m := &Machine{
		sessions: opts.Sessions,
		vault:    opts.Vault,
		hasher:   opts.Hasher,
		clock:    opts.Clock,
		log:      opts.Logger,
		policy:   opts.Policy,
		prompt:   vault.DefaultPrompt,
		subs:     make(map[int]func(State)),
	}
	if m.hasher == nil {
		m.hasher = cryptox.NewArgon2(cryptox.DefaultParams)
	}
	if m.clock == nil {
		m.clock = timex.RealClock()
	}
	if m.log == nil {
		m.log = logging.Discard()
	}
	if m.policy.Threshold <= 0 || m.policy.Window <= 0 {
		m.policy = lockout.DefaultPolicy()
	}
	if opts.Prompt != nil {
		m.prompt = *opts.Prompt
	}
	m.unlock = lockout.NewTimer(m.clock)
	return m
}

// State returns the current snapshot. An expired lockout is cleared as a
// side effect of reading it.
func (m *Machine) State() State {
	m.expireIfDue(context.Background())

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

// Subscribe registers fn to receive every new State. The returned func
// removes the subscription. fn runs outside the machine's lock and may call
// State.
func (m *Machine) Subscribe(fn func(State)) (cancel func()) {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.subs[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}
}

// Close stops the pending unlock timer.
func (m *Machine) Close() {
	m.unlock.Stop()
}

// Restore rebuilds the state persisted by a previous run: a valid session
// record signs the user straight back in, and an open lockout window is
// re-armed. Read failures count as "nothing stored".
func (m *Machine) Restore(ctx context.Context) State {
	user, err := m.sessions.GetCurrentSession(ctx)
	if err != nil {
		m.log.Warn(ctx, "session restore failed, starting signed out", "err", err)
		user = nil
	}
	attempts, err := m.sessions.GetFailureCount(ctx)
	if err != nil {
		m.log.Warn(ctx, "failed to read failure count", "err", err)
		attempts = 0
	}
	until, err := m.sessions.GetLockoutDeadline(ctx)
	if err != nil {
		m.log.Warn(ctx, "failed to read lockout deadline", "err", err)
		until = nil
	}

	s := m.dispatch(restored{user: user, attempts: attempts, until: until})
	if until != nil && !s.IsLocked {
		m.persistCounters(ctx, 0, nil)
	}
	return s
}

// Register creates an account and signs it in.
func (m *Machine) Register(ctx context.Context, d models.RegisterData) (*models.User, error) {
	if !m.busy.CompareAndSwap(false, true) {
		return nil, common.ErrAttemptInProgress
	}
	defer m.busy.Store(false)

	rules := validation.RegisterRules()
	if d.ConfirmPassword == "" {
		// programmatic callers may skip the confirmation field
		delete(rules, models.FieldConfirmPassword)
	}
	if errs, ok := validation.ValidateForm(d.Values(), rules); !ok {
		return nil, validation.NewValidationError(errs)
	}

	m.dispatch(attemptStarted{})
	user, err := m.register(ctx, d)
	if err != nil {
		m.dispatch(attemptAborted{})
		return nil, err
	}
	m.log.Info(ctx, "account registered", "user", user.ID)
	return user, nil
}

func (m *Machine) register(ctx context.Context, d models.RegisterData) (*models.User, error) {
	email := models.NormalizeEmail(d.Email)

	if _, found := m.findUser(ctx, email); found {
		return nil, common.ErrDuplicateEmail
	}

	hash, err := m.hasher.Hash(d.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		ID:          uuid.NewString(),
		Email:       email,
		FirstName:   strings.TrimSpace(d.FirstName),
		LastName:    strings.TrimSpace(d.LastName),
		PhoneNumber: strings.TrimSpace(d.PhoneNumber),
		CreatedAt:   m.clock.Now().UTC(),
	}
	if err := m.sessions.PutUser(ctx, &models.UserRecord{User: *user, PasswordHash: hash}); err != nil {
		return nil, common.StorageError("save user", err)
	}

	if err := m.establish(ctx, user, models.Credentials{Email: email, Password: d.Password}); err != nil {
		if derr := m.sessions.DeleteUser(ctx, user.ID); derr != nil {
			m.log.Warn(ctx, "failed to roll back user", "user", user.ID, "err", derr)
		}
		return nil, err
	}
	return user, nil
}

// Login signs in with c. While the account is locked it fails with a
// *common.LockedOutError before any store is read.
func (m *Machine) Login(ctx context.Context, c models.Credentials) (*models.User, error) {
	if !m.busy.CompareAndSwap(false, true) {
		return nil, common.ErrAttemptInProgress
	}
	defer m.busy.Store(false)

	return m.login(ctx, c)
}

func (m *Machine) login(ctx context.Context, c models.Credentials) (*models.User, error) {
	if err := m.checkLocked(ctx); err != nil {
		return nil, err
	}
	if errs, ok := validation.ValidateForm(c.Values(), validation.LoginRules()); !ok {
		return nil, validation.NewValidationError(errs)
	}

	m.dispatch(attemptStarted{})

	user, err := m.authenticate(ctx, c)
	if err != nil {
		if errors.Is(err, common.ErrInvalidCredentials) {
			wasSignedIn := m.authenticated()
			s := m.dispatch(attemptFailed{})
			if wasSignedIn {
				// the failed attempt ends the previous sign-in
				if cerr := m.sessions.ClearCurrentSession(ctx); cerr != nil {
					m.log.Warn(ctx, "failed to clear session after failed login", "err", cerr)
				}
			}
			m.persistCounters(ctx, s.FailedAttempts, s.LockoutUntil)
			m.log.Info(ctx, "login failed", "attempts", s.FailedAttempts, "locked", s.IsLocked)
		} else {
			m.dispatch(attemptAborted{})
		}
		return nil, err
	}

	c.Email = user.Email
	if err := m.establish(ctx, user, c); err != nil {
		m.dispatch(attemptAborted{})
		return nil, err
	}
	m.log.Info(ctx, "login succeeded", "user", user.ID)
	return user, nil
}

func (m *Machine) authenticate(ctx context.Context, c models.Credentials) (*models.User, error) {
	rec, found := m.findUser(ctx, models.NormalizeEmail(c.Email))
	if !found {
		return nil, common.ErrInvalidCredentials
	}

	ok, err := m.hasher.Verify(c.Password, rec.PasswordHash)
	if err != nil {
		m.log.Warn(ctx, "stored password hash unreadable", "user", rec.ID, "err", err)
	}
	if !ok {
		return nil, common.ErrInvalidCredentials
	}

	user := rec.User
	return &user, nil
}

// findUser scans the user table for email. A failed read is treated as an
// empty table.
func (m *Machine) findUser(ctx context.Context, email string) (*models.UserRecord, bool) {
	users, err := m.sessions.ListUsers(ctx)
	if err != nil {
		m.log.Warn(ctx, "failed to list users", "err", err)
		return nil, false
	}
	for _, u := range users {
		if models.NormalizeEmail(u.Email) == email {
			return u, true
		}
	}
	return nil, false
}

// establish persists the session and the credential pair, then moves to
// the authenticated state.
func (m *Machine) establish(ctx context.Context, user *models.User, c models.Credentials) error {
	if err := m.sessions.SetCurrentSession(ctx, user); err != nil {
		return common.StorageError("save session", err)
	}

	if m.vault != nil {
		if err := m.vault.Store(ctx, c); err != nil {
			if cerr := m.sessions.ClearCurrentSession(ctx); cerr != nil {
				m.log.Warn(ctx, "failed to roll back session", "err", cerr)
			}
			return common.StorageError("store credentials", err)
		}
	}

	m.persistCounters(ctx, 0, nil)
	m.dispatch(attemptSucceeded{user: user})
	return nil
}

// Logout signs the user out. Storage failures are logged and swallowed:
// leaving the authenticated state must always work. The failure counters
// are reset only when a user was signed in, so a lockout survives a logout.
func (m *Machine) Logout(ctx context.Context) {
	wasSignedIn := m.authenticated()

	if err := m.sessions.ClearCurrentSession(ctx); err != nil {
		m.log.Warn(ctx, "failed to clear session on logout", "err", err)
	}
	if m.vault != nil {
		if err := m.vault.Clear(ctx); err != nil {
			m.log.Warn(ctx, "failed to clear saved credentials on logout", "err", err)
		}
	}
	if wasSignedIn {
		m.persistCounters(ctx, 0, nil)
	}
	m.dispatch(loggedOut{})
	m.log.Info(ctx, "logged out")
}

func (m *Machine) authenticated() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.IsAuthenticated
}

// CurrentUser reads the persisted session. Any failure reads as signed out.
func (m *Machine) CurrentUser(ctx context.Context) *models.User {
	user, err := m.sessions.GetCurrentSession(ctx)
	if err != nil {
		m.log.Debug(ctx, "failed to read current session", "err", err)
		return nil
	}
	return user
}

func (m *Machine) checkLocked(ctx context.Context) error {
	m.expireIfDue(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()
	if !lockout.Locked(m.state.LockoutUntil, now) {
		return nil
	}
	return &common.LockedOutError{
		Until:     *m.state.LockoutUntil,
		Remaining: lockout.Remaining(m.state.LockoutUntil, now),
	}
}

func (m *Machine) expireIfDue(ctx context.Context) {
	m.mu.Lock()
	if !lockout.Expired(m.state.LockoutUntil, m.clock.Now()) {
		m.mu.Unlock()
		return
	}
	s, subs := m.applyLocked(lockoutExpired{})
	m.mu.Unlock()

	m.persistCounters(ctx, 0, nil)
	notify(subs, s)
}

// onUnlockTimer runs at the lockout deadline. A fire for a deadline that is
// no longer current is ignored.
func (m *Machine) onUnlockTimer(deadline time.Time) {
	m.mu.Lock()
	if m.state.LockoutUntil == nil || !m.state.LockoutUntil.Equal(deadline) {
		m.mu.Unlock()
		return
	}
	s, subs := m.applyLocked(lockoutExpired{})
	m.mu.Unlock()

	ctx := context.Background()
	m.persistCounters(ctx, 0, nil)
	m.log.Info(ctx, "lockout expired")
	notify(subs, s)
}

// persistCounters writes the failure bookkeeping. It is best-effort: the
// in-memory state stays authoritative for this process.
func (m *Machine) persistCounters(ctx context.Context, attempts int, until *time.Time) {
	if err := m.sessions.SetFailureCount(ctx, attempts); err != nil {
		m.log.Warn(ctx, "failed to persist failure count", "err", err)
	}
	if err := m.sessions.SetLockoutDeadline(ctx, until); err != nil {
		m.log.Warn(ctx, "failed to persist lockout deadline", "err", err)
	}
}

func (m *Machine) dispatch(a action) State {
	m.mu.Lock()
	s, subs := m.applyLocked(a)
	m.mu.Unlock()

	notify(subs, s)
	return s
}

// applyLocked runs the reducer and keeps the unlock timer in step with
// LockoutUntil. The caller holds m.mu.
func (m *Machine) applyLocked(a action) (State, []func(State)) {
	prev := m.state.LockoutUntil
	m.state = reduce(m.state, a, m.policy, m.clock.Now())

	if !sameDeadline(prev, m.state.LockoutUntil) {
		if m.state.LockoutUntil == nil {
			m.unlock.Stop()
		} else {
			m.unlock.Schedule(*m.state.LockoutUntil, m.onUnlockTimer)
		}
	}
	return m.snapshotLocked(), m.subscribersLocked()
}

func (m *Machine) snapshotLocked() State {
	s := m.state
	if s.LockoutUntil != nil {
		until := *s.LockoutUntil
		s.LockoutUntil = &until
	}
	return s
}

func (m *Machine) subscribersLocked() []func(State) {
	ids := make([]int, 0, len(m.subs))
	for id := range m.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	out := make([]func(State), 0, len(ids))
	for _, id := range ids {
		out = append(out, m.subs[id])
	}
	return out
}

func notify(subs []func(State), s State) {
	for _, fn := range subs {
		fn(s)
	}
}

func sameDeadline(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
