package auth

import (
	"time"

	"github.com/dmitrijs2005/gophsignin/internal/lockout"
	"github.com/dmitrijs2005/gophsignin/internal/models"
)

// State is the snapshot of the authentication state handed to subscribers.
//
// Invariants of every snapshot:
//   - IsLocked iff LockoutUntil != nil and the deadline lies in the future;
//   - IsAuthenticated implies User != nil.
type State struct {
	IsAuthenticated bool
	User            *models.User
	IsLoading       bool
	FailedAttempts  int
	IsLocked        bool
	LockoutUntil    *time.Time
}

// action is the closed set of transitions accepted by reduce.
type action interface {
	isAction()
}

type (
	// attemptStarted: a login or registration is in flight.
	attemptStarted struct{}
	// attemptAborted: the attempt ended without success and without
	// counting as a failure (storage error, cancelled prompt).
	attemptAborted struct{}
	// attemptSucceeded: the user is signed in; lockout counters reset.
	attemptSucceeded struct{ user *models.User }
	// attemptFailed: wrong credentials; one more strike under the policy.
	attemptFailed struct{}
	loggedOut     struct{}
	// restored: state read back from storage on process start.
	restored struct {
		user     *models.User
		attempts int
		until    *time.Time
	}
	// lockoutExpired: the lockout window has passed.
	lockoutExpired struct{}
)

func (attemptStarted) isAction()   {}
func (attemptAborted) isAction()   {}
func (attemptSucceeded) isAction() {}
func (attemptFailed) isAction()    {}
func (loggedOut) isAction()        {}
func (restored) isAction()         {}
func (lockoutExpired) isAction()   {}

// reduce is the only place State changes.
func reduce(s State, a action, p lockout.Policy, now time.Time) State {
	switch a := a.(type) {
	case attemptStarted:
		s.IsLoading = true

	case attemptAborted:
		s.IsLoading = false

	case attemptSucceeded:
		s = State{IsAuthenticated: true, User: a.user}

	case attemptFailed:
		s.IsLoading = false
		s.IsAuthenticated = false
		s.User = nil
		s.FailedAttempts, s.LockoutUntil = p.Fail(s.FailedAttempts, now)
		s.IsLocked = s.LockoutUntil != nil

	case loggedOut:
		if s.IsAuthenticated {
			s = State{}
			break
		}
		s.IsLoading = false
		s.User = nil

	case restored:
		s = State{
			IsAuthenticated: a.user != nil,
			User:            a.user,
			FailedAttempts:  a.attempts,
		}
		if lockout.Locked(a.until, now) {
			s.IsLocked = true
			s.LockoutUntil = a.until
		} else if a.until != nil {
			// the window passed while the process was not running
			s.FailedAttempts = 0
		}

	case lockoutExpired:
		s.FailedAttempts = 0
		s.IsLocked = false
		s.LockoutUntil = nil
	}
	return s
}
