package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/gophsignin/internal/auth"
	"github.com/dmitrijs2005/gophsignin/internal/common"
	"github.com/dmitrijs2005/gophsignin/internal/config"
	"github.com/dmitrijs2005/gophsignin/internal/forms"
	"github.com/dmitrijs2005/gophsignin/internal/kv"
	"github.com/dmitrijs2005/gophsignin/internal/lockout"
	"github.com/dmitrijs2005/gophsignin/internal/logging"
	"github.com/dmitrijs2005/gophsignin/internal/session"
	"github.com/dmitrijs2005/gophsignin/internal/storage"
	"github.com/dmitrijs2005/gophsignin/internal/timex"
	"github.com/dmitrijs2005/gophsignin/internal/vault"
)

type App struct {
	config  *config.Config
	machine *auth.Machine
	vault   *vault.Vault
	drafts  *forms.Persister
	clock   timex.Clock
	log     logging.Logger
	closer  io.Closer
	reader  *bufio.Reader
	out     io.Writer

	locked      atomic.Bool
	unsubscribe func()
	closeOnce   sync.Once
}

// deps are the pieces NewApp builds from the config; tests assemble their own.
type deps struct {
	store  kv.Store
	closer io.Closer
	clock  timex.Clock
	log    logging.Logger
	hasher auth.PasswordHasher
	reader *bufio.Reader
	out    io.Writer
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	log := logging.New(c.LogLevel, os.Stderr)

	store, closer, err := storage.Open(ctx, c)
	if err != nil {
		log.Error(ctx, "error opening store", "backend", c.StoreBackend, "err", err)
		return nil, err
	}

	return newApp(c, deps{
		store:  store,
		closer: closer,
		clock:  timex.RealClock(),
		log:    log,
		reader: bufio.NewReader(os.Stdin),
		out:    os.Stdout,
	}), nil
}

func newApp(c *config.Config, d deps) *App {
	a := &App{
		config: c,
		clock:  d.clock,
		log:    d.log,
		closer: d.closer,
		reader: d.reader,
		out:    d.out,
	}

	a.vault = vault.New(d.store, c.VaultService, &terminalGate{ask: a.ask})
	a.machine = auth.New(auth.Options{
		Sessions: session.NewKVStore(d.store, d.clock, c.SessionLifetime),
		Vault:    a.vault,
		Hasher:   d.hasher,
		Clock:    d.clock,
		Logger:   d.log.With("component", "auth"),
		Policy:   lockout.Policy{Threshold: c.LockoutThreshold, Window: c.LockoutDuration},
	})
	a.drafts = forms.NewPersister(d.store, d.clock, c.FormTTL, d.log.With("component", "forms"))
	return a
}

func (a *App) ask(prompt string) (string, error) {
	return getSimpleText(a.reader, prompt, a.out)
}

// Run restores the previous session and serves the REPL until the user
// exits. The store is closed on return.
func (a *App) Run(ctx context.Context) {
	defer a.Close()

	a.start(ctx)
	printlnFn("Welcome to gophsignin (type 'help' for commands)")
	runREPL(ctx, a, a.getStatus, bufio.NewScanner(lineReader{a.reader}))
}

func (a *App) start(ctx context.Context) {
	a.unsubscribe = a.machine.Subscribe(a.onStateChange)

	s := a.machine.Restore(ctx)
	switch {
	case s.IsAuthenticated:
		printlnFn("Welcome back,", s.User.Email)
	case s.IsLocked:
		a.report(a.lockedError(s))
	case a.config.SilentLogin:
		if u, _ := a.machine.LoginWithSavedCredentials(ctx, auth.AttemptSilent); u != nil {
			printlnFn("Signed in as", u.Email)
		}
	}
}

func (a *App) onStateChange(s auth.State) {
	if a.locked.Swap(s.IsLocked) && !s.IsLocked {
		printlnFn("Account unlocked, you can sign in again.")
	}
}

func (a *App) Close() {
	a.closeOnce.Do(func() {
		if a.unsubscribe != nil {
			a.unsubscribe()
		}
		a.machine.Close()
		if a.closer != nil {
			if err := a.closer.Close(); err != nil {
				a.log.Warn(context.Background(), "failed to close store", "err", err)
			}
		}
	})
}

func (a *App) isLoggedIn() bool {
	return a.machine.State().IsAuthenticated
}

func (a *App) getStatus() string {
	s := a.machine.State()
	switch {
	case s.IsAuthenticated:
		return "(" + s.User.Email + ")"
	case s.IsLocked:
		return fmt.Sprintf("(locked %s)", a.remaining(s))
	}
	return ""
}

func (a *App) remaining(s auth.State) time.Duration {
	return lockout.Remaining(s.LockoutUntil, a.clock.Now()).Round(time.Second)
}

func (a *App) lockedError(s auth.State) error {
	return &common.LockedOutError{Until: *s.LockoutUntil, Remaining: a.remaining(s)}
}

// report prints the user-facing line for err, if it has one.
func (a *App) report(err error) {
	if msg := common.Message(err); msg != "" {
		printlnFn(msg)
	}
}

// lineReader hands the REPL scanner one line at a time, so prompts issued by
// a command read the following lines from the same buffered reader.
type lineReader struct {
	r *bufio.Reader
}

func (l lineReader) Read(p []byte) (int, error) {
	n := 0
	for n < len(p) {
		b, err := l.r.ReadByte()
		if err != nil {
			return n, err
		}
		p[n] = b
		n++
		if b == '\n' {
			break
		}
	}
	return n, nil
}
