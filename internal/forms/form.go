// Package forms holds form state for the sign-in screens: values, per-field
// errors, touched flags, and a debounced draft that survives restarts for a
// limited time.
package forms

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophsignin/internal/common"
	"github.com/dmitrijs2005/gophsignin/internal/logging"
	"github.com/dmitrijs2005/gophsignin/internal/timex"
	"github.com/dmitrijs2005/gophsignin/internal/validation"
)

// DefaultDebounce is the quiet period before a draft is written.
const DefaultDebounce = 500 * time.Millisecond

type Options struct {
	Defaults map[string]string
	Rules    validation.Rules

	// PersistKey names the stored draft. Empty disables persistence.
	PersistKey string

	// ValidateOnChange re-validates a touched field on every change.
	ValidateOnChange bool

	Debounce time.Duration

	// Transient fields are never written to the draft.
	Transient []string
}

// State is a snapshot of a Form.
type State struct {
	Values       map[string]string
	Errors       map[string]*validation.FieldError
	Touched      map[string]bool
	IsValid      bool
	IsSubmitting bool
}

// SubmitFunc receives a copy of the values of a valid form.
type SubmitFunc func(ctx context.Context, values map[string]string) error

type Form struct {
	opts      Options
	persister *Persister
	clock     timex.Clock
	log       logging.Logger
	transient map[string]bool
	debounce  time.Duration

	mu         sync.Mutex
	values     map[string]string
	errors     map[string]*validation.FieldError
	touched    map[string]bool
	edited     map[string]bool
	submitting bool
	closed     bool
	// discarded drops a draft that finishes loading after Reset or Submit.
	discarded bool

	// pending is the single scheduled save; gen invalidates fires that
	// lost the race with Stop.
	pending timex.Timer
	gen     uint64

	loaded chan struct{}
}

// NewForm builds a form over opts. When the form is persistent, the stored
// draft is loaded in the background and merged over the defaults; Loaded is
// closed once that is done. Fields edited before the load finishes keep the
// edited value.
func NewForm(ctx context.Context, opts Options, p *Persister, clock timex.Clock, log logging.Logger) *Form {
	if clock == nil {
		clock = timex.RealClock()
	}
	if log == nil {
		log = logging.Discard()
	}

	f := &Form{
		opts:      opts,
		persister: p,
		clock:     clock,
		log:       log.With("form", opts.PersistKey),
		transient: make(map[string]bool, len(opts.Transient)),
		debounce:  opts.Debounce,
		values:    copyValues(opts.Defaults),
		errors:    make(map[string]*validation.FieldError),
		touched:   make(map[string]bool),
		edited:    make(map[string]bool),
		loaded:    make(chan struct{}),
	}
	if f.debounce <= 0 {
		f.debounce = DefaultDebounce
	}
	for _, name := range opts.Transient {
		f.transient[name] = true
	}

	if !f.persistent() {
		close(f.loaded)
		return f
	}
	go f.load(ctx)
	return f
}

func (f *Form) persistent() bool {
	return f.persister != nil && f.opts.PersistKey != ""
}

// Loaded is closed when the stored draft has been merged in.
func (f *Form) Loaded() <-chan struct{} {
	return f.loaded
}

func (f *Form) load(ctx context.Context) {
	defer close(f.loaded)

	draft, err := f.persister.Load(ctx, f.opts.PersistKey)
	if err != nil {
		f.log.Warn(ctx, "failed to load form draft", "err", err)
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.discarded {
		return
	}
	for name, v := range draft {
		if f.transient[name] || f.edited[name] {
			continue
		}
		f.values[name] = v
	}
}

// SetValue updates one field and schedules a save.
func (f *Form) SetValue(field, value string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.values[field] = value
	f.edited[field] = true
	if f.opts.ValidateOnChange && f.touched[field] {
		f.validateFieldLocked(field)
	}
	f.scheduleSaveLocked()
}

// Blur marks field as touched and validates it.
func (f *Form) Blur(field string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.touched[field] = true
	f.validateFieldLocked(field)
}

// Validate touches every field with a rule and validates the whole form.
func (f *Form) Validate() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.validateLocked()
}

func (f *Form) validateLocked() bool {
	for name := range f.opts.Rules {
		f.touched[name] = true
	}
	errs, ok := validation.ValidateForm(f.values, f.opts.Rules)
	f.errors = errs
	return ok
}

func (f *Form) validateFieldLocked(field string) {
	if fe := validation.ValidateOne(f.values, f.opts.Rules, field); fe != nil {
		f.errors[field] = fe
	} else {
		delete(f.errors, field)
	}
}

func (f *Form) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()

	_, ok := validation.ValidateForm(f.values, f.opts.Rules)
	return State{
		Values:       copyValues(f.values),
		Errors:       maps.Clone(f.errors),
		Touched:      maps.Clone(f.touched),
		IsValid:      ok,
		IsSubmitting: f.submitting,
	}
}

// Value returns the current value of field.
func (f *Form) Value(field string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.values[field]
}

// Reset restores the defaults and drops the stored draft.
func (f *Form) Reset(ctx context.Context) {
	f.mu.Lock()
	f.cancelPendingLocked()
	f.values = copyValues(f.opts.Defaults)
	f.errors = make(map[string]*validation.FieldError)
	f.touched = make(map[string]bool)
	f.edited = make(map[string]bool)
	f.discarded = true
	f.mu.Unlock()

	f.discardDraft(ctx)
}

// Submit validates the form and, when valid, hands the values to fn. Only
// one submission runs at a time. A successful submission drops the draft.
func (f *Form) Submit(ctx context.Context, fn SubmitFunc) error {
	f.mu.Lock()
	if f.submitting {
		f.mu.Unlock()
		return common.ErrSubmitInProgress
	}
	if !f.validateLocked() {
		errs := maps.Clone(f.errors)
		f.mu.Unlock()
		return validation.NewValidationError(errs)
	}
	f.submitting = true
	values := copyValues(f.values)
	f.mu.Unlock()

	err := fn(ctx, values)

	f.mu.Lock()
	f.submitting = false
	if err == nil {
		f.cancelPendingLocked()
		f.discarded = true
	}
	f.mu.Unlock()

	if err != nil {
		return err
	}
	f.discardDraft(ctx)
	return nil
}

// Flush writes a pending save immediately.
func (f *Form) Flush(ctx context.Context) error {
	f.mu.Lock()
	if f.pending == nil {
		f.mu.Unlock()
		return nil
	}
	f.cancelPendingLocked()
	values := f.persistableLocked()
	f.mu.Unlock()

	return f.persister.Save(ctx, f.opts.PersistKey, values)
}

// Close drops a pending save. Call Flush first to keep it.
func (f *Form) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelPendingLocked()
	f.closed = true
}

func (f *Form) scheduleSaveLocked() {
	if !f.persistent() || f.closed {
		return
	}
	f.cancelPendingLocked()
	gen := f.gen
	f.pending = f.clock.AfterFunc(f.debounce, func() { f.autosave(gen) })
}

func (f *Form) cancelPendingLocked() {
	f.gen++
	if f.pending != nil {
		f.pending.Stop()
		f.pending = nil
	}
}

func (f *Form) autosave(gen uint64) {
	f.mu.Lock()
	if gen != f.gen || f.closed {
		f.mu.Unlock()
		return
	}
	f.pending = nil
	values := f.persistableLocked()
	f.mu.Unlock()

	ctx := context.Background()
	if err := f.persister.Save(ctx, f.opts.PersistKey, values); err != nil {
		f.log.Warn(ctx, "autosave failed", "err", err)
	}
}

func (f *Form) discardDraft(ctx context.Context) {
	if !f.persistent() {
		return
	}
	if err := f.persister.Clear(ctx, f.opts.PersistKey); err != nil {
		f.log.Warn(ctx, "failed to clear form draft", "err", err)
	}
}

func (f *Form) persistableLocked() map[string]string {
	out := make(map[string]string, len(f.values))
	for name, v := range f.values {
		if !f.transient[name] {
			out[name] = v
		}
	}
	return out
}

func copyValues(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
