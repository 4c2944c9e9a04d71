package forms

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophsignin/internal/kv"
	"github.com/dmitrijs2005/gophsignin/internal/logging"
	"github.com/dmitrijs2005/gophsignin/internal/timex"
)

const (
	keyPrefix = "form:"

	// DefaultTTL is how long a draft survives without being saved again.
	DefaultTTL = 24 * time.Hour
)

type record struct {
	Data    map[string]string `json:"data"`
	SavedAt time.Time         `json:"savedAt"`
}

// Persister keeps one timestamped draft per form id under the form: prefix.
// Expiry is checked on read only; nothing sweeps old drafts in the
// background.
type Persister struct {
	kv    kv.Store
	clock timex.Clock
	ttl   time.Duration
	log   logging.Logger
}

func NewPersister(store kv.Store, clock timex.Clock, ttl time.Duration, log logging.Logger) *Persister {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if log == nil {
		log = logging.Discard()
	}
	return &Persister{kv: store, clock: clock, ttl: ttl, log: log}
}

func key(formID string) string {
	return keyPrefix + formID
}

// Save overwrites the draft of formID, stamping it with the current time.
func (p *Persister) Save(ctx context.Context, formID string, values map[string]string) error {
	data, err := json.Marshal(record{Data: values, SavedAt: p.clock.Now().UTC()})
	if err != nil {
		return fmt.Errorf("failed to encode form %s: %w", formID, err)
	}
	if err := p.kv.Set(ctx, key(formID), data); err != nil {
		return fmt.Errorf("failed to save form %s: %w", formID, err)
	}
	return nil
}

// Load returns the draft of formID, or nil when there is none. A draft older
// than the TTL is deleted and reported absent, and so is an unreadable one.
func (p *Persister) Load(ctx context.Context, formID string) (map[string]string, error) {
	raw, err := p.kv.Get(ctx, key(formID))
	if err != nil {
		return nil, fmt.Errorf("failed to load form %s: %w", formID, err)
	}
	if raw == nil {
		return nil, nil
	}

	var rec record
	if err := json.Unmarshal(raw, &rec); err != nil {
		p.log.Warn(ctx, "discarding unreadable form draft", "form", formID, "err", err)
		p.evict(ctx, formID)
		return nil, nil
	}

	if p.clock.Now().Sub(rec.SavedAt) > p.ttl {
		p.log.Debug(ctx, "form draft expired", "form", formID, "savedAt", rec.SavedAt)
		p.evict(ctx, formID)
		return nil, nil
	}

	if rec.Data == nil {
		rec.Data = map[string]string{}
	}
	return rec.Data, nil
}

func (p *Persister) evict(ctx context.Context, formID string) {
	if err := p.kv.Delete(ctx, key(formID)); err != nil {
		p.log.Warn(ctx, "failed to delete form draft", "form", formID, "err", err)
	}
}

func (p *Persister) Clear(ctx context.Context, formID string) error {
	if err := p.kv.Delete(ctx, key(formID)); err != nil {
		return fmt.Errorf("failed to clear form %s: %w", formID, err)
	}
	return nil
}

// ClearAll deletes every draft. Keys outside the form: prefix are kept.
func (p *Persister) ClearAll(ctx context.Context) error {
	if err := kv.DeletePrefix(ctx, p.kv, keyPrefix); err != nil {
		return fmt.Errorf("failed to clear forms: %w", err)
	}
	return nil
}

// FormIDs lists the ids that currently have a stored draft, expired or not.
func (p *Persister) FormIDs(ctx context.Context) ([]string, error) {
	keys, err := kv.KeysWithPrefix(ctx, p.kv, keyPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list forms: %w", err)
	}
	ids := make([]string, 0, len(keys))
	for _, k := range keys {
		ids = append(ids, strings.TrimPrefix(k, keyPrefix))
	}
	sort.Strings(ids)
	return ids, nil
}
