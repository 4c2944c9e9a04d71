package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dmitrijs2005/gophsignin/internal/common"
	"github.com/dmitrijs2005/gophsignin/internal/kv"
	"github.com/dmitrijs2005/gophsignin/internal/models"
	"github.com/dmitrijs2005/gophsignin/internal/timex"
)

const (
	userPrefix         = "auth:user:"
	keySession         = "auth:session"
	keySigningKey      = "auth:signing_key"
	keyFailedAttempts  = "auth:failed_attempts"
	keyLockoutDeadline = "auth:lockout_until"

	signingKeySize = 32
)

// KVStore implements Store on top of a kv.Store.
//
// Users are JSON records under auth:user:<id>. The current session is a
// signed JWT, so a record edited on disk is rejected on restore instead of
// silently authenticating someone else. The HMAC key is generated on first
// use and kept in the same store.
type KVStore struct {
	kv       kv.Store
	clock    timex.Clock
	lifetime time.Duration
}

func NewKVStore(store kv.Store, clock timex.Clock, lifetime time.Duration) *KVStore {
	return &KVStore{kv: store, clock: clock, lifetime: lifetime}
}

func (s *KVStore) GetUser(ctx context.Context, id string) (*models.UserRecord, error) {
	b, err := s.kv.Get(ctx, userPrefix+id)
	if err != nil || b == nil {
		return nil, err
	}
	var rec models.UserRecord
	if err := json.Unmarshal(b, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode user %s: %w", id, err)
	}
	return &rec, nil
}

func (s *KVStore) PutUser(ctx context.Context, rec *models.UserRecord) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.kv.Set(ctx, userPrefix+rec.ID, b)
}

// DeleteUser removes the record for id. Deleting a missing user is not an error.
func (s *KVStore) DeleteUser(ctx context.Context, id string) error {
	return s.kv.Delete(ctx, userPrefix+id)
}

func (s *KVStore) ListUsers(ctx context.Context) ([]*models.UserRecord, error) {
	keys, err := kv.KeysWithPrefix(ctx, s.kv, userPrefix)
	if err != nil {
		return nil, err
	}
	users := make([]*models.UserRecord, 0, len(keys))
	for _, k := range keys {
		rec, err := s.GetUser(ctx, k[len(userPrefix):])
		if err != nil {
			return nil, err
		}
		if rec != nil {
			users = append(users, rec)
		}
	}
	return users, nil
}

// GetCurrentSession returns ErrInvalidSession for a tampered or expired
// record.
func (s *KVStore) GetCurrentSession(ctx context.Context) (*models.User, error) {
	token, err := s.kv.Get(ctx, keySession)
	if err != nil || token == nil {
		return nil, err
	}
	key, err := s.signingKey(ctx)
	if err != nil {
		return nil, err
	}
	return decodeSession(string(token), key, s.clock.Now())
}

func (s *KVStore) SetCurrentSession(ctx context.Context, user *models.User) error {
	key, err := s.signingKey(ctx)
	if err != nil {
		return err
	}
	token, err := encodeSession(user, key, s.clock.Now(), s.lifetime)
	if err != nil {
		return fmt.Errorf("failed to sign session: %w", err)
	}
	return s.kv.Set(ctx, keySession, []byte(token))
}

func (s *KVStore) ClearCurrentSession(ctx context.Context) error {
	return s.kv.Delete(ctx, keySession)
}

func (s *KVStore) GetFailureCount(ctx context.Context) (int, error) {
	b, err := s.kv.Get(ctx, keyFailedAttempts)
	if err != nil || b == nil {
		return 0, err
	}
	n, err := strconv.Atoi(string(b))
	if err != nil {
		return 0, fmt.Errorf("failed to decode failure count: %w", err)
	}
	return n, nil
}

func (s *KVStore) SetFailureCount(ctx context.Context, n int) error {
	if n == 0 {
		return s.kv.Delete(ctx, keyFailedAttempts)
	}
	return s.kv.Set(ctx, keyFailedAttempts, []byte(strconv.Itoa(n)))
}

func (s *KVStore) GetLockoutDeadline(ctx context.Context) (*time.Time, error) {
	b, err := s.kv.Get(ctx, keyLockoutDeadline)
	if err != nil || b == nil {
		return nil, err
	}
	t, err := time.Parse(time.RFC3339Nano, string(b))
	if err != nil {
		return nil, fmt.Errorf("failed to decode lockout deadline: %w", err)
	}
	return &t, nil
}

func (s *KVStore) SetLockoutDeadline(ctx context.Context, until *time.Time) error {
	if until == nil {
		return s.kv.Delete(ctx, keyLockoutDeadline)
	}
	return s.kv.Set(ctx, keyLockoutDeadline, []byte(until.UTC().Format(time.RFC3339Nano)))
}

func (s *KVStore) signingKey(ctx context.Context) ([]byte, error) {
	key, err := s.kv.Get(ctx, keySigningKey)
	if err != nil {
		return nil, err
	}
	if len(key) == signingKeySize {
		return key, nil
	}
	if key != nil {
		return nil, errors.New("corrupt session signing key")
	}

	key = common.GenerateRandByteArray(signingKeySize)
	if err := s.kv.Set(ctx, keySigningKey, key); err != nil {
		return nil, err
	}
	return key, nil
}
