package session

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophsignin/internal/kv"
	"github.com/dmitrijs2005/gophsignin/internal/models"
	"github.com/dmitrijs2005/gophsignin/internal/timex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func setupKV(t *testing.T) *kv.SQLiteStore {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	_, err = db.Exec(`CREATE TABLE kv (key TEXT PRIMARY KEY, value BLOB NOT NULL);`)
	require.NoError(t, err)
	return kv.NewSQLiteStore(db)
}

func newStore(t *testing.T, lifetime time.Duration) (*KVStore, *kv.SQLiteStore, *timex.FakeClock) {
	t.Helper()
	clock := timex.NewFakeClock(t0)
	raw := setupKV(t)
	return NewKVStore(raw, clock, lifetime), raw, clock
}

func sampleUser(id, email string) *models.User {
	return &models.User{ID: id, Email: email, FirstName: "Jo", LastName: "Do", PhoneNumber: "1234567890", CreatedAt: t0}
}

func TestUsers_PutGetList(t *testing.T) {
	s, _, _ := newStore(t, 0)
	ctx := context.Background()

	missing, err := s.GetUser(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, s.PutUser(ctx, &models.UserRecord{User: *sampleUser("1", "a@b.com"), PasswordHash: "h1"}))
	require.NoError(t, s.PutUser(ctx, &models.UserRecord{User: *sampleUser("2", "c@d.com"), PasswordHash: "h2"}))

	got, err := s.GetUser(ctx, "1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "a@b.com", got.Email)
	assert.Equal(t, "h1", got.PasswordHash)
	assert.True(t, got.CreatedAt.Equal(t0))

	all, err := s.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestUsers_Delete(t *testing.T) {
	s, _, _ := newStore(t, 0)
	ctx := context.Background()
	require.NoError(t, s.PutUser(ctx, &models.UserRecord{User: *sampleUser("1", "a@b.com"), PasswordHash: "h1"}))

	require.NoError(t, s.DeleteUser(ctx, "1"))
	require.NoError(t, s.DeleteUser(ctx, "1"))

	got, err := s.GetUser(ctx, "1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestUsers_ListIgnoresOtherKeys(t *testing.T) {
	s, raw, _ := newStore(t, 0)
	ctx := context.Background()

	require.NoError(t, raw.Set(ctx, "form:register", []byte(`{}`)))
	require.NoError(t, s.SetFailureCount(ctx, 2))

	all, err := s.ListUsers(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestUsers_CorruptRecord(t *testing.T) {
	s, raw, _ := newStore(t, 0)
	ctx := context.Background()
	require.NoError(t, raw.Set(ctx, "auth:user:bad", []byte("{")))

	_, err := s.GetUser(ctx, "bad")
	require.ErrorContains(t, err, "failed to decode user bad")

	_, err = s.ListUsers(ctx)
	require.Error(t, err)
}

func TestCurrentSession_RoundTripAndClear(t *testing.T) {
	s, raw, _ := newStore(t, 0)
	ctx := context.Background()

	u, err := s.GetCurrentSession(ctx)
	require.NoError(t, err)
	assert.Nil(t, u)

	require.NoError(t, s.SetCurrentSession(ctx, sampleUser("1", "a@b.com")))

	token, err := raw.Get(ctx, keySession)
	require.NoError(t, err)
	assert.NotContains(t, string(token), "a@b.com", "payload is base64url encoded")

	u, err = s.GetCurrentSession(ctx)
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "1", u.ID)
	assert.Equal(t, "a@b.com", u.Email)

	require.NoError(t, s.ClearCurrentSession(ctx))
	require.NoError(t, s.ClearCurrentSession(ctx))
	u, err = s.GetCurrentSession(ctx)
	require.NoError(t, err)
	assert.Nil(t, u)
}

func TestCurrentSession_TamperedRejected(t *testing.T) {
	s, raw, _ := newStore(t, 0)
	ctx := context.Background()
	require.NoError(t, s.SetCurrentSession(ctx, sampleUser("1", "a@b.com")))

	// re-sign with a foreign key
	forged, err := encodeSession(sampleUser("2", "evil@x.com"), []byte("0123456789abcdef0123456789abcdef"), t0, 0)
	require.NoError(t, err)
	require.NoError(t, raw.Set(ctx, keySession, []byte(forged)))

	_, err = s.GetCurrentSession(ctx)
	require.ErrorIs(t, err, ErrInvalidSession)
}

func TestCurrentSession_Expires(t *testing.T) {
	s, _, clock := newStore(t, time.Hour)
	ctx := context.Background()
	require.NoError(t, s.SetCurrentSession(ctx, sampleUser("1", "a@b.com")))

	clock.Advance(59 * time.Minute)
	u, err := s.GetCurrentSession(ctx)
	require.NoError(t, err)
	require.NotNil(t, u)

	clock.Advance(2 * time.Minute)
	_, err = s.GetCurrentSession(ctx)
	require.ErrorIs(t, err, ErrInvalidSession)
}

func TestSigningKey_Stable(t *testing.T) {
	s, raw, _ := newStore(t, 0)
	ctx := context.Background()

	k1, err := s.signingKey(ctx)
	require.NoError(t, err)
	k2, err := s.signingKey(ctx)
	require.NoError(t, err)
	assert.Equal(t, k1, k2)
	assert.Len(t, k1, signingKeySize)

	require.NoError(t, raw.Set(ctx, keySigningKey, []byte("short")))
	_, err = s.signingKey(ctx)
	require.Error(t, err)
}

func TestFailureCountAndDeadline(t *testing.T) {
	s, raw, _ := newStore(t, 0)
	ctx := context.Background()

	n, err := s.GetFailureCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, s.SetFailureCount(ctx, 3))
	n, err = s.GetFailureCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	require.NoError(t, s.SetFailureCount(ctx, 0))
	v, err := raw.Get(ctx, keyFailedAttempts)
	require.NoError(t, err)
	assert.Nil(t, v, "zero deletes the counter")

	d, err := s.GetLockoutDeadline(ctx)
	require.NoError(t, err)
	assert.Nil(t, d)

	until := t0.Add(15 * time.Minute)
	require.NoError(t, s.SetLockoutDeadline(ctx, &until))
	d, err = s.GetLockoutDeadline(ctx)
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.True(t, d.Equal(until))

	require.NoError(t, s.SetLockoutDeadline(ctx, nil))
	d, err = s.GetLockoutDeadline(ctx)
	require.NoError(t, err)
	assert.Nil(t, d)
}

func TestFailureCount_Corrupt(t *testing.T) {
	s, raw, _ := newStore(t, 0)
	ctx := context.Background()
	require.NoError(t, raw.Set(ctx, keyFailedAttempts, []byte("many")))
	require.NoError(t, raw.Set(ctx, keyLockoutDeadline, []byte("soon")))

	_, err := s.GetFailureCount(ctx)
	require.Error(t, err)
	_, err = s.GetLockoutDeadline(ctx)
	require.Error(t, err)
}

func TestDecodeSession_RejectsOtherAlgorithms(t *testing.T) {
	_, err := decodeSession("not.a.token", []byte("k"), t0)
	require.True(t, errors.Is(err, ErrInvalidSession))
}
