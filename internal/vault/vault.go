// Package vault is the single-slot credential store behind "sign in with
// saved credentials". Credentials are sealed with AES-GCM inside a
// service-scoped key range, and reading them back can be gated by a
// biometric or passcode prompt.
package vault

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophsignin/internal/common"
	"github.com/dmitrijs2005/gophsignin/internal/cryptox"
	"github.com/dmitrijs2005/gophsignin/internal/kv"
	"github.com/dmitrijs2005/gophsignin/internal/models"
)

// ErrPromptCancelled is returned by Gate.Authenticate and Retrieve when the
// user dismisses the prompt.
var ErrPromptCancelled = common.ErrPromptCancelled

// ErrGateFailed means the platform check ran and rejected the user.
var ErrGateFailed = errors.New("device authentication failed")

type BiometryKind string

const (
	BiometryNone        BiometryKind = ""
	BiometryFace        BiometryKind = "face"
	BiometryFingerprint BiometryKind = "fingerprint"
	BiometryPasscode    BiometryKind = "passcode"
)

// Prompt is the text of the unlock dialog.
type Prompt struct {
	Title         string
	Subtitle      string
	Description   string
	CancelLabel   string
	FallbackLabel string
}

// DefaultPrompt is shown when the caller does not supply one.
var DefaultPrompt = Prompt{
	Title:         "Sign in",
	Subtitle:      "Use your saved credentials",
	Description:   "Confirm it's you to continue",
	CancelLabel:   "Cancel",
	FallbackLabel: "Use passcode",
}

// Gate is the platform check guarding retrieval.
type Gate interface {
	Kind() BiometryKind
	Authenticate(ctx context.Context, p Prompt) error
}

// CredentialStore is the contract the auth machine consumes.
type CredentialStore interface {
	Store(ctx context.Context, c models.Credentials) error
	Retrieve(ctx context.Context, p Prompt) (*models.Credentials, error)
	Clear(ctx context.Context) error
	HasCredentials(ctx context.Context) (bool, error)
	SupportedBiometryKind(ctx context.Context) (BiometryKind, error)
}

const keySize = 32

// Vault implements CredentialStore over a kv.Store. The sealing key lives
// in the same slot range; on a real device it would come from the platform
// keystore instead.
type Vault struct {
	kv   kv.Store
	gate Gate

	keyCredentials string
	keySealing     string
}

// New returns a Vault scoped to service. A nil gate makes retrieval ungated.
func New(store kv.Store, service string, gate Gate) *Vault {
	prefix := "vault:" + service + ":"
	return &Vault{
		kv:             store,
		gate:           gate,
		keyCredentials: prefix + "credentials",
		keySealing:     prefix + "key",
	}
}

func (v *Vault) Store(ctx context.Context, c models.Credentials) error {
	key, err := v.sealingKey(ctx)
	if err != nil {
		return err
	}
	sealed, err := cryptox.Seal(c, key)
	if err != nil {
		return fmt.Errorf("failed to seal credentials: %w", err)
	}
	return v.kv.Set(ctx, v.keyCredentials, sealed)
}

// Retrieve asks the gate first, then unseals the slot. It returns (nil, nil)
// when the slot is empty, without prompting.
func (v *Vault) Retrieve(ctx context.Context, p Prompt) (*models.Credentials, error) {
	sealed, err := v.kv.Get(ctx, v.keyCredentials)
	if err != nil || sealed == nil {
		return nil, err
	}

	if v.gate != nil {
		if err := v.gate.Authenticate(ctx, p); err != nil {
			return nil, err
		}
	}

	key, err := v.kv.Get(ctx, v.keySealing)
	if err != nil {
		return nil, err
	}
	if key == nil {
		return nil, errors.New("vault sealing key missing")
	}

	var c models.Credentials
	if err := cryptox.Open(sealed, key, &c); err != nil {
		return nil, fmt.Errorf("failed to open credentials: %w", err)
	}
	return &c, nil
}

// Clear empties the slot and discards the sealing key.
func (v *Vault) Clear(ctx context.Context) error {
	return v.kv.DeleteMany(ctx, v.keyCredentials, v.keySealing)
}

func (v *Vault) HasCredentials(ctx context.Context) (bool, error) {
	sealed, err := v.kv.Get(ctx, v.keyCredentials)
	if err != nil {
		return false, err
	}
	return sealed != nil, nil
}

func (v *Vault) SupportedBiometryKind(ctx context.Context) (BiometryKind, error) {
	if v.gate == nil {
		return BiometryNone, nil
	}
	return v.gate.Kind(), nil
}

func (v *Vault) sealingKey(ctx context.Context) ([]byte, error) {
	key, err := v.kv.Get(ctx, v.keySealing)
	if err != nil {
		return nil, err
	}
	if len(key) == keySize {
		return key, nil
	}

	key = common.GenerateRandByteArray(keySize)
	if err := v.kv.Set(ctx, v.keySealing, key); err != nil {
		return nil, err
	}
	return key, nil
}
