package auth

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/gophsignin/internal/common"
	"github.com/dmitrijs2005/gophsignin/internal/models"
)

// AttemptMode says who started a saved-credential sign-in.
type AttemptMode int

const (
	// AttemptManual: the user asked for it and sees its errors.
	AttemptManual AttemptMode = iota
	// AttemptSilent: started automatically on screen entry; never reports.
	AttemptSilent
)

// LoginWithSavedCredentials signs in with the pair kept in the vault.
//
// No attempt is made, and no failure is counted, when the vault is empty or
// the user cancels the unlock prompt; the result is then (nil, nil). A
// credential mismatch goes through Login and counts like any other. Silent
// attempts log their errors and always return a nil error; a silent call
// that finds another attempt in flight simply does nothing.
func (m *Machine) LoginWithSavedCredentials(ctx context.Context, mode AttemptMode) (*models.User, error) {
	if m.vault == nil {
		return nil, nil
	}
	if !m.busy.CompareAndSwap(false, true) {
		if mode == AttemptSilent {
			return nil, nil
		}
		return nil, common.ErrAttemptInProgress
	}
	defer m.busy.Store(false)

	user, err := m.loginWithSaved(ctx)
	if err != nil && mode == AttemptSilent {
		m.log.Debug(ctx, "silent sign-in did not succeed", "err", err)
		return nil, nil
	}
	return user, err
}

func (m *Machine) loginWithSaved(ctx context.Context) (*models.User, error) {
	// a locked account is not even prompted
	if err := m.checkLocked(ctx); err != nil {
		return nil, err
	}

	has, err := m.vault.HasCredentials(ctx)
	if err != nil {
		m.log.Warn(ctx, "failed to check saved credentials", "err", err)
		return nil, nil
	}
	if !has {
		return nil, nil
	}

	creds, err := m.vault.Retrieve(ctx, m.prompt)
	if errors.Is(err, common.ErrPromptCancelled) {
		m.log.Debug(ctx, "unlock prompt cancelled")
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if creds == nil {
		return nil, nil
	}

	return m.login(ctx, *creds)
}
