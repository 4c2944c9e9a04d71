package cli

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/gophsignin/internal/auth"
	"github.com/dmitrijs2005/gophsignin/internal/common"
	"github.com/dmitrijs2005/gophsignin/internal/forms"
	"github.com/dmitrijs2005/gophsignin/internal/models"
	"github.com/dmitrijs2005/gophsignin/internal/validation"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

const (
	formLogin    = "login"
	formRegister = "register"

	// maxFieldTries bounds how often one invalid field is asked again.
	maxFieldTries = 3
)

type field struct {
	name   string
	label  string
	secret bool
}

var registerFields = []field{
	{name: models.FieldEmail, label: "Email"},
	{name: models.FieldPassword, label: "Password", secret: true},
	{name: models.FieldConfirmPassword, label: "Confirm password", secret: true},
	{name: models.FieldFirstName, label: "First name"},
	{name: models.FieldLastName, label: "Last name"},
	{name: models.FieldPhoneNumber, label: "Phone number"},
}

var loginFields = []field{
	{name: models.FieldEmail, label: "Email"},
	{name: models.FieldPassword, label: "Password", secret: true},
}

// Register walks the user through the account form and creates the account.
// An interrupted or rejected form keeps its draft for the next attempt.
func (a *App) Register(ctx context.Context) error {
	f := a.openForm(ctx, formRegister, validation.RegisterRules(), registerFields)
	defer f.Close()

	if err := a.fill(f, registerFields); err != nil {
		a.keepDraft(ctx, f)
		return err
	}

	var user *models.User
	err := f.Submit(ctx, func(ctx context.Context, v map[string]string) error {
		u, err := a.machine.Register(ctx, models.RegisterDataFromValues(v))
		user = u
		return err
	})
	if err != nil {
		a.report(err)
		a.keepDraft(ctx, f)
		return err
	}

	printlnFn("Account created. Signed in as", user.Email)
	return nil
}

// Login prompts for email and password and signs in. While the account is
// locked it reports the remaining time without prompting.
func (a *App) Login(ctx context.Context) error {
	if s := a.machine.State(); s.IsLocked {
		err := a.lockedError(s)
		a.report(err)
		return err
	}

	f := a.openForm(ctx, formLogin, validation.LoginRules(), loginFields)
	defer f.Close()

	if err := a.fill(f, loginFields); err != nil {
		a.keepDraft(ctx, f)
		return err
	}

	var user *models.User
	err := f.Submit(ctx, func(ctx context.Context, v map[string]string) error {
		u, err := a.machine.Login(ctx, models.Credentials{
			Email:    v[models.FieldEmail],
			Password: v[models.FieldPassword],
		})
		user = u
		return err
	})
	if err != nil {
		a.report(err)
		a.keepDraft(ctx, f)
		if s := a.machine.State(); !s.IsLocked && s.FailedAttempts > 0 {
			printlnFn(fmt.Sprintf("Failed attempts: %d of %d", s.FailedAttempts, a.threshold()))
		}
		return err
	}

	printlnFn("Signed in as", user.Email)
	return nil
}

// Unlock signs in with the credentials saved by the last successful login.
func (a *App) Unlock(ctx context.Context) error {
	if a.isLoggedIn() {
		printlnFn("Already signed in")
		return nil
	}

	u, err := a.machine.LoginWithSavedCredentials(ctx, auth.AttemptManual)
	if err != nil {
		a.report(err)
		return err
	}
	if u == nil {
		printlnFn("Not signed in: no saved credentials were used")
		return nil
	}
	printlnFn("Signed in as", u.Email)
	return nil
}

func (a *App) Logout(ctx context.Context) error {
	a.machine.Logout(ctx)
	printlnFn("Signed out")
	return nil
}

func (a *App) WhoAmI(ctx context.Context) error {
	u := a.machine.CurrentUser(ctx)
	if u == nil {
		printlnFn("Not signed in")
		return nil
	}
	printlnFn(fmt.Sprintf("%s %s <%s>", u.FirstName, u.LastName, u.Email))
	printlnFn("Phone:", u.PhoneNumber)
	printlnFn("Member since:", u.CreatedAt.Local().Format("2006-01-02"))
	return nil
}

func (a *App) Status(ctx context.Context) error {
	s := a.machine.State()

	switch {
	case s.IsAuthenticated:
		printlnFn("Signed in as", s.User.Email)
	case s.IsLocked:
		printlnFn(fmt.Sprintf("Locked for another %s", a.remaining(s)))
	default:
		printlnFn("Signed out")
	}
	printlnFn(fmt.Sprintf("Failed attempts: %d of %d", s.FailedAttempts, a.threshold()))

	has, err := a.vault.HasCredentials(ctx)
	if err != nil {
		a.log.Warn(ctx, "failed to check saved credentials", "err", err)
	}
	if has {
		kind, _ := a.vault.SupportedBiometryKind(ctx)
		printlnFn(fmt.Sprintf("Saved credentials: yes (unlock with %s)", kind))
	} else {
		printlnFn("Saved credentials: no")
	}
	return nil
}

func (a *App) threshold() int {
	if a.config.LockoutThreshold > 0 {
		return a.config.LockoutThreshold
	}
	return 5
}

func (a *App) openForm(ctx context.Context, key string, rules validation.Rules, fields []field) *forms.Form {
	defaults := make(map[string]string, len(fields))
	var transient []string
	for _, fd := range fields {
		defaults[fd.name] = ""
		if fd.secret {
			transient = append(transient, fd.name)
		}
	}

	f := forms.NewForm(ctx, forms.Options{
		Defaults:         defaults,
		Rules:            rules,
		PersistKey:       key,
		ValidateOnChange: true,
		Debounce:         a.config.AutosaveDebounce,
		Transient:        transient,
	}, a.drafts, a.clock, a.log)
	<-f.Loaded()
	return f
}

// fill asks for every field in order. An invalid answer is reported and
// asked again, up to maxFieldTries times; Submit reports what is left.
func (a *App) fill(f *forms.Form, fields []field) error {
	for _, fd := range fields {
		for try := 0; try < maxFieldTries; try++ {
			v, err := a.readField(fd, f.Value(fd.name))
			if err != nil {
				return err
			}
			f.SetValue(fd.name, v)
			f.Blur(fd.name)

			fe := f.State().Errors[fd.name]
			if fe == nil {
				break
			}
			printlnFn(fe.Message)
		}
	}
	return nil
}

// readField reads one value. For plain fields an empty answer keeps the
// current (draft) value, which is shown in brackets.
func (a *App) readField(fd field, current string) (string, error) {
	if fd.secret {
		pw, err := getPassword(fd.label, a.out)
		if err != nil {
			return "", err
		}
		defer common.WipeByteArray(pw)
		return string(pw), nil
	}

	prompt := fd.label
	if current != "" {
		prompt += " [" + current + "]"
	}
	v, err := getSimpleText(a.reader, prompt, a.out)
	if err != nil {
		return "", err
	}
	if v == "" {
		return current, nil
	}
	return v, nil
}

func (a *App) keepDraft(ctx context.Context, f *forms.Form) {
	if err := f.Flush(ctx); err != nil {
		a.log.Warn(ctx, "failed to save form draft", "err", err)
	}
}
