// Package cli is the interactive terminal front-end of gophsignin.
//
// It opens the configured store, restores the previous session, optionally
// tries a silent sign-in with the saved credentials, and then runs a REPL:
//
//	Signed out: register, login, unlock, status, drafts, discard, exit
//	Signed in:  whoami, status, logout, exit
//
// Register and login go through autosaved forms, so a half-filled form
// interrupted with Ctrl-D is offered again on the next run. Passwords are
// never written to a draft.
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
