package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	Unlock(ctx context.Context) error
	Logout(ctx context.Context) error
	WhoAmI(ctx context.Context) error
	Status(ctx context.Context) error
	Drafts(ctx context.Context) error
	Discard(ctx context.Context) error
}

// runREPL reads commands from scanner and dispatches them to a until EOF or
// "exit"/"quit". The prompt shows statusFn().
//
//	Signed out:
//	  - help           — show available commands
//	  - register       — create an account
//	  - login          — sign in with email and password
//	  - unlock         — sign in with the saved credentials
//	  - status         — show failed attempts and lockout
//	  - drafts         — list saved form drafts
//	  - discard        — delete every saved form draft
//	  - exit | quit    — leave the program
//
//	Signed in:
//	  - help, whoami, status, logout, exit | quit
//
// Errors returned by command handlers are ignored here; handlers report
// their own errors. This keeps the REPL loop resilient and focused on I/O.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("signin %s> ", statusFn()))
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		cmd := parts[0]

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: whoami, status, logout, exit")
			} else {
				printlnFn("Available commands: register, login, unlock, status, drafts, discard, exit")
			}

		case "register":
			if a.isLoggedIn() {
				printlnFn("Already signed in; logout first")
				continue
			}
			_ = a.Register(ctx)

		case "login":
			if a.isLoggedIn() {
				printlnFn("Already signed in; logout first")
				continue
			}
			_ = a.Login(ctx)

		case "unlock":
			if a.isLoggedIn() {
				printlnFn("Already signed in; logout first")
				continue
			}
			_ = a.Unlock(ctx)

		case "logout":
			if !a.isLoggedIn() {
				printlnFn("Not signed in")
				continue
			}
			_ = a.Logout(ctx)

		case "whoami":
			_ = a.WhoAmI(ctx)

		case "status":
			_ = a.Status(ctx)

		case "drafts":
			_ = a.Drafts(ctx)

		case "discard":
			_ = a.Discard(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}
