package cli

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/gophsignin/internal/vault"
)

// terminalGate guards the credential vault with a y/N confirmation. Anything
// but an explicit yes, including EOF, counts as a dismissed prompt.
type terminalGate struct {
	ask func(prompt string) (string, error)
}

func (g *terminalGate) Kind() vault.BiometryKind {
	return vault.BiometryPasscode
}

func (g *terminalGate) Authenticate(ctx context.Context, p vault.Prompt) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	q := fmt.Sprintf("%s: %s. %s [y/N] (%s: n)", p.Title, p.Subtitle, p.Description, p.CancelLabel)
	answer, err := g.ask(q)
	if err != nil || !IsYes(answer) {
		return vault.ErrPromptCancelled
	}
	return nil
}
