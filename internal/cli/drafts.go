package cli

import (
	"context"
)

// Drafts lists the forms that have a saved draft.
func (a *App) Drafts(ctx context.Context) error {
	ids, err := a.drafts.FormIDs(ctx)
	if err != nil {
		a.log.Warn(ctx, "failed to list drafts", "err", err)
		printlnFn("Could not read saved drafts")
		return err
	}
	if len(ids) == 0 {
		printlnFn("No saved drafts")
		return nil
	}
	for _, id := range ids {
		printlnFn(" -", id)
	}
	return nil
}

// Discard deletes every saved draft.
func (a *App) Discard(ctx context.Context) error {
	if err := a.drafts.ClearAll(ctx); err != nil {
		a.log.Warn(ctx, "failed to discard drafts", "err", err)
		printlnFn("Could not discard drafts")
		return err
	}
	printlnFn("Drafts discarded")
	return nil
}
