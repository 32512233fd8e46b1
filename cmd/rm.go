package cmd

import (
	"context"
	"fmt"
	"os"
)

// Remove deletes records by id or unique id prefix
func Remove(ctx context.Context, refs []string, force bool) {
	if len(refs) == 0 {
		fmt.Fprintf(os.Stderr, "Error: rm requires at least one record id\n")
		fmt.Fprintf(os.Stderr, "Usage: boveda rm <id> [id...]\n")
		os.Exit(1)
	}

	a := OpenApp(ctx, AppOptions{})
	defer a.Close()
	a.UnlockOrExit(ctx)

	records, err := a.Manager.Records()
	if err != nil {
		a.Fail(err)
	}

	for _, ref := range refs {
		rec, err := resolveID(records, ref)
		if err != nil {
			a.Fail(err)
		}
		if !force && !Confirm(fmt.Sprintf("Remove %s (%s)?", rec.Name, rec.Username)) {
			fmt.Printf("Skipped %s\n", rec.Name)
			continue
		}
		if err := a.Manager.Remove(rec.ID); err != nil {
			a.Fail(err)
		}
		fmt.Printf("✓ Removed %s\n", rec.Name)
	}
}
