package cmd

import (
	"context"
	"os"
)

// List prints the records matching term, or every record when term is empty
func List(ctx context.Context, term string) {
	a := OpenApp(ctx, AppOptions{})
	defer a.Close()
	a.UnlockOrExit(ctx)

	records, err := a.Manager.Search(term)
	if err != nil {
		a.Fail(err)
	}
	printRecords(os.Stdout, records)
}
