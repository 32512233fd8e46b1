package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/illarion/boveda/internal/transfer"
)

// Show prints one record. The password is masked unless reveal is set;
// copy puts it on the clipboard instead.
func Show(ctx context.Context, ref string, reveal, copyPassword bool) {
	a := OpenApp(ctx, AppOptions{})
	defer a.Close()
	a.UnlockOrExit(ctx)

	records, err := a.Manager.Records()
	if err != nil {
		a.Fail(err)
	}
	rec, err := resolveID(records, ref)
	if err != nil {
		a.Fail(err)
	}

	printRecord(os.Stdout, rec, reveal)
	if copyPassword {
		if err := transfer.CopyToClipboard(rec.Password); err != nil {
			a.Fail(err)
		}
		fmt.Println("Password copied to clipboard")
	}
}
