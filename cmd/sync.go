package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/illarion/boveda/internal/crypto"
	"github.com/illarion/boveda/internal/syncer"
)

// Sync reconciles the vault with the remote store. With dryRun it only
// reports what would happen.
func Sync(ctx context.Context, dryRun bool) {
	a := OpenApp(ctx, AppOptions{})
	defer a.Close()

	if a.Engine == nil {
		fmt.Println("Sync is disabled (remote.kind is none)")
		return
	}

	if !dryRun {
		a.UnlockOrExit(ctx)
		printSyncStatus(os.Stdout, a.Manager.SyncStatus())
		return
	}

	// Unlock reconciles, so the preview works on the local container only.
	passphrase, _ := GetPassphraseOrExit("Enter passphrase: ", a.DeviceID)
	defer crypto.ClearBytes(passphrase)
	c, err := a.Manager.Container()
	if err != nil {
		a.Fail(err)
	}
	sess, err := a.Store.Unlock(c, passphrase)
	if err != nil {
		a.Fail(err)
	}
	defer sess.Wipe()

	p, err := a.Engine.Preview(ctx, sess)
	if err != nil {
		a.Fail(err)
	}
	printPreview(os.Stdout, p)
}

func printSyncStatus(w io.Writer, st syncer.Status) {
	switch st.State {
	case syncer.Synced:
		fmt.Fprintf(w, "Synced at %s\n", st.LastSync.Local().Format(time.DateTime))
	case syncer.Offline:
		fmt.Fprintf(w, "Offline: %s\n", st.LastError)
	default:
		if st.LastError != nil {
			fmt.Fprintf(w, "Not synced: %s\n", st.LastError)
			return
		}
		fmt.Fprintln(w, "Not synced")
	}
}

func printPreview(w io.Writer, p syncer.Preview) {
	fmt.Fprintf(w, "Local updated:  %s\n", p.LocalUpdated.Local().Format(time.DateTime))
	if p.RemoteFound {
		fmt.Fprintf(w, "Remote updated: %s\n", p.RemoteUpdated.Local().Format(time.DateTime))
	} else {
		fmt.Fprintln(w, "Remote updated: never")
	}
	fmt.Fprintf(w, "Action:         %s\n", p.Outcome)
	if p.Diff != "" {
		fmt.Fprintln(w)
		fmt.Fprint(w, p.Diff)
	}
}
