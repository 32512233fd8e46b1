package syncer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/illarion/boveda/internal/remote"
	"github.com/illarion/boveda/internal/vault"
	"github.com/sergi/go-diff/diffmatchpatch"
)

// Outcome is what Reconcile would do.
type Outcome int

const (
	InSync Outcome = iota
	PushLocal
	AdoptRemote
	RemoteUnreadable
)

func (o Outcome) String() string {
	switch o {
	case InSync:
		return "in sync"
	case PushLocal:
		return "push local"
	case AdoptRemote:
		return "adopt remote"
	case RemoteUnreadable:
		return "remote cannot be opened, local kept"
	default:
		return "unknown"
	}
}

// Preview describes a reconcile without performing it.
type Preview struct {
	Outcome      Outcome
	RemoteFound  bool
	LocalUpdated time.Time
	// RemoteUpdated is zero when the remote slot is empty.
	RemoteUpdated time.Time
	// Diff lists record summaries, "-" for local-only and "+" for
	// remote-only lines. Empty when nothing differs or the remote is
	// unreadable.
	Diff string
}

// Preview fetches the remote slot and reports what Reconcile would do with
// it. Transport failures are returned, unlike Reconcile.
func (e *Engine) Preview(ctx context.Context, sess *vault.Session) (Preview, error) {
	local := sess.Container()
	p := Preview{LocalUpdated: local.UpdatedAt}

	rc, err := e.remote.Get(ctx, e.DeviceID())
	switch {
	case errors.Is(err, remote.ErrNotFound):
		p.Outcome = PushLocal
		return p, nil
	case err != nil:
		return p, err
	}
	p.RemoteFound = true
	p.RemoteUpdated = rc.UpdatedAt

	switch {
	case rc.NewerThan(local):
		p.Outcome = AdoptRemote
	case local.NewerThan(rc):
		p.Outcome = PushLocal
	default:
		p.Outcome = InSync
	}

	remoteSess, err := e.store.Adopt(sess, rc)
	if err != nil {
		if p.Outcome == AdoptRemote {
			p.Outcome = RemoteUnreadable
		}
		return p, nil
	}
	p.Diff = diffRecords(sess.Records(), remoteSess.Records())
	return p, nil
}

// summarize renders one line per record. Passwords are never included;
// a change is visible through updatedAt.
func summarize(records []vault.Record) string {
	var b strings.Builder
	for _, r := range records {
		fmt.Fprintf(&b, "%s\t%s\t%s\t%s\n", r.Name, r.Username, r.URL, vault.FormatTime(r.UpdatedAt))
	}
	return b.String()
}

func diffRecords(local, remote []vault.Record) string {
	localStr, remoteStr := summarize(local), summarize(remote)
	if localStr == remoteStr {
		return ""
	}

	dmp := diffmatchpatch.New()

	// Line-mode diff, one record per line
	a, b, lineArray := dmp.DiffLinesToChars(localStr, remoteStr)
	diffs := dmp.DiffMain(a, b, false)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)

	var buf bytes.Buffer
	for _, d := range diffs {
		var mark string
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			mark = "- "
		case diffmatchpatch.DiffInsert:
			mark = "+ "
		default:
			mark = "  "
		}
		for _, line := range strings.SplitAfter(d.Text, "\n") {
			if line == "" {
				continue
			}
			buf.WriteString(mark)
			buf.WriteString(line)
		}
	}
	return buf.String()
}
