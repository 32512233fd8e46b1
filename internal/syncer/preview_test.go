package syncer

import (
	"context"
	"testing"
	"time"

	"github.com/illarion/boveda/internal/vault"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreview_RemoteAbsent(t *testing.T) {
	f := newFixture(t)
	sess := f.create(t)

	p, err := f.engine.Preview(context.Background(), sess)
	require.NoError(t, err)
	assert.Equal(t, PushLocal, p.Outcome)
	assert.False(t, p.RemoteFound)
	// nothing was written
	assert.Empty(t, f.remote.puts)
}

func TestPreview_ShowsWhatAdoptionDiscards(t *testing.T) {
	f := newFixture(t)
	base := f.create(t)
	require.NoError(t, f.engine.Push(context.Background(), base.Container()))

	local := f.add(t, base, "Local only")
	remoteSess, err := f.store.Unlock(base.Container(), []byte("correcthorse"))
	require.NoError(t, err)
	remoteSess = f.add(t, remoteSess, "Remote only")
	require.NoError(t, f.remote.Put(context.Background(), device, remoteSess.Container()))

	p, err := f.engine.Preview(context.Background(), local)
	require.NoError(t, err)
	assert.Equal(t, AdoptRemote, p.Outcome)
	assert.True(t, p.RemoteFound)
	assert.True(t, p.RemoteUpdated.After(p.LocalUpdated))
	assert.Contains(t, p.Diff, "- Local only")
	assert.Contains(t, p.Diff, "+ Remote only")
	assert.NotContains(t, p.Diff, "\tp\t")
}

func TestPreview_InSync(t *testing.T) {
	f := newFixture(t)
	sess := f.add(t, f.create(t), "Mail")
	require.NoError(t, f.engine.Push(context.Background(), sess.Container()))

	p, err := f.engine.Preview(context.Background(), sess)
	require.NoError(t, err)
	assert.Equal(t, InSync, p.Outcome)
	assert.Empty(t, p.Diff)
}

func TestPreview_RemoteUnreadable(t *testing.T) {
	f := newFixture(t)
	local := f.create(t)

	f.clock.Advance(time.Hour)
	foreign, _, err := f.store.Create([]byte("anotherpassphrase"))
	require.NoError(t, err)
	require.NoError(t, f.remote.Put(context.Background(), device, foreign.Container()))

	p, err := f.engine.Preview(context.Background(), local)
	require.NoError(t, err)
	assert.Equal(t, RemoteUnreadable, p.Outcome)
	assert.Empty(t, p.Diff)
}

func TestPreview_Offline(t *testing.T) {
	f := newFixture(t)
	sess := f.create(t)
	f.remote.setDown(true)

	_, err := f.engine.Preview(context.Background(), sess)
	assert.ErrorIs(t, err, vault.ErrTransport)
}

func TestDiffRecords(t *testing.T) {
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	a := []vault.Record{{Name: "A", Username: "u", UpdatedAt: at}, {Name: "B", Username: "u", UpdatedAt: at}}
	b := []vault.Record{{Name: "A", Username: "u", UpdatedAt: at}, {Name: "C", Username: "u", UpdatedAt: at}}

	assert.Empty(t, diffRecords(a, a))

	d := diffRecords(a, b)
	assert.Contains(t, d, "  A\tu")
	assert.Contains(t, d, "- B\tu")
	assert.Contains(t, d, "+ C\tu")
}
