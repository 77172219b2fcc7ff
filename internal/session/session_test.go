package session

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/magefree/deckplay-server-go/internal/catalog"
	"github.com/magefree/deckplay-server-go/internal/deck"
	"github.com/magefree/deckplay-server-go/internal/storage"
)

func newEngine(t *testing.T) *deck.Engine {
	t.Helper()
	reg, err := catalog.NewRegistry([]catalog.Card{
		{ID: "B1", Name: "Strike", Category: catalog.CategoryBase},
		{ID: "M1", Name: "Sharpen", Category: catalog.CategoryModifier, Cost: 2},
		{ID: "N0", Name: "Static", Category: catalog.CategoryNull},
	})
	require.NoError(t, err)
	return deck.NewEngine(reg, deck.DefaultRules(), deck.NewSeededShuffler(3))
}

func newManager(t *testing.T, store storage.Store) *Manager {
	t.Helper()
	tr, err := storage.NewTransfer(store, "deckplay/", "deckplay-backup/")
	require.NoError(t, err)
	m := NewManager(newEngine(t), store, tr, zaptest.NewLogger(t))
	capacity := 10
	m.SetPresets(deck.Presets{
		"starter": {Name: "starter", Base: map[string]int{"B1": 26}, Mods: map[string]int{"M1": 5}, Capacity: &capacity},
	})
	return m
}

func run(t *testing.T, m *Manager, key string, cmd Command) Response {
	t.Helper()
	resp, err := m.Execute(context.Background(), key, cmd)
	require.NoError(t, err)
	return resp
}

func TestCommandFlowPersistsAndRestores(t *testing.T) {
	store := storage.NewMemoryStore()
	m := newManager(t, store)

	resp := run(t, m, "alice", Command{Name: CmdApplyPreset, ID: "starter"})
	require.True(t, resp.Success, resp.Error)
	assert.True(t, resp.View.Validation.Overall)

	resp = run(t, m, "alice", Command{Name: CmdLock})
	require.True(t, resp.Success)
	assert.Equal(t, deck.NoticeShuffleBeforeDraw, resp.Notice)
	assert.Equal(t, 36, resp.View.DeckCount)

	resp = run(t, m, "alice", Command{Name: CmdDraw})
	assert.False(t, resp.Success)
	assert.Equal(t, deck.CodeNotShuffled, resp.Code)
	assert.Equal(t, "shuffle before drawing", resp.Error)

	resp = run(t, m, "alice", Command{Name: CmdShuffle})
	require.True(t, resp.Success)
	for i := 0; i < 3; i++ {
		resp = run(t, m, "alice", Command{Name: CmdDraw})
		require.True(t, resp.Success)
	}
	assert.Len(t, resp.View.Hand, 3)
	assert.Equal(t, 33, resp.View.DeckCount)

	raw, err := store.Get(context.Background(), "deckplay/alice")
	require.NoError(t, err)
	assert.Contains(t, raw, `"LOCKED_READY"`)

	restored := newManager(t, store)
	view, err := restored.View(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, resp.View.Checksum, view.Checksum)

	keys, err := restored.Keys(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, keys)
}

func TestRejectionsAreReportedNotReturned(t *testing.T) {
	m := newManager(t, storage.NewMemoryStore())

	resp := run(t, m, "bob", Command{Name: CmdApplyPreset, ID: "starter"})
	require.True(t, resp.Success)

	resp = run(t, m, "bob", Command{Name: CmdAdjustModCount, ID: "M1", Delta: 1})
	assert.False(t, resp.Success)
	assert.Equal(t, deck.CodeCapacityExceeded, resp.Code)
	assert.True(t, resp.Silent)
	assert.Equal(t, 10, resp.View.CapacityUsed)

	resp = run(t, m, "bob", Command{Name: CmdToggleAttach, ID: "M1"})
	assert.False(t, resp.Success)
	assert.Equal(t, deck.CodeNoBaseSelected, resp.Code)
	assert.NotEmpty(t, resp.Warning)

	resp = run(t, m, "bob", Command{Name: "teleport"})
	assert.False(t, resp.Success)
	assert.Equal(t, CodeUnknownCommand, resp.Code)

	resp = run(t, m, "bob", Command{Name: CmdApplyPreset, ID: "missing"})
	assert.False(t, resp.Success)
	assert.Equal(t, deck.CodeUnknownPreset, resp.Code)

	resp = run(t, m, "bob", Command{Name: CmdView})
	assert.True(t, resp.Success)
}

func TestPlayCommands(t *testing.T) {
	m := newManager(t, storage.NewMemoryStore())
	b, err := m.Builder(context.Background(), "carol")
	require.NoError(t, err)

	s := b.State()
	s, err = m.Engine().ApplyPreset(s, m.Presets()["starter"])
	require.NoError(t, err)
	s, err = m.Engine().Lock(s)
	require.NoError(t, err)
	s.Lifecycle = deck.LifecycleLockedReady
	s.Hand = []deck.HandEntry{{ID: "B1", State: deck.PlayStateUnspent}, {ID: "M1", State: deck.PlayStateUnspent}}
	s.Deck = s.Deck[:len(s.Deck)-2]
	b.mu.Lock()
	b.state = s
	b.mu.Unlock()

	resp := b.Execute(context.Background(), Command{Name: CmdStartPlay, ID: "B1"})
	require.True(t, resp.Success, resp.Error)
	resp = b.Execute(context.Background(), Command{Name: CmdToggleAttach, ID: "M1"})
	require.True(t, resp.Success, resp.Error)
	require.NotNil(t, resp.View.Play)
	assert.Equal(t, 2, resp.View.Play.CapacityUsed)

	resp = b.Execute(context.Background(), Command{Name: CmdFinalizePlay})
	require.True(t, resp.Success)
	assert.Nil(t, resp.View.Play)
	assert.Empty(t, resp.View.Hand)
	assert.Len(t, resp.View.Discard, 2)

	resp = b.Execute(context.Background(), Command{Name: CmdReturnDiscardToHand, ID: "M1"})
	require.True(t, resp.Success)
	assert.Len(t, resp.View.Hand, 1)

	resp = b.Execute(context.Background(), Command{Name: CmdDiscardFromHand, ID: "M1", Origin: "played"})
	require.True(t, resp.Success)
	assert.Equal(t, deck.OriginPlayed, resp.View.Discard[len(resp.View.Discard)-1].Origin)

	resp = b.Execute(context.Background(), Command{Name: CmdReturnAllDiscardToDeck, ToTop: true})
	require.True(t, resp.Success)
	assert.Empty(t, resp.View.Discard)
	assert.Equal(t, 36, resp.View.DeckCount)

	resp = b.Execute(context.Background(), Command{Name: CmdDiscardFromDeck})
	require.True(t, resp.Success)
	assert.Len(t, resp.View.Discard, 1)

	resp = b.Execute(context.Background(), Command{Name: CmdSetHandLimit, Limit: 21})
	assert.Equal(t, deck.CodeInvalidHandLimit, resp.Code)
}

func TestInvalidKeys(t *testing.T) {
	m := newManager(t, storage.NewMemoryStore())
	for _, key := range []string{"", "has space", string(make([]byte, MaxKeyLength+1))} {
		_, err := m.Execute(context.Background(), key, Command{Name: CmdView})
		assert.ErrorIs(t, err, ErrInvalidKey)
	}
}

func TestCorruptRecordRestoresDefaults(t *testing.T) {
	store := storage.NewMemoryStore()
	require.NoError(t, store.Put(context.Background(), "deckplay/dave", "{not json"))
	m := newManager(t, store)

	view, err := m.View(context.Background(), "dave")
	require.NoError(t, err)
	assert.Equal(t, "UNLOCKED", view.Lifecycle)
	assert.Equal(t, 5, view.Nulls)
}

func TestImportDropsOpenBuilders(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	m := newManager(t, store)

	require.True(t, run(t, m, "erin", Command{Name: CmdApplyPreset, ID: "starter"}).Success)
	exported, err := m.Export(ctx)
	require.NoError(t, err)

	require.True(t, run(t, m, "erin", Command{Name: CmdResetBuilder}).Success)
	_, err = m.Import(ctx, exported, false)
	require.ErrorIs(t, err, storage.ErrImportNotConfirmed)

	backupKey, err := m.Import(ctx, exported, true)
	require.NoError(t, err)
	assert.NotEmpty(t, backupKey)

	view, err := m.View(ctx, "erin")
	require.NoError(t, err)
	assert.Equal(t, 26, view.BaseTotal)
}

func TestImportClosesHeldBuilders(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	m := newManager(t, store)

	require.True(t, run(t, m, "gina", Command{Name: CmdApplyPreset, ID: "starter"}).Success)
	exported, err := m.Export(ctx)
	require.NoError(t, err)
	require.True(t, run(t, m, "gina", Command{Name: CmdResetBuilder}).Success)

	held, err := m.Builder(ctx, "gina")
	require.NoError(t, err)
	_, err = m.Import(ctx, exported, true)
	require.NoError(t, err)
	assert.True(t, held.Closed())

	resp := held.Execute(ctx, Command{Name: CmdAdjustNullCount, Delta: 1})
	assert.False(t, resp.Success)
	assert.Equal(t, CodeBuilderClosed, resp.Code)

	view, err := m.View(ctx, "gina")
	require.NoError(t, err)
	assert.Equal(t, 26, view.BaseTotal, "imported record survives the held builder")
	assert.Equal(t, 5, view.Nulls)

	resp = run(t, m, "gina", Command{Name: CmdAdjustNullCount, Delta: 1})
	require.True(t, resp.Success)
	assert.Equal(t, 26, resp.View.BaseTotal)
	assert.Equal(t, 6, resp.View.Nulls)
}

func TestFailedImportKeepsOpenBuilders(t *testing.T) {
	ctx := context.Background()
	m := newManager(t, storage.NewMemoryStore())
	held, err := m.Builder(ctx, "hank")
	require.NoError(t, err)

	_, err = m.Import(ctx, []byte(`{}`), false)
	require.Error(t, err)
	assert.False(t, held.Closed())

	again, err := m.Builder(ctx, "hank")
	require.NoError(t, err)
	assert.Same(t, held, again)
}

func TestCloseClosesBuilders(t *testing.T) {
	ctx := context.Background()
	m := newManager(t, storage.NewMemoryStore())
	held, err := m.Builder(ctx, "ivan")
	require.NoError(t, err)

	m.Close()
	assert.True(t, held.Closed())
	assert.Equal(t, CodeBuilderClosed, held.Execute(ctx, Command{Name: CmdView}).Code)
}

type failingStore struct {
	*storage.MemoryStore
}

func (failingStore) Put(context.Context, string, string) error {
	return errors.New("disk on fire")
}

func TestPersistenceFailureDoesNotFailCommand(t *testing.T) {
	m := newManager(t, failingStore{storage.NewMemoryStore()})
	resp := run(t, m, "frank", Command{Name: CmdAdjustNullCount, Delta: 1})
	assert.True(t, resp.Success)
	assert.Equal(t, 6, resp.View.Nulls)
}
