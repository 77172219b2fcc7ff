package storage

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTransfer(t *testing.T) (*Transfer, *MemoryStore) {
	t.Helper()
	store := NewMemoryStore()
	tr, err := NewTransfer(store, "deckplay/", "deckplay-backup/")
	require.NoError(t, err)
	return tr, store
}

func TestNewTransferRejectsNestedBackupPrefix(t *testing.T) {
	_, err := NewTransfer(NewMemoryStore(), "deckplay/", "deckplay/backups/")
	assert.Error(t, err)
	_, err = NewTransfer(NewMemoryStore(), "", "b/")
	assert.Error(t, err)
}

func TestExportImportRoundTrip(t *testing.T) {
	ctx := context.Background()
	tr, store := newTransfer(t)
	require.NoError(t, store.Put(ctx, "deckplay/alpha", `{"lifecycle":"UNLOCKED"}`))
	require.NoError(t, store.Put(ctx, "deckplay/beta", `{}`))
	require.NoError(t, store.Put(ctx, "unrelated", "keep"))

	raw, err := tr.ExportJSON(ctx)
	require.NoError(t, err)

	var bundle Bundle
	require.NoError(t, json.Unmarshal(raw, &bundle))
	assert.Equal(t, AppTag, bundle.App)
	assert.Equal(t, "deckplay/", bundle.Namespace)
	assert.Len(t, bundle.Entries, 2)
	assert.False(t, bundle.ExportedAt.IsZero())

	require.NoError(t, store.Put(ctx, "deckplay/gamma", "new"))
	require.NoError(t, store.Delete(ctx, "deckplay/beta"))

	backupKey, err := tr.Import(ctx, raw, true)
	require.NoError(t, err)

	listed, err := store.List(ctx, "deckplay/")
	require.NoError(t, err)
	assert.Equal(t, bundle.Entries, listed)

	keep, err := store.Get(ctx, "unrelated")
	require.NoError(t, err)
	assert.Equal(t, "keep", keep)

	backups, err := tr.Backups(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{backupKey}, backups)

	backupRaw, err := store.Get(ctx, backupKey)
	require.NoError(t, err)
	var backup Bundle
	require.NoError(t, json.Unmarshal([]byte(backupRaw), &backup))
	assert.Equal(t, map[string]string{"deckplay/alpha": `{"lifecycle":"UNLOCKED"}`, "deckplay/gamma": "new"}, backup.Entries)
}

func TestImportFailuresLeaveStoreUntouched(t *testing.T) {
	ctx := context.Background()
	tr, store := newTransfer(t)
	require.NoError(t, store.Put(ctx, "deckplay/alpha", "a"))

	valid := func(entries map[string]string) []byte {
		raw, err := json.Marshal(Bundle{App: AppTag, Namespace: "deckplay/", Entries: entries, Checksum: EntriesChecksum(entries)})
		require.NoError(t, err)
		return raw
	}

	tests := []struct {
		name    string
		raw     []byte
		confirm bool
		wantErr error
	}{
		{"empty input", []byte("  "), true, ErrEmptyImport},
		{"not json", []byte("{oops"), true, ErrMalformedImport},
		{"wrong app", []byte(`{"app":"other","entries":{"deckplay/x":"1"}}`), true, ErrMalformedImport},
		{"no entries", valid(map[string]string{}), true, ErrEmptyImport},
		{"outside namespace", valid(map[string]string{"elsewhere": "1"}), true, ErrMalformedImport},
		{"bad checksum", []byte(`{"app":"deckplay","entries":{"deckplay/x":"1"},"checksum":"00"}`), true, ErrMalformedImport},
		{"unconfirmed", valid(map[string]string{"deckplay/x": "1"}), false, ErrImportNotConfirmed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tr.Import(ctx, tt.raw, tt.confirm)
			assert.ErrorIs(t, err, tt.wantErr)

			listed, err := store.List(ctx, "")
			require.NoError(t, err)
			assert.Equal(t, map[string]string{"deckplay/alpha": "a"}, listed, "no backup and no replacement")
		})
	}
}

func TestEntriesChecksumIsOrderIndependent(t *testing.T) {
	a := map[string]string{"x": "1", "y": "2"}
	b := map[string]string{"y": "2", "x": "1"}
	assert.Equal(t, EntriesChecksum(a), EntriesChecksum(b))
	assert.NotEqual(t, EntriesChecksum(a), EntriesChecksum(map[string]string{"x": "12"}))
}
