package storage

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// AppTag identifies bundles written by this server.
const AppTag = "deckplay"

var (
	// ErrEmptyImport is returned for imports with no entries.
	ErrEmptyImport = errors.New("import is empty")
	// ErrMalformedImport is returned for imports that do not decode into a valid bundle.
	ErrMalformedImport = errors.New("import is malformed")
	// ErrImportNotConfirmed is returned when Import is called without confirmation.
	ErrImportNotConfirmed = errors.New("import requires confirmation")
)

// Bundle is a snapshot of every key under a namespace.
type Bundle struct {
	App        string            `json:"app"`
	ExportedAt time.Time         `json:"exported_at"`
	Namespace  string            `json:"namespace"`
	Entries    map[string]string `json:"entries"`
	Checksum   string            `json:"checksum"`
}

// Transfer exports and imports namespaces of a Store.
type Transfer struct {
	store        Store
	namespace    string
	backupPrefix string
	now          func() time.Time
}

// NewTransfer returns a Transfer over namespace. Backups are written under
// backupPrefix, which must not start with namespace so an import never
// replaces its own backup.
func NewTransfer(store Store, namespace, backupPrefix string) (*Transfer, error) {
	if namespace == "" {
		return nil, fmt.Errorf("namespace is required")
	}
	if backupPrefix == "" || strings.HasPrefix(backupPrefix, namespace) {
		return nil, fmt.Errorf("backup prefix %q must be set and outside namespace %q", backupPrefix, namespace)
	}
	return &Transfer{store: store, namespace: namespace, backupPrefix: backupPrefix, now: time.Now}, nil
}

// Namespace returns the exported key prefix.
func (t *Transfer) Namespace() string { return t.namespace }

// Export snapshots the namespace.
func (t *Transfer) Export(ctx context.Context) (*Bundle, error) {
	entries, err := t.store.List(ctx, t.namespace)
	if err != nil {
		return nil, fmt.Errorf("failed to list namespace: %w", err)
	}
	return &Bundle{
		App:        AppTag,
		ExportedAt: t.now().UTC(),
		Namespace:  t.namespace,
		Entries:    entries,
		Checksum:   EntriesChecksum(entries),
	}, nil
}

// ExportJSON is Export encoded as indented JSON.
func (t *Transfer) ExportJSON(ctx context.Context) ([]byte, error) {
	bundle, err := t.Export(ctx)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(bundle, "", "  ")
}

// Import replaces the namespace with the entries of raw. The current contents
// are first written as a backup bundle; its key is returned. Nothing is
// changed unless confirm is set and raw decodes into a non-empty bundle.
func (t *Transfer) Import(ctx context.Context, raw []byte, confirm bool) (string, error) {
	bundle, err := t.decode(raw)
	if err != nil {
		return "", err
	}
	if !confirm {
		return "", ErrImportNotConfirmed
	}

	current, err := t.ExportJSON(ctx)
	if err != nil {
		return "", err
	}
	backupKey := fmt.Sprintf("%s%s-%s", t.backupPrefix, t.now().UTC().Format("20060102T150405Z"), uuid.NewString())
	if err := t.store.Put(ctx, backupKey, string(current)); err != nil {
		return "", fmt.Errorf("failed to write backup: %w", err)
	}
	if err := t.store.ReplacePrefix(ctx, t.namespace, bundle.Entries); err != nil {
		return backupKey, fmt.Errorf("failed to replace namespace: %w", err)
	}
	return backupKey, nil
}

// Backups lists the keys of stored backups, oldest first.
func (t *Transfer) Backups(ctx context.Context) ([]string, error) {
	entries, err := t.store.List(ctx, t.backupPrefix)
	if err != nil {
		return nil, err
	}
	return SortedKeys(entries), nil
}

func (t *Transfer) decode(raw []byte) (*Bundle, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, ErrEmptyImport
	}
	var bundle Bundle
	if err := json.Unmarshal(raw, &bundle); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedImport, err)
	}
	if bundle.App != AppTag {
		return nil, fmt.Errorf("%w: app tag %q", ErrMalformedImport, bundle.App)
	}
	if len(bundle.Entries) == 0 {
		return nil, ErrEmptyImport
	}
	for key := range bundle.Entries {
		if !strings.HasPrefix(key, t.namespace) {
			return nil, fmt.Errorf("%w: key %q is outside namespace %q", ErrMalformedImport, key, t.namespace)
		}
	}
	if bundle.Checksum != "" && bundle.Checksum != EntriesChecksum(bundle.Entries) {
		return nil, fmt.Errorf("%w: checksum mismatch", ErrMalformedImport)
	}
	return &bundle, nil
}

// EntriesChecksum is a SHA-256 over the entries in key order.
func EntriesChecksum(entries map[string]string) string {
	h := sha256.New()
	for _, key := range SortedKeys(entries) {
		fmt.Fprintf(h, "%d:%s=%d:%s\n", len(key), key, len(entries[key]), entries[key])
	}
	return hex.EncodeToString(h.Sum(nil))
}
