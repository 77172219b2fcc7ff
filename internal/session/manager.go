package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/magefree/deckplay-server-go/internal/deck"
	"github.com/magefree/deckplay-server-go/internal/storage"
)

// MaxKeyLength bounds caller-supplied builder keys.
const MaxKeyLength = 128

// ErrInvalidKey is returned for empty, oversized or whitespace-bearing keys.
var ErrInvalidKey = errors.New("invalid builder key")

// ErrBuilderClosed is the error text of a command sent to a dropped builder.
var ErrBuilderClosed = errors.New("builder was closed, reopen it from the manager")

// Manager holds the builders of one namespace, restoring each lazily from
// storage on first use.
type Manager struct {
	engine    *deck.Engine
	store     storage.Store
	transfer  *storage.Transfer
	namespace string
	logger    *zap.Logger

	mu       sync.Mutex
	builders map[string]*Builder

	presetsMu sync.RWMutex
	presets   deck.Presets
}

// NewManager returns a Manager keeping builders under transfer's namespace.
func NewManager(engine *deck.Engine, store storage.Store, transfer *storage.Transfer, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		engine:    engine,
		store:     store,
		transfer:  transfer,
		namespace: transfer.Namespace(),
		logger:    logger,
		builders:  make(map[string]*Builder),
	}
}

// Engine returns the shared engine.
func (m *Manager) Engine() *deck.Engine { return m.engine }

// SetPresets replaces the presets offered to applyPreset.
func (m *Manager) SetPresets(p deck.Presets) {
	m.presetsMu.Lock()
	defer m.presetsMu.Unlock()
	m.presets = p
}

// Presets returns the current presets.
func (m *Manager) Presets() deck.Presets {
	m.presetsMu.RLock()
	defer m.presetsMu.RUnlock()
	return m.presets
}

// PresetNames returns the preset names in order.
func (m *Manager) PresetNames() []string {
	presets := m.Presets()
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Builder returns the builder for key, restoring it on first use.
func (m *Manager) Builder(ctx context.Context, key string) (*Builder, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if b, ok := m.builders[key]; ok {
		return b, nil
	}

	b := NewBuilder(m.namespace+key, m.engine, m.store, m.Presets, m.logger)
	if err := b.Restore(ctx); err != nil {
		return nil, err
	}
	m.builders[key] = b
	m.logger.Info("builder opened",
		zap.String("builder_key", key),
		zap.String("builder_id", b.ID),
	)
	return b, nil
}

// Execute runs cmd on the builder for key. A command that raced an import
// is retried once on the reopened builder.
func (m *Manager) Execute(ctx context.Context, key string, cmd Command) (Response, error) {
	var resp Response
	for attempt := 0; attempt < 2; attempt++ {
		b, err := m.Builder(ctx, key)
		if err != nil {
			return Response{}, err
		}
		resp = b.Execute(ctx, cmd)
		if resp.Code != CodeBuilderClosed {
			break
		}
	}
	return resp, nil
}

// View returns the view of the builder for key.
func (m *Manager) View(ctx context.Context, key string) (deck.View, error) {
	b, err := m.Builder(ctx, key)
	if err != nil {
		return deck.View{}, err
	}
	return b.View(), nil
}

// Keys lists every known builder key, persisted or open.
func (m *Manager) Keys(ctx context.Context) ([]string, error) {
	entries, err := m.store.List(ctx, m.namespace)
	if err != nil {
		return nil, fmt.Errorf("failed to list builders: %w", err)
	}
	seen := make(map[string]bool, len(entries))
	for k := range entries {
		seen[strings.TrimPrefix(k, m.namespace)] = true
	}
	m.mu.Lock()
	for k := range m.builders {
		seen[k] = true
	}
	m.mu.Unlock()

	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// Export snapshots every persisted builder.
func (m *Manager) Export(ctx context.Context) ([]byte, error) {
	return m.transfer.ExportJSON(ctx)
}

// Import replaces every persisted builder with raw after writing a backup.
// Open builders are held for the duration and closed on success, so the next
// use restores the imported record and a held *Builder cannot overwrite it.
func (m *Manager) Import(ctx context.Context, raw []byte, confirm bool) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, b := range m.builders {
		b.mu.Lock()
	}
	backupKey, err := m.transfer.Import(ctx, raw, confirm)
	for _, b := range m.builders {
		if err == nil {
			b.closed = true
		}
		b.mu.Unlock()
	}
	if err != nil {
		return backupKey, err
	}
	m.builders = make(map[string]*Builder)
	m.logger.Info("builders imported", zap.String("backup_key", backupKey))
	return backupKey, nil
}

// Close closes and drops every open builder.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.builders {
		b.mu.Lock()
		b.closed = true
		b.mu.Unlock()
	}
	m.builders = make(map[string]*Builder)
}

func validateKey(key string) error {
	if key == "" || len(key) > MaxKeyLength || strings.ContainsAny(key, " \t\r\n") {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}
