// Package session binds deck engine state to storage keys and exposes the
// command surface used by the transports.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/magefree/deckplay-server-go/internal/deck"
	"github.com/magefree/deckplay-server-go/internal/storage"
)

// Builder owns one deck state. Commands are applied one at a time; each
// computes the next state from a snapshot of the previous one and persists
// it afterwards on a best-effort basis.
type Builder struct {
	ID  string
	Key string

	mu        sync.Mutex
	engine    *deck.Engine
	store     storage.Store
	presets   func() deck.Presets
	logger    *zap.Logger
	state     deck.State
	updatedAt time.Time
	// closed is set once the manager drops the builder. A closed builder
	// never applies or persists another command.
	closed bool
}

// NewBuilder returns a builder in the default state. Call Restore to load
// the persisted record.
func NewBuilder(key string, engine *deck.Engine, store storage.Store, presets func() deck.Presets, logger *zap.Logger) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	if presets == nil {
		presets = func() deck.Presets { return nil }
	}
	return &Builder{
		ID:        uuid.NewString(),
		Key:       key,
		engine:    engine,
		store:     store,
		presets:   presets,
		logger:    logger,
		state:     engine.NewState(),
		updatedAt: time.Now(),
	}
}

// Restore loads the persisted record. A missing or corrupt record leaves the
// default state; only storage failures are returned.
func (b *Builder) Restore(ctx context.Context) error {
	if b.store == nil {
		return nil
	}
	raw, err := b.store.Get(ctx, b.Key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to restore %s: %w", b.Key, err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = deck.Deserialize([]byte(raw), b.engine.Rules())
	b.logger.Debug("builder restored",
		zap.String("builder_key", b.Key),
		zap.String("lifecycle", b.state.Lifecycle.String()),
	)
	return nil
}

// State returns a copy of the current state.
func (b *Builder) State() deck.State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state.Clone()
}

// View summarizes the current state.
func (b *Builder) View() deck.View {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.engine.View(b.state)
}

// UpdatedAt is when the state last changed.
func (b *Builder) UpdatedAt() time.Time {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.updatedAt
}

// Execute applies cmd. Rejections never change the state and are reported
// in the response, not as errors. A builder dropped by its manager answers
// with CodeBuilderClosed.
func (b *Builder) Execute(ctx context.Context, cmd Command) Response {
	b.mu.Lock()
	defer b.mu.Unlock()

	prev := b.state
	if b.closed {
		return Response{Code: CodeBuilderClosed, Error: ErrBuilderClosed.Error(), View: b.engine.View(prev)}
	}
	next, notice, err := b.apply(prev, cmd)
	if err != nil {
		resp := Response{
			Code:   deck.CodeOf(err),
			Error:  err.Error(),
			Silent: deck.IsSilent(err),
			View:   b.engine.View(prev),
		}
		if deck.IsWarning(err) {
			resp.Warning = err.Error()
		}
		if resp.Code == "" {
			resp.Code = CodeUnknownCommand
		}
		b.logger.Debug("command rejected",
			zap.String("builder_key", b.Key),
			zap.String("command", cmd.Name),
			zap.String("code", string(resp.Code)),
		)
		return resp
	}

	if deck.Checksum(next) != deck.Checksum(prev) {
		b.state = next
		b.updatedAt = time.Now()
		b.persist(ctx)
	}
	return Response{Success: true, Notice: notice, View: b.engine.View(b.state)}
}

// Closed reports whether the manager has dropped b.
func (b *Builder) Closed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

func (b *Builder) persist(ctx context.Context) {
	if b.store == nil {
		return
	}
	raw, err := deck.Serialize(b.state)
	if err != nil {
		b.logger.Warn("failed to serialize builder", zap.String("builder_key", b.Key), zap.Error(err))
		return
	}
	if err := b.store.Put(ctx, b.Key, string(raw)); err != nil {
		b.logger.Warn("failed to persist builder", zap.String("builder_key", b.Key), zap.Error(err))
	}
}

func (b *Builder) apply(s deck.State, cmd Command) (deck.State, string, error) {
	e := b.engine
	switch cmd.Name {
	case CmdAdjustBaseCount:
		next, err := e.AdjustBaseCount(s, cmd.ID, cmd.Delta)
		return next, "", err
	case CmdAdjustModCount:
		next, err := e.AdjustModCount(s, cmd.ID, cmd.Delta)
		return next, "", err
	case CmdAdjustNullCount:
		next, err := e.AdjustNullCount(s, cmd.Delta)
		return next, "", err
	case CmdAdjustModifierCapacity:
		next, err := e.AdjustModifierCapacity(s, cmd.Delta)
		return next, "", err
	case CmdApplyPreset:
		preset, ok := b.presets()[cmd.ID]
		if !ok {
			return s, "", fmt.Errorf("%w: %s", deck.ErrUnknownPreset, cmd.ID)
		}
		next, err := e.ApplyPreset(s, preset)
		return next, "", err
	case CmdLock:
		next, err := e.Lock(s)
		if err == nil && next.Lifecycle == deck.LifecycleLockedBuilt {
			return next, deck.NoticeShuffleBeforeDraw, nil
		}
		return next, "", err
	case CmdUnlock:
		next, err := e.Unlock(s)
		return next, "", err
	case CmdShuffle:
		next, err := e.Shuffle(s, cmd.Confirm)
		return next, "", err
	case CmdDraw:
		next, err := e.Draw(s)
		return next, "", err
	case CmdResetDeck:
		next, err := e.ResetDeck(s)
		if err == nil && next.Lifecycle == deck.LifecycleLockedBuilt {
			return next, deck.NoticeShuffleBeforeDraw, nil
		}
		return next, "", err
	case CmdResetBuilder:
		next, err := e.ResetBuilder(s)
		return next, "", err
	case CmdStartPlay:
		next, err := e.StartPlay(s, cmd.ID)
		return next, "", err
	case CmdToggleAttach:
		next, err := e.ToggleAttach(s, cmd.ID)
		return next, "", err
	case CmdFinalizePlay:
		next, err := e.FinalizePlay(s)
		return next, "", err
	case CmdCancelPlay:
		next, err := e.CancelPlay(s)
		return next, "", err
	case CmdDiscardFromHand:
		next, err := e.DiscardFromHand(s, cmd.ID, cmd.All, deck.ParseOrigin(cmd.Origin))
		return next, "", err
	case CmdDiscardFromDeck:
		count := cmd.Count
		if count == 0 {
			count = 1
		}
		next, err := e.DiscardFromDeck(s, count)
		return next, "", err
	case CmdReturnDiscardToDeck:
		next, err := e.ReturnDiscardItemToDeck(s, cmd.ID, cmd.All)
		return next, "", err
	case CmdReturnAllDiscardToDeck:
		next, err := e.ReturnDiscardToDeck(s, cmd.Shuffle, cmd.ToTop)
		return next, "", err
	case CmdReturnDiscardToHand:
		next, err := e.ReturnDiscardItemToHand(s, cmd.ID, cmd.All)
		return next, "", err
	case CmdSetHandLimit:
		next, err := e.SetHandLimit(s, cmd.Limit)
		return next, "", err
	case CmdView:
		return s, "", nil
	default:
		return s, "", fmt.Errorf("unknown command %q", cmd.Name)
	}
}
