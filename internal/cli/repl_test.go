package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/magefree/deckplay-server-go/internal/catalog"
	"github.com/magefree/deckplay-server-go/internal/deck"
	"github.com/magefree/deckplay-server-go/internal/session"
	"github.com/magefree/deckplay-server-go/internal/storage"
)

func TestParseLine(t *testing.T) {
	tests := []struct {
		line string
		want session.Command
	}{
		{"draw", session.Command{Name: "draw"}},
		{"adjustBaseCount B1 delta=2", session.Command{Name: "adjustBaseCount", ID: "B1", Delta: 2}},
		{"  adjustNullCount delta=-1  ", session.Command{Name: "adjustNullCount", Delta: -1}},
		{"returnAllDiscardToDeck shuffle top", session.Command{Name: "returnAllDiscardToDeck", Shuffle: true, ToTop: true}},
		{"discardFromHand id=M1 origin=played", session.Command{Name: "discardFromHand", ID: "M1", Origin: "played"}},
		{"discardFromDeck count=3", session.Command{Name: "discardFromDeck", Count: 3}},
		{"setHandLimit limit=7", session.Command{Name: "setHandLimit", Limit: 7}},
		{"shuffle confirm", session.Command{Name: "shuffle", Confirm: true}},
		{"returnDiscardToHand M1 all", session.Command{Name: "returnDiscardToHand", ID: "M1", All: true}},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, err := ParseLine(tt.line)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseLineErrors(t *testing.T) {
	_, err := ParseLine("   ")
	assert.ErrorIs(t, err, ErrEmptyLine)
	_, err = ParseLine("# comment")
	assert.ErrorIs(t, err, ErrEmptyLine)

	for _, line := range []string{"draw B1 B2", "adjustNullCount delta=x", "draw speed=3"} {
		_, err := ParseLine(line)
		assert.Error(t, err, line)
	}
}

func TestREPLRun(t *testing.T) {
	reg, err := catalog.NewRegistry([]catalog.Card{
		{ID: "B1", Name: "Strike", Category: catalog.CategoryBase},
		{ID: "N0", Name: "Static", Category: catalog.CategoryNull},
	})
	require.NoError(t, err)
	store := storage.NewMemoryStore()
	tr, err := storage.NewTransfer(store, "deckplay/", "deckplay-backup/")
	require.NoError(t, err)
	m := session.NewManager(deck.NewEngine(reg, deck.DefaultRules(), deck.NewSeededShuffler(9)), store, tr, zaptest.NewLogger(t))

	in := strings.NewReader("adjustNullCount delta=2\n\nbogus x y\nhelp\ndraw\nquit\nadjustNullCount delta=5\n")
	var out bytes.Buffer
	repl := &REPL{Manager: m, Key: "cli"}
	require.NoError(t, repl.Run(context.Background(), in, &out))

	text := out.String()
	assert.Contains(t, text, `"nulls": 7`)
	assert.Contains(t, text, "error: unexpected argument")
	assert.Contains(t, text, "commands: ")
	assert.Contains(t, text, `"code": "not_locked"`)

	view, err := m.View(context.Background(), "cli")
	require.NoError(t, err)
	assert.Equal(t, 7, view.Nulls)
}
