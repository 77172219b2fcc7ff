// Package mcp exposes deck builders as MCP tools.
package mcp

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/magefree/deckplay-server-go/internal/session"
)

// Tools holds the manager the tool handlers act on.
type Tools struct {
	manager *session.Manager
}

// RegisterTools adds the deck tools to s.
func RegisterTools(s *server.MCPServer, manager *session.Manager) *Tools {
	t := &Tools{manager: manager}
	s.AddTool(commandTool(), t.handleCommand)
	s.AddTool(viewTool(), t.handleView)
	s.AddTool(presetsTool(), t.handlePresets)
	s.AddTool(listTool(), t.handleList)
	return t
}

// --- Tool definitions ---

func commandTool() mcp.Tool {
	return mcp.NewTool("deck_command",
		mcp.WithDescription("Run one command on a deck builder and return the result with the updated view. "+
			"Commands: "+strings.Join(session.CommandNames, ", ")+"."),
		mcp.WithString("key", mcp.Required(), mcp.Description("Builder key, e.g. 'alice'")),
		mcp.WithString("name", mcp.Required(), mcp.Description("Command name")),
		mcp.WithString("id", mcp.Description("Card id, or preset name for applyPreset")),
		mcp.WithNumber("delta", mcp.Description("Signed adjustment for adjust* commands")),
		mcp.WithNumber("count", mcp.Description("Number of cards for discardFromDeck")),
		mcp.WithNumber("limit", mcp.Description("New hand limit for setHandLimit")),
		mcp.WithBoolean("all", mcp.Description("Reset every card count")),
		mcp.WithBoolean("confirm", mcp.Description("Confirm a reshuffle of a shuffled deck")),
		mcp.WithBoolean("shuffle", mcp.Description("Shuffle the deck after returnAllDiscardToDeck")),
		mcp.WithBoolean("to_top", mcp.Description("Return discarded cards to the top of the deck")),
		mcp.WithString("origin", mcp.Description("Discard origin for discardFromHand: 'played' or 'discarded'")),
	)
}

func viewTool() mcp.Tool {
	return mcp.NewTool("deck_view",
		mcp.WithDescription("Get the current view of a deck builder. Read-only."),
		mcp.WithString("key", mcp.Required(), mcp.Description("Builder key")),
	)
}

func presetsTool() mcp.Tool {
	return mcp.NewTool("deck_presets",
		mcp.WithDescription("List the preset names accepted by applyPreset. Read-only."),
	)
}

func listTool() mcp.Tool {
	return mcp.NewTool("deck_list",
		mcp.WithDescription("List every known builder key. Read-only."),
	)
}

// --- Tool handlers ---

func (t *Tools) handleCommand(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cmd := session.Command{
		Name:    request.GetString("name", ""),
		ID:      request.GetString("id", ""),
		Delta:   request.GetInt("delta", 0),
		Count:   request.GetInt("count", 0),
		Limit:   request.GetInt("limit", 0),
		All:     request.GetBool("all", false),
		Confirm: request.GetBool("confirm", false),
		Shuffle: request.GetBool("shuffle", false),
		ToTop:   request.GetBool("to_top", false),
		Origin:  request.GetString("origin", ""),
	}
	if cmd.Name == "" {
		return mcp.NewToolResultError("name is required"), nil
	}

	resp, err := t.manager.Execute(ctx, request.GetString("key", ""), cmd)
	if err != nil {
		return mcp.NewToolResultErrorf("Command failed: %v", err), nil
	}
	return mcp.NewToolResultText(respondJSON(resp)), nil
}

func (t *Tools) handleView(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	view, err := t.manager.View(ctx, request.GetString("key", ""))
	if err != nil {
		return mcp.NewToolResultErrorf("View failed: %v", err), nil
	}
	return mcp.NewToolResultText(respondJSON(view)), nil
}

func (t *Tools) handlePresets(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(respondJSON(t.manager.PresetNames())), nil
}

func (t *Tools) handleList(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	keys, err := t.manager.Keys(ctx)
	if err != nil {
		return mcp.NewToolResultErrorf("List failed: %v", err), nil
	}
	return mcp.NewToolResultText(respondJSON(keys)), nil
}

func respondJSON(v any) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return `{"error": "failed to marshal response"}`
	}
	return string(data)
}
