package mcpserver

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaomizhoubaobei/astrbot-plugin-XMZ/internal/commands"
	"github.com/xiaomizhoubaobei/astrbot-plugin-XMZ/internal/ledger"
	"github.com/xiaomizhoubaobei/astrbot-plugin-XMZ/internal/relations"
	"github.com/xiaomizhoubaobei/astrbot-plugin-XMZ/internal/storage"
	"github.com/xiaomizhoubaobei/astrbot-plugin-XMZ/internal/testutil"
)

func testServer(t *testing.T) (*Server, *relations.Registry) {
	t.Helper()
	_, store := testutil.TestStore(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	engine := ledger.New(storage.NewDocument(store, "ledger.json"), ledger.WithLogger(logger))
	reg := relations.New(storage.NewDocument(store, "relations.json"), relations.WithLogger(logger))
	return New(commands.NewBot(logger, engine, reg, 10), reg, "test"), reg
}

func callTool(t *testing.T, srv *Server, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	var (
		result *mcp.CallToolResult
		err    error
	)
	if name == "get_relation" {
		result, err = srv.getRelation(context.Background(), req)
	} else {
		result, err = srv.command(name)(context.Background(), req)
	}
	require.NoError(t, err, "tool %s", name)
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestToolsCoverEveryCommand(t *testing.T) {
	srv, _ := testServer(t)
	tools := srv.Tools()
	for _, c := range srv.bot.Commands() {
		assert.Contains(t, tools, c.Name, "no tool for command")
	}
	assert.Contains(t, tools, "get_relation")
	assert.NotNil(t, srv.MCPServer())
}

func TestAddAndListRelation(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "add_relation", map[string]any{
		"arguments": "Jade 123 Alice Bob",
		"group_id":  "g1",
		"image":     "shot-1",
	})
	require.False(t, r.IsError, "%s", resultText(r))
	assert.Contains(t, resultText(r), "image: shot-1")

	r = callTool(t, srv, "list_relations", map[string]any{"group_id": "g1"})
	assert.Contains(t, resultText(r), "1. Jade(123)")
}

func TestRelationCommandWithoutGroupIsError(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "list_relations", map[string]any{})
	assert.True(t, r.IsError, "expected error without group_id")
}

func TestLedgerTools(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "add_borrow", map[string]any{"arguments": "250 carol"})
	require.False(t, r.IsError, "%s", resultText(r))
	r = callTool(t, srv, "query_borrow", map[string]any{"arguments": "carol"})
	assert.Contains(t, resultText(r), "- Total owed: 250.00")
	r = callTool(t, srv, "repay", map[string]any{"arguments": "250 carol"})
	assert.Contains(t, resultText(r), "fully settled")
}

func TestGetRelation(t *testing.T) {
	srv, reg := testServer(t)
	callTool(t, srv, "add_relation", map[string]any{"arguments": "Jade 123 Alice Bob", "group_id": "g1"})
	entries := reg.Records("g1")
	require.Len(t, entries, 1)

	r := callTool(t, srv, "get_relation", map[string]any{"id": entries[0].ID})
	var view relationView
	require.NoError(t, json.Unmarshal([]byte(resultText(r)), &view), "%s", resultText(r))
	assert.Equal(t, "g1", view.Group)
	assert.Equal(t, "Jade", view.PartnerName)

	r = callTool(t, srv, "get_relation", map[string]any{"id": "missing"})
	assert.True(t, r.IsError, "expected error for unknown id")
}
