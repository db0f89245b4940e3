package gateway

import (
	"context"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mikeoller82/codexa-sub000/internal/domain"
)

func newEchoRegistry(server *mcp.Server) *toolRegistry {
	return newToolRegistry(server, func(name string) mcp.ToolHandler {
		return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return &mcp.CallToolResult{
				Content: []mcp.Content{&mcp.TextContent{Text: name}},
			}, nil
		}
	}, zap.NewNop())
}

func listNames(t *testing.T, ctx context.Context, session *mcp.ClientSession) []string {
	t.Helper()
	res, err := session.ListTools(ctx, &mcp.ListToolsParams{})
	require.NoError(t, err)
	names := make([]string, 0, len(res.Tools))
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
	}
	return names
}

func TestToolRegistry_SyncRegistersAndRemovesTools(t *testing.T) {
	ctx := context.Background()
	server := mcp.NewServer(&mcp.Implementation{Name: "gateway", Version: "0.1.0"}, &mcp.ServerOptions{HasTools: true})
	registry := newEchoRegistry(server)

	registry.Sync([]domain.ToolDescriptor{{Name: "echo", Description: "echo input"}}, 1)

	session := connectClient(t, ctx, server)
	defer session.Close()

	require.Equal(t, []string{"run_echo"}, listNames(t, ctx, session))

	res, err := session.CallTool(ctx, &mcp.CallToolParams{Name: "run_echo", Arguments: map[string]any{}})
	require.NoError(t, err)
	require.Equal(t, "echo", textOf(t, res))

	registry.Sync(nil, 2)
	require.Empty(t, listNames(t, ctx, session))
}

func TestToolRegistry_SameRevisionIsNoop(t *testing.T) {
	ctx := context.Background()
	server := mcp.NewServer(&mcp.Implementation{Name: "gateway", Version: "0.1.0"}, &mcp.ServerOptions{HasTools: true})
	registry := newEchoRegistry(server)

	registry.Sync([]domain.ToolDescriptor{{Name: "a"}, {Name: "b"}}, 5)
	registry.Sync([]domain.ToolDescriptor{{Name: "a"}}, 5)

	session := connectClient(t, ctx, server)
	defer session.Close()

	require.ElementsMatch(t, []string{"run_a", "run_b"}, listNames(t, ctx, session))
}

func TestToolRegistry_GatewaySyncDropsStaleTools(t *testing.T) {
	ctx := context.Background()
	fake := newFake()
	g := New(fake, "test", zap.NewNop())
	session := connectClient(t, ctx, g.Server())
	defer session.Close()

	g.registry.Sync(fake.tools[:1], 2)

	names := listNames(t, ctx, session)
	require.NotContains(t, names, "run_processor")
	require.Contains(t, names, "run_validator")
}
