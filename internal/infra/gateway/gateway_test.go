package gateway

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mikeoller82/codexa-sub000/internal/domain"
	"github.com/mikeoller82/codexa-sub000/internal/infra/mapping"
)

type fakeCoordinator struct {
	mu       sync.Mutex
	tools    []domain.ToolDescriptor
	revision uint64
	requests []domain.CoordinationRequest
	planErr  error
	result   domain.CoordinationResult
}

func (f *fakeCoordinator) Plan(_ context.Context, req domain.CoordinationRequest) (domain.CoordinationPlan, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	if f.planErr != nil {
		return domain.CoordinationPlan{}, f.planErr
	}
	return domain.CoordinationPlan{
		RequestID: req.RequestID,
		Tools:     req.Tools,
		Stages:    []domain.Stage{{Index: 0, Tools: req.Tools, Parallel: len(req.Tools) > 1}},
	}, nil
}

func (f *fakeCoordinator) Coordinate(_ context.Context, req domain.CoordinationRequest) (domain.CoordinationResult, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	if f.planErr != nil {
		return domain.CoordinationResult{}, f.planErr
	}
	return f.result, nil
}

func (f *fakeCoordinator) Options() domain.CoordinationOptions {
	return domain.DefaultCoordinationOptions()
}

func (f *fakeCoordinator) Tools() []domain.ToolDescriptor {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.ToolDescriptor(nil), f.tools...)
}

func (f *fakeCoordinator) CatalogRevision() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.revision
}

func (f *fakeCoordinator) lastRequest() domain.CoordinationRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

func connectClient(t *testing.T, ctx context.Context, server *mcp.Server) *mcp.ClientSession {
	t.Helper()
	ct, st := mcp.NewInMemoryTransports()
	_, err := server.Connect(ctx, st, nil)
	require.NoError(t, err)

	client := mcp.NewClient(&mcp.Implementation{Name: "client", Version: "0.1.0"}, nil)
	session, err := client.Connect(ctx, ct, nil)
	require.NoError(t, err)
	return session
}

func textOf(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.Len(t, res.Content, 1)
	text, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func newFake() *fakeCoordinator {
	return &fakeCoordinator{
		tools: []domain.ToolDescriptor{
			{Name: "validator", Capabilities: []string{"validator"}},
			{Name: "processor", Capabilities: []string{"processor"}},
		},
		revision: 1,
		result: domain.CoordinationResult{
			RequestID:      "r",
			Success:        true,
			ExecutionOrder: []string{"validator"},
			Results: map[string]domain.ExecutionResult{
				"validator": {ToolName: "validator", Success: true, Output: "ok", Attempts: 1},
			},
		},
	}
}

func TestGateway_ListsFixedAndMirroredTools(t *testing.T) {
	ctx := context.Background()
	g := New(newFake(), "test", zap.NewNop())
	session := connectClient(t, ctx, g.Server())
	defer session.Close()

	res, err := session.ListTools(ctx, &mcp.ListToolsParams{})
	require.NoError(t, err)
	names := make([]string, 0, len(res.Tools))
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
	}
	require.ElementsMatch(t, []string{"plan", "coordinate", "catalog", "run_validator", "run_processor"}, names)
}

func TestGateway_PlanAppliesOptionOverrides(t *testing.T) {
	ctx := context.Background()
	fake := newFake()
	g := New(fake, "test", zap.NewNop())
	session := connectClient(t, ctx, g.Server())
	defer session.Close()

	res, err := session.CallTool(ctx, &mcp.CallToolParams{
		Name: "plan",
		Arguments: map[string]any{
			"tools":   []string{"validator", "processor"},
			"request": "check it",
			"options": map[string]any{"preferParallel": false, "maxParallel": 2},
		},
	})
	require.NoError(t, err)
	require.False(t, res.IsError, textOf(t, res))

	var view mapping.PlanView
	require.NoError(t, json.Unmarshal([]byte(textOf(t, res)), &view))
	require.Equal(t, []string{"validator", "processor"}, view.Tools)

	req := fake.lastRequest()
	require.Equal(t, "check it", req.UserRequest)
	require.NotEmpty(t, req.RequestID)
	require.NotNil(t, req.Options)
	require.False(t, req.Options.PreferParallel)
	require.Equal(t, 2, req.Options.MaxParallel)
	require.True(t, req.Options.FailOnMissingDependencies)
}

func TestGateway_PlanErrorIsToolError(t *testing.T) {
	ctx := context.Background()
	fake := newFake()
	fake.planErr = domain.E(domain.CodeFailedPrecond, "resolve", "", &domain.ResolutionError{
		Kind:  domain.ResolutionCircularDependency,
		Tool:  "a",
		Cycle: []string{"a", "b", "a"},
	})
	g := New(fake, "test", zap.NewNop())
	session := connectClient(t, ctx, g.Server())
	defer session.Close()

	res, err := session.CallTool(ctx, &mcp.CallToolParams{Name: "plan", Arguments: map[string]any{"tools": []string{"a"}}})
	require.NoError(t, err)
	require.True(t, res.IsError)
	require.Contains(t, textOf(t, res), "a -> b -> a")
}

func TestGateway_CoordinateRequiresTools(t *testing.T) {
	ctx := context.Background()
	g := New(newFake(), "test", zap.NewNop())
	session := connectClient(t, ctx, g.Server())
	defer session.Close()

	res, err := session.CallTool(ctx, &mcp.CallToolParams{Name: "coordinate", Arguments: map[string]any{"tools": []string{" "}}})
	require.NoError(t, err)
	require.True(t, res.IsError)
	require.Contains(t, textOf(t, res), "tools is required")
}

func TestGateway_RunToolCoordinatesSingleTool(t *testing.T) {
	ctx := context.Background()
	fake := newFake()
	g := New(fake, "test", zap.NewNop())
	session := connectClient(t, ctx, g.Server())
	defer session.Close()

	res, err := session.CallTool(ctx, &mcp.CallToolParams{Name: "run_validator", Arguments: map[string]any{"request": "go"}})
	require.NoError(t, err)
	require.False(t, res.IsError)

	var view mapping.ResultView
	require.NoError(t, json.Unmarshal([]byte(textOf(t, res)), &view))
	require.True(t, view.Success)
	require.Equal(t, "ok", view.Results[0].Output)
	require.Equal(t, []string{"validator"}, fake.lastRequest().Tools)
}

func TestGateway_CatalogLists(t *testing.T) {
	ctx := context.Background()
	g := New(newFake(), "test", zap.NewNop())
	session := connectClient(t, ctx, g.Server())
	defer session.Close()

	res, err := session.CallTool(ctx, &mcp.CallToolParams{Name: "catalog", Arguments: map[string]any{}})
	require.NoError(t, err)
	var views []mapping.ToolView
	require.NoError(t, json.Unmarshal([]byte(textOf(t, res)), &views))
	require.Len(t, views, 2)
	require.Equal(t, "validator", views[0].Name)
}
