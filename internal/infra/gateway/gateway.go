package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/mikeoller82/codexa-sub000/internal/domain"
	"github.com/mikeoller82/codexa-sub000/internal/infra/mapping"
	"github.com/mikeoller82/codexa-sub000/internal/infra/telemetry"
)

// Coordinator is what the gateway needs from the application.
type Coordinator interface {
	Plan(ctx context.Context, req domain.CoordinationRequest) (domain.CoordinationPlan, error)
	Coordinate(ctx context.Context, req domain.CoordinationRequest) (domain.CoordinationResult, error)
	Options() domain.CoordinationOptions
	Tools() []domain.ToolDescriptor
	CatalogRevision() uint64
}

// Gateway exposes the coordinator as an MCP server. Besides the fixed plan,
// coordinate and catalog tools it mirrors every catalog tool as run_<name>.
type Gateway struct {
	coord    Coordinator
	logger   *zap.Logger
	server   *mcp.Server
	registry *toolRegistry
	interval time.Duration
}

const defaultSyncInterval = 2 * time.Second

func New(coord Coordinator, version string, logger *zap.Logger) *Gateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	if version == "" {
		version = "dev"
	}
	g := &Gateway{
		coord:    coord,
		logger:   logger.Named("gateway"),
		interval: defaultSyncInterval,
	}
	g.server = mcp.NewServer(&mcp.Implementation{
		Name:    "codexa-coord",
		Version: version,
	}, &mcp.ServerOptions{
		HasTools: true,
	})

	g.server.AddTool(&mcp.Tool{
		Name:        "plan",
		Description: "Resolve dependencies and return the staged execution plan without running anything",
		InputSchema: coordinateSchema(),
	}, g.planHandler)
	g.server.AddTool(&mcp.Tool{
		Name:        "coordinate",
		Description: "Resolve, plan and execute the requested tools with recovery",
		InputSchema: coordinateSchema(),
	}, g.coordinateHandler)
	g.server.AddTool(&mcp.Tool{
		Name:        "catalog",
		Description: "List registered tools with their capabilities and dependencies",
		InputSchema: emptySchema(),
	}, g.catalogHandler)

	g.registry = newToolRegistry(g.server, g.runToolHandler, g.logger)
	g.registry.Sync(coord.Tools(), coord.CatalogRevision())
	return g
}

// Server returns the underlying MCP server.
func (g *Gateway) Server() *mcp.Server {
	return g.server
}

// Run serves MCP over stdio until ctx is done.
func (g *Gateway) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go g.syncTools(runCtx)

	g.logger.Info("gateway starting (stdio transport)")
	return g.server.Run(runCtx, &mcp.StdioTransport{})
}

func (g *Gateway) syncTools(ctx context.Context) {
	ticker := time.NewTicker(g.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			g.registry.Sync(g.coord.Tools(), g.coord.CatalogRevision())
		}
	}
}

func (g *Gateway) planHandler(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	coordReq, err := g.decodeRequest(req)
	if err != nil {
		return errorResult(err), nil
	}
	plan, err := g.coord.Plan(ctx, coordReq)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(mapping.MapPlan(plan), false)
}

func (g *Gateway) coordinateHandler(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	coordReq, err := g.decodeRequest(req)
	if err != nil {
		return errorResult(err), nil
	}
	return g.coordinate(ctx, coordReq)
}

func (g *Gateway) catalogHandler(_ context.Context, _ *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(mapping.MapTools(g.coord.Tools()), false)
}

func (g *Gateway) runToolHandler(name string) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args runToolArgs
		if err := decodeArgs(req, &args); err != nil {
			return errorResult(err), nil
		}
		return g.coordinate(ctx, domain.CoordinationRequest{
			RequestID:   telemetry.NewRequestID(),
			UserRequest: args.Request,
			SessionID:   args.SessionID,
			Tools:       []string{name},
		})
	}
}

func (g *Gateway) coordinate(ctx context.Context, req domain.CoordinationRequest) (*mcp.CallToolResult, error) {
	result, err := g.coord.Coordinate(ctx, req)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(mapping.MapResult(result), !result.Success)
}

func (g *Gateway) decodeRequest(req *mcp.CallToolRequest) (domain.CoordinationRequest, error) {
	var args coordinateArgs
	if err := decodeArgs(req, &args); err != nil {
		return domain.CoordinationRequest{}, err
	}
	tools := make([]string, 0, len(args.Tools))
	for _, name := range args.Tools {
		if name = strings.TrimSpace(name); name != "" {
			tools = append(tools, name)
		}
	}
	if len(tools) == 0 {
		return domain.CoordinationRequest{}, domain.E(domain.CodeInvalidArgument, "decode request", "tools is required", domain.ErrEmptyRequest)
	}
	out := domain.CoordinationRequest{
		RequestID:   telemetry.NewRequestID(),
		UserRequest: args.Request,
		SessionID:   args.SessionID,
		Tools:       tools,
	}
	if args.Options != nil {
		opts := mergeOptions(g.coord.Options(), *args.Options)
		out.Options = &opts
	}
	return out, nil
}

func mergeOptions(base domain.CoordinationOptions, args optionsArgs) domain.CoordinationOptions {
	if args.FailOnMissingDependencies != nil {
		base.FailOnMissingDependencies = *args.FailOnMissingDependencies
	}
	if args.PreferParallel != nil {
		base.PreferParallel = *args.PreferParallel
	}
	if args.ContinueOnOptionalFailure != nil {
		base.ContinueOnOptionalFailure = *args.ContinueOnOptionalFailure
	}
	if args.MaxParallel != nil && *args.MaxParallel > 0 {
		base.MaxParallel = *args.MaxParallel
	}
	if args.ToolTimeoutMs != nil && *args.ToolTimeoutMs > 0 {
		base.ToolTimeout = time.Duration(*args.ToolTimeoutMs) * time.Millisecond
	}
	return base
}

func decodeArgs(req *mcp.CallToolRequest, dst any) error {
	if req == nil || req.Params == nil || len(req.Params.Arguments) == 0 {
		return nil
	}
	if err := json.Unmarshal(json.RawMessage(req.Params.Arguments), dst); err != nil {
		return domain.E(domain.CodeInvalidArgument, "decode arguments", "", err)
	}
	return nil
}

func jsonResult(v any, isError bool) (*mcp.CallToolResult, error) {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(raw)}},
		IsError: isError,
	}, nil
}

// errorResult reports err as tool output so the client model can react to it.
func errorResult(err error) *mcp.CallToolResult {
	msg := err.Error()
	var resErr *domain.ResolutionError
	if errors.As(err, &resErr) && len(resErr.Cycle) > 0 {
		msg = fmt.Sprintf("%s (cycle: %s)", msg, strings.Join(resErr.Cycle, " -> "))
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: msg}},
		IsError: true,
	}
}
