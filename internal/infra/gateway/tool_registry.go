package gateway

import (
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/mikeoller82/codexa-sub000/internal/domain"
)

const runToolPrefix = "run_"

// toolRegistry keeps one run_<name> MCP tool per catalog entry.
type toolRegistry struct {
	server     *mcp.Server
	handler    func(name string) mcp.ToolHandler
	logger     *zap.Logger
	mu         sync.Mutex
	revision   uint64
	synced     bool
	registered map[string]struct{}
}

func newToolRegistry(server *mcp.Server, handler func(name string) mcp.ToolHandler, logger *zap.Logger) *toolRegistry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &toolRegistry{
		server:     server,
		handler:    handler,
		logger:     logger.Named("tool_registry"),
		registered: make(map[string]struct{}),
	}
}

// Sync mirrors descs onto the server. An unchanged revision is a no-op.
func (r *toolRegistry) Sync(descs []domain.ToolDescriptor, revision uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.synced && revision == r.revision {
		return
	}

	next := make(map[string]struct{}, len(descs))
	for _, desc := range descs {
		if desc.Name == "" {
			continue
		}
		name := runToolPrefix + desc.Name
		description := desc.Description
		if description == "" {
			description = "Run " + desc.Name + " with its dependencies"
		}
		r.server.AddTool(&mcp.Tool{
			Name:        name,
			Description: description,
			InputSchema: runToolSchema(),
		}, r.handler(desc.Name))
		next[name] = struct{}{}
	}

	var remove []string
	for name := range r.registered {
		if _, ok := next[name]; !ok {
			remove = append(remove, name)
		}
	}
	if len(remove) > 0 {
		r.server.RemoveTools(remove...)
	}

	r.logger.Debug("tools synced", zap.Int("count", len(next)), zap.Int("removed", len(remove)), zap.Uint64("revision", revision))
	r.registered = next
	r.revision = revision
	r.synced = true
}
