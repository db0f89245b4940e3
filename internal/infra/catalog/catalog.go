package catalog

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/mikeoller82/codexa-sub000/internal/domain"
)

// Catalog is the in-memory directory of registered tools. It is read-mostly:
// registration happens at startup, lookups happen on every request.
type Catalog struct {
	logger  *zap.Logger
	metrics domain.Metrics

	mu       sync.RWMutex
	entries  map[string]*entry
	order    []string
	revision uint64
	nextSeq  int
}

type entry struct {
	tool        domain.Tool
	desc        domain.ToolDescriptor
	fingerprint string
	seq         int
}

// New creates an empty catalog.
func New(logger *zap.Logger, metrics domain.Metrics) *Catalog {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Catalog{
		logger:  logger.Named("catalog"),
		metrics: metrics,
		entries: make(map[string]*entry),
	}
}

// Register adds tool to the catalog. A tool with the same name is replaced
// when the new priority is equal or higher and keeps its registration slot;
// a lower priority registration is rejected.
func (c *Catalog) Register(tool domain.Tool) error {
	if tool == nil {
		return domain.E(domain.CodeInvalidArgument, "register tool", "tool is nil", domain.ErrInvalidDescriptor)
	}
	raw := tool.Descriptor()
	if err := raw.Validate(); err != nil {
		return domain.Wrap(domain.CodeInvalidArgument, "register tool", err)
	}
	desc := raw.Normalize()
	fingerprint, err := domain.DescriptorFingerprint(desc)
	if err != nil {
		return domain.Wrap(domain.CodeInternal, "register tool", err)
	}

	c.mu.Lock()
	existing, ok := c.entries[desc.Name]
	if ok && desc.Priority < existing.desc.Priority {
		c.mu.Unlock()
		msg := fmt.Sprintf("%s: priority %s is lower than registered %s", desc.Name, desc.Priority, existing.desc.Priority)
		return domain.E(domain.CodeAlreadyExists, "register tool", msg, domain.ErrRegistrationConflict)
	}

	changed := true
	if ok {
		changed = existing.fingerprint != fingerprint
		existing.tool = tool
		existing.desc = desc
		existing.fingerprint = fingerprint
	} else {
		c.entries[desc.Name] = &entry{tool: tool, desc: desc, fingerprint: fingerprint, seq: c.nextSeq}
		c.nextSeq++
		c.order = append(c.order, desc.Name)
	}
	if changed {
		c.revision++
	}
	count := len(c.entries)
	c.mu.Unlock()

	if ok {
		c.logger.Info("tool replaced", zap.String("tool", desc.Name), zap.Stringer("priority", desc.Priority), zap.Bool("changed", changed))
	} else {
		c.logger.Debug("tool registered", zap.String("tool", desc.Name), zap.Strings("capabilities", desc.Capabilities))
	}
	if c.metrics != nil {
		c.metrics.SetRegisteredTools(count)
	}
	return nil
}

// RegisterAll registers every tool and returns the joined registration errors.
func (c *Catalog) RegisterAll(tools ...domain.Tool) error {
	var errs []error
	for _, tool := range tools {
		if err := c.Register(tool); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Unregister removes a tool and reports whether it was present.
func (c *Catalog) Unregister(name string) bool {
	c.mu.Lock()
	if _, ok := c.entries[name]; !ok {
		c.mu.Unlock()
		return false
	}
	delete(c.entries, name)
	for i, n := range c.order {
		if n == name {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	c.revision++
	count := len(c.entries)
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.SetRegisteredTools(count)
	}
	return true
}

func (c *Catalog) Descriptor(name string) (domain.ToolDescriptor, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[name]
	if !ok {
		return domain.ToolDescriptor{}, false
	}
	return e.desc.Clone(), true
}

func (c *Catalog) Tool(name string) (domain.Tool, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[name]
	if !ok {
		return nil, false
	}
	return e.tool, true
}

// Names returns tool names in registration order.
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.order...)
}

// Descriptors returns all descriptors in registration order.
func (c *Catalog) Descriptors() []domain.ToolDescriptor {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]domain.ToolDescriptor, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, c.entries[name].desc.Clone())
	}
	return out
}

// Providers returns every tool claiming capability, highest priority first and
// registration order among equals.
func (c *Catalog) Providers(capability string) []domain.ToolDescriptor {
	type match struct {
		desc domain.ToolDescriptor
		seq  int
	}
	c.mu.RLock()
	matches := make([]match, 0)
	for _, e := range c.entries {
		if e.desc.HasCapability(capability) {
			matches = append(matches, match{desc: e.desc.Clone(), seq: e.seq})
		}
	}
	c.mu.RUnlock()

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].desc.Priority != matches[j].desc.Priority {
			return matches[i].desc.Priority > matches[j].desc.Priority
		}
		return matches[i].seq < matches[j].seq
	})
	out := make([]domain.ToolDescriptor, len(matches))
	for i, m := range matches {
		out[i] = m.desc
	}
	return out
}

// Revision increments on every registration change that can affect planning.
func (c *Catalog) Revision() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.revision
}

func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

var (
	_ domain.CatalogReader = (*Catalog)(nil)
	_ domain.ToolLookup    = (*Catalog)(nil)
)
