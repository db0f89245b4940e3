package resolver

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/mikeoller82/codexa-sub000/internal/domain"
)

// Resolver expands a tool request into a dependency-first, cycle-free tool list.
type Resolver struct {
	logger  *zap.Logger
	metrics domain.Metrics
}

func New(logger *zap.Logger, metrics domain.Metrics) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{logger: logger.Named("resolver"), metrics: metrics}
}

type walk struct {
	catalog  domain.CatalogReader
	opts     domain.CoordinationOptions
	logger   *zap.Logger
	visiting map[string]bool
	resolved map[string]bool
	path     []string
	order    []string
	warnings []string
	warned   map[string]bool
}

// Resolve visits every requested tool depth-first and returns the expanded
// list. It never returns a partial list alongside an error.
func (r *Resolver) Resolve(requested []string, catalog domain.CatalogReader, opts domain.CoordinationOptions) (domain.Resolution, error) {
	names := dedupe(requested)
	if len(names) == 0 {
		return domain.Resolution{}, domain.E(domain.CodeInvalidArgument, "resolve", "", domain.ErrEmptyRequest)
	}

	w := &walk{
		catalog:  catalog,
		opts:     opts,
		logger:   r.logger,
		visiting: make(map[string]bool),
		resolved: make(map[string]bool),
		warned:   make(map[string]bool),
	}

	for _, name := range names {
		if _, ok := catalog.Descriptor(name); !ok {
			if opts.FailOnMissingDependencies {
				return r.fail(domain.CodeNotFound, &domain.ResolutionError{
					Kind:       domain.ResolutionMissingRequiredDependency,
					Dependency: name,
				})
			}
			w.warn(fmt.Sprintf("requested tool %q is not registered; skipped", name))
			continue
		}
		if err := w.visit(name); err != nil {
			return r.fail(domain.CodeFailedPrecond, err)
		}
	}

	if err := w.checkConflicts(names); err != nil {
		return r.fail(domain.CodeFailedPrecond, err)
	}

	r.logger.Debug("dependencies resolved",
		zap.Strings("requested", names),
		zap.Strings("tools", w.order),
		zap.Int("warnings", len(w.warnings)),
	)
	return domain.Resolution{Requested: names, Tools: w.order, Warnings: w.warnings}, nil
}

func (r *Resolver) fail(code domain.ErrorCode, resErr *domain.ResolutionError) (domain.Resolution, error) {
	if r.metrics != nil {
		r.metrics.ObserveResolutionFailure(resErr.Kind)
	}
	r.logger.Warn("dependency resolution failed",
		zap.String("kind", string(resErr.Kind)),
		zap.String("tool", resErr.Tool),
		zap.String("dependency", resErr.Dependency),
		zap.Strings("cycle", resErr.Cycle),
	)
	return domain.Resolution{}, domain.E(code, "resolve", "", resErr)
}

func (w *walk) visit(name string) *domain.ResolutionError {
	if w.resolved[name] {
		return nil
	}
	if w.visiting[name] {
		return &domain.ResolutionError{
			Kind:       domain.ResolutionCircularDependency,
			Tool:       w.path[len(w.path)-1],
			Dependency: name,
			Cycle:      w.cycleFrom(name),
		}
	}

	desc, ok := w.catalog.Descriptor(name)
	if !ok {
		return &domain.ResolutionError{Kind: domain.ResolutionMissingRequiredDependency, Dependency: name}
	}

	w.visiting[name] = true
	w.path = append(w.path, name)

	for _, dep := range desc.Dependencies {
		if dep.Kind == domain.DependencyConflict {
			continue
		}
		target, found := w.find(desc, dep)
		if !found {
			if dep.Kind != domain.DependencyRequired {
				continue
			}
			if w.opts.FailOnMissingDependencies {
				return &domain.ResolutionError{
					Kind:       domain.ResolutionMissingRequiredDependency,
					Tool:       name,
					Dependency: dep.Target,
				}
			}
			w.warn(fmt.Sprintf("required dependency %q of %s is unavailable; skipped", dep.Target, name))
			continue
		}
		if err := w.visit(target); err != nil {
			return err
		}
	}

	w.path = w.path[:len(w.path)-1]
	delete(w.visiting, name)
	w.resolved[name] = true
	w.order = append(w.order, name)
	return nil
}

func (w *walk) find(owner domain.ToolDescriptor, dep domain.Dependency) (string, bool) {
	name, ok, err := Match(w.catalog, owner, dep, nil)
	if err != nil {
		w.warn(fmt.Sprintf("%s: %v", owner.Name, err))
		return "", false
	}
	if ok && name != dep.Target && !providesTarget(w.catalog, name, dep.Target) {
		w.logger.Debug("dependency satisfied by fallback",
			zap.String("tool", owner.Name),
			zap.String("dependency", dep.Target),
			zap.String("fallback", name),
		)
	}
	return name, ok
}

// Match applies the search order exact name, capability providers, fallback
// names to dep. Every candidate must satisfy the version constraint and, when
// allow is non-nil, be accepted by it. The owner never satisfies its own
// capability dependency.
func Match(catalog domain.CatalogReader, owner domain.ToolDescriptor, dep domain.Dependency, allow func(string) bool) (string, bool, error) {
	constraint, err := ParseConstraint(dep.VersionConstraint)
	if err != nil {
		return "", false, err
	}
	accept := func(desc domain.ToolDescriptor) bool {
		if allow != nil && !allow(desc.Name) {
			return false
		}
		return constraint.Satisfied(desc.Version)
	}

	if desc, ok := catalog.Descriptor(dep.Target); ok && accept(desc) {
		return desc.Name, true, nil
	}
	for _, provider := range catalog.Providers(dep.Target) {
		if provider.Name != owner.Name && accept(provider) {
			return provider.Name, true, nil
		}
	}
	for _, fallback := range dep.FallbackNames {
		if fallback == owner.Name {
			continue
		}
		if desc, ok := catalog.Descriptor(fallback); ok && accept(desc) {
			return desc.Name, true, nil
		}
	}
	return "", false, nil
}

func providesTarget(catalog domain.CatalogReader, name, target string) bool {
	desc, ok := catalog.Descriptor(name)
	return ok && desc.HasCapability(target)
}

func (w *walk) checkConflicts(requested []string) *domain.ResolutionError {
	present := make([]domain.ToolDescriptor, 0, len(w.order))
	seen := make(map[string]bool, len(w.order))
	for _, name := range append(append([]string(nil), requested...), w.order...) {
		if seen[name] {
			continue
		}
		seen[name] = true
		if desc, ok := w.catalog.Descriptor(name); ok {
			present = append(present, desc)
		}
	}

	for _, owner := range present {
		for _, dep := range owner.Dependencies {
			if dep.Kind != domain.DependencyConflict {
				continue
			}
			for _, other := range present {
				if other.Name == owner.Name {
					continue
				}
				if other.HasCapability(dep.Target) {
					return &domain.ResolutionError{
						Kind:       domain.ResolutionDependencyConflict,
						Tool:       owner.Name,
						Dependency: other.Name,
					}
				}
			}
		}
	}
	return nil
}

func (w *walk) cycleFrom(name string) []string {
	for i, n := range w.path {
		if n == name {
			cycle := append([]string(nil), w.path[i:]...)
			return append(cycle, name)
		}
	}
	return []string{name, name}
}

func (w *walk) warn(msg string) {
	if w.warned[msg] {
		return
	}
	w.warned[msg] = true
	w.warnings = append(w.warnings, msg)
	w.logger.Warn(msg)
}

func dedupe(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}
