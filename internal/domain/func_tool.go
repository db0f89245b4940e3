package domain

import "context"

// FuncTool adapts plain functions to the Tool contract. Nil hooks are no-ops
// and a nil Run succeeds with an empty payload.
type FuncTool struct {
	Desc     ToolDescriptor
	Run      func(ctx context.Context, shared *SharedContext) ExecutionResult
	PrepareF func(ctx context.Context, shared *SharedContext) error
	OnResult func(ctx context.Context, result ExecutionResult, shared *SharedContext) error
}

func (t *FuncTool) Descriptor() ToolDescriptor {
	return t.Desc
}

func (t *FuncTool) Execute(ctx context.Context, shared *SharedContext) ExecutionResult {
	if t.Run == nil {
		return Succeeded(t.Desc.Name, nil, "")
	}
	return t.Run(ctx, shared)
}

func (t *FuncTool) Prepare(ctx context.Context, shared *SharedContext) error {
	if t.PrepareF == nil {
		return nil
	}
	return t.PrepareF(ctx, shared)
}

func (t *FuncTool) OnDependencyResult(ctx context.Context, result ExecutionResult, shared *SharedContext) error {
	if t.OnResult == nil {
		return nil
	}
	return t.OnResult(ctx, result, shared)
}

var (
	_ Tool               = (*FuncTool)(nil)
	_ Preparer           = (*FuncTool)(nil)
	_ DependencyConsumer = (*FuncTool)(nil)
)
