package service

import (
	"context"

	"excel-agent/internal/application/port/output"
	"excel-agent/internal/domain/entity"
)

var (
	_ output.MutationGate = AllowAllGate{}
	_ output.MutationGate = ReadOnlyGate{}
	_ output.MutationGate = GateChain(nil)
)

type AllowAllGate struct{}

func (AllowAllGate) Check(context.Context, entity.OperationName, map[string]any) (entity.GateDecision, error) {
	return entity.Allow(), nil
}

type ReadOnlyGate struct{}

func (ReadOnlyGate) Check(_ context.Context, name entity.OperationName, _ map[string]any) (entity.GateDecision, error) {
	return entity.Deny("the workbook is open read-only; " + string(name) + " is not permitted"), nil
}

// GateChain runs gates in order. The first deny or error wins; argument
// rewrites are passed on to later gates.
type GateChain []output.MutationGate

func (c GateChain) Check(ctx context.Context, name entity.OperationName, args map[string]any) (entity.GateDecision, error) {
	var rewritten map[string]any
	for _, g := range c {
		d, err := g.Check(ctx, name, args)
		if err != nil {
			return entity.GateDecision{}, err
		}
		if !d.Allow {
			return d, nil
		}
		if d.Arguments != nil {
			args = d.Arguments
			rewritten = d.Arguments
		}
	}
	return entity.GateDecision{Allow: true, Arguments: rewritten}, nil
}

// GateFunc adapts a function to a MutationGate.
type GateFunc func(ctx context.Context, name entity.OperationName, args map[string]any) (entity.GateDecision, error)

func (f GateFunc) Check(ctx context.Context, name entity.OperationName, args map[string]any) (entity.GateDecision, error) {
	return f(ctx, name, args)
}
