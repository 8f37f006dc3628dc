package output

import (
	"context"

	"excel-agent/internal/domain/entity"
)

type OperationRegistry interface {
	Register(op entity.Operation) error
	Lookup(name entity.OperationName) (entity.Operation, bool)
	List() []entity.Operation
	Definitions() []entity.ToolDefinition
}

// MutationGate authorizes mutating operations before they run.
type MutationGate interface {
	Check(ctx context.Context, name entity.OperationName, args map[string]any) (entity.GateDecision, error)
}

// ConfirmPort asks a human to approve an action.
type ConfirmPort interface {
	Confirm(ctx context.Context, prompt, detail string) (bool, error)
}
