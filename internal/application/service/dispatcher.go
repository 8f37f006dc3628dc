package service

import (
	"context"
	"fmt"
	"sync"

	"excel-agent/internal/application/port/output"
	"excel-agent/internal/domain/entity"
	"excel-agent/internal/domain/schema"
)

// Dispatcher turns a tool call into a ToolResult. It never returns an error;
// every failure is reported inside the result so the model can react to it.
type Dispatcher struct {
	registry output.OperationRegistry
	gate     output.MutationGate
	logger   output.LoggerPort

	// mu keeps executors from overlapping.
	mu sync.Mutex
}

func NewDispatcher(registry output.OperationRegistry, gate output.MutationGate, logger output.LoggerPort) *Dispatcher {
	if gate == nil {
		gate = AllowAllGate{}
	}
	return &Dispatcher{
		registry: registry,
		gate:     gate,
		logger:   logger,
	}
}

func (d *Dispatcher) Dispatch(ctx context.Context, tc entity.ToolCall) entity.ToolResult {
	result := entity.ToolResult{ToolCallID: tc.ID, Name: tc.Name}

	op, ok := d.registry.Lookup(entity.OperationName(tc.Name))
	if !ok {
		d.logger.Warn("Unknown operation called", "name", tc.Name)
		result.Err = entity.NewToolError(entity.FailureUnknownOperation, "no operation named %q", tc.Name)
		return result
	}

	args, err := schema.Validate(op.Schema, tc.Arguments)
	if err != nil {
		d.logger.Warn("Invalid operation arguments", "name", tc.Name, "error", err)
		result.Err = entity.NewToolError(entity.FailureInvalidArguments, "%s", err.Error())
		return result
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if op.Mutating {
		decision, err := d.gate.Check(ctx, op.Name, args)
		if err != nil {
			decision = entity.Deny(err.Error())
		}
		if !decision.Allow {
			d.logger.Info("Mutation denied", "name", tc.Name, "reason", decision.Reason)
			reason := decision.Reason
			if reason == "" {
				reason = "denied"
			}
			result.Err = entity.NewToolError(entity.FailureMutationDenied, "%s", reason)
			return result
		}
		if decision.Arguments != nil {
			if err := schema.ValidateArgs(op.Schema, decision.Arguments); err != nil {
				result.Err = entity.NewToolError(entity.FailureInvalidArguments, "rewritten arguments: %s", err.Error())
				return result
			}
			args = decision.Arguments
		}
	}

	d.logger.Info("Executing operation", "name", tc.Name, "args", tc.Arguments)

	payload, err := d.execute(ctx, op, args)
	if err != nil {
		d.logger.Error("Operation execution failed", "name", tc.Name, "error", err)
		result.Err = entity.NewToolError(entity.FailureExecutionFailed, "%s", err.Error())
		return result
	}

	d.logger.Debug("Operation completed", "name", tc.Name)
	result.Payload = payload
	return result
}

func (d *Dispatcher) execute(ctx context.Context, op entity.Operation, args map[string]any) (payload any, err error) {
	defer func() {
		if r := recover(); r != nil {
			payload = nil
			err = fmt.Errorf("operation panicked: %v", r)
		}
	}()

	return op.Execute(ctx, args)
}
