package service

import (
	"fmt"
	"sync"

	"excel-agent/internal/application/port/output"
	"excel-agent/internal/domain/entity"
)

var _ output.OperationRegistry = (*OperationRegistryImpl)(nil)

type OperationRegistryImpl struct {
	mu    sync.RWMutex
	order []entity.OperationName
	ops   map[entity.OperationName]entity.Operation
}

func NewOperationRegistry() *OperationRegistryImpl {
	return &OperationRegistryImpl{
		ops: make(map[entity.OperationName]entity.Operation),
	}
}

// NewOperationRegistryFrom registers ops in order and fails on the first bad one.
func NewOperationRegistryFrom(ops []entity.Operation) (*OperationRegistryImpl, error) {
	r := NewOperationRegistry()
	for _, op := range ops {
		if err := r.Register(op); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *OperationRegistryImpl) Register(op entity.Operation) error {
	switch {
	case op.Name == "":
		return fmt.Errorf("%w: empty name", entity.ErrInvalidOperation)
	case op.Schema == nil:
		return fmt.Errorf("%w: %s has no schema", entity.ErrInvalidOperation, op.Name)
	case op.Execute == nil:
		return fmt.Errorf("%w: %s has no executor", entity.ErrInvalidOperation, op.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.ops[op.Name]; exists {
		return fmt.Errorf("%w: %s", entity.ErrOperationExists, op.Name)
	}
	r.ops[op.Name] = op
	r.order = append(r.order, op.Name)
	return nil
}

func (r *OperationRegistryImpl) Lookup(name entity.OperationName) (entity.Operation, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	op, ok := r.ops[name]
	return op, ok
}

func (r *OperationRegistryImpl) List() []entity.Operation {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]entity.Operation, 0, len(r.order))
	for _, name := range r.order {
		result = append(result, r.ops[name])
	}
	return result
}

func (r *OperationRegistryImpl) Definitions() []entity.ToolDefinition {
	ops := r.List()
	result := make([]entity.ToolDefinition, 0, len(ops))
	for _, op := range ops {
		result = append(result, op.Definition())
	}
	return result
}
