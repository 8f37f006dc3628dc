package entity

import (
	"encoding/json"
	"fmt"
	"unicode/utf8"
)

// MaxResultContentLen bounds the tool message content sent back to the model.
const MaxResultContentLen = 20000

type FailureKind string

const (
	FailureUnknownOperation FailureKind = "unknown_operation"
	FailureInvalidArguments FailureKind = "invalid_arguments"
	FailureMutationDenied   FailureKind = "mutation_denied"
	FailureExecutionFailed  FailureKind = "execution_failed"
)

type ToolError struct {
	Kind    FailureKind
	Message string
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func NewToolError(kind FailureKind, format string, args ...any) *ToolError {
	return &ToolError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// ToolResult carries either a payload or an error, never both.
type ToolResult struct {
	ToolCallID string
	Name       string
	Payload    any
	Err        *ToolError
}

func (r ToolResult) IsError() bool {
	return r.Err != nil
}

// Content renders the result as tool message text.
func (r ToolResult) Content() string {
	if r.Err != nil {
		return "Error: " + r.Err.Error()
	}

	var text string
	switch p := r.Payload.(type) {
	case nil:
		text = "OK"
	case string:
		text = p
	default:
		data, err := json.Marshal(p)
		if err != nil {
			text = fmt.Sprintf("%v", p)
		} else {
			text = string(data)
		}
	}

	if len(text) > MaxResultContentLen {
		cut := MaxResultContentLen
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut] + "\n... (truncated)"
	}
	return text
}

func (r ToolResult) Message() Message {
	return Message{
		Role:       RoleTool,
		ToolCallID: r.ToolCallID,
		Name:       r.Name,
		Content:    r.Content(),
	}
}
