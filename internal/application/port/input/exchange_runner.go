package input

import (
	"context"

	"excel-agent/internal/application/port/output"
	"excel-agent/internal/domain/entity"
)

type ExchangeRequest struct {
	Text string
	// TaggedWorksheets are added to the mentions found in Text.
	TaggedWorksheets []string
	// SelectedRange, if set, becomes the workbook selection before the exchange starts.
	SelectedRange string
	Listener      output.UserInteractionPort
}

type ExchangeResult struct {
	ExchangeID  string
	FinalAnswer string
	Iterations  int
	ToolResults []entity.ToolResult
	// Committed is false when a newer exchange or a reset superseded this one.
	Committed bool
}

type ExchangeRunner interface {
	Send(ctx context.Context, req ExchangeRequest) (*ExchangeResult, error)
}
