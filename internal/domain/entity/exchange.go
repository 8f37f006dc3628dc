package entity

import "fmt"

type ExchangeStatus string

const (
	ExchangeAwaitingModel ExchangeStatus = "awaiting_model"
	ExchangeExecutingTool ExchangeStatus = "executing_tool"
	ExchangeDone          ExchangeStatus = "done"
	ExchangeFailed        ExchangeStatus = "failed"
)

var exchangeTransitions = map[ExchangeStatus][]ExchangeStatus{
	ExchangeAwaitingModel: {ExchangeExecutingTool, ExchangeDone, ExchangeFailed},
	ExchangeExecutingTool: {ExchangeAwaitingModel, ExchangeFailed},
}

func (s ExchangeStatus) Terminal() bool {
	return s == ExchangeDone || s == ExchangeFailed
}

// Exchange tracks one user request from submission to a final answer.
type Exchange struct {
	ID          string
	Status      ExchangeStatus
	Iterations  int
	Results     []ToolResult
	FinalAnswer string
}

func NewExchange(id string) *Exchange {
	return &Exchange{ID: id, Status: ExchangeAwaitingModel}
}

func (e *Exchange) Transition(to ExchangeStatus) error {
	for _, allowed := range exchangeTransitions[e.Status] {
		if allowed == to {
			e.Status = to
			return nil
		}
	}
	return fmt.Errorf("invalid exchange transition %s -> %s", e.Status, to)
}
