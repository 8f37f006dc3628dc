package output

import "context"

// UserInteractionPort receives progress of a running exchange.
type UserInteractionPort interface {
	ShowIteration(ctx context.Context, iteration, maxIterations int)
	ShowTextDelta(ctx context.Context, delta string)
	ShowThinking(ctx context.Context, content string)
	ShowToolStart(ctx context.Context, toolName, arguments string)
	ShowToolResult(ctx context.Context, toolName, result string, isError bool)
}
