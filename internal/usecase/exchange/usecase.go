package exchange

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"excel-agent/internal/application/port/input"
	"excel-agent/internal/application/port/output"
	"excel-agent/internal/application/service"
	"excel-agent/internal/domain/entity"
	"excel-agent/internal/infrastructure/prompts"

	"github.com/google/uuid"
)

var _ input.ExchangeRunner = (*UseCase)(nil)

const DefaultMaxIterations = 25

// Dispatcher executes a single tool call and reports every failure in the result.
type Dispatcher interface {
	Dispatch(ctx context.Context, tc entity.ToolCall) entity.ToolResult
}

type Config struct {
	MaxIterations int
	// Timeout bounds the whole exchange. Zero means no bound.
	Timeout      time.Duration
	Temperature  float32
	Stream       bool
	SystemPrompt string
}

func DefaultConfig() Config {
	return Config{
		MaxIterations: DefaultMaxIterations,
		Timeout:       5 * time.Minute,
		Stream:        true,
		SystemPrompt:  prompts.DefaultSystemPrompt,
	}
}

type UseCase struct {
	llm          output.LLMPort
	registry     output.OperationRegistry
	dispatcher   Dispatcher
	conversation *service.Conversation
	workbook     output.WorkbookPort
	sheets       *service.WorksheetContext
	logger       output.LoggerPort
	cfg          Config

	running atomic.Bool
}

func New(
	llm output.LLMPort,
	registry output.OperationRegistry,
	dispatcher Dispatcher,
	conversation *service.Conversation,
	workbook output.WorkbookPort,
	sheets *service.WorksheetContext,
	logger output.LoggerPort,
	cfg Config,
) *UseCase {
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = DefaultMaxIterations
	}
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = prompts.DefaultSystemPrompt
	}
	return &UseCase{
		llm:          llm,
		registry:     registry,
		dispatcher:   dispatcher,
		conversation: conversation,
		workbook:     workbook,
		sheets:       sheets,
		logger:       logger,
		cfg:          cfg,
	}
}

func (uc *UseCase) Send(ctx context.Context, req input.ExchangeRequest) (*input.ExchangeResult, error) {
	if !uc.running.CompareAndSwap(false, true) {
		return nil, entity.ErrExchangeInFlight
	}
	defer uc.running.Store(false)

	if uc.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, uc.cfg.Timeout)
		defer cancel()
	}

	listener := req.Listener
	if listener == nil {
		listener = noopListener{}
	}

	ex := entity.NewExchange(uuid.NewString())
	log := uc.logger.WithField("exchange", ex.ID)

	if req.SelectedRange != "" {
		if err := uc.workbook.Select(ctx, req.SelectedRange); err != nil {
			return nil, fmt.Errorf("select range %s: %w", req.SelectedRange, err)
		}
	}

	systemPrompt, err := uc.buildSystemPrompt(ctx, req, log)
	if err != nil {
		return nil, fmt.Errorf("build system prompt: %w", err)
	}

	scope := uc.conversation.Begin()
	userMsg := entity.Message{Role: entity.RoleUser, Content: req.Text}
	scope.Append(userMsg)

	toolDefs := uc.registry.Definitions()

	fail := func(err error) (*input.ExchangeResult, error) {
		_ = ex.Transition(entity.ExchangeFailed)
		scope.Abandon()
		log.Error("Exchange failed", "iterations", ex.Iterations, "error", err)
		return nil, err
	}

	log.Info("Exchange started", "text", req.Text)

	for {
		if ex.Iterations >= uc.cfg.MaxIterations {
			return fail(fmt.Errorf("%w (%d iterations)", entity.ErrLoopExhausted, uc.cfg.MaxIterations))
		}
		if err := ctx.Err(); err != nil {
			return fail(fmt.Errorf("exchange cancelled: %w", err))
		}

		ex.Iterations++
		log.Debug("Starting iteration", "iteration", ex.Iterations)
		listener.ShowIteration(ctx, ex.Iterations, uc.cfg.MaxIterations)

		transcript := scope.Messages()
		if err := service.ValidateTranscript(transcript); err != nil {
			return fail(fmt.Errorf("inconsistent transcript: %w", err))
		}
		messages := append([]entity.Message{{Role: entity.RoleSystem, Content: systemPrompt}}, transcript...)
		resp, err := uc.consult(ctx, messages, toolDefs, listener)
		if err != nil {
			if ctx.Err() != nil {
				return fail(fmt.Errorf("exchange cancelled: %w", ctx.Err()))
			}
			return fail(fmt.Errorf("%w: %w", entity.ErrModelTransport, err))
		}

		msg := resp.Message
		msg.Role = entity.RoleAssistant
		if msg.Content == "" && len(msg.ToolCalls) == 0 {
			return fail(fmt.Errorf("%w: model returned an empty response", entity.ErrModelTransport))
		}
		if thinking := msg.Thinking(); thinking != "" {
			listener.ShowThinking(ctx, thinking)
		}

		if len(msg.ToolCalls) == 0 {
			if err := ex.Transition(entity.ExchangeDone); err != nil {
				return fail(err)
			}
			ex.FinalAnswer = msg.Content
			scope.Append(msg)
			committed := scope.Commit(userMsg, entity.Message{Role: entity.RoleAssistant, Content: msg.Content})
			if !committed {
				log.Warn("Exchange superseded, history not updated")
			}

			log.Info("Exchange done", "iterations", ex.Iterations, "toolCalls", len(ex.Results))
			return &input.ExchangeResult{
				ExchangeID:  ex.ID,
				FinalAnswer: ex.FinalAnswer,
				Iterations:  ex.Iterations,
				ToolResults: ex.Results,
				Committed:   committed,
			}, nil
		}

		call := msg.ToolCalls[0]
		if call.ID == "" {
			call.ID = "call_" + uuid.NewString()
		}
		if extra := len(msg.ToolCalls) - 1; extra > 0 {
			log.Debug("Dropping extra tool calls", "dispatched", call.Name, "dropped", extra)
		}
		scope.Append(msg.WithSingleToolCall(call))

		if err := ex.Transition(entity.ExchangeExecutingTool); err != nil {
			return fail(err)
		}
		listener.ShowToolStart(ctx, call.Name, call.Arguments)

		result := uc.dispatcher.Dispatch(ctx, call)

		listener.ShowToolResult(ctx, call.Name, result.Content(), result.IsError())
		ex.Results = append(ex.Results, result)
		scope.Append(result.Message())

		if err := ex.Transition(entity.ExchangeAwaitingModel); err != nil {
			return fail(err)
		}
	}
}

func (uc *UseCase) consult(ctx context.Context, messages []entity.Message, tools []entity.ToolDefinition, listener output.UserInteractionPort) (*output.ChatResponse, error) {
	req := output.ChatRequest{
		Messages:    messages,
		Tools:       tools,
		Temperature: uc.cfg.Temperature,
	}
	if !uc.cfg.Stream {
		return uc.llm.Chat(ctx, req)
	}
	return uc.llm.ChatStream(ctx, req, func(chunk output.StreamChunk) {
		if chunk.Content != "" {
			listener.ShowTextDelta(ctx, chunk.Content)
		}
	})
}

func (uc *UseCase) buildSystemPrompt(ctx context.Context, req input.ExchangeRequest, log output.LoggerPort) (string, error) {
	data := prompts.SystemPromptData{}

	if active, err := uc.workbook.ActiveWorksheet(ctx); err == nil {
		data.ActiveWorksheet = active
	} else {
		log.Warn("Active worksheet unavailable", "error", err)
	}
	if sel, err := uc.workbook.Selection(ctx); err == nil && sel.Address != "" {
		data.SelectedRange = sel.Address
		if sel.Sheet != "" {
			data.SelectedRange = sel.Sheet + "!" + sel.Address
		}
	}

	names, err := uc.workbook.WorksheetNames(ctx)
	if err != nil {
		log.Warn("Worksheet names unavailable", "error", err)
	}
	data.Worksheets = names
	data.TaggedWorksheets = mergeTags(req.TaggedWorksheets, service.ExtractMentions(req.Text, names))

	if uc.sheets.Enabled() && len(data.TaggedWorksheets) > 0 {
		relevance, err := uc.sheets.Rank(ctx, req.Text, data.TaggedWorksheets)
		if err != nil {
			log.Warn("Worksheet ranking skipped", "error", err)
		}
		data.Relevance = relevance
	}

	return prompts.GenerateSystemPrompt(uc.cfg.SystemPrompt, data)
}

func mergeTags(explicit, mentioned []string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, list := range [][]string{explicit, mentioned} {
		for _, s := range list {
			if s == "" || seen[s] {
				continue
			}
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

type noopListener struct{}

func (noopListener) ShowIteration(context.Context, int, int) {}
func (noopListener) ShowTextDelta(context.Context, string) {}
func (noopListener) ShowThinking(context.Context, string) {}
func (noopListener) ShowToolStart(context.Context, string, string) {}
func (noopListener) ShowToolResult(context.Context, string, string, bool) {}
