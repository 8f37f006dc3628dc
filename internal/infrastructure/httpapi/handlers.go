package httpapi

import (
	"context"
	"net/http"
	"strings"

	"excel-agent/internal/application/port/input"

	"github.com/sashabaranov/go-openai"
)

const maxProxyBodyBytes = 2 << 20

type exchangeRequest struct {
	Text             string   `json:"text"`
	TaggedWorksheets []string `json:"taggedWorksheets"`
	SelectedRange    string   `json:"selectedRange"`
}

type toolResultEvent struct {
	Name    string `json:"name"`
	Content string `json:"content"`
	IsError bool   `json:"isError"`
}

type doneEvent struct {
	ExchangeID  string `json:"exchangeId"`
	FinalAnswer string `json:"finalAnswer"`
	Iterations  int    `json:"iterations"`
	ToolCalls   int    `json:"toolCalls"`
	Committed   bool   `json:"committed"`
}

type messageView struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// sseListener forwards exchange progress as events.
type sseListener struct {
	sse *sseWriter
}

func (l sseListener) ShowIteration(_ context.Context, iteration, maxIterations int) {
	l.sse.Event("iteration", map[string]int{"iteration": iteration, "maxIterations": maxIterations})
}

func (l sseListener) ShowTextDelta(_ context.Context, delta string) {
	l.sse.Event("delta", map[string]string{"text": delta})
}

func (l sseListener) ShowThinking(_ context.Context, content string) {
	l.sse.Event("thinking", map[string]string{"text": content})
}

func (l sseListener) ShowToolStart(_ context.Context, toolName, arguments string) {
	l.sse.Event("tool_start", map[string]string{"name": toolName, "arguments": arguments})
}

func (l sseListener) ShowToolResult(_ context.Context, toolName, result string, isError bool) {
	l.sse.Event("tool_result", toolResultEvent{Name: toolName, Content: result, IsError: isError})
}

func (h *handlers) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleExchange runs one exchange and streams its progress. Requests that
// fail before the first event get a JSON error with a status code instead.
func (h *handlers) handleExchange(w http.ResponseWriter, r *http.Request) {
	var req exchangeRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeMappedError(w, err)
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeMappedError(w, invalidRequestError("text is required"))
		return
	}

	sse := newSSEWriter(w)
	result, err := h.cfg.Runner.Send(r.Context(), input.ExchangeRequest{
		Text:             req.Text,
		TaggedWorksheets: req.TaggedWorksheets,
		SelectedRange:    req.SelectedRange,
		Listener:         sseListener{sse: sse},
	})
	if err != nil {
		h.cfg.Logger.Warn("Exchange request failed", "error", err)
		if !sse.Started() {
			writeMappedError(w, err)
			return
		}
		_, code := mapError(err)
		sse.Event("error", apiError{Code: code, Message: err.Error()})
		return
	}

	sse.Event("done", doneEvent{
		ExchangeID:  result.ExchangeID,
		FinalAnswer: result.FinalAnswer,
		Iterations:  result.Iterations,
		ToolCalls:   len(result.ToolResults),
		Committed:   result.Committed,
	})
}

func (h *handlers) handleWorksheets(w http.ResponseWriter, r *http.Request) {
	names, err := h.cfg.Workbook.WorksheetNames(r.Context())
	if err != nil {
		writeMappedError(w, err)
		return
	}
	active, err := h.cfg.Workbook.ActiveWorksheet(r.Context())
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"worksheets": names, "active": active})
}

func (h *handlers) handleConversation(w http.ResponseWriter, _ *http.Request) {
	history := h.cfg.History.Snapshot()
	messages := make([]messageView, 0, len(history))
	for _, m := range history {
		messages = append(messages, messageView{Role: string(m.Role), Content: m.Content})
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": messages})
}

func (h *handlers) handleResetConversation(w http.ResponseWriter, _ *http.Request) {
	h.cfg.History.Reset()
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) handleSave(w http.ResponseWriter, _ *http.Request) {
	if err := h.cfg.Workbook.Save(); err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "saved"})
}

type proxyChatRequest struct {
	Model    string                         `json:"model"`
	Messages []openai.ChatCompletionMessage `json:"messages"`
	Tools    []openai.Tool                  `json:"tools"`
}

type proxyEmbeddingRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

// handleProxyChat forwards a chat completion and returns the first message.
func (h *handlers) handleProxyChat(w http.ResponseWriter, r *http.Request) {
	if h.cfg.OpenAI == nil {
		writeProxyError(w, http.StatusServiceUnavailable, "OpenAI client is not configured")
		return
	}

	var req proxyChatRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeProxyError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Messages == nil {
		writeProxyError(w, http.StatusBadRequest, "messages must be an array")
		return
	}
	if req.Model == "" {
		req.Model = h.cfg.DefaultChatModel
	}

	resp, err := h.cfg.OpenAI.CreateChatCompletion(r.Context(), openai.ChatCompletionRequest{
		Model:    req.Model,
		Messages: req.Messages,
		Tools:    req.Tools,
	})
	if err != nil {
		h.cfg.Logger.Error("Proxy chat failed", "error", err)
		writeProxyError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if len(resp.Choices) == 0 {
		writeProxyError(w, http.StatusInternalServerError, "No message returned from OpenAI")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": resp.Choices[0].Message})
}

func (h *handlers) handleProxyEmbeddings(w http.ResponseWriter, r *http.Request) {
	if h.cfg.OpenAI == nil {
		writeProxyError(w, http.StatusServiceUnavailable, "OpenAI client is not configured")
		return
	}

	var req proxyEmbeddingRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeProxyError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Input == "" {
		writeProxyError(w, http.StatusBadRequest, "input must be a non-empty string")
		return
	}
	if req.Model == "" {
		req.Model = h.cfg.DefaultEmbeddingModel
	}

	resp, err := h.cfg.OpenAI.CreateEmbeddings(r.Context(), openai.EmbeddingRequest{
		Input:          []string{req.Input},
		Model:          openai.EmbeddingModel(req.Model),
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
	})
	if err != nil {
		h.cfg.Logger.Error("Proxy embeddings failed", "error", err)
		writeProxyError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if len(resp.Data) == 0 {
		writeProxyError(w, http.StatusInternalServerError, "No embedding returned from OpenAI")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"embedding": resp.Data[0].Embedding})
}

// writeProxyError keeps the proxy's {"error": "..."} shape.
func writeProxyError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
