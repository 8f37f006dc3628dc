// Package httpapi exposes the agent over HTTP with server-sent events.
package httpapi

import (
	"context"
	"net/http"

	"excel-agent/internal/application/port/input"
	"excel-agent/internal/application/port/output"
	"excel-agent/internal/domain/entity"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httplog"
	"github.com/sashabaranov/go-openai"
)

// OpenAIClient is the part of *openai.Client the proxy endpoints use.
type OpenAIClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
	CreateEmbeddings(ctx context.Context, conv openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error)
}

// History is the conversation as seen by the API.
type History interface {
	Snapshot() []entity.Message
	Reset()
}

type Config struct {
	Runner   input.ExchangeRunner
	Workbook output.WorkbookPort
	History  History
	// OpenAI backs the proxy endpoints; nil disables them.
	OpenAI                OpenAIClient
	DefaultChatModel      string
	DefaultEmbeddingModel string
	// AccessLog enables structured request logs.
	AccessLog bool
	Logger    output.LoggerPort
}

type handlers struct {
	cfg Config
}

func NewRouter(cfg Config) http.Handler {
	if cfg.DefaultChatModel == "" {
		cfg.DefaultChatModel = "gpt-4o-mini"
	}
	if cfg.DefaultEmbeddingModel == "" {
		cfg.DefaultEmbeddingModel = string(openai.LargeEmbedding3)
	}
	h := &handlers{cfg: cfg}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	if cfg.AccessLog {
		r.Use(httplog.RequestLogger(httplog.NewLogger("excel-agent", httplog.Options{
			JSON:    true,
			Concise: true,
		})))
	}

	r.Get("/healthz", h.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Post("/exchange", h.handleExchange)
		r.Get("/worksheets", h.handleWorksheets)
		r.Get("/conversation", h.handleConversation)
		r.Delete("/conversation", h.handleResetConversation)
		r.Post("/workbook/save", h.handleSave)

		r.Route("/openai", func(r chi.Router) {
			r.Use(middleware.RequestSize(maxProxyBodyBytes))
			r.Post("/chat", h.handleProxyChat)
			r.Post("/embeddings", h.handleProxyEmbeddings)
		})
	})
	return r
}
