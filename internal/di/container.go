package di

import (
	"fmt"
	"strings"
	"time"

	"excel-agent/internal/adapter/operation"
	"excel-agent/internal/application/port/output"
	"excel-agent/internal/application/service"
	"excel-agent/internal/infrastructure/llm/langchain"
	"excel-agent/internal/infrastructure/llm/openaicompat"
	"excel-agent/internal/infrastructure/logger"
	"excel-agent/internal/infrastructure/workbook/xlsx"
	"excel-agent/internal/usecase/exchange"

	"github.com/sashabaranov/go-openai"
)

const (
	ProviderOpenAI    = "openai"
	ProviderLangchain = "langchain"

	PolicyAllow    = "allow"
	PolicyConfirm  = "confirm"
	PolicyReadOnly = "readonly"

	// EmbeddingsDisabled as EMBEDDING_MODEL turns worksheet embeddings off.
	// An empty model selects the provider default.
	EmbeddingsDisabled = "none"
)

type Container struct {
	Logger       output.LoggerPort
	Workbook     *xlsx.WorkbookAdapter
	LLM          output.LLMPort
	Embedder     output.EmbedderPort
	Registry     output.OperationRegistry
	Conversation *service.Conversation
	Sheets       *service.WorksheetContext
	Exchange     *exchange.UseCase
	// OpenAI is nil unless the openai provider is in use.
	OpenAI *openai.Client
}

type Config struct {
	SessionName string
	Debug       bool

	Provider       string
	APIKey         string
	BaseURL        string
	Model          string
	EmbeddingModel string
	LLMDebug       bool

	WorkbookPath string

	MaxIterations     int
	ExchangeTimeout   time.Duration
	MutationPolicy    string
	EmbeddingCacheTTL time.Duration

	// Confirm answers approval prompts under the confirm policy.
	Confirm output.ConfirmPort
	// Logger replaces the session log file when set.
	Logger output.LoggerPort
}

// ConfigFromEnv reads every setting except the session name and Confirm.
func ConfigFromEnv(env output.ConfigPort) Config {
	defaults := exchange.DefaultConfig()
	return Config{
		Debug:             env.GetBool("DEBUG", false),
		Provider:          strings.ToLower(env.GetWithDefault("LLM_PROVIDER", ProviderOpenAI)),
		APIKey:            env.MustGet("OPENAI_API_KEY"),
		BaseURL:           env.GetWithDefault("OPENAI_BASE_URL", openaicompat.DefaultBaseURL),
		Model:             env.GetWithDefault("OPENAI_MODEL", openaicompat.DefaultModel),
		EmbeddingModel:    env.GetWithDefault("EMBEDDING_MODEL", openaicompat.DefaultEmbeddingModel),
		LLMDebug:          env.GetBool("LLM_DEBUG", false),
		WorkbookPath:      env.GetWithDefault("WORKBOOK_PATH", "workbook.xlsx"),
		MaxIterations:     env.GetInt("MAX_ITERATIONS", defaults.MaxIterations),
		ExchangeTimeout:   env.GetDuration("EXCHANGE_TIMEOUT", defaults.Timeout),
		MutationPolicy:    strings.ToLower(env.GetWithDefault("MUTATION_POLICY", PolicyAllow)),
		EmbeddingCacheTTL: env.GetDuration("EMBEDDING_CACHE_TTL", service.DefaultEmbeddingTTL),
	}
}

func NewContainer(cfg Config) (*Container, error) {
	log := cfg.Logger
	if log == nil {
		fileLog, err := logger.NewLoggerAdapter(cfg.SessionName, cfg.Debug)
		if err != nil {
			return nil, fmt.Errorf("failed to create logger: %w", err)
		}
		log = fileLog
	}

	workbook, err := xlsx.Open(xlsx.Config{Path: cfg.WorkbookPath, CreateIfMissing: true}, log)
	if err != nil {
		log.Close()
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}

	c := &Container{Logger: log, Workbook: workbook}

	if err := c.buildLLM(cfg); err != nil {
		c.Close()
		return nil, err
	}

	registry, err := service.NewOperationRegistryFrom(operation.Catalog(workbook))
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to register operations: %w", err)
	}
	c.Registry = registry

	gate, err := newGate(cfg, workbook, log)
	if err != nil {
		c.Close()
		return nil, err
	}

	c.Conversation = service.NewConversation()
	c.Sheets = service.NewWorksheetContext(workbook, c.Embedder, service.NewEmbeddingCache(cfg.EmbeddingCacheTTL, nil), log)

	exchangeCfg := exchange.DefaultConfig()
	if cfg.MaxIterations > 0 {
		exchangeCfg.MaxIterations = cfg.MaxIterations
	}
	if cfg.ExchangeTimeout > 0 {
		exchangeCfg.Timeout = cfg.ExchangeTimeout
	}
	c.Exchange = exchange.New(
		c.LLM,
		registry,
		service.NewDispatcher(registry, gate, log),
		c.Conversation,
		workbook,
		c.Sheets,
		log,
		exchangeCfg,
	)

	log.Info("Container ready",
		"provider", cfg.Provider,
		"model", cfg.Model,
		"workbook", cfg.WorkbookPath,
		"policy", cfg.MutationPolicy,
		"operations", len(registry.List()),
		"embeddings", c.Embedder != nil,
	)
	return c, nil
}

func (c *Container) buildLLM(cfg Config) error {
	embeddingModel := cfg.EmbeddingModel
	switch embeddingModel {
	case "":
		embeddingModel = openaicompat.DefaultEmbeddingModel
	case EmbeddingsDisabled:
		embeddingModel = ""
	}

	switch cfg.Provider {
	case "", ProviderOpenAI:
		adapter := openaicompat.New(openaicompat.Config{
			APIKey:         cfg.APIKey,
			Model:          cfg.Model,
			EmbeddingModel: embeddingModel,
			BaseURL:        cfg.BaseURL,
			Debug:          cfg.LLMDebug,
			Logger:         c.Logger,
		})
		c.LLM = adapter
		c.OpenAI = adapter.Client()
		if embeddingModel != "" {
			c.Embedder = adapter
		}
	case ProviderLangchain:
		adapter, err := langchain.NewOpenAI(langchain.Config{
			APIKey:         cfg.APIKey,
			Model:          cfg.Model,
			EmbeddingModel: embeddingModel,
			BaseURL:        cfg.BaseURL,
		}, c.Logger)
		if err != nil {
			return fmt.Errorf("failed to create LLM: %w", err)
		}
		c.LLM = adapter
		if embeddingModel != "" {
			c.Embedder = adapter
		}
	default:
		return fmt.Errorf("unknown LLM_PROVIDER %q (want %s or %s)", cfg.Provider, ProviderOpenAI, ProviderLangchain)
	}
	return nil
}

func newGate(cfg Config, workbook output.WorkbookPort, log output.LoggerPort) (output.MutationGate, error) {
	switch cfg.MutationPolicy {
	case "", PolicyAllow:
		return service.AllowAllGate{}, nil
	case PolicyReadOnly:
		return service.ReadOnlyGate{}, nil
	case PolicyConfirm:
		if cfg.Confirm == nil {
			return nil, fmt.Errorf("MUTATION_POLICY=%s needs an interactive console", PolicyConfirm)
		}
		return service.NewApprovalGate(cfg.Confirm, workbook, log), nil
	default:
		return nil, fmt.Errorf("unknown MUTATION_POLICY %q", cfg.MutationPolicy)
	}
}

func (c *Container) Close() {
	if c.Workbook != nil {
		if err := c.Workbook.Close(); err != nil && c.Logger != nil {
			c.Logger.Warn("Failed to close workbook", "error", err)
		}
	}
	if c.Logger != nil {
		c.Logger.Close()
	}
}
