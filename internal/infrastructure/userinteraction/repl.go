package userinteraction

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"strings"

	"excel-agent/internal/application/port/input"
	"excel-agent/internal/application/port/output"
	"excel-agent/internal/application/service"

	"github.com/peterh/liner"
)

const helpText = `Commands:
  /sheets            list worksheets (* marks the active one)
  /select <range>    set the selection, e.g. /select Data!A1:C10
  /embed <sheet>     (re)compute the embedding of a worksheet
  /embed-all         embed every worksheet
  /reset             forget the conversation
  /save              save the workbook
  /quit              exit
Mention worksheets with @Name to give them to the assistant as context.`

// Resetter clears conversation history.
type Resetter interface {
	Reset()
}

type REPL struct {
	console  *Console
	runner   input.ExchangeRunner
	workbook output.WorkbookPort
	sheets   *service.WorksheetContext
	history  Resetter
	logger   output.LoggerPort
}

func NewREPL(
	console *Console,
	runner input.ExchangeRunner,
	workbook output.WorkbookPort,
	sheets *service.WorksheetContext,
	history Resetter,
	logger output.LoggerPort,
) *REPL {
	return &REPL{
		console:  console,
		runner:   runner,
		workbook: workbook,
		sheets:   sheets,
		history:  history,
		logger:   logger,
	}
}

// Run reads lines until /quit, end of input or ctx is done.
func (r *REPL) Run(ctx context.Context) error {
	r.console.ShowInfo("Type a request, or /help for commands.")
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		line, err := r.console.ReadLine("excel> ")
		if errors.Is(err, io.EOF) {
			return nil
		}
		if errors.Is(err, liner.ErrPromptAborted) {
			continue
		}
		if err != nil {
			return err
		}

		quit, err := r.Handle(ctx, line)
		if err != nil {
			r.console.ShowError(err)
		}
		if quit {
			return nil
		}
	}
}

// Handle runs one line: a slash command or a request to the assistant.
func (r *REPL) Handle(ctx context.Context, line string) (quit bool, err error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return false, nil
	}
	if !strings.HasPrefix(line, "/") {
		return false, r.send(ctx, line)
	}

	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "/quit", "/exit":
		return true, nil

	case "/help":
		r.console.ShowInfo("%s", helpText)

	case "/sheets":
		names, err := r.workbook.WorksheetNames(ctx)
		if err != nil {
			return false, err
		}
		active, err := r.workbook.ActiveWorksheet(ctx)
		if err != nil {
			return false, err
		}
		for _, name := range names {
			marker := " "
			if name == active {
				marker = "*"
			}
			r.console.ShowInfo("%s %s", marker, name)
		}

	case "/select":
		if arg == "" {
			sel, err := r.workbook.Selection(ctx)
			if err != nil {
				return false, err
			}
			r.console.ShowInfo("Selection: %s!%s", sel.Sheet, sel.Address)
			return false, nil
		}
		if err := r.workbook.Select(ctx, arg); err != nil {
			return false, err
		}
		sel, err := r.workbook.Selection(ctx)
		if err != nil {
			return false, err
		}
		r.console.ShowInfo("Selected %s!%s (%d×%d)", sel.Sheet, sel.Address, sel.RowCount, sel.ColumnCount)

	case "/embed":
		if !r.sheets.Enabled() {
			r.console.ShowInfo("Embeddings are not configured.")
			return false, nil
		}
		if arg == "" {
			r.console.ShowInfo("Usage: /embed <sheet>")
			return false, nil
		}
		vec, err := r.sheets.Refresh(ctx, arg)
		if err != nil {
			return false, err
		}
		r.console.ShowInfo("Embedded %s (%d dimensions)", arg, len(vec))

	case "/embed-all":
		if !r.sheets.Enabled() {
			r.console.ShowInfo("Embeddings are not configured.")
			return false, nil
		}
		n, err := r.sheets.EmbedAll(ctx)
		if err != nil {
			return false, err
		}
		r.console.ShowInfo("Embedded %d worksheets", n)

	case "/reset":
		r.history.Reset()
		r.console.ShowInfo("Conversation cleared.")

	case "/save":
		if err := r.workbook.Save(); err != nil {
			return false, err
		}
		r.console.ShowInfo("Workbook saved.")

	default:
		r.console.ShowInfo("Unknown command %s. Type /help for commands.", cmd)
	}
	return false, nil
}

// send runs one exchange. Ctrl-C cancels the exchange, not the session.
func (r *REPL) send(ctx context.Context, text string) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	result, err := r.runner.Send(ctx, input.ExchangeRequest{Text: text, Listener: r.console})
	if err != nil {
		return err
	}
	r.logger.Debug("Exchange finished",
		"exchangeID", result.ExchangeID,
		"iterations", result.Iterations,
		"toolResults", len(result.ToolResults))
	r.console.ShowAnswer(result.FinalAnswer)
	return nil
}
