package userinteraction

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"excel-agent/internal/application/port/output"

	"github.com/fatih/color"
	"github.com/peterh/liner"
)

var (
	_ output.UserInteractionPort = (*Console)(nil)
	_ output.ConfirmPort         = (*Console)(nil)
)

// Prompt reads one line of user input. *liner.State satisfies it.
type Prompt interface {
	Prompt(prompt string) (string, error)
	AppendHistory(item string)
	Close() error
}

type Console struct {
	mu       sync.Mutex
	out      io.Writer
	prompt   Prompt
	streamed bool
}

func NewConsole(out io.Writer, prompt Prompt) *Console {
	return &Console{out: out, prompt: prompt}
}

// NewTerminalConsole reads from the terminal with line editing and history.
func NewTerminalConsole() *Console {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)
	return NewConsole(color.Output, line)
}

func (c *Console) Close() error {
	return c.prompt.Close()
}

// ReadLine prompts for input and records non-empty lines in the history.
func (c *Console) ReadLine(prompt string) (string, error) {
	line, err := c.prompt.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(line) != "" {
		c.prompt.AppendHistory(line)
	}
	return line, nil
}

func (c *Console) ShowIteration(_ context.Context, iteration, maxIterations int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.endStreamLocked()
	color.New(color.FgCyan, color.Bold).Fprintf(c.out, "\n━━━ Iteration %d/%d ━━━\n", iteration, maxIterations)
}

func (c *Console) ShowTextDelta(_ context.Context, delta string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprint(c.out, delta)
	c.streamed = true
}

func (c *Console) ShowThinking(_ context.Context, content string) {
	if content == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.endStreamLocked()
	color.New(color.FgBlue).Fprint(c.out, "\n💭 Thinking: ")
	color.New(color.Faint).Fprintln(c.out, truncate(content, 500))
}

func (c *Console) ShowToolStart(_ context.Context, toolName, arguments string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.endStreamLocked()

	icon, name := toolDisplay(toolName)
	color.New(color.FgYellow, color.Bold).Fprintf(c.out, "\n%s %s\n", icon, name)
	if summary := formatToolArguments(arguments); summary != "" {
		color.New(color.Faint).Fprintf(c.out, "   %s\n", summary)
	}
}

func (c *Console) ShowToolResult(_ context.Context, _ string, result string, isError bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if isError {
		color.New(color.FgRed).Fprint(c.out, "❌ ")
		color.New(color.Faint).Fprintln(c.out, truncate(result, 300))
		return
	}
	color.New(color.FgGreen).Fprintf(c.out, "✓ %s\n", truncate(firstLine(result), 150))
}

// ShowAnswer prints the final answer unless it was already streamed.
func (c *Console) ShowAnswer(answer string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.streamed {
		c.endStreamLocked()
		return
	}
	fmt.Fprintf(c.out, "\n%s\n", answer)
}

func (c *Console) ShowError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.endStreamLocked()
	color.New(color.FgRed, color.Bold).Fprintf(c.out, "Error: %v\n", err)
}

func (c *Console) ShowInfo(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.endStreamLocked()
	color.New(color.FgHiBlack).Fprintf(c.out, format+"\n", args...)
}

// Confirm shows the pending action and asks for a yes/no answer. Anything
// other than y or yes declines.
func (c *Console) Confirm(ctx context.Context, prompt, detail string) (bool, error) {
	c.mu.Lock()
	c.endStreamLocked()
	color.New(color.FgYellow, color.Bold).Fprintf(c.out, "\n⚠ %s\n", prompt)
	if detail != "" {
		color.New(color.Faint).Fprintln(c.out, detail)
	}
	c.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return false, err
	}
	answer, err := c.prompt.Prompt("Apply? [y/N] ")
	if err != nil {
		return false, fmt.Errorf("read confirmation: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

func (c *Console) endStreamLocked() {
	if c.streamed {
		fmt.Fprintln(c.out)
		c.streamed = false
	}
}

func toolDisplay(toolName string) (string, string) {
	displays := map[string][2]string{
		"write_to_excel":            {"✏️", "Write values"},
		"write_to_selected_range":   {"✏️", "Write selection"},
		"read_from_excel":           {"👁️", "Read cell"},
		"read_range":                {"👁️", "Read range"},
		"format_cell":               {"🎨", "Format"},
		"analyze_selected_range":    {"🔍", "Inspect selection"},
		"analyze_data":              {"📊", "Analyze"},
		"add_chart":                 {"📈", "Chart"},
		"add_pivot_table":           {"📋", "Pivot table"},
		"merge_cells":               {"🔗", "Merge"},
		"unmerge_cells":             {"✂️", "Unmerge"},
		"autofit_columns":           {"↔️", "Autofit columns"},
		"autofit_rows":              {"↕️", "Autofit rows"},
		"filter_data":               {"🔎", "Filter"},
		"sort_data":                 {"🔃", "Sort"},
		"enable_filter_ui":          {"🔎", "Filter buttons"},
		"apply_conditional_format":  {"🎨", "Conditional format"},
		"clear_conditional_formats": {"🧹", "Clear conditional formats"},
		"manage_worksheet":          {"📄", "Worksheet"},
		"get_worksheet_names":       {"📄", "List worksheets"},
		"get_active_worksheet_name": {"📄", "Active worksheet"},
	}
	if display, ok := displays[toolName]; ok {
		return display[0], display[1]
	}
	return "🔧", toolName
}

// formatToolArguments renders the scalar arguments as key=value pairs.
func formatToolArguments(arguments string) string {
	var args map[string]any
	if err := json.Unmarshal([]byte(arguments), &args); err != nil {
		return ""
	}

	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var parts []string
	for _, k := range keys {
		switch v := args[k].(type) {
		case string:
			parts = append(parts, fmt.Sprintf("%s=%s", k, truncate(v, 40)))
		case float64, bool:
			parts = append(parts, fmt.Sprintf("%s=%v", k, v))
		case []any:
			parts = append(parts, fmt.Sprintf("%s=[%d]", k, len(v)))
		}
	}
	return strings.Join(parts, " ")
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + " …"
	}
	return s
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
