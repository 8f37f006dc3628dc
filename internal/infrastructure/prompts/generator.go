package prompts

import (
	"bytes"
	"strings"
	"text/template"

	"excel-agent/internal/domain/entity"
)

type SystemPromptData struct {
	ActiveWorksheet  string
	SelectedRange    string
	Worksheets       []string
	TaggedWorksheets []string
	Relevance        []entity.SheetRelevance
}

func GenerateSystemPrompt(baseTemplate string, data SystemPromptData) (string, error) {
	tmpl, err := template.New("system").
		Funcs(template.FuncMap{"join": strings.Join}).
		Parse(baseTemplate)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}

	return buf.String(), nil
}
