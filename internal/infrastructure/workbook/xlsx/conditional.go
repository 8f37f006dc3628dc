package xlsx

import (
	"context"
	"fmt"
	"strings"

	"excel-agent/internal/domain/entity"

	"github.com/xuri/excelize/v2"
)

var cellValueOperators = map[string]string{
	"between":            "between",
	"notbetween":         "not between",
	"equalto":            "==",
	"notequalto":         "!=",
	"greaterthan":        ">",
	"lessthan":           "<",
	"greaterthanorequal": ">=",
	"lessthanorequal":    "<=",
}

const (
	defaultFontColor = "#9C0006"
	defaultFillColor = "#FFC7CE"
	defaultBarColor  = "#638EC6"
	defaultIconStyle = "3Arrows"
)

func (a *WorkbookAdapter) ApplyConditionalFormat(_ context.Context, spec entity.ConditionalFormatSpec) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	r, err := a.resolve(spec.Range)
	if err != nil {
		return "", err
	}

	opt, styled, err := conditionalOptions(spec.FormatType, spec.Rule, r)
	if err != nil {
		return "", err
	}
	if styled {
		id, err := a.file.NewConditionalStyle(conditionalStyle(spec.Format))
		if err != nil {
			return "", fmt.Errorf("create conditional style: %w", err)
		}
		opt.Format = id
	}

	if err := a.file.SetConditionalFormat(r.sheet, r.ref(), []excelize.ConditionalFormatOptions{opt}); err != nil {
		return "", fmt.Errorf("set conditional format: %w", err)
	}
	return fmt.Sprintf("Conditional format applied to range %s", strings.TrimSpace(spec.Range)), nil
}

const maxConditionalBlocks = 1000

func (a *WorkbookAdapter) ClearConditionalFormats(_ context.Context, address string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	r, err := a.resolve(address)
	if err != nil {
		return "", err
	}
	// Each apply adds its own block for the range and unset removes one
	// block per call.
	for i := 0; i < maxConditionalBlocks; i++ {
		formats, err := a.file.GetConditionalFormats(r.sheet)
		if err != nil {
			return "", fmt.Errorf("read conditional formats: %w", err)
		}
		if _, ok := formats[r.ref()]; !ok {
			break
		}
		if err := a.file.UnsetConditionalFormat(r.sheet, r.ref()); err != nil {
			return "", fmt.Errorf("clear conditional formats: %w", err)
		}
	}
	return fmt.Sprintf("Conditional formats cleared from range %s", strings.TrimSpace(address)), nil
}

// conditionalOptions maps a rule onto excelize options. styled reports whether
// the rule applies a differential format to matching cells.
func conditionalOptions(formatType string, rule map[string]any, r cellRange) (excelize.ConditionalFormatOptions, bool, error) {
	switch formatType {
	case entity.ConditionalCellValue:
		op, ok := cellValueOperators[strings.ToLower(ruleString(rule, "operator"))]
		if !ok {
			return excelize.ConditionalFormatOptions{}, false, fmt.Errorf("rule.operator must be one of Between, NotBetween, EqualTo, NotEqualTo, GreaterThan, LessThan, GreaterThanOrEqual, LessThanOrEqual")
		}
		f1 := formula(ruleString(rule, "formula1"))
		if f1 == "" {
			return excelize.ConditionalFormatOptions{}, false, fmt.Errorf("rule.formula1 is required")
		}
		opt := excelize.ConditionalFormatOptions{Type: "cell", Criteria: op}
		if op == "between" || op == "not between" {
			f2 := formula(ruleString(rule, "formula2"))
			if f2 == "" {
				return excelize.ConditionalFormatOptions{}, false, fmt.Errorf("rule.formula2 is required for %s", ruleString(rule, "operator"))
			}
			opt.MinValue, opt.MaxValue = f1, f2
		} else {
			opt.Value = f1
		}
		return opt, true, nil

	case entity.ConditionalColorScale:
		minColor := nestedString(rule, "minimum", "color")
		maxColor := nestedString(rule, "maximum", "color")
		if minColor == "" || maxColor == "" {
			return excelize.ConditionalFormatOptions{}, false, fmt.Errorf("rule.minimum.color and rule.maximum.color are required")
		}
		opt := excelize.ConditionalFormatOptions{
			Type:     "2_color_scale",
			Criteria: "=",
			MinType:  "min",
			MaxType:  "max",
			MinColor: minColor,
			MaxColor: maxColor,
		}
		if mid := nestedString(rule, "midpoint", "color"); mid != "" {
			opt.Type = "3_color_scale"
			opt.MidType = "percentile"
			opt.MidValue = "50"
			opt.MidColor = mid
		}
		return opt, false, nil

	case entity.ConditionalDataBar:
		color := ruleString(rule, "barColor")
		if color == "" {
			color = nestedString(rule, "positiveFormat", "fillColor")
		}
		if color == "" {
			color = defaultBarColor
		}
		return excelize.ConditionalFormatOptions{
			Type:     "data_bar",
			Criteria: "=",
			MinType:  "min",
			MaxType:  "max",
			BarColor: color,
		}, false, nil

	case entity.ConditionalContainsText:
		text := ruleString(rule, "text")
		if text == "" {
			return excelize.ConditionalFormatOptions{}, false, fmt.Errorf("rule.text is required")
		}
		criteria := fmt.Sprintf(`ISNUMBER(SEARCH("%s",%s))`, strings.ReplaceAll(text, `"`, `""`), r.start())
		return excelize.ConditionalFormatOptions{Type: "formula", Criteria: criteria}, true, nil

	case entity.ConditionalIconSet:
		style := ruleString(rule, "style")
		if style == "" {
			style = defaultIconStyle
		}
		return excelize.ConditionalFormatOptions{Type: "icon_set", IconStyle: style}, false, nil

	case entity.ConditionalCustom:
		f := strings.TrimPrefix(ruleString(rule, "formula"), "=")
		if f == "" {
			return excelize.ConditionalFormatOptions{}, false, fmt.Errorf("rule.formula is required")
		}
		return excelize.ConditionalFormatOptions{Type: "formula", Criteria: f}, true, nil
	}
	return excelize.ConditionalFormatOptions{}, false, fmt.Errorf("unsupported conditional format type %q", formatType)
}

// conditionalStyle reads fontColor, backgroundColor (or fillColor) and bold,
// also accepting the nested {font:{color,bold}, fill:{color}} shape.
func conditionalStyle(format map[string]any) *excelize.Style {
	font := ruleString(format, "fontColor")
	if font == "" {
		font = nestedString(format, "font", "color")
	}
	fill := ruleString(format, "backgroundColor")
	if fill == "" {
		fill = ruleString(format, "fillColor")
	}
	if fill == "" {
		fill = nestedString(format, "fill", "color")
	}
	bold, _ := format["bold"].(bool)
	if nested, ok := format["font"].(map[string]any); ok {
		if b, ok := nested["bold"].(bool); ok {
			bold = b
		}
	}

	if font == "" && fill == "" && !bold {
		font, fill = defaultFontColor, defaultFillColor
	}

	style := &excelize.Style{Font: &excelize.Font{Color: font, Bold: bold}}
	if fill != "" {
		style.Fill = excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{fill}}
	}
	return style
}

func ruleString(m map[string]any, key string) string {
	v, ok := m[key]
	if !ok || v == nil {
		return ""
	}
	return render(v)
}

func nestedString(m map[string]any, outer, key string) string {
	inner, ok := m[outer].(map[string]any)
	if !ok {
		return ""
	}
	return ruleString(inner, key)
}

func formula(s string) string {
	return strings.TrimPrefix(strings.TrimSpace(s), "=")
}
