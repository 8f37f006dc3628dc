package operation

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	AnalysisSummary      = "summary"
	AnalysisTrend        = "trend"
	AnalysisDistribution = "distribution"
)

// Analyze computes a textual summary, trend or frequency distribution of values.
func Analyze(values [][]any, analysisType string) (string, error) {
	switch analysisType {
	case AnalysisSummary:
		return summary(values), nil
	case AnalysisTrend:
		return trend(values), nil
	case AnalysisDistribution:
		return distribution(values), nil
	}
	return "", fmt.Errorf("unknown analysis type %q", analysisType)
}

func summary(values [][]any) string {
	var nums []float64
	for _, row := range values {
		nums = append(nums, numbers(row)...)
	}
	if len(nums) == 0 {
		return "Summary:\nNo numeric values found"
	}

	sum, max, min := 0.0, math.Inf(-1), math.Inf(1)
	for _, n := range nums {
		sum += n
		max = math.Max(max, n)
		min = math.Min(min, n)
	}
	return fmt.Sprintf("Summary:\nSum: %s\nAverage: %s\nMax: %s\nMin: %s",
		formatNumber(sum), formatNumber(sum/float64(len(nums))), formatNumber(max), formatNumber(min))
}

func trend(values [][]any) string {
	if len(values) == 0 {
		return "Trend (last value - first value for each column):\n"
	}
	first := numbers(values[0])
	last := numbers(values[len(values)-1])

	parts := make([]string, 0, len(last))
	for i := 0; i < len(last) && i < len(first); i++ {
		parts = append(parts, formatNumber(last[i]-first[i]))
	}
	return "Trend (last value - first value for each column):\n" + strings.Join(parts, ", ")
}

func distribution(values [][]any) string {
	counts := make(map[string]int)
	var order []string
	for _, row := range values {
		for _, v := range row {
			key := formatValue(v)
			if _, seen := counts[key]; !seen {
				order = append(order, key)
			}
			counts[key]++
		}
	}

	lines := make([]string, 0, len(order))
	for _, key := range order {
		lines = append(lines, fmt.Sprintf("%s: %d", key, counts[key]))
	}
	return "Distribution:\n" + strings.Join(lines, "\n")
}

func numbers(row []any) []float64 {
	var out []float64
	for _, v := range row {
		if f, ok := v.(float64); ok {
			out = append(out, f)
		}
	}
	return out
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func formatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case float64:
		return formatNumber(t)
	case string:
		return t
	}
	return fmt.Sprint(v)
}
