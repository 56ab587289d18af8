// Package chart suggests a visualization for a query result. The
// suggestion is heuristic and deterministic: the same result and question
// always map to the same configuration, so the UI never flickers between
// chart types on a re-ask.
package chart

import (
	"fmt"
	"strings"

	"github.com/duckboard/duckboard/internal/warehouse"
)

type Type string

const (
	TypeMetric  Type = "metric"
	TypeLine    Type = "line"
	TypeBar     Type = "bar"
	TypeHBar    Type = "hbar"
	TypePie     Type = "pie"
	TypeScatter Type = "scatter"
	TypeTable   Type = "table"
)

// Configuration describes the chart the UI should draw. Labels and Values
// are extracted from the result so the frontend does not re-scan rows.
type Configuration struct {
	ChartType Type   `json:"chartType"`
	Title     string `json:"title"`
	XLabel    string `json:"xLabel,omitempty"`
	YLabel    string `json:"yLabel,omitempty"`
	Labels    []any  `json:"labels,omitempty"`
	Values    []any  `json:"values,omitempty"`
}

const rankingRowCutoff = 10

// Suggest picks a chart for the result. Empty results and shapes with no
// obvious visualization come back as a plain table.
func Suggest(result warehouse.Result, question string) Configuration {
	if len(result.Columns) == 0 || len(result.Rows) == 0 {
		return Configuration{ChartType: TypeTable}
	}

	numericCols := columnsWhere(result, isNumeric)
	stringCols := columnsWhere(result, isString)
	dateCols := dateNamedColumns(result.Columns)
	questionLower := strings.ToLower(question)

	if len(result.Rows) == 1 && len(numericCols) == 1 {
		col := numericCols[0]
		return Configuration{
			ChartType: TypeMetric,
			Title:     result.Columns[col],
			Values:    []any{result.Rows[0][col]},
		}
	}

	if len(dateCols) > 0 && len(numericCols) > 0 {
		dateCol := dateCols[0]
		valueCol := firstNumericExcluding(numericCols, dateCol)
		if valueCol >= 0 {
			labels, values := extract(result, dateCol, valueCol)
			if hasAny(questionLower, "trend", "over time", "monthly") {
				return Configuration{
					ChartType: TypeLine,
					Title:     result.Columns[valueCol] + " over time",
					XLabel:    result.Columns[dateCol],
					YLabel:    result.Columns[valueCol],
					Labels:    labels,
					Values:    values,
				}
			}
			return Configuration{
				ChartType: TypeBar,
				Title:     byTitle(result.Columns[valueCol], result.Columns[dateCol]),
				XLabel:    result.Columns[dateCol],
				YLabel:    result.Columns[valueCol],
				Labels:    labels,
				Values:    values,
			}
		}
	}

	if len(stringCols) > 0 && len(numericCols) > 0 {
		catCol := stringCols[0]
		valueCol := numericCols[0]
		labels, values := extract(result, catCol, valueCol)
		config := Configuration{
			Title:  byTitle(result.Columns[valueCol], result.Columns[catCol]),
			XLabel: result.Columns[catCol],
			YLabel: result.Columns[valueCol],
			Labels: labels,
			Values: values,
		}
		switch {
		case hasAny(questionLower, "breakdown", "distribution", "percent"):
			config.ChartType = TypePie
		case strings.Contains(questionLower, "top") || len(result.Rows) <= rankingRowCutoff:
			config.ChartType = TypeHBar
		default:
			config.ChartType = TypeBar
		}
		return config
	}

	if len(numericCols) >= 2 {
		xCol, yCol := numericCols[0], numericCols[1]
		labels, values := extract(result, xCol, yCol)
		return Configuration{
			ChartType: TypeScatter,
			Title:     fmt.Sprintf("%s vs %s", result.Columns[yCol], result.Columns[xCol]),
			XLabel:    result.Columns[xCol],
			YLabel:    result.Columns[yCol],
			Labels:    labels,
			Values:    values,
		}
	}

	return Configuration{ChartType: TypeTable}
}

// columnsWhere classifies each column by its first non-nil value. Mixed
// columns resolve on the first typed value seen, which matches how a
// single-engine result behaves in practice.
func columnsWhere(result warehouse.Result, predicate func(any) bool) []int {
	matched := make([]int, 0, len(result.Columns))
	for col := range result.Columns {
		for _, row := range result.Rows {
			value := row[col]
			if value == nil {
				continue
			}
			if predicate(value) {
				matched = append(matched, col)
			}
			break
		}
	}
	return matched
}

func isNumeric(value any) bool {
	switch value.(type) {
	case int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return true
	}
	return false
}

func isString(value any) bool {
	_, ok := value.(string)
	return ok
}

func dateNamedColumns(columns []string) []int {
	matched := make([]int, 0, len(columns))
	for i, name := range columns {
		lower := strings.ToLower(name)
		if strings.Contains(lower, "date") || strings.Contains(lower, "month") || strings.Contains(lower, "year") {
			matched = append(matched, i)
		}
	}
	return matched
}

func firstNumericExcluding(numericCols []int, excluded int) int {
	for _, col := range numericCols {
		if col != excluded {
			return col
		}
	}
	return -1
}

func extract(result warehouse.Result, labelCol, valueCol int) ([]any, []any) {
	labels := make([]any, 0, len(result.Rows))
	values := make([]any, 0, len(result.Rows))
	for _, row := range result.Rows {
		labels = append(labels, row[labelCol])
		values = append(values, row[valueCol])
	}
	return labels, values
}

func hasAny(haystack string, needles ...string) bool {
	for _, needle := range needles {
		if strings.Contains(haystack, needle) {
			return true
		}
	}
	return false
}

func byTitle(value, dimension string) string {
	return fmt.Sprintf("%s by %s", value, dimension)
}
