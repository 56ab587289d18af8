package nl2sql

import (
	"regexp"
	"strings"
)

var fencedBlockPattern = regexp.MustCompile("(?s)```[a-zA-Z]*[ \t]*\n?(.*?)```")

var sqlLeadKeywords = []string{"select", "with"}

// ExtractSQL pulls exactly one SQL statement out of a free-text completion.
// The grammar is deliberately narrow: the first fenced code block wins; with
// no fence, the first contiguous run of lines starting at a SELECT- or
// WITH-led line is taken. Anything else is a failure, never a guess.
func ExtractSQL(completion string) (string, bool) {
	if match := fencedBlockPattern.FindStringSubmatch(completion); match != nil {
		sql := strings.TrimSpace(match[1])
		if sql != "" {
			return sql, true
		}
		return "", false
	}

	lines := strings.Split(completion, "\n")
	start := -1
	for i, line := range lines {
		if isSQLLead(line) {
			start = i
			break
		}
	}
	if start < 0 {
		return "", false
	}

	end := start
	for end < len(lines) && strings.TrimSpace(lines[end]) != "" {
		end++
	}
	sql := strings.TrimSpace(strings.Join(lines[start:end], "\n"))
	if sql == "" {
		return "", false
	}
	return sql, true
}

func isSQLLead(line string) bool {
	trimmed := strings.ToLower(strings.TrimSpace(line))
	for _, keyword := range sqlLeadKeywords {
		if trimmed == keyword || strings.HasPrefix(trimmed, keyword+" ") || strings.HasPrefix(trimmed, keyword+"\t") {
			return true
		}
	}
	return false
}
