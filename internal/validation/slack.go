// Package validation содержит функции разбора и проверки входных данных.
package validation

import (
	"regexp"
	"strings"
	"unicode"
)

var slackIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(U[A-Z0-9]{8,})\b`),
	regexp.MustCompile(`\(([^)]+)\)`),
	regexp.MustCompile(`/\s*(\S+)$`),
}

// IsSlackID проверяет, похожа ли строка на идентификатор пользователя Slack.
func IsSlackID(s string) bool {
	if len(s) < 9 || (s[0] != 'U' && s[0] != 'W') {
		return false
	}
	for _, ch := range s[1:] {
		if !unicode.IsDigit(ch) && !(ch >= 'A' && ch <= 'Z') {
			return false
		}
	}
	return true
}

// ExtractSlackID достаёт Slack ID из произвольного ввода вида
// "name (U0123ABCD)" или "name / U0123ABCD". Если идентификатор не найден,
// возвращается исходная строка без пробелов по краям.
func ExtractSlackID(input string) string {
	for _, re := range slackIDPatterns {
		m := re.FindStringSubmatch(input)
		if m == nil {
			continue
		}
		candidate := strings.TrimSpace(m[1])
		if strings.HasPrefix(candidate, "U") {
			return candidate
		}
	}
	return strings.TrimSpace(input)
}
