package util

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	reDotThousands   = regexp.MustCompile(`^\d{1,3}(?:\.\d{3}){2,}$`)
	reCommaThousands = regexp.MustCompile(`^\d{1,3}(?:,\d{3}){2,}$`)
)

// ParseNumber reads a spreadsheet or form cell as a number. Blank input is 0.
// Both "1234.5" and the comma-decimal forms "1.234,5" and "1,5" are accepted.
func ParseNumber(raw string) (float64, error) {
	s := strings.TrimSpace(strings.ReplaceAll(raw, "\u00a0", " "))
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		v, err = strconv.ParseFloat(normalizeNumericToken(s), 64)
	}
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("invalid number %q", raw)
	}
	return v, nil
}

func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func normalizeNumericToken(token string) string {
	compact := strings.ReplaceAll(token, " ", "")
	if reDotThousands.MatchString(compact) {
		return strings.ReplaceAll(compact, ".", "")
	}
	if reCommaThousands.MatchString(compact) {
		return strings.ReplaceAll(compact, ",", "")
	}

	lastDot := strings.LastIndex(compact, ".")
	lastComma := strings.LastIndex(compact, ",")
	switch {
	case lastComma >= 0 && lastDot >= 0 && lastComma > lastDot:
		compact = strings.ReplaceAll(compact, ".", "")
		return strings.Replace(compact, ",", ".", 1)
	case lastComma >= 0 && lastDot >= 0:
		return strings.ReplaceAll(compact, ",", "")
	case lastComma >= 0:
		return strings.Replace(compact, ",", ".", 1)
	}
	return compact
}
