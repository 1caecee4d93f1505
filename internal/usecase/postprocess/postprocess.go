// Package postprocess applies deterministic, locale-aware rewrites to free-text
// model answers: local currency symbols and dual-unit annotations.
package postprocess

import (
	"regexp"
	"strconv"
	"strings"
)

// UnitRule appends a converted quantity after a recognized unit token, e.g.
// "5 acres" becomes "5 acres (2.02 hectares)".
type UnitRule struct {
	// Pattern must capture the number in group 1.
	Pattern *regexp.Regexp
	// Canonical is the unit word written after the number.
	Canonical string
	Target    string
	Convert   func(float64) float64
}

// LocaleRules is the set of rewrites for one locale. The zero value changes nothing.
type LocaleRules struct {
	Name           string
	CurrencySymbol string
	Units          []UnitRule
}

var dollarAmount = regexp.MustCompile(`\$(\d)`)

// Apply rewrites text. Running it twice gives the same result as running it once.
func Apply(text string, rules LocaleRules) string {
	if rules.CurrencySymbol != "" && rules.CurrencySymbol != "$" {
		text = dollarAmount.ReplaceAllString(text, rules.CurrencySymbol+"$1")
	}
	for _, u := range rules.Units {
		text = u.apply(text)
	}
	return strings.TrimSpace(text)
}

func (u UnitRule) apply(text string) string {
	matches := u.Pattern.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return text
	}

	var sb strings.Builder
	last := 0
	for _, m := range matches {
		start, end := m[0], m[1]
		numStart, numEnd := m[2], m[3]
		num := text[numStart:numEnd]

		sb.WriteString(text[last:start])
		last = end

		if alreadyAnnotated(text[end:], u.Target) {
			sb.WriteString(text[start:end])
			continue
		}

		value, err := strconv.ParseFloat(strings.ReplaceAll(num, ",", ""), 64)
		if err != nil {
			sb.WriteString(text[start:end])
			continue
		}
		sb.WriteString(num)
		sb.WriteByte(' ')
		sb.WriteString(u.Canonical)
		sb.WriteString(" (")
		sb.WriteString(strconv.FormatFloat(u.Convert(value), 'f', 2, 64))
		sb.WriteByte(' ')
		sb.WriteString(u.Target)
		sb.WriteByte(')')
	}
	sb.WriteString(text[last:])
	return sb.String()
}

// alreadyAnnotated reports whether rest starts with " (<number> <target>)".
func alreadyAnnotated(rest, target string) bool {
	inner, ok := strings.CutPrefix(rest, " (")
	if !ok {
		return false
	}
	closing := strings.IndexByte(inner, ')')
	if closing < 0 {
		return false
	}
	fields := strings.Fields(inner[:closing])
	if len(fields) != 2 || fields[1] != target {
		return false
	}
	_, err := strconv.ParseFloat(fields[0], 64)
	return err == nil
}
