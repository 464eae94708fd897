package mapping

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	phoneDigits   = regexp.MustCompile(`[^0-9]`)
	currencyChars = regexp.MustCompile(`[^0-9.,\-]`)
)

// NormalizePhoneNumber strips everything but digits, preserving a leading
// plus, and prepends the default country prefix when the number carries
// none. Normalizing twice yields the same result.
func NormalizePhoneNumber(raw, defaultPrefix string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	hasPlus := strings.HasPrefix(raw, "+")
	digits := phoneDigits.ReplaceAllString(raw, "")
	if digits == "" {
		return ""
	}
	if hasPlus {
		return "+" + digits
	}
	if defaultPrefix != "" && !strings.HasPrefix("+"+digits, defaultPrefix) {
		return defaultPrefix + digits
	}
	return "+" + digits
}

// NormalizeEmailAddress lowercases and trims
func NormalizeEmailAddress(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// NormalizeCurrencyAmount parses a money string into a float amount.
// Thousands separators and currency symbols are stripped, a trailing
// comma-decimal is normalized to a dot. Empty input yields 0.
func NormalizeCurrencyAmount(raw string) float64 {
	raw = currencyChars.ReplaceAllString(strings.TrimSpace(raw), "")
	if raw == "" {
		return 0
	}
	// "1.234,56" style: last comma is the decimal separator
	if i := strings.LastIndex(raw, ","); i > strings.LastIndex(raw, ".") {
		raw = strings.ReplaceAll(raw[:i], ".", "") + "." + raw[i+1:]
	}
	raw = strings.ReplaceAll(raw, ",", "")
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return 0
	}
	return d.InexactFloat64()
}

// ---------------------------------------------------------------------------
// User-Configurable Rules
// ---------------------------------------------------------------------------

// RuleKind names a configurable field transformation
type RuleKind string

const (
	RuleUppercase    RuleKind = "uppercase"
	RuleLowercase    RuleKind = "lowercase"
	RuleCapitalize   RuleKind = "capitalize"
	RulePrefix       RuleKind = "prefix"
	RuleSuffix       RuleKind = "suffix"
	RuleRegexReplace RuleKind = "regex_replace"
	RuleCustom       RuleKind = "custom"
)

// Rule is one user-configured field transformation
type Rule struct {
	Kind    RuleKind
	Arg     string
	Replace string
	Func    func(string) string
}

// Apply runs the rule over a string value
func (r Rule) Apply(value string) (string, error) {
	switch r.Kind {
	case RuleUppercase:
		return strings.ToUpper(value), nil
	case RuleLowercase:
		return strings.ToLower(value), nil
	case RuleCapitalize:
		return capitalizeWords(value), nil
	case RulePrefix:
		return r.Arg + value, nil
	case RuleSuffix:
		return value + r.Arg, nil
	case RuleRegexReplace:
		re, err := regexp.Compile(r.Arg)
		if err != nil {
			return "", fmt.Errorf("invalid rule pattern %q: %w", r.Arg, err)
		}
		return re.ReplaceAllString(value, r.Replace), nil
	case RuleCustom:
		if r.Func == nil {
			return "", fmt.Errorf("custom rule has no function")
		}
		return r.Func(value), nil
	default:
		return "", fmt.Errorf("unknown rule kind %q", r.Kind)
	}
}

func capitalizeWords(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
