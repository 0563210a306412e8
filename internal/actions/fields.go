package actions

import (
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// fieldRule describes one block field: its canonical key, accepted aliases,
// and whether the block is dropped without it.
type fieldRule struct {
	key      string
	aliases  []string
	required bool
}

var transactionRules = []fieldRule{
	{key: "type", aliases: []string{"tipo", "kind"}},
	{key: "amount", aliases: []string{"valor", "value"}, required: true},
	{key: "description", aliases: []string{"descricao", "descrição", "desc"}},
	{key: "category", aliases: []string{"categoria", "category_id"}},
	{key: "date", aliases: []string{"data"}},
}

var goalRules = []fieldRule{
	{key: "name", aliases: []string{"nome", "title"}},
	{key: "target_amount", aliases: []string{"target", "valor_meta"}, required: true},
	{key: "current_amount", aliases: []string{"current", "valor_atual"}},
}

var budgetRules = []fieldRule{
	{key: "category", aliases: []string{"categoria", "category_id"}},
	{key: "limit", aliases: []string{"limit_amount", "limite"}, required: true},
}

type fieldValue struct {
	value string
	line  int
}

// fields holds the key/value lines of one block body, keyed by normalized key.
type fields map[string]fieldValue

// parseFields reads "key: value" lines. Keys are case-insensitive and fold
// spaces and hyphens to underscores. The first non-empty occurrence of a key wins.
func parseFields(body string) fields {
	f := make(fields)
	for n, line := range strings.Split(body, "\n") {
		idx := strings.IndexByte(line, ':')
		if idx < 0 {
			continue
		}
		key := normalizeKey(line[:idx])
		value := strings.TrimSpace(line[idx+1:])
		if key == "" || value == "" {
			continue
		}
		if _, seen := f[key]; seen {
			continue
		}
		f[key] = fieldValue{value: value, line: n}
	}
	return f
}

func normalizeKey(raw string) string {
	k := strings.TrimSpace(raw)
	k = strings.TrimLeft(k, "-*•> \t")
	k = strings.TrimRight(k, "* \t")
	k = asciiLower(k)
	k = strings.Map(func(r rune) rune {
		if r == ' ' || r == '-' || r == '\t' {
			return '_'
		}
		return r
	}, k)
	for strings.Contains(k, "__") {
		k = strings.ReplaceAll(k, "__", "_")
	}
	return strings.Trim(k, "_")
}

// lookup returns the value for rule, taking whichever of its key and aliases
// appears first in the block.
func (f fields) lookup(rule fieldRule) (string, bool) {
	best := fieldValue{line: -1}
	for _, k := range append([]string{rule.key}, rule.aliases...) {
		if v, ok := f[k]; ok && (best.line < 0 || v.line < best.line) {
			best = v
		}
	}
	return best.value, best.line >= 0
}

// resolve applies rules, returning canonical key -> value for present fields.
// ok is false when a required field is missing.
func (f fields) resolve(rules []fieldRule) (map[string]string, bool) {
	out := make(map[string]string, len(rules))
	for _, r := range rules {
		v, present := f.lookup(r)
		if !present {
			if r.required {
				return nil, false
			}
			continue
		}
		out[r.key] = v
	}
	return out, true
}

var currencyPrefixes = []string{"US$", "R$", "BRL", "USD", "EUR", "GBP", "$", "€", "£"}

// parseAmount reads a non-negative number from the start of raw. Both comma and
// dot are accepted as decimal separator: with both present the last one is the
// decimal separator; a separator repeated with nothing else is grouping;
// otherwise a single separator is decimal.
func parseAmount(raw string) (decimal.Decimal, bool) {
	s := strings.TrimSpace(raw)
	s = strings.TrimLeft(s, "+-")
	for _, p := range currencyPrefixes {
		if len(s) >= len(p) && strings.EqualFold(s[:len(p)], p) {
			s = strings.TrimSpace(s[len(p):])
			break
		}
	}
	s = strings.TrimLeft(s, "+-")

	end := 0
	for end < len(s) && (isDigit(s[end]) || s[end] == '.' || s[end] == ',') {
		end++
	}
	num := strings.TrimRight(s[:end], ".,")
	if num == "" || !isDigit(num[0]) {
		return decimal.Decimal{}, false
	}

	dots := strings.Count(num, ".")
	commas := strings.Count(num, ",")
	switch {
	case dots > 0 && commas > 0:
		decSep, groupSep := ",", "."
		if strings.LastIndex(num, ".") > strings.LastIndex(num, ",") {
			decSep, groupSep = ".", ","
		}
		num = strings.ReplaceAll(num, groupSep, "")
		if strings.Count(num, decSep) > 1 {
			return decimal.Decimal{}, false
		}
		num = strings.Replace(num, decSep, ".", 1)
	case commas > 1:
		num = strings.ReplaceAll(num, ",", "")
	case dots > 1:
		num = strings.ReplaceAll(num, ".", "")
	case commas == 1:
		num = strings.Replace(num, ",", ".", 1)
	}

	d, err := decimal.NewFromString(num)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}

func isDigit(c byte) bool {
	return '0' <= c && c <= '9'
}

// parseDate accepts YYYY-MM-DD (optionally followed by a time) or DD/MM/YYYY.
func parseDate(raw string) (civil.Date, bool) {
	s := strings.TrimSpace(raw)
	if len(s) >= 10 {
		if d, err := civil.ParseDate(s[:10]); err == nil {
			return d, true
		}
		if t, err := time.Parse("02/01/2006", s[:10]); err == nil {
			return civil.DateOf(t), true
		}
	}
	return civil.Date{}, false
}
