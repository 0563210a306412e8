package actions

import "strings"

// maxTagLen bounds how far past '[' the scanner looks for ']'.
const maxTagLen = 32

// tags maps upper-cased delimiter names to block kinds.
var tags = map[string]Kind{
	"TRANSACTION":    KindTransaction,
	"ACAO_TRANSACAO": KindTransaction,
	"GOAL":           KindGoal,
	"ACAO_META":      KindGoal,
	"BUDGET":         KindBudget,
	"ACAO_ORCAMENTO": KindBudget,
}

type token struct {
	kind       Kind
	closing    bool
	start, end int // byte span of the delimiter, end exclusive
}

// block is a matched open/close pair.
type block struct {
	kind       Kind
	start, end int // full span including delimiters
	body       string
}

// tokenize finds every recognizable delimiter in text, in order.
func tokenize(text string) []token {
	var toks []token
	for i := 0; i < len(text); i++ {
		if text[i] != '[' {
			continue
		}
		limit := i + 1 + maxTagLen
		if limit > len(text) {
			limit = len(text)
		}
		j := strings.IndexAny(text[i+1:limit], "[]\n")
		if j < 0 || text[i+1+j] != ']' {
			continue
		}
		inner := strings.TrimSpace(text[i+1 : i+1+j])
		closing := strings.HasPrefix(inner, "/")
		if closing {
			inner = strings.TrimSpace(inner[1:])
		}
		kind, ok := tags[asciiUpper(inner)]
		if !ok {
			continue
		}
		end := i + 1 + j + 1
		toks = append(toks, token{kind: kind, closing: closing, start: i, end: end})
		i = end - 1
	}
	return toks
}

// pair matches each opening delimiter with the nearest following closing
// delimiter of the same kind. An opening delimiter followed by another opening
// delimiter of the same kind before any close is unterminated. Delimiters
// inside a matched block are part of its body.
func pair(text string, toks []token) []block {
	var blocks []block
	pos := 0
	for i, open := range toks {
		if open.closing || open.start < pos {
			continue
		}
		for _, next := range toks[i+1:] {
			if next.kind != open.kind {
				continue
			}
			if next.closing {
				blocks = append(blocks, block{
					kind:  open.kind,
					start: open.start,
					end:   next.end,
					body:  text[open.end:next.start],
				})
				pos = next.end
			}
			break
		}
	}
	return blocks
}

func asciiUpper(s string) string {
	b := []byte(s)
	for i, c := range b {
		if 'a' <= c && c <= 'z' {
			b[i] = c - ('a' - 'A')
		}
	}
	return string(b)
}

func asciiLower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if 'A' <= c && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}
