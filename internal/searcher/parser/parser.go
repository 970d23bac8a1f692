// Package parser turns the query-string syntax accepted by the search API
// into span queries.
//
//	fox                   term in the default field
//	title:fox             term in a named field
//	qui*                  every term starting with "qui"
//	"quick fox"~2         ordered proximity, at most 2 positions apart
//	fox^2                 boost any clause
//	a b NOT c d           (a OR b) with spans overlapping c or d removed
//
// Clauses are joined by OR; the keyword OR is accepted and ignored. All
// clauses must target the same field.
package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/span-search/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/span-search/internal/searcher/query"
	apperrors "github.com/Adithya-Monish-Kumar-K/span-search/pkg/errors"
)

type item struct {
	field   string
	text    string
	phrase  bool
	slop    int
	boost   float64
	keyword string
}

// Parse builds the query for raw. Clauses without an indexable word, such
// as a lone stop-word, are dropped.
func Parse(raw, defaultField string) (query.SpanQuery, error) {
	items, err := lex(raw)
	if err != nil {
		return nil, err
	}
	var include, exclude []query.SpanQuery
	negated := false
	for _, it := range items {
		switch it.keyword {
		case "OR":
			continue
		case "AND":
			return nil, fmt.Errorf("%w: AND is not supported, clauses are joined by OR", apperrors.ErrInvalidQuery)
		case "NOT":
			if negated {
				return nil, fmt.Errorf("%w: NOT may appear only once", apperrors.ErrInvalidQuery)
			}
			negated = true
			continue
		}
		q, err := build(it, defaultField)
		if err != nil {
			return nil, err
		}
		if q == nil {
			continue
		}
		if negated {
			exclude = append(exclude, q)
		} else {
			include = append(include, q)
		}
	}
	if len(include) == 0 {
		return nil, fmt.Errorf("%w: %q has no searchable terms", apperrors.ErrInvalidQuery, raw)
	}
	if negated && len(exclude) == 0 {
		return nil, fmt.Errorf("%w: NOT needs at least one clause", apperrors.ErrInvalidQuery)
	}
	inc, err := either(include)
	if err != nil {
		return nil, err
	}
	if !negated {
		return inc, nil
	}
	exc, err := either(exclude)
	if err != nil {
		return nil, err
	}
	not, err := query.NewSpanNot(inc, exc)
	if err != nil {
		return nil, err
	}
	return not, nil
}

func either(clauses []query.SpanQuery) (query.SpanQuery, error) {
	if len(clauses) == 1 {
		return clauses[0], nil
	}
	or, err := query.NewSpanOr(clauses...)
	if err != nil {
		return nil, err
	}
	return or, nil
}

func build(it item, defaultField string) (query.SpanQuery, error) {
	field := it.field
	if field == "" {
		field = defaultField
	}
	var (
		q   query.SpanQuery
		err error
	)
	switch {
	case it.phrase:
		q, err = near(field, tokenizer.Tokenize(it.text), it.slop)
	case strings.HasSuffix(it.text, "*"):
		prefix := strings.ToLower(strings.TrimSuffix(it.text, "*"))
		if prefix == "" {
			return nil, fmt.Errorf("%w: bare wildcard", apperrors.ErrInvalidQuery)
		}
		q = query.NewSpanPrefix(field, prefix)
	default:
		q, err = near(field, tokenizer.Tokenize(it.text), 0)
	}
	if q == nil || err != nil {
		return nil, err
	}
	if it.boost != 1 {
		q = q.WithBoost(it.boost)
	}
	return q, nil
}

// near builds an ordered proximity query over tokens. Positions freed by
// removed stop-words widen the slop so "state of the art" still matches.
func near(field string, tokens []tokenizer.Token, slop int) (query.SpanQuery, error) {
	switch len(tokens) {
	case 0:
		return nil, nil
	case 1:
		return query.NewSpanTerm(field, tokens[0].Term), nil
	}
	clauses := make([]query.SpanQuery, len(tokens))
	for i, tok := range tokens {
		clauses[i] = query.NewSpanTerm(field, tok.Term)
	}
	gaps := tokens[len(tokens)-1].Position - tokens[0].Position + 1 - len(tokens)
	q, err := query.NewSpanNear(slop+gaps, clauses...)
	if err != nil {
		return nil, err
	}
	return q, nil
}

func lex(raw string) ([]item, error) {
	var items []item
	i := 0
	for i < len(raw) {
		if isSpace(raw[i]) {
			i++
			continue
		}
		it := item{boost: 1}
		j := i
		for j < len(raw) && !isSpace(raw[j]) && raw[j] != ':' && raw[j] != '"' {
			j++
		}
		if j < len(raw) && raw[j] == ':' && j > i {
			it.field = raw[i:j]
			i = j + 1
			if i >= len(raw) || isSpace(raw[i]) {
				return nil, fmt.Errorf("%w: field %q has no value", apperrors.ErrInvalidQuery, it.field)
			}
		}

		if raw[i] == '"' {
			end := strings.IndexByte(raw[i+1:], '"')
			if end < 0 {
				return nil, fmt.Errorf("%w: unterminated phrase", apperrors.ErrInvalidQuery)
			}
			it.phrase = true
			it.text = raw[i+1 : i+1+end]
			i += end + 2
		}
		j = i
		for j < len(raw) && !isSpace(raw[j]) {
			j++
		}
		rest := raw[i:j]
		i = j

		if !it.phrase {
			word, boost, _ := strings.Cut(rest, "^")
			it.text = word
			rest = ""
			if boost != "" {
				rest = "^" + boost
			}
			if it.field == "" && (word == "OR" || word == "AND" || word == "NOT") && boost == "" {
				it.keyword = word
				items = append(items, it)
				continue
			}
		}
		if err := modifiers(&it, rest); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, nil
}

// modifiers parses the "~slop" and "^boost" suffixes.
func modifiers(it *item, s string) error {
	for s != "" {
		mark := s[0]
		end := strings.IndexAny(s[1:], "~^")
		var val string
		if end < 0 {
			val, s = s[1:], ""
		} else {
			val, s = s[1:1+end], s[1+end:]
		}
		switch mark {
		case '~':
			if !it.phrase {
				return fmt.Errorf("%w: slop applies only to phrases", apperrors.ErrInvalidQuery)
			}
			n, err := strconv.Atoi(val)
			if err != nil || n < 0 {
				return fmt.Errorf("%w: bad slop %q", apperrors.ErrInvalidQuery, val)
			}
			it.slop = n
		case '^':
			b, err := strconv.ParseFloat(val, 64)
			if err != nil || b <= 0 {
				return fmt.Errorf("%w: bad boost %q", apperrors.ErrInvalidQuery, val)
			}
			it.boost = b
		default:
			return fmt.Errorf("%w: unexpected %q after phrase", apperrors.ErrInvalidQuery, string(mark)+val)
		}
	}
	return nil
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
