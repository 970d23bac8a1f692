package parser

import (
	"fmt"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/span-search/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/span-search/internal/searcher/merger"
	"github.com/Adithya-Monish-Kumar-K/span-search/internal/searcher/query"
	apperrors "github.com/Adithya-Monish-Kumar-K/span-search/pkg/errors"
)

var sortTypes = map[string]merger.SortType{
	"string": merger.SortString,
	"int":    merger.SortInt,
	"float":  merger.SortFloat,
	"auto":   merger.SortAuto,
}

// ParseSort reads a comma-separated list of field[:type][:asc|desc]. The
// pseudo-fields _score and _doc sort by relevance and document order. An
// empty spec means relevance.
func ParseSort(spec string) (*merger.Sort, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, nil
	}
	var fields []merger.SortField
	for _, part := range strings.Split(spec, ",") {
		pieces := strings.Split(strings.TrimSpace(part), ":")
		f := merger.SortField{Field: pieces[0], Type: merger.SortAuto}
		switch f.Field {
		case "":
			return nil, fmt.Errorf("%w: empty sort field in %q", apperrors.ErrInvalidInput, spec)
		case "_score":
			f.Type = merger.SortScore
		case "_doc":
			f.Type = merger.SortDoc
		}
		for _, p := range pieces[1:] {
			switch p = strings.ToLower(p); p {
			case "asc":
				f.Reverse = false
			case "desc":
				f.Reverse = true
			default:
				t, ok := sortTypes[p]
				if !ok || f.Type == merger.SortScore || f.Type == merger.SortDoc {
					return nil, fmt.Errorf("%w: bad sort option %q for %s", apperrors.ErrInvalidInput, p, f.Field)
				}
				f.Type = t
			}
		}
		fields = append(fields, f)
	}
	return merger.NewSort(fields...), nil
}

// ParseFilter reads field:word and returns a filter on the analysed word.
// An empty spec means no filter.
func ParseFilter(spec string) (query.Filter, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, nil
	}
	field, word, ok := strings.Cut(spec, ":")
	if !ok || field == "" || word == "" {
		return nil, fmt.Errorf("%w: filter must be field:word, got %q", apperrors.ErrInvalidInput, spec)
	}
	term, ok := tokenizer.Normalize(word)
	if !ok {
		return nil, fmt.Errorf("%w: %q is never indexed", apperrors.ErrInvalidInput, word)
	}
	return query.NewTermFilter(field, term), nil
}
