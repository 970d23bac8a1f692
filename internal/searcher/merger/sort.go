package merger

import (
	"cmp"
	"math"
	"strconv"
	"strings"
)

type SortType int

const (
	SortScore SortType = iota
	SortDoc
	SortString
	SortInt
	SortFloat
	// SortAuto is resolved to SortInt, SortFloat or SortString from the
	// stored values of every shard before a search fans out.
	SortAuto
)

func (t SortType) String() string {
	switch t {
	case SortScore:
		return "score"
	case SortDoc:
		return "doc"
	case SortString:
		return "string"
	case SortInt:
		return "int"
	case SortFloat:
		return "float"
	case SortAuto:
		return "auto"
	default:
		return "unknown"
	}
}

type SortField struct {
	Field   string   `json:"field"`
	Type    SortType `json:"type"`
	Reverse bool     `json:"reverse,omitempty"`
}

func (f SortField) String() string {
	s := f.Field + ":" + f.Type.String()
	if f.Reverse {
		s += ":desc"
	}
	return s
}

// Sort orders hits by its fields in turn. Remaining ties go to the lower
// document id.
type Sort struct {
	Fields []SortField
}

func NewSort(fields ...SortField) *Sort {
	return &Sort{Fields: fields}
}

func (s *Sort) String() string {
	if s == nil {
		return "relevance"
	}
	parts := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		parts[i] = f.String()
	}
	return strings.Join(parts, ",")
}

// NeedsResolve reports whether any field still has type SortAuto.
func (s *Sort) NeedsResolve() bool {
	for _, f := range s.Fields {
		if f.Type == SortAuto {
			return true
		}
	}
	return false
}

// Resolve replaces SortAuto fields with the types of concrete. Fields that
// concrete cannot resolve fall back to SortString.
func (s *Sort) Resolve(concrete []SortField) *Sort {
	out := make([]SortField, len(s.Fields))
	copy(out, s.Fields)
	for i := range out {
		if out[i].Type != SortAuto {
			continue
		}
		out[i].Type = SortString
		if i < len(concrete) && concrete[i].Field == out[i].Field && concrete[i].Type != SortAuto {
			out[i].Type = concrete[i].Type
		}
	}
	return &Sort{Fields: out}
}

// Better reports whether a ranks strictly ahead of b.
type Better func(a, b ScoredHit) bool

// ByRelevance ranks by descending score.
func ByRelevance(a, b ScoredHit) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.Doc < b.Doc
}

// Comparator returns the ordering for a resolved sort; nil means relevance.
func (s *Sort) Comparator() Better {
	if s == nil || len(s.Fields) == 0 {
		return ByRelevance
	}
	fields := s.Fields
	return func(a, b ScoredHit) bool {
		for i, f := range fields {
			var c int
			switch f.Type {
			case SortScore:
				c = cmp.Compare(b.Score, a.Score)
			case SortDoc:
				c = cmp.Compare(a.Doc, b.Doc)
			default:
				c = compareValues(fieldAt(a, i), fieldAt(b, i))
			}
			if f.Reverse {
				c = -c
			}
			if c != 0 {
				return c < 0
			}
		}
		return a.Doc < b.Doc
	}
}

func fieldAt(h ScoredHit, i int) any {
	if i < len(h.Fields) {
		return h.Fields[i]
	}
	return nil
}

// compareValues orders missing values first. Values of one resolved field
// share a type; mixed types fall back to a fixed rank (numbers, then
// strings) so the order stays total.
func compareValues(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	switch x := a.(type) {
	case int64:
		switch y := b.(type) {
		case int64:
			return cmp.Compare(x, y)
		case float64:
			return cmp.Compare(float64(x), y)
		}
	case float64:
		switch y := b.(type) {
		case float64:
			return cmp.Compare(x, y)
		case int64:
			return cmp.Compare(x, float64(y))
		}
	case string:
		if y, ok := b.(string); ok {
			return strings.Compare(x, y)
		}
	}
	return cmp.Compare(valueRank(a), valueRank(b))
}

func valueRank(v any) int {
	switch v.(type) {
	case int64, float64:
		return 0
	case string:
		return 1
	default:
		return 2
	}
}

// Widen combines the types two shards inferred for one field. SortAuto
// means the shard holds no value and defers to the other side.
func Widen(a, b SortType) SortType {
	switch {
	case a == SortAuto:
		return b
	case b == SortAuto, a == b:
		return a
	case (a == SortInt && b == SortFloat) || (a == SortFloat && b == SortInt):
		return SortFloat
	default:
		return SortString
	}
}

// Coerce converts a sort value to t. Values that do not fit t sort as
// missing, as ParseValue does for unparseable stored values.
func Coerce(t SortType, v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case int64:
		switch t {
		case SortFloat:
			return float64(x)
		case SortString:
			return strconv.FormatInt(x, 10)
		}
		return x
	case float64:
		switch t {
		case SortInt:
			if x != math.Trunc(x) || x < math.MinInt64 || x >= math.MaxInt64 {
				return nil
			}
			return int64(x)
		case SortString:
			return strconv.FormatFloat(x, 'g', -1, 64)
		}
		return x
	case string:
		if t == SortInt || t == SortFloat {
			return ParseValue(t, x, true)
		}
		return x
	default:
		return v
	}
}

// InferType picks the narrowest type every raw value parses as, or
// SortAuto when there are no values to go by.
func InferType(raws []string) SortType {
	if len(raws) == 0 {
		return SortAuto
	}
	allInt, allFloat := true, true
	for _, r := range raws {
		if _, err := strconv.ParseInt(r, 10, 64); err != nil {
			allInt = false
		}
		if _, err := strconv.ParseFloat(r, 64); err != nil {
			allFloat = false
		}
		if !allInt && !allFloat {
			return SortString
		}
	}
	if allInt {
		return SortInt
	}
	return SortFloat
}

// ParseValue converts a stored value for sorting. Unparseable numbers sort
// as missing.
func ParseValue(t SortType, raw string, present bool) any {
	if !present {
		return nil
	}
	switch t {
	case SortInt:
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil
		}
		return v
	case SortFloat:
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil
		}
		return v
	default:
		return raw
	}
}
