package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/span-search/internal/searcher/merger"
	"github.com/Adithya-Monish-Kumar-K/span-search/internal/searcher/query"
	apperrors "github.com/Adithya-Monish-Kumar-K/span-search/pkg/errors"
)

func TestParse(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"fox", "body:fox"},
		{"Foxes", "body:fox"},
		{"title:foxes", "title:fox"},
		{"qui*", "body:qui*"},
		{`"quick fox"`, "spanNear([body:quick, body:fox], 0)"},
		{`"quick fox"~2`, "spanNear([body:quick, body:fox], 2)"},
		{`"state of the art"`, "spanNear([body:state, body:art], 2)"},
		{`title:"red fox"~1^3`, "spanNear([title:red, title:fox], 1)^3"},
		{"quick OR fox", "spanOr([body:quick, body:fox])"},
		{"quick the fox", "spanOr([body:quick, body:fox])"},
		{"fox^2", "body:fox^2"},
		{"quick fox NOT red", "spanNot(spanOr([body:quick, body:fox]), body:red)"},
		{`"quick fox"~1 NOT red brown`, "spanNot(spanNear([body:quick, body:fox], 1), spanOr([body:red, body:brown]))"},
	}
	for _, tc := range tests {
		t.Run(tc.raw, func(t *testing.T) {
			q, err := Parse(tc.raw, "body")
			require.NoError(t, err)
			assert.Equal(t, tc.want, q.String())
		})
	}
}

func TestParseProducesSpanNot(t *testing.T) {
	q, err := Parse("fox NOT red", "body")
	require.NoError(t, err)
	not, ok := q.(*query.SpanNot)
	require.True(t, ok)
	assert.True(t, query.NewSpanTerm("body", "fox").Equal(not.Include()))
	assert.True(t, query.NewSpanTerm("body", "red").Equal(not.Exclude()))
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		raw  string
		want error
	}{
		{"", apperrors.ErrInvalidQuery},
		{"the of", apperrors.ErrInvalidQuery},
		{"quick AND fox", apperrors.ErrInvalidQuery},
		{"fox NOT", apperrors.ErrInvalidQuery},
		{"a1 NOT b1 NOT c1", apperrors.ErrInvalidQuery},
		{`"open phrase`, apperrors.ErrInvalidQuery},
		{`"quick fox"~x`, apperrors.ErrInvalidQuery},
		{"*", apperrors.ErrInvalidQuery},
		{"fox^0", apperrors.ErrInvalidQuery},
		{"title:", apperrors.ErrInvalidQuery},
		{"title:fox dog", apperrors.ErrFieldMismatch},
		{"fox NOT title:red", apperrors.ErrFieldMismatch},
	}
	for _, tc := range tests {
		t.Run(tc.raw, func(t *testing.T) {
			_, err := Parse(tc.raw, "body")
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestParseSort(t *testing.T) {
	s, err := ParseSort("")
	require.NoError(t, err)
	assert.Nil(t, s)

	s, err = ParseSort("year:desc, _score")
	require.NoError(t, err)
	assert.Equal(t, []merger.SortField{
		{Field: "year", Type: merger.SortAuto, Reverse: true},
		{Field: "_score", Type: merger.SortScore},
	}, s.Fields)

	s, err = ParseSort("price:float:asc")
	require.NoError(t, err)
	assert.Equal(t, []merger.SortField{{Field: "price", Type: merger.SortFloat}}, s.Fields)

	for _, bad := range []string{",", "_score:int", "year:sideways"} {
		_, err := ParseSort(bad)
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput, bad)
	}
}

func TestParseFilter(t *testing.T) {
	f, err := ParseFilter("")
	require.NoError(t, err)
	assert.Nil(t, f)

	f, err = ParseFilter("color:Reds")
	require.NoError(t, err)
	assert.Equal(t, "+color:red", f.String())

	for _, bad := range []string{"color", ":red", "color:the"} {
		_, err := ParseFilter(bad)
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput, bad)
	}
}
