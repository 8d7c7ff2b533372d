package content

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBlocklistMergesAndSorts(t *testing.T) {
	b := NewBlocklist(ParseTerms(" Scam , vermin,,")...)
	terms := b.Terms()
	require.Contains(t, terms, "scam")
	require.Equal(t, 1, countOf(terms, "vermin"))
	for i := 1; i < len(terms); i++ {
		require.Less(t, terms[i-1], terms[i])
	}
}

func TestBlocklistWordBoundary(t *testing.T) {
	b := NewBlocklist()
	require.True(t, b.Contains("They are VERMIN."))
	require.True(t, b.Contains("please   kill   yourself"))
	require.False(t, b.Contains("verminous is not a listed word"))
	require.False(t, b.Contains("a perfectly fine sentence"))
}

func countOf(terms []string, term string) int {
	n := 0
	for _, t := range terms {
		if t == term {
			n++
		}
	}
	return n
}
