package tupleset

import (
	"fmt"
	"math/bits"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// MaxKeywords bounds the keyword list so a KeywordSet fits in one word.
const MaxKeywords = 64

// Semantics selects how keywords combine.
type Semantics int

const (
	// And requires every keyword to appear in a joined tuple.
	And Semantics = iota + 1
	// Or requires at least one keyword.
	Or
)

func (s Semantics) String() string {
	switch s {
	case And:
		return "and"
	case Or:
		return "or"
	default:
		return fmt.Sprintf("semantics(%d)", int(s))
	}
}

// ParseSemantics parses "and" or "or" (case-insensitive).
func ParseSemantics(s string) (Semantics, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "and":
		return And, nil
	case "or":
		return Or, nil
	default:
		return 0, fmt.Errorf("invalid semantics %q: must be \"and\" or \"or\"", s)
	}
}

// Query is the per-query context shared by reference across the model.
type Query struct {
	// ID correlates log lines of one query.
	ID string

	// Keywords are normalized and de-duplicated, in query order.
	Keywords []string

	Semantics Semantics
}

// NewQuery tokenizes text on whitespace and punctuation.
func NewQuery(text string, sem Semantics) (*Query, error) {
	return NewQueryFromKeywords(Tokenize(text), sem)
}

// NewQueryFromKeywords builds a query from an explicit keyword list.
// Each keyword is tokenized like row text and must yield at most one
// token; empty and repeated keywords are dropped. An empty keyword list is
// valid and produces empty results downstream.
func NewQueryFromKeywords(keywords []string, sem Semantics) (*Query, error) {
	if sem != And && sem != Or {
		return nil, fmt.Errorf("invalid semantics: %v", sem)
	}

	seen := make(map[string]bool, len(keywords))
	var kws []string
	for _, kw := range keywords {
		toks := Tokenize(kw)
		if len(toks) > 1 {
			return nil, fmt.Errorf("keyword %q spans %d tokens %q", kw, len(toks), toks)
		}
		if len(toks) == 0 || seen[toks[0]] {
			continue
		}
		n := toks[0]
		seen[n] = true
		kws = append(kws, n)
	}
	if len(kws) > MaxKeywords {
		return nil, fmt.Errorf("too many keywords: %d > %d", len(kws), MaxKeywords)
	}

	return &Query{
		ID:        uuid.Must(uuid.NewV7()).String(),
		Keywords:  kws,
		Semantics: sem,
	}, nil
}

// Len returns the number of keywords.
func (q *Query) Len() int {
	return len(q.Keywords)
}

// Index returns the position of a normalized keyword, or -1.
func (q *Query) Index(kw string) int {
	for i, k := range q.Keywords {
		if k == kw {
			return i
		}
	}
	return -1
}

// All returns the set of every keyword position.
func (q *Query) All() KeywordSet {
	if len(q.Keywords) == MaxKeywords {
		return KeywordSet(^uint64(0))
	}
	return KeywordSet(uint64(1)<<len(q.Keywords) - 1)
}

// Names renders a keyword set with this query's keyword names.
func (q *Query) Names(ks KeywordSet) []string {
	var names []string
	for i, kw := range q.Keywords {
		if ks.Has(i) {
			names = append(names, kw)
		}
	}
	return names
}

// Normalize applies NFC normalization and Unicode case folding.
func Normalize(s string) string {
	return cases.Fold().String(norm.NFC.String(strings.TrimSpace(s)))
}

// Tokenize splits text into normalized word tokens.
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(Normalize(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	return fields
}

// KeywordSet is a bitset of keyword positions.
type KeywordSet uint64

// Has reports whether position i is in the set.
func (ks KeywordSet) Has(i int) bool {
	return ks&(1<<uint(i)) != 0
}

// With returns the set with position i added.
func (ks KeywordSet) With(i int) KeywordSet {
	return ks | 1<<uint(i)
}

// Union returns ks ∪ other.
func (ks KeywordSet) Union(other KeywordSet) KeywordSet {
	return ks | other
}

// Contains reports whether other ⊆ ks.
func (ks KeywordSet) Contains(other KeywordSet) bool {
	return ks&other == other
}

// Count returns the number of positions in the set.
func (ks KeywordSet) Count() int {
	return bits.OnesCount64(uint64(ks))
}

// Empty reports whether the set has no positions.
func (ks KeywordSet) Empty() bool {
	return ks == 0
}
