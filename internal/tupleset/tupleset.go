package tupleset

import (
	"math"
	"sort"
	"strings"
)

// Tuple is one matched row of a table.
type Tuple struct {
	RowID int64

	// Score is the mapper's relevance for the row, in [0, 1].
	Score float64

	Signature Signature

	// Values holds display values of the row's text columns.
	Values map[string]string
}

// TupleSet is the rows of one table relevant to a query.
//
// A non-free tuple set holds the keyword-matching rows. A free tuple set
// stands for every row of its table; it carries no tuples and is used to
// bridge non-free tuple sets along FK paths.
type TupleSet struct {
	Table string

	// Keywords is the union of keywords covered by the tuples.
	Keywords KeywordSet

	// Tuples are sorted by score descending, row id ascending on ties.
	Tuples []Tuple

	// TableSize is the number of rows in the underlying table.
	TableSize int

	Free bool

	// Excluded lists, for a free tuple set, the ascending ids of the rows
	// that match a keyword. Those rows belong to non-free tuple sets.
	Excluded []int64

	id string
}

// NewTupleSet validates and sorts tuples matched in table.
// Returns *InvariantError when a tuple's signature length differs from the
// query's keyword count or its score lies outside [0, 1].
func NewTupleSet(q *Query, table string, tuples []Tuple, tableSize int) (*TupleSet, error) {
	ts := &TupleSet{
		Table:     table,
		Tuples:    make([]Tuple, len(tuples)),
		TableSize: tableSize,
	}
	copy(ts.Tuples, tuples)

	for _, t := range ts.Tuples {
		if len(t.Signature) != q.Len() {
			return nil, Invariantf("NewTupleSet", "%s row %d: signature length %d != %d keywords",
				table, t.RowID, len(t.Signature), q.Len())
		}
		if math.IsNaN(t.Score) || t.Score < 0 || t.Score > 1 {
			return nil, Invariantf("NewTupleSet", "%s row %d: score %v outside [0, 1]", table, t.RowID, t.Score)
		}
		ts.Keywords = ts.Keywords.Union(t.Signature.Covers())
	}
	if ts.TableSize < len(ts.Tuples) {
		ts.TableSize = len(ts.Tuples)
	}

	ts.Sort()
	ts.id = table + "^{" + strings.Join(q.Names(ts.Keywords), ",") + "}"
	return ts, nil
}

// FreeTupleSet returns the free tuple set of table.
func FreeTupleSet(table string, tableSize int) *TupleSet {
	return &TupleSet{
		Table:     table,
		TableSize: tableSize,
		Free:      true,
		id:        table,
	}
}

// ID identifies the tuple set within a query: "table" for free sets,
// "table^{kw,...}" for non-free ones.
func (ts *TupleSet) ID() string {
	return ts.id
}

// Len returns the number of tuples.
func (ts *TupleSet) Len() int {
	return len(ts.Tuples)
}

// Sort restores score-descending order.
func (ts *TupleSet) Sort() {
	sort.SliceStable(ts.Tuples, func(i, j int) bool {
		a, b := ts.Tuples[i], ts.Tuples[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		return a.RowID < b.RowID
	})
}

// Lookup finds a tuple by row id.
func (ts *TupleSet) Lookup(rowID int64) (Tuple, bool) {
	for _, t := range ts.Tuples {
		if t.RowID == rowID {
			return t, true
		}
	}
	return Tuple{}, false
}

// RowIDs returns the row ids of all tuples in ascending order.
func (ts *TupleSet) RowIDs() []int64 {
	return rowIDs(ts.Tuples)
}

func rowIDs(tuples []Tuple) []int64 {
	ids := make([]int64, len(tuples))
	for i, t := range tuples {
		ids[i] = t.RowID
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
