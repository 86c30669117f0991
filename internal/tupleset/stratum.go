package tupleset

import (
	"fmt"
	"sort"
)

// Weights are the per-network keyword weights used to rank strata.
type Weights struct {
	// IDF holds one inverse document frequency per query keyword.
	IDF []float64

	// SumIDF is Σ IDF.
	SumIDF float64
}

// Watf returns (Σ_k tf_k × idf_k) / SumIDF, or 0 when SumIDF is 0.
func (w Weights) Watf(sig Signature) float64 {
	if w.SumIDF == 0 {
		return 0
	}
	if len(sig) != len(w.IDF) {
		panic(Invariantf("Weights.Watf", "signature length %d != %d weights", len(sig), len(w.IDF)))
	}
	sum := 0.0
	for k, tf := range sig {
		if tf > 0 {
			sum += float64(tf) * w.IDF[k]
		}
	}
	return sum / w.SumIDF
}

// Stratum is the subset of a tuple set sharing one signature.
type Stratum struct {
	TupleSet

	Signature Signature

	// Rank is the position of the stratum in watf order.
	Rank int

	Watf float64

	// MaxScore is the best tuple score in the stratum.
	MaxScore float64

	rows map[int64]int
}

// Contains reports whether the row belongs to the stratum.
func (s *Stratum) Contains(rowID int64) bool {
	_, ok := s.rows[rowID]
	return ok
}

// Tuple returns the member tuple with the given row id.
func (s *Stratum) Tuple(rowID int64) (Tuple, bool) {
	i, ok := s.rows[rowID]
	if !ok {
		return Tuple{}, false
	}
	return s.Tuples[i], true
}

// Stratify groups the tuples of ts by identical signature and ranks the
// groups by watf descending. Ties are broken by signature descending so the
// order is fully deterministic. Member tuples keep score-descending order.
//
// A free tuple set has no strata.
func Stratify(ts *TupleSet, w Weights) ([]*Stratum, error) {
	if ts.Free {
		return nil, nil
	}

	groups := make(map[string]*Stratum)
	var order []*Stratum
	for _, t := range ts.Tuples {
		if len(t.Signature) != len(w.IDF) {
			return nil, Invariantf("Stratify", "%s row %d: signature length %d != %d weights",
				ts.Table, t.RowID, len(t.Signature), len(w.IDF))
		}
		key := t.Signature.Key()
		s, ok := groups[key]
		if !ok {
			s = &Stratum{
				TupleSet: TupleSet{
					Table:     ts.Table,
					Keywords:  t.Signature.Covers(),
					TableSize: ts.TableSize,
				},
				Signature: t.Signature,
				Watf:      w.Watf(t.Signature),
				MaxScore:  t.Score,
				rows:      make(map[int64]int),
			}
			groups[key] = s
			order = append(order, s)
		}
		s.rows[t.RowID] = len(s.Tuples)
		s.Tuples = append(s.Tuples, t)
		if t.Score > s.MaxScore {
			s.MaxScore = t.Score
		}
	}

	sort.SliceStable(order, func(i, j int) bool {
		if order[i].Watf != order[j].Watf {
			return order[i].Watf > order[j].Watf
		}
		return order[i].Signature.Compare(order[j].Signature) > 0
	})
	for rank, s := range order {
		s.Rank = rank
		s.id = fmt.Sprintf("%s#%d", ts.ID(), rank)
	}
	return order, nil
}
