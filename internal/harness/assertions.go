package harness

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/roach88/kwsearch/internal/engine"
	"github.com/roach88/kwsearch/internal/tupleset"
)

func newQuery(text string, sem tupleset.Semantics) (*tupleset.Query, error) {
	q, err := tupleset.NewQuery(text, sem)
	if err != nil {
		return nil, fmt.Errorf("invalid query: %w", err)
	}
	return q, nil
}

// EvaluateExpectations checks result against expect and returns one
// message per failed check.
func EvaluateExpectations(result *Result, expect Expect) []string {
	var errs []string

	if expect.Networks != nil && result.Stats.Networks != *expect.Networks {
		errs = append(errs, fmt.Sprintf("networks: got %d, want %d", result.Stats.Networks, *expect.Networks))
	}
	if expect.Executed != nil && result.Stats.Executed != *expect.Executed {
		errs = append(errs, fmt.Sprintf("executed: got %d, want %d", result.Stats.Executed, *expect.Executed))
	}
	if expect.Complete != nil && result.Stats.Complete != *expect.Complete {
		errs = append(errs, fmt.Sprintf("complete: got %t, want %t", result.Stats.Complete, *expect.Complete))
	}
	if expect.Count != nil && len(result.Results) != *expect.Count {
		errs = append(errs, fmt.Sprintf("count: got %d results, want %d", len(result.Results), *expect.Count))
	}

	for i, want := range expect.Results {
		if i >= len(result.Results) {
			errs = append(errs, fmt.Sprintf("results[%d]: missing (got %d results)", i, len(result.Results)))
			continue
		}
		errs = append(errs, checkResult(i, result.Results[i], want)...)
	}

	if expect.Ordered {
		for i := 1; i < len(result.Results); i++ {
			if result.Results[i].Score > result.Results[i-1].Score {
				errs = append(errs, fmt.Sprintf("results[%d]: score %v above results[%d] score %v",
					i, result.Results[i].Score, i-1, result.Results[i-1].Score))
			}
		}
	}
	return errs
}

func checkResult(i int, got engine.Result, want ExpectedResult) []string {
	var errs []string

	gotRows := RowRefs(got)
	wantRows := slices.Clone(want.Rows)
	slices.Sort(wantRows)
	if !slices.Equal(gotRows, wantRows) {
		errs = append(errs, fmt.Sprintf("results[%d]: rows %v, want %v", i, gotRows, wantRows))
	}
	if want.Size > 0 && got.Network.Size() != want.Size {
		errs = append(errs, fmt.Sprintf("results[%d]: network size %d, want %d", i, got.Network.Size(), want.Size))
	}
	if want.MinScore > 0 && got.Score < want.MinScore {
		errs = append(errs, fmt.Sprintf("results[%d]: score %v below %v", i, got.Score, want.MinScore))
	}
	return errs
}

// RowRefs returns the sorted "table:id" references of a result.
func RowRefs(r engine.Result) []string {
	refs := make([]string, len(r.Rows))
	for i, row := range r.Rows {
		refs[i] = row.Table + ":" + strconv.FormatInt(row.RowID, 10)
	}
	slices.Sort(refs)
	return refs
}

func parseRowRef(ref string) (string, int64, error) {
	table, id, ok := strings.Cut(ref, ":")
	if !ok || table == "" {
		return "", 0, fmt.Errorf("row reference %q must have the form table:id", ref)
	}
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return "", 0, fmt.Errorf("row reference %q: %w", ref, err)
	}
	return table, n, nil
}
