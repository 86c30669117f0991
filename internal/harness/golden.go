package harness

import (
	"context"
	"strconv"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/kwsearch/internal/ir"
)

// Snapshot renders a result as an IR object for golden comparison.
// Scores are fixed-point strings with six decimals; canonical IR has
// no floats.
func Snapshot(name string, result *Result) ir.IRObject {
	results := make(ir.IRArray, len(result.Results))
	for i, r := range result.Results {
		results[i] = ir.IRObject{
			"rank":  ir.IRInt(i + 1),
			"rows":  ir.Strings(RowRefs(r)),
			"score": ir.IRString(strconv.FormatFloat(r.Score, 'f', 6, 64)),
		}
	}
	return ir.IRObject{
		"name":     ir.IRString(name),
		"keywords": ir.Strings(result.Keywords),
		"networks": ir.IRInt(result.Stats.Networks),
		"executed": ir.IRInt(result.Stats.Executed),
		"complete": ir.IRBool(result.Stats.Complete),
		"results":  results,
	}
}

// RunWithGolden executes a scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(context.Background(), scenario)
	if err != nil {
		return nil, err
	}
	return result, AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares an existing result against its golden file
// without re-running.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	data, err := ir.MarshalCanonical(Snapshot(name, result))
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
	return nil
}
