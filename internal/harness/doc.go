// Package harness runs keyword-search scenarios end to end.
//
// A scenario names a schema, the rows to seed, a query and the results
// the engine must return. Each run uses a fresh in-memory SQLite database.
//
// # Scenario Format
//
//	name: two_table_and
//	description: "One matching row per table joins into one result"
//	schema: schemas/pair.cue      # relative to the scenario file
//	rows:
//	  x:
//	    - { id: 1, name: alpha }
//	  y:
//	    - { id: 7, x_id: 1, title: beta }
//	query: alpha beta
//	semantics: and                # and | or, default or
//	k: 10
//	expect:
//	  networks: 1
//	  executed: 1
//	  complete: true
//	  count: 1
//	  results:
//	    - rows: ["x:1", "y:7"]
//	      size: 2
//
// schema_inline may replace schema with CUE source text.
//
// # Expectations
//
// Every expectation is optional. results are checked in rank order; rows
// compare as a multiset of "table:id" strings. ordered: true requires
// non-increasing scores, which the engine guarantees.
//
// # Golden Snapshots
//
// With golden: true the harness also snapshots ranks, rows, scores (six
// decimals) and counters to testdata/golden/<name>.golden.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/two_table_and.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(ctx, scenario)
//	if !result.Pass {
//	    for _, err := range result.Errors {
//	        log.Println(err)
//	    }
//	}
package harness
