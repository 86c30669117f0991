package harness

import (
	"context"
	"fmt"
	"os"

	"github.com/roach88/kwsearch/internal/compiler"
	"github.com/roach88/kwsearch/internal/engine"
	"github.com/roach88/kwsearch/internal/schema"
	"github.com/roach88/kwsearch/internal/store"
)

// Run executes a scenario and returns the result.
//
// Execution flow:
//  1. Compile the CUE schema
//  2. Seed a fresh in-memory database
//  3. Prepare, initialize and execute the query
//  4. Evaluate expectations
//
// An error means the scenario could not run; failed expectations are
// reported in Result.Errors.
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	s, err := loadSchema(scenario)
	if err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid schema: %w", err)
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	if err := store.Seed(ctx, st, s, scenario.Rows); err != nil {
		return nil, fmt.Errorf("failed to seed rows: %w", err)
	}

	sem, err := scenario.semantics()
	if err != nil {
		return nil, err
	}
	restriction, err := engine.ParseRestriction(scenario.Restrict)
	if err != nil {
		return nil, err
	}
	opts := []engine.EngineOption{engine.WithRestriction(restriction)}
	if scenario.K > 0 {
		opts = append(opts, engine.WithK(scenario.K))
	}
	if scenario.MaxSize > 0 {
		opts = append(opts, engine.WithMaxNetworkSize(scenario.MaxSize))
	}
	eng, err := engine.New(s, st, opts...)
	if err != nil {
		return nil, err
	}

	q, err := newQuery(scenario.Query, sem)
	if err != nil {
		return nil, err
	}
	plan, err := eng.Prepare(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare query: %w", err)
	}
	if err := eng.Initialize(q, plan.Networks); err != nil {
		return nil, fmt.Errorf("failed to initialize: %w", err)
	}
	if err := eng.Execute(ctx); err != nil {
		return nil, fmt.Errorf("failed to execute: %w", err)
	}

	result := NewResult()
	result.Keywords = q.Keywords
	for _, n := range plan.Networks {
		result.Networks = append(result.Networks, n.String())
	}
	result.Results = eng.Results()
	result.Stats = eng.Stats()

	for _, msg := range EvaluateExpectations(result, scenario.Expect) {
		result.AddError(msg)
	}
	return result, nil
}

func loadSchema(scenario *Scenario) (*schema.Schema, error) {
	src, filename := scenario.SchemaInline, scenario.Name+".cue"
	if scenario.Schema != "" {
		data, err := os.ReadFile(scenario.Schema)
		if err != nil {
			return nil, fmt.Errorf("failed to read schema: %w", err)
		}
		src, filename = string(data), scenario.Schema
	}
	s, err := compiler.CompileSchemaString(src, filename)
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}
	return s, nil
}
