package harness

import (
	"github.com/roach88/kwsearch/internal/engine"
)

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every expectation held.
	Pass bool `json:"pass"`

	// Errors contains expectation failures. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Keywords are the normalized query keywords.
	Keywords []string `json:"keywords"`

	// Networks are the candidate networks, rendered.
	Networks []string `json:"networks"`

	// Results are the engine's top K, best first.
	Results []engine.Result `json:"-"`

	Stats engine.Stats `json:"stats"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Errors: []string{},
	}
}

// AddError adds an expectation failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
